package service

import (
	"crypto/rand"
	"math/big"

	"github.com/smallbiznis/shelflife/internal/store/domain"
)

// RandomCode draws an invite code uniformly from the unambiguous alphabet.
func RandomCode() (string, error) {
	alphabet := big.NewInt(int64(len(domain.CodeAlphabet)))
	code := make([]byte, domain.CodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, alphabet)
		if err != nil {
			return "", err
		}
		code[i] = domain.CodeAlphabet[n.Int64()]
	}
	return string(code), nil
}
