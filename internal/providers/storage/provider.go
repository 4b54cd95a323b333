package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var ErrInvalidKey = errors.New("storage_invalid_key")

// Provider stores uploaded objects and returns the URL clients fetch them by.
type Provider interface {
	Put(ctx context.Context, key string, r io.Reader) (string, error)
}

type LocalConfig struct {
	Dir       string
	PublicURL string
}

// LocalProvider writes objects under a directory that the HTTP server also
// serves statically.
type LocalProvider struct {
	dir       string
	publicURL string
}

func NewLocal(cfg LocalConfig) (*LocalProvider, error) {
	dir := strings.TrimSpace(cfg.Dir)
	if dir == "" {
		dir = "./uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalProvider{
		dir:       dir,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
	}, nil
}

func (p *LocalProvider) Dir() string { return p.dir }

func (p *LocalProvider) Put(ctx context.Context, key string, r io.Reader) (string, error) {
	clean := path.Clean("/" + strings.TrimSpace(key))
	if clean == "/" || strings.Contains(key, "..") {
		return "", ErrInvalidKey
	}
	target := filepath.Join(p.dir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := ctx.Err(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return p.publicURL + clean, nil
}
