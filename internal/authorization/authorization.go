package authorization

import (
	"context"
	"errors"
)

var (
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidActor = errors.New("invalid_actor")
	ErrInvalidStore = errors.New("invalid_store")
	ErrInvalidInput = errors.New("invalid_authorization_input")
)

// Service decides whether a device may act on a store it belongs to.
type Service interface {
	Authorize(ctx context.Context, deviceID string, storeID string, object string, action string) error
}

// StoreCleaner drops cached role links once a store is gone.
type StoreCleaner interface {
	ForgetStore(ctx context.Context, storeID string) error
}
