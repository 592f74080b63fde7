package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrValidation         = errors.New("validation error")
	ErrConflict           = errors.New("already exists")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrUnsupported        = errors.New("operation not supported by this store")
)

var (
	ErrUnauthenticated    = errors.New("no active session")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrNotReady           = errors.New("session not initialised")
)

// MinPasswordLength is enforced on sign-up and password change.
const MinPasswordLength = 6

func ValidatePassword(plain string) error {
	if len(plain) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// unavailable classifies a medium failure while keeping the cause in the chain.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}
