package services

import (
	"errors"
	"fmt"

	"memory-tracker-backend/internal/access"
	"memory-tracker-backend/internal/cache"
	"memory-tracker-backend/internal/repository"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrPatientNotFound    = errors.New("patient not found, check the mobile number and try again")
	ErrAlreadyRegistered  = errors.New("an account with this email or mobile already exists")
	ErrTooManyAttempts    = cache.ErrTooManyAttempts
)

func invalid(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}

// storeErr marks unexpected record store failures as ErrStoreUnavailable
func storeErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrConflict) {
		return err
	}
	return fmt.Errorf("%w: %w", access.ErrStoreUnavailable, err)
}
