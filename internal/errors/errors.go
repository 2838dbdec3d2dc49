package errors

import (
	"errors"
	"fmt"
)

// Common error types for the auth services
var (
	// Token verification errors
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrRefreshRejected    = errors.New("refresh rejected")
	ErrValidationInternal = errors.New("token validation error")

	// Key material errors
	ErrKeyMaterialInit = errors.New("key material initialisation failed")
	ErrUnknownKeyID    = errors.New("unknown key id")

	// Principal errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPrincipalNotFound  = errors.New("principal not found")
	ErrPrincipalDisabled  = errors.New("principal disabled")
	ErrPrincipalExists    = errors.New("principal already exists")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
