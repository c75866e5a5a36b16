package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrRunNotFound      = errors.New("similarity run not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrMalformedRecord  = errors.New("malformed record")
	ErrGroupOverflow    = errors.New("aggregation group exceeds memory bound")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrTemporary        = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
