package keyvmongo

import (
	"errors"
	"fmt"
)

var (
	ErrNoStrategy    = errors.New("keyvmongo: no connection strategy found")
	ErrNilDatabase   = errors.New("keyvmongo: connection produced no database")
	ErrPendingClosed = errors.New("keyvmongo: pending connection closed without a result")
	ErrClosed        = errors.New("keyvmongo: store closed")
	ErrEmptyKey      = errors.New("keyvmongo: empty key")
)

// ConfigError is returned synchronously by New.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("keyvmongo: invalid options: %v", e.Err)
	}
	return fmt.Sprintf("keyvmongo: invalid options: %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ConnectionError is handed to Options.OnFailure when the store could not
// obtain a usable collection. The store stays unusable afterwards.
type ConnectionError struct {
	Strategy string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("keyvmongo: %s connection failed: %v", e.Strategy, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
