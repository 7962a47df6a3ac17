package jwt

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformed         = errors.New("jwt: malformed token")
	ErrInvalidSignature  = errors.New("jwt: invalid signature")
	ErrInvalidIssuer     = errors.New("jwt: invalid issuer")
	ErrExpired           = errors.New("jwt: token expired")
	ErrNotYetValid       = errors.New("jwt: token not yet valid")
	ErrInsufficientScope = errors.New("jwt: insufficient scope")
)

// ScopeError lista los scopes que faltan. errors.Is(err, ErrInsufficientScope) es true.
type ScopeError struct {
	Missing []string
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("%s: missing %s", ErrInsufficientScope, strings.Join(e.Missing, " "))
}

func (e *ScopeError) Unwrap() error { return ErrInsufficientScope }
