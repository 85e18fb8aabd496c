package types

import (
	"fmt"
	"net/http"
)

// AuthErrorKind enumerates every way a bearer-token verification can
// fail. The set is closed: no stage returns an untyped error.
type AuthErrorKind string

const (
	AuthMalformedHeader    AuthErrorKind = "malformed_header"     // Authorization header missing or not "Bearer <token>"
	AuthInvalidHeader      AuthErrorKind = "invalid_header"       // token structure or JOSE header unusable (e.g. no kid)
	AuthUnsupportedAlg     AuthErrorKind = "unsupported_algorithm" // any algorithm other than RS256
	AuthUnverifiableKey    AuthErrorKind = "unverifiable_key"     // kid not in the key set, even after a fresh fetch
	AuthSignatureInvalid   AuthErrorKind = "signature_invalid"
	AuthIssuerMismatch     AuthErrorKind = "issuer_mismatch"
	AuthTokenExpired       AuthErrorKind = "token_expired"
	AuthServiceUnavailable AuthErrorKind = "service_unavailable" // IdP unreachable or returned an invalid key set
	AuthKeyConversion      AuthErrorKind = "key_conversion_error" // corrupt key material from the IdP
)

// AuthError is the typed failure produced by the verification pipeline.
type AuthError struct {
	Kind    AuthErrorKind
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Status maps the error kind to an HTTP response category. Everything the
// client presented wrong is unauthorized; an unreachable IdP is retryable;
// corrupt key material is an internal fault, not a client one.
func (e *AuthError) Status() int {
	switch e.Kind {
	case AuthServiceUnavailable:
		return http.StatusServiceUnavailable
	case AuthKeyConversion:
		return http.StatusInternalServerError
	default:
		return http.StatusUnauthorized
	}
}

// NewAuthError creates a typed verification failure.
func NewAuthError(kind AuthErrorKind, message string) *AuthError {
	return &AuthError{Kind: kind, Message: message}
}

// WrapAuthError creates a typed verification failure wrapping a cause.
func WrapAuthError(kind AuthErrorKind, message string, err error) *AuthError {
	return &AuthError{Kind: kind, Message: message, Err: err}
}
