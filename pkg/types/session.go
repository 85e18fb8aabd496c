package types

import (
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the fixed claim shape of an identity-provider session
// token. It is only ever populated by the validator after signature and
// time checks succeed; raw unverified payloads are never handed out.
type SessionClaims struct {
	jwt.RegisteredClaims

	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	SessionID string `json:"sid,omitempty"`
}

// Principal is the authenticated identity handed to every protected
// endpoint. It is constructed exclusively from verified claims and lives
// for a single request.
type Principal struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	SessionID string `json:"session_id"`
	IssuedAt  int64  `json:"issued_at"`
	ExpiresAt int64  `json:"expires_at"`
	IsActive  bool   `json:"is_active"`
}

// NewPrincipal maps verified session claims to a Principal. Possession of
// a valid, unexpired token implies an active principal; revocation is
// handled elsewhere.
func NewPrincipal(claims *SessionClaims) *Principal {
	p := &Principal{
		ID:        claims.Subject,
		Email:     claims.Email,
		FullName:  claims.Name,
		SessionID: claims.SessionID,
		IsActive:  true,
	}

	if claims.IssuedAt != nil {
		p.IssuedAt = claims.IssuedAt.Unix()
	}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Unix()
	}

	return p
}
