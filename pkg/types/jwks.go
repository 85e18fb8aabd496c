package types

import "time"

// JSONWebKey is one published signing key as specified by RFC 7517.
// Only the RSA members are used; the identity provider signs session
// tokens exclusively with RSA keys.
type JSONWebKey struct {
	Algorithm string `json:"alg,omitempty"`
	KeyID     string `json:"kid,omitempty"`
	KeyType   string `json:"kty,omitempty"`
	Use       string `json:"use,omitempty"`
	N         string `json:"n,omitempty"` // RSA modulus, base64url
	E         string `json:"e,omitempty"` // RSA public exponent, base64url
}

// JWKS represents the set of keys retrieved from the provider's JWKS
// endpoint. A set is immutable once fetched; refreshes replace it whole.
type JWKS struct {
	Keys []JSONWebKey `json:"keys"`

	// FetchedAt records when this set was retrieved. Zero for sets
	// built by hand in tests.
	FetchedAt time.Time `json:"-"`
}

// Key returns the descriptor for the given key ID, or false when the
// set does not contain it.
func (j *JWKS) Key(kid string) (JSONWebKey, bool) {
	for _, k := range j.Keys {
		if k.KeyID == kid {
			return k, true
		}
	}
	return JSONWebKey{}, false
}
