package validator

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/zenetia/zap/pkg/config"
	"github.com/zenetia/zap/pkg/types"
	"github.com/zenetia/zap/pkg/utils"
)

// KeyProvider resolves a key ID to a usable verification key. Implemented
// by cache.KeyStore; tests substitute fakes.
type KeyProvider interface {
	VerificationKey(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

type TokenValidatorInterface interface {
	Validate(ctx context.Context, tokenString string) (*types.SessionClaims, error)
}

// TokenValidator verifies identity-provider session tokens: RS256
// signature against a key resolved by kid, exact issuer match, expiry in
// the future. The audience claim is deliberately not checked; session
// tokens from this provider class do not carry a stable audience.
type TokenValidator struct {
	ExpectedIssuer string
	Keys           KeyProvider

	parser *jwt.Parser
}

func NewTokenValidator(cfg *config.Config, keys KeyProvider) *TokenValidator {
	return &TokenValidator{
		ExpectedIssuer: cfg.Issuer,
		Keys:           keys,
		parser: jwt.NewParser(
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Name}),
		),
	}
}

// joseHeader is the part of the token header needed to resolve a key
// before any signature work happens.
type joseHeader struct {
	Alg string `json:"alg"`
	Kid string `json:"kid"`
}

// Validate runs the full verification pass and returns the claims, or a
// typed *types.AuthError. Failure states short-circuit: a token with a
// bad header never reaches the key store, let alone the network.
func (v *TokenValidator) Validate(ctx context.Context, tokenString string) (*types.SessionClaims, error) {
	header, err := parseHeader(tokenString)
	if err != nil {
		return nil, err
	}

	if header.Alg != jwt.SigningMethodRS256.Name {
		slog.Warn("Rejected token with unsupported algorithm",
			slog.String("alg", header.Alg),
			slog.String("token", utils.RedactToken(tokenString, 8, 8)))
		return nil, types.NewAuthError(types.AuthUnsupportedAlg, "algorithm "+header.Alg+" is not accepted")
	}

	if header.Kid == "" {
		return nil, types.NewAuthError(types.AuthInvalidHeader, "token header has no key ID")
	}

	keyFunc := func(token *jwt.Token) (any, error) {
		return v.Keys.VerificationKey(ctx, header.Kid)
	}

	var claims types.SessionClaims
	token, err := v.parser.ParseWithClaims(tokenString, &claims, keyFunc)
	if err != nil {
		return nil, translateJWTError(err, &claims)
	}

	if !token.Valid {
		return nil, types.NewAuthError(types.AuthSignatureInvalid, "token is invalid")
	}

	return &claims, nil
}

// parseHeader decodes the JOSE header without verifying anything.
func parseHeader(tokenString string) (*joseHeader, error) {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return nil, types.NewAuthError(types.AuthInvalidHeader, "token must have three segments")
	}

	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[0], "="))
	if err != nil {
		return nil, types.WrapAuthError(types.AuthInvalidHeader, "failed to decode token header", err)
	}

	var header joseHeader
	if err := json.Unmarshal(raw, &header); err != nil {
		return nil, types.WrapAuthError(types.AuthInvalidHeader, "failed to parse token header", err)
	}

	return &header, nil
}

// translateJWTError maps golang-jwt failures onto the auth error
// taxonomy. Key-resolution failures surface the key store's own typed
// error; everything else is classified by sentinel.
func translateJWTError(err error, claims *types.SessionClaims) error {
	var authErr *types.AuthError
	if errors.As(err, &authErr) {
		return authErr
	}

	switch {
	case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
		return types.WrapAuthError(types.AuthTokenExpired, "token is outside its validity window", err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return types.WrapAuthError(types.AuthIssuerMismatch, "token issuer is not trusted", err)
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		// Only exp and iss are required; pick the kind by which is absent.
		if claims.ExpiresAt == nil {
			return types.WrapAuthError(types.AuthTokenExpired, "token has no expiry", err)
		}
		return types.WrapAuthError(types.AuthIssuerMismatch, "token has no issuer", err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return types.WrapAuthError(types.AuthSignatureInvalid, "token signature verification failed", err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return types.WrapAuthError(types.AuthInvalidHeader, "token is malformed", err)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return types.WrapAuthError(types.AuthUnverifiableKey, "token key could not be resolved", err)
	default:
		return types.WrapAuthError(types.AuthSignatureInvalid, "token validation failed", err)
	}
}
