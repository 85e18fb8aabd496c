package validator_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zenetia/zap/pkg/config"
	"github.com/zenetia/zap/pkg/types"
	"github.com/zenetia/zap/pkg/validator"
)

const (
	testIssuer = "https://idp.example.com"
	testKeyID  = "test-key-id"
)

// MockKeyProvider is a mock implementation of the KeyProvider interface
type MockKeyProvider struct {
	mock.Mock
}

func (m *MockKeyProvider) VerificationKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	args := m.Called(ctx, kid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rsa.PublicKey), args.Error(1)
}

type tokenOptions struct {
	issuer    string
	keyID     string
	expiresAt *jwt.NumericDate
	noExpiry  bool
}

// createSessionToken signs a session token with the given private key
func createSessionToken(t *testing.T, privateKey *rsa.PrivateKey, opts tokenOptions) string {
	t.Helper()

	claims := &types.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    opts.issuer,
			Subject:   "user-42",
			ExpiresAt: opts.expiresAt,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Email:     "u@example.com",
		Name:      "Test User",
		SessionID: "sess-1",
	}
	if claims.ExpiresAt == nil && !opts.noExpiry {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(10 * time.Minute))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = opts.keyID

	signed, err := token.SignedString(privateKey)
	require.NoError(t, err)
	return signed
}

func newValidator(keys validator.KeyProvider) *validator.TokenValidator {
	cfg := &config.Config{Issuer: testIssuer}
	return validator.NewTokenValidator(cfg, keys)
}

func assertAuthKind(t *testing.T, err error, kind types.AuthErrorKind) {
	t.Helper()
	var authErr *types.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, kind, authErr.Kind)
}

func TestValidate_Success(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	token := createSessionToken(t, privateKey, tokenOptions{issuer: testIssuer, keyID: testKeyID})

	provider := new(MockKeyProvider)
	provider.On("VerificationKey", mock.Anything, testKeyID).Return(&privateKey.PublicKey, nil)

	claims, err := newValidator(provider).Validate(context.Background(), token)
	require.NoError(t, err)
	require.NotNil(t, claims)
	assert.Equal(t, "user-42", claims.Subject)
	assert.Equal(t, "u@example.com", claims.Email)
	assert.Equal(t, "Test User", claims.Name)
	assert.Equal(t, "sess-1", claims.SessionID)

	principal := types.NewPrincipal(claims)
	assert.Equal(t, "user-42", principal.ID)
	assert.Equal(t, "u@example.com", principal.Email)
	assert.True(t, principal.IsActive)

	provider.AssertExpectations(t)
}

func TestValidate_TamperedSignature(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	token := createSessionToken(t, privateKey, tokenOptions{issuer: testIssuer, keyID: testKeyID})

	// Flip the first signature character so the decoded bytes change.
	sigStart := strings.LastIndex(token, ".") + 1
	flipped := byte('A')
	if token[sigStart] == flipped {
		flipped = 'B'
	}
	tampered := token[:sigStart] + string(flipped) + token[sigStart+1:]

	provider := new(MockKeyProvider)
	provider.On("VerificationKey", mock.Anything, testKeyID).Return(&privateKey.PublicKey, nil)

	claims, err := newValidator(provider).Validate(context.Background(), tampered)
	assert.Nil(t, claims)
	assertAuthKind(t, err, types.AuthSignatureInvalid)
}

func TestValidate_WrongKey(t *testing.T) {
	signingKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	token := createSessionToken(t, signingKey, tokenOptions{issuer: testIssuer, keyID: testKeyID})

	provider := new(MockKeyProvider)
	provider.On("VerificationKey", mock.Anything, testKeyID).Return(&otherKey.PublicKey, nil)

	claims, err := newValidator(provider).Validate(context.Background(), token)
	assert.Nil(t, claims)
	assertAuthKind(t, err, types.AuthSignatureInvalid)
}

func TestValidate_ExpiredToken(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	token := createSessionToken(t, privateKey, tokenOptions{
		issuer:    testIssuer,
		keyID:     testKeyID,
		expiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	})

	provider := new(MockKeyProvider)
	provider.On("VerificationKey", mock.Anything, testKeyID).Return(&privateKey.PublicKey, nil)

	claims, err := newValidator(provider).Validate(context.Background(), token)
	assert.Nil(t, claims)
	assertAuthKind(t, err, types.AuthTokenExpired)
}

func TestValidate_MissingExpiry(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	token := createSessionToken(t, privateKey, tokenOptions{
		issuer:   testIssuer,
		keyID:    testKeyID,
		noExpiry: true,
	})

	provider := new(MockKeyProvider)
	provider.On("VerificationKey", mock.Anything, testKeyID).Return(&privateKey.PublicKey, nil)

	claims, err := newValidator(provider).Validate(context.Background(), token)
	assert.Nil(t, claims)
	assertAuthKind(t, err, types.AuthTokenExpired)
}

func TestValidate_WrongIssuer(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	token := createSessionToken(t, privateKey, tokenOptions{
		issuer: "https://evil.example.com",
		keyID:  testKeyID,
	})

	provider := new(MockKeyProvider)
	provider.On("VerificationKey", mock.Anything, testKeyID).Return(&privateKey.PublicKey, nil)

	claims, err := newValidator(provider).Validate(context.Background(), token)
	assert.Nil(t, claims)
	assertAuthKind(t, err, types.AuthIssuerMismatch)
}

func TestValidate_UnsupportedAlgorithm(t *testing.T) {
	claims := &types.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Subject:   "user-42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(10 * time.Minute)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = testKeyID
	signed, err := token.SignedString([]byte("shared-secret"))
	require.NoError(t, err)

	provider := new(MockKeyProvider)

	result, err := newValidator(provider).Validate(context.Background(), signed)
	assert.Nil(t, result)
	assertAuthKind(t, err, types.AuthUnsupportedAlg)

	// Rejected before any key resolution happens.
	provider.AssertNotCalled(t, "VerificationKey", mock.Anything, mock.Anything)
}

func TestValidate_MissingKeyID(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	claims := &types.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Subject:   "user-42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(10 * time.Minute)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(privateKey)
	require.NoError(t, err)

	provider := new(MockKeyProvider)

	result, err := newValidator(provider).Validate(context.Background(), signed)
	assert.Nil(t, result)
	assertAuthKind(t, err, types.AuthInvalidHeader)
	provider.AssertNotCalled(t, "VerificationKey", mock.Anything, mock.Anything)
}

func TestValidate_MalformedToken(t *testing.T) {
	provider := new(MockKeyProvider)

	for _, token := range []string{"", "only-one-segment", "two.segments", "a.b.c.d"} {
		result, err := newValidator(provider).Validate(context.Background(), token)
		assert.Nil(t, result)
		assertAuthKind(t, err, types.AuthInvalidHeader)
	}
	provider.AssertNotCalled(t, "VerificationKey", mock.Anything, mock.Anything)
}

func TestValidate_KeyResolutionFailures(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	token := createSessionToken(t, privateKey, tokenOptions{issuer: testIssuer, keyID: testKeyID})

	tests := []struct {
		name string
		err  *types.AuthError
	}{
		{"provider unreachable", types.NewAuthError(types.AuthServiceUnavailable, "provider down")},
		{"unknown key id", types.NewAuthError(types.AuthUnverifiableKey, "no such key")},
		{"corrupt key material", types.NewAuthError(types.AuthKeyConversion, "bad modulus")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := new(MockKeyProvider)
			provider.On("VerificationKey", mock.Anything, testKeyID).Return(nil, tt.err)

			claims, err := newValidator(provider).Validate(context.Background(), token)
			assert.Nil(t, claims)
			// The key store's typed error passes through unchanged.
			assertAuthKind(t, err, tt.err.Kind)
		})
	}
}
