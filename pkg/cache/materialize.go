package cache

import (
	"crypto/rsa"
	"encoding/base64"
	"math"
	"math/big"
	"strings"

	"github.com/zenetia/zap/pkg/types"
)

// MaterializeRSA converts a wire-format key descriptor into a usable RSA
// public key. Derivation is pure: the same descriptor always yields the
// same key, so callers may cache the result freely.
//
// A descriptor that cannot be decoded, or that would produce a degenerate
// key, is rejected outright rather than silently producing a key that
// verifies nothing or everything.
func MaterializeRSA(key types.JSONWebKey) (*rsa.PublicKey, error) {
	if key.KeyType != "" && key.KeyType != "RSA" {
		return nil, types.NewAuthError(types.AuthKeyConversion, "unsupported key type "+key.KeyType)
	}
	if key.Algorithm != "" && key.Algorithm != "RS256" {
		return nil, types.NewAuthError(types.AuthKeyConversion, "unsupported key algorithm "+key.Algorithm)
	}

	nBytes, err := decodeBase64URL(key.N)
	if err != nil {
		return nil, types.WrapAuthError(types.AuthKeyConversion, "failed to decode modulus", err)
	}

	eBytes, err := decodeBase64URL(key.E)
	if err != nil {
		return nil, types.WrapAuthError(types.AuthKeyConversion, "failed to decode exponent", err)
	}

	n := new(big.Int).SetBytes(nBytes)
	if n.Sign() <= 0 {
		return nil, types.NewAuthError(types.AuthKeyConversion, "modulus is empty")
	}

	e := new(big.Int).SetBytes(eBytes)
	if !e.IsInt64() || e.Int64() <= 1 || e.Int64() > math.MaxInt32 {
		return nil, types.NewAuthError(types.AuthKeyConversion, "exponent out of range")
	}

	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}

// decodeBase64URL decodes a base64url string the way the provider encodes
// key material: pad to a multiple of 4 with '=', translate the URL-safe
// alphabet back to standard, then decode.
func decodeBase64URL(data string) ([]byte, error) {
	if m := len(data) % 4; m != 0 {
		data += strings.Repeat("=", 4-m)
	}
	data = strings.NewReplacer("-", "+", "_", "/").Replace(data)
	return base64.StdEncoding.DecodeString(data)
}
