package identity

import (
	"context"
	"fmt"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// TokenVerifier validates bearer tokens and returns their claims.
// The abstraction enables handler tests with a stub verifier.
type TokenVerifier interface {
	// Verify validates a JWT token string and returns the claims.
	// Returns an error if the token is invalid, expired, or from the wrong issuer.
	Verify(tokenString string) (*Claims, error)
}

// VerifierConfig contains configuration for the JWKS-backed verifier.
type VerifierConfig struct {
	// EnableVerification controls whether JWT signatures are verified.
	// Set to false for development mode (parses tokens without verification).
	EnableVerification bool
	// JWKSURL is the platform identity provider's JWKS endpoint.
	JWKSURL string
	// Issuer, when set, restricts accepted tokens to this issuer.
	Issuer string
}

// JWKSVerifier validates JWT tokens against the platform's JWKS endpoint.
type JWKSVerifier struct {
	keys   keyfunc.Keyfunc
	config *VerifierConfig
}

// NewJWKSVerifier creates a verifier. With verification enabled it fetches
// the JWKS up front and fails fast on an unreachable endpoint.
func NewJWKSVerifier(config *VerifierConfig) (*JWKSVerifier, error) {
	v := &JWKSVerifier{config: config}

	if !config.EnableVerification {
		return v, nil
	}

	keys, err := keyfunc.NewDefaultCtx(context.Background(), []string{config.JWKSURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS client for %s: %w", config.JWKSURL, err)
	}
	v.keys = keys
	return v, nil
}

// Verify implements TokenVerifier.
func (v *JWKSVerifier) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	if !v.config.EnableVerification {
		// Dev mode: decode without signature verification.
		parser := jwt.NewParser()
		if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
			return nil, fmt.Errorf("failed to parse token: %w", err)
		}
		return claims, nil
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, v.keys.Keyfunc)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	if v.config.Issuer != "" {
		iss, err := claims.GetIssuer()
		if err != nil || iss != v.config.Issuer {
			return nil, fmt.Errorf("unexpected token issuer %q", iss)
		}
	}

	return claims, nil
}

var _ TokenVerifier = (*JWKSVerifier)(nil)
