// ABOUTME: HMAC JWT verification for accreditation API bearer tokens
// ABOUTME: Verifies signature and time claims and issues short-lived test tokens

package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the claims the accreditation API puts in its tokens.
type TokenClaims struct {
	DNI  string `json:"dni,omitempty"`
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifierConfig configures a TokenVerifier.
type TokenVerifierConfig struct {
	Secret    string
	Algorithm string // HS256, HS384 or HS512
	Leeway    time.Duration
	Issuer    string // checked only when set
	TestTTL   time.Duration
}

// TokenVerifier checks tokens locally with the secret shared with the API.
type TokenVerifier struct {
	secret  []byte
	method  jwt.SigningMethod
	leeway  time.Duration
	issuer  string
	testTTL time.Duration
}

func NewTokenVerifier(cfg TokenVerifierConfig) (*TokenVerifier, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token secret is required")
	}

	var method jwt.SigningMethod
	switch cfg.Algorithm {
	case "", "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("unsupported token algorithm %q", cfg.Algorithm)
	}

	testTTL := cfg.TestTTL
	if testTTL <= 0 {
		testTTL = time.Hour
	}

	return &TokenVerifier{
		secret:  []byte(cfg.Secret),
		method:  method,
		leeway:  cfg.Leeway,
		issuer:  cfg.Issuer,
		testTTL: testTTL,
	}, nil
}

// Verify checks the signature with the configured algorithm and validates
// exp and nbf when present.
func (v *TokenVerifier) Verify(token string) (*TokenClaims, error) {
	if token == "" {
		return nil, errors.New("empty token")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{v.method.Alg()}),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &TokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("verifying token: %w", err)
	}
	if !parsed.Valid {
		return nil, errors.New("token is not valid")
	}
	return claims, nil
}

// Issue signs a token for diagnostics. Empty fields get test defaults.
func (v *TokenVerifier) Issue(claims TokenClaims) (string, error) {
	now := time.Now()
	if claims.Subject == "" {
		claims.Subject = "test_user"
	}
	if claims.DNI == "" {
		claims.DNI = "12345678"
	}
	if claims.Name == "" {
		claims.Name = "Test User"
	}
	if claims.IssuedAt == nil {
		claims.IssuedAt = jwt.NewNumericDate(now)
	}
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(v.testTTL))
	}
	if claims.Issuer == "" {
		claims.Issuer = v.issuer
	}

	signed, err := jwt.NewWithClaims(v.method, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}
