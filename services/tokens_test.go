// ABOUTME: Tests for bearer token verification
// ABOUTME: Covers signature, algorithm, expiry and issuer checks

package services

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newTestVerifier(t *testing.T) *TokenVerifier {
	t.Helper()
	v, err := NewTokenVerifier(TokenVerifierConfig{Secret: testSecret, Algorithm: "HS256"})
	require.NoError(t, err)
	return v
}

func TestNewTokenVerifier_Validation(t *testing.T) {
	_, err := NewTokenVerifier(TokenVerifierConfig{Algorithm: "HS256"})
	assert.Error(t, err, "missing secret")

	_, err = NewTokenVerifier(TokenVerifierConfig{Secret: "s", Algorithm: "RS256"})
	assert.Error(t, err, "asymmetric algorithm")

	for _, alg := range []string{"", "HS256", "HS384", "HS512"} {
		_, err := NewTokenVerifier(TokenVerifierConfig{Secret: "s", Algorithm: alg})
		assert.NoError(t, err, alg)
	}
}

func TestTokenVerifier_IssueAndVerify(t *testing.T) {
	v := newTestVerifier(t)

	token, err := v.Issue(TokenClaims{})
	require.NoError(t, err)

	claims, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "test_user", claims.Subject)
	assert.Equal(t, "12345678", claims.DNI)
	assert.Equal(t, "Test User", claims.Name)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestTokenVerifier_Rejects(t *testing.T) {
	v := newTestVerifier(t)

	expired, err := v.Issue(TokenClaims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}})
	require.NoError(t, err)

	notYet, err := v.Issue(TokenClaims{RegisteredClaims: jwt.RegisteredClaims{
		NotBefore: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	require.NoError(t, err)

	valid, err := v.Issue(TokenClaims{})
	require.NoError(t, err)
	tampered := tamperSignature(valid)

	otherSecret, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x"}).SignedString([]byte("other"))
	require.NoError(t, err)

	otherAlg, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"sub": "x"}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "x"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"empty":        "",
		"garbage":      "not.a.jwt",
		"expired":      expired,
		"not before":   notYet,
		"tampered":     tampered,
		"other secret": otherSecret,
		"other alg":    otherAlg,
		"alg none":     unsigned,
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(token)
			assert.Error(t, err)
		})
	}
}

// tamperSignature replaces the first signature character.
func tamperSignature(token string) string {
	parts := strings.Split(token, ".")
	replacement := "A"
	if strings.HasPrefix(parts[2], "A") {
		replacement = "B"
	}
	parts[2] = replacement + parts[2][1:]
	return strings.Join(parts, ".")
}

func TestTokenVerifier_TokenWithoutExpiry(t *testing.T) {
	v := newTestVerifier(t)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "42", "dni": "1"}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	claims, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
}

func TestTokenVerifier_Leeway(t *testing.T) {
	v, err := NewTokenVerifier(TokenVerifierConfig{Secret: testSecret, Leeway: time.Minute})
	require.NoError(t, err)

	token, err := v.Issue(TokenClaims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-10 * time.Second)),
	}})
	require.NoError(t, err)

	_, err = v.Verify(token)
	assert.NoError(t, err, "expiry within leeway is accepted")
}

func TestTokenVerifier_Issuer(t *testing.T) {
	v, err := NewTokenVerifier(TokenVerifierConfig{Secret: testSecret, Issuer: "acreditaciones"})
	require.NoError(t, err)

	own, err := v.Issue(TokenClaims{})
	require.NoError(t, err)
	_, err = v.Verify(own)
	assert.NoError(t, err)

	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"iss": "elsewhere"}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = v.Verify(foreign)
	assert.Error(t, err)
}
