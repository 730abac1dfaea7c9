package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenService() *OrderTokenService {
	return NewOrderTokenService("test-secret-key-for-testing-purposes", 0)
}

func TestOrderTokenService_RoundTrip(t *testing.T) {
	service := newTestTokenService()

	token, err := service.SignOrderNumber("6769-2583-4952")
	require.NoError(t, err)
	assert.NotContains(t, token, "6769-2583-4952")

	number, err := service.ParseOrderNumber(token)

	require.NoError(t, err)
	assert.Equal(t, "6769-2583-4952", number)
}

func TestOrderTokenService_NoExpiryByDefault(t *testing.T) {
	service := newTestTokenService()

	token, err := service.SignOrderNumber("6769-2583-4952")
	require.NoError(t, err)

	parsed, _, err := jwt.NewParser().ParseUnverified(token, &OrderClaims{})
	require.NoError(t, err)
	assert.Nil(t, parsed.Claims.(*OrderClaims).ExpiresAt)
}

func TestOrderTokenService_Expired(t *testing.T) {
	service := NewOrderTokenService("test-secret-key-for-testing-purposes", time.Millisecond)

	token, err := service.SignOrderNumber("6769-2583-4952")
	require.NoError(t, err)

	time.Sleep(1100 * time.Millisecond)

	number, err := service.ParseOrderNumber(token)

	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.Empty(t, number)
}

func TestOrderTokenService_Invalid(t *testing.T) {
	service := newTestTokenService()

	valid, err := service.SignOrderNumber("6769-2583-4952")
	require.NoError(t, err)
	other, err := service.SignOrderNumber("1111-2222-3333")
	require.NoError(t, err)
	v, o := strings.Split(valid, "."), strings.Split(other, ".")
	swapped := v[0] + "." + o[1] + "." + v[2]

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"random string", "not-a-valid-token"},
		{"malformed JWT", "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid.signature"},
		{"payload from another token", swapped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			number, err := service.ParseOrderNumber(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Empty(t, number)
		})
	}
}

func TestOrderTokenService_WrongSecret(t *testing.T) {
	service1 := NewOrderTokenService("secret-key-1-secret-key-1-secret-key-1", 0)
	service2 := NewOrderTokenService("secret-key-2-secret-key-2-secret-key-2", 0)

	token, err := service1.SignOrderNumber("6769-2583-4952")
	require.NoError(t, err)

	_, err = service2.ParseOrderNumber(token)

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestOrderTokenService_WrongAlgorithm(t *testing.T) {
	service := newTestTokenService()

	token := jwt.NewWithClaims(jwt.SigningMethodNone, &OrderClaims{
		Number:           "6769-2583-4952",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: orderTokenIssuer},
	})
	tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = service.ParseOrderNumber(tokenString)

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestOrderTokenService_WrongIssuer(t *testing.T) {
	secret := "test-secret-key-for-testing-purposes"
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &OrderClaims{
		Number:           "6769-2583-4952",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else"},
	})
	tokenString, err := token.SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = NewOrderTokenService(secret, 0).ParseOrderNumber(tokenString)

	assert.ErrorIs(t, err, ErrInvalidToken)
}
