package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

const orderTokenIssuer = "unique-shop/order-status"

// OrderClaims carries the order number inside a status token.
type OrderClaims struct {
	Number string `json:"number"`
	jwt.RegisteredClaims
}

// OrderTokenService signs order numbers for public status and invoice URLs so
// they cannot be guessed or enumerated.
type OrderTokenService struct {
	secretKey []byte
	ttl       time.Duration
}

// NewOrderTokenService creates a signer. A zero ttl issues tokens that never expire.
func NewOrderTokenService(secretKey string, ttl time.Duration) *OrderTokenService {
	return &OrderTokenService{
		secretKey: []byte(secretKey),
		ttl:       ttl,
	}
}

// SignOrderNumber creates a token for number.
func (s *OrderTokenService) SignOrderNumber(number string) (string, error) {
	now := time.Now()
	claims := OrderClaims{
		Number: number,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   orderTokenIssuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// ParseOrderNumber validates tokenString and returns the order number it carries.
func (s *OrderTokenService) ParseOrderNumber(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &OrderClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secretKey, nil
	}, jwt.WithIssuer(orderTokenIssuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(*OrderClaims)
	if !ok || !token.Valid || claims.Number == "" {
		return "", ErrInvalidToken
	}

	return claims.Number, nil
}
