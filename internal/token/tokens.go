package token

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Claims defines the JWT payload.
type Claims struct {
	UserID string `json:"user_id"`
	jwtlib.RegisteredClaims
}

// Generate issues a signed access token for the user. The algorithm name
// comes from configuration; only HMAC variants are accepted.
func Generate(userID, secret, algorithm string, ttl time.Duration) (string, error) {
	method, err := signingMethod(algorithm)
	if err != nil {
		return "", err
	}
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    "userd",
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwtlib.NewWithClaims(method, claims).SignedString([]byte(secret))
}

// Parse validates a token and extracts its claims.
func Parse(token, secret string) (*Claims, error) {
	parsed, err := jwtlib.ParseWithClaims(token, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwtlib.WithValidMethods([]string{
		jwtlib.SigningMethodHS256.Name,
		jwtlib.SigningMethodHS384.Name,
		jwtlib.SigningMethodHS512.Name,
	}))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, jwtlib.ErrTokenInvalidClaims
	}
	return claims, nil
}

func signingMethod(name string) (jwtlib.SigningMethod, error) {
	switch name {
	case "", jwtlib.SigningMethodHS256.Name:
		return jwtlib.SigningMethodHS256, nil
	case jwtlib.SigningMethodHS384.Name:
		return jwtlib.SigningMethodHS384, nil
	case jwtlib.SigningMethodHS512.Name:
		return jwtlib.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", name)
	}
}
