package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken indicates a token that failed signature, expiry or
// claim validation.
var ErrInvalidToken = errors.New("auth: invalid token")

// Claims are the token claims this service consumes. Subject carries
// the user id; token issuance lives with the external auth
// collaborator. Expiry and signature are validated by the parser.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

var tokenParser = jwt.NewParser(
	jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	jwt.WithExpirationRequired(),
)

// ParseJWT validates a bearer token and returns its claims. Every
// failure mode wraps ErrInvalidToken so callers need one check.
func ParseJWT(tokenString string, secret []byte) (*Claims, error) {
	if tokenString == "" || len(secret) == 0 {
		return nil, fmt.Errorf("%w: missing token or secret", ErrInvalidToken)
	}

	claims := &Claims{}
	token, err := tokenParser.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if _, ok := NormalizeRole(claims.Role); !ok {
		return nil, fmt.Errorf("%w: role %q", ErrInvalidToken, claims.Role)
	}
	return claims, nil
}
