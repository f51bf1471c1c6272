// Package auth integrates the external identity provider. The rest of the
// application never inspects tokens itself: it consumes a resolved Principal
// (user id + email) or nothing, passed explicitly into each operation so the
// service layer stays testable with fake identities.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Principal is the authenticated identity resolved for the current request.
// Absence of a principal (a nil pointer) means the caller is anonymous.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// ErrInvalidToken is returned when a session token fails signature or claim
// validation for any reason. Callers should treat it as "no principal".
var ErrInvalidToken = errors.New("invalid session token")

// GenerateToken mints an HS256 session token for the given principal,
// valid for ttl. It is used by the auth provider integration and by tests;
// the chat subsystem itself only verifies.
func GenerateToken(p Principal, secret []byte, ttl time.Duration) (string, error) {
	if p.ID == "" {
		return "", errors.New("principal id must not be empty")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   p.ID,
		"email": p.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// VerifyToken validates an HS256 session token and resolves the Principal it
// carries. It returns ErrInvalidToken when the signature, algorithm, expiry,
// or subject claim is not acceptable.
func VerifyToken(tokenString string, secret []byte) (*Principal, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrInvalidToken
	}
	email, _ := claims["email"].(string)

	return &Principal{ID: sub, Email: email}, nil
}
