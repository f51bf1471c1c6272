// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the caller's session into a principal. The API trusts
// tokens minted by the identity provider (HS256 JWT, shared secret).
// Authentication here is optional: unauthenticated requests proceed
// anonymously and each handler decides whether a principal is required, so
// public share-page reads work without a session while writes return their
// own "Unauthorized" shape instead of a blanket 401 at the edge.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/NishanthRaveendran/customs-ai/internal/auth"
)

const (
	// principalKey is the Gin context key holding the *auth.Principal.
	principalKey = "principal"
	// sessionCookie is the cookie browser clients carry the session token in.
	sessionCookie = "auth_token"
)

// Auth returns a Gin middleware that verifies the session token, when one is
// present, and attaches the resulting principal to the request context.
//
// The token is read from the Authorization header ("Bearer <token>") or,
// failing that, from the auth_token cookie. A valid token sets the
// "principal", "userID", and "userEmail" context keys; a missing or invalid
// token leaves the request anonymous. Invalid tokens are not an error at
// this layer, the request simply proceeds without identity.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := bearerToken(c.GetHeader("Authorization"))
		if tok == "" {
			if cookie, err := c.Cookie(sessionCookie); err == nil {
				tok = cookie
			}
		}
		if tok == "" {
			c.Next()
			return
		}

		p, err := auth.VerifyToken(tok, []byte(secret))
		if err != nil {
			LoggerFrom(c).Debug().Err(err).Msg("session token rejected")
			c.Next()
			return
		}

		c.Set(principalKey, p)
		c.Set("userID", p.ID)
		c.Set("userEmail", p.Email)
		c.Next()
	}
}

// PrincipalFrom returns the authenticated principal for this request, or nil
// when the request is anonymous.
func PrincipalFrom(c *gin.Context) *auth.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(*auth.Principal); ok {
			return p
		}
	}
	return nil
}

// bearerToken extracts the token from an "Authorization: Bearer x" value.
// Returns "" for any other scheme or an empty header.
func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
