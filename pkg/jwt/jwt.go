package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims represents the backend-issued access token claims
type Claims struct {
	UserID   uuid.UUID `json:"user_id"`
	Email    string    `json:"email"`
	Username string    `json:"username"`
	jwt.RegisteredClaims
}

// ExtractUserID extracts the authenticated user ID from the stored access
// token. The client never holds the signing secret, so the token is parsed
// unverified; the backend rejects tampered tokens on every request anyway.
func ExtractUserID(tokenString string) (uuid.UUID, error) {
	token, _, err := new(jwt.Parser).ParseUnverified(tokenString, &Claims{})
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return uuid.Nil, fmt.Errorf("invalid claims")
	}

	if claims.UserID == uuid.Nil {
		// Fall back to the subject claim
		if claims.Subject != "" {
			if id, err := uuid.Parse(claims.Subject); err == nil {
				return id, nil
			}
		}
		return uuid.Nil, fmt.Errorf("token carries no user id")
	}

	return claims.UserID, nil
}

// IsTokenExpired checks if the stored token is expired (without validation)
func IsTokenExpired(tokenString string) bool {
	token, _, err := new(jwt.Parser).ParseUnverified(tokenString, &Claims{})
	if err != nil {
		return true
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.ExpiresAt == nil {
		return true
	}

	return claims.ExpiresAt.Before(time.Now())
}
