package util

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is what we embed in and read back from an access token.
// Role is informational for clients; the middleware re-resolves the user
// from storage so a stale claim never widens access.
type TokenClaims struct {
	UserID int
	Email  string
	Role   string
}

// GenerateJWT creates a 24h access token for a user.
func GenerateJWT(user TokenClaims, secret string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.UserID,
		"email":   user.Email,
		"role":    user.Role,
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseJWT validates a token and extracts the claims.
func ParseJWT(tokenStr, secret string) (TokenClaims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return TokenClaims{}, err
	}

	if !token.Valid {
		return TokenClaims{}, jwt.ErrTokenInvalidClaims
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return TokenClaims{}, jwt.ErrTokenMalformed
	}

	userIDFloat, ok := claims["user_id"].(float64)
	if !ok {
		return TokenClaims{}, jwt.ErrTokenMalformed
	}

	out := TokenClaims{UserID: int(userIDFloat)}
	if email, ok := claims["email"].(string); ok {
		out.Email = email
	}
	if role, ok := claims["role"].(string); ok {
		out.Role = role
	}
	return out, nil
}

// ExtractToken pulls the bearer token out of the Authorization header.
func ExtractToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}

	parts := strings.Split(auth, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return parts[1]
}
