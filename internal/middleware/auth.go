package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/plateful/api/internal/auth"
)

// Claims is the JWT payload for first-party tokens.
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	jwt.RegisteredClaims
}

const (
	ctxUserID = "user_id"
	ctxEmail  = "email"
)

// Auth validates the bearer token and stores the user identity on the
// context. HS256 tokens are verified against the local secret; RS256 tokens
// are verified against the provider JWKS when a cache is configured.
func Auth(secret string, jwksCache *auth.JWKSCache, audience string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, email, err := authenticate(c, secret, jwksCache, audience)
		if err != nil {
			Unauthorized(c, err.Error())
			c.Abort()
			return
		}
		c.Set(ctxUserID, userID)
		c.Set(ctxEmail, email)
		c.Next()
	}
}

// OptionalAuth populates the user identity when a valid token is present but
// never rejects the request. Used by status endpoints.
func OptionalAuth(secret string, jwksCache *auth.JWKSCache, audience string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID, email, err := authenticate(c, secret, jwksCache, audience); err == nil {
			c.Set(ctxUserID, userID)
			c.Set(ctxEmail, email)
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, secret string, jwksCache *auth.JWKSCache, audience string) (uuid.UUID, string, error) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return uuid.Nil, "", errors.New("missing bearer token")
	}
	raw := strings.TrimPrefix(header, "Bearer ")

	claims := &Claims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "RS256"})}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		switch t.Method.(type) {
		case *jwt.SigningMethodHMAC:
			return []byte(secret), nil
		case *jwt.SigningMethodRSA:
			if jwksCache == nil {
				return nil, errors.New("RS256 token but no JWKS configured")
			}
			kid, _ := t.Header["kid"].(string)
			return jwksCache.Key(c.Request.Context(), kid)
		default:
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
	}, opts...)
	if err != nil || !token.Valid {
		return uuid.Nil, "", errors.New("invalid or expired token")
	}

	userID := claims.UserID
	if userID == uuid.Nil {
		// Provider tokens carry the user id in sub only.
		parsed, err := uuid.Parse(claims.Subject)
		if err != nil {
			return uuid.Nil, "", errors.New("token has no subject")
		}
		userID = parsed
	}
	return userID, claims.Email, nil
}

// GetUserID returns the authenticated user id set by Auth.
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ctxUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// GetEmail returns the authenticated user's email, when the token carried one.
func GetEmail(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxEmail)
	if !ok {
		return "", false
	}
	email, ok := v.(string)
	return email, ok
}
