package middleware

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"treasury/internal/authz"
	apperrors "treasury/internal/errors"
	"treasury/internal/services"
)

// ActorKey is the Gin context key holding the resolved authz.Actor.
const ActorKey = "actor"

// ActorResolver loads the caller identity of an authenticated profile.
type ActorResolver interface {
	ResolveActor(ctx context.Context, profileID string) (authz.Actor, error)
}

// JWTClaims represents the claims in the JWT. The subject is the profile id.
type JWTClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// GenerateAccessToken signs a token for profileID.
func GenerateAccessToken(secret, issuer, profileID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &JWTClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   profileID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func parseToken(tokenString, secret, issuer string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(issuer))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	return claims, nil
}

// AuthMiddleware verifies the bearer token, resolves the caller's role,
// church and fund assignments from the store, and sets the Actor in the
// context. The client address travels in the request context for auditing.
func AuthMiddleware(resolver ActorResolver, secret, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "Authorization header is required"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortWithError(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "Invalid authorization header format"))
			return
		}

		claims, err := parseToken(parts[1], secret, issuer)
		if err != nil {
			abortWithError(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "Invalid or expired token"))
			return
		}

		ctx := services.WithClientIP(c.Request.Context(), c.ClientIP())
		actor, err := resolver.ResolveActor(ctx, claims.Subject)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.Request = c.Request.WithContext(ctx)
		c.Set(ActorKey, actor)
		c.Next()
	}
}
