package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/gmsas95/docscan/internal/errors"
)

func (s *Server) authMiddleware() fiber.Handler {
	secret := []byte(s.config.Server.JWTSecret)

	return func(c *fiber.Ctx) error {
		auth := c.Get("Authorization")
		if auth == "" {
			return apperrors.WrapAs(apperrors.ErrUnauthorized, fmt.Errorf("missing authorization header"))
		}

		tokenString := strings.TrimPrefix(auth, "Bearer ")
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

		if err != nil || !token.Valid {
			return apperrors.WrapAs(apperrors.ErrUnauthorized, fmt.Errorf("invalid token"))
		}

		if sub, err := token.Claims.GetSubject(); err == nil {
			c.Locals("subject", sub)
		}
		return c.Next()
	}
}

// IssueToken signs an HS256 token for the history endpoints
func IssueToken(secret, subject string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", apperrors.WrapAs(apperrors.ErrConfigInvalid, fmt.Errorf("jwt secret is empty"))
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	})
	return token.SignedString([]byte(secret))
}
