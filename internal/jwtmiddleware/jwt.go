package jwtmiddleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// TokenTTL is how long an issued bearer token stays valid.
const TokenTTL = 24 * time.Hour

// SignToken mints an HS256 token carrying the user's id and email.
func SignToken(userID uint, email string, secret []byte) (string, error) {
	claims := jwt.MapClaims{
		"id":    userID,
		"email": email,
		"exp":   time.Now().Add(TokenTTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

// ParseToken validates a raw token and returns its claims.
func ParseToken(raw string, secret []byte) (jwt.MapClaims, error) {
	t, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signature method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !t.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("cannot parse claims")
	}
	return claims, nil
}

// RequireAuth guards a route with an Authorization: Bearer header.
// Every failure maps to 400, matching the contract the clients of
// this API already depend on.
func RequireAuth(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return echo.NewHTTPError(http.StatusBadRequest, "authorization token not provided")
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid token")
			}

			claims, err := ParseToken(parts[1], secret)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid or expired token")
			}

			if id, ok := claims["id"].(float64); ok {
				c.Set("userID", uint(id))
			}
			if email, ok := claims["email"].(string); ok {
				c.Set("email", email)
			}
			return next(c)
		}
	}
}
