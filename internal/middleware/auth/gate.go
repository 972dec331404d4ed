package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mkarpenko/stores_api/internal/logging"
	"github.com/mkarpenko/stores_api/internal/revocation"
	"github.com/mkarpenko/stores_api/internal/service/token"
)

const claimsKey = "claims"

// Gate is the single decision point in front of every protected route.
// RequireAuth validates the bearer token and consults the revocation
// registry; RequireFresh and RequireAdmin add the per-route claim checks.
type Gate struct {
	Tokens   *token.Service
	Registry revocation.Registry
}

func (g *Gate) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if !strings.HasPrefix(header, "Bearer ") {
			return c.JSON(http.StatusUnauthorized, echo.Map{
				"description": "request does not contain an authorization token",
				"error":       "Authorization error!",
			})
		}

		claims, err := g.Tokens.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			if errors.Is(err, token.ErrExpired) {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"message": "token has expired",
					"error":   "token expired!",
				})
			}
			return c.JSON(http.StatusUnauthorized, echo.Map{
				"message": "Signature verification failed",
				"error":   "invalid token",
			})
		}

		ctx := c.Request().Context()
		revoked, err := g.Registry.IsRevoked(ctx, claims.ID)
		if err != nil {
			// Fail closed: an unreachable registry denies, never allows.
			logging.FromContext(ctx).Error("revocation check failed", "jti", claims.ID, "error", err)
			revoked = true
		}
		if revoked {
			return c.JSON(http.StatusUnauthorized, echo.Map{
				"description": "token has been revoked",
				"error":       "token revoked!",
			})
		}

		c.Set(claimsKey, claims)
		return next(c)
	}
}

func (g *Gate) RequireFresh(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims := ClaimsFrom(c)
		if claims == nil || !claims.Fresh {
			return c.JSON(http.StatusUnauthorized, echo.Map{
				"description": "The token is not fresh",
				"error":       "fresh token required",
			})
		}
		return next(c)
	}
}

func (g *Gate) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims := ClaimsFrom(c)
		if claims == nil || !claims.IsAdmin {
			return c.JSON(http.StatusUnauthorized, echo.Map{
				"message": "Admin privilege required",
			})
		}
		return next(c)
	}
}

// ClaimsFrom returns the claims stored by RequireAuth, or nil when the
// request never passed through the gate.
func ClaimsFrom(c echo.Context) *token.Claims {
	if v, ok := c.Get(claimsKey).(*token.Claims); ok {
		return v
	}
	return nil
}
