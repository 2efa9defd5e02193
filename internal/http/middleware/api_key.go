package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"

	"github.com/jmehdipour/judgment-gateway/internal/config"
)

const (
	ctxIssuer = "issuer_id"
	ctxAdmin  = "admin"
)

// IssuerFromCtx extracts the issuer bound to the API key by APIKeyMiddleware.
func IssuerFromCtx(c echo.Context) (string, bool) {
	v, ok := c.Get(ctxIssuer).(string)
	return v, ok && v != ""
}

// APIKeyMiddleware authenticates requests using X-API-Key header.
// On success it stores the key's issuer (and admin flag) in context.
func APIKeyMiddleware(keys []config.APIKey) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := strings.TrimSpace(c.Request().Header.Get("X-API-Key"))
			if key == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing api key"})
			}
			k, ok := lookup(keys, key)
			if !ok {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid api key"})
			}
			c.Set(ctxIssuer, k.Issuer)
			c.Set(ctxAdmin, k.Admin)
			return next(c)
		}
	}
}

// AdminOnly rejects keys without the admin flag. It must run after
// APIKeyMiddleware.
func AdminOnly() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if admin, _ := c.Get(ctxAdmin).(bool); !admin {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "admin key required"})
			}
			return next(c)
		}
	}
}

func lookup(keys []config.APIKey, key string) (config.APIKey, bool) {
	for _, k := range keys {
		if subtle.ConstantTimeCompare([]byte(k.Key), []byte(key)) == 1 {
			return k, true
		}
	}
	return config.APIKey{}, false
}
