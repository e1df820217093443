package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/ppiankov/realitycheck/internal/logging"
)

const secretHeader = "X-Cron-Secret"

// SharedSecret rejects requests that do not carry secret, either as
// "Authorization: Bearer <secret>" or in the X-Cron-Secret header.
// An empty secret disables the check.
func SharedSecret(secret string) echo.MiddlewareFunc {
	secretBytes := []byte(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if len(secretBytes) == 0 {
				return next(c)
			}
			provided := []byte(providedSecret(c.Request()))
			if len(provided) == 0 {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing secret")
			}
			if subtle.ConstantTimeCompare(provided, secretBytes) != 1 {
				return echo.NewHTTPError(http.StatusForbidden, "invalid secret")
			}
			return next(c)
		}
	}
}

func providedSecret(r *http.Request) string {
	if v := r.Header.Get(secretHeader); v != "" {
		return v
	}
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// RequestLogger logs one line per request through log
func RequestLogger(log *logging.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			kv := []interface{}{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Round(time.Millisecond).Milliseconds(),
			}
			if v.Error != nil {
				log.Warn("request failed", append(kv, "error", v.Error)...)
				return nil
			}
			log.Debug("request", kv...)
			return nil
		},
	})
}
