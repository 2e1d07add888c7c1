package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"lab-workflow/pkg/metrics"
)

// RequestLogger пишет строку лога и метрику на каждый запрос.
func RequestLogger(logger *zap.Logger, m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			duration := time.Since(start)
			// шаблон маршрута, а не конкретный путь: иначе метки метрик не ограничены
			m.RecordHTTPRequest(c.Request().Method, c.Path(), status, duration)

			logger.Info("HTTP",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Int("status", status),
				zap.Duration("duration", duration),
			)
			return nil
		}
	}
}
