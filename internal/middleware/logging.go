// Package middleware provides shared HTTP middleware.
package middleware

import (
	"time"

	"github.com/m1z23r/drift/pkg/drift"
	"go.uber.org/zap"
)

// Logging returns middleware that logs request metadata. Payloads are never
// logged.
func Logging(log *zap.Logger) drift.HandlerFunc {
	return func(c *drift.Context) {
		start := time.Now()
		c.Next()
		log.Info("http",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Duration("dur", time.Since(start)),
			zap.String("peer", c.Request.RemoteAddr),
		)
	}
}
