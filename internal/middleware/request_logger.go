package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"chat_relay/pkg/logger"
)

func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("Request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"clientIp", c.ClientIP(),
			"latency", time.Since(start).String(),
		)
	}
}
