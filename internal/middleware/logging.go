package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// LoggingMiddleware 日志中间件，skipPaths 中的路径不记录
func LoggingMiddleware(skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		if _, ok := skip[path]; ok {
			return
		}
		log.Printf("[%s] %s %s | Status: %d | Size: %d | Latency: %v | IP: %s",
			c.Request.Method,
			path,
			query,
			c.Writer.Status(),
			c.Writer.Size(),
			time.Since(start),
			c.ClientIP(),
		)
	}
}
