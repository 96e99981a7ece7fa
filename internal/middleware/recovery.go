package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// RecoveryMiddleware 恢复中间件
// 堆栈只写日志，响应体不暴露细节
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				// 处理器主动中断连接，交给 net/http 关闭
				if err == http.ErrAbortHandler {
					panic(err)
				}
				log.Printf("panic recovered: [%s] %s: %v\n%s", c.Request.Method, c.Request.URL.Path, err, debug.Stack())
				if c.Writer.Written() {
					c.Abort()
					return
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"code":    http.StatusInternalServerError,
					"message": "internal server error",
				})
			}
		}()
		c.Next()
	}
}
