package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"content-factory-ai/internal/interfaces/http/dto"
	apperrors "content-factory-ai/pkg/errors"
	"content-factory-ai/pkg/logger"
)

// Recovery 捕获处理器 panic，记录堆栈后返回 500
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if r == http.ErrAbortHandler {
				panic(r)
			}
			logger.Error(c.Request.Context(), "panic recovered", fmt.Errorf("%v", r),
				"method", c.Request.Method,
				"route", c.FullPath(),
				"stack", string(debug.Stack()),
			)
			if !c.Writer.Written() {
				dto.Abort(c, http.StatusInternalServerError, apperrors.CodeInternalError, "internal server error")
				return
			}
			c.Abort()
		}()

		c.Next()
	}
}
