package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"zocheckout.com/app/internal/shared/apperr"
)

func Recovery(l *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		// stack'i ayrı field olarak structured log'a koyuyoruz
		l.LogAttrs(c.Request.Context(), slog.LevelError, "panic_recovered",
			slog.String("request_id", GetRequestID(c)),
			slog.Any("panic", recovered),
			slog.String("stack", string(debug.Stack())),
		)

		Fail(c, apperr.Wrap(fmt.Errorf("panic: %v", recovered)))
	})
}
