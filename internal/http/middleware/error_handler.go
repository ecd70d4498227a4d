package middleware

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	"zocheckout.com/app/internal/shared/apperr"
	"zocheckout.com/app/templates/pages"
)

func WantsJSON(c *gin.Context) bool {
	if strings.Contains(c.GetHeader("Accept"), "application/json") {
		return true
	}
	return strings.HasPrefix(c.Request.URL.Path, "/api/")
}

func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func ErrorHandler(l *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status := apperr.HTTPStatus(err)
		publicMsg := apperr.PublicMessage(err)
		rid := GetRequestID(c)

		level := slog.LevelError
		if status < 500 {
			level = slog.LevelWarn
		}
		l.LogAttrs(c.Request.Context(), level, "request_failed",
			slog.String("request_id", rid),
			slog.Int("status", status),
			slog.Any("err", err),
		)

		if WantsJSON(c) {
			payload := gin.H{
				"error":      publicMsg,
				"code":       apperr.Code(err),
				"request_id": rid,
			}
			if ae, ok := apperr.As(err); ok && len(ae.Fields) > 0 {
				payload["fields"] = ae.Fields
			}
			c.AbortWithStatusJSON(status, payload)
			return
		}

		// SSR: templ error page
		c.Abort()
		c.Status(status)
		c.Header("Content-Type", "text/html; charset=utf-8")
		if rerr := pages.Error(status, publicMsg, rid).Render(c.Request.Context(), c.Writer); rerr != nil {
			l.ErrorContext(c.Request.Context(), "error page render failed", "err", rerr)
		}
	}
}
