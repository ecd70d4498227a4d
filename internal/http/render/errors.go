package render

import (
	"github.com/gin-gonic/gin"

	"zocheckout.com/app/templates/pages"
)

func ErrorPage(c *gin.Context, status int, msg string, requestID string) {
	Component(c, status, pages.Error(status, msg, requestID))
}
