package render

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"zocheckout.com/app/internal/http/flash"
	"zocheckout.com/app/internal/http/middleware"
	"zocheckout.com/app/pkg/view"
)

// RedirectWithFlash answers a form post with 303 so the browser follows up with GET.
func RedirectWithFlash(c *gin.Context, codec *flash.Codec, location string, kind view.FlashKind, msg string) {
	middleware.SetFlashCookie(c, codec, view.Flash{Kind: kind, Message: msg})
	c.Redirect(http.StatusSeeOther, location)
}
