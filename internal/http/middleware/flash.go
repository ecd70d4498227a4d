package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"zocheckout.com/app/internal/http/flash"
	"zocheckout.com/app/pkg/view"
)

const CtxKeyFlash = "flash"

// FlashMiddleware: cookie'den flash okur, context'e koyar ve cookie'yi siler (tek kullanımlık).
func FlashMiddleware(codec *flash.Codec) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, err := c.Cookie(codec.CookieName)
		if err != nil || v == "" {
			c.Next()
			return
		}
		if f, err := codec.Decode(v); err == nil {
			c.Set(CtxKeyFlash, f)
		}
		// geçersizse de temizle, tekrar denenmesin
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(codec.CookieName, "", -1, "/", "", codec.Secure, true)
		c.Next()
	}
}

func GetFlash(c *gin.Context) *view.Flash {
	if v, ok := c.Get(CtxKeyFlash); ok {
		if f, ok := v.(*view.Flash); ok {
			return f
		}
	}
	return nil
}

func SetFlashCookie(c *gin.Context, codec *flash.Codec, f view.Flash) {
	val, err := codec.Encode(f)
	if err != nil {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(codec.CookieName, val, codec.CookieMaxAge(), "/", "", codec.Secure, true)
}
