package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"zocheckout.com/app/internal/http/sessioncookie"
)

const CtxKeyCheckoutSession = "checkout_session_id"

// CheckoutSession resolves the checkout session id from the signed cookie,
// issuing a new one on first visit. The cookie is re-set on every request so
// it expires MaxAge after the last checkout activity, like the stored state.
func CheckoutSession(codec *sessioncookie.Codec) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := codec.Get(c)
		if !ok {
			id = uuid.NewString()
		}
		codec.Set(c, id)
		c.Set(CtxKeyCheckoutSession, id)
		c.Next()
	}
}

func GetCheckoutSessionID(c *gin.Context) string {
	return c.GetString(CtxKeyCheckoutSession)
}
