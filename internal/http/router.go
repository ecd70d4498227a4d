package http

import (
	"log/slog"
	nethttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"zocheckout.com/app/internal/config"
	"zocheckout.com/app/internal/http/flash"
	"zocheckout.com/app/internal/http/handlers"
	"zocheckout.com/app/internal/http/middleware"
	"zocheckout.com/app/internal/http/render"
	"zocheckout.com/app/internal/http/sessioncookie"
	"zocheckout.com/app/internal/modules/checkout"
	"zocheckout.com/app/internal/modules/checkoutstate"
	"zocheckout.com/app/internal/modules/payments"
	"zocheckout.com/app/pkg/metrics"
)

type Deps struct {
	Logger      *slog.Logger
	Config      config.Config
	Repo        checkoutstate.Repo
	StateDriver string
	Gateway     payments.Provider
	Coordinator *checkout.Coordinator
	Metrics     *metrics.ServerMetrics
	Gatherer    prometheus.Gatherer
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	secret := []byte(d.Config.Cookies.Secret)
	flashCodec := flash.NewCodec(secret, "zo_flash", d.Config.Cookies.Secure)
	sessionCodec := sessioncookie.New(secret, "zo_checkout", d.Config.Cookies.Secure, d.Config.State.TTL)

	r.Use(
		middleware.RequestID(),
		middleware.Logger(d.Logger),
		// ErrorHandler wraps Recovery so a recovered panic still gets a response
		middleware.ErrorHandler(d.Logger),
		middleware.Recovery(d.Logger),
		middleware.Metrics(d.Metrics),
		middleware.FlashMiddleware(flashCodec),
	)

	health := &handlers.HealthHandler{Repo: d.Repo, StateDriver: d.StateDriver, Gateway: d.Gateway}
	r.GET("/healthz", health.Get)
	r.GET("/metrics", gin.WrapH(metrics.Handler(d.Gatherer)))

	co := handlers.NewCheckoutHandler(d.Repo, d.Coordinator, d.Gateway, flashCodec, d.Logger, handlers.CheckoutConfig{
		BaseURL:     d.Config.Server.BaseURL,
		ContainerID: d.Config.Checkout.ContainerID,
		FrameURL:    d.Config.Checkout.FrameURL,
		FrameHeight: d.Config.Checkout.FrameHeight,
	})

	// the mock gateway's tokens point at this form
	if d.Gateway.Name() == "mock" {
		r.GET("/checkout-frame", co.MockFrame)
	}

	session := middleware.CheckoutSession(sessionCodec)

	page := r.Group("/checkout", session)
	page.GET("", co.Page)
	page.POST("/payment-method", co.SelectForm)

	api := r.Group("/api/checkout", session)
	api.GET("/state", co.State)
	api.PUT("/customer", co.PutCustomer)
	api.POST("/payment-methods/select", co.SelectPaymentMethod)
	api.POST("/card/session", co.CardSession)
	api.POST("/init", co.Init)
	api.POST("/order", co.Order)
	api.GET("/order/callback/:status", co.Callback)

	r.NoRoute(func(c *gin.Context) {
		if middleware.WantsJSON(c) {
			c.JSON(nethttp.StatusNotFound, gin.H{"error": "Not found.", "code": "not_found", "request_id": middleware.GetRequestID(c)})
			return
		}
		render.ErrorPage(c, nethttp.StatusNotFound, "Page not found.", middleware.GetRequestID(c))
	})

	return r
}
