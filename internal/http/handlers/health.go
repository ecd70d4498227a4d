package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"zocheckout.com/app/internal/modules/checkoutstate"
	"zocheckout.com/app/internal/modules/payments"
)

type HealthHandler struct {
	Repo        checkoutstate.Repo
	StateDriver string
	Gateway     payments.Provider
}

// Get reports whether the checkout state backend answers.
func (h *HealthHandler) Get(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	body := gin.H{"state_driver": h.StateDriver, "gateway": h.Gateway.Name()}
	if _, err := h.Repo.Load(ctx, "healthz"); err != nil {
		body["status"] = "degraded"
		body["error"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	body["status"] = "ok"
	c.JSON(http.StatusOK, body)
}
