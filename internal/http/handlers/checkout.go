package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"zocheckout.com/app/internal/http/flash"
	"zocheckout.com/app/internal/http/middleware"
	"zocheckout.com/app/internal/http/render"
	"zocheckout.com/app/internal/modules/checkout"
	"zocheckout.com/app/internal/modules/checkoutstate"
	"zocheckout.com/app/internal/modules/payments"
	"zocheckout.com/app/internal/shared/apperr"
	"zocheckout.com/app/pkg/view"
	"zocheckout.com/app/templates/pages"
)

type CheckoutConfig struct {
	BaseURL     string
	ContainerID string
	FrameURL    string
	FrameHeight int
}

type CheckoutHandler struct {
	Repo    checkoutstate.Repo
	Coord   *checkout.Coordinator
	Gateway payments.Provider
	Flash   *flash.Codec
	Logger  *slog.Logger
	Cfg     CheckoutConfig
}

func NewCheckoutHandler(repo checkoutstate.Repo, coord *checkout.Coordinator, gw payments.Provider, fl *flash.Codec, logger *slog.Logger, cfg CheckoutConfig) *CheckoutHandler {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &CheckoutHandler{Repo: repo, Coord: coord, Gateway: gw, Flash: fl, Logger: logger, Cfg: cfg}
}

func (h *CheckoutHandler) session(c *gin.Context) *checkoutstate.Session {
	return checkoutstate.NewSession(h.Repo, middleware.GetCheckoutSessionID(c))
}

// Page renders the checkout page. A card method that already holds a token
// gets its payment form embedded again.
func (h *CheckoutHandler) Page(c *gin.Context) {
	st, err := h.session(c).Snapshot(c.Request.Context())
	if err != nil {
		middleware.Fail(c, stateErr(err))
		return
	}

	page := view.CheckoutPage{
		Flash:         middleware.GetFlash(c),
		Customer:      customerView(st.Customer),
		ContainerID:   h.Cfg.ContainerID,
		PaymentStatus: paymentStatus(c.Query("zo_status")),
	}
	for _, m := range st.PaymentMethods {
		page.PaymentMethods = append(page.PaymentMethods, view.PaymentMethodView{ID: m.ID, Title: m.Title, Selected: m.Selected})
		if m.ID == checkoutstate.CardPaymentID && m.Token != nil {
			src, err := checkout.FrameSrc(h.Cfg.FrameURL, *m.Token)
			if err != nil {
				h.Logger.ErrorContext(c.Request.Context(), "invalid checkout frame url", "err", err)
				continue
			}
			page.WidgetHTML = checkout.EmbedHTML(src, h.Cfg.FrameHeight)
		}
	}

	render.Component(c, http.StatusOK, pages.Checkout(page))
}

type selectForm struct {
	ID string `form:"id" binding:"omitempty,max=64"`
}

// SelectForm is the no-JS variant of SelectPaymentMethod.
func (h *CheckoutHandler) SelectForm(c *gin.Context) {
	var in selectForm
	if err := c.ShouldBind(&in); err != nil {
		render.RedirectWithFlash(c, h.Flash, "/checkout", view.FlashError, "Could not update the payment method.")
		return
	}

	st, err := h.session(c).SelectPaymentMethod(c.Request.Context(), in.ID)
	if err != nil {
		middleware.Fail(c, stateErr(err))
		return
	}

	if m, ok := st.Selected(); ok {
		render.RedirectWithFlash(c, h.Flash, "/checkout", view.FlashSuccess, m.Title+" selected.")
		return
	}
	render.RedirectWithFlash(c, h.Flash, "/checkout", view.FlashInfo, "No payment method selected.")
}

func customerView(cust *checkoutstate.Customer) *view.CustomerView {
	if cust == nil {
		return nil
	}
	return &view.CustomerView{
		Name:      strings.TrimSpace(cust.FirstName + " " + cust.LastName),
		Email:     cust.Email,
		Phone:     cust.PhoneNumber,
		OrgNumber: cust.OrgNumber,
	}
}

func paymentStatus(s string) string {
	switch s {
	case "ok", "fail":
		return s
	}
	return ""
}

func stateErr(err error) error {
	switch {
	case errors.Is(err, checkoutstate.ErrInvalidSessionID):
		return apperr.InvalidErr("Checkout session is missing.", nil)
	case errors.Is(err, checkoutstate.ErrConcurrentUpdate):
		return apperr.ConflictErr("Checkout was updated concurrently, please retry.")
	default:
		return apperr.UnavailableErr("Checkout is temporarily unavailable.", err)
	}
}
