package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"zocheckout.com/app/internal/http/middleware"
	"zocheckout.com/app/internal/http/validation"
	"zocheckout.com/app/internal/modules/checkout"
	"zocheckout.com/app/internal/modules/checkoutstate"
	"zocheckout.com/app/internal/modules/payments"
	"zocheckout.com/app/internal/shared/apperr"
)

func (h *CheckoutHandler) State(c *gin.Context) {
	st, err := h.session(c).Snapshot(c.Request.Context())
	if err != nil {
		middleware.Fail(c, stateErr(err))
		return
	}
	c.JSON(http.StatusOK, st)
}

type customerInput struct {
	ID          string `json:"id" binding:"omitempty,max=64"`
	FirstName   string `json:"first_name" binding:"omitempty,max=100"`
	LastName    string `json:"last_name" binding:"omitempty,max=100"`
	Email       string `json:"email" binding:"omitempty,email,max=255"`
	PhoneNumber string `json:"phone_number" binding:"omitempty,max=32"`
	OrgNumber   string `json:"org_number" binding:"omitempty,max=32"`
}

// PutCustomer replaces the customer; a JSON null body clears it.
func (h *CheckoutHandler) PutCustomer(c *gin.Context) {
	raw, err := c.GetRawData()
	body := bytes.TrimSpace(raw)
	if err != nil || len(body) == 0 {
		middleware.Fail(c, apperr.InvalidErr("Request body is invalid.", nil))
		return
	}

	var cust *checkoutstate.Customer
	if !bytes.Equal(body, []byte("null")) {
		var in customerInput
		if err := binding.JSON.BindBody(body, &in); err != nil {
			middleware.Fail(c, apperr.InvalidErr("Customer details are invalid.", validation.FromBindError(err, &in)))
			return
		}
		cust = &checkoutstate.Customer{
			ID:          strings.TrimSpace(in.ID),
			FirstName:   strings.TrimSpace(in.FirstName),
			LastName:    strings.TrimSpace(in.LastName),
			Email:       strings.ToLower(strings.TrimSpace(in.Email)),
			PhoneNumber: strings.TrimSpace(in.PhoneNumber),
			OrgNumber:   strings.TrimSpace(in.OrgNumber),
		}
	}

	st, err := h.session(c).SetCustomer(c.Request.Context(), cust)
	if err != nil {
		middleware.Fail(c, stateErr(err))
		return
	}
	c.JSON(http.StatusOK, st)
}

type selectInput struct {
	ID string `json:"id" binding:"max=64"`
}

// SelectPaymentMethod selects the method with the given id. An empty or
// unknown id leaves nothing selected.
func (h *CheckoutHandler) SelectPaymentMethod(c *gin.Context) {
	var in selectInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Request body is invalid.", validation.FromBindError(err, &in)))
		return
	}

	st, err := h.session(c).SelectPaymentMethod(c.Request.Context(), in.ID)
	if err != nil {
		middleware.Fail(c, stateErr(err))
		return
	}
	c.JSON(http.StatusOK, st)
}

type cardSessionInput struct {
	checkoutInit
	ContainerID string `json:"container_id" binding:"omitempty,max=64"`
}

type cardSessionResponse struct {
	Token          string                        `json:"token"`
	HTML           string                        `json:"html"`
	Mounted        bool                          `json:"mounted"`
	PaymentMethods []checkoutstate.PaymentMethod `json:"paymentMethods"`
}

type cardSessionDegraded struct {
	Error          string                        `json:"error"`
	Code           string                        `json:"code"`
	PaymentMethods []checkoutstate.PaymentMethod `json:"paymentMethods"`
}

// CardSession runs the card payment setup for this checkout session. When the
// gateway or the mount fails the response still succeeds with the remaining
// payment methods so the page can fall back to paying later.
func (h *CheckoutHandler) CardSession(c *gin.Context) {
	var in cardSessionInput
	if err := bindCheckoutInit(c, &in); err != nil {
		middleware.Fail(c, err)
		return
	}

	containerID := in.ContainerID
	if containerID == "" {
		containerID = h.Cfg.ContainerID
	}
	req := h.sessionRequest(in.checkoutInit, h.Cfg.BaseURL+"/checkout", 0)

	ctx := c.Request.Context()
	sess := h.session(c)
	page := checkout.NewPage(h.Cfg.ContainerID)

	res, err := h.Coord.InitializeCardPayment(ctx, checkout.CardPaymentInput{
		Source:      checkout.GatewaySessionSource(h.Gateway, req),
		State:       sess,
		Document:    page,
		ContainerID: containerID,
	})
	if err != nil && errors.Is(err, checkout.ErrStateUnchanged) {
		middleware.Fail(c, apperr.UnavailableErr("Checkout is temporarily unavailable.", err))
		return
	}

	st, serr := sess.Snapshot(ctx)
	if serr != nil {
		middleware.Fail(c, stateErr(serr))
		return
	}

	if err != nil {
		c.JSON(http.StatusOK, cardSessionDegraded{
			Error:          "Card payment is unavailable right now. You can still pay later.",
			Code:           degradedCode(err),
			PaymentMethods: st.PaymentMethods,
		})
		return
	}

	c.JSON(http.StatusCreated, cardSessionResponse{
		Token:          res.Token,
		HTML:           page.Content(containerID),
		Mounted:        res.Mounted,
		PaymentMethods: st.PaymentMethods,
	})
}

func degradedCode(err error) string {
	switch {
	case errors.Is(err, checkout.ErrSessionCreationFailed):
		return "session_failed"
	case errors.Is(err, checkout.ErrMissingMountTarget):
		return "missing_target"
	default:
		return "mount_failed"
	}
}

func (h *CheckoutHandler) sessionRequest(in checkoutInit, returnTo string, redirectOnAccept int) payments.SessionRequest {
	accept, cancel := h.callbackURLs(in.Order.ID, returnTo)
	return payments.SessionRequest{
		OrderID:          in.Order.ID,
		AmountCents:      in.Order.Amount,
		VATCents:         in.Order.TaxAmount,
		Currency:         in.Currency,
		AcceptURL:        accept,
		CancelURL:        cancel,
		RedirectOnAccept: redirectOnAccept,
	}
}
