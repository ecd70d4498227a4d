package handlers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"zocheckout.com/app/internal/http/middleware"
	"zocheckout.com/app/internal/http/render"
	"zocheckout.com/app/internal/http/validation"
	"zocheckout.com/app/internal/modules/checkout"
	"zocheckout.com/app/internal/modules/checkoutstate"
	"zocheckout.com/app/internal/modules/payments"
	"zocheckout.com/app/internal/shared/apperr"
	"zocheckout.com/app/templates/pages"
)

type orderLine struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
	Tax      int64  `json:"tax"`
}

type checkoutOrder struct {
	ID         string       `json:"id" binding:"required,max=64"`
	Amount     int64        `json:"amount" binding:"gte=0"`
	TaxAmount  int64        `json:"tax_amount" binding:"gte=0"`
	OrderLines *[]orderLine `json:"order_lines"`
}

type checkoutInit struct {
	Currency string        `json:"currency" binding:"omitempty,len=3"`
	Country  string        `json:"country"`
	Locale   string        `json:"locale"`
	Order    checkoutOrder `json:"order"`
}

type initResponse struct {
	checkoutInit
	HTML string `json:"html"`
}

func bindCheckoutInit(c *gin.Context, dst any) error {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return nil
	}
	errs := validation.FromBindError(err, dst)
	_, badID := errs["order.id"]
	_, badBody := errs["_"]
	if badID || badBody {
		return apperr.InvalidErr("Missing or invalid order.id", nil).WithCode("invalid_orderid")
	}
	return apperr.InvalidErr("Checkout request is invalid.", errs)
}

// Init creates a gateway session for the order and returns the request
// together with the iframe markup for the hosted form.
func (h *CheckoutHandler) Init(c *gin.Context) {
	var in checkoutInit
	if err := bindCheckoutInit(c, &in); err != nil {
		middleware.Fail(c, err)
		return
	}

	h.Logger.DebugContext(c.Request.Context(), "creating gateway session", "order_id", in.Order.ID)
	res, err := h.Gateway.CreateSession(c.Request.Context(), h.sessionRequest(in, h.Cfg.BaseURL+"/checkout", 0))
	if err != nil {
		middleware.Fail(c, gatewayErr(err))
		return
	}

	src, err := checkout.FrameSrc(h.Cfg.FrameURL, res.Token)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	c.JSON(http.StatusCreated, initResponse{checkoutInit: in, HTML: checkout.EmbedHTML(src, h.Cfg.FrameHeight)})
}

type orderCustomer struct {
	ID          int64  `json:"id"`
	FirstName   string `json:"first_name" binding:"max=100"`
	LastName    string `json:"last_name" binding:"max=100"`
	Email       string `json:"email" binding:"omitempty,email,max=255"`
	PhoneNumber string `json:"phone_number" binding:"max=32"`
}

type orderInput struct {
	OrderID     int64         `json:"order_id" binding:"required,gt=0"`
	TotalAmount int64         `json:"total_amount" binding:"gte=0"`
	TotalVAT    int64         `json:"total_vat" binding:"gte=0"`
	Currency    string        `json:"currency" binding:"required,len=3"`
	Customer    orderCustomer `json:"customer"`
	CallbackURL string        `json:"callback_url" binding:"required,url"`
}

type orderResponse struct {
	OrderID     string `json:"order_id"`
	CheckoutURI string `json:"checkout_uri"`
}

// Order creates a redirect-style session: the customer is sent to
// checkout_uri and comes back through Callback to callback_url.
func (h *CheckoutHandler) Order(c *gin.Context) {
	var in orderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Order is invalid.", validation.FromBindError(err, &in)))
		return
	}

	ctx := c.Request.Context()
	orderID := strconv.FormatInt(in.OrderID, 10)
	req := h.sessionRequest(checkoutInit{
		Currency: in.Currency,
		Order:    checkoutOrder{ID: orderID, Amount: in.TotalAmount, TaxAmount: in.TotalVAT},
	}, in.CallbackURL, 1)

	res, err := h.Gateway.CreateSession(ctx, req)
	if err != nil {
		middleware.Fail(c, gatewayErr(err))
		return
	}
	if res.URL == "" {
		middleware.Fail(c, apperr.Wrap(errors.New("gateway session has no checkout url")))
		return
	}

	if cust := in.Customer; cust.FirstName != "" || cust.LastName != "" || cust.Email != "" {
		_, err := h.session(c).SetCustomer(ctx, &checkoutstate.Customer{
			ID:          idString(cust.ID),
			FirstName:   cust.FirstName,
			LastName:    cust.LastName,
			Email:       strings.ToLower(cust.Email),
			PhoneNumber: cust.PhoneNumber,
		})
		if err != nil {
			h.Logger.WarnContext(ctx, "customer not stored for order", "order_id", orderID, "err", err)
		}
	}

	h.Logger.InfoContext(ctx, "checkout for order", "order_id", orderID, "gateway", h.Gateway.Name())
	c.JSON(http.StatusOK, orderResponse{OrderID: uuid.NewString(), CheckoutURI: res.URL})
}

// Callback is where the gateway sends the customer after payment. It
// redirects to the merchant callback carried in zo_cb with the outcome
// appended, and dispatches the event to the mounted payment form when the
// token is known.
func (h *CheckoutHandler) Callback(c *gin.Context) {
	status := strings.ToUpper(c.Param("status"))
	orderID := c.Query("order_id")
	cbEncoded := c.Query("zo_cb")

	if status == "" || orderID == "" || cbEncoded == "" {
		middleware.Fail(c, apperr.InvalidErr("Needs `status`, `order_id` and `zo_cb`", nil))
		return
	}

	target, err := decodeCallbackURL(cbEncoded)
	if err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid callback URL.", nil))
		return
	}

	q := target.Query()
	q.Add("zo_order_id", orderID)

	ev := checkout.EventCancel
	if status == "ACCEPT" {
		ev = checkout.EventAuthorize
		q.Add("zo_status", "ok")
		q.Add("txnid", c.Query("txnid"))
	} else {
		q.Add("zo_status", "fail")
	}
	target.RawQuery = q.Encode()

	if token := c.Query("token"); token != "" {
		h.dispatch(c, token, ev, orderID)
	}

	c.Redirect(http.StatusFound, target.String())
}

func (h *CheckoutHandler) dispatch(c *gin.Context, token string, ev checkout.Event, orderID string) {
	fields := map[string]string{}
	for k, v := range c.Request.URL.Query() {
		if k == "zo_cb" || k == "token" || len(v) == 0 {
			continue
		}
		fields[k] = v[0]
	}

	n, err := h.Coord.Dispatch(c.Request.Context(), token, ev, checkout.EventPayload{
		OrderID:       orderID,
		TransactionID: c.Query("txnid"),
		Fields:        fields,
	})
	if err != nil {
		h.Logger.WarnContext(c.Request.Context(), "gateway callback not dispatched", "event", string(ev), "order_id", orderID, "err", err)
		return
	}
	h.Logger.InfoContext(c.Request.Context(), "gateway callback dispatched", "event", string(ev), "order_id", orderID, "handlers", n)
}

func (h *CheckoutHandler) callbackURLs(orderID, returnTo string) (accept, cancel string) {
	q := url.Values{}
	q.Set("zo_cb", base64.URLEncoding.EncodeToString([]byte(returnTo)))
	q.Set("order_id", orderID)
	base := h.Cfg.BaseURL + "/api/checkout/order/callback/"
	return base + "accept?" + q.Encode(), base + "cancel?" + q.Encode()
}

// decodeCallbackURL accepts padded and unpadded base64url.
func decodeCallbackURL(s string) (*url.URL, error) {
	raw, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		if raw, err = base64.RawURLEncoding.DecodeString(s); err != nil {
			return nil, err
		}
	}
	u, err := url.Parse(string(raw))
	if err != nil {
		return nil, err
	}
	if !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("callback url must be absolute http(s): %q", string(raw))
	}
	return u, nil
}

func gatewayErr(err error) error {
	var ge *payments.GatewayError
	switch {
	case errors.As(err, &ge):
		msg := ge.EndUser
		if msg == "" {
			msg = "The payment could not be started."
		}
		return (&apperr.AppError{Kind: apperr.Invalid, PublicMsg: msg, Err: err}).WithCode("bad_request")
	case errors.Is(err, payments.ErrInvalidRequest):
		return apperr.InvalidErr("Order is missing currency or id.", nil).WithCode("invalid_request")
	case errors.Is(err, payments.ErrGatewayOpen):
		return apperr.UnavailableErr("Payments are temporarily unavailable.", err).WithCode("gateway_unavailable")
	default:
		return apperr.Wrap(err)
	}
}

func idString(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

// MockFrame stands in for the hosted card form when no gateway is configured.
func (h *CheckoutHandler) MockFrame(c *gin.Context) {
	token := c.Query("bambora_token")
	if !strings.HasPrefix(token, "mock_") {
		middleware.Fail(c, apperr.InvalidErr("Unknown payment session.", nil))
		return
	}
	render.Component(c, http.StatusOK, pages.MockFrame(token))
}
