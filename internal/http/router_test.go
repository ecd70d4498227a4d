package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zocheckout.com/app/internal/config"
	"zocheckout.com/app/internal/modules/checkout"
	"zocheckout.com/app/internal/modules/checkoutstate"
	"zocheckout.com/app/internal/modules/payments"
	"zocheckout.com/app/pkg/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type failingGateway struct{}

func (failingGateway) Name() string { return "failing" }

func (failingGateway) CreateSession(ctx context.Context, req payments.SessionRequest) (payments.SessionResponse, error) {
	return payments.SessionResponse{}, errors.New("connection refused")
}

type authorizations struct {
	mu       sync.Mutex
	payloads []checkout.EventPayload
}

func (a *authorizations) handle(ctx context.Context, ev checkout.Event, p checkout.EventPayload) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.payloads = append(a.payloads, p)
}

type testServer struct {
	handler nethttp.Handler
	reg     *prometheus.Registry
	auth    *authorizations
}

func newTestServer(t *testing.T, gw payments.Provider) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Defaults()
	cfg.Cookies.Secret = "test-secret"

	if gw == nil {
		gw = payments.NewMockProvider(cfg.Server.BaseURL)
	}

	reg := prometheus.NewRegistry()
	m := metrics.NewServerMetrics(reg, "web")
	auth := &authorizations{}
	coord := checkout.NewCoordinator(
		checkout.NewInlineCheckoutFactory(cfg.Checkout.FrameURL, cfg.Checkout.FrameHeight, logger),
		logger,
		checkout.Options{OnOutcome: m.CardSessionOutcome, OnAuthorize: []checkout.EventHandler{auth.handle}},
	)

	r := NewRouter(Deps{
		Logger:      logger,
		Config:      cfg,
		Repo:        checkoutstate.NewMemoryRepo(cfg.State.TTL),
		StateDriver: "memory",
		Gateway:     gw,
		Coordinator: coord,
		Metrics:     m,
		Gatherer:    reg,
	})
	return &testServer{handler: r, reg: reg, auth: auth}
}

// browser keeps cookies between requests the way a real one would.
type browser struct {
	t       *testing.T
	srv     *testServer
	cookies map[string]*nethttp.Cookie
}

func (s *testServer) browser(t *testing.T) *browser {
	return &browser{t: t, srv: s, cookies: map[string]*nethttp.Cookie{}}
}

func (b *browser) do(method, path, body string) *httptest.ResponseRecorder {
	b.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if strings.HasPrefix(body, "{") || body == "null" {
		req.Header.Set("Content-Type", "application/json")
	} else if body != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, c := range b.cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	b.srv.handler.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

const initBody = `{"currency":"NOK","country":"NO","locale":"nb-NO","order":{"id":"125","amount":3751250,"tax_amount":750250}}`

func TestCheckoutPage_IssuesSessionCookie(t *testing.T) {
	b := newTestServer(t, nil).browser(t)

	rec := b.do(nethttp.MethodGet, "/checkout", "")

	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `value="invoice-payment"`)
	assert.Contains(t, rec.Body.String(), `<div id="zo-cc-container"></div>`)
	assert.Contains(t, b.cookies, "zo_checkout")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestState_DefaultsToInvoiceOnly(t *testing.T) {
	b := newTestServer(t, nil).browser(t)

	rec := b.do(nethttp.MethodGet, "/api/checkout/state", "")
	require.Equal(t, nethttp.StatusOK, rec.Code)

	st := decode[checkoutstate.State](t, rec)
	assert.Nil(t, st.Customer)
	require.Len(t, st.PaymentMethods, 1)
	assert.Equal(t, checkoutstate.InvoicePaymentID, st.PaymentMethods[0].ID)
	assert.False(t, st.PaymentMethods[0].Selected)
}

func TestCardPaymentFlow(t *testing.T) {
	srv := newTestServer(t, nil)
	b := srv.browser(t)

	rec := b.do(nethttp.MethodPut, "/api/checkout/customer", `{"first_name":"Ola","last_name":"Nordmann","email":"Ola@Example.no"}`)
	require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())
	st := decode[checkoutstate.State](t, rec)
	require.NotNil(t, st.Customer)
	assert.Equal(t, "ola@example.no", st.Customer.Email)

	rec = b.do(nethttp.MethodPost, "/api/checkout/card/session", initBody)
	require.Equal(t, nethttp.StatusCreated, rec.Code, rec.Body.String())
	res := decode[struct {
		Token          string                        `json:"token"`
		HTML           string                        `json:"html"`
		Mounted        bool                          `json:"mounted"`
		PaymentMethods []checkoutstate.PaymentMethod `json:"paymentMethods"`
	}](t, rec)
	assert.True(t, res.Mounted)
	assert.True(t, strings.HasPrefix(res.Token, "mock_"))
	assert.Contains(t, res.HTML, `bambora_token=`+res.Token)
	require.Len(t, res.PaymentMethods, 2)
	assert.Equal(t, checkoutstate.CardPaymentID, res.PaymentMethods[1].ID)
	assert.Equal(t, res.Token, *res.PaymentMethods[1].Token)

	rec = b.do(nethttp.MethodPost, "/api/checkout/payment-methods/select", `{"id":"card-payment"}`)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	st = decode[checkoutstate.State](t, rec)
	sel, ok := st.Selected()
	require.True(t, ok)
	assert.Equal(t, checkoutstate.CardPaymentID, sel.ID)

	rec = b.do(nethttp.MethodGet, "/checkout", "")
	assert.Contains(t, rec.Body.String(), `id="zo-checkout-iframe"`)
	assert.Contains(t, rec.Body.String(), "Ola Nordmann")

	// the gateway sends the customer back with the token; the mounted form hears about it
	cb := base64.URLEncoding.EncodeToString([]byte("http://localhost:8080/checkout"))
	rec = b.do(nethttp.MethodGet, "/api/checkout/order/callback/accept?order_id=125&txnid=205888692085291008&token="+res.Token+"&zo_cb="+cb, "")
	require.Equal(t, nethttp.StatusFound, rec.Code)

	srv.auth.mu.Lock()
	defer srv.auth.mu.Unlock()
	require.Len(t, srv.auth.payloads, 1)
	assert.Equal(t, "125", srv.auth.payloads[0].OrderID)
	assert.Equal(t, "205888692085291008", srv.auth.payloads[0].TransactionID)
	assert.Equal(t, res.Token, srv.auth.payloads[0].Token)
}

func TestCardSession_RetryReplacesToken(t *testing.T) {
	b := newTestServer(t, nil).browser(t)

	first := b.do(nethttp.MethodPost, "/api/checkout/card/session", initBody)
	second := b.do(nethttp.MethodPost, "/api/checkout/card/session", initBody)
	require.Equal(t, nethttp.StatusCreated, first.Code)
	require.Equal(t, nethttp.StatusCreated, second.Code)

	st := decode[checkoutstate.State](t, b.do(nethttp.MethodGet, "/api/checkout/state", ""))
	require.Len(t, st.PaymentMethods, 2)
	tok := decode[struct {
		Token string `json:"token"`
	}](t, second).Token
	assert.Equal(t, tok, *st.PaymentMethods[1].Token)
}

func TestCardSession_GatewayFailureDegrades(t *testing.T) {
	srv := newTestServer(t, failingGateway{})
	b := srv.browser(t)

	rec := b.do(nethttp.MethodPost, "/api/checkout/card/session", initBody)

	require.Equal(t, nethttp.StatusOK, rec.Code)
	res := decode[struct {
		Error          string                        `json:"error"`
		Code           string                        `json:"code"`
		PaymentMethods []checkoutstate.PaymentMethod `json:"paymentMethods"`
	}](t, rec)
	assert.Equal(t, "session_failed", res.Code)
	assert.NotEmpty(t, res.Error)
	require.Len(t, res.PaymentMethods, 1)
	assert.Equal(t, checkoutstate.InvoicePaymentID, res.PaymentMethods[0].ID)

	metricsRec := b.do(nethttp.MethodGet, "/metrics", "")
	assert.Contains(t, metricsRec.Body.String(), `zocheckout_web_card_session_total{result="session_failed"} 1`)
}

func TestCardSession_UnknownContainerKeepsCardMethod(t *testing.T) {
	b := newTestServer(t, nil).browser(t)

	body := strings.TrimSuffix(initBody, "}") + `,"container_id":"somewhere-else"}`
	rec := b.do(nethttp.MethodPost, "/api/checkout/card/session", body)

	require.Equal(t, nethttp.StatusOK, rec.Code)
	res := decode[struct {
		Code           string                        `json:"code"`
		PaymentMethods []checkoutstate.PaymentMethod `json:"paymentMethods"`
	}](t, rec)
	assert.Equal(t, "missing_target", res.Code)
	assert.Len(t, res.PaymentMethods, 2)
}

func TestCardSession_InvalidOrderID(t *testing.T) {
	b := newTestServer(t, nil).browser(t)

	rec := b.do(nethttp.MethodPost, "/api/checkout/card/session", `{"currency":"NOK","order":{"amount":100}}`)

	require.Equal(t, nethttp.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_orderid", decode[map[string]any](t, rec)["code"])

	metricsRec := b.do(nethttp.MethodGet, "/metrics", "")
	assert.Contains(t, metricsRec.Body.String(), `zocheckout_web_http_requests_total{handler="/api/checkout/card/session",status="400"} 1`)
}

func TestCustomer_ValidationAndClear(t *testing.T) {
	b := newTestServer(t, nil).browser(t)

	rec := b.do(nethttp.MethodPut, "/api/checkout/customer", `{"email":"not-an-email"}`)
	require.Equal(t, nethttp.StatusBadRequest, rec.Code)
	body := decode[struct {
		Fields map[string]string `json:"fields"`
	}](t, rec)
	assert.Contains(t, body.Fields, "email")

	rec = b.do(nethttp.MethodPut, "/api/checkout/customer", `{"first_name":"Kari"}`)
	require.Equal(t, nethttp.StatusOK, rec.Code)

	rec = b.do(nethttp.MethodPut, "/api/checkout/customer", `null`)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Nil(t, decode[checkoutstate.State](t, rec).Customer)
}

func TestSelect_EmptyIDDeselects(t *testing.T) {
	b := newTestServer(t, nil).browser(t)

	b.do(nethttp.MethodPost, "/api/checkout/payment-methods/select", `{"id":"invoice-payment"}`)
	rec := b.do(nethttp.MethodPost, "/api/checkout/payment-methods/select", `{"id":""}`)

	require.Equal(t, nethttp.StatusOK, rec.Code)
	_, ok := decode[checkoutstate.State](t, rec).Selected()
	assert.False(t, ok)
}

func TestSessionsAreIsolated(t *testing.T) {
	srv := newTestServer(t, nil)
	alice, bob := srv.browser(t), srv.browser(t)

	alice.do(nethttp.MethodPost, "/api/checkout/payment-methods/select", `{"id":"invoice-payment"}`)

	_, ok := decode[checkoutstate.State](t, bob.do(nethttp.MethodGet, "/api/checkout/state", "")).Selected()
	assert.False(t, ok)
	_, ok = decode[checkoutstate.State](t, alice.do(nethttp.MethodGet, "/api/checkout/state", "")).Selected()
	assert.True(t, ok)
}

func TestTamperedSessionCookieStartsFresh(t *testing.T) {
	b := newTestServer(t, nil).browser(t)
	b.do(nethttp.MethodPost, "/api/checkout/payment-methods/select", `{"id":"invoice-payment"}`)

	b.cookies["zo_checkout"].Value = "someone-else.forged"
	rec := b.do(nethttp.MethodGet, "/api/checkout/state", "")

	_, ok := decode[checkoutstate.State](t, rec).Selected()
	assert.False(t, ok)
	assert.NotEqual(t, "someone-else.forged", b.cookies["zo_checkout"].Value)
}

func TestSessionCookieIsRefreshedOnEveryRequest(t *testing.T) {
	b := newTestServer(t, nil).browser(t)
	b.do(nethttp.MethodGet, "/checkout", "")
	first := b.cookies["zo_checkout"].Value

	rec := b.do(nethttp.MethodGet, "/api/checkout/state", "")

	var refreshed *nethttp.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "zo_checkout" {
			refreshed = c
		}
	}
	require.NotNil(t, refreshed, "cookie is re-set with a fresh expiry")
	assert.Equal(t, first, refreshed.Value)
	assert.Equal(t, int(config.Defaults().State.TTL.Seconds()), refreshed.MaxAge)
}

func TestSelectForm_RedirectsWithFlash(t *testing.T) {
	b := newTestServer(t, nil).browser(t)

	rec := b.do(nethttp.MethodPost, "/checkout/payment-method", "id=invoice-payment")
	require.Equal(t, nethttp.StatusSeeOther, rec.Code)
	assert.Equal(t, "/checkout", rec.Header().Get("Location"))

	page := b.do(nethttp.MethodGet, "/checkout", "")
	assert.Contains(t, page.Body.String(), "Pay later selected.")
	assert.Contains(t, page.Body.String(), `value="invoice-payment" checked`)

	again := b.do(nethttp.MethodGet, "/checkout", "")
	assert.NotContains(t, again.Body.String(), "Pay later selected.", "flash is shown once")
}

func TestInit(t *testing.T) {
	b := newTestServer(t, nil).browser(t)

	rec := b.do(nethttp.MethodPost, "/api/checkout/init", initBody)
	require.Equal(t, nethttp.StatusCreated, rec.Code, rec.Body.String())
	res := decode[map[string]any](t, rec)
	assert.Equal(t, "NOK", res["currency"])
	assert.Equal(t, "nb-NO", res["locale"])
	assert.Equal(t, "125", res["order"].(map[string]any)["id"])
	assert.Contains(t, res["html"], `<iframe id="zo-checkout-iframe"`)

	rec = b.do(nethttp.MethodPost, "/api/checkout/init", `{"order":{}}`)
	require.Equal(t, nethttp.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_orderid", decode[map[string]any](t, rec)["code"])

	rec = b.do(nethttp.MethodPost, "/api/checkout/init", `not json`)
	require.Equal(t, nethttp.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_orderid", decode[map[string]any](t, rec)["code"])
}

func TestOrder(t *testing.T) {
	b := newTestServer(t, nil).browser(t)

	rec := b.do(nethttp.MethodPost, "/api/checkout/order", `{"order_id":125,"total_amount":3751250,"total_vat":750250,"currency":"NOK",
		"customer":{"id":7,"first_name":"Ola","email":"ola@example.no"},"callback_url":"https://shop.example.no/done"}`)
	require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())

	res := decode[map[string]string](t, rec)
	assert.NotEmpty(t, res["order_id"])
	assert.Contains(t, res["checkout_uri"], "bambora_token=mock_")

	st := decode[checkoutstate.State](t, b.do(nethttp.MethodGet, "/api/checkout/state", ""))
	require.NotNil(t, st.Customer)
	assert.Equal(t, "7", st.Customer.ID)

	rec = b.do(nethttp.MethodPost, "/api/checkout/order", `{"order_id":125,"currency":"NOK","callback_url":"not a url"}`)
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)
}

func TestCallback(t *testing.T) {
	b := newTestServer(t, nil).browser(t)
	cb := base64.URLEncoding.EncodeToString([]byte("https://shop.example.no/done?ref=abc"))

	rec := b.do(nethttp.MethodGet, "/api/checkout/order/callback/accept?order_id=125&txnid=42&zo_cb="+cb, "")
	require.Equal(t, nethttp.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "shop.example.no", loc.Host)
	assert.Equal(t, "abc", loc.Query().Get("ref"))
	assert.Equal(t, "125", loc.Query().Get("zo_order_id"))
	assert.Equal(t, "ok", loc.Query().Get("zo_status"))
	assert.Equal(t, "42", loc.Query().Get("txnid"))

	rec = b.do(nethttp.MethodGet, "/api/checkout/order/callback/cancel?order_id=125&zo_cb="+cb, "")
	require.Equal(t, nethttp.StatusFound, rec.Code)
	loc, _ = url.Parse(rec.Header().Get("Location"))
	assert.Equal(t, "fail", loc.Query().Get("zo_status"))
	assert.False(t, loc.Query().Has("txnid"))

	rec = b.do(nethttp.MethodGet, "/api/checkout/order/callback/accept?order_id=125", "")
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)

	rec = b.do(nethttp.MethodGet, "/api/checkout/order/callback/accept?order_id=125&zo_cb=%25%25", "")
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)
}

func TestHealthzAndNotFound(t *testing.T) {
	b := newTestServer(t, nil).browser(t)

	rec := b.do(nethttp.MethodGet, "/healthz", "")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]any](t, rec)["status"])
	assert.NotContains(t, b.cookies, "zo_checkout", "health checks do not open checkout sessions")

	rec = b.do(nethttp.MethodGet, "/api/nope", "")
	assert.Equal(t, nethttp.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[map[string]any](t, rec)["code"])

	rec = b.do(nethttp.MethodGet, "/nope", "")
	assert.Equal(t, nethttp.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Page not found.")
}

func TestMockFrameServesEmbeddedForm(t *testing.T) {
	b := newTestServer(t, nil).browser(t)

	rec := b.do(nethttp.MethodPost, "/api/checkout/card/session", initBody)
	require.Equal(t, nethttp.StatusCreated, rec.Code)
	res := decode[struct {
		Token string `json:"token"`
	}](t, rec)

	frame, err := url.Parse(config.Defaults().Checkout.FrameURL)
	require.NoError(t, err)
	rec = b.do(nethttp.MethodGet, frame.Path+"?bambora_token="+res.Token, "")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<code>"+res.Token+"</code>")

	rec = b.do(nethttp.MethodGet, frame.Path+"?bambora_token=real-token", "")
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)
}

func TestMockFrameOnlyWithMockGateway(t *testing.T) {
	b := newTestServer(t, failingGateway{}).browser(t)

	rec := b.do(nethttp.MethodGet, "/checkout-frame?bambora_token=mock_x", "")
	assert.Equal(t, nethttp.StatusNotFound, rec.Code)
}
