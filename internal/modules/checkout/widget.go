package checkout

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
)

type Event string

const (
	EventAuthorize Event = "authorize"
	EventCancel    Event = "cancel"
)

type EventPayload struct {
	Token         string
	OrderID       string
	TransactionID string
	Fields        map[string]string
}

type EventHandler func(ctx context.Context, ev Event, p EventPayload)

type WidgetOptions struct {
	EventHandlerMap map[Event][]EventHandler
}

// Widget is the hosted payment form for one session token.
type Widget interface {
	Mount(ctx context.Context, el Element) error
	// Emit runs the handlers registered for ev, in order, and reports how many ran.
	Emit(ctx context.Context, ev Event, p EventPayload) int
}

type WidgetFactory func(token string, opts WidgetOptions) Widget

const iframeID = "zo-checkout-iframe"

// InlineCheckout embeds the gateway's hosted form as an iframe.
type InlineCheckout struct {
	token    string
	opts     WidgetOptions
	frameURL string
	height   int
	logger   *slog.Logger

	mu      sync.Mutex
	mounted Element
}

func NewInlineCheckoutFactory(frameURL string, height int, logger *slog.Logger) WidgetFactory {
	if logger == nil {
		logger = slog.Default()
	}
	if height <= 0 {
		height = 700
	}
	return func(token string, opts WidgetOptions) Widget {
		return &InlineCheckout{token: token, opts: opts, frameURL: frameURL, height: height, logger: logger}
	}
}

func (w *InlineCheckout) Mount(ctx context.Context, el Element) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if el == nil {
		return errors.New("nil element")
	}
	src, err := w.src()
	if err != nil {
		return err
	}

	el.SetContent(EmbedHTML(src, w.height))

	w.mu.Lock()
	w.mounted = el
	w.mu.Unlock()
	return nil
}

func (w *InlineCheckout) Emit(ctx context.Context, ev Event, p EventPayload) int {
	handlers := w.opts.EventHandlerMap[ev]
	n := 0
	for _, h := range handlers {
		if h == nil {
			continue
		}
		w.call(ctx, h, ev, p)
		n++
	}
	return n
}

// call recovers a panicking handler and logs it.
func (w *InlineCheckout) call(ctx context.Context, h EventHandler, ev Event, p EventPayload) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.ErrorContext(ctx, "payment form event handler panicked", "event", string(ev), "panic", fmt.Sprint(r))
		}
	}()
	h(ctx, ev, p)
}

func (w *InlineCheckout) src() (string, error) {
	return FrameSrc(w.frameURL, w.token)
}

// FrameSrc is the hosted form URL for token.
func FrameSrc(frameURL, token string) (string, error) {
	u, err := url.Parse(frameURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("bambora_token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// EmbedHTML is the iframe snippet a checkout page renders for the hosted form.
func EmbedHTML(src string, height int) string {
	return `<iframe id="` + iframeID + `" name="` + iframeID + `" scrolling="no" frameborder="0" style="height: ` +
		strconv.Itoa(height) + `px; width: 1px; min-width: 100%;" src="` + html.EscapeString(src) + `"></iframe>`
}
