package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// StateWriter is the part of the checkout state the coordinator writes to.
type StateWriter interface {
	AddCardPaymentMethod(ctx context.Context, token string) error
}

type CardPaymentInput struct {
	Source      SessionSource
	State       StateWriter
	Document    Document
	ContainerID string
}

type Result struct {
	Token   string
	Mounted bool
	Err     error
}

const (
	OutcomeMounted         = "mounted"
	OutcomeSessionFailed   = "session_failed"
	OutcomeMissingTarget   = "missing_target"
	OutcomeMountFailed     = "mount_failed"
	OutcomeStateWriteError = "state_error"
)

type Options struct {
	// SessionTimeout bounds the session endpoint call. Zero means 10s.
	SessionTimeout time.Duration
	// OnAuthorize handlers are registered on every mounted widget.
	OnAuthorize []EventHandler
	OnCancel    []EventHandler
	// OnOutcome observes every finished initialization (metrics).
	OnOutcome func(outcome string)
	// MountedTTL is how long a mounted widget stays reachable for Dispatch.
	MountedTTL time.Duration
}

// Coordinator creates hosted payment sessions, registers the card payment
// method and mounts the payment form. Failures are logged and returned, never
// panicked, so the checkout page stays usable on the pay-later path.
type Coordinator struct {
	widgets WidgetFactory
	opts    Options
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	mounted map[string]mountedWidget
}

type mountedWidget struct {
	widget Widget
	at     time.Time
}

func NewCoordinator(widgets WidgetFactory, logger *slog.Logger, opts Options) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.SessionTimeout <= 0 {
		opts.SessionTimeout = 10 * time.Second
	}
	if opts.MountedTTL <= 0 {
		opts.MountedTTL = 2 * time.Hour
	}
	return &Coordinator{
		widgets: widgets,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
		mounted: make(map[string]mountedWidget),
	}
}

// InitializeCardPayment runs the card payment setup once. The returned error
// wraps ErrSessionCreationFailed, ErrMissingMountTarget, ErrMountFailed or
// ErrStateUnchanged; Result carries the same error in Err.
func (c *Coordinator) InitializeCardPayment(ctx context.Context, in CardPaymentInput) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrMountFailed, r)
			res.Mounted = false
			res.Err = err
			c.report(ctx, OutcomeMountFailed, in.ContainerID, err)
		}
	}()

	session, err := c.createSession(ctx, in.Source)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
		c.report(ctx, OutcomeSessionFailed, in.ContainerID, err)
		return Result{Err: err}, err
	}
	res.Token = session.Token

	if err := in.State.AddCardPaymentMethod(ctx, session.Token); err != nil {
		err = fmt.Errorf("%w: %v", ErrStateUnchanged, err)
		c.report(ctx, OutcomeStateWriteError, in.ContainerID, err)
		res.Err = err
		return res, err
	}

	var el Element
	var found bool
	if in.Document != nil {
		el, found = in.Document.ElementByID(in.ContainerID)
	}
	if !found {
		err := fmt.Errorf("%w: #%s", ErrMissingMountTarget, in.ContainerID)
		c.report(ctx, OutcomeMissingTarget, in.ContainerID, err)
		res.Err = err
		return res, err
	}

	widget := c.widgets(session.Token, WidgetOptions{EventHandlerMap: c.handlerMap()})
	if err := widget.Mount(ctx, el); err != nil {
		err = fmt.Errorf("%w: %v", ErrMountFailed, err)
		c.report(ctx, OutcomeMountFailed, in.ContainerID, err)
		res.Err = err
		return res, err
	}

	c.track(session.Token, widget)
	res.Mounted = true
	c.report(ctx, OutcomeMounted, in.ContainerID, nil)
	return res, nil
}

// Start runs InitializeCardPayment on its own goroutine and delivers exactly
// one Result.
func (c *Coordinator) Start(ctx context.Context, in CardPaymentInput) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		res, _ := c.InitializeCardPayment(ctx, in)
		ch <- res
	}()
	return ch
}

// Dispatch delivers a gateway event to the widget mounted for token.
func (c *Coordinator) Dispatch(ctx context.Context, token string, ev Event, p EventPayload) (int, error) {
	c.mu.Lock()
	mw, ok := c.mounted[token]
	c.mu.Unlock()
	if !ok {
		return 0, ErrUnknownWidget
	}
	p.Token = token
	return mw.widget.Emit(ctx, ev, p), nil
}

func (c *Coordinator) createSession(ctx context.Context, src SessionSource) (session Session, err error) {
	if src == nil {
		return Session{}, errors.New("no session source")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("session source panic: %v", r)
		}
	}()

	sctx, cancel := context.WithTimeout(ctx, c.opts.SessionTimeout)
	defer cancel()

	session, err = src.CreateSession(sctx)
	if err != nil {
		return Session{}, err
	}
	if session.Token == "" {
		return Session{}, errors.New("response has no token")
	}
	return session, nil
}

func (c *Coordinator) handlerMap() map[Event][]EventHandler {
	m := map[Event][]EventHandler{}
	if len(c.opts.OnAuthorize) > 0 {
		m[EventAuthorize] = append([]EventHandler(nil), c.opts.OnAuthorize...)
	}
	if len(c.opts.OnCancel) > 0 {
		m[EventCancel] = append([]EventHandler(nil), c.opts.OnCancel...)
	}
	return m
}

func (c *Coordinator) track(token string, w Widget) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for tok, mw := range c.mounted {
		if now.Sub(mw.at) > c.opts.MountedTTL {
			delete(c.mounted, tok)
		}
	}
	c.mounted[token] = mountedWidget{widget: w, at: now}
}

func (c *Coordinator) report(ctx context.Context, outcome, containerID string, err error) {
	if c.opts.OnOutcome != nil {
		c.opts.OnOutcome(outcome)
	}
	if err == nil {
		c.logger.InfoContext(ctx, "card payment form mounted", "container_id", containerID)
		return
	}
	c.logger.ErrorContext(ctx, "card payment unavailable", "outcome", outcome, "container_id", containerID, "err", err)
}
