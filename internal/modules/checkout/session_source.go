package checkout

import (
	"context"

	"zocheckout.com/app/internal/modules/payments"
)

// Session is a hosted-payment-form session issued by the gateway backend.
type Session struct {
	Token string `json:"token"`
	URL   string `json:"url,omitempty"`
}

type SessionSource interface {
	CreateSession(ctx context.Context) (Session, error)
}

type SessionSourceFunc func(ctx context.Context) (Session, error)

func (f SessionSourceFunc) CreateSession(ctx context.Context) (Session, error) { return f(ctx) }

// GatewaySessionSource creates the session for req at provider p.
func GatewaySessionSource(p payments.Provider, req payments.SessionRequest) SessionSource {
	return SessionSourceFunc(func(ctx context.Context) (Session, error) {
		res, err := p.CreateSession(ctx, req)
		if err != nil {
			return Session{}, err
		}
		return Session{Token: res.Token, URL: res.URL}, nil
	})
}
