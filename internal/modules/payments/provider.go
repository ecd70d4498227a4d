package payments

import "context"

type SessionRequest struct {
	OrderID     string
	AmountCents int64
	VATCents    int64
	Currency    string

	AcceptURL string
	CancelURL string
	// 0 keeps the customer on the hosted form after payment, 1 redirects to
	// AcceptURL immediately, >1 redirects after that many seconds.
	RedirectOnAccept int
}

type SessionResponse struct {
	Token string
	URL   string // hosted payment page, for redirect-style checkouts
}

// Provider creates hosted-payment-form sessions at a payment gateway.
type Provider interface {
	Name() string
	CreateSession(ctx context.Context, req SessionRequest) (SessionResponse, error)
}
