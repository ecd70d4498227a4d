package payments

import (
	"errors"
	"fmt"
)

var (
	ErrMissingToken   = errors.New("gateway response missing token")
	ErrGatewayStatus  = errors.New("gateway returned non-success status")
	ErrGatewayOpen    = errors.New("gateway circuit open")
	ErrInvalidRequest = errors.New("invalid session request")
)

// GatewayError is a rejection reported by the gateway in its meta block.
type GatewayError struct {
	EndUser  string // safe to show the customer
	Merchant string
}

func (e *GatewayError) Error() string {
	if e.Merchant != "" {
		return fmt.Sprintf("gateway rejected session: %s", e.Merchant)
	}
	return "gateway rejected session"
}
