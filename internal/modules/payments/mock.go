package payments

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// MockProvider issues local tokens without contacting any gateway.
type MockProvider struct {
	BaseURL string
}

func NewMockProvider(baseURL string) *MockProvider {
	return &MockProvider{BaseURL: strings.TrimRight(baseURL, "/")}
}

func (p *MockProvider) Name() string { return "mock" }

func (p *MockProvider) CreateSession(ctx context.Context, req SessionRequest) (SessionResponse, error) {
	if err := ctx.Err(); err != nil {
		return SessionResponse{}, err
	}
	if req.OrderID == "" || req.Currency == "" {
		return SessionResponse{}, ErrInvalidRequest
	}
	token := "mock_" + uuid.NewString()
	return SessionResponse{
		Token: token,
		URL:   p.BaseURL + "/checkout-frame?bambora_token=" + token,
	}, nil
}
