package payments

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type HostedConfig struct {
	BaseURL        string
	AccessToken    string
	MerchantNumber string
	SecretToken    string
	Timeout        time.Duration
}

// HostedProvider talks to the hosted checkout gateway over its JSON API.
type HostedProvider struct {
	cfg    HostedConfig
	client *http.Client
}

func NewHostedProvider(cfg HostedConfig, client *http.Client) *HostedProvider {
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &HostedProvider{cfg: cfg, client: client}
}

func (p *HostedProvider) Name() string { return "hosted" }

func (p *HostedProvider) CreateSession(ctx context.Context, req SessionRequest) (SessionResponse, error) {
	if req.OrderID == "" || req.Currency == "" {
		return SessionResponse{}, ErrInvalidRequest
	}

	body, err := json.Marshal(createSessionBody{
		Order: sessionOrder{
			ID:        req.OrderID,
			Amount:    req.AmountCents,
			VATAmount: req.VATCents,
			Currency:  req.Currency,
		},
		URL: sessionURL{
			Accept:           req.AcceptURL,
			Cancel:           req.CancelURL,
			RedirectOnAccept: req.RedirectOnAccept,
		},
	})
	if err != nil {
		return SessionResponse{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/sessions", bytes.NewReader(body))
	if err != nil {
		return SessionResponse{}, err
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Basic "+p.apiKey())

	res, err := p.client.Do(httpReq)
	if err != nil {
		return SessionResponse{}, fmt.Errorf("gateway request failed: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return SessionResponse{}, fmt.Errorf("gateway read failed: %w", err)
	}

	var reply createSessionReply
	decodeErr := json.Unmarshal(raw, &reply)

	// meta carries the rejection reason on both 2xx and 4xx replies
	if decodeErr == nil && reply.Meta != nil && !reply.Meta.Result {
		return SessionResponse{}, &GatewayError{
			EndUser:  reply.Meta.Message.EndUser,
			Merchant: reply.Meta.Message.Merchant,
		}
	}
	if res.StatusCode > 299 {
		return SessionResponse{}, fmt.Errorf("%w: %d", ErrGatewayStatus, res.StatusCode)
	}
	if decodeErr != nil {
		return SessionResponse{}, fmt.Errorf("gateway decode failed: %w", decodeErr)
	}
	if reply.Token == nil || *reply.Token == "" {
		return SessionResponse{}, ErrMissingToken
	}

	out := SessionResponse{Token: *reply.Token}
	if reply.URL != nil {
		out.URL = *reply.URL
	}
	return out, nil
}

// apiKey is base64("accessToken@merchantNumber:secretToken").
func (p *HostedProvider) apiKey() string {
	key := fmt.Sprintf("%s@%s:%s", p.cfg.AccessToken, p.cfg.MerchantNumber, p.cfg.SecretToken)
	return base64.StdEncoding.EncodeToString([]byte(key))
}
