package payments

import (
	"fmt"
	"log/slog"

	"zocheckout.com/app/internal/config"
)

// FromConfig builds the configured gateway provider wrapped in a circuit breaker.
func FromConfig(cfg config.Config, logger *slog.Logger) (Provider, error) {
	var p Provider
	switch cfg.Gateway.Provider {
	case "", "mock":
		p = NewMockProvider(cfg.Server.BaseURL)
	case "hosted":
		if cfg.Gateway.AccessToken == "" || cfg.Gateway.MerchantNumber == "" || cfg.Gateway.SecretToken == "" {
			return nil, fmt.Errorf("gateway config missing: GATEWAY_ACCESS_TOKEN, GATEWAY_MERCHANT_NUMBER, GATEWAY_SECRET_TOKEN required")
		}
		p = NewHostedProvider(HostedConfig{
			BaseURL:        cfg.Gateway.BaseURL,
			AccessToken:    cfg.Gateway.AccessToken,
			MerchantNumber: cfg.Gateway.MerchantNumber,
			SecretToken:    cfg.Gateway.SecretToken,
			Timeout:        cfg.Gateway.Timeout,
		}, nil)
	default:
		return nil, fmt.Errorf("unknown GATEWAY_PROVIDER: %s", cfg.Gateway.Provider)
	}

	return NewBreakerProvider(p, BreakerConfig{
		MaxFailures: cfg.Gateway.BreakerMaxFailures,
		OpenFor:     cfg.Gateway.BreakerOpenFor,
	}, logger), nil
}
