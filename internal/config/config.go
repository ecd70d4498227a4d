package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config is read in three layers: built-in defaults, an optional yaml file
// and finally environment variables (a .env file is loaded first if present).
type Config struct {
	Server struct {
		Port              string        `yaml:"port" envconfig:"PORT"`
		ConnectionTimeout time.Duration `yaml:"connectionTimeout" envconfig:"CONN_TIMEOUT"`
		BaseURL           string        `yaml:"baseURL" envconfig:"BASE_URL"`
	} `yaml:"server"`

	Cookies struct {
		Secret string `yaml:"secret" envconfig:"COOKIE_SECRET"`
		Secure bool   `yaml:"secure" envconfig:"COOKIE_SECURE"`
	} `yaml:"cookies"`

	State struct {
		Driver        string        `yaml:"driver" envconfig:"CHECKOUT_STATE_DRIVER"`
		TTL           time.Duration `yaml:"ttl" envconfig:"CHECKOUT_STATE_TTL"`
		RedisAddr     string        `yaml:"redisAddr" envconfig:"REDIS_ADDR"`
		RedisPassword string        `yaml:"redisPassword" envconfig:"REDIS_PASSWORD"`
		RedisDB       int           `yaml:"redisDB" envconfig:"REDIS_DB"`
		MySQLDSN      string        `yaml:"mysqlDSN" envconfig:"DB_DSN"`
	} `yaml:"state"`

	Gateway struct {
		Provider       string        `yaml:"provider" envconfig:"GATEWAY_PROVIDER"`
		BaseURL        string        `yaml:"baseURL" envconfig:"GATEWAY_BASE_URL"`
		AccessToken    string        `yaml:"accessToken" envconfig:"GATEWAY_ACCESS_TOKEN"`
		MerchantNumber string        `yaml:"merchantNumber" envconfig:"GATEWAY_MERCHANT_NUMBER"`
		SecretToken    string        `yaml:"secretToken" envconfig:"GATEWAY_SECRET_TOKEN"`
		Timeout        time.Duration `yaml:"timeout" envconfig:"GATEWAY_TIMEOUT"`

		BreakerMaxFailures uint32        `yaml:"breakerMaxFailures" envconfig:"GATEWAY_BREAKER_MAX_FAILURES"`
		BreakerOpenFor     time.Duration `yaml:"breakerOpenFor" envconfig:"GATEWAY_BREAKER_OPEN_FOR"`
	} `yaml:"gateway"`

	Checkout struct {
		ContainerID string `yaml:"containerID" envconfig:"CHECKOUT_CONTAINER_ID"`
		FrameURL    string `yaml:"frameURL" envconfig:"CHECKOUT_FRAME_URL"`
		FrameHeight int    `yaml:"frameHeight" envconfig:"CHECKOUT_FRAME_HEIGHT"`
	} `yaml:"checkout"`
}

func Defaults() Config {
	var cfg Config
	cfg.Server.Port = "8080"
	cfg.Server.ConnectionTimeout = 15 * time.Second
	cfg.Server.BaseURL = "http://localhost:8080"

	cfg.Cookies.Secret = "dev-insecure-secret"

	cfg.State.Driver = "memory"
	cfg.State.TTL = 2 * time.Hour
	cfg.State.RedisAddr = "localhost:6379"

	cfg.Gateway.Provider = "mock"
	cfg.Gateway.BaseURL = "https://api.v1.checkout.bambora.com"
	cfg.Gateway.Timeout = 10 * time.Second
	cfg.Gateway.BreakerMaxFailures = 5
	cfg.Gateway.BreakerOpenFor = 30 * time.Second

	cfg.Checkout.ContainerID = "zo-cc-container"
	cfg.Checkout.FrameURL = "http://localhost:8080/checkout-frame"
	cfg.Checkout.FrameHeight = 700
	return cfg
}

// Load builds the configuration. path may be empty.
func Load(path string) (Config, error) {
	// .env is optional; production uses real env vars
	_ = godotenv.Load()

	cfg := Defaults()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, err
		}
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return Config{}, err
		}
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
