// Package remoteconfig retrieves the storefront's page configuration. The
// configuration never blocks a page: any failure to retrieve it is replaced
// by a fixed fallback.
package remoteconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	ivalidator "github.com/tjper/storefront/internal/validator"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var (
	// ErrStatus indicates the config endpoint responded with a non-2xx status.
	ErrStatus = errors.New("unexpected config status")
	// ErrUnsuccessful indicates the config endpoint reported a failure.
	ErrUnsuccessful = errors.New("config unsuccessful")
)

// Config is the configuration of a page.
type Config struct {
	AdminEmail       string `json:"adminEmail" validate:"omitempty,email"`
	Currency         string `json:"currency" validate:"omitempty,currency"`
	PaymentPublicKey string `json:"paymentPublicKey"`
	StoreName        string `json:"storeName"`
}

// Fallback is the configuration used when the remote configuration is
// unavailable.
func Fallback() Config {
	return Config{
		AdminEmail:       "",
		Currency:         "usd",
		PaymentPublicKey: "",
		StoreName:        "Storefront",
	}
}

// withFallback fills every empty field of c from Fallback.
func (c Config) withFallback() Config {
	fallback := Fallback()
	if c.AdminEmail == "" {
		c.AdminEmail = fallback.AdminEmail
	}
	if c.Currency == "" {
		c.Currency = fallback.Currency
	}
	if c.PaymentPublicKey == "" {
		c.PaymentPublicKey = fallback.PaymentPublicKey
	}
	if c.StoreName == "" {
		c.StoreName = fallback.StoreName
	}
	return c
}

// TokenSource produces the bearer token of a config request.
type TokenSource func() (string, error)

// Option is a function type that may configure a Client instance.
type Option func(*Client)

// WithTimeout configures the time allowed for a single fetch.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.timeout = timeout }
}

// WithCacheTTL configures how long a fetched Config is reused.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) { c.ttl = ttl }
}

// WithHTTPClient configures the http.Client of a Client instance.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.client = client }
}

// NewClient creates a Client of the config endpoint at baseURL.
func NewClient(logger *zap.Logger, baseURL string, tokens TokenSource, options ...Option) *Client {
	c := &Client{
		logger:  logger,
		url:     baseURL + "/config",
		tokens:  tokens,
		client:  http.DefaultClient,
		valid:   ivalidator.New(),
		timeout: 5 * time.Second,
		mutex:   new(sync.Mutex),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Client retrieves the remote Config.
type Client struct {
	logger  *zap.Logger
	url     string
	tokens  TokenSource
	client  *http.Client
	valid   *validator.Validate
	timeout time.Duration
	ttl     time.Duration

	mutex     *sync.Mutex
	cached    *Config
	fetchedAt time.Time
}

// Load retrieves the remote Config. Any failure results in Fallback. Empty
// fields of the remote Config are filled from Fallback.
func (c *Client) Load(ctx context.Context) Config {
	if cfg, ok := c.fromCache(); ok {
		return cfg
	}

	cfg, err := c.Fetch(ctx)
	if err != nil {
		c.logger.Warn("load remote config; using fallback", zap.Error(err))
		return Fallback()
	}

	loaded := cfg.withFallback()
	c.mutex.Lock()
	c.cached = &loaded
	c.fetchedAt = time.Now()
	c.mutex.Unlock()
	return loaded
}

// Fetch retrieves the remote Config.
func (c *Client) Fetch(ctx context.Context) (*Config, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	token, err := c.tokens()
	if err != nil {
		return nil, fmt.Errorf("config token; error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create config request; error: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch config; error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch config; status: %d, error: %w", resp.StatusCode, ErrStatus)
	}

	var body struct {
		Success bool    `json:"success"`
		Config  *Config `json:"config"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode config; error: %w", err)
	}
	if !body.Success || body.Config == nil {
		return nil, ErrUnsuccessful
	}
	if err := c.valid.Struct(body.Config); err != nil {
		return nil, fmt.Errorf("validate config; error: %w", err)
	}
	return body.Config, nil
}

func (c *Client) fromCache() (Config, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.cached == nil || c.ttl <= 0 || time.Since(c.fetchedAt) > c.ttl {
		return Config{}, false
	}
	return *c.cached, true
}
