// Package xapi provides a client for the PBX XAPI
package xapi

import (
	"crypto/tls"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/mhorvat/xapiport/internal/common"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second

	tokenPath   = "/connect/token"
	swaggerPath = "/xapi/v1/swagger.yaml"
)

// Client implements the XAPIClient interface
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       *common.Logger
	limiter      *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit. Non-positive values fall back to the
// default; a zero-rate limiter would block every request forever.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			requestsPerSecond = DefaultRateLimit
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithInsecureTLS disables certificate verification. Needed for PBX hosts
// running self-signed certificates; never use against production.
func WithInsecureTLS() ClientOption {
	return func(c *Client) {
		c.httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
}

// NewClient creates a new XAPI client
func NewClient(baseURL, clientID, clientSecret string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient.Transport != nil {
		c.logger.Warn().Msg("TLS certificate verification disabled (insecure - for testing only)")
	}

	return c
}
