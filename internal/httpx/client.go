package httpx

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// ShouldRetry reports whether an attempt is worth repeating: network errors,
// 5xx and 429 are.
func ShouldRetry(resp *http.Response, err error) bool {
	if err != nil || resp == nil {
		return true
	}
	switch resp.StatusCode {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

type Config struct {
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func DefaultConfig() Config {
	return Config{
		Timeout:    60 * time.Second,
		MaxRetries: 3,
		BaseDelay:  200 * time.Millisecond,
		MaxDelay:   5 * time.Second,
	}
}

func (c Config) normalize() Config {
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 200 * time.Millisecond
	}
	if c.MaxDelay < c.BaseDelay {
		c.MaxDelay = c.BaseDelay
	}
	return c
}

// Client is an http.Client whose requests go through a retry policy. Every
// outbound provider call (keywords, image fetch, image generation) uses one.
type Client struct {
	http     *http.Client
	executor failsafe.Executor[*http.Response]
}

func New(cfg Config) *Client {
	cfg = cfg.normalize()
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &Client{
		http:     &http.Client{Timeout: cfg.Timeout, Transport: transport},
		executor: failsafe.With(NewRetryPolicy(cfg)),
	}
}

// NewRetryPolicy builds the jittered backoff policy shared by all clients.
//
//nolint:bodyclose // *http.Response is a type parameter here
func NewRetryPolicy(cfg Config) retrypolicy.RetryPolicy[*http.Response] {
	cfg = cfg.normalize()
	return retrypolicy.NewBuilder[*http.Response]().
		WithBackoff(cfg.BaseDelay, cfg.MaxDelay).
		WithMaxRetries(cfg.MaxRetries).
		WithJitterFactor(0.1).
		HandleIf(ShouldRetry).
		Build()
}

// HTTP exposes the underlying client for SDKs that take one.
func (c *Client) HTTP() *http.Client { return c.http }

// Do builds a fresh request per attempt and executes it. A response that is
// still retryable after the last attempt is returned as an error with its
// body closed.
func (c *Client) Do(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	resp, err := c.executor.WithContext(ctx).Get(func() (*http.Response, error) {
		req, err := build(ctx)
		if err != nil {
			return nil, err
		}
		resp, err := c.http.Do(req)
		if err == nil && ShouldRetry(resp, nil) {
			discard(resp)
		}
		return resp, err
	})
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("http request: %w", err)
	}
	return resp, nil
}

// discard drains and closes a response the retry policy will throw away, so
// its connection goes back to the idle pool.
func discard(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
	resp.Body = http.NoBody
}
