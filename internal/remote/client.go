// Package remote talks to the normal-mode server over its JSON API. It
// exports a user's content graph and accepts content created during a
// migration back to normal mode.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperr "github.com/memoraapp/memora/internal/errors"
	"github.com/memoraapp/memora/internal/logger"
	"github.com/memoraapp/memora/internal/ratelimit"
)

const (
	defaultTimeout = 30 * time.Second
	defaultRPS     = 20.0
	defaultBurst   = 10

	apiPrefix  = "/api/v1/"
	userHeader = "X-User-ID"
	userAgent  = "Memora/1.0"

	// maxBody bounds a single response body.
	maxBody = 256 << 20
)

// RejectedError is a well-formed response whose envelope code is not a
// success code. It matches apperr.ErrRemoteRejected.
type RejectedError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("remote %s %s: code %d: %s", e.Method, e.Path, e.Code, e.Message)
}

// Is matches the remote-rejected domain error.
func (e *RejectedError) Is(target error) bool {
	return target == apperr.ErrRemoteRejected
}

// Envelope is the response wrapper used by every endpoint.
type Envelope[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// OK reports whether the envelope carries a success code.
func (e *Envelope[T]) OK() bool {
	return e.Code == http.StatusOK
}

// Config configures a Client.
type Config struct {
	BaseURL   string
	UserID    string
	Timeout   time.Duration
	RateLimit float64
	Burst     int
	Breaker   BreakerConfig
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Client is a rate-limited, circuit-broken client for the normal-mode API.
type Client struct {
	base    *url.URL
	userID  string
	http    *http.Client
	limiter *ratelimit.KeyedRateLimiter
	breaker *breaker
	logger  *slog.Logger
}

// New creates a client for the server at cfg.BaseURL.
func New(cfg Config, log *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, apperr.Validationf("invalid remote base url %q", cfg.BaseURL)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	rps, burst := cfg.RateLimit, cfg.Burst
	if rps == 0 {
		rps = defaultRPS
	}
	if burst == 0 {
		burst = defaultBurst
	}

	log = logger.OrDiscard(log)
	return &Client{
		base:    base,
		userID:  cfg.UserID,
		http:    hc,
		limiter: ratelimit.New(rps, burst),
		breaker: newBreaker("remote:"+base.Host, cfg.Breaker, log),
		logger:  log,
	}, nil
}

// Close releases resources held by the client.
func (c *Client) Close() error {
	c.limiter.Stop()
	return nil
}

// BreakerState returns the circuit breaker state: closed, open or half-open.
func (c *Client) BreakerState() string {
	return c.breaker.state()
}

// do sends one request and returns the envelope's data. Envelopes with a
// non-success code yield a *RejectedError; transport failures match
// apperr.ErrRemoteUnavailable.
func (c *Client) do(ctx context.Context, method, path string, in any) (json.RawMessage, error) {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return nil, fmt.Errorf("encode %s: %w", path, err)
		}
	}

	if err := c.limiter.Wait(ctx, c.base.Host); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := c.breaker.execute(ctx, func() ([]byte, error) {
		return c.roundTrip(ctx, method, path, payload)
	})
	if err != nil {
		var rej *RejectedError
		if errors.As(err, &rej) {
			return nil, err
		}
		return nil, apperr.Wrapf(err, apperr.CodeRemoteUnavailable, "%s %s", method, path)
	}

	var env Envelope[json.RawMessage]
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, apperr.Wrapf(err, apperr.CodeRemoteUnavailable, "%s %s: malformed envelope", method, path)
	}
	return env.Data, nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	p, query, _ := strings.Cut(path, "?")
	u := c.base.JoinPath(apiPrefix + strings.TrimPrefix(p, "/"))
	u.RawQuery = query

	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userID != "" {
		req.Header.Set(userHeader, c.userID)
	}

	c.logger.Debug("remote request", "method", method, "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("server error: status %d", resp.StatusCode)
	}

	var head struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &head); err != nil {
		return nil, fmt.Errorf("decode envelope (status %d): %w", resp.StatusCode, err)
	}
	if head.Code != http.StatusOK && head.Code != http.StatusCreated {
		return nil, &RejectedError{Method: method, Path: path, Code: head.Code, Message: head.Message}
	}
	return body, nil
}

// get fetches path and decodes the envelope data into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return decodeData(path, data, out)
}

// post sends in to path and decodes the envelope data into out, if non-nil.
func (c *Client) post(ctx context.Context, path string, in, out any) error {
	data, err := c.do(ctx, http.MethodPost, path, in)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return decodeData(path, data, out)
}

func decodeData(path string, data json.RawMessage, out any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
