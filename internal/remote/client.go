// Package remote implements the backend collaborator over the dashboard REST API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"dshbd-cli/internal/backend"
	"dshbd-cli/internal/logging"
)

// HTTPError is returned for non-2xx responses.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, body)
}

type Options struct {
	BaseURL string
	// Token is sent as a static bearer header when set.
	Token      string
	HTTPClient *http.Client
	// BreakerTimeout is how long the breaker stays open; 5s when zero.
	BreakerTimeout time.Duration
	Log            *logrus.Entry
}

type Client struct {
	base  *url.URL
	token string
	http  *http.Client
	cb    *gobreaker.CircuitBreaker
	log   *logrus.Entry
}

var _ backend.Backend = (*Client)(nil)

func New(opts Options) (*Client, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		return nil, errors.New("missing api url")
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}
	c := &Client{
		base:  base,
		token: strings.TrimSpace(opts.Token),
		http:  opts.HTTPClient,
		log:   opts.Log,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 15 * time.Second}
	}
	if c.log == nil {
		c.log = logging.For("remote")
	}
	timeout := opts.BreakerTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "dshbd-api",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		// Client errors are answers, not outages.
		IsSuccessful: func(err error) bool {
			var he *HTTPError
			if errors.As(err, &he) {
				return he.StatusCode < 500
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).Warn("circuit breaker state changed")
		},
	})
	return c, nil
}

// BreakerState exposes the circuit state for doctor output.
func (c *Client) BreakerState() string { return c.cb.State().String() }

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, method, path, query, in, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := c.base.ResolveReference(&url.URL{Path: path})
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	c.log.WithFields(logrus.Fields{
		"method":    method,
		"path":      path,
		"status":    resp.StatusCode,
		"requestId": reqID,
		"ms":        time.Since(start).Milliseconds(),
	}).Debug("api call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &HTTPError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// domainError maps server answers onto backend errors.
func domainError(err error, kind string, id int64) error {
	var he *HTTPError
	if !errors.As(err, &he) {
		return err
	}
	body := strings.ToLower(he.Body)
	switch {
	case strings.Contains(body, "already been completed"):
		return fmt.Errorf("%w: %v", backend.ErrTaskCompleted, err)
	case strings.Contains(body, "already been started"):
		return fmt.Errorf("%w: %v", backend.ErrTaskStarted, err)
	case strings.Contains(body, "board could not be found"):
		return fmt.Errorf("%w: %v", backend.ErrBoardNotFound, err)
	case he.StatusCode == http.StatusNotFound, strings.Contains(body, "could not be found"):
		return backend.ErrNotFound(kind, id)
	}
	return err
}
