// Package segment delivers identify and track calls to the Segment HTTP tracking API.
package segment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	pkgerrors "github.com/angelmondragon/ctp-segment-connector/pkg/errors"
)

const (
	DefaultHost                 = "https://api.segment.io"
	defaultMaxRetries           = 3
	defaultBackoff              = 250 * time.Millisecond
	defaultMaximumBackoff       = 2 * time.Second
	responseBodyReadLimit int64 = 1024

	CallIdentify = "identify"
	CallTrack    = "track"
)

var errWriteKeyRequired = errors.New("segment source write key is required")

// RetryPolicy controls retries of transient delivery failures.
type RetryPolicy struct {
	MaxRetries     uint64
	InitialBackoff time.Duration
	MaximumBackoff time.Duration
}

// APIError is returned when Segment answers with a non-2xx status.
type APIError struct {
	Call       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("segment %s: status %d: %s", e.Call, e.StatusCode, e.Body)
}

type Client struct {
	httpClient *http.Client
	host       string
	writeKey   string
	retry      RetryPolicy
}

// Option configures optional client behavior.
type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithHost overrides the tracking API host, e.g. for the EU workspace endpoint.
func WithHost(host string) Option {
	return func(c *Client) {
		trimmed := strings.TrimRight(strings.TrimSpace(host), "/")
		if trimmed != "" {
			c.host = trimmed
		}
	}
}

func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) {
		c.retry = policy
	}
}

func NewClient(writeKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(writeKey)
	if trimmedKey == "" {
		return nil, errWriteKeyRequired
	}

	client := &Client{
		writeKey:   trimmedKey,
		host:       DefaultHost,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry: RetryPolicy{
			MaxRetries:     defaultMaxRetries,
			InitialBackoff: defaultBackoff,
			MaximumBackoff: defaultMaximumBackoff,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.retry.InitialBackoff <= 0 {
		client.retry.InitialBackoff = defaultBackoff
	}
	if client.retry.MaximumBackoff < client.retry.InitialBackoff {
		client.retry.MaximumBackoff = client.retry.InitialBackoff
	}

	return client, nil
}

// Identify sends a payload that marshals to a Segment identify call.
func (c *Client) Identify(ctx context.Context, payload any) error {
	return c.send(ctx, CallIdentify, payload)
}

// Track sends a payload that marshals to a Segment track call.
func (c *Client) Track(ctx context.Context, payload any) error {
	return c.send(ctx, CallTrack, payload)
}

func (c *Client) send(ctx context.Context, call string, payload any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "segment client not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal segment "+call)
	}

	backoff := retry.NewExponential(c.retry.InitialBackoff)
	backoff = retry.WithCappedDuration(c.retry.MaximumBackoff, backoff)
	backoff = retry.WithMaxRetries(c.retry.MaxRetries, backoff)

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.post(ctx, call, body)
		if err != nil && isRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return pkgerrors.Wrap(codeForStatus(apiErr.StatusCode), err, "segment "+call+" rejected")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "segment "+call+" failed")
}

func (c *Client) post(ctx context.Context, call string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/v1/"+call, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.writeKey, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return &APIError{Call: call, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return isRetryableHTTPCode(apiErr.StatusCode)
	}
	// transport failure
	return true
}

func isRetryableHTTPCode(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusRequestTimeout,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func codeForStatus(status int) pkgerrors.Code {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return pkgerrors.CodeUnauthorized
	case status == http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case isRetryableHTTPCode(status):
		return pkgerrors.CodeDependency
	default:
		return pkgerrors.CodeValidation
	}
}
