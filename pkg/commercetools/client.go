package commercetools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	pkgerrors "github.com/angelmondragon/ctp-segment-connector/pkg/errors"
)

const (
	defaultTimeout              = 10 * time.Second
	responseBodyReadLimit int64 = 1024
	discountCodeExpansion       = "discountCodes[*].discountCode"
)

var (
	errProjectKeyRequired = errors.New("commercetools project key is required")
	errAPIURLRequired     = errors.New("commercetools api url is required")
)

// Credentials identifies the API client used to talk to a commercetools project.
type Credentials struct {
	ClientID     string
	ClientSecret string
	ProjectKey   string
	AuthURL      string
	APIURL       string
	Scopes       []string
	Timeout      time.Duration
}

// Client is a minimal commercetools HTTP API client covering orders, customers and subscriptions.
type Client struct {
	httpClient *http.Client
	apiURL     string
	projectKey string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient replaces the OAuth2 client, mainly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds a client that authenticates with the client credentials grant.
func NewClient(ctx context.Context, creds Credentials, opts ...Option) (*Client, error) {
	projectKey := strings.TrimSpace(creds.ProjectKey)
	if projectKey == "" {
		return nil, errProjectKeyRequired
	}
	apiURL := strings.TrimRight(strings.TrimSpace(creds.APIURL), "/")
	if apiURL == "" {
		return nil, errAPIURLRequired
	}
	timeout := creds.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &Client{apiURL: apiURL, projectKey: projectKey}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		conf := clientcredentials.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			TokenURL:     strings.TrimRight(creds.AuthURL, "/") + "/oauth/token",
			Scopes:       creds.Scopes,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: timeout})
		httpClient := conf.Client(tokenCtx)
		httpClient.Timeout = timeout
		client.httpClient = httpClient
	}

	return client, nil
}

// GetOrder fetches an order with its discount code references expanded.
func (c *Client) GetOrder(ctx context.Context, id string) (*Order, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	query := url.Values{"expand": []string{discountCodeExpansion}}

	var order Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(id), query, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}

	var customer Customer
	if err := c.do(ctx, http.MethodGet, "/customers/"+url.PathEscape(id), nil, nil, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// FindCustomerByEmail returns the first registered customer with the email, or nil when none exists.
func (c *Client) FindCustomerByEmail(ctx context.Context, email string) (*Customer, error) {
	trimmed := strings.TrimSpace(email)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	query := url.Values{
		"where": []string{"email = " + strconv.Quote(trimmed)},
		"limit": []string{"1"},
	}

	var page CustomerPagedQueryResponse
	if err := c.do(ctx, http.MethodGet, "/customers", query, nil, &page); err != nil {
		return nil, err
	}
	if len(page.Results) == 0 {
		return nil, nil
	}
	customer := page.Results[0]
	return &customer, nil
}

// GetSubscriptionByKey returns nil when no subscription has the key.
func (c *Client) GetSubscriptionByKey(ctx context.Context, key string) (*Subscription, error) {
	var sub Subscription
	err := c.do(ctx, http.MethodGet, "/subscriptions/key="+url.PathEscape(key), nil, nil, &sub)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (c *Client) CreateSubscription(ctx context.Context, draft SubscriptionDraft) (*Subscription, error) {
	var sub Subscription
	if err := c.do(ctx, http.MethodPost, "/subscriptions", nil, draft, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (c *Client) DeleteSubscription(ctx context.Context, key string, version int64) error {
	query := url.Values{"version": []string{strconv.FormatInt(version, 10)}}
	return c.do(ctx, http.MethodDelete, "/subscriptions/key="+url.PathEscape(key), query, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	if c == nil || c.httpClient == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "commercetools client not configured")
	}

	endpoint := fmt.Sprintf("%s/%s%s", c.apiURL, c.projectKey, path)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal commercetools request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build commercetools request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute commercetools request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		cause := fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
		return pkgerrors.Wrap(codeForStatus(resp.StatusCode), cause, "commercetools request failed")
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode commercetools response")
	}
	return nil
}

func codeForStatus(status int) pkgerrors.Code {
	switch {
	case status == http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case status == http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case status >= 500:
		return pkgerrors.CodeDependency
	default:
		return pkgerrors.CodeValidation
	}
}
