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

	pkgerrors "github.com/angelmondragon/ctp-segment-connector/pkg/errors"
)

const (
	DefaultPublicAPIHost = "https://api.segmentapis.com"

	RegulationSuppressWithDelete = "SUPPRESS_WITH_DELETE"
	SubjectTypeUserID            = "USER_ID"
)

var errPublicAPITokenRequired = errors.New("segment public api token is required")

// RegulationsClient talks to the workspace regulations endpoint of the Segment public API.
type RegulationsClient struct {
	httpClient *http.Client
	host       string
	token      string
}

type RegulationOption func(*RegulationsClient)

func WithRegulationsHTTPClient(client *http.Client) RegulationOption {
	return func(c *RegulationsClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithPublicAPIHost(host string) RegulationOption {
	return func(c *RegulationsClient) {
		trimmed := strings.TrimRight(strings.TrimSpace(host), "/")
		if trimmed != "" {
			c.host = trimmed
		}
	}
}

func NewRegulationsClient(token string, opts ...RegulationOption) (*RegulationsClient, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, errPublicAPITokenRequired
	}

	client := &RegulationsClient{
		token:      trimmed,
		host:       DefaultPublicAPIHost,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

type regulationRequest struct {
	RegulationType string   `json:"regulationType"`
	SubjectType    string   `json:"subjectType"`
	SubjectIDs     []string `json:"subjectIds"`
}

type regulationResponse struct {
	Data struct {
		RegulateID string `json:"regulateId"`
	} `json:"data"`
}

// DeleteUser requests suppression and deletion of every record for userID. It returns the regulate id.
func (c *RegulationsClient) DeleteUser(ctx context.Context, userID string) (string, error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "segment regulations client not configured")
	}
	trimmed := strings.TrimSpace(userID)
	if trimmed == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	payload, err := json.Marshal(regulationRequest{
		RegulationType: RegulationSuppressWithDelete,
		SubjectType:    SubjectTypeUserID,
		SubjectIDs:     []string{trimmed},
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal regulation request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/regulations", bytes.NewReader(payload))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build regulation request")
	}
	req.Header.Set("Content-Type", "application/vnd.segment.v1+json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute regulation request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		apiErr := &APIError{Call: "regulations", StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
		return "", pkgerrors.Wrap(codeForStatus(resp.StatusCode), apiErr, fmt.Sprintf("delete user %s rejected", trimmed))
	}

	var out regulationResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode regulation response")
	}
	return out.Data.RegulateID, nil
}
