package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/ctp-segment-connector/internal/analytics/types"
	"github.com/angelmondragon/ctp-segment-connector/internal/analytics/worker"
	"github.com/angelmondragon/ctp-segment-connector/pkg/config"
	pkgerrors "github.com/angelmondragon/ctp-segment-connector/pkg/errors"
	"github.com/angelmondragon/ctp-segment-connector/pkg/logger"
	"github.com/angelmondragon/ctp-segment-connector/pkg/metrics"
)

// base64 of {"notificationType":"ResourceCreated","resource":{"typeId":"order","id":"o-1"}}
const pushBody = `{"message":{"data":"eyJub3RpZmljYXRpb25UeXBlIjoiUmVzb3VyY2VDcmVhdGVkIiwicmVzb3VyY2UiOnsidHlwZUlkIjoib3JkZXIiLCJpZCI6Im8tMSJ9fQ==","messageId":"m-1"},"subscription":"projects/demo/subscriptions/ctp"}`

type stubProcessor struct {
	result    worker.Result
	data      string
	messageID string
}

func (s *stubProcessor) Process(ctx context.Context, data []byte, messageID string) worker.Result {
	s.data = string(data)
	s.messageID = messageID
	return s.result
}

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "controllers-test", Output: io.Discard})
}

func servePush(t *testing.T, processor NotificationProcessor, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	PubSubPush(processor, testLogger()).ServeHTTP(rec, req)
	return rec
}

func TestPubSubPushHandled(t *testing.T) {
	processor := &stubProcessor{result: worker.Result{Outcome: metrics.OutcomeHandled}}

	rec := servePush(t, processor, pushBody)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, `{"notificationType":"ResourceCreated","resource":{"typeId":"order","id":"o-1"}}`, processor.data)
	assert.Equal(t, "m-1", processor.messageID)
}

func TestPubSubPushIgnoredAcks(t *testing.T) {
	processor := &stubProcessor{result: worker.Result{Outcome: metrics.OutcomeIgnored}}
	assert.Equal(t, http.StatusNoContent, servePush(t, processor, pushBody).Code)
}

func TestPubSubPushMalformedEnvelope(t *testing.T) {
	processor := &stubProcessor{}

	assert.Equal(t, http.StatusBadRequest, servePush(t, processor, `{"message":{}}`).Code)
	assert.Equal(t, http.StatusBadRequest, servePush(t, processor, `not json`).Code)
	assert.Empty(t, processor.messageID)
}

func TestPubSubPushRetryableFailureStatuses(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"dependency", pkgerrors.New(pkgerrors.CodeDependency, "segment unavailable"), http.StatusServiceUnavailable},
		{"rate limit", pkgerrors.New(pkgerrors.CodeRateLimit, "slow down"), http.StatusTooManyRequests},
		{"untyped", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			processor := &stubProcessor{result: worker.Result{Outcome: metrics.OutcomeFailed, Retry: true, Err: tc.err}}
			assert.Equal(t, tc.want, servePush(t, processor, pushBody).Code)
		})
	}
}

func TestPubSubPushDroppedFailuresAck(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"invalid notification", pkgerrors.New(pkgerrors.CodeValidation, "invalid notification")},
		{"data integrity", pkgerrors.New(pkgerrors.CodeDataIntegrity, "order o-1 is missing taxedPrice")},
		{"untyped", errors.New("boom")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			processor := &stubProcessor{result: worker.Result{Outcome: metrics.OutcomeFailed, Err: tc.err}}
			assert.Equal(t, http.StatusNoContent, servePush(t, processor, pushBody).Code)
		})
	}
}

type countingHandler struct {
	calls int
}

func (h *countingHandler) Handle(context.Context, types.Notification) error {
	h.calls++
	return nil
}

func TestPubSubPushInvalidNotificationAcksOnRedelivery(t *testing.T) {
	handler := &countingHandler{}
	processor, err := worker.NewProcessor(worker.ProcessorParams{Handler: handler, Logger: testLogger()})
	require.NoError(t, err)

	// base64 of {"notificationType":"ResourceCreated"}
	body := `{"message":{"data":"eyJub3RpZmljYXRpb25UeXBlIjoiUmVzb3VyY2VDcmVhdGVkIn0=","messageId":"m-2"}}`
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, servePush(t, processor, body).Code)
	}
	assert.Zero(t, handler.calls)
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}

	rec := httptest.NewRecorder()
	HealthReady(cfg, testLogger(), map[string]Pinger{"redis": stubPinger{}, "disabled": nil}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"up"`)
	assert.NotContains(t, rec.Body.String(), "disabled")
	assert.Equal(t, "dev", rec.Header().Get(envHeader))

	rec = httptest.NewRecorder()
	HealthReady(cfg, testLogger(), map[string]Pinger{"redis": stubPinger{err: errors.New("refused")}}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"down"`)
}
