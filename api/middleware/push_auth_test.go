package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/idtoken"

	"github.com/angelmondragon/ctp-segment-connector/pkg/logger"
)

func TestPushAuthDisabledWithoutAudience(t *testing.T) {
	called := false
	h := PushAuth("", func(context.Context, string, string) (*idtoken.Payload, error) {
		t.Fatal("validator should not run")
		return nil, nil
	}, nil)(okHandler(&called))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestPushAuthRejectsMissingToken(t *testing.T) {
	called := false
	h := PushAuth("https://connector.example.com", acceptAll, testLogger())(okHandler(&called))

	for _, header := range []string{"", "Basic abc", "Bearer "} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}
	assert.False(t, called)
}

func TestPushAuthValidatesAudience(t *testing.T) {
	var gotToken, gotAudience string
	validate := func(ctx context.Context, token, audience string) (*idtoken.Payload, error) {
		gotToken, gotAudience = token, audience
		if token != "good" {
			return nil, errors.New("idtoken: invalid signature")
		}
		return &idtoken.Payload{Audience: audience, Claims: map[string]any{"email": "push@demo.iam.gserviceaccount.com"}}, nil
	}

	called := false
	h := PushAuth("https://connector.example.com", validate, testLogger())(okHandler(&called))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, called)
	assert.Equal(t, "good", gotToken)
	assert.Equal(t, "https://connector.example.com", gotAudience)

	called = false
	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "bearer forged")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestRequestIDEchoesHeader(t *testing.T) {
	h := RequestID(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "req-1", rec.Header().Get(requestIDHeader))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get(requestIDHeader), 36)
}

func TestRecovererWritesInternalError(t *testing.T) {
	h := Recoverer(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func acceptAll(ctx context.Context, token, audience string) (*idtoken.Payload, error) {
	return &idtoken.Payload{}, nil
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusNoContent)
	})
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "middleware-test", Output: io.Discard})
}
