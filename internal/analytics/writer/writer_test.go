package writer

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/ctp-segment-connector/internal/analytics/types"
	pkgerrors "github.com/angelmondragon/ctp-segment-connector/pkg/errors"
	"github.com/angelmondragon/ctp-segment-connector/pkg/logger"
	"github.com/angelmondragon/ctp-segment-connector/pkg/metrics"
)

type fakeClient struct {
	identified []any
	tracked    []any
	err        error
}

func (f *fakeClient) Identify(_ context.Context, payload any) error {
	f.identified = append(f.identified, payload)
	return f.err
}

func (f *fakeClient) Track(_ context.Context, payload any) error {
	f.tracked = append(f.tracked, payload)
	return f.err
}

func newTestWriter(t *testing.T, client *fakeClient) (*SegmentWriter, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Format: "json", Output: buf})
	w, err := New(client, metrics.NewDeliveryMetrics(prometheus.NewRegistry()), logg)
	require.NoError(t, err)
	return w, buf
}

func strPtr(v string) *string { return &v }

func TestNewWriterValidation(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
	_, err := New(nil, nil, logg)
	assert.Error(t, err)
	_, err = New(&fakeClient{}, nil, nil)
	assert.Error(t, err)
}

func TestIdentifyRequiresExactlyOneIdentity(t *testing.T) {
	client := &fakeClient{}
	w, _ := newTestWriter(t, client)

	err := w.Identify(context.Background(), &types.IdentifyEvent{})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	err = w.Identify(context.Background(), &types.IdentifyEvent{UserID: "u", AnonymousID: "a"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	assert.Empty(t, client.identified)

	require.NoError(t, w.Identify(context.Background(), &types.IdentifyEvent{AnonymousID: "a"}))
	assert.Len(t, client.identified, 1)
}

func TestTrackDeliversAndLogs(t *testing.T) {
	client := &fakeClient{}
	w, buf := newTestWriter(t, client)

	event := &types.TrackEvent{UserID: strPtr("u-1"), MessageID: "o-1-order-completed", Event: types.EventOrderCompleted}
	require.NoError(t, w.Track(context.Background(), event))

	require.Len(t, client.tracked, 1)
	assert.Same(t, event, client.tracked[0])
	assert.Contains(t, buf.String(), "segment.track.sent")
	assert.Contains(t, buf.String(), "o-1-order-completed")
}

func TestTrackRequiresIdentity(t *testing.T) {
	client := &fakeClient{}
	w, _ := newTestWriter(t, client)

	err := w.Track(context.Background(), &types.TrackEvent{UserID: strPtr("")})
	require.Error(t, err)
	assert.Empty(t, client.tracked)
}

func TestTrackPropagatesClientError(t *testing.T) {
	boom := errors.New("boom")
	w, buf := newTestWriter(t, &fakeClient{err: boom})

	err := w.Track(context.Background(), &types.TrackEvent{AnonymousID: strPtr("a")})
	assert.ErrorIs(t, err, boom)
	assert.NotContains(t, buf.String(), "segment.track.sent")
}
