package orders

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/ctp-segment-connector/internal/analytics/builder"
	"github.com/angelmondragon/ctp-segment-connector/internal/analytics/types"
	"github.com/angelmondragon/ctp-segment-connector/pkg/commercetools"
	pkgerrors "github.com/angelmondragon/ctp-segment-connector/pkg/errors"
	"github.com/angelmondragon/ctp-segment-connector/pkg/logger"
)

type stubReader struct {
	order       *commercetools.Order
	orderErr    error
	registered  *commercetools.Customer
	lookupErr   error
	lookupEmail string
	lookups     int
}

func (s *stubReader) GetOrder(ctx context.Context, id string) (*commercetools.Order, error) {
	return s.order, s.orderErr
}

func (s *stubReader) FindCustomerByEmail(ctx context.Context, email string) (*commercetools.Customer, error) {
	s.lookups++
	s.lookupEmail = email
	return s.registered, s.lookupErr
}

type recordingWriter struct {
	calls      []string
	identifies []*types.IdentifyEvent
	tracks     []*types.TrackEvent
	trackErr   error
}

func (w *recordingWriter) Identify(ctx context.Context, event *types.IdentifyEvent) error {
	w.calls = append(w.calls, "identify")
	w.identifies = append(w.identifies, event)
	return nil
}

func (w *recordingWriter) Track(ctx context.Context, event *types.TrackEvent) error {
	w.calls = append(w.calls, "track")
	w.tracks = append(w.tracks, event)
	return w.trackErr
}

var testOptions = builder.Options{Locale: "en-US", ConsentCustomFieldName: "consent"}

func newTestService(t *testing.T, reader Reader, writer EventWriter) Service {
	t.Helper()
	svc, err := NewService(reader, writer, testOptions, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	require.NoError(t, err)
	return svc
}

func loadOrder(t *testing.T) *commercetools.Order {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", "order.json"))
	require.NoError(t, err)
	var order commercetools.Order
	require.NoError(t, json.Unmarshal(raw, &order))
	return &order
}

func guestOrder(t *testing.T) *commercetools.Order {
	t.Helper()
	order := loadOrder(t)
	anonymousID := "anon-42"
	order.CustomerID = nil
	order.AnonymousID = &anonymousID
	return order
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	logg := logger.New(logger.Options{Output: io.Discard})

	_, err := NewService(nil, &recordingWriter{}, testOptions, logg)
	require.Error(t, err)
	_, err = NewService(&stubReader{}, nil, testOptions, logg)
	require.Error(t, err)
	_, err = NewService(&stubReader{}, &recordingWriter{}, testOptions, nil)
	require.Error(t, err)
}

func TestHandleOrderCreatedRegisteredCustomer(t *testing.T) {
	reader := &stubReader{order: loadOrder(t)}
	writer := &recordingWriter{}

	require.NoError(t, newTestService(t, reader, writer).HandleOrderCreated(context.Background(), reader.order.ID))

	assert.Equal(t, []string{"track"}, writer.calls)
	assert.Zero(t, reader.lookups)
	require.NotNil(t, writer.tracks[0].UserID)
	assert.Equal(t, *reader.order.CustomerID, *writer.tracks[0].UserID)
	assert.Equal(t, types.EventOrderCompleted, writer.tracks[0].Event)
}

func TestHandleOrderCreatedGuestIdentifiesBeforeTrack(t *testing.T) {
	reader := &stubReader{order: guestOrder(t)}
	writer := &recordingWriter{}

	require.NoError(t, newTestService(t, reader, writer).HandleOrderCreated(context.Background(), reader.order.ID))

	assert.Equal(t, []string{"identify", "track"}, writer.calls)
	assert.Equal(t, *reader.order.CustomerEmail, reader.lookupEmail)

	identify := writer.identifies[0]
	assert.Equal(t, "anon-42", identify.AnonymousID)
	assert.Empty(t, identify.UserID)
	assert.Equal(t, types.AnonymousTraits{Email: *reader.order.CustomerEmail}, identify.Traits)
}

func TestHandleOrderCreatedGuestWithRegisteredEmail(t *testing.T) {
	reader := &stubReader{
		order:      guestOrder(t),
		registered: &commercetools.Customer{ID: "cust-1", Email: "seb@example.com"},
	}
	writer := &recordingWriter{}

	require.NoError(t, newTestService(t, reader, writer).HandleOrderCreated(context.Background(), reader.order.ID))

	assert.Equal(t, []string{"track"}, writer.calls)
	assert.Equal(t, 1, reader.lookups)
}

func TestHandleOrderCreatedGuestWithoutEmail(t *testing.T) {
	order := guestOrder(t)
	order.CustomerEmail = nil
	reader := &stubReader{order: order}
	writer := &recordingWriter{}

	require.NoError(t, newTestService(t, reader, writer).HandleOrderCreated(context.Background(), order.ID))

	assert.Equal(t, []string{"track"}, writer.calls)
	assert.Zero(t, reader.lookups)
}

func TestHandleOrderCreatedWithoutIdentitySkips(t *testing.T) {
	order := loadOrder(t)
	order.CustomerID = nil
	order.AnonymousID = nil
	writer := &recordingWriter{}

	require.NoError(t, newTestService(t, &stubReader{order: order}, writer).HandleOrderCreated(context.Background(), order.ID))
	assert.Empty(t, writer.calls)
}

func TestHandleOrderCreatedInvalidOrderSendsNothing(t *testing.T) {
	order := guestOrder(t)
	order.TaxedPrice = nil
	reader := &stubReader{order: order}
	writer := &recordingWriter{}

	err := newTestService(t, reader, writer).HandleOrderCreated(context.Background(), order.ID)
	require.Error(t, err)

	var missing *builder.MissingRequiredFieldError
	require.ErrorAs(t, err, &missing)
	assert.False(t, pkgerrors.IsRetryable(err))
	assert.Empty(t, writer.calls)
	assert.Zero(t, reader.lookups)
}

func TestHandleOrderCreatedPropagatesErrors(t *testing.T) {
	fetchErr := pkgerrors.New(pkgerrors.CodeDependency, "commercetools unavailable")
	writer := &recordingWriter{}

	err := newTestService(t, &stubReader{orderErr: fetchErr}, writer).HandleOrderCreated(context.Background(), "o-1")
	require.ErrorIs(t, err, fetchErr)
	assert.Empty(t, writer.calls)

	trackErr := errors.New("segment down")
	writer = &recordingWriter{trackErr: trackErr}
	err = newTestService(t, &stubReader{order: loadOrder(t)}, writer).HandleOrderCreated(context.Background(), "o-1")
	require.ErrorIs(t, err, trackErr)
}

func TestHandleOrderCreatedGuestIdentifyStableAcrossRetries(t *testing.T) {
	reader := &stubReader{order: guestOrder(t)}
	writer := &recordingWriter{trackErr: pkgerrors.New(pkgerrors.CodeDependency, "segment unavailable")}
	svc := newTestService(t, reader, writer)

	require.Error(t, svc.HandleOrderCreated(context.Background(), reader.order.ID))
	writer.trackErr = nil
	require.NoError(t, svc.HandleOrderCreated(context.Background(), reader.order.ID))

	require.Len(t, writer.identifies, 2)
	first, second := writer.identifies[0], writer.identifies[1]
	assert.Equal(t, reader.order.ID+"-guest-identify", first.MessageID)
	assert.Equal(t, first.MessageID, second.MessageID)
	require.NotNil(t, first.Timestamp)
	assert.True(t, first.Timestamp.Equal(reader.order.CreatedAt))
	assert.Equal(t, first.Timestamp, second.Timestamp)
}
