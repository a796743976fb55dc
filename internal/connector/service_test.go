package connector

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/ctp-segment-connector/pkg/commercetools"
	"github.com/angelmondragon/ctp-segment-connector/pkg/logger"
)

type fakeStore struct {
	existing  *commercetools.Subscription
	lookupErr error
	created   []commercetools.SubscriptionDraft
	deleted   map[string]int64
}

func (f *fakeStore) GetSubscriptionByKey(ctx context.Context, key string) (*commercetools.Subscription, error) {
	return f.existing, f.lookupErr
}

func (f *fakeStore) CreateSubscription(ctx context.Context, draft commercetools.SubscriptionDraft) (*commercetools.Subscription, error) {
	f.created = append(f.created, draft)
	return &commercetools.Subscription{ID: "sub-1", Version: 1, Key: draft.Key}, nil
}

func (f *fakeStore) DeleteSubscription(ctx context.Context, key string, version int64) error {
	if f.deleted == nil {
		f.deleted = map[string]int64{}
	}
	f.deleted[key] = version
	return nil
}

type fakeTopics struct {
	err   error
	calls int
}

func (f *fakeTopics) EnsureTopic(ctx context.Context) error {
	f.calls++
	return f.err
}

func newTestService(t *testing.T, store SubscriptionStore, topics TopicChecker) *Service {
	t.Helper()
	svc, err := NewService(Params{
		Store:     store,
		Topics:    topics,
		ProjectID: "gcp-demo",
		Topic:     "ctp-events",
		Logger:    logger.New(logger.Options{ServiceName: "connector-test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return svc
}

func TestPostDeployCreatesSubscription(t *testing.T) {
	store := &fakeStore{}
	topics := &fakeTopics{}

	require.NoError(t, newTestService(t, store, topics).PostDeploy(context.Background()))

	require.Len(t, store.created, 1)
	draft := store.created[0]
	assert.Equal(t, DefaultSubscriptionKey, draft.Key)
	assert.Equal(t, commercetools.Destination{Type: "GoogleCloudPubSub", ProjectID: "gcp-demo", Topic: "ctp-events"}, draft.Destination)
	assert.Equal(t, []commercetools.ChangeSubscription{
		{ResourceTypeID: "customer"},
		{ResourceTypeID: "order"},
		{ResourceTypeID: "cart"},
	}, draft.Changes)
	assert.Equal(t, 1, topics.calls)
}

func TestPostDeploySkipsExistingSubscription(t *testing.T) {
	store := &fakeStore{existing: &commercetools.Subscription{ID: "sub-1", Version: 4}}

	require.NoError(t, newTestService(t, store, nil).PostDeploy(context.Background()))
	assert.Empty(t, store.created)
}

func TestPostDeployMissingTopic(t *testing.T) {
	store := &fakeStore{}
	topics := &fakeTopics{err: errors.New(`topic "ctp-events" does not exist`)}

	require.Error(t, newTestService(t, store, topics).PostDeploy(context.Background()))
	assert.Empty(t, store.created)
}

func TestPostDeployRequiresDestination(t *testing.T) {
	svc, err := NewService(Params{Store: &fakeStore{}, Logger: logger.New(logger.Options{Output: io.Discard})})
	require.NoError(t, err)
	require.Error(t, svc.PostDeploy(context.Background()))
}

func TestPreUndeployDeletesAtCurrentVersion(t *testing.T) {
	store := &fakeStore{existing: &commercetools.Subscription{ID: "sub-1", Version: 7}}

	require.NoError(t, newTestService(t, store, nil).PreUndeploy(context.Background()))
	assert.Equal(t, map[string]int64{DefaultSubscriptionKey: 7}, store.deleted)
}

func TestPreUndeployWithoutSubscription(t *testing.T) {
	store := &fakeStore{}

	require.NoError(t, newTestService(t, store, nil).PreUndeploy(context.Background()))
	assert.Nil(t, store.deleted)
}

func TestLookupErrorPropagates(t *testing.T) {
	lookupErr := errors.New("unauthorized")
	store := &fakeStore{lookupErr: lookupErr}
	svc := newTestService(t, store, nil)

	assert.ErrorIs(t, svc.PostDeploy(context.Background()), lookupErr)
	assert.ErrorIs(t, svc.PreUndeploy(context.Background()), lookupErr)
}
