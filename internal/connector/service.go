package connector

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/ctp-segment-connector/pkg/commercetools"
	"github.com/angelmondragon/ctp-segment-connector/pkg/logger"
)

const (
	DefaultSubscriptionKey = "ctp-segment-subscription"
	destinationType        = "GoogleCloudPubSub"
)

// SubscribedResources are the resource types commercetools publishes changes for.
var SubscribedResources = []string{"customer", "order", "cart"}

// SubscriptionStore is the commercetools subscription API.
type SubscriptionStore interface {
	GetSubscriptionByKey(ctx context.Context, key string) (*commercetools.Subscription, error)
	CreateSubscription(ctx context.Context, draft commercetools.SubscriptionDraft) (*commercetools.Subscription, error)
	DeleteSubscription(ctx context.Context, key string, version int64) error
}

// TopicChecker verifies the destination topic before commercetools is pointed at it.
type TopicChecker interface {
	EnsureTopic(ctx context.Context) error
}

type Params struct {
	Store     SubscriptionStore
	Topics    TopicChecker
	Key       string
	ProjectID string
	Topic     string
	Logger    *logger.Logger
}

// Service installs and removes the commercetools subscription that feeds the connector.
type Service struct {
	store     SubscriptionStore
	topics    TopicChecker
	key       string
	projectID string
	topic     string
	logg      *logger.Logger
}

func NewService(params Params) (*Service, error) {
	if params.Store == nil {
		return nil, errors.New("subscription store is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	key := strings.TrimSpace(params.Key)
	if key == "" {
		key = DefaultSubscriptionKey
	}
	return &Service{
		store:     params.Store,
		topics:    params.Topics,
		key:       key,
		projectID: strings.TrimSpace(params.ProjectID),
		topic:     strings.TrimSpace(params.Topic),
		logg:      params.Logger,
	}, nil
}

// PostDeploy creates the subscription unless one with the connector key already exists.
func (s *Service) PostDeploy(ctx context.Context) error {
	ctx = s.logg.WithField(ctx, "subscription_key", s.key)

	if s.projectID == "" || s.topic == "" {
		return errors.New("pubsub project id and topic are required")
	}

	existing, err := s.store.GetSubscriptionByKey(ctx, s.key)
	if err != nil {
		return fmt.Errorf("lookup subscription: %w", err)
	}
	if existing != nil {
		s.logg.Info(ctx, "subscription.exists")
		return nil
	}

	if s.topics != nil {
		if err := s.topics.EnsureTopic(ctx); err != nil {
			return err
		}
	}

	changes := make([]commercetools.ChangeSubscription, 0, len(SubscribedResources))
	for _, resource := range SubscribedResources {
		changes = append(changes, commercetools.ChangeSubscription{ResourceTypeID: resource})
	}

	created, err := s.store.CreateSubscription(ctx, commercetools.SubscriptionDraft{
		Key: s.key,
		Destination: commercetools.Destination{
			Type:      destinationType,
			ProjectID: s.projectID,
			Topic:     s.topic,
		},
		Changes: changes,
	})
	if err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}

	s.logg.Info(s.logg.WithField(ctx, "subscription_id", created.ID), "subscription.created")
	return nil
}

// PreUndeploy deletes the subscription at its current version when present.
func (s *Service) PreUndeploy(ctx context.Context) error {
	ctx = s.logg.WithField(ctx, "subscription_key", s.key)

	existing, err := s.store.GetSubscriptionByKey(ctx, s.key)
	if err != nil {
		return fmt.Errorf("lookup subscription: %w", err)
	}
	if existing == nil {
		s.logg.Info(ctx, "subscription.absent")
		return nil
	}

	if err := s.store.DeleteSubscription(ctx, s.key, existing.Version); err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	s.logg.Info(s.logg.WithField(ctx, "subscription_id", existing.ID), "subscription.deleted")
	return nil
}
