package types

import (
	"strconv"
	"strings"
	"time"
)

const (
	ResourceCustomer = "customer"
	ResourceOrder    = "order"

	NotificationResourceCreated = "ResourceCreated"
	NotificationResourceUpdated = "ResourceUpdated"
	NotificationResourceDeleted = "ResourceDeleted"
)

type ResourceIdentifier struct {
	TypeID string `json:"typeId" validate:"required"`
	ID     string `json:"id" validate:"required"`
}

// Notification is a commercetools change notification delivered through Pub/Sub.
type Notification struct {
	NotificationType string             `json:"notificationType" validate:"required"`
	ProjectKey       string             `json:"projectKey,omitempty"`
	Resource         ResourceIdentifier `json:"resource"`
	ResourceVersion  int64              `json:"resourceVersion,omitempty"`
	Version          int64              `json:"version,omitempty"`
	ModifiedAt       *time.Time         `json:"modifiedAt,omitempty"`
}

// DedupKey identifies one change of one resource across redeliveries.
// The fallback is used when the payload carries no resource version.
func (n Notification) DedupKey(fallback string) string {
	if n.ResourceVersion == 0 {
		return strings.TrimSpace(fallback)
	}
	return strings.Join([]string{
		n.Resource.TypeID,
		n.Resource.ID,
		n.NotificationType,
		strconv.FormatInt(n.ResourceVersion, 10),
	}, ":")
}

// PushMessage is the message part of a Pub/Sub push request. Data arrives base64 encoded.
type PushMessage struct {
	Data        []byte            `json:"data" validate:"required,min=1"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	MessageID   string            `json:"messageId"`
	PublishTime time.Time         `json:"publishTime"`
}

type PushRequest struct {
	Message      PushMessage `json:"message"`
	Subscription string      `json:"subscription"`
}
