package types

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const EventOrderCompleted = "Order Completed"

// Context is the Segment context object; only consent is populated.
type Context struct {
	Consent any `json:"consent"`
}

// IdentifyEvent is a Segment identify call. Traits is CustomerTraits or AnonymousTraits.
type IdentifyEvent struct {
	UserID      string     `json:"userId,omitempty"`
	AnonymousID string     `json:"anonymousId,omitempty"`
	MessageID   string     `json:"messageId,omitempty"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
	Traits      any        `json:"traits"`
	Context     *Context   `json:"context,omitempty"`
}

// CustomerTraits serializes absent customer fields as explicit nulls.
type CustomerTraits struct {
	Email           string    `json:"email"`
	FirstName       *string   `json:"firstName"`
	LastName        *string   `json:"lastName"`
	Title           *string   `json:"title"`
	DateOfBirth     *string   `json:"dateOfBirth"`
	CustomerNumber  *string   `json:"customerNumber"`
	ExternalID      *string   `json:"externalId"`
	IsEmailVerified bool      `json:"isEmailVerified"`
	Locale          *string   `json:"locale"`
	CreatedAt       time.Time `json:"createdAt"`
}

type AnonymousTraits struct {
	Email string `json:"email"`
}

// TrackEvent is a Segment track call.
type TrackEvent struct {
	UserID      *string                  `json:"userId,omitempty"`
	AnonymousID *string                  `json:"anonymousId,omitempty"`
	MessageID   string                   `json:"messageId"`
	Timestamp   time.Time                `json:"timestamp"`
	Event       string                   `json:"event"`
	Properties  OrderCompletedProperties `json:"properties"`
	Context     *Context                 `json:"context,omitempty"`
}

// OrderCompletedProperties follows the Segment e-commerce v2 "Order Completed" event.
type OrderCompletedProperties struct {
	Email    *string          `json:"email,omitempty"`
	OrderID  string           `json:"order_id"`
	Total    decimal.Decimal  `json:"total"`
	Subtotal decimal.Decimal  `json:"subtotal"`
	Discount decimal.Decimal  `json:"discount"`
	Shipping decimal.Decimal  `json:"shipping"`
	Tax      *decimal.Decimal `json:"tax,omitempty"`
	Coupon   *string          `json:"coupon,omitempty"`
	Products []ProductLine    `json:"products"`
	Currency string           `json:"currency"`
}

type ProductLine struct {
	ProductID  string          `json:"product_id"`
	SKU        *string         `json:"sku,omitempty"`
	Name       *string         `json:"name,omitempty"`
	Price      decimal.Decimal `json:"price"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Quantity   int64           `json:"quantity"`
	ImageURL   *string         `json:"image_url,omitempty"`
	Position   int             `json:"position"`
}

// MarshalJSON writes amounts as JSON numbers regardless of decimal.MarshalJSONWithoutQuotes.
func (p OrderCompletedProperties) MarshalJSON() ([]byte, error) {
	type plain OrderCompletedProperties
	out := struct {
		plain
		Total    json.Number  `json:"total"`
		Subtotal json.Number  `json:"subtotal"`
		Discount json.Number  `json:"discount"`
		Shipping json.Number  `json:"shipping"`
		Tax      *json.Number `json:"tax,omitempty"`
	}{
		plain:    plain(p),
		Total:    amount(p.Total),
		Subtotal: amount(p.Subtotal),
		Discount: amount(p.Discount),
		Shipping: amount(p.Shipping),
	}
	if p.Tax != nil {
		tax := amount(*p.Tax)
		out.Tax = &tax
	}
	return json.Marshal(out)
}

func (l ProductLine) MarshalJSON() ([]byte, error) {
	type plain ProductLine
	return json.Marshal(struct {
		plain
		Price      json.Number `json:"price"`
		TotalPrice json.Number `json:"total_price"`
	}{
		plain:      plain(l),
		Price:      amount(l.Price),
		TotalPrice: amount(l.TotalPrice),
	})
}

func amount(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
