package commercetools

import (
	"encoding/json"
	"time"
)

const ShippingModeMultiple = "Multiple"

// Money is a centPrecision amount: CentAmount / 10^FractionDigits.
type Money struct {
	Type           string `json:"type,omitempty"`
	CentAmount     int64  `json:"centAmount"`
	CurrencyCode   string `json:"currencyCode"`
	FractionDigits int    `json:"fractionDigits"`
}

// LocalizedString maps IETF language tags to values.
type LocalizedString map[string]string

type Image struct {
	URL string `json:"url"`
}

type ProductVariant struct {
	ID     int     `json:"id"`
	SKU    *string `json:"sku,omitempty"`
	Images []Image `json:"images,omitempty"`
}

type DiscountedPrice struct {
	Value Money `json:"value"`
}

type Price struct {
	ID         string           `json:"id,omitempty"`
	Value      Money            `json:"value"`
	Discounted *DiscountedPrice `json:"discounted,omitempty"`
}

type DiscountedLineItemPortion struct {
	DiscountedAmount Money `json:"discountedAmount"`
}

type DiscountedLineItemPrice struct {
	Value             Money                       `json:"value"`
	IncludedDiscounts []DiscountedLineItemPortion `json:"includedDiscounts"`
}

type DiscountedLineItemPriceForQuantity struct {
	Quantity        int64                   `json:"quantity"`
	DiscountedPrice DiscountedLineItemPrice `json:"discountedPrice"`
}

type LineItem struct {
	ID                         string                               `json:"id"`
	ProductID                  string                               `json:"productId"`
	Name                       LocalizedString                      `json:"name"`
	Variant                    ProductVariant                       `json:"variant"`
	Price                      Price                                `json:"price"`
	Quantity                   int64                                `json:"quantity"`
	TotalPrice                 Money                                `json:"totalPrice"`
	DiscountedPricePerQuantity []DiscountedLineItemPriceForQuantity `json:"discountedPricePerQuantity"`
}

type TaxedPrice struct {
	TotalNet   Money  `json:"totalNet"`
	TotalGross Money  `json:"totalGross"`
	TotalTax   *Money `json:"totalTax,omitempty"`
}

type TaxedShippingPrice struct {
	TotalNet   Money  `json:"totalNet"`
	TotalGross Money  `json:"totalGross"`
	TotalTax   *Money `json:"totalTax,omitempty"`
}

type DiscountOnTotalPrice struct {
	DiscountedAmount Money `json:"discountedAmount"`
}

type ShippingInfo struct {
	ShippingMethodName string           `json:"shippingMethodName,omitempty"`
	Price              Money            `json:"price"`
	DiscountedPrice    *DiscountedPrice `json:"discountedPrice,omitempty"`
}

type Shipping struct {
	ShippingKey  string       `json:"shippingKey,omitempty"`
	ShippingInfo ShippingInfo `json:"shippingInfo"`
}

type DiscountCode struct {
	Code string `json:"code"`
}

type DiscountCodeReference struct {
	TypeID string        `json:"typeId"`
	ID     string        `json:"id"`
	Obj    *DiscountCode `json:"obj,omitempty"`
}

type DiscountCodeInfo struct {
	DiscountCode DiscountCodeReference `json:"discountCode"`
	State        string                `json:"state,omitempty"`
}

// CustomFields holds the raw custom field values; their types depend on the project's type definitions.
type CustomFields struct {
	Fields map[string]json.RawMessage `json:"fields"`
}

type Order struct {
	ID                   string                `json:"id"`
	Version              int64                 `json:"version"`
	OrderNumber          *string               `json:"orderNumber,omitempty"`
	CustomerID           *string               `json:"customerId,omitempty"`
	AnonymousID          *string               `json:"anonymousId,omitempty"`
	CustomerEmail        *string               `json:"customerEmail,omitempty"`
	CreatedAt            time.Time             `json:"createdAt"`
	LastModifiedAt       time.Time             `json:"lastModifiedAt"`
	LineItems            []LineItem            `json:"lineItems"`
	TotalPrice           Money                 `json:"totalPrice"`
	TaxedPrice           *TaxedPrice           `json:"taxedPrice,omitempty"`
	TaxedShippingPrice   *TaxedShippingPrice   `json:"taxedShippingPrice,omitempty"`
	DiscountOnTotalPrice *DiscountOnTotalPrice `json:"discountOnTotalPrice,omitempty"`
	DiscountCodes        []DiscountCodeInfo    `json:"discountCodes,omitempty"`
	ShippingMode         string                `json:"shippingMode,omitempty"`
	ShippingInfo         *ShippingInfo         `json:"shippingInfo,omitempty"`
	Shipping             []Shipping            `json:"shipping,omitempty"`
	Custom               *CustomFields         `json:"custom,omitempty"`
}

type Customer struct {
	ID              string        `json:"id"`
	Version         int64         `json:"version"`
	Email           string        `json:"email"`
	FirstName       *string       `json:"firstName,omitempty"`
	LastName        *string       `json:"lastName,omitempty"`
	Title           *string       `json:"title,omitempty"`
	DateOfBirth     *string       `json:"dateOfBirth,omitempty"`
	CustomerNumber  *string       `json:"customerNumber,omitempty"`
	ExternalID      *string       `json:"externalId,omitempty"`
	IsEmailVerified bool          `json:"isEmailVerified"`
	Locale          *string       `json:"locale,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	LastModifiedAt  time.Time     `json:"lastModifiedAt"`
	Custom          *CustomFields `json:"custom,omitempty"`
}

type CustomerPagedQueryResponse struct {
	Limit   int        `json:"limit"`
	Offset  int        `json:"offset"`
	Count   int        `json:"count"`
	Total   *int       `json:"total,omitempty"`
	Results []Customer `json:"results"`
}

// Destination is the subscription target; only Google Cloud Pub/Sub is used here.
type Destination struct {
	Type      string `json:"type"`
	ProjectID string `json:"projectId"`
	Topic     string `json:"topic"`
}

type ChangeSubscription struct {
	ResourceTypeID string `json:"resourceTypeId"`
}

type Subscription struct {
	ID          string               `json:"id"`
	Version     int64                `json:"version"`
	Key         string               `json:"key"`
	Destination Destination          `json:"destination"`
	Changes     []ChangeSubscription `json:"changes"`
}

type SubscriptionDraft struct {
	Key         string               `json:"key"`
	Destination Destination          `json:"destination"`
	Changes     []ChangeSubscription `json:"changes"`
}
