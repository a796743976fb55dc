package builder

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/ctp-segment-connector/internal/analytics/types"
	"github.com/angelmondragon/ctp-segment-connector/pkg/commercetools"
	pkgerrors "github.com/angelmondragon/ctp-segment-connector/pkg/errors"
	"github.com/angelmondragon/ctp-segment-connector/pkg/money"
)

const (
	FieldTaxedPrice         = "taxedPrice"
	FieldTaxedShippingPrice = "taxedShippingPrice"

	orderCompletedSuffix = "-order-completed"
)

// Options carries the configuration the builders read.
type Options struct {
	Locale                 string
	ConsentCustomFieldName string
}

// BuildOrderCompletedEvent derives the "Order Completed" track call from an order snapshot.
// Orders without taxedPrice or taxedShippingPrice fail with *MissingRequiredFieldError.
func BuildOrderCompletedEvent(order *commercetools.Order, opts Options) (*types.TrackEvent, error) {
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}
	if order.TaxedPrice == nil {
		return nil, &MissingRequiredFieldError{OrderID: order.ID, Field: FieldTaxedPrice}
	}
	if order.TaxedShippingPrice == nil {
		return nil, &MissingRequiredFieldError{OrderID: order.ID, Field: FieldTaxedShippingPrice}
	}

	consent, err := consentContext(order.ID, order.Custom, opts.ConsentCustomFieldName)
	if err != nil {
		return nil, err
	}

	fractionDigits := order.TotalPrice.FractionDigits
	taxed := order.TaxedPrice
	shipping := order.TaxedShippingPrice

	subtotalCents := taxed.TotalNet.CentAmount - shipping.TotalNet.CentAmount

	var tax *decimal.Decimal
	if taxed.TotalTax != nil {
		v := money.FromMoney(*taxed.TotalTax)
		tax = &v
	}

	return &types.TrackEvent{
		UserID:      cloneString(order.CustomerID),
		AnonymousID: cloneString(order.AnonymousID),
		MessageID:   order.ID + orderCompletedSuffix,
		Timestamp:   order.CreatedAt,
		Event:       types.EventOrderCompleted,
		Properties: types.OrderCompletedProperties{
			Email:    cloneString(order.CustomerEmail),
			OrderID:  order.ID,
			Total:    money.FromMoney(taxed.TotalGross),
			Subtotal: money.ToCurrencyUnits(subtotalCents, fractionDigits),
			Discount: money.ToCurrencyUnits(TotalDiscountCents(order), fractionDigits),
			Shipping: money.ToCurrencyUnits(shipping.TotalGross.CentAmount, fractionDigits),
			Tax:      tax,
			Coupon:   firstCouponCode(order.DiscountCodes),
			Products: productLines(order.LineItems, opts.Locale),
			Currency: order.TotalPrice.CurrencyCode,
		},
		Context: consent,
	}, nil
}

func productLines(items []commercetools.LineItem, locale string) []types.ProductLine {
	products := make([]types.ProductLine, 0, len(items))
	for i, item := range items {
		unit := item.Price.Value
		if item.Price.Discounted != nil {
			unit = item.Price.Discounted.Value
		}

		var imageURL *string
		if len(item.Variant.Images) > 0 {
			url := item.Variant.Images[0].URL
			imageURL = &url
		}

		products = append(products, types.ProductLine{
			ProductID:  item.ProductID,
			SKU:        cloneString(item.Variant.SKU),
			Name:       localizedValue(item.Name, locale),
			Price:      money.FromMoney(unit),
			TotalPrice: money.FromMoney(item.TotalPrice),
			Quantity:   item.Quantity,
			ImageURL:   imageURL,
			Position:   i + 1,
		})
	}
	return products
}

// Only the first code is exported; Segment's coupon property holds a single value.
func firstCouponCode(codes []commercetools.DiscountCodeInfo) *string {
	if len(codes) == 0 || codes[0].DiscountCode.Obj == nil {
		return nil
	}
	code := codes[0].DiscountCode.Obj.Code
	if code == "" {
		return nil
	}
	return &code
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
