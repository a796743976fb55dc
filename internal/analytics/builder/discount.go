package builder

import "github.com/angelmondragon/ctp-segment-connector/pkg/commercetools"

// TotalDiscountCents sums line item, order level and shipping discounts in the order's minor units.
func TotalDiscountCents(order *commercetools.Order) int64 {
	if order == nil {
		return 0
	}
	return lineItemDiscountCents(order.LineItems) + orderDiscountCents(order) + shippingDiscountCents(order)
}

// Discounts may cover only part of a line item's quantity, so each portion is weighted by its own quantity.
func lineItemDiscountCents(items []commercetools.LineItem) int64 {
	var total int64
	for _, item := range items {
		for _, portion := range item.DiscountedPricePerQuantity {
			for _, included := range portion.DiscountedPrice.IncludedDiscounts {
				total += portion.Quantity * included.DiscountedAmount.CentAmount
			}
		}
	}
	return total
}

func orderDiscountCents(order *commercetools.Order) int64 {
	if order.DiscountOnTotalPrice == nil {
		return 0
	}
	return order.DiscountOnTotalPrice.DiscountedAmount.CentAmount
}

func shippingDiscountCents(order *commercetools.Order) int64 {
	if order.ShippingMode == commercetools.ShippingModeMultiple {
		var total int64
		for _, shipping := range order.Shipping {
			total += shippingInfoDiscountCents(&shipping.ShippingInfo)
		}
		return total
	}
	return shippingInfoDiscountCents(order.ShippingInfo)
}

func shippingInfoDiscountCents(info *commercetools.ShippingInfo) int64 {
	if info == nil || info.DiscountedPrice == nil {
		return 0
	}
	return info.Price.CentAmount - info.DiscountedPrice.Value.CentAmount
}
