package shop

import (
	"fmt"

	"github.com/shopspring/decimal"

	"storefront/internal/models"
)

const (
	FreeShippingThreshold = 10000
	FlatShippingCost      = 500
)

func isOnSale(price float64, discountPrice *float64) bool {
	return discountPrice != nil && *discountPrice > 0 && *discountPrice < price
}

// SalePrice returns the discount price when it is set and lower than the list price.
func SalePrice(p models.Product) float64 {
	if isOnSale(p.Price, p.DiscountPrice) {
		return *p.DiscountPrice
	}
	return p.Price
}

// ShippingFor returns the shipping charge for an order subtotal.
func ShippingFor(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(decimal.NewFromInt(FreeShippingThreshold)) {
		return decimal.Zero
	}
	return decimal.NewFromInt(FlatShippingCost)
}

func lineTotal(price float64, qty int) decimal.Decimal {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(qty)))
}

func cartTotal(items []models.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(lineTotal(item.Price, item.Quantity))
	}
	return total
}

// roundRating rounds the mean rating half away from zero to one decimal.
func roundRating(sum, count int) float64 {
	if count == 0 {
		return 0
	}
	mean := decimal.NewFromInt(int64(sum)).Div(decimal.NewFromInt(int64(count)))
	return mean.Round(1).InexactFloat64()
}

func validatePricing(price float64, discountPrice *float64) error {
	if price < 0 {
		return invalid("price", "price must not be negative")
	}
	if discountPrice == nil {
		return nil
	}
	if *discountPrice <= 0 {
		return invalid("discountPrice", "discountPrice must be greater than 0")
	}
	if *discountPrice >= price {
		return invalid("discountPrice", fmt.Sprintf("discountPrice must be less than price %.2f", price))
	}
	return nil
}
