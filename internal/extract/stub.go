package extract

import (
	"context"

	"github.com/shopspring/decimal"
)

// Stub is an Extractor that returns a fixed set of line items regardless of
// the stored object. It keeps local development working without AWS
// credentials or a real receipt image.
type Stub struct{}

// Extract returns the canned development line items.
func (Stub) Extract(_ context.Context, _, _ string) ([]LineItem, error) {
	return []LineItem{
		{
			Description: "Burger",
			Quantity:    1,
			UnitPrice:   decimal.RequireFromString("12.50"),
			TotalPrice:  decimal.RequireFromString("12.50"),
		},
		{
			Description: "Fries",
			Quantity:    1,
			UnitPrice:   decimal.RequireFromString("4.00"),
			TotalPrice:  decimal.RequireFromString("4.00"),
		},
		{
			Description: "Soda",
			Quantity:    2,
			UnitPrice:   decimal.RequireFromString("3.00"),
			TotalPrice:  decimal.RequireFromString("6.00"),
		},
	}, nil
}
