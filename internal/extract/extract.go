// Package extract turns a stored receipt image into priced line items,
// either through AWS Textract's expense analysis or a deterministic stub
// for local development.
package extract

import (
	"context"

	"github.com/shopspring/decimal"
)

// LineItem is one parsed entry from a receipt image.
type LineItem struct {
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	TotalPrice  decimal.Decimal
	Category    string
}

// Extractor parses the receipt object stored under bucket/key into line
// items.
type Extractor interface {
	Extract(ctx context.Context, bucket, key string) ([]LineItem, error)
}
