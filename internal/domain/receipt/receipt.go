// Package receipt holds the receipt aggregate: the uploaded receipt, its
// extracted line items, participant selections, and persisted split shares.
package receipt

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested receipt does not exist.
var ErrNotFound = errors.New("receipt not found")

// Status tracks a receipt through its lifecycle.
type Status string

const (
	// StatusUploaded means the receipt exists but has no extracted items yet.
	StatusUploaded Status = "uploaded"
	// StatusProcessed means line items have been extracted.
	StatusProcessed Status = "processed"
	// StatusSplitting means shares have been computed at least once.
	StatusSplitting Status = "splitting"
	// StatusSettled means the owner marked the receipt as paid out.
	StatusSettled Status = "settled"
)

// Receipt is one uploaded receipt and its extraction state.
type Receipt struct {
	ID         string
	Owner      string
	Merchant   string
	Currency   string
	StorageKey string
	TaxRate    decimal.Decimal
	TipRate    decimal.Decimal
	Status     Status
	CreatedAt  time.Time
	Items      []Item
}

// Item is one extracted line item. TotalPrice is authoritative; UnitPrice
// is whatever the extractor reported and is informational only.
type Item struct {
	ID          string
	ReceiptID   string
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	TotalPrice  decimal.Decimal
	Category    string
}

// Selection is one participant's claim on units of one item.
type Selection struct {
	ReceiptID   string
	ItemID      string
	Participant string
	Quantity    int
}

// Share is a persisted split result for one participant.
type Share struct {
	ReceiptID   string
	Participant string
	Subtotal    decimal.Decimal
	Tax         decimal.Decimal
	Tip         decimal.Decimal
	Total       decimal.Decimal
	Settled     bool
	SettledAt   *time.Time
}

// Repository defines persistence operations for receipts and their items.
type Repository interface {
	Create(ctx context.Context, r *Receipt) error
	// Get returns the receipt with its items loaded.
	Get(ctx context.Context, id string) (*Receipt, error)
	UpdateStorageKey(ctx context.Context, id, key string) error
	SetStatus(ctx context.Context, id string, status Status) error
	// ReplaceItems atomically swaps the receipt's items for the given set.
	ReplaceItems(ctx context.Context, id string, items []Item) error
	// Snapshot reads the receipt, its items, and all selections within one
	// transaction so the split sees a consistent view.
	Snapshot(ctx context.Context, id string) (*Receipt, []Selection, error)
}

// SelectionRepository defines persistence operations for selections.
type SelectionRepository interface {
	// Replace swaps one participant's selections for a receipt.
	Replace(ctx context.Context, receiptID, participant string, selections []Selection) error
	ListByReceipt(ctx context.Context, receiptID string) ([]Selection, error)
}

// ShareRepository defines persistence operations for computed shares.
type ShareRepository interface {
	// Replace swaps all persisted shares for a receipt.
	Replace(ctx context.Context, receiptID string, shares []Share) error
	ListByReceipt(ctx context.Context, receiptID string) ([]Share, error)
}
