package receipt

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tabsplit/tabsplit/internal/domain/split"
	"github.com/tabsplit/tabsplit/internal/extract"
	"github.com/tabsplit/tabsplit/internal/upload"
)

// ErrNotUploaded is returned when extraction is requested before a receipt
// image has been uploaded.
var ErrNotUploaded = errors.New("receipt file not uploaded")

// UnknownItemError indicates a selection referenced an item that is not on
// the receipt. Selections are validated at the data-entry boundary; the
// allocator itself tolerates dangling references.
type UnknownItemError struct {
	ItemID string
}

func (e *UnknownItemError) Error() string {
	return fmt.Sprintf("item %s is not on this receipt", e.ItemID)
}

// CreateRequest holds the input for creating a receipt. Nil rates fall back
// to the service defaults.
type CreateRequest struct {
	Owner    string
	Merchant string
	Currency string
	TaxRate  *decimal.Decimal
	TipRate  *decimal.Decimal
}

// Pick is one item quantity a participant claims when saving selections.
type Pick struct {
	ItemID   string
	Quantity int
}

// ServiceConfig holds non-dependency configuration for the Service.
type ServiceConfig struct {
	// Bucket is the object storage bucket receipt images land in.
	Bucket string
	// DefaultTaxRate and DefaultTipRate seed new receipts when the caller
	// does not supply rates.
	DefaultTaxRate decimal.Decimal
	DefaultTipRate decimal.Decimal
}

// Service encapsulates receipt lifecycle logic: creation, upload URL
// issuance, extraction, selection entry, and split computation.
type Service struct {
	receipts   Repository
	selections SelectionRepository
	shares     ShareRepository
	extractor  extract.Extractor
	signer     upload.URLSigner
	cfg        ServiceConfig
}

// NewService creates a receipt Service with the required dependencies.
func NewService(
	receipts Repository,
	selections SelectionRepository,
	shares ShareRepository,
	extractor extract.Extractor,
	signer upload.URLSigner,
	cfg ServiceConfig,
) *Service {
	return &Service{
		receipts:   receipts,
		selections: selections,
		shares:     shares,
		extractor:  extractor,
		signer:     signer,
		cfg:        cfg,
	}
}

// Create persists a new empty receipt in the uploaded state.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Receipt, error) {
	taxRate := s.cfg.DefaultTaxRate
	if req.TaxRate != nil {
		taxRate = *req.TaxRate
	}
	tipRate := s.cfg.DefaultTipRate
	if req.TipRate != nil {
		tipRate = *req.TipRate
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	r := &Receipt{
		ID:       uuid.New().String(),
		Owner:    req.Owner,
		Merchant: req.Merchant,
		Currency: currency,
		TaxRate:  taxRate,
		TipRate:  tipRate,
		Status:   StatusUploaded,
	}
	if err := s.receipts.Create(ctx, r); err != nil {
		return nil, errors.Wrap(err, "create receipt")
	}
	return r, nil
}

// Get returns a receipt with its items.
func (s *Service) Get(ctx context.Context, id string) (*Receipt, error) {
	return s.receipts.Get(ctx, id)
}

// UploadURL allocates a storage key for the receipt image, records it, and
// returns a presigned URL the client can PUT the file to.
func (s *Service) UploadURL(ctx context.Context, id, contentType string) (string, error) {
	r, err := s.receipts.Get(ctx, id)
	if err != nil {
		return "", err
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := upload.Key(r.Owner, r.ID)
	url, err := s.signer.UploadURL(ctx, key, contentType)
	if err != nil {
		return "", errors.Wrap(err, "sign upload url")
	}

	if err := s.receipts.UpdateStorageKey(ctx, r.ID, key); err != nil {
		return "", errors.Wrap(err, "store upload key")
	}
	return url, nil
}

// Process runs extraction against the uploaded image and replaces the
// receipt's items with the result.
func (s *Service) Process(ctx context.Context, id string) (*Receipt, error) {
	r, err := s.receipts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.StorageKey == "" {
		return nil, ErrNotUploaded
	}

	extracted, err := s.extractor.Extract(ctx, s.cfg.Bucket, r.StorageKey)
	if err != nil {
		return nil, errors.Wrap(err, "extract line items")
	}

	items := make([]Item, len(extracted))
	for i, e := range extracted {
		items[i] = Item{
			ID:          uuid.New().String(),
			ReceiptID:   r.ID,
			Description: e.Description,
			Quantity:    e.Quantity,
			UnitPrice:   e.UnitPrice,
			TotalPrice:  e.TotalPrice,
			Category:    e.Category,
		}
	}

	if err := s.receipts.ReplaceItems(ctx, r.ID, items); err != nil {
		return nil, errors.Wrap(err, "replace items")
	}
	if err := s.receipts.SetStatus(ctx, r.ID, StatusProcessed); err != nil {
		return nil, errors.Wrap(err, "set status")
	}

	r.Items = items
	r.Status = StatusProcessed
	return r, nil
}

// SaveSelections replaces one participant's selections for a receipt.
// Picks must reference items on the receipt; non-positive quantities are
// dropped, so an all-zero submission clears the participant's selections.
func (s *Service) SaveSelections(ctx context.Context, receiptID, participant string, picks []Pick) error {
	r, err := s.receipts.Get(ctx, receiptID)
	if err != nil {
		return err
	}

	onReceipt := make(map[string]struct{}, len(r.Items))
	for _, it := range r.Items {
		onReceipt[it.ID] = struct{}{}
	}

	selections := make([]Selection, 0, len(picks))
	for _, p := range picks {
		if _, ok := onReceipt[p.ItemID]; !ok {
			return &UnknownItemError{ItemID: p.ItemID}
		}
		if p.Quantity <= 0 {
			continue
		}
		selections = append(selections, Selection{
			ReceiptID:   r.ID,
			ItemID:      p.ItemID,
			Participant: participant,
			Quantity:    p.Quantity,
		})
	}

	if err := s.selections.Replace(ctx, r.ID, participant, selections); err != nil {
		return errors.Wrap(err, "replace selections")
	}
	return nil
}

// ComputeSplit computes shares from a consistent snapshot of the receipt's
// items and all saved selections, persists them, and returns them. A
// receipt with nothing selected yields an empty result, not an error.
func (s *Service) ComputeSplit(ctx context.Context, receiptID string) ([]Share, error) {
	r, selections, err := s.receipts.Snapshot(ctx, receiptID)
	if err != nil {
		return nil, err
	}

	items := make([]split.LineItem, len(r.Items))
	for i, it := range r.Items {
		items[i] = split.LineItem{
			ID:         it.ID,
			TotalPrice: it.TotalPrice,
			Quantity:   it.Quantity,
		}
	}
	picks := make([]split.Selection, len(selections))
	for i, sl := range selections {
		picks[i] = split.Selection{
			Participant: sl.Participant,
			ItemID:      sl.ItemID,
			Quantity:    sl.Quantity,
		}
	}

	computed := split.Compute(items, picks, r.TaxRate, r.TipRate)

	shares := make([]Share, len(computed))
	for i, c := range computed {
		shares[i] = Share{
			ReceiptID:   r.ID,
			Participant: c.Participant,
			Subtotal:    c.Subtotal,
			Tax:         c.Tax,
			Tip:         c.Tip,
			Total:       c.Total,
		}
	}

	if err := s.shares.Replace(ctx, r.ID, shares); err != nil {
		return nil, errors.Wrap(err, "replace shares")
	}
	if len(shares) > 0 && r.Status == StatusProcessed {
		if err := s.receipts.SetStatus(ctx, r.ID, StatusSplitting); err != nil {
			return nil, errors.Wrap(err, "set status")
		}
	}
	return shares, nil
}
