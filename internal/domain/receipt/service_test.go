package receipt

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabsplit/tabsplit/internal/extract"
)

// --- Mock implementations ---

type mockReceiptRepo struct {
	byID       map[string]*Receipt
	selections []Selection

	created    *Receipt
	storageKey string
	lastStatus Status
	lastItems  []Item
}

func (m *mockReceiptRepo) Create(_ context.Context, r *Receipt) error {
	m.created = r
	if m.byID == nil {
		m.byID = make(map[string]*Receipt)
	}
	m.byID[r.ID] = r
	return nil
}

func (m *mockReceiptRepo) Get(_ context.Context, id string) (*Receipt, error) {
	r, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

func (m *mockReceiptRepo) UpdateStorageKey(_ context.Context, id, key string) error {
	m.storageKey = key
	if r, ok := m.byID[id]; ok {
		r.StorageKey = key
	}
	return nil
}

func (m *mockReceiptRepo) SetStatus(_ context.Context, id string, status Status) error {
	m.lastStatus = status
	if r, ok := m.byID[id]; ok {
		r.Status = status
	}
	return nil
}

func (m *mockReceiptRepo) ReplaceItems(_ context.Context, id string, items []Item) error {
	m.lastItems = items
	if r, ok := m.byID[id]; ok {
		r.Items = items
	}
	return nil
}

func (m *mockReceiptRepo) Snapshot(ctx context.Context, id string) (*Receipt, []Selection, error) {
	r, err := m.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return r, m.selections, nil
}

type mockSelectionRepo struct {
	lastParticipant string
	lastSelections  []Selection
}

func (m *mockSelectionRepo) Replace(_ context.Context, _ string, participant string, selections []Selection) error {
	m.lastParticipant = participant
	m.lastSelections = selections
	return nil
}

func (m *mockSelectionRepo) ListByReceipt(_ context.Context, _ string) ([]Selection, error) {
	return m.lastSelections, nil
}

type mockShareRepo struct {
	lastShares []Share
}

func (m *mockShareRepo) Replace(_ context.Context, _ string, shares []Share) error {
	m.lastShares = shares
	return nil
}

func (m *mockShareRepo) ListByReceipt(_ context.Context, _ string) ([]Share, error) {
	return m.lastShares, nil
}

type mockExtractor struct {
	items []extract.LineItem
	err   error

	bucket string
	key    string
}

func (m *mockExtractor) Extract(_ context.Context, bucket, key string) ([]extract.LineItem, error) {
	m.bucket = bucket
	m.key = key
	return m.items, m.err
}

type mockSigner struct {
	lastKey         string
	lastContentType string
}

func (m *mockSigner) UploadURL(_ context.Context, key, contentType string) (string, error) {
	m.lastKey = key
	m.lastContentType = contentType
	return "https://uploads.test/" + key, nil
}

// --- Helpers ---

type testDeps struct {
	receipts   *mockReceiptRepo
	selections *mockSelectionRepo
	shares     *mockShareRepo
	extractor  *mockExtractor
	signer     *mockSigner
}

func newTestService(deps *testDeps) *Service {
	return NewService(deps.receipts, deps.selections, deps.shares, deps.extractor, deps.signer, ServiceConfig{
		Bucket:         "tabsplit-receipts",
		DefaultTaxRate: decimal.RequireFromString("0.0925"),
		DefaultTipRate: decimal.RequireFromString("0.18"),
	})
}

func seedReceipt(deps *testDeps, r *Receipt) *Receipt {
	if deps.receipts.byID == nil {
		deps.receipts.byID = make(map[string]*Receipt)
	}
	deps.receipts.byID[r.ID] = r
	return r
}

func lineItem(desc string, qty int, total string) extract.LineItem {
	return extract.LineItem{
		Description: desc,
		Quantity:    qty,
		TotalPrice:  decimal.RequireFromString(total),
	}
}

// --- Tests ---

func TestCreate_Defaults(t *testing.T) {
	deps := &testDeps{receipts: &mockReceiptRepo{}}
	svc := newTestService(deps)

	rec, err := svc.Create(context.Background(), CreateRequest{Owner: "alice@example.com"})
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "USD", rec.Currency)
	assert.Equal(t, StatusUploaded, rec.Status)
	assert.True(t, rec.TaxRate.Equal(decimal.RequireFromString("0.0925")))
	assert.True(t, rec.TipRate.Equal(decimal.RequireFromString("0.18")))
	assert.Same(t, rec, deps.receipts.created)
}

func TestCreate_ExplicitRates(t *testing.T) {
	deps := &testDeps{receipts: &mockReceiptRepo{}}
	svc := newTestService(deps)

	taxRate := decimal.RequireFromString("0.05")
	tipRate := decimal.Zero
	rec, err := svc.Create(context.Background(), CreateRequest{
		Owner:    "alice@example.com",
		Currency: "EUR",
		TaxRate:  &taxRate,
		TipRate:  &tipRate,
	})
	require.NoError(t, err)

	assert.Equal(t, "EUR", rec.Currency)
	assert.True(t, rec.TaxRate.Equal(taxRate))
	assert.True(t, rec.TipRate.IsZero())
}

func TestGet_NotFound(t *testing.T) {
	deps := &testDeps{receipts: &mockReceiptRepo{}}
	svc := newTestService(deps)

	_, err := svc.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUploadURL_AllocatesAndStoresKey(t *testing.T) {
	deps := &testDeps{receipts: &mockReceiptRepo{}, signer: &mockSigner{}}
	svc := newTestService(deps)
	seedReceipt(deps, &Receipt{ID: "r1", Owner: "alice@example.com"})

	url, err := svc.UploadURL(context.Background(), "r1", "image/jpeg")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(deps.signer.lastKey, "receipts/alice@example.com/r1/"))
	assert.Equal(t, "image/jpeg", deps.signer.lastContentType)
	assert.Equal(t, deps.signer.lastKey, deps.receipts.storageKey)
	assert.Contains(t, url, deps.signer.lastKey)
}

func TestUploadURL_DefaultContentType(t *testing.T) {
	deps := &testDeps{receipts: &mockReceiptRepo{}, signer: &mockSigner{}}
	svc := newTestService(deps)
	seedReceipt(deps, &Receipt{ID: "r1", Owner: "alice@example.com"})

	_, err := svc.UploadURL(context.Background(), "r1", "")
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", deps.signer.lastContentType)
}

func TestProcess_RequiresUpload(t *testing.T) {
	deps := &testDeps{receipts: &mockReceiptRepo{}, extractor: &mockExtractor{}}
	svc := newTestService(deps)
	seedReceipt(deps, &Receipt{ID: "r1", Status: StatusUploaded})

	_, err := svc.Process(context.Background(), "r1")
	require.ErrorIs(t, err, ErrNotUploaded)
}

func TestProcess_ReplacesItems(t *testing.T) {
	deps := &testDeps{
		receipts: &mockReceiptRepo{},
		extractor: &mockExtractor{items: []extract.LineItem{
			lineItem("Burger", 1, "12.50"),
			lineItem("Soda", 2, "6.00"),
		}},
	}
	svc := newTestService(deps)
	seedReceipt(deps, &Receipt{ID: "r1", StorageKey: "receipts/a/r1/blob", Status: StatusUploaded})

	rec, err := svc.Process(context.Background(), "r1")
	require.NoError(t, err)

	assert.Equal(t, "tabsplit-receipts", deps.extractor.bucket)
	assert.Equal(t, "receipts/a/r1/blob", deps.extractor.key)
	assert.Equal(t, StatusProcessed, rec.Status)

	require.Len(t, deps.receipts.lastItems, 2)
	for _, it := range deps.receipts.lastItems {
		assert.NotEmpty(t, it.ID)
		assert.Equal(t, "r1", it.ReceiptID)
	}
	assert.Equal(t, "Burger", deps.receipts.lastItems[0].Description)
	assert.Equal(t, 2, deps.receipts.lastItems[1].Quantity)
}

func TestSaveSelections_UnknownItem(t *testing.T) {
	deps := &testDeps{receipts: &mockReceiptRepo{}, selections: &mockSelectionRepo{}}
	svc := newTestService(deps)
	seedReceipt(deps, &Receipt{ID: "r1", Items: []Item{{ID: "i1"}}})

	err := svc.SaveSelections(context.Background(), "r1", "alice", []Pick{{ItemID: "ghost", Quantity: 1}})

	var unknownErr *UnknownItemError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "ghost", unknownErr.ItemID)
}

func TestSaveSelections_DropsNonPositiveQuantities(t *testing.T) {
	deps := &testDeps{receipts: &mockReceiptRepo{}, selections: &mockSelectionRepo{}}
	svc := newTestService(deps)
	seedReceipt(deps, &Receipt{ID: "r1", Items: []Item{{ID: "i1"}, {ID: "i2"}}})

	err := svc.SaveSelections(context.Background(), "r1", "alice", []Pick{
		{ItemID: "i1", Quantity: 2},
		{ItemID: "i2", Quantity: 0},
	})
	require.NoError(t, err)

	assert.Equal(t, "alice", deps.selections.lastParticipant)
	require.Len(t, deps.selections.lastSelections, 1)
	assert.Equal(t, "i1", deps.selections.lastSelections[0].ItemID)
	assert.Equal(t, 2, deps.selections.lastSelections[0].Quantity)
}

func TestSaveSelections_AllZeroClears(t *testing.T) {
	deps := &testDeps{receipts: &mockReceiptRepo{}, selections: &mockSelectionRepo{}}
	svc := newTestService(deps)
	seedReceipt(deps, &Receipt{ID: "r1", Items: []Item{{ID: "i1"}}})

	err := svc.SaveSelections(context.Background(), "r1", "alice", []Pick{{ItemID: "i1", Quantity: 0}})
	require.NoError(t, err)
	assert.Empty(t, deps.selections.lastSelections)
}

func TestComputeSplit_PersistsShares(t *testing.T) {
	deps := &testDeps{
		receipts: &mockReceiptRepo{
			selections: []Selection{
				{ReceiptID: "r1", ItemID: "i1", Participant: "alice", Quantity: 1},
				{ReceiptID: "r1", ItemID: "i2", Participant: "bob", Quantity: 1},
			},
		},
		shares: &mockShareRepo{},
	}
	svc := newTestService(deps)
	seedReceipt(deps, &Receipt{
		ID:      "r1",
		Status:  StatusProcessed,
		TaxRate: decimal.RequireFromString("0.10"),
		TipRate: decimal.RequireFromString("0.20"),
		Items: []Item{
			{ID: "i1", Quantity: 1, TotalPrice: decimal.RequireFromString("10.00")},
			{ID: "i2", Quantity: 1, TotalPrice: decimal.RequireFromString("20.00")},
		},
	})

	shares, err := svc.ComputeSplit(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, shares, 2)

	assert.Equal(t, shares, deps.shares.lastShares)
	assert.Equal(t, StatusSplitting, deps.receipts.lastStatus)

	assert.Equal(t, "alice", shares[0].Participant)
	assert.True(t, shares[0].Subtotal.Equal(decimal.RequireFromString("10.00")), "got %s", shares[0].Subtotal)
	assert.True(t, shares[0].Tax.Equal(decimal.RequireFromString("1.00")), "got %s", shares[0].Tax)
	assert.True(t, shares[0].Tip.Equal(decimal.RequireFromString("2.00")), "got %s", shares[0].Tip)
	assert.True(t, shares[0].Total.Equal(decimal.RequireFromString("13.00")), "got %s", shares[0].Total)

	assert.Equal(t, "bob", shares[1].Participant)
	assert.True(t, shares[1].Total.Equal(decimal.RequireFromString("26.00")), "got %s", shares[1].Total)
}

func TestComputeSplit_NothingSelected(t *testing.T) {
	deps := &testDeps{receipts: &mockReceiptRepo{}, shares: &mockShareRepo{}}
	svc := newTestService(deps)
	seedReceipt(deps, &Receipt{
		ID:     "r1",
		Status: StatusProcessed,
		Items:  []Item{{ID: "i1", Quantity: 1, TotalPrice: decimal.RequireFromString("10.00")}},
	})

	shares, err := svc.ComputeSplit(context.Background(), "r1")
	require.NoError(t, err)

	assert.Empty(t, shares)
	// Status stays processed when there is nothing to split.
	assert.NotEqual(t, StatusSplitting, deps.receipts.byID["r1"].Status)
}

func TestComputeSplit_NotFound(t *testing.T) {
	deps := &testDeps{receipts: &mockReceiptRepo{}, shares: &mockShareRepo{}}
	svc := newTestService(deps)

	_, err := svc.ComputeSplit(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}
