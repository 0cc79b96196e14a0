package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tabsplit/tabsplit/internal/domain/receipt"
)

const (
	getReceiptSQL = `SELECT id, owner, merchant, currency, storage_key, tax_rate, tip_rate, status, created_at
		FROM receipts WHERE id = $1`

	listItemsSQL = `SELECT id, receipt_id, description, quantity, unit_price, total_price, category
		FROM receipt_items WHERE receipt_id = $1 ORDER BY id`

	listSelectionsSQL = `SELECT receipt_id, item_id, participant, quantity
		FROM selections WHERE receipt_id = $1 ORDER BY created_at, item_id`

	insertReceiptSQL = `INSERT INTO receipts (id, owner, merchant, currency, storage_key, tax_rate, tip_rate, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	insertItemSQL = `INSERT INTO receipt_items (id, receipt_id, description, quantity, unit_price, total_price, category)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
)

var _ receipt.Repository = (*ReceiptRepository)(nil)

// ReceiptRepository implements receipt.Repository backed by PostgreSQL.
type ReceiptRepository struct {
	pool *pgxpool.Pool
}

// NewReceiptRepository returns a ReceiptRepository that uses the given pool.
func NewReceiptRepository(pool *pgxpool.Pool) *ReceiptRepository {
	return &ReceiptRepository{pool: pool}
}

// Create persists a new receipt without items.
func (r *ReceiptRepository) Create(ctx context.Context, rec *receipt.Receipt) error {
	_, err := r.pool.Exec(ctx, insertReceiptSQL,
		rec.ID, rec.Owner, rec.Merchant, rec.Currency, rec.StorageKey,
		rec.TaxRate, rec.TipRate, string(rec.Status),
	)
	if err != nil {
		return errors.Wrapf(err, "insert receipt %q", rec.ID)
	}
	return nil
}

// Get returns a receipt with its items loaded.
func (r *ReceiptRepository) Get(ctx context.Context, id string) (*receipt.Receipt, error) {
	rec, err := queryReceipt(ctx, r.pool, id)
	if err != nil {
		return nil, err
	}
	items, err := queryItems(ctx, r.pool, id)
	if err != nil {
		return nil, err
	}
	rec.Items = items
	return rec, nil
}

// UpdateStorageKey records where the receipt image landed in object storage.
func (r *ReceiptRepository) UpdateStorageKey(ctx context.Context, id, key string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE receipts SET storage_key = $2 WHERE id = $1`, id, key)
	if err != nil {
		return errors.Wrapf(err, "update storage key for %q", id)
	}
	if tag.RowsAffected() == 0 {
		return receipt.ErrNotFound
	}
	return nil
}

// SetStatus advances the receipt lifecycle state.
func (r *ReceiptRepository) SetStatus(ctx context.Context, id string, status receipt.Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE receipts SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return errors.Wrapf(err, "set status for %q", id)
	}
	if tag.RowsAffected() == 0 {
		return receipt.ErrNotFound
	}
	return nil
}

// ReplaceItems swaps the receipt's items inside one transaction. Existing
// selections referencing the old items cascade away with them.
func (r *ReceiptRepository) ReplaceItems(ctx context.Context, id string, items []receipt.Item) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM receipt_items WHERE receipt_id = $1`, id); err != nil {
		return errors.Wrapf(err, "delete items for %q", id)
	}
	for _, it := range items {
		_, err := tx.Exec(ctx, insertItemSQL,
			it.ID, id, it.Description, it.Quantity, it.UnitPrice, it.TotalPrice, it.Category,
		)
		if err != nil {
			return errors.Wrapf(err, "insert item %q", it.ID)
		}
	}

	return tx.Commit(ctx)
}

// Snapshot reads the receipt, its items, and all selections in a single
// repeatable-read transaction so split computation sees a consistent view
// even while participants keep submitting selections.
func (r *ReceiptRepository) Snapshot(ctx context.Context, id string) (*receipt.Receipt, []receipt.Selection, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, nil, errors.Wrap(err, "begin snapshot tx")
	}
	defer tx.Rollback(ctx)

	rec, err := queryReceipt(ctx, tx, id)
	if err != nil {
		return nil, nil, err
	}
	items, err := queryItems(ctx, tx, id)
	if err != nil {
		return nil, nil, err
	}
	rec.Items = items

	rows, err := tx.Query(ctx, listSelectionsSQL, id)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "list selections for %q", id)
	}
	selections, err := pgx.CollectRows(rows, scanSelection)
	if err != nil {
		return nil, nil, errors.Wrap(err, "collect selections")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, errors.Wrap(err, "commit snapshot tx")
	}
	return rec, selections, nil
}

// querier is satisfied by both pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryReceipt(ctx context.Context, q querier, id string) (*receipt.Receipt, error) {
	rows, err := q.Query(ctx, getReceiptSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get receipt %q", id)
	}
	rec, err := pgx.CollectExactlyOneRow(rows, scanReceipt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, receipt.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get receipt %q", id)
	}
	return &rec, nil
}

func queryItems(ctx context.Context, q querier, receiptID string) ([]receipt.Item, error) {
	rows, err := q.Query(ctx, listItemsSQL, receiptID)
	if err != nil {
		return nil, errors.Wrapf(err, "list items for %q", receiptID)
	}
	items, err := pgx.CollectRows(rows, scanItem)
	if err != nil {
		return nil, errors.Wrap(err, "collect items")
	}
	return items, nil
}

func scanReceipt(row pgx.CollectableRow) (receipt.Receipt, error) {
	var (
		rec    receipt.Receipt
		status string
	)
	err := row.Scan(
		&rec.ID, &rec.Owner, &rec.Merchant, &rec.Currency, &rec.StorageKey,
		&rec.TaxRate, &rec.TipRate, &status, &rec.CreatedAt,
	)
	rec.Status = receipt.Status(status)
	return rec, err
}

func scanItem(row pgx.CollectableRow) (receipt.Item, error) {
	var it receipt.Item
	err := row.Scan(
		&it.ID, &it.ReceiptID, &it.Description, &it.Quantity,
		&it.UnitPrice, &it.TotalPrice, &it.Category,
	)
	return it, err
}

func scanSelection(row pgx.CollectableRow) (receipt.Selection, error) {
	var sel receipt.Selection
	err := row.Scan(&sel.ReceiptID, &sel.ItemID, &sel.Participant, &sel.Quantity)
	return sel, err
}
