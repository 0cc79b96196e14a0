package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tabsplit/tabsplit/internal/domain/receipt"
)

const listSharesSQL = `SELECT receipt_id, participant, subtotal, tax, tip, total, settled, settled_at
	FROM split_shares WHERE receipt_id = $1 ORDER BY participant`

var _ receipt.ShareRepository = (*ShareRepository)(nil)

// ShareRepository implements receipt.ShareRepository backed by PostgreSQL.
type ShareRepository struct {
	pool *pgxpool.Pool
}

// NewShareRepository returns a ShareRepository that uses the given pool.
func NewShareRepository(pool *pgxpool.Pool) *ShareRepository {
	return &ShareRepository{pool: pool}
}

// Replace swaps all persisted shares for a receipt. Recomputing a split
// always overwrites the previous result wholesale.
func (r *ShareRepository) Replace(ctx context.Context, receiptID string, shares []receipt.Share) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM split_shares WHERE receipt_id = $1`, receiptID); err != nil {
		return errors.Wrapf(err, "delete shares for %q", receiptID)
	}

	for _, sh := range shares {
		_, err := tx.Exec(ctx,
			`INSERT INTO split_shares (receipt_id, participant, subtotal, tax, tip, total)
				VALUES ($1, $2, $3, $4, $5, $6)`,
			receiptID, sh.Participant, sh.Subtotal, sh.Tax, sh.Tip, sh.Total,
		)
		if err != nil {
			return errors.Wrapf(err, "insert share for %q", sh.Participant)
		}
	}

	return tx.Commit(ctx)
}

// ListByReceipt returns the persisted shares for a receipt.
func (r *ShareRepository) ListByReceipt(ctx context.Context, receiptID string) ([]receipt.Share, error) {
	rows, err := r.pool.Query(ctx, listSharesSQL, receiptID)
	if err != nil {
		return nil, errors.Wrapf(err, "list shares for %q", receiptID)
	}
	return pgx.CollectRows(rows, scanShare)
}

func scanShare(row pgx.CollectableRow) (receipt.Share, error) {
	var sh receipt.Share
	err := row.Scan(
		&sh.ReceiptID, &sh.Participant, &sh.Subtotal, &sh.Tax, &sh.Tip, &sh.Total,
		&sh.Settled, &sh.SettledAt,
	)
	return sh, err
}
