package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tabsplit/tabsplit/internal/domain/receipt"
)

var _ receipt.SelectionRepository = (*SelectionRepository)(nil)

// SelectionRepository implements receipt.SelectionRepository backed by
// PostgreSQL.
type SelectionRepository struct {
	pool *pgxpool.Pool
}

// NewSelectionRepository returns a SelectionRepository that uses the given
// pool.
func NewSelectionRepository(pool *pgxpool.Pool) *SelectionRepository {
	return &SelectionRepository{pool: pool}
}

// Replace swaps one participant's selections for a receipt in a single
// transaction, so a re-submission fully overwrites the previous one.
func (r *SelectionRepository) Replace(ctx context.Context, receiptID, participant string, selections []receipt.Selection) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`DELETE FROM selections WHERE receipt_id = $1 AND participant = $2`,
		receiptID, participant,
	)
	if err != nil {
		return errors.Wrapf(err, "delete selections for %q", participant)
	}

	for _, sel := range selections {
		_, err := tx.Exec(ctx,
			`INSERT INTO selections (receipt_id, item_id, participant, quantity) VALUES ($1, $2, $3, $4)`,
			sel.ReceiptID, sel.ItemID, sel.Participant, sel.Quantity,
		)
		if err != nil {
			return errors.Wrapf(err, "insert selection for item %q", sel.ItemID)
		}
	}

	return tx.Commit(ctx)
}

// ListByReceipt returns all selections for a receipt in submission order.
func (r *SelectionRepository) ListByReceipt(ctx context.Context, receiptID string) ([]receipt.Selection, error) {
	rows, err := r.pool.Query(ctx, listSelectionsSQL, receiptID)
	if err != nil {
		return nil, errors.Wrapf(err, "list selections for %q", receiptID)
	}
	return pgx.CollectRows(rows, scanSelection)
}
