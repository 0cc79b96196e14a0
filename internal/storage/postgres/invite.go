package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tabsplit/tabsplit/internal/domain/invite"
)

var _ invite.Repository = (*InviteRepository)(nil)

// InviteRepository implements invite.Repository backed by PostgreSQL.
type InviteRepository struct {
	pool *pgxpool.Pool
}

// NewInviteRepository returns an InviteRepository that uses the given pool.
func NewInviteRepository(pool *pgxpool.Pool) *InviteRepository {
	return &InviteRepository{pool: pool}
}

// Create persists a new invite.
func (r *InviteRepository) Create(ctx context.Context, inv *invite.Invite) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO invites (token, receipt_id, invitee_email, status) VALUES ($1, $2, $3, $4)`,
		inv.Token, inv.ReceiptID, inv.Email, string(inv.Status),
	)
	if err != nil {
		return errors.Wrapf(err, "insert invite for %q", inv.Email)
	}
	return nil
}

// GetByToken resolves an invite token.
func (r *InviteRepository) GetByToken(ctx context.Context, token string) (*invite.Invite, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT token, receipt_id, invitee_email, status, created_at FROM invites WHERE token = $1`,
		token,
	)
	if err != nil {
		return nil, errors.Wrap(err, "get invite")
	}

	inv, err := pgx.CollectExactlyOneRow(rows, scanInvite)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, invite.ErrNotFound
		}
		return nil, errors.Wrap(err, "get invite")
	}
	return &inv, nil
}

// MarkAccepted flips the invite status to accepted.
func (r *InviteRepository) MarkAccepted(ctx context.Context, token string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE invites SET status = $2 WHERE token = $1`,
		token, string(invite.StatusAccepted),
	)
	if err != nil {
		return errors.Wrap(err, "mark invite accepted")
	}
	if tag.RowsAffected() == 0 {
		return invite.ErrNotFound
	}
	return nil
}

func scanInvite(row pgx.CollectableRow) (invite.Invite, error) {
	var (
		inv    invite.Invite
		status string
	)
	err := row.Scan(&inv.Token, &inv.ReceiptID, &inv.Email, &status, &inv.CreatedAt)
	inv.Status = invite.Status(status)
	return inv, err
}
