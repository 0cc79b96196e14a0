// Package invite lets receipt owners bring participants in through
// tokenized links: an invitee needs only the link, not an account, to
// select the items they consumed.
package invite

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/go-faster/errors"
)

// Sentinel errors for invite validation.
var (
	// ErrNotFound is returned when a token matches no invite.
	ErrNotFound = errors.New("invite not found")
	// ErrInvalidEmail is returned for addresses without a domain part.
	ErrInvalidEmail = errors.New("invalid e-mail address")
)

// BlockedDomainError indicates an invitee address uses a disposable-mail
// domain from the blocklist.
type BlockedDomainError struct {
	Email string
}

func (e *BlockedDomainError) Error() string {
	return "disposable e-mail domain not allowed: " + e.Email
}

// Status tracks whether an invitee has responded.
type Status string

const (
	// StatusPending means the invite was sent but not yet used.
	StatusPending Status = "pending"
	// StatusAccepted means the invitee submitted selections at least once.
	StatusAccepted Status = "accepted"
)

// Invite is one tokenized link granting an invitee access to a receipt.
type Invite struct {
	Token     string
	ReceiptID string
	Email     string
	Status    Status
	CreatedAt time.Time
}

// Repository defines persistence operations for invites.
type Repository interface {
	Create(ctx context.Context, inv *Invite) error
	GetByToken(ctx context.Context, token string) (*Invite, error)
	MarkAccepted(ctx context.Context, token string) error
}

// Notifier delivers invite links to invitees. Delivery transport (SMTP,
// webhook, ...) is an external concern behind this interface.
type Notifier interface {
	InviteCreated(ctx context.Context, inv Invite, link string) error
}

// NewToken returns a 32-character hex token from 16 random bytes.
func NewToken() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", errors.Wrap(err, "read random")
	}
	return hex.EncodeToString(buf[:]), nil
}
