package invite

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/tabsplit/tabsplit/internal/domain/receipt"
	"github.com/tabsplit/tabsplit/pkg/emailcheck"
)

// notifyConcurrency caps parallel notification deliveries per request.
const notifyConcurrency = 4

// Service issues invites and resolves invite tokens back to receipts.
type Service struct {
	invites   Repository
	receipts  receipt.Repository
	notifier  Notifier
	blocklist *emailcheck.Blocklist
	baseURL   string
}

// NewService creates an invite Service. blocklist may be nil, in which case
// no domain screening happens. baseURL is the public URL invite links are
// built against.
func NewService(
	invites Repository,
	receipts receipt.Repository,
	notifier Notifier,
	blocklist *emailcheck.Blocklist,
	baseURL string,
) *Service {
	return &Service{
		invites:   invites,
		receipts:  receipts,
		notifier:  notifier,
		blocklist: blocklist,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

// Create validates the invitee addresses, persists one invite per address,
// and fans notification delivery out concurrently. All addresses are
// validated before anything is persisted, so a bad address late in the list
// does not leave earlier invites half-created.
func (s *Service) Create(ctx context.Context, receiptID string, emails []string) ([]Invite, error) {
	if _, err := s.receipts.Get(ctx, receiptID); err != nil {
		return nil, err
	}

	normalized := make([]string, len(emails))
	for i, raw := range emails {
		email := strings.ToLower(strings.TrimSpace(raw))
		if emailcheck.Domain(email) == "" {
			return nil, ErrInvalidEmail
		}
		if s.blocklist.Blocked(email) {
			return nil, &BlockedDomainError{Email: email}
		}
		normalized[i] = email
	}

	invites := make([]Invite, 0, len(normalized))
	for _, email := range normalized {
		token, err := NewToken()
		if err != nil {
			return nil, err
		}
		inv := Invite{
			Token:     token,
			ReceiptID: receiptID,
			Email:     email,
			Status:    StatusPending,
		}
		if err := s.invites.Create(ctx, &inv); err != nil {
			return nil, errors.Wrapf(err, "create invite for %s", email)
		}
		invites = append(invites, inv)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(notifyConcurrency)
	for _, inv := range invites {
		g.Go(func() error {
			return s.notifier.InviteCreated(gctx, inv, s.Link(inv.Token))
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "notify invitees")
	}

	return invites, nil
}

// Link builds the public selection link for a token.
func (s *Service) Link(token string) string {
	return s.baseURL + "/invites/" + token
}

// Resolve returns the invite for a token together with its receipt.
func (s *Service) Resolve(ctx context.Context, token string) (*Invite, *receipt.Receipt, error) {
	inv, err := s.invites.GetByToken(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	r, err := s.receipts.Get(ctx, inv.ReceiptID)
	if err != nil {
		return nil, nil, err
	}
	return inv, r, nil
}

// Accept marks the invite as used.
func (s *Service) Accept(ctx context.Context, token string) error {
	return s.invites.MarkAccepted(ctx, token)
}
