// Package notify delivers invite notifications. The log implementation
// stands in for a real mail transport and surfaces the link in server logs,
// mirroring how the invite link is also returned to the inviting client.
package notify

import (
	"context"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/tabsplit/tabsplit/internal/domain/invite"
)

// Log is an invite.Notifier that writes the invite link to the request log.
type Log struct{}

var _ invite.Notifier = Log{}

// InviteCreated logs the invite link instead of e-mailing it.
func (Log) InviteCreated(ctx context.Context, inv invite.Invite, link string) error {
	zctx.From(ctx).Info("invite created",
		zap.String("receipt_id", inv.ReceiptID),
		zap.String("invitee", inv.Email),
		zap.String("link", link),
	)
	return nil
}
