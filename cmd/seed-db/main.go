// Command seed-db runs migrations and seeds a demo receipt with processed
// line items and a couple of saved selections, so a fresh database has
// something to split against.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tabsplit/tabsplit/internal/domain/receipt"
	"github.com/tabsplit/tabsplit/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		owner       string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&owner, "owner", "demo@example.com", "owner of the seeded receipt")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, owner); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, owner string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	receipts := postgres.NewReceiptRepository(pool)
	selections := postgres.NewSelectionRepository(pool)

	rec := &receipt.Receipt{
		ID:       uuid.New().String(),
		Owner:    owner,
		Merchant: "Demo Diner",
		Currency: "USD",
		TaxRate:  decimal.RequireFromString("0.0925"),
		TipRate:  decimal.RequireFromString("0.18"),
		Status:   receipt.StatusUploaded,
	}
	if err := receipts.Create(ctx, rec); err != nil {
		return errors.Wrap(err, "create receipt")
	}

	slog.Info("created receipt", slog.String("id", rec.ID), slog.String("owner", owner))

	items := []receipt.Item{
		{ID: uuid.New().String(), ReceiptID: rec.ID, Description: "Burger", Quantity: 1,
			UnitPrice: decimal.RequireFromString("12.50"), TotalPrice: decimal.RequireFromString("12.50")},
		{ID: uuid.New().String(), ReceiptID: rec.ID, Description: "Fries", Quantity: 1,
			UnitPrice: decimal.RequireFromString("4.00"), TotalPrice: decimal.RequireFromString("4.00")},
		{ID: uuid.New().String(), ReceiptID: rec.ID, Description: "Soda", Quantity: 2,
			UnitPrice: decimal.RequireFromString("3.00"), TotalPrice: decimal.RequireFromString("6.00")},
	}
	if err := receipts.ReplaceItems(ctx, rec.ID, items); err != nil {
		return errors.Wrap(err, "seed items")
	}
	if err := receipts.SetStatus(ctx, rec.ID, receipt.StatusProcessed); err != nil {
		return errors.Wrap(err, "mark processed")
	}

	slog.Info("seeded items", slog.Int("count", len(items)))

	// Two participants sharing the soda, so a split is computable right away.
	seeded := map[string][]receipt.Selection{
		"alice@example.com": {
			{ReceiptID: rec.ID, ItemID: items[0].ID, Participant: "alice@example.com", Quantity: 1},
			{ReceiptID: rec.ID, ItemID: items[2].ID, Participant: "alice@example.com", Quantity: 1},
		},
		"bob@example.com": {
			{ReceiptID: rec.ID, ItemID: items[1].ID, Participant: "bob@example.com", Quantity: 1},
			{ReceiptID: rec.ID, ItemID: items[2].ID, Participant: "bob@example.com", Quantity: 1},
		},
	}
	for participant, sel := range seeded {
		if err := selections.Replace(ctx, rec.ID, participant, sel); err != nil {
			return errors.Wrapf(err, "seed selections for %s", participant)
		}
		slog.Info("seeded selections", slog.String("participant", participant), slog.Int("count", len(sel)))
	}

	return nil
}
