// Package app wires configuration, storage, domain services, and the HTTP
// server into a running process.
package app

import (
	"context"
	"net/http"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/tabsplit/tabsplit/internal/domain/invite"
	"github.com/tabsplit/tabsplit/internal/domain/receipt"
	"github.com/tabsplit/tabsplit/internal/extract"
	"github.com/tabsplit/tabsplit/internal/handler"
	"github.com/tabsplit/tabsplit/internal/notify"
	"github.com/tabsplit/tabsplit/internal/storage/postgres"
	"github.com/tabsplit/tabsplit/internal/upload"
	"github.com/tabsplit/tabsplit/pkg/emailcheck"
	"github.com/tabsplit/tabsplit/pkg/health"
	"github.com/tabsplit/tabsplit/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr), zap.String("extract_mode", cfg.Extract.Mode))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	receiptRepo := postgres.NewReceiptRepository(pool)
	selectionRepo := postgres.NewSelectionRepository(pool)
	shareRepo := postgres.NewShareRepository(pool)
	inviteRepo := postgres.NewInviteRepository(pool)

	// Extraction backend and upload signer.
	var (
		extractor extract.Extractor
		signer    upload.URLSigner
	)
	switch cfg.Extract.Mode {
	case "live":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Extract.Region))
		if err != nil {
			return errors.Wrap(err, "load aws config")
		}
		extractor = extract.NewTextract(awsCfg)
		signer = upload.NewS3Signer(awsCfg, cfg.Extract.Bucket, cfg.Upload.Expiry)
	default:
		extractor = extract.Stub{}
		signer = upload.StaticSigner{BaseURL: cfg.PublicBaseURL + "/uploads"}
	}

	// Invite domain screening.
	var blocklist *emailcheck.Blocklist
	if cfg.BlocklistPath != "" {
		blocklist, err = emailcheck.Load(cfg.BlocklistPath)
		if err != nil {
			return errors.Wrap(err, "load e-mail blocklist")
		}
		lg.Info("Loaded e-mail domain blocklist", zap.String("path", cfg.BlocklistPath))
	}

	// Domain services.
	taxRate, tipRate, err := cfg.Rates()
	if err != nil {
		return err
	}
	receiptSvc := receipt.NewService(receiptRepo, selectionRepo, shareRepo, extractor, signer, receipt.ServiceConfig{
		Bucket:         cfg.Extract.Bucket,
		DefaultTaxRate: taxRate,
		DefaultTipRate: tipRate,
	})
	inviteSvc := invite.NewService(inviteRepo, receiptRepo, notify.Log{}, blocklist, cfg.PublicBaseURL)

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", handler.NewHandler(receiptSvc, inviteSvc).Routes())

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("tabsplit-api", m),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
