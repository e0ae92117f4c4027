package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/bizbooks/db"
	"github.com/tinoosan/bizbooks/internal/config"
	"github.com/tinoosan/bizbooks/internal/fbr"
	httpapi "github.com/tinoosan/bizbooks/internal/httpapi/v1"
	"github.com/tinoosan/bizbooks/internal/ledger"
	"github.com/tinoosan/bizbooks/internal/service/account"
	"github.com/tinoosan/bizbooks/internal/storage/memory"
	pgstore "github.com/tinoosan/bizbooks/internal/storage/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := buildLogger(cfg)
	slog.SetDefault(logger)

	var store httpapi.Store
	var closeFn func()
	if cfg.DatabaseURL != "" {
		pg, err := pgstore.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "err", err)
			os.Exit(1)
		}
		closeFn = pg.Close
		if err := pg.Migrate(ctx, db.Schema); err != nil {
			logger.Error("migration failed", "err", err)
			os.Exit(1)
		}
		store = pg
		logger.Info("storage backend: postgres")
	} else {
		store = memory.New()
		logger.Info("storage backend: memory")
	}

	// The in-memory store is empty on every start, so it is always seeded.
	if cfg.DevSeed || cfg.DatabaseURL == "" {
		if err := devSeed(ctx, logger, store, cfg.DefaultCurrency); err != nil {
			logger.Error("dev seed failed", "err", err)
		}
	}

	opts := httpapi.Options{Seller: cfg.FBR.Seller, DefaultCurrency: cfg.DefaultCurrency}
	if cfg.FBR.Enabled() {
		opts.Submitter = fbr.New(fbr.Config{
			URL:        cfg.FBR.URL,
			Token:      cfg.FBR.Token,
			Timeout:    cfg.FBR.Timeout,
			ScenarioID: cfg.FBR.ScenarioID,
			Seller:     cfg.FBR.Seller,
		}, nil, logger.With("component", "fbr"))
		logger.Info("fbr submission enabled", "url", cfg.FBR.URL)
	} else {
		logger.Info("fbr submission disabled")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.New(store, opts, logger).Handler(),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("bizbooks listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
	case err := <-errCh:
		logger.Error("server error", "err", err)
	}
	if closeFn != nil {
		closeFn()
	}
}

// devSeed creates an org with the default chart so the API can be tried
// straight away.
func devSeed(ctx context.Context, l *slog.Logger, store httpapi.Store, currency string) error {
	org := uuid.New()
	accs, err := account.New(store, store).EnsureSystemAccounts(ctx, org, currency)
	if err != nil {
		return err
	}
	ids := map[string]string{}
	for role, a := range accs {
		ids[string(role)] = a.ID.String()
	}
	l.Info("DEV seed", "org_id", org.String(), "currency", currency, "accounts", ids)
	printDevSeedBanner(org, accs)
	return nil
}

// printDevSeedBanner prints a simple banner to stdout for easy copy/paste of IDs
func printDevSeedBanner(org uuid.UUID, accs map[ledger.AccountRole]ledger.Account) {
	roles := make([]string, 0, len(accs))
	for role := range accs {
		roles = append(roles, string(role))
	}
	sort.Strings(roles)
	fmt.Println("==================== DEV SEED ====================")
	fmt.Printf("X-Org-ID: %s\n", org.String())
	for _, role := range roles {
		a := accs[ledger.AccountRole(role)]
		fmt.Printf("%-20s %s  %s\n", role+":", a.Code, a.ID.String())
	}
	fmt.Println("==================================================")
}

func buildLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
