package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/safarbooks/ledger/internal/books"
	"github.com/safarbooks/ledger/internal/config"
	"github.com/safarbooks/ledger/internal/errs"
	"github.com/safarbooks/ledger/internal/httpapi"
	"github.com/safarbooks/ledger/internal/service/posting"
	"github.com/safarbooks/ledger/internal/service/report"
	"github.com/safarbooks/ledger/internal/storage/memory"
	pgstore "github.com/safarbooks/ledger/internal/storage/postgres"
)

// backend is the storage surface the wiring needs: service reads, the unit of
// work, and the HTTP read side. Both stores satisfy it.
type backend interface {
	httpapi.Repository
	posting.UnitOfWork
	report.Repo
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := buildLogger(cfg)
	slog.SetDefault(logger)

	var store backend
	var closeFn func()

	if dsn := strings.TrimSpace(cfg.DatabaseURL); dsn != "" {
		pg, err := pgstore.Open(ctx, dsn)
		if err != nil {
			logger.Error("failed to connect to postgres", "err", err)
			os.Exit(1)
		}
		if err := pg.Migrate(ctx); err != nil {
			logger.Error("migrate failed", "err", err)
			pg.Close()
			os.Exit(1)
		}
		store = pg
		closeFn = pg.Close
		logger.Info("storage backend: postgres")
	} else {
		store = memory.New()
		logger.Info("storage backend: memory")
	}

	postingSvc := posting.New(store, store, cfg.LocalCurrency, cfg.ROE())
	reportSvc := report.New(store)

	if err := ensureChart(ctx, store, postingSvc); err != nil {
		logger.Error("chart of accounts setup failed", "err", err)
		os.Exit(1)
	}
	if cfg.DevSeed {
		if err := seedDev(ctx, store, postingSvc, logger); err != nil {
			logger.Error("dev seed failed", "err", err)
		}
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.New(store, postingSvc, reportSvc, cfg, logger).Handler(),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("bookkeeping service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
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

// ensureChart registers any missing default chart accounts, including the
// opening balance reserve. Idempotent across restarts.
func ensureChart(ctx context.Context, repo posting.Repo, svc posting.Service) error {
	for _, ce := range books.DefaultChart {
		_, err := repo.AccountByCode(ctx, ce.Code)
		if err == nil {
			continue
		}
		if !errors.Is(err, errs.ErrNotFound) {
			return err
		}
		if _, err := svc.RegisterAccount(ctx, posting.AccountInput{
			Name: ce.Name,
			Type: ce.Type,
			Code: ce.Code,
		}); err != nil {
			return fmt.Errorf("register %s: %w", ce.Code, err)
		}
	}
	return nil
}

// seedDev creates a demo customer and vendor for quick local testing and
// prints their IDs for easy copy/paste.
func seedDev(ctx context.Context, repo posting.Repo, svc posting.Service, l *slog.Logger) error {
	cust, err := registerIfAbsent(ctx, repo, svc, posting.AccountInput{
		Name: "Demo Customer", Type: books.AccountTypeCustomer, Code: "1101",
		Cell: "+92-300-0000000", Location: "Karachi",
	})
	if err != nil {
		return err
	}
	vend, err := registerIfAbsent(ctx, repo, svc, posting.AccountInput{
		Name: "Demo Hotel Vendor", Type: books.AccountTypeVendor, Code: "2101",
		Location: "Makkah",
	})
	if err != nil {
		return err
	}
	l.Info("DEV seed", "customer_id", cust.ID.String(), "vendor_id", vend.ID.String())
	fmt.Println("==================== DEV SEED ====================")
	fmt.Printf("customer_id: %s\n", cust.ID.String())
	fmt.Printf("vendor_id:   %s\n", vend.ID.String())
	fmt.Println("==================================================")
	return nil
}

func registerIfAbsent(ctx context.Context, repo posting.Repo, svc posting.Service, in posting.AccountInput) (books.Account, error) {
	if acc, err := repo.AccountByCode(ctx, in.Code); err == nil {
		return acc, nil
	} else if !errors.Is(err, errs.ErrNotFound) {
		return books.Account{}, err
	}
	return svc.RegisterAccount(ctx, in)
}

// parseLogLevel maps config values to slog.Leveler.
func parseLogLevel(s string) slog.Leveler {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildLogger(cfg *config.Config) *slog.Logger {
	level := parseLogLevel(cfg.LogLevel)
	if strings.ToLower(cfg.LogFormat) == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
