package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rovshanmuradov/cryptofolio/internal/config"
	"github.com/rovshanmuradov/cryptofolio/internal/events"
	"github.com/rovshanmuradov/cryptofolio/internal/export"
	"github.com/rovshanmuradov/cryptofolio/internal/firebase"
	"github.com/rovshanmuradov/cryptofolio/internal/flow"
	"github.com/rovshanmuradov/cryptofolio/internal/identity"
	"github.com/rovshanmuradov/cryptofolio/internal/logger"
	"github.com/rovshanmuradov/cryptofolio/internal/market"
	"github.com/rovshanmuradov/cryptofolio/internal/portfolio"
	"github.com/rovshanmuradov/cryptofolio/internal/ui"
	"github.com/rovshanmuradov/cryptofolio/internal/ui/app"
	"github.com/rovshanmuradov/cryptofolio/internal/ui/state"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	bridgeBuffer    = 64
	quoteRetention  = 10 * time.Minute
	shutdownTimeout = 5 * time.Second
)

type options struct {
	configPath string
	envFile    string

	exportUser   string
	exportFormat string
	exportSymbol string
	exportDir    string
}

func main() {
	// Parse command line flags
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to config file (optional)")
	flag.StringVar(&opts.envFile, "env", ".env", "Path to .env file")
	flag.StringVar(&opts.exportUser, "export", "", "Export this user's transaction history and exit")
	flag.StringVar(&opts.exportFormat, "format", string(export.FormatCSV), "Export format: csv or json")
	flag.StringVar(&opts.exportSymbol, "symbol", "", "Export only this symbol")
	flag.StringVar(&opts.exportDir, "out", "exports", "Export output directory")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "cryptofolio: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	// Create context with signal handling
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := config.LoadEnv(opts.envFile); err != nil {
		return err
	}
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logCfg := logger.DefaultConfig(cfg.Log.File)
	logCfg.Debug = cfg.Log.Debug
	logCfg.Console = cfg.Log.Console
	appLogger, err := logger.New(logCfg)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer func() {
		_ = appLogger.Close()
	}()
	log := appLogger.Logger

	if opts.exportUser != "" {
		return runExport(rootCtx, cfg, opts, log)
	}

	log.Info("Starting cryptofolio",
		zap.String("identity_provider", cfg.Identity.Provider),
		zap.String("ledger", cfg.Portfolio.File))

	provider, mirror, err := buildAdapters(cfg, log)
	if err != nil {
		return err
	}

	bus := events.NewBus(log)
	quoter := market.NewClient(cfg.Market.URL, cfg.Market.Timeout(), log)
	ledger := portfolio.Open(rootCtx, portfolio.NewFileStore(cfg.Portfolio.File), mirror, log,
		portfolio.WithRetryPolicy(portfolio.RetryPolicy{
			MaxTries:   uint(cfg.Mirror.MaxTries),
			MaxElapsed: cfg.Mirror.MaxElapsed(),
		}))

	bridge := ui.NewBridge(bus, bridgeBuffer, log)
	price := flow.NewPrice(bus, quoter, log,
		flow.WithPacing(cfg.UI.ProgressSteps, cfg.UI.ProgressDelay()),
		flow.WithProgress(bridge.Progress))
	price.Start()
	defer price.Stop()
	auth := flow.NewAuth(bus, provider, log, cfg.UI.AuthCooldown())

	log.Info("Registered events", zap.Strings("topics", bus.Topics()))

	runCtx, cancel := context.WithCancel(rootCtx)
	defer cancel()

	quotes := state.NewQuoteCache(log)
	services := &ui.Services{
		Ctx:    runCtx,
		Bus:    bus,
		Auth:   auth,
		Ledger: ledger,
		Quoter: quoter,
		Quotes: quotes,
		Timing: ui.Timing{
			RedrawDelay:     cfg.UI.RedrawDelay(),
			InputErrorDelay: cfg.UI.InputErrorDelay(),
		},
		Logger: log,
	}
	program := tea.NewProgram(app.New(services, bridge), tea.WithContext(runCtx))

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer cancel()
		defer bridge.Close()
		if _, err := program.Run(); err != nil {
			if errors.Is(err, tea.ErrProgramKilled) && rootCtx.Err() != nil {
				log.Info("Interrupted")
				return nil
			}
			return fmt.Errorf("TUI application failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(quoteRetention)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := quotes.CleanupStale(quoteRetention); n > 0 {
					log.Debug("Stale quotes dropped", zap.Int("count", n))
				}
			}
		}
	})
	runErr := g.Wait()

	log.Info("Shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := ledger.Close(shutdownCtx); err != nil {
		log.Warn("Pending ledger writes not finished", zap.Error(err))
	}

	sent, dropped := bridge.GetStats()
	cached, reads, writes := quotes.GetStats()
	log.Info("Session stats",
		zap.Any("bus", bus.Stats()),
		zap.Uint64("ui_sent", sent),
		zap.Uint64("ui_dropped", dropped),
		zap.Uint64("quotes_cached", cached),
		zap.Uint64("quote_reads", reads),
		zap.Uint64("quote_writes", writes))
	return runErr
}

// runExport writes one user's history to a file without starting the TUI.
func runExport(ctx context.Context, cfg *config.Config, opts options, log *zap.Logger) error {
	format, err := export.ParseFormat(opts.exportFormat)
	if err != nil {
		return err
	}

	ledger := portfolio.Open(ctx, portfolio.NewFileStore(cfg.Portfolio.File), portfolio.NopMirror{}, log)
	defer func() {
		_ = ledger.Close(ctx)
	}()

	path, err := export.NewHistoryExporter(log).Export(opts.exportUser,
		ledger.GetTransactionHistory(opts.exportUser),
		export.ExportOptions{
			Format:       format,
			SymbolFilter: opts.exportSymbol,
			OutputDir:    opts.exportDir,
		})
	if err != nil {
		return fmt.Errorf("export %s: %w", opts.exportUser, err)
	}
	fmt.Println(path)
	return nil
}

// buildAdapters picks the identity provider and the transaction mirror from cfg.
// Firebase serves as the mirror whenever a database URL is set, whichever
// provider signs users in.
func buildAdapters(cfg *config.Config, log *zap.Logger) (identity.Provider, portfolio.Mirror, error) {
	var fb *firebase.Client
	if cfg.Identity.Provider == config.ProviderFirebase || cfg.Firebase.DatabaseURL != "" {
		fb = firebase.NewClient(firebase.Config{
			APIKey:      cfg.Firebase.APIKey,
			AuthURL:     cfg.Firebase.AuthURL,
			DatabaseURL: cfg.Firebase.DatabaseURL,
			Timeout:     cfg.Market.Timeout(),
		}, log)
	}

	var provider identity.Provider
	switch cfg.Identity.Provider {
	case config.ProviderFirebase:
		provider = fb
	default:
		local, err := identity.NewLocalProvider(cfg.Identity.UsersFile, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open accounts: %w", err)
		}
		provider = local
	}

	var mirror portfolio.Mirror = portfolio.NopMirror{}
	if cfg.Firebase.DatabaseURL != "" {
		mirror = fb
	} else {
		log.Info("No remote database configured, transactions stay local")
	}
	return provider, mirror, nil
}
