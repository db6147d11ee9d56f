// Command validator is the process entry point: it wires config →
// persistence → streaming → hotpath → simexec → batchdetect →
// orchestrator and blocks on the orchestrator's run loop until a shutdown
// signal arrives. CLI surface is intentionally minimal — process control
// beyond starting/stopping the engine is out of scope.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/riftline/predictarb/internal/batchdetect"
	"github.com/riftline/predictarb/internal/discovery"
	"github.com/riftline/predictarb/internal/hotpath"
	"github.com/riftline/predictarb/internal/orchestrator"
	"github.com/riftline/predictarb/internal/persistence"
	"github.com/riftline/predictarb/internal/simexec"
	"github.com/riftline/predictarb/internal/streaming"
	"github.com/riftline/predictarb/pkg/cache"
	"github.com/riftline/predictarb/pkg/config"
	"github.com/riftline/predictarb/pkg/healthprobe"
	"github.com/riftline/predictarb/pkg/httpserver"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "validator",
	Short: "Prediction-market arbitrage validator",
	Long: `Validator subscribes to emerging binary-outcome prediction markets,
detects arbitrage and other pricing opportunities, and simulates execution
in a paper-trading book. Streaming, hot-path detection, batch detection,
and P&L accounting all run under one process managed by this command.`,
}

func main() {
	rootCmd.AddCommand(validateCmd, reportCmd, resetCmd, dbStatusCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoglobals // Cobra boilerplate
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run the validator engine (default command)",
	RunE:  runValidate,
}

//nolint:gochecknoglobals // Cobra boilerplate
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a P&L / opportunity report",
	Long:  "Report generation delegates to external reporting tooling that reads the persisted P&L and opportunity tables; it is not implemented here.",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("report: not implemented here — point external reporting tooling at the persisted database instead")
		return nil
	},
}

//nolint:gochecknoglobals // Cobra boilerplate
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the paper-trading book",
	Long:  "Resetting the paper book (truncating paper_* tables) delegates to external migration/backfill tooling; it is not implemented here.",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("reset: not implemented here — use your migration tooling against the paper_* tables")
		return nil
	},
}

//nolint:gochecknoglobals // Cobra boilerplate
var dbStatusCmd = &cobra.Command{
	Use:   "db-status",
	Short: "Verify the persisted schema is present",
	RunE:  runDBStatus,
}

func runDBStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	pool, err := persistence.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer pool.Close()

	if err := pool.VerifySchema(ctx); err != nil {
		return fmt.Errorf("schema verification failed: %w", err)
	}
	fmt.Println("schema OK: all required tables present")
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	pool, err := persistence.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	marketCache, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10000,
		MaxCost:     1000,
		BufferItems: 64,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("create cache: %w", err)
	}

	repos := orchestrator.Repositories{
		Snapshots:     persistence.NewSnapshotRepository(pool),
		Opportunities: persistence.NewOpportunityRepository(pool),
		Orders:        persistence.NewOrderRepository(pool),
		Positions:     persistence.NewPositionRepository(pool),
		Trades:        persistence.NewTradeRepository(pool),
		PnL:           persistence.NewPnLRepository(pool),
		PaperMarkets:  persistence.NewPaperMarketRepository(pool),
	}
	metadataRepo := persistence.NewMarketMetadataRepository(pool)

	discoveryClient := discovery.NewClientWithConfig(discovery.ClientConfig{
		GammaBaseURL: cfg.GammaAPIURL,
		Logger:       logger,
	})
	discoverySvc := discovery.New(discovery.Config{
		Client:            discoveryClient,
		Cache:             marketCache,
		Metadata:          metadataRepo,
		PollInterval:      cfg.SubscriptionRefresh,
		MarketLimit:       cfg.PriorityMarketCount,
		MaxMarketDuration: 0,
		Logger:            logger,
	})

	streamingMgr := streaming.New(streaming.DefaultConfig(cfg.StreamingWSURL), logger)

	engine := simexec.New(simexec.DefaultConfig(), logger, pool,
		repos.Snapshots, repos.Orders, repos.Trades, repos.Positions)

	hotpathCfg := hotpath.DefaultConfig()
	hotpathCfg.ArbitrageThreshold = cfg.ArbitrageThreshold
	hotpathCfg.DefaultTradeSize = cfg.ArbOrderSize
	hotpathCfg.MinArbSize = cfg.ArbMinTradeSize
	hotpathCfg.RateLimit = time.Duration(cfg.ArbRateLimitMs) * time.Millisecond
	hotpathMgr := hotpath.New(hotpathCfg, logger, engine)

	detectorCfg := batchdetect.DefaultConfig()
	detectorCfg.ArbitrageThreshold = cfg.ArbitrageThreshold
	detectorCfg.WideSpreadThreshold = cfg.WideSpreadThreshold
	detectorCfg.VolumeSpikeMultiplier = cfg.VolumeSpikeMultiplier
	detectorCfg.ThinBookMinVolume24h = cfg.ThinBookMinVolume
	detectorCfg.ThinBookMaxLiquidity = cfg.ThinBookMaxLiquidity
	detector := batchdetect.New(detectorCfg, logger, pool)

	healthChecker := healthprobe.New()

	orc := orchestrator.New(orchestrator.Config{
		AppConfig:     cfg,
		Logger:        logger,
		Pool:          pool,
		Streaming:     streamingMgr,
		Hotpath:       hotpathMgr,
		Discovery:     discoverySvc,
		Detector:      detector,
		Engine:        engine,
		HealthChecker: healthChecker,
		Repos:         repos,
	})

	httpServer := httpserver.New(&httpserver.Config{
		Port:             cfg.HTTPPort,
		Logger:           logger,
		HealthChecker:    healthChecker,
		HotpathManager:   hotpathMgr,
		DiscoveryService: discoverySvc,
		StatusProvider:   orc,
	})
	orc.SetHTTPServer(httpServer)

	return orc.Run(ctx)
}
