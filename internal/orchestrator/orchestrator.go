// Package orchestrator wires the persistence, streaming, hot-path,
// simulated-execution, discovery, and batch-detection components into one
// running process: it owns the seven periodic tasks (buffer flush,
// subscription refresh, batch detection, P&L snapshot, market-making
// cycle, dashboard, hourly maintenance) and the startup/shutdown sequence.
//
// Per the owned-scheduler redesign, every periodic task's timer is a
// *time.Ticker held on the Orchestrator struct (not a detached goroutine
// closing over component identity), so Shutdown can stop every one of
// them deterministically before waiting on the task goroutines.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/riftline/predictarb/internal/batchdetect"
	"github.com/riftline/predictarb/internal/discovery"
	"github.com/riftline/predictarb/internal/hotpath"
	"github.com/riftline/predictarb/internal/persistence"
	"github.com/riftline/predictarb/internal/simexec"
	"github.com/riftline/predictarb/internal/streaming"
	"github.com/riftline/predictarb/pkg/config"
	"github.com/riftline/predictarb/pkg/healthprobe"
	"github.com/riftline/predictarb/pkg/httpserver"
	"github.com/riftline/predictarb/pkg/types"
)

// maxBufferedUpdates bounds the in-memory flush buffer; once full, the
// oldest updates are dropped rather than growing unbounded. Per spec.md
// §7's persistence-error-during-flush handling, a failed flush re-prepends
// its updates subject to the same cap.
const maxBufferedUpdates = 10000

// Repositories groups every repository the orchestrator drives directly
// (as opposed to the ones simexec/batchdetect already own internally).
type Repositories struct {
	Snapshots     *persistence.SnapshotRepository
	Opportunities *persistence.OpportunityRepository
	Orders        *persistence.OrderRepository
	Positions     *persistence.PositionRepository
	Trades        *persistence.TradeRepository
	PnL           *persistence.PnLRepository
	PaperMarkets  *persistence.PaperMarketRepository
}

// Config holds every wired component the orchestrator drives.
type Config struct {
	AppConfig     *config.Config
	Logger        *zap.Logger
	Pool          *persistence.Pool
	Streaming     *streaming.Manager
	Hotpath       *hotpath.Manager
	Discovery     *discovery.Service
	Detector      *batchdetect.Detector
	Engine        *simexec.Engine
	HTTPServer    *httpserver.Server
	HealthChecker *healthprobe.HealthChecker
	Repos         Repositories
}

// Orchestrator owns the process's goroutines and periodic tasks.
type Orchestrator struct {
	cfg           *config.Config
	logger        *zap.Logger
	pool          *persistence.Pool
	stream        *streaming.Manager
	hotpath       *hotpath.Manager
	discovery     *discovery.Service
	detector      *batchdetect.Detector
	engine        *simexec.Engine
	httpServer    *httpserver.Server
	healthChecker *healthprobe.HealthChecker
	repos         Repositories

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	tickers []*time.Ticker

	bufMu sync.Mutex
	buf   []types.PriceUpdate

	statusMu sync.RWMutex
	status   types.StatusSnapshot
}

// New constructs an Orchestrator. Call Run to start it.
func New(cfg Config) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		cfg:           cfg.AppConfig,
		logger:        cfg.Logger,
		pool:          cfg.Pool,
		stream:        cfg.Streaming,
		hotpath:       cfg.Hotpath,
		discovery:     cfg.Discovery,
		detector:      cfg.Detector,
		engine:        cfg.Engine,
		httpServer:    cfg.HTTPServer,
		healthChecker: cfg.HealthChecker,
		repos:         cfg.Repos,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// SetHTTPServer wires the HTTP server after construction, breaking the
// New(cfg)/httpserver.New(cfg) constructor cycle — the HTTP server's
// status route needs the Orchestrator as its StatusProvider, and the
// Orchestrator needs the HTTP server to start and shut down.
func (o *Orchestrator) SetHTTPServer(server *httpserver.Server) {
	o.httpServer = server
}

// Status returns the dashboard task's latest snapshot. Safe for concurrent
// use by the HTTP status handler.
func (o *Orchestrator) Status() types.StatusSnapshot {
	o.statusMu.RLock()
	defer o.statusMu.RUnlock()
	return o.status
}

// Run verifies the schema, starts every component, seeds the initial
// paper-trading markets, starts the seven periodic tasks, and blocks until
// a shutdown signal or ctx cancellation, at which point it runs Shutdown.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("orchestrator-starting",
		zap.String("http-addr", ":"+o.cfg.HTTPPort))

	if err := o.pool.VerifySchema(ctx); err != nil {
		return fmt.Errorf("verify schema: %w", err)
	}

	if err := o.startComponents(); err != nil {
		return fmt.Errorf("start components: %w", err)
	}

	if err := o.seedInitialMarkets(ctx); err != nil {
		o.logger.Warn("seed-initial-markets-failed", zap.Error(err))
	}

	o.startPeriodicTasks()

	o.healthChecker.SetReady(true)
	o.logger.Info("orchestrator-ready")

	return o.waitForShutdown()
}

func (o *Orchestrator) startComponents() error {
	o.wg.Add(1)
	go o.runHTTPServer()

	o.wg.Add(1)
	go o.runDiscoveryService()

	if err := o.stream.Start(); err != nil {
		return fmt.Errorf("start streaming manager: %w", err)
	}

	o.wg.Add(1)
	go o.runPriceUpdateLoop()

	o.wg.Add(1)
	go o.runNewMarketSubscriber()

	return nil
}

func (o *Orchestrator) runHTTPServer() {
	defer o.wg.Done()
	if err := o.httpServer.Start(); err != nil {
		o.logger.Error("http-server-error", zap.Error(err))
	}
}

func (o *Orchestrator) runDiscoveryService() {
	defer o.wg.Done()
	if err := o.discovery.Run(o.ctx); err != nil && o.ctx.Err() == nil {
		o.logger.Error("discovery-service-error", zap.Error(err))
	}
}

// runPriceUpdateLoop is the hot path's single writer: every normalized
// update is merged into the hot cache (and evaluated for a fast-path
// arbitrage fire) and appended to the flush buffer in the same iteration,
// matching spec.md §4.D's "updates cache and appends to flush buffer".
func (o *Orchestrator) runPriceUpdateLoop() {
	defer o.wg.Done()
	for {
		select {
		case <-o.ctx.Done():
			return
		case update, ok := <-o.stream.Updates():
			if !ok {
				return
			}
			o.hotpath.Ingest(o.ctx, update)
			o.appendToBuffer(update)
		}
	}
}

// runNewMarketSubscriber subscribes the streaming manager to both legs of
// every newly discovered market.
func (o *Orchestrator) runNewMarketSubscriber() {
	defer o.wg.Done()
	for {
		select {
		case <-o.ctx.Done():
			return
		case market, ok := <-o.discovery.NewMarketsChan():
			if !ok {
				return
			}
			o.subscribeToMarket(market)
		}
	}
}

func (o *Orchestrator) subscribeToMarket(market *types.Market) {
	if market.YesTokenID == "" || market.NoTokenID == "" {
		o.logger.Warn("market-missing-tokens", zap.String("marketId", market.MarketID))
		return
	}

	assets := []types.AssetInfo{
		{AssetID: market.YesTokenID, MarketID: market.MarketID, Outcome: types.OutcomeYes, Question: market.Question, Category: market.Category},
		{AssetID: market.NoTokenID, MarketID: market.MarketID, Outcome: types.OutcomeNo, Question: market.Question, Category: market.Category},
	}
	if err := o.stream.Subscribe(o.ctx, assets); err != nil {
		o.logger.Error("subscribe-failed", zap.String("marketId", market.MarketID), zap.Error(err))
		return
	}
	o.logger.Info("subscribed-to-market", zap.String("marketId", market.MarketID), zap.String("question", market.Question))
}

// seedInitialMarkets picks one liquid, one medium-volume, and one new
// market and adds each to the paper book with reason "SEED", matching
// spec.md §4.G's startup sequence.
func (o *Orchestrator) seedInitialMarkets(ctx context.Context) error {
	count, err := o.repos.PaperMarkets.Count(ctx)
	if err != nil {
		return fmt.Errorf("count paper markets: %w", err)
	}
	if count > 0 {
		return nil
	}
	return o.seedMarkets(ctx)
}

func (o *Orchestrator) seedMarkets(ctx context.Context) error {
	pick := func(name string, selectFn func(context.Context) (string, error)) {
		marketID, err := selectFn(ctx)
		if err != nil {
			o.logger.Warn("seed-market-selection-failed", zap.String("slot", name), zap.Error(err))
			return
		}
		if marketID == "" {
			return
		}
		if err := o.repos.PaperMarkets.Add(ctx, marketID, "SEED"); err != nil {
			o.logger.Warn("seed-market-add-failed", zap.String("slot", name), zap.String("marketId", marketID), zap.Error(err))
		}
	}

	pick("liquid", o.repos.Snapshots.SelectLiquidMarket)
	pick("medium-volume", o.repos.Snapshots.SelectMediumVolumeMarket)
	pick("new", o.repos.Snapshots.SelectNewMarket)
	return nil
}

func (o *Orchestrator) appendToBuffer(update types.PriceUpdate) {
	o.bufMu.Lock()
	defer o.bufMu.Unlock()
	if len(o.buf) >= maxBufferedUpdates {
		overflowDroppedTotal.Inc()
		o.buf = o.buf[1:]
	}
	o.buf = append(o.buf, update)
}

func (o *Orchestrator) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		o.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-o.ctx.Done():
		o.logger.Info("context-cancelled")
	}
	return o.Shutdown()
}
