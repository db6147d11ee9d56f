// Package streaming is the real-time market-data client: a single
// WebSocket connection state machine (dial, subscribe/unsubscribe,
// heartbeat, reconnect with jittered backoff) that decodes the four
// inbound event kinds into normalized PriceUpdate/TradeEvent values for
// downstream consumption by internal/hotpath.
package streaming

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/riftline/predictarb/pkg/types"
)

// Config holds the streaming client's connection parameters.
type Config struct {
	URL                   string
	DialTimeout           time.Duration
	PongTimeout           time.Duration
	PingInterval          time.Duration
	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration
	ReconnectBackoffMult  float64
	MessageBufferSize     int
}

// DefaultConfig returns the spec's literal streaming defaults.
func DefaultConfig(url string) Config {
	return Config{
		URL:                   url,
		DialTimeout:           10 * time.Second,
		PongTimeout:           60 * time.Second,
		PingInterval:          30 * time.Second,
		ReconnectInitialDelay: 5 * time.Second,
		ReconnectMaxDelay:     30 * time.Second,
		ReconnectBackoffMult:  2.0,
		MessageBufferSize:     4096,
	}
}

// bookState is the manager's own last-known best-bid/ask cache per asset,
// used to fill in the side a legacy price_change event leaves unspecified.
type bookState struct {
	bid, ask, bidSize, askSize float64
}

// Manager owns one WebSocket connection and normalizes inbound frames into
// PriceUpdate/TradeEvent values delivered over Updates()/Trades().
type Manager struct {
	cfg         Config
	logger      *zap.Logger
	reconnector *reconnector

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.RWMutex
	conn       *websocket.Conn
	subscribed map[string]types.AssetInfo
	books      map[string]*bookState

	connected       atomic.Bool
	lastPongUnix    atomic.Int64
	connStartUnix   atomic.Int64

	updates chan types.PriceUpdate
	trades  chan types.TradeEvent
}

// New constructs a Manager. Call Start to dial and begin streaming.
func New(cfg Config, logger *zap.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:    cfg,
		logger: logger,
		reconnector: newReconnector(ReconnectConfig{
			InitialDelay:      cfg.ReconnectInitialDelay,
			MaxDelay:          cfg.ReconnectMaxDelay,
			BackoffMultiplier: cfg.ReconnectBackoffMult,
			JitterPercent:     0.2,
		}, logger),
		ctx:        ctx,
		cancel:     cancel,
		subscribed: make(map[string]types.AssetInfo),
		books:      make(map[string]*bookState),
		updates:    make(chan types.PriceUpdate, cfg.MessageBufferSize),
		trades:     make(chan types.TradeEvent, cfg.MessageBufferSize),
	}
}

// Updates returns the channel of normalized book/price-change events.
func (m *Manager) Updates() <-chan types.PriceUpdate { return m.updates }

// Trades returns the channel of normalized last-trade-price events.
func (m *Manager) Trades() <-chan types.TradeEvent { return m.trades }

// Start dials the initial connection and launches the read/ping/reconnect
// goroutines.
func (m *Manager) Start() error {
	m.logger.Info("streaming-manager-starting", zap.String("url", m.cfg.URL))

	if err := m.connect(m.ctx); err != nil {
		return fmt.Errorf("initial connection: %w", err)
	}

	m.wg.Add(3)
	go m.readLoop()
	go m.pingLoop()
	go m.reconnectLoop()
	return nil
}

func (m *Manager) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: m.cfg.DialTimeout}

	m.logger.Info("stream-dialing", zap.String("url", m.cfg.URL))
	conn, _, err := dialer.DialContext(ctx, m.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	conn.SetPongHandler(func(string) error {
		m.lastPongUnix.Store(time.Now().Unix())
		return nil
	})

	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()

	now := time.Now()
	m.connected.Store(true)
	m.lastPongUnix.Store(now.Unix())
	m.connStartUnix.Store(now.Unix())
	activeConnections.Set(1)

	m.logger.Info("stream-connected")
	return nil
}

// Subscribe registers assetInfos for the outcome resolution decode needs
// and sends the initial or incremental subscribe frame.
func (m *Manager) Subscribe(ctx context.Context, assets []types.AssetInfo) error {
	if len(assets) == 0 {
		return nil
	}

	m.mu.Lock()
	newIDs := make([]string, 0, len(assets))
	for _, a := range assets {
		if _, ok := m.subscribed[a.AssetID]; !ok {
			newIDs = append(newIDs, a.AssetID)
		}
		m.subscribed[a.AssetID] = a
	}
	if len(newIDs) == 0 {
		m.mu.Unlock()
		return nil
	}
	initial := len(m.subscribed) == len(newIDs)
	total := len(m.subscribed)
	conn := m.conn
	m.mu.Unlock()

	msg := map[string]any{"assets_ids": newIDs}
	if initial {
		msg["type"] = "market"
	} else {
		msg["operation"] = "subscribe"
	}

	if err := conn.WriteJSON(msg); err != nil {
		m.mu.Lock()
		for _, id := range newIDs {
			delete(m.subscribed, id)
		}
		m.mu.Unlock()
		return fmt.Errorf("write subscribe: %w", err)
	}

	subscriptionCount.Set(float64(total))
	m.logger.Info("stream-subscribed", zap.Int("new", len(newIDs)), zap.Int("total", total))
	return nil
}

// Unsubscribe removes assetIDs from the subscription set and notifies the
// server.
func (m *Manager) Unsubscribe(ctx context.Context, assetIDs []string) error {
	if len(assetIDs) == 0 {
		return nil
	}

	m.mu.Lock()
	removed := make([]string, 0, len(assetIDs))
	for _, id := range assetIDs {
		if _, ok := m.subscribed[id]; ok {
			removed = append(removed, id)
			delete(m.subscribed, id)
			delete(m.books, id)
		}
	}
	if len(removed) == 0 {
		m.mu.Unlock()
		return nil
	}
	total := len(m.subscribed)
	conn := m.conn
	m.mu.Unlock()

	if err := conn.WriteJSON(map[string]any{"assets_ids": removed, "operation": "unsubscribe"}); err != nil {
		m.mu.Lock()
		for _, id := range removed {
			m.subscribed[id] = types.AssetInfo{AssetID: id}
		}
		m.mu.Unlock()
		return fmt.Errorf("write unsubscribe: %w", err)
	}

	subscriptionCount.Set(float64(total))
	m.logger.Info("stream-unsubscribed", zap.Int("count", len(removed)), zap.Int("remaining", total))
	return nil
}

func (m *Manager) readLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		m.mu.RLock()
		conn := m.conn
		m.mu.RUnlock()
		if conn == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			m.logger.Warn("stream-read-error", zap.Error(err))
			if start := m.connStartUnix.Load(); start > 0 {
				connectionDuration.Observe(time.Since(time.Unix(start, 0)).Seconds())
			}
			m.connected.Store(false)
			activeConnections.Set(0)
			return
		}

		var msgs []types.WSMessage
		if err := json.Unmarshal(raw, &msgs); err != nil {
			if len(raw) < 10 {
				m.logger.Debug("stream-heartbeat", zap.Int("bytes", len(raw)))
				continue
			}
			m.logger.Debug("stream-unparseable-message", zap.Error(err), zap.Int("bytes", len(raw)))
			continue
		}

		for i := range msgs {
			m.handleMessage(&msgs[i])
		}
	}
}

func (m *Manager) pingLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			if !m.connected.Load() {
				continue
			}
			m.mu.RLock()
			conn := m.conn
			m.mu.RUnlock()
			if conn == nil {
				continue
			}
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				m.logger.Warn("stream-ping-error", zap.Error(err))
			}
		}
	}
}

func (m *Manager) reconnectLoop() {
	defer m.wg.Done()
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		if m.connected.Load() {
			time.Sleep(time.Second)
			continue
		}

		m.logger.Warn("stream-connection-lost")
		if err := m.reconnector.run(m.ctx, m.connect); err != nil {
			return // ctx cancelled
		}

		if err := m.resubscribeAll(); err != nil {
			m.logger.Error("stream-resubscribe-failed", zap.Error(err))
			m.connected.Store(false)
			continue
		}

		m.wg.Add(1)
		go m.readLoop()
	}
}

func (m *Manager) resubscribeAll() error {
	m.mu.RLock()
	ids := make([]string, 0, len(m.subscribed))
	for id := range m.subscribed {
		ids = append(ids, id)
	}
	conn := m.conn
	m.mu.RUnlock()

	if len(ids) == 0 {
		return nil
	}
	err := conn.WriteJSON(map[string]any{"assets_ids": ids, "type": "market"})
	if err != nil {
		return fmt.Errorf("write resubscribe: %w", err)
	}
	m.logger.Info("stream-resubscribed", zap.Int("count", len(ids)))
	return nil
}

// Close cancels all goroutines, closes the connection, and closes the
// output channels.
func (m *Manager) Close() error {
	m.logger.Info("streaming-manager-closing")
	m.cancel()

	m.mu.RLock()
	if m.conn != nil {
		m.conn.Close()
	}
	m.mu.RUnlock()

	m.wg.Wait()
	close(m.updates)
	close(m.trades)
	activeConnections.Set(0)
	return nil
}
