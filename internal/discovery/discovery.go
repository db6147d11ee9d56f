// Package discovery polls the market catalog for new binary-outcome
// markets, tracks each one's YES/NO token ids, and populates the
// market→category mapping the cross-market mispricing detector needs.
package discovery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/riftline/predictarb/internal/persistence"
	"github.com/riftline/predictarb/pkg/cache"
	"github.com/riftline/predictarb/pkg/types"
	"go.uber.org/zap"
)

// Service discovers new markets by polling the catalog API.
type Service struct {
	client            *Client
	cache             cache.Cache
	metadata          *persistence.MarketMetadataRepository
	pollInterval      time.Duration
	marketLimit       int
	maxMarketDuration time.Duration
	logger            *zap.Logger

	mu         sync.RWMutex
	subscribed map[string]*types.Market

	newMarketsCh chan *types.Market
}

// Config holds discovery service configuration.
type Config struct {
	Client            *Client
	Cache             cache.Cache
	Metadata          *persistence.MarketMetadataRepository
	PollInterval      time.Duration
	MarketLimit       int
	MaxMarketDuration time.Duration
	Logger            *zap.Logger
}

// New creates a discovery Service.
func New(cfg Config) *Service {
	return &Service{
		client:            cfg.Client,
		cache:             cfg.Cache,
		metadata:          cfg.Metadata,
		pollInterval:      cfg.PollInterval,
		marketLimit:       cfg.MarketLimit,
		maxMarketDuration: cfg.MaxMarketDuration,
		logger:            cfg.Logger,
		subscribed:        make(map[string]*types.Market),
		newMarketsCh:      make(chan *types.Market, 100),
	}
}

// Run starts the poll loop and blocks until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("discovery-service-starting",
		zap.Duration("poll-interval", s.pollInterval),
		zap.Int("market-limit", s.marketLimit))

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	if err := s.poll(ctx); err != nil {
		s.logger.Error("initial-poll-failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("discovery-service-stopping")
			close(s.newMarketsCh)
			return ctx.Err()
		case <-ticker.C:
			if err := s.poll(ctx); err != nil {
				s.logger.Error("poll-failed", zap.Error(err))
			}
		}
	}
}

// poll fetches the catalog and identifies/subscribes markets not seen
// before.
func (s *Service) poll(ctx context.Context) error {
	start := time.Now()
	defer func() { PollDurationSeconds.Observe(time.Since(start).Seconds()) }()

	resp, err := s.client.FetchActiveMarkets(ctx, s.marketLimit, 0, "volume24hr")
	if err != nil {
		PollErrorsTotal.Inc()
		return fmt.Errorf("fetch active markets: %w", err)
	}
	MarketsDiscoveredTotal.Add(float64(len(resp.Data)))

	newMarkets := s.identifyNewMarkets(resp.Data)
	for _, market := range newMarkets {
		s.cacheMarket(market)

		if s.metadata != nil && market.Category != "" {
			if err := s.metadata.UpsertCategory(ctx, market.MarketID, market.Category); err != nil {
				s.logger.Warn("upsert-market-category-failed",
					zap.String("market-id", market.MarketID), zap.Error(err))
			}
		}

		select {
		case s.newMarketsCh <- market:
			NewMarketsTotal.Inc()
			s.logger.Info("new-market-discovered",
				zap.String("market-id", market.MarketID),
				zap.String("question", market.Question))
		default:
			s.logger.Warn("new-markets-channel-full", zap.String("market-id", market.MarketID))
		}
	}

	s.logger.Debug("poll-complete",
		zap.Int("total-markets", len(resp.Data)),
		zap.Int("new-markets", len(newMarkets)),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// identifyNewMarkets returns markets not already subscribed, filtering out
// anything missing a resolved YES/NO token pair or expiring outside the
// configured duration window.
func (s *Service) identifyNewMarkets(markets []types.Market) []*types.Market {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fresh []*types.Market
	for i := range markets {
		market := &markets[i]

		if _, exists := s.subscribed[market.MarketID]; exists {
			continue
		}

		if market.YesTokenID == "" || market.NoTokenID == "" {
			s.logger.Debug("skipping-market-missing-tokens", zap.String("market-id", market.MarketID))
			continue
		}

		if !market.EndDate.IsZero() && s.maxMarketDuration > 0 {
			timeUntilExpiry := time.Until(market.EndDate)
			if timeUntilExpiry < 0 {
				s.logger.Debug("skipping-market-already-expired", zap.String("market-id", market.MarketID))
				continue
			}
			if timeUntilExpiry > s.maxMarketDuration {
				MarketsFilteredByEndDateTotal.Inc()
				continue
			}
		}

		s.subscribed[market.MarketID] = market
		fresh = append(fresh, market)
	}
	return fresh
}

// NewMarketsChan returns the channel receiving newly discovered markets.
func (s *Service) NewMarketsChan() <-chan *types.Market {
	return s.newMarketsCh
}

// GetSubscribedMarkets returns every currently tracked market.
func (s *Service) GetSubscribedMarkets() []*types.Market {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.Market, 0, len(s.subscribed))
	for _, m := range s.subscribed {
		out = append(out, m)
	}
	return out
}

// cacheMarket stores market in the catalog cache with a 24h TTL.
func (s *Service) cacheMarket(market *types.Market) {
	if s.cache == nil {
		return
	}
	if !s.cache.Set(market.MarketID, market, 24*time.Hour) {
		s.logger.Warn("failed-to-cache-market", zap.String("market-id", market.MarketID))
	}
}

// GetMarket returns a cached market, or nil if absent.
func (s *Service) GetMarket(marketID string) *types.Market {
	if s.cache == nil {
		return nil
	}
	value, found := s.cache.Get(marketID)
	if !found {
		return nil
	}
	market, ok := value.(*types.Market)
	if !ok {
		s.logger.Warn("invalid-market-type-in-cache", zap.String("market-id", marketID))
		return nil
	}
	return market
}

// RemoveMarkets drops markets from the subscribed set and cache, called
// once a market closes.
func (s *Service) RemoveMarkets(markets []*types.Market) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, market := range markets {
		delete(s.subscribed, market.MarketID)
		if s.cache != nil {
			s.cache.Delete(market.MarketID)
		}
	}
	s.logger.Info("markets-removed", zap.Int("count", len(markets)))
}
