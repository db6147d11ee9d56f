package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/riftline/predictarb/pkg/types"
	"go.uber.org/zap"
)

// ClientConfig holds Client construction parameters, including the CLOB
// retry/backoff knobs used by FetchTickSize and FetchOrderBook.
type ClientConfig struct {
	GammaBaseURL      string
	ClobBaseURL       string
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	Logger            *zap.Logger
}

// Client is an HTTP client for the market catalog (Gamma-style) and CLOB
// metadata REST APIs.
type Client struct {
	gammaBaseURL string
	clobBaseURL  string
	httpClient   *http.Client

	maxRetries        int
	initialBackoff    time.Duration
	maxBackoff        time.Duration
	backoffMultiplier float64

	logger *zap.Logger
}

// NewClient creates a Client with default retry configuration.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return NewClientWithConfig(ClientConfig{GammaBaseURL: baseURL, Logger: logger})
}

// NewClientWithConfig creates a Client with explicit retry/backoff knobs.
func NewClientWithConfig(cfg ClientConfig) *Client {
	if cfg.ClobBaseURL == "" {
		cfg.ClobBaseURL = "https://clob.polymarket.com"
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialBackoff == 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	if cfg.BackoffMultiplier == 0 {
		cfg.BackoffMultiplier = 2.0
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Client{
		gammaBaseURL:      cfg.GammaBaseURL,
		clobBaseURL:       cfg.ClobBaseURL,
		httpClient:        &http.Client{Timeout: 30 * time.Second},
		maxRetries:        cfg.MaxRetries,
		initialBackoff:    cfg.InitialBackoff,
		maxBackoff:        cfg.MaxBackoff,
		backoffMultiplier: cfg.BackoffMultiplier,
		logger:            cfg.Logger,
	}
}

// FetchActiveMarkets fetches active markets from the catalog API. orderBy
// is "volume24hr", "createdAt", or "endDate".
func (c *Client) FetchActiveMarkets(ctx context.Context, limit, offset int, orderBy string) (*types.MarketsResponse, error) {
	params := url.Values{}
	params.Add("closed", "false")
	params.Add("active", "true")
	params.Add("limit", strconv.Itoa(limit))
	params.Add("offset", strconv.Itoa(offset))
	params.Add("order", orderBy)
	if orderBy == "endDate" {
		params.Add("ascending", "true")
	} else {
		params.Add("ascending", "false")
	}

	requestURL := fmt.Sprintf("%s/markets?%s", c.gammaBaseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "predictarb/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var markets []types.Market
	if err := json.Unmarshal(body, &markets); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &types.MarketsResponse{Data: markets, Count: len(markets), Limit: limit, Offset: offset}, nil
}

// isRetryable reports whether err is a transient condition worth retrying.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, substr := range []string{"429", "500", "502", "503", "timeout", "connection refused", "connection reset"} {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

// fetchWithRetry runs fetchFn, retrying transient failures with capped
// exponential backoff.
func (c *Client) fetchWithRetry(ctx context.Context, operation string, fetchFn func() error) error {
	backoff := c.initialBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		err := fetchFn()
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		if attempt == c.maxRetries {
			return fmt.Errorf("max retries (%d) exceeded for %s: %w", c.maxRetries, operation, err)
		}

		c.logger.Warn("clob-fetch-failed-retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt+1),
			zap.Int("max-retries", c.maxRetries),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * c.backoffMultiplier)
		if backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
	}
	return fmt.Errorf("unreachable")
}

// FetchTickSize fetches a token's minimum tick size from the CLOB API.
func (c *Client) FetchTickSize(ctx context.Context, tokenID string) (float64, error) {
	requestURL := fmt.Sprintf("%s/tick-size?token_id=%s", c.clobBaseURL, tokenID)
	var tickSize float64

	err := c.fetchWithRetry(ctx, "fetch-tick-size", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("API error: status %d", resp.StatusCode)
		}
		var data struct {
			MinimumTickSize float64 `json:"minimum_tick_size"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
			return err
		}
		tickSize = data.MinimumTickSize
		return nil
	})
	return tickSize, err
}

// FetchOrderBook fetches a token's current best bid/ask from the CLOB REST
// book endpoint. A 404 (market not yet live on the CLOB) is not an error —
// it returns a zero-value leg with ok=false.
func (c *Client) FetchOrderBook(ctx context.Context, tokenID string) (leg types.TokenLeg, ok bool, err error) {
	requestURL := fmt.Sprintf("%s/book?token_id=%s", c.clobBaseURL, tokenID)

	err = c.fetchWithRetry(ctx, "fetch-order-book", func() error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if reqErr != nil {
			return reqErr
		}
		resp, doErr := c.httpClient.Do(req)
		if doErr != nil {
			return doErr
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			ok = false
			return nil
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("API error: status %d", resp.StatusCode)
		}

		var data struct {
			Bids []types.PriceLevel `json:"bids"`
			Asks []types.PriceLevel `json:"asks"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&data); decodeErr != nil {
			return decodeErr
		}

		if len(data.Bids) > 0 {
			leg.BestBid = data.Bids[0].ParsedPrice()
		}
		if len(data.Asks) > 0 {
			leg.BestAsk = data.Asks[0].ParsedPrice()
		}
		leg.TokenID = tokenID
		ok = true
		return nil
	})
	return leg, ok, err
}
