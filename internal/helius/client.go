package helius

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/rawblock/solsecurity/internal/retry"
	"github.com/rawblock/solsecurity/pkg/models"
)

const (
	sourceName      = "helius"
	maxResponseSize = 10 << 20 // 10MB
	maxErrorBody    = 512
)

// Options configures one client instance
type Options struct {
	BaseURL    string
	APIKey     string
	RateLimit  float64 // requests per second, <= 0 disables limiting
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// Client reads enhanced transactions. It owns its own http.Client, so
// callers create one per analysis run and Close it when done.
type Client struct {
	baseURL     string
	apiKey      string
	rateLimiter *rate.Limiter
	policy      retry.Policy
	httpClient  *http.Client
	logger      zerolog.Logger
}

// NewClient fails with a ConfigurationError when no API key is configured
func NewClient(opts Options, logger zerolog.Logger) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, &models.ConfigurationError{Key: "HELIUS_API_KEY", Reason: "is not set"}
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	c := &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		apiKey:      opts.APIKey,
		rateLimiter: rate.NewLimiter(limit, 1),
		httpClient: &http.Client{
			Timeout: opts.Timeout,
			Transport: &CustomTransport{
				Base: http.DefaultTransport.(*http.Transport).Clone(),
			},
		},
		logger: logger.With().Str("component", sourceName).Logger(),
	}
	c.policy = retry.Policy{
		MaxAttempts: opts.MaxRetries,
		BaseDelay:   opts.RetryDelay,
		MaxDelay:    30 * time.Second,
		Jitter:      opts.RetryDelay / 4,
		OnRetry: func(attempt int, wait time.Duration, err error) {
			c.logger.Warn().Err(err).Int("attempt", attempt).Dur("wait", wait).Msg("Retrying Helius request")
		},
	}
	return c, nil
}

// CustomTransport sets the JSON headers on every request
type CustomTransport struct {
	Base http.RoundTripper
}

func (t *CustomTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "solsecurity/1.0")
	return t.Base.RoundTrip(req)
}

// RecentTransactions returns up to limit transfer transactions for the
// address, newest first.
func (c *Client) RecentTransactions(ctx context.Context, address string, limit int) ([]models.RawTransaction, error) {
	var records []models.RawTransaction

	err := retry.Do(ctx, c.policy, func(ctx context.Context) error {
		body, err := c.get(ctx, c.transactionsURL(address, limit))
		if err != nil {
			return err
		}
		records = nil
		if err := json.Unmarshal(body, &records); err != nil {
			return &models.FetchError{Source: sourceName, Message: "malformed transactions payload", Err: err}
		}
		return nil
	})
	if err != nil {
		c.logger.Error().Err(err).Str("address", address).Msg("Helius transactions fetch failed")
		return nil, err
	}

	c.logger.Debug().Str("address", address).Int("records", len(records)).Msg("Fetched transactions")
	return records, nil
}

// FirstFunded estimates when an account was first funded. When the account
// has fewer than limit transfer transactions the oldest one is its first
// funding; otherwise the account predates the window and known is false.
func (c *Client) FirstFunded(ctx context.Context, address string, limit int) (first time.Time, known bool, err error) {
	records, err := c.RecentTransactions(ctx, address, limit)
	if err != nil {
		return time.Time{}, false, err
	}
	if len(records) == 0 || len(records) >= limit {
		return time.Time{}, false, nil
	}

	var oldest int64
	for _, r := range records {
		if r.Timestamp > 0 && (oldest == 0 || r.Timestamp < oldest) {
			oldest = r.Timestamp
		}
	}
	if oldest == 0 {
		return time.Time{}, false, nil
	}
	return time.Unix(oldest, 0).UTC(), true, nil
}

// Close releases idle connections held by this client
func (c *Client) Close() {
	if c.httpClient != nil {
		c.httpClient.CloseIdleConnections()
	}
}

func (c *Client) transactionsURL(address string, limit int) string {
	q := url.Values{}
	q.Set("api-key", c.apiKey)
	q.Set("type", "TRANSFER")
	q.Set("limit", strconv.Itoa(limit))
	return fmt.Sprintf("%s/v0/addresses/%s/transactions?%s", c.baseURL, url.PathEscape(address), q.Encode())
}

func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error embeds the full URL, which carries the API key
		return nil, &models.FetchError{Source: sourceName, Message: "request failed", Err: unwrapURLError(err)}
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &models.FetchError{
			Source:     sourceName,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(msg)),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &models.FetchError{Source: sourceName, Message: "reading response body", Err: err}
	}
	return body, nil
}

func unwrapURLError(err error) error {
	if ue, ok := err.(*url.Error); ok {
		return ue.Err
	}
	return err
}
