package flipside

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/rs/zerolog"

	"github.com/rawblock/solsecurity/pkg/models"
)

// Known-Duster List Source
//
// Reads the latest results of the public Flipside query that tracks
// Solana dusting wallets. The list is cached for CacheTTL. Any failure,
// including a missing API key, degrades to the built-in list and is
// never surfaced to the caller.

const (
	sourceName      = "flipside"
	cacheKey        = "duster_wallets"
	maxResponseSize = 20 << 20
)

// Origin tells where a returned list came from
type Origin string

const (
	OriginFlipside Origin = "flipside"
	OriginCache    Origin = "cache"
	OriginFallback Origin = "fallback"
)

//go:embed fallback_dusters.txt
var builtinList []byte

// Options configures the source
type Options struct {
	URL               string
	APIKey            string
	CacheTTL          time.Duration
	FallbackAddresses []string
}

// Source serves known-duster wallets
type Source struct {
	url      string
	apiKey   string
	cache    *bigcache.BigCache
	fallback []string
	logger   zerolog.Logger
}

type dusterRow struct {
	DusterWallet string `json:"DUSTER_WALLET"`
}

// NewSource builds the source and its TTL cache
func NewSource(opts Options, logger zerolog.Logger) (*Source, error) {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	cacheCfg := bigcache.DefaultConfig(ttl)
	cacheCfg.Shards = 16
	cacheCfg.MaxEntriesInWindow = 16
	cacheCfg.MaxEntrySize = 1 << 20
	cacheCfg.CleanWindow = ttl
	cacheCfg.Verbose = false

	cache, err := bigcache.New(context.Background(), cacheCfg)
	if err != nil {
		return nil, fmt.Errorf("creating duster cache: %w", err)
	}

	return &Source{
		url:      opts.URL,
		apiKey:   strings.TrimSpace(opts.APIKey),
		cache:    cache,
		fallback: append(ParseList(builtinList), opts.FallbackAddresses...),
		logger:   logger.With().Str("component", sourceName).Logger(),
	}, nil
}

// Dusters returns the known-duster wallets using hc for any network call.
func (s *Source) Dusters(ctx context.Context, hc *http.Client) ([]string, Origin) {
	if cached, err := s.cache.Get(cacheKey); err == nil {
		return ParseList(cached), OriginCache
	} else if !errors.Is(err, bigcache.ErrEntryNotFound) {
		s.logger.Warn().Err(err).Msg("Duster cache read failed")
	}

	if s.apiKey == "" {
		cfgErr := &models.ConfigurationError{Key: "FLIPSIDE_API_KEY", Reason: "is not set"}
		s.logger.Warn().Err(cfgErr).Int("fallback_size", len(s.fallback)).Msg("Using built-in duster list")
		return s.Fallback(), OriginFallback
	}

	addrs, err := s.fetch(ctx, hc)
	if err != nil {
		s.logger.Warn().Err(err).Int("fallback_size", len(s.fallback)).Msg("Duster list fetch failed, using built-in list")
		return s.Fallback(), OriginFallback
	}

	if err := s.cache.Set(cacheKey, []byte(strings.Join(addrs, "\n"))); err != nil {
		s.logger.Warn().Err(err).Msg("Duster cache write failed")
	}
	s.logger.Info().Int("dusters", len(addrs)).Msg("Loaded duster list from Flipside")
	return addrs, OriginFlipside
}

// Fallback returns a copy of the built-in list
func (s *Source) Fallback() []string {
	out := make([]string, len(s.fallback))
	copy(out, s.fallback)
	return out
}

// Close releases the cache
func (s *Source) Close() error {
	return s.cache.Close()
}

func (s *Source) fetch(ctx context.Context, hc *http.Client) ([]string, error) {
	if hc == nil {
		hc = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", s.apiKey)

	resp, err := hc.Do(req)
	if err != nil {
		return nil, &models.FetchError{Source: sourceName, Message: "request failed", Err: err}
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &models.FetchError{Source: sourceName, StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	var rows []dusterRow
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&rows); err != nil {
		return nil, &models.FetchError{Source: sourceName, Message: "malformed duster payload", Err: err}
	}

	seen := make(map[string]struct{}, len(rows))
	addrs := make([]string, 0, len(rows))
	for _, r := range rows {
		a := strings.TrimSpace(r.DusterWallet)
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		addrs = append(addrs, a)
	}
	return addrs, nil
}

// ParseList reads one address per line, skipping blanks and # comments
func ParseList(data []byte) []string {
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
