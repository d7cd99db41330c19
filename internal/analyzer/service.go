package analyzer

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rawblock/solsecurity/internal/config"
	"github.com/rawblock/solsecurity/internal/flipside"
	"github.com/rawblock/solsecurity/internal/helius"
	"github.com/rawblock/solsecurity/internal/heuristics"
	"github.com/rawblock/solsecurity/internal/metrics"
	"github.com/rawblock/solsecurity/internal/shadow"
	"github.com/rawblock/solsecurity/pkg/models"
)

// fundingConcurrency bounds parallel first-funding lookups per run
const fundingConcurrency = 4

// TransactionSource is a run-scoped transaction reader
type TransactionSource interface {
	RecentTransactions(ctx context.Context, address string, limit int) ([]models.RawTransaction, error)
	FirstFunded(ctx context.Context, address string, limit int) (time.Time, bool, error)
	Close()
}

// SourceFactory builds a fresh TransactionSource for one run
type SourceFactory func() (TransactionSource, error)

// DusterSource serves the known-duster list
type DusterSource interface {
	Dusters(ctx context.Context, hc *http.Client) ([]string, flipside.Origin)
}

// Service exposes the wallet analyses
type Service struct {
	cfg       *config.Config
	newSource SourceFactory
	dusters   DusterSource
	strategy  heuristics.SimilarityStrategy
	shadow    *shadow.ShadowRunner
	scoring   heuristics.ScoringOptions
	metrics   *metrics.Recorder
	logger    zerolog.Logger
}

// Option customizes a Service
type Option func(*Service)

// WithSourceFactory replaces the Helius-backed transaction source
func WithSourceFactory(f SourceFactory) Option {
	return func(s *Service) { s.newSource = f }
}

// WithMetrics attaches a metrics recorder
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService wires the engine from configuration
func NewService(cfg *config.Config, dusters DusterSource, logger zerolog.Logger, opts ...Option) (*Service, error) {
	strategy, err := heuristics.NewStrategy(cfg.Engine.SimilarityStrategy, cfg.Engine.TieredMinTier)
	if err != nil {
		return nil, err
	}

	s := &Service{
		cfg:      cfg,
		dusters:  dusters,
		strategy: strategy,
		scoring:  cfg.ScoringOptions(),
		logger:   logger.With().Str("component", "analyzer").Logger(),
	}
	s.newSource = func() (TransactionSource, error) {
		c, err := helius.NewClient(helius.Options{
			BaseURL:    cfg.Helius.BaseURL,
			APIKey:     cfg.Helius.APIKey,
			RateLimit:  cfg.Helius.RateLimit,
			Timeout:    cfg.Helius.HTTPTimeout,
			MaxRetries: cfg.Helius.MaxRetries,
			RetryDelay: cfg.Helius.RetryDelay,
		}, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	for _, opt := range opts {
		opt(s)
	}
	s.shadow = shadow.NewShadowRunner(strategy, cfg.Engine.TieredMinTier, logger)
	return s, nil
}

// Strategy returns the active similarity strategy name
func (s *Service) Strategy() string {
	return s.strategy.Name()
}

// run carries per-analysis state
type run struct {
	id     string
	wallet string
	start  time.Time
	source TransactionSource
	logger zerolog.Logger
}

func (s *Service) begin(kind, wallet string) (*run, error) {
	wallet = strings.TrimSpace(wallet)
	if err := ValidateAddress(wallet); err != nil {
		return nil, err
	}

	src, err := s.newSource()
	if err != nil {
		s.logger.Error().Err(err).Str("wallet", wallet).Msg("Cannot build transaction source")
		return nil, err
	}

	id := uuid.NewString()
	return &run{
		id:     id,
		wallet: wallet,
		start:  time.Now(),
		source: src,
		logger: s.logger.With().Str("run_id", id).Str("kind", kind).Str("wallet", wallet).Logger(),
	}, nil
}

func (r *run) end() {
	r.source.Close()
}

// fetchTransfers reads and normalizes the wallet's recent transfers
func (s *Service) fetchTransfers(ctx context.Context, r *run) ([]models.Transfer, error) {
	records, err := r.source.RecentTransactions(ctx, r.wallet, s.cfg.Helius.TxLimit)
	if err != nil {
		s.countFetchError(err)
		return nil, err
	}

	norm := heuristics.NormalizeTransfers(r.wallet, records)
	if norm.Dropped > 0 {
		r.logger.Debug().Int("dropped", norm.Dropped).Msg("Dropped malformed transfer records")
	}
	r.logger.Debug().Int("records", len(records)).Int("transfers", len(norm.Transfers)).Msg("Normalized transfers")
	return norm.Transfers, nil
}

// AnalyzeWalletPoisoning runs the sender-level mimicry pipeline for a wallet
func (s *Service) AnalyzeWalletPoisoning(ctx context.Context, wallet string) (*models.AnalysisResult, error) {
	r, err := s.begin("poisoning", wallet)
	if err != nil {
		return nil, err
	}
	defer r.end()

	transfers, err := s.fetchTransfers(ctx, r)
	if err != nil {
		return nil, err
	}

	result := heuristics.AnalyzeTransfers(r.wallet, transfers, s.strategy)
	s.finish(r, &result)

	if s.cfg.Engine.ShadowEnabled {
		if report := s.shadow.Run(r.wallet, transfers); report.Diverged {
			s.metrics.ShadowDivergence()
		}
	}

	s.metrics.ObserveAnalysis("poisoning", string(result.Outcome), time.Since(r.start))
	return &result, nil
}

// AnalyzeWalletDusting runs the mimicry pipeline and additionally checks
// every incoming transaction against the known-duster list.
func (s *Service) AnalyzeWalletDusting(ctx context.Context, wallet string) (*models.AnalysisResult, error) {
	r, err := s.begin("dusting", wallet)
	if err != nil {
		return nil, err
	}
	defer r.end()

	transfers, err := s.fetchTransfers(ctx, r)
	if err != nil {
		return nil, err
	}

	result := heuristics.AnalyzeTransfers(r.wallet, transfers, s.strategy)

	hc := &http.Client{Timeout: s.cfg.Helius.HTTPTimeout}
	defer hc.CloseIdleConnections()

	dusters, origin := s.dusters.Dusters(ctx, hc)
	s.metrics.DusterList(string(origin))

	watchlist := heuristics.NewDusterWatchlist()
	watchlist.LoadAddresses(dusters, string(origin))
	result.KnownDusterHits = watchlist.CheckTransfers(r.wallet, transfers)

	flagged := 0
	for _, h := range result.KnownDusterHits {
		if h.IsDusting {
			flagged++
		}
	}
	r.logger.Info().
		Str("duster_origin", string(origin)).
		Int("dusters", watchlist.Size()).
		Int("incoming_txs", len(result.KnownDusterHits)).
		Int("known_duster_txs", flagged).
		Msg("Checked known dusters")

	s.finish(r, &result)
	s.metrics.ObserveAnalysis("dusting", string(result.Outcome), time.Since(r.start))
	return &result, nil
}

// ScoreWalletTransactions runs the transaction-level risk scorer
func (s *Service) ScoreWalletTransactions(ctx context.Context, wallet string) (*models.RiskReport, error) {
	r, err := s.begin("risk", wallet)
	if err != nil {
		return nil, err
	}
	defer r.end()

	transfers, err := s.fetchTransfers(ctx, r)
	if err != nil {
		return nil, err
	}

	pairs := heuristics.FindCandidates(r.wallet, transfers, s.scoring)
	funding := s.lookupFunding(ctx, r, heuristics.FundingTargets(pairs))

	txs := heuristics.ScoreTransactions(transfers, pairs, funding, s.scoring)
	report := heuristics.BuildRiskReport(r.wallet, txs)
	report.RunID = r.id
	report.AnalyzedAt = time.Now().UTC()

	degraded := 0
	for _, tx := range txs {
		if tx.Degraded {
			degraded++
		}
	}
	s.metrics.DegradedTransactions(degraded)

	r.logger.Info().
		Int("transactions", report.TotalTransactions).
		Int("candidates", len(pairs)).
		Int("high", report.HighRiskCount).
		Int("medium", report.MediumRiskCount).
		Int("medium_low", report.MediumLowRiskCount).
		Int("clean", report.CleanCount).
		Int("degraded", degraded).
		Msg("Risk scoring complete")

	s.metrics.ObserveAnalysis("risk", "complete", time.Since(r.start))
	return &report, nil
}

// ShadowCompare runs both similarity strategies on the wallet's transfers
func (s *Service) ShadowCompare(ctx context.Context, wallet string) (*shadow.Report, error) {
	r, err := s.begin("shadow", wallet)
	if err != nil {
		return nil, err
	}
	defer r.end()

	transfers, err := s.fetchTransfers(ctx, r)
	if err != nil {
		return nil, err
	}

	report := s.shadow.Run(r.wallet, transfers)
	if report.Diverged {
		s.metrics.ShadowDivergence()
	}
	return report, nil
}

// lookupFunding resolves first-funding times with bounded parallelism.
// Failures are recorded per address and degrade only the affected transactions.
func (s *Service) lookupFunding(ctx context.Context, r *run, targets []string) map[string]heuristics.FundingStatus {
	results := make([]heuristics.FundingStatus, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fundingConcurrency)
	for i, addr := range targets {
		g.Go(func() error {
			first, known, err := r.source.FirstFunded(gctx, addr, s.cfg.Engine.FundingLookupLimit)
			if err != nil {
				unavailable := &models.ScoringUnavailableError{Subject: addr, Err: err}
				r.logger.Warn().Err(unavailable).Str("sender", addr).Msg("Funding lookup failed, affected transactions scored Clean")
				s.countFetchError(err)
			}
			results[i] = heuristics.FundingStatus{FirstFunded: first, Known: known, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	funding := make(map[string]heuristics.FundingStatus, len(targets))
	for i, addr := range targets {
		funding[addr] = results[i]
	}
	return funding
}

func (s *Service) finish(r *run, result *models.AnalysisResult) {
	result.RunID = r.id
	result.WalletAddress = r.wallet
	result.Strategy = s.strategy.Name()
	result.AnalyzedAt = time.Now().UTC()

	r.logger.Info().
		Str("outcome", string(result.Outcome)).
		Int("transfers", result.TotalTransactionsAnalyzed).
		Int("poisoning_attempts", result.ConfirmedPoisoningAttempts).
		Int("dusting_attempts", result.DustingAttempts).
		Dur("elapsed", time.Since(r.start)).
		Msg("Analysis complete")
}

func (s *Service) countFetchError(err error) {
	var fe *models.FetchError
	if errors.As(err, &fe) {
		s.metrics.FetchError(fe.Source)
	}
}
