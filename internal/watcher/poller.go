package watcher

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rawblock/solsecurity/internal/alerts"
	"github.com/rawblock/solsecurity/internal/config"
	"github.com/rawblock/solsecurity/pkg/models"
)

// Analyzer runs the poisoning analysis for one wallet
type Analyzer interface {
	AnalyzeWalletPoisoning(ctx context.Context, wallet string) (*models.AnalysisResult, error)
}

// AlertSink receives alerts for wallets with new mimicry findings
type AlertSink interface {
	Emit(alert alerts.Alert)
}

// Poller re-analyzes a fixed set of wallets on an interval and pushes an
// alert whenever a wallet's set of poisoning senders changes.
type Poller struct {
	svc      Analyzer
	sink     AlertSink
	wallets  []string
	interval time.Duration
	seen     map[string]string // wallet → fingerprint of the last alerted finding
	logger   zerolog.Logger
}

func NewPoller(svc Analyzer, sink AlertSink, cfg config.WatchConfig, logger zerolog.Logger) *Poller {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Poller{
		svc:      svc,
		sink:     sink,
		wallets:  cfg.Wallets,
		interval: interval,
		seen:     make(map[string]string),
		logger:   logger.With().Str("component", "watcher").Logger(),
	}
}

func (p *Poller) Run(ctx context.Context) {
	if len(p.wallets) == 0 {
		p.logger.Info().Msg("No wallets to watch, poller idle")
		return
	}
	p.logger.Info().Int("wallets", len(p.wallets)).Dur("interval", p.interval).Msg("Starting wallet watcher")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Forget alerted findings once a day so long-lived threats are re-announced
	cleanupTicker := time.NewTicker(24 * time.Hour)
	defer cleanupTicker.Stop()

	p.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("Stopping wallet watcher")
			return
		case <-cleanupTicker.C:
			p.seen = make(map[string]string)
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick analyzes every watched wallet once and returns the number of alerts sent.
// A failing wallet is logged and skipped.
func (p *Poller) Tick(ctx context.Context) int {
	sent := 0
	for _, wallet := range p.wallets {
		if ctx.Err() != nil {
			return sent
		}

		result, err := p.svc.AnalyzeWalletPoisoning(ctx, wallet)
		if err != nil {
			p.logger.Warn().Err(err).Str("wallet", wallet).Msg("Watched wallet analysis failed")
			continue
		}

		alert, ok := alerts.FromAnalysis("watcher", result)
		if !ok {
			delete(p.seen, wallet)
			continue
		}

		fp := fingerprint(result)
		if p.seen[wallet] == fp {
			continue
		}
		p.seen[wallet] = fp

		p.sink.Emit(alert)
		sent++
	}
	return sent
}

func fingerprint(r *models.AnalysisResult) string {
	keys := make([]string, 0, len(r.PoisonedAddresses))
	for _, s := range r.PoisonedAddresses {
		keys = append(keys, s.Address+"/"+s.Amount.String()+"/"+string(s.AssetClass))
	}
	sort.Strings(keys)
	return string(r.Outcome) + "|" + strings.Join(keys, ",")
}
