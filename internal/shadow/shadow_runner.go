package shadow

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rawblock/solsecurity/internal/heuristics"
	"github.com/rawblock/solsecurity/pkg/models"
)

// ShadowRunner evaluates the non-selected similarity strategy next to the
// production one on the same transfers. Shadow results are reported and
// logged, never merged into the production verdict.
type ShadowRunner struct {
	production heuristics.SimilarityStrategy
	shadow     heuristics.SimilarityStrategy
	logger     zerolog.Logger
}

// PairKey identifies one (sender, mimicked recipient) match
type PairKey struct {
	Sender          string `json:"sender"`
	MimickedAddress string `json:"mimickedAddress"`
	VisualTier      int    `json:"visualTier"`
}

// Report captures the diff between production and shadow matching
type Report struct {
	WalletAddress      string    `json:"walletAddress"`
	ProductionStrategy string    `json:"productionStrategy"`
	ShadowStrategy     string    `json:"shadowStrategy"`
	ProductionMatches  int       `json:"productionMatches"`
	ShadowMatches      int       `json:"shadowMatches"`
	ProductionOutcome  string    `json:"productionOutcome"`
	ShadowOutcome      string    `json:"shadowOutcome"`
	OnlyProduction     []PairKey `json:"onlyProduction"`
	OnlyShadow         []PairKey `json:"onlyShadow"`
	Diverged           bool      `json:"diverged"`
	CreatedAt          time.Time `json:"createdAt"`
}

// NewShadowRunner pairs the production strategy with its counterpart
func NewShadowRunner(production heuristics.SimilarityStrategy, minTier int, logger zerolog.Logger) *ShadowRunner {
	var shadow heuristics.SimilarityStrategy = heuristics.Prefix4Strategy{}
	if production.Name() == heuristics.StrategyPrefix4 {
		if minTier < 1 || minTier > 5 {
			minTier = heuristics.DefaultMinTier
		}
		shadow = heuristics.TieredStrategy{MinTier: minTier}
	}
	return &ShadowRunner{
		production: production,
		shadow:     shadow,
		logger:     logger.With().Str("component", "shadow").Logger(),
	}
}

// Run matches the transfers with both strategies and diffs the pair sets
func (sr *ShadowRunner) Run(wallet string, transfers []models.Transfer) *Report {
	prodMatches := heuristics.DetectMimicry(wallet, transfers, sr.production).Matches
	shadMatches := heuristics.DetectMimicry(wallet, transfers, sr.shadow).Matches

	prod := heuristics.Summarize(transfers, prodMatches)
	shad := heuristics.Summarize(transfers, shadMatches)

	prodSet := pairSet(prodMatches)
	shadSet := pairSet(shadMatches)

	report := &Report{
		WalletAddress:      wallet,
		ProductionStrategy: sr.production.Name(),
		ShadowStrategy:     sr.shadow.Name(),
		ProductionMatches:  len(prodSet),
		ShadowMatches:      len(shadSet),
		ProductionOutcome:  string(prod.Outcome),
		ShadowOutcome:      string(shad.Outcome),
		OnlyProduction:     difference(prodMatches, shadSet),
		OnlyShadow:         difference(shadMatches, prodSet),
		CreatedAt:          time.Now().UTC(),
	}
	report.Diverged = len(report.OnlyProduction) > 0 || len(report.OnlyShadow) > 0 ||
		report.ProductionOutcome != report.ShadowOutcome

	// Log divergences for monitoring
	if report.Diverged {
		sr.logger.Info().
			Str("wallet", wallet).
			Str("production", report.ProductionStrategy).
			Str("shadow", report.ShadowStrategy).
			Int("only_production", len(report.OnlyProduction)).
			Int("only_shadow", len(report.OnlyShadow)).
			Str("production_outcome", report.ProductionOutcome).
			Str("shadow_outcome", report.ShadowOutcome).
			Msg("Shadow divergence")
	}

	return report
}

func keyFor(m models.MimicryMatch) PairKey {
	return PairKey{
		Sender:          m.Sender.Address,
		MimickedAddress: m.MimickedAddress,
		VisualTier:      m.VisualTier,
	}
}

func pairSet(matches []models.MimicryMatch) map[string]struct{} {
	set := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		set[identity(m)] = struct{}{}
	}
	return set
}

func identity(m models.MimicryMatch) string {
	return strings.ToLower(m.Sender.Address) + "|" + strings.ToLower(m.MimickedAddress)
}

func difference(matches []models.MimicryMatch, other map[string]struct{}) []PairKey {
	out := []PairKey{}
	seen := make(map[string]struct{})
	for _, m := range matches {
		id := identity(m)
		if _, ok := other[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, keyFor(m))
	}
	return out
}
