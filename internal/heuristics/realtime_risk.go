package heuristics

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rawblock/solsecurity/pkg/models"
)

// Transaction-Level Poisoning Risk Scorer
//
// Pairs every small incoming native transfer (the candidate) with the
// wallet's larger outgoing transfers of the preceding 24 hours (the
// legitimate transfers it may be imitating) and scores each pair.
//
// Score composition (each sub-score 0-100):
//   visual tier > 2        → 100, conclusive on its own
//   otherwise  0.5 × time proximity
//            + 0.3 × amount plausibility
//            + 0.2 × funding recency
//
// Labels:
//   High Risk        (≥80)
//   Medium Risk      (≥50)
//   Medium-Low Risk  (≥20)
//   Clean            (<20)

const (
	WeightTime    = 0.5
	WeightAmount  = 0.3
	WeightFunding = 0.2

	TimeDecayRate     = 0.2 // per minute
	TimeScoreFloor    = 5.0
	FreshFundingScore = 20.0

	ConclusiveTier = 2 // tiers above this force a score of 100

	ThresholdHigh      = 80.0
	ThresholdMedium    = 50.0
	ThresholdMediumLow = 20.0
)

// FreshFundingWindow is how recently a sender must have been funded to count as fresh
const FreshFundingWindow = 1440 * time.Minute

// tierCostUSD is the approximate cost of grinding an address with the given resemblance
var tierCostUSD = [6]float64{0, 0.000004, 0.0003, 0.02, 0.90, 26.25}

// TierCost returns the cost-to-fake for a visual tier, 0 for out-of-range tiers
func TierCost(tier int) float64 {
	if tier < 0 || tier >= len(tierCostUSD) {
		return 0
	}
	return tierCostUSD[tier]
}

// ScoringOptions bound candidate selection and amount valuation
type ScoringOptions struct {
	SuspiciousMaxAmount decimal.Decimal // candidate amounts must be strictly below
	LegitMinAmount      decimal.Decimal // legitimate transfers must be at least this
	LookbackWindow      time.Duration
	NativeUSDPrice      decimal.Decimal // zero compares whole-coin amounts directly
}

// DefaultScoringOptions mirrors the window and limits used by the risk report
func DefaultScoringOptions() ScoringOptions {
	return ScoringOptions{
		SuspiciousMaxAmount: decimal.NewFromInt(5),
		LegitMinAmount:      decimal.Zero,
		LookbackWindow:      24 * time.Hour,
	}
}

// CandidatePair is a suspicious incoming transfer against the legitimate outgoing transfer it resembles
type CandidatePair struct {
	Suspicious models.Transfer
	Legit      models.Transfer
	VisualTier int
}

// NeedsFunding reports whether the pair's score depends on the sender's funding time
func (c CandidatePair) NeedsFunding() bool {
	return c.VisualTier <= ConclusiveTier
}

// FundingStatus is the outcome of a first-funding lookup for one sender
type FundingStatus struct {
	FirstFunded time.Time
	Known       bool // false when the account predates the lookup window
	Err         error
}

// FindCandidates builds every (suspicious, legitimate) pair in the window.
// A pair needs at least one shared leading and one shared trailing character.
func FindCandidates(wallet string, transfers []models.Transfer, opts ScoringOptions) []CandidatePair {
	var outgoing []models.Transfer
	for _, t := range transfers {
		if t.AssetClass == models.AssetNative && SameAddress(t.From, wallet) &&
			t.Amount.GreaterThanOrEqual(opts.LegitMinAmount) {
			outgoing = append(outgoing, t)
		}
	}

	var pairs []CandidatePair
	for _, sus := range transfers {
		if sus.AssetClass != models.AssetNative || !SameAddress(sus.To, wallet) || SameAddress(sus.From, wallet) {
			continue
		}
		if !sus.Amount.LessThan(opts.SuspiciousMaxAmount) {
			continue
		}
		sender := lower(sus.From)

		for _, legit := range outgoing {
			if !legit.Timestamp.Before(sus.Timestamp) {
				continue
			}
			if sus.Timestamp.Sub(legit.Timestamp) > opts.LookbackWindow {
				continue
			}
			if !legit.Amount.GreaterThan(sus.Amount) {
				continue
			}
			recipient := lower(legit.To)
			if sender == recipient {
				continue
			}
			p, s := CommonPrefixLen(sender, recipient), CommonSuffixLen(sender, recipient)
			if p < 1 || s < 1 {
				continue
			}
			pairs = append(pairs, CandidatePair{
				Suspicious: sus,
				Legit:      legit,
				VisualTier: VisualTier(p, s),
			})
		}
	}
	return pairs
}

// ScoreCandidate blends the sub-scores for one pair
func ScoreCandidate(tier int, minutesBetween, amount float64, freshlyFunded bool) float64 {
	if tier > ConclusiveTier {
		return 100
	}

	timeScore := clampFloat(100*math.Exp(-TimeDecayRate*minutesBetween), TimeScoreFloor, 100)

	amountScore := 0.0
	if cost := TierCost(tier); cost > 0 && amount < cost {
		amountScore = (1 - amount/cost) * 100
	}

	fundingScore := 0.0
	if freshlyFunded {
		fundingScore = FreshFundingScore
	}

	score := WeightTime*timeScore + WeightAmount*amountScore + WeightFunding*fundingScore
	return clampFloat(math.Round(score*100)/100, 0, 100)
}

// ClassifyRisk maps a final score to its label
func ClassifyRisk(score float64) models.RiskLabel {
	switch {
	case score >= ThresholdHigh:
		return models.RiskHigh
	case score >= ThresholdMedium:
		return models.RiskMedium
	case score >= ThresholdMediumLow:
		return models.RiskMediumLow
	default:
		return models.RiskClean
	}
}

// ScoreTransactions produces one verdict per distinct transaction signature, in
// first-seen order. The best pair of a transaction wins; a transaction whose
// pairs all lack funding data is reported Clean and marked degraded.
func ScoreTransactions(transfers []models.Transfer, pairs []CandidatePair, funding map[string]FundingStatus, opts ScoringOptions) []models.RiskedTransaction {
	type verdict struct {
		tx       models.RiskedTransaction
		scored   bool
		degraded bool
	}

	order := make([]string, 0)
	byTx := make(map[string]*verdict)
	for _, t := range transfers {
		if _, ok := byTx[t.Signature]; ok {
			continue
		}
		order = append(order, t.Signature)
		byTx[t.Signature] = &verdict{tx: models.RiskedTransaction{
			TxID:           t.Signature,
			From:           t.From,
			To:             t.To,
			BlockTimestamp: t.Timestamp,
			RiskLabel:      models.RiskClean,
		}}
	}

	for _, pair := range pairs {
		v, ok := byTx[pair.Suspicious.Signature]
		if !ok {
			continue
		}

		fresh := false
		if pair.NeedsFunding() {
			status, found := funding[pair.Suspicious.From]
			if !found || status.Err != nil {
				v.degraded = true
				continue
			}
			fresh = status.Known && pair.Suspicious.Timestamp.Sub(status.FirstFunded) < FreshFundingWindow
		}

		minutes := pair.Suspicious.Timestamp.Sub(pair.Legit.Timestamp).Minutes()
		score := ScoreCandidate(pair.VisualTier, minutes, valueAmount(pair.Suspicious.Amount, opts), fresh)

		if !v.scored || score > v.tx.FinalScore {
			v.scored = true
			v.tx.From = pair.Suspicious.From
			v.tx.To = pair.Suspicious.To
			v.tx.BlockTimestamp = pair.Suspicious.Timestamp
			v.tx.MimickedFrom = pair.Legit.To
			v.tx.VisualTier = pair.VisualTier
			v.tx.FinalScore = score
			v.tx.RiskLabel = ClassifyRisk(score)
		}
	}

	out := make([]models.RiskedTransaction, 0, len(order))
	for _, sig := range order {
		v := byTx[sig]
		if !v.scored && v.degraded {
			v.tx.Degraded = true
		}
		out = append(out, v.tx)
	}
	return out
}

// FundingTargets lists the distinct senders whose funding time is needed to
// score the pairs, sorted for stable lookups. Addresses keep their casing.
func FundingTargets(pairs []CandidatePair) []string {
	seen := make(map[string]struct{})
	for _, p := range pairs {
		if p.NeedsFunding() {
			seen[p.Suspicious.From] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for addr := range seen {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}

// BuildRiskReport tallies verdicts by label
func BuildRiskReport(wallet string, txs []models.RiskedTransaction) models.RiskReport {
	report := models.RiskReport{
		WalletAddress:     wallet,
		TotalTransactions: len(txs),
		Transactions:      txs,
	}
	for _, tx := range txs {
		switch tx.RiskLabel {
		case models.RiskHigh:
			report.HighRiskCount++
		case models.RiskMedium:
			report.MediumRiskCount++
		case models.RiskMediumLow:
			report.MediumLowRiskCount++
		default:
			report.CleanCount++
		}
	}
	return report
}

func valueAmount(amount decimal.Decimal, opts ScoringOptions) float64 {
	if opts.NativeUSDPrice.IsPositive() {
		return amount.Mul(opts.NativeUSDPrice).InexactFloat64()
	}
	return amount.InexactFloat64()
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
