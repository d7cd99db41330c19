package heuristics

import (
	"github.com/shopspring/decimal"

	"github.com/rawblock/solsecurity/pkg/models"
)

// Dust Detection
//
// Dusting is an active surveillance and lure technique: an adversary sends
// negligible amounts to a target so the sending address lands in the
// target's history. Paired with a lookalike address it primes the victim
// to copy the wrong destination later.
//
// Dust thresholds (inclusive):
//   native: 0.00001 SOL  (10,000 lamports)
//   token:  0.01 token units

var (
	DustThresholdNative = decimal.New(1, -5)
	DustThresholdToken  = decimal.New(1, -2)
)

// IsDust reports whether an amount is at or below the threshold for its asset class
func IsDust(amount decimal.Decimal, class models.AssetClass) bool {
	switch class {
	case models.AssetNative:
		return amount.LessThanOrEqual(DustThresholdNative)
	case models.AssetToken:
		return amount.LessThanOrEqual(DustThresholdToken)
	default:
		return false
	}
}

// FilterDust keeps the senders of matches whose amount is dust
func FilterDust(matches []models.MimicryMatch) []models.SenderRecord {
	var dust []models.SenderRecord
	for _, m := range matches {
		if IsDust(m.Sender.Amount, m.Sender.AssetClass) {
			dust = append(dust, m.Sender)
		}
	}
	return dust
}
