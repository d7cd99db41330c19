package heuristics

import (
	"fmt"

	"github.com/rawblock/solsecurity/pkg/models"
)

// Summary messages, one per terminal outcome
const (
	MsgNoTransactions = "No frequent transaction found for this wallet."
	MsgNoMimicryFound = "No address poisoning threats found."
	MsgMimicryNoDust  = "Potential poisoning attempts detected but no dusting seen. Be cautious when copying addresses from your history."
)

// senderKey is the sender identity used for deduplication
type senderKey struct {
	address string
	amount  string
	class   models.AssetClass
}

func keyOf(s models.SenderRecord) senderKey {
	return senderKey{address: lower(s.Address), amount: s.Amount.String(), class: s.AssetClass}
}

// DedupeSenders removes repeated (address, amount, asset class) triples, keeping first-seen order.
// Addresses compare case-insensitively and keep the first-seen casing.
// Amounts are compared numerically; 1.0 and 1.00 are the same amount.
func DedupeSenders(senders []models.SenderRecord) []models.SenderRecord {
	seen := make(map[senderKey]struct{}, len(senders))
	out := make([]models.SenderRecord, 0, len(senders))
	for _, s := range senders {
		k := keyOf(s)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}

// DedupeMimicked returns the distinct mimicked addresses in first-seen order, case preserved
func DedupeMimicked(matches []models.MimicryMatch) []string {
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m.MimickedAddress]; ok {
			continue
		}
		seen[m.MimickedAddress] = struct{}{}
		out = append(out, m.MimickedAddress)
	}
	return out
}

// Summarize runs the outcome state machine. States are checked in order and
// the first whose precondition holds is terminal.
func Summarize(transfers []models.Transfer, matches []models.MimicryMatch) models.AnalysisResult {
	result := models.AnalysisResult{
		TotalTransactionsAnalyzed: len(transfers),
		PoisonedAddresses:         []models.SenderRecord{},
		MimickedAddresses:         []string{},
	}

	if len(transfers) == 0 {
		result.Outcome = models.OutcomeNoTransactions
		result.Message = MsgNoTransactions
		return result
	}

	if len(matches) == 0 {
		result.Outcome = models.OutcomeNoMimicryFound
		result.Message = MsgNoMimicryFound
		return result
	}

	matchedSenders := make([]models.SenderRecord, 0, len(matches))
	for _, m := range matches {
		matchedSenders = append(matchedSenders, m.Sender)
	}
	poisoned := DedupeSenders(matchedSenders)

	result.ConfirmedPoisoningAttempts = len(poisoned)
	result.PoisonedAddresses = poisoned
	result.MimickedAddresses = DedupeMimicked(matches)

	dust := DedupeSenders(FilterDust(matches))
	result.DustingAttempts = len(dust)

	if len(dust) == 0 {
		result.Outcome = models.OutcomeMimicryNoDust
		result.Message = MsgMimicryNoDust
		return result
	}

	result.Outcome = models.OutcomeMimicryAndDust
	result.Message = fmt.Sprintf(
		"Detected %d potential address poisoning attempt(s), %d of them with dust amounts, mimicking %d of your past recipient address(es). Verify every character before sending.",
		result.ConfirmedPoisoningAttempts, result.DustingAttempts, len(result.MimickedAddresses))
	return result
}
