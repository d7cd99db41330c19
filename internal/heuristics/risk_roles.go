package heuristics

import (
	"strings"

	"github.com/rawblock/solsecurity/pkg/models"
)

// ExtractRoles splits the wallet's transfers into the senders that paid it and
// the distinct recipients it paid. Recipients keep first-seen order and the
// casing of their first occurrence.
func ExtractRoles(wallet string, transfers []models.Transfer) ([]models.SenderRecord, []string) {
	var senders []models.SenderRecord
	var recipients []string
	seen := make(map[string]struct{})

	for _, t := range transfers {
		if SameAddress(t.From, wallet) {
			key := strings.ToLower(t.To)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			recipients = append(recipients, t.To)
			continue
		}
		senders = append(senders, models.SenderRecord{
			Address:    t.From,
			Amount:     t.Amount,
			AssetClass: t.AssetClass,
			Signature:  t.Signature,
			Timestamp:  t.Timestamp,
		})
	}

	return senders, recipients
}
