package heuristics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rawblock/solsecurity/pkg/models"
)

// Transfer Normalizer
//
// Flattens enhanced-transaction records into Transfers that touch the
// subject wallet. Native sub-entries are emitted before token sub-entries
// within each record; record order is preserved.
//
// Unit handling:
//   native: lamports / 10^9 → whole SOL (exact decimal shift)
//   token:  kept as reported, no implicit unit
//
// A sub-entry with a missing party or an absent/unparsable amount is a
// malformed record and is dropped without failing the batch.

// LamportsDecimals: 1 SOL = 10^9 lamports
const LamportsDecimals = 9

// NormalizeResult carries the normalized transfers plus the number of
// sub-entries that were dropped as malformed.
type NormalizeResult struct {
	Transfers []models.Transfer
	Dropped   int
}

// NormalizeTransfers keeps only sub-entries where the wallet is sender or
// recipient (case-insensitive).
func NormalizeTransfers(wallet string, records []models.RawTransaction) NormalizeResult {
	var res NormalizeResult

	for _, rec := range records {
		ts := time.Unix(rec.Timestamp, 0).UTC()

		for _, nt := range rec.NativeTransfers {
			if nt.FromUserAccount == "" || nt.ToUserAccount == "" {
				res.Dropped++
				continue
			}
			if !touchesWallet(wallet, nt.FromUserAccount, nt.ToUserAccount) {
				continue
			}
			lamports, err := parseRawAmount(nt.Amount)
			if err != nil {
				res.Dropped++
				continue
			}
			res.Transfers = append(res.Transfers, models.Transfer{
				Signature:  rec.Signature,
				Timestamp:  ts,
				From:       nt.FromUserAccount,
				To:         nt.ToUserAccount,
				Amount:     lamports.Shift(-LamportsDecimals),
				AssetClass: models.AssetNative,
			})
		}

		for _, tt := range rec.TokenTransfers {
			if tt.FromUserAccount == "" || tt.ToUserAccount == "" {
				res.Dropped++
				continue
			}
			if !touchesWallet(wallet, tt.FromUserAccount, tt.ToUserAccount) {
				continue
			}
			amount, err := parseRawAmount(tt.TokenAmount)
			if err != nil {
				res.Dropped++
				continue
			}
			res.Transfers = append(res.Transfers, models.Transfer{
				Signature:  rec.Signature,
				Timestamp:  ts,
				From:       tt.FromUserAccount,
				To:         tt.ToUserAccount,
				Amount:     amount,
				AssetClass: models.AssetToken,
				Mint:       tt.Mint,
			})
		}
	}

	return res
}

// SameAddress is the single address comparison used across the pipeline
func SameAddress(a, b string) bool {
	return strings.EqualFold(a, b)
}

func touchesWallet(wallet, from, to string) bool {
	return SameAddress(from, wallet) || SameAddress(to, wallet)
}

// parseRawAmount accepts a JSON number or a numeric string
func parseRawAmount(raw json.RawMessage) (decimal.Decimal, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return decimal.Zero, fmt.Errorf("%w: missing amount", models.ErrMalformedRecord)
	}

	text := string(trimmed)
	if trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return decimal.Zero, fmt.Errorf("%w: %v", models.ErrMalformedRecord, err)
		}
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: amount %q: %v", models.ErrMalformedRecord, text, err)
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative amount %s", models.ErrMalformedRecord, amount)
	}
	return amount, nil
}

func lower(s string) string {
	return strings.ToLower(s)
}
