package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetClass distinguishes the chain's native coin from fungible tokens
type AssetClass string

const (
	AssetNative AssetClass = "native"
	AssetToken  AssetClass = "token"
)

// Transfer is a single value movement touching the subject wallet.
// Native amounts are in whole coins (SOL), token amounts in the token's own units.
type Transfer struct {
	Signature  string          `json:"signature"`
	Timestamp  time.Time       `json:"timestamp"`
	From       string          `json:"from"`
	To         string          `json:"to"`
	Amount     decimal.Decimal `json:"amount"`
	AssetClass AssetClass      `json:"assetClass"`
	Mint       string          `json:"mint,omitempty"` // Token mint, empty for native
}

// SenderRecord is a transfer received by the wallet, viewed from the sender side.
// Identity is (Address, Amount, AssetClass); Signature and Timestamp are for reporting only.
type SenderRecord struct {
	Address    string          `json:"address"`
	Amount     decimal.Decimal `json:"amount"`
	AssetClass AssetClass      `json:"assetClass"`
	Signature  string          `json:"signature,omitempty"`
	Timestamp  time.Time       `json:"timestamp,omitempty"`
}

// MimicryMatch pairs a sender with the past recipient it visually resembles
type MimicryMatch struct {
	Sender          SenderRecord `json:"sender"`
	MimickedAddress string       `json:"mimickedAddress"`
	VisualTier      int          `json:"visualTier"` // 0-5
}

// RiskLabel is the severity bucket derived from a final score
type RiskLabel string

const (
	RiskHigh      RiskLabel = "High Risk"
	RiskMedium    RiskLabel = "Medium Risk"
	RiskMediumLow RiskLabel = "Medium-Low Risk"
	RiskClean     RiskLabel = "Clean"
)

// RiskedTransaction is the per-transaction verdict of the transaction-level scorer
type RiskedTransaction struct {
	TxID           string    `json:"txid"`
	From           string    `json:"from"`
	To             string    `json:"to"`
	BlockTimestamp time.Time `json:"blockTimestamp"`
	MimickedFrom   string    `json:"mimickedFrom,omitempty"` // Legitimate recipient the sender resembles
	VisualTier     int       `json:"visualTier"`
	FinalScore     float64   `json:"finalScore"` // 0-100
	RiskLabel      RiskLabel `json:"riskLabel"`
	Degraded       bool      `json:"degraded,omitempty"` // Scoring inputs were unavailable
}

// Outcome names the terminal state of the summary state machine
type Outcome string

const (
	OutcomeNoTransactions Outcome = "no_transactions"
	OutcomeNoMimicryFound Outcome = "no_mimicry_found"
	OutcomeMimicryNoDust  Outcome = "mimicry_no_dust"
	OutcomeMimicryAndDust Outcome = "mimicry_and_dust"
)

// AnalysisResult is the wallet-level poisoning/dusting summary
type AnalysisResult struct {
	RunID                      string         `json:"runId"`
	WalletAddress              string         `json:"walletAddress"`
	Strategy                   string         `json:"strategy"`
	Outcome                    Outcome        `json:"outcome"`
	TotalTransactionsAnalyzed  int            `json:"totalTransactionsAnalyzed"`
	ConfirmedPoisoningAttempts int            `json:"confirmedPoisoningAttempts"`
	PoisonedAddresses          []SenderRecord `json:"poisonedAddresses"`
	DustingAttempts            int            `json:"dustingAttempts"`
	MimickedAddresses          []string       `json:"mimickedAddresses"`
	KnownDusterHits            []DusterHit    `json:"knownDusterHits,omitempty"`
	Message                    string         `json:"message"`
	AnalyzedAt                 time.Time      `json:"analyzedAt"`
}

// DusterHit reports the senders of one incoming transaction and whether any is a known duster
type DusterHit struct {
	Signature string   `json:"signature"`
	Senders   []string `json:"senders"`
	IsDusting bool     `json:"isDusting"`
}

// RiskReport is the transaction-level scoring output for a wallet
type RiskReport struct {
	RunID              string              `json:"runId"`
	WalletAddress      string              `json:"walletAddress"`
	TotalTransactions  int                 `json:"totalTransactions"`
	HighRiskCount      int                 `json:"highRiskCount"`
	MediumRiskCount    int                 `json:"mediumRiskCount"`
	MediumLowRiskCount int                 `json:"mediumLowRiskCount"`
	CleanCount         int                 `json:"cleanCount"`
	Transactions       []RiskedTransaction `json:"transactions"`
	AnalyzedAt         time.Time           `json:"analyzedAt"`
}
