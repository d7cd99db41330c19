package heuristics

import "github.com/rawblock/solsecurity/pkg/models"

// Mimicry holds the intermediate products of one pipeline run
type Mimicry struct {
	Transfers  []models.Transfer
	Senders    []models.SenderRecord
	Recipients []string
	Matches    []models.MimicryMatch
}

// DetectMimicry runs normalized transfers through role extraction and matching
func DetectMimicry(wallet string, transfers []models.Transfer, strategy SimilarityStrategy) Mimicry {
	senders, recipients := ExtractRoles(wallet, transfers)
	return Mimicry{
		Transfers:  transfers,
		Senders:    senders,
		Recipients: recipients,
		Matches:    MatchMimicry(senders, recipients, strategy),
	}
}

// AnalyzeTransfers is the full sender-level pipeline over normalized transfers
func AnalyzeTransfers(wallet string, transfers []models.Transfer, strategy SimilarityStrategy) models.AnalysisResult {
	m := DetectMimicry(wallet, transfers, strategy)
	result := Summarize(m.Transfers, m.Matches)
	result.WalletAddress = wallet
	result.Strategy = strategy.Name()
	return result
}
