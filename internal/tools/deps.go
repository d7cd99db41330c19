// Package tools provides MCP tool handlers and registration.
package tools

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rawblock/solsecurity/pkg/models"
)

// Analyzer is the subset of the analyzer service the tools call.
type Analyzer interface {
	AnalyzeWalletPoisoning(ctx context.Context, wallet string) (*models.AnalysisResult, error)
	AnalyzeWalletDusting(ctx context.Context, wallet string) (*models.AnalysisResult, error)
	ScoreWalletTransactions(ctx context.Context, wallet string) (*models.RiskReport, error)
}

// Dependencies holds shared services for tool handlers.
// Passed to handler factories via closure capture.
type Dependencies struct {
	Analyzer Analyzer
	Logger   zerolog.Logger
}
