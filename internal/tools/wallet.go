package tools

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// WalletInput defines the input schema shared by the wallet tools.
type WalletInput struct {
	WalletAddress string `json:"wallet_address" jsonschema:"The Solana wallet address to analyze"`
}

// NewPoisoningHandler creates the analyze_wallet_poisoning tool handler.
func NewPoisoningHandler(deps *Dependencies) mcp.ToolHandlerFor[WalletInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input WalletInput) (*mcp.CallToolResult, any, error) {
		if strings.TrimSpace(input.WalletAddress) == "" {
			return ErrorResult("wallet_address is required", "Provide the wallet to analyze"), nil, nil
		}

		result, err := deps.Analyzer.AnalyzeWalletPoisoning(ctx, input.WalletAddress)
		if err != nil {
			deps.Logger.Warn().Err(err).Str("tool", "analyze_wallet_poisoning").Msg("Tool call failed")
			return analysisError(err), nil, nil
		}
		return JSONResult(result), nil, nil
	}
}

// NewDustingHandler creates the check_wallet_dusting tool handler.
func NewDustingHandler(deps *Dependencies) mcp.ToolHandlerFor[WalletInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input WalletInput) (*mcp.CallToolResult, any, error) {
		if strings.TrimSpace(input.WalletAddress) == "" {
			return ErrorResult("wallet_address is required", "Provide the wallet to check"), nil, nil
		}

		result, err := deps.Analyzer.AnalyzeWalletDusting(ctx, input.WalletAddress)
		if err != nil {
			deps.Logger.Warn().Err(err).Str("tool", "check_wallet_dusting").Msg("Tool call failed")
			return analysisError(err), nil, nil
		}
		return JSONResult(result), nil, nil
	}
}

// NewRiskHandler creates the score_wallet_transactions tool handler.
func NewRiskHandler(deps *Dependencies) mcp.ToolHandlerFor[WalletInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input WalletInput) (*mcp.CallToolResult, any, error) {
		if strings.TrimSpace(input.WalletAddress) == "" {
			return ErrorResult("wallet_address is required", "Provide the wallet to score"), nil, nil
		}

		report, err := deps.Analyzer.ScoreWalletTransactions(ctx, input.WalletAddress)
		if err != nil {
			deps.Logger.Warn().Err(err).Str("tool", "score_wallet_transactions").Msg("Tool call failed")
			return analysisError(err), nil, nil
		}
		deps.Logger.Info().
			Str("wallet", report.WalletAddress).
			Int("high", report.HighRiskCount).
			Msg("Risk scoring tool completed")
		return JSONResult(report), nil, nil
	}
}
