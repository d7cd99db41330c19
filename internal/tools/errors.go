package tools

import (
	"encoding/json"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rawblock/solsecurity/internal/analyzer"
	"github.com/rawblock/solsecurity/pkg/models"
)

// ErrorResult creates a tool error result with optional recovery hint.
// If hint is non-empty, formats as "{msg}. {hint}".
// Returns IsError=true so the client can see the error and self-correct.
func ErrorResult(msg, hint string) *mcp.CallToolResult {
	text := msg
	if hint != "" {
		text = msg + ". " + hint
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
		IsError: true,
	}
}

// TextResult creates a success result with text content.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// JSONResult renders v as indented JSON text.
func JSONResult(v any) *mcp.CallToolResult {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ErrorResult("Failed to encode result", "")
	}
	return TextResult(string(b))
}

// analysisError maps an analyzer error to a tool error with a recovery hint.
func analysisError(err error) *mcp.CallToolResult {
	var (
		cfgErr   *models.ConfigurationError
		fetchErr *models.FetchError
	)
	switch {
	case errors.Is(err, analyzer.ErrInvalidAddress):
		return ErrorResult(err.Error(), "Provide a base58 Solana wallet address")
	case errors.As(err, &cfgErr):
		return ErrorResult(cfgErr.Error(), "Set "+cfgErr.Key+" in the server environment")
	case errors.As(err, &fetchErr):
		hint := "Retry later"
		if fetchErr.StatusCode == 401 || fetchErr.StatusCode == 403 {
			hint = "Check the configured API key"
		}
		return ErrorResult(fetchErr.Error(), hint)
	default:
		return ErrorResult("Analysis failed: "+err.Error(), "")
	}
}
