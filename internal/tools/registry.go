package tools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterAll registers all tools with the MCP server.
// This is called after server creation but before Run().
func RegisterAll(server *mcp.Server, deps *Dependencies) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze_wallet_poisoning",
		Description: "Check if a wallet has been involved in any address poisoning attacks",
	}, NewPoisoningHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "check_wallet_dusting",
		Description: "Check if a wallet has received dust from known dusting addresses",
	}, NewDustingHandler(deps))

	// Transaction-level scorer, one verdict per signature
	mcp.AddTool(server, &mcp.Tool{
		Name:        "score_wallet_transactions",
		Description: "Score each recent transaction of a wallet for address poisoning risk",
	}, NewRiskHandler(deps))
}
