package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rawblock/solsecurity/internal/logger"
	"github.com/rawblock/solsecurity/internal/server"
	"github.com/rawblock/solsecurity/internal/tools"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdio",
	Long: `Run the MCP server on stdin/stdout. Exposes the tools
analyze_wallet_poisoning, check_wallet_dusting and score_wallet_transactions.

Logs are written to stderr.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	srv := server.New(Version, log)
	srv.Setup()
	tools.RegisterAll(srv.MCPServer(), &tools.Dependencies{
		Analyzer: eng.svc,
		Logger:   log,
	})

	log.Info().
		Str("version", Version).
		Str("strategy", eng.svc.Strategy()).
		Int("tx_limit", cfg.Helius.TxLimit).
		Msg("Solsecurity MCP server starting")

	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
