// Package cli provides the command-line interface for solsecurity.
package cli

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/rawblock/solsecurity/internal/analyzer"
	"github.com/rawblock/solsecurity/internal/config"
	"github.com/rawblock/solsecurity/internal/flipside"
	"github.com/rawblock/solsecurity/internal/logger"
	"github.com/rawblock/solsecurity/internal/metrics"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose  bool
	strategy string

	// Global config
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "solsecurity",
	Short: "Solana address poisoning and dusting detection",
	Long: `Solsecurity inspects a Solana wallet's recent transfers for address
poisoning: senders whose addresses imitate the leading or trailing
characters of wallets the owner has paid, often paired with dust-sized
transfers to plant the look-alike in the transaction history.

Run it as an MCP server (serve), an HTTP API (api), or one-shot from the
shell (poisoning, dusting, risk).`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if strategy != "" {
			loaded.Engine.SimilarityStrategy = strategy
			if err := loaded.Validate(); err != nil {
				return err
			}
		}
		if verbose {
			loaded.LogLevel = "debug"
		}
		cfg = loaded

		logger.Init(cfg.LogLevel, cfg.LogPretty)
		return nil
	},
}

// engine bundles the analyzer service with the resources it owns.
type engine struct {
	svc      *analyzer.Service
	dusters  *flipside.Source
	registry *prometheus.Registry
	metrics  *metrics.Recorder
}

func (e *engine) Close() {
	_ = e.dusters.Close()
}

// newEngine wires the analyzer from the loaded config.
func newEngine() (*engine, error) {
	log := logger.Get()

	dusters, err := flipside.NewSource(flipside.Options{
		URL:               cfg.Flipside.DusterURL,
		APIKey:            cfg.Flipside.APIKey,
		CacheTTL:          cfg.Flipside.CacheTTL,
		FallbackAddresses: cfg.Flipside.FallbackAddresses,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("init duster source: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.New(reg)

	svc, err := analyzer.NewService(cfg, dusters, log, analyzer.WithMetrics(rec))
	if err != nil {
		_ = dusters.Close()
		return nil, fmt.Errorf("init analyzer: %w", err)
	}

	return &engine{svc: svc, dusters: dusters, registry: reg, metrics: rec}, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVarP(&strategy, "strategy", "s", "", "similarity strategy override (prefix4 or tiered)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(apiCmd)
	rootCmd.AddCommand(poisoningCmd)
	rootCmd.AddCommand(dustingCmd)
	rootCmd.AddCommand(riskCmd)
}
