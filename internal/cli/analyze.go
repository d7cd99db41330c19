package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rawblock/solsecurity/pkg/models"
)

var jsonOutput bool

var poisoningCmd = &cobra.Command{
	Use:   "poisoning <wallet>",
	Short: "Check a wallet for address poisoning",
	Long: `Fetch the wallet's recent transfers and report senders whose
addresses imitate wallets it has paid.

Examples:
  solsecurity poisoning 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin
  solsecurity poisoning --strategy tiered --json <wallet>`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalysis(cmd.OutOrStdout(), args[0], func(ctx context.Context, e *engine, w string) (*models.AnalysisResult, error) {
			return e.svc.AnalyzeWalletPoisoning(ctx, w)
		})
	},
}

var dustingCmd = &cobra.Command{
	Use:   "dusting <wallet>",
	Short: "Check a wallet for dusting and known dusters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalysis(cmd.OutOrStdout(), args[0], func(ctx context.Context, e *engine, w string) (*models.AnalysisResult, error) {
			return e.svc.AnalyzeWalletDusting(ctx, w)
		})
	},
}

var riskCmd = &cobra.Command{
	Use:   "risk <wallet>",
	Short: "Score each recent transaction of a wallet",
	Args:  cobra.ExactArgs(1),
	RunE:  runRisk,
}

func init() {
	for _, c := range []*cobra.Command{poisoningCmd, dustingCmd, riskCmd} {
		c.Flags().BoolVar(&jsonOutput, "json", false, "print the full result as JSON")
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runAnalysis(out io.Writer, wallet string, analyze func(context.Context, *engine, string) (*models.AnalysisResult, error)) error {
	ctx, stop := signalContext()
	defer stop()

	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	result, err := analyze(ctx, eng, wallet)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(out, result)
	}
	printAnalysis(out, result)
	return nil
}

func runRisk(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	report, err := eng.svc.ScoreWalletTransactions(ctx, args[0])
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	printRiskReport(cmd.OutOrStdout(), report)
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printAnalysis(out io.Writer, r *models.AnalysisResult) {
	fmt.Fprintf(out, "Wallet:    %s\n", r.WalletAddress)
	fmt.Fprintf(out, "Strategy:  %s\n", r.Strategy)
	fmt.Fprintf(out, "Outcome:   %s\n", r.Outcome)
	fmt.Fprintf(out, "Transfers: %d analyzed\n", r.TotalTransactionsAnalyzed)
	fmt.Fprintf(out, "Poisoning: %d attempt(s), %d with dust\n", r.ConfirmedPoisoningAttempts, r.DustingAttempts)
	fmt.Fprintln(out)
	fmt.Fprintln(out, r.Message)

	if len(r.PoisonedAddresses) > 0 {
		fmt.Fprintln(out)
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SENDER\tAMOUNT\tASSET")
		for _, s := range r.PoisonedAddresses {
			fmt.Fprintf(w, "%s\t%s\t%s\n", s.Address, s.Amount.String(), s.AssetClass)
		}
		_ = w.Flush()
	}
	if len(r.MimickedAddresses) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Imitated recipients:")
		for _, a := range r.MimickedAddresses {
			fmt.Fprintf(out, "  %s\n", a)
		}
	}

	flagged := 0
	for _, h := range r.KnownDusterHits {
		if h.IsDusting {
			flagged++
		}
	}
	if flagged > 0 {
		fmt.Fprintf(out, "\n%d transaction(s) from known dusting wallets\n", flagged)
	}
}

func printRiskReport(out io.Writer, r *models.RiskReport) {
	fmt.Fprintf(out, "Wallet: %s\n", r.WalletAddress)
	fmt.Fprintf(out, "Total: %d  High: %d  Medium: %d  Medium-Low: %d  Clean: %d\n\n",
		r.TotalTransactions, r.HighRiskCount, r.MediumRiskCount, r.MediumLowRiskCount, r.CleanCount)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SIGNATURE\tSCORE\tLABEL\tTIER\tFROM\tIMITATES")
	for _, tx := range r.Transactions {
		label := string(tx.RiskLabel)
		if tx.Degraded {
			label += " (degraded)"
		}
		fmt.Fprintf(w, "%s\t%.2f\t%s\t%d\t%s\t%s\n", tx.TxID, tx.FinalScore, label, tx.VisualTier, tx.From, tx.MimickedFrom)
	}
	_ = w.Flush()
}
