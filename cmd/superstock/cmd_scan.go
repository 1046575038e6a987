package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/breakoutlab/superstock/internal/application/pipeline"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one screening batch and write artifacts",
	Long: `Run the full screening batch: fetch history and quotes, detect base
patterns, score every symbol against the batch context, and write the
ranked results to the artifact directory.

Examples:
  superstock scan --symbols ACME,GLOB,ZETA
  superstock scan --config config.yaml --min-score 50
  superstock scan --format json > results.json`,
	RunE: runScan,
}

var (
	scanSymbols  []string
	scanMinScore float64
	scanFormat   string
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringSliceVar(&scanSymbols, "symbols", nil, "Symbols to scan (overrides config)")
	scanCmd.Flags().Float64Var(&scanMinScore, "min-score", 0, "Only display results at or above this total score")
	scanCmd.Flags().StringVar(&scanFormat, "format", "table", "Output format: table, json")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	comps, err := buildComponents(ctx)
	if err != nil {
		return fmt.Errorf("wire components: %w", err)
	}
	defer comps.Close()

	symbols := scanSymbols
	if len(symbols) == 0 {
		symbols = comps.cfg.Scan.Symbols
	}
	if len(symbols) == 0 {
		return fmt.Errorf("no symbols to scan: pass --symbols or set scan.symbols in the config")
	}

	scanned := time.Now().UTC()
	timer := comps.metrics.StartStepTimer("scan")
	results, err := comps.runner.Run(ctx, symbols)
	if err != nil {
		timer.Stop("error")
		return fmt.Errorf("scan failed: %w", err)
	}
	timer.Stop("success")

	runID, err := comps.writer.WriteScan(results, scanned)
	if err != nil {
		return fmt.Errorf("write artifacts: %w", err)
	}
	log.Info().Str("run_id", runID).Msg("scan artifacts written")

	switch strings.ToLower(scanFormat) {
	case "json":
		return outputJSON(results)
	case "table":
		return outputTable(results)
	default:
		return fmt.Errorf("unknown format %q: want table or json", scanFormat)
	}
}

func outputJSON(results []pipeline.Result) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}

func outputTable(results []pipeline.Result) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "Rank\tSymbol\tTotal\tFund\tTech\tQual\tAdj\tBase\tBreakout\tPassed")
	fmt.Fprintln(w, "----\t------\t-----\t----\t----\t----\t---\t----\t--------\t------")

	shown := 0
	for _, res := range results {
		if res.Score.TotalScore < scanMinScore {
			continue
		}
		shown++

		baseState := "-"
		if res.Pattern.IsValid {
			baseState = fmt.Sprintf("%d bars", res.Pattern.Length)
			if res.Pattern.IsIdealBase {
				baseState += " (ideal)"
			}
		}
		if res.Err != "" {
			baseState = "error"
		}

		fmt.Fprintf(w, "%d\t%s\t%.1f\t%.1f\t%.1f\t%.1f\t%+.1f\t%s\t%.2f\t%t\n",
			res.Rank,
			res.Symbol,
			res.Score.TotalScore,
			res.Score.FundamentalScore,
			res.Score.TechnicalScore,
			res.Score.QualitativeScore,
			res.Score.BonusPoints,
			baseState,
			res.Pattern.BreakoutPotential,
			res.Score.PassedThreshold,
		)
	}
	w.Flush()

	fmt.Printf("\n%d of %d results shown (min score %.1f)\n", shown, len(results), scanMinScore)
	return nil
}
