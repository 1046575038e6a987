package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	apihttp "github.com/breakoutlab/superstock/internal/interfaces/http"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve scan results and metrics over HTTP",
	Long: `Run an initial scan, then keep the ranked results available at
/api/v1/results with Prometheus metrics at /metrics. With --interval the
scan repeats on a fixed schedule and each batch replaces the last.

Examples:
  superstock serve --config config.yaml
  superstock serve --addr :9090 --interval 15m`,
	RunE: runServe,
}

var (
	serveAddr     string
	serveInterval time.Duration
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
	serveCmd.Flags().DurationVar(&serveInterval, "interval", 0, "Rescan interval, 0 scans once")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	comps, err := buildComponents(ctx)
	if err != nil {
		return fmt.Errorf("wire components: %w", err)
	}
	defer comps.Close()

	symbols := comps.cfg.Scan.Symbols
	if len(symbols) == 0 {
		return fmt.Errorf("no symbols configured: set scan.symbols in the config")
	}

	addr := serveAddr
	if addr == "" {
		addr = comps.cfg.Server.Addr
	}
	server := apihttp.NewServer(addr, comps.metrics, componentLogger("http"))

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	rescan := func() {
		scanned := time.Now().UTC()
		timer := comps.metrics.StartStepTimer("scan")
		results, err := comps.runner.Run(ctx, symbols)
		if err != nil {
			timer.Stop("error")
			log.Error().Err(err).Msg("scheduled scan failed")
			return
		}
		timer.Stop("success")
		server.SetResults(results, scanned)
		if _, err := comps.writer.WriteScan(results, scanned); err != nil {
			log.Warn().Err(err).Msg("write scan artifacts failed")
		}
	}
	rescan()

	if serveInterval > 0 {
		go func() {
			ticker := time.NewTicker(serveInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					rescan()
				}
			}
		}()
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}
