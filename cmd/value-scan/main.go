// Package main provides the live value scan service.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/value-tipster/internal/app"
	"github.com/yourusername/value-tipster/internal/feed"
	"github.com/yourusername/value-tipster/internal/health"
	"github.com/yourusername/value-tipster/internal/metrics"
	"github.com/yourusername/value-tipster/internal/scan"
	"github.com/yourusername/value-tipster/internal/scheduler"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	league     string
	deps       *app.App
)

var rootCmd = &cobra.Command{
	Use:   "value-scan",
	Short: "Scan upcoming fixtures for value bets",
	Long: `Evaluates every fixture kicking off inside the lookahead window against the
best available prices and ranks the value opportunities with their stakes.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.LoadConfig(cmd.Context(), configFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if league != "" {
			cfg.Scan.League = league
		}
		metrics.InitRegistry()

		deps, err = app.New(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("failed to setup dependencies: %w", err)
		}
		return nil
	},
}

var jsonOutput bool

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single scan and print the ranked opportunities",
	RunE: func(cmd *cobra.Command, args []string) error {
		scanner, err := newScanner()
		if err != nil {
			return err
		}

		result, err := scanner.Scan(cmd.Context())
		if err != nil {
			return err
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		return printResult(result)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Scan on a schedule and stream opportunities to subscribers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("value-scan %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&league, "league", "l", "", "Only scan this league (defaults to scan.league)")

	onceCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the scan result as JSON")

	rootCmd.AddCommand(onceCmd, serveCmd, versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	// Cobra skips post-run hooks when a command fails
	if deps != nil {
		if closeErr := deps.Close(); closeErr != nil {
			log.Printf("Error closing dependencies: %v", closeErr)
		}
	}
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func newScanner(publishers ...scan.Publisher) (*scan.Scanner, error) {
	cfg := deps.Config
	opportunities := deps.Repos.Opportunities
	if !cfg.Scan.Persist {
		opportunities = nil
	}
	return scan.NewScanner(cfg.Scan, cfg.Value.Policy(), deps.Repos.Historical, deps.Predictor, opportunities, deps.Logger, publishers...)
}

func serve(ctx context.Context) error {
	cfg := deps.Config
	logger := deps.Logger

	hub := feed.NewHub(cfg.Feed.AllowedOrigins, logger)
	go hub.Run(ctx)
	publishers := []scan.Publisher{hub}

	checks := map[string]health.Check{"database": deps.Repos.Ping}

	if cfg.Feed.RedisEnabled {
		stream := feed.NewStreamPublisher(feed.NewRedisClient(cfg.Feed), cfg.Feed.StreamName, cfg.Feed.StreamMaxLen, logger)
		defer stream.Close()
		if err := stream.Ping(ctx); err != nil {
			logger.WithError(err).Warn("Redis unreachable at startup, publishing will be retried on each scan")
		}
		publishers = append(publishers, stream)
		checks["redis"] = stream.Ping
	}

	scanner, err := newScanner(publishers...)
	if err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		startMetricsServer(ctx, cfg.Metrics.Port, cfg.Metrics.Path, logger)
	}

	routes := map[string]http.Handler{}
	if cfg.Feed.WebsocketPath != "" {
		routes[cfg.Feed.WebsocketPath] = hub
	}

	healthServer := health.NewServer(health.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Commit:      GitCommit,
		Port:        cfg.Health.Port,
		Logger:      logger,
		Checks:      checks,
		Scans:       scanner,
		StaleAfter:  3 * cfg.Scan.Timeout(),
		Routes:      routes,
	})
	if err := healthServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start health server: %w", err)
	}

	sched := scheduler.NewScheduler(logger)
	if cfg.Scan.Schedule != "" {
		if err := sched.ScheduleScan(cfg.Scan.Schedule, scanner, cfg.Scan.Timeout()); err != nil {
			return err
		}
	}
	if resetter, ok := deps.Predictor.(scheduler.Resetter); ok && cfg.Scan.ResetSchedule != "" {
		if err := sched.ScheduleReset(cfg.Scan.ResetSchedule, resetter); err != nil {
			return err
		}
	}

	initialCtx, cancel := context.WithTimeout(ctx, cfg.Scan.Timeout())
	if _, err := scanner.Scan(initialCtx); err != nil {
		logger.WithError(err).Warn("Initial scan failed")
	}
	cancel()

	if len(sched.Entries()) > 0 {
		if err := sched.Start(); err != nil {
			return err
		}
	} else {
		logger.Warn("No scan schedule configured, serving the initial scan only")
	}
	healthServer.SetReady(true)

	logger.WithFields(logrus.Fields{
		"schedule":    cfg.Scan.Schedule,
		"next_run":    sched.NextRun().Format(time.RFC3339),
		"health_port": cfg.Health.Port,
		"feed_path":   cfg.Feed.WebsocketPath,
	}).Info("Value scan service running")

	<-ctx.Done()
	logger.Info("Shutdown signal received, stopping service")
	healthServer.SetReady(false)

	if sched.IsRunning() {
		if err := sched.Stop(); err != nil {
			logger.WithError(err).Warn("Scheduler did not stop cleanly")
		}
	}
	return nil
}

func startMetricsServer(ctx context.Context, port int, path string, logger *logrus.Logger) {
	mux := http.NewServeMux()
	mux.Handle(path, metrics.Handler())
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.WithField("port", port).Info("Starting metrics server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Metrics server error")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
}

func printResult(result *scan.Result) error {
	fmt.Printf("Scan %s: %d fixtures between %s and %s, %d failed, %d opportunities (%s)\n",
		result.RunID, result.FixturesScanned,
		result.WindowStart.Format(time.RFC3339), result.WindowEnd.Format(time.RFC3339),
		result.Failed, len(result.Opportunities), result.Duration().Round(time.Millisecond))

	if len(result.Opportunities) == 0 {
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tKICKOFF\tFIXTURE\tMARKET\tSELECTION\tODDS\tBOOK\tPROB\tVALUE %\tSTAKE")
	for i, o := range result.Opportunities {
		fmt.Fprintf(w, "%d\t%s\t%s v %s\t%s\t%s\t%.2f\t%s\t%.3f\t%.1f\t%.2f\n",
			i+1, o.KickoffAt.Format("Mon 02 Jan 15:04"), o.HomeTeam, o.AwayTeam,
			o.Market, o.Selection, o.Odds, o.Bookmaker, o.ModelProbability, o.ValuePct, o.RecommendedStake)
	}
	return w.Flush()
}
