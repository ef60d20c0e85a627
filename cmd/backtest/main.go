// Package main provides the season-holdout backtesting CLI.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/value-tipster/internal/app"
	"github.com/yourusername/value-tipster/internal/backtest"
	"github.com/yourusername/value-tipster/internal/metrics"
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
	timeout    time.Duration
	deps       *app.App
)

var rootCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay held-out seasons against the value policy",
	Long: `Runs season-holdout backtests: the predictor is trained without the season,
every fixture of the season is replayed in kickoff order and the resulting
bets are settled against a simulated bankroll.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.LoadConfig(cmd.Context(), configFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if league == "" {
			league = cfg.Backtest.League
		}
		metrics.InitRegistry()

		deps, err = app.New(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("failed to setup dependencies: %w", err)
		}
		return nil
	},
}

var (
	runSeason string
	outputDir string
	noExport  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Backtest one held-out season",
	RunE: func(cmd *cobra.Command, args []string) error {
		season := runSeason
		if season == "" {
			season = deps.Config.Backtest.Season
		}
		if season == "" {
			return fmt.Errorf("a season is required: pass --season or set backtest.season")
		}

		ctx, cancel := withTimeout(cmd.Context())
		defer cancel()

		engine, err := newEngine()
		if err != nil {
			return err
		}

		report, err := engine.Run(ctx, season, league)
		if err != nil {
			return err
		}
		fmt.Print(backtest.GenerateConsoleReport(report))

		if noExport {
			return nil
		}
		dir := outputDir
		if dir == "" {
			dir = deps.Config.Backtest.OutputPath
		}
		files, err := backtest.ExportReport(report, dir)
		if err != nil {
			return fmt.Errorf("failed to export report: %w", err)
		}
		for _, f := range files {
			deps.Logger.WithField("path", f).Info("Report exported")
		}
		return nil
	},
}

var seasonsFlag []string

var seasonsCmd = &cobra.Command{
	Use:   "seasons",
	Short: "Backtest several held-out seasons and compare them",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := withTimeout(cmd.Context())
		defer cancel()

		seasons := seasonsFlag
		if len(seasons) == 0 {
			seasons = deps.Config.Backtest.SeasonsToRun()
		}
		if len(seasons) == 0 {
			listed, err := deps.Repos.Historical.ListSeasons(ctx, league)
			if err != nil {
				return fmt.Errorf("failed to list seasons: %w", err)
			}
			seasons = listed
		}
		if len(seasons) == 0 {
			return fmt.Errorf("no seasons found for league %q", league)
		}

		engine, err := newEngine()
		if err != nil {
			return err
		}

		summary, err := backtest.RunSeasons(ctx, engine, seasons, league)
		if err != nil {
			return err
		}
		fmt.Print(backtest.GenerateSeasonsReport(summary))

		if outputDir != "" {
			path := fmt.Sprintf("%s/seasons_%s.json", strings.TrimRight(outputDir, "/"), time.Now().UTC().Format("20060102_150405"))
			if err := backtest.ExportToJSON(summary, path); err != nil {
				return fmt.Errorf("failed to export summary: %w", err)
			}
			deps.Logger.WithField("path", path).Info("Summary exported")
		}
		return nil
	},
}

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Inspect persisted benchmark reports",
}

var (
	listSeason string
	listLimit  int
)

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent benchmark reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		reports, err := deps.Repos.Reports.ListReports(cmd.Context(), listSeason, league, listLimit)
		if err != nil {
			return err
		}
		if len(reports) == 0 {
			fmt.Println("No reports found")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSEASON\tLEAGUE\tBETS\tROI %\tPROFIT\tCOMPLETED")
		for _, r := range reports {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2f\t%.2f\t%s\n",
				r.ID, r.Season, r.League, r.Statistics.TotalBets, r.Statistics.ROI,
				r.Statistics.TotalProfit, r.CompletedAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

var reportsShowCmd = &cobra.Command{
	Use:   "show <report-id>",
	Short: "Print a persisted benchmark report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid report id: %w", err)
		}
		report, err := deps.Repos.Reports.GetReport(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Print(backtest.GenerateConsoleReport(report))
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("backtest %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&league, "league", "l", "", "League to backtest (defaults to backtest.league)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Abort the run after this duration (0 disables)")

	runCmd.Flags().StringVarP(&runSeason, "season", "s", "", "Held-out season, e.g. 2023-24")
	runCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Export directory (defaults to backtest.output_path)")
	runCmd.Flags().BoolVar(&noExport, "no-export", false, "Skip writing JSON and CSV exports")

	seasonsCmd.Flags().StringSliceVar(&seasonsFlag, "seasons", nil, "Seasons to run (defaults to config, then every stored season)")
	seasonsCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Write the summary as JSON into this directory")

	reportsListCmd.Flags().StringVar(&listSeason, "season", "", "Only list reports for this season")
	reportsListCmd.Flags().IntVar(&listLimit, "limit", 20, "Maximum number of reports")

	reportsCmd.AddCommand(reportsListCmd, reportsShowCmd)
	rootCmd.AddCommand(runCmd, seasonsCmd, reportsCmd, versionCmd)
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

func newEngine() (*backtest.Engine, error) {
	cfg, err := backtest.FromConfig(&deps.Config.Backtest)
	if err != nil {
		return nil, fmt.Errorf("invalid backtest configuration: %w", err)
	}

	deps.Logger.WithFields(logrus.Fields{
		"league":    league,
		"predictor": deps.Predictor.Variant(),
		"persist":   cfg.PersistReports,
	}).Debug("Building backtest engine")

	return backtest.NewEngine(cfg, deps.Config.Value.Policy(), deps.Repos.Historical, deps.Predictor, deps.Repos.Reports, deps.Logger)
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
