package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"picking-dash/internal/analysis"
	"picking-dash/internal/config"
	"picking-dash/internal/logging"
	"picking-dash/internal/metrics"
	"picking-dash/internal/picklog"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose bool
	cfg     *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "picking-dash",
	Short: "Picking performance dashboard for warehouse operator logs",
	Long: `Loads warehouse picking exports (CSV or XLSX) and computes totals, per-user, per-workstation
and per-shift breakdowns, mean-of-ratios efficiency and half-of-mean outliers.

Without a subcommand the binary runs as an MCP server on stdio, so it can be registered directly
with an MCP client.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(verbose)

		var err error
		cfg, err = config.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}
		if err := logging.UseDir(cfg.LogDir); err != nil {
			log.Warn().Err(err).Str("path", cfg.LogDir).Msg("Keeping the previous log directory")
		}

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Str("command", cmd.Name()).
			Msg("picking-dash starting")
	},
	RunE: runMCP,
}

// Execute runs the command tree.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.AddCommand(serveCmd, mcpCmd, reportCmd, exportCmd)
}

// newService builds the pipeline service from the loaded configuration. rec may be nil.
func newService(rec *metrics.Recorder) *analysis.Service {
	display := make([]picklog.Metric, 0, len(cfg.DefaultMetrics))
	for _, name := range cfg.DefaultMetrics {
		if m, ok := picklog.ParseMetric(name); ok {
			display = append(display, m)
		}
	}
	return analysis.New(analysis.Options{
		Location:       cfg.Location(),
		DefaultMetrics: display,
		StoreCapacity:  cfg.StoreCapacity,
		Metrics:        rec,
	})
}
