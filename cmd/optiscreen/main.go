// optiscreen: investment screener service and data-polling CLI.
//
// Main CLI entrypoint using the cobra command framework.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/seenimoa/optiscreen/internal/config"
	"github.com/seenimoa/optiscreen/internal/logger"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global state set up by the root command.
var (
	cfg  *config.Config
	log  zerolog.Logger
	deps *app
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "optiscreen",
	Short: "optiscreen: investment screener API and market-data commands",
	Long: `optiscreen stores investments and Seeking Alpha screeners in SQLite,
serves them over a REST API, and polls Seeking Alpha, the U.S. Treasury,
CBOE and OpenAI to keep prices, option expirations, financial statements
and due-diligence reports up to date.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logging.Level = strings.ToLower(level)
		}
		logCfg := logger.FromFormat(cfg.Logging.Level, cfg.Logging.Format)
		logCfg.Output = cmd.ErrOrStderr()
		log = logger.New(logCfg)
		logger.SetGlobalLogger(log)

		deps = newApp(cfg, log)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if deps != nil {
			deps.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(aiAgentCmd)
	rootCmd.AddCommand(fetchCommands()...)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "optiscreen %s\n", version)
		fmt.Fprintf(out, "  commit:  %s\n", commit)
		fmt.Fprintf(out, "  built:   %s\n", date)
	},
}
