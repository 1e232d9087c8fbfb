// =============================================================================
// Xero Bills Converter - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (converter)
//   ├── convertCmd  (converter convert)
//   ├── validateCmd (converter validate)
//   ├── serveCmd    (converter serve)
//   └── versionCmd  (converter version)
//
// CONFIGURATION:
//   Before any subcommand runs, the root command:
//   1. Loads config.yaml (defaults when it is absent)
//   2. Applies XERO_* environment variables and flags through viper
//   3. Sets up the zerolog logger
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ginjaninja78/xero-bills-converter/internal/config"
	"github.com/ginjaninja78/xero-bills-converter/internal/logger"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// v carries environment variables and bound flags over config.yaml.
var v = viper.New()

// appConfig is the effective configuration, set before any subcommand runs.
var appConfig *config.MainConfig

// logCloser releases the log file when logging to a file.
var logCloser io.Closer

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "converter",
	Short: "Xero Bills Converter - Turn marketplace order exports into Xero bulk-bill imports",
	Long: `Xero Bills Converter rewrites marketplace order and cancellation exports
(CSV or XLSX) into the CSV format of the Xero bulk-bill importer.

Each order becomes a Stock line; orders whose VAT is not a sixth of the
checkout price also get a Discounts line. Cancellations produce the same lines
with the sign flipped, one per cancelled order.

Example Usage:
  converter convert orders.csv                     # Convert one export
  converter convert                                # Convert every file in the input directory
  converter convert --kind cancellations refunds.csv
  converter validate orders.csv                    # Report every bad row without writing
  converter serve                                  # Start the upload page`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},

	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "Path to the main configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: console or json")

	v.SetEnvPrefix("XERO")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	bindFlag(rootCmd, "log_level", "log-level")
	bindFlag(rootCmd, "log_format", "log-format")
}

// bindFlag binds a persistent or local flag of cmd to a viper key.
func bindFlag(cmd *cobra.Command, key, flag string) {
	f := cmd.PersistentFlags().Lookup(flag)
	if f == nil {
		f = cmd.Flags().Lookup(flag)
	}
	if f == nil {
		panic("unknown flag " + flag)
	}
	if err := v.BindPFlag(key, f); err != nil {
		panic(err)
	}
}

// initConfig loads the configuration and sets up logging.
func initConfig() error {
	cfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load main config: %w", err)
	}

	config.ApplyOverrides(cfg, v)
	if verbose {
		cfg.LogLevel = zerolog.LevelDebugValue
	}

	lc := logger.DefaultConfig()
	lc.Level = cfg.LogLevel
	lc.Format = cfg.LogFormat
	lc.Output = cfg.LogOutput
	closer, err := logger.Setup(lc)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	logCloser = closer

	log.Debug().Str("config", cfgFile).Msg("Configuration loaded")
	appConfig = cfg
	return nil
}

// loadLayouts loads the layout profiles of the configured directory.
func loadLayouts() (map[string]*config.LayoutConfig, error) {
	layouts, err := config.LoadLayoutConfigs(appConfig.ConfigsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load layout profiles: %w", err)
	}
	log.Debug().Int("profiles", len(layouts)).Msg("Loaded layout profiles")
	return layouts, nil
}

// pickLayout returns the named profile, the profile matching the file name,
// or the configured default, in that order.
func pickLayout(layouts map[string]*config.LayoutConfig, name, filePath string) (*config.LayoutConfig, error) {
	if name != "" {
		l, ok := layouts[name]
		if !ok {
			return nil, fmt.Errorf("unknown profile %q", name)
		}
		return l, nil
	}
	if l := config.FindLayoutForFile(filePath, layouts); l != nil {
		return l, nil
	}
	l, ok := layouts[appConfig.Profile]
	if !ok {
		return nil, fmt.Errorf("unknown profile %q", appConfig.Profile)
	}
	return l, nil
}
