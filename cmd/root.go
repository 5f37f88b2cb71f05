// =============================================================================
// Statement Normalizer - Root Command
// =============================================================================
//
// COBRA CLI STRUCTURE:
//   rootCmd (normalizer)
//   ├── processCmd    (normalizer process)
//   ├── serveCmd      (normalizer serve)
//   ├── categoriesCmd (normalizer categories list|add)
//   ├── formatsCmd    (normalizer formats)
//   ├── validateCmd   (normalizer validate)
//   └── versionCmd    (normalizer version)
//
// The root command owns the global flags and loads the main configuration
// and the logger before any subcommand runs.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/statement-normalizer/internal/config"
	"github.com/ginjaninja78/statement-normalizer/internal/logger"
	"github.com/ginjaninja78/statement-normalizer/internal/rules"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// mainConfig and log are populated by the root PersistentPreRunE.
var (
	mainConfig *config.MainConfig
	log        zerolog.Logger
)

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "normalizer",
	Short: "Statement Normalizer - Turn bank statements into categorized transactions",
	Long: `Statement Normalizer reads bank statements in CSV, Excel, JSON or PDF form,
maps their columns onto a canonical transaction record and assigns each
transaction a spending category from keyword rules.

Example Usage:
  normalizer process                    # Normalize every file in the input directory
  normalizer process --file march.csv   # Normalize a single statement
  normalizer serve --addr :8000         # Run the upload API
  normalizer categories add Transport uber`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadMainConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load main config: %w", err)
		}
		if verbose {
			cfg.LogLevel = "debug"
		}

		l, err := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
		if err != nil {
			return err
		}

		mainConfig = cfg
		log = l
		cmd.SetContext(logger.WithContext(cmd.Context(), l))
		return nil
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file; a missing file means built-in defaults",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// openRuleStore opens the configured category rule store. The returned
// close function is never nil.
//
// PARAMETERS:
//   - ctx: Context for opening the SQLite database.
//   - cfg: The main configuration; Rules selects the backend.
//
// RETURNS:
//   - The store, a close function, or an error.
func openRuleStore(ctx context.Context, cfg *config.MainConfig) (rules.Store, func() error, error) {
	switch cfg.Rules.Backend {
	case "sqlite":
		store, err := rules.OpenSQLiteStore(ctx, cfg.Rules.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return rules.NewFileStore(cfg.Rules.Path), func() error { return nil }, nil
	}
}
