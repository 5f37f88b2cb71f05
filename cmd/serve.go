// =============================================================================
// Statement Normalizer - Serve Command
// =============================================================================
//
// COMMAND USAGE:
//   normalizer serve [--addr :8000]
//
// Runs the upload API until SIGINT or SIGTERM.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/statement-normalizer/internal/config"
	"github.com/ginjaninja78/statement-normalizer/internal/converter"
	"github.com/ginjaninja78/statement-normalizer/internal/rules"
	"github.com/ginjaninja78/statement-normalizer/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP upload API",
	Long: `Serve exposes the normalizer over HTTP:

  GET  /                       liveness
  GET  /supported-formats      accepted formats, column synonyms and limits
  POST /upload-transactions    multipart "file" upload, returns the transactions
  GET  /categories             category rules
  POST /categories             {"category": "...", "keyword": "..."}`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveAddr != "" {
			mainConfig.Server.Addr = serveAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		profiles, err := config.LoadProfiles(mainConfig.ProfilesDir)
		if err != nil {
			return fmt.Errorf("failed to load source profiles: %w", err)
		}

		store, closeStore, err := openRuleStore(ctx, mainConfig)
		if err != nil {
			return fmt.Errorf("failed to open category rules: %w", err)
		}
		defer closeStore()

		manager := rules.NewManager(store)
		conv := converter.New(mainConfig, manager,
			converter.WithProfiles(profiles),
			converter.WithLogger(log),
		)

		srvCfg := server.Config{
			Addr:           mainConfig.Server.Addr,
			AllowedOrigins: mainConfig.Server.AllowedOrigins,
		}
		handlers := server.NewHandlers(conv, manager, mainConfig.Server.MaxUploadBytes)

		return server.ListenAndServe(ctx, server.NewRouter(handlers, srvCfg, log), srvCfg, log)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
}
