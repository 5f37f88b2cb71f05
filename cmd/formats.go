package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/statement-normalizer/internal/extract"
	"github.com/ginjaninja78/statement-normalizer/internal/reconcile"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "Print the supported input formats and column synonyms",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(cmd, extract.SupportedFormats(
			reconcile.DefaultSynonyms().Table(),
			mainConfig.Server.MaxUploadBytes,
		))
	},
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}
