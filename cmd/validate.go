// =============================================================================
// Statement Normalizer - Validate Command
// =============================================================================
//
// COMMAND USAGE:
//   normalizer validate [--strict]
//
// Checks the main configuration, the source profiles and the category rules
// without processing any statement. Exits non-zero when errors are found,
// or warnings with --strict.
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/statement-normalizer/internal/config"
	"github.com/ginjaninja78/statement-normalizer/internal/validation"
)

var strictValidation bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration, profiles and category rules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		profiles, err := config.LoadProfiles(mainConfig.ProfilesDir)
		if err != nil {
			return fmt.Errorf("failed to load source profiles: %w", err)
		}

		store, closeStore, err := openRuleStore(cmd.Context(), mainConfig)
		if err != nil {
			return fmt.Errorf("failed to open category rules: %w", err)
		}
		defer closeStore()

		rs, err := store.Load(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load category rules: %w", err)
		}

		v := validation.NewValidator(validation.ValidationOptions{TreatWarningsAsErrors: strictValidation})
		result := v.ValidateAll(mainConfig, profiles, rs)

		out := cmd.OutOrStdout()
		for _, finding := range result.Errors {
			fmt.Fprintln(out, finding.Error())
		}
		fmt.Fprintf(out, "Checked %d profile(s) and %d rule(s): %d error(s), %d warning(s)\n",
			result.ProfilesValidated, result.RulesValidated, result.ErrorCount, result.WarningCount)

		if !result.IsValid {
			return fmt.Errorf("validation failed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().BoolVar(&strictValidation, "strict", false, "Treat warnings as errors")
}
