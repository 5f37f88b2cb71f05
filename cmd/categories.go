package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/statement-normalizer/internal/rules"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List or extend the category rules",
}

var categoriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the category rules as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openRuleStore(cmd.Context(), mainConfig)
		if err != nil {
			return err
		}
		defer closeStore()

		rs, err := store.Load(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd, rs)
	},
}

var categoriesAddCmd = &cobra.Command{
	Use:   "add CATEGORY [KEYWORD]",
	Short: "Add a keyword to a category, creating the category if needed",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openRuleStore(cmd.Context(), mainConfig)
		if err != nil {
			return err
		}
		defer closeStore()

		keyword := ""
		if len(args) == 2 {
			keyword = args[1]
		}

		_, added, err := rules.NewManager(store).AddKeyword(cmd.Context(), args[0], keyword)
		if err != nil {
			return err
		}
		if added {
			fmt.Fprintf(cmd.OutOrStdout(), "Updated category %q\n", args[0])
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Category %q already has keyword %q\n", args[0], keyword)
		}
		return nil
	},
}

func init() {
	categoriesCmd.AddCommand(categoriesListCmd, categoriesAddCmd)
	rootCmd.AddCommand(categoriesCmd)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
