package cmd

import (
	"fmt"

	"github.com/ThomasSchneider-94/Karuta-Project-sub000/internal/validator"
	"github.com/spf13/cobra"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the local catalog for consistency",
	Long: `Validate checks the local catalog directory without touching the
network: the snapshot must parse, every deck's category and type must be
valid for the stored taxonomy, every deck needs its card list file, and
decks marked downloaded must have all their card media in the cache.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnvironment()
		if err != nil {
			return err
		}
		defer env.close()

		// Create validator and run validation
		v := validator.NewValidator(env.store)
		results, err := v.Validate()
		if err != nil {
			return fmt.Errorf("validation error: %v", err)
		}

		// Display validation results
		fmt.Println("Validation Results:")
		fmt.Println("-------------------")

		if len(results.Errors) == 0 {
			fmt.Printf("✅ Catalog at '%s' is consistent.\n", env.store.Root())
		} else {
			fmt.Printf("❌ Catalog at '%s' has %d validation errors:\n", env.store.Root(), len(results.Errors))
			for i, err := range results.Errors {
				fmt.Printf("%d. %s\n", i+1, err)
			}
			return fmt.Errorf("validation failed")
		}

		if len(results.Warnings) > 0 {
			fmt.Println("\nWarnings:")
			for i, warn := range results.Warnings {
				fmt.Printf("%d. %s\n", i+1, warn)
			}
		}

		return nil
	},
}

func init() {
	RootCmd.AddCommand(validateCmd)
}
