package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ThomasSchneider-94/Karuta-Project-sub000/internal/syncer"
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize the catalog against the remote server",
	Long: `Sync fetches the category taxonomy, the deck list and every deck's
metadata from the configured server, then the category icons and deck
covers that are not cached yet. The local catalog snapshot is replaced
only when the run gets far enough to commit; a server that is
unreachable from the start leaves the previous catalog untouched.

Card visuals and audio are not fetched here; use 'karuta deck download'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnvironment()
		if err != nil {
			return err
		}
		defer env.close()

		run := syncer.NewRun()
		run.OnProgress = func(phase, item string) {
			if item != "" {
				fmt.Printf("%s: %s\n", phase, item)
			} else {
				fmt.Println(phase)
			}
		}

		pipeline := syncer.New(env.client, env.store, env.logger)
		result, err := pipeline.Run(cmd.Context(), run)
		if err != nil {
			color.Red("Synchronization aborted: %v", err)
			return fmt.Errorf("synchronization failed")
		}

		fmt.Println()
		switch result.Outcome {
		case syncer.OutcomeSuccess:
			color.Green("Catalog synchronized: %d decks", result.Accepted)
		case syncer.OutcomePartial:
			color.Yellow("Catalog partially synchronized: %d decks committed", result.Accepted)
			if result.LastError != "" {
				color.Yellow("Last error: %s", result.LastError)
			}
		}
		if result.Skipped > 0 {
			fmt.Printf("%d decks skipped (see log for reasons)\n", result.Skipped)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(syncCmd)
}
