package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ThomasSchneider-94/Karuta-Project-sub000/internal/cache"
	"github.com/ThomasSchneider-94/Karuta-Project-sub000/internal/catalog"
	"github.com/ThomasSchneider-94/Karuta-Project-sub000/internal/config"
	"github.com/ThomasSchneider-94/Karuta-Project-sub000/internal/deck"
	"github.com/ThomasSchneider-94/Karuta-Project-sub000/internal/syncer"
)

var deckCategoryFlag string

// deckCmd represents the deck command group
var deckCmd = &cobra.Command{
	Use:   "deck",
	Short: "Manage decks in your local catalog",
	Long:  `Commands for listing decks and managing their cached card media.`,
}

// deckListCmd represents the deck ls command
var deckListCmd = &cobra.Command{
	Use:   "ls",
	Short: "List decks in the local catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnvironment()
		if err != nil {
			return err
		}
		defer env.close()

		records, taxonomy, err := loadCatalog(env)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No decks in the local catalog.")
			fmt.Println("Run 'karuta sync' to fetch the catalog from the server.")
			return nil
		}

		index, err := catalog.Rebuild(records, len(taxonomy.Categories), len(taxonomy.Types))
		if err != nil {
			return fmt.Errorf("local catalog is inconsistent: %v", err)
		}

		offset, length := 0, index.Len()
		if deckCategoryFlag != "" {
			ci := taxonomy.CategoryIndex(deckCategoryFlag)
			if ci < 0 {
				return fmt.Errorf("unknown category: %s", deckCategoryFlag)
			}
			offset, length = index.RangeForCategory(ci)
		}

		rows := make([][]string, 0, length)
		for i := offset; i < offset+length; i++ {
			rec, err := index.Lookup(i)
			if err != nil {
				return err
			}
			downloaded := "no"
			if rec.Downloaded {
				downloaded = "yes"
			}
			rows = append(rows, []string{
				rec.Name,
				taxonomy.Categories[rec.Category].Name,
				taxonomy.Types[rec.Type],
				downloaded,
			})
		}

		fmt.Println(renderTable(
			[]string{"Name", "Category", "Type", "Downloaded"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
		))
		return nil
	},
}

// deckDownloadCmd represents the deck download command
var deckDownloadCmd = &cobra.Command{
	Use:   "download [deck_name]...",
	Short: "Fetch the card visuals and audio of one or more decks",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnvironment()
		if err != nil {
			return err
		}
		defer env.close()

		records, taxonomy, err := loadCatalog(env)
		if err != nil {
			return err
		}
		selected, err := resolveDecks(records, taxonomy, args, deckCategoryFlag)
		if err != nil {
			return err
		}

		run := syncer.NewRun()
		run.OnProgress = func(phase, item string) {
			fmt.Printf("%s: %s\n", phase, item)
		}

		c := cache.New(env.client, env.store, env.logger)
		if err := c.Download(cmd.Context(), run, records, taxonomy, selected); err != nil {
			color.Red("Download failed: %v", err)
			return fmt.Errorf("download failed")
		}
		if run.ConnectionFailed {
			color.Yellow("Download interrupted: connection to the server was lost")
		}

		for _, idx := range selected {
			if records[idx].Downloaded {
				color.Green("%s: downloaded", records[idx].Name)
			} else {
				color.Yellow("%s: incomplete", records[idx].Name)
			}
		}
		return nil
	},
}

// deckDeleteCmd represents the deck delete command
var deckDeleteCmd = &cobra.Command{
	Use:   "delete [deck_name]...",
	Short: "Remove the cached card media of one or more decks",
	Long: `Delete removes cached card visuals and audio of the selected decks.
Assets still referenced by another downloaded deck are kept, so deleting
one deck never breaks the others.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnvironment()
		if err != nil {
			return err
		}
		defer env.close()

		records, taxonomy, err := loadCatalog(env)
		if err != nil {
			return err
		}
		selected, err := resolveDecks(records, taxonomy, args, deckCategoryFlag)
		if err != nil {
			return err
		}

		run := syncer.NewRun()
		c := cache.New(env.client, env.store, env.logger)
		if err := c.Delete(run, records, taxonomy, selected); err != nil {
			color.Red("Delete failed: %v", err)
			return fmt.Errorf("delete failed")
		}

		color.Green("Removed cached media for %d decks", len(selected))
		return nil
	},
}

// deckInitCmd represents the deck init command
var deckInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the local catalog directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnvironment()
		if err != nil {
			return err
		}
		defer env.close()

		if err := env.store.EnsureLayout(); err != nil {
			return fmt.Errorf("error creating catalog directory: %v", err)
		}

		fmt.Println("Catalog directory initialized at:", env.store.Root())
		fmt.Println("Config file at:", config.GetConfigFilePath())
		fmt.Println("Run 'karuta sync' to fetch the catalog from the server.")
		return nil
	},
}

// loadCatalog reads the persisted snapshot and taxonomy
func loadCatalog(env *environment) ([]deck.Record, deck.Taxonomy, error) {
	taxonomy, err := env.store.LoadTaxonomy()
	if err != nil {
		return nil, deck.Taxonomy{}, fmt.Errorf("no local catalog found, run 'karuta sync' first: %v", err)
	}
	records, err := env.store.LoadDecks()
	if err != nil {
		return nil, deck.Taxonomy{}, err
	}
	// The snapshot file is shared with other clients; reject ordinals
	// the persisted taxonomy cannot resolve before anything indexes it.
	if _, err := catalog.Rebuild(records, len(taxonomy.Categories), len(taxonomy.Types)); err != nil {
		return nil, deck.Taxonomy{}, fmt.Errorf("local catalog is inconsistent: %v", err)
	}
	return records, taxonomy, nil
}

// resolveDecks maps deck names to snapshot positions. A name matching
// decks in several categories must be disambiguated with --category.
func resolveDecks(records []deck.Record, taxonomy deck.Taxonomy, names []string, categoryFilter string) ([]int, error) {
	categoryIndex := -1
	if categoryFilter != "" {
		categoryIndex = taxonomy.CategoryIndex(categoryFilter)
		if categoryIndex < 0 {
			return nil, fmt.Errorf("unknown category: %s", categoryFilter)
		}
	}

	var selected []int
	for _, name := range names {
		var matches []int
		for i, rec := range records {
			if !strings.EqualFold(rec.Name, name) {
				continue
			}
			if categoryIndex >= 0 && rec.Category != categoryIndex {
				continue
			}
			matches = append(matches, i)
		}
		switch len(matches) {
		case 0:
			return nil, fmt.Errorf("deck not found: %s", name)
		case 1:
			selected = append(selected, matches[0])
		default:
			return nil, fmt.Errorf("deck %s exists in several categories, use --category", name)
		}
	}
	return selected, nil
}

func init() {
	RootCmd.AddCommand(deckCmd)
	deckCmd.AddCommand(deckListCmd)
	deckCmd.AddCommand(deckDownloadCmd)
	deckCmd.AddCommand(deckDeleteCmd)
	deckCmd.AddCommand(deckInitCmd)

	deckCmd.PersistentFlags().StringVarP(&deckCategoryFlag, "category", "c", "", "Restrict to one category")
}
