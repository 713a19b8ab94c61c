package validator

import (
	"fmt"

	"github.com/ThomasSchneider-94/Karuta-Project-sub000/internal/deck"
	"github.com/ThomasSchneider-94/Karuta-Project-sub000/internal/store"
)

type ValidationResults struct {
	Errors   []string
	Warnings []string
}

// Validator checks a local catalog store for internal consistency:
// ordinals in range, card lists present, cached assets matching the
// downloaded flags. It never touches the network.
type Validator struct {
	Store   *store.Store
	Results ValidationResults
}

func NewValidator(st *store.Store) *Validator {
	return &Validator{
		Store:   st,
		Results: ValidationResults{},
	}
}

func (v *Validator) Validate() (ValidationResults, error) {
	taxonomy, err := v.Store.LoadTaxonomy()
	if err != nil {
		return v.Results, fmt.Errorf("no usable taxonomy in %s: %w", v.Store.Root(), err)
	}
	records, err := v.Store.LoadDecks()
	if err != nil {
		return v.Results, err
	}

	v.validateOrdinals(records, taxonomy)
	v.validateOrdering(records)
	v.validateCardLists(records, taxonomy)
	v.validateAssets(records, taxonomy)
	v.validateIcons(taxonomy)

	return v.Results, nil
}

// validateOrdinals checks every record's category and type against the
// persisted taxonomy
func (v *Validator) validateOrdinals(records []deck.Record, taxonomy deck.Taxonomy) {
	for _, rec := range records {
		if rec.Category < 0 || rec.Category >= len(taxonomy.Categories) {
			v.Results.Errors = append(v.Results.Errors,
				fmt.Sprintf("deck %q has category ordinal %d out of range", rec.Name, rec.Category))
		}
		if rec.Type < 0 || rec.Type >= len(taxonomy.Types) {
			v.Results.Errors = append(v.Results.Errors,
				fmt.Sprintf("deck %q has type ordinal %d out of range", rec.Name, rec.Type))
		}
	}
}

// validateOrdering checks that the snapshot is still in catalog order
func (v *Validator) validateOrdering(records []deck.Record) {
	for i := 1; i < len(records); i++ {
		a, b := records[i-1], records[i]
		ordered := a.Category < b.Category ||
			(a.Category == b.Category && a.Type < b.Type) ||
			(a.Category == b.Category && a.Type == b.Type && a.Name < b.Name)
		if !ordered {
			v.Results.Warnings = append(v.Results.Warnings,
				fmt.Sprintf("snapshot out of catalog order at deck %q", b.Name))
		}
	}
}

// validateCardLists checks that every deck's card list file exists and
// parses
func (v *Validator) validateCardLists(records []deck.Record, taxonomy deck.Taxonomy) {
	for _, rec := range records {
		if rec.Category < 0 || rec.Category >= len(taxonomy.Categories) {
			continue // already reported by validateOrdinals
		}
		categoryName := taxonomy.Categories[rec.Category].Name
		if !v.Store.HasCardList(categoryName, rec.Name) {
			v.Results.Errors = append(v.Results.Errors,
				fmt.Sprintf("card list missing for deck %q", rec.Name))
			continue
		}
		if _, err := v.Store.LoadCards(categoryName, rec.Name); err != nil {
			v.Results.Errors = append(v.Results.Errors,
				fmt.Sprintf("card list unreadable for deck %q: %v", rec.Name, err))
		}
	}
}

// validateAssets checks that decks marked downloaded really have every
// card asset cached, and warns about missing covers
func (v *Validator) validateAssets(records []deck.Record, taxonomy deck.Taxonomy) {
	for _, rec := range records {
		if rec.Category < 0 || rec.Category >= len(taxonomy.Categories) {
			continue
		}
		if rec.Cover != "" && !v.Store.HasCover(rec.Cover) {
			v.Results.Warnings = append(v.Results.Warnings,
				fmt.Sprintf("cover %s missing for deck %q", rec.Cover, rec.Name))
		}
		if !rec.Downloaded {
			continue
		}
		categoryName := taxonomy.Categories[rec.Category].Name
		cards, err := v.Store.LoadCards(categoryName, rec.Name)
		if err != nil {
			continue // already reported by validateCardLists
		}
		for _, c := range cards {
			if !v.Store.HasVisual(c.Visual) {
				v.Results.Errors = append(v.Results.Errors,
					fmt.Sprintf("deck %q is marked downloaded but visual %s is missing", rec.Name, c.Visual))
			}
			if !c.Silent() && !v.Store.HasAudio(c.Audio) {
				v.Results.Errors = append(v.Results.Errors,
					fmt.Sprintf("deck %q is marked downloaded but audio %s is missing", rec.Name, c.Audio))
			}
		}
	}
}

// validateIcons warns about category icons that were never fetched
func (v *Validator) validateIcons(taxonomy deck.Taxonomy) {
	for _, c := range taxonomy.Categories {
		if c.Icon != "" && !v.Store.HasCategoryIcon(c.Icon) {
			v.Results.Warnings = append(v.Results.Warnings,
				fmt.Sprintf("icon %s missing for category %q", c.Icon, c.Name))
		}
	}
}
