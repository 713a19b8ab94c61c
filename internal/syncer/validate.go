package syncer

import (
	"fmt"

	"github.com/ThomasSchneider-94/Karuta-Project-sub000/internal/deck"
)

// deckKey identifies a deck within one run. Names are unique per
// category only.
type deckKey struct {
	category int
	name     string
}

// validateDeck checks one fetched deck document against the taxonomy
// and the decks already accepted earlier in the same run. It returns
// the validated record, or a human-readable rejection reason. The seen
// set is updated only on acceptance.
func validateDeck(doc deck.Document, taxonomy deck.Taxonomy, seen map[deckKey]bool) (deck.Record, string) {
	if doc.Name == "" {
		return deck.Record{}, "empty deck name"
	}
	if doc.Category == "" {
		return deck.Record{}, "empty category label"
	}
	if doc.Type == "" {
		return deck.Record{}, "empty type label"
	}

	category := taxonomy.CategoryIndex(doc.Category)
	if category < 0 {
		return deck.Record{}, fmt.Sprintf("unknown category %q", doc.Category)
	}
	typ := taxonomy.TypeIndex(doc.Type)
	if typ < 0 {
		return deck.Record{}, fmt.Sprintf("unknown type %q", doc.Type)
	}

	key := deckKey{category: category, name: doc.Name}
	if seen[key] {
		return deck.Record{}, "duplicate deck name in category"
	}

	// Audio may be absent (silent card); everything else is required.
	for i, c := range doc.Cards {
		if c.Anime == "" {
			return deck.Record{}, fmt.Sprintf("card %d has no title", i)
		}
		if c.Type == "" {
			return deck.Record{}, fmt.Sprintf("card %d has no type", i)
		}
		if c.Visual == "" {
			return deck.Record{}, fmt.Sprintf("card %d has no visual asset", i)
		}
	}

	seen[key] = true
	return deck.Record{
		Name:     doc.Name,
		Category: category,
		Type:     typ,
		Cover:    doc.Cover,
	}, ""
}
