package deck

import (
	"strings"

	"github.com/ThomasSchneider-94/Karuta-Project-sub000/internal/card"
)

// Record describes one deck in the catalog. Category and Type are
// ordinals into the taxonomy enumeration the catalog was built with.
type Record struct {
	Name       string `json:"name"`
	Category   int    `json:"category"`
	Type       int    `json:"type"`
	Cover      string `json:"cover"`      // Cover asset file name
	Downloaded bool   `json:"downloaded"` // True iff every card asset is in the local cache
}

// Category is one entry of the taxonomy's category enumeration
type Category struct {
	Name string `json:"name"`
	Icon string `json:"icon"` // Icon asset file name, may be empty
}

// Taxonomy is the category and type enumeration served by the remote.
// Order is significant: ordinals index into these slices and define
// the catalog sort and partition order.
type Taxonomy struct {
	Categories []Category `json:"categories"`
	Types      []string   `json:"types"`
}

// CategoryIndex returns the ordinal of the category matching the label
// case-insensitively, or -1 if the label is unknown
func (t Taxonomy) CategoryIndex(label string) int {
	for i, c := range t.Categories {
		if strings.EqualFold(c.Name, label) {
			return i
		}
	}
	return -1
}

// TypeIndex returns the ordinal of the type matching the label
// case-insensitively, or -1 if the label is unknown
func (t Taxonomy) TypeIndex(label string) int {
	for i, name := range t.Types {
		if strings.EqualFold(name, label) {
			return i
		}
	}
	return -1
}

// Document is the per-deck metadata payload served by the remote.
// Category and Type are labels that still need to be resolved against
// the taxonomy.
type Document struct {
	Name     string      `json:"name"`
	Category string      `json:"category"`
	Type     string      `json:"type"`
	Cover    string      `json:"cover"`
	Cards    []card.Card `json:"cards"`
}
