package validator

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThomasSchneider-94/Karuta-Project-sub000/internal/card"
	"github.com/ThomasSchneider-94/Karuta-Project-sub000/internal/deck"
	"github.com/ThomasSchneider-94/Karuta-Project-sub000/internal/store"
)

func testTaxonomy() deck.Taxonomy {
	return deck.Taxonomy{
		Categories: []deck.Category{{Name: "A", Icon: "a.png"}},
		Types:      []string{"X"},
	}
}

func consistentStore(t *testing.T) *store.Store {
	t.Helper()
	st := store.New(t.TempDir(), store.OSFilesystem{})
	require.NoError(t, st.EnsureLayout())
	require.NoError(t, st.SaveTaxonomy(testTaxonomy()))
	require.NoError(t, st.SaveCards("A", "hearts", []card.Card{
		{Anime: "Show", Type: "Character", Visual: "v1.png", Audio: "s1.ogg"},
	}))
	require.NoError(t, st.SaveDecks([]deck.Record{
		{Name: "hearts", Category: 0, Type: 0, Downloaded: true},
	}))
	require.NoError(t, os.WriteFile(st.VisualPath("v1.png"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(st.AudioPath("s1.ogg"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(st.CategoryIconPath("a.png"), []byte("x"), 0644))
	return st
}

func TestValidateConsistentStore(t *testing.T) {
	v := NewValidator(consistentStore(t))
	results, err := v.Validate()
	require.NoError(t, err)
	assert.Empty(t, results.Errors)
	assert.Empty(t, results.Warnings)
}

func TestValidateWithoutTaxonomyFails(t *testing.T) {
	st := store.New(t.TempDir(), store.OSFilesystem{})
	require.NoError(t, st.EnsureLayout())

	v := NewValidator(st)
	_, err := v.Validate()
	assert.Error(t, err)
}

func TestValidateReportsOrdinalOutOfRange(t *testing.T) {
	st := consistentStore(t)
	require.NoError(t, st.SaveDecks([]deck.Record{
		{Name: "hearts", Category: 3, Type: 0},
	}))

	v := NewValidator(st)
	results, err := v.Validate()
	require.NoError(t, err)
	require.Len(t, results.Errors, 1)
	assert.Contains(t, results.Errors[0], "category ordinal")
}

func TestValidateReportsMissingCardList(t *testing.T) {
	st := consistentStore(t)
	require.NoError(t, os.Remove(st.CardListPath("A", "hearts")))

	v := NewValidator(st)
	results, err := v.Validate()
	require.NoError(t, err)
	require.Len(t, results.Errors, 1)
	assert.Contains(t, results.Errors[0], "card list missing")
}

func TestValidateReportsMissingAssetOfDownloadedDeck(t *testing.T) {
	st := consistentStore(t)
	require.NoError(t, st.DeleteVisual("v1.png"))

	v := NewValidator(st)
	results, err := v.Validate()
	require.NoError(t, err)
	require.Len(t, results.Errors, 1)
	assert.Contains(t, results.Errors[0], "visual v1.png is missing")
}

func TestValidateWarnsOnMissingCoverAndIcon(t *testing.T) {
	st := consistentStore(t)
	require.NoError(t, st.SaveDecks([]deck.Record{
		{Name: "hearts", Category: 0, Type: 0, Cover: "missing.png", Downloaded: true},
	}))
	require.NoError(t, os.Remove(st.CategoryIconPath("a.png")))

	v := NewValidator(st)
	results, err := v.Validate()
	require.NoError(t, err)
	assert.Empty(t, results.Errors)
	assert.Len(t, results.Warnings, 2)
}

func TestValidateWarnsWhenSnapshotOutOfOrder(t *testing.T) {
	st := consistentStore(t)
	require.NoError(t, st.SaveTaxonomy(deck.Taxonomy{
		Categories: []deck.Category{{Name: "A"}, {Name: "B"}},
		Types:      []string{"X"},
	}))
	require.NoError(t, st.SaveCards("B", "early", nil))
	require.NoError(t, st.SaveDecks([]deck.Record{
		{Name: "early", Category: 1, Type: 0},
		{Name: "hearts", Category: 0, Type: 0, Downloaded: true},
	}))

	v := NewValidator(st)
	results, err := v.Validate()
	require.NoError(t, err)
	require.NotEmpty(t, results.Warnings)
	assert.Contains(t, results.Warnings[0], "out of catalog order")
}
