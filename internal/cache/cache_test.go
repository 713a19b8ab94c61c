package cache

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ThomasSchneider-94/Karuta-Project-sub000/internal/card"
	"github.com/ThomasSchneider-94/Karuta-Project-sub000/internal/deck"
	"github.com/ThomasSchneider-94/Karuta-Project-sub000/internal/store"
	"github.com/ThomasSchneider-94/Karuta-Project-sub000/internal/syncer"
	"github.com/ThomasSchneider-94/Karuta-Project-sub000/internal/transport"
)

// fakeTransport serves canned responses by endpoint path. Paths listed
// in failConn answer with a connection error instead.
type fakeTransport struct {
	responses map[string][]byte
	failConn  map[string]bool
	requests  []string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		responses: make(map[string][]byte),
		failConn:  make(map[string]bool),
	}
}

func (f *fakeTransport) Get(_ context.Context, path string) ([]byte, error) {
	f.requests = append(f.requests, path)
	if f.failConn[path] {
		return nil, &transport.ConnectionError{Path: path, Err: errors.New("connection refused")}
	}
	body, ok := f.responses[path]
	if !ok {
		return nil, &transport.ProtocolError{Path: path, StatusCode: http.StatusNotFound}
	}
	return body, nil
}

func (f *fakeTransport) GetToFile(_ context.Context, path, destination string) error {
	f.requests = append(f.requests, path)
	if f.failConn[path] {
		return &transport.ConnectionError{Path: path, Err: errors.New("connection refused")}
	}
	body, ok := f.responses[path]
	if !ok {
		return &transport.ProtocolError{Path: path, StatusCode: http.StatusNotFound}
	}
	return os.WriteFile(destination, body, 0644)
}

func (f *fakeTransport) requested(path string) bool {
	for _, p := range f.requests {
		if p == path {
			return true
		}
	}
	return false
}

func testTaxonomy() deck.Taxonomy {
	return deck.Taxonomy{
		Categories: []deck.Category{{Name: "A"}, {Name: "B"}},
		Types:      []string{"X"},
	}
}

// fixture builds a store with persisted card lists and snapshot for the
// given decks
func fixture(t *testing.T, decks map[string][]card.Card, records []deck.Record) *store.Store {
	t.Helper()
	st := store.New(t.TempDir(), store.OSFilesystem{})
	require.NoError(t, st.EnsureLayout())
	taxonomy := testTaxonomy()
	require.NoError(t, st.SaveTaxonomy(taxonomy))
	for _, rec := range records {
		categoryName := taxonomy.Categories[rec.Category].Name
		require.NoError(t, st.SaveCards(categoryName, rec.Name, decks[rec.Name]))
	}
	require.NoError(t, st.SaveDecks(records))
	return st
}

func seedVisual(t *testing.T, st *store.Store, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(st.VisualPath(name), []byte("x"), 0644))
}

func seedAudio(t *testing.T, st *store.Store, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(st.AudioPath(name), []byte("x"), 0644))
}

func TestDownloadFetchesMissingAssets(t *testing.T) {
	cards := []card.Card{
		{Anime: "Show", Type: "Character", Visual: "v1.png", Audio: "s1.ogg"},
		{Anime: "Show", Type: "Quote", Visual: "v2.png"},
	}
	records := []deck.Record{{Name: "hearts", Category: 0, Type: 0}}
	st := fixture(t, map[string][]card.Card{"hearts": cards}, records)

	ft := newFakeTransport()
	ft.responses[transport.VisualPath("v1.png")] = []byte("v")
	ft.responses[transport.VisualPath("v2.png")] = []byte("v")
	ft.responses[transport.SoundPath("s1.ogg")] = []byte("s")

	c := New(ft, st, zap.NewNop())
	run := syncer.NewRun()
	require.NoError(t, c.Download(context.Background(), run, records, testTaxonomy(), []int{0}))

	assert.True(t, st.HasVisual("v1.png"))
	assert.True(t, st.HasVisual("v2.png"))
	assert.True(t, st.HasAudio("s1.ogg"))
	assert.True(t, records[0].Downloaded)

	// Recomputed flags are persisted.
	persisted, err := st.LoadDecks()
	require.NoError(t, err)
	assert.True(t, persisted[0].Downloaded)
}

func TestDownloadSkipsCachedAssets(t *testing.T) {
	cards := []card.Card{{Anime: "Show", Type: "Character", Visual: "v1.png", Audio: "s1.ogg"}}
	records := []deck.Record{{Name: "hearts", Category: 0, Type: 0}}
	st := fixture(t, map[string][]card.Card{"hearts": cards}, records)
	seedVisual(t, st, "v1.png")

	ft := newFakeTransport()
	ft.responses[transport.SoundPath("s1.ogg")] = []byte("s")

	c := New(ft, st, zap.NewNop())
	require.NoError(t, c.Download(context.Background(), syncer.NewRun(), records, testTaxonomy(), []int{0}))

	// The cached visual was never requested.
	assert.False(t, ft.requested(transport.VisualPath("v1.png")))
	assert.True(t, ft.requested(transport.SoundPath("s1.ogg")))
	assert.True(t, records[0].Downloaded)
}

func TestDownloadConnectionFailureAbortsRemainingDecks(t *testing.T) {
	mk := func(visual string) []card.Card {
		return []card.Card{{Anime: "Show", Type: "Character", Visual: visual}}
	}
	decks := map[string][]card.Card{
		"first":  mk("f.png"),
		"second": mk("s.png"),
		"third":  mk("t.png"),
	}
	records := []deck.Record{
		{Name: "first", Category: 0, Type: 0},
		{Name: "second", Category: 0, Type: 0},
		{Name: "third", Category: 0, Type: 0},
	}
	st := fixture(t, decks, records)

	ft := newFakeTransport()
	ft.responses[transport.VisualPath("f.png")] = []byte("v")
	ft.failConn[transport.VisualPath("s.png")] = true
	ft.responses[transport.VisualPath("t.png")] = []byte("v")

	c := New(ft, st, zap.NewNop())
	run := syncer.NewRun()
	require.NoError(t, c.Download(context.Background(), run, records, testTaxonomy(), []int{0, 1, 2}))

	assert.True(t, run.ConnectionFailed)

	// The deck finished before the failure keeps its flag; the failing
	// deck and the never-attempted deck do not.
	assert.True(t, records[0].Downloaded)
	assert.False(t, records[1].Downloaded)
	assert.False(t, records[2].Downloaded)
	assert.False(t, ft.requested(transport.VisualPath("t.png")))

	persisted, err := st.LoadDecks()
	require.NoError(t, err)
	assert.True(t, persisted[0].Downloaded)
	assert.False(t, persisted[2].Downloaded)
}

func TestDownloadLeavesUnselectedFlagsAlone(t *testing.T) {
	cards := []card.Card{{Anime: "Show", Type: "Character", Visual: "v1.png"}}
	records := []deck.Record{
		{Name: "selected", Category: 0, Type: 0},
		{Name: "other", Category: 0, Type: 0, Downloaded: true},
	}
	st := fixture(t, map[string][]card.Card{"selected": cards, "other": cards}, records)

	ft := newFakeTransport()
	ft.responses[transport.VisualPath("v1.png")] = []byte("v")

	c := New(ft, st, zap.NewNop())
	require.NoError(t, c.Download(context.Background(), syncer.NewRun(), records, testTaxonomy(), []int{0}))

	persisted, err := st.LoadDecks()
	require.NoError(t, err)
	assert.True(t, persisted[1].Downloaded, "unselected deck keeps its prior flag")
}

func TestDownloadRejectsBadIndex(t *testing.T) {
	st := fixture(t, nil, nil)
	c := New(newFakeTransport(), st, zap.NewNop())
	err := c.Download(context.Background(), syncer.NewRun(), nil, testTaxonomy(), []int{0})
	assert.Error(t, err)
}

func TestDownloadRejectsOutOfTaxonomyOrdinal(t *testing.T) {
	st := store.New(t.TempDir(), store.OSFilesystem{})
	require.NoError(t, st.EnsureLayout())
	c := New(newFakeTransport(), st, zap.NewNop())

	records := []deck.Record{{Name: "hearts", Category: 7, Type: 0}}
	err := c.Download(context.Background(), syncer.NewRun(), records, testTaxonomy(), []int{0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "category ordinal")

	records = []deck.Record{{Name: "hearts", Category: 0, Type: 5}}
	err = c.Download(context.Background(), syncer.NewRun(), records, testTaxonomy(), []int{0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type ordinal")
}

func TestDeleteRejectsOutOfTaxonomyOrdinal(t *testing.T) {
	st := store.New(t.TempDir(), store.OSFilesystem{})
	require.NoError(t, st.EnsureLayout())
	c := New(newFakeTransport(), st, zap.NewNop())

	// The bad ordinal sits on a retained deck, not the selection.
	records := []deck.Record{
		{Name: "hearts", Category: 0, Type: 0, Downloaded: true},
		{Name: "rogue", Category: 7, Type: 0, Downloaded: true},
	}
	err := c.Delete(syncer.NewRun(), records, testTaxonomy(), []int{0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "category ordinal")
}

func TestDeleteKeepsAssetsSharedWithRetainedDeck(t *testing.T) {
	shared := []card.Card{{Anime: "Show", Type: "Character", Visual: "x.png", Audio: "x.ogg"}}
	records := []deck.Record{
		{Name: "d1", Category: 0, Type: 0, Downloaded: true},
		{Name: "d2", Category: 0, Type: 0, Downloaded: true},
	}
	st := fixture(t, map[string][]card.Card{"d1": shared, "d2": shared}, records)
	seedVisual(t, st, "x.png")
	seedAudio(t, st, "x.ogg")

	c := New(newFakeTransport(), st, zap.NewNop())
	require.NoError(t, c.Delete(syncer.NewRun(), records, testTaxonomy(), []int{0}))

	// d2 still references x.png, so it survives d1's deletion.
	assert.True(t, st.HasVisual("x.png"))
	assert.True(t, st.HasAudio("x.ogg"))
	assert.False(t, records[0].Downloaded)
	assert.True(t, records[1].Downloaded)

	// Deleting the last referencing deck removes the asset.
	require.NoError(t, c.Delete(syncer.NewRun(), records, testTaxonomy(), []int{1}))
	assert.False(t, st.HasVisual("x.png"))
	assert.False(t, st.HasAudio("x.ogg"))
}

func TestDeleteRemovesBothDecksAtOnce(t *testing.T) {
	shared := []card.Card{{Anime: "Show", Type: "Character", Visual: "x.png"}}
	records := []deck.Record{
		{Name: "d1", Category: 0, Type: 0, Downloaded: true},
		{Name: "d2", Category: 0, Type: 0, Downloaded: true},
	}
	st := fixture(t, map[string][]card.Card{"d1": shared, "d2": shared}, records)
	seedVisual(t, st, "x.png")

	c := New(newFakeTransport(), st, zap.NewNop())
	require.NoError(t, c.Delete(syncer.NewRun(), records, testTaxonomy(), []int{0, 1}))
	assert.False(t, st.HasVisual("x.png"))
}

func TestDeleteOnlyScansDownloadedRetainedDecks(t *testing.T) {
	// A retained deck that is not marked downloaded does not protect
	// its assets: only downloaded decks count as references.
	cards := map[string][]card.Card{
		"selected": {{Anime: "Show", Type: "Character", Visual: "a.png"}},
		"retained": {{Anime: "Show", Type: "Character", Visual: "a.png"}},
	}
	records := []deck.Record{
		{Name: "selected", Category: 0, Type: 0, Downloaded: true},
		{Name: "retained", Category: 0, Type: 0, Downloaded: false},
	}
	st := fixture(t, cards, records)
	seedVisual(t, st, "a.png")

	c := New(newFakeTransport(), st, zap.NewNop())
	require.NoError(t, c.Delete(syncer.NewRun(), records, testTaxonomy(), []int{0}))
	assert.False(t, st.HasVisual("a.png"))
}

func TestDeleteAbortsWhenRetainedCardListUnreadable(t *testing.T) {
	records := []deck.Record{
		{Name: "selected", Category: 0, Type: 0, Downloaded: true},
		{Name: "retained", Category: 0, Type: 0, Downloaded: true},
	}
	// Persist a card list for the selected deck only; the retained
	// downloaded deck's list is missing.
	st := fixture(t, map[string][]card.Card{
		"selected": {{Anime: "Show", Type: "Character", Visual: "a.png"}},
	}, records)
	require.NoError(t, os.Remove(st.CardListPath("A", "retained")))
	seedVisual(t, st, "a.png")

	c := New(newFakeTransport(), st, zap.NewNop())
	err := c.Delete(syncer.NewRun(), records, testTaxonomy(), []int{0})
	require.Error(t, err)

	// Nothing was deleted and flags are unchanged.
	assert.True(t, st.HasVisual("a.png"))
	persisted, err := st.LoadDecks()
	require.NoError(t, err)
	assert.True(t, persisted[0].Downloaded)
}

// flakyFS fails deletion of selected file names, everything else passes
// through to the host disk
type flakyFS struct {
	store.OSFilesystem
	failDelete map[string]bool
}

func (f flakyFS) Delete(path string) error {
	if f.failDelete[filepath.Base(path)] {
		return errors.New("permission denied")
	}
	return f.OSFilesystem.Delete(path)
}

func TestDeletePerFileFailureDoesNotAbortBatch(t *testing.T) {
	fs := flakyFS{failDelete: map[string]bool{"a.png": true}}
	st := store.New(t.TempDir(), fs)
	require.NoError(t, st.EnsureLayout())
	taxonomy := testTaxonomy()
	require.NoError(t, st.SaveTaxonomy(taxonomy))

	records := []deck.Record{
		{Name: "only", Category: 0, Type: 0, Downloaded: true},
	}
	require.NoError(t, st.SaveCards("A", "only", []card.Card{
		{Anime: "Show", Type: "Character", Visual: "a.png"},
		{Anime: "Show", Type: "Character", Visual: "b.png"},
	}))
	require.NoError(t, st.SaveDecks(records))
	seedVisual(t, st, "a.png")
	seedVisual(t, st, "b.png")

	c := New(newFakeTransport(), st, zap.NewNop())
	require.NoError(t, c.Delete(syncer.NewRun(), records, testTaxonomy(), []int{0}))

	// a.png could not be removed (garbage, not breakage); the rest of
	// the batch still ran and the flags were persisted.
	assert.True(t, st.HasVisual("a.png"))
	assert.False(t, st.HasVisual("b.png"))
	assert.False(t, records[0].Downloaded)

	persisted, err := st.LoadDecks()
	require.NoError(t, err)
	assert.False(t, persisted[0].Downloaded)
}
