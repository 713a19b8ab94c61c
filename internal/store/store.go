package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ThomasSchneider-94/Karuta-Project-sub000/internal/card"
	"github.com/ThomasSchneider-94/Karuta-Project-sub000/internal/deck"
)

// Filesystem abstracts the file operations the store performs
type Filesystem interface {
	Exists(path string) bool
	ReadAll(path string) ([]byte, error)
	WriteAll(path string, data []byte) error
	Delete(path string) error
	// ListFiles returns the names (not full paths) of the regular files
	// in a directory.
	ListFiles(directory string) ([]string, error)
	EnsureDirectory(path string) error
}

// OSFilesystem implements Filesystem on the host disk
type OSFilesystem struct{}

func (OSFilesystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (OSFilesystem) ReadAll(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteAll writes through a temp file in the destination directory
// followed by a rename, so a crash mid-write never leaves a torn file.
func (OSFilesystem) WriteAll(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".karuta_tmp_")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath) // Clean up if we didn't rename
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func (OSFilesystem) Delete(path string) error {
	return os.Remove(path)
}

func (OSFilesystem) ListFiles(directory string) ([]string, error) {
	entries, err := os.ReadDir(directory)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

func (OSFilesystem) EnsureDirectory(path string) error {
	return os.MkdirAll(path, 0755)
}

// Persisted layout. File and directory names are shared with other
// Karuta clients; do not rename.
const (
	decksInfoFile  = "DecksInfo.json"
	categoriesFile = "Categories.json"

	decksDir         = "Decks"
	coversDir        = "Covers"
	visualsDir       = "Visuals"
	audioDir         = "Audio"
	categoryIconsDir = "Categories_Visual"
)

// Store owns the on-disk catalog snapshot, the per-deck card lists and
// the media asset cache under a single root directory.
type Store struct {
	root string
	fs   Filesystem
}

// New creates a store rooted at the given data directory
func New(root string, fs Filesystem) *Store {
	return &Store{root: root, fs: fs}
}

// Root returns the store's data directory
func (s *Store) Root() string {
	return s.root
}

// EnsureLayout creates the full directory layout
func (s *Store) EnsureLayout() error {
	dirs := []string{
		s.root,
		filepath.Join(s.root, decksDir),
		filepath.Join(s.root, coversDir),
		filepath.Join(s.root, visualsDir),
		filepath.Join(s.root, audioDir),
		filepath.Join(s.root, categoryIconsDir),
	}
	for _, dir := range dirs {
		if err := s.fs.EnsureDirectory(dir); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// LoadDecks reads the persisted catalog snapshot. A missing snapshot is
// an empty catalog, not an error.
func (s *Store) LoadDecks() ([]deck.Record, error) {
	path := filepath.Join(s.root, decksInfoFile)
	if !s.fs.Exists(path) {
		return nil, nil
	}
	data, err := s.fs.ReadAll(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", decksInfoFile, err)
	}
	var records []deck.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", decksInfoFile, err)
	}
	return records, nil
}

// SaveDecks writes the catalog snapshot. Marshaling is deterministic,
// so re-syncing an unchanged remote rewrites identical bytes.
func (s *Store) SaveDecks(records []deck.Record) error {
	if records == nil {
		records = []deck.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", decksInfoFile, err)
	}
	if err := s.fs.WriteAll(filepath.Join(s.root, decksInfoFile), data); err != nil {
		return fmt.Errorf("write %s: %w", decksInfoFile, err)
	}
	return nil
}

// LoadTaxonomy reads the persisted category and type enumeration
func (s *Store) LoadTaxonomy() (deck.Taxonomy, error) {
	data, err := s.fs.ReadAll(filepath.Join(s.root, categoriesFile))
	if err != nil {
		return deck.Taxonomy{}, fmt.Errorf("read %s: %w", categoriesFile, err)
	}
	var t deck.Taxonomy
	if err := json.Unmarshal(data, &t); err != nil {
		return deck.Taxonomy{}, fmt.Errorf("parse %s: %w", categoriesFile, err)
	}
	return t, nil
}

// SaveTaxonomy writes the category and type enumeration
func (s *Store) SaveTaxonomy(t deck.Taxonomy) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", categoriesFile, err)
	}
	if err := s.fs.WriteAll(filepath.Join(s.root, categoriesFile), data); err != nil {
		return fmt.Errorf("write %s: %w", categoriesFile, err)
	}
	return nil
}

// CardListPath returns the path of a deck's persisted card list
func (s *Store) CardListPath(category, deckName string) string {
	return filepath.Join(s.root, decksDir, category, deckName+".json")
}

// HasCardList reports whether a deck's card list is persisted locally
func (s *Store) HasCardList(category, deckName string) bool {
	return s.fs.Exists(s.CardListPath(category, deckName))
}

// LoadCards reads a deck's persisted card list
func (s *Store) LoadCards(category, deckName string) ([]card.Card, error) {
	data, err := s.fs.ReadAll(s.CardListPath(category, deckName))
	if err != nil {
		return nil, fmt.Errorf("read card list for %s/%s: %w", category, deckName, err)
	}
	var cards []card.Card
	if err := json.Unmarshal(data, &cards); err != nil {
		return nil, fmt.Errorf("parse card list for %s/%s: %w", category, deckName, err)
	}
	return cards, nil
}

// SaveCards writes a deck's card list under its category subdirectory
func (s *Store) SaveCards(category, deckName string, cards []card.Card) error {
	if cards == nil {
		cards = []card.Card{}
	}
	if err := s.fs.EnsureDirectory(filepath.Join(s.root, decksDir, category)); err != nil {
		return fmt.Errorf("create category directory %s: %w", category, err)
	}
	data, err := json.MarshalIndent(cards, "", "  ")
	if err != nil {
		return fmt.Errorf("encode card list for %s/%s: %w", category, deckName, err)
	}
	if err := s.fs.WriteAll(s.CardListPath(category, deckName), data); err != nil {
		return fmt.Errorf("write card list for %s/%s: %w", category, deckName, err)
	}
	return nil
}

// Asset paths and presence checks. Assets are content-addressed by file
// name only.

func (s *Store) CoverPath(name string) string {
	return filepath.Join(s.root, coversDir, name)
}

func (s *Store) VisualPath(name string) string {
	return filepath.Join(s.root, visualsDir, name)
}

func (s *Store) AudioPath(name string) string {
	return filepath.Join(s.root, audioDir, name)
}

func (s *Store) CategoryIconPath(name string) string {
	return filepath.Join(s.root, categoryIconsDir, name)
}

func (s *Store) HasCover(name string) bool {
	return name != "" && s.fs.Exists(s.CoverPath(name))
}

func (s *Store) HasVisual(name string) bool {
	return name != "" && s.fs.Exists(s.VisualPath(name))
}

func (s *Store) HasAudio(name string) bool {
	return name != "" && s.fs.Exists(s.AudioPath(name))
}

func (s *Store) HasCategoryIcon(name string) bool {
	return name != "" && s.fs.Exists(s.CategoryIconPath(name))
}

// ListVisuals returns the file names currently in the visual cache
func (s *Store) ListVisuals() ([]string, error) {
	return s.fs.ListFiles(filepath.Join(s.root, visualsDir))
}

// ListAudio returns the file names currently in the audio cache
func (s *Store) ListAudio() ([]string, error) {
	return s.fs.ListFiles(filepath.Join(s.root, audioDir))
}

// DeleteVisual removes one file from the visual cache
func (s *Store) DeleteVisual(name string) error {
	return s.fs.Delete(s.VisualPath(name))
}

// DeleteAudio removes one file from the audio cache
func (s *Store) DeleteAudio(name string) error {
	return s.fs.Delete(s.AudioPath(name))
}
