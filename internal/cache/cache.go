package cache

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ThomasSchneider-94/Karuta-Project-sub000/internal/card"
	"github.com/ThomasSchneider-94/Karuta-Project-sub000/internal/deck"
	"github.com/ThomasSchneider-94/Karuta-Project-sub000/internal/store"
	"github.com/ThomasSchneider-94/Karuta-Project-sub000/internal/syncer"
	"github.com/ThomasSchneider-94/Karuta-Project-sub000/internal/transport"
)

// Cache fetches missing per-card media for selected decks and removes
// cached media without breaking decks outside the selection. Card
// assets are shared across decks, so deletion works by exclusion: an
// asset survives as long as any retained downloaded deck references it.
type Cache struct {
	transport transport.Transport
	store     *store.Store
	logger    *zap.Logger
}

// New creates a cache over the given collaborators
func New(t transport.Transport, st *store.Store, logger *zap.Logger) *Cache {
	return &Cache{transport: t, store: st, logger: logger}
}

// Download fetches every missing visual and audio asset of the selected
// decks. records is the full catalog snapshot in catalog order and
// selected holds positions into it. Decks are processed sequentially;
// a connection failure aborts the remaining cards of the current deck
// and all remaining decks. Downloaded flags of the selected decks are
// recomputed and the whole snapshot is persisted before returning, so
// decks fully processed before an abort keep their flag.
func (c *Cache) Download(ctx context.Context, run *syncer.Run, records []deck.Record, taxonomy deck.Taxonomy, selected []int) error {
	log := c.logger.With(zap.String("run_id", run.ID))

	for _, idx := range selected {
		if idx < 0 || idx >= len(records) {
			return fmt.Errorf("deck index %d out of range for catalog of %d decks", idx, len(records))
		}
	}
	if err := validateOrdinals(records, taxonomy); err != nil {
		return err
	}

	for _, idx := range selected {
		if run.ConnectionFailed {
			break
		}
		rec := records[idx]
		categoryName := taxonomy.Categories[rec.Category].Name
		run.Progress("Downloading deck", rec.Name)

		cards, err := c.store.LoadCards(categoryName, rec.Name)
		if err != nil {
			log.Warn("card list unavailable, deck skipped",
				zap.String("deck", rec.Name), zap.Error(err))
			continue
		}

		for _, cd := range cards {
			if run.ConnectionFailed {
				break
			}
			run.Progress("Downloading deck", rec.Name+" / "+cd.Visual)
			c.fetchMissing(ctx, run, log, transport.VisualPath(cd.Visual), c.store.VisualPath(cd.Visual), c.store.HasVisual(cd.Visual))
			if !cd.Silent() && !run.ConnectionFailed {
				c.fetchMissing(ctx, run, log, transport.SoundPath(cd.Audio), c.store.AudioPath(cd.Audio), c.store.HasAudio(cd.Audio))
			}
		}
	}

	// Recompute flags for the selection only; unselected decks keep
	// their previous value. Everything is persisted together.
	for _, idx := range selected {
		records[idx].Downloaded = c.deckCached(taxonomy, records[idx])
	}
	if err := c.store.SaveDecks(records); err != nil {
		return fmt.Errorf("persist downloaded flags: %w", err)
	}
	return nil
}

// fetchMissing fetches one asset unless it is already cached. A
// connection failure raises the run's abort flag; any other failure is
// logged and skipped.
func (c *Cache) fetchMissing(ctx context.Context, run *syncer.Run, log *zap.Logger, remotePath, localPath string, cached bool) {
	if cached {
		return
	}
	if err := c.transport.GetToFile(ctx, remotePath, localPath); err != nil {
		if transport.IsConnectionError(err) {
			run.ConnectionFailed = true
			log.Error("asset fetch failed, aborting download",
				zap.String("asset", remotePath), zap.Error(err))
			return
		}
		log.Warn("asset unavailable", zap.String("asset", remotePath), zap.Error(err))
	}
}

// deckCached reports whether every asset of a deck's card list is in
// the local cache. A deck whose card list cannot be read counts as not
// cached.
func (c *Cache) deckCached(taxonomy deck.Taxonomy, rec deck.Record) bool {
	cards, err := c.store.LoadCards(taxonomy.Categories[rec.Category].Name, rec.Name)
	if err != nil {
		return false
	}
	return c.allCached(cards)
}

func (c *Cache) allCached(cards []card.Card) bool {
	for _, cd := range cards {
		if !c.store.HasVisual(cd.Visual) {
			return false
		}
		if !cd.Silent() && !c.store.HasAudio(cd.Audio) {
			return false
		}
	}
	return true
}

// Delete removes the selected decks' cached card media. An asset file
// is deleted only if no retained downloaded deck references it:
//
//  1. enumerate the visual and audio cache directories into candidate
//     sets,
//  2. subtract every asset referenced by a deck outside the selection
//     that is currently marked downloaded,
//  3. delete the files left in the sets,
//  4. clear the selected decks' downloaded flags and persist.
//
// Per-file delete failures are logged and do not abort the batch; a
// partial batch leaves garbage, never a dangling reference. Failing to
// read a retained deck's card list aborts the whole batch because the
// reference set would be incomplete.
func (c *Cache) Delete(run *syncer.Run, records []deck.Record, taxonomy deck.Taxonomy, selected []int) error {
	log := c.logger.With(zap.String("run_id", run.ID))

	selectedSet := make(map[int]bool, len(selected))
	for _, idx := range selected {
		if idx < 0 || idx >= len(records) {
			return fmt.Errorf("deck index %d out of range for catalog of %d decks", idx, len(records))
		}
		selectedSet[idx] = true
	}
	if err := validateOrdinals(records, taxonomy); err != nil {
		return err
	}

	run.Progress("Scanning cache", "")
	visuals, err := listSet(c.store.ListVisuals)
	if err != nil {
		return fmt.Errorf("enumerate visual cache: %w", err)
	}
	audio, err := listSet(c.store.ListAudio)
	if err != nil {
		return fmt.Errorf("enumerate audio cache: %w", err)
	}

	for i := range records {
		if selectedSet[i] || !records[i].Downloaded {
			continue
		}
		rec := records[i]
		run.Progress("Scanning retained deck", rec.Name)
		cards, err := c.store.LoadCards(taxonomy.Categories[rec.Category].Name, rec.Name)
		if err != nil {
			return fmt.Errorf("card list for retained deck %q: %w", rec.Name, err)
		}
		for _, cd := range cards {
			delete(visuals, cd.Visual)
			if !cd.Silent() {
				delete(audio, cd.Audio)
			}
		}
	}

	run.Progress("Deleting assets", "")
	removed := 0
	for name := range visuals {
		if err := c.store.DeleteVisual(name); err != nil {
			log.Warn("visual delete failed", zap.String("asset", name), zap.Error(err))
			continue
		}
		removed++
	}
	for name := range audio {
		if err := c.store.DeleteAudio(name); err != nil {
			log.Warn("audio delete failed", zap.String("asset", name), zap.Error(err))
			continue
		}
		removed++
	}
	log.Info("cache eviction finished",
		zap.Int("decks", len(selected)), zap.Int("assets_removed", removed))

	for _, idx := range selected {
		records[idx].Downloaded = false
	}
	if err := c.store.SaveDecks(records); err != nil {
		return fmt.Errorf("persist downloaded flags: %w", err)
	}
	return nil
}

// validateOrdinals rejects a snapshot carrying category or type
// ordinals outside the taxonomy. The snapshot file is shared with
// other clients, so its contents are not trusted.
func validateOrdinals(records []deck.Record, taxonomy deck.Taxonomy) error {
	for _, rec := range records {
		if rec.Category < 0 || rec.Category >= len(taxonomy.Categories) {
			return fmt.Errorf("deck %q has category ordinal %d out of range for %d categories",
				rec.Name, rec.Category, len(taxonomy.Categories))
		}
		if rec.Type < 0 || rec.Type >= len(taxonomy.Types) {
			return fmt.Errorf("deck %q has type ordinal %d out of range for %d types",
				rec.Name, rec.Type, len(taxonomy.Types))
		}
	}
	return nil
}

func listSet(list func() ([]string, error)) (map[string]bool, error) {
	names, err := list()
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set, nil
}
