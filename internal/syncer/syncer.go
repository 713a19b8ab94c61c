package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ThomasSchneider-94/Karuta-Project-sub000/internal/card"
	"github.com/ThomasSchneider-94/Karuta-Project-sub000/internal/catalog"
	"github.com/ThomasSchneider-94/Karuta-Project-sub000/internal/deck"
	"github.com/ThomasSchneider-94/Karuta-Project-sub000/internal/store"
	"github.com/ThomasSchneider-94/Karuta-Project-sub000/internal/transport"
)

// User-facing phase names, shown through Run.Progress.
const (
	phaseTaxonomy = "Fetching categories"
	phaseNames    = "Fetching deck list"
	phaseMetadata = "Fetching deck"
	phaseIcons    = "Fetching category icon"
	phaseCovers   = "Fetching deck cover"
	phaseCommit   = "Saving catalog"
)

// Pipeline performs one complete catalog refresh against the remote:
// taxonomy, deck names, per-deck metadata, category icons, deck covers,
// then commit. Stages run strictly in that order.
type Pipeline struct {
	transport transport.Transport
	store     *store.Store
	logger    *zap.Logger
}

// New creates a pipeline over the given collaborators
func New(t transport.Transport, st *store.Store, logger *zap.Logger) *Pipeline {
	return &Pipeline{transport: t, store: st, logger: logger}
}

// Result is the terminal state of a refresh run
type Result struct {
	Outcome   Outcome
	Taxonomy  deck.Taxonomy
	Index     *catalog.Index
	Accepted  int
	Skipped   int
	LastError string
}

// Run executes one refresh. A taxonomy or deck-list failure aborts with
// nothing committed and the previous snapshot left authoritative. A
// connection failure later in the run commits the decks already
// validated. Invalid decks are skipped, never fatal.
func (p *Pipeline) Run(ctx context.Context, run *Run) (*Result, error) {
	log := p.logger.With(zap.String("run_id", run.ID))

	// Stage 1: taxonomy. Nothing downstream can be validated without
	// it, so any failure is terminal.
	run.Progress(phaseTaxonomy, "")
	taxonomy, err := p.fetchTaxonomy(ctx)
	if err != nil {
		if transport.IsConnectionError(err) {
			run.ConnectionFailed = true
		}
		log.Error("taxonomy fetch failed", zap.Error(err))
		return &Result{Outcome: OutcomeAborted, LastError: err.Error()}, err
	}
	log.Info("taxonomy fetched",
		zap.Int("categories", len(taxonomy.Categories)),
		zap.Int("types", len(taxonomy.Types)))

	// Stage 2: deck name list.
	run.Progress(phaseNames, "")
	names, err := p.fetchDeckNames(ctx)
	if err != nil {
		if transport.IsConnectionError(err) {
			run.ConnectionFailed = true
		}
		log.Error("deck list fetch failed", zap.Error(err))
		return &Result{Outcome: OutcomeAborted, LastError: err.Error()}, err
	}
	log.Info("deck list fetched", zap.Int("decks", len(names)))

	// Stage 3: per-deck metadata. A connection failure stops the loop
	// but keeps decks already accepted; anything else skips one deck.
	var (
		accepted  []deck.Record
		deckCards = make(map[deckKey][]card.Card)
		seen      = make(map[deckKey]bool)
		skipped   int
		lastErr   string
	)
	for _, name := range names {
		if run.ConnectionFailed {
			break
		}
		run.Progress(phaseMetadata, name)

		doc, err := p.fetchDeck(ctx, name)
		if err != nil {
			if transport.IsConnectionError(err) {
				run.ConnectionFailed = true
				lastErr = err.Error()
				log.Error("deck fetch failed, aborting remaining decks",
					zap.String("deck", name), zap.Error(err))
				break
			}
			log.Warn("deck skipped", zap.String("deck", name), zap.Error(err))
			skipped++
			continue
		}

		rec, reason := validateDeck(doc, taxonomy, seen)
		if reason != "" {
			log.Warn("deck rejected", zap.String("deck", name), zap.String("reason", reason))
			skipped++
			continue
		}

		// The downloaded flag reflects carry-over cache state before
		// any media fetch of this run.
		rec.Downloaded = p.allCardAssetsCached(doc.Cards)
		accepted = append(accepted, rec)
		deckCards[deckKey{category: rec.Category, name: rec.Name}] = doc.Cards
	}

	// Stage 4: category icons, one per taxonomy entry, miss-only.
	for _, c := range taxonomy.Categories {
		if run.ConnectionFailed {
			break
		}
		if c.Icon == "" || p.store.HasCategoryIcon(c.Icon) {
			continue
		}
		run.Progress(phaseIcons, c.Name)
		err := p.transport.GetToFile(ctx, transport.CategoryIconPath(c.Icon), p.store.CategoryIconPath(c.Icon))
		if err != nil {
			if transport.IsConnectionError(err) {
				run.ConnectionFailed = true
				lastErr = err.Error()
				log.Error("icon fetch failed, aborting remaining icons",
					zap.String("category", c.Name), zap.Error(err))
				break
			}
			// One missing icon does not affect the others.
			log.Warn("icon unavailable", zap.String("category", c.Name), zap.Error(err))
		}
	}

	// Stage 5: deck covers, symmetric to stage 4.
	for _, rec := range accepted {
		if run.ConnectionFailed {
			break
		}
		if rec.Cover == "" || p.store.HasCover(rec.Cover) {
			continue
		}
		run.Progress(phaseCovers, rec.Name)
		err := p.transport.GetToFile(ctx, transport.DeckCoverPath(rec.Cover), p.store.CoverPath(rec.Cover))
		if err != nil {
			if transport.IsConnectionError(err) {
				run.ConnectionFailed = true
				lastErr = err.Error()
				log.Error("cover fetch failed, aborting remaining covers",
					zap.String("deck", rec.Name), zap.Error(err))
				break
			}
			log.Warn("cover unavailable", zap.String("deck", rec.Name), zap.Error(err))
		}
	}

	// Commit. The new snapshot replaces the old one wholesale; a
	// persist failure means durability cannot be guaranteed and fails
	// the run.
	run.Progress(phaseCommit, "")
	index, err := catalog.Rebuild(accepted, len(taxonomy.Categories), len(taxonomy.Types))
	if err != nil {
		log.Error("catalog rebuild rejected", zap.Error(err))
		return &Result{Outcome: OutcomeAborted, Taxonomy: taxonomy, LastError: err.Error()}, err
	}
	if err := p.commit(index, taxonomy, deckCards); err != nil {
		log.Error("commit failed", zap.Error(err))
		return &Result{Outcome: OutcomeAborted, Taxonomy: taxonomy, LastError: err.Error()}, err
	}

	outcome := OutcomeSuccess
	if run.ConnectionFailed {
		outcome = OutcomePartial
	}
	log.Info("synchronization finished",
		zap.String("outcome", outcome.String()),
		zap.Int("accepted", len(accepted)),
		zap.Int("skipped", skipped))

	return &Result{
		Outcome:   outcome,
		Taxonomy:  taxonomy,
		Index:     index,
		Accepted:  len(accepted),
		Skipped:   skipped,
		LastError: lastErr,
	}, nil
}

func (p *Pipeline) fetchTaxonomy(ctx context.Context) (deck.Taxonomy, error) {
	data, err := p.transport.Get(ctx, transport.TaxonomyPath())
	if err != nil {
		return deck.Taxonomy{}, err
	}
	var t deck.Taxonomy
	if err := json.Unmarshal(data, &t); err != nil {
		return deck.Taxonomy{}, fmt.Errorf("malformed taxonomy: %w", err)
	}
	if len(t.Categories) == 0 || len(t.Types) == 0 {
		return deck.Taxonomy{}, fmt.Errorf("empty taxonomy")
	}
	return t, nil
}

func (p *Pipeline) fetchDeckNames(ctx context.Context) ([]string, error) {
	data, err := p.transport.Get(ctx, transport.DeckNamesPath())
	if err != nil {
		return nil, err
	}
	var names []string
	for _, line := range strings.Split(string(data), "\n") {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

func (p *Pipeline) fetchDeck(ctx context.Context, name string) (deck.Document, error) {
	data, err := p.transport.Get(ctx, transport.DeckMetadataPath(name))
	if err != nil {
		return deck.Document{}, err
	}
	var doc deck.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return deck.Document{}, fmt.Errorf("malformed deck metadata: %w", err)
	}
	return doc, nil
}

// allCardAssetsCached reports whether every visual and audio asset the
// cards reference is already present in the local cache
func (p *Pipeline) allCardAssetsCached(cards []card.Card) bool {
	for _, c := range cards {
		if !p.store.HasVisual(c.Visual) {
			return false
		}
		if !c.Silent() && !p.store.HasAudio(c.Audio) {
			return false
		}
	}
	return true
}

// commit persists the taxonomy, the per-deck card lists and finally the
// snapshot itself. The snapshot is written last so readers never see
// decks whose card lists are not on disk yet.
func (p *Pipeline) commit(index *catalog.Index, taxonomy deck.Taxonomy, deckCards map[deckKey][]card.Card) error {
	if err := p.store.EnsureLayout(); err != nil {
		return err
	}
	if err := p.store.SaveTaxonomy(taxonomy); err != nil {
		return err
	}
	records := index.Records()
	for _, rec := range records {
		cards := deckCards[deckKey{category: rec.Category, name: rec.Name}]
		categoryName := taxonomy.Categories[rec.Category].Name
		if err := p.store.SaveCards(categoryName, rec.Name, cards); err != nil {
			return err
		}
	}
	return p.store.SaveDecks(records)
}
