// Package resolver matches extracted document hints against the household's
// known entities. It never creates entities on its own: a hint that clears
// the acceptance threshold links the document, anything else either becomes
// a suggestion for the user to review or falls through to the shared
// household entity.
package resolver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hearthkeep/hearthkeep/internal/model"
)

// DefaultThreshold is the minimum similarity score for an automatic link.
const DefaultThreshold = 0.7

// EntityReader is the slice of the storage layer the resolver consults.
type EntityReader interface {
	GetActiveEntities(ctx context.Context) ([]model.Entity, error)
	CountLinkedDocuments(ctx context.Context, entityID string) (int, error)
}

// Result is the outcome of resolving one document's hints. At most one of
// Entity and Suggestion is set; both nil means no usable hint was found and
// the caller should attribute the document to the household.
type Result struct {
	Entity     *model.Entity
	Suggestion *model.EntitySuggestion
	Confidence float64
}

// Resolver scores entity hints against the active entity registry.
type Resolver struct {
	store     EntityReader
	logger    *slog.Logger
	threshold float64
}

// New creates a resolver. A threshold outside (0,1] falls back to
// DefaultThreshold.
func New(store EntityReader, threshold float64, logger *slog.Logger) *Resolver {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, threshold: threshold, logger: logger}
}

// hintCandidate is one hint value paired with the entity types it can match.
type hintCandidate struct {
	value   string
	compact bool // registrations and addresses compare separator-stripped
	types   []model.EntityType
}

// candidates lists the usable hints in precedence order. Registrations are
// the most discriminating signal, then names, then addresses.
func candidates(hints model.EntityHints) []hintCandidate {
	var out []hintCandidate
	if hints.Registration != "" {
		out = append(out, hintCandidate{
			value:   hints.Registration,
			compact: true,
			types:   []model.EntityType{model.EntityTypeVehicle},
		})
	}
	if hints.PersonName != "" {
		out = append(out, hintCandidate{
			value: hints.PersonName,
			types: []model.EntityType{model.EntityTypePerson},
		})
	}
	if hints.PetName != "" {
		out = append(out, hintCandidate{
			value: hints.PetName,
			types: []model.EntityType{model.EntityTypePet},
		})
	}
	if hints.Address != "" {
		out = append(out, hintCandidate{
			value:   hints.Address,
			compact: true,
			types:   []model.EntityType{model.EntityTypeProperty},
		})
	}
	return out
}

// Resolve decides which entity, if any, a document with the given hints
// belongs to.
func (r *Resolver) Resolve(ctx context.Context, documentID string, hints model.EntityHints) (Result, error) {
	if hints.Empty() {
		return Result{}, nil
	}

	entities, err := r.store.GetActiveEntities(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load entities: %w", err)
	}

	cands := candidates(hints)

	var (
		best      *model.Entity
		bestScore float64
	)
	for _, cand := range cands {
		candBest, candScore, err := r.bestForCandidate(ctx, cand, entities)
		if err != nil {
			return Result{}, err
		}
		// Candidates are in precedence order: a later hint must beat the
		// score outright to displace an earlier one.
		if candBest != nil && candScore > bestScore {
			best, bestScore = candBest, candScore
		}
	}

	if best != nil && bestScore >= r.threshold {
		r.logger.Debug("hint matched entity",
			"entity", best.Name,
			"type", best.Type,
			"confidence", fmt.Sprintf("%.2f", bestScore))
		return Result{Entity: best, Confidence: bestScore}, nil
	}

	// A recognizable hint with no convincing match becomes a suggestion for
	// the user, never an automatic entity.
	first := cands[0]
	suggestion := &model.EntitySuggestion{
		DocumentID: documentID,
		Type:       first.types[0],
		Name:       first.value,
		Identifier: first.value,
		Status:     model.SuggestionPending,
	}
	r.logger.Debug("no entity match, proposing new entity",
		"type", suggestion.Type,
		"identifier", suggestion.Identifier,
		"best_score", fmt.Sprintf("%.2f", bestScore))
	return Result{Suggestion: suggestion}, nil
}

// bestForCandidate scores one hint against every type-compatible entity.
// Ties are broken only among entities matched by this same hint, so a
// weaker hint can never steal a tie from a more discriminating one.
func (r *Resolver) bestForCandidate(ctx context.Context, cand hintCandidate, entities []model.Entity) (*model.Entity, float64, error) {
	var (
		best      *model.Entity
		bestScore float64
	)
	for i := range entities {
		entity := &entities[i]
		if !typeMatches(entity.Type, cand.types) {
			continue
		}
		score := r.scoreEntity(cand, entity)
		switch {
		case score > bestScore:
			best, bestScore = entity, score
		case score == bestScore && best != nil && score > 0:
			preferred, err := r.breakTie(ctx, best, entity)
			if err != nil {
				return nil, 0, err
			}
			best = preferred
		}
	}
	return best, bestScore, nil
}

// scoreEntity compares a hint against an entity's identifier and name,
// taking the better of the two.
func (r *Resolver) scoreEntity(cand hintCandidate, entity *model.Entity) float64 {
	var hintNorm, idNorm, nameNorm string
	if cand.compact {
		hintNorm = normalizeCompact(cand.value)
		idNorm = normalizeCompact(entity.Identifier)
		nameNorm = normalizeCompact(entity.Name)
	} else {
		hintNorm = normalizeName(cand.value)
		idNorm = normalizeName(entity.Identifier)
		nameNorm = normalizeName(entity.Name)
	}

	score := similarity(hintNorm, idNorm)
	if s := similarity(hintNorm, nameNorm); s > score {
		score = s
	}
	return score
}

// breakTie prefers the entity with more linked documents, then the earlier
// created one. Stability over novelty.
func (r *Resolver) breakTie(ctx context.Context, a, b *model.Entity) (*model.Entity, error) {
	aCount, err := r.store.CountLinkedDocuments(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count linked documents: %w", err)
	}
	bCount, err := r.store.CountLinkedDocuments(ctx, b.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count linked documents: %w", err)
	}
	if bCount > aCount {
		return b, nil
	}
	if bCount == aCount && b.CreatedAt.Before(a.CreatedAt) {
		return b, nil
	}
	return a, nil
}

func typeMatches(t model.EntityType, allowed []model.EntityType) bool {
	for _, a := range allowed {
		if t == a {
			return true
		}
	}
	return false
}
