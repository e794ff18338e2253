// Package assign reconciles the many-to-many relation between window
// contexts and the commands or dictionary entries assigned to them. It is
// the only client-side path allowed to mutate a context's id arrays.
package assign

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"go.sotto.dev/sotto/internal/types"
)

// Relation selects which id array of a window context is being reconciled.
type Relation int

const (
	RelationCommands Relation = iota
	RelationDictionary
)

func (r Relation) String() string {
	if r == RelationDictionary {
		return "dictionary entries"
	}
	return "commands"
}

func relationIDs(wc types.WindowContext, r Relation) []string {
	if r == RelationDictionary {
		return wc.DictionaryEntryIDs
	}
	return wc.CommandIDs
}

func setRelationIDs(wc *types.WindowContext, r Relation, ids []string) {
	if r == RelationDictionary {
		wc.DictionaryEntryIDs = ids
		return
	}
	wc.CommandIDs = ids
}

// Index maps each entity id to the ids of the contexts whose relation array
// references it. It is recomputed wholesale from the contexts list on every
// use; patching it incrementally is how an index drifts from its source.
func Index(contexts []types.WindowContext, r Relation) map[string][]string {
	idx := make(map[string][]string)
	for _, wc := range contexts {
		for _, id := range relationIDs(wc, r) {
			idx[id] = append(idx[id], wc.ID)
		}
	}
	return idx
}

// ContextStore is the slice of the host surface the synchronizer needs.
type ContextStore interface {
	ListWindowContexts(ctx context.Context) ([]types.WindowContext, error)
	UpdateWindowContext(ctx context.Context, wc types.WindowContext) error
}

// Synchronizer applies "this entity belongs to exactly these contexts"
// against the host, one context update at a time.
type Synchronizer struct {
	store ContextStore
}

// New creates a synchronizer over a host connection (or a fake).
func New(store ContextStore) *Synchronizer {
	return &Synchronizer{store: store}
}

// Sync diffs entityID's current context memberships against desired and
// issues one update per added or removed context, preserving every other
// field. Updates run sequentially; earlier successes are not rolled back
// when a later update fails, so the returned error summarizes the partial
// state rather than pretending the operation was atomic.
func (s *Synchronizer) Sync(ctx context.Context, r Relation, entityID string, desired []string) error {
	contexts, err := s.store.ListWindowContexts(ctx)
	if err != nil {
		return fmt.Errorf("list window contexts: %w", err)
	}

	byID := make(map[string]types.WindowContext, len(contexts))
	for _, wc := range contexts {
		byID[wc.ID] = wc
	}

	previous := Index(contexts, r)[entityID]

	var toAdd, toRemove []string
	for _, id := range desired {
		if !slices.Contains(previous, id) {
			toAdd = append(toAdd, id)
		}
	}
	for _, id := range previous {
		if !slices.Contains(desired, id) {
			toRemove = append(toRemove, id)
		}
	}

	var failures []error
	applied := 0

	for _, ctxID := range toAdd {
		wc, ok := byID[ctxID]
		if !ok {
			failures = append(failures, fmt.Errorf("context %s not found", ctxID))
			continue
		}
		setRelationIDs(&wc, r, append(slices.Clone(relationIDs(wc, r)), entityID))
		if err := s.store.UpdateWindowContext(ctx, wc); err != nil {
			failures = append(failures, fmt.Errorf("add to context %s: %w", ctxID, err))
			continue
		}
		applied++
	}

	for _, ctxID := range toRemove {
		wc, ok := byID[ctxID]
		if !ok {
			failures = append(failures, fmt.Errorf("context %s not found", ctxID))
			continue
		}
		ids := slices.DeleteFunc(slices.Clone(relationIDs(wc, r)), func(id string) bool {
			return id == entityID
		})
		setRelationIDs(&wc, r, ids)
		if err := s.store.UpdateWindowContext(ctx, wc); err != nil {
			failures = append(failures, fmt.Errorf("remove from context %s: %w", ctxID, err))
			continue
		}
		applied++
	}

	if len(failures) > 0 {
		slog.Error("context assignment partially applied",
			"relation", r.String(), "entity", entityID,
			"applied", applied, "failed", len(failures))
		return fmt.Errorf("synchronize %s assignments (%d of %d updates applied): %w",
			r.String(), applied, applied+len(failures), errors.Join(failures...))
	}
	return nil
}

// RemoveFromAll detaches entityID from every context referencing it. It
// runs before a command or dictionary entry is deleted so no context is
// left holding a dangling id.
func (s *Synchronizer) RemoveFromAll(ctx context.Context, r Relation, entityID string) error {
	return s.Sync(ctx, r, entityID, nil)
}
