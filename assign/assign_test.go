package assign

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"go.sotto.dev/sotto/internal/types"
)

// fakeContextStore records updates and can fail specific context ids.
type fakeContextStore struct {
	contexts []types.WindowContext
	updates  []types.WindowContext
	failIDs  map[string]error
	listErr  error
}

func (f *fakeContextStore) ListWindowContexts(context.Context) ([]types.WindowContext, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.contexts, nil
}

func (f *fakeContextStore) UpdateWindowContext(_ context.Context, wc types.WindowContext) error {
	if err := f.failIDs[wc.ID]; err != nil {
		return err
	}
	f.updates = append(f.updates, wc)
	return nil
}

func ctxWithCommands(id string, commandIDs ...string) types.WindowContext {
	return types.WindowContext{
		ID:          id,
		Name:        "ctx " + id,
		CommandMode: types.OverrideMerge,
		CommandIDs:  commandIDs,
		Priority:    3,
		Enabled:     true,
	}
}

func TestSyncMinimalDiff(t *testing.T) {
	// Entity e is in {A, C}; desired is {C, D}. Exactly one add (D), one
	// remove (A), and no update may touch C.
	store := &fakeContextStore{contexts: []types.WindowContext{
		ctxWithCommands("A", "e", "other"),
		ctxWithCommands("B"),
		ctxWithCommands("C", "e"),
		ctxWithCommands("D", "other"),
	}}

	if err := New(store).Sync(context.Background(), RelationCommands, "e", []string{"C", "D"}); err != nil {
		t.Fatalf("sync: %v", err)
	}

	if len(store.updates) != 2 {
		t.Fatalf("updates = %d, want 2: %+v", len(store.updates), store.updates)
	}
	for _, u := range store.updates {
		switch u.ID {
		case "D":
			if !slices.Contains(u.CommandIDs, "e") {
				t.Errorf("D not extended with e: %v", u.CommandIDs)
			}
			if !slices.Contains(u.CommandIDs, "other") {
				t.Errorf("D lost an unrelated id: %v", u.CommandIDs)
			}
		case "A":
			if slices.Contains(u.CommandIDs, "e") {
				t.Errorf("e not removed from A: %v", u.CommandIDs)
			}
			if !slices.Contains(u.CommandIDs, "other") {
				t.Errorf("A lost an unrelated id: %v", u.CommandIDs)
			}
		default:
			t.Errorf("update touched context %s", u.ID)
		}
	}
}

func TestSyncPreservesOtherFields(t *testing.T) {
	wc := ctxWithCommands("A")
	wc.DictionaryEntryIDs = []string{"d1"}
	wc.Matcher = types.WindowMatcher{AppName: "Terminal", BundleID: "com.apple.Terminal"}
	store := &fakeContextStore{contexts: []types.WindowContext{wc}}

	if err := New(store).Sync(context.Background(), RelationCommands, "e", []string{"A"}); err != nil {
		t.Fatalf("sync: %v", err)
	}

	u := store.updates[0]
	if u.Matcher.AppName != "Terminal" || u.Priority != 3 || !u.Enabled {
		t.Errorf("unrelated fields changed: %+v", u)
	}
	if len(u.DictionaryEntryIDs) != 1 || u.DictionaryEntryIDs[0] != "d1" {
		t.Errorf("dictionary ids changed by a command sync: %v", u.DictionaryEntryIDs)
	}
}

func TestSyncEntityWithNoPreviousContexts(t *testing.T) {
	store := &fakeContextStore{contexts: []types.WindowContext{
		ctxWithCommands("A"),
		ctxWithCommands("B"),
	}}

	if err := New(store).Sync(context.Background(), RelationCommands, "e", []string{"A", "B"}); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(store.updates) != 2 {
		t.Fatalf("updates = %d, want adds to both contexts", len(store.updates))
	}
}

func TestSyncEmptyDesiredUnscopesEntity(t *testing.T) {
	store := &fakeContextStore{contexts: []types.WindowContext{
		ctxWithCommands("A", "e"),
		ctxWithCommands("B", "e", "x"),
	}}

	if err := New(store).RemoveFromAll(context.Background(), RelationCommands, "e"); err != nil {
		t.Fatalf("remove from all: %v", err)
	}

	if len(store.updates) != 2 {
		t.Fatalf("updates = %d, want 2 removals", len(store.updates))
	}
	for _, u := range store.updates {
		if slices.Contains(u.CommandIDs, "e") {
			t.Errorf("e still present in %s: %v", u.ID, u.CommandIDs)
		}
	}
}

func TestSyncPartialFailureKeepsEarlierUpdates(t *testing.T) {
	store := &fakeContextStore{
		contexts: []types.WindowContext{
			ctxWithCommands("A"),
			ctxWithCommands("B"),
			ctxWithCommands("C", "e"),
		},
		failIDs: map[string]error{"B": errors.New("host rejected update")},
	}

	err := New(store).Sync(context.Background(), RelationCommands, "e", []string{"A", "B"})
	if err == nil {
		t.Fatal("expected partial failure error")
	}
	if !strings.Contains(err.Error(), "2 of 3") {
		t.Errorf("error does not summarize partial state: %v", err)
	}

	// A's add and C's remove went through and stay applied.
	if len(store.updates) != 2 {
		t.Fatalf("updates = %d, want the two successful ones", len(store.updates))
	}
	if store.updates[0].ID != "A" || store.updates[1].ID != "C" {
		t.Errorf("unexpected surviving updates: %+v", store.updates)
	}
}

func TestSyncDictionaryRelation(t *testing.T) {
	wc := ctxWithCommands("A", "cmd1")
	store := &fakeContextStore{contexts: []types.WindowContext{wc}}

	if err := New(store).Sync(context.Background(), RelationDictionary, "d1", []string{"A"}); err != nil {
		t.Fatalf("sync: %v", err)
	}

	u := store.updates[0]
	if !slices.Contains(u.DictionaryEntryIDs, "d1") {
		t.Errorf("dictionary id not added: %v", u.DictionaryEntryIDs)
	}
	if len(u.CommandIDs) != 1 || u.CommandIDs[0] != "cmd1" {
		t.Errorf("command ids changed by a dictionary sync: %v", u.CommandIDs)
	}
}

func TestSyncListFailure(t *testing.T) {
	store := &fakeContextStore{listErr: errors.New("host down")}
	if err := New(store).Sync(context.Background(), RelationCommands, "e", nil); err == nil {
		t.Fatal("expected error when the contexts list is unavailable")
	}
}

func TestIndexRebuiltWholesale(t *testing.T) {
	contexts := []types.WindowContext{
		ctxWithCommands("A", "e1", "e2"),
		ctxWithCommands("B", "e2"),
	}

	idx := Index(contexts, RelationCommands)
	if got := idx["e1"]; len(got) != 1 || got[0] != "A" {
		t.Errorf("e1 index = %v", got)
	}
	if got := idx["e2"]; len(got) != 2 {
		t.Errorf("e2 index = %v", got)
	}

	// A changed list yields a fresh index with no memory of the old one.
	idx = Index(contexts[:1], RelationCommands)
	if got := idx["e2"]; len(got) != 1 || got[0] != "A" {
		t.Errorf("recomputed e2 index = %v", got)
	}
}
