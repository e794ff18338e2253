package app

import (
	"context"
	"encoding/json"
	"slices"
	"testing"

	"go.sotto.dev/sotto/assign"
	"go.sotto.dev/sotto/config"
	"go.sotto.dev/sotto/host"
	"go.sotto.dev/sotto/internal/types"
	"go.sotto.dev/sotto/query"
	"go.sotto.dev/sotto/store"
)

// fakeCaller answers host methods from a handler table and records the
// order of every call.
type fakeCaller struct {
	calls    []string
	handlers map[string]func(params json.RawMessage) (any, error)
}

func (f *fakeCaller) Call(_ context.Context, method string, params any, result any) error {
	f.calls = append(f.calls, method)

	h, ok := f.handlers[method]
	if !ok {
		return nil
	}

	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return err
		}
		raw = data
	}

	v, err := h(raw)
	if err != nil {
		return err
	}
	if result != nil && v != nil {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, result)
	}
	return nil
}

func (f *fakeCaller) countCalls(method string) int {
	n := 0
	for _, m := range f.calls {
		if m == method {
			n++
		}
	}
	return n
}

func newTestService(caller *fakeCaller) *Service {
	if caller.handlers == nil {
		caller.handlers = make(map[string]func(json.RawMessage) (any, error))
	}
	s := &Service{
		cfg:     &config.Config{ModelType: "tdt"},
		api:     host.NewAPI(caller),
		store:   store.New(),
		queries: query.New(nil),
	}
	s.sync = assign.New(s.api)
	return s
}

func TestCommandMutationsInvalidateExplicitly(t *testing.T) {
	caller := &fakeCaller{handlers: map[string]func(json.RawMessage) (any, error){
		host.MethodListCommands: func(json.RawMessage) (any, error) {
			return []types.Command{{ID: "c1", Trigger: "open"}}, nil
		},
	}}
	s := newTestService(caller)
	defer s.store.Close()

	if _, err := s.GetCommands(); err != nil {
		t.Fatalf("get commands: %v", err)
	}
	if _, err := s.GetCommands(); err != nil {
		t.Fatalf("get commands: %v", err)
	}
	if n := caller.countCalls(host.MethodListCommands); n != 1 {
		t.Fatalf("list_commands calls = %d, want 1 (cache hit)", n)
	}

	if err := s.AddCommand(types.Command{Trigger: "close"}); err != nil {
		t.Fatalf("add command: %v", err)
	}

	// Commands have no updated event, so the mutation invalidated the key
	// and the next read refetches.
	if _, err := s.GetCommands(); err != nil {
		t.Fatalf("get commands: %v", err)
	}
	if n := caller.countCalls(host.MethodListCommands); n != 2 {
		t.Errorf("list_commands calls = %d, want 2 after explicit invalidation", n)
	}
}

func TestDictionaryMutationsRelyOnEventCoverage(t *testing.T) {
	caller := &fakeCaller{handlers: map[string]func(json.RawMessage) (any, error){
		host.MethodListDictionaryEntries: func(json.RawMessage) (any, error) {
			return []types.DictionaryEntry{{ID: "d1", Trigger: "brb"}}, nil
		},
	}}
	s := newTestService(caller)
	defer s.store.Close()

	if _, err := s.GetDictionaryEntries(); err != nil {
		t.Fatalf("get entries: %v", err)
	}
	if err := s.AddDictionaryEntry(types.DictionaryEntry{Trigger: "sig"}); err != nil {
		t.Fatalf("add entry: %v", err)
	}
	if _, err := s.GetDictionaryEntries(); err != nil {
		t.Fatalf("get entries: %v", err)
	}

	// dictionary_updated will invalidate through the bridge; the mutation
	// path must not force a duplicate round-trip.
	if n := caller.countCalls(host.MethodListDictionaryEntries); n != 1 {
		t.Errorf("list_dictionary_entries calls = %d, want 1", n)
	}
}

func TestRemoveCommandCascadesContextCleanup(t *testing.T) {
	var updated []types.WindowContext
	caller := &fakeCaller{handlers: map[string]func(json.RawMessage) (any, error){
		host.MethodListWindowContexts: func(json.RawMessage) (any, error) {
			return []types.WindowContext{
				{ID: "A", CommandIDs: []string{"victim", "keep"}},
				{ID: "B", CommandIDs: []string{"victim"}},
				{ID: "C", CommandIDs: []string{"keep"}},
			}, nil
		},
	}}
	caller.handlers[host.MethodUpdateWindowContext] = func(params json.RawMessage) (any, error) {
		var wc types.WindowContext
		if err := json.Unmarshal(params, &wc); err != nil {
			return nil, err
		}
		updated = append(updated, wc)
		return nil, nil
	}
	s := newTestService(caller)
	defer s.store.Close()

	if err := s.RemoveCommand("victim"); err != nil {
		t.Fatalf("remove command: %v", err)
	}

	if len(updated) != 2 {
		t.Fatalf("context updates = %d, want cleanup of A and B only", len(updated))
	}
	for _, wc := range updated {
		if slices.Contains(wc.CommandIDs, "victim") {
			t.Errorf("context %s still references the deleted command", wc.ID)
		}
	}

	// The delete happens after the detach pass.
	callOrder := caller.calls
	removeIdx := slices.Index(callOrder, host.MethodRemoveCommand)
	lastUpdateIdx := -1
	for i, m := range callOrder {
		if m == host.MethodUpdateWindowContext {
			lastUpdateIdx = i
		}
	}
	if removeIdx < lastUpdateIdx {
		t.Errorf("remove_command issued before context cleanup finished: %v", callOrder)
	}
}

func TestDeleteDictionaryEntryCascades(t *testing.T) {
	caller := &fakeCaller{handlers: map[string]func(json.RawMessage) (any, error){
		host.MethodListWindowContexts: func(json.RawMessage) (any, error) {
			return []types.WindowContext{
				{ID: "A", DictionaryEntryIDs: []string{"d1"}},
			}, nil
		},
	}}
	s := newTestService(caller)
	defer s.store.Close()

	if err := s.DeleteDictionaryEntry("d1"); err != nil {
		t.Fatalf("delete entry: %v", err)
	}
	if caller.countCalls(host.MethodUpdateWindowContext) != 1 {
		t.Error("referencing context not cleaned up before delete")
	}
	if caller.countCalls(host.MethodDeleteDictionaryEntry) != 1 {
		t.Error("entry not deleted")
	}
}

func TestGetModelStatusOverlaysAvailability(t *testing.T) {
	caller := &fakeCaller{handlers: map[string]func(json.RawMessage) (any, error){
		host.MethodCheckModelStatus: func(json.RawMessage) (any, error) {
			return map[string]any{"isAvailable": true}, nil
		},
	}}
	s := newTestService(caller)
	defer s.store.Close()

	m, err := s.GetModelStatus("tdt")
	if err != nil {
		t.Fatalf("get model status: %v", err)
	}
	if !m.IsAvailable || m.DownloadState != types.DownloadCompleted || m.Progress != 100 {
		t.Errorf("available model reads %+v, want completed/100", m)
	}
}

func TestDownloadModelMarksDownloading(t *testing.T) {
	caller := &fakeCaller{handlers: map[string]func(json.RawMessage) (any, error){
		host.MethodCheckModelStatus: func(json.RawMessage) (any, error) {
			return map[string]any{"isAvailable": false}, nil
		},
	}}
	s := newTestService(caller)
	defer s.store.Close()

	if err := s.DownloadModel("tdt"); err != nil {
		t.Fatalf("download model: %v", err)
	}
	m, ok := s.store.Model("tdt")
	if !ok || m.DownloadState != types.DownloadDownloading {
		t.Errorf("model not marked downloading: %+v", m)
	}
	if caller.countCalls(host.MethodDownloadModel) != 1 {
		t.Error("download_model not issued")
	}
}

func TestToggleRecordingFollowsSliceState(t *testing.T) {
	caller := &fakeCaller{}
	s := newTestService(caller)
	defer s.store.Close()

	if err := s.ToggleRecording(); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if caller.countCalls(host.MethodStartRecording) != 1 {
		t.Fatal("idle toggle must start recording")
	}

	// The recording_started event lands (via the bridge in production).
	s.store.RecordingStarted()

	if err := s.ToggleRecording(); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if caller.countCalls(host.MethodStopRecording) != 1 {
		t.Error("recording toggle must stop recording")
	}
}

func TestGetStatusDerivesFreshEachCall(t *testing.T) {
	s := newTestService(&fakeCaller{})
	defer s.store.Close()

	if got := s.GetStatus().Status; got != types.StatusIdle {
		t.Fatalf("status = %q, want idle", got)
	}

	s.store.RecordingStarted()
	if got := s.GetStatus().Status; got != types.StatusRecording {
		t.Errorf("status = %q, want recording", got)
	}

	s.store.RecordingError("mic on fire")
	if got := s.GetStatus().Error; got != "mic on fire" {
		t.Errorf("error = %q", got)
	}
}

func TestOperationsFailWithoutHost(t *testing.T) {
	s := &Service{
		cfg:     &config.Config{},
		store:   store.New(),
		queries: query.New(nil),
	}
	defer s.store.Close()

	if err := s.StartRecording(); err == nil {
		t.Error("start recording succeeded without a host")
	}
	if _, err := s.GetCommands(); err == nil {
		t.Error("get commands succeeded without a host")
	}
}
