// Package bridge subscribes to the host event stream for the lifetime of
// the application and translates each named event into either a state-slice
// write, a transient-store write, or a query-cache invalidation. It is the
// single writer for event-covered resources: mutation responses never touch
// what the bridge owns, so a late response can't overwrite a newer event.
package bridge

import (
	"context"
	"encoding/json"
	"log/slog"

	"go.sotto.dev/sotto/host"
	"go.sotto.dev/sotto/internal/types"
	"go.sotto.dev/sotto/query"
	"go.sotto.dev/sotto/store"
)

// Invalidator is the slice of the query cache the bridge needs.
type Invalidator interface {
	Invalidate(query.Key)
}

// Bridge dispatches host events. One Run loop services the stream, which
// preserves the host's per-connection event order.
type Bridge struct {
	store *store.Store
	cache Invalidator
}

// New creates a bridge writing into the given store and cache.
func New(s *store.Store, c Invalidator) *Bridge {
	return &Bridge{store: s, cache: c}
}

// Run consumes events until the stream closes or ctx is cancelled. It is
// meant to be started once at app startup and live until teardown.
func (b *Bridge) Run(ctx context.Context, events <-chan host.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				slog.Info("host event stream closed")
				return
			}
			b.Handle(ev)
		}
	}
}

// Handle dispatches one event. Malformed payloads are logged and dropped;
// nothing escapes the handler boundary.
func (b *Bridge) Handle(ev host.Event) {
	switch ev.Event {
	case host.EventRecordingStarted:
		b.store.RecordingStarted()
		b.cache.Invalidate(query.KeyRecordingState)

	case host.EventRecordingStopped:
		var p struct {
			Metadata *types.RecordingMetadata `json:"metadata"`
		}
		if !decode(ev, &p) {
			return
		}
		b.store.RecordingStopped(p.Metadata)
		// The recordings list has no dedicated updated event; the stop
		// event doubles as its invalidation trigger.
		b.cache.Invalidate(query.KeyRecordings)
		b.cache.Invalidate(query.KeyRecordingState)

	case host.EventRecordingCancelled:
		var p struct {
			Reason string `json:"reason"`
		}
		if !decode(ev, &p) {
			return
		}
		b.store.RecordingCancelled(p.Reason)
		b.cache.Invalidate(query.KeyRecordingState)

	case host.EventRecordingError:
		var p struct {
			Message string `json:"message"`
		}
		if !decode(ev, &p) {
			return
		}
		b.store.RecordingError(p.Message)

	case host.EventListeningStarted:
		b.store.ListeningStarted()
		b.cache.Invalidate(query.KeyListeningStatus)

	case host.EventListeningStopped:
		b.store.ListeningStopped()
		b.cache.Invalidate(query.KeyListeningStatus)

	case host.EventListeningUnavailable:
		var p struct {
			Reason string `json:"reason"`
		}
		if !decode(ev, &p) {
			return
		}
		b.store.ListeningUnavailable(p.Reason)
		b.cache.Invalidate(query.KeyListeningStatus)

	case host.EventWakeWordDetected:
		b.store.WakeWordDetected()

	case host.EventTranscriptionStarted:
		b.store.TranscriptionStarted()

	case host.EventTranscriptionCompleted:
		var p struct {
			Text       string `json:"text"`
			DurationMs int64  `json:"durationMs"`
		}
		if !decode(ev, &p) {
			return
		}
		b.store.TranscriptionCompleted(p.Text, p.DurationMs)

	case host.EventTranscriptionError:
		var p struct {
			Message string `json:"message"`
		}
		if !decode(ev, &p) {
			return
		}
		b.store.TranscriptionError(p.Message)

	case host.EventModelDownloadCompleted:
		var p struct {
			ModelType string `json:"modelType"`
		}
		if !decode(ev, &p) {
			return
		}
		if p.ModelType == "" {
			drop(ev, "missing modelType")
			return
		}
		b.store.ModelDownloadCompleted(p.ModelType)
		b.cache.Invalidate(query.ModelKey(p.ModelType))

	case host.EventModelFileDownloadProgress:
		var p struct {
			ModelType string `json:"modelType"`
			Percent   int    `json:"percent"`
		}
		if !decode(ev, &p) {
			return
		}
		if p.ModelType == "" {
			drop(ev, "missing modelType")
			return
		}
		b.store.ModelDownloadProgress(p.ModelType, p.Percent)

	case host.EventAudioLevel:
		var p struct {
			DeviceName string  `json:"deviceName"`
			Level      float64 `json:"level"`
		}
		if !decode(ev, &p) {
			return
		}
		b.store.SetAudioLevel(p.DeviceName, p.Level)

	case host.EventActiveWindowChanged:
		var p types.ActiveWindow
		if !decode(ev, &p) {
			return
		}
		b.store.SetActiveWindow(p)

	case host.EventDictionaryUpdated:
		// List-shaped resources are refetched wholesale, never patched.
		b.cache.Invalidate(query.KeyDictionary)

	case host.EventWindowContextsUpdated:
		b.cache.Invalidate(query.KeyWindowContexts)

	default:
		slog.Warn("unknown host event", "event", ev.Event)
	}
}

// decode unmarshals an event payload, logging and rejecting malformed data.
func decode(ev host.Event, v any) bool {
	if len(ev.Payload) == 0 {
		drop(ev, "empty payload")
		return false
	}
	if err := json.Unmarshal(ev.Payload, v); err != nil {
		slog.Warn("drop malformed event payload", "event", ev.Event, "error", err)
		return false
	}
	return true
}

func drop(ev host.Event, reason string) {
	slog.Warn("drop event", "event", ev.Event, "reason", reason)
}
