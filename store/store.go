// Package store holds the process-wide UI state: the per-feature state
// slices written by the event bridge and the transient, push-only signals
// (wake-word pulse, audio level, download progress) that never enter the
// request/response cache.
package store

import (
	"sync"
	"time"

	"go.sotto.dev/sotto/internal/types"
)

// WakeWordDecay is how long the wake-word pulse stays visible after a
// detection with no further events. Each new detection re-arms the window.
const WakeWordDecay = 500 * time.Millisecond

// Store is an explicit singleton: constructed once at startup, passed to
// consumers, and closed on teardown. Only the event bridge (and, for model
// availability, the query layer) writes to it.
type Store struct {
	mu sync.Mutex

	recording     types.RecordingState
	listening     types.ListeningState
	transcription types.TranscriptionState
	models        map[string]types.ModelStatus
	activeWindow  types.ActiveWindow
	audioLevels   map[string]float64

	wakeDecay time.Duration
	wakeTimer *time.Timer

	nextSub   int
	listeners map[int]func()
	closed    bool
}

// New creates an empty store with the default wake-word decay window.
func New() *Store {
	return &Store{
		wakeDecay:   WakeWordDecay,
		models:      make(map[string]types.ModelStatus),
		audioLevels: make(map[string]float64),
		listeners:   make(map[int]func()),
	}
}

// Close stops pending decay timers and drops all listeners. Further writes
// are ignored so late timer fire or event delivery cannot touch a torn-down
// consumer.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.wakeTimer != nil {
		s.wakeTimer.Stop()
		s.wakeTimer = nil
	}
	s.listeners = make(map[int]func())
}

// Subscribe registers fn to run after every store change and returns the
// release function. The caller must invoke the release on teardown.
func (s *Store) Subscribe(fn func()) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// notifyLocked snapshots the listener set under the lock, then runs them
// outside it so a listener may read the store without deadlocking.
func (s *Store) notifyLocked() []func() {
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	return fns
}

func (s *Store) update(mutate func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	mutate()
	fns := s.notifyLocked()
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Snapshots
// ─────────────────────────────────────────────────────────────────────────────

// Recording returns a copy of the recording slice.
func (s *Store) Recording() types.RecordingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording
}

// Listening returns a copy of the listening slice.
func (s *Store) Listening() types.ListeningState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listening
}

// Transcription returns a copy of the transcription slice.
func (s *Store) Transcription() types.TranscriptionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcription
}

// Model returns the tracked status for a model type. The second return is
// false when the model is not tracked.
func (s *Store) Model(modelType string) (types.ModelStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.models[modelType]
	return m, ok
}

// ActiveWindow returns the last active-window display record.
func (s *Store) ActiveWindow() types.ActiveWindow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeWindow
}

// AudioLevel returns the last reported level for a device, 0 if none.
func (s *Store) AudioLevel(deviceName string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audioLevels[deviceName]
}

// Snapshot returns all three feature slices from one lock acquisition, so a
// derived status never mixes slices from different instants.
func (s *Store) Snapshot() (types.RecordingState, types.TranscriptionState, types.ListeningState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording, s.transcription, s.listening
}

// ─────────────────────────────────────────────────────────────────────────────
// Recording slice (event bridge only)
// ─────────────────────────────────────────────────────────────────────────────

// RecordingStarted resets the cancel/error fields from any previous recording
// and marks recording active.
func (s *Store) RecordingStarted() {
	s.update(func() {
		s.recording.IsRecording = true
		s.recording.IsProcessing = false
		s.recording.WasCancelled = false
		s.recording.CancelReason = ""
		s.recording.Error = ""
	})
}

// RecordingStopped stores the finished recording's metadata. The host
// transcribes the capture next, so the slice reads as processing until a
// transcription terminal event arrives.
func (s *Store) RecordingStopped(meta *types.RecordingMetadata) {
	s.update(func() {
		s.recording.IsRecording = false
		s.recording.IsProcessing = true
		s.recording.LastRecording = meta
	})
}

// RecordingCancelled marks the recording cancelled with the host's reason.
func (s *Store) RecordingCancelled(reason string) {
	s.update(func() {
		s.recording.IsRecording = false
		s.recording.IsProcessing = false
		s.recording.WasCancelled = true
		s.recording.CancelReason = reason
	})
}

// RecordingError records a recording fault. It does not change IsRecording;
// a stop or cancel event carries that transition.
func (s *Store) RecordingError(message string) {
	s.update(func() {
		s.recording.Error = message
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Listening slice (event bridge only)
// ─────────────────────────────────────────────────────────────────────────────

// ListeningStarted marks listening active. It also clears the error and
// forces the mic available, since a successful start is a recovery signal.
func (s *Store) ListeningStarted() {
	s.update(func() {
		s.listening.IsListening = true
		s.listening.IsMicAvailable = true
		s.listening.Error = ""
	})
}

// ListeningStopped marks listening inactive.
func (s *Store) ListeningStopped() {
	s.update(func() {
		s.listening.IsListening = false
	})
}

// ListeningUnavailable records a mic failure reported by the host.
func (s *Store) ListeningUnavailable(reason string) {
	s.update(func() {
		s.listening.IsMicAvailable = false
		s.listening.IsListening = false
		s.listening.Error = reason
	})
}

// WakeWordDetected sets the wake-word pulse and (re-)arms the decay timer.
// Repeated detections restart the window instead of stacking timers.
func (s *Store) WakeWordDetected() {
	s.update(func() {
		s.listening.IsWakeWordDetected = true
		if s.wakeTimer != nil {
			s.wakeTimer.Stop()
		}
		s.wakeTimer = time.AfterFunc(s.wakeDecay, s.clearWakeWord)
	})
}

func (s *Store) clearWakeWord() {
	s.update(func() {
		s.listening.IsWakeWordDetected = false
		s.wakeTimer = nil
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Transcription slice (event bridge only)
// ─────────────────────────────────────────────────────────────────────────────

// TranscriptionStarted clears stale text, duration and error before marking
// a transcription in flight.
func (s *Store) TranscriptionStarted() {
	s.update(func() {
		s.transcription = types.TranscriptionState{IsTranscribing: true}
	})
}

// TranscriptionCompleted records the transcription result and ends the
// post-recording processing phase.
func (s *Store) TranscriptionCompleted(text string, durationMs int64) {
	s.update(func() {
		s.transcription.IsTranscribing = false
		s.transcription.TranscribedText = text
		s.transcription.DurationMs = durationMs
		s.recording.IsProcessing = false
	})
}

// TranscriptionError records a transcription fault and ends the
// post-recording processing phase.
func (s *Store) TranscriptionError(message string) {
	s.update(func() {
		s.transcription.IsTranscribing = false
		s.transcription.Error = message
		s.recording.IsProcessing = false
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Model slices
// ─────────────────────────────────────────────────────────────────────────────

// TrackModel seeds (or refreshes) a model slice from a host availability
// check. Availability wins: an available model reads completed at 100%,
// unless a download is in flight or a download attempt already recorded an
// error — those resolve through their own events.
func (s *Store) TrackModel(modelType string, available bool) {
	s.update(func() {
		m := s.models[modelType]
		m.ModelType = modelType
		m.IsAvailable = available
		if available && m.DownloadState != types.DownloadError && m.DownloadState != types.DownloadDownloading {
			m.DownloadState = types.DownloadCompleted
			m.Progress = 100
		} else if !available && m.DownloadState == "" {
			m.DownloadState = types.DownloadIdle
		}
		s.models[modelType] = m
	})
}

// ModelDownloadStarted marks a tracked model as downloading.
func (s *Store) ModelDownloadStarted(modelType string) {
	s.update(func() {
		m, ok := s.models[modelType]
		if !ok {
			return
		}
		m.DownloadState = types.DownloadDownloading
		m.Progress = 0
		m.Error = ""
		s.models[modelType] = m
	})
}

// ModelDownloadProgress records push-only progress. Progress for a model
// that is not tracked is dropped.
func (s *Store) ModelDownloadProgress(modelType string, percent int) {
	s.update(func() {
		m, ok := s.models[modelType]
		if !ok {
			return
		}
		if percent < 0 {
			percent = 0
		}
		if percent > 100 {
			percent = 100
		}
		m.DownloadState = types.DownloadDownloading
		m.Progress = percent
		s.models[modelType] = m
	})
}

// ModelDownloadCompleted marks the model available regardless of the last
// reported percentage.
func (s *Store) ModelDownloadCompleted(modelType string) {
	s.update(func() {
		m := s.models[modelType]
		m.ModelType = modelType
		m.IsAvailable = true
		m.DownloadState = types.DownloadCompleted
		m.Progress = 100
		m.Error = ""
		s.models[modelType] = m
	})
}

// ModelDownloadError records a failed download for a tracked model.
func (s *Store) ModelDownloadError(modelType, message string) {
	s.update(func() {
		m, ok := s.models[modelType]
		if !ok {
			return
		}
		m.DownloadState = types.DownloadError
		m.Error = message
		s.models[modelType] = m
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Transient display signals
// ─────────────────────────────────────────────────────────────────────────────

// SetActiveWindow stores the last active-window event for display.
func (s *Store) SetActiveWindow(w types.ActiveWindow) {
	s.update(func() {
		s.activeWindow = w
	})
}

// SetAudioLevel stores the last monitor level for a device.
func (s *Store) SetAudioLevel(deviceName string, level float64) {
	s.update(func() {
		s.audioLevels[deviceName] = level
	})
}
