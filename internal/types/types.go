// Package types provides shared type definitions for the application.
package types

// FeatureStatus is the single mutually-exclusive UI status derived from the
// per-feature state slices. It is recomputed on demand and never persisted.
type FeatureStatus string

const (
	StatusIdle       FeatureStatus = "idle"
	StatusListening  FeatureStatus = "listening"
	StatusRecording  FeatureStatus = "recording"
	StatusProcessing FeatureStatus = "processing"
)

// ─────────────────────────────────────────────────────────────────────────────
// Feature State Slices
// ─────────────────────────────────────────────────────────────────────────────

// RecordingMetadata describes a finished recording as reported by the host.
type RecordingMetadata struct {
	ID         string `json:"id"`
	DurationMs int64  `json:"durationMs"`
	DeviceName string `json:"deviceName,omitempty"`
	CreatedAt  int64  `json:"createdAt"` // Unix milliseconds
}

// RecordingState tracks the recording feature slice. It is mutated only by
// the event bridge handlers for the recording_* events.
type RecordingState struct {
	IsRecording   bool               `json:"isRecording"`
	IsProcessing  bool               `json:"isProcessing"`
	LastRecording *RecordingMetadata `json:"lastRecording"`
	WasCancelled  bool               `json:"wasCancelled"`
	CancelReason  string             `json:"cancelReason,omitempty"`
	Error         string             `json:"error,omitempty"`
}

// ListeningState tracks the wake-word listening feature slice.
// IsWakeWordDetected is transient: it is armed by a wake_word_detected event
// and cleared by a timer owned by the store, never by a cache value.
type ListeningState struct {
	IsListening        bool   `json:"isListening"`
	IsMicAvailable     bool   `json:"isMicAvailable"`
	IsWakeWordDetected bool   `json:"isWakeWordDetected"`
	Error              string `json:"error,omitempty"`
}

// TranscriptionState tracks the transcription feature slice. A new
// transcription_started event clears text, duration and error before setting
// IsTranscribing, so completed values are never stale.
type TranscriptionState struct {
	IsTranscribing  bool   `json:"isTranscribing"`
	TranscribedText string `json:"transcribedText,omitempty"`
	DurationMs      int64  `json:"durationMs,omitempty"`
	Error           string `json:"error,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Model Download
// ─────────────────────────────────────────────────────────────────────────────

// DownloadState describes the lifecycle of a model download.
type DownloadState string

const (
	DownloadIdle        DownloadState = "idle"
	DownloadDownloading DownloadState = "downloading"
	DownloadCompleted   DownloadState = "completed"
	DownloadError       DownloadState = "error"
)

// ModelStatus combines the query-cached availability of a model with the
// push-only download progress layered on top. Availability is the source of
// truth: when a model is available and no download or error is in flight the
// download state reads as completed.
type ModelStatus struct {
	ModelType     string        `json:"modelType"`
	IsAvailable   bool          `json:"isAvailable"`
	DownloadState DownloadState `json:"downloadState"`
	Progress      int           `json:"progress"` // 0-100
	Error         string        `json:"error,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Commands, Dictionary, Window Contexts
// ─────────────────────────────────────────────────────────────────────────────

// Command is a voice command record owned by the host.
type Command struct {
	ID      string `json:"id"`
	Trigger string `json:"trigger"`
	Action  string `json:"action"`
	Enabled bool   `json:"enabled"`
}

// DictionaryEntry is a text-expansion record owned by the host.
type DictionaryEntry struct {
	ID                string `json:"id"`
	Trigger           string `json:"trigger"`
	Expansion         string `json:"expansion"`
	Suffix            string `json:"suffix,omitempty"`
	AutoEnter         bool   `json:"autoEnter,omitempty"`
	DisableSuffix     bool   `json:"disableSuffix,omitempty"`
	CompleteMatchOnly bool   `json:"completeMatchOnly,omitempty"`
	Enabled           bool   `json:"enabled"`
}

// EffectiveSuffix returns the suffix that would be appended after this
// entry's expansion. DisableSuffix always wins over a non-empty Suffix.
func (e DictionaryEntry) EffectiveSuffix() string {
	if e.DisableSuffix {
		return ""
	}
	return e.Suffix
}

// OverrideMode controls whether a window context's assigned entities add to
// or fully supersede the global entity set.
type OverrideMode string

const (
	OverrideMerge   OverrideMode = "merge"
	OverrideReplace OverrideMode = "replace"
)

// WindowMatcher describes how the host matches a context to a window.
// Matching itself happens in the host; the client only displays it.
type WindowMatcher struct {
	AppName      string `json:"appName"`
	TitlePattern string `json:"titlePattern,omitempty"` // regex, host-evaluated
	BundleID     string `json:"bundleId,omitempty"`
}

// WindowContext scopes commands and dictionary entries to matched windows.
// CommandIDs and DictionaryEntryIDs are mutated from the client only through
// the assignment synchronizer.
type WindowContext struct {
	ID                 string        `json:"id"`
	Name               string        `json:"name"`
	Matcher            WindowMatcher `json:"matcher"`
	CommandMode        OverrideMode  `json:"commandMode"`
	DictionaryMode     OverrideMode  `json:"dictionaryMode"`
	CommandIDs         []string      `json:"commandIds"`
	DictionaryEntryIDs []string      `json:"dictionaryEntryIds"`
	Priority           int           `json:"priority"`
	Enabled            bool          `json:"enabled"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Host Status & Devices
// ─────────────────────────────────────────────────────────────────────────────

// ListeningStatus is the host's pull-side report of the listening feature.
type ListeningStatus struct {
	Enabled      bool `json:"enabled"`
	Active       bool `json:"active"`
	MicAvailable bool `json:"micAvailable"`
}

// HostRecordingState is the host's pull-side report of the recording loop.
type HostRecordingState struct {
	State string `json:"state"` // Idle | Recording | Processing | Listening
}

// AudioDevice describes a capture device enumerated by the host.
type AudioDevice struct {
	Name      string `json:"name"`
	IsDefault bool   `json:"isDefault"`
}

// RunningApplication describes an application the host can match contexts to.
type RunningApplication struct {
	Name     string `json:"name"`
	BundleID string `json:"bundleId,omitempty"`
}

// ActiveWindow is the transient display record of the host's focused-window
// tracking, including which context (if any) the host matched.
type ActiveWindow struct {
	AppName            string `json:"appName"`
	BundleID           string `json:"bundleId,omitempty"`
	WindowTitle        string `json:"windowTitle"`
	MatchedContextID   string `json:"matchedContextId,omitempty"`
	MatchedContextName string `json:"matchedContextName,omitempty"`
}
