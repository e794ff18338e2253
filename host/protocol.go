// Package host provides the client and protocol types for communicating
// with the native sotto host daemon over a Unix socket using NDJSON. The
// host owns audio capture, wake-word detection, speech-to-text and window
// matching; this client only issues requests and consumes its named events.
package host

import "encoding/json"

// Request is sent from the client to the host. ID correlates the response.
type Request struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is returned by the host for a Request with the same ID.
type Response struct {
	ID     string          `json:"id"`
	OK     bool            `json:"ok"`
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// Event is pushed by the host to the client, interleaved with responses on
// the same connection. Payload shape depends on the event name; decoding
// and validation happen at the event bridge boundary.
type Event struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Request methods understood by the host.
const (
	MethodStartRecording     = "start_recording"
	MethodStopRecording      = "stop_recording"
	MethodEnableListening    = "enable_listening"
	MethodDisableListening   = "disable_listening"
	MethodGetRecordingState  = "get_recording_state"
	MethodGetListeningStatus = "get_listening_status"

	MethodListRecordings = "list_recordings"

	MethodListDictionaryEntries = "list_dictionary_entries"
	MethodAddDictionaryEntry    = "add_dictionary_entry"
	MethodUpdateDictionaryEntry = "update_dictionary_entry"
	MethodDeleteDictionaryEntry = "delete_dictionary_entry"

	MethodListCommands  = "list_commands"
	MethodAddCommand    = "add_command"
	MethodUpdateCommand = "update_command"
	MethodRemoveCommand = "remove_command"

	MethodListWindowContexts  = "list_window_contexts"
	MethodAddWindowContext    = "add_window_context"
	MethodUpdateWindowContext = "update_window_context"
	MethodDeleteWindowContext = "delete_window_context"

	MethodCheckModelStatus = "check_parakeet_model_status"
	MethodDownloadModel    = "download_model"

	MethodListAudioDevices        = "list_audio_devices"
	MethodListRunningApplications = "list_running_applications"
	MethodStartAudioMonitor       = "start_audio_monitor"
	MethodStopAudioMonitor        = "stop_audio_monitor"
)

// Named events pushed by the host.
const (
	EventRecordingStarted   = "recording_started"
	EventRecordingStopped   = "recording_stopped"
	EventRecordingCancelled = "recording_cancelled"
	EventRecordingError     = "recording_error"

	EventListeningStarted     = "listening_started"
	EventListeningStopped     = "listening_stopped"
	EventListeningUnavailable = "listening_unavailable"
	EventWakeWordDetected     = "wake_word_detected"

	EventTranscriptionStarted   = "transcription_started"
	EventTranscriptionCompleted = "transcription_completed"
	EventTranscriptionError     = "transcription_error"

	EventModelDownloadCompleted    = "model_download_completed"
	EventModelFileDownloadProgress = "model_file_download_progress"

	EventAudioLevel          = "audio-level"
	EventActiveWindowChanged = "active_window_changed"

	EventDictionaryUpdated     = "dictionary_updated"
	EventWindowContextsUpdated = "window_contexts_updated"
)
