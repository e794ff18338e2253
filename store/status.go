package store

import "go.sotto.dev/sotto/internal/types"

// DeriveStatus combines the independent feature slices into one
// mutually-exclusive status. Recording is a hard exclusive mode and wins
// outright; transcription shows as processing; listening is a passive
// background mode that anything above it supersedes.
func DeriveStatus(rec types.RecordingState, tr types.TranscriptionState, lis types.ListeningState) types.FeatureStatus {
	switch {
	case rec.IsRecording:
		return types.StatusRecording
	case tr.IsTranscribing:
		return types.StatusProcessing
	case lis.IsListening:
		return types.StatusListening
	default:
		return types.StatusIdle
	}
}

// FirstError surfaces the first non-empty error across the slices in the
// same priority order as DeriveStatus: recording, transcription, listening.
func FirstError(rec types.RecordingState, tr types.TranscriptionState, lis types.ListeningState) string {
	switch {
	case rec.Error != "":
		return rec.Error
	case tr.Error != "":
		return tr.Error
	case lis.Error != "":
		return lis.Error
	default:
		return ""
	}
}
