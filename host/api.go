package host

import (
	"context"

	"go.sotto.dev/sotto/internal/types"
)

// API wraps a Caller with typed accessors for every host method. It owns no
// state; all authoritative data stays in the host.
type API struct {
	c Caller
}

// NewAPI creates the typed facade over a host connection (or a fake).
func NewAPI(c Caller) *API {
	return &API{c: c}
}

// deviceParams selects an optional capture device.
type deviceParams struct {
	DeviceName string `json:"deviceName,omitempty"`
}

// idParams addresses a single record by id.
type idParams struct {
	ID string `json:"id"`
}

// modelParams addresses a model type.
type modelParams struct {
	ModelType string `json:"modelType"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Recording & Listening
// ─────────────────────────────────────────────────────────────────────────────

func (a *API) StartRecording(ctx context.Context, deviceName string) error {
	return a.c.Call(ctx, MethodStartRecording, deviceParams{DeviceName: deviceName}, nil)
}

func (a *API) StopRecording(ctx context.Context) error {
	return a.c.Call(ctx, MethodStopRecording, nil, nil)
}

func (a *API) EnableListening(ctx context.Context, deviceName string) error {
	return a.c.Call(ctx, MethodEnableListening, deviceParams{DeviceName: deviceName}, nil)
}

func (a *API) DisableListening(ctx context.Context) error {
	return a.c.Call(ctx, MethodDisableListening, nil, nil)
}

func (a *API) RecordingState(ctx context.Context) (types.HostRecordingState, error) {
	var out types.HostRecordingState
	err := a.c.Call(ctx, MethodGetRecordingState, nil, &out)
	return out, err
}

func (a *API) ListeningStatus(ctx context.Context) (types.ListeningStatus, error) {
	var out types.ListeningStatus
	err := a.c.Call(ctx, MethodGetListeningStatus, nil, &out)
	return out, err
}

func (a *API) ListRecordings(ctx context.Context) ([]types.RecordingMetadata, error) {
	var out []types.RecordingMetadata
	err := a.c.Call(ctx, MethodListRecordings, nil, &out)
	return out, err
}

// ─────────────────────────────────────────────────────────────────────────────
// Dictionary
// ─────────────────────────────────────────────────────────────────────────────

func (a *API) ListDictionaryEntries(ctx context.Context) ([]types.DictionaryEntry, error) {
	var out []types.DictionaryEntry
	err := a.c.Call(ctx, MethodListDictionaryEntries, nil, &out)
	return out, err
}

func (a *API) AddDictionaryEntry(ctx context.Context, entry types.DictionaryEntry) error {
	return a.c.Call(ctx, MethodAddDictionaryEntry, entry, nil)
}

func (a *API) UpdateDictionaryEntry(ctx context.Context, entry types.DictionaryEntry) error {
	return a.c.Call(ctx, MethodUpdateDictionaryEntry, entry, nil)
}

func (a *API) DeleteDictionaryEntry(ctx context.Context, id string) error {
	return a.c.Call(ctx, MethodDeleteDictionaryEntry, idParams{ID: id}, nil)
}

// ─────────────────────────────────────────────────────────────────────────────
// Commands
// ─────────────────────────────────────────────────────────────────────────────

func (a *API) ListCommands(ctx context.Context) ([]types.Command, error) {
	var out []types.Command
	err := a.c.Call(ctx, MethodListCommands, nil, &out)
	return out, err
}

func (a *API) AddCommand(ctx context.Context, cmd types.Command) error {
	return a.c.Call(ctx, MethodAddCommand, cmd, nil)
}

func (a *API) UpdateCommand(ctx context.Context, cmd types.Command) error {
	return a.c.Call(ctx, MethodUpdateCommand, cmd, nil)
}

func (a *API) RemoveCommand(ctx context.Context, id string) error {
	return a.c.Call(ctx, MethodRemoveCommand, idParams{ID: id}, nil)
}

// ─────────────────────────────────────────────────────────────────────────────
// Window Contexts
// ─────────────────────────────────────────────────────────────────────────────

func (a *API) ListWindowContexts(ctx context.Context) ([]types.WindowContext, error) {
	var out []types.WindowContext
	err := a.c.Call(ctx, MethodListWindowContexts, nil, &out)
	return out, err
}

func (a *API) AddWindowContext(ctx context.Context, wc types.WindowContext) error {
	return a.c.Call(ctx, MethodAddWindowContext, wc, nil)
}

func (a *API) UpdateWindowContext(ctx context.Context, wc types.WindowContext) error {
	return a.c.Call(ctx, MethodUpdateWindowContext, wc, nil)
}

func (a *API) DeleteWindowContext(ctx context.Context, id string) error {
	return a.c.Call(ctx, MethodDeleteWindowContext, idParams{ID: id}, nil)
}

// ─────────────────────────────────────────────────────────────────────────────
// Models, Devices, Monitoring
// ─────────────────────────────────────────────────────────────────────────────

// CheckModelStatus reports whether the model files are present on disk.
func (a *API) CheckModelStatus(ctx context.Context, modelType string) (bool, error) {
	var out struct {
		IsAvailable bool `json:"isAvailable"`
	}
	err := a.c.Call(ctx, MethodCheckModelStatus, modelParams{ModelType: modelType}, &out)
	return out.IsAvailable, err
}

// DownloadModel asks the host to fetch the model files. Progress and
// completion arrive as pushed events, not in this response.
func (a *API) DownloadModel(ctx context.Context, modelType string) error {
	return a.c.Call(ctx, MethodDownloadModel, modelParams{ModelType: modelType}, nil)
}

func (a *API) ListAudioDevices(ctx context.Context) ([]types.AudioDevice, error) {
	var out []types.AudioDevice
	err := a.c.Call(ctx, MethodListAudioDevices, nil, &out)
	return out, err
}

func (a *API) ListRunningApplications(ctx context.Context) ([]types.RunningApplication, error) {
	var out []types.RunningApplication
	err := a.c.Call(ctx, MethodListRunningApplications, nil, &out)
	return out, err
}

func (a *API) StartAudioMonitor(ctx context.Context, deviceName string) error {
	return a.c.Call(ctx, MethodStartAudioMonitor, deviceParams{DeviceName: deviceName}, nil)
}

func (a *API) StopAudioMonitor(ctx context.Context) error {
	return a.c.Call(ctx, MethodStopAudioMonitor, nil, nil)
}
