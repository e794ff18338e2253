// Package app provides the core application service for Wails bindings.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"go.sotto.dev/sotto/assign"
	"go.sotto.dev/sotto/bridge"
	"go.sotto.dev/sotto/cache"
	"go.sotto.dev/sotto/clipboard"
	"go.sotto.dev/sotto/config"
	"go.sotto.dev/sotto/host"
	"go.sotto.dev/sotto/hotkey"
	"go.sotto.dev/sotto/internal/types"
	"go.sotto.dev/sotto/query"
	"go.sotto.dev/sotto/store"

	"github.com/wailsapp/wails/v3/pkg/application"
)

// StatusSnapshot is what the frontend renders its status surface from.
type StatusSnapshot struct {
	Status        types.FeatureStatus      `json:"status"`
	Error         string                   `json:"error,omitempty"`
	Recording     types.RecordingState     `json:"recording"`
	Listening     types.ListeningState     `json:"listening"`
	Transcription types.TranscriptionState `json:"transcription"`
}

// Service provides application functionality bound to Wails.
// This struct focuses on orchestration; the reconciliation rules live in
// the store, bridge, query and assign packages.
type Service struct {
	cfg *config.Config

	// UI references - set via Init
	app    *application.App
	window application.Window

	hostConn *host.Client
	api      *host.API
	store    *store.Store
	persist  *cache.Cache
	queries  *query.Cache
	sync     *assign.Synchronizer
	hotkey   *hotkey.Manager

	cancelBridge context.CancelFunc
	releases     []func()

	// Version info (set by caller)
	version string
}

// New creates a new Service. Call Init() after the Wails app is created.
func New(version string) *Service {
	return &Service{version: version}
}

// GetVersion returns the application version.
func (s *Service) GetVersion() string {
	return s.version
}

// Init initializes the service with app and window references.
// Must be called after the Wails application is created.
func (s *Service) Init(app *application.App, window application.Window) {
	s.app = app
	s.window = window

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		cfg = &config.Config{ModelType: "tdt"}
	}
	s.cfg = cfg

	s.store = store.New()
	s.setupCache()
	s.connectHost()
	s.setupSubscriptions()
	s.setupHotkey()
}

// Shutdown cleans up resources. Every subscription registered in Init is
// released here so nothing writes into a torn-down frontend.
func (s *Service) Shutdown() {
	if s.hotkey != nil {
		s.hotkey.Stop()
	}
	if s.cancelBridge != nil {
		s.cancelBridge()
	}
	for _, release := range s.releases {
		release()
	}
	s.releases = nil
	if s.hostConn != nil {
		if err := s.hostConn.Close(); err != nil {
			slog.Error("close host connection", "error", err)
		}
	}
	if s.store != nil {
		s.store.Close()
	}
	if s.persist != nil {
		if err := s.persist.Close(); err != nil {
			slog.Error("close cache", "error", err)
		}
	}
}

func (s *Service) setupCache() {
	configDir, err := os.UserConfigDir()
	if err != nil {
		slog.Error("get config dir for cache", "error", err)
		s.queries = query.New(nil)
		return
	}

	cachePath := filepath.Join(configDir, "sotto", "cache")
	c, err := cache.New(cachePath)
	if err != nil {
		slog.Error("init cache", "error", err)
		s.queries = query.New(nil)
		return
	}
	s.persist = c
	s.queries = query.New(c)
	slog.Info("cache initialized", "path", cachePath)

	// Seed the lists the first screens need; stale-but-displayable until
	// the first fetch confirms them.
	query.Warm[[]types.Command](s.queries, c, query.KeyCommands)
	query.Warm[[]types.DictionaryEntry](s.queries, c, query.KeyDictionary)
	query.Warm[[]types.WindowContext](s.queries, c, query.KeyWindowContexts)
	query.Warm[[]types.RecordingMetadata](s.queries, c, query.KeyRecordings)
}

func (s *Service) connectHost() {
	socketPath := s.cfg.SocketPath
	if socketPath == "" {
		socketPath = host.SocketPath()
	}

	conn, err := host.Connect(socketPath)
	if err != nil {
		slog.Error("connect host", "socket", socketPath, "error", err)
		return
	}
	s.hostConn = conn
	s.api = host.NewAPI(conn)
	s.sync = assign.New(s.api)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancelBridge = cancel

	b := bridge.New(s.store, s.queries)
	go func() {
		b.Run(ctx, conn.Events())
		s.emit(EventHostLost, nil)
	}()

	slog.Info("host connected", "socket", socketPath)
}

func (s *Service) setupSubscriptions() {
	releaseStore := s.store.Subscribe(func() {
		s.emit(EventStatusChanged, s.GetStatus())
	})
	releaseQueries := s.queries.Subscribe(func(key query.Key) {
		s.emit(EventQueryInvalidated, string(key))
	})
	s.releases = append(s.releases, releaseStore, releaseQueries)
}

func (s *Service) setupHotkey() {
	if !s.cfg.HotkeyEnabled {
		return
	}
	s.hotkey = hotkey.NewManager(s.cfg.HotkeyChord, func() {
		if err := s.ToggleRecording(); err != nil {
			slog.Error("hotkey toggle recording", "error", err)
		}
	})
	if err := s.hotkey.Start(); err != nil {
		slog.Error("start hotkey", "error", err)
	}
}

// emit is a safe wrapper around app.Event.Emit.
func (s *Service) emit(name string, data any) {
	if s.app != nil {
		s.app.Event.Emit(name, data)
	}
}

func (s *Service) requireHost() error {
	if s.api == nil {
		return fmt.Errorf("host is not connected")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Status
// ─────────────────────────────────────────────────────────────────────────────

// GetStatus derives the combined feature status. Always recomputed, never
// cached.
func (s *Service) GetStatus() StatusSnapshot {
	rec, tr, lis := s.store.Snapshot()
	return StatusSnapshot{
		Status:        store.DeriveStatus(rec, tr, lis),
		Error:         store.FirstError(rec, tr, lis),
		Recording:     rec,
		Listening:     lis,
		Transcription: tr,
	}
}

// GetActiveWindow returns the last active-window display record.
func (s *Service) GetActiveWindow() types.ActiveWindow {
	return s.store.ActiveWindow()
}

// GetAudioLevel returns the last monitor level for a device.
func (s *Service) GetAudioLevel(deviceName string) float64 {
	return s.store.AudioLevel(deviceName)
}

// ─────────────────────────────────────────────────────────────────────────────
// Recording & Listening
// ─────────────────────────────────────────────────────────────────────────────

// StartRecording asks the host to record. State changes arrive through the
// recording_started event; the response carries no payload and writes
// nothing.
func (s *Service) StartRecording() error {
	if err := s.requireHost(); err != nil {
		return err
	}
	return s.api.StartRecording(context.Background(), s.cfg.PreferredDevice)
}

// StopRecording asks the host to stop. The recording_stopped event, not
// this call's resolution, is what updates the slice.
func (s *Service) StopRecording() error {
	if err := s.requireHost(); err != nil {
		return err
	}
	return s.api.StopRecording(context.Background())
}

// ToggleRecording starts or stops based on the current slice. Used by both
// the UI button and the global hotkey.
func (s *Service) ToggleRecording() error {
	if s.store.Recording().IsRecording {
		return s.StopRecording()
	}
	return s.StartRecording()
}

// EnableListening turns on wake-word listening.
func (s *Service) EnableListening() error {
	if err := s.requireHost(); err != nil {
		return err
	}
	return s.api.EnableListening(context.Background(), s.cfg.PreferredDevice)
}

// DisableListening turns off wake-word listening.
func (s *Service) DisableListening() error {
	if err := s.requireHost(); err != nil {
		return err
	}
	return s.api.DisableListening(context.Background())
}

// GetRecordingState pulls the host's recording-state report through the
// cache. Lifecycle events invalidate it, so it tracks the slices.
func (s *Service) GetRecordingState() (types.HostRecordingState, error) {
	if err := s.requireHost(); err != nil {
		return types.HostRecordingState{}, err
	}
	return query.Fetch(context.Background(), s.queries, query.KeyRecordingState, s.api.RecordingState)
}

// GetListeningStatus pulls the host's listening report through the cache.
func (s *Service) GetListeningStatus() (types.ListeningStatus, error) {
	if err := s.requireHost(); err != nil {
		return types.ListeningStatus{}, err
	}
	return query.Fetch(context.Background(), s.queries, query.KeyListeningStatus, s.api.ListeningStatus)
}

// GetRecordings lists past recordings. recording_stopped invalidates this
// key, so no mutation needs to.
func (s *Service) GetRecordings() ([]types.RecordingMetadata, error) {
	if err := s.requireHost(); err != nil {
		return nil, err
	}
	return query.Fetch(context.Background(), s.queries, query.KeyRecordings, s.api.ListRecordings)
}

// CopyLastTranscription places the last transcribed text on the clipboard.
func (s *Service) CopyLastTranscription() error {
	text := s.store.Transcription().TranscribedText
	if text == "" {
		return fmt.Errorf("no transcription to copy")
	}
	return clipboard.SetText(s.app, text)
}

// GetClipboardText returns the current clipboard text, so forms can offer a
// fill-from-clipboard shortcut for expansions and command actions.
func (s *Service) GetClipboardText() (string, error) {
	return clipboard.GetText(s.app)
}

// ─────────────────────────────────────────────────────────────────────────────
// Dictionary
// ─────────────────────────────────────────────────────────────────────────────

// GetDictionaryEntries returns the cached entry list, fetching when stale.
func (s *Service) GetDictionaryEntries() ([]types.DictionaryEntry, error) {
	if err := s.requireHost(); err != nil {
		return nil, err
	}
	return query.Fetch(context.Background(), s.queries, query.KeyDictionary, s.api.ListDictionaryEntries)
}

// AddDictionaryEntry creates an entry. The host's dictionary_updated event
// invalidates the list; writing or invalidating here would double the
// round-trip.
func (s *Service) AddDictionaryEntry(entry types.DictionaryEntry) error {
	if err := s.requireHost(); err != nil {
		return err
	}
	return s.api.AddDictionaryEntry(context.Background(), entry)
}

// UpdateDictionaryEntry updates an entry; invalidation rides the event.
func (s *Service) UpdateDictionaryEntry(entry types.DictionaryEntry) error {
	if err := s.requireHost(); err != nil {
		return err
	}
	return s.api.UpdateDictionaryEntry(context.Background(), entry)
}

// DeleteDictionaryEntry removes the entry from every context referencing it
// before deleting it, so no context is left holding a dangling id.
func (s *Service) DeleteDictionaryEntry(id string) error {
	if err := s.requireHost(); err != nil {
		return err
	}
	ctx := context.Background()
	if err := s.sync.RemoveFromAll(ctx, assign.RelationDictionary, id); err != nil {
		return fmt.Errorf("detach dictionary entry: %w", err)
	}
	return s.api.DeleteDictionaryEntry(ctx, id)
}

// SaveDictionaryEntryContexts reconciles an entry's context memberships.
func (s *Service) SaveDictionaryEntryContexts(entryID string, contextIDs []string) error {
	if err := s.requireHost(); err != nil {
		return err
	}
	return s.sync.Sync(context.Background(), assign.RelationDictionary, entryID, contextIDs)
}

// ─────────────────────────────────────────────────────────────────────────────
// Commands
// ─────────────────────────────────────────────────────────────────────────────

// GetCommands returns the cached command list, fetching when stale.
func (s *Service) GetCommands() ([]types.Command, error) {
	if err := s.requireHost(); err != nil {
		return nil, err
	}
	return query.Fetch(context.Background(), s.queries, query.KeyCommands, s.api.ListCommands)
}

// AddCommand creates a command. Commands have no updated event, so the key
// is invalidated explicitly once the round-trip succeeds.
func (s *Service) AddCommand(cmd types.Command) error {
	if err := s.requireHost(); err != nil {
		return err
	}
	if err := s.api.AddCommand(context.Background(), cmd); err != nil {
		return err
	}
	s.queries.Invalidate(query.KeyCommands)
	return nil
}

// UpdateCommand updates a command and invalidates explicitly (no event).
func (s *Service) UpdateCommand(cmd types.Command) error {
	if err := s.requireHost(); err != nil {
		return err
	}
	if err := s.api.UpdateCommand(context.Background(), cmd); err != nil {
		return err
	}
	s.queries.Invalidate(query.KeyCommands)
	return nil
}

// RemoveCommand detaches the command from all contexts, deletes it, then
// invalidates the command list explicitly (no event).
func (s *Service) RemoveCommand(id string) error {
	if err := s.requireHost(); err != nil {
		return err
	}
	ctx := context.Background()
	if err := s.sync.RemoveFromAll(ctx, assign.RelationCommands, id); err != nil {
		return fmt.Errorf("detach command: %w", err)
	}
	if err := s.api.RemoveCommand(ctx, id); err != nil {
		return err
	}
	s.queries.Invalidate(query.KeyCommands)
	return nil
}

// SaveCommandContexts reconciles a command's context memberships. The
// context updates it issues are covered by window_contexts_updated events.
func (s *Service) SaveCommandContexts(commandID string, contextIDs []string) error {
	if err := s.requireHost(); err != nil {
		return err
	}
	return s.sync.Sync(context.Background(), assign.RelationCommands, commandID, contextIDs)
}

// ─────────────────────────────────────────────────────────────────────────────
// Window Contexts
// ─────────────────────────────────────────────────────────────────────────────

// GetWindowContexts returns the cached context list, fetching when stale.
func (s *Service) GetWindowContexts() ([]types.WindowContext, error) {
	if err := s.requireHost(); err != nil {
		return nil, err
	}
	return query.Fetch(context.Background(), s.queries, query.KeyWindowContexts, s.api.ListWindowContexts)
}

// AddWindowContext creates a context; window_contexts_updated invalidates.
func (s *Service) AddWindowContext(wc types.WindowContext) error {
	if err := s.requireHost(); err != nil {
		return err
	}
	return s.api.AddWindowContext(context.Background(), wc)
}

// UpdateWindowContext updates a context; window_contexts_updated invalidates.
func (s *Service) UpdateWindowContext(wc types.WindowContext) error {
	if err := s.requireHost(); err != nil {
		return err
	}
	return s.api.UpdateWindowContext(context.Background(), wc)
}

// DeleteWindowContext deletes a context; window_contexts_updated invalidates.
func (s *Service) DeleteWindowContext(id string) error {
	if err := s.requireHost(); err != nil {
		return err
	}
	return s.api.DeleteWindowContext(context.Background(), id)
}

// GetContextsForCommand returns the ids of contexts referencing a command,
// derived wholesale from the current contexts list.
func (s *Service) GetContextsForCommand(commandID string) ([]string, error) {
	contexts, err := s.GetWindowContexts()
	if err != nil {
		return nil, err
	}
	return assign.Index(contexts, assign.RelationCommands)[commandID], nil
}

// GetContextsForDictionaryEntry returns the ids of contexts referencing a
// dictionary entry.
func (s *Service) GetContextsForDictionaryEntry(entryID string) ([]string, error) {
	contexts, err := s.GetWindowContexts()
	if err != nil {
		return nil, err
	}
	return assign.Index(contexts, assign.RelationDictionary)[entryID], nil
}

// ContextBadge carries the effective-set counts a context row displays.
type ContextBadge struct {
	CommandCount    int `json:"commandCount"`
	DictionaryCount int `json:"dictionaryCount"`
}

// GetContextBadge mirrors the host's merge/replace contract for display.
func (s *Service) GetContextBadge(contextID string) (ContextBadge, error) {
	contexts, err := s.GetWindowContexts()
	if err != nil {
		return ContextBadge{}, err
	}
	commands, err := s.GetCommands()
	if err != nil {
		return ContextBadge{}, err
	}
	entries, err := s.GetDictionaryEntries()
	if err != nil {
		return ContextBadge{}, err
	}

	for _, wc := range contexts {
		if wc.ID != contextID {
			continue
		}
		return ContextBadge{
			CommandCount:    len(assign.EffectiveCommands(wc, commands)),
			DictionaryCount: len(assign.EffectiveDictionaryEntries(wc, entries)),
		}, nil
	}
	return ContextBadge{}, fmt.Errorf("context not found: %s", contextID)
}

// ─────────────────────────────────────────────────────────────────────────────
// Models
// ─────────────────────────────────────────────────────────────────────────────

// GetModelStatus reports availability (pull, cached) overlaid with download
// progress (push, transient).
func (s *Service) GetModelStatus(modelType string) (types.ModelStatus, error) {
	if err := s.requireHost(); err != nil {
		return types.ModelStatus{}, err
	}

	available, err := query.Fetch(context.Background(), s.queries, query.ModelKey(modelType),
		func(ctx context.Context) (bool, error) {
			return s.api.CheckModelStatus(ctx, modelType)
		})
	if err != nil {
		return types.ModelStatus{}, err
	}

	s.store.TrackModel(modelType, available)
	m, _ := s.store.Model(modelType)
	return m, nil
}

// DownloadModel starts a background download on the host. Progress and
// completion arrive as events.
func (s *Service) DownloadModel(modelType string) error {
	if err := s.requireHost(); err != nil {
		return err
	}
	if _, err := s.GetModelStatus(modelType); err != nil {
		return err
	}
	if err := s.api.DownloadModel(context.Background(), modelType); err != nil {
		return err
	}
	s.store.ModelDownloadStarted(modelType)
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Devices & Monitoring
// ─────────────────────────────────────────────────────────────────────────────

// GetAudioDevices returns the cached device list.
func (s *Service) GetAudioDevices() ([]types.AudioDevice, error) {
	if err := s.requireHost(); err != nil {
		return nil, err
	}
	return query.Fetch(context.Background(), s.queries, query.KeyAudioDevices, s.api.ListAudioDevices)
}

// RefreshAudioDevices forces a device re-enumeration (no event covers it).
func (s *Service) RefreshAudioDevices() ([]types.AudioDevice, error) {
	s.queries.Invalidate(query.KeyAudioDevices)
	return s.GetAudioDevices()
}

// GetRunningApplications returns the cached running-application list used
// by the context matcher form.
func (s *Service) GetRunningApplications() ([]types.RunningApplication, error) {
	if err := s.requireHost(); err != nil {
		return nil, err
	}
	return query.Fetch(context.Background(), s.queries, query.KeyRunningApps, s.api.ListRunningApplications)
}

// RefreshRunningApplications forces a re-enumeration.
func (s *Service) RefreshRunningApplications() ([]types.RunningApplication, error) {
	s.queries.Invalidate(query.KeyRunningApps)
	return s.GetRunningApplications()
}

// StartAudioMonitor begins level metering; audio-level events land in the
// transient store.
func (s *Service) StartAudioMonitor(deviceName string) error {
	if err := s.requireHost(); err != nil {
		return err
	}
	return s.api.StartAudioMonitor(context.Background(), deviceName)
}

// StopAudioMonitor ends level metering.
func (s *Service) StopAudioMonitor() error {
	if err := s.requireHost(); err != nil {
		return err
	}
	return s.api.StopAudioMonitor(context.Background())
}

// ─────────────────────────────────────────────────────────────────────────────
// Settings
// ─────────────────────────────────────────────────────────────────────────────

// GetConfig returns the current configuration.
func (s *Service) GetConfig() config.Config {
	return *s.cfg
}

// SetPreferredDevice persists the capture device preference.
func (s *Service) SetPreferredDevice(deviceName string) error {
	s.cfg.PreferredDevice = deviceName
	return s.cfg.Save()
}
