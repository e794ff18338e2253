// Package hotkey registers the system-wide push-to-talk shortcut. The
// toggle goes through the same host call path as the UI buttons, so the
// event bridge absorbs the resulting state changes no matter which side
// initiated them.
package hotkey

import (
	"fmt"
	"log/slog"
	"sync"

	hook "github.com/robotn/gohook"
)

// DefaultChord is the fallback push-to-talk shortcut.
var DefaultChord = []string{"ctrl", "shift", "space"}

// Manager owns the global keyboard hook lifecycle.
type Manager struct {
	chord    []string
	onToggle func()

	mu      sync.Mutex
	running bool
}

// NewManager creates a manager that invokes onToggle for every chord press.
// A nil or empty chord falls back to DefaultChord.
func NewManager(chord []string, onToggle func()) *Manager {
	if len(chord) == 0 {
		chord = DefaultChord
	}
	return &Manager{chord: chord, onToggle: onToggle}
}

// Start registers the chord and begins the hook loop in the background.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("hotkey manager already running")
	}

	hook.Register(hook.KeyDown, m.chord, func(_ hook.Event) {
		// Run the toggle off the hook thread so a slow host round-trip
		// can't stall key event delivery.
		go m.onToggle()
	})

	events := hook.Start()
	go func() {
		<-hook.Process(events)
		slog.Info("hotkey hook loop ended")
	}()

	m.running = true
	slog.Info("hotkey registered", "chord", m.chord)
	return nil
}

// Stop tears down the global hook.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	hook.End()
	m.running = false
}
