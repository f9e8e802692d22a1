package wm

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/geket/lamella/internal/config"
	"github.com/geket/lamella/internal/layout"
)

// CommandResult is the per-command outcome of a RUN_COMMAND request,
// serialized verbatim into the IPC reply array.
type CommandResult struct {
	Success    bool   `json:"success"`
	ParseError bool   `json:"parse_error,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Hooks are the side-effecting collaborator callbacks the manager
// invokes outside the pure state model. Any hook may be nil.
type Hooks struct {
	// Exec runs a command line (the "exec" command and startup entries).
	Exec func(line string)
	// Close asks the backend to close a window. When nil, kill destroys
	// the window directly, which is what headless operation wants.
	Close func(win WindowID)
	// Reload produces a fresh config snapshot; an error keeps the old one.
	Reload func() (*config.Config, error)
	// Exit initiates daemon shutdown.
	Exit func()
	// Geometry receives the full assignment map after every mutation.
	Geometry func([]Assignment)
	// Event receives every state-change event for IPC fan-out.
	Event func(Event)
}

// Manager serializes all mutations of the window manager state. Every
// inbound command, whether from an IPC client or a key binding, passes
// through here; mutations are applied to a clone and swapped in only
// after the invariant check passes, so observers never see a partially
// applied operation.
type Manager struct {
	mu    sync.RWMutex
	st    *State
	log   *slog.Logger
	hooks Hooks

	configPath string
}

// New builds a manager from a validated config snapshot. Outputs are
// registered afterwards via AddOutput.
func New(cfg *config.Config, logger *slog.Logger, hooks Hooks) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		st:    newState(cfg),
		log:   logger,
		hooks: hooks,
	}
}

// SetConfigPath records the file the active snapshot was loaded from,
// reported by GET_VERSION.
func (m *Manager) SetConfigPath(path string) {
	m.mu.Lock()
	m.configPath = path
	m.mu.Unlock()
}

// mutate applies fn to a clone of the state and swaps the clone in
// when both fn and the invariant check succeed. On an invariant
// violation the operation is discarded and the pre-operation state
// retained.
func (m *Manager) mutate(op string, fn func(*State) error) error {
	m.mu.Lock()
	next := m.st.clone()
	if err := fn(next); err != nil {
		m.mu.Unlock()
		return err
	}
	if verr := next.validate(); verr != nil {
		m.mu.Unlock()
		m.log.Error("invariant violation, operation discarded", "op", op, "error", verr)
		return fmt.Errorf("internal error applying %s", op)
	}
	m.st = next
	events := next.drainEvents()
	assigns := next.assignments()
	m.mu.Unlock()

	for _, ev := range events {
		if m.hooks.Event != nil {
			m.hooks.Event(ev)
		}
	}
	if m.hooks.Geometry != nil {
		m.hooks.Geometry(assigns)
	}
	return nil
}

// RunCommand executes a ';'-separated command line and returns one
// result per command. Parse failures and command failures are reported
// in the results; they never abort the remaining commands.
func (m *Manager) RunCommand(text string) []CommandResult {
	parts := SplitCommands(text)
	if len(parts) == 0 {
		return []CommandResult{{ParseError: true, Error: "empty command"}}
	}
	results := make([]CommandResult, 0, len(parts))
	for _, part := range parts {
		cmd, err := ParseCommand(part)
		if err != nil {
			m.log.Debug("command parse error", "command", part, "error", err)
			results = append(results, CommandResult{ParseError: true, Error: err.Error()})
			continue
		}
		if err := m.dispatch(part, cmd); err != nil {
			m.log.Debug("command failed", "command", part, "error", err)
			results = append(results, CommandResult{Error: err.Error()})
			continue
		}
		results = append(results, CommandResult{Success: true})
	}
	return results
}

func (m *Manager) dispatch(text string, cmd Command) error {
	switch cmd.Op {
	case OpNop:
		return nil

	case OpExec:
		if m.hooks.Exec != nil {
			m.hooks.Exec(cmd.Arg)
		}
		return nil

	case OpKill:
		m.mu.RLock()
		win := m.st.focused
		m.mu.RUnlock()
		if win == 0 {
			return fmt.Errorf("nothing focused")
		}
		if m.hooks.Close != nil {
			// The backend closes the surface; removal follows on the
			// window-destroyed event.
			m.hooks.Close(win)
			return nil
		}
		return m.mutate("kill", func(st *State) error {
			st.destroyWindow(win)
			return nil
		})

	case OpReload:
		if m.hooks.Reload == nil {
			return nil
		}
		cfg, err := m.hooks.Reload()
		if err != nil {
			m.log.Warn("reload failed, keeping previous config", "error", err)
			return fmt.Errorf("reload failed: %v", err)
		}
		return m.mutate("reload", func(st *State) error {
			st.cfg = cfg
			return nil
		})

	case OpExit:
		if m.hooks.Event != nil {
			m.hooks.Event(Event{Kind: EventShutdown, Change: "exit"})
		}
		if m.hooks.Exit != nil {
			m.hooks.Exit()
		}
		return nil
	}

	return m.mutate(text, func(st *State) error {
		return st.apply(cmd)
	})
}

// ── external surface lifecycle ───────────────────────────────────

// CreateWindow registers a new surface and returns its ID.
func (m *Manager) CreateWindow(attrs Attrs) WindowID {
	var id WindowID
	err := m.mutate("window-created", func(st *State) error {
		id = st.createWindow(attrs)
		return nil
	})
	if err != nil {
		return 0
	}
	m.log.Debug("window created", "id", id, "app_id", attrs.AppID, "title", attrs.Title)
	return id
}

// DestroyWindow removes a surface on its window-destroyed event.
func (m *Manager) DestroyWindow(win WindowID) {
	_ = m.mutate("window-destroyed", func(st *State) error {
		st.destroyWindow(win)
		return nil
	})
}

// RequestGeometry applies an advisory geometry change; only floating
// windows honor it.
func (m *Manager) RequestGeometry(win WindowID, rect layout.Rect) {
	_ = m.mutate("geometry-request", func(st *State) error {
		st.requestGeometry(win, rect)
		return nil
	})
}

// RequestAttention flags an unfocused window urgent.
func (m *Manager) RequestAttention(win WindowID) {
	_ = m.mutate("attention-request", func(st *State) error {
		st.requestAttention(win)
		return nil
	})
}

// UpdateTitle records a title change and re-announces the window.
func (m *Manager) UpdateTitle(win WindowID, title string) {
	_ = m.mutate("title-change", func(st *State) error {
		w := st.windows[win]
		if w == nil {
			return fmt.Errorf("no such window %d", win)
		}
		w.Title = title
		st.emit(Event{Kind: EventWindow, Change: "title", Window: win})
		return nil
	})
}

// AddOutput registers a display reported by the backend.
func (m *Manager) AddOutput(name string, rect layout.Rect, primary bool) {
	_ = m.mutate("output-added", func(st *State) error {
		st.addOutput(name, rect, primary)
		return nil
	})
	m.log.Info("output added", "name", name, "width", rect.Width, "height", rect.Height, "primary", primary)
}

// RemoveOutput drops a display; its workspaces migrate to the primary
// remaining output.
func (m *Manager) RemoveOutput(name string) {
	_ = m.mutate("output-removed", func(st *State) error {
		st.removeOutput(name)
		return nil
	})
	m.log.Info("output removed", "name", name)
}

// FocusedWindow returns the global focus pointer, zero when unset.
func (m *Manager) FocusedWindow() WindowID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.focused
}

// Assignments recomputes and returns the current geometry map.
func (m *Manager) Assignments() []Assignment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.assignments()
}
