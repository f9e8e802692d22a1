package wm

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/geket/lamella/internal/config"
	"github.com/geket/lamella/internal/layout"
)

type recorder struct {
	mu      sync.Mutex
	events  []Event
	assigns []Assignment
	closed  []WindowID
	execs   []string
	exited  bool
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		Exec: func(line string) {
			r.mu.Lock()
			r.execs = append(r.execs, line)
			r.mu.Unlock()
		},
		Exit: func() {
			r.mu.Lock()
			r.exited = true
			r.mu.Unlock()
		},
		Geometry: func(a []Assignment) {
			r.mu.Lock()
			r.assigns = a
			r.mu.Unlock()
		},
		Event: func(ev Event) {
			r.mu.Lock()
			r.events = append(r.events, ev)
			r.mu.Unlock()
		},
	}
}

func (r *recorder) hasEvent(kind EventKind, change string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.events {
		if ev.Kind == kind && ev.Change == change {
			return true
		}
	}
	return false
}

func (r *recorder) placement(win WindowID) (Assignment, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.assigns {
		if a.Window == win {
			return a, true
		}
	}
	return Assignment{}, false
}

// newTestManager builds a manager with one 1920x1080 output and no
// backend, the headless arrangement the daemon falls back to.
func newTestManager(t *testing.T, cfg *config.Config) (*Manager, *recorder) {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
		cfg.Gaps = config.Gaps{} // geometry assertions are simpler without gaps
	}
	rec := &recorder{}
	m := New(cfg, slog.Default(), rec.hooks())
	m.AddOutput("test-output", layout.Rect{Width: 1920, Height: 1080}, true)
	return m, rec
}

func mapWindow(t *testing.T, m *Manager, appID, title string) WindowID {
	t.Helper()
	id := m.CreateWindow(Attrs{AppID: appID, Title: title, Geometry: layout.Rect{Width: 800, Height: 600}})
	if id == 0 {
		t.Fatalf("create window failed")
	}
	return id
}

func runOK(t *testing.T, m *Manager, text string) {
	t.Helper()
	for _, res := range m.RunCommand(text) {
		if !res.Success {
			t.Fatalf("command %q failed: %+v", text, res)
		}
	}
}

func TestWorkspaceSwitchingChangesFocus(t *testing.T) {
	m, rec := newTestManager(t, nil)
	w1 := mapWindow(t, m, "term", "Terminal")
	if m.FocusedWindow() != w1 {
		t.Fatalf("focused = %d, want %d", m.FocusedWindow(), w1)
	}

	runOK(t, m, "workspace 2")
	if !rec.hasEvent(EventWorkspace, "focus") {
		t.Fatalf("expected workspace focus event")
	}
	if m.FocusedWindow() != 0 {
		t.Fatalf("empty workspace should clear focus, got %d", m.FocusedWindow())
	}

	var ws1, ws2 WorkspaceInfo
	for _, ws := range m.Workspaces() {
		switch ws.Name {
		case "1":
			ws1 = ws
		case "2":
			ws2 = ws
		}
	}
	if !ws2.Visible || !ws2.Focused {
		t.Fatalf("workspace 2 should be visible and focused: %+v", ws2)
	}
	if ws1.Visible {
		t.Fatalf("workspace 1 should no longer be visible: %+v", ws1)
	}
}

func TestTiledWindowsAllReceiveGeometry(t *testing.T) {
	m, rec := newTestManager(t, nil)
	wins := []WindowID{
		mapWindow(t, m, "app1", "App 1"),
		mapWindow(t, m, "app2", "App 2"),
		mapWindow(t, m, "app3", "App 3"),
	}
	if m.FocusedWindow() != wins[2] {
		t.Fatalf("last mapped window should be focused")
	}
	for _, win := range wins {
		a, ok := rec.placement(win)
		if !ok {
			t.Fatalf("window %d missing from assignments", win)
		}
		if !a.Visible {
			t.Fatalf("window %d should be visible", win)
		}
		if a.Rect.Width <= 0 || a.Rect.Height <= 0 {
			t.Fatalf("window %d has degenerate geometry %+v", win, a.Rect)
		}
	}
}

func TestFloatingTogglePreservesFocus(t *testing.T) {
	m, rec := newTestManager(t, nil)
	w1 := mapWindow(t, m, "editor", "Editor")

	runOK(t, m, "floating toggle")
	if !rec.hasEvent(EventWindow, "floating") {
		t.Fatalf("expected floating event")
	}
	if m.FocusedWindow() != w1 {
		t.Fatalf("focus lost after floating toggle")
	}
	a, _ := rec.placement(w1)
	if !a.Visible {
		t.Fatalf("floating window should stay visible")
	}

	runOK(t, m, "floating toggle")
	if m.FocusedWindow() != w1 {
		t.Fatalf("focus lost after tiling back")
	}
	a, _ = rec.placement(w1)
	// Back in the tree, the sole window fills the output.
	if a.Rect.Width != 1920 {
		t.Fatalf("retiled window = %+v, want full width", a.Rect)
	}
}

func TestScratchpadSendAndToggle(t *testing.T) {
	m, rec := newTestManager(t, nil)
	w1 := mapWindow(t, m, "term", "Terminal")
	w2 := mapWindow(t, m, "browser", "Browser")

	runOK(t, m, "move scratchpad")
	if a, _ := rec.placement(w2); a.Visible {
		t.Fatalf("scratchpad window should be hidden")
	}
	if m.FocusedWindow() != w1 {
		t.Fatalf("focus should fall back to the remaining window")
	}

	runOK(t, m, "scratchpad show")
	if m.FocusedWindow() != w2 {
		t.Fatalf("shown scratchpad window should take focus")
	}
	a, _ := rec.placement(w2)
	if !a.Visible {
		t.Fatalf("shown scratchpad window should be visible")
	}
	// Centered on the 1920x1080 output.
	if a.Rect.X != (1920-a.Rect.Width)/2 {
		t.Fatalf("scratchpad window not centered: %+v", a.Rect)
	}

	// Showing again re-hides.
	runOK(t, m, "scratchpad show")
	if a, _ := rec.placement(w2); a.Visible {
		t.Fatalf("second show should re-hide the window")
	}
	if m.FocusedWindow() != w1 {
		t.Fatalf("focus should return to the tiled window")
	}
}

func TestFloatingToggleTilesShownScratchpadWindow(t *testing.T) {
	m, rec := newTestManager(t, nil)
	mapWindow(t, m, "term", "Terminal")
	w2 := mapWindow(t, m, "browser", "Browser")

	runOK(t, m, "move scratchpad")
	runOK(t, m, "scratchpad show")
	runOK(t, m, "floating toggle")

	m.mu.RLock()
	w := m.st.windows[w2]
	inScratchpad := false
	for _, id := range m.st.scratchpad {
		if id == w2 {
			inScratchpad = true
		}
	}
	err := m.st.validate()
	m.mu.RUnlock()

	if inScratchpad {
		t.Fatalf("tiled window should have left the scratchpad")
	}
	if w.Floating || w.Hidden {
		t.Fatalf("window state = floating:%v hidden:%v, want tiled and visible", w.Floating, w.Hidden)
	}
	if err != nil {
		t.Fatalf("invariants violated: %v", err)
	}
	// Both windows tile side by side again.
	a, _ := rec.placement(w2)
	if !a.Visible || a.Rect.Width != 960 {
		t.Fatalf("retiled window = %+v, want visible half width", a)
	}
}

func TestScratchpadShowPullsFromOtherWorkspace(t *testing.T) {
	m, rec := newTestManager(t, nil)
	mapWindow(t, m, "term", "Terminal")
	w2 := mapWindow(t, m, "browser", "Browser")

	runOK(t, m, "move scratchpad")
	runOK(t, m, "scratchpad show")
	runOK(t, m, "workspace 2")
	runOK(t, m, "scratchpad show")

	m.mu.RLock()
	w := m.st.windows[w2]
	m.mu.RUnlock()
	if w.Hidden {
		t.Fatalf("show on another workspace should pull the window, not hide it")
	}
	if w.Workspace != "2" {
		t.Fatalf("window workspace = %q, want 2", w.Workspace)
	}
	if m.FocusedWindow() != w2 {
		t.Fatalf("pulled scratchpad window should take focus")
	}
	if a, _ := rec.placement(w2); !a.Visible {
		t.Fatalf("pulled scratchpad window should be visible")
	}

	// Another show on the same workspace re-hides as usual.
	runOK(t, m, "scratchpad show")
	if a, _ := rec.placement(w2); a.Visible {
		t.Fatalf("show on the owning workspace should re-hide")
	}
}

func TestMoveAtBoundaryIsNoOp(t *testing.T) {
	m, rec := newTestManager(t, nil)
	w1 := mapWindow(t, m, "term", "Terminal")

	runOK(t, m, "move left")
	if rec.hasEvent(EventWindow, "move") {
		t.Fatalf("boundary move should not announce a move")
	}
	if m.FocusedWindow() != w1 {
		t.Fatalf("focus changed on a boundary move")
	}
}

func TestMarksSetFocusAndSteal(t *testing.T) {
	m, _ := newTestManager(t, nil)
	w1 := mapWindow(t, m, "editor", "Editor")
	w2 := mapWindow(t, m, "term", "Terminal")

	runOK(t, m, "mark a") // on w2
	runOK(t, m, "focus left")
	if m.FocusedWindow() != w1 {
		t.Fatalf("focus left should reach w1")
	}
	runOK(t, m, "mark a") // steal onto w1

	runOK(t, m, "focus mark a")
	if m.FocusedWindow() != w1 {
		t.Fatalf("mark should have been stolen by w1, focus = %d", m.FocusedWindow())
	}
	if marks := m.Marks(); len(marks) != 1 || marks[0] != "a" {
		t.Fatalf("marks = %v, want [a]", marks)
	}

	// Focus mark switches workspaces when needed.
	runOK(t, m, "workspace 5")
	runOK(t, m, "focus mark a")
	if m.FocusedWindow() != w1 {
		t.Fatalf("focus mark should cross workspaces")
	}
	_ = w2
}

func TestDestroyCleansState(t *testing.T) {
	m, rec := newTestManager(t, nil)
	w1 := mapWindow(t, m, "app", "App")
	runOK(t, m, "mark x")

	m.DestroyWindow(w1)
	if !rec.hasEvent(EventWindow, "close") {
		t.Fatalf("expected close event")
	}
	if m.FocusedWindow() != 0 {
		t.Fatalf("focus should clear after the last window closes")
	}
	if marks := m.Marks(); len(marks) != 0 {
		t.Fatalf("mark should be cleaned up, got %v", marks)
	}
}

func TestMoveWindowToWorkspace(t *testing.T) {
	m, _ := newTestManager(t, nil)
	w1 := mapWindow(t, m, "app", "App")

	runOK(t, m, "move container to workspace 3")
	var found string
	for _, ws := range m.Workspaces() {
		if ws.Name == "3" {
			found = ws.Name
		}
	}
	if found == "" {
		t.Fatalf("workspace 3 should exist after the move")
	}
	if m.FocusedWindow() != 0 {
		t.Fatalf("focus should stay on the now-empty source workspace")
	}

	runOK(t, m, "workspace 3")
	if m.FocusedWindow() != w1 {
		t.Fatalf("window should be focused on its new workspace")
	}
}

func TestWorkspaceBackAndForth(t *testing.T) {
	m, _ := newTestManager(t, nil)
	mapWindow(t, m, "a", "A")
	runOK(t, m, "workspace 2")
	mapWindow(t, m, "b", "B")

	runOK(t, m, "workspace back_and_forth")
	if ws := activeWorkspaceName(m); ws != "1" {
		t.Fatalf("active workspace = %q, want 1", ws)
	}
	runOK(t, m, "workspace back_and_forth")
	if ws := activeWorkspaceName(m); ws != "2" {
		t.Fatalf("active workspace = %q, want 2", ws)
	}
}

func activeWorkspaceName(m *Manager) string {
	for _, ws := range m.Workspaces() {
		if ws.Focused {
			return ws.Name
		}
	}
	return ""
}

func TestBackAndForthWithoutHistoryIsNoOp(t *testing.T) {
	m, _ := newTestManager(t, nil)
	mapWindow(t, m, "a", "A")
	runOK(t, m, "workspace back_and_forth")
	if ws := activeWorkspaceName(m); ws != "1" {
		t.Fatalf("active workspace = %q, want 1", ws)
	}
}

func TestFocusHistoryNoConsecutiveDuplicates(t *testing.T) {
	m, _ := newTestManager(t, nil)
	w1 := mapWindow(t, m, "a", "A")
	w2 := mapWindow(t, m, "b", "B")

	// Bounce focus between the two windows several times.
	for i := 0; i < 4; i++ {
		runOK(t, m, "focus left")
		runOK(t, m, "focus right")
	}
	m.mu.RLock()
	history := append([]WindowID(nil), m.st.history...)
	m.mu.RUnlock()
	for i := 1; i < len(history); i++ {
		if history[i] == history[i-1] {
			t.Fatalf("history has consecutive duplicate: %v", history)
		}
	}

	runOK(t, m, "focus back")
	if got := m.FocusedWindow(); got != w1 && got != w2 {
		t.Fatalf("focus back landed on %d", got)
	}
	if m.FocusedWindow() == w2 {
		t.Fatalf("focus back should leave the current window")
	}
}

func TestUrgencyClearedOnFocus(t *testing.T) {
	m, rec := newTestManager(t, nil)
	w1 := mapWindow(t, m, "a", "A")
	mapWindow(t, m, "b", "B")

	m.RequestAttention(w1)
	if !rec.hasEvent(EventWindow, "urgent") {
		t.Fatalf("expected urgent event")
	}
	a, _ := rec.placement(w1)
	if !a.Urgent {
		t.Fatalf("window should be urgent")
	}

	runOK(t, m, "focus left")
	a, _ = rec.placement(w1)
	if a.Urgent {
		t.Fatalf("urgency should clear the instant the window is focused")
	}
}

func TestAttentionOnFocusedWindowIgnored(t *testing.T) {
	m, rec := newTestManager(t, nil)
	w1 := mapWindow(t, m, "a", "A")
	m.RequestAttention(w1)
	if a, _ := rec.placement(w1); a.Urgent {
		t.Fatalf("focused window must not become urgent")
	}
}

func TestWindowRulesApplyInOrder(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Gaps = config.Gaps{}
	cfg.Rules = []config.Rule{
		{Match: config.Criteria{AppID: "mpv"}, Commands: []string{"move container to workspace 9"}},
		{Match: config.Criteria{AppID: "mpv"}, Commands: []string{"floating enable"}},
	}
	m, _ := newTestManager(t, cfg)
	mapWindow(t, m, "term", "Terminal")
	w := m.CreateWindow(Attrs{AppID: "mpv", Title: "Video"})

	runOK(t, m, "workspace 9")
	if m.FocusedWindow() != w {
		t.Fatalf("rule window should be on workspace 9")
	}
	m.mu.RLock()
	floating := m.st.windows[w].Floating
	m.mu.RUnlock()
	if !floating {
		t.Fatalf("second rule should still apply after the first moved the window")
	}
}

func TestDialogWindowsFloatByDefault(t *testing.T) {
	m, _ := newTestManager(t, nil)
	mapWindow(t, m, "app", "App")
	d := m.CreateWindow(Attrs{AppID: "app", Title: "Open File", Type: TypeDialog})
	m.mu.RLock()
	floating := m.st.windows[d].Floating
	m.mu.RUnlock()
	if !floating {
		t.Fatalf("dialog should start floating")
	}
}

func TestKillWithoutBackendDestroys(t *testing.T) {
	m, _ := newTestManager(t, nil)
	mapWindow(t, m, "a", "A")
	runOK(t, m, "kill")
	if m.FocusedWindow() != 0 {
		t.Fatalf("window should be gone after kill")
	}
}

func TestFullscreenSavesAndRestoresGeometry(t *testing.T) {
	m, rec := newTestManager(t, nil)
	w := mapWindow(t, m, "a", "A")
	runOK(t, m, "floating enable")
	before, _ := rec.placement(w)

	runOK(t, m, "fullscreen toggle")
	a, _ := rec.placement(w)
	if a.Rect != (layout.Rect{Width: 1920, Height: 1080}) {
		t.Fatalf("fullscreen geometry = %+v, want the full output", a.Rect)
	}

	runOK(t, m, "fullscreen toggle")
	a, _ = rec.placement(w)
	if a.Rect != before.Rect {
		t.Fatalf("geometry after fullscreen = %+v, want restored %+v", a.Rect, before.Rect)
	}
}

func TestStickyStaysVisibleAcrossWorkspaces(t *testing.T) {
	m, rec := newTestManager(t, nil)
	w := mapWindow(t, m, "pip", "Picture in Picture")
	runOK(t, m, "floating enable; sticky enable")

	runOK(t, m, "workspace 2")
	a, ok := rec.placement(w)
	if !ok || !a.Visible {
		t.Fatalf("sticky window should stay visible on workspace 2: %+v", a)
	}
}

func TestResizeAdjustsSplit(t *testing.T) {
	m, rec := newTestManager(t, nil)
	w1 := mapWindow(t, m, "a", "A")
	w2 := mapWindow(t, m, "b", "B")

	runOK(t, m, "resize grow width 200")
	a1, _ := rec.placement(w1)
	a2, _ := rec.placement(w2)
	// w2 grew by 200/1000 of the span: 0.7 vs 0.3.
	if a2.Rect.Width <= a1.Rect.Width {
		t.Fatalf("focused window should be wider: %d vs %d", a2.Rect.Width, a1.Rect.Width)
	}
}

func TestRequestGeometryAdvisoryOnly(t *testing.T) {
	m, rec := newTestManager(t, nil)
	w := mapWindow(t, m, "a", "A")

	m.RequestGeometry(w, layout.Rect{X: 5, Y: 5, Width: 100, Height: 100})
	a, _ := rec.placement(w)
	if a.Rect.Width == 100 {
		t.Fatalf("tiled window must not honor geometry requests")
	}

	runOK(t, m, "floating enable")
	m.RequestGeometry(w, layout.Rect{X: 5, Y: 5, Width: 400, Height: 300})
	a, _ = rec.placement(w)
	if a.Rect != (layout.Rect{X: 5, Y: 5, Width: 400, Height: 300}) {
		t.Fatalf("floating window should honor geometry requests, got %+v", a.Rect)
	}
}

func TestRunCommandResults(t *testing.T) {
	m, _ := newTestManager(t, nil)
	mapWindow(t, m, "a", "A")

	results := m.RunCommand("workspace 2; frobnicate; focus mark nope")
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	if !results[0].Success {
		t.Fatalf("workspace 2 should succeed: %+v", results[0])
	}
	if results[1].Success || !results[1].ParseError {
		t.Fatalf("unknown command should be a parse error: %+v", results[1])
	}
	if results[2].Success || results[2].ParseError || results[2].Error == "" {
		t.Fatalf("missing mark should be a command error: %+v", results[2])
	}
}

func TestExecAndExitHooks(t *testing.T) {
	m, rec := newTestManager(t, nil)
	runOK(t, m, "exec foot --login")
	rec.mu.Lock()
	execs := append([]string(nil), rec.execs...)
	rec.mu.Unlock()
	if len(execs) != 1 || execs[0] != "foot --login" {
		t.Fatalf("execs = %v", execs)
	}

	runOK(t, m, "exit")
	rec.mu.Lock()
	exited := rec.exited
	rec.mu.Unlock()
	if !exited {
		t.Fatalf("exit hook not invoked")
	}
	if !rec.hasEvent(EventShutdown, "exit") {
		t.Fatalf("expected shutdown event")
	}
}

func TestOutputRemovalMigratesWorkspaces(t *testing.T) {
	m, _ := newTestManager(t, nil)
	m.AddOutput("ext", layout.Rect{X: 1920, Width: 1280, Height: 1024}, false)
	mapWindow(t, m, "a", "A")

	m.RemoveOutput("ext")
	for _, ws := range m.Workspaces() {
		if ws.Output != "test-output" {
			t.Fatalf("workspace %q still on removed output %q", ws.Name, ws.Output)
		}
	}
	outs := m.Outputs()
	if len(outs) != 1 || outs[0].Name != "test-output" {
		t.Fatalf("outputs = %+v", outs)
	}
}

func TestTreeQueryShape(t *testing.T) {
	m, _ := newTestManager(t, nil)
	w1 := mapWindow(t, m, "a", "App A")
	mapWindow(t, m, "b", "App B")
	runOK(t, m, "mark here")

	tree := m.Tree()
	if tree.Type != "root" || len(tree.Nodes) != 1 {
		t.Fatalf("root = %+v", tree)
	}
	output := tree.Nodes[0]
	if output.Type != "output" || output.Name != "test-output" {
		t.Fatalf("output node = %+v", output)
	}
	if len(output.Nodes) != 1 || output.Nodes[0].Type != "workspace" {
		t.Fatalf("workspace node missing: %+v", output.Nodes)
	}
	ws := output.Nodes[0]
	if len(ws.Nodes) != 1 || ws.Nodes[0].Layout != "splith" {
		t.Fatalf("workspace should hold one splith container: %+v", ws.Nodes)
	}
	split := ws.Nodes[0]
	if len(split.Nodes) != 2 {
		t.Fatalf("split should hold two leaves: %+v", split.Nodes)
	}
	var focused, marked int
	for _, leaf := range split.Nodes {
		if leaf.Focused {
			focused++
		}
		if len(leaf.Marks) == 1 && leaf.Marks[0] == "here" {
			marked++
		}
	}
	if focused != 1 {
		t.Fatalf("exactly one leaf should be focused")
	}
	if marked != 1 {
		t.Fatalf("exactly one leaf should carry the mark")
	}
	_ = w1
}

func TestVersionQuery(t *testing.T) {
	m, _ := newTestManager(t, nil)
	m.SetConfigPath("/home/u/.config/lamella/config.yaml")
	v := m.Version()
	if v.HumanReadable == "" || v.LoadedConfigFileName == "" {
		t.Fatalf("version = %+v", v)
	}
}

func TestInvariantsHoldAfterMixedOperations(t *testing.T) {
	m, _ := newTestManager(t, nil)
	w1 := mapWindow(t, m, "a", "A")
	mapWindow(t, m, "b", "B")
	w3 := mapWindow(t, m, "c", "C")

	runOK(t, m, "workspace 2")
	mapWindow(t, m, "d", "D")
	runOK(t, m, "move container to workspace 3")
	runOK(t, m, "workspace 1")
	runOK(t, m, "mark m1")
	runOK(t, m, "focus left")
	runOK(t, m, "mark m2")
	runOK(t, m, "floating toggle")

	m.mu.RLock()
	focused := m.st.focused
	m.mu.RUnlock()
	if focused == w3 {
		t.Fatalf("setup should have moved focus off w3")
	}

	// Send a window to the scratchpad, then unmap another.
	runOK(t, m, "move scratchpad")
	m.DestroyWindow(w1)

	m.mu.RLock()
	err := m.st.validate()
	m.mu.RUnlock()
	if err != nil {
		t.Fatalf("invariants violated: %v", err)
	}
}
