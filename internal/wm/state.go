package wm

import (
	"fmt"

	"github.com/geket/lamella/internal/config"
	"github.com/geket/lamella/internal/layout"
)

// State owns every output, workspace and window and is the only place
// the container trees are mutated. It is not safe for concurrent use;
// the Manager serializes access and handles atomicity by mutating a
// clone and swapping it in.
type State struct {
	cfg *config.Config

	outputs    []*Output
	workspaces map[string]*Workspace
	windows    map[WindowID]*Window

	focused      WindowID
	activeOutput string

	// scope is an explicit container selection set by "focus parent" /
	// "focus child"; split and layout commands target it. Any focus or
	// tree mutation resets it to the focused leaf.
	scope layout.NodeID

	history    []WindowID
	marks      map[string]WindowID
	scratchpad []WindowID // membership in push order; Hidden flags say which are shown

	lastWorkspace string
	nextID        WindowID

	events []Event
}

func newState(cfg *config.Config) *State {
	return &State{
		cfg:        cfg,
		workspaces: make(map[string]*Workspace),
		windows:    make(map[WindowID]*Window),
		marks:      make(map[string]WindowID),
		nextID:     1,
	}
}

func (st *State) clone() *State {
	cp := &State{
		cfg:           st.cfg,
		outputs:       make([]*Output, len(st.outputs)),
		workspaces:    make(map[string]*Workspace, len(st.workspaces)),
		windows:       make(map[WindowID]*Window, len(st.windows)),
		focused:       st.focused,
		activeOutput:  st.activeOutput,
		scope:         st.scope,
		history:       append([]WindowID(nil), st.history...),
		marks:         make(map[string]WindowID, len(st.marks)),
		scratchpad:    append([]WindowID(nil), st.scratchpad...),
		lastWorkspace: st.lastWorkspace,
		nextID:        st.nextID,
	}
	for i, o := range st.outputs {
		cp.outputs[i] = o.clone()
	}
	for name, ws := range st.workspaces {
		cp.workspaces[name] = ws.clone()
	}
	for id, w := range st.windows {
		cp.windows[id] = w.clone()
	}
	for name, id := range st.marks {
		cp.marks[name] = id
	}
	return cp
}

func (st *State) emit(ev Event) {
	st.events = append(st.events, ev)
}

func (st *State) drainEvents() []Event {
	evs := st.events
	st.events = nil
	return evs
}

// ── outputs ──────────────────────────────────────────────────────

func (st *State) output(name string) *Output {
	for _, o := range st.outputs {
		if o.Name == name {
			return o
		}
	}
	return nil
}

func (st *State) currentOutput() *Output {
	if o := st.output(st.activeOutput); o != nil {
		return o
	}
	if len(st.outputs) > 0 {
		return st.outputs[0]
	}
	return nil
}

func (st *State) primaryOutput() *Output {
	for _, o := range st.outputs {
		if o.Primary {
			return o
		}
	}
	if len(st.outputs) > 0 {
		return st.outputs[0]
	}
	return nil
}

// addOutput registers a display. Its first workspace is created lazily
// with the lowest unused number.
func (st *State) addOutput(name string, geom layout.Rect, primary bool) {
	if st.output(name) != nil {
		return
	}
	o := &Output{Name: name, Geometry: geom, Primary: primary}
	st.outputs = append(st.outputs, o)
	ws := st.createWorkspace(st.nextWorkspaceName(), name)
	o.Active = ws.Name
	if st.activeOutput == "" {
		st.activeOutput = name
	}
	st.emit(Event{Kind: EventOutput, Change: "unspecified"})
}

// removeOutput migrates the dead output's workspaces to the primary
// remaining output.
func (st *State) removeOutput(name string) {
	idx := -1
	for i, o := range st.outputs {
		if o.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	st.outputs = append(st.outputs[:idx], st.outputs[idx+1:]...)
	target := st.primaryOutput()
	if target == nil {
		st.activeOutput = ""
		st.emit(Event{Kind: EventOutput, Change: "unspecified"})
		return
	}
	for _, ws := range st.workspaces {
		if ws.Output == name {
			ws.Output = target.Name
		}
	}
	if st.activeOutput == name {
		st.activeOutput = target.Name
	}
	st.emit(Event{Kind: EventOutput, Change: "unspecified"})
}

func (st *State) nextWorkspaceName() string {
	for n := 1; ; n++ {
		name := fmt.Sprintf("%d", n)
		if _, ok := st.workspaces[name]; !ok {
			return name
		}
	}
}

// ── workspaces ───────────────────────────────────────────────────

func (st *State) createWorkspace(name, output string) *Workspace {
	ws := newWorkspace(name, output)
	st.workspaces[name] = ws
	st.emit(Event{Kind: EventWorkspace, Change: "init", Workspace: name})
	return ws
}

// ensureWorkspace returns the named workspace, creating it on the
// current output on first reference.
func (st *State) ensureWorkspace(name string) *Workspace {
	if ws, ok := st.workspaces[name]; ok {
		return ws
	}
	out := st.currentOutput()
	outName := ""
	if out != nil {
		outName = out.Name
	}
	return st.createWorkspace(name, outName)
}

func (st *State) activeWorkspace() *Workspace {
	o := st.currentOutput()
	if o == nil {
		return nil
	}
	return st.workspaces[o.Active]
}

func (st *State) workspaceNames() []string {
	names := make([]string, 0, len(st.workspaces))
	for name := range st.workspaces {
		names = append(names, name)
	}
	sortWorkspaceNames(names)
	return names
}

// visible reports whether ws is the active workspace of its output.
func (st *State) visible(ws *Workspace) bool {
	o := st.output(ws.Output)
	return o != nil && o.Active == ws.Name
}

// gcWorkspaces drops workspaces that are empty and not shown anywhere.
func (st *State) gcWorkspaces() {
	for name, ws := range st.workspaces {
		if ws.Empty() && !st.visible(ws) && !st.scratchpadShownOn(name) {
			delete(st.workspaces, name)
			if st.lastWorkspace == name {
				st.lastWorkspace = ""
			}
			st.emit(Event{Kind: EventWorkspace, Change: "empty", Workspace: name})
		}
	}
}

func (st *State) scratchpadShownOn(wsName string) bool {
	for _, id := range st.scratchpad {
		if w := st.windows[id]; w != nil && !w.Hidden && w.Workspace == wsName {
			return true
		}
	}
	return false
}

func (st *State) resolveWorkspaceTarget(target string) (string, error) {
	switch target {
	case "next", "prev":
		names := st.workspaceNames()
		if len(names) == 0 {
			return "", fmt.Errorf("no workspaces")
		}
		cur := ""
		if ws := st.activeWorkspace(); ws != nil {
			cur = ws.Name
		}
		idx := 0
		for i, n := range names {
			if n == cur {
				idx = i
				break
			}
		}
		if target == "next" {
			return names[(idx+1)%len(names)], nil
		}
		return names[(idx-1+len(names))%len(names)], nil
	case "back_and_forth":
		if st.lastWorkspace == "" {
			return "", nil // no-op, not an error
		}
		return st.lastWorkspace, nil
	case "":
		return "", fmt.Errorf("empty workspace target")
	}
	return target, nil
}

// switchWorkspace makes the target workspace active on the current
// output and focuses its most recently focused window.
func (st *State) switchWorkspace(target string) error {
	name, err := st.resolveWorkspaceTarget(target)
	if err != nil {
		return err
	}
	if name == "" {
		return nil // back_and_forth with no history
	}
	cur := st.activeWorkspace()
	if cur != nil && cur.Name == name {
		return nil
	}
	ws := st.ensureWorkspace(name)
	out := st.output(ws.Output)
	if out == nil {
		out = st.currentOutput()
		if out == nil {
			return fmt.Errorf("no outputs")
		}
		ws.Output = out.Name
	}
	old := ""
	if cur != nil {
		old = cur.Name
		st.lastWorkspace = old
	}
	out.Active = name
	st.activeOutput = out.Name
	st.emit(Event{Kind: EventWorkspace, Change: "focus", Workspace: name, Old: old})

	st.focusWithin(ws)
	st.gcWorkspaces()
	return nil
}

// focusWithin focuses the workspace's most recently focused window, or
// clears focus when it is empty.
func (st *State) focusWithin(ws *Workspace) {
	if ws.LastFocused != 0 && ws.Contains(ws.LastFocused) {
		st.setFocus(ws.LastFocused)
		return
	}
	if win := ws.Tree.FocusedWindow(); win != 0 {
		st.setFocus(win)
		return
	}
	if len(ws.Floating) > 0 {
		st.setFocus(ws.Floating[len(ws.Floating)-1])
		return
	}
	st.focused = 0
	st.scope = 0
}

// ── focus ────────────────────────────────────────────────────────

func (st *State) pushHistory(id WindowID) {
	if len(st.history) > 0 && st.history[len(st.history)-1] == id {
		return
	}
	st.history = append(st.history, id)
	depth := st.cfg.FocusHistoryDepth
	if depth < 1 {
		depth = 32
	}
	if len(st.history) > depth {
		st.history = st.history[len(st.history)-depth:]
	}
}

// setFocus points the global focus at win, records history, clears
// urgency and realigns the tree focus chain. The caller is responsible
// for making win's workspace visible first.
func (st *State) setFocus(win WindowID) {
	w := st.windows[win]
	if w == nil {
		return
	}
	st.focused = win
	st.scope = 0
	st.pushHistory(win)
	if w.Urgent {
		w.Urgent = false
		st.emit(Event{Kind: EventWindow, Change: "urgent", Window: win})
	}
	if ws := st.workspaceOf(win); ws != nil {
		ws.LastFocused = win
		ws.Tree.SetFocus(win)
	}
	st.emit(Event{Kind: EventWindow, Change: "focus", Window: win})
}

// focusWindow focuses win, switching to its workspace when needed.
func (st *State) focusWindow(win WindowID) error {
	w := st.windows[win]
	if w == nil {
		return fmt.Errorf("no such window %d", win)
	}
	if ws := st.workspaceOf(win); ws != nil && !st.visible(ws) {
		if err := st.switchWorkspace(ws.Name); err != nil {
			return err
		}
	}
	st.setFocus(win)
	return nil
}

func (st *State) workspaceOf(win WindowID) *Workspace {
	w := st.windows[win]
	if w == nil || w.Workspace == "" {
		return nil
	}
	return st.workspaces[w.Workspace]
}

func (st *State) focusDir(dir layout.Direction) error {
	ws := st.activeWorkspace()
	if ws == nil || st.focused == 0 {
		return fmt.Errorf("nothing focused")
	}
	w := st.windows[st.focused]
	if w.Floating || ws.Tree.FindLeaf(st.focused) == 0 {
		return nil // directional focus only navigates the tiling tree
	}
	win, ok := ws.Tree.MoveFocus(dir)
	if !ok {
		return nil // boundary: focus unchanged
	}
	st.setFocus(win)
	return nil
}

func (st *State) focusParent() error {
	ws := st.activeWorkspace()
	if ws == nil {
		return fmt.Errorf("nothing focused")
	}
	cur := st.scope
	if cur == 0 {
		cur = ws.Tree.FocusedLeaf()
	}
	n := ws.Tree.Node(cur)
	if n == nil || n.Parent == 0 {
		return nil
	}
	st.scope = n.Parent
	return nil
}

func (st *State) focusChild() error {
	ws := st.activeWorkspace()
	if ws == nil || st.scope == 0 {
		return nil
	}
	n := ws.Tree.Node(st.scope)
	if n == nil || n.Kind == layout.KindLeaf {
		st.scope = 0
		return nil
	}
	st.scope = n.Children[n.Focused]
	if ws.Tree.Node(st.scope).Kind == layout.KindLeaf {
		st.scope = 0
	}
	return nil
}

// focusBack returns focus to the most recent still-living window in
// the history other than the current one.
func (st *State) focusBack() error {
	for i := len(st.history) - 1; i >= 0; i-- {
		id := st.history[i]
		if id == st.focused {
			continue
		}
		if w := st.windows[id]; w != nil && w.Workspace != "" {
			return st.focusWindow(id)
		}
	}
	return nil
}

// ── window lifecycle ─────────────────────────────────────────────

// insertTiled places win into ws's tree next to its focused leaf,
// inheriting the surrounding split orientation.
func (st *State) insertTiled(ws *Workspace, win WindowID) {
	target := ws.Tree.FocusedLeaf()
	dir := layout.DirRight
	if target != 0 {
		if p := ws.Tree.Node(ws.Tree.Node(target).Parent); p != nil && p.Kind == layout.KindSplitV {
			dir = layout.DirDown
		}
	}
	ws.Tree.Insert(target, win, dir)
}

// createWindow registers a new surface, applies type heuristics and
// window rules, and focuses it. Returns the issued ID.
func (st *State) createWindow(attrs Attrs) WindowID {
	id := st.nextID
	st.nextID++
	w := &Window{
		ID:       id,
		Title:    attrs.Title,
		AppID:    attrs.AppID,
		PID:      attrs.PID,
		Type:     attrs.Type,
		Geometry: attrs.Geometry,
	}
	if w.Type == "" {
		w.Type = TypeNormal
	}
	st.windows[id] = w

	ws := st.activeWorkspace()
	if ws == nil {
		// No outputs yet; park the window in the scratchpad.
		w.Floating = true
		w.Hidden = true
		st.scratchpad = append(st.scratchpad, id)
		st.emit(Event{Kind: EventWindow, Change: "new", Window: id})
		return id
	}
	w.Workspace = ws.Name
	if w.Type.ShouldFloat() {
		w.Floating = true
		st.centerOnOutput(w)
		ws.Floating = append(ws.Floating, id)
	} else {
		st.insertTiled(ws, id)
	}
	st.emit(Event{Kind: EventWindow, Change: "new", Window: id})
	st.setFocus(id)

	// All matching rules apply, in declaration order. Each rule command
	// targets the new window even when an earlier rule moved it off the
	// visible workspace, so focus is pinned for the duration.
	for _, rule := range st.cfg.Rules {
		if !MatchesCriteria(rule.Match, w) {
			continue
		}
		for _, line := range rule.Commands {
			cmd, err := ParseCommand(line)
			if err != nil {
				continue
			}
			if st.windows[id] == nil {
				return id
			}
			st.focused = id
			_ = st.apply(cmd) // rule failures never abort window creation
		}
	}
	// Settle focus: keep the window focused only if it is still visible.
	if st.windows[id] != nil {
		if ws := st.workspaceOf(id); ws != nil && st.visible(ws) {
			st.setFocus(id)
			return id
		}
	}
	st.focused = 0
	st.scope = 0
	if aws := st.activeWorkspace(); aws != nil {
		st.focusWithin(aws)
	}
	return id
}

func (st *State) centerOnOutput(w *Window) {
	o := st.currentOutput()
	if o == nil {
		return
	}
	if w.Geometry.Width <= 0 || w.Geometry.Height <= 0 {
		w.Geometry.Width = o.Geometry.Width / 2
		w.Geometry.Height = o.Geometry.Height / 2
	}
	w.Geometry.X = o.Geometry.X + (o.Geometry.Width-w.Geometry.Width)/2
	w.Geometry.Y = o.Geometry.Y + (o.Geometry.Height-w.Geometry.Height)/2
}

// destroyWindow removes win everywhere: tree, floating list,
// scratchpad, marks and history, then refocuses.
func (st *State) destroyWindow(win WindowID) {
	w := st.windows[win]
	if w == nil {
		return
	}
	if ws := st.workspaceOf(win); ws != nil {
		ws.Tree.Remove(win)
		ws.removeFloating(win)
		if ws.LastFocused == win {
			ws.LastFocused = 0
		}
	}
	st.removeFromScratchpad(win)
	for name, id := range st.marks {
		if id == win {
			delete(st.marks, name)
		}
	}
	filtered := st.history[:0]
	for _, id := range st.history {
		if id != win {
			filtered = append(filtered, id)
		}
	}
	st.history = filtered
	delete(st.windows, win)
	st.emit(Event{Kind: EventWindow, Change: "close", Window: win})

	if st.focused == win {
		st.focused = 0
		st.scope = 0
		if ws := st.activeWorkspace(); ws != nil {
			st.focusWithin(ws)
		}
	}
	st.gcWorkspaces()
}

func (st *State) removeFromScratchpad(win WindowID) {
	for i, id := range st.scratchpad {
		if id == win {
			st.scratchpad = append(st.scratchpad[:i], st.scratchpad[i+1:]...)
			return
		}
	}
}

// requestGeometry honors advisory geometry changes for floating
// windows only; tiled geometry is owned by the layout.
func (st *State) requestGeometry(win WindowID, rect layout.Rect) {
	w := st.windows[win]
	if w == nil || !w.Floating || w.Fullscreen {
		return
	}
	w.Geometry = rect
}

// requestAttention marks an unfocused window urgent.
func (st *State) requestAttention(win WindowID) {
	w := st.windows[win]
	if w == nil || win == st.focused || w.Urgent {
		return
	}
	w.Urgent = true
	st.emit(Event{Kind: EventWindow, Change: "urgent", Window: win})
}

// ── movement ─────────────────────────────────────────────────────

const floatingMoveStep = 30

func (st *State) moveDir(dir layout.Direction) error {
	if st.focused == 0 {
		return fmt.Errorf("nothing focused")
	}
	w := st.windows[st.focused]
	if w.Floating {
		switch dir {
		case layout.DirLeft:
			w.Geometry.X -= floatingMoveStep
		case layout.DirRight:
			w.Geometry.X += floatingMoveStep
		case layout.DirUp:
			w.Geometry.Y -= floatingMoveStep
		case layout.DirDown:
			w.Geometry.Y += floatingMoveStep
		}
		return nil
	}
	ws := st.activeWorkspace()
	if ws == nil {
		return fmt.Errorf("nothing focused")
	}
	if !ws.Tree.Swap(dir) {
		// Boundary move, nothing changed.
		return nil
	}
	st.scope = 0
	st.emit(Event{Kind: EventWindow, Change: "move", Window: st.focused})
	return nil
}

func (st *State) moveToWorkspace(target string) error {
	if st.focused == 0 {
		return fmt.Errorf("nothing focused")
	}
	name, err := st.resolveWorkspaceTarget(target)
	if err != nil || name == "" {
		return err
	}
	win := st.focused
	w := st.windows[win]
	src := st.workspaceOf(win)
	if src != nil && src.Name == name {
		return nil
	}
	dst := st.ensureWorkspace(name)
	if src != nil {
		src.Tree.Remove(win)
		src.removeFloating(win)
		if src.LastFocused == win {
			src.LastFocused = 0
		}
	}
	st.removeFromScratchpad(win)
	w.Workspace = dst.Name
	if w.Floating {
		dst.Floating = append(dst.Floating, win)
	} else {
		st.insertTiled(dst, win)
	}
	st.emit(Event{Kind: EventWindow, Change: "move", Window: win})

	// Focus stays on the source workspace.
	st.focused = 0
	st.scope = 0
	if src != nil {
		st.focusWithin(src)
	}
	st.gcWorkspaces()
	return nil
}

// ── scratchpad ───────────────────────────────────────────────────

func (st *State) moveToScratchpad() error {
	if st.focused == 0 {
		return fmt.Errorf("nothing focused")
	}
	win := st.focused
	w := st.windows[win]
	if src := st.workspaceOf(win); src != nil {
		src.Tree.Remove(win)
		src.removeFloating(win)
		if src.LastFocused == win {
			src.LastFocused = 0
		}
	}
	st.removeFromScratchpad(win) // re-push to the top
	st.scratchpad = append(st.scratchpad, win)
	w.Workspace = ""
	w.Floating = true
	w.Hidden = true
	w.Fullscreen = false
	st.emit(Event{Kind: EventWindow, Change: "move", Window: win})

	st.focused = 0
	st.scope = 0
	if ws := st.activeWorkspace(); ws != nil {
		st.focusWithin(ws)
	}
	st.gcWorkspaces()
	return nil
}

// scratchpadShow toggles the scratchpad: an entry shown on the active
// workspace is re-hidden, one shown elsewhere is pulled to the active
// workspace, otherwise the most recently hidden entry is presented
// floating and centered on the current output.
func (st *State) scratchpadShow() error {
	if len(st.scratchpad) == 0 {
		return fmt.Errorf("scratchpad is empty")
	}
	ws := st.activeWorkspace()
	if ws == nil {
		return fmt.Errorf("no active workspace")
	}
	for i := len(st.scratchpad) - 1; i >= 0; i-- {
		w := st.windows[st.scratchpad[i]]
		if w == nil || w.Hidden {
			continue
		}
		if w.Workspace == ws.Name {
			w.Hidden = true
			w.Workspace = ""
			if st.focused == w.ID {
				st.focused = 0
				st.scope = 0
				st.focusWithin(ws)
			}
		} else {
			w.Workspace = ws.Name
			st.centerOnOutput(w)
			st.setFocus(w.ID)
			st.gcWorkspaces()
		}
		return nil
	}
	for i := len(st.scratchpad) - 1; i >= 0; i-- {
		w := st.windows[st.scratchpad[i]]
		if w == nil || !w.Hidden {
			continue
		}
		w.Hidden = false
		w.Workspace = ws.Name
		st.centerOnOutput(w)
		st.setFocus(w.ID)
		return nil
	}
	return fmt.Errorf("scratchpad is empty")
}

// ── layout commands ──────────────────────────────────────────────

func (st *State) scopeNode(ws *Workspace) layout.NodeID {
	if st.scope != 0 && ws.Tree.Node(st.scope) != nil {
		return st.scope
	}
	return ws.Tree.FocusedLeaf()
}

func (st *State) splitCmd(arg string) error {
	ws := st.activeWorkspace()
	if ws == nil || ws.Tree.Empty() {
		return fmt.Errorf("nothing to split")
	}
	target := st.scopeNode(ws)
	if target == 0 {
		return fmt.Errorf("nothing to split")
	}
	kind := layout.KindSplitH
	switch arg {
	case "v":
		kind = layout.KindSplitV
	case "toggle":
		if p := ws.Tree.Node(ws.Tree.Node(target).Parent); p != nil && p.Kind == layout.KindSplitH {
			kind = layout.KindSplitV
		}
	}
	ws.Tree.Wrap(target, kind)
	st.scope = 0
	return nil
}

var layoutCycle = []layout.Kind{layout.KindSplitH, layout.KindSplitV, layout.KindTabbed, layout.KindStacked}

func (st *State) layoutCmd(arg string) error {
	ws := st.activeWorkspace()
	if ws == nil || ws.Tree.Empty() {
		return fmt.Errorf("no layout to change")
	}
	target := st.scopeNode(ws)
	n := ws.Tree.Node(target)
	if n == nil {
		return fmt.Errorf("no layout to change")
	}
	// Layout applies to the enclosing group; a bare root leaf is
	// wrapped first.
	group := n.Parent
	if n.Kind != layout.KindLeaf {
		group = n.ID
	}
	if group == 0 {
		group = ws.Tree.Wrap(n.ID, layout.KindSplitH)
	}
	g := ws.Tree.Node(group)

	var kind layout.Kind
	switch arg {
	case "default", "splith":
		kind = layout.KindSplitH
	case "splitv":
		kind = layout.KindSplitV
	case "tabbed":
		kind = layout.KindTabbed
	case "stacked":
		kind = layout.KindStacked
	case "toggle":
		kind = layoutCycle[0]
		for i, k := range layoutCycle {
			if g.Kind == k {
				kind = layoutCycle[(i+1)%len(layoutCycle)]
				break
			}
		}
	default:
		return fmt.Errorf("unknown layout %q", arg)
	}
	ws.Tree.SetGroupKind(group, kind)
	st.emit(Event{Kind: EventMode, Change: kind.String()})
	return nil
}

func (st *State) floatingSet(t Toggle) error {
	if st.focused == 0 {
		return fmt.Errorf("nothing focused")
	}
	w := st.windows[st.focused]
	ws := st.workspaceOf(st.focused)
	if ws == nil {
		return fmt.Errorf("window is in the scratchpad")
	}
	want := t.Apply(w.Floating)
	if want == w.Floating {
		return nil
	}
	// A shown scratchpad window leaves the scratchpad entirely and
	// becomes an ordinary window of its workspace.
	st.removeFromScratchpad(w.ID)
	w.Hidden = false
	if want {
		ws.Tree.Remove(w.ID)
		ws.Floating = append(ws.Floating, w.ID)
		w.Floating = true
		st.centerOnOutput(w)
	} else {
		ws.removeFloating(w.ID)
		w.Floating = false
		w.Sticky = false
		st.insertTiled(ws, w.ID)
	}
	st.scope = 0
	ws.Tree.SetFocus(w.ID)
	st.emit(Event{Kind: EventWindow, Change: "floating", Window: w.ID})
	return nil
}

func (st *State) fullscreenSet(t Toggle) error {
	if st.focused == 0 {
		return fmt.Errorf("nothing focused")
	}
	w := st.windows[st.focused]
	want := t.Apply(w.Fullscreen)
	if want == w.Fullscreen {
		return nil
	}
	if want {
		g := w.Geometry
		w.savedGeometry = &g
		w.Fullscreen = true
	} else {
		w.Fullscreen = false
		if w.savedGeometry != nil {
			w.Geometry = *w.savedGeometry
			w.savedGeometry = nil
		}
	}
	st.emit(Event{Kind: EventWindow, Change: "fullscreen_mode", Window: w.ID})
	return nil
}

// stickySet pins a floating window so it stays visible across
// workspace switches on its output.
func (st *State) stickySet(t Toggle) error {
	if st.focused == 0 {
		return fmt.Errorf("nothing focused")
	}
	w := st.windows[st.focused]
	if !w.Floating {
		return fmt.Errorf("only floating windows can be sticky")
	}
	w.Sticky = t.Apply(w.Sticky)
	return nil
}

// ── marks ────────────────────────────────────────────────────────

// markCmd binds name to the focused window; a mark is unique
// system-wide, so assigning steals it from any prior owner.
func (st *State) markCmd(name string) error {
	if st.focused == 0 {
		return fmt.Errorf("nothing focused")
	}
	st.marks[name] = st.focused
	st.emit(Event{Kind: EventWindow, Change: "mark", Window: st.focused})
	return nil
}

func (st *State) unmarkCmd(name string) error {
	if name != "" {
		delete(st.marks, name)
		return nil
	}
	// Bare unmark clears every mark on the focused window.
	for n, id := range st.marks {
		if id == st.focused {
			delete(st.marks, n)
		}
	}
	return nil
}

func (st *State) focusMark(name string) error {
	win, ok := st.marks[name]
	if !ok {
		return fmt.Errorf("no such mark %q", name)
	}
	w := st.windows[win]
	if w == nil {
		delete(st.marks, name)
		return fmt.Errorf("no such mark %q", name)
	}
	if w.Workspace == "" {
		// Marked window sits hidden in the scratchpad; surface it.
		return st.scratchpadSurface(win)
	}
	return st.focusWindow(win)
}

func (st *State) scratchpadSurface(win WindowID) error {
	ws := st.activeWorkspace()
	if ws == nil {
		return fmt.Errorf("no active workspace")
	}
	w := st.windows[win]
	w.Hidden = false
	w.Workspace = ws.Name
	st.centerOnOutput(w)
	st.setFocus(win)
	return nil
}

// marksOf returns the mark names bound to win, sorted.
func (st *State) marksOf(win WindowID) []string {
	var out []string
	for name, id := range st.marks {
		if id == win {
			out = append(out, name)
		}
	}
	return out
}

// ── resize ───────────────────────────────────────────────────────

// pixelsToRatio converts a pixel resize request into a ratio delta.
const pixelsToRatio = 1.0 / 1000.0

func (st *State) resizeCmd(cmd Command) error {
	if st.focused == 0 {
		return fmt.Errorf("nothing focused")
	}
	w := st.windows[st.focused]
	delta := float64(cmd.Px) * pixelsToRatio
	if !cmd.Grow {
		delta = -delta
	}
	if w.Floating {
		if cmd.Horizontal {
			w.Geometry.Width += int(delta * 1000)
		} else {
			w.Geometry.Height += int(delta * 1000)
		}
		if w.Geometry.Width < 50 {
			w.Geometry.Width = 50
		}
		if w.Geometry.Height < 50 {
			w.Geometry.Height = 50
		}
		return nil
	}
	ws := st.activeWorkspace()
	if ws == nil {
		return fmt.Errorf("nothing focused")
	}
	ws.Tree.Resize(cmd.Horizontal, delta)
	return nil
}

// ── command dispatch ─────────────────────────────────────────────

// apply executes one parsed command against the state. Exec, kill,
// reload and exit are side-effecting and handled by the Manager; here
// they are no-ops so rules containing them stay harmless.
func (st *State) apply(cmd Command) error {
	switch cmd.Op {
	case OpNop, OpExec, OpKill, OpReload, OpExit:
		return nil
	case OpFocusDir:
		return st.focusDir(cmd.Dir)
	case OpFocusParent:
		return st.focusParent()
	case OpFocusChild:
		return st.focusChild()
	case OpFocusMark:
		return st.focusMark(cmd.Arg)
	case OpFocusBack:
		return st.focusBack()
	case OpMoveDir:
		return st.moveDir(cmd.Dir)
	case OpMoveToWorkspace:
		return st.moveToWorkspace(cmd.Arg)
	case OpMoveToScratchpad:
		return st.moveToScratchpad()
	case OpSplit:
		return st.splitCmd(cmd.Arg)
	case OpLayout:
		return st.layoutCmd(cmd.Arg)
	case OpFloating:
		return st.floatingSet(cmd.Toggle)
	case OpFullscreen:
		return st.fullscreenSet(cmd.Toggle)
	case OpSticky:
		return st.stickySet(cmd.Toggle)
	case OpWorkspace:
		return st.switchWorkspace(cmd.Arg)
	case OpScratchpadShow:
		return st.scratchpadShow()
	case OpMark:
		return st.markCmd(cmd.Arg)
	case OpUnmark:
		return st.unmarkCmd(cmd.Arg)
	case OpResize:
		return st.resizeCmd(cmd)
	}
	return fmt.Errorf("unhandled command op %d", cmd.Op)
}

// ── invariants ───────────────────────────────────────────────────

// validate checks cross-cutting invariants after every mutation. A
// failure means the operation that produced this state is discarded.
func (st *State) validate() error {
	for name, ws := range st.workspaces {
		if err := ws.Tree.Validate(); err != nil {
			return fmt.Errorf("workspace %q: %w", name, err)
		}
		if st.output(ws.Output) == nil && len(st.outputs) > 0 {
			return fmt.Errorf("workspace %q bound to unknown output %q", name, ws.Output)
		}
		for _, win := range ws.Tree.Windows() {
			w := st.windows[win]
			if w == nil {
				return fmt.Errorf("workspace %q: tree holds unknown window %d", name, win)
			}
			if w.Workspace != name {
				return fmt.Errorf("window %d: in tree of %q but bound to %q", win, name, w.Workspace)
			}
			for _, s := range st.scratchpad {
				if s == win {
					return fmt.Errorf("window %d: in both a tree and the scratchpad", win)
				}
			}
		}
	}
	for _, o := range st.outputs {
		ws, ok := st.workspaces[o.Active]
		if !ok {
			return fmt.Errorf("output %q: active workspace %q missing", o.Name, o.Active)
		}
		if ws.Output != o.Name {
			return fmt.Errorf("output %q: active workspace %q bound to %q", o.Name, o.Active, ws.Output)
		}
	}
	if st.focused != 0 {
		w := st.windows[st.focused]
		if w == nil {
			return fmt.Errorf("focus points at unknown window %d", st.focused)
		}
		if ws := st.workspaceOf(st.focused); ws != nil && !st.visible(ws) {
			return fmt.Errorf("focused window %d on invisible workspace %q", st.focused, ws.Name)
		}
	}
	for name, id := range st.marks {
		if st.windows[id] == nil {
			return fmt.Errorf("mark %q points at unknown window %d", name, id)
		}
	}
	for _, id := range st.scratchpad {
		if st.windows[id] == nil {
			return fmt.Errorf("scratchpad holds unknown window %d", id)
		}
	}
	return nil
}

// ── geometry output ──────────────────────────────────────────────

// assignments computes the geometry map for the rendering backend and
// records each window's final box and visibility.
func (st *State) assignments() []Assignment {
	var out []Assignment
	seen := make(map[WindowID]bool)
	add := func(w *Window, rect layout.Rect, visible bool) {
		if seen[w.ID] {
			return
		}
		seen[w.ID] = true
		w.Geometry = rect
		w.Hidden = !visible
		out = append(out, Assignment{
			Window:  w.ID,
			Rect:    rect,
			Visible: visible,
			Focused: w.ID == st.focused,
			Urgent:  w.Urgent,
		})
	}

	gaps := layout.Gaps{
		Inner: st.cfg.Gaps.Inner,
		Outer: st.cfg.Gaps.Outer,
		Smart: st.cfg.Gaps.Smart,
	}
	for _, o := range st.outputs {
		for name, ws := range st.workspaces {
			if ws.Output != o.Name {
				continue
			}
			active := o.Active == name
			placements := ws.Tree.ComputeGeometry(o.Geometry, gaps)
			for win, p := range placements {
				w := st.windows[win]
				if w == nil {
					continue
				}
				if w.Fullscreen && active {
					add(w, o.Geometry, true)
					continue
				}
				add(w, p.Rect, active && p.Visible)
			}
			for _, win := range ws.Floating {
				w := st.windows[win]
				if w == nil {
					continue
				}
				switch {
				case w.Fullscreen && active:
					add(w, o.Geometry, true)
				case w.Sticky:
					// Sticky windows ride along to whatever workspace
					// is active on their output.
					add(w, w.Geometry, true)
				default:
					add(w, w.Geometry, active)
				}
			}
		}
	}
	// Shown scratchpad entries float on the workspace they surfaced on;
	// hidden ones are reported invisible at their last geometry.
	for _, win := range st.scratchpad {
		w := st.windows[win]
		if w == nil || seen[win] {
			continue
		}
		visible := false
		if !w.Hidden && w.Workspace != "" {
			if ws := st.workspaces[w.Workspace]; ws != nil {
				visible = st.visible(ws)
			}
		}
		add(w, w.Geometry, visible)
	}
	return out
}
