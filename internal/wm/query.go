package wm

import (
	"sort"

	"github.com/geket/lamella/internal/layout"
)

// Version of the manager, reported by GET_VERSION.
const (
	VersionMajor = 0
	VersionMinor = 1
	VersionPatch = 0
)

// RectInfo is the wire shape of a geometry box.
type RectInfo struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func rectInfo(r layout.Rect) RectInfo {
	return RectInfo{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

// WorkspaceInfo is one entry of the GET_WORKSPACES reply.
type WorkspaceInfo struct {
	Num     int      `json:"num"`
	Name    string   `json:"name"`
	Visible bool     `json:"visible"`
	Focused bool     `json:"focused"`
	Urgent  bool     `json:"urgent"`
	Output  string   `json:"output"`
	Rect    RectInfo `json:"rect"`
}

// OutputInfo is one entry of the GET_OUTPUTS reply.
type OutputInfo struct {
	Name             string   `json:"name"`
	Active           bool     `json:"active"`
	Primary          bool     `json:"primary"`
	CurrentWorkspace string   `json:"current_workspace"`
	Rect             RectInfo `json:"rect"`
}

// TreeNode is the GET_TREE reply, one node per container.
type TreeNode struct {
	ID            uint64     `json:"id"`
	Name          string     `json:"name"`
	Type          string     `json:"type"` // root, output, workspace, con, floating_con
	Layout        string     `json:"layout"`
	Urgent        bool       `json:"urgent"`
	Focused       bool       `json:"focused"`
	Sticky        bool       `json:"sticky,omitempty"`
	Fullscreen    bool       `json:"fullscreen_mode,omitempty"`
	AppID         string     `json:"app_id,omitempty"`
	PID           int        `json:"pid,omitempty"`
	Window        uint64     `json:"window,omitempty"`
	Marks         []string   `json:"marks,omitempty"`
	Rect          RectInfo   `json:"rect"`
	Nodes         []TreeNode `json:"nodes"`
	FloatingNodes []TreeNode `json:"floating_nodes"`
}

// VersionInfo is the GET_VERSION reply.
type VersionInfo struct {
	Major                int    `json:"major"`
	Minor                int    `json:"minor"`
	Patch                int    `json:"patch"`
	HumanReadable        string `json:"human_readable"`
	LoadedConfigFileName string `json:"loaded_config_file_name"`
}

// Workspaces lists every workspace in i3 order.
func (m *Manager) Workspaces() []WorkspaceInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := m.st

	names := st.workspaceNames()
	out := make([]WorkspaceInfo, 0, len(names))
	focusedWS := ""
	if ws := st.activeWorkspace(); ws != nil {
		focusedWS = ws.Name
	}
	for _, name := range names {
		ws := st.workspaces[name]
		rect := RectInfo{}
		if o := st.output(ws.Output); o != nil {
			rect = rectInfo(o.Geometry)
		}
		out = append(out, WorkspaceInfo{
			Num:     ws.Num,
			Name:    ws.Name,
			Visible: st.visible(ws),
			Focused: ws.Name == focusedWS,
			Urgent:  st.workspaceUrgent(ws),
			Output:  ws.Output,
			Rect:    rect,
		})
	}
	return out
}

func (st *State) workspaceUrgent(ws *Workspace) bool {
	for _, win := range ws.Tree.Windows() {
		if w := st.windows[win]; w != nil && w.Urgent {
			return true
		}
	}
	for _, win := range ws.Floating {
		if w := st.windows[win]; w != nil && w.Urgent {
			return true
		}
	}
	return false
}

// Outputs lists every registered output.
func (m *Manager) Outputs() []OutputInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]OutputInfo, 0, len(m.st.outputs))
	for _, o := range m.st.outputs {
		out = append(out, OutputInfo{
			Name:             o.Name,
			Active:           o.Name == m.st.activeOutput,
			Primary:          o.Primary,
			CurrentWorkspace: o.Active,
			Rect:             rectInfo(o.Geometry),
		})
	}
	return out
}

// Marks lists every mark name, sorted.
func (m *Manager) Marks() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.st.marks))
	for name := range m.st.marks {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Version reports the manager version and the loaded config file.
func (m *Manager) Version() VersionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return VersionInfo{
		Major:                VersionMajor,
		Minor:                VersionMinor,
		Patch:                VersionPatch,
		HumanReadable:        "lamella 0.1.0",
		LoadedConfigFileName: m.configPath,
	}
}

// Tree renders the full container hierarchy: a synthetic root holding
// one node per output, each holding its workspaces. Reply node IDs are
// synthesized per call.
func (m *Manager) Tree() TreeNode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := m.st

	nextID := uint64(1)
	id := func() uint64 {
		v := nextID
		nextID++
		return v
	}

	root := TreeNode{
		ID:     id(),
		Name:   "root",
		Type:   "root",
		Layout: "splith",
		Nodes:  []TreeNode{},
	}
	for _, o := range st.outputs {
		outNode := TreeNode{
			ID:     id(),
			Name:   o.Name,
			Type:   "output",
			Layout: "output",
			Rect:   rectInfo(o.Geometry),
			Nodes:  []TreeNode{},
		}
		names := st.workspaceNames()
		for _, name := range names {
			ws := st.workspaces[name]
			if ws.Output != o.Name {
				continue
			}
			wsNode := TreeNode{
				ID:      id(),
				Name:    ws.Name,
				Type:    "workspace",
				Layout:  "splith",
				Focused: st.visible(ws) && o.Name == st.activeOutput,
				Urgent:  st.workspaceUrgent(ws),
				Rect:    rectInfo(o.Geometry),
				Nodes:   []TreeNode{},
			}
			if !ws.Tree.Empty() {
				wsNode.Nodes = append(wsNode.Nodes, st.containerNode(ws, ws.Tree.Root(), id))
			}
			for _, win := range ws.Floating {
				if w := st.windows[win]; w != nil {
					wsNode.FloatingNodes = append(wsNode.FloatingNodes, st.windowNode(w, id, "floating_con"))
				}
			}
			outNode.Nodes = append(outNode.Nodes, wsNode)
		}
		root.Nodes = append(root.Nodes, outNode)
	}

	// The scratchpad rides on a hidden workspace under the root, the
	// i3 "__i3_scratch" convention.
	if len(st.scratchpad) > 0 {
		scratch := TreeNode{
			ID:     id(),
			Name:   "__scratch",
			Type:   "workspace",
			Layout: "splith",
			Nodes:  []TreeNode{},
		}
		for _, win := range st.scratchpad {
			if w := st.windows[win]; w != nil {
				scratch.FloatingNodes = append(scratch.FloatingNodes, st.windowNode(w, id, "floating_con"))
			}
		}
		root.Nodes = append(root.Nodes, scratch)
	}
	return root
}

func (st *State) containerNode(ws *Workspace, nid layout.NodeID, id func() uint64) TreeNode {
	n := ws.Tree.Node(nid)
	node := TreeNode{
		ID:     id(),
		Type:   "con",
		Layout: n.Kind.String(),
		Nodes:  []TreeNode{},
	}
	if n.Kind == layout.KindLeaf {
		if w := st.windows[n.Window]; w != nil {
			leaf := st.windowNode(w, id, "con")
			leaf.ID = node.ID
			return leaf
		}
		return node
	}
	for _, c := range n.Children {
		node.Nodes = append(node.Nodes, st.containerNode(ws, c, id))
	}
	return node
}

func (st *State) windowNode(w *Window, id func() uint64, typ string) TreeNode {
	return TreeNode{
		ID:         id(),
		Name:       w.Title,
		Type:       typ,
		Layout:     "none",
		Focused:    w.ID == st.focused,
		Urgent:     w.Urgent,
		Sticky:     w.Sticky,
		Fullscreen: w.Fullscreen,
		AppID:      w.AppID,
		PID:        w.PID,
		Window:     uint64(w.ID),
		Marks:      st.marksOf(w.ID),
		Rect:       rectInfo(w.Geometry),
		Nodes:      []TreeNode{},
	}
}
