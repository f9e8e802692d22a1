package wm

import (
	"sort"
	"strconv"

	"github.com/geket/lamella/internal/layout"
)

// Workspace owns one container tree plus the floating windows shown on
// top of it. A workspace belongs to exactly one output.
type Workspace struct {
	Name   string
	Num    int // parsed leading number, -1 for purely named workspaces
	Output string

	Tree     *layout.Tree
	Floating []WindowID

	// LastFocused is restored when the workspace becomes active again.
	LastFocused WindowID
}

func newWorkspace(name, output string) *Workspace {
	return &Workspace{
		Name:   name,
		Num:    workspaceNum(name),
		Output: output,
		Tree:   layout.NewTree(),
	}
}

// workspaceNum parses a leading integer from a workspace name, i3
// style: "3" and "3: web" both order as 3, "web" orders last.
func workspaceNum(name string) int {
	i := 0
	for i < len(name) && name[i] >= '0' && name[i] <= '9' {
		i++
	}
	if i == 0 {
		return -1
	}
	n, err := strconv.Atoi(name[:i])
	if err != nil {
		return -1
	}
	return n
}

// Empty reports whether the workspace holds no windows at all.
func (ws *Workspace) Empty() bool {
	return ws.Tree.Empty() && len(ws.Floating) == 0
}

// Contains reports whether win is tiled or floating on this workspace.
func (ws *Workspace) Contains(win WindowID) bool {
	if ws.Tree.FindLeaf(win) != 0 {
		return true
	}
	for _, f := range ws.Floating {
		if f == win {
			return true
		}
	}
	return false
}

func (ws *Workspace) removeFloating(win WindowID) bool {
	for i, f := range ws.Floating {
		if f == win {
			ws.Floating = append(ws.Floating[:i], ws.Floating[i+1:]...)
			return true
		}
	}
	return false
}

func (ws *Workspace) clone() *Workspace {
	cp := *ws
	cp.Tree = ws.Tree.Clone()
	cp.Floating = append([]WindowID(nil), ws.Floating...)
	return &cp
}

// Output is one physical display, holding a set of workspaces and one
// active workspace shown on it.
type Output struct {
	Name     string
	Geometry layout.Rect
	Primary  bool
	Active   string // active workspace name
}

func (o *Output) clone() *Output {
	cp := *o
	return &cp
}

// sortWorkspaceNames orders names numerically first (by parsed leading
// number), then lexically, matching i3's workspace ordering.
func sortWorkspaceNames(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		ni, nj := workspaceNum(names[i]), workspaceNum(names[j])
		switch {
		case ni >= 0 && nj >= 0:
			if ni != nj {
				return ni < nj
			}
			return names[i] < names[j]
		case ni >= 0:
			return true
		case nj >= 0:
			return false
		default:
			return names[i] < names[j]
		}
	})
}
