package wm

import (
	"strings"

	"github.com/geket/lamella/internal/config"
	"github.com/geket/lamella/internal/layout"
)

// WindowID aliases the layout package's ID type; windows and container
// leaves share one monotonic ID space.
type WindowID = layout.WindowID

// WindowType classifies a surface at creation time, reported by the
// rendering backend.
type WindowType string

const (
	TypeNormal       WindowType = "normal"
	TypeDialog       WindowType = "dialog"
	TypeSplash       WindowType = "splash"
	TypeUtility      WindowType = "utility"
	TypeToolbar      WindowType = "toolbar"
	TypeMenu         WindowType = "menu"
	TypeNotification WindowType = "notification"
)

// ShouldFloat reports whether windows of this type start floating
// regardless of rules.
func (t WindowType) ShouldFloat() bool {
	switch t {
	case TypeDialog, TypeSplash, TypeUtility, TypeToolbar, TypeMenu, TypeNotification:
		return true
	default:
		return false
	}
}

// Window is the passive record for one managed surface. All mutation
// goes through State.
type Window struct {
	ID       WindowID
	Title    string
	AppID    string
	PID      int
	Type     WindowType
	Geometry layout.Rect

	Floating   bool
	Fullscreen bool
	Urgent     bool
	Sticky     bool
	Hidden     bool // scratchpad-hidden or on a non-visible workspace

	// Workspace is the owning workspace name; empty while the window
	// sits in the scratchpad.
	Workspace string

	// savedGeometry restores the pre-fullscreen box on fullscreen exit.
	savedGeometry *layout.Rect
}

// Attrs carries the creation-time attributes delivered with a
// window-created event.
type Attrs struct {
	Title    string
	AppID    string
	PID      int
	Type     WindowType
	Geometry layout.Rect
}

func (w *Window) clone() *Window {
	cp := *w
	if w.savedGeometry != nil {
		g := *w.savedGeometry
		cp.savedGeometry = &g
	}
	return &cp
}

// MatchesCriteria evaluates rule criteria against the window. Class and
// AppID both match against the window's app-id (class on X11), Title
// against the title, all case-insensitive substring; Type compares the
// type name exactly.
func MatchesCriteria(c config.Criteria, w *Window) bool {
	if c.Empty() {
		return false
	}
	if c.Class != "" && !containsFold(w.AppID, c.Class) {
		return false
	}
	if c.AppID != "" && !containsFold(w.AppID, c.AppID) {
		return false
	}
	if c.Title != "" && !containsFold(w.Title, c.Title) {
		return false
	}
	if c.Type != "" && !strings.EqualFold(c.Type, string(w.Type)) {
		return false
	}
	return true
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
