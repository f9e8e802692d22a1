package wm

import "github.com/geket/lamella/internal/layout"

// EventKind is the subscription class of a state-change event,
// matching the IPC event classes clients subscribe to.
type EventKind string

const (
	EventWorkspace EventKind = "workspace"
	EventWindow    EventKind = "window"
	EventOutput    EventKind = "output"
	EventMode      EventKind = "mode"
	EventShutdown  EventKind = "shutdown"
)

// Event is one state-change record fanned out to IPC subscribers.
// Change carries the i3-style change tag ("focus", "new", "close", ...).
type Event struct {
	Kind      EventKind
	Change    string
	Window    WindowID // zero when not window-scoped
	Workspace string   // empty when not workspace-scoped
	Old       string   // previous workspace for workspace::focus
}

// Assignment is one entry of the geometry map handed to the rendering
// backend after every mutation.
type Assignment struct {
	Window  WindowID
	Rect    layout.Rect
	Visible bool
	Focused bool
	Urgent  bool
}
