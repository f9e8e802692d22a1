package x11

import (
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xwindow"

	"github.com/geket/lamella/internal/layout"
	"github.com/geket/lamella/internal/wm"
)

// ReadAttrs collects the creation-time attributes of a client window.
// Missing properties degrade to zero values; the window model fills in
// sensible defaults.
func (c *Connection) ReadAttrs(windowID xproto.Window) wm.Attrs {
	attrs := wm.Attrs{Type: wm.TypeNormal}

	if name, err := ewmh.WmNameGet(c.XUtil, windowID); err == nil && name != "" {
		attrs.Title = name
	} else if name, err := icccm.WmNameGet(c.XUtil, windowID); err == nil {
		attrs.Title = name
	}
	if class, err := icccm.WmClassGet(c.XUtil, windowID); err == nil {
		attrs.AppID = class.Class
	}
	if pid, err := ewmh.WmPidGet(c.XUtil, windowID); err == nil {
		attrs.PID = int(pid)
	}
	if types, err := ewmh.WmWindowTypeGet(c.XUtil, windowID); err == nil {
		attrs.Type = windowType(types)
	}
	if geom, err := xwindow.New(c.XUtil, windowID).Geometry(); err == nil {
		attrs.Geometry = layout.Rect{
			X:      geom.X(),
			Y:      geom.Y(),
			Width:  geom.Width(),
			Height: geom.Height(),
		}
	}
	return attrs
}

// windowType maps _NET_WM_WINDOW_TYPE atoms onto the model's window
// types. The first recognized atom wins.
func windowType(atoms []string) wm.WindowType {
	for _, atom := range atoms {
		name := strings.TrimPrefix(atom, "_NET_WM_WINDOW_TYPE_")
		switch name {
		case "DIALOG":
			return wm.TypeDialog
		case "SPLASH":
			return wm.TypeSplash
		case "UTILITY":
			return wm.TypeUtility
		case "TOOLBAR":
			return wm.TypeToolbar
		case "MENU", "DROPDOWN_MENU", "POPUP_MENU":
			return wm.TypeMenu
		case "NOTIFICATION":
			return wm.TypeNotification
		}
	}
	return wm.TypeNormal
}

// Manageable reports whether a client window should enter the tiling
// model at all. Desktops, docks and override-redirect style surfaces
// stay out.
func (c *Connection) Manageable(windowID xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, windowID)
	if err != nil {
		return true
	}
	for _, t := range types {
		switch t {
		case "_NET_WM_WINDOW_TYPE_DESKTOP", "_NET_WM_WINDOW_TYPE_DOCK":
			return false
		}
	}
	return true
}

// ApplyPlacement moves a client window to its assigned rectangle, or
// unmaps it when the assignment is not visible.
func (c *Connection) ApplyPlacement(windowID xproto.Window, rect layout.Rect, visible bool) error {
	win := xwindow.New(c.XUtil, windowID)
	if !visible {
		win.Unmap()
		return nil
	}
	win.Map()

	// Maximized clients ignore configure requests; clear the state first.
	c.unmaximize(windowID)

	if err := ewmh.MoveresizeWindow(c.XUtil, windowID, rect.X, rect.Y, rect.Width, rect.Height); err != nil {
		win.MoveResize(rect.X, rect.Y, rect.Width, rect.Height)
	}
	return nil
}

func (c *Connection) unmaximize(windowID xproto.Window) {
	states, err := ewmh.WmStateGet(c.XUtil, windowID)
	if err != nil {
		return
	}
	for _, state := range states {
		switch state {
		case "_NET_WM_STATE_MAXIMIZED_HORZ", "_NET_WM_STATE_MAXIMIZED_VERT":
			ewmh.WmStateReq(c.XUtil, windowID, 0, state)
		}
	}
}

// FocusWindow activates and raises a client via _NET_ACTIVE_WINDOW.
func (c *Connection) FocusWindow(windowID xproto.Window) error {
	return ewmh.ActiveWindowReq(c.XUtil, windowID)
}

// CloseWindow asks a client to close itself via _NET_CLOSE_WINDOW, the
// polite path that lets the application prompt for unsaved state.
func (c *Connection) CloseWindow(windowID xproto.Window) error {
	return ewmh.CloseWindow(c.XUtil, windowID)
}

// ClientList returns the windows the server currently advertises in
// _NET_CLIENT_LIST.
func (c *Connection) ClientList() ([]xproto.Window, error) {
	return ewmh.ClientListGet(c.XUtil)
}
