package x11

import (
	"log/slog"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xwindow"

	"github.com/geket/lamella/internal/wm"
)

// Sink receives surface lifecycle notifications. *wm.Manager satisfies
// it.
type Sink interface {
	CreateWindow(attrs wm.Attrs) wm.WindowID
	DestroyWindow(win wm.WindowID)
	UpdateTitle(win wm.WindowID, title string)
	RequestAttention(win wm.WindowID)
}

// Tracker mirrors the X server's client list into the window model and
// maintains the two-way mapping between X window IDs and model IDs.
type Tracker struct {
	conn *Connection
	sink Sink
	log  *slog.Logger

	mu      sync.Mutex
	byX     map[xproto.Window]wm.WindowID
	byModel map[wm.WindowID]xproto.Window
}

// NewTracker builds a tracker; Start wires it into the event loop.
func NewTracker(conn *Connection, sink Sink, log *slog.Logger) *Tracker {
	return &Tracker{
		conn:    conn,
		sink:    sink,
		log:     log,
		byX:     make(map[xproto.Window]wm.WindowID),
		byModel: make(map[wm.WindowID]xproto.Window),
	}
}

// Start adopts the windows already present, then follows
// _NET_CLIENT_LIST changes on the root window. Must run before the
// event loop starts.
func (t *Tracker) Start() error {
	root := xwindow.New(t.conn.XUtil, t.conn.Root)
	if err := root.Listen(xproto.EventMaskPropertyChange); err != nil {
		return err
	}

	xevent.PropertyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
		name, err := xprop(xu, ev.Atom)
		if err != nil || name != "_NET_CLIENT_LIST" {
			return
		}
		t.syncClients()
	}).Connect(t.conn.XUtil, t.conn.Root)

	t.syncClients()
	return nil
}

// XWindow resolves a model ID back to its X window.
func (t *Tracker) XWindow(win wm.WindowID) (xproto.Window, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	x, ok := t.byModel[win]
	return x, ok
}

// syncClients diffs the advertised client list against the tracked set
// and forwards adds and removals to the sink.
func (t *Tracker) syncClients() {
	clients, err := t.conn.ClientList()
	if err != nil {
		t.log.Warn("failed to read client list", "error", err)
		return
	}

	current := make(map[xproto.Window]bool, len(clients))
	for _, xwin := range clients {
		current[xwin] = true
	}

	t.mu.Lock()
	var gone []xproto.Window
	for xwin := range t.byX {
		if !current[xwin] {
			gone = append(gone, xwin)
		}
	}
	var added []xproto.Window
	for _, xwin := range clients {
		if _, tracked := t.byX[xwin]; !tracked {
			added = append(added, xwin)
		}
	}
	t.mu.Unlock()

	for _, xwin := range gone {
		t.remove(xwin)
	}
	for _, xwin := range added {
		t.adopt(xwin)
	}
}

func (t *Tracker) adopt(xwin xproto.Window) {
	if !t.conn.Manageable(xwin) {
		return
	}
	attrs := t.conn.ReadAttrs(xwin)
	id := t.sink.CreateWindow(attrs)
	if id == 0 {
		return
	}

	t.mu.Lock()
	t.byX[xwin] = id
	t.byModel[id] = xwin
	t.mu.Unlock()
	t.log.Debug("client adopted", "xwindow", xwin, "id", id, "app_id", attrs.AppID)

	t.watchWindow(xwin, id)
}

func (t *Tracker) remove(xwin xproto.Window) {
	t.mu.Lock()
	id, ok := t.byX[xwin]
	if ok {
		delete(t.byX, xwin)
		delete(t.byModel, id)
	}
	t.mu.Unlock()
	if ok {
		t.sink.DestroyWindow(id)
		t.log.Debug("client removed", "xwindow", xwin, "id", id)
	}
}

// watchWindow follows title and urgency hint changes on one client.
func (t *Tracker) watchWindow(xwin xproto.Window, id wm.WindowID) {
	win := xwindow.New(t.conn.XUtil, xwin)
	if err := win.Listen(xproto.EventMaskPropertyChange); err != nil {
		t.log.Debug("failed to listen on client", "xwindow", xwin, "error", err)
		return
	}

	xevent.PropertyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
		name, err := xprop(xu, ev.Atom)
		if err != nil {
			return
		}
		switch name {
		case "_NET_WM_NAME", "WM_NAME":
			t.sink.UpdateTitle(id, t.conn.ReadAttrs(xwin).Title)
		case "WM_HINTS":
			if hints, err := icccm.WmHintsGet(xu, xwin); err == nil && hints.Flags&icccm.HintUrgency != 0 {
				t.sink.RequestAttention(id)
			}
		}
	}).Connect(t.conn.XUtil, xwin)
}

func xprop(xu *xgbutil.XUtil, atom xproto.Atom) (string, error) {
	reply, err := xproto.GetAtomName(xu.Conn(), atom).Reply()
	if err != nil {
		return "", err
	}
	return reply.Name, nil
}
