package ipc

import (
	"encoding/json"

	"github.com/geket/lamella/internal/wm"
)

// eventType maps a state-change event class onto its wire type.
func eventType(kind wm.EventKind) (MessageType, bool) {
	switch kind {
	case wm.EventWorkspace:
		return EventWorkspace, true
	case wm.EventOutput:
		return EventOutput, true
	case wm.EventMode:
		return EventMode, true
	case wm.EventWindow:
		return EventWindow, true
	case wm.EventShutdown:
		return EventShutdown, true
	}
	return 0, false
}

type eventRef struct {
	Name string `json:"name"`
}

type workspaceEventPayload struct {
	Change  string    `json:"change"`
	Current *eventRef `json:"current,omitempty"`
	Old     *eventRef `json:"old,omitempty"`
}

type containerRef struct {
	Window uint64 `json:"window"`
}

type windowEventPayload struct {
	Change    string       `json:"change"`
	Container containerRef `json:"container"`
}

type changeOnlyPayload struct {
	Change string `json:"change"`
}

// encodeEvent renders the JSON payload pushed to subscribers of the
// event's class.
func encodeEvent(ev wm.Event) []byte {
	var payload any
	switch ev.Kind {
	case wm.EventWorkspace:
		p := workspaceEventPayload{Change: ev.Change}
		if ev.Workspace != "" {
			p.Current = &eventRef{Name: ev.Workspace}
		}
		if ev.Old != "" {
			p.Old = &eventRef{Name: ev.Old}
		}
		payload = p
	case wm.EventWindow:
		payload = windowEventPayload{
			Change:    ev.Change,
			Container: containerRef{Window: uint64(ev.Window)},
		}
	default:
		payload = changeOnlyPayload{Change: ev.Change}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return []byte(`{}`)
	}
	return data
}
