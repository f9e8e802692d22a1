package ipc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// The wire format is the i3 IPC framing: every message is
//
//	magic(6B) | payload_length(u32 LE) | message_type(u32 LE) | payload
//
// with a UTF-8 JSON payload. The numeric type values are the
// compatibility contract and must not change.

var magic = [6]byte{'i', '3', '-', 'i', 'p', 'c'}

// MessageType identifies a client request or server reply.
type MessageType uint32

const (
	MsgRunCommand    MessageType = 0
	MsgGetWorkspaces MessageType = 1
	MsgSubscribe     MessageType = 2
	MsgGetOutputs    MessageType = 3
	MsgGetTree       MessageType = 4
	MsgGetMarks      MessageType = 5
	MsgGetVersion    MessageType = 7
)

// eventFlag marks server-pushed event messages in the type field.
const eventFlag uint32 = 0x80000000

const (
	EventWorkspace MessageType = MessageType(eventFlag | 0)
	EventOutput    MessageType = MessageType(eventFlag | 1)
	EventMode      MessageType = MessageType(eventFlag | 2)
	EventWindow    MessageType = MessageType(eventFlag | 3)
	EventShutdown  MessageType = MessageType(eventFlag | 6)
)

// IsEvent reports whether t carries the event bit.
func (t MessageType) IsEvent() bool {
	return uint32(t)&eventFlag != 0
}

func (t MessageType) String() string {
	switch t {
	case MsgRunCommand:
		return "run_command"
	case MsgGetWorkspaces:
		return "get_workspaces"
	case MsgSubscribe:
		return "subscribe"
	case MsgGetOutputs:
		return "get_outputs"
	case MsgGetTree:
		return "get_tree"
	case MsgGetMarks:
		return "get_marks"
	case MsgGetVersion:
		return "get_version"
	case EventWorkspace:
		return "workspace_event"
	case EventOutput:
		return "output_event"
	case EventMode:
		return "mode_event"
	case EventWindow:
		return "window_event"
	case EventShutdown:
		return "shutdown_event"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(t))
	}
}

// maxPayload bounds inbound frames; anything larger is treated as a
// protocol error and closes the connection.
const maxPayload = 16 << 20

// ErrBadMagic reports a frame that does not start with the protocol
// magic. The connection carrying it must be closed.
var ErrBadMagic = errors.New("bad magic bytes")

// ErrPayloadTooLarge reports a frame whose declared length exceeds
// maxPayload.
var ErrPayloadTooLarge = errors.New("payload too large")

// ErrInvalidPayload reports a frame whose payload is not valid UTF-8.
// The protocol carries JSON text only; such a frame closes the
// connection like any other malformed frame.
var ErrInvalidPayload = errors.New("payload is not valid UTF-8")

const headerLen = 6 + 4 + 4

// WriteMessage frames and writes one message.
func WriteMessage(w io.Writer, t MessageType, payload []byte) error {
	buf := make([]byte, headerLen+len(payload))
	copy(buf[0:6], magic[:])
	binary.LittleEndian.PutUint32(buf[6:10], uint32(len(payload)))
	binary.LittleEndian.PutUint32(buf[10:14], uint32(t))
	copy(buf[headerLen:], payload)
	_, err := w.Write(buf)
	return err
}

// ReadMessage reads one framed message. A header that fails validation
// returns ErrBadMagic or ErrPayloadTooLarge; the caller must close the
// connection, since the stream can no longer be trusted.
func ReadMessage(r io.Reader) (MessageType, []byte, error) {
	var header [headerLen]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, err
	}
	for i := range magic {
		if header[i] != magic[i] {
			return 0, nil, ErrBadMagic
		}
	}
	length := binary.LittleEndian.Uint32(header[6:10])
	t := MessageType(binary.LittleEndian.Uint32(header[10:14]))
	if length > maxPayload {
		return 0, nil, ErrPayloadTooLarge
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, err
	}
	if !utf8.Valid(payload) {
		return 0, nil, ErrInvalidPayload
	}
	return t, payload, nil
}
