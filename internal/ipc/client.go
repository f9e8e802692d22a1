package ipc

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/geket/lamella/internal/wm"
)

// Client is a synchronous IPC client used by the msg subcommand and
// the MCP bridge.
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for the daemon socket.
func NewClient(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

func (c *Client) dial() (net.Conn, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon socket %s (is the daemon running?): %w", c.socketPath, err)
	}
	return conn, nil
}

// Request performs one request/reply round trip and returns the raw
// JSON reply payload.
func (c *Client) Request(t MessageType, payload []byte) ([]byte, error) {
	conn, err := c.dial()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))
	if err := WriteMessage(conn, t, payload); err != nil {
		return nil, fmt.Errorf("failed to send %s request: %w", t, err)
	}
	replyType, reply, err := ReadMessage(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s reply: %w", t, err)
	}
	if replyType != t {
		return nil, fmt.Errorf("reply type mismatch: sent %s, got %s", t, replyType)
	}
	return reply, nil
}

// RunCommand executes a command line on the daemon and returns the
// per-command results.
func (c *Client) RunCommand(text string) ([]wm.CommandResult, error) {
	reply, err := c.Request(MsgRunCommand, []byte(text))
	if err != nil {
		return nil, err
	}
	var results []wm.CommandResult
	if err := json.Unmarshal(reply, &results); err != nil {
		return nil, fmt.Errorf("malformed run_command reply: %w", err)
	}
	return results, nil
}

// Workspaces fetches the workspace list.
func (c *Client) Workspaces() ([]wm.WorkspaceInfo, error) {
	reply, err := c.Request(MsgGetWorkspaces, nil)
	if err != nil {
		return nil, err
	}
	var out []wm.WorkspaceInfo
	if err := json.Unmarshal(reply, &out); err != nil {
		return nil, fmt.Errorf("malformed get_workspaces reply: %w", err)
	}
	return out, nil
}

// Outputs fetches the output list.
func (c *Client) Outputs() ([]wm.OutputInfo, error) {
	reply, err := c.Request(MsgGetOutputs, nil)
	if err != nil {
		return nil, err
	}
	var out []wm.OutputInfo
	if err := json.Unmarshal(reply, &out); err != nil {
		return nil, fmt.Errorf("malformed get_outputs reply: %w", err)
	}
	return out, nil
}

// Tree fetches the container tree.
func (c *Client) Tree() (wm.TreeNode, error) {
	var out wm.TreeNode
	reply, err := c.Request(MsgGetTree, nil)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(reply, &out); err != nil {
		return out, fmt.Errorf("malformed get_tree reply: %w", err)
	}
	return out, nil
}

// Marks fetches all mark names.
func (c *Client) Marks() ([]string, error) {
	reply, err := c.Request(MsgGetMarks, nil)
	if err != nil {
		return nil, err
	}
	var out []string
	if err := json.Unmarshal(reply, &out); err != nil {
		return nil, fmt.Errorf("malformed get_marks reply: %w", err)
	}
	return out, nil
}

// Version fetches the daemon version.
func (c *Client) Version() (wm.VersionInfo, error) {
	var out wm.VersionInfo
	reply, err := c.Request(MsgGetVersion, nil)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(reply, &out); err != nil {
		return out, fmt.Errorf("malformed get_version reply: %w", err)
	}
	return out, nil
}

// EventStream is a dedicated subscription connection. Events arrive in
// order; Next blocks until the next one.
type EventStream struct {
	conn net.Conn
}

// Subscribe opens a connection subscribed to the given event classes.
func (c *Client) Subscribe(classes ...string) (*EventStream, error) {
	conn, err := c.dial()
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(classes)
	if err != nil {
		conn.Close()
		return nil, err
	}
	conn.SetDeadline(time.Now().Add(c.timeout))
	if err := WriteMessage(conn, MsgSubscribe, payload); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send subscribe request: %w", err)
	}
	replyType, reply, err := ReadMessage(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read subscribe reply: %w", err)
	}
	if replyType != MsgSubscribe {
		conn.Close()
		return nil, fmt.Errorf("reply type mismatch: sent subscribe, got %s", replyType)
	}
	var ack struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(reply, &ack); err != nil || !ack.Success {
		conn.Close()
		return nil, fmt.Errorf("subscribe rejected")
	}
	conn.SetDeadline(time.Time{})
	return &EventStream{conn: conn}, nil
}

// Next blocks until the next event frame and returns its type and raw
// JSON payload.
func (s *EventStream) Next() (MessageType, []byte, error) {
	for {
		t, payload, err := ReadMessage(s.conn)
		if err != nil {
			return 0, nil, err
		}
		if t.IsEvent() {
			return t, payload, nil
		}
	}
}

// Close tears the subscription connection down.
func (s *EventStream) Close() error {
	return s.conn.Close()
}
