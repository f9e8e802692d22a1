package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/geket/lamella/internal/wm"
)

// Backend is the command-and-query surface the server exposes over the
// socket. *wm.Manager satisfies it; the server itself holds no
// authoritative state, only routing and subscription bookkeeping.
type Backend interface {
	RunCommand(text string) []wm.CommandResult
	Workspaces() []wm.WorkspaceInfo
	Outputs() []wm.OutputInfo
	Tree() wm.TreeNode
	Marks() []string
	Version() wm.VersionInfo
}

// eventQueueLen bounds each subscriber's delivery queue. A subscriber
// that falls this far behind is disconnected rather than allowed to
// stall command processing.
const eventQueueLen = 64

type subscriber struct {
	id      uuid.UUID
	conn    net.Conn
	writeMu *sync.Mutex // shared with the request loop on the same conn

	mu      sync.Mutex
	classes map[wm.EventKind]bool
	queue   chan queuedEvent
	closed  bool
}

type queuedEvent struct {
	t       MessageType
	payload []byte
}

// Server accepts IPC connections on a unix socket, funnels commands
// into the backend and fans events out to subscribers.
type Server struct {
	socketPath string
	backend    Backend
	log        *slog.Logger

	listener net.Listener

	subMu       sync.Mutex
	subscribers map[uuid.UUID]*subscriber

	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer prepares a server on socketPath, removing any stale socket
// left by a previous run.
func NewServer(socketPath string, backend Backend, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	os.Remove(socketPath)
	return &Server{
		socketPath:  socketPath,
		backend:     backend,
		log:         logger,
		subscribers: make(map[uuid.UUID]*subscriber),
	}
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string { return s.socketPath }

// Start begins listening and accepting connections.
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.log.Info("IPC server listening", "socket", s.socketPath)
	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			done := s.shuttingDown
			s.shutdownMu.Unlock()
			if done {
				return
			}
			s.log.Warn("IPC accept error", "error", err)
			continue
		}
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	sub := &subscriber{
		id:      uuid.New(),
		conn:    conn,
		writeMu: &sync.Mutex{},
		classes: make(map[wm.EventKind]bool),
		queue:   make(chan queuedEvent, eventQueueLen),
	}
	log := s.log.With("conn", sub.id)
	defer func() {
		s.dropSubscriber(sub)
		conn.Close()
	}()

	go sub.writerLoop(log)

	for {
		t, payload, err := ReadMessage(conn)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
			case errors.Is(err, ErrBadMagic), errors.Is(err, ErrPayloadTooLarge), errors.Is(err, ErrInvalidPayload):
				log.Warn("protocol error, closing connection", "error", err)
			default:
				log.Debug("IPC read error", "error", err)
			}
			return
		}
		if !s.handleRequest(sub, t, payload, log) {
			return
		}
	}
}

// handleRequest serves one request; a false return closes the
// connection (protocol error).
func (s *Server) handleRequest(sub *subscriber, t MessageType, payload []byte, log *slog.Logger) bool {
	switch t {
	case MsgRunCommand:
		results := s.backend.RunCommand(string(payload))
		return s.reply(sub, t, results, log)

	case MsgGetWorkspaces:
		return s.reply(sub, t, s.backend.Workspaces(), log)

	case MsgGetOutputs:
		return s.reply(sub, t, s.backend.Outputs(), log)

	case MsgGetTree:
		return s.reply(sub, t, s.backend.Tree(), log)

	case MsgGetMarks:
		return s.reply(sub, t, s.backend.Marks(), log)

	case MsgGetVersion:
		return s.reply(sub, t, s.backend.Version(), log)

	case MsgSubscribe:
		var classes []string
		if err := json.Unmarshal(payload, &classes); err != nil {
			log.Warn("malformed subscribe payload, closing connection", "error", err)
			return false
		}
		sub.mu.Lock()
		for _, c := range classes {
			sub.classes[wm.EventKind(c)] = true
		}
		sub.mu.Unlock()
		s.subMu.Lock()
		s.subscribers[sub.id] = sub
		s.subMu.Unlock()
		log.Debug("subscribed", "classes", classes)
		return s.reply(sub, t, map[string]bool{"success": true}, log)
	}

	log.Warn("unknown message type, closing connection", "type", uint32(t))
	return false
}

func (s *Server) reply(sub *subscriber, t MessageType, v any, log *slog.Logger) bool {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error("failed to marshal reply", "type", t.String(), "error", err)
		return false
	}
	sub.writeMu.Lock()
	err = WriteMessage(sub.conn, t, data)
	sub.writeMu.Unlock()
	if err != nil {
		log.Debug("IPC write error", "error", err)
		return false
	}
	return true
}

// Publish fans an event out to every subscriber of its class. Delivery
// is best-effort: a full queue disconnects that subscriber, the rest
// are unaffected.
func (s *Server) Publish(ev wm.Event) {
	t, ok := eventType(ev.Kind)
	if !ok {
		return
	}
	payload := encodeEvent(ev)

	s.subMu.Lock()
	subs := make([]*subscriber, 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		subs = append(subs, sub)
	}
	s.subMu.Unlock()

	for _, sub := range subs {
		switch sub.enqueue(ev.Kind, queuedEvent{t: t, payload: payload}) {
		case enqueueOK, enqueueSkip:
		case enqueueFull:
			s.log.Warn("subscriber too slow, disconnecting", "conn", sub.id)
			sub.conn.Close()
			s.dropSubscriber(sub)
		}
	}
}

type enqueueResult int

const (
	enqueueOK enqueueResult = iota
	enqueueSkip
	enqueueFull
)

// enqueue delivers one event under the subscriber lock so a concurrent
// disconnect can never race a send onto a closed queue.
func (sub *subscriber) enqueue(kind wm.EventKind, ev queuedEvent) enqueueResult {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed || !sub.classes[kind] {
		return enqueueSkip
	}
	select {
	case sub.queue <- ev:
		return enqueueOK
	default:
		return enqueueFull
	}
}

func (sub *subscriber) writerLoop(log *slog.Logger) {
	for ev := range sub.queue {
		sub.writeMu.Lock()
		err := WriteMessage(sub.conn, ev.t, ev.payload)
		sub.writeMu.Unlock()
		if err != nil {
			log.Debug("event write error", "error", err)
			sub.conn.Close()
			return
		}
	}
}

func (s *Server) dropSubscriber(sub *subscriber) {
	s.subMu.Lock()
	delete(s.subscribers, sub.id)
	s.subMu.Unlock()
	sub.mu.Lock()
	if !sub.closed {
		sub.closed = true
		close(sub.queue)
	}
	sub.mu.Unlock()
}

// Stop closes the listener, disconnects every client and removes the
// socket.
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	if s.shuttingDown {
		s.shutdownMu.Unlock()
		return
	}
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	s.subMu.Lock()
	subs := make([]*subscriber, 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		subs = append(subs, sub)
	}
	s.subMu.Unlock()
	for _, sub := range subs {
		sub.conn.Close()
		s.dropSubscriber(sub)
	}
	os.Remove(s.socketPath)
	s.log.Info("IPC server stopped")
}
