package devtools

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Message is what the Server writes to connected inspectors.
type Message struct {
	Kind   string          `json:"type"`
	State  json.RawMessage `json:"state,omitempty"`
	Record *wireRecord     `json:"record,omitempty"`
}

type wireRecord struct {
	Record
	Action json.RawMessage `json:"action"`
	State  json.RawMessage `json:"state"`
}

const (
	MessageInit   = "INIT"
	MessageAction = "ACTION"

	writeWait  = 5 * time.Second
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
}

// Server is an Inspector broadcasting records to websocket clients. A client
// connecting late first receives the initial snapshot and the backlog.
type Server struct {
	logger  *slog.Logger
	backlog int

	mu      sync.Mutex
	init    *Message
	recent  []*Message
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan *Message
	once sync.Once
}

// NewServer keeps up to backlog records for late clients.
func NewServer(backlog int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{logger: logger, backlog: backlog, clients: map[*client]struct{}{}}
}

func (s *Server) Init(state any) error {
	raw, err := Marshal(state)
	if err != nil {
		return err
	}
	msg := &Message{Kind: MessageInit, State: raw}
	s.mu.Lock()
	s.init = msg
	s.recent = nil
	s.mu.Unlock()
	s.broadcast(msg)
	return nil
}

func (s *Server) Send(rec Record) error {
	action, err := Marshal(rec.Action)
	if err != nil {
		return err
	}
	state, err := Marshal(rec.State)
	if err != nil {
		return err
	}
	msg := &Message{Kind: MessageAction, Record: &wireRecord{Record: rec, Action: action, State: state}}
	s.mu.Lock()
	if s.backlog > 0 {
		s.recent = append(s.recent, msg)
		if len(s.recent) > s.backlog {
			s.recent = append(s.recent[:0:0], s.recent[len(s.recent)-s.backlog:]...)
		}
	}
	s.mu.Unlock()
	s.broadcast(msg)
	return nil
}

func (s *Server) broadcast(msg *Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- msg:
		default:
			// too slow; it reconnects and gets the backlog
			s.drop(c)
		}
	}
}

// ServeHTTP upgrades the request and streams messages until the client leaves.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("devtools: failed to upgrade the websocket", "error", err)
		return
	}
	c := &client{conn: conn, send: make(chan *Message, sendBuffer+s.backlog+1)}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	if s.init != nil {
		c.send <- s.init
	}
	for _, m := range s.recent {
		c.send <- m
	}
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.logger.Info("devtools client connected", "remote", r.RemoteAddr)

	go s.writeLoop(c)
	// inspectors only listen; reading detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.mu.Lock()
	s.drop(c)
	s.mu.Unlock()
	s.logger.Info("devtools client disconnected", "remote", r.RemoteAddr)
}

func (s *Server) writeLoop(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			s.logger.Warn("devtools: failed to write websocket JSON", "error", err)
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

// drop must be called with s.mu held.
func (s *Server) drop(c *client) {
	if _, ok := s.clients[c]; !ok {
		return
	}
	delete(s.clients, c)
	c.once.Do(func() { close(c.send) })
}

// Clients is the number of connected inspectors.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Close disconnects every client and refuses new ones.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for c := range s.clients {
		s.drop(c)
	}
	return nil
}
