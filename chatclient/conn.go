package chatclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrNotConnected is returned by EmitMessage while the live channel is
// down. The message is already persisted by then, so callers treat this as
// degraded latency, not loss.
var ErrNotConnected = errors.New("chatclient: live connection not established")

const (
	reconnectBaseDelay = time.Second
	reconnectMaxDelay  = 30 * time.Second
)

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ConnManager owns the session's single live connection. It redials with
// capped backoff after a drop and re-announces presence on every connect,
// so the server can route live events again. Messages sent server-side
// while disconnected are recovered by the next history fetch, never here.
type ConnManager struct {
	wsURL  string
	token  string
	userID uint

	mu      sync.Mutex
	conn    *websocket.Conn
	handler func(Message)
	closed  bool
	done    chan struct{}
}

func NewConnManager(wsURL, token string, userID uint) *ConnManager {
	return &ConnManager{
		wsURL:  wsURL,
		token:  token,
		userID: userID,
		done:   make(chan struct{}),
	}
}

// OnReceiveMessage registers the single receiveMessage handler for the
// manager's lifetime. Registering again replaces the previous handler, so a
// remounted consumer can never be delivered to twice. The handler runs on
// the read loop and must not block.
func (cm *ConnManager) OnReceiveMessage(handler func(Message)) {
	cm.mu.Lock()
	cm.handler = handler
	cm.mu.Unlock()
}

// Start dials the server and keeps the connection alive until Close. It
// returns after the first dial attempt resolves; reconnects happen in the
// background.
func (cm *ConnManager) Start() error {
	conn, err := cm.dial()
	if err != nil {
		// First dial failed; keep retrying in the background so a flaky
		// start behaves the same as a mid-session drop.
		go cm.run(nil)
		return err
	}
	go cm.run(conn)
	return nil
}

func (cm *ConnManager) dial() (*websocket.Conn, error) {
	url := cm.wsURL + "?token=" + cm.token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial live channel: %w", err)
	}

	cm.mu.Lock()
	if cm.closed {
		cm.mu.Unlock()
		conn.Close()
		return nil, ErrNotConnected
	}
	cm.conn = conn
	cm.mu.Unlock()

	// Presence must be announced on every connect, not just the first;
	// the server forgets routing state across a drop.
	if err := cm.AnnouncePresence(); err != nil {
		log.Printf("chatclient: presence announcement failed: %v", err)
	}
	return conn, nil
}

// run is the reconnect loop: read until the connection fails, then redial
// with capped exponential backoff.
func (cm *ConnManager) run(conn *websocket.Conn) {
	delay := reconnectBaseDelay
	for {
		if conn != nil {
			cm.readLoop(conn)
			delay = reconnectBaseDelay
		}

		select {
		case <-cm.done:
			return
		case <-time.After(delay):
		}
		if delay < reconnectMaxDelay {
			delay *= 2
		}

		var err error
		conn, err = cm.dial()
		if err != nil {
			if cm.isClosed() {
				return
			}
			log.Printf("chatclient: reconnect failed: %v", err)
			conn = nil
		}
	}
}

func (cm *ConnManager) readLoop(conn *websocket.Conn) {
	defer func() {
		cm.mu.Lock()
		if cm.conn == conn {
			cm.conn = nil
		}
		cm.mu.Unlock()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !cm.isClosed() {
				log.Printf("chatclient: live connection lost: %v", err)
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("chatclient: malformed live frame: %v", err)
			continue
		}

		switch env.Type {
		case "receiveMessage":
			var msg Message
			if err := json.Unmarshal(env.Payload, &msg); err != nil {
				log.Printf("chatclient: malformed receiveMessage payload: %v", err)
				continue
			}
			cm.mu.Lock()
			handler := cm.handler
			cm.mu.Unlock()
			if handler != nil {
				handler(msg)
			}
		case "pong", "error":
			// pong is keepalive noise; server errors are advisory here.
		default:
		}
	}
}

// AnnouncePresence tells the server this user is online.
func (cm *ConnManager) AnnouncePresence() error {
	return cm.emit("userOnline", cm.userID)
}

// EmitMessage pushes an already-persisted message over the live channel.
func (cm *ConnManager) EmitMessage(msg Message) error {
	return cm.emit("sendMessage", msg)
}

func (cm *ConnManager) emit(eventType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(envelope{Type: eventType, Payload: data})
	if err != nil {
		return err
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.conn == nil {
		return ErrNotConnected
	}
	return cm.conn.WriteMessage(websocket.TextMessage, frame)
}

func (cm *ConnManager) isClosed() bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.closed
}

// Close tears down the connection and unregisters the handler so a stale
// read loop can never deliver after teardown.
func (cm *ConnManager) Close() error {
	cm.mu.Lock()
	if cm.closed {
		cm.mu.Unlock()
		return nil
	}
	cm.closed = true
	cm.handler = nil
	conn := cm.conn
	cm.conn = nil
	cm.mu.Unlock()

	close(cm.done)
	if conn != nil {
		return conn.Close()
	}
	return nil
}
