package api

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/groveworld/guardian/internal/audit"
)

// Streamer fans the audit event stream out to connected websocket
// operators. A slow client is disconnected rather than allowed to back
// up the notifier.
type Streamer struct {
	notifier *audit.Notifier
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]chan audit.Event
	logger  *log.Logger
}

// NewStreamer creates a streamer over the engine's notifier.
func NewStreamer(notifier *audit.Notifier) *Streamer {
	return &Streamer{
		notifier: notifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Operator tooling connects from anywhere; access control
			// sits in front of this server.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]chan audit.Event),
		logger:  log.New(log.Writer(), "[STREAM] ", log.LstdFlags),
	}
}

// Handle upgrades the connection and relays audit events until the
// client goes away.
func (st *Streamer) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := st.upgrader.Upgrade(w, r, nil)
	if err != nil {
		st.logger.Printf("Upgrade failed: %v", err)
		return
	}

	events := st.notifier.Subscribe()
	st.mu.Lock()
	st.clients[conn] = events
	st.mu.Unlock()
	st.logger.Printf("Operator connected from %s (%d clients)", r.RemoteAddr, st.clientCount())

	go st.writeLoop(conn, events)
	st.readLoop(conn)
}

// writeLoop pushes events to one client.
func (st *Streamer) writeLoop(conn *websocket.Conn, events chan audit.Event) {
	defer st.drop(conn)
	for evt := range events {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(evt); err != nil {
			return
		}
	}
}

// readLoop discards inbound frames and notices disconnects.
func (st *Streamer) readLoop(conn *websocket.Conn) {
	defer st.drop(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (st *Streamer) drop(conn *websocket.Conn) {
	st.mu.Lock()
	events, ok := st.clients[conn]
	if ok {
		delete(st.clients, conn)
	}
	st.mu.Unlock()

	if ok {
		st.notifier.Unsubscribe(events)
		conn.Close()
	}
}

func (st *Streamer) clientCount() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.clients)
}
