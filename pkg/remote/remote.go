// Package remote serves Ripple sessions to remote clients over a websocket.
//
// Each accepted connection gets its own [core.Session]. The host renders the
// configured root component, streams every patch batch to the client as a
// JSON message, and applies incoming client events (callback invocations) to
// the session. When the connection drops, the session is closed and its
// state discarded; reconnecting clients start from a fresh initial render.
package remote

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/go-ripple/ripple/pkg/core"
	"github.com/go-ripple/ripple/pkg/wire"
)

const (
	// writeTimeout bounds a single websocket write.
	writeTimeout = 10 * time.Second
	// pongTimeout is how long a client may stay silent before the
	// connection is considered dead.
	pongTimeout = 60 * time.Second
	// pingInterval must be shorter than pongTimeout.
	pingInterval = 30 * time.Second
	// sendBuffer is the number of outbound messages queued before the
	// producer blocks.
	sendBuffer = 64
)

// serverMessage is the envelope for host-to-client traffic.
type serverMessage struct {
	Type    string       `json:"type"`
	Session string       `json:"session,omitempty"`
	Patches []wire.Patch `json:"patches,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// clientEvent is one client-to-host message: invoke the callback prop of a
// node, with positional JSON arguments.
type clientEvent struct {
	Node wire.NodeID `json:"node"`
	Prop string      `json:"prop"`
	Args []any       `json:"args"`
}

// Host accepts websocket connections and runs one session per client.
type Host struct {
	root  *core.Component
	props core.Props

	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*conn]struct{}
}

// NewHost creates a host that renders root with the given props for every
// client.
func NewHost(root *core.Component, props core.Props) *Host {
	return &Host{
		root:  root,
		props: props,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		conns: make(map[*conn]struct{}),
	}
}

// CheckOrigin installs an origin policy on the websocket upgrader. Without
// one, the upgrader's default same-origin check applies.
func (h *Host) CheckOrigin(fn func(r *http.Request) bool) {
	h.upgrader.CheckOrigin = fn
}

// ConnCount reports the number of live client connections.
func (h *Host) ConnCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Shutdown closes every live connection and waits for their sessions to
// finish closing.
func (h *Host) Shutdown() {
	h.mu.Lock()
	conns := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()
	for _, c := range conns {
		c.close()
	}
}

// ServeHTTP upgrades the request and runs the client's session until the
// connection drops.
func (h *Host) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}
	c := newConn(h, ws)
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	c.run()

	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
}

// conn is one client connection: a websocket, the session it drives, and the
// outbound message queue drained by the write pump.
type conn struct {
	host    *Host
	ws      *websocket.Conn
	session *core.Session

	send chan []byte

	// dirtyc coalesces flush requests from background mutations. Capacity
	// one: a pending signal absorbs further ones.
	dirtyc chan struct{}

	closeOnce sync.Once
	done      chan struct{}
}

func newConn(h *Host, ws *websocket.Conn) *conn {
	c := &conn{
		host:   h,
		ws:     ws,
		send:   make(chan []byte, sendBuffer),
		dirtyc: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	c.session = core.NewSession(wire.SinkFunc(c.sendPatches))
	c.session.OnDirty = c.wake
	return c
}

func (c *conn) run() {
	var pumps sync.WaitGroup
	pumps.Add(2)
	go func() { defer pumps.Done(); c.writePump() }()
	go func() { defer pumps.Done(); c.flushPump() }()
	defer pumps.Wait()
	defer c.close()

	c.enqueue(serverMessage{Type: "hello", Session: c.session.ID()})
	if err := c.session.RenderRoot(c.host.root, c.host.props); err != nil {
		log.Printf("remote: session %s initial render: %v", c.session.ID(), err)
		c.enqueue(serverMessage{Type: "error", Error: err.Error()})
		return
	}

	c.readLoop()
}

// readLoop applies client events until the connection errors out.
func (c *conn) readLoop() {
	c.ws.SetReadDeadline(time.Now().Add(pongTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		var ev clientEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			c.enqueue(serverMessage{Type: "error", Error: "malformed event: " + err.Error()})
			continue
		}
		if err := c.session.DispatchCallback(ev.Node, ev.Prop, ev.Args...); err != nil {
			c.enqueue(serverMessage{Type: "error", Error: err.Error()})
			continue
		}
		if err := c.session.Flush(); err != nil {
			log.Printf("remote: session %s flush: %v", c.session.ID(), err)
			c.enqueue(serverMessage{Type: "error", Error: err.Error()})
		}
	}
}

// flushPump turns coalesced dirty signals from background mutations into
// render flushes. Event-driven flushes happen inline in readLoop; this pump
// only covers async hook tasks and other goroutines.
func (c *conn) flushPump() {
	for {
		select {
		case <-c.done:
			return
		case <-c.dirtyc:
			if err := c.session.Flush(); err != nil {
				log.Printf("remote: session %s flush: %v", c.session.ID(), err)
				c.enqueue(serverMessage{Type: "error", Error: err.Error()})
			}
		}
	}
}

// writePump owns the socket: it performs every write, from queued messages
// to keepalive pings, and closes the socket when it exits.
func (c *conn) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer c.ws.Close()
	for {
		select {
		case <-c.done:
			// Deliver anything queued before the shutdown, then say
			// goodbye. Without the drain an error enqueued just before
			// close would be lost.
			for {
				select {
				case msg := <-c.send:
					c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
					if c.ws.WriteMessage(websocket.TextMessage, msg) != nil {
						return
					}
				default:
					c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
					c.ws.WriteMessage(websocket.CloseMessage, nil)
					return
				}
			}
		case msg := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

// sendPatches is the session's patch sink.
func (c *conn) sendPatches(patches []wire.Patch) error {
	c.enqueue(serverMessage{Type: "patches", Patches: patches})
	return nil
}

func (c *conn) enqueue(msg serverMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("remote: marshal %s message: %v", msg.Type, err)
		return
	}
	select {
	case c.send <- data:
	case <-c.done:
	}
}

func (c *conn) wake() {
	select {
	case c.dirtyc <- struct{}{}:
	default:
	}
}

// close stops the connection. The socket itself is closed by the write pump
// once it has drained the queue.
func (c *conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.session.Close()
	})
}
