// Package auxbus implements the embedded WebSocket broadcaster spec.md
// §4.5 names as an out-of-scope collaborator the sender's video encoder
// worker feeds: every encoded access unit is mirrored here for browser
// debug/preview clients, independent of and never blocking the UDP
// send path. Grounded on the teacher's media-WebSocket handler in its
// call-routing layer.
package auxbus

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1 << 20,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// subscriberQueueDepth bounds how many access units a slow subscriber
// can lag behind; further units are dropped for that subscriber (it stays
// connected), mirroring the core pipeline's
// bounded-queue-with-drop policy (spec.md §4.4) rather than letting one
// slow browser tab apply backpressure to the encoder.
const subscriberQueueDepth = 8

type unit struct {
	payload  []byte
	keyframe bool
}

type subscriber struct {
	id   uint64
	ch   chan unit
	done chan struct{}
}

// Hub fans out encoded video access units to any number of WebSocket
// subscribers. It satisfies sender.AuxSink without importing the sender
// package, keeping the dependency direction collaborator -> core.
type Hub struct {
	mu      sync.Mutex
	nextID  uint64
	subs    map[uint64]*subscriber
	lastKey []byte // most recent keyframe, sent first to new subscribers
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]*subscriber)}
}

// BroadcastVideo implements sender.AuxSink. Never blocks the caller: a
// subscriber whose queue is full has the unit dropped for it rather
// than stalling the encoder worker.
func (h *Hub) BroadcastVideo(payload []byte, keyframe bool) {
	cp := make([]byte, len(payload))
	copy(cp, payload)

	h.mu.Lock()
	if keyframe {
		h.lastKey = cp
	}
	subs := make([]*subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	u := unit{payload: cp, keyframe: keyframe}
	for _, s := range subs {
		select {
		case s.ch <- u:
		default:
			// subscriber lagging; drop rather than block the encoder.
		}
	}
}

// ServeHTTP upgrades the request to a WebSocket and streams encoded
// video access units to it until the client disconnects. New
// subscribers are seeded with the most recent keyframe so MSE-style
// decoders on the browser side don't have to wait out a full keyframe
// interval before producing a picture.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("AUXBUS: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	s := h.register()
	defer h.unregister(s.id)

	log.Printf("AUXBUS: subscriber %d connected", s.id)

	go drainReads(conn)

	h.mu.Lock()
	seed := h.lastKey
	h.mu.Unlock()
	if seed != nil {
		if err := conn.WriteMessage(websocket.BinaryMessage, seed); err != nil {
			return
		}
	}

	for {
		select {
		case <-r.Context().Done():
			log.Printf("AUXBUS: subscriber %d disconnected", s.id)
			return
		case <-s.done:
			return
		case u, ok := <-s.ch:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, u.payload); err != nil {
				return
			}
		}
	}
}

// drainReads discards inbound frames (ping/pong, close) without
// blocking the write loop, matching the teacher's media-WebSocket
// handler.
func drainReads(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) register() *subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	s := &subscriber{
		id:   h.nextID,
		ch:   make(chan unit, subscriberQueueDepth),
		done: make(chan struct{}),
	}
	h.subs[s.id] = s
	return s
}

func (h *Hub) unregister(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.subs[id]; ok {
		close(s.done)
		delete(h.subs, id)
	}
}

// SubscriberCount reports the number of currently connected clients.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
