// Package realtime fans emitted domain events out to connected
// websocket dashboards.  Events carry a name and an arbitrary JSON
// payload; every connected client receives every event (dashboards are
// staff-facing, so there is no per-room scoping).
package realtime

import (
    "encoding/json"
    "time"

    "go.uber.org/zap"
)

// Event names emitted by the core services.
const (
    EventBookingCreated       = "bookingCreated"
    EventBookingCanceled      = "bookingCanceled"
    EventBookingStatusChanged = "bookingStatusChanged"
    EventSeatUpdated          = "seatUpdated"
    EventAllocationsUpdated   = "allocationsUpdated"
    EventBookingConflict      = "bookingConflict"
)

// envelope is the wire shape of one event.
type envelope struct {
    Event string `json:"event"`
    Data  any    `json:"data"`
    At    string `json:"at"`
}

// Hub owns the client set.  Registration, unregistration and broadcast
// all flow through channels into the single Run loop, so the client map
// needs no mutex.
type Hub struct {
    register   chan *client
    unregister chan *client
    broadcast  chan []byte
    clients    map[*client]struct{}
    log        *zap.Logger
}

// NewHub constructs a Hub.  Call Run on its own goroutine before
// serving connections.
func NewHub(log *zap.Logger) *Hub {
    return &Hub{
        register:   make(chan *client),
        unregister: make(chan *client),
        broadcast:  make(chan []byte, 256),
        clients:    make(map[*client]struct{}),
        log:        log,
    }
}

// Run processes registrations and broadcasts until the process exits.
// A client whose send buffer is full is dropped rather than allowed to
// stall every other consumer.
func (h *Hub) Run() {
    for {
        select {
        case c := <-h.register:
            h.clients[c] = struct{}{}
        case c := <-h.unregister:
            if _, ok := h.clients[c]; ok {
                delete(h.clients, c)
                close(c.send)
                c.conn.Close()
            }
        case msg := <-h.broadcast:
            for c := range h.clients {
                select {
                case c.send <- msg:
                default:
                    delete(h.clients, c)
                    close(c.send)
                    c.conn.Close()
                }
            }
        }
    }
}

// Emit serialises and broadcasts one event.  Emit never blocks the
// caller: when the broadcast buffer is full the event is dropped and
// logged, because booking flow must not wait on slow dashboards.
func (h *Hub) Emit(event string, payload any) {
    if h == nil {
        return
    }
    data, err := json.Marshal(envelope{
        Event: event,
        Data:  payload,
        At:    time.Now().UTC().Format(time.RFC3339),
    })
    if err != nil {
        h.log.Warn("realtime: marshal event failed", zap.String("event", event), zap.Error(err))
        return
    }
    select {
    case h.broadcast <- data:
    default:
        h.log.Warn("realtime: broadcast buffer full, dropping event", zap.String("event", event))
    }
}
