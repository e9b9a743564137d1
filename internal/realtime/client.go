package realtime

import (
    "net/http"
    "time"

    "github.com/gorilla/websocket"
    "go.uber.org/zap"
)

const (
    writeWait      = 10 * time.Second
    pongWait       = 60 * time.Second
    pingPeriod     = (pongWait * 9) / 10
    sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
    ReadBufferSize:  1024,
    WriteBufferSize: 1024,
    // Dashboards are served from a different origin in development.
    CheckOrigin: func(r *http.Request) bool { return true },
}

type client struct {
    hub  *Hub
    conn *websocket.Conn
    send chan []byte
}

// ServeWS upgrades the request and attaches the connection to the hub.
// Clients are read-only consumers; anything they send is discarded and
// only keeps the read deadline fresh.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) error {
    conn, err := upgrader.Upgrade(w, r, nil)
    if err != nil {
        h.log.Warn("realtime: upgrade failed", zap.Error(err))
        return err
    }
    c := &client{hub: h, conn: conn, send: make(chan []byte, sendBufferSize)}
    h.register <- c
    go c.writePump()
    go c.readPump()
    return nil
}

func (c *client) readPump() {
    defer func() {
        c.hub.unregister <- c
    }()
    c.conn.SetReadLimit(512)
    c.conn.SetReadDeadline(time.Now().Add(pongWait))
    c.conn.SetPongHandler(func(string) error {
        c.conn.SetReadDeadline(time.Now().Add(pongWait))
        return nil
    })
    for {
        if _, _, err := c.conn.ReadMessage(); err != nil {
            break
        }
    }
}

func (c *client) writePump() {
    ticker := time.NewTicker(pingPeriod)
    defer func() {
        ticker.Stop()
        c.conn.Close()
    }()
    for {
        select {
        case msg, ok := <-c.send:
            c.conn.SetWriteDeadline(time.Now().Add(writeWait))
            if !ok {
                c.conn.WriteMessage(websocket.CloseMessage, []byte{})
                return
            }
            if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
                return
            }
        case <-ticker.C:
            c.conn.SetWriteDeadline(time.Now().Add(writeWait))
            if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
                return
            }
        }
    }
}
