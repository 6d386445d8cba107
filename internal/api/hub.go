package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"MomentumWatch/internal/model"
	"MomentumWatch/internal/scheduler"
)

const (
	wsSendBuffer = 16
	wsPingPeriod = 45 * time.Second
	wsReadWait   = 90 * time.Second
	wsWriteWait  = 10 * time.Second
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// Message is one WebSocket frame. Type is "snapshot" on connect and "scan"
// after every cycle.
type Message struct {
	Type   string        `json:"type"`
	Scan   *scanResponse `json:"scan,omitempty"`
	Alerts []model.Alert `json:"alerts,omitempty"`
}

type wsClient struct {
	conn *websocket.Conn
	out  chan any
}

// Hub fans scan cycles out to connected dashboards. Slow clients drop frames.
type Hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	alerts  Alerts
}

func NewHub(alerts Alerts) *Hub {
	return &Hub{clients: make(map[*wsClient]struct{}), alerts: alerts}
}

// Publish matches scheduler.Listener.
func (h *Hub) Publish(res *model.ScanResult, alerts []model.Alert) {
	scan := newScanResponse(scheduler.State{
		Result:  res,
		Status:  res.Status,
		Demo:    res.Source == model.SourceDemo,
		LastRun: res.ScannedAt,
	}, h.alerts)
	h.broadcast(Message{Type: "scan", Scan: &scan, Alerts: alerts})
}

func (h *Hub) broadcast(v any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.out <- v:
		default:
		}
	}
}

// Clients returns the number of connected dashboards.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the connection, sends greeting() and then streams
// broadcasts until the client goes away.
func (h *Hub) ServeWS(greeting func() any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Msg("websocket upgrade")
			return
		}
		defer conn.Close()

		cl := &wsClient{conn: conn, out: make(chan any, wsSendBuffer)}
		if greeting != nil {
			cl.out <- greeting()
		}
		h.mu.Lock()
		h.clients[cl] = struct{}{}
		h.mu.Unlock()
		defer func() {
			h.mu.Lock()
			delete(h.clients, cl)
			h.mu.Unlock()
		}()

		done := make(chan struct{})
		defer close(done)
		go cl.writeLoop(done)

		conn.SetReadDeadline(time.Now().Add(wsReadWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsReadWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) writeLoop(done <-chan struct{}) {
	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	for {
		select {
		case v := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteJSON(v); err != nil {
				c.conn.Close()
				return
			}
		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.conn.Close()
				return
			}
		case <-done:
			return
		}
	}
}
