package handler

import (
	"net/http"
	"time"

	"github.com/thenithin342/Attendance-ios/internal/attendance"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	livePingInterval = 30 * time.Second
	liveWriteWait    = 10 * time.Second
	livePongWait     = 2 * livePingInterval
)

// LiveHandler streams newly stored attendance records over a websocket.
type LiveHandler struct {
	Hub      *attendance.Hub
	Log      *zap.Logger
	upgrader websocket.Upgrader
}

// NewLiveHandler accepts browser connections only from allowedOrigins; an
// empty list or "*" accepts any origin.
func NewLiveHandler(hub *attendance.Hub, allowedOrigins []string, log *zap.Logger) *LiveHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &LiveHandler{
		Hub: hub,
		Log: log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowed) == 0 || allowed["*"] || allowed[origin]
			},
		},
	}
}

// Stream upgrades the request and forwards records until the client goes
// away or the hub closes. ?window_id= limits the stream to one window.
func (h *LiveHandler) Stream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already replied
		h.Log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	windowID := c.Query("window_id")
	sub := h.Hub.Subscribe(windowID)
	defer func() {
		h.Hub.Unsubscribe(sub)
		if n := sub.Dropped(); n > 0 {
			h.Log.Warn("live feed dropped records", zap.String("window_id", windowID), zap.Int64("dropped", n))
		}
	}()

	h.Log.Info("live feed connected", zap.String("window_id", windowID), zap.String("ip", c.ClientIP()))

	// the read pump only watches for close frames and pongs
	done := make(chan struct{})
	_ = conn.SetReadDeadline(time.Now().Add(livePongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(livePongWait))
	})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.write(conn, gin.H{"type": "connected", "window_id": windowID}); err != nil {
		return
	}

	ticker := time.NewTicker(livePingInterval)
	defer ticker.Stop()

	for {
		select {
		case rec, ok := <-sub.C:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(liveWriteWait))
				return
			}
			if err := h.write(conn, gin.H{"type": "attendance", "record": rec}); err != nil {
				h.Log.Debug("live feed write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteWait)); err != nil {
				return
			}
		case <-done:
			h.Log.Info("live feed disconnected", zap.String("window_id", windowID))
			return
		}
	}
}

func (h *LiveHandler) write(conn *websocket.Conn, v interface{}) error {
	_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
	return conn.WriteJSON(v)
}
