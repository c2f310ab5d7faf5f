package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const statusPushInterval = 2 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleStatusSocket upgrades the connection and pushes the full stream
// status list every few seconds until the client goes away.
func (s *Server) handleStatusSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	s.logger.Debug("Status client connected",
		zap.String("remote", conn.RemoteAddr().String()),
	)

	// Drain reads so close frames and pings are processed
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(statusPushInterval)
	defer ticker.Stop()

	for {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(gin.H{
			"time":    time.Now().UTC(),
			"streams": s.manager.ListAll(),
		}); err != nil {
			s.logger.Debug("Status client disconnected", zap.Error(err))
			return
		}

		select {
		case <-closed:
			return
		case <-ticker.C:
		}
	}
}
