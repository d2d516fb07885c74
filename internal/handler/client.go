package handler

import (
	"net/http"
	"time"

	"plateserver/internal/logger"
	"plateserver/internal/service"

	"github.com/gorilla/websocket"
)

const viewerIdleTimeout = 60 * time.Second

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ViewWebsocketHandler handles viewer connections over WebSocket and
// registers them in the HubService to receive recognition events.
func ViewWebsocketHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		hub := manager.GetWebsocketService()
		if !hub.Register(connection) {
			connection.Close()
			return
		}
		defer hub.Unregister(connection)

		connection.SetReadLimit(512)
		connection.SetReadDeadline(time.Now().Add(viewerIdleTimeout))
		connection.SetPongHandler(func(string) error {
			return connection.SetReadDeadline(time.Now().Add(viewerIdleTimeout))
		})

		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Viewer disconnected normally")
				} else {
					logger.Warning("Viewer disconnected with error: %v", err)
				}
				return
			}
			connection.SetReadDeadline(time.Now().Add(viewerIdleTimeout))
		}
	}
}
