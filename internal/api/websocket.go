package api

import (
	"net/http"

	"coiportal/internal/ws"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (d Dependencies) wsHandler(w http.ResponseWriter, r *http.Request) {
	// Check Hub before upgrading
	if d.Hub == nil {
		d.Log.Error("WebSocket hub not initialized")
		WriteError(w, http.StatusInternalServerError, "ws_unavailable", "WebSocket hub not initialized", d.Log)
		return
	}

	// Browsers cannot set headers on upgrade, so the token may come as ?token=
	actor, err := d.Auth.Authenticate(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "unauthorized", err.Error(), d.Log)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		d.Log.Error("Failed to upgrade connection", zap.Error(err))
		return
	}

	d.Log.Info("WebSocket connected",
		zap.String("user_id", actor.ID),
		zap.String("role", string(actor.Role)),
		zap.String("remote", r.RemoteAddr))

	wsConn := ws.NewConn(conn, d.Hub, actor)
	d.Hub.Register(wsConn)

	go wsConn.WritePump()
	go wsConn.ReadPump()
}
