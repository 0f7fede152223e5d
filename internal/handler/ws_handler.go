package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"labchat/internal/app/chat"
	"labchat/internal/app/user"
	"labchat/internal/pkg/auth/jwt"
	"labchat/internal/pkg/errs"
	"labchat/internal/pkg/limiter"
	"labchat/internal/pkg/logx"
	"labchat/internal/pkg/resp"
)

// HandleWebSocket upgrades the request and runs the client until it disconnects.
// A valid session token gives the connection a stable session id; without one it is anonymous.
func HandleWebSocket(hub *chat.Hub, upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := limiter.ClientIP(r)

		if !rateLimiter.Allow(ip) {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		var session user.User
		if payload := jwt.GetPayloadFromContext(r); payload != nil {
			session = user.User{SessionID: payload.SessionID, DisplayName: payload.DisplayName}
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		client := chat.NewClient(hub, conn, session)
		hub.Attach(client)

		go client.WritePump()

		logx.Info("WebSocket connection established", "conn_id", client.ID(), "anonymous", session.SessionID == "")

		client.ReadPump()
	}
}
