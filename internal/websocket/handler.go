package websocket

import (
	"net/http"
	"strconv"

	ws "github.com/coder/websocket"
)

// HandleWebSocket upgrades the request and runs it as a hub client. An
// optional user_id query parameter subscribes the client to messages
// addressed to that user.
func HandleWebSocket(hub *Hub, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var userID int64
		if v := r.URL.Query().Get("user_id"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil || id <= 0 {
				http.Error(w, "invalid user_id", http.StatusBadRequest)
				return
			}
			userID = id
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			OriginPatterns:     originPatterns,
			InsecureSkipVerify: len(originPatterns) == 0,
		})
		if err != nil {
			hub.logger.Warn("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		hub.logger.Debug("client connected", "user_id", userID)
		NewClient(hub, conn, userID).Run(r.Context())
		hub.logger.Debug("client disconnected", "user_id", userID)
	}
}
