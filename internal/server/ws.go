package server

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/jeffreyzhou0924/trademe-detect/internal/engine"
)

// ---------------------------------------------------------------------------
// WebSocket endpoint for streamed chat messages. The UI re-sends the full
// message content on every streamed revision, tagged with a monotonically
// increasing generation per message; the latest accepted generation wins
// and results for superseded revisions are marked stale so the UI can
// discard them. The engine itself never suspends — staleness is decided
// here, on the caller side.
// ---------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The service sits behind the app gateway; origin policy lives there.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsRequest is one streamed revision of a chat message.
type wsRequest struct {
	MessageID  string `json:"message_id"`
	Generation int64  `json:"generation"`
	Content    string `json:"content"`
}

// wsResponse carries the detection result back, tagged by generation.
type wsResponse struct {
	MessageID  string                       `json:"message_id"`
	Generation int64                        `json:"generation"`
	Stale      bool                         `json:"stale,omitempty"`
	Result     *engine.SmartDetectionResult `json:"result,omitempty"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws: upgrade failed")
		return
	}
	defer conn.Close()

	// Latest accepted generation per message on this connection.
	latest := make(map[string]int64)

	for {
		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Msg("ws: connection closed")
			}
			return
		}

		if gen, ok := latest[req.MessageID]; ok && req.Generation < gen {
			// Out-of-date revision: never analyzed, reported stale.
			if err := conn.WriteJSON(wsResponse{
				MessageID:  req.MessageID,
				Generation: req.Generation,
				Stale:      true,
			}); err != nil {
				return
			}
			continue
		}
		latest[req.MessageID] = req.Generation

		result := s.engine.Detect(req.Content)
		if err := conn.WriteJSON(wsResponse{
			MessageID:  req.MessageID,
			Generation: req.Generation,
			Result:     &result,
		}); err != nil {
			return
		}
	}
}
