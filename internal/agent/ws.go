package agent

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WSHandler serves the conversational endpoint: one websocket connection is
// one conversation, each inbound text frame is a user turn, each outbound
// frame the assistant's reply.
type WSHandler struct {
	agent *Agent
	log   zerolog.Logger

	upgrader websocket.Upgrader
}

func NewWSHandler(agent *Agent, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		agent: agent,
		log:   log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The widget is embedded on arbitrary clinic pages.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	h.log.Info().Str("remote", conn.RemoteAddr().String()).Msg("conversation opened")

	// History lives for the life of the connection only.
	var history []ChatMessage

	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			h.log.Debug().Err(err).Msg("conversation closed")
			return
		}
		if msgType != websocket.TextMessage || len(payload) == 0 {
			continue
		}

		updated, reply, err := h.agent.Respond(r.Context(), history, string(payload))
		history = updated
		if err != nil {
			h.log.Error().Err(err).Msg("agent turn failed")
			reply = "Sorry, something went wrong. Please try again."
		}

		if err := conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
			h.log.Debug().Err(err).Msg("conversation write failed")
			return
		}
	}
}
