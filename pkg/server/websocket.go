package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/nstogner/answerpipe/pkg/domain"
	"github.com/nstogner/answerpipe/pkg/pipeline"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Frame types written to the socket.
const (
	FrameMessage    = "message"
	FrameCompletion = "chat:completion"
	FrameError      = "error"
)

// Frame is one server-to-client WebSocket message.
type Frame struct {
	Type    string          `json:"type"`
	Content string          `json:"content,omitempty"`
	Data    *CompletionData `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// CompletionData carries the sources of a finished run.
type CompletionData struct {
	Sources []domain.Source `json:"sources"`
}

// handleChatWebSocket runs the pipe once per client frame. Each run writes
// its answer frame, then its sources frame when there are sources.
func (s *Server) handleChatWebSocket(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.pipes.Get(id); !ok {
		s.errorResponse(w, http.StatusNotFound, fmt.Errorf("%w: %s", pipeline.ErrUnknownPipe, id))
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("Failed to upgrade websocket", "error", err)
		return
	}
	defer ws.Close()

	log := s.log.With("pipe", id, "remote", r.RemoteAddr)
	log.Debug("WebSocket connected")

	deliver := func(_ context.Context, text string) error {
		return ws.WriteJSON(Frame{Type: FrameMessage, Content: text})
	}
	sources := func(_ context.Context, src []domain.Source) error {
		return ws.WriteJSON(Frame{Type: FrameCompletion, Data: &CompletionData{Sources: src}})
	}

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Error("WebSocket read error", "error", err)
			}
			return
		}

		var req chatRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			if werr := ws.WriteJSON(Frame{Type: FrameError, Error: "invalid request: " + err.Error()}); werr != nil {
				return
			}
			continue
		}

		if _, err := s.pipes.Chat(r.Context(), id, req.Messages, deliver, sources); err != nil {
			log.Warn("Chat failed", "error", err)
			if werr := ws.WriteJSON(Frame{Type: FrameError, Error: err.Error()}); werr != nil {
				return
			}
		}
	}
}
