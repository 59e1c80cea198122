package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/grandline/oracle/internal/models"
	"github.com/grandline/oracle/internal/service"
)

const (
	streamReadTimeout  = 30 * time.Second
	streamWriteTimeout = 60 * time.Second
)

// streamFrame is the single wire shape of the streaming endpoint. Type is
// one of "token", "done", or "error"; the remaining fields are populated
// per type.
type streamFrame struct {
	Type       string            `json:"type"`
	Token      string            `json:"token,omitempty"`
	Citations  []models.Citation `json:"citations,omitempty"`
	Model      string            `json:"model,omitempty"`
	Error      string            `json:"error,omitempty"`
	UpgradeURL string            `json:"upgrade_url,omitempty"`
}

// handleAskStream upgrades to WebSocket, reads one ask request, streams the
// answer token by token, and closes with a "done" frame carrying the
// citations. Citations arrive only at the end: they are derived from the
// retrieved context, which is fixed before the first token is generated.
func (s *Server) handleAskStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxRequestBody)
	if err := conn.SetReadDeadline(time.Now().Add(streamReadTimeout)); err != nil {
		return
	}

	var req askRequest
	if err := conn.ReadJSON(&req); err != nil {
		s.writeStreamError(conn, service.ErrInvalidInput)
		return
	}

	answer, err := s.asker.AskStream(r.Context(), req.Question, req.Tier, func(token string) error {
		return s.writeFrame(conn, streamFrame{Type: "token", Token: token})
	})
	if err != nil {
		s.writeStreamError(conn, err)
		return
	}

	_ = s.writeFrame(conn, streamFrame{
		Type:      "done",
		Citations: answer.Citations,
		Model:     answer.Model,
	})
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}

func (s *Server) writeFrame(conn *websocket.Conn, f streamFrame) error {
	if err := conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(f)
}

// writeStreamError sends a terminal error frame with the same taxonomy the
// REST handlers use.
func (s *Server) writeStreamError(conn *websocket.Conn, err error) {
	frame := streamFrame{Type: "error"}
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		frame.Error = err.Error()
	case errors.Is(err, service.ErrUnauthorized):
		frame.Error = "this feature requires a Pro subscription"
		frame.UpgradeURL = upgradeURL
	case errors.Is(err, service.ErrUpstreamUnavailable):
		s.logger.Error("upstream unavailable", "error", err)
		frame.Error = "retrieval backend unavailable"
	case errors.Is(err, service.ErrGenerationFailed):
		s.logger.Error("generation failed", "error", err)
		frame.Error = "answer generation failed"
	default:
		s.logger.Error("unhandled error", "error", err)
		frame.Error = "internal server error"
	}
	_ = s.writeFrame(conn, frame)
}
