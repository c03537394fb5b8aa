package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/terra-clan/exercise-engine/internal/models"
)

const (
	liveWriteWait   = 10 * time.Second
	livePongWait    = 60 * time.Second
	livePingPeriod  = livePongWait * 9 / 10
	liveMaxReadSize = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// LiveMessage is exchanged over the live verification socket.
// Clients send "submit"; the server answers with "result" or "error".
type LiveMessage struct {
	Type      string                         `json:"type"`
	HTML      *string                        `json:"html,omitempty"`
	CSS       *string                        `json:"css,omitempty"`
	Component *models.ComponentSubmissionDTO `json:"component,omitempty"`
	Result    *models.Result                 `json:"result,omitempty"`
	Data      string                         `json:"data,omitempty"`
}

// handleLiveVerify previews submissions as the learner types. Nothing is recorded.
func (s *Server) handleLiveVerify(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	ex, ok := s.grader.Catalog().GetBySlug(slug)
	if !ok {
		respondError(w, http.StatusNotFound, "exercise_not_found", "exercise not found")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	slog.Info("live websocket connected", "slug", slug)

	conn.SetReadLimit(liveMaxReadSize)
	conn.SetReadDeadline(time.Now().Add(livePongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(livePongWait))
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan LiveMessage, 8)
	done := make(chan struct{})

	// Writer: the only goroutine touching conn writes
	go func() {
		defer close(done)
		ticker := time.NewTicker(livePingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-out:
				if err := s.sendLiveMessage(conn, msg); err != nil {
					cancel()
					conn.Close()
					return
				}
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					cancel()
					conn.Close()
					return
				}
			}
		}
	}()

	send := func(msg LiveMessage) bool {
		select {
		case out <- msg:
			return true
		case <-ctx.Done():
			return false
		}
	}

	send(LiveMessage{Type: "connected", Data: "Live verification for " + ex.Slug})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read error", "error", err)
			}
			break
		}

		var msg LiveMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			slog.Debug("invalid message format", "error", err)
			if !send(LiveMessage{Type: "error", Data: "invalid message format"}) {
				break
			}
			continue
		}

		if msg.Type != "submit" {
			continue
		}

		req := models.VerifyRequest{HTML: msg.HTML, CSS: msg.CSS, Component: msg.Component}
		sub, ok := req.Submission(ex.Kind)
		if !ok {
			if !send(LiveMessage{Type: "error", Data: "html or css is required"}) {
				break
			}
			continue
		}

		res, err := s.grader.Preview(r.Context(), slug, sub)
		reply := LiveMessage{Type: "result", Result: &res}
		if err != nil {
			reply = LiveMessage{Type: "error", Data: err.Error()}
		}
		if !send(reply) {
			break
		}
	}

	cancel()
	<-done
	slog.Info("live websocket disconnected", "slug", slug)
}

func (s *Server) sendLiveMessage(conn *websocket.Conn, msg LiveMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal live message", "error", err)
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("failed to send live message", "error", err)
		return err
	}
	return nil
}
