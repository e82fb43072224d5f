package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"stakehub/core/events"

	"nhooyr.io/websocket"
)

const wsWriteTimeout = 10 * time.Second

// streamEventPayload is the wire form of one ledger event on the websocket
// stream. The cursor can be handed back via the ?cursor query parameter to
// resume after the last delivered update.
type streamEventPayload struct {
	Sequence   uint64            `json:"sequence"`
	Cursor     string            `json:"cursor"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()
	if stream == nil {
		http.Error(w, "event stream unavailable", http.StatusServiceUnavailable)
		return
	}
	cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")
	if err := streamLedgerEvents(r.Context(), conn, stream, cursor); err != nil {
		if status := websocket.CloseStatus(err); status == -1 {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func streamLedgerEvents(ctx context.Context, conn *websocket.Conn, stream *events.Stream, cursor string) error {
	updates, cancel, backlog, err := stream.Subscribe(ctx, cursor)
	if err != nil {
		return err
	}
	defer cancel()

	for _, update := range backlog {
		if err := writeStreamUpdate(ctx, conn, update); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if err := writeStreamUpdate(ctx, conn, update); err != nil {
				return err
			}
		}
	}
}

func writeStreamUpdate(ctx context.Context, conn *websocket.Conn, update events.StreamUpdate) error {
	payload := streamEventPayload{
		Sequence: update.Sequence,
		Cursor:   update.Cursor,
	}
	if update.Event != nil {
		payload.Type = update.Event.Type
		payload.Attributes = update.Event.Attributes
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
