package service

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/prepstack/qbank-be/logger"
	"github.com/prepstack/qbank-be/types"
)

// WebSocketService serves the interactive doubt chat. Each message is a
// typed envelope; doubt queries run through the RAG pipeline and the
// answer goes back on the same connection.
type WebSocketService struct {
	doubt    *DoubtService
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

func NewWebSocketService(doubt *DoubtService, log *logger.Logger) *WebSocketService {
	return &WebSocketService{
		doubt: doubt,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins (adjust for production)
			},
		},
		logger: log.With("service", "websocket"),
	}
}

func (s *WebSocketService) HandleDoubt(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("upgrade error", "error", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(512 * 1024)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	for {
		_, p, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn("read error", "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		var req types.WebsocketRequest
		if err := json.Unmarshal(p, &req); err != nil {
			s.writeError(conn, "invalid message")
			continue
		}
		payloadBytes, err := json.Marshal(req.Payload)
		if err != nil {
			s.writeError(conn, "invalid payload")
			continue
		}

		switch req.Type {
		case types.TypeWebsocketDoubt:
			var payload types.WebsocketDoubtPayload
			if err := json.Unmarshal(payloadBytes, &payload); err != nil {
				s.writeError(conn, "invalid doubt payload")
				continue
			}
			result, err := s.doubt.Answer(ctx, payload.Query)
			if err != nil {
				s.logger.Error("doubt answer failed", "error", err)
				s.writeError(conn, "failed to answer doubt")
				continue
			}
			res := types.WebsocketResponse{
				Type:    types.TypeWebsocketDoubt,
				Payload: types.DoubtResponse{Answer: result.Answer, Sources: result.Sources},
			}
			if err := conn.WriteJSON(res); err != nil {
				s.logger.Warn("write error", "error", err)
			}

		case types.TypeWebsocketPing:
			if err := conn.WriteJSON(types.WebsocketResponse{Type: types.TypeWebsocketPong}); err != nil {
				s.logger.Warn("write error", "error", err)
			}

		default:
			s.writeError(conn, "unknown message type")
		}
	}
}

func (s *WebSocketService) writeError(conn *websocket.Conn, msg string) {
	res := types.WebsocketResponse{
		Type:    types.TypeWebsocketError,
		Payload: map[string]string{"message": msg},
	}
	if err := conn.WriteJSON(res); err != nil {
		s.logger.Warn("write error", "error", err)
	}
}
