package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/utleieskade/backend/internal/apperrors"
	"github.com/utleieskade/backend/internal/auth"
	"github.com/utleieskade/backend/internal/logger"
	"github.com/utleieskade/backend/internal/middleware"
	"github.com/utleieskade/backend/internal/realtime"
	"github.com/utleieskade/backend/internal/services"
)

const (
	socketWriteWait      = 10 * time.Second
	socketPongWait       = 60 * time.Second
	socketPingPeriod     = 30 * time.Second
	socketMaxMessageSize = 16 << 10
	socketEventTimeout   = 15 * time.Second
)

// SocketController upgrades authenticated clients into the realtime hub.
type SocketController struct {
	hub      *realtime.Hub
	tokens   *auth.TokenManager
	chat     *services.ChatService
	upgrader websocket.Upgrader
}

func NewSocketController(hub *realtime.Hub, tokens *auth.TokenManager, chat *services.ChatService, origins []string) *SocketController {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return &SocketController{
		hub:    hub,
		tokens: tokens,
		chat:   chat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

type socketSendMessage struct {
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
}

type socketMarkAsRead struct {
	ConversationID string `json:"conversationId"`
}

// Connect authenticates with the bearer header or the token query parameter.
func (sc *SocketController) Connect(c *gin.Context) {
	raw, ok := middleware.BearerToken(c.GetHeader("Authorization"))
	if !ok {
		raw = c.Query("token")
	}
	if raw == "" {
		respondError(c, apperrors.NewUnauthorizedError("Authentication token required"))
		return
	}
	claims, err := sc.tokens.Parse(raw)
	if err != nil {
		respondError(c, apperrors.NewUnauthorizedError("Invalid or expired token"))
		return
	}

	conn, err := sc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.WithError(err, "socket").Warn("Websocket upgrade failed")
		return
	}

	client := sc.hub.Join(claims.UserID)
	logger.WithUser(claims.UserID).Info("Socket connected")

	go sc.writePump(conn, client)
	sc.readPump(conn, client)
}

func (sc *SocketController) readPump(conn *websocket.Conn, client *realtime.Client) {
	defer func() {
		sc.hub.Leave(client)
		conn.Close()
		logger.WithUser(client.UserID).Info("Socket disconnected")
	}()

	conn.SetReadLimit(socketMaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(socketPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(socketPongWait))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WithError(err, "socket").Warn("Unexpected socket close")
			}
			return
		}
		sc.dispatch(client, message)
	}
}

func (sc *SocketController) dispatch(client *realtime.Client, message []byte) {
	var frame realtime.Frame
	if err := json.Unmarshal(message, &frame); err != nil {
		sc.replyError(client, "Malformed frame")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), socketEventTimeout)
	defer cancel()

	switch frame.Event {
	case realtime.EventSendMessage:
		var in socketSendMessage
		if err := json.Unmarshal(frame.Data, &in); err != nil || in.ReceiverID == "" {
			sc.replyError(client, "receiverId and content are required")
			return
		}
		if _, err := sc.chat.Send(ctx, client.UserID, in.ReceiverID, in.Content); err != nil {
			sc.replyAppError(client, err)
		}
	case realtime.EventMarkAsRead:
		var in socketMarkAsRead
		if err := json.Unmarshal(frame.Data, &in); err != nil || in.ConversationID == "" {
			sc.replyError(client, "conversationId is required")
			return
		}
		if _, err := sc.chat.MarkRead(ctx, client.UserID, in.ConversationID); err != nil {
			sc.replyAppError(client, err)
		}
	default:
		sc.replyError(client, "Unknown event "+frame.Event)
	}
}

func (sc *SocketController) replyAppError(client *realtime.Client, err error) {
	if appErr, ok := apperrors.As(err); ok && appErr.Code < http.StatusInternalServerError {
		sc.replyError(client, appErr.Message)
		return
	}
	logger.WithError(err, "socket").Error("Socket event failed")
	sc.replyError(client, "Internal server error")
}

// replyError answers only the connection that sent the frame.
func (sc *SocketController) replyError(client *realtime.Client, message string) {
	payload, err := realtime.Encode(realtime.EventError, gin.H{"message": message})
	if err != nil {
		return
	}
	select {
	case client.Send <- payload:
	default:
	}
}

func (sc *SocketController) writePump(conn *websocket.Conn, client *realtime.Client) {
	ticker := time.NewTicker(socketPingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.Send:
			conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
