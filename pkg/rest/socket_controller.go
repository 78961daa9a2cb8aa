package rest

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hookbox/hookbox/pkg/msghub"
	"github.com/hookbox/hookbox/pkg/rest/model"
	"github.com/hookbox/hookbox/pkg/server/web"
	"github.com/rs/zerolog/log"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// options for gorilla connection upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// msgListener forwards msghub broadcasts to a websocket client.
type msgListener struct {
	hub *msghub.Hub
	c   chan *model.JSONMonitorEventV1
}

// newMsgListener creates a listener and registers it with the hub.
func newMsgListener(hub *msghub.Hub) *msgListener {
	ml := &msgListener{
		hub: hub,
		c:   make(chan *model.JSONMonitorEventV1, 100),
	}
	hub.AddListener(ml)
	return ml
}

// Receive handles an incoming message.
func (ml *msgListener) Receive(msg msghub.Message) error {
	ml.c <- &model.JSONMonitorEventV1{
		ID:         msg.ID,
		From:       msg.From,
		To:         msg.To,
		Subject:    msg.Subject,
		ReceivedAt: msg.ReceivedAt,
	}
	return nil
}

// WSReader makes sure the websocket client is still connected, discards any
// messages from the client.
func (ml *msgListener) WSReader(conn *websocket.Conn) {
	slog := log.With().Str("module", "rest").Str("proto", "WebSocket").
		Str("remote", conn.RemoteAddr().String()).Logger()
	defer ml.Close()

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		slog.Warn().Err(err).Msg("Failed to setup read deadline")
	}
	conn.SetPongHandler(func(string) error {
		slog.Debug().Msg("Got pong")
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			slog.Warn().Err(err).Msg("Failed to set read deadline in pong")
		}
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				// Unexpected close code
				slog.Warn().Err(err).Msg("Socket error")
			} else {
				slog.Debug().Msg("Closing socket")
			}
			break
		}
	}
}

// WSWriter delivers monitor events and keeps the connection alive with pings.
func (ml *msgListener) WSWriter(conn *websocket.Conn) {
	slog := log.With().Str("module", "rest").Str("proto", "WebSocket").
		Str("remote", conn.RemoteAddr().String()).Logger()

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ml.Close()
	}()

	// Handle messages from hub until msgListener is closed
	for {
		select {
		case event, ok := <-ml.c:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				slog.Warn().Err(err).Msg("Failed to set write deadline for msg")
			}
			if !ok {
				// msgListener closed, exit
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if conn.WriteJSON(event) != nil {
				// Write failed
				return
			}
		case <-ticker.C:
			// Send ping
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				slog.Warn().Err(err).Msg("Failed to set write deadline for ping")
			}
			if conn.WriteMessage(websocket.PingMessage, []byte{}) != nil {
				// Write error
				return
			}
			slog.Debug().Msg("Sent ping")
		}
	}
}

// Close removes the listener registration.
func (ml *msgListener) Close() {
	select {
	case <-ml.c:
		// Already closed
	default:
		ml.hub.RemoveListener(ml)
		close(ml.c)
	}
}

// MonitorMessagesV1 upgrades the connection to a websocket and notifies the
// client of every email received by the webhook.
func MonitorMessagesV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = conn.Close()
	}()
	log.Debug().Str("module", "rest").Str("proto", "WebSocket").
		Str("remote", conn.RemoteAddr().String()).Msg("Upgraded to WebSocket")
	ml := newMsgListener(ctx.Hub)
	go ml.WSWriter(conn)
	ml.WSReader(conn)
	return nil
}
