package endpoints

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/batch"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/server"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/stream"
)

// Client events accepted on /ws.
const (
	EventRunMarathon   = "run_marathon"
	EventVerifySerials = "verify_serials"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxMessage = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// clientMessage is a message sent by a client.
type clientMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// RegisterWebSocketEndpoint registers the /ws progress channel
func RegisterWebSocketEndpoint(s *server.Server) {
	s.Router.HandleFunc("/ws", handleWebSocket(s.Hub, s.Runner, s.Verifier, s.Logger)).Methods("GET")
}

func handleWebSocket(hub *stream.Hub, runner *batch.Runner, verifier server.Verifier, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already answered the request
			logger.Debug("websocket upgrade failed", zap.Error(err))
			return
		}

		c := &wsClient{
			conn:     conn,
			sub:      hub.Subscribe(),
			hub:      hub,
			direct:   make(chan stream.Message, 16),
			runner:   runner,
			verifier: verifier,
			logger:   logger,
		}

		// Replies are bound to the connection; the request context of a
		// hijacked connection is not.
		ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
		defer cancel()

		c.send(stream.StatusMessage("Connected to server", "success"))
		go c.writeLoop(ctx)
		c.readLoop(ctx)
	}
}

// wsClient is one WebSocket connection. Hub messages and replies to the
// client's own requests are written by a single goroutine.
type wsClient struct {
	conn     *websocket.Conn
	sub      *stream.Subscription
	hub      *stream.Hub
	direct   chan stream.Message
	runner   *batch.Runner
	verifier server.Verifier
	logger   *zap.Logger
}

// send queues a reply for this client only.
func (c *wsClient) send(m stream.Message) {
	select {
	case c.direct <- m:
	default:
		c.logger.Warn("dropping websocket reply", zap.String("event", m.Event))
	}
}

func (c *wsClient) readLoop(ctx context.Context) {
	defer c.hub.Unsubscribe(c.sub)
	defer func() { _ = c.conn.Close() }()

	c.conn.SetReadLimit(maxMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg clientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket closed", zap.Error(err))
			}
			return
		}

		switch msg.Event {
		case EventRunMarathon:
			c.runMarathon(ctx, msg.Data)
		case EventVerifySerials:
			var req VerifyRequest
			if err := json.Unmarshal(msg.Data, &req); err != nil {
				c.send(stream.StatusMessage("invalid verify_serials payload", "error"))
				continue
			}
			go c.verify(ctx, req)
		default:
			c.send(stream.StatusMessage("unknown event "+msg.Event, "error"))
		}
	}
}

func (c *wsClient) runMarathon(ctx context.Context, data json.RawMessage) {
	fail := func(text string) {
		c.send(stream.StatusMessage(text, "error"))
		c.send(stream.Message{Event: stream.EventMarathonComplete, Data: batch.Complete{Success: false}})
	}

	var req MarathonRequest
	if err := json.Unmarshal(data, &req); err != nil {
		fail("invalid run_marathon payload")
		return
	}
	if _, err := startMarathon(ctx, c.runner, req); err != nil {
		fail(startErrorMessage(err))
	}
}

func (c *wsClient) verify(ctx context.Context, req VerifyRequest) {
	if len(req.Serials) > 0 {
		c.send(stream.StatusMessage(fmt.Sprintf("Verifying %d serials...", len(req.Serials)), "info"))
	}
	resp, err := runVerify(ctx, c.verifier, req)
	if err != nil && resp == nil {
		resp = &VerifyResponse{Results: map[string]string{}, Error: err.Error()}
	}
	c.send(stream.Message{Event: stream.EventVerifyComplete, Data: resp})
}

func (c *wsClient) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	// Closing unblocks readLoop.
	defer func() { _ = c.conn.Close() }()

	write := func(m stream.Message) bool {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		return c.conn.WriteJSON(m) == nil
	}

	for {
		select {
		case m := <-c.direct:
			if !write(m) {
				return
			}
		case m, ok := <-c.sub.C():
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if !write(m) {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
