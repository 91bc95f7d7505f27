package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/avolkov/directline/internal/auth"
	"github.com/avolkov/directline/internal/core"
	"github.com/avolkov/directline/internal/proto"
)

// WSHandler authenticates WebSocket connections and bridges them to the hub.
type WSHandler struct {
	hub       *core.Hub
	auth      *auth.Service
	rateLimit int
	log       *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, authService *auth.Service, rateLimit int, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{
		hub:       hub,
		auth:      authService,
		rateLimit: rateLimit,
		log:       logger,
	}
}

// Handle upgrades the connection after the bearer credential resolves to a
// user. An unauthenticated connection is refused before any event handler is
// reachable.
// GET /ws?token=...
func (h *WSHandler) Handle(c *gin.Context) {
	ctx := c.Request.Context()

	user, err := h.auth.Authenticate(ctx, extractToken(c))
	if err != nil {
		h.log.Debug().Err(err).Msg("ws authentication refused")
		status := http.StatusUnauthorized
		switch {
		case errors.Is(err, auth.ErrNoToken):
			c.JSON(status, ErrorResponse{Error: "token is required"})
		case errors.Is(err, auth.ErrInvalidToken):
			c.JSON(status, ErrorResponse{Error: "invalid token"})
		case errors.Is(err, auth.ErrUnknownUser):
			c.JSON(status, ErrorResponse{Error: "unknown user"})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	client := core.NewClient(user)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	h.hub.Connect(ctx, client)
	// Disconnect must run even after the request context is gone so the
	// offline transition is always processed.
	defer h.hub.Disconnect(context.WithoutCancel(ctx), client)

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// extractToken reads the credential from the token query parameter or the
// Authorization header. Browsers cannot set headers on WebSocket dials, so
// the query parameter is the primary channel.
func extractToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}

	authHeader := c.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	limiter := newRateLimiter(h.rateLimit)
	defer limiter.stop()

	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		switch inbound.Type {
		case proto.InboundTypeMessageSend:
			var send proto.SendData
			if err := json.Unmarshal(inbound.Data, &send); err != nil {
				client.Enqueue(&core.Event{
					Kind:  core.EventMessageError,
					Error: core.NewError(core.ErrCodeBadRequest, "malformed message:send payload"),
				})
				continue
			}
			if !limiter.allow() {
				client.Enqueue(&core.Event{
					Kind:  core.EventMessageError,
					Error: core.NewError(core.ErrCodeRateLimited, "too many messages, slow down"),
				})
				continue
			}
			// The send must complete even if this connection drops mid-way:
			// persistence and recipient delivery survive; only the sender's
			// acknowledgment becomes a no-op.
			if _, cerr := h.hub.Send(context.WithoutCancel(ctx), client, send.To, send.Content); cerr != nil {
				client.Enqueue(&core.Event{Kind: core.EventMessageError, Error: cerr})
			}
		default:
			client.Enqueue(&core.Event{
				Kind:  core.EventMessageError,
				Error: core.NewError(core.ErrCodeBadRequest, "unknown event type"),
			})
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("client_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
