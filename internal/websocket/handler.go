package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"agrilink/internal/services"
	"agrilink/internal/transport/httpdto"
	"agrilink/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// controlFrame is the client-to-server protocol: subscribe/unsubscribe
// to connection channels for the views the user has open.
type controlFrame struct {
	Action  string `json:"action"`
	Channel string `json:"channel"`
}

type Handler struct {
	auth       *services.AuthService
	authorizer *Authorizer
	hub        *Hub
	log        *logger.Logger
}

func NewHandler(auth *services.AuthService, authorizer *Authorizer, hub *Hub, log *logger.Logger) *Handler {
	return &Handler{auth: auth, authorizer: authorizer, hub: hub, log: log}
}

// Connect upgrades the request and runs the session until the client
// goes away. The session is bound to the open UI view; tearing it down
// has no residual effect.
func (h *Handler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	principal, err := h.auth.ParseAccessToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := NewClient(conn, principal.UserID.String())
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	h.hub.Register(client)
	go client.WriteLoop(ctx)

	// Every session gets the user's personal notification channel.
	h.hub.Subscribe(client, UserChannel(principal))

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	})
	_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))

		var frame controlFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		switch frame.Action {
		case "subscribe":
			if err := h.authorizer.CanSubscribe(ctx, principal, frame.Channel); err != nil {
				h.log.Warnf("subscribe to %s denied for user %s: %v", frame.Channel, principal.UserID, err)
				continue
			}
			h.hub.Subscribe(client, frame.Channel)
		case "unsubscribe":
			h.hub.Unsubscribe(client, frame.Channel)
		}
	}

	h.hub.Unregister(client)
}
