package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"chat_relay/internal/broker"
	"chat_relay/internal/config"
	"chat_relay/internal/service"
	"chat_relay/pkg/logger"
)

// writeWait bounds a single socket write so a dead peer cannot stall the
// drain goroutine past teardown.
const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Origin is enforced by the edge proxy.
	},
}

// Mailbox is one user's bound broker queue for the lifetime of a
// connection.
type Mailbox interface {
	Deliveries() <-chan []byte
	Close() error
}

// MailboxBroker declares mailboxes; satisfied by the AMQP client through
// NewMailboxSource.
type MailboxBroker interface {
	DeclareMailbox(userID string) (Mailbox, error)
}

type mailboxSource struct {
	client *broker.Client
}

func NewMailboxSource(client *broker.Client) MailboxBroker {
	return &mailboxSource{client: client}
}

func (s *mailboxSource) DeclareMailbox(userID string) (Mailbox, error) {
	m, err := s.client.DeclareMailbox(userID)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// WebSocketHandler is the connection gateway. Each accepted socket runs two
// duties until teardown: a read loop feeding inbound frames to the relay,
// and a drain goroutine copying mailbox deliveries to the socket.
type WebSocketHandler struct {
	relay    service.RelayService
	mailbox  MailboxBroker
	registry *Registry
	retries  int
	backoff  time.Duration
	log      logger.Logger
}

func NewWebSocketHandler(
	relay service.RelayService,
	mailbox MailboxBroker,
	registry *Registry,
	cfg config.BrokerConfig,
	log logger.Logger,
) *WebSocketHandler {
	return &WebSocketHandler{
		relay:    relay,
		mailbox:  mailbox,
		registry: registry,
		retries:  cfg.ConnectRetries,
		backoff:  cfg.RetryBackoff,
		log:      log,
	}
}

func (h *WebSocketHandler) HandleChat(c *gin.Context) {
	userID := c.Param("userId")
	bookingID := c.Param("bookingId")
	if userID == "" || bookingID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId and bookingId are required"})
		return
	}

	// The mailbox must exist before the socket is accepted; without it the
	// connection could never receive anything.
	mailbox, err := h.declareWithRetry(userID)
	if err != nil {
		h.log.Error("Failed to declare mailbox", "userId", userID, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "message broker unavailable"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "userId", userID, "error", err)
		_ = mailbox.Close()
		return
	}

	connID := h.registry.Register(userID)
	h.log.Info("Connection open", "userId", userID, "bookingId", bookingID, "connId", connID)

	// Teardown order: stop the drain by closing the mailbox, then release
	// the registry entry, then the socket.
	defer func() {
		_ = mailbox.Close()
		h.registry.Deregister(userID, connID)
		_ = conn.Close()
		h.log.Info("Connection closed", "userId", userID, "connId", connID)
	}()

	drainDone := make(chan struct{})
	go func() {
		defer close(drainDone)
		h.drain(conn, mailbox, userID)
	}()

	h.readLoop(conn, userID, bookingID)

	_ = mailbox.Close()
	<-drainDone
}

func (h *WebSocketHandler) declareWithRetry(userID string) (Mailbox, error) {
	var mailbox Mailbox
	var err error
	for attempt := 0; ; attempt++ {
		mailbox, err = h.mailbox.DeclareMailbox(userID)
		if err == nil {
			return mailbox, nil
		}
		if attempt >= h.retries {
			return nil, err
		}
		h.log.Warn("Mailbox declaration failed, retrying", "userId", userID, "attempt", attempt+1, "error", err)
		time.Sleep(h.backoff * time.Duration(attempt+1))
	}
}

// drain forwards mailbox payloads to the socket verbatim. It ends when the
// mailbox closes; a write failure just waits for the read loop to notice
// the dead socket.
func (h *WebSocketHandler) drain(conn *websocket.Conn, mailbox Mailbox, userID string) {
	for payload := range mailbox.Deliveries() {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.log.Warn("Failed to write to socket", "userId", userID, "error", err)
			return
		}
	}
}

// readLoop processes inbound frames strictly in arrival order. Frame-level
// failures are the relay's to log; only a transport error ends the loop.
func (h *WebSocketHandler) readLoop(conn *websocket.Conn, userID, bookingID string) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Warn("Socket read failed", "userId", userID, "error", err)
			}
			return
		}

		// Background context: an accepted frame runs to completion even if
		// the connection dies mid-fan-out.
		_ = h.relay.HandleFrame(context.Background(), userID, bookingID, raw)
	}
}
