package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat_relay/internal/config"
	pkgerrors "chat_relay/pkg/errors"
	"chat_relay/pkg/logger"
)

type fakeMailbox struct {
	deliveries chan []byte

	mu     sync.Mutex
	closed bool
}

func newFakeMailbox() *fakeMailbox {
	return &fakeMailbox{deliveries: make(chan []byte, 8)}
}

func (f *fakeMailbox) Deliveries() <-chan []byte {
	return f.deliveries
}

func (f *fakeMailbox) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.deliveries)
	}
	return nil
}

func (f *fakeMailbox) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeMailboxBroker struct {
	mu       sync.Mutex
	mailbox  *fakeMailbox
	err      error
	attempts int
}

func (f *fakeMailboxBroker) DeclareMailbox(userID string) (Mailbox, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.err != nil {
		return nil, f.err
	}
	return f.mailbox, nil
}

type recordedFrame struct {
	senderID  string
	bookingID string
	raw       string
}

type fakeRelay struct {
	mu     sync.Mutex
	frames []recordedFrame
}

func (f *fakeRelay) HandleFrame(ctx context.Context, senderID, bookingID string, raw []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, recordedFrame{senderID: senderID, bookingID: bookingID, raw: string(raw)})
	return nil
}

func (f *fakeRelay) recorded() []recordedFrame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedFrame{}, f.frames...)
}

type gatewayFixture struct {
	server   *httptest.Server
	registry *Registry
	relay    *fakeRelay
	broker   *fakeMailboxBroker
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fx := &gatewayFixture{
		registry: NewRegistry(),
		relay:    &fakeRelay{},
		broker:   &fakeMailboxBroker{mailbox: newFakeMailbox()},
	}

	h := NewWebSocketHandler(fx.relay, fx.broker, fx.registry, config.BrokerConfig{
		ConnectRetries: 1,
		RetryBackoff:   time.Millisecond,
	}, logger.NewNop())

	router := gin.New()
	router.GET("/ws/:userId/:bookingId", h.HandleChat)

	fx.server = httptest.NewServer(router)
	t.Cleanup(fx.server.Close)
	return fx
}

func (fx *gatewayFixture) dial(t *testing.T, userID, bookingID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(fx.server.URL, "http") + "/ws/" + userID + "/" + bookingID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestGatewayForwardsInboundFramesInOrder(t *testing.T) {
	fx := newGatewayFixture(t)

	conn := fx.dial(t, "u1", "bk-1")
	defer conn.Close()

	for _, frame := range []string{`{"n":1}`, `{"n":2}`, `{"n":3}`} {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
	}

	waitFor(t, func() bool { return len(fx.relay.recorded()) == 3 })

	frames := fx.relay.recorded()
	for i, raw := range []string{`{"n":1}`, `{"n":2}`, `{"n":3}`} {
		assert.Equal(t, raw, frames[i].raw)
		assert.Equal(t, "u1", frames[i].senderID)
		assert.Equal(t, "bk-1", frames[i].bookingID)
	}
}

func TestGatewayDrainsMailboxToSocket(t *testing.T) {
	fx := newGatewayFixture(t)

	conn := fx.dial(t, "u2", "bk-1")
	defer conn.Close()

	fx.broker.mailbox.deliveries <- []byte(`{"content":"hi"}`)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, `{"content":"hi"}`, string(payload))
}

func TestGatewayRegistersPresenceForConnectionLifetime(t *testing.T) {
	fx := newGatewayFixture(t)

	conn := fx.dial(t, "u1", "bk-1")
	waitFor(t, func() bool { return fx.registry.IsOnline("u1") })

	conn.Close()
	waitFor(t, func() bool { return !fx.registry.IsOnline("u1") })
	waitFor(t, func() bool { return fx.broker.mailbox.isClosed() })
}

func TestGatewayRejectsConnectionWhenBrokerIsDown(t *testing.T) {
	fx := newGatewayFixture(t)
	fx.broker.mu.Lock()
	fx.broker.err = pkgerrors.ErrBrokerUnavailable
	fx.broker.mu.Unlock()

	url := "ws" + strings.TrimPrefix(fx.server.URL, "http") + "/ws/u1/bk-1"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	// Declaration was retried before giving up.
	fx.broker.mu.Lock()
	attempts := fx.broker.attempts
	fx.broker.mu.Unlock()
	assert.Equal(t, 2, attempts)

	assert.False(t, fx.registry.IsOnline("u1"))
}
