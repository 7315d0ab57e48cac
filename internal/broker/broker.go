package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"chat_relay/internal/config"
	pkgerrors "chat_relay/pkg/errors"
	"chat_relay/pkg/logger"
)

// Client wraps one AMQP connection shared by every mailbox operation in the
// process. One direct exchange serves all chats: a payload published with a
// user id as routing key reaches only the queue bound for that user, and is
// dropped by the broker when no such queue exists.
type Client struct {
	cfg config.BrokerConfig
	log logger.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	pubChan *amqp.Channel
}

func NewClient(cfg config.BrokerConfig, log logger.Logger) *Client {
	return &Client{cfg: cfg, log: log}
}

// Connect dials the broker and declares the shared exchange. It is called
// once at startup and again lazily whenever the transport was lost;
// payloads published during a disconnected window are lost.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensureLocked()
}

func (c *Client) ensureLocked() error {
	if c.conn != nil && !c.conn.IsClosed() && c.pubChan != nil && !c.pubChan.IsClosed() {
		return nil
	}

	if c.conn == nil || c.conn.IsClosed() {
		conn, err := amqp.Dial(c.cfg.URL)
		if err != nil {
			return fmt.Errorf("%w: %v", pkgerrors.ErrBrokerUnavailable, err)
		}
		c.conn = conn
		c.pubChan = nil
		c.log.Info("Broker connected", "exchange", c.cfg.Exchange)
	}

	if c.pubChan == nil || c.pubChan.IsClosed() {
		ch, err := c.conn.Channel()
		if err != nil {
			return fmt.Errorf("%w: %v", pkgerrors.ErrBrokerUnavailable, err)
		}
		if err := ch.ExchangeDeclare(c.cfg.Exchange, "direct", false, false, false, false, nil); err != nil {
			_ = ch.Close()
			return fmt.Errorf("%w: declare exchange: %v", pkgerrors.ErrBrokerUnavailable, err)
		}
		c.pubChan = ch
	}

	return nil
}

// Publish serializes payload as JSON and sends it to the exchange with the
// given routing key. Delivery is at most once; an unbound key is a no-op.
func (c *Client) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLocked(); err != nil {
		return err
	}

	err = c.pubChan.PublishWithContext(ctx, c.cfg.Exchange, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("%w: publish: %v", pkgerrors.ErrBrokerUnavailable, err)
	}
	return nil
}

// DeclareMailbox binds an auto-deleted queue named <prefix>_<userId> to the
// exchange with routing key userId and starts consuming it. The mailbox
// owns its channel; Close must run on every connection-teardown path or the
// broker-side queue leaks until the AMQP channel dies with the process.
func (c *Client) DeclareMailbox(userID string) (*Mailbox, error) {
	c.mu.Lock()
	if err := c.ensureLocked(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	conn := c.conn
	c.mu.Unlock()

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%w: channel: %v", pkgerrors.ErrBrokerUnavailable, err)
	}

	queueName := fmt.Sprintf("%s_%s", c.cfg.QueuePrefix, userID)
	queue, err := ch.QueueDeclare(queueName, false, true, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("%w: declare queue %s: %v", pkgerrors.ErrBrokerUnavailable, queueName, err)
	}

	if err := ch.QueueBind(queue.Name, userID, c.cfg.Exchange, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("%w: bind queue %s: %v", pkgerrors.ErrBrokerUnavailable, queueName, err)
	}

	deliveries, err := ch.Consume(queue.Name, "", true, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("%w: consume %s: %v", pkgerrors.ErrBrokerUnavailable, queueName, err)
	}

	m := &Mailbox{
		userID: userID,
		ch:     ch,
		out:    make(chan []byte),
		done:   make(chan struct{}),
	}
	go m.pump(deliveries)

	return m, nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pubChan != nil && !c.pubChan.IsClosed() {
		_ = c.pubChan.Close()
	}
	c.pubChan = nil

	if c.conn != nil && !c.conn.IsClosed() {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	c.conn = nil
	return nil
}

// Mailbox is one user's bound queue for the lifetime of one connection.
type Mailbox struct {
	userID string
	ch     *amqp.Channel
	out    chan []byte
	done   chan struct{}

	closeOnce sync.Once
}

// Deliveries yields raw payload bodies. The channel is closed once the
// mailbox is closed or the underlying AMQP channel dies.
func (m *Mailbox) Deliveries() <-chan []byte {
	return m.out
}

func (m *Mailbox) pump(deliveries <-chan amqp.Delivery) {
	defer close(m.out)
	for d := range deliveries {
		select {
		case m.out <- d.Body:
		case <-m.done:
			return
		}
	}
}

// Close cancels the consumer and releases the queue. Safe to call more
// than once.
func (m *Mailbox) Close() error {
	var err error
	m.closeOnce.Do(func() {
		close(m.done)
		err = m.ch.Close()
	})
	return err
}
