package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const (
	defaultPoolSize = 4
	publishTimeout  = 5 * time.Second
	contentTypeJSON = "application/json"
)

var errPoolClosed = errors.New("events: channel pool closed")

// channelPool hands out AMQP channels on one connection. Every channel has
// the queue declared.
type channelPool struct {
	conn     *amqp.Connection
	queue    string
	channels chan *amqp.Channel

	mu     sync.Mutex
	closed bool
}

func newChannelPool(url, queue string, size int) (*channelPool, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	p := &channelPool{
		conn:     conn,
		queue:    queue,
		channels: make(chan *amqp.Channel, size),
	}
	for i := 0; i < size; i++ {
		ch, err := p.open()
		if err != nil {
			p.close()
			return nil, fmt.Errorf("open channel %d: %w", i, err)
		}
		p.channels <- ch
	}
	return p, nil
}

func (p *channelPool) open() (*amqp.Channel, error) {
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, err
	}
	// durable, not auto-deleted, not exclusive
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare queue %s: %w", p.queue, err)
	}
	return ch, nil
}

// get waits for a free channel, replacing it if the broker closed it.
func (p *channelPool) get(ctx context.Context) (*amqp.Channel, error) {
	select {
	case ch, ok := <-p.channels:
		if !ok {
			return nil, errPoolClosed
		}
		if ch.IsClosed() {
			return p.open()
		}
		return ch, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *channelPool) put(ch *amqp.Channel) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || ch.IsClosed() {
		ch.Close()
		return
	}
	select {
	case p.channels <- ch:
	default:
		ch.Close()
	}
}

func (p *channelPool) close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	close(p.channels)
	for ch := range p.channels {
		ch.Close()
	}
	return p.conn.Close()
}

// AMQPPublisher publishes events as persistent JSON messages to a durable
// queue through the default exchange.
type AMQPPublisher struct {
	pool   *channelPool
	queue  string
	logger zerolog.Logger
}

// NewAMQPPublisher connects to the broker and declares queue.
func NewAMQPPublisher(url, queue string, logger zerolog.Logger) (*AMQPPublisher, error) {
	pool, err := newChannelPool(url, queue, defaultPoolSize)
	if err != nil {
		return nil, fmt.Errorf("events: %w", err)
	}

	log := logger.With().Str("component", "event_publisher").Str("queue", queue).Logger()
	log.Info().Int("channels", defaultPoolSize).Msg("connected to message broker")

	return &AMQPPublisher{pool: pool, queue: queue, logger: log}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("events: marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	ch, err := p.pool.get(ctx)
	if err != nil {
		return fmt.Errorf("events: get channel: %w", err)
	}
	defer p.pool.put(ch)

	err = ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  contentTypeJSON,
			MessageId:    event.ID,
			Type:         event.Type,
			Timestamp:    event.ReceivedAt,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("events: publish %s: %w", event.ID, err)
	}

	p.logger.Debug().Str("event_id", event.ID).Str("event_type", event.Type).Msg("event published")
	return nil
}

func (p *AMQPPublisher) Close() error {
	return p.pool.close()
}
