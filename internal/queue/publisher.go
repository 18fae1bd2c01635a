package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ErrBacklog is returned by Publish when the outgoing buffer is full.
var ErrBacklog = errors.New("sale event backlog full")

const (
	defaultBacklog = 256
	defaultTimeout = 3 * time.Second
)

// Publisher sends SaleEvents to the SalesQueue.  Publish only buffers the
// event; Run delivers it, dialing one connection per event so a broker
// outage only affects the events sent during it.
type Publisher struct {
	url     string
	log     *zap.Logger
	events  chan SaleEvent
	timeout time.Duration
}

// NewPublisher returns a publisher for the broker at url.  Nothing is sent
// until Run is started.
func NewPublisher(url string, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{url: url, log: log, events: make(chan SaleEvent, defaultBacklog), timeout: defaultTimeout}
}

// Publish queues ev for delivery and never blocks.  A full buffer drops the
// event and returns ErrBacklog.
func (p *Publisher) Publish(_ context.Context, ev SaleEvent) error {
	select {
	case p.events <- ev:
		return nil
	default:
		p.log.Warn("sale event dropped", zap.String("type", ev.Type), zap.Uint64("sale_id", ev.SaleID))
		return ErrBacklog
	}
}

// Run delivers queued events until ctx ends.  Delivery failures are logged.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			if n := len(p.events); n > 0 {
				p.log.Warn("sale events not delivered at shutdown", zap.Int("count", n))
			}
			return
		case ev := <-p.events:
			_ = p.send(ctx, ev)
		}
	}
}

// send publishes ev as a persistent JSON message.  Dialing and publishing
// share one deadline.
func (p *Publisher) send(ctx context.Context, ev SaleEvent) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(p.timeout)})
	if err != nil {
		p.log.Warn("rabbitmq dial failed", zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn("rabbitmq channel open failed", zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		SalesQueue, // name
		true,       // durable
		false,      // autoDelete
		false,      // exclusive
		false,      // noWait
		nil,        // args
	); err != nil {
		p.log.Warn("rabbitmq queue declare failed", zap.Error(err))
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         ev.Type,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", SalesQueue, false, false, pub); err != nil {
		p.log.Warn("rabbitmq publish failed", zap.Error(err), zap.Uint64("sale_id", ev.SaleID))
		return err
	}
	p.log.Debug("sale event published", zap.String("type", ev.Type), zap.Uint64("sale_id", ev.SaleID))
	return nil
}
