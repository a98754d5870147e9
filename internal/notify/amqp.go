package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/config"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
)

// declareQueue declares queue with a companion "<queue>.dead" queue that
// receives rejected deliveries.
func declareQueue(ch *amqp.Channel, queue string) error {
	dead := queue + ".dead"
	if _, err := ch.QueueDeclare(dead, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", dead, err)
	}
	_, err := ch.QueueDeclare(queue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": dead,
	})
	if err != nil {
		return fmt.Errorf("declare %s: %w", queue, err)
	}
	return nil
}

func dialChannel(url, queue string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := declareQueue(ch, queue); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, err
	}
	return conn, ch, nil
}

// AMQPPublisher hands jobs to the notifier worker through RabbitMQ. It is a
// Sender, so the relay can use it in place of DirectSender. The channel runs
// in confirm mode: Send returns only after the broker has taken the message,
// and a dropped connection is redialled on the next Send.
type AMQPPublisher struct {
	url   string
	queue string
	cb    *gobreaker.CircuitBreaker

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

var errNacked = errors.New("broker did not confirm the message")

func NewAMQPPublisher(url, queue string) (*AMQPPublisher, error) {
	p := &AMQPPublisher{
		url:   url,
		queue: queue,
		cb:    config.NewCircuitBreaker("RabbitMQ-Publisher", 30*time.Second, nil),
	}
	if _, err := p.channel(); err != nil {
		return nil, err
	}
	return p, nil
}

// channel returns the open confirm-mode channel, dialling a new one when the
// previous connection has gone away. Callers hold mu.
func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() && !p.conn.IsClosed() {
		return p.ch, nil
	}
	reconnect := p.conn != nil
	p.drop()
	conn, ch, err := dialChannel(p.url, p.queue)
	if err != nil {
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("amqp confirm mode: %w", err)
	}
	if reconnect {
		slog.Info("amqp publisher reconnected", "queue", p.queue)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *AMQPPublisher) drop() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

func (p *AMQPPublisher) Send(ctx context.Context, job Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}
	_, err = p.cb.Execute(func() (interface{}, error) {
		return nil, p.publish(ctx, job, body)
	})
	if err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}

func (p *AMQPPublisher) publish(ctx context.Context, job Job, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	conf, err := ch.PublishWithDeferredConfirmWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID.String(),
		Type:         job.Kind,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		p.drop()
		return err
	}
	if err := awaitConfirm(ctx, conf); err != nil {
		// The outcome is unknown; a fresh channel keeps later confirms in step.
		p.drop()
		return err
	}
	return nil
}

type confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

// awaitConfirm blocks until the broker acks or nacks the publish or ctx ends.
func awaitConfirm(ctx context.Context, conf confirmation) error {
	acked, err := conf.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("waiting for confirm: %w", err)
	}
	if !acked {
		return errNacked
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return nil
	}
	if err := p.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return err
	}
	err := p.conn.Close()
	p.ch, p.conn = nil, nil
	if errors.Is(err, amqp.ErrClosed) {
		return nil
	}
	return err
}

// AMQPConsumer delivers queued jobs with a Sender, normally DirectSender.
// Failed deliveries are rejected into the dead-letter queue.
type AMQPConsumer struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	queue    string
	delivery Sender
}

func NewAMQPConsumer(url, queue string, delivery Sender) (*AMQPConsumer, error) {
	conn, ch, err := dialChannel(url, queue)
	if err != nil {
		return nil, err
	}
	if err := ch.Qos(10, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("amqp qos: %w", err)
	}
	return &AMQPConsumer{conn: conn, ch: ch, queue: queue, delivery: delivery}, nil
}

func (c *AMQPConsumer) Run(ctx context.Context) error {
	deliveries, err := c.ch.Consume(c.queue, "surokha-notifier", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("amqp consume: %w", err)
	}
	slog.Info("notification consumer started", "queue", c.queue)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("amqp delivery channel closed")
			}
			c.handle(ctx, d)
		}
	}
}

func (c *AMQPConsumer) handle(ctx context.Context, d amqp.Delivery) {
	var job Job
	if err := json.Unmarshal(d.Body, &job); err != nil {
		slog.Error("invalid notification message", "message_id", d.MessageId, "error", err)
		_ = d.Nack(false, false)
		return
	}
	if err := c.delivery.Send(ctx, job); err != nil {
		slog.Error("queued notification failed",
			"job_id", job.ID, "kind", job.Kind, "channel", job.Channel(), "action", "notification_failed", "error", err)
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

func (c *AMQPConsumer) Close() error {
	if err := c.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return err
	}
	return c.conn.Close()
}
