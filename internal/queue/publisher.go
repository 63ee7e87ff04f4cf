package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    log "github.com/sirupsen/logrus"

    "github.com/iliyamo/event-ticket-registry/internal/ticket"
)

const (
    dialTimeout   = 3 * time.Second
    redialBackoff = 5 * time.Second
)

// ErrBrokerUnavailable is returned without dialing while a failed dial is
// backing off.
var ErrBrokerUnavailable = errors.New("queue: broker unavailable")

// Publisher implements ticket.Publisher.  It keeps one connection and
// channel open and redials on the next publish after either closes.  A
// failed dial is not retried for redialBackoff.
type Publisher struct {
    url         string
    logger      *log.Entry
    dialTimeout time.Duration
    backoff     time.Duration

    mu        sync.Mutex
    conn      *amqp.Connection
    ch        *amqp.Channel
    downUntil time.Time
}

func NewPublisher(url string) *Publisher {
    return &Publisher{
        url:         url,
        logger:      log.WithField("component", "event-publisher"),
        dialTimeout: dialTimeout,
        backoff:     redialBackoff,
    }
}

// Publish sends ev as a persistent JSON message to EventsQueue.
func (p *Publisher) Publish(ctx context.Context, ev ticket.Event) error {
    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }

    p.mu.Lock()
    defer p.mu.Unlock()

    ch, err := p.channel(ctx)
    if err != nil {
        p.logger.WithError(err).Warn("broker unavailable")
        return err
    }
    err = ch.PublishWithContext(ctx,
        "",          // default exchange
        EventsQueue, // routing key = queue name
        false,       // mandatory
        false,       // immediate
        amqp.Publishing{
            ContentType:  "application/json",
            DeliveryMode: amqp.Persistent,
            Timestamp:    time.Now().UTC(),
            Type:         ev.Type,
            Body:         body,
        })
    if err != nil {
        p.logger.WithError(err).WithField("type", ev.Type).Warn("publish failed")
        p.reset()
        return err
    }
    return nil
}

// channel returns the open channel, dialing first if needed.  Callers hold mu.
func (p *Publisher) channel(ctx context.Context) (*amqp.Channel, error) {
    if p.ch != nil && !p.ch.IsClosed() {
        return p.ch, nil
    }
    p.reset()
    if err := ctx.Err(); err != nil {
        return nil, err
    }
    if time.Now().Before(p.downUntil) {
        return nil, ErrBrokerUnavailable
    }
    conn, err := amqp.DialConfig(p.url, amqp.Config{
        Dial:      amqp.DefaultDial(p.dialTimeout), // bounds connect and handshake
        Heartbeat: 10 * time.Second,
        Locale:    "en_US",
    })
    if err != nil {
        p.downUntil = time.Now().Add(p.backoff)
        return nil, fmt.Errorf("dial broker: %w", err)
    }
    p.downUntil = time.Time{}
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return nil, fmt.Errorf("open channel: %w", err)
    }
    // durable so events survive a broker restart
    if _, err := ch.QueueDeclare(EventsQueue, true, false, false, false, nil); err != nil {
        _ = ch.Close()
        _ = conn.Close()
        return nil, fmt.Errorf("declare queue: %w", err)
    }
    p.conn, p.ch = conn, ch
    return ch, nil
}

func (p *Publisher) reset() {
    if p.ch != nil {
        _ = p.ch.Close()
    }
    if p.conn != nil {
        _ = p.conn.Close()
    }
    p.conn, p.ch = nil, nil
}

// Close releases the broker connection.
func (p *Publisher) Close() {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.reset()
}
