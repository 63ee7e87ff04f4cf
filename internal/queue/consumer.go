package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    log "github.com/sirupsen/logrus"

    "github.com/iliyamo/event-ticket-registry/internal/ticket"
)

// AuditFile is the file name the consumer appends to inside its directory.
const AuditFile = "tickets.log"

// Consumer drains EventsQueue into Dir/tickets.log, one line per event.
type Consumer struct {
    URL    string
    Dir    string
    Logger *log.Entry
}

func NewConsumer(url, dir string) *Consumer {
    return &Consumer{URL: url, Dir: dir, Logger: log.WithField("component", "audit-consumer")}
}

// Run consumes until ctx is cancelled, redialing with backoff whenever the
// broker goes away.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.URL)
        if err == nil {
            backoff = time.Second
            err = c.consumeLoop(ctx, conn)
            _ = conn.Close()
            if ctx.Err() != nil {
                return ctx.Err()
            }
        }
        c.Logger.WithError(err).Warnf("consumer disconnected; retrying in %s", backoff)
        select {
        case <-ctx.Done():
            return ctx.Err()
        case <-time.After(backoff):
        }
        if backoff < 30*time.Second {
            backoff *= 2
        }
    }
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.Logger.WithError(err).Warn("set QoS failed")
    }
    if _, err := ch.QueueDeclare(EventsQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.ConsumeWithContext(ctx, EventsQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for d := range msgs {
        if err := c.handleMessage(d.Body); err != nil {
            c.Logger.WithError(err).Error("handle message failed")
            _ = d.Nack(false, false) // reject without requeue to avoid a hot loop
            continue
        }
        _ = d.Ack(false)
    }
    return errors.New("deliveries channel closed")
}

func (c *Consumer) handleMessage(body []byte) error {
    var ev ticket.Event
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Type == "" {
        return errors.New("event without type")
    }
    if err := os.MkdirAll(c.Dir, 0o755); err != nil {
        return fmt.Errorf("mkdir %s: %w", c.Dir, err)
    }
    f, err := os.OpenFile(filepath.Join(c.Dir, AuditFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open audit log: %w", err)
    }
    defer f.Close()
    if _, err := f.WriteString(auditLine(ev)); err != nil {
        return fmt.Errorf("write audit log: %w", err)
    }
    return nil
}
