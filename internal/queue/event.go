// Package queue moves committed ticket events over RabbitMQ: Publisher
// sends them from the engine, Consumer appends them to an audit log.
package queue

import (
    "fmt"
    "strings"
    "time"

    "github.com/iliyamo/event-ticket-registry/internal/ticket"
)

// EventsQueue is the durable queue every ticket event is routed to.
const EventsQueue = "tickets.events"

// auditLine renders one event as a single log line.
func auditLine(ev ticket.Event) string {
    var b strings.Builder
    fmt.Fprintf(&b, "[%s] %s", ev.At.UTC().Format(time.RFC3339), ev.Type)
    if ev.Seq != 0 {
        fmt.Fprintf(&b, " | seq=%d", ev.Seq)
    }
    if ev.TicketID != nil {
        fmt.Fprintf(&b, " | ticket_id=%d", uint64(*ev.TicketID))
    }
    if ev.From != "" {
        fmt.Fprintf(&b, " | from=%s", ev.From)
    }
    if ev.To != "" {
        fmt.Fprintf(&b, " | to=%s", ev.To)
    }
    if ev.Amount != "" {
        fmt.Fprintf(&b, " | amount=%s", ev.Amount)
    }
    if ev.MetadataURI != "" {
        fmt.Fprintf(&b, " | metadata_uri=%q", ev.MetadataURI)
    }
    b.WriteByte('\n')
    return b.String()
}
