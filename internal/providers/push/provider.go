package push

import (
	"context"
	"errors"
)

// Message is one notification addressed to a single device token.
type Message struct {
	To    string         `json:"to"`
	Title string         `json:"title,omitempty"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
	Sound string         `json:"sound,omitempty"`
	Badge *int           `json:"badge,omitempty"`
}

const (
	TicketOK    = "ok"
	TicketError = "error"
)

// Ticket is the per-message delivery outcome, in request order.
type Ticket struct {
	Status  string `json:"status"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

type Provider interface {
	Name() string
	Send(ctx context.Context, messages []Message) ([]Ticket, error)
}

var (
	ErrInvalidConfig  = errors.New("push_invalid_config")
	ErrUpstreamFailed = errors.New("push_upstream_failed")
)

type NoOpProvider struct{}

func (p *NoOpProvider) Name() string { return "noop" }

func (p *NoOpProvider) Send(ctx context.Context, messages []Message) ([]Ticket, error) {
	tickets := make([]Ticket, len(messages))
	for i := range tickets {
		tickets[i] = Ticket{Status: TicketOK}
	}
	return tickets, nil
}
