package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// expoMaxBatch is the largest message array the Expo push API accepts.
const expoMaxBatch = 100

type ExpoConfig struct {
	Endpoint    string
	AccessToken string
	Timeout     time.Duration
}

type expoResponse struct {
	Data   []expoTicket `json:"data"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

type expoTicket struct {
	Status  string `json:"status"`
	ID      string `json:"id"`
	Message string `json:"message"`
	Details struct {
		Error string `json:"error"`
	} `json:"details"`
}

type ExpoProvider struct {
	endpoint string
	token    string
	client   *http.Client
}

func NewExpo(cfg ExpoConfig) *ExpoProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ExpoProvider{
		endpoint: strings.TrimSpace(cfg.Endpoint),
		token:    strings.TrimSpace(cfg.AccessToken),
		client:   &http.Client{Timeout: timeout},
	}
}

func (p *ExpoProvider) Name() string { return "expo" }

func (p *ExpoProvider) Send(ctx context.Context, messages []Message) ([]Ticket, error) {
	if p.endpoint == "" {
		return nil, ErrInvalidConfig
	}
	tickets := make([]Ticket, 0, len(messages))
	for start := 0; start < len(messages); start += expoMaxBatch {
		end := start + expoMaxBatch
		if end > len(messages) {
			end = len(messages)
		}
		chunk, err := p.send(ctx, messages[start:end])
		if err != nil {
			return tickets, err
		}
		tickets = append(tickets, chunk...)
	}
	return tickets, nil
}

func (p *ExpoProvider) send(ctx context.Context, messages []Message) ([]Ticket, error) {
	body, err := json.Marshal(messages)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamFailed, err)
	}
	defer resp.Body.Close()

	var decoded expoResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: status %d", ErrUpstreamFailed, resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest || len(decoded.Errors) > 0 {
		message := fmt.Sprintf("status %d", resp.StatusCode)
		if len(decoded.Errors) > 0 {
			message = decoded.Errors[0].Message
		}
		return nil, fmt.Errorf("%w: %s", ErrUpstreamFailed, message)
	}
	if len(decoded.Data) != len(messages) {
		return nil, fmt.Errorf("%w: expected %d tickets, got %d", ErrUpstreamFailed, len(messages), len(decoded.Data))
	}

	tickets := make([]Ticket, 0, len(decoded.Data))
	for _, item := range decoded.Data {
		ticket := Ticket{Status: item.Status, ID: item.ID, Message: item.Message}
		if item.Details.Error != "" {
			ticket.Message = item.Details.Error
		}
		tickets = append(tickets, ticket)
	}
	return tickets, nil
}
