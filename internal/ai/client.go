// Package ai calls the external suggestion endpoint that proposes a title
// and summary for note content.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/giyikalim/smart-notes/internal/apperr"
)

// Suggestion is the endpoint's proposal for one piece of text. Fallback is
// set when the proposal was derived locally because the endpoint failed.
type Suggestion struct {
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Language  string    `json:"language"`
	WordCount int       `json:"wordCount"`
	// Content is set when the AI rewrote or organized the text itself.
	Content   string    `json:"content,omitempty"`
	Fallback  bool      `json:"fallback,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Suggester produces suggestions. *Client implements it.
type Suggester interface {
	Suggest(ctx context.Context, text string) (*Suggestion, error)
}

// Config configures the client and its circuit breaker.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// MaxFailures consecutive failures open the breaker.
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

// Client is safe for concurrent use.
type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

var _ Suggester = (*Client)(nil)

type suggestRequest struct {
	Text string `json:"text"`
}

type suggestResponse struct {
	Success   bool      `json:"success"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Language  string    `json:"language"`
	WordCount int       `json:"wordCount"`
	Content   string    `json:"content"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// New creates a client for the endpoint at cfg.BaseURL.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	c := &Client{
		http:   resty.New().SetBaseURL(cfg.BaseURL).SetHeader("Content-Type", "application/json"),
		logger: logger,
	}
	if cfg.Timeout > 0 {
		c.http.SetTimeout(cfg.Timeout)
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ai-suggest",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("ai: breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})
	return c
}

// Suggest asks the endpoint for a title and summary. Every failure is an
// *apperr.AIServiceError, including an open breaker.
func (c *Client) Suggest(ctx context.Context, text string) (*Suggestion, error) {
	out, err := c.breaker.Execute(func() (any, error) {
		return c.call(ctx, text)
	})
	if err != nil {
		var aiErr *apperr.AIServiceError
		if errors.As(err, &aiErr) {
			return nil, err
		}
		return nil, &apperr.AIServiceError{Message: "breaker", Err: err}
	}
	return out.(*Suggestion), nil
}

func (c *Client) call(ctx context.Context, text string) (*Suggestion, error) {
	var body suggestResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(suggestRequest{Text: text}).
		SetResult(&body).
		SetError(&body).
		Post("/suggest")
	if err != nil {
		return nil, &apperr.AIServiceError{Message: "request", Err: err}
	}
	if resp.IsError() {
		msg := body.Error
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.StatusCode())
		}
		return nil, &apperr.AIServiceError{Message: msg}
	}
	if !body.Success {
		msg := body.Error
		if msg == "" {
			msg = "suggestion failed"
		}
		return nil, &apperr.AIServiceError{Message: msg}
	}
	ts := body.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &Suggestion{
		Title:     body.Title,
		Summary:   body.Summary,
		Language:  body.Language,
		WordCount: body.WordCount,
		Content:   body.Content,
		Timestamp: ts,
	}, nil
}
