package publisher

import (
	"context"

	"sjsage522/promoworker/pkg/errors"
)

// Publisher names used as error sources
const (
	PublisherNameTelegram = "telegram"
	PublisherNameRedis    = "redis"
	PublisherNameKafka    = "kafka"
	PublisherNameDryRun   = "dry-run"
)

// Message is a channel-ready promotion. An empty ImageURL means text only.
type Message struct {
	Text     string `json:"text"`
	ImageURL string `json:"image_url,omitempty"`
}

// Publisher represents a service for publishing messages to a channel
type Publisher interface {
	// Send publishes one message
	Send(ctx context.Context, msg Message) error

	// Close releases the publisher's connections
	Close() error
}

// Result is the outcome of a single send attempt
type Result struct {
	Success   bool
	ErrorKind errors.ErrorType
}

// NewResult classifies the error returned by Send
func NewResult(err error) Result {
	if err == nil {
		return Result{Success: true}
	}
	return Result{ErrorKind: errors.KindOf(err)}
}
