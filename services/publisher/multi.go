package publisher

import (
	"context"
	stderrors "errors"
)

// MultiPublisher fans each message out to several publishers
type MultiPublisher struct {
	publishers []Publisher
}

// NewMultiPublisher creates a fan-out over publishers, in order
func NewMultiPublisher(publishers ...Publisher) *MultiPublisher {
	return &MultiPublisher{publishers: publishers}
}

// Send delivers msg to every publisher. A failure in one publisher does
// not stop delivery to the rest; all failures are joined.
func (m *MultiPublisher) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// Close closes every publisher
func (m *MultiPublisher) Close() error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
