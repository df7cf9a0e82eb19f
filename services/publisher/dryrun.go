package publisher

import (
	"context"
	"io"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"sjsage522/promoworker/pkg/errors"
)

// DryRunPublisher renders messages as tables instead of sending them
type DryRunPublisher struct {
	mu  sync.Mutex
	out io.Writer
	n   int
}

// NewDryRunPublisher writes rendered messages to out
func NewDryRunPublisher(out io.Writer) *DryRunPublisher {
	return &DryRunPublisher{out: out}
}

// Send renders the message
func (p *DryRunPublisher) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return errors.NewPublisher(PublisherNameDryRun, "send cancelled", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.n++

	image := msg.ImageURL
	if image == "" {
		image = "-"
	}

	t := table.NewWriter()
	t.SetOutputMirror(p.out)
	t.SetStyle(table.StyleRounded)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})
	t.AppendHeader(table.Row{"#", "Image", "Message"})
	t.AppendRow(table.Row{p.n, image, msg.Text})
	t.Render()
	return nil
}

// Sent returns how many messages were rendered
func (p *DryRunPublisher) Sent() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.n
}

// Close does nothing
func (p *DryRunPublisher) Close() error {
	return nil
}
