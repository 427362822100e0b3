package greeting

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	applog "github.com/janisto/greeting-service/internal/platform/logging"
)

const (
	// DefaultName is substituted when the caller supplies no name.
	DefaultName = "World"
	// Template renders the greeting content.
	Template = "Hello, %s!"
)

// Greeting is built per request and never stored.
type Greeting struct {
	ID      int64
	Content string
}

// Counter hands out process-wide greeting ids starting at 1.
type Counter struct {
	n atomic.Int64
}

// NewCounter returns a counter whose first id is 1.
func NewCounter() *Counter {
	return &Counter{}
}

// Next increments the counter and returns the new id.
func (c *Counter) Next() int64 {
	return c.n.Add(1)
}

// Current returns the last id handed out, 0 if none.
func (c *Counter) Current() int64 {
	return c.n.Load()
}

// Service defines greeting operations.
type Service interface {
	Greet(ctx context.Context, name string) (*Greeting, error)
	// Issued reports how many ids have been handed out.
	Issued() int64
}

type service struct {
	counter *Counter
}

// New creates a greeting service drawing ids from counter.
// A nil counter gets a fresh one.
func New(counter *Counter) Service {
	if counter == nil {
		counter = NewCounter()
	}
	return &service{counter: counter}
}

func (s *service) Greet(ctx context.Context, name string) (*Greeting, error) {
	if name == "" {
		name = DefaultName
	}
	g := &Greeting{
		ID:      s.counter.Next(),
		Content: fmt.Sprintf(Template, name),
	}
	applog.LogInfo(ctx, "greeting issued", zap.Int64("id", g.ID), zap.String("name", name))
	return g, nil
}

func (s *service) Issued() int64 {
	return s.counter.Current()
}
