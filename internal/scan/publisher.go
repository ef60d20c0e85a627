package scan

import "context"

// Publisher delivers a completed scan to downstream consumers
type Publisher interface {
	Publish(ctx context.Context, result *Result) error
	Name() string
}

// PublisherFunc adapts a function to the Publisher interface
type PublisherFunc struct {
	Label string
	Fn    func(ctx context.Context, result *Result) error
}

// Publish calls the wrapped function
func (p PublisherFunc) Publish(ctx context.Context, result *Result) error {
	return p.Fn(ctx, result)
}

// Name returns the publisher label
func (p PublisherFunc) Name() string {
	return p.Label
}
