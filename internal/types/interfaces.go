package types

import (
	"context"
)

// Producer is the Object-Code Producer capability: it compiles one
// compartment's sources and archives/wraps the result into a relocatable
// object. Layout synthesis only needs the artifact names it reports, so tests
// substitute a fake and never spawn a process.
type Producer interface {
	Produce(ctx context.Context, c Compartment) (*Artifact, error)
}

// ProducerFunc adapts a function to the Producer interface.
type ProducerFunc func(ctx context.Context, c Compartment) (*Artifact, error)

// Produce calls f(ctx, c).
func (f ProducerFunc) Produce(ctx context.Context, c Compartment) (*Artifact, error) {
	return f(ctx, c)
}
