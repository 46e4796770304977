package asr

import "context"

// Exclusive serializes recognition calls into a non-reentrant Engine.
// The wrapped engine mutates shared decoding state, so at most one call
// may be inside it at any instant even though many request handlers run
// concurrently. This is the only lock in the service.
type Exclusive struct {
	engine Engine
	slot   chan struct{}
}

func NewExclusive(engine Engine) *Exclusive {
	return &Exclusive{
		engine: engine,
		slot:   make(chan struct{}, 1),
	}
}

// Recognize waits for exclusive access, runs the wrapped engine, and
// releases the slot on every return path. Waiters are not served in any
// guaranteed order. A caller whose context ends while waiting gives up
// without touching the engine.
func (g *Exclusive) Recognize(ctx context.Context, samples []float32, p Params) ([]Segment, error) {
	select {
	case g.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-g.slot }()

	return g.engine.Recognize(ctx, samples, p)
}

func (g *Exclusive) Close() error {
	return g.engine.Close()
}
