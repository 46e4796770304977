package asr

import "context"

// Engine runs full decoding over a buffer of mono float samples and
// reports the detected utterances in order.
//
// Implementations are not required to be safe for concurrent use; wrap
// an Engine in Exclusive before sharing it across request handlers.
type Engine interface {
	Recognize(ctx context.Context, samples []float32, p Params) ([]Segment, error)
	Close() error
}
