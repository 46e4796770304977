package pipeline

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/audiotextlabs/audio-to-text/internal/asr"
	"github.com/audiotextlabs/audio-to-text/internal/audio"
	"github.com/audiotextlabs/audio-to-text/internal/bus"
	"github.com/audiotextlabs/audio-to-text/internal/protocol"
)

// Pipeline orchestrates one recognition: normalization (file flow
// only), WAV decode and downmix, the guarded engine call, temp-file
// cleanup, and transcript broadcasting. Everything outside the engine
// call runs concurrently across requests.
type Pipeline struct {
	normalizer audio.Normalizer
	engine     asr.Engine
	bus        *bus.Client // nil when event publishing is disabled
	log        *slog.Logger

	requests metric.Int64Counter
	duration metric.Float64Histogram
}

func New(normalizer audio.Normalizer, engine asr.Engine, busClient *bus.Client, log *slog.Logger) *Pipeline {
	meter := otel.Meter("audio-to-text/pipeline")
	requests, _ := meter.Int64Counter("recognize.requests")
	duration, _ := meter.Float64Histogram("recognize.duration_ms")

	return &Pipeline{
		normalizer: normalizer,
		engine:     engine,
		bus:        busClient,
		log:        log,
		requests:   requests,
		duration:   duration,
	}
}

// RecognizeFile transcodes the file at path to canonical PCM, decodes
// it, and runs recognition. The normalized temp file is removed after
// the engine call whether or not it succeeded; a failed removal is
// logged and otherwise ignored.
func (p *Pipeline) RecognizeFile(ctx context.Context, path string, params asr.Params) ([]asr.Segment, error) {
	normalized, err := p.normalizer.Normalize(ctx, path, params.SampleRate)
	if err != nil {
		return nil, err
	}
	defer p.removeTempFile(normalized)

	samples, err := audio.DecodeWAVFile(normalized)
	if err != nil {
		return nil, err
	}

	return p.recognize(ctx, samples, params, "file")
}

// RecognizeChunk runs recognition over an in-memory WAV payload. The
// chunk is assumed to already be canonical PCM, so normalization is
// skipped and no temp file is created.
func (p *Pipeline) RecognizeChunk(ctx context.Context, data []byte, params asr.Params) ([]asr.Segment, error) {
	samples, err := audio.DecodeWAV(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	return p.recognize(ctx, samples, params, "chunk")
}

func (p *Pipeline) recognize(ctx context.Context, samples []float32, params asr.Params, flow string) ([]asr.Segment, error) {
	start := time.Now()
	segments, err := p.engine.Recognize(ctx, samples, params)

	p.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("flow", flow),
		attribute.Bool("error", err != nil)))
	p.duration.Record(ctx, float64(time.Since(start).Milliseconds()),
		metric.WithAttributes(attribute.String("flow", flow)))

	if err != nil {
		return nil, err
	}

	p.publishTranscript(segments, flow)
	return segments, nil
}

func (p *Pipeline) publishTranscript(segments []asr.Segment, flow string) {
	if p.bus == nil || len(segments) == 0 {
		return
	}
	subject := protocol.SubjectTranscriptFile
	if flow == "chunk" {
		subject = protocol.SubjectTranscriptChunk
	}
	transcript := protocol.Transcript{
		Source:    flow,
		Text:      asr.Aggregate(segments).Text,
		Segments:  len(segments),
		Timestamp: time.Now().UTC(),
	}
	if err := p.bus.Publish(subject, transcript); err != nil {
		p.log.Warn("failed to publish transcript", slog.String("error", err.Error()))
	}
}

func (p *Pipeline) removeTempFile(path string) {
	if err := os.Remove(path); err != nil {
		p.log.Warn("failed to remove temporary file",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}
