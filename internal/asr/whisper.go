package asr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// segmentTick is the native engine's timestamp resolution.
const segmentTick = 10 * time.Millisecond

// WhisperEngine holds the single long-lived whisper.cpp model instance
// for the process. Each Recognize call creates a fresh decoding context
// on the shared model; that per-call state is what makes the engine
// non-reentrant, so every caller must go through Exclusive.
type WhisperEngine struct {
	model whisper.Model
	log   *slog.Logger
}

// NewWhisperEngine loads the model once. GPU offload is decided when
// the native library is built; the flag is surfaced in the startup log
// so deployments can verify what they are running on.
func NewWhisperEngine(modelPath string, enableGPU bool, log *slog.Logger) (*WhisperEngine, error) {
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load whisper model %q: %w", modelPath, err)
	}
	log.Info("whisper model loaded",
		slog.String("model_path", modelPath),
		slog.Bool("gpu", enableGPU))
	return &WhisperEngine{model: model, log: log}, nil
}

func (e *WhisperEngine) Recognize(ctx context.Context, samples []float32, p Params) ([]Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wctx, err := e.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("create decoding context: %w", err)
	}
	if p.Language != "" {
		if err := wctx.SetLanguage(p.Language); err != nil {
			return nil, fmt.Errorf("set language %q: %w", p.Language, err)
		}
	}
	if p.Threads > 0 {
		wctx.SetThreads(uint(p.Threads))
	}
	wctx.SetTranslate(p.Translate)

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("decode audio: %w", err)
	}

	var segments []Segment
	for {
		seg, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A failed extraction drops that segment, not the call.
			e.log.Warn("segment extraction failed",
				slog.Int("frame_id", len(segments)),
				slog.String("error", err.Error()))
			break
		}
		segments = append(segments, Segment{
			FrameID:    len(segments),
			FrameStart: int64(seg.Start / segmentTick),
			FrameEnd:   int64(seg.End / segmentTick),
			Text:       seg.Text,
		})
	}
	return segments, nil
}

func (e *WhisperEngine) Close() error {
	return e.model.Close()
}
