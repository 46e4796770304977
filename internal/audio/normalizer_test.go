package audio

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewFFmpegNormalizerRejectsEmptyCommand(t *testing.T) {
	if _, err := NewFFmpegNormalizer("", "", newLogger()); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestNormalizeFailsWhenCommandMissing(t *testing.T) {
	n, err := NewFFmpegNormalizer("definitely-not-a-real-transcoder", t.TempDir(), newLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = n.Normalize(context.Background(), "input.ogg", 16000)
	if !errors.Is(err, ErrNormalizationFailed) {
		t.Fatalf("expected ErrNormalizationFailed, got %v", err)
	}
}

func TestNormalizeOutputPathsAreUnique(t *testing.T) {
	tmp := t.TempDir()
	// "true" ignores the transcoder arguments and exits cleanly, which
	// is enough to observe the generated output names.
	n, err := NewFFmpegNormalizer("true", tmp, newLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, err := n.Normalize(context.Background(), "input.ogg", 16000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := n.Normalize(context.Background(), "input.ogg", 16000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first == second {
		t.Fatalf("expected unique output paths, got %q twice", first)
	}
	if !strings.HasPrefix(first, tmp) || !strings.HasSuffix(first, ".wav") {
		t.Fatalf("unexpected output path %q", first)
	}
}
