package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	shellwords "github.com/mattn/go-shellwords"
)

var (
	// ErrNormalizationFailed reports that the external transcoder could
	// not be launched or exited with a failure.
	ErrNormalizationFailed = errors.New("audio normalization failed")
	// ErrDecodeFailed reports input that is not a parseable PCM container.
	ErrDecodeFailed = errors.New("audio decode failed")
	// ErrUnsupportedChannelLayout reports audio with more than two channels.
	ErrUnsupportedChannelLayout = errors.New("unsupported channel layout")
)

// Normalizer converts an arbitrary audio file into canonical mono
// 16-bit PCM WAV at the requested sample rate, returning the path of a
// freshly created temporary file. The input file is never deleted.
type Normalizer interface {
	Normalize(ctx context.Context, path string, sampleRate int) (string, error)
}

// FFmpegNormalizer shells out to an ffmpeg-style transcoder. The
// command line is configurable so tests and alternative transcoders can
// substitute the binary.
type FFmpegNormalizer struct {
	cmd     []string
	tempDir string
	log     *slog.Logger
}

func NewFFmpegNormalizer(command, tempDir string, log *slog.Logger) (*FFmpegNormalizer, error) {
	args, err := shellwords.NewParser().Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse normalize command: %w", err)
	}
	if len(args) == 0 {
		return nil, errors.New("normalize command is empty")
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &FFmpegNormalizer{cmd: args, tempDir: tempDir, log: log}, nil
}

// Normalize writes the transcoded audio to a collision-free output path
// under the configured temp directory. Repeated calls with the same
// input produce equivalent but differently named files.
func (n *FFmpegNormalizer) Normalize(ctx context.Context, path string, sampleRate int) (string, error) {
	outPath := filepath.Join(n.tempDir, uuid.NewString()+".wav")

	args := append([]string{}, n.cmd[1:]...)
	args = append(args, "-i", path, "-ac", "1", "-ar", strconv.Itoa(sampleRate), outPath)

	cmd := exec.CommandContext(ctx, n.cmd[0], args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		n.log.Error("normalize command failed",
			slog.String("input", path),
			slog.String("stderr", stderr.String()),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("%w: %v", ErrNormalizationFailed, err)
	}
	return outPath, nil
}
