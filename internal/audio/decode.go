package audio

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"
)

// DecodeWAV parses a 16-bit PCM WAV payload into mono float samples
// normalized to [-1, 1). Stereo input is downmixed by averaging the
// channel pairs; anything beyond two channels is rejected.
func DecodeWAV(r io.ReadSeeker) ([]float32, error) {
	dec := wav.NewDecoder(r)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	if buf == nil || buf.Format == nil {
		return nil, fmt.Errorf("%w: missing format chunk", ErrDecodeFailed)
	}

	channels := buf.Format.NumChannels
	if channels > 2 {
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedChannelLayout, channels)
	}

	samples := intToFloat(buf.Data)
	if channels == 2 {
		samples = downmixStereo(samples)
	}
	return samples, nil
}

// DecodeWAVFile is DecodeWAV over a file on disk.
func DecodeWAVFile(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	defer f.Close()
	return DecodeWAV(f)
}

func intToFloat(data []int) []float32 {
	out := make([]float32, len(data))
	for i, s := range data {
		out[i] = float32(int16(s)) / 32768
	}
	return out
}

func downmixStereo(samples []float32) []float32 {
	mono := make([]float32, len(samples)/2)
	for i := range mono {
		mono[i] = (samples[2*i] + samples[2*i+1]) / 2
	}
	return mono
}
