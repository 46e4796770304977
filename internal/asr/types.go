package asr

import "strings"

// Params controls a single recognition pass. A zero Language leaves
// language selection to the engine.
type Params struct {
	Language        string
	Threads         int
	SampleRate      int
	Translate       bool
	PrintSpecial    bool
	PrintProgress   bool
	PrintRealtime   bool
	PrintTimestamps bool
}

// DefaultParams returns the documented defaults used by both the file
// and the streaming flow when the caller supplies nothing.
func DefaultParams() Params {
	return Params{
		Language:   "en",
		Threads:    1,
		SampleRate: 29000,
	}
}

// Segment is one timed span of recognized text. Timestamps are in the
// engine's 10 ms ticks.
type Segment struct {
	FrameID    int    `json:"frame_id"`
	FrameStart int64  `json:"frame_start"`
	FrameEnd   int64  `json:"frame_end"`
	Text       string `json:"text"`
}

// Response is the aggregated form of a segment sequence: all segment
// texts joined by a single space, remaining fields zeroed.
type Response struct {
	FrameID    int    `json:"frame_id"`
	FrameStart int64  `json:"frame_start"`
	FrameEnd   int64  `json:"frame_end"`
	Text       string `json:"text"`
}

// Aggregate projects a segment sequence into its single-text form. It
// is a pure projection; no new inference pass is involved.
func Aggregate(segments []Segment) Response {
	texts := make([]string, len(segments))
	for i, s := range segments {
		texts[i] = s.Text
	}
	return Response{Text: strings.Join(texts, " ")}
}
