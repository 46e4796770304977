package protocol

import "time"

// Transcript is broadcast on the bus after a recognition pass completes.
type Transcript struct {
	Source    string    `json:"source"` // "file" or "chunk"
	Text      string    `json:"text"`
	Segments  int       `json:"segments"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	SubjectTranscriptFile  = "recognize.text.file"
	SubjectTranscriptChunk = "recognize.text.chunk"
)
