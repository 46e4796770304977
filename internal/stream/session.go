package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/audiotextlabs/audio-to-text/internal/asr"
)

// Recognizer is the per-chunk recognition entry point the session
// drives. It is satisfied by *pipeline.Pipeline.
type Recognizer interface {
	RecognizeChunk(ctx context.Context, data []byte, params asr.Params) ([]asr.Segment, error)
}

// Session performs chunk-based recognition over one websocket
// connection. Inbound frames are processed one at a time; a heartbeat
// timer scoped to the connection closes it when the client has not
// shown liveness (ping or pong) within the timeout.
type Session struct {
	conn       *websocket.Conn
	recognizer Recognizer
	params     asr.Params
	interval   time.Duration
	timeout    time.Duration
	log        *slog.Logger

	writeMu sync.Mutex
	seenMu  sync.Mutex
	seen    time.Time
}

func NewSession(conn *websocket.Conn, recognizer Recognizer, params asr.Params, interval, timeout time.Duration, log *slog.Logger) *Session {
	return &Session{
		conn:       conn,
		recognizer: recognizer,
		params:     params,
		interval:   interval,
		timeout:    timeout,
		log:        log,
	}
}

// Run processes the connection until the client disconnects, sends an
// unsupported frame, or the heartbeat times out. It blocks the calling
// goroutine; frame handling is strictly sequential per session.
func (s *Session) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.conn.Close()

	s.touch()
	s.conn.SetPingHandler(func(payload string) error {
		s.touch()
		return s.write(websocket.PongMessage, []byte(payload))
	})
	s.conn.SetPongHandler(func(string) error {
		s.touch()
		return nil
	})
	// The default close handler echoes the close reason back before the
	// read loop returns, which is exactly the shutdown we want.

	go s.heartbeat(ctx)

	s.log.Info("stream session started")
	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			s.log.Info("stream session closed", slog.String("reason", err.Error()))
			return
		}
		switch msgType {
		case websocket.TextMessage:
			// Diagnostic passthrough.
			if err := s.write(websocket.TextMessage, data); err != nil {
				return
			}
		case websocket.BinaryMessage:
			s.handleChunk(ctx, data)
		default:
			return
		}
	}
}

func (s *Session) handleChunk(ctx context.Context, data []byte) {
	segments, err := s.recognizer.RecognizeChunk(ctx, data, s.params)
	if err != nil {
		// Per-chunk failures keep the session open.
		s.log.Warn("chunk recognition failed", slog.String("error", err.Error()))
		_ = s.write(websocket.TextMessage, []byte(err.Error()))
		return
	}
	if segments == nil {
		segments = []asr.Segment{}
	}
	payload, err := json.Marshal(segments)
	if err != nil {
		_ = s.write(websocket.TextMessage, []byte(err.Error()))
		return
	}
	_ = s.write(websocket.TextMessage, payload)
}

func (s *Session) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if time.Since(s.lastSeen()) > s.timeout {
				s.log.Info("client heartbeat timed out, closing session")
				s.conn.Close()
				return
			}
			if err := s.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Session) write(msgType int, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(msgType, data)
}

func (s *Session) touch() {
	s.seenMu.Lock()
	s.seen = time.Now()
	s.seenMu.Unlock()
}

func (s *Session) lastSeen() time.Time {
	s.seenMu.Lock()
	defer s.seenMu.Unlock()
	return s.seen
}
