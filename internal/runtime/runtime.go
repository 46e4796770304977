package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/audiotextlabs/audio-to-text/internal/asr"
	"github.com/audiotextlabs/audio-to-text/internal/audio"
	"github.com/audiotextlabs/audio-to-text/internal/bus"
	"github.com/audiotextlabs/audio-to-text/internal/config"
	"github.com/audiotextlabs/audio-to-text/internal/httpapi"
	"github.com/audiotextlabs/audio-to-text/internal/natsserver"
	"github.com/audiotextlabs/audio-to-text/internal/pipeline"
)

// Runtime owns the process-wide resources: the single engine instance,
// the bus connection, telemetry, and the HTTP server.
type Runtime struct {
	cfg         config.Config
	logger      *slog.Logger
	httpServer  *http.Server
	engine      asr.Engine
	busClient   *bus.Client
	embedded    *natsserver.EmbeddedServer
	tracerClose func(context.Context) error
	ready       atomic.Bool
	wg          sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

// Start brings the service up and blocks until ctx is cancelled, then
// shuts everything down in reverse order.
func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricsHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry

	if r.cfg.Bus.Enabled {
		embedded, err := natsserver.Start(r.cfg.Bus, r.logger)
		if err != nil {
			return fmt.Errorf("failed to start embedded bus: %w", err)
		}
		r.embedded = embedded

		busClient, err := bus.Connect(r.cfg.Bus, r.logger)
		if err != nil {
			return fmt.Errorf("failed to connect to bus: %w", err)
		}
		r.busClient = busClient
	}

	engine, err := r.buildEngine()
	if err != nil {
		return err
	}
	r.engine = engine
	guarded := asr.NewExclusive(engine)

	normalizer, err := audio.NewFFmpegNormalizer(r.cfg.Normalize.Command, r.cfg.Normalize.TempDir, r.logger)
	if err != nil {
		return fmt.Errorf("failed to build normalizer: %w", err)
	}

	pipe := pipeline.New(normalizer, guarded, r.busClient, r.logger)

	api := httpapi.New(httpapi.Options{
		Pipeline:          pipe,
		Params:            r.recognizeParams(),
		TempDir:           r.cfg.Normalize.TempDir,
		HeartbeatInterval: time.Duration(r.cfg.Stream.HeartbeatInterval) * time.Millisecond,
		HeartbeatTimeout:  time.Duration(r.cfg.Stream.HeartbeatTimeout) * time.Millisecond,
		MetricsHandler:    metricsHandler,
		Ready:             r.ready.Load,
	}, r.logger)

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	r.ready.Store(true)
	r.logger.Info("service started", slog.String("addr", addr))

	<-ctx.Done()
	r.logger.Info("service stopping")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	r.wg.Wait()

	if err := r.engine.Close(); err != nil {
		r.logger.Error("engine close error", slog.String("error", err.Error()))
	}
	r.busClient.Close()
	r.embedded.Shutdown()

	if r.tracerClose != nil {
		if err := r.tracerClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}

func (r *Runtime) buildEngine() (asr.Engine, error) {
	switch r.cfg.Whisper.Engine {
	case "mock":
		r.logger.Warn("using mock recognition engine")
		return asr.NewMockEngine(), nil
	default:
		engine, err := asr.NewWhisperEngine(r.cfg.Whisper.ModelPath, r.cfg.Whisper.EnableGPU, r.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to load recognition engine: %w", err)
		}
		return engine, nil
	}
}

func (r *Runtime) recognizeParams() asr.Params {
	return asr.Params{
		Language:        r.cfg.Recognize.Language,
		Threads:         r.cfg.Recognize.Threads,
		SampleRate:      r.cfg.Recognize.SampleRate,
		Translate:       r.cfg.Recognize.Translate,
		PrintSpecial:    r.cfg.Recognize.PrintSpecial,
		PrintProgress:   r.cfg.Recognize.PrintProgress,
		PrintRealtime:   r.cfg.Recognize.PrintRealtime,
		PrintTimestamps: r.cfg.Recognize.PrintTimestamps,
	}
}
