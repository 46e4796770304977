package httpapi

import (
	"embed"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/audiotextlabs/audio-to-text/internal/asr"
	"github.com/audiotextlabs/audio-to-text/internal/audio"
	"github.com/audiotextlabs/audio-to-text/internal/pipeline"
	"github.com/audiotextlabs/audio-to-text/internal/stream"
)

//go:embed static
var pages embed.FS

type errorResponse struct {
	Code    int    `json:"code"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

type successResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Server is the thin external-facing layer: multipart extraction, query
// parsing, and response shaping. All recognition logic lives in the
// pipeline.
type Server struct {
	pipeline *pipeline.Pipeline
	params   asr.Params
	tempDir  string
	interval time.Duration
	timeout  time.Duration
	log      *slog.Logger
	router   *gin.Engine

	upgrader websocket.Upgrader
}

// Options wires the server's collaborators.
type Options struct {
	Pipeline          *pipeline.Pipeline
	Params            asr.Params
	TempDir           string
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	MetricsHandler    http.Handler
	Ready             func() bool
}

func New(opts Options, log *slog.Logger) *Server {
	tempDir := opts.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	s := &Server{
		pipeline: opts.Pipeline,
		params:   opts.Params,
		tempDir:  tempDir,
		interval: opts.HeartbeatInterval,
		timeout:  opts.HeartbeatTimeout,
		log:      log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log), cors.New(corsConfig()))

	router.GET("/healthz", s.handleHealth)
	router.GET("/readyz", func(c *gin.Context) {
		if opts.Ready != nil && !opts.Ready() {
			c.JSON(http.StatusServiceUnavailable, errorResponse{
				Code:    http.StatusServiceUnavailable,
				Error:   "NotReady",
				Message: "service is not ready",
			})
			return
		}
		c.JSON(http.StatusOK, successResponse{Code: http.StatusOK, Message: "ready"})
	})
	if opts.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(opts.MetricsHandler))
	}

	recognize := router.Group("/recognize")
	recognize.GET("/", s.handlePage("static/upload.html"))
	recognize.POST("/file", s.handleRecognizeFile)

	streaming := router.Group("/stream")
	streaming.GET("/", s.handlePage("static/stream.html"))
	streaming.GET("/ws", s.handleWebsocket)

	s.router = router
	return s
}

// Handler exposes the routing tree for the HTTP server and for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	cfg.AllowHeaders = []string{"Authorization", "Accept", "Content-Type"}
	cfg.MaxAge = time.Hour
	return cfg
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)))
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, successResponse{Code: http.StatusOK, Message: "Ok"})
}

func (s *Server) handlePage(name string) gin.HandlerFunc {
	page, err := pages.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", page)
	}
}

func (s *Server) handleRecognizeFile(c *gin.Context) {
	concatenate, _ := strconv.ParseBool(c.Query("concatenate"))

	file, err := c.FormFile("file")
	if err != nil {
		s.abortBadRequest(c, "MultipartError", err)
		return
	}

	uploadPath := filepath.Join(s.tempDir, uuid.NewString()+filepath.Ext(file.Filename))
	if err := c.SaveUploadedFile(file, uploadPath); err != nil {
		s.abortBadRequest(c, "MultipartError", err)
		return
	}
	defer s.removeUpload(uploadPath)

	segments, err := s.pipeline.RecognizeFile(c.Request.Context(), uploadPath, s.params)
	if err != nil {
		s.abortBadRequest(c, errorName(err), err)
		return
	}
	if segments == nil {
		segments = []asr.Segment{}
	}

	if concatenate {
		c.JSON(http.StatusOK, asr.Aggregate(segments))
		return
	}
	c.JSON(http.StatusOK, segments)
}

func (s *Server) handleWebsocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	session := stream.NewSession(conn, s.pipeline, s.params, s.interval, s.timeout, s.log)
	session.Run(c.Request.Context())
}

func (s *Server) abortBadRequest(c *gin.Context, name string, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
		Code:    http.StatusBadRequest,
		Error:   name,
		Message: err.Error(),
	})
}

func (s *Server) removeUpload(path string) {
	if err := os.Remove(path); err != nil {
		s.log.Warn("failed to remove uploaded file",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}

func errorName(err error) string {
	switch {
	case errors.Is(err, audio.ErrNormalizationFailed):
		return "NormalizationFailed"
	case errors.Is(err, audio.ErrDecodeFailed):
		return "DecodeFailed"
	case errors.Is(err, audio.ErrUnsupportedChannelLayout):
		return "UnsupportedChannelLayout"
	default:
		return "InferenceError"
	}
}
