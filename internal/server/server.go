// Package server exposes the pause API and metrics over HTTP.
package server

import (
	"browser-pause-agent/internal/config"
	"browser-pause-agent/internal/metrics"
	"browser-pause-agent/internal/pause"
	"browser-pause-agent/pkg/logg"
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	serverName        = "HTTPServer"
	defaultAddr       = "127.0.0.1:8085"
	readHeaderTimeout = 5 * time.Second
)

type Server struct {
	http   *http.Server
	logger *zap.Logger
}

type Params struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Web     *pause.WebInput `optional:"true"`
}

// NewRouter mounts /pause routes when web input is active and always /metrics.
func NewRouter(web *pause.WebInput, m *metrics.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	if web != nil {
		web.Routes(r)
	}

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()

			next.ServeHTTP(ww, r)

			logger.Debug("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(started)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}

func New(params Params) *Server {
	logger := params.Logger.With(zap.String(logg.Layer, serverName))

	addr := params.Config.ServerConfig.Addr
	if addr == "" {
		addr = defaultAddr
	}

	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(params.Web, params.Metrics, logger),
			ReadHeaderTimeout: readHeaderTimeout,
		},
		logger: logger,
	}
}

// Start binds the listener synchronously so address errors surface at startup,
// then serves in the background.
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}

	s.logger.Info("HTTP server listening", zap.String("addr", ln.Addr().String()))

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server stopped", zap.Error(err))
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
