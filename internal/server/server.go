package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/jeffreyzhou0924/trademe-detect/internal/config"
	"github.com/jeffreyzhou0924/trademe-detect/internal/engine"
)

// Server exposes the detection engine over HTTP: a one-shot endpoint for
// rendered messages, a WebSocket endpoint for streamed revisions, plus
// health and metrics.
type Server struct {
	cfg       config.ServerConfig
	engine    *engine.Engine
	gatherer  prometheus.Gatherer
	httpSrv   *http.Server
	startTime time.Time
}

// New creates a server around the given engine. gatherer may be nil when
// metrics are disabled.
func New(cfg config.ServerConfig, eng *engine.Engine, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		cfg:       cfg,
		engine:    eng,
		gatherer:  gatherer,
		startTime: time.Now(),
	}
	s.httpSrv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.Handler(),
		ReadTimeout:  time.Duration(cfg.ReadTimeoutMs) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.WriteTimeoutMs) * time.Millisecond,
	}
	return s
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/detect", s.handleDetect)
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", s.handleHealthz)
	if s.cfg.MetricsEnabled && s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Start begins serving and blocks until the listener fails or closes.
func (s *Server) Start() error {
	log.Info().Str("addr", s.cfg.ListenAddr).Msg("server: listening")
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// detectRequest is the one-shot detection request body.
type detectRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req detectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result := s.engine.Detect(req.Message)
	writeJSON(w, http.StatusOK, result)
}

type healthResponse struct {
	Status    string  `json:"status"`
	UptimeSec float64 `json:"uptime_sec"`
	Cache     any     `json:"cache"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		UptimeSec: time.Since(s.startTime).Seconds(),
		Cache:     s.engine.CacheStats(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("server: write response failed")
	}
}
