// Package server provides the HTTP server for the nudge daemon.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/grovetools/nudge/errors"
	"github.com/grovetools/nudge/internal/daemon/engine"
	"github.com/grovetools/nudge/internal/daemon/store"
	"github.com/grovetools/nudge/internal/trigger"
	"github.com/grovetools/nudge/pkg/daemon"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// maxBodyBytes caps request bodies on the mutation endpoints.
const maxBodyBytes = 64 * 1024

// Server manages the daemon's HTTP server over a Unix socket.
type Server struct {
	logger     *logrus.Entry
	server     *http.Server
	engine     *engine.Engine
	instanceID string
	upgrader   websocket.Upgrader
}

// New creates a new Server instance for eng.
func New(eng *engine.Engine, logger *logrus.Entry) *Server {
	return &Server{
		logger:     logger,
		engine:     eng,
		instanceID: uuid.NewString(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Only local processes can reach the socket.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// InstanceID identifies this daemon run.
func (s *Server) InstanceID() string {
	return s.instanceID
}

// Handler returns the router with every API route registered.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/decision", s.handleDecision)
		r.Get("/history", s.handleHistory)
		r.Get("/idle", s.handleIdle)
		r.Post("/events", s.handleEvent)
		r.Post("/os-idle", s.handleOSIdle)
		r.Post("/feedback", s.handleFeedback)
		r.Get("/trust", s.handleTrust)
		r.Get("/trust/{key}", s.handleTrustFor)
		r.Delete("/trust/{key}/metrics", s.handleResetMetrics)
		r.Get("/config", s.handleGetConfig)
		r.Get("/stream", s.handleStream)
		r.Get("/ws", s.handleWebSocket)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "unknown endpoint").WithDetail("path", r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ne := errors.New(errors.ErrCodeInvalidInput, "method not allowed").WithDetail("method", r.Method)
		s.writeJSON(w, http.StatusMethodNotAllowed, ne)
	})
	return r
}

// ListenAndServe starts the daemon on the given unix socket path.
// It blocks until the server stops or fails.
func (s *Server) ListenAndServe(socketPath string) error {
	// Cleanup stale socket
	if _, err := os.Stat(socketPath); err == nil {
		if err := os.Remove(socketPath); err != nil {
			return fmt.Errorf("failed to remove stale socket: %w", err)
		}
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(socketPath), 0755); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket: %w", err)
	}

	// Set restrictive permissions on socket
	if err := os.Chmod(socketPath, 0600); err != nil {
		_ = listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.server = &http.Server{
		Handler:           h2c.NewHandler(s.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.WithFields(logrus.Fields{
		"socket":   socketPath,
		"instance": s.instanceID,
	}).Info("Daemon listening")
	err = s.server.Serve(listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start).String(),
		}).Trace("Request")
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		s.logger.WithError(err).WithField("status", status).Error("Failed to encode response")
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errors.New(errors.ErrCodeInternal, "failed to encode response"))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		s.logger.WithError(err).Debug("Failed to write response")
	}
}

// writeError renders err as a NudgeError with the matching status code.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	ne := errors.As(err)
	if ne == nil {
		ne = errors.Wrap(err, errors.ErrCodeInternal, err.Error())
	}
	s.writeJSON(w, errors.HTTPStatus(ne), ne)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if ne := errors.As(err); ne != nil {
			return ne
		}
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid request body")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, daemon.Health{
		Status:     "ok",
		InstanceID: s.instanceID,
		PID:        os.Getpid(),
		StartedAt:  s.engine.StartedAt(),
	})
}

func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	d, err := s.engine.Decision()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, errors.InvalidInput("limit", "must be a non-negative integer"))
			return
		}
		limit = n
	}
	s.writeJSON(w, http.StatusOK, s.engine.History(limit))
}

func (s *Server) handleIdle(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Idle())
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var ev trigger.Event
	if err := decodeBody(w, r, &ev); err != nil {
		s.writeError(w, err)
		return
	}
	if ev.Kind == trigger.EventInvalid {
		s.writeError(w, errors.InvalidInput("kind", "event kind is required"))
		return
	}

	st, err := s.engine.Submit(ev)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleOSIdle(w http.ResponseWriter, r *http.Request) {
	var req daemon.OSIdleRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	d := time.Duration(req.IdleSeconds * float64(time.Second))
	if err := s.engine.ObserveOSIdle(d); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req daemon.FeedbackRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	score, err := s.engine.RecordFeedback(req.ContextKey, req.Outcome)
	if err != nil {
		s.writeError(w, err)
		return
	}
	key := req.ContextKey
	if strings.TrimSpace(key) == "" {
		key = s.engine.Config().Trust.DefaultContext
	}
	s.writeJSON(w, http.StatusOK, daemon.FeedbackResponse{
		ContextKey: key,
		Outcome:    req.Outcome.String(),
		Score:      score,
	})
}

func (s *Server) handleTrust(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Trust())
}

func (s *Server) handleTrustFor(w http.ResponseWriter, r *http.Request) {
	key, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil {
		s.writeError(w, errors.InvalidInput("context_key", err.Error()))
		return
	}
	entry, err := s.engine.TrustFor(key)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleResetMetrics(w http.ResponseWriter, r *http.Request) {
	key, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil {
		s.writeError(w, errors.InvalidInput("context_key", err.Error()))
		return
	}
	s.engine.ResetMetrics(key)
	w.WriteHeader(http.StatusNoContent)
}

// handleGetConfig returns the running configuration as JSON.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.runningConfig())
}

func (s *Server) runningConfig() daemon.RunningConfig {
	cfg := s.engine.Config()
	st := s.engine.Store()
	stats := st.Stats()
	changed := st.LastConfigChange()
	return daemon.RunningConfig{
		InstanceID:      s.instanceID,
		StartedAt:       s.engine.StartedAt(),
		IdleThreshold:   cfg.Trigger.IdleThreshold.String(),
		AcceptCooldown:  cfg.Trigger.AcceptCooldown.String(),
		DismissCooldown: cfg.Trigger.DismissCooldown.String(),
		TickInterval:    cfg.Trigger.TickInterval.String(),
		HistoryCapacity: s.engine.HistoryCapacity(),
		Smoothing:       cfg.SmoothingFactor(),
		InitialTrust:    cfg.Trust.Initial,
		DefaultContext:  cfg.Trust.DefaultContext,
		Socket:          cfg.Daemon.Socket,
		Sources:         cfg.Sources,
		Stats: daemon.Stats{
			Transitions:   stats.Transitions,
			Feedback:      stats.Feedback,
			ConfigChanges: stats.ConfigChanges,
			LastUpdate:    stats.LastUpdate,
			Subscribers:   stats.Subscribers,
			Dropped:       stats.Dropped,
		},
		RestartRequired: changed != "",
		ChangedFile:     changed,
	}
}

// initialUpdate carries the current decision so a new subscriber has data right away.
func (s *Server) initialUpdate() *daemon.StreamUpdate {
	d, err := s.engine.Decision()
	if err != nil {
		s.logger.WithError(err).Warn("Failed to compute initial decision")
		return nil
	}
	return &daemon.StreamUpdate{
		UpdateType: daemon.UpdateInitial,
		Source:     "daemon",
		At:         d.At,
		Decision:   &d,
	}
}

// handleStream provides Server-Sent Events (SSE) for real-time updates.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	// Ensure the connection supports flushing
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, errors.New(errors.ErrCodeInternal, "streaming not supported"))
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Subscribe to store updates
	ch := s.engine.Store().Subscribe()
	defer s.engine.Store().Unsubscribe(ch)

	// Send initial ping to confirm connection
	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	s.logger.Debug("SSE client connected")

	send := func(u *daemon.StreamUpdate) {
		data, err := json.Marshal(u)
		if err != nil {
			s.logger.WithError(err).Error("Failed to marshal update")
			return
		}
		// SSE format: "data: {json}\n\n"
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	if initial := s.initialUpdate(); initial != nil {
		send(initial)
	}

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected")
			return
		case update, ok := <-ch:
			if !ok {
				return
			}
			if apiUpdate := convertToAPIUpdate(update); apiUpdate != nil {
				send(apiUpdate)
			}
		}
	}
}

// handleWebSocket streams the same updates as /api/stream over a websocket.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Debug("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	ch := s.engine.Store().Subscribe()
	defer s.engine.Store().Unsubscribe(ch)

	// The read loop only exists to notice the peer going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.logger.Debug("Websocket client connected")
	if initial := s.initialUpdate(); initial != nil {
		if err := conn.WriteJSON(initial); err != nil {
			return
		}
	}

	for {
		select {
		case <-closed:
			s.logger.Debug("Websocket client disconnected")
			return
		case <-r.Context().Done():
			return
		case update, ok := <-ch:
			if !ok {
				return
			}
			apiUpdate := convertToAPIUpdate(update)
			if apiUpdate == nil {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(apiUpdate); err != nil {
				s.logger.WithError(err).Debug("Websocket write failed")
				return
			}
		}
	}
}

// convertToAPIUpdate converts internal store.Update to the public API format.
func convertToAPIUpdate(u store.Update) *daemon.StreamUpdate {
	out := &daemon.StreamUpdate{Source: u.Source, At: u.At}
	switch u.Type {
	case store.UpdateTransition:
		tr, ok := u.Payload.(trigger.Transition)
		if !ok {
			return nil
		}
		out.UpdateType = daemon.UpdateTransition
		out.Transition = &tr
	case store.UpdateFeedback:
		fb, ok := u.Payload.(engine.FeedbackResult)
		if !ok {
			return nil
		}
		out.UpdateType = daemon.UpdateFeedback
		out.Feedback = &daemon.FeedbackResponse{
			ContextKey: fb.ContextKey,
			Outcome:    fb.Outcome.String(),
			Score:      fb.Score,
		}
	case store.UpdateTrustReset:
		out.UpdateType = daemon.UpdateTrustReset
		out.ContextKey, _ = u.Payload.(string)
	case store.UpdateConfigChanged:
		out.UpdateType = daemon.UpdateConfigChanged
		out.ConfigFile, _ = u.Payload.(string)
	default:
		return nil
	}
	return out
}
