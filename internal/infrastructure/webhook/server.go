package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"

	"kagi-bot/internal/application/port/input"
	"kagi-bot/internal/application/port/output"
	"kagi-bot/internal/domain/entity"
)

const (
	webhookPlatform = "webhook"
	maxBodyBytes    = 64 << 10
)

type Server struct {
	dispatcher    input.CommandDispatcher
	logger        output.LoggerPort
	addr          string
	serviceName   string
	requestLogOut io.Writer
}

type Config struct {
	Addr        string
	ServiceName string

	// RequestLogOutput receives httplog's JSON request lines. It defaults to
	// stderr, the same sink as the zap logger.
	RequestLogOutput io.Writer
}

func DefaultConfig() Config {
	return Config{
		Addr:             ":8080",
		ServiceName:      "kagi-bot",
		RequestLogOutput: os.Stderr,
	}
}

type commandRequest struct {
	UserID   string `json:"user_id"`
	User     string `json:"user"`
	Platform string `json:"platform"`
	Text     string `json:"text"`
}

type commandResponse struct {
	Reply string `json:"reply,omitempty"`
	Error string `json:"error,omitempty"`
}

func NewServer(cfg Config, dispatcher input.CommandDispatcher, logger output.LoggerPort) *Server {
	out := cfg.RequestLogOutput
	if out == nil {
		out = os.Stderr
	}

	return &Server{
		dispatcher:    dispatcher,
		logger:        logger,
		addr:          cfg.Addr,
		serviceName:   cfg.ServiceName,
		requestLogOut: out,
	}
}

// Router builds the HTTP surface. Request logging is off when the service
// name is empty.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if s.serviceName != "" {
		reqLog := httplog.NewLogger(s.serviceName, httplog.Options{
			JSON:    true,
			Concise: true,
		}).Output(s.requestLogOut)
		r.Use(httplog.RequestLogger(reqLog))
	}
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/commands", s.handleList)
	r.Post("/commands", s.handleCommand)

	return r
}

// ListenAndServe blocks until ctx is done, then shuts the server down.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Webhook listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("webhook server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dispatcher.Commands())
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, commandResponse{Error: "invalid request payload"})
		return
	}

	username := strings.TrimSpace(req.User)
	if username == "" {
		writeJSON(w, http.StatusBadRequest, commandResponse{Error: "user is required"})
		return
	}

	session := entity.Session{
		UserID:   req.UserID,
		Username: username,
		Platform: req.Platform,
	}
	if session.UserID == "" {
		session.UserID = username
	}
	if session.Platform == "" {
		session.Platform = webhookPlatform
	}

	reply, err := s.dispatcher.Dispatch(r.Context(), session, req.Text)
	if err != nil {
		s.logger.WithField("user", username).Warn("Command rejected", "error", err)
		writeJSON(w, http.StatusBadRequest, commandResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, commandResponse{Reply: reply})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
