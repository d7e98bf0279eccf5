// Package server exposes the agent over HTTP. Every route sits behind the
// shared x-api-key check and the chat endpoint is additionally rate limited.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/loanify/agent/internal/config"
	agenterr "github.com/loanify/agent/internal/errors"
	"github.com/loanify/agent/internal/model"
)

// Agent is the slice of the invoker the HTTP layer depends on.
type Agent interface {
	Invoke(ctx context.Context, message string, chatCtx model.ChatContext) (model.ToolResult, error)
}

type Server struct {
	agent   Agent
	secret  string
	limiter *rate.Limiter
	timeout time.Duration
	log     *logrus.Logger
	http    *http.Server
}

func New(agent Agent, settings config.Settings, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Server{
		agent:   agent,
		secret:  settings.APISecret,
		limiter: rate.NewLimiter(rate.Limit(settings.RateLimitPerSecond), settings.RateLimitBurst),
		timeout: settings.Timeout,
		log:     log,
	}
	s.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", settings.Port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: settings.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler builds the route table. Exposed so tests can drive the server
// through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHealth)
	mux.HandleFunc("/api/chat", s.handleChat)
	return s.requireKey(mux)
}

// Run serves until SIGINT/SIGTERM, then drains in-flight requests.
func (s *Server) Run() error {
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.http.Addr).Info("Agent API listening")
		err := s.http.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		s.log.WithField("signal", sig.String()).Info("Shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		return agenterr.Wrap(agenterr.CodeInternal, "server shutdown", err)
	}
	return <-errCh
}

func (s *Server) requireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("x-api-key")
		if key == "" || key != s.secret {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"status":  "error",
				"message": "Unauthorized",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "Minimalist Agent API running.",
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.limiter.Allow() {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{
			"status":  "error",
			"message": "Too Many Requests",
		})
		return
	}

	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"status":  "error",
			"message": "Invalid request body",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	s.log.WithFields(logrus.Fields{
		"address":   req.Context.Address,
		"sessionId": req.Context.SessionID,
	}).Info("Chat request")

	result, err := s.agent.Invoke(ctx, req.Message, req.Context)
	if err != nil {
		s.log.WithError(err).Error("Agent invocation failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": "Internal Server Error",
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
