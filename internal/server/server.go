// Package server exposes the WhatsApp webhook over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gitlab.com/yelinaung/egresos-bot/internal/bot"
	"gitlab.com/yelinaung/egresos-bot/internal/logger"
	"gitlab.com/yelinaung/egresos-bot/internal/whatsapp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 10 * time.Second
)

// MessageHandler processes one inbound message.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg bot.Message) error
}

// Server serves the webhook and health endpoints.
type Server struct {
	verifyToken string
	handler     MessageHandler
	router      chi.Router
}

// New creates a Server that verifies subscriptions with verifyToken and
// passes deliveries to handler.
func New(verifyToken string, handler MessageHandler) *Server {
	s := &Server{
		verifyToken: verifyToken,
		handler:     handler,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/webhook", s.handleVerify)
	r.Post("/webhook", s.handleDelivery)

	return r
}

// Handler returns the instrumented HTTP handler.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "webhook",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info().Str("addr", addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") != "subscribe" || s.verifyToken == "" || q.Get("hub.verify_token") != s.verifyToken {
		logger.Log.Warn().Str("mode", q.Get("hub.mode")).Msg("Webhook verification rejected")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, q.Get("hub.challenge"))
}

// handleDelivery always answers 200 so the platform does not redeliver;
// failures are logged.
func (s *Server) handleDelivery(w http.ResponseWriter, r *http.Request) {
	defer w.WriteHeader(http.StatusOK)

	env, err := whatsapp.DecodeEnvelope(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Ignoring undecodable webhook delivery")
		return
	}

	msg, err := env.FirstMessage()
	if err != nil {
		logger.Log.Debug().Msg("Webhook delivery without message")
		return
	}
	if msg.Text == nil {
		logger.Log.Debug().Str("type", msg.Type).Str("message_id", msg.ID).Msg("Non-text message, handling as empty text")
	}

	err = s.handler.HandleMessage(r.Context(), bot.Message{
		ID:          msg.ID,
		From:        msg.From,
		Text:        msg.Body(),
		ProfileName: env.ProfileName(msg.From),
	})
	if err != nil {
		logger.Log.Error().
			Err(err).
			Str("message_id", msg.ID).
			Str("phone_hash", logger.HashPhone(msg.From)).
			Msg("Failed to handle message")
	}
}
