// Package server exposes the chat assistant and its forms over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tbxark/hrdesk/agent"
	"github.com/tbxark/hrdesk/render"
	"github.com/tbxark/hrdesk/store"
)

type Server struct {
	flow     *agent.Flow
	messages *store.MessageStore
	renderer *render.Renderer
	metrics  *metrics

	conversationID string
	variant        string

	router chi.Router
}

type Option func(*Server)

// WithConversationID sets the conversation used when a request names none.
func WithConversationID(id string) Option {
	return func(s *Server) {
		if id != "" {
			s.conversationID = id
		}
	}
}

// WithVariant sets the theme variant for forms rendered without a ?variant query.
func WithVariant(variant string) Option {
	return func(s *Server) {
		s.variant = variant
	}
}

// New builds the HTTP handler. Metrics are registered on reg and served from
// the same registry when it is also a Gatherer.
func New(flow *agent.Flow, messages *store.MessageStore, renderer *render.Renderer, reg prometheus.Registerer, opts ...Option) (*Server, error) {
	if flow == nil || messages == nil {
		return nil, errors.New("flow and message store are required")
	}
	if renderer == nil {
		var err error
		renderer, err = render.New(nil)
		if err != nil {
			return nil, err
		}
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	s := &Server{
		flow:           flow,
		messages:       messages,
		renderer:       renderer,
		metrics:        newMetrics(reg),
		conversationID: agent.DefaultConversationID,
	}
	for _, opt := range opts {
		opt(s)
	}

	gatherer, ok := reg.(prometheus.Gatherer)
	if !ok {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Get("/", s.handleIndex)
	r.Get("/healthz", handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Get("/db", s.handleListMessages)
		r.Post("/db", s.handleUpsertMessage)
	})
	r.Route("/forms/{id}", func(r chi.Router) {
		r.Get("/", s.handleGetForm)
		r.Post("/", s.handleSubmitForm)
		r.Patch("/", s.handleEditForm)
	})
	s.router = r
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	svr := &http.Server{Handler: s, Addr: addr, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		slog.Warn("gracefully shutting down http server...")
		_ = svr.Shutdown(context.Background())
	}()
	slog.Info("http server listening", "addr", addr)
	if err := svr.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("the http server has shut down")
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		latency := time.Since(start)
		s.metrics.requestDuration.WithLabelValues(route, r.Method).Observe(latency.Seconds())
		slog.Info("http request", "url", r.URL.Path, "method", r.Method, "userAgent", r.UserAgent(), "latencyMS", latency.Milliseconds(), "status", ww.Status())
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
