// Package httpapi is the HTML/htmx front-end and the small JSON/API
// surface around it: task and file CRUD, the now-playing status
// widgets, and the stop/playtest/export/import control endpoints.
package httpapi

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/beni69/csengo/internal/config"
	"github.com/beni69/csengo/internal/metrics"
)

// Server wraps the HTTP listener and router. It never imports the
// scheduler or audio pipeline's concrete types, only the Store/
// Player/Scheduler interfaces declared in interfaces.go.
type Server struct {
	http *http.Server
}

// New builds the router, installing the full route table of the
// HTML/htmx surface plus the /api endpoints.
func New(cfg *config.Config, store Store, player Player, sched Scheduler) *Server {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(requestLogger(log.Logger))
	r.Use(recoverer)
	r.Use(rateLimiter(cfg))
	r.Use(metrics.Middleware)

	h := &handlers{store: store, player: player, sched: sched}

	r.Get("/", h.index)
	r.Get("/static/*", staticHandler().ServeHTTP)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/sse", h.statusSSE)
	r.Get("/realtime", h.statusRealtime)

	r.Route("/htmx", func(r chi.Router) {
		r.Get("/status", h.status)
		r.Get("/form", h.taskForm)
		r.Get("/datepicker", h.datepicker)

		r.Get("/task", h.listTasks)
		r.Post("/task", h.createTask)
		r.Delete("/task/{name}", h.deleteTask)

		r.Get("/file", h.listFiles)
		r.Post("/file", h.uploadFile)
		r.Delete("/file/{name}", h.deleteFile)
	})

	r.Route("/api", func(r chi.Router) {
		r.HandleFunc("/stop", h.apiStop)
		r.Post("/playtest", h.apiPlaytest)
		r.Get("/export", h.apiExport)
		r.Post("/import", h.apiImport)
		r.Get("/file/{name}", h.downloadFile)
	})

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	return &Server{
		http: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			IdleTimeout:  60 * time.Second,
			WriteTimeout: 0, // SSE connections are long-lived
		},
	}
}

func (s *Server) Start() error {
	log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}

// handlers holds the collaborators every route handler needs; methods
// are split across task.go, file.go, status.go, control.go and
// export.go by concern.
type handlers struct {
	store  Store
	player Player
	sched  Scheduler
}
