// Package server implements the patchc HTTP API.
//
// The API exposes the compilation pipeline and patch storage over JSON:
//
//	POST   /v1/compile          compile a patch document
//	POST   /v1/validate         validate a patch document
//	GET    /v1/kinds            list the registered node kinds
//	GET    /v1/kinds/{kind}     one kind's manifest
//	POST   /v1/render           render a patch graph (dot or svg)
//	GET    /v1/patches          list stored patches
//	POST   /v1/patches          save a patch
//	GET    /v1/patches/{id}     fetch a stored patch
//	PUT    /v1/patches/{id}     update a stored patch
//	DELETE /v1/patches/{id}     delete a stored patch
//	GET    /healthz             liveness probe
//
// Graph-content problems are reported as a valid=false compile response,
// never as HTTP errors; error statuses are reserved for malformed requests
// and infrastructure failures.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/soundpatch/patchc/pkg/patch"
	"github.com/soundpatch/patchc/pkg/pipeline"
	"github.com/soundpatch/patchc/pkg/store"
)

// shutdownTimeout bounds graceful shutdown after the context is cancelled.
const shutdownTimeout = 10 * time.Second

// Server serves the patchc HTTP API.
type Server struct {
	runner *pipeline.Runner
	store  store.Store
	logger *log.Logger

	// defaults fills engine settings that request documents omit.
	defaults patch.Settings
}

// New creates a server around a pipeline runner and a patch store. The
// defaults are applied to documents that do not carry their own engine
// settings; zero fields fall back to the built-in constants.
func New(runner *pipeline.Runner, st store.Store, defaults patch.Settings, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{runner: runner, store: st, logger: logger, defaults: defaults}
}

// Router builds the chi router with all routes registered.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/compile", s.handleCompile)
		r.Post("/validate", s.handleValidate)
		r.Post("/render", s.handleRender)

		r.Get("/kinds", s.handleListKinds)
		r.Get("/kinds/{kind}", s.handleGetKind)

		r.Route("/patches", func(r chi.Router) {
			r.Get("/", s.handleListPatches)
			r.Post("/", s.handleSavePatch)
			r.Get("/{id}", s.handleGetPatch)
			r.Put("/{id}", s.handleUpdatePatch)
			r.Delete("/{id}", s.handleDeletePatch)
		})
	})

	return r
}

// Serve listens on addr until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// logRequests logs each request with method, path, status, and duration.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debugf("%s %s %d (%s)", r.Method, r.URL.Path, ww.Status(), time.Since(start).Round(time.Millisecond))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
