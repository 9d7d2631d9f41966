// Package server exposes the formatter over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"chatfmt/internal/document"
	"chatfmt/internal/logger"
	"chatfmt/internal/render"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 1 << 20

// contentTypes maps render formats to response content types.
var contentTypes = map[string]string{
	"text":     "text/plain; charset=utf-8",
	"html":     "text/html; charset=utf-8",
	"markdown": "text/markdown; charset=utf-8",
	"json":     "application/json",
}

type formatRequest struct {
	Text    string `json:"text"`
	Profile string `json:"profile,omitempty"`
}

// Handler serves the format and render endpoints.
type Handler struct {
	log   logger.Logger
	width int
}

// NewRouter returns the chi router for the service. width is used when
// rendering text output.
func NewRouter(log logger.Logger, width int) http.Handler {
	if log == nil {
		log = logger.Discard()
	}
	h := &Handler{log: log, width: width}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes mounts the API routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/format", h.handleFormat)
		r.Post("/render", h.handleRender)
	})
}

func (h *Handler) handleFormat(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(w, r)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	doc := render.SafeWith(req.Text, req.profile)
	h.log.Debug("formatted reply", "layout", doc.Layout, "blocks", len(doc.Blocks),
		"request_id", chiMiddleware.GetReqID(r.Context()))
	JSON(w, http.StatusOK, doc)
}

func (h *Handler) handleRender(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "html"
	}
	contentType, ok := contentTypes[format]
	if !ok {
		Error(w, http.StatusBadRequest, fmt.Sprintf("unsupported format: %s", format))
		return
	}

	req, err := decodeRequest(w, r)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	doc := render.SafeWith(req.Text, req.profile)
	h.log.Debug("rendered reply", "layout", doc.Layout, "format", format,
		"request_id", chiMiddleware.GetReqID(r.Context()))

	var buf strings.Builder
	if err := render.Write(&buf, doc, render.Options{Format: format, Width: h.width}); err != nil {
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, buf.String())
}

// decodedRequest is a formatRequest with its profile resolved.
type decodedRequest struct {
	formatRequest
	profile document.Profile
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (decodedRequest, error) {
	var req decodedRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req.formatRequest); err != nil {
		return req, fmt.Errorf("invalid request body: %w", err)
	}
	profile, err := document.ParseProfile(req.Profile)
	if err != nil {
		return req, err
	}
	req.profile = profile
	return req, nil
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", chiMiddleware.GetReqID(r.Context()),
			)
		})
	}
}

// Serve runs the HTTP server on addr until ctx is canceled, then shuts it
// down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, log logger.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
