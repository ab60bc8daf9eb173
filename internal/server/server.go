// Package server exposes the extraction engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/cognicore/azner/internal/logger"
	"github.com/cognicore/azner/pkg/azner"
	"github.com/cognicore/azner/pkg/azner/internalerr"
	"github.com/cognicore/azner/pkg/azner/store"
)

const (
	MaxRequestSize    = 5 << 20
	RequestTimeout    = 60 * time.Second
	ReadHeaderTimeout = 5 * time.Second
)

// Engine is the part of *azner.Engine the server uses.
type Engine interface {
	Extract(ctx context.Context, text string) (azner.Extraction, error)
	AddArticle(ctx context.Context, in azner.ArticleInput) (store.Processed, error)
	Processed(ctx context.Context, id string) (store.Processed, error)
}

// New returns an http.Server listening on addr.
func New(addr string, e Engine) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewRouter(e),
		ReadHeaderTimeout: ReadHeaderTimeout,
	}
}

// NewRouter builds the API routes:
//
//	POST /v1/extract        {"text": "..."} -> extraction result
//	POST /v1/articles       new article -> processed article
//	GET  /v1/articles/{id}  processed article
//	GET  /healthz
func NewRouter(e Engine) *chi.Mux {
	log := logger.GetLogger()

	router := chi.NewRouter()
	router.Use(
		chiMiddleware.RequestID,
		requestLogger(log),
		chiMiddleware.Recoverer,
		chiMiddleware.Heartbeat("/healthz"),
		chiMiddleware.RequestSize(MaxRequestSize),
		chiMiddleware.Timeout(RequestTimeout),
		chiMiddleware.CleanPath,
	)

	h := &handlers{engine: e, log: log}
	router.Route("/v1", func(r chi.Router) {
		r.Post("/extract", h.extract)
		r.Post("/articles", h.addArticle)
		r.Get("/articles/{id}", h.getArticle)
	})
	return router
}

func requestLogger(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st := time.Now()
			resp := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				log.WithFields(logrus.Fields{
					"method":     r.Method,
					"path":       r.URL.Path,
					"request_id": chiMiddleware.GetReqID(r.Context()),
					"status":     resp.Status(),
					"bytes":      resp.BytesWritten(),
					"duration":   time.Since(st),
				}).Debug("request served")
			}()
			next.ServeHTTP(resp, r)
		})
	}
}

type handlers struct {
	engine Engine
	log    *logrus.Logger
}

type extractRequest struct {
	Text string `json:"text"`
}

func (h *handlers) extract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := decodeJSON(r, &req); err != nil {
		h.renderError(w, r, err)
		return
	}
	out, err := h.engine.Extract(r.Context(), req.Text)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	encodeJSON(w, http.StatusOK, out)
}

func (h *handlers) addArticle(w http.ResponseWriter, r *http.Request) {
	var in azner.ArticleInput
	if err := decodeJSON(r, &in); err != nil {
		h.renderError(w, r, err)
		return
	}
	p, err := h.engine.AddArticle(r.Context(), in)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	encodeJSON(w, http.StatusCreated, p)
}

func (h *handlers) getArticle(w http.ResponseWriter, r *http.Request) {
	p, err := h.engine.Processed(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	encodeJSON(w, http.StatusOK, p)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &requestError{err: err}
	}
	return nil
}

type requestError struct {
	err error
}

func (e *requestError) Error() string { return "invalid request body: " + e.err.Error() }

func (e *requestError) Unwrap() []error { return []error{e.err, internalerr.ErrInvalidInput} }

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, internalerr.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, internalerr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, internalerr.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, internalerr.ErrTagging):
		return http.StatusBadGateway
	case errors.Is(err, internalerr.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Message string `json:"message"`
}

func (h *handlers) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	entry := h.log.WithError(err).WithFields(logrus.Fields{
		"path":   r.URL.Path,
		"status": status,
	})
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = strings.ToLower(http.StatusText(status))
	}
	encodeJSON(w, status, errorResponse{Message: msg})
}

func encodeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
