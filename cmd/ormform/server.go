package main

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/goliatone/go-ormform/pkg/mapping"
	"github.com/goliatone/go-ormform/pkg/mapping/catalog"
	"github.com/goliatone/go-ormform/pkg/model"
	"github.com/goliatone/go-ormform/pkg/openapi"
	"github.com/goliatone/go-ormform/pkg/orchestrator"
	"github.com/goliatone/go-ormform/pkg/render"
	"github.com/goliatone/go-ormform/pkg/render/template/gotemplate"
	"github.com/goliatone/go-ormform/pkg/renderers/vanilla"
)

const stylesheetPath = "/assets/" + vanilla.StylesheetName

var errReloadDisabled = errors.New("catalog reload is not configured")

// server exposes the catalog forms over HTTP. GET renders a form, POST
// validates it and redirects after a successful save.
type server struct {
	mu     sync.RWMutex
	app    *app
	reload reloadFunc

	pages    *gotemplate.Engine
	exporter *openapi.Exporter
	registry *prometheus.Registry
	metrics  *metrics
	logger   zerolog.Logger
}

// newServer serves a. A nil reload disables Reload and watch.
func newServer(a *app, reload reloadFunc) (*server, error) {
	pages, err := gotemplate.New(
		gotemplate.WithFS(pageTemplates()),
		gotemplate.WithExtension(".tmpl"),
		gotemplate.WithGlobalData(map[string]any{"stylesheet": stylesheetPath}),
	)
	if err != nil {
		return nil, err
	}
	registry := prometheus.NewRegistry()
	return &server{
		app:      a,
		reload:   reload,
		pages:    pages,
		exporter: openapi.NewExporter(openapi.WithDocumentVersion(version)),
		registry: registry,
		metrics:  newMetrics(registry),
		logger:   a.logger,
	}, nil
}

// routes builds the chi router with the standard middleware chain.
func (s *server) routes(timeout time.Duration) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(s.metrics.instrument)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.Get("/", s.handleIndex)
	r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.FS(vanilla.AssetsFS()))))
	r.Get("/forms/{model}", s.handleForm)
	r.Post("/forms/{model}", s.handleSubmit)
	r.Get("/forms/{model}/{id}", s.handleForm)
	r.Post("/forms/{model}/{id}", s.handleSubmit)
	r.Get("/schemas/{model}", s.handleSchema)
	r.Get("/openapi.json", s.handleOpenAPI)
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/openapi.json")))
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return r
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}

func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	a, release := s.acquire()
	defer release()
	var models []map[string]any
	for _, m := range a.catalog.Models() {
		rows, err := a.session.All(r.Context(), m)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		ids := make([]string, 0, len(rows))
		for _, row := range rows {
			id, err := mapping.IdentityString(row)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			ids = append(ids, id)
		}
		models = append(models, map[string]any{"name": m.Name(), "table": m.Table(), "ids": ids})
	}
	s.page(w, r, http.StatusOK, "index", map[string]any{"models": models})
}

func (s *server) handleForm(w http.ResponseWriter, r *http.Request) {
	a, release := s.acquire()
	defer release()
	mdl, obj, ok := s.target(w, r, a)
	if !ok {
		return
	}
	form, err := a.forms.Generate(r.Context(), orchestrator.Request{
		Model:         mdl,
		Object:        obj,
		RenderOptions: render.RenderOptions{Action: r.URL.Path},
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.formPage(w, r, http.StatusOK, mdl, form)
}

func (s *server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	a, release := s.acquire()
	defer release()
	mdl, obj, ok := s.target(w, r, a)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	draft, commit := stage(obj)
	sub, err := a.forms.Submit(r.Context(), orchestrator.Request{
		Model:    mdl,
		Object:   draft,
		Formdata: r.PostForm,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if sub.Valid {
		if err := commit(); err != nil {
			s.fail(w, r, err)
			return
		}
		s.metrics.Submissions.WithLabelValues(mdl.Name(), "saved").Inc()
		s.logger.Info().Str("model", mdl.Name()).Str("id", chi.URLParam(r, "id")).Msg("form saved")
		http.Redirect(w, r, r.URL.Path+"?saved=1", http.StatusSeeOther)
		return
	}

	// Add and delete actions re-render without field errors.
	status, outcome := http.StatusOK, "action"
	if len(sub.Form.Errors()) > 0 {
		status, outcome = http.StatusUnprocessableEntity, "rejected"
	}
	s.metrics.Submissions.WithLabelValues(mdl.Name(), outcome).Inc()
	form, err := a.forms.Render(r.Context(), sub.Form, "", render.RenderOptions{Action: r.URL.Path})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.formPage(w, r, status, mdl, form)
}

func (s *server) handleSchema(w http.ResponseWriter, r *http.Request) {
	a, release := s.acquire()
	defer release()
	mdl, err := a.model(chi.URLParam(r, "model"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	form, err := describe(a, mdl)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	schema, err := s.exporter.Schema(form)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.json(w, schema)
}

func (s *server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	a, release := s.acquire()
	defer release()
	models := a.catalog.Models()
	described := make([]model.FormModel, 0, len(models))
	for _, m := range models {
		form, err := describe(a, m)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		described = append(described, form)
	}
	doc, err := s.exporter.Document(r.Context(), described...)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.json(w, doc)
}

func describe(a *app, m *catalog.Model) (model.FormModel, error) {
	schema, err := a.forms.Schema(m)
	if err != nil {
		return model.FormModel{}, err
	}
	return model.Describe(schema)
}

// target resolves the model and row named by the route.
func (s *server) target(w http.ResponseWriter, r *http.Request, a *app) (*catalog.Model, any, bool) {
	mdl, err := a.model(chi.URLParam(r, "model"))
	if err != nil {
		s.fail(w, r, err)
		return nil, nil, false
	}
	obj, err := a.object(r.Context(), mdl, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return nil, nil, false
	}
	return mdl, obj, true
}

func (s *server) formPage(w http.ResponseWriter, r *http.Request, status int, mdl *catalog.Model, form []byte) {
	s.page(w, r, status, "form", map[string]any{
		"model": mdl.Name(),
		"id":    chi.URLParam(r, "id"),
		"saved": r.URL.Query().Get("saved") != "",
		"form":  string(form),
	})
}

func (s *server) page(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	body, err := s.pages.RenderTemplate(name, data)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (s *server) json(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := writeJSON(w, v); err != nil {
		s.logger.Error().Err(err).Msg("write response")
	}
}

func (s *server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, catalog.ErrUnknownModel) || errors.Is(err, errNotFound) {
		status = http.StatusNotFound
	} else {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Str("request_id", middleware.GetReqID(r.Context())).Msg("request failed")
	}
	http.Error(w, http.StatusText(status), status)
}

// stage returns the object a submission populates and the step that
// publishes it. Catalog rows are shared between requests, so they are
// populated as a detached copy and swapped in whole.
func stage(obj any) (any, func() error) {
	row, ok := obj.(*catalog.Record)
	if !ok {
		return obj, func() error { return nil }
	}
	draft := row.Clone()
	return draft, func() error { return row.Assign(draft) }
}
