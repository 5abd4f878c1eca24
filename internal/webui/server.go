// Package webui serves a small HTML front end and HTTP API around csvkml.
//
// Routes:
//
//	GET  /             form
//	POST /probe        probe a URL with the form inputs; renders the result inline
//	GET  /api/probe    the same probe as text or JSON (?mode=json)
//	POST /api/convert  request body is CSV; responds with KML or GeoJSON (?format=)
package webui

import (
	_ "embed"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"csvkml/internal/probe"
)

// maxUpload bounds the CSV body accepted by /api/convert.
const maxUpload = 32 << 20

// Config controls server startup.
type Config struct {
	Addr string
}

// Server holds the router and parsed template.
type Server struct {
	cfg    Config
	router *chi.Mux
	tmpl   *template.Template
}

// NewServer builds a Server with routes and the embedded template.
func NewServer(cfg Config) *Server {
	s := &Server{
		cfg:    cfg,
		router: chi.NewRouter(),
		tmpl:   template.Must(template.New("index").Parse(indexHTML)),
	}
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.routes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) routes() {
	s.router.Get("/", s.handleIndex)
	s.router.Post("/probe", s.handleProbe)
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/probe", s.handleAPIProbe)
		r.Post("/convert", s.handleConvert)
	})
}

type pageData struct {
	URL        string
	Bytes      int
	Delimiter  string
	Mode       string
	ResultText string
	Error      string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, pageData{Bytes: probe.DefaultMaxBytes, Delimiter: ","})
}

func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form: "+err.Error(), http.StatusBadRequest)
		return
	}
	data := pageData{
		URL:       strings.TrimSpace(r.FormValue("url")),
		Delimiter: r.FormValue("delimiter"),
		Mode:      r.FormValue("mode"),
	}
	data.Bytes, _ = strconv.Atoi(strings.TrimSpace(r.FormValue("bytes")))

	res, err := probe.Probe(r.Context(), probeOptions(data.URL, data.Bytes, data.Delimiter, data.Mode))
	if err != nil {
		data.Error = err.Error()
		s.render(w, http.StatusBadRequest, data)
		return
	}
	data.ResultText = string(res.Body)
	s.render(w, http.StatusOK, data)
}

func (s *Server) handleAPIProbe(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	url := strings.TrimSpace(q.Get("url"))
	if url == "" {
		http.Error(w, "url is required", http.StatusBadRequest)
		return
	}
	n, _ := strconv.Atoi(q.Get("bytes"))
	mode := q.Get("mode")

	res, err := probe.Probe(r.Context(), probeOptions(url, n, q.Get("delimiter"), mode))
	if err != nil {
		http.Error(w, "probe failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	if mode == "json" {
		w.Header().Set("Content-Type", "application/json")
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	_, _ = w.Write(res.Body)
}

func probeOptions(url string, n int, delim, mode string) probe.Options {
	return probe.Options{
		URL:        url,
		MaxBytes:   n,
		Delimiter:  probe.DecodeDelimiter(delim),
		OutputJSON: mode == "json",
	}
}

func (s *Server) render(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.tmpl.Execute(w, data); err != nil {
		log.Printf("webui: template error: %v", err)
	}
}

//go:embed index.tmpl.html
var indexHTML string
