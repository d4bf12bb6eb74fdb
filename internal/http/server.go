// Package http serves the ledger UI: a server-rendered page with HTMX
// partials, the xlsx download, the balance chart and operational endpoints.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"samplace/internal/core"
	"samplace/internal/log"
	"samplace/internal/metrics"
	"samplace/internal/middleware/security"
	"samplace/internal/middleware/trace"
	appweb "samplace/web"
)

// Ledger is the application surface the handlers drive.
type Ledger interface {
	Add(ctx context.Context, t core.Transaction) (core.Transaction, error)
	Edit(ctx context.Context, t core.Transaction) (core.Transaction, error)
	Remove(ctx context.Context, id int64) error
	List(ctx context.Context) ([]core.Transaction, error)
	Get(ctx context.Context, id int64) (core.Transaction, error)
	Summary(ctx context.Context) (core.Summary, error)
	Export(ctx context.Context) ([]byte, error)
	BalanceChart(ctx context.Context) ([]byte, error)
	Ping(ctx context.Context) error
}

// Options configures NewServer. Zero values are usable.
type Options struct {
	Addr          string
	CurrencyLabel string
	Logger        *log.Logger
	Metrics       *metrics.Collector
	// Registry is served on /metrics when set.
	Registry *prometheus.Registry
	// Templates overrides the embedded template tree.
	Templates fs.FS
}

type Server struct {
	http.Server
	templates *template.Template
	ledger    Ledger
	logger    *log.Logger
	currency  string
	started   time.Time
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(ledger Ledger, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	mux := http.NewServeMux()
	s := &Server{
		ledger:   ledger,
		logger:   logger,
		currency: opts.CurrencyLabel,
		started:  time.Now(),
	}

	templates := opts.Templates
	if templates == nil {
		templates = appweb.TemplatesFS
	}
	t, err := template.ParseFS(templates, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	if opts.Registry != nil {
		mux.Handle("/metrics", metrics.Handler(opts.Registry))
	}

	mux.HandleFunc("/transactions", s.handleAdd)
	mux.HandleFunc("/transactions/update", s.handleUpdate)
	mux.HandleFunc("/transactions/delete", s.handleDelete)

	mux.Handle("/ui/transactions", security.NoStore(http.HandlerFunc(s.handleTable)))
	mux.Handle("/ui/summary", security.NoStore(http.HandlerFunc(s.handleSummary)))
	mux.Handle("/ui/transactions/edit", security.NoStore(http.HandlerFunc(s.handleEditForm)))
	mux.Handle("/ui/balance-chart.png", security.NoStore(http.HandlerFunc(s.handleBalanceChart)))
	mux.Handle("/export.xlsx", security.NoStore(http.HandlerFunc(s.handleExport)))

	resolver := security.NewClientIPResolver()
	tracer := trace.NewMiddleware(logger, resolver.ClientIP, opts.Metrics)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           headers.Middleware(tracer.Middleware(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded", "template", name)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err,
			"template", name)
		http.Error(w, "render failed", http.StatusInternalServerError)
	}
}
