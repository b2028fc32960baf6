package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/singleflight"

	"studioledger/internal/backend"
	"studioledger/internal/cache"
	"studioledger/internal/core"
	"studioledger/internal/finance"
	"studioledger/internal/middleware/ratelimit"
	"studioledger/internal/middleware/security"
	"studioledger/internal/middleware/trace"
	appweb "studioledger/web"
)

// storeTimeout bounds every store round trip made on behalf of a request.
const storeTimeout = 7 * time.Second

// ProjectService is the slice of services.ProjectService the handlers use.
type ProjectService interface {
	ListProjects(ctx context.Context) ([]core.Project, error)
	GetProject(ctx context.Context, id string) (core.Project, error)
	CreateProject(ctx context.Context, p core.Project) (core.Project, error)
	UpdateProject(ctx context.Context, id string, patch core.ProjectPatch) (core.Project, error)
	DeleteProject(ctx context.Context, id string) error
	AddPayment(ctx context.Context, id string, pay core.Payment) (core.Project, error)
	AddExpense(ctx context.Context, id string, e core.Expense) (core.Project, error)
	AddCategory(ctx context.Context, id string, name string) (core.Project, bool, error)
	Portfolio(ctx context.Context, th finance.Thresholds) (finance.Portfolio, finance.Insights, error)
}

// PortfolioView is the cached body of GET /api/summary.
type PortfolioView struct {
	Portfolio finance.Portfolio `json:"portfolio"`
	Insights  finance.Insights  `json:"insights"`
}

// Options tunes a Server. Zero values fall back to in-process caches, the
// default margin bands and 60 mutating requests per minute.
type Options struct {
	Thresholds      finance.Thresholds
	RateLimitPerMin int
	SummaryCache    cache.Cache[finance.ProjectSummary]
	PortfolioCache  cache.Cache[PortfolioView]
	CacheSize       int
	CacheTTL        time.Duration
	TrustedProxies  []string
	// Pinger backs the readiness store check. Backends without a
	// connection leave it nil and always report ready.
	Pinger backend.Pinger
}

type Server struct {
	http.Server
	svc        ProjectService
	pinger     backend.Pinger
	templates  *template.Template
	thresholds finance.Thresholds

	summaries    cache.Cache[finance.ProjectSummary]
	portfolio    cache.Cache[PortfolioView]
	flight       singleflight.Group
	portfolioGen atomic.Int64
	janitor      *cache.Janitor
	appMetrics   *appMetrics

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, svc ProjectService, opts Options) *Server {
	if opts.Thresholds == (finance.Thresholds{}) {
		opts.Thresholds = finance.DefaultThresholds
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}

	s := &Server{
		svc:              svc,
		pinger:           opts.Pinger,
		thresholds:       opts.Thresholds,
		summaries:        opts.SummaryCache,
		portfolio:        opts.PortfolioCache,
		janitor:          cache.NewJanitor(),
		appMetrics:       newAppMetrics(),
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMin}),
		securityDetector: security.NewDetector(),
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.securityDetector.AddTrustedProxy(cidr); err != nil {
			slog.Warn("Ignoring trusted proxy", "component", "security", "cidr", cidr, "error", err)
		}
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP)

	if s.summaries == nil {
		lru := cache.NewLRUCache[finance.ProjectSummary](opts.CacheSize, opts.CacheTTL)
		s.janitor.Register(lru)
		s.summaries = lru
	}
	if s.portfolio == nil {
		lru := cache.NewLRUCache[PortfolioView](1, opts.CacheTTL)
		s.janitor.Register(lru)
		s.portfolio = lru
	}
	s.janitor.Start(10 * time.Minute)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "component", "template", "error", err)
	} else {
		s.templates = t
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		s.traceMiddleware.Middleware,
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
		s.securityDetector.Middleware,
		s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimited),
	)
	r.NotFound(s.handleNotFound)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.Handle("/static/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "component", "http", "error", err)
	}

	r.Get("/", s.handleDashboardPage)
	r.Get("/summary", s.handleSummaryPage)
	r.Get("/projects/new", s.handleNewProjectPage)
	r.Post("/projects", s.handleCreateProjectForm)
	r.Get("/projects/{id}", s.handleProjectPage)
	for _, kind := range []string{"payments", "expenses", "categories"} {
		r.Post("/projects/{id}/"+kind, s.handleLedgerForm(kind))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/summary", s.handleSummary)
		r.Route("/projects", func(r chi.Router) {
			r.Get("/", s.handleListProjects)
			r.Post("/", s.handleCreateProject)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetProject)
				r.Put("/", s.handleUpdateProject)
				r.Delete("/", s.handleDeleteProject)
				r.Post("/payments", s.handleAddPayment)
				r.Post("/expenses", s.handleAddExpense)
				r.Post("/categories", s.handleAddCategory)
			})
		})
	})
	return r
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	slog.WarnContext(r.Context(), "Rate limit exceeded",
		"component", "rate_limit",
		"client_ip", s.securityDetector.ExtractClientIP(r),
		"method", r.Method,
		"path", r.URL.Path)
	writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
}

// Shutdown stops background goroutines and drains the HTTP server. Safe to
// call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.janitor.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
