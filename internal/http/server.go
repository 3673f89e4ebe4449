package http

import (
	"context"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"smartledger/internal/cache"
	"smartledger/internal/core"
	"smartledger/internal/extract"
	applog "smartledger/internal/log"
	"smartledger/internal/services"
	appweb "smartledger/web"
)

// ExpenseService is the application surface the handlers drive.
type ExpenseService interface {
	Preview(ctx context.Context, text string) (extract.Result, error)
	Record(ctx context.Context, text string) (services.Recorded, error)
	List(ctx context.Context, r services.Range) ([]core.Expense, error)
	Summary(ctx context.Context, r services.Range) (core.Summary, error)
	Months(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, ids []int64) (int64, error)
	DeleteRange(ctx context.Context, r services.Range) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
	ExportCSV(ctx context.Context, w io.Writer, r services.Range) error
}

type Server struct {
	http.Server
	templates *template.Template
	svc       ExpenseService
	logger    *applog.Logger
	access    *applog.StructuredLogger
	clock     func() time.Time
	ready     func(context.Context) error
	started   time.Time

	detector    detector
	rateLimiter *rateLimiter
	ratePerMin  int
	rateBurst   int

	// Summaries are cached per filter and dropped on every mutation.
	summaries    *cache.LRUCache[core.Summary]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

type Option func(*Server)

func WithLogger(l *applog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithClock sets the source of "today" for the input form.
func WithClock(clock func() time.Time) Option {
	return func(s *Server) { s.clock = clock }
}

// WithReadiness registers a dependency check run by /readyz.
func WithReadiness(check func(context.Context) error) Option {
	return func(s *Server) { s.ready = check }
}

// WithRateLimit bounds POST requests per client IP.
func WithRateLimit(perMinute, burst int) Option {
	return func(s *Server) {
		s.ratePerMin = perMinute
		s.rateBurst = burst
	}
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, svc ExpenseService, opts ...Option) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		svc:          svc,
		clock:        time.Now,
		started:      time.Now(),
		summaries:    cache.NewLRUCache[core.Summary](100, 5*time.Minute),
		cacheManager: cache.NewManager(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = applog.New(applog.Config{Handler: slog.Default().Handler(), Component: applog.ComponentHTTP})
	}
	s.access = applog.NewStructuredLogger(s.logger)
	s.rateLimiter = newRateLimiter(s.ratePerMin, s.rateBurst)

	s.cacheManager.Register(s.summaries)
	s.cacheManager.StartCleanup(10 * time.Minute)

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("POST /expenses", s.handleCreateExpense)
	mux.HandleFunc("POST /expenses/delete", s.handleDeleteSelected)
	mux.HandleFunc("POST /expenses/delete-range", s.handleDeleteRange)
	mux.HandleFunc("POST /expenses/delete-all", s.handleDeleteAll)
	mux.HandleFunc("GET /export.csv", s.handleExport)
	mux.HandleFunc("GET /ui/summary", s.handleSummary)
	mux.HandleFunc("GET /ui/expenses", s.handleExpenseTable)
	mux.HandleFunc("POST /api/extract", s.handleAPIExtract)
	mux.HandleFunc("GET /api/expenses", s.handleAPIList)

	s.Handler = s.withRequestContext(securityHeaders(s.withDetection(s.withRateLimit(mux))))
	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) summary(ctx context.Context, r services.Range) (core.Summary, error) {
	key := rangeKey(r)
	if sum, ok := s.summaries.Get(key); ok {
		applog.FromContext(ctx).DebugContext(ctx, "Summary cache hit", "range", key)
		return sum, nil
	}
	sum, err := s.svc.Summary(ctx, r)
	if err != nil {
		return core.Summary{}, err
	}
	s.summaries.Set(key, sum)
	return sum, nil
}

// invalidate drops cached views after a write and tells htmx clients to
// refresh them.
func (s *Server) invalidate(w http.ResponseWriter) {
	s.summaries.Clear()
	w.Header().Set("HX-Trigger", "expense:changed")
}
