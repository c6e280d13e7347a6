package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"financas/internal/core"
	applog "financas/internal/log"
	"financas/internal/middleware/ratelimit"
	"financas/internal/middleware/security"
	"financas/internal/middleware/trace"
	"financas/internal/services"
	appweb "financas/web"
)

// Repository is the storage surface the pages read and the reference
// forms write.
type Repository interface {
	Ping(ctx context.Context) error

	ListCategories(ctx context.Context) ([]core.Category, error)
	CreateCategory(ctx context.Context, c core.Category) (int64, error)
	UpdateCategory(ctx context.Context, c core.Category) error
	DeleteCategory(ctx context.Context, id int64) error

	ListAccounts(ctx context.Context) ([]core.Account, error)
	CreateAccount(ctx context.Context, a core.Account) (int64, error)
	UpdateAccount(ctx context.Context, a core.Account) error
	DeleteAccount(ctx context.Context, id int64) error

	ListCards(ctx context.Context) ([]core.Card, error)
	CreateCard(ctx context.Context, c core.Card) (int64, error)
	UpdateCard(ctx context.Context, c core.Card) error
	DeleteCard(ctx context.Context, id int64) error

	ListTickers(ctx context.Context) ([]core.Ticker, error)
	CreateTicker(ctx context.Context, t core.Ticker) (int64, error)
	UpdateTicker(ctx context.Context, t core.Ticker) error
	DeleteTicker(ctx context.Context, id int64) error

	ListCurrencies(ctx context.Context) ([]core.Currency, error)
	CreateCurrency(ctx context.Context, c core.Currency) (int64, error)
	UpdateCurrency(ctx context.Context, c core.Currency) error
	DeleteCurrency(ctx context.Context, id int64) error

	ListOperations(ctx context.Context) ([]core.Operation, error)
	CreateOperation(ctx context.Context, o core.Operation) (int64, error)
	UpdateOperation(ctx context.Context, o core.Operation) error
	DeleteOperation(ctx context.Context, id int64) error

	ListMovements(ctx context.Context, from, to core.Date) ([]core.MovementView, error)
	GetMovement(ctx context.Context, id int64) (core.MovementView, error)
	ListInvestments(ctx context.Context) ([]core.InvestmentView, error)
	GetInvestment(ctx context.Context, id int64) (core.InvestmentView, error)
	ListTransfers(ctx context.Context) ([]core.TransferView, error)
	GetTransfer(ctx context.Context, id int64) (core.TransferView, error)
}

// Services groups the write and report services behind the pages.
type Services struct {
	Movements *services.MovementService
	Ledger    *services.LedgerService
	Imports   *services.ImportService
	Reports   *services.ReportService
}

// Options tune the server. Zero values get defaults.
type Options struct {
	MaxUploadBytes int64
	SharerAName    string
	SharerBName    string
	RateLimit      ratelimit.Config
	Logger         *applog.Logger
}

// Server embeds http.Server and carries templates and dependencies.
type Server struct {
	http.Server
	repo      Repository
	svc       Services
	opts      Options
	templates *template.Template
	logger    *applog.Logger
	structLog *applog.StructuredLogger

	detector *security.Detector
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware

	started          time.Time
	movementsWritten int64
	now              func() time.Time
}

// NewServer parses the embedded templates and builds the route table.
func NewServer(addr string, repo Repository, svc Services, opts Options) (*Server, error) {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if opts.SharerAName == "" {
		opts.SharerAName = "A"
	}
	if opts.SharerBName == "" {
		opts.SharerBName = "B"
	}
	if opts.RateLimit.RequestsPerMinute == 0 {
		opts.RateLimit = ratelimit.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		repo:      repo,
		svc:       svc,
		opts:      opts,
		logger:    logger,
		structLog: applog.NewStructuredLogger(logger),
		detector:  security.NewDetector(),
		started:   time.Now(),
		now:       time.Now,
	}

	t, err := template.New("").Funcs(s.templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	s.templates = t

	mux := http.NewServeMux()
	s.routes(mux)

	staticFS, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static assets: %w", err)
	}
	mux.Handle("/static/", security.StaticAssetMiddleware(3600)(
		http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))))

	s.limiter = ratelimit.NewLimiter(opts.RateLimit)
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited)(handler)
	handler = s.detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/{$}", s.handleIndex)

	for _, res := range s.referenceResources() {
		mux.HandleFunc("/"+res.Path, s.handleReferenceList(res))
		mux.HandleFunc("/"+res.Path+"/{id}", s.handleReferenceUpdate(res))
		mux.HandleFunc("/"+res.Path+"/{id}/delete", s.handleReferenceDelete(res))
	}

	mux.HandleFunc("/movements", s.handleMovements)
	mux.HandleFunc("/movements/{id}", s.handleMovementUpdate)
	mux.HandleFunc("/movements/{id}/delete", s.handleMovementDelete)

	mux.HandleFunc("/investments", s.handleInvestments)
	mux.HandleFunc("/investments/positions", s.handlePositions)
	mux.HandleFunc("/investments/{id}", s.handleInvestmentUpdate)
	mux.HandleFunc("/investments/{id}/delete", s.handleInvestmentDelete)

	mux.HandleFunc("/transfers", s.handleTransfers)
	mux.HandleFunc("/transfers/{id}", s.handleTransferUpdate)
	mux.HandleFunc("/transfers/{id}/delete", s.handleTransferDelete)

	mux.HandleFunc("/import", s.handleImport)
	mux.HandleFunc("/import/{session}", s.handleImportReview)
	mux.HandleFunc("/import/{session}/rows/{line}", s.handleImportRow)
	mux.HandleFunc("/import/{session}/commit", s.handleImportCommit)
	mux.HandleFunc("/import/{session}/cancel", s.handleImportCancel)

	mux.HandleFunc("/reports/monthly", s.handleMonthlyReport)
	mux.HandleFunc("/reports/monthly.xlsx", s.handleMonthlyReportXLSX)
	mux.HandleFunc("/reports/balances", s.handleBalances)
	mux.HandleFunc("/reports/trend", s.handleTrend)
	mux.HandleFunc("/reports/trend/chart.png", s.handleTrendChart)
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldPath, r.URL.Path,
		applog.FieldComponent, applog.ComponentRateLimit)
	ErrorResponse(http.StatusTooManyRequests, "Muitas requisições, tente novamente em instantes").
		Header("Retry-After", "60").
		Write(w)
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	return s.Server.Shutdown(ctx)
}
