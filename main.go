package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"propipe-books/internal/audit"
	"propipe-books/internal/auth"
	dashboardapp "propipe-books/internal/dashboard/application"
	dashboardhttp "propipe-books/internal/dashboard/interfaces/http"
	"propipe-books/internal/eventing"
	ledgerapp "propipe-books/internal/ledger/application"
	ledger "propipe-books/internal/ledger/domain"
	"propipe-books/internal/ledger/infrastructure/memory"
	ledgerpg "propipe-books/internal/ledger/infrastructure/postgres"
	ledgersqlite "propipe-books/internal/ledger/infrastructure/sqlite"
	ledgerhttp "propipe-books/internal/ledger/interfaces/http"
	"propipe-books/internal/observability/metrics"
	registryapp "propipe-books/internal/registry/application"
	registryhttp "propipe-books/internal/registry/interfaces/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"
)

type repositories struct {
	projects          ledger.ProjectRepository
	partners          ledger.PartnerRepository
	projectStatements ledger.ProjectStatementRepository
	partnerStatements ledger.PartnerStatementRepository
	dashboard         ledger.DashboardReader
}

func main() {
	_ = godotenv.Load()
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	var repos repositories
	var auditLogger audit.Logger

	switch cfg.StorageDriver {
	case "postgres":
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("db open error: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("db ping error: %v", err)
		}
		if err := ledgerpg.Migrate(context.Background(), db); err != nil {
			logger.Fatalf("db migrate error: %v", err)
		}
		metrics.Init(db, logger)
		if repo := audit.NewRepository(db); repo != nil {
			auditLogger = repo
		}
		repos = repositories{
			projects:          ledgerpg.NewProjectRepository(db),
			partners:          ledgerpg.NewPartnerRepository(db),
			projectStatements: ledgerpg.NewProjectStatementRepository(db),
			partnerStatements: ledgerpg.NewPartnerStatementRepository(db),
			dashboard:         ledgerpg.NewDashboardReader(db),
		}
	case "sqlite":
		store, err := ledgersqlite.Open(cfg.SQLitePath)
		if err != nil {
			logger.Fatalf("sqlite open error: %v", err)
		}
		defer store.Close()
		metrics.Init(store.DB(), logger)
		repos = repositories{
			projects:          store.Projects(),
			partners:          store.Partners(),
			projectStatements: store.ProjectStatements(),
			partnerStatements: store.PartnerStatements(),
			dashboard:         store.Dashboard(),
		}
	case "memory":
		store := memory.NewStore()
		metrics.Init(nil, logger)
		repos = repositories{
			projects:          store.Projects(),
			partners:          store.Partners(),
			projectStatements: store.ProjectStatements(),
			partnerStatements: store.PartnerStatements(),
			dashboard:         store.Dashboard(),
		}
	default:
		logger.Fatalf("unknown STORAGE_DRIVER %q (want postgres, sqlite or memory)", cfg.StorageDriver)
	}

	bus := eventing.NewInMemoryBus()
	bus.Subscribe(eventing.EventType(ledgerapp.ProjectStatementClosed{}), func(_ context.Context, event any) error {
		if e, ok := event.(ledgerapp.ProjectStatementClosed); ok {
			logger.Printf("project statement %s closed, project %s balance now %s", e.StatementID, e.ProjectID, e.FinalBalance)
		}
		return nil
	})
	bus.Subscribe(eventing.EventType(ledgerapp.PartnerStatementClosed{}), func(_ context.Context, event any) error {
		if e, ok := event.(ledgerapp.PartnerStatementClosed); ok {
			logger.Printf("partner statement %s (%d-%02d) closed, partner %s balance now %s", e.StatementID, e.Year, e.Month, e.PartnerID, e.NextMonthBalance)
		}
		return nil
	})
	bus.Subscribe(eventing.EventType(ledgerapp.PartnerStatementReopened{}), func(_ context.Context, event any) error {
		if e, ok := event.(ledgerapp.PartnerStatementReopened); ok {
			logger.Printf("partner statement %s (%d-%02d) reopened, partner %s balance restored to %s", e.StatementID, e.Year, e.Month, e.PartnerID, e.RestoredBalance)
		}
		return nil
	})

	clock := systemClock{}
	ledgerCfg := ledgerapp.Config{
		AllowProjectReopen: cfg.AllowProjectReopen,
		EnforceContinuity:  cfg.EnforceContinuity,
	}

	continuity, err := ledgerapp.NewContinuityResolver(repos.projectStatements, repos.partnerStatements, repos.projects, repos.partners)
	if err != nil {
		logger.Fatalf("continuity resolver error: %v", err)
	}
	projectService, err := ledgerapp.NewProjectStatementService(repos.projectStatements, repos.projects, continuity, bus, clock, ledgerCfg)
	if err != nil {
		logger.Fatalf("project statement service error: %v", err)
	}
	partnerService, err := ledgerapp.NewPartnerStatementService(repos.partnerStatements, repos.partners, continuity, bus, clock, ledgerCfg)
	if err != nil {
		logger.Fatalf("partner statement service error: %v", err)
	}
	registryService, err := registryapp.NewService(repos.projects, repos.partners, clock)
	if err != nil {
		logger.Fatalf("registry service error: %v", err)
	}
	dashboardService, err := dashboardapp.NewService(repos.dashboard, clock, cfg.DashboardMonths)
	if err != nil {
		logger.Fatalf("dashboard service error: %v", err)
	}

	projectStatementHandler, err := ledgerhttp.NewProjectStatementHandler(projectService, auditLogger)
	if err != nil {
		logger.Fatalf("project statement handler error: %v", err)
	}
	partnerStatementHandler, err := ledgerhttp.NewPartnerStatementHandler(partnerService, auditLogger)
	if err != nil {
		logger.Fatalf("partner statement handler error: %v", err)
	}
	registryHandler, err := registryhttp.NewHandler(registryService)
	if err != nil {
		logger.Fatalf("registry handler error: %v", err)
	}
	dashboardHandler, err := dashboardhttp.NewHandler(dashboardService)
	if err != nil {
		logger.Fatalf("dashboard handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/project-statements", projectStatementHandler)
	mux.Handle("/api/v1/project-statements/", projectStatementHandler)
	mux.Handle("/api/v1/partner-statements", partnerStatementHandler)
	mux.Handle("/api/v1/partner-statements/", partnerStatementHandler)
	mux.Handle("/api/v1/projects", registryHandler)
	mux.Handle("/api/v1/projects/", registryHandler)
	mux.Handle("/api/v1/partners", registryHandler)
	mux.Handle("/api/v1/partners/", registryHandler)
	mux.Handle("/api/v1/dashboard", dashboardHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("listening on %s (storage %s)", cfg.HTTPAddr, cfg.StorageDriver)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	StorageDriver      string
	DatabaseURL        string
	SQLitePath         string
	HTTPAddr           string
	JWTSecret          string
	DashboardMonths    int
	AllowProjectReopen bool
	EnforceContinuity  bool
}

func loadConfig() config {
	cfg := config{
		StorageDriver:      getenvDefault("STORAGE_DRIVER", "postgres"),
		DatabaseURL:        getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		SQLitePath:         getenvDefault("SQLITE_PATH", "propipe-books.db"),
		HTTPAddr:           getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:          getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		DashboardMonths:    getenvIntDefault("DASHBOARD_TRAILING_MONTHS", dashboardapp.DefaultTrailingMonths),
		AllowProjectReopen: getenvBoolDefault("ALLOW_PROJECT_REOPEN", false),
		EnforceContinuity:  getenvBoolDefault("ENFORCE_CONTINUITY", true),
	}
	applyPolicyFile(&cfg, getenvDefault("POLICY_FILE", ""))
	if cfg.StorageDriver == "postgres" && cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

// applyPolicyFile overlays the ledger policy knobs from an optional YAML file.
func applyPolicyFile(cfg *config, path string) {
	if path == "" {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("policy file read error: %v", err)
	}
	var overlay struct {
		AllowProjectReopen *bool `yaml:"allow_project_reopen"`
		EnforceContinuity  *bool `yaml:"enforce_continuity"`
		DashboardMonths    *int  `yaml:"dashboard_trailing_months"`
	}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		log.Fatalf("policy file parse error: %v", err)
	}
	if overlay.AllowProjectReopen != nil {
		cfg.AllowProjectReopen = *overlay.AllowProjectReopen
	}
	if overlay.EnforceContinuity != nil {
		cfg.EnforceContinuity = *overlay.EnforceContinuity
	}
	if overlay.DashboardMonths != nil {
		cfg.DashboardMonths = *overlay.DashboardMonths
	}
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBoolDefault(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
