package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"central-backend/internal/analytics"
	analyticsrepo "central-backend/internal/analytics/infrastructure/postgres"
	"central-backend/internal/auth"
	"central-backend/internal/eventing"
	mobilityapp "central-backend/internal/mobility/application"
	mobilityrepo "central-backend/internal/mobility/infrastructure/postgres"
	mobilityhttp "central-backend/internal/mobility/interfaces/http"
	"central-backend/internal/observability/metrics"
	registryapp "central-backend/internal/registry/application"
	registryrepo "central-backend/internal/registry/infrastructure/postgres"
	registryhttp "central-backend/internal/registry/interfaces/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	_ = godotenv.Load()
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)

	bus := eventing.NewInMemoryBus()

	cdrRepo := mobilityrepo.NewCDRRepository(db)
	cdrQuery := mobilityrepo.NewCDRQuery(db)
	processor, err := mobilityapp.NewEventProcessor(cdrRepo, bus, logger)
	if err != nil {
		logger.Fatalf("event processor error: %v", err)
	}
	reconciler, err := mobilityapp.NewReconciler(cdrRepo, logger)
	if err != nil {
		logger.Fatalf("reconciler error: %v", err)
	}

	btsRepo := registryrepo.NewBTSRepository(db)
	registryService, err := registryapp.NewService(btsRepo, bus, logger)
	if err != nil {
		logger.Fatalf("registry service error: %v", err)
	}

	analyticsCfg, err := analytics.LoadConfig()
	if err != nil {
		logger.Fatalf("analytics config error: %v", err)
	}
	detector, err := analytics.NewDetector(analyticsCfg, analyticsrepo.NewAlertRepository(db), logger)
	if err != nil {
		logger.Fatalf("anomaly detector error: %v", err)
	}
	detector.Register(bus)

	eventHandler, err := mobilityhttp.NewEventHandler(processor, logger)
	if err != nil {
		logger.Fatalf("event handler error: %v", err)
	}
	queryHandler, err := mobilityhttp.NewQueryHandler(cdrQuery, cdrRepo, logger)
	if err != nil {
		logger.Fatalf("query handler error: %v", err)
	}
	exportHandler, err := mobilityhttp.NewExportHandler(cdrQuery, logger)
	if err != nil {
		logger.Fatalf("export handler error: %v", err)
	}
	reconcileHandler, err := mobilityhttp.NewReconcileHandler(reconciler, logger)
	if err != nil {
		logger.Fatalf("reconcile handler error: %v", err)
	}
	btsHandler, err := registryhttp.NewHandler(registryService, logger)
	if err != nil {
		logger.Fatalf("bts handler error: %v", err)
	}

	gate := auth.NewHMACGate([]byte(cfg.HMACSecret), auth.DefaultGateRules(), cfg.HMACMaxDriftSeconds, logger)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), auth.NewDefaultPolicy())

	mux := http.NewServeMux()
	mux.Handle("/api/v1/user", eventHandler)
	mux.Handle("/api/v1/cdr", queryHandler)
	mux.Handle("/api/v1/cdr/", queryHandler)
	mux.Handle("/api/v1/bts", btsHandler)
	mux.Handle("/api/v1/bts/", btsHandler)
	mux.Handle("/api/v1/exports/", exportHandler)
	mux.Handle("/api/v1/reconcile", reconcileHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(gate.Wrap(mux)), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL         string
	HTTPAddr            string
	HMACSecret          string
	HMACMaxDriftSeconds int64
	JWTSecret           string
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:         getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:            getenvDefault("HTTP_ADDR", ":8080"),
		HMACSecret:          getenvDefault("HMAC_SECRET", ""),
		HMACMaxDriftSeconds: getenvInt64Default("HMAC_MAX_DRIFT_SECONDS", auth.DefaultMaxDriftSeconds),
		JWTSecret:           getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt64Default(key string, fallback int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
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
