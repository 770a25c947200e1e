package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	notify "station-ops/internal/alerts/notify"
	"station-ops/internal/audit"
	"station-ops/internal/auth"
	"station-ops/internal/calibration"
	"station-ops/internal/eventbus"
	handoverapp "station-ops/internal/handover/application"
	handoverpg "station-ops/internal/handover/infrastructure/postgres"
	handoverhttp "station-ops/internal/handover/interfaces/http"
	"station-ops/internal/observability/metrics"
	readingspg "station-ops/internal/readings/infrastructure/postgres"
	reconcileapp "station-ops/internal/reconcile/application"
	reconcilepg "station-ops/internal/reconcile/infrastructure/postgres"
	reconcilehttp "station-ops/internal/reconcile/interfaces/http"
	reportshttp "station-ops/internal/reports/http"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("ping database: %v", err)
	}

	metrics.Init(db, logger)

	dipSet, err := calibration.LoadSet(cfg.CalibrationPath)
	if err != nil {
		logger.Fatalf("load strapping tables: %v", err)
	}

	svcCfg, err := reconcileapp.LoadConfig()
	if err != nil {
		logger.Fatalf("load tolerances config: %v", err)
	}

	bus := eventbus.New()

	auditor := audit.NewRepository(db)
	readingRepo := readingspg.NewReadingRepository(db)
	resultRepo := reconcilepg.NewResultRepository(db)
	handoverRepo := handoverpg.NewHandoverRepository(db)

	reconcileService, err := reconcileapp.NewService(
		readingRepo,
		readingRepo,
		readingRepo,
		resultRepo,
		dipSet,
		svcCfg,
		bus,
		reconcileapp.SystemClock{},
		logger,
	)
	if err != nil {
		logger.Fatalf("build reconcile service: %v", err)
	}

	handoverService, err := handoverapp.NewService(handoverRepo, bus, handoverapp.SystemClock{}, logger)
	if err != nil {
		logger.Fatalf("build handover service: %v", err)
	}

	if cfg.WebhookURL != "" {
		channel, err := notify.NewWebhookChannel(cfg.WebhookURL)
		if err != nil {
			logger.Fatalf("build alert channel: %v", err)
		}
		notifier, err := notify.NewNotifier(channel, logger,
			notify.WithShortfallLimit(decimal.NewFromFloat(svcCfg.Defaults.AlertShortfall)),
			notify.WithDedupeWindow(cfg.AlertDedupeWindow),
		)
		if err != nil {
			logger.Fatalf("build notifier: %v", err)
		}
		eventbus.Subscribe(bus, notifier.HandleReconciliation)
		eventbus.Subscribe(bus, notifier.HandleHandover)
	}

	reconcileHandler, err := reconcilehttp.NewHandler(reconcileService, auditor)
	if err != nil {
		logger.Fatalf("build reconcile handler: %v", err)
	}
	handoverHandler, err := handoverhttp.NewHandler(handoverService, reconcileService, auditor)
	if err != nil {
		logger.Fatalf("build handover handler: %v", err)
	}
	reportHandler, err := reportshttp.NewHandler(reconcileService, handoverService)
	if err != nil {
		logger.Fatalf("build report handler: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	var readingsHandler http.Handler = reconcileHandler
	if cfg.ConsoleSecret != "" {
		consoleAuth := auth.NewConsoleAuthMiddleware([]byte(cfg.ConsoleSecret), time.Duration(cfg.ConsoleSkewSeconds)*time.Second)
		readingsHandler = consoleAuth.Wrap(reconcileHandler)
		logger.Printf("forecourt console signing enabled (skew %ds)", cfg.ConsoleSkewSeconds)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/v1/readings/nozzles", readingsHandler)
	mux.Handle("/api/v1/readings/tanks", readingsHandler)
	mux.Handle("/api/v1/deliveries", reconcileHandler)
	mux.Handle("/api/v1/tanks/validate", reconcileHandler)
	mux.Handle("/api/v1/tanks/reconcile", reconcileHandler)
	mux.Handle("/api/v1/reconciliations", reconcileHandler)
	mux.Handle("/api/v1/handovers", handoverHandler)
	mux.Handle("/api/v1/reports/", reportHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL        string
	HTTPAddr           string
	CalibrationPath    string
	JWTSecret          string
	ConsoleSecret      string
	ConsoleSkewSeconds int
	WebhookURL         string
	AlertDedupeWindow  time.Duration
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:        getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:           getenvDefault("HTTP_ADDR", ":8080"),
		CalibrationPath:    getenvDefault("STATION_CALIBRATION_CONFIG", ""),
		JWTSecret:          getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		ConsoleSecret:      getenvDefault("CONSOLE_HMAC_SECRET", ""),
		ConsoleSkewSeconds: getenvIntDefault("CONSOLE_MAX_SKEW_SECONDS", 300),
		WebhookURL:         getenvDefault("DISCREPANCY_WEBHOOK_URL", ""),
		AlertDedupeWindow:  getenvDuration("ALERT_DEDUP_WINDOW", 10*time.Minute),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.CalibrationPath == "" {
		log.Fatal("STATION_CALIBRATION_CONFIG is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
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

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
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
