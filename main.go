package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	alertapp "firewatch-cloud/internal/alerts/application"
	alertrepo "firewatch-cloud/internal/alerts/infrastructure/postgres"
	alerthttp "firewatch-cloud/internal/alerts/interfaces/http"
	alertnotify "firewatch-cloud/internal/alerts/notify"
	"firewatch-cloud/internal/alerts/scheduler"
	apihttp "firewatch-cloud/internal/api/http"
	"firewatch-cloud/internal/audit"
	"firewatch-cloud/internal/auth"
	"firewatch-cloud/internal/ingest"
	ingestrepo "firewatch-cloud/internal/ingest/infrastructure/postgres"
	masterdatarepo "firewatch-cloud/internal/masterdata/infrastructure/postgres"
	"firewatch-cloud/internal/observability/metrics"
	provisioning "firewatch-cloud/internal/provisioning/application"
	provisioninghttp "firewatch-cloud/internal/provisioning/interfaces/http"
	"firewatch-cloud/internal/stations/directory"
	stationrepo "firewatch-cloud/internal/stations/infrastructure/postgres"
	"firewatch-cloud/internal/watchdog"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
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
	auditRepo := audit.NewRepository(db)
	deviceChecker := auth.NewDeviceChecker(db)

	stationRepo := stationrepo.NewStationRepository(db)
	tenantRepo := masterdatarepo.NewTenantRepository(db)
	deviceRepo := masterdatarepo.NewDeviceRepository(db)
	alertStore := alertrepo.NewAlertStore(db)
	readingStore := ingestrepo.NewReadingStore(db)

	stationDirectory, err := directory.New(stationRepo)
	if err != nil {
		logger.Fatalf("station directory error: %v", err)
	}

	alertScheduler := scheduler.New()
	defer alertScheduler.Close()

	alertBroker := alerthttp.NewSSEBroker()
	alertNotifiers := []alertapp.AlertNotifier{alertBroker}
	if cfg.AlertWebhookURL != "" {
		channel, err := alertnotify.NewWebhookChannel(cfg.AlertWebhookURL)
		if err != nil {
			logger.Fatalf("alert webhook error: %v", err)
		}
		tpl, err := alertnotify.NewTemplate(cfg.AlertNotifyTemplate)
		if err != nil {
			logger.Fatalf("alert template error: %v", err)
		}
		opts := []alertnotify.Option{
			alertnotify.WithCooldown(cfg.AlertNotifyCooldown),
			alertnotify.WithDedupeWindow(cfg.AlertNotifyDedupeWindow),
		}
		if cfg.SMSGatewayURL != "" {
			sms, err := alertnotify.NewSMSGateway(cfg.SMSGatewayURL, cfg.SMSGatewayAPIKey)
			if err != nil {
				logger.Fatalf("sms gateway error: %v", err)
			}
			opts = append(opts, alertnotify.WithSMS(sms))
		}
		alertNotifier, err := alertnotify.NewNotifier(stationRepo, tenantRepo, channel, tpl, opts...)
		if err != nil {
			logger.Fatalf("alert notifier error: %v", err)
		}
		alertNotifiers = append(alertNotifiers, alertNotifier)
	}

	alertCfg, err := alertapp.LoadConfig()
	if err != nil {
		logger.Fatalf("alert config error: %v", err)
	}
	alertService, err := alertapp.NewService(alertStore, tenantRepo, stationDirectory, alertScheduler, alertCfg,
		alertapp.WithNotifier(alertnotify.NewMultiNotifier(alertNotifiers...)),
		alertapp.WithLogger(logger),
	)
	if err != nil {
		logger.Fatalf("alert service error: %v", err)
	}
	if err := alertService.ResumeTimers(context.Background()); err != nil {
		logger.Printf("resume timers error: %v", err)
	}

	alertHandler, err := alerthttp.NewHandler(alertService, tenantRepo)
	if err != nil {
		logger.Fatalf("alert handler error: %v", err)
	}

	feedHandler, err := ingest.NewFeedHandler(deviceRepo, alertService,
		ingest.WithSink(readingStore),
		ingest.WithSampleInterval(cfg.IngestSampleInterval),
		ingest.WithLogger(logger),
	)
	if err != nil {
		logger.Fatalf("feed handler error: %v", err)
	}

	registryService, err := provisioning.NewService(stationRepo, tenantRepo, deviceRepo)
	if err != nil {
		logger.Fatalf("registry service error: %v", err)
	}
	registryHandler, err := provisioninghttp.NewRegistryHandler(registryService, stationRepo, tenantRepo, deviceRepo, deviceChecker, auditRepo)
	if err != nil {
		logger.Fatalf("registry handler error: %v", err)
	}

	deviceWatchdog, err := watchdog.New(deviceRepo,
		watchdog.WithOfflineThreshold(cfg.DeviceOfflineAfter),
		watchdog.WithLogger(logger),
	)
	if err != nil {
		logger.Fatalf("watchdog error: %v", err)
	}
	go deviceWatchdog.Run(context.Background())

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, []string{"/api/v1/ingest/"})
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)
	ingestAuth := auth.NewIngestAuthMiddleware([]byte(cfg.IngestSecret), time.Duration(cfg.IngestSkewSeconds)*time.Second)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/ingest/readings", ingestAuth.Wrap(feedHandler))
	mux.Handle("/api/v1/alerts", alertHandler)
	mux.Handle("/api/v1/alerts/", alertHandler)
	mux.Handle("/api/v1/alerts/stream", alerthttp.NewStreamHandler(alertBroker))
	mux.Handle("/api/v1/exports/alerts.xlsx", alertHandler)
	mux.Handle("/api/v1/stations", registryHandler)
	mux.Handle("/api/v1/tenants", registryHandler)
	mux.Handle("/api/v1/devices", registryHandler)
	mux.Handle("/api/v1/devices/", registryHandler)
	mux.Handle("/api/v1/stats", apihttp.NewStatsHandler(db))
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
	DatabaseURL             string
	HTTPAddr                string
	AlertWebhookURL         string
	AlertNotifyTemplate     string
	AlertNotifyCooldown     time.Duration
	AlertNotifyDedupeWindow time.Duration
	SMSGatewayURL           string
	SMSGatewayAPIKey        string
	IngestSampleInterval    time.Duration
	DeviceOfflineAfter      time.Duration
	JWTSecret               string
	IngestSecret            string
	IngestSkewSeconds       int
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:             getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:                getenvDefault("HTTP_ADDR", ":8080"),
		AlertWebhookURL:         getenvDefault("ALERT_WEBHOOK_URL", ""),
		AlertNotifyTemplate:     getenvDefault("ALERT_NOTIFY_TEMPLATE", ""),
		AlertNotifyCooldown:     getenvDuration("ALERT_NOTIFY_COOLDOWN", 0),
		AlertNotifyDedupeWindow: getenvDuration("ALERT_NOTIFY_DEDUP_WINDOW", 0),
		SMSGatewayURL:           getenvDefault("SMS_GATEWAY_URL", ""),
		SMSGatewayAPIKey:        getenvDefault("SMS_GATEWAY_API_KEY", ""),
		IngestSampleInterval:    getenvDuration("INGEST_SAMPLE_INTERVAL", ingest.DefaultSampleInterval),
		DeviceOfflineAfter:      getenvDuration("DEVICE_OFFLINE_AFTER", watchdog.DefaultOfflineThreshold),
		JWTSecret:               getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		IngestSecret:            getenvDefault("INGEST_HMAC_SECRET", ""),
		IngestSkewSeconds:       getenvIntDefault("INGEST_MAX_SKEW_SECONDS", 300),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	if cfg.IngestSecret == "" {
		log.Fatal("INGEST_HMAC_SECRET is required")
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
