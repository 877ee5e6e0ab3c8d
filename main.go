package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	apihttp "vitals-cloud/internal/api/http"
	"vitals-cloud/internal/audit"
	"vitals-cloud/internal/auth"
	devicecache "vitals-cloud/internal/device/cache"
	device "vitals-cloud/internal/device/domain"
	devicepostgres "vitals-cloud/internal/device/infrastructure/postgres"
	devicehttp "vitals-cloud/internal/device/interfaces/http"
	"vitals-cloud/internal/measurement/application"
	measurementpostgres "vitals-cloud/internal/measurement/infrastructure/postgres"
	measurementhttp "vitals-cloud/internal/measurement/interfaces/http"
	measurementmqtt "vitals-cloud/internal/measurement/interfaces/mqtt"
	"vitals-cloud/internal/measurement/interfaces/report"
	"vitals-cloud/internal/observability/metrics"

	"github.com/go-redis/redis/v8"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"
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

	measurementRepo := measurementpostgres.NewMeasurementRepository(db)
	measurementQuery := measurementpostgres.NewMeasurementQuery(db)
	deviceRepo := devicepostgres.NewDeviceRepository(db)

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.Printf("redis ping error, running without cache: %v", err)
			redisClient = nil
		}
		cancel()
	}
	timezoneCache, err := devicecache.NewTimezoneCache(redisClient, deviceRepo, cfg.TimezoneCacheTTL, logger)
	if err != nil {
		logger.Fatalf("timezone cache error: %v", err)
	}

	ingestService, err := application.NewIngestService(measurementRepo, application.SystemClock{}, logger)
	if err != nil {
		logger.Fatalf("ingest service error: %v", err)
	}
	aggregationService, err := application.NewAggregationService(measurementQuery, timezoneCache, application.SystemClock{}, logger)
	if err != nil {
		logger.Fatalf("aggregation service error: %v", err)
	}

	ingestHandler, err := measurementhttp.NewIngestHandler(ingestService, logger)
	if err != nil {
		logger.Fatalf("ingest handler error: %v", err)
	}
	readHandler, err := measurementhttp.NewReadHandler(measurementQuery, aggregationService, auditRepo, logger)
	if err != nil {
		logger.Fatalf("read handler error: %v", err)
	}
	deviceHandler, err := devicehttp.NewHandler(deviceRepo, timezoneCache, logger)
	if err != nil {
		logger.Fatalf("device handler error: %v", err)
	}
	reportHandler, err := report.NewHandler(aggregationService, logger)
	if err != nil {
		logger.Fatalf("report handler error: %v", err)
	}

	if cfg.MQTTBroker != "" {
		consumer, err := measurementmqtt.NewConsumer(cfg.MQTTBroker, cfg.MQTTClientID, ingestService, deviceRepo, logger)
		if err != nil {
			logger.Fatalf("mqtt consumer error: %v", err)
		}
		if err := consumer.Start(); err != nil {
			logger.Fatalf("mqtt subscribe error: %v", err)
		}
		defer consumer.Close()
		logger.Printf("mqtt ingest subscribed via %s", cfg.MQTTBroker)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, []string{"/ingest/"})
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)
	deviceAuth := auth.NewDeviceKeyMiddleware(deviceKeyResolver{repo: deviceRepo})

	mux := http.NewServeMux()
	mux.Handle("/ingest/measurements", deviceAuth.Wrap(ingestHandler))
	mux.Handle("/api/v1/measurements", readHandler)
	mux.Handle("/api/v1/measurements/day", readHandler)
	mux.Handle("/api/v1/measurements/summary/weekly", readHandler)
	mux.Handle("/api/v1/measurements/summary/daily", readHandler)
	mux.Handle("/api/v1/measurements/stats", readHandler)
	mux.Handle("/api/v1/devices", deviceHandler)
	mux.Handle("/api/v1/devices/", deviceHandler)
	mux.Handle("/api/v1/exports/measurements.csv", apihttp.NewExportMeasurementsCSVHandler(db, aggregationService))
	mux.Handle("/api/v1/reports/weekly.pdf", reportHandler)
	mux.Handle("/api/v1/reports/weekly.xlsx", reportHandler)
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
	DatabaseURL      string        `yaml:"database_url"`
	HTTPAddr         string        `yaml:"http_addr"`
	JWTSecret        string        `yaml:"jwt_secret"`
	RedisAddr        string        `yaml:"redis_addr"`
	RedisPassword    string        `yaml:"redis_password"`
	RedisDB          int           `yaml:"redis_db"`
	MQTTBroker       string        `yaml:"mqtt_broker"`
	MQTTClientID     string        `yaml:"mqtt_client_id"`
	TimezoneCacheTTL time.Duration `yaml:"timezone_cache_ttl"`
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:      getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:         getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:        getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		RedisAddr:        getenvDefault("REDIS_ADDR", ""),
		RedisPassword:    getenvDefault("REDIS_PASSWORD", ""),
		RedisDB:          getenvIntDefault("REDIS_DB", 0),
		MQTTBroker:       getenvDefault("MQTT_BROKER", ""),
		MQTTClientID:     getenvDefault("MQTT_CLIENT_ID", "vitals-cloud"),
		TimezoneCacheTTL: getenvDuration("TIMEZONE_CACHE_TTL", 5*time.Minute),
	}
	if path := os.Getenv("VITALS_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("config read error: %v", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("config parse error: %v", err)
		}
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
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

// ---- Adapters ----

type deviceKeyResolver struct {
	repo device.Repository
}

func (r deviceKeyResolver) ResolveDeviceKey(ctx context.Context, apiKey string) (auth.DeviceIdentity, error) {
	d, err := r.repo.GetByAPIKey(ctx, apiKey)
	if err != nil {
		return auth.DeviceIdentity{}, err
	}
	return auth.DeviceIdentity{DeviceID: d.ID, UserID: d.UserID}, nil
}
