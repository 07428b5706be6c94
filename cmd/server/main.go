package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/dutchpay/internal/auth"
	"github.com/mmynk/dutchpay/internal/config"
	"github.com/mmynk/dutchpay/internal/metrics"
	"github.com/mmynk/dutchpay/internal/middleware"
	"github.com/mmynk/dutchpay/internal/receipt"
	"github.com/mmynk/dutchpay/internal/service"
	"github.com/mmynk/dutchpay/internal/session"
	"github.com/mmynk/dutchpay/internal/share"
	"github.com/mmynk/dutchpay/internal/storage/sqlite"
	"github.com/mmynk/dutchpay/pkg/logging"
	"github.com/mmynk/dutchpay/pkg/tracing"
)

const serviceName = "dutchpay"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	shutdownTracing, err := tracing.Setup(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	// Initialize SQLite storage
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	pipelineOpts := []receipt.PipelineOption{receipt.WithObserver(m.ObserveAnalysis)}
	if cfg.CacheEnabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("Redis unreachable, analyses will not be cached until it recovers", "addr", cfg.RedisAddr, "error", err)
		}
		pipelineOpts = append(pipelineOpts, receipt.WithCache(receipt.NewRedisCache(rdb, cfg.RedisTTL)))
		slog.Info("Analysis cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.RedisTTL)
	}
	if cfg.ArchiveEnabled() {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3Region))
		if err != nil {
			return err
		}
		archive := receipt.NewS3Archive(s3.NewFromConfig(awsCfg), cfg.S3Bucket, cfg.S3Prefix)
		pipelineOpts = append(pipelineOpts, receipt.WithArchive(archive))
		slog.Info("Receipt archive enabled", "bucket", cfg.S3Bucket, "region", cfg.S3Region)
	}

	pipeline := receipt.NewPipeline(receipt.NewClient(cfg.AnalyzerURL, nil), pipelineOpts...)
	manager := session.NewManager(store, pipeline,
		session.WithAnalysisTimeout(cfg.AnalyzerTimeout),
		session.WithIdleTimeout(cfg.SessionIdle),
		session.WithRetention(cfg.TokenTTL),
	)
	go manager.RunJanitor(ctx, cfg.SweepInterval)
	tokens := auth.NewTokenManager(cfg.TokenSecret, cfg.TokenTTL)

	svcOpts := []service.ServiceOption{service.WithSendObserver(m.ObserveShare)}
	if cfg.SharingEnabled() {
		svcOpts = append(svcOpts, service.WithSender(
			share.NewKakaoSender(cfg.KakaoBaseURL, cfg.KakaoToken, cfg.KakaoTimeout),
			cfg.ShareLink,
		))
	}
	svc := service.NewSettlementService(manager, tokens, svcOpts...)

	mux := http.NewServeMux()

	// Register Connect services
	path, handler := service.NewSettlementServiceHandler(svc, connect.WithInterceptors(
		middleware.MetricsInterceptor(m),
		middleware.RequireSession(tokens, service.PublicProcedures...),
		middleware.LoggingInterceptor(),
	))
	mux.Handle(path, handler)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	staticDir, err := filepath.Abs(cfg.StaticDir)
	if err != nil {
		return err
	}
	slog.Info("Serving static files", "path", staticDir)
	mux.Handle("/", staticHandler(staticDir))

	server := &http.Server{
		Addr: cfg.Addr,
		// Wrap with h2c for HTTP/2 without TLS (required for Connect)
		Handler:           h2c.NewHandler(loggingMiddleware(corsMiddleware(mux)), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting", "address", cfg.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// staticHandler serves the web client, falling back to index.html.
func staticHandler(staticDir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/"+service.SettlementServiceName) {
			http.NotFound(w, r)
			return
		}

		urlPath := r.URL.Path
		if urlPath == "/" {
			urlPath = "/index.html"
		}

		filePath := filepath.Join(staticDir, filepath.Clean(urlPath))
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
			return
		}

		http.ServeFile(w, r, filePath)
	})
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		slog.Debug("Request received",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"user_agent", r.UserAgent(),
		)

		next.ServeHTTP(w, r)

		slog.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
