package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/carehub-health/billing-core/cmd/mainconfig"
	"github.com/carehub-health/billing-core/internal/api"
	"github.com/carehub-health/billing-core/internal/appointments"
	"github.com/carehub-health/billing-core/internal/artifact"
	"github.com/carehub-health/billing-core/internal/billing"
	appconfig "github.com/carehub-health/billing-core/internal/config"
	"github.com/carehub-health/billing-core/internal/directory"
	"github.com/carehub-health/billing-core/internal/ledger"
	"github.com/carehub-health/billing-core/internal/observability/metrics"
	"github.com/carehub-health/billing-core/internal/search"
	"github.com/carehub-health/billing-core/pkg/logging"
)

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting carehub billing API",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	awsCfg, err := mainconfig.LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	dynamoClient := dynamodb.NewFromConfig(awsCfg)
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.AWSEndpointOverride != "" {
			o.UsePathStyle = true
		}
	})

	ledgerClient := ledger.NewClient(dynamoClient, ledger.Tables{
		Appointments: cfg.AppointmentsTable,
		Billings:     cfg.BillingsTable,
		Doctors:      cfg.DoctorsTable,
		Patients:     cfg.PatientsTable,
	}, logger.With("component", "ledger"))

	billingMetrics := metrics.NewBillingMetrics(prometheus.DefaultRegisterer)

	roster := appointments.NewRoster()
	repo := appointments.NewRepository(ledgerClient, logger.With("component", "appointments"))
	resolver := directory.NewResolver(ledgerClient, billingMetrics, logger.With("component", "directory"))
	reconciler := billing.NewReconciler(ledgerClient, roster, cfg.DefaultPaymentMode, logger.With("component", "reconciler"))
	history := billing.NewHistory(ledgerClient, resolver, cfg.HistoryLimit, logger.With("component", "history"))
	generator := artifact.NewGenerator(s3Client, ledgerClient, cfg.ArtifactBucket, cfg.AWSRegion, cfg.ArtifactBaseURL, logger.With("component", "artifact"))
	engine := search.NewEngine(resolver, cfg.SearchLookupLimit, billingMetrics, logger.With("component", "search"))

	handler := api.NewHandler(api.HandlerConfig{
		Repo:       repo,
		Roster:     roster,
		Reconciler: reconciler,
		Generator:  generator,
		Billings:   ledgerClient,
		History:    history,
		Engine:     engine,
		Resolver:   resolver,
		Metrics:    billingMetrics,
		Logger:     logger,
	})

	router := api.NewRouter(&api.RouterConfig{
		Logger:         logger,
		Handler:        handler,
		MetricsHandler: promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()
	logger.Info("server listening", "addr", srv.Addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
