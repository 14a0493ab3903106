// Package api_server hosts the report-delivery process: the River consumers
// working the job queue and the admin HTTP surface (health, metrics, the
// registry API and local artifact downloads).
package api_server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/querykit/report-delivery/internal/artifact"
	"github.com/querykit/report-delivery/internal/config"
	"github.com/querykit/report-delivery/internal/events"
	"github.com/querykit/report-delivery/internal/handlers"
	"github.com/querykit/report-delivery/internal/jobs"
	"github.com/querykit/report-delivery/internal/notification"
	"github.com/querykit/report-delivery/internal/queryexec"
	"github.com/querykit/report-delivery/internal/service"
	"github.com/querykit/report-delivery/internal/store"
	"github.com/querykit/report-delivery/pkg/metrics"
	"github.com/querykit/report-delivery/pkg/middleware"
)

const (
	gracefulShutdownTimeout = 5 * time.Second
)

type Server struct {
	cfg      *config.Config
	store    store.Store
	db       *gorm.DB
	listener net.Listener
}

// New returns a new instance of a report-delivery server.
func New(
	cfg *config.Config,
	store store.Store,
	db *gorm.DB,
	listener net.Listener,
) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		db:       db,
		listener: listener,
	}
}

func (s *Server) Run(ctx context.Context) error {
	logger := zap.S().Named("api_server")

	router := chi.NewRouter()

	metricsMiddleware := metrics.NewMiddleware("report_delivery")
	metricsMiddleware.MustRegisterDefault()
	prometheus.MustRegister(metrics.NewQueryLogStatsCollector(s.store))

	router.Use(
		chimiddleware.RequestID,
		middleware.RequestID,
		middleware.Logger(),
		metricsMiddleware.Handler,
		chimiddleware.Recoverer,
	)

	// Initialize pgx pool for River
	dsn := fmt.Sprintf("host=%s user=%s password=%s port=%s dbname=%s",
		s.cfg.Database.Hostname,
		s.cfg.Database.User,
		s.cfg.Database.Password,
		s.cfg.Database.Port,
		s.cfg.Database.Name,
	)

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("failed to parse pgx config: %w", err)
	}

	// Connection pool sized for job processing plus LISTEN/NOTIFY
	poolCfg.MaxConns = 20
	poolCfg.MinConns = 5
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool: %w", err)
	}
	defer dbPool.Close()

	artifactStore, err := newArtifactStore(s.cfg)
	if err != nil {
		return fmt.Errorf("failed to create artifact store: %w", err)
	}

	var producerOpts []events.ProducerOptions
	if s.cfg.Service.Kafka.Topic != "" {
		producerOpts = append(producerOpts, events.WithOutputTopic(s.cfg.Service.Kafka.Topic))
	}
	eventProducer := events.NewEventProducer(newEventWriter(s.cfg), producerOpts...)
	defer func() {
		_ = eventProducer.Close()
	}()

	insertClient, err := jobs.NewInsertOnlyClient(dbPool)
	if err != nil {
		return fmt.Errorf("failed to create insert client: %w", err)
	}

	reportService := service.NewReportService(
		s.store,
		queryexec.NewExecutor(s.db),
		artifact.NewWriter(artifactStore),
		notification.NewHTTPSender(notification.Config{
			RootUrl:    s.cfg.Service.Email.RootUrl,
			ApiKey:     s.cfg.Service.Email.ApiKey,
			AppName:    s.cfg.Service.Email.AppName,
			From:       s.cfg.Service.Email.From,
			Subject:    s.cfg.Service.Email.Subject,
			TemplateId: s.cfg.Service.Email.TemplateId,
		}),
		eventProducer,
		insertClient,
		service.ReportConfig{
			QueryFolder:   s.cfg.Service.Storage.QueryFolder,
			BaseUrl:       s.cfg.Service.BaseUrl,
			DownloadRoute: s.cfg.Service.DownloadRoute,
			Retention:     s.cfg.Service.Queue.RetentionWindow,
		},
	)

	queueClient, err := jobs.NewClient(dbPool, reportService, artifactStore, s.cfg.Service.Queue.PrefetchLimit)
	if err != nil {
		return fmt.Errorf("failed to create river client: %w", err)
	}

	if err := queueClient.Start(ctx); err != nil {
		return fmt.Errorf("failed to start river: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := queueClient.Stop(stopCtx); err != nil {
			logger.Warnw("failed to stop river client", "error", err)
		}
	}()

	logger.Info("River job queue initialized")

	h := handlers.New(
		service.NewQueryService(s.store, queryexec.NewExecutor(s.db), s.cfg.Service.Storage.QueryFolder),
		service.NewQueryLogService(s.store),
	)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())
	router.Mount("/api/v1", h.Routes())

	// local artifacts are downloadable straight off the storage root
	if s.cfg.Service.Storage.Backend == "local" {
		route := strings.TrimSuffix(s.cfg.Service.DownloadRoute, "/")
		fileServer := http.StripPrefix(route, http.FileServer(http.Dir(s.cfg.Service.Storage.Root)))
		router.Get(route+"/*", fileServer.ServeHTTP)
	}

	srv := http.Server{Addr: s.cfg.Service.AdminAddress, Handler: router}

	go func() {
		<-ctx.Done()
		logger.Infof("Shutdown signal received: %s", ctx.Err())
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(ctxTimeout)
		logger.Info("api server terminated")
	}()

	logger.Infof("Listening on %s...", s.listener.Addr().String())
	if err := srv.Serve(s.listener); err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func newArtifactStore(cfg *config.Config) (artifact.Store, error) {
	if cfg.Service.Storage.Backend == "s3" {
		return artifact.NewS3Store(
			artifact.WithEndpoint(cfg.Service.Storage.S3Endpoint),
			artifact.WithBucket(cfg.Service.Storage.S3Bucket),
			artifact.WithCredentials(cfg.Service.Storage.S3AccessKey, cfg.Service.Storage.S3SecretKey),
			artifact.WithSSL(cfg.Service.Storage.S3UseSSL),
		)
	}
	return artifact.NewLocalStore(cfg.Service.Storage.Root), nil
}

func newEventWriter(cfg *config.Config) events.Writer {
	if len(cfg.Service.Kafka.Brokers) == 0 {
		return &events.StdoutWriter{}
	}

	saramaCfg := cfg.Service.Kafka.SaramaConfig
	if saramaCfg == nil {
		saramaCfg = sarama.NewConfig()
		saramaCfg.Version = cfg.Service.Kafka.Version
		if cfg.Service.Kafka.ClientID != "" {
			saramaCfg.ClientID = cfg.Service.Kafka.ClientID
		}
	}
	// SyncProducer needs successes reported back
	saramaCfg.Producer.Return.Successes = true

	writer, err := events.NewKafkaWriter(cfg.Service.Kafka.Brokers, saramaCfg)
	if err != nil {
		zap.S().Named("api_server").Errorw("failed to create kafka writer, falling back to stdout", "error", err)
		return &events.StdoutWriter{}
	}
	return writer
}
