package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/CognitionIES/teamsync/internal/audit"
	"github.com/CognitionIES/teamsync/internal/auth"
	"github.com/CognitionIES/teamsync/internal/cfg"
	"github.com/CognitionIES/teamsync/internal/database"
	"github.com/CognitionIES/teamsync/internal/events"
	"github.com/CognitionIES/teamsync/internal/logging"
	"github.com/CognitionIES/teamsync/internal/metrics"
	"github.com/CognitionIES/teamsync/internal/middleware"
	"github.com/CognitionIES/teamsync/internal/registry"
	"github.com/CognitionIES/teamsync/internal/respond"
	"github.com/CognitionIES/teamsync/internal/task"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"google.golang.org/grpc"
)

var autoMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Запустить HTTP и gRPC API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cfg.LoadConfig())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", false, "apply schema migrations before start")
}

func serve(conf cfg.Config) error {
	logger := logging.Component("server")
	if err := conf.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(conf)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to access sql DB")
	}
	defer sqlDB.Close()

	if autoMigrate {
		if err := database.Migrate(db); err != nil {
			return err
		}
	}

	var redisClient *redis.Client
	if conf.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     conf.RedisAddr,
			Password: conf.RedisPassword,
		})
		defer redisClient.Close()
	}

	authenticator, err := auth.NewAuthenticator(conf.JWTSecret, redisClient)
	if err != nil {
		return err
	}

	recorder, closeAudit, err := auditRecorder(ctx, conf)
	if err != nil {
		return err
	}
	defer closeAudit()

	publisher := events.NopPublisher()
	if len(conf.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(conf.KafkaBrokers, conf.KafkaTopic, logging.Component("events"))
	} else {
		logger.Warn("KAFKA_BROKERS is empty, task events are not published")
	}
	defer publisher.Close()

	registryRepo := registry.NewRepository(db)
	ledger := metrics.NewLedger(db)
	taskService := task.NewService(
		task.NewRepository(db),
		registryRepo,
		ledger,
		task.WithReuseWindow(conf.TaskReuseWindow),
		task.WithPublisher(publisher),
		task.WithAudit(recorder),
	)

	api := http.NewServeMux()
	task.NewHandler(taskService).RegisterHandlers(ctx, api)
	metrics.NewHandler(metrics.NewService(ledger)).RegisterHandlers(ctx, api)
	registry.NewHandler(registry.NewService(registryRepo, recorder)).RegisterHandlers(ctx, api)

	root := http.NewServeMux()
	root.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := sqlDB.PingContext(r.Context()); err != nil {
			respond.Message(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	root.Handle("/", authenticator.Middleware(api))

	httpLogger := logging.Component("http")
	httpServer := &http.Server{
		Addr: ":" + conf.HTTPPort,
		Handler: middleware.Chain(root,
			middleware.Recover(httpLogger),
			middleware.RequestLogger(httpLogger),
			middleware.SecurityHeaders,
			middleware.NewCORS(middleware.CORSOptions{AllowedOrigins: conf.CORSOrigins, Routes: api}),
			middleware.NewRateLimiter(conf.RateLimitRequests, conf.RateLimitWindow, redisClient).Middleware,
			middleware.BodyLimit(conf.MaxBodyBytes),
		),
	}

	grpcListener, err := net.Listen("tcp", ":"+conf.GRPCPort)
	if err != nil {
		return errors.Wrap(err, "failed to listen on gRPC port")
	}
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(authenticator.UnaryServerInterceptor()))
	task.RegisterTaskServiceServer(grpcServer, task.NewGrpcHandler(taskService))

	errCh := make(chan error, 2)

	go func() {
		logger.WithField("addr", httpServer.Addr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- errors.Wrap(err, "http server")
		}
	}()

	go func() {
		logger.WithField("addr", grpcListener.Addr().String()).Info("gRPC server listening")
		if err := grpcServer.Serve(grpcListener); err != nil {
			errCh <- errors.Wrap(err, "grpc server")
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errCh:
		logger.WithError(runErr).Error("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.ShutdownGracePeriod)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("http shutdown error")
	}
	grpcServer.GracefulStop()
	recorder.Wait()
	logger.Info("teamsync server stopped")
	return runErr
}

// auditRecorder пишет в MongoDB, если задан MONGO_URI, иначе в лог
func auditRecorder(ctx context.Context, conf cfg.Config) (*audit.Recorder, func(), error) {
	if conf.MongoURI == "" {
		return audit.NewRecorder(audit.NewLogSink(logging.Component("audit")), 0), func() {}, nil
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(conf.MongoURI))
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect to mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, errors.Wrap(err, "failed to ping mongo")
	}

	coll := client.Database(conf.MongoDatabase).Collection(conf.MongoAuditColl)
	closeFn := func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logrus.WithError(err).Warn("mongo disconnect error")
		}
	}
	return audit.NewRecorder(audit.NewMongoSink(coll), 0), closeFn, nil
}
