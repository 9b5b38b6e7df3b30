package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/CognitionIES/teamsync/internal/cfg"
	"github.com/CognitionIES/teamsync/internal/database"
	"github.com/CognitionIES/teamsync/internal/events"
	"github.com/CognitionIES/teamsync/internal/logging"
	"github.com/CognitionIES/teamsync/internal/notification"
	"github.com/CognitionIES/teamsync/internal/registry"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func main() {
	conf := cfg.LoadConfig()
	logging.Init(conf.LogLevel, conf.LogFormat, conf.LogReportCaller)
	logger := logging.Component("notification")

	if err := run(conf); err != nil {
		logger.WithError(err).Fatal("notification service failed")
	}
	logger.Info("notification service stopped")
}

func run(conf cfg.Config) error {
	logger := logging.Component("notification")

	if len(conf.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS must be set")
	}
	if conf.KafkaTopic == "" {
		return errors.New("KAFKA_TOPIC must be set")
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

	notifier := notification.NewLogNotifier(logger)
	handler := notification.NewEventHandler(notifier, registry.NewRepository(db))
	consumer := events.NewKafkaConsumer(conf.KafkaBrokers, conf.KafkaTopic, conf.KafkaGroupID, handler, logger)
	defer consumer.Close()

	logger.WithFields(logrus.Fields{
		"topic": conf.KafkaTopic,
		"group": conf.KafkaGroupID,
	}).Info("kafka consumer subscribing")

	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
