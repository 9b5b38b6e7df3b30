package database

import (
	"time"

	"github.com/CognitionIES/teamsync/internal/cfg"
	"github.com/CognitionIES/teamsync/internal/metrics"
	"github.com/CognitionIES/teamsync/internal/registry"
	"github.com/CognitionIES/teamsync/internal/task"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open подключается к postgres и настраивает пул соединений
func Open(conf cfg.Config) (*gorm.DB, error) {
	level := logger.Warn
	if conf.LogLevel == "debug" {
		level = logger.Info
	}
	db, err := gorm.Open(postgres.Open(conf.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to init sql DB")
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// Models - все таблицы сервиса в порядке миграции
func Models() []interface{} {
	models := registry.Models()
	models = append(models, task.Models()...)
	return append(models, &metrics.DailyMetric{})
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return errors.Wrap(err, "auto migrate")
	}
	return nil
}
