package db

import (
	"fmt"
	"time"

	"bloc-editor/internal/config"

	"github.com/rs/zerolog"
	"golang.org/x/xerrors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var AppDb *gorm.DB

func ConnectDb(log zerolog.Logger) error {
	dsn := fmt.Sprintf("host=%v user=%v password=%v dbname=%v port=%v sslmode=disable",
		config.AppConfig.DBHost,
		config.AppConfig.DBUser,
		config.AppConfig.DBPassword,
		config.AppConfig.DBName,
		config.AppConfig.DBPort,
	)

	level := logger.Info
	if config.AppConfig.Environment == "production" {
		level = logger.Error
	}
	gormLog := log.With().Str("component", "gorm").Logger()
	newLogger := logger.New(
		&gormLog,
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: newLogger, TranslateError: true})
	if err != nil {
		return xerrors.Errorf("connect to db: %w", err)
	}
	AppDb = db
	log.Info().Str("host", config.AppConfig.DBHost).Msg("connected to db")

	return nil
}

func CloseDb(log zerolog.Logger) {
	if AppDb == nil {
		return
	}
	sqlDB, err := AppDb.DB()
	if err == nil {
		err = sqlDB.Close()
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to close db")
		return
	}
	log.Info().Msg("closed db")
}
