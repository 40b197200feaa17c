package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/horizons-db/archive-backend/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
)

// Open connects to Postgres, registers read replicas and checks the
// connection. Extensions needed by the schema are created if missing.
func Open(s config.Settings) (*gorm.DB, error) {
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             10 * time.Second,
			LogLevel:                  gormLogLevel(s),
			IgnoreRecordNotFoundError: true,
			Colorful:                  s.Env == config.Dev,
		},
	)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  s.DSN(),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		PrepareStmt:    false,
		Logger:         newLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if len(s.ReplicaDSNs) > 0 {
		replicas := make([]gorm.Dialector, 0, len(s.ReplicaDSNs))
		for _, dsn := range s.ReplicaDSNs {
			replicas = append(replicas, postgres.New(postgres.Config{DSN: dsn, PreferSimpleProtocol: true}))
		}
		resolver := dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RandomPolicy{},
		}).
			SetMaxOpenConns(s.MaxOpenConns).
			SetMaxIdleConns(s.MaxIdleConns).
			SetConnMaxLifetime(time.Hour)
		if err := db.Use(resolver); err != nil {
			return nil, fmt.Errorf("register read replicas: %w", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(s.MaxOpenConns)
	sqlDB.SetMaxIdleConns(s.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error; err != nil {
		return nil, fmt.Errorf("enable pgcrypto extension: %w", err)
	}

	var result int
	if err := db.Raw("SELECT 1").Scan(&result).Error; err != nil {
		return nil, fmt.Errorf("test database connection: %w", err)
	}
	return db, nil
}

func gormLogLevel(s config.Settings) logger.LogLevel {
	if s.LogLevel == "trace" {
		return logger.Info
	}
	return logger.Warn
}
