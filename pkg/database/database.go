package database

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/d60-Lab/blogapi/config"
	"github.com/d60-Lab/blogapi/internal/model"
)

// InitDB 根据配置打开数据库，注册只读副本与链路追踪插件，并按需迁移
func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dc := cfg.Database
	db, err := gorm.Open(dialector(dc.Driver, dc.DSN), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logLevel(dc.LogLevel)),
		DisableForeignKeyConstraintWhenMigrating: dc.Driver == "sqlite",
		NowFunc:                                  func() time.Time { return time.Now().UTC() },
		TranslateError:                           true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dc.Driver, err)
	}

	if len(dc.Replicas) > 0 {
		replicas := make([]gorm.Dialector, 0, len(dc.Replicas))
		for _, dsn := range dc.Replicas {
			replicas = append(replicas, dialector(dc.Driver, dsn))
		}
		if err := db.Use(dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RandomPolicy{},
		})); err != nil {
			return nil, fmt.Errorf("register replicas: %w", err)
		}
	}

	if cfg.Tracing.Enabled {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return nil, fmt.Errorf("register tracing plugin: %w", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if dc.Driver == "sqlite" {
		// SQLite 只有一个写者，单连接避免 database is locked
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(dc.MaxOpenConns)
		sqlDB.SetMaxIdleConns(dc.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(dc.ConnMaxLifetime)
	}

	if dc.AutoMigrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// Migrate 创建或更新全部表结构
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Close 关闭底层连接池
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dialector(driver, dsn string) gorm.Dialector {
	if driver == "postgres" {
		return postgres.Open(dsn)
	}
	return sqlite.Open(dsn)
}

func logLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
