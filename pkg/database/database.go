package database

import (
	"context"
	"enliven_backend/internal/config"
	"enliven_backend/internal/model"
	"enliven_backend/pkg/logger"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// InitDB 根据 driver 选择 mysql 或 sqlite
func InitDB(cfg *config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	dialector, err := openDialector(cfg)
	if err != nil {
		return nil, err
	}

	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Database connection established", zap.String("driver", cfg.Driver))
	return db, nil
}

func openDialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.DBName,
			cfg.Charset,
			cfg.ParseTime,
		)
		return mysql.Open(dsn), nil
	case "sqlite":
		if cfg.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		return sqlite.Open(cfg.Path), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Migrate 建表并写入徽章目录
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.Roadmap{},
		&model.CourseProgress{},
		&model.Badge{},
		&model.UserBadge{},
		&model.ProctorAttempt{},
		&model.ChatContext{},
		&model.ChatMessage{},
	)
	if err != nil {
		return err
	}
	logger.Log.Info("Database migration completed")

	badges := model.DefaultBadges()
	return db.WithContext(context.Background()).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&badges).Error
}

// NeedsMigration 核心表缺失时返回 true
func NeedsMigration(db *gorm.DB) bool {
	m := db.Migrator()
	return !m.HasTable(&model.User{}) ||
		!m.HasTable(&model.CourseProgress{}) ||
		!m.HasTable(&model.Badge{})
}
