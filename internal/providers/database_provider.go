package providers

import (
	"ecgd/internal/models"
	"ecgd/internal/structures"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// gormWriter sends GORM's log lines to the db channel.
type gormWriter struct {
	logger Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.logger.Infof(TypeDb, format, args...)
}

func newGormLogger(conf *structures.Config, logger Logger) gormlogger.Interface {
	level := gormlogger.Warn
	if conf.Debug {
		level = gormlogger.Info
	}
	return gormlogger.New(gormWriter{logger: logger}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

func dialector(conf *structures.DatabaseConfig) (gorm.Dialector, error) {
	switch conf.Driver {
	case "sqlite":
		if dir := filepath.Dir(conf.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database dir: %w", err)
			}
		}
		return sqlite.Open(conf.Path), nil
	case "mysql":
		return mysql.Open(conf.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", conf.Driver)
	}
}

// NewDatabaseProvider opens the configured database. The cleanup function
// closes the underlying connection pool.
func NewDatabaseProvider(conf *structures.Config, logger Logger) (*gorm.DB, func(), error) {
	d, err := dialector(&conf.Database)
	if err != nil {
		return nil, nil, err
	}

	db, err := gorm.Open(d, models.GormConfig(newGormLogger(conf, logger)))
	if err != nil {
		return nil, nil, fmt.Errorf("open %s database: %w", conf.Database.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("database handle: %w", err)
	}
	if conf.Database.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(conf.Database.MaxOpenConns)
	}
	if conf.Database.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(conf.Database.MaxIdleConns)
	}

	logger.Infof(TypeDb, "Database opened: driver=%s", conf.Database.Driver)

	cleanup := func() {
		if err := sqlDB.Close(); err != nil {
			logger.Errorf(TypeDb, "Failed to close database: %v", err)
		}
	}
	return db, cleanup, nil
}
