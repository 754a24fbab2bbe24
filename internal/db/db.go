package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	_ "modernc.org/sqlite"
)

const (
	DriverSQLite     = "sqlite"
	DriverSQLitePure = "sqlite-pure"
	DriverPostgres   = "postgres"
)

// Open 建立数据库连接并执行自动迁移。
// driver 支持 sqlite（cgo）、sqlite-pure（modernc，无需 cgo）与 postgres。
func Open(driver, dsn string, debug bool) (*gorm.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = "kaedefolio.db"
	}

	logLevel := logger.Warn
	if debug {
		logLevel = logger.Info
	}
	gormConfig := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	var (
		gdb *gorm.DB
		err error
	)
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverSQLite:
		if err := ensureParentDir(dsn); err != nil {
			return nil, err
		}
		gdb, err = gorm.Open(sqlite.Open(dsn), gormConfig)
	case DriverSQLitePure:
		if err := ensureParentDir(dsn); err != nil {
			return nil, err
		}
		gdb, err = openPureSQLite(dsn, gormConfig)
	case DriverPostgres:
		gdb, err = gorm.Open(postgres.Open(dsn), gormConfig)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := Migrate(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}

// Migrate creates the tables used by the service.
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(&User{}, &AuthSession{}, &Portfolio{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func openPureSQLite(dsn string, gormConfig *gorm.Config) (*gorm.DB, error) {
	if !strings.Contains(dsn, "?") && !strings.HasPrefix(dsn, "file:") {
		dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// modernc sqlite 只支持单写者
	sqlDB.SetMaxOpenConns(1)

	return gorm.Open(sqlite.Dialector{Conn: sqlDB}, gormConfig)
}

func ensureParentDir(path string) error {
	if strings.HasPrefix(path, "file:") || path == ":memory:" {
		return nil
	}
	if idx := strings.Index(path, "?"); idx >= 0 {
		path = path[:idx]
	}

	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
