// Package dbtest opens throwaway in-memory stores for tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"supplyline-sync/config"
	"supplyline-sync/internal/db"
)

// New returns a migrated in-memory sqlite database private to t.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	gormDB, err := db.Open(Config(t))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB, "sqlite"))

	t.Cleanup(func() {
		sqlDB, err := gormDB.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return gormDB
}

// Config returns the database settings New uses.
func Config(t testing.TB) *config.DatabaseConfig {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return &config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		LogLevel:     "silent",
	}
}
