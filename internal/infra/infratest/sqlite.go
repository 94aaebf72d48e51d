// Package infratest opens throwaway databases for package tests.
package infratest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"salon/internal/infra"
)

// NewDB returns a migrated in-memory sqlite database private to t.
// A single connection serializes writers the way row locks do on postgres.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	return NewDBWithLogger(t, zap.NewNop())
}

// NewDBWithLogger is NewDB with gorm's statement log routed to log.
func NewDBWithLogger(t *testing.T, log *zap.Logger) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	cfg, err := infra.GormConfig(log)
	require.NoError(t, err)

	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, infra.Migrate(db))

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}
