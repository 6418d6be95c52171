package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"barber-growth-backend/config"
	"barber-growth-backend/internal/model"
)

func TestDialector(t *testing.T) {
	assert.Equal(t, "sqlite", Dialector("sqlite::memory:").Name())
	assert.Equal(t, "sqlite", Dialector("file:growth.db?cache=shared").Name())
	assert.Equal(t, "postgres", Dialector("postgres://growth@localhost:5432/growth").Name())
}

func TestInit_SQLiteMigrates(t *testing.T) {
	cfg := &config.DatabaseConfig{
		DSN:          "file:db_init_test?mode=memory&cache=shared",
		MaxOpenConns: 1,
		AutoMigrate:  true,
	}
	gdb, err := Init(cfg, zap.NewNop(), "info")
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	for _, table := range []any{&model.Tenant{}, &model.EmptySlot{}, &model.MoneyLostAlert{}, &model.PushSubscription{}} {
		assert.True(t, gdb.Migrator().HasTable(table))
	}
}

func TestGormLogLevel(t *testing.T) {
	assert.Equal(t, logger.Info, gormLogLevel("DEBUG"))
	assert.Equal(t, logger.Warn, gormLogLevel("info"))
	assert.Equal(t, logger.Error, gormLogLevel("error"))
}

func TestGormLogger_Trace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := newGormLogger(zap.New(core), logger.Warn)
	query := func() (string, int64) { return "SELECT * FROM tenants", 0 }

	l.Trace(context.Background(), time.Now(), query, errors.New("no such table: tenants"))
	l.Trace(context.Background(), time.Now(), query, gorm.ErrRecordNotFound)
	l.Trace(context.Background(), time.Now().Add(-time.Second), query, nil)
	l.Trace(context.Background(), time.Now(), query, nil)

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "SELECT * FROM tenants", entries[0].ContextMap()["sql"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "slow query", entries[1].Message)

	logs.TakeAll()
	l.LogMode(logger.Silent).Trace(context.Background(), time.Now(), query, errors.New("boom"))
	assert.Zero(t, logs.Len())

	l.LogMode(logger.Info).Trace(context.Background(), time.Now(), query, nil)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.DebugLevel, logs.All()[0].Level)
}

func TestInit_LogsThroughZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cfg := &config.DatabaseConfig{
		DSN:          "file:db_logger_test?mode=memory&cache=shared",
		MaxOpenConns: 1,
	}
	gdb, err := Init(cfg, zap.New(core), "error")
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	require.Error(t, gdb.Exec("SELECT * FROM missing_table").Error)

	failed := logs.FilterMessage("query failed").Filter(func(e observer.LoggedEntry) bool {
		return e.LoggerName == "gorm"
	}).All()
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].ContextMap()["sql"], "missing_table")
}
