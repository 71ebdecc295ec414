package logger

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
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGormLogger(debug bool) (*GormLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewGormLogger(NewGormLoggerConfig(debug))
	l.base = func(context.Context) *zap.Logger { return zap.New(core) }
	return l, logs
}

func TestDescribeSQL(t *testing.T) {
	cases := []struct {
		sql       string
		operation string
		table     string
	}{
		{"SELECT id FROM subscriptions WHERE user_id IN (?)", "SELECT", "subscriptions"},
		{"INSERT INTO `orders` (`id`) VALUES (?)", "INSERT", "orders"},
		{`UPDATE "subscriptions" SET status = ?`, "UPDATE", "subscriptions"},
		{"WITH x AS (SELECT 1) DELETE FROM users", "SELECT", "users"},
		{"", "UNKNOWN", ""},
	}
	for _, tc := range cases {
		operation, table := describeSQL(tc.sql)
		assert.Equal(t, tc.operation, operation, tc.sql)
		assert.Equal(t, tc.table, table, tc.sql)
	}
}

func TestGormLoggerTrace(t *testing.T) {
	query := func() (string, int64) { return "SELECT * FROM subscriptions", 1 }

	t.Run("record not found is silent", func(t *testing.T) {
		l, logs := newObservedGormLogger(false)
		l.Trace(context.Background(), time.Now(), query, gormlogger.ErrRecordNotFound)
		assert.Equal(t, 0, logs.Len())
	})

	t.Run("errors are logged with the table", func(t *testing.T) {
		l, logs := newObservedGormLogger(false)
		l.Trace(context.Background(), time.Now(), query, errors.New("boom"))
		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, zapcore.ErrorLevel, entry.Level)
		assert.Equal(t, "subscriptions", entry.ContextMap()["table"])
	})

	t.Run("slow queries warn", func(t *testing.T) {
		l, logs := newObservedGormLogger(false)
		l.Trace(context.Background(), time.Now().Add(-time.Second), query, nil)
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
	})

	t.Run("fast queries only in debug", func(t *testing.T) {
		l, logs := newObservedGormLogger(false)
		l.Trace(context.Background(), time.Now(), query, nil)
		assert.Equal(t, 0, logs.Len())

		l, logs = newObservedGormLogger(true)
		l.Trace(context.Background(), time.Now(), query, nil)
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, zapcore.DebugLevel, logs.All()[0].Level)
	})

	t.Run("silent mode", func(t *testing.T) {
		l, logs := newObservedGormLogger(true)
		l.LogMode(gormlogger.Silent).Trace(context.Background(), time.Now(), query, errors.New("boom"))
		assert.Equal(t, 0, logs.Len())
	})
}

func TestGormLoggerParamsFilter(t *testing.T) {
	l := NewGormLogger(NewGormLoggerConfig(false))
	sql, params := l.ParamsFilter(context.Background(), "SELECT ?", "txn_1")
	assert.Equal(t, "SELECT ?", sql)
	assert.Nil(t, params)
}
