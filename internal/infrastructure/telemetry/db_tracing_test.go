package telemetry

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTracingTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       conn,
		DriverName: "postgres",
	}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return db
}

func TestRegisterDBTracingDisabled(t *testing.T) {
	db := newTracingTestDB(t)

	require.NoError(t, RegisterDBTracing(db, DBTracingConfig{Enabled: false}, zap.NewNop()))
	require.Nil(t, db.Callback().Query().Get("db_tracing:after_query"))
}

func TestRegisterDBTracingEnabled(t *testing.T) {
	db := newTracingTestDB(t)

	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true
	cfg.DBName = "restopos"
	require.NoError(t, RegisterDBTracing(db, cfg, zap.NewNop()))

	require.NotNil(t, db.Callback().Create().Get("db_tracing:before_create"))
	require.NotNil(t, db.Callback().Query().Get("db_tracing:after_query"))
	require.NotNil(t, db.Callback().Raw().Get("db_tracing:after_raw"))
}
