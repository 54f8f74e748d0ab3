package db

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utleieskade/backend/internal/config"
	"github.com/utleieskade/backend/internal/logger"
	"github.com/utleieskade/backend/internal/models"
)

func TestDSN(t *testing.T) {
	cfg := config.DatabaseConfig{
		Dialect: "postgres", Host: "db", Port: "5432", User: "u", Password: "p", Name: "skade", SSLMode: "disable",
	}
	assert.Equal(t, "host=db user=u password=p dbname=skade port=5432 sslmode=disable", DSN(cfg))

	cfg.Dialect = "mysql"
	cfg.Port = "3306"
	assert.Equal(t, "u:p@tcp(db:3306)/skade?charset=utf8mb4&parseTime=True&loc=UTC", DSN(cfg))

	assert.Equal(t, "file::memory:?cache=shared", DSN(config.DatabaseConfig{Dialect: "sqlite"}))
}

func TestOpenAndMigrateSQLite(t *testing.T) {
	database, err := Open(config.DatabaseConfig{Dialect: "sqlite", Name: "file:conn_test?mode=memory&cache=shared"})
	require.NoError(t, err)
	assert.False(t, database.Ready())

	require.NoError(t, database.WaitReady(context.Background()))
	assert.True(t, database.Ready())

	require.NoError(t, AutoMigrate(database.DB))
	assert.True(t, database.DB.Migrator().HasTable("cases"))
	assert.True(t, database.DB.Migrator().HasTable("inspector_expertises"))
}

func TestQueryLogging_SkipsRecordNotFound(t *testing.T) {
	var buf bytes.Buffer
	logger.GetLogger().SetOutput(&buf)
	t.Cleanup(func() { logger.GetLogger().SetOutput(os.Stdout) })

	database, err := Open(config.DatabaseConfig{Dialect: "sqlite", Name: "file:log_test?mode=memory&cache=shared"})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(database.DB))
	buf.Reset()

	var settings models.PlatformSettings
	err = database.DB.First(&settings, "id = ?", "missing").Error
	require.Error(t, err)
	assert.NotContains(t, buf.String(), "record not found")

	err = database.DB.Exec("SELECT * FROM no_such_table").Error
	require.Error(t, err)
	assert.Contains(t, buf.String(), "no_such_table")
}
