package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valora/internal/config"
	"valora/internal/logger"
	"valora/internal/models"
)

func init() {
	logger.Init("test")
}

func TestConfig(t *testing.T) {
	cfg := NewConfig(&config.Config{
		DBDriver: "postgres", DBHost: "db", DBPort: "5433", DBUser: "u", DBPassword: "p", DBName: "valora", DBSSLMode: "disable",
	})

	assert.Equal(t, "host=db port=5433 user=u password=p dbname=valora sslmode=disable", cfg.DSN())
	assert.Equal(t, "postgres://u:p@db:5433/valora?sslmode=disable", cfg.MigrateURL())
	assert.NoError(t, cfg.Validate())

	cfg.Driver = "mysql"
	assert.Error(t, cfg.Validate())
}

func TestManager_SQLiteAutoMigrates(t *testing.T) {
	cfg := &Config{Driver: DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "valora.db")}

	m, err := NewManager(cfg)
	require.NoError(t, err)
	defer func() { _ = m.Close() }()

	require.NoError(t, m.RunMigrations())
	for _, model := range models.All() {
		assert.True(t, m.DB().Migrator().HasTable(model), "missing table for %T", model)
	}

	// Re-running is a no-op.
	require.NoError(t, m.RunMigrations())
}

func TestNewMigrate_RejectsSQLite(t *testing.T) {
	_, err := NewMigrate(&Config{Driver: DriverSQLite})
	assert.Error(t, err)
}
