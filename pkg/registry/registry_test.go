package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/polybase/pkg/config"
	"github.com/ajitpratap0/polybase/pkg/errors"
)

func validConfig(name string) *config.ServiceConfig {
	return &config.ServiceConfig{
		ServiceType: config.ServiceTypeDatabase,
		ServiceName: name,
		Version:     "1.0",
		Driver:      config.DriverSQLite,
		SQLite:      &config.SQLiteSettings{Path: "/tmp/" + name + ".db"},
	}
}

func TestRegisterAndResolve(t *testing.T) {
	r := NewStatic()
	require.NoError(t, r.Register(validConfig("inventory")))

	cfg, err := r.Resolve(config.ServiceTypeDatabase, "inventory", "1.0")
	require.NoError(t, err)
	assert.Equal(t, "inventory", cfg.ServiceName)
	assert.Equal(t, config.DriverSQLite, cfg.Driver)
}

func TestResolveNotFound(t *testing.T) {
	r := NewStatic()
	require.NoError(t, r.Register(validConfig("inventory")))

	tests := []struct {
		serviceType, name, version string
	}{
		{config.ServiceTypeDatabase, "missing", "1.0"},
		{config.ServiceTypeDatabase, "inventory", "2.0"},
		{"cache", "inventory", "1.0"},
	}

	for _, tt := range tests {
		_, err := r.Resolve(tt.serviceType, tt.name, tt.version)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfigNotFound),
			"%s/%s/%s should be config_not_found", tt.serviceType, tt.name, tt.version)
	}
}

func TestRegisterRejectsInvalidConfig(t *testing.T) {
	r := NewStatic()
	cfg := validConfig("broken")
	cfg.SQLite = nil

	err := r.Register(cfg)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	r := NewStatic()
	require.NoError(t, r.Register(validConfig("inventory")))
	assert.Error(t, r.Register(validConfig("inventory")))
}

func TestRegisterAllowsDistinctVersions(t *testing.T) {
	r := NewStatic()
	require.NoError(t, r.Register(validConfig("inventory")))

	v2 := validConfig("inventory")
	v2.Version = "2.0"
	require.NoError(t, r.Register(v2))

	assert.Len(t, r.List(), 2)
}

func TestLoadFile(t *testing.T) {
	t.Setenv("ORDERS_DB_PASSWORD", "hunter2")

	catalog := `services:
  - service_name: inventory
    version: "1.0"
    driver: sqlite3
    sqlite:
      path: /tmp/inventory.db
  - service_name: orders
    version: "1.0"
    driver: mysql
    mysql:
      host: db.internal
      user: app
      password: ${ORDERS_DB_PASSWORD}
      database: orders
    pool:
      max_size: 4
`
	path := filepath.Join(t.TempDir(), "services.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalog), 0600))

	r, err := LoadFile(path)
	require.NoError(t, err)

	// service_type defaults to database when the catalog omits it.
	inv, err := r.Resolve(config.ServiceTypeDatabase, "inventory", "1.0")
	require.NoError(t, err)
	assert.Equal(t, config.DriverSQLite, inv.Driver)

	orders, err := r.Resolve(config.ServiceTypeDatabase, "orders", "1.0")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", orders.MySQL.Password)
	assert.Equal(t, 4, orders.MaxPoolSize())
}

func TestLoadFileRejectsInvalidEntry(t *testing.T) {
	catalog := `services:
  - service_name: broken
    version: "1.0"
    driver: sqlite3
`
	path := filepath.Join(t.TempDir(), "services.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalog), 0600))

	_, err := LoadFile(path)
	require.Error(t, err)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile("/nonexistent/services.yaml")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}
