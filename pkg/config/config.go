// Package config defines the resolved service configuration for Polybase.
// A ServiceConfig is a closed, validated settings variant keyed by driver
// name: exactly one driver settings block must be present, and it is checked
// at resolution time rather than at first use. A ServiceConfig is immutable
// once resolved.
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/snowflakedb/gosnowflake"
)

// Supported driver names. The driver name doubles as the dialect name.
const (
	DriverSQLite    = "sqlite3"
	DriverMySQL     = "mysql"
	DriverPostgres  = "postgres"
	DriverSnowflake = "snowflake"
)

// ServiceType values recognized by the resolver.
const (
	ServiceTypeDatabase = "database"
)

// ServiceConfig is the resolved configuration for one logical service.
// Identity key is (ServiceType, ServiceName, Version).
type ServiceConfig struct {
	ServiceType string `yaml:"service_type" json:"service_type"`
	ServiceName string `yaml:"service_name" json:"service_name"`
	Version     string `yaml:"version" json:"version"`

	// Driver selects which settings block below applies
	Driver string `yaml:"driver" json:"driver"`

	SQLite    *SQLiteSettings    `yaml:"sqlite,omitempty" json:"sqlite,omitempty"`
	MySQL     *MySQLSettings     `yaml:"mysql,omitempty" json:"mysql,omitempty"`
	Postgres  *PostgresSettings  `yaml:"postgres,omitempty" json:"postgres,omitempty"`
	Snowflake *SnowflakeSettings `yaml:"snowflake,omitempty" json:"snowflake,omitempty"`

	Pool PoolSettings `yaml:"pool" json:"pool"`
}

// SQLiteSettings configures the embedded file-backed engine.
type SQLiteSettings struct {
	// Path to the database file
	Path string `yaml:"path" json:"path"`
	// BusyTimeout passed to the driver, milliseconds
	BusyTimeout int `yaml:"busy_timeout" json:"busy_timeout"`
	// JournalMode defaults to WAL
	JournalMode string `yaml:"journal_mode" json:"journal_mode"`
}

// MySQLSettings configures a network MySQL service.
type MySQLSettings struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"password"`
	Database string `yaml:"database" json:"database"`
}

// PostgresSettings configures a network PostgreSQL service.
type PostgresSettings struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"password"`
	Database string `yaml:"database" json:"database"`
	SSLMode  string `yaml:"ssl_mode" json:"ssl_mode"`
}

// SnowflakeSettings configures a Snowflake service.
type SnowflakeSettings struct {
	Account   string `yaml:"account" json:"account"`
	User      string `yaml:"user" json:"user"`
	Password  string `yaml:"password" json:"password"`
	Database  string `yaml:"database" json:"database"`
	Schema    string `yaml:"schema" json:"schema"`
	Warehouse string `yaml:"warehouse" json:"warehouse"`
}

// PoolSettings bounds the connection pool for this service.
type PoolSettings struct {
	// MaxSize caps live connections; 0 selects the per-driver default
	MaxSize int `yaml:"max_size" json:"max_size"`
	// AcquireTimeout bounds how long a checkout may block
	AcquireTimeout time.Duration `yaml:"acquire_timeout" json:"acquire_timeout"`
}

// Key returns the identity key for this configuration.
func (c *ServiceConfig) Key() string {
	return c.ServiceType + ":" + c.ServiceName + ":" + c.Version
}

// Validate checks that exactly the settings block matching Driver is present
// and complete. It is called at resolution time so that missing or invalid
// keys fail before any connection attempt.
func (c *ServiceConfig) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if c.Version == "" {
		return fmt.Errorf("version is required")
	}

	switch c.Driver {
	case DriverSQLite:
		if c.SQLite == nil {
			return fmt.Errorf("driver %s requires a sqlite settings block", c.Driver)
		}
		if c.SQLite.Path == "" {
			return fmt.Errorf("sqlite.path is required")
		}
	case DriverMySQL:
		if c.MySQL == nil {
			return fmt.Errorf("driver %s requires a mysql settings block", c.Driver)
		}
		if c.MySQL.Host == "" || c.MySQL.Database == "" {
			return fmt.Errorf("mysql.host and mysql.database are required")
		}
	case DriverPostgres:
		if c.Postgres == nil {
			return fmt.Errorf("driver %s requires a postgres settings block", c.Driver)
		}
		if c.Postgres.Host == "" || c.Postgres.Database == "" {
			return fmt.Errorf("postgres.host and postgres.database are required")
		}
	case DriverSnowflake:
		if c.Snowflake == nil {
			return fmt.Errorf("driver %s requires a snowflake settings block", c.Driver)
		}
		if c.Snowflake.Account == "" || c.Snowflake.User == "" {
			return fmt.Errorf("snowflake.account and snowflake.user are required")
		}
	case "":
		return fmt.Errorf("driver is required")
	default:
		return fmt.Errorf("unsupported driver: %s", c.Driver)
	}

	if c.Pool.MaxSize < 0 {
		return fmt.Errorf("pool.max_size cannot be negative")
	}
	return nil
}

// MaxPoolSize returns the configured pool bound, falling back to the
// per-driver default: 5 for the embedded engine, 10 for network databases.
func (c *ServiceConfig) MaxPoolSize() int {
	if c.Pool.MaxSize > 0 {
		return c.Pool.MaxSize
	}
	if c.Driver == DriverSQLite {
		return 5
	}
	return 10
}

// AcquireTimeout returns the configured checkout timeout, defaulting to 5s.
func (c *ServiceConfig) AcquireTimeout() time.Duration {
	if c.Pool.AcquireTimeout > 0 {
		return c.Pool.AcquireTimeout
	}
	return 5 * time.Second
}

// DSN renders the driver-specific connection string.
func (c *ServiceConfig) DSN() (string, error) {
	switch c.Driver {
	case DriverSQLite:
		s := c.SQLite
		journal := s.JournalMode
		if journal == "" {
			journal = "WAL"
		}
		busy := s.BusyTimeout
		if busy <= 0 {
			busy = 5000
		}
		return fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=%s", s.Path, busy, journal), nil

	case DriverMySQL:
		s := c.MySQL
		port := s.Port
		if port == 0 {
			port = 3306
		}
		mc := mysql.NewConfig()
		mc.User = s.User
		mc.Passwd = s.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(s.Host, strconv.Itoa(port))
		mc.DBName = s.Database
		mc.ParseTime = true
		return mc.FormatDSN(), nil

	case DriverPostgres:
		s := c.Postgres
		port := s.Port
		if port == 0 {
			port = 5432
		}
		sslMode := s.SSLMode
		if sslMode == "" {
			sslMode = "prefer"
		}
		return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s",
			s.User, s.Password, net.JoinHostPort(s.Host, strconv.Itoa(port)), s.Database, sslMode), nil

	case DriverSnowflake:
		s := c.Snowflake
		return gosnowflake.DSN(&gosnowflake.Config{
			Account:   s.Account,
			User:      s.User,
			Password:  s.Password,
			Database:  s.Database,
			Schema:    s.Schema,
			Warehouse: s.Warehouse,
		})

	default:
		return "", fmt.Errorf("unsupported driver: %s", c.Driver)
	}
}
