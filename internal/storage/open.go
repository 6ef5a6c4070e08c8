package storage

import (
	"fmt"
	"strings"
)

// Supported backend drivers
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open creates the backend named by driver. dsn is a Redis URL, a Postgres URL or a
// SQLite file path depending on the driver; it is ignored for memory.
func Open(driver, dsn string) (Backend, error) {
	switch strings.ToLower(driver) {
	case DriverMemory, "":
		return NewMemoryBackend(), nil
	case DriverRedis:
		return NewRedisBackend(dsn)
	case DriverPostgres, "postgresql":
		return NewPostgresBackend(dsn)
	case DriverSQLite, "sqlite3":
		return NewSQLiteBackend(dsn)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", driver)
	}
}
