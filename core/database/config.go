package database

import "time"

// Config holds configuration for the database connection.
type Config struct {
	// Host is the database host.
	Host string `mapstructure:"host" default:"localhost"`
	// Port is the database port.
	Port int `mapstructure:"port" default:"5432"`
	// User is the database user.
	User string `mapstructure:"user" default:"fhirserver"`
	// Password is the database password.
	Password string `mapstructure:"password" default:""`
	// Name is the database name (or the file path for sqlite).
	Name string `mapstructure:"name" default:"fhirdb"`
	// Driver is the database driver (postgres, mysql, sqlite).
	Driver string `mapstructure:"driver" default:"postgres"`
	// TimeoutSeconds bounds connection setup and the initial ping.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// MaxOpenConns bounds the pool. Every worker holds one connection per transaction.
	MaxOpenConns int `mapstructure:"max_open_conns" default:"100"`
	// MaxIdleConns is the number of idle connections kept in the pool.
	MaxIdleConns int `mapstructure:"max_idle_conns" default:"10"`
	// ConnMaxLifetime recycles pooled connections.
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" default:"1h"`
	// ResourceTypes lists the resource types whose per-type tables are managed.
	ResourceTypes []string `mapstructure:"resource_types" default:"Patient,Observation,Encounter,Condition,Practitioner,Organization"`
	// AutoMigrate creates missing tables at startup (development only).
	AutoMigrate bool `mapstructure:"auto_migrate" default:"false"`
}
