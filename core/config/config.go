package config

import (
	"reflect"
	"strings"
	"time"

	"resource-store/core/cache"
	"resource-store/core/database"
	"resource-store/core/logger"
	"resource-store/core/payload"
	"resource-store/core/server"
	"resource-store/core/storage"
	"resource-store/feature/integrity"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Server holds configuration for the admin HTTP server.
	Server server.Config `mapstructure:"server"`
	// Storage holds configuration for the object store of offloaded payloads.
	Storage storage.Config `mapstructure:"storage"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database holds configuration for the database connection.
	Database database.Config `mapstructure:"database"`
	// Cache sizes the shared identity caches.
	Cache cache.Config `mapstructure:"cache"`
	// Payload controls payload compression and offloading.
	Payload payload.Config `mapstructure:"payload"`
	// Integrity configures offloaded payload checks.
	Integrity integrity.Config `mapstructure:"integrity"`
	// Engine tunes transactions, reindexing and erasing.
	Engine Engine `mapstructure:"engine"`
}

// Engine holds the settings of the persistence engine.
type Engine struct {
	// DeadlockRetries is how often a unit of work is repeated after a deadlock, lock
	// timeout or lost connection.
	DeadlockRetries int `mapstructure:"deadlock_retries" default:"3"`
	// RetryBackoff is the base delay between retries. It grows linearly per attempt.
	RetryBackoff time.Duration `mapstructure:"retry_backoff" default:"50ms"`
	// ReindexWorkers is the number of concurrent reindex workers.
	ReindexWorkers int `mapstructure:"reindex_workers" default:"4"`
	// ReindexOffsetRange is the initial range of the random reindex candidate offset.
	ReindexOffsetRange int `mapstructure:"reindex_offset_range" default:"1024"`
	// EraseUseProcedure erases whole resources with the erase_resource routine on
	// databases that have one.
	EraseUseProcedure bool `mapstructure:"erase_use_procedure" default:"true"`
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. DATABASE_DRIVER -> database.driver)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, field.Tag.Get("default"))
	}
}
