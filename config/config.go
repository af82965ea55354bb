package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Document store.
	StoreBackend            string        `mapstructure:"STORE_BACKEND"`
	DatabaseURL             string        `mapstructure:"DATABASE_URL"`
	DatabaseName            string        `mapstructure:"DATABASE_NAME"`
	FirebaseCredentialsFile string        `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
	FirebaseProjectID       string        `mapstructure:"FIREBASE_PROJECT_ID"`
	StoreTimeout            time.Duration `mapstructure:"STORE_TIMEOUT"`

	// Locking.
	LockBackend string        `mapstructure:"LOCK_BACKEND"`
	LockTTL     time.Duration `mapstructure:"LOCK_TTL"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisLockDB   int    `mapstructure:"REDIS_LOCK_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	CacheEnabled bool          `mapstructure:"CACHE_ENABLED"`
	CacheBackend string        `mapstructure:"CACHE_BACKEND"`
	TourCacheTTL time.Duration `mapstructure:"TOUR_CACHE_TTL"`

	// Ratings.
	RatingMaxAttempts  int           `mapstructure:"RATING_MAX_ATTEMPTS"`
	RatingRetryBackoff time.Duration `mapstructure:"RATING_RETRY_BACKOFF"`

	// Bookings.
	BookingConfirmationEnabled bool `mapstructure:"BOOKING_CONFIRMATION_ENABLED"`

	// Identity.
	AuthProvider string `mapstructure:"AUTH_PROVIDER"`
	JWTSecret    string `mapstructure:"JWT_SECRET"`
	AdminToken   string `mapstructure:"ADMIN_TOKEN"`

	// Events and background work.
	KafkaBrokers  string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic    string `mapstructure:"KAFKA_TOPIC"`
	WorkerEnabled bool   `mapstructure:"WORKER_ENABLED"`
}

var AppConfig Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MAX_REQUESTS_PER_MIN", 100)

	v.SetDefault("STORE_BACKEND", "mongo")
	v.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	v.SetDefault("DATABASE_NAME", "tourbook")
	v.SetDefault("FIREBASE_CREDENTIALS_FILE", "")
	v.SetDefault("FIREBASE_PROJECT_ID", "")
	v.SetDefault("STORE_TIMEOUT", 5*time.Second)

	v.SetDefault("LOCK_BACKEND", "memory")
	v.SetDefault("LOCK_TTL", 30*time.Second)

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_CACHE_DB", 0)
	v.SetDefault("REDIS_LOCK_DB", 1)
	v.SetDefault("REDIS_QUEUE_DB", 2)
	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("CACHE_BACKEND", "redis")
	v.SetDefault("TOUR_CACHE_TTL", 5*time.Minute)

	v.SetDefault("RATING_MAX_ATTEMPTS", 3)
	v.SetDefault("RATING_RETRY_BACKOFF", 50*time.Millisecond)

	v.SetDefault("BOOKING_CONFIRMATION_ENABLED", false)

	v.SetDefault("AUTH_PROVIDER", "jwt")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("ADMIN_TOKEN", "")

	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "tourbook.events")
	v.SetDefault("WORKER_ENABLED", false)
}

// Load reads configuration from defaults, an optional config.yaml and the environment.
func Load(v *viper.Viper) (Config, error) {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	// Automatically use environment variables where available.
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
		log.Println("No config file found, using environment variables only")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.RatingMaxAttempts < 1 {
		cfg.RatingMaxAttempts = 1
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	// A booking holds its lock across three store calls.
	if c.LockBackend == "redis" && c.LockTTL <= 3*c.StoreTimeout {
		return fmt.Errorf("LOCK_TTL (%s) must be greater than 3 x STORE_TIMEOUT (%s) with LOCK_BACKEND=redis", c.LockTTL, c.StoreTimeout)
	}
	switch c.CacheBackend {
	case "redis", "memory":
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend)
	}
	return nil
}

// LoadConfig populates AppConfig from the global viper instance.
func LoadConfig() {
	cfg, err := Load(viper.GetViper())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	AppConfig = cfg
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
