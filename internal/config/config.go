// Package config loads runtime configuration from environment
// variables. Required variables halt startup when missing; tuning
// knobs fall back to defaults.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values. Each field maps to
// one environment variable.
type Config struct {
	Env           string        // application environment (dev/test/prod)
	Port          string        // HTTP port to listen on
	DBUser        string        // database username
	DBPass        string        // database password (optional)
	DBHost        string        // database host address
	DBPort        string        // database port number
	DBName        string        // database name
	JWTSecret     string        // secret used to sign JWTs
	AccessTTLMin  int           // access token time-to-live in minutes
	SweepInterval time.Duration // how often the cleanup sweeper runs
	AMQPURL       string        // RabbitMQ connection URL (empty disables the activity queue)
	ActivityQueue string        // queue name for registration activity events
	ActivityLog   string        // file the activity consumer appends to
}

// Load reads configuration from the environment. Missing required
// variables are fatal.
func Load() Config {
	return Config{
		Env:           must("APP_ENV"),
		Port:          must("APP_PORT"),
		DBUser:        must("DB_USER"),
		DBPass:        os.Getenv("DB_PASS"),
		DBHost:        must("DB_HOST"),
		DBPort:        must("DB_PORT"),
		DBName:        must("DB_NAME"),
		JWTSecret:     must("JWT_SECRET"),
		AccessTTLMin:  mustInt("ACCESS_TOKEN_TTL_MIN"),
		SweepInterval: envDur("SWEEP_INTERVAL", time.Minute),
		AMQPURL:       os.Getenv("AMQP_URL"),
		ActivityQueue: envStr("ACTIVITY_QUEUE", "registration.activity"),
		ActivityLog:   envStr("ACTIVITY_LOG", "logs/registration.log"),
	}
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is must() with integer conversion.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
