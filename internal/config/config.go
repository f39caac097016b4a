package config

import (
	"os"
	"strings"
	"time"
)

type Config struct {
	Environment string // ENV: production, development, etc.
	Port        string

	AuthAPIURL         string
	ReadingsAPIURL     string
	HTTPTimeout        time.Duration
	PollInterval       time.Duration
	RefreshMinInterval time.Duration

	StoreBackend    string // file, redis or postgres
	StorePath       string
	StorePassphrase string // encrypts the file store when set
	RedisURI        string
	PostgresURI     string

	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	MQTTBroker   string // empty disables the republisher
	MQTTClientID string

	AllowedOrigins []string // CORS: origins of the UI shell
}

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:8081", "http://localhost:19006"}
	}

	return &Config{
		Environment:         env,
		Port:                getEnv("PORT", "7420"),
		AuthAPIURL:          strings.TrimRight(getEnv("AUTH_API_URL", "http://localhost:3000"), "/"),
		ReadingsAPIURL:      strings.TrimRight(getEnv("READINGS_API_URL", "http://localhost:3000"), "/"),
		HTTPTimeout:         getDuration("HTTP_TIMEOUT", 15*time.Second),
		PollInterval:        getDuration("POLL_INTERVAL", 30*time.Second),
		RefreshMinInterval:  getDuration("REFRESH_MIN_INTERVAL", 5*time.Second),
		StoreBackend:        strings.ToLower(getEnv("STORE_BACKEND", "file")),
		StorePath:           getEnv("STORE_PATH", "companion-store.json"),
		StorePassphrase:     getEnv("STORE_PASSPHRASE", ""),
		RedisURI:            getEnv("REDIS_URI", "redis://localhost:6379/0"),
		PostgresURI:         getEnv("POSTGRES_URI", "postgres://localhost:5432/lumofit?sslmode=disable"),
		CloudinaryName:      getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		MQTTBroker:          getEnv("MQTT_BROKER", ""),
		MQTTClientID:        getEnv("MQTT_CLIENT_ID", "lumofit-companion"),
		AllowedOrigins:      allowedOrigins,
	}
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

// AvatarUploadEnabled reports whether all Cloudinary credentials are set
func (c *Config) AvatarUploadEnabled() bool {
	return c.CloudinaryName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration accepts Go durations ("30s") or a bare number of seconds
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if d, err := time.ParseDuration(value + "s"); err == nil && d > 0 {
		return d
	}
	return defaultValue
}
