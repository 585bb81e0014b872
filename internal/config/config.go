package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backend names accepted by COURSEWORK_STORAGE_BACKEND.
const (
	StorageDisk       = "disk"
	StorageCloudinary = "cloudinary"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	JWTSecret              string
	StorageBackend         string
	StorageDir             string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	UploadMaxMB            int
	AnalyticsWeeks         int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("COURSEWORK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Courseloop API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("storage.backend", StorageDisk)
	v.SetDefault("storage.dir", "data/blobs")
	v.SetDefault("cloudinary.folder", "courseloop/submissions")
	v.SetDefault("upload.max_mb", 10)
	v.SetDefault("analytics.weeks", 12)

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		StorageBackend:         strings.ToLower(v.GetString("storage.backend")),
		StorageDir:             v.GetString("storage.dir"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		UploadMaxMB:            v.GetInt("upload.max_mb"),
		AnalyticsWeeks:         v.GetInt("analytics.weeks"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	switch cfg.StorageBackend {
	case StorageDisk, StorageCloudinary:
	default:
		return Config{}, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	if cfg.UploadMaxMB <= 0 {
		cfg.UploadMaxMB = 10
	}

	if cfg.AnalyticsWeeks <= 0 {
		cfg.AnalyticsWeeks = 12
	}

	return cfg, nil
}
