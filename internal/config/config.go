// Package config loads configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/sharingconfigs/sharingconfigs/pkg/client"
)

// Config holds client and reference server configuration.
type Config struct {
	// Remote folder service
	APIEndpoint string
	Label       string
	APIKey      string
	AuthScheme  string
	Timeout     time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// Reference server
	ListenAddr     string
	MetricsAddr    string
	PublicURL      string
	FolderTreeFile string

	// Storage backend ("memory", "local" or "s3")
	StorageBackend   string
	LocalStoragePath string
	S3Endpoint       string
	S3Bucket         string
	S3AccessKey      string
	S3SecretKey      string
	S3Region         string
}

// LoadDotEnv loads variables from .env style files into the environment
// without overriding variables that are already set. Missing files are
// ignored; with no paths, ".env" in the working directory is tried.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		APIEndpoint:      envOr("SHARING_CONFIGS_API_ENDPOINT", ""),
		Label:            envOr("SHARING_CONFIGS_LABEL", ""),
		APIKey:           envOr("SHARING_CONFIGS_API_KEY", ""),
		AuthScheme:       envOr("SHARING_CONFIGS_AUTH_SCHEME", client.DefaultAuthScheme),
		Timeout:          envDuration("SHARING_CONFIGS_TIMEOUT", client.DefaultTimeout),
		LogLevel:         envOr("LOG_LEVEL", "info"),
		LogFormat:        envOr("LOG_FORMAT", "console"),
		ListenAddr:       envOr("LISTEN_ADDR", ":8080"),
		MetricsAddr:      envOr("METRICS_ADDR", ":9090"),
		PublicURL:        envOr("PUBLIC_URL", "http://localhost:8080"),
		FolderTreeFile:   envOr("FOLDER_TREE_FILE", ""),
		StorageBackend:   envOr("STORAGE_BACKEND", "memory"),
		LocalStoragePath: envOr("LOCAL_STORAGE_PATH", "./data"),
		S3Endpoint:       envOr("S3_ENDPOINT", "http://localhost:9000"),
		S3Bucket:         envOr("S3_BUCKET", "sharingconfigs"),
		S3AccessKey:      envOr("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:      envOr("S3_SECRET_KEY", "minioadmin"),
		S3Region:         envOr("S3_REGION", "us-east-1"),
	}
}

// ValidateClient checks the values required to call the remote service.
func (c *Config) ValidateClient() error {
	if c.APIEndpoint == "" {
		return fmt.Errorf("SHARING_CONFIGS_API_ENDPOINT is required")
	}
	return c.validateCredentials()
}

// ValidateServer checks the values required to run the reference server.
func (c *Config) ValidateServer() error {
	if err := c.validateCredentials(); err != nil {
		return err
	}
	switch c.StorageBackend {
	case "memory", "local", "s3":
	default:
		return fmt.Errorf("STORAGE_BACKEND %q is not one of memory, local, s3", c.StorageBackend)
	}
	return nil
}

func (c *Config) validateCredentials() error {
	if c.Label == "" {
		return fmt.Errorf("SHARING_CONFIGS_LABEL is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("SHARING_CONFIGS_API_KEY is required")
	}
	return nil
}

// Client returns the remote folder client configuration.
func (c *Config) Client(logger *zap.Logger) client.Config {
	return client.Config{
		Endpoint:   c.APIEndpoint,
		Label:      c.Label,
		Token:      c.APIKey,
		AuthScheme: c.AuthScheme,
		Timeout:    c.Timeout,
		Logger:     logger,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	// Plain integers are seconds.
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
