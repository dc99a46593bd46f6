package config

import (
	"os"
	"strconv"

	"github.com/spf13/viper"
)

// BackupConfig holds the daily snapshot job settings.
type BackupConfig struct {
	// Time is the local wall-clock time of the daily run, "HH:MM".
	Time      string
	Retention int
	NotifyURL string
}

// MinIOConfig holds object storage settings for off-site backup copies.
// The client is only constructed when Endpoint is set.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables layered over the optional
// config.json file. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost string
	Port    string
	DataDir string

	// InfinitePayHandle is the merchant tag required to create checkout links.
	InfinitePayHandle string
	// WebhookSecret enables HMAC verification of /webhook deliveries when set.
	WebhookSecret string

	Backup BackupConfig
	MinIO  MinIOConfig
}

// Load reads configuration from environment variables layered over the
// optional JSON config file (CONFIG_FILE, default ./config.json). Real
// environment variables take precedence over file values; a missing file is
// not an error.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
func Load() *AppConfig {
	v := viper.New()
	v.SetConfigFile(getEnv("CONFIG_FILE", "config.json"))
	v.SetConfigType("json")
	_ = v.ReadInConfig() // optional file

	return &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:3000"),
		Port:    getEnv("PORT", "3000"),
		DataDir: getEnv("DATA_DIR", "data"),

		InfinitePayHandle: getEnv("INFINITEPAY_HANDLE", v.GetString("infinitepay_handle")),
		WebhookSecret:     getEnv("WEBHOOK_SECRET", v.GetString("webhook_secret")),

		Backup: BackupConfig{
			Time:      getEnv("BACKUP_TIME", "02:00"),
			Retention: getEnvInt("BACKUP_RETENTION", 7),
			NotifyURL: getEnv("BACKUP_NOTIFY_URL", v.GetString("webhook.url")),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
