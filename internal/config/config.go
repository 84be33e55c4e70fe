package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type HTTPConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type AuthConfig struct {
	AccessSecret string
	AccessTTL    time.Duration
	BcryptCost   int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StatsConfig struct {
	CacheTTL time.Duration
}

type MediaConfig struct {
	UploadDir   string
	MaxFileSize int64
}

type GeocoderConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

type NotificationsConfig struct {
	PageSize int
}

type Config struct {
	Environment   string
	LogLevel      string
	HTTP          HTTPConfig
	DB            DBConfig
	Auth          AuthConfig
	Redis         RedisConfig
	Stats         StatsConfig
	Media         MediaConfig
	Geocoder      GeocoderConfig
	Notifications NotificationsConfig
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")

	v.AutomaticEnv()
	setDefaults(v)

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		HTTP: HTTPConfig{
			Host:            v.GetString("HTTP_HOST"),
			Port:            v.GetInt("HTTP_PORT"),
			ShutdownTimeout: v.GetDuration("HTTP_SHUTDOWN_TIMEOUT"),
			AllowedOrigins:  splitAndTrim(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
			AutoMigrate:     v.GetBool("DB_AUTO_MIGRATE"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
			AccessTTL:    v.GetDuration("JWT_ACCESS_TTL"),
			BcryptCost:   v.GetInt("BCRYPT_COST"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Stats: StatsConfig{
			CacheTTL: v.GetDuration("STATS_CACHE_TTL"),
		},
		Media: MediaConfig{
			UploadDir:   v.GetString("MEDIA_UPLOAD_DIR"),
			MaxFileSize: v.GetInt64("MEDIA_MAX_FILE_SIZE"),
		},
		Geocoder: GeocoderConfig{
			BaseURL:   strings.TrimRight(v.GetString("GEOCODER_URL"), "/"),
			UserAgent: v.GetString("GEOCODER_USER_AGENT"),
			Timeout:   v.GetDuration("GEOCODER_TIMEOUT"),
		},
		Notifications: NotificationsConfig{
			PageSize: v.GetInt("NOTIFICATIONS_PAGE_SIZE"),
		},
	}

	if cfg.LogLevel == "" {
		if cfg.Environment == EnvProduction {
			cfg.LogLevel = "info"
		} else {
			cfg.LogLevel = "debug"
		}
	}
	if len(cfg.HTTP.AllowedOrigins) == 0 {
		cfg.HTTP.AllowedOrigins = []string{"*"}
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", EnvDevelopment)
	v.SetDefault("HTTP_HOST", "0.0.0.0")
	v.SetDefault("HTTP_PORT", 8080)
	v.SetDefault("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second)
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("JWT_ACCESS_TTL", 24*time.Hour)
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("STATS_CACHE_TTL", 5*time.Minute)
	v.SetDefault("MEDIA_UPLOAD_DIR", "./uploads")
	v.SetDefault("MEDIA_MAX_FILE_SIZE", 10*1024*1024)
	v.SetDefault("GEOCODER_USER_AGENT", "CityFixApp/1.0")
	v.SetDefault("GEOCODER_TIMEOUT", 10*time.Second)
	v.SetDefault("NOTIFICATIONS_PAGE_SIZE", 50)
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP_PORT %d is out of range", cfg.HTTP.Port)
	}
	if cfg.Auth.AccessTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL must be positive")
	}
	if cfg.Media.MaxFileSize <= 0 {
		return fmt.Errorf("MEDIA_MAX_FILE_SIZE must be positive")
	}
	if cfg.Notifications.PageSize <= 0 {
		return fmt.Errorf("NOTIFICATIONS_PAGE_SIZE must be positive")
	}
	return nil
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
