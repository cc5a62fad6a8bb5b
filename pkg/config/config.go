package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Similarity SimilarityConfig
	Features   FeaturesConfig
	Viewer     ViewerConfig
	Scheduler  SchedulerConfig
	Storage    StorageConfig
	Receipts   ReceiptsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	ConnectRetry time.Duration
}

type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	ConnectRetry time.Duration
}

// JWTConfig holds the shared secret used by the LMS to sign viewer and operator tokens.
type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SimilarityConfig configures the outbound similarity service client.
type SimilarityConfig struct {
	BaseURL            string
	APIKey             string
	IntegrationName    string
	IntegrationVersion string
	Language           string
	Timeout            time.Duration
	RequestsPerSecond  float64
	Burst              int
}

// FeaturesConfig controls caching of tenant feature flags and the values used
// when the remote service cannot be reached.
type FeaturesConfig struct {
	CacheTTL                   time.Duration
	FallbackRequireEULA        bool
	FallbackSearchRepositories []string
}

// ViewerConfig mirrors the admin options applied to report viewer launches.
type ViewerConfig struct {
	HideIdentity        bool
	ViewFullSource      bool
	MatchSubmissionInfo bool
	SaveChanges         bool
	InstructorRoles     []string
}

// SchedulerConfig governs the periodic lifecycle pass.
type SchedulerConfig struct {
	Enabled    bool
	Interval   time.Duration
	BatchSize  int
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// StorageConfig points at the LMS file directory holding submitted files.
type StorageConfig struct {
	FileDir string
}

// ReceiptsConfig selects the outbox used for digital receipts.
type ReceiptsConfig struct {
	Enabled   bool
	OutboxKey string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *fs.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		ConnectRetry: parseDuration(v.GetString("DB_CONNECT_RETRY"), 2*time.Minute),
	}

	cfg.Redis = RedisConfig{
		Host:         v.GetString("REDIS_HOST"),
		Port:         v.GetInt("REDIS_PORT"),
		Password:     v.GetString("REDIS_PASSWORD"),
		DB:           v.GetInt("REDIS_DB"),
		ConnectRetry: parseDuration(v.GetString("REDIS_CONNECT_RETRY"), time.Minute),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	burst := v.GetInt("SIMILARITY_RATE_BURST")
	if burst <= 0 {
		burst = 1
	}
	cfg.Similarity = SimilarityConfig{
		BaseURL:            strings.TrimRight(v.GetString("SIMILARITY_BASE_URL"), "/"),
		APIKey:             v.GetString("SIMILARITY_API_KEY"),
		IntegrationName:    v.GetString("SIMILARITY_INTEGRATION_NAME"),
		IntegrationVersion: v.GetString("SIMILARITY_INTEGRATION_VERSION"),
		Language:           v.GetString("SIMILARITY_LANGUAGE"),
		Timeout:            parseDuration(v.GetString("SIMILARITY_TIMEOUT"), 30*time.Second),
		RequestsPerSecond:  v.GetFloat64("SIMILARITY_RATE_RPS"),
		Burst:              burst,
	}

	cfg.Features = FeaturesConfig{
		CacheTTL:                   parseDuration(v.GetString("FEATURES_CACHE_TTL"), time.Hour),
		FallbackRequireEULA:        v.GetBool("FEATURES_REQUIRE_EULA"),
		FallbackSearchRepositories: splitAndTrim(v.GetString("FEATURES_SEARCH_REPOSITORIES")),
	}

	cfg.Viewer = ViewerConfig{
		HideIdentity:        v.GetBool("VIEWER_HIDE_IDENTITY"),
		ViewFullSource:      v.GetBool("VIEWER_VIEW_FULL_SOURCE"),
		MatchSubmissionInfo: v.GetBool("VIEWER_MATCH_SUBMISSION_INFO"),
		SaveChanges:         v.GetBool("VIEWER_SAVE_CHANGES"),
		InstructorRoles:     splitAndTrim(v.GetString("VIEWER_INSTRUCTOR_ROLES")),
	}

	cfg.Scheduler = SchedulerConfig{
		Enabled:    v.GetBool("ENABLE_SCHEDULER"),
		Interval:   parseDuration(v.GetString("SCHEDULER_INTERVAL"), time.Minute),
		BatchSize:  v.GetInt("SCHEDULER_BATCH_SIZE"),
		Workers:    v.GetInt("SCHEDULER_WORKERS"),
		MaxRetries: v.GetInt("SCHEDULER_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("SCHEDULER_RETRY_DELAY"), 5*time.Second),
	}

	cfg.Storage = StorageConfig{FileDir: v.GetString("STORAGE_FILE_DIR")}

	cfg.Receipts = ReceiptsConfig{
		Enabled:   v.GetBool("ENABLE_RECEIPTS"),
		OutboxKey: v.GetString("RECEIPTS_OUTBOX_KEY"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "simcheck")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONNECT_RETRY", "2m")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_CONNECT_RETRY", "1m")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SIMILARITY_BASE_URL", "http://localhost:9090/api/v1")
	v.SetDefault("SIMILARITY_API_KEY", "")
	v.SetDefault("SIMILARITY_INTEGRATION_NAME", "simcheck-bridge")
	v.SetDefault("SIMILARITY_INTEGRATION_VERSION", "0.1.0")
	v.SetDefault("SIMILARITY_LANGUAGE", "en-US")
	v.SetDefault("SIMILARITY_TIMEOUT", "30s")
	v.SetDefault("SIMILARITY_RATE_RPS", 5)
	v.SetDefault("SIMILARITY_RATE_BURST", 5)

	v.SetDefault("FEATURES_CACHE_TTL", "1h")
	v.SetDefault("FEATURES_REQUIRE_EULA", true)
	v.SetDefault("FEATURES_SEARCH_REPOSITORIES", "INTERNET,PUBLICATION,SUBMITTED_WORK")

	v.SetDefault("VIEWER_HIDE_IDENTITY", false)
	v.SetDefault("VIEWER_VIEW_FULL_SOURCE", false)
	v.SetDefault("VIEWER_MATCH_SUBMISSION_INFO", false)
	v.SetDefault("VIEWER_SAVE_CHANGES", false)
	v.SetDefault("VIEWER_INSTRUCTOR_ROLES", "INSTRUCTOR,ADMIN")

	v.SetDefault("ENABLE_SCHEDULER", true)
	v.SetDefault("SCHEDULER_INTERVAL", "1m")
	v.SetDefault("SCHEDULER_BATCH_SIZE", 50)
	v.SetDefault("SCHEDULER_WORKERS", 2)
	v.SetDefault("SCHEDULER_MAX_RETRIES", 3)
	v.SetDefault("SCHEDULER_RETRY_DELAY", "5s")

	v.SetDefault("STORAGE_FILE_DIR", "./filedir")

	v.SetDefault("ENABLE_RECEIPTS", true)
	v.SetDefault("RECEIPTS_OUTBOX_KEY", "simcheck:receipts")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
