package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-tracker-go/internal/domain/tracking"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Storage  StorageConfig
	Redis    RedisConfig
	Remote   RemoteConfig
	Tracker  TrackerConfig
	Log      LogConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Port        int    `validate:"gt=0,lte=65535"`
	Env         string `validate:"required"`
	LogLevel    string `validate:"oneof=debug info warn error"`
	CORSOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32 `validate:"gte=0"`
}

// JWTConfig holds the device token configuration
type JWTConfig struct {
	Secret           string `validate:"required"`
	DeviceExpiration string `validate:"required"`
}

type StorageConfig struct {
	Type string `validate:"oneof=file postgres redis memory"`
	Path string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int `validate:"gte=0"`
}

// RemoteConfig describes the attendance backend the tracker syncs to
type RemoteConfig struct {
	BaseURL       string `validate:"required,url"`
	Token         string
	Timeout       time.Duration `validate:"gt=0"`
	ProbeURL      string        `validate:"omitempty,url"`
	ProbeInterval time.Duration `validate:"gte=0"`
}

// TrackerConfig is the tuning that can also come from TRACKER_CONFIG_FILE
type TrackerConfig struct {
	UpdateInterval           time.Duration `yaml:"update_interval" validate:"gt=0"`
	DistanceFilter           float64       `yaml:"distance_filter" validate:"gte=0"`
	BackgroundDistanceFilter float64       `yaml:"background_distance_filter" validate:"gte=0"`
	ForegroundHighAccuracy   bool          `yaml:"foreground_high_accuracy"`
	BackgroundHighAccuracy   bool          `yaml:"background_high_accuracy"`
	MaxOfflineRecords        int           `yaml:"max_offline_records" validate:"gt=0"`
	MaxRetryAttempts         int           `yaml:"max_retry_attempts" validate:"gte=0"`
	LocationTimeout          time.Duration `yaml:"location_timeout" validate:"gt=0"`
	MaximumAge               time.Duration `yaml:"maximum_age" validate:"gte=0"`
	LocationRetryDelay       time.Duration `yaml:"location_retry_delay" validate:"gt=0"`
	RequeueFailedSessions    bool          `yaml:"requeue_failed_sessions"`
}

// LogConfig enables the rotating log file when File is set
type LogConfig struct {
	File       string
	MaxSizeMB  int `validate:"gte=0"`
	MaxBackups int `validate:"gte=0"`
	MaxAgeDays int `validate:"gte=0"`
	Compress   bool
}

func Load() (*Config, error) {
	// A missing .env is fine, the environment may be set by the host
	_ = godotenv.Load()

	config := &Config{}

	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8090"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:        appPort,
		Env:         getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS"),
	}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	dbMaxConns, err := strconv.Atoi(getEnv("DB_MAX_CONNS", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "attendance_tracker"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: int32(dbMaxConns),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		DeviceExpiration: getEnv("JWT_DEVICE_EXPIRATION_TIME", "720h"),
	}

	config.Storage = StorageConfig{
		Type: getEnv("STORAGE_TYPE", "file"),
		Path: getEnv("STORAGE_PATH", "./data"),
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	config.Redis = RedisConfig{
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
	}

	// Remote endpoint configuration
	remoteTimeout, err := time.ParseDuration(getEnv("REMOTE_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid REMOTE_TIMEOUT: %w", err)
	}
	probeInterval, err := time.ParseDuration(getEnv("REACHABILITY_PROBE_INTERVAL", "0s"))
	if err != nil {
		return nil, fmt.Errorf("invalid REACHABILITY_PROBE_INTERVAL: %w", err)
	}

	config.Remote = RemoteConfig{
		BaseURL:       getEnv("REMOTE_BASE_URL", ""),
		Token:         getEnv("REMOTE_API_TOKEN", ""),
		Timeout:       remoteTimeout,
		ProbeURL:      getEnv("REACHABILITY_PROBE_URL", ""),
		ProbeInterval: probeInterval,
	}

	// Tracker tuning: defaults, then the YAML file, then the environment
	config.Tracker = defaultTrackerConfig()
	if path := getEnv("TRACKER_CONFIG_FILE", ""); path != "" {
		if err := config.Tracker.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := config.Tracker.applyEnv(); err != nil {
		return nil, err
	}

	// Log file configuration
	logMaxSize, err := strconv.Atoi(getEnv("LOG_FILE_MAX_SIZE_MB", "50"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_FILE_MAX_SIZE_MB: %w", err)
	}
	logMaxBackups, err := strconv.Atoi(getEnv("LOG_FILE_MAX_BACKUPS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_FILE_MAX_BACKUPS: %w", err)
	}
	logMaxAge, err := strconv.Atoi(getEnv("LOG_FILE_MAX_AGE_DAYS", "14"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_FILE_MAX_AGE_DAYS: %w", err)
	}

	config.Log = LogConfig{
		File:       getEnv("LOG_FILE", ""),
		MaxSizeMB:  logMaxSize,
		MaxBackups: logMaxBackups,
		MaxAgeDays: logMaxAge,
		Compress:   getEnv("LOG_FILE_COMPRESS", "true") == "true",
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.Storage.Type == "postgres" && c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required when STORAGE_TYPE is postgres")
	}
	if c.Storage.Type == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("REDIS_ADDR is required when STORAGE_TYPE is redis")
	}
	if c.Storage.Type == "file" && c.Storage.Path == "" {
		return fmt.Errorf("STORAGE_PATH is required when STORAGE_TYPE is file")
	}
	if c.Remote.ProbeInterval > 0 && c.Remote.ProbeURL == "" {
		return fmt.Errorf("REACHABILITY_PROBE_URL is required when REACHABILITY_PROBE_INTERVAL is set")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func defaultTrackerConfig() TrackerConfig {
	d := tracking.DefaultTrackerConfig()
	return TrackerConfig{
		UpdateInterval:           d.UpdateInterval,
		DistanceFilter:           d.DistanceFilter,
		BackgroundDistanceFilter: d.BackgroundDistanceFilter,
		ForegroundHighAccuracy:   d.ForegroundHighAccuracy,
		BackgroundHighAccuracy:   d.BackgroundHighAccuracy,
		MaxOfflineRecords:        d.MaxOfflineRecords,
		MaxRetryAttempts:         d.MaxRetryAttempts,
		LocationTimeout:          d.LocationTimeout,
		MaximumAge:               d.MaximumAge,
		LocationRetryDelay:       d.LocationRetryDelay,
		RequeueFailedSessions:    d.RequeueFailedSessions,
	}
}

// loadFile overlays the keys present in a YAML file
func (t *TrackerConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read TRACKER_CONFIG_FILE: %w", err)
	}
	if err := yaml.Unmarshal(data, t); err != nil {
		return fmt.Errorf("parse TRACKER_CONFIG_FILE: %w", err)
	}
	return nil
}

func (t *TrackerConfig) applyEnv() error {
	durations := map[string]*time.Duration{
		"TRACKER_UPDATE_INTERVAL":      &t.UpdateInterval,
		"TRACKER_LOCATION_TIMEOUT":     &t.LocationTimeout,
		"TRACKER_MAXIMUM_AGE":          &t.MaximumAge,
		"TRACKER_LOCATION_RETRY_DELAY": &t.LocationRetryDelay,
	}
	for key, dst := range durations {
		if value := os.Getenv(key); value != "" {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = d
		}
	}

	ints := map[string]*int{
		"TRACKER_MAX_OFFLINE_RECORDS": &t.MaxOfflineRecords,
		"TRACKER_MAX_RETRY_ATTEMPTS":  &t.MaxRetryAttempts,
	}
	for key, dst := range ints {
		if value := os.Getenv(key); value != "" {
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = n
		}
	}

	floats := map[string]*float64{
		"TRACKER_DISTANCE_FILTER":            &t.DistanceFilter,
		"TRACKER_BACKGROUND_DISTANCE_FILTER": &t.BackgroundDistanceFilter,
	}
	for key, dst := range floats {
		if value := os.Getenv(key); value != "" {
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = f
		}
	}

	if value := os.Getenv("TRACKER_REQUEUE_FAILED_SESSIONS"); value != "" {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid TRACKER_REQUEUE_FAILED_SESSIONS: %w", err)
		}
		t.RequeueFailedSessions = b
	}
	return nil
}

// Domain returns the tracker configuration used by the services
func (t TrackerConfig) Domain() tracking.TrackerConfig {
	return tracking.TrackerConfig{
		UpdateInterval:           t.UpdateInterval,
		DistanceFilter:           t.DistanceFilter,
		BackgroundDistanceFilter: t.BackgroundDistanceFilter,
		ForegroundHighAccuracy:   t.ForegroundHighAccuracy,
		BackgroundHighAccuracy:   t.BackgroundHighAccuracy,
		MaxOfflineRecords:        t.MaxOfflineRecords,
		MaxRetryAttempts:         t.MaxRetryAttempts,
		LocationTimeout:          t.LocationTimeout,
		MaximumAge:               t.MaximumAge,
		LocationRetryDelay:       t.LocationRetryDelay,
		RequeueFailedSessions:    t.RequeueFailedSessions,
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string = strings.Split(value, ",")
	return result
}
