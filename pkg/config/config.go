package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"slotkeeper/pkg/client"
	kafka_config "slotkeeper/pkg/kafka/config"
	"slotkeeper/pkg/locale"
	"slotkeeper/pkg/logger"
)

type Config struct {
	BusinessID         string
	TimeZone           string
	Location           *time.Location
	DefaultPhoneRegion string

	LeadTime           time.Duration
	CacheTTL           time.Duration
	DebounceWindow     time.Duration
	OracleMaxAttempts  int
	OracleRetryBackoff time.Duration
	OverrideWindowDays int

	NotifyRetryDelay time.Duration
	NotifyTopic      string
	NotifyEnabled    bool

	FlushInterval time.Duration
	StoreBackend  string
	StorePrefix   string

	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RemoteAPIURL     string
	RemoteAPITimeout time.Duration

	Port string

	RequestTimeout    time.Duration
	IdempotencyTTL    time.Duration
	MaxRequestSize    int
	RateLimitRequests int
	RateLimitWindow   time.Duration
	SessionTTL        time.Duration
	RosterRefresh     time.Duration

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Kafka *kafka_config.Config

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	cfg := &Config{
		BusinessID:         getEnvStr(EnvBusinessID, ""),
		TimeZone:           getEnvStr(EnvTimeZone, DefaultTimeZone),
		DefaultPhoneRegion: strings.ToUpper(getEnvStr(EnvDefaultPhoneRegion, "")),

		LeadTime:           getEnvDuration(EnvLeadTime, DefaultLeadTime),
		CacheTTL:           getEnvDuration(EnvCacheTTL, DefaultCacheTTL),
		DebounceWindow:     getEnvDuration(EnvDebounceWindow, DefaultDebounceWindow),
		OracleMaxAttempts:  getEnvNum(EnvOracleMaxAttempts, DefaultOracleMaxAttempts),
		OracleRetryBackoff: getEnvDuration(EnvOracleRetryBackoff, DefaultOracleRetryBackoff),
		OverrideWindowDays: getEnvNum(EnvOverrideWindowDays, DefaultOverrideWindowDays),

		NotifyRetryDelay: getEnvDuration(EnvNotifyRetryDelay, DefaultNotifyRetryDelay),
		NotifyTopic:      getEnvStr(EnvNotifyTopic, DefaultNotifyTopic),
		NotifyEnabled:    getEnvBool(EnvNotifyEnabled, DefaultNotifyEnabled),

		FlushInterval: getEnvDuration(EnvFlushInterval, DefaultFlushInterval),
		StoreBackend:  strings.ToLower(getEnvStr(EnvStoreBackend, DefaultStoreBackend)),
		StorePrefix:   getEnvStr(EnvStorePrefix, DefaultStorePrefix),

		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		RedisAddr:     getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),

		RemoteAPIURL:     getEnvStr(EnvRemoteAPIURL, DefaultRemoteAPIURL),
		RemoteAPITimeout: getEnvDuration(EnvRemoteAPITimeout, DefaultRemoteAPITimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		RequestTimeout:    getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL:    getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize:    getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),
		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),
		SessionTTL:        getEnvDuration(EnvSessionTTL, DefaultSessionTTL),
		RosterRefresh:     getEnvDuration(EnvRosterRefresh, DefaultRosterRefresh),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if cfg.DefaultPhoneRegion == "" {
		cfg.DefaultPhoneRegion = locale.DetectRegion(cfg.TimeZone)
	}
	if cfg.NotifyEnabled {
		cfg.Kafka = kafka_config.Load()
	}

	err := cfg.Validate()
	if err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetRedis() {
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
}

// Validate reports every problem at once. It also resolves Location.
func (cfg *Config) Validate() error {
	var errors []string

	if strings.TrimSpace(cfg.BusinessID) == "" {
		errors = append(errors, "BusinessID cannot be empty")
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		errors = append(errors, fmt.Sprintf("TimeZone must be a valid IANA zone, got: %s", cfg.TimeZone))
	} else {
		cfg.Location = loc
	}

	if !regexp.MustCompile(`^[A-Z]{2}$`).MatchString(cfg.DefaultPhoneRegion) {
		errors = append(errors, fmt.Sprintf("DefaultPhoneRegion must be an ISO 3166-1 alpha-2 code, got: %s", cfg.DefaultPhoneRegion))
	}

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.LeadTime < 0 {
		errors = append(errors, fmt.Sprintf("LeadTime cannot be negative, got: %s", cfg.LeadTime))
	}
	if cfg.CacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("CacheTTL must be positive, got: %s", cfg.CacheTTL))
	}
	if cfg.DebounceWindow < 0 {
		errors = append(errors, fmt.Sprintf("DebounceWindow cannot be negative, got: %s", cfg.DebounceWindow))
	}
	if cfg.OracleMaxAttempts < 1 {
		errors = append(errors, fmt.Sprintf("OracleMaxAttempts must be at least 1, got: %d", cfg.OracleMaxAttempts))
	}
	if cfg.OracleRetryBackoff < 0 {
		errors = append(errors, fmt.Sprintf("OracleRetryBackoff cannot be negative, got: %s", cfg.OracleRetryBackoff))
	}
	if cfg.OverrideWindowDays < 0 {
		errors = append(errors, fmt.Sprintf("OverrideWindowDays cannot be negative, got: %d", cfg.OverrideWindowDays))
	}
	if cfg.NotifyRetryDelay <= 0 {
		errors = append(errors, fmt.Sprintf("NotifyRetryDelay must be positive, got: %s", cfg.NotifyRetryDelay))
	}
	if cfg.NotifyEnabled && cfg.NotifyTopic == "" {
		errors = append(errors, "NotifyTopic cannot be empty when notifications are enabled")
	}
	if cfg.Kafka != nil {
		errors = append(errors, cfg.Kafka.Problems()...)
	}
	if cfg.FlushInterval <= 0 {
		errors = append(errors, fmt.Sprintf("FlushInterval must be positive, got: %s", cfg.FlushInterval))
	}

	switch cfg.StoreBackend {
	case StoreMemory:
	case StoreRedis:
		if cfg.RedisAddr == "" {
			errors = append(errors, "RedisAddr cannot be empty for the redis store")
		}
		if cfg.RedisDB < 0 {
			errors = append(errors, fmt.Sprintf("RedisDB cannot be negative, got: %d", cfg.RedisDB))
		}
	case StoreMongo:
		if cfg.MongoURI == "" {
			errors = append(errors, "MongoURI cannot be empty")
		} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", cfg.MongoURI))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}
		if cfg.MongoConnTimeout <= 0 {
			errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
		}
	default:
		errors = append(errors, fmt.Sprintf("StoreBackend must be one of [memory, redis, mongo], got: %s", cfg.StoreBackend))
	}

	if u, err := url.Parse(cfg.RemoteAPIURL); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, fmt.Sprintf("RemoteAPIURL must be an absolute URL, got: %s", cfg.RemoteAPIURL))
	}
	if cfg.RemoteAPITimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RemoteAPITimeout must be positive, got: %s", cfg.RemoteAPITimeout))
	}

	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.RateLimitRequests < 1 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be at least 1, got: %d", cfg.RateLimitRequests))
	}
	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.SessionTTL <= 0 {
		errors = append(errors, fmt.Sprintf("SessionTTL must be positive, got: %s", cfg.SessionTTL))
	}
	if cfg.RosterRefresh <= 0 {
		errors = append(errors, fmt.Sprintf("RosterRefresh must be positive, got: %s", cfg.RosterRefresh))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"business_id", cfg.BusinessID,
		"time_zone", cfg.TimeZone,
		"default_phone_region", cfg.DefaultPhoneRegion,
		"lead_time", cfg.LeadTime,
		"cache_ttl", cfg.CacheTTL,
		"debounce_window", cfg.DebounceWindow,
		"oracle_max_attempts", cfg.OracleMaxAttempts,
		"override_window_days", cfg.OverrideWindowDays,
		"notify_enabled", cfg.NotifyEnabled,
		"notify_topic", cfg.NotifyTopic,
		"notify_retry_delay", cfg.NotifyRetryDelay,
		"flush_interval", cfg.FlushInterval,
		"store_backend", cfg.StoreBackend,
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"redis_addr", cfg.RedisAddr,
		"redis_password_set", cfg.RedisPassword != "",
		"remote_api_url", cfg.RemoteAPIURL,
		"port", cfg.Port,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"session_ttl", cfg.SessionTTL,
		"roster_refresh", cfg.RosterRefresh,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
	)
	if cfg.Kafka != nil {
		cfg.Kafka.LogConfiguration(cfg.Log.Info)
	}
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}
