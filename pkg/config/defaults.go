package config

import "time"

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreMongo  = "mongo"
)

const (
	DefaultTimeZone = "Asia/Bishkek"

	DefaultLeadTime           = 30 * time.Minute
	DefaultCacheTTL           = 10 * time.Second
	DefaultDebounceWindow     = 300 * time.Millisecond
	DefaultOracleMaxAttempts  = 2
	DefaultOracleRetryBackoff = 200 * time.Millisecond
	DefaultOverrideWindowDays = 60

	DefaultNotifyRetryDelay = 1500 * time.Millisecond
	DefaultNotifyTopic      = "reservation-notifications"
	DefaultNotifyEnabled    = true

	DefaultFlushInterval = 30 * time.Second
	DefaultStoreBackend  = StoreMemory
	DefaultStorePrefix   = "slotkeeper"

	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "slotkeeper"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultRedisAddr = "localhost:6379"
	DefaultRedisDB   = 0

	DefaultRemoteAPIURL     = "http://localhost:8081"
	DefaultRemoteAPITimeout = 10 * time.Second

	DefaultPort = "8080"

	DefaultRequestTimeout    = 30 * time.Second
	DefaultIdempotencyTTL    = 24 * time.Hour
	DefaultMaxRequestSize    = 1 << 20
	DefaultRateLimitRequests = 5
	DefaultRateLimitWindow   = time.Hour
	DefaultSessionTTL        = 30 * time.Minute
	DefaultRosterRefresh     = 5 * time.Minute

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultLogLevel = "info"
)
