package config

const (
	EnvBusinessID         = "BUSINESS_ID"
	EnvTimeZone           = "TIME_ZONE"
	EnvDefaultPhoneRegion = "DEFAULT_PHONE_REGION"

	EnvLeadTime           = "LEAD_TIME"
	EnvCacheTTL           = "AVAILABILITY_CACHE_TTL"
	EnvDebounceWindow     = "AVAILABILITY_DEBOUNCE"
	EnvOracleMaxAttempts  = "ORACLE_MAX_ATTEMPTS"
	EnvOracleRetryBackoff = "ORACLE_RETRY_BACKOFF"
	EnvOverrideWindowDays = "OVERRIDE_WINDOW_DAYS"

	EnvNotifyRetryDelay = "NOTIFY_RETRY_DELAY"
	EnvNotifyTopic      = "NOTIFY_TOPIC"
	EnvNotifyEnabled    = "NOTIFY_ENABLED"

	EnvFlushInterval = "OFFLINE_FLUSH_INTERVAL"
	EnvStoreBackend  = "STORE_BACKEND"
	EnvStorePrefix   = "STORE_PREFIX"

	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvRemoteAPIURL     = "REMOTE_API_URL"
	EnvRemoteAPITimeout = "REMOTE_API_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRequestTimeout    = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL    = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize    = "MAX_REQUEST_SIZE"
	EnvRateLimitRequests = "GUEST_RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "GUEST_RATE_LIMIT_WINDOW"
	EnvSessionTTL        = "SESSION_TTL"
	EnvRosterRefresh     = "ROSTER_REFRESH_INTERVAL"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
