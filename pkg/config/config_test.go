package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		BusinessID:         "biz-1",
		TimeZone:           DefaultTimeZone,
		DefaultPhoneRegion: "KG",
		LeadTime:           DefaultLeadTime,
		CacheTTL:           DefaultCacheTTL,
		DebounceWindow:     DefaultDebounceWindow,
		OracleMaxAttempts:  DefaultOracleMaxAttempts,
		OverrideWindowDays: DefaultOverrideWindowDays,
		NotifyRetryDelay:   DefaultNotifyRetryDelay,
		NotifyTopic:        DefaultNotifyTopic,
		NotifyEnabled:      true,
		FlushInterval:      DefaultFlushInterval,
		StoreBackend:       StoreMemory,
		RemoteAPIURL:       DefaultRemoteAPIURL,
		RemoteAPITimeout:   DefaultRemoteAPITimeout,
		Port:               DefaultPort,
		RequestTimeout:     DefaultRequestTimeout,
		IdempotencyTTL:     DefaultIdempotencyTTL,
		MaxRequestSize:     DefaultMaxRequestSize,
		RateLimitRequests:  DefaultRateLimitRequests,
		RateLimitWindow:    DefaultRateLimitWindow,
		SessionTTL:         DefaultSessionTTL,
		RosterRefresh:      DefaultRosterRefresh,
		ReadTimeout:        DefaultReadTimeout,
		WriteTimeout:       DefaultWriteTimeout,
		IdleTimeout:        DefaultIdleTimeout,
		ShutdownTimeout:    DefaultShutdownTimeout,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(cfg *Config) {},
		},
		{
			name:    "missing business id",
			mutate:  func(cfg *Config) { cfg.BusinessID = " " },
			wantErr: "BusinessID cannot be empty",
		},
		{
			name:    "bad time zone",
			mutate:  func(cfg *Config) { cfg.TimeZone = "Mars/Olympus" },
			wantErr: "TimeZone must be a valid IANA zone",
		},
		{
			name:    "bad phone region",
			mutate:  func(cfg *Config) { cfg.DefaultPhoneRegion = "kgz" },
			wantErr: "DefaultPhoneRegion",
		},
		{
			name:    "zero oracle attempts",
			mutate:  func(cfg *Config) { cfg.OracleMaxAttempts = 0 },
			wantErr: "OracleMaxAttempts must be at least 1",
		},
		{
			name:    "unknown store backend",
			mutate:  func(cfg *Config) { cfg.StoreBackend = "sqlite" },
			wantErr: "StoreBackend must be one of",
		},
		{
			name: "mongo backend with bad uri",
			mutate: func(cfg *Config) {
				cfg.StoreBackend = StoreMongo
				cfg.MongoURI = "http://localhost"
				cfg.MongoDatabaseName = "db"
				cfg.MongoConnTimeout = time.Second
			},
			wantErr: "MongoURI must start with",
		},
		{
			name:    "relative remote url",
			mutate:  func(cfg *Config) { cfg.RemoteAPIURL = "/api" },
			wantErr: "RemoteAPIURL must be an absolute URL",
		},
		{
			name:    "port out of range",
			mutate:  func(cfg *Config) { cfg.Port = "70000" },
			wantErr: "Port must be between 1 and 65535",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if cfg.Location == nil || cfg.Location.String() != DefaultTimeZone {
					t.Errorf("expected Location to be resolved to %s", DefaultTimeZone)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.BusinessID = ""
	cfg.CacheTTL = 0
	cfg.FlushInterval = -time.Second

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"1. BusinessID", "2. CacheTTL", "3. FlushInterval"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %q", want, err.Error())
		}
	}
}

func TestRedactMongoURI(t *testing.T) {
	got := redactMongoURI("mongodb://admin:secret@db:27017")
	if got != "mongodb://***:***@db:27017" {
		t.Errorf("redactMongoURI() = %q", got)
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv(EnvLeadTime, "45m")
	t.Setenv(EnvOracleMaxAttempts, "not-a-number")
	t.Setenv(EnvNotifyEnabled, "false")

	if got := getEnvDuration(EnvLeadTime, DefaultLeadTime); got != 45*time.Minute {
		t.Errorf("getEnvDuration() = %s, want 45m", got)
	}
	if got := getEnvNum(EnvOracleMaxAttempts, 7); got != 7 {
		t.Errorf("getEnvNum() = %d, want fallback 7", got)
	}
	if got := getEnvBool(EnvNotifyEnabled, true); got {
		t.Errorf("getEnvBool() = true, want false")
	}
}
