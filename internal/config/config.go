package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type TLSConfig struct {
	Enabled  bool
	CertFile string
	KeyFile  string
}

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Endpoint        string
	AccessKey       string
	SecretKey       string
	BucketKnowledge string
	UseSSL          bool
	Region          string
}

type SecurityConfig struct {
	// JWTSecret signs session tokens. Required; validated at startup.
	JWTSecret  string
	SessionTTL time.Duration
	BcryptCost int

	CookieName   string
	CookieDomain string
	// SignInPath is where unauthenticated browser navigations are redirected.
	SignInPath string

	LoginMaxAttempts int
	LoginWindow      time.Duration
}

type ProviderConfig struct {
	// BaseURL of the chat-completions provider, e.g. https://api.openai.com/v1.
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	// MaxTurns bounds how many prior messages are replayed per request.
	MaxTurns int
}

type SyncConfig struct {
	PollInterval     time.Duration
	DebounceWindow   time.Duration
	RedirectCooldown time.Duration
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	TLS              TLSConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Provider         ProviderConfig
	Sync             SyncConfig
	AllowCORSOrigins []string
}

func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("LOOMCHAT")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations that would otherwise fail lazily at
// request time. Secrets are checked here, once, at startup.
func (c *AppConfig) Validate() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwtsecret is required")
	}
	if c.Provider.APIKey == "" {
		return fmt.Errorf("provider.apikey is required")
	}
	if c.Security.SessionTTL <= 0 {
		return fmt.Errorf("security.sessionttl must be positive")
	}
	if c.Sync.PollInterval < 5*time.Second {
		return fmt.Errorf("sync.pollinterval must be at least 5s")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "60s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.bucketknowledge", "loomchat-knowledge")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("security.sessionttl", "720h") // 30 days
	v.SetDefault("security.bcryptcost", 12)
	v.SetDefault("security.cookiename", "loomchat_session")
	v.SetDefault("security.signinpath", "/sign-in")
	v.SetDefault("security.loginmaxattempts", 10)
	v.SetDefault("security.loginwindow", "5m")

	v.SetDefault("provider.baseurl", "https://api.openai.com/v1")
	v.SetDefault("provider.model", "gpt-4o-mini")
	v.SetDefault("provider.timeout", "45s")
	v.SetDefault("provider.maxturns", 40)

	v.SetDefault("sync.pollinterval", "4m")
	v.SetDefault("sync.debouncewindow", "3s")
	v.SetDefault("sync.redirectcooldown", "5s")
}
