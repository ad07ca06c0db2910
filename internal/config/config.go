package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	RateLimit RateLimitConfig `yaml:"ratelimit" mapstructure:"ratelimit"`
	Classify  ClassifyConfig  `yaml:"classify" mapstructure:"classify"`
	Providers ProvidersConfig `yaml:"providers" mapstructure:"providers"`
}

// ServerConfig configures the query endpoint.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// StoreConfig configures the conversation log backend.
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

// CacheConfig configures the cache layer. TTLs are per category; volatile
// data (weather) expires in minutes, stable data (schemes) in a day.
type CacheConfig struct {
	Backend string         `yaml:"backend" mapstructure:"backend"` // "memory" or "redis"
	Redis   RedisConfig    `yaml:"redis" mapstructure:"redis"`
	TTL     CacheTTLConfig `yaml:"ttl" mapstructure:"ttl"`
}

// RedisConfig holds Redis connection settings for the redis cache backend.
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

// CacheTTLConfig holds the per-category TTLs.
type CacheTTLConfig struct {
	Weather   time.Duration `yaml:"weather" mapstructure:"weather"`
	Market    time.Duration `yaml:"market" mapstructure:"market"`
	Crop      time.Duration `yaml:"crop" mapstructure:"crop"`
	Scheme    time.Duration `yaml:"scheme" mapstructure:"scheme"`
	Knowledge time.Duration `yaml:"knowledge" mapstructure:"knowledge"`
	Answer    time.Duration `yaml:"answer" mapstructure:"answer"`
}

// RateLimitConfig configures the per-client request limiter tiers.
type RateLimitConfig struct {
	PerMinute int `yaml:"per_minute" mapstructure:"per_minute"`
	PerHour   int `yaml:"per_hour" mapstructure:"per_hour"`
	PerDay    int `yaml:"per_day" mapstructure:"per_day"`
}

// ClassifyConfig holds classifier thresholds. These are tunables, not
// derived constants; the defaults below are starting points.
type ClassifyConfig struct {
	BaseLanguage     string  `yaml:"base_language" mapstructure:"base_language"`
	MinIntentScore   float64 `yaml:"min_intent_score" mapstructure:"min_intent_score"`
	LowConfidence    float64 `yaml:"low_confidence" mapstructure:"low_confidence"`
	FuzzyMaxDistance int     `yaml:"fuzzy_max_distance" mapstructure:"fuzzy_max_distance"`
	RulesPath        string  `yaml:"rules_path" mapstructure:"rules_path"`
}

// ProvidersConfig configures the upstream data sources.
type ProvidersConfig struct {
	// FallbackReliability is the reliability assigned to fallback results.
	// It must stay below any live reliability.
	FallbackReliability float64         `yaml:"fallback_reliability" mapstructure:"fallback_reliability"`
	Timeout             time.Duration   `yaml:"timeout" mapstructure:"timeout"`
	OpenMeteo           EndpointConfig  `yaml:"openmeteo" mapstructure:"openmeteo"`
	Agmarknet           EndpointConfig  `yaml:"agmarknet" mapstructure:"agmarknet"`
	Agridata            EndpointConfig  `yaml:"agridata" mapstructure:"agridata"`
	Anthropic           AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
}

// EndpointConfig holds settings for one HTTP data source.
type EndpointConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Key     string `yaml:"key" mapstructure:"key"`
}

// AnthropicConfig holds settings for the general-knowledge provider.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ADVISOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "advisor.db")
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.redis.addr", "")
	v.SetDefault("cache.ttl.weather", "10m")
	v.SetDefault("cache.ttl.market", "1h")
	v.SetDefault("cache.ttl.crop", "6h")
	v.SetDefault("cache.ttl.scheme", "24h")
	v.SetDefault("cache.ttl.knowledge", "1h")
	v.SetDefault("cache.ttl.answer", "5m")
	v.SetDefault("ratelimit.per_minute", 60)
	v.SetDefault("ratelimit.per_hour", 600)
	v.SetDefault("ratelimit.per_day", 5000)
	v.SetDefault("classify.base_language", "en")
	v.SetDefault("classify.min_intent_score", 0.35)
	v.SetDefault("classify.low_confidence", 0.4)
	v.SetDefault("classify.fuzzy_max_distance", 2)
	v.SetDefault("providers.fallback_reliability", 0.3)
	v.SetDefault("providers.timeout", "8s")
	v.SetDefault("providers.openmeteo.base_url", "https://api.open-meteo.com")
	v.SetDefault("providers.agmarknet.base_url", "https://api.data.gov.in/resource")
	v.SetDefault("providers.agridata.base_url", "")
	v.SetDefault("providers.anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("providers.anthropic.max_tokens", 512)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
