// Package config loads the settings of an API session from defaults, an
// optional YAML file and OMEKA_* environment variables.
package config

import (
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-omeka-mapper/cache"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "OMEKA"

const (
	KeyAPI           = "api"
	KeyKeyIdentity   = "key_identity"
	KeyKeyCredential = "key_credential"
	KeyTimeout       = "timeout"
	KeyUserAgent     = "user_agent"
	KeyLogLevel      = "log_level"
	KeyPageSize      = "page_size"
	KeyPropertyCache = "property_cache"
	KeyTemplateCache = "template_cache"
)

// debugTag in DEBUG switches logging to debug, as does DEBUG=*.
const debugTag = "omeka-s"

var logLevels = []any{"debug", "info", "warn", "error"}

// Config holds the settings of one API session.
type Config struct {
	API           string        `mapstructure:"api"`
	KeyIdentity   string        `mapstructure:"key_identity"`
	KeyCredential string        `mapstructure:"key_credential"`
	Timeout       time.Duration `mapstructure:"timeout"`
	UserAgent     string        `mapstructure:"user_agent"`
	LogLevel      string        `mapstructure:"log_level"`
	PageSize      int           `mapstructure:"page_size"`
	PropertyCache cache.Config  `mapstructure:"property_cache"`
	TemplateCache cache.Config  `mapstructure:"template_cache"`
}

// Default returns the configuration used when nothing overrides it. API is
// left empty and must be set.
func Default() Config {
	return Config{
		Timeout:       30 * time.Second,
		UserAgent:     "go-omeka-mapper",
		LogLevel:      "info",
		PropertyCache: cache.DefaultConfig(),
		TemplateCache: cache.DefaultConfig(),
	}
}

// SetDefaults registers the values of Default on v.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault(KeyAPI, d.API)
	v.SetDefault(KeyKeyIdentity, d.KeyIdentity)
	v.SetDefault(KeyKeyCredential, d.KeyCredential)
	v.SetDefault(KeyTimeout, d.Timeout)
	v.SetDefault(KeyUserAgent, d.UserAgent)
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyPageSize, d.PageSize)
	setCacheDefaults(v, KeyPropertyCache, d.PropertyCache)
	setCacheDefaults(v, KeyTemplateCache, d.TemplateCache)
}

func setCacheDefaults(v *viper.Viper, prefix string, c cache.Config) {
	v.SetDefault(prefix+".capacity", c.Capacity)
	v.SetDefault(prefix+".num_shards", c.NumShards)
	v.SetDefault(prefix+".ttl", c.TTL)
	v.SetDefault(prefix+".eviction_percentage", c.EvictionPercentage)
	v.SetDefault(prefix+".eviction_interval", c.EvictionInterval)
}

// Load reads the configuration into v and returns it validated. file is an
// optional YAML file. Environment variables win over the file:
// OMEKA_API, OMEKA_KEY_IDENTITY (or OMEKA_ID), OMEKA_KEY_CREDENTIAL (or
// OMEKA_KEY), OMEKA_PROPERTY_CACHE_TTL and so on. DEBUG containing "omeka-s",
// or DEBUG=*, forces the debug log level.
func Load(v *viper.Viper, file string) (Config, error) {
	if v == nil {
		v = viper.New()
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv(KeyKeyIdentity, EnvPrefix+"_KEY_IDENTITY", EnvPrefix+"_ID")
	_ = v.BindEnv(KeyKeyCredential, EnvPrefix+"_KEY_CREDENTIAL", EnvPrefix+"_KEY")

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrap(err, errors.CategoryBadInput, "read config file "+file).
				WithTextCode("CONFIG_READ")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, errors.CategoryBadInput, "decode config").
			WithTextCode("CONFIG_DECODE")
	}

	if debugRequested(os.Getenv("DEBUG")) {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func debugRequested(debug string) bool {
	return debug == "*" || strings.Contains(debug, debugTag)
}

// Validate checks the configuration.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.API, validation.Required, validation.By(absoluteURL)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.LogLevel, validation.In(logLevels...)),
		validation.Field(&c.PageSize, validation.Min(0)),
		validation.Field(&c.PropertyCache),
		validation.Field(&c.TemplateCache),
	)
	if err != nil {
		return errors.FromOzzoValidation(err, "invalid configuration")
	}
	return nil
}

func absoluteURL(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return validation.NewError("validation_absolute_url", "must be an absolute URL")
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level, info when unset.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger builds a text logger writing to w at the configured level.
func (c Config) Logger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: c.SlogLevel()}))
}
