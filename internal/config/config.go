// Package config loads csengo's configuration: a YAML file read
// through viper for the tunables that benefit from hot reload,
// layered with the handful of plain environment variables the
// original implementation read directly (HOST, PORT, MAIL_ADDR,
// MAIL_PASS, MAIL_SIGNATURE).
package config

import (
	"os"
	"strconv"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds everything csengo needs to start serving.
type Config struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	Storage struct {
		DatabasePath string `mapstructure:"database_path"`
	} `mapstructure:"storage"`

	Audio struct {
		SampleRate int `mapstructure:"sample_rate"`
		// SilenceFillerMS is loaded but not read by the sink, which
		// always uses its own fixed 500 ms zero-sample filler while
		// its track queue is empty.
		SilenceFillerMS int `mapstructure:"silence_filler_ms"`
	} `mapstructure:"audio"`

	HTTP struct {
		RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
		RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	} `mapstructure:"http"`

	Mail struct {
		Addr string `mapstructure:"addr"`
		// Pass is never read from the config file, only from
		// MAIL_PASS, so it can't end up committed to disk.
		Pass      string `mapstructure:"-"`
		Signature string `mapstructure:"signature"`
	} `mapstructure:"mail"`

	LogLevel  string `mapstructure:"log_level"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// DBVersion is the user_version the store migrates the schema to on
// open. Bump it, and add a migration, whenever the schema changes.
const DBVersion = 1

func setDefaults() {
	viper.SetDefault("host", "0.0.0.0")
	viper.SetDefault("port", 8080)

	viper.SetDefault("storage.database_path", "./csengo.db")

	viper.SetDefault("audio.sample_rate", 44100)
	viper.SetDefault("audio.silence_filler_ms", 500)

	viper.SetDefault("http.rate_limit_rps", 20.0)
	viper.SetDefault("http.rate_limit_burst", 40)

	viper.SetDefault("mail.signature", "csengő")
	viper.SetDefault("log_level", "info")
}

// Load reads ./config.yaml, if present, applies defaults, then
// overlays the bare environment variables named above — those always
// win over the config file, so an operator can override a single
// value without editing YAML.
func Load(configPath string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("CSENGO")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(&cfg)

	viper.OnConfigChange(func(e fsnotify.Event) {
		log.Info().Str("file", e.Name).Msg("config file changed, reloading")
		if err := viper.Unmarshal(&cfg); err != nil {
			log.Error().Err(err).Msg("failed to reload config")
			return
		}
		applyEnvOverrides(&cfg)

		if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
			zerolog.SetGlobalLevel(level)
		}
	})
	viper.WatchConfig()

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := os.Getenv("MAIL_ADDR"); v != "" {
		cfg.Mail.Addr = v
	}
	if v := os.Getenv("MAIL_PASS"); v != "" {
		cfg.Mail.Pass = v
	}
	if v := os.Getenv("MAIL_SIGNATURE"); v != "" {
		cfg.Mail.Signature = v
	}
	if v := os.Getenv("CSENGO_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("SENTRY_DSN"); v != "" {
		cfg.SentryDSN = v
	}
}
