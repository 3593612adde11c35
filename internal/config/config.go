// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	UI        UIConfig        `mapstructure:"ui"`
	Market    MarketConfig    `mapstructure:"market"`
	Identity  IdentityConfig  `mapstructure:"identity"`
	Firebase  FirebaseConfig  `mapstructure:"firebase"`
	Mirror    MirrorConfig    `mapstructure:"mirror"`
	Portfolio PortfolioConfig `mapstructure:"portfolio"`
	Log       LogConfig       `mapstructure:"log"`
}

// UIConfig delays are in milliseconds.
type UIConfig struct {
	RedrawDelayMs     int `mapstructure:"redraw_delay"`
	AuthCooldownMs    int `mapstructure:"auth_cooldown"`
	InputErrorDelayMs int `mapstructure:"input_error_delay"`
	ProgressSteps     int `mapstructure:"progress_steps"`
	ProgressDelayMs   int `mapstructure:"progress_delay"`
}

type MarketConfig struct {
	URL       string `mapstructure:"url"`
	TimeoutMs int    `mapstructure:"timeout"`
}

type IdentityConfig struct {
	Provider  string `mapstructure:"provider"`
	UsersFile string `mapstructure:"users_file"`
}

type FirebaseConfig struct {
	APIKey      string `mapstructure:"api_key"`
	DatabaseURL string `mapstructure:"database_url"`
	AuthURL     string `mapstructure:"auth_url"`
}

type MirrorConfig struct {
	MaxTries     int `mapstructure:"max_tries"`
	MaxElapsedMs int `mapstructure:"max_elapsed"`
}

type PortfolioConfig struct {
	File string `mapstructure:"file"`
}

type LogConfig struct {
	File    string `mapstructure:"file"`
	Debug   bool   `mapstructure:"debug"`
	Console bool   `mapstructure:"console"`
}

const (
	ProviderLocal    = "local"
	ProviderFirebase = "firebase"

	DefaultRedrawDelay     = 2000
	DefaultAuthCooldown    = 2000
	DefaultInputErrorDelay = 1500
	DefaultProgressSteps   = 3
	DefaultProgressDelay   = 200
	DefaultMarketTimeout   = 10000
	DefaultMirrorMaxTries  = 3
	DefaultMirrorElapsed   = 5000

	DefaultMarketURL   = "https://api.coingecko.com/api/v3/simple/price"
	DefaultAuthURL     = "https://identitytoolkit.googleapis.com/v1"
	DefaultLedgerFile  = "data/portfolio.json"
	DefaultUsersFile   = "data/users.json"
	DefaultLogFile     = "logs/cryptofolio.log"
	EnvPrefix          = "CRYPTOFOLIO"
	defaultEnvFileName = ".env"
)

func (c UIConfig) RedrawDelay() time.Duration     { return ms(c.RedrawDelayMs) }
func (c UIConfig) AuthCooldown() time.Duration    { return ms(c.AuthCooldownMs) }
func (c UIConfig) InputErrorDelay() time.Duration { return ms(c.InputErrorDelayMs) }
func (c UIConfig) ProgressDelay() time.Duration   { return ms(c.ProgressDelayMs) }
func (c MarketConfig) Timeout() time.Duration     { return ms(c.TimeoutMs) }
func (c MirrorConfig) MaxElapsed() time.Duration  { return ms(c.MaxElapsedMs) }

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// LoadEnv loads dotenv files into the process environment. Missing files are
// skipped; with no arguments ".env" is tried.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{defaultEnvFileName}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// LoadConfig reads the optional config file at path, applies environment
// overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	defaults := map[string]interface{}{
		"ui.redraw_delay":       DefaultRedrawDelay,
		"ui.auth_cooldown":      DefaultAuthCooldown,
		"ui.input_error_delay":  DefaultInputErrorDelay,
		"ui.progress_steps":     DefaultProgressSteps,
		"ui.progress_delay":     DefaultProgressDelay,
		"market.url":            DefaultMarketURL,
		"market.timeout":        DefaultMarketTimeout,
		"identity.provider":     ProviderLocal,
		"identity.users_file":   DefaultUsersFile,
		"firebase.api_key":      "",
		"firebase.database_url": "",
		"firebase.auth_url":     DefaultAuthURL,
		"mirror.max_tries":      DefaultMirrorMaxTries,
		"mirror.max_elapsed":    DefaultMirrorElapsed,
		"portfolio.file":        DefaultLedgerFile,
		"log.file":              DefaultLogFile,
		"log.debug":             false,
		"log.console":           false,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := loadEnvironmentVariables(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	switch cfg.Identity.Provider {
	case ProviderLocal:
		if cfg.Identity.UsersFile == "" {
			return errors.New("identity.users_file is required for the local provider")
		}
	case ProviderFirebase:
		if cfg.Firebase.APIKey == "" {
			return errors.New("missing firebase.api_key for the firebase provider")
		}
		if err := validateURLWithCache(cfg.Firebase.AuthURL, "http"); err != nil {
			return fmt.Errorf("invalid firebase.auth_url: %w", err)
		}
	default:
		return fmt.Errorf("unknown identity.provider %q", cfg.Identity.Provider)
	}
	if cfg.Firebase.DatabaseURL != "" {
		if err := validateURLWithCache(cfg.Firebase.DatabaseURL, "http"); err != nil {
			return fmt.Errorf("invalid firebase.database_url: %w", err)
		}
	}
	if err := validateURLWithCache(cfg.Market.URL, "http"); err != nil {
		return fmt.Errorf("invalid market.url: %w", err)
	}
	if cfg.Portfolio.File == "" {
		return errors.New("portfolio.file is empty")
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.UI.RedrawDelayMs < 0 {
		return errors.New("invalid ui.redraw_delay")
	}
	if cfg.UI.AuthCooldownMs < 0 {
		return errors.New("invalid ui.auth_cooldown")
	}
	if cfg.UI.InputErrorDelayMs < 0 {
		return errors.New("invalid ui.input_error_delay")
	}
	if cfg.UI.ProgressSteps < 0 {
		return errors.New("invalid ui.progress_steps")
	}
	if cfg.UI.ProgressDelayMs < 0 {
		return errors.New("invalid ui.progress_delay")
	}
	if cfg.Market.TimeoutMs <= 0 {
		return errors.New("invalid market.timeout")
	}
	if cfg.Mirror.MaxTries < 1 {
		return errors.New("invalid mirror.max_tries")
	}
	if cfg.Mirror.MaxElapsedMs < 0 {
		return errors.New("invalid mirror.max_elapsed")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

// loadEnvironmentVariables enables CRYPTOFOLIO_* overrides and also binds the
// unprefixed names used by existing .env files.
func loadEnvironmentVariables(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindings := map[string]string{
		"firebase.api_key":      "FIREBASE_API_KEY",
		"firebase.database_url": "FIREBASE_DATABASE_URL",
		"market.url":            "COINGECKO_API_URL",
	}
	for key, legacy := range bindings {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}
