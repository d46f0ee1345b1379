// Package config resolves runtime settings from defaults, an optional YAML
// file and ADUI_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/red1oon/ADUI/pkg/logging"
	"github.com/red1oon/ADUI/pkg/provider"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ADUI_"

// Config holds every tunable.
type Config struct {
	Provider       string        `yaml:"provider" validate:"required,providerkind"`
	BaseURL        string        `yaml:"baseURL" validate:"omitempty,url"`
	CacheTTL       time.Duration `yaml:"cacheTTL" validate:"gte=0"`
	RequestTimeout time.Duration `yaml:"requestTimeout" validate:"gt=0"`
	PollInterval   time.Duration `yaml:"pollInterval" validate:"gt=0"`
	GracePeriod    time.Duration `yaml:"gracePeriod" validate:"gte=0"`
	ImportPath     string        `yaml:"importPath"`
	WatchImport    bool          `yaml:"watchImport"`
	StorePath      string        `yaml:"storePath"`
	LogLevel       string        `yaml:"logLevel" validate:"oneof=debug info warn warning error"`
	LogFormat      string        `yaml:"logFormat" validate:"oneof=text json"`
	MetricsAddr    string        `yaml:"metricsAddr" validate:"omitempty,hostname_port"`
	DisplayLogic   string        `yaml:"displayLogic" validate:"oneof=off expr cel"`
}

// Display logic evaluators selectable through Config.DisplayLogic.
const (
	DisplayLogicOff  = "off"
	DisplayLogicExpr = "expr"
	DisplayLogicCEL  = "cel"
)

// Default returns the built-in settings: the mock provider with a five
// minute cache.
func Default() Config {
	return Config{
		Provider:       string(provider.KindMock),
		CacheTTL:       provider.DefaultTTL,
		RequestTimeout: 10 * time.Second,
		PollInterval:   30 * time.Second,
		GracePeriod:    2 * time.Minute,
		LogLevel:       "info",
		LogFormat:      "text",
		DisplayLogic:   DisplayLogicExpr,
	}
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("providerkind", func(fl validator.FieldLevel) bool {
		_, err := provider.ParseKind(fl.Field().String())
		return err == nil
	})
}

// Load resolves and validates the configuration. path may be empty. lookup
// defaults to os.LookupEnv.
func Load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg, err := Resolve(path, lookup)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Resolve merges defaults, the file and the environment without validating,
// so callers can layer flags on top before calling Validate.
func Resolve(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: decode %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"PROVIDER":      &c.Provider,
		"BASE_URL":      &c.BaseURL,
		"IMPORT_PATH":   &c.ImportPath,
		"STORE_PATH":    &c.StorePath,
		"LOG_LEVEL":     &c.LogLevel,
		"LOG_FORMAT":    &c.LogFormat,
		"METRICS_ADDR":  &c.MetricsAddr,
		"DISPLAY_LOGIC": &c.DisplayLogic,
	}
	for key, target := range strs {
		if value, ok := lookup(EnvPrefix + key); ok {
			*target = strings.TrimSpace(value)
		}
	}

	durations := map[string]*time.Duration{
		"CACHE_TTL":       &c.CacheTTL,
		"REQUEST_TIMEOUT": &c.RequestTimeout,
		"POLL_INTERVAL":   &c.PollInterval,
		"GRACE_PERIOD":    &c.GracePeriod,
	}
	for key, target := range durations {
		value, ok := lookup(EnvPrefix + key)
		if !ok {
			continue
		}
		d, err := parseDuration(value)
		if err != nil {
			return fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err)
		}
		*target = d
	}

	if value, ok := lookup(EnvPrefix + "WATCH_IMPORT"); ok {
		watch, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("config: %sWATCH_IMPORT: %w", EnvPrefix, err)
		}
		c.WatchImport = watch
	}
	return nil
}

// parseDuration accepts Go durations ("90s") or a bare number of seconds.
func parseDuration(raw string) (time.Duration, error) {
	value := strings.TrimSpace(raw)
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	return time.ParseDuration(value)
}

// Validate checks field constraints and provider specific requirements.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config: %w", err)
	}
	kind := c.Kind()
	if kind.Polls() && c.BaseURL == "" {
		return fmt.Errorf("config: provider %q requires baseURL", kind)
	}
	if kind == provider.KindJSONFile && c.ImportPath == "" {
		return fmt.Errorf("config: provider %q requires importPath", kind)
	}
	return nil
}

// Kind returns the selected provider kind. Call after Validate.
func (c Config) Kind() provider.Kind {
	kind, _ := provider.ParseKind(c.Provider)
	return kind
}

// DisplayLogicEnabled reports whether adapted fields keep their display
// logic rules.
func (c Config) DisplayLogicEnabled() bool {
	return c.DisplayLogic != "" && c.DisplayLogic != DisplayLogicOff
}

// LoggingConfig maps the log settings onto the logging package.
func (c Config) LoggingConfig() logging.Config {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		level = logging.LevelInfo
	}
	return logging.Config{
		Level:   level,
		JSON:    strings.EqualFold(c.LogFormat, "json"),
		Service: "adui",
	}
}
