// Package config loads the process-wide framework configuration.
//
// Configuration is read once, before any service is built, from an optional
// YAML, JSON or TOML file and SERVACTORY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

// EnvPrefix prefixes every environment override, e.g. SERVACTORY_LOCALE.
const EnvPrefix = "SERVACTORY"

// Config is the framework configuration.
type Config struct {
	// MessageRoot is the first segment of every message catalog key.
	MessageRoot string `mapstructure:"message_root" validate:"required,identifier"`

	// Locale selects the message catalog language (BCP 47).
	Locale string `mapstructure:"locale" validate:"required,locale"`

	// PredicateMethods enables the Has presence accessors.
	PredicateMethods bool `mapstructure:"predicate_methods"`

	// ActionShortcuts are the prefixes accepted by Builder.Shortcut.
	ActionShortcuts []string `mapstructure:"action_shortcuts" validate:"dive,identifier"`

	// ActionAliases are the names accepted by Builder.Alias.
	ActionAliases []string `mapstructure:"action_aliases" validate:"dive,identifier"`

	Log     LogConfig     `mapstructure:"log"`
	Journal JournalConfig `mapstructure:"journal"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// JournalConfig configures the idempotency journal.
type JournalConfig struct {
	// Path of the SQLite database. Empty disables the journal.
	Path string `mapstructure:"path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		MessageRoot: "servactory",
		Locale:      "en",
		Log:         LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads path (optional) and environment overrides on top of the
// defaults, then validates the result.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("message_root", d.MessageRoot)
	v.SetDefault("locale", d.Locale)
	v.SetDefault("predicate_methods", d.PredicateMethods)
	v.SetDefault("action_shortcuts", d.ActionShortcuts)
	v.SetDefault("action_aliases", d.ActionAliases)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("journal.path", d.Journal.Path)
}

var identifierPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
		return identifierPattern.MatchString(fl.Field().String())
	})
	v.RegisterValidation("locale", func(fl validator.FieldLevel) bool {
		_, err := language.Parse(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks field constraints.
func (c Config) Validate() error {
	err := newValidator().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Language returns the parsed locale, English when it does not parse.
func (c Config) Language() language.Tag {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.English
	}
	return tag
}
