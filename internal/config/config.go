// Package config loads crudkit's own settings: where the compose file and
// environment file live, how services are named, and which migration and
// test tooling to drive. Settings come from (highest first) command-line
// flags, CRUDKIT_* environment variables, a .crudkit.yaml file and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/mattn/go-shellwords"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "CRUDKIT"

// Settings is the resolved tool configuration.
type Settings struct {
	EnvFile     string `mapstructure:"env_file" validate:"required" yaml:"env_file"`
	ComposeFile string `mapstructure:"compose_file" yaml:"compose_file"`
	Project     string `mapstructure:"project" yaml:"project,omitempty"`
	DryRun      bool   `mapstructure:"dry_run" yaml:"-"`

	Services   Services          `mapstructure:"services" yaml:"services"`
	Volumes    []string          `mapstructure:"volumes" validate:"dive,required" yaml:"volumes"`
	Env        EnvSettings       `mapstructure:"env" yaml:"env"`
	Migrations MigrationSettings `mapstructure:"migrations" yaml:"migrations"`
	Test       TestSettings      `mapstructure:"test" yaml:"test"`
	Log        LogSettings       `mapstructure:"log" yaml:"log"`
}

// Services maps each stack role to its compose service name.
type Services struct {
	App      string `mapstructure:"app" validate:"required" yaml:"app"`
	Postgres string `mapstructure:"postgres" validate:"required" yaml:"postgres"`
	MySQL    string `mapstructure:"mysql" validate:"required" yaml:"mysql"`
	Mongo    string `mapstructure:"mongo" validate:"required" yaml:"mongo"`
}

// EnvSettings lists keys that must be present in the environment file.
type EnvSettings struct {
	Required []string `mapstructure:"required" yaml:"required,omitempty"`
}

// MigrationSettings selects the migration backend.
type MigrationSettings struct {
	Backend string `mapstructure:"backend" validate:"required,oneof=alembic sql" yaml:"backend"`
	Dir     string `mapstructure:"dir" validate:"required" yaml:"dir"`
	Table   string `mapstructure:"table" validate:"required" yaml:"table"`
}

// TestSettings configures the in-container test runner.
type TestSettings struct {
	Command string `mapstructure:"command" yaml:"command,omitempty"`
}

// LogSettings configures logrus.
type LogSettings struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error" yaml:"level"`
	Format string `mapstructure:"format" validate:"oneof=text json" yaml:"format"`
}

// TestArgv splits the configured test command with shell quoting rules.
// It returns nil when no command is configured.
func (t TestSettings) TestArgv() ([]string, error) {
	if strings.TrimSpace(t.Command) == "" {
		return nil, nil
	}
	argv, err := shellwords.Parse(t.Command)
	if err != nil {
		return nil, fmt.Errorf("invalid test command %q: %w", t.Command, err)
	}
	return argv, nil
}

// New returns a viper instance with defaults and environment binding applied
// and the settings file (if any) read. An explicit configPath must exist.
func New(configPath string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(".crudkit")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath == "" && errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return v, nil
}

// Load decodes and validates settings from v.
func Load(v *viper.Viper) (*Settings, error) {
	var s Settings
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&s, hook); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	s.normalize()
	if err := Validate(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) normalize() {
	s.Log.Level = strings.ToLower(s.Log.Level)
	s.Log.Format = strings.ToLower(s.Log.Format)
	s.Migrations.Backend = strings.ToLower(s.Migrations.Backend)
	vols := s.Volumes[:0]
	for _, vol := range s.Volumes {
		if vol = strings.TrimSpace(vol); vol != "" {
			vols = append(vols, vol)
		}
	}
	s.Volumes = vols
}

// ConfigFileUsed reports the settings file read by v, or "".
func ConfigFileUsed(v *viper.Viper) string {
	if f := v.ConfigFileUsed(); f != "" {
		if abs, err := filepath.Abs(f); err == nil {
			return abs
		}
		return f
	}
	return ""
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks settings values.
func Validate(s *Settings) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, &ValidationError{
			Field:   settingName(fe.Namespace()),
			Value:   fe.Value(),
			Message: message(fe),
		})
	}
	return fmt.Errorf("invalid settings: %w", errors.Join(errs...))
}

// ValidationError describes a settings field that failed validation.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be empty"
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

// settingName converts "Settings.migrations.backend" into "migrations.backend".
func settingName(ns string) string {
	if _, rest, found := strings.Cut(ns, "."); found {
		return rest
	}
	return ns
}
