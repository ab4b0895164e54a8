package types

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Config holds the workspace parameters shared by every component.
type Config struct {
	DataDir        string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir" validate:"required"`
	LogLevel       string `json:"log_level" yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	LogFormat      string `json:"log_format" yaml:"log_format" mapstructure:"log_format" validate:"omitempty,oneof=console json"`
	DefaultPackage string `json:"default_package" yaml:"default_package" mapstructure:"default_package"`
}

// Default configuration values.
const (
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "console"
	DefaultPackageName = "multideck"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Validate checks that the Config is well-formed.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// PackageName returns the configured package file stem or the default.
func (c Config) PackageName() string {
	if c.DefaultPackage == "" {
		return DefaultPackageName
	}
	return c.DefaultPackage
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct runs struct-tag validation and wraps failures in ErrInvalidData.
func validateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return nil
}
