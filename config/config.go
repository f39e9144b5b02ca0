// Package config loads extraction limits from a YAML file. The limits
// are handed to the core as explicit options; the core itself has no
// hidden constants.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/georgepadayatti/esigninfo/esign/extract"
	"github.com/georgepadayatti/esigninfo/esign/pkcs7"
)

// ErrConfigurationError is the base error for configuration problems.
var ErrConfigurationError = errors.New("configuration error")

// ConfigError represents a configuration error with context.
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

func (e *ConfigError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrConfigurationError
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// ExtractionConfig bounds the work one extraction may do.
type ExtractionConfig struct {
	// MinCertSize and MaxCertSize bound the plausible DER size of a
	// certificate in the byte-pattern scan.
	MinCertSize int `yaml:"min-cert-size" json:"min_cert_size"`
	MaxCertSize int `yaml:"max-cert-size" json:"max_cert_size"`

	// MaxCandidates caps certificate candidates per signature blob.
	// Zero means no cap.
	MaxCandidates int `yaml:"max-candidates" json:"max_candidates"`

	// MaxSignatures caps signature candidates per document. Zero means
	// all of them.
	MaxSignatures int `yaml:"max-signatures" json:"max_signatures"`
}

// Default returns the extraction limits used without a config file.
func Default() *ExtractionConfig {
	return &ExtractionConfig{
		MinCertSize: pkcs7.DefaultLimits.MinCertSize,
		MaxCertSize: pkcs7.DefaultLimits.MaxCertSize,
	}
}

// Load reads an extraction configuration from a YAML file. Missing
// size bounds fall back to the defaults.
func Load(filename string) (*ExtractionConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", filename, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &ConfigError{Message: "not valid YAML", Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for impossible bounds.
func (c *ExtractionConfig) Validate() error {
	if c.MinCertSize < 0 {
		return NewConfigError("min-cert-size", "must not be negative")
	}
	if c.MaxCertSize <= 0 {
		return NewConfigError("max-cert-size", "must be positive")
	}
	if c.MinCertSize >= c.MaxCertSize {
		return NewConfigError("min-cert-size", "must be smaller than max-cert-size")
	}
	if c.MaxCandidates < 0 {
		return NewConfigError("max-candidates", "must not be negative")
	}
	if c.MaxSignatures < 0 {
		return NewConfigError("max-signatures", "must not be negative")
	}
	return nil
}

// Options converts the configuration into core extraction options.
func (c *ExtractionConfig) Options() extract.Options {
	return extract.Options{
		Limits: pkcs7.Limits{
			MinCertSize:   c.MinCertSize,
			MaxCertSize:   c.MaxCertSize,
			MaxCandidates: c.MaxCandidates,
		},
		MaxSignatures: c.MaxSignatures,
	}
}
