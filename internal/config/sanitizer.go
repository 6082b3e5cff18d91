package config

import (
	"encoding/json"
)

// ConfigSanitizer redacts sensitive fields before a Config is logged.
type ConfigSanitizer interface {
	Sanitize(cfg *Config) *Config
}

// DefaultConfigSanitizer implements ConfigSanitizer.
type DefaultConfigSanitizer struct {
	redactionValue string
}

// NewDefaultConfigSanitizer creates a DefaultConfigSanitizer.
func NewDefaultConfigSanitizer() ConfigSanitizer {
	return &DefaultConfigSanitizer{redactionValue: "***REDACTED***"}
}

// NewConfigSanitizer creates a ConfigSanitizer with a custom redaction value.
func NewConfigSanitizer(redactionValue string) ConfigSanitizer {
	return &DefaultConfigSanitizer{redactionValue: redactionValue}
}

// Sanitize redacts every bucket password.
func (s *DefaultConfigSanitizer) Sanitize(cfg *Config) *Config {
	sanitized := s.deepCopy(cfg)
	for i := range sanitized.Buckets {
		if sanitized.Buckets[i].Password != "" {
			sanitized.Buckets[i].Password = s.redactionValue
		}
	}
	return sanitized
}

func (s *DefaultConfigSanitizer) deepCopy(cfg *Config) *Config {
	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return cfg
	}
	var configCopy Config
	if err := json.Unmarshal(configJSON, &configCopy); err != nil {
		return cfg
	}
	return &configCopy
}
