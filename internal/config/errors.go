package config

import (
	"fmt"
	"sort"
	"strings"
)

// ConfigError represents a configuration loading error.
type ConfigError struct {
	Op  string // read, unmarshal
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s error: %v", e.Op, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ValidationError lists every invalid setting found by Validate.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0])
	}
	errs := append([]string(nil), e.Errors...)
	sort.Strings(errs)
	return fmt.Sprintf("configuration validation failed with %d errors:\n  - %s",
		len(errs), strings.Join(errs, "\n  - "))
}

// HasError reports whether any problem mentions field.
func (e *ValidationError) HasError(field string) bool {
	for _, err := range e.Errors {
		if strings.Contains(err, field) {
			return true
		}
	}
	return false
}
