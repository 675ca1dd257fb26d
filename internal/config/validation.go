package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/giantswarm/conductor/internal/container"
	"github.com/giantswarm/conductor/internal/service"
	"github.com/giantswarm/conductor/pkg/logging"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// ValidateOneOf checks if a value is in a list of allowed values
func ValidateOneOf(field, value string, allowed []string) error {
	for _, allowedValue := range allowed {
		if value == allowedValue {
			return nil
		}
	}
	return ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

var metricNamespacePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Validate checks the configuration and reports every problem found.
func (c Config) Validate() error {
	var errs ValidationErrors

	if c.Container.Workers < 0 {
		errs.Add("container.workers", "must not be negative", c.Container.Workers)
	}
	if c.Container.ShutdownTimeout < 0 {
		errs.Add("container.shutdownTimeout", "must not be negative", c.Container.ShutdownTimeout)
	}
	if c.Container.StabilityTimeout < 0 {
		errs.Add("container.stabilityTimeout", "must not be negative", c.Container.StabilityTimeout)
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs.Add("logging.level", err.Error(), c.Logging.Level)
	}
	if err := ValidateOneOf("logging.format", c.Logging.Format, []string{string(logging.FormatText), string(logging.FormatJSON)}); err != nil {
		errs = append(errs, err.(ValidationError))
	}

	if c.Metrics.Namespace != "" && !metricNamespacePattern.MatchString(c.Metrics.Namespace) {
		errs.Add("metrics.namespace", "must be a valid Prometheus metric name prefix", c.Metrics.Namespace)
	}
	if c.Metrics.Enabled && c.Metrics.ListenAddress == "" {
		errs.Add("metrics.listenAddress", "is required when metrics are enabled")
	}

	c.validateServices(&errs)

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func (c Config) validateServices(errs *ValidationErrors) {
	declared := make(map[service.Name]string)
	claim := func(field, raw string) {
		n, err := service.ParseName(raw)
		if err != nil {
			errs.Add(field, err.Error(), raw)
			return
		}
		if owner, dup := declared[n]; dup {
			errs.Add(field, fmt.Sprintf("name %s is already declared by %s", n, owner), raw)
			return
		}
		declared[n] = field
	}

	for i, s := range c.Services {
		prefix := fmt.Sprintf("services[%d]", i)
		claim(prefix+".name", s.Name)
		for j, a := range s.Aliases {
			claim(fmt.Sprintf("%s.aliases[%d]", prefix, j), a)
		}
		for j, d := range s.Dependencies {
			if _, err := service.ParseName(d); err != nil {
				errs.Add(fmt.Sprintf("%s.dependencies[%d]", prefix, j), err.Error(), d)
			}
		}
		for j, d := range s.OptionalDependencies {
			if _, err := service.ParseName(d); err != nil {
				errs.Add(fmt.Sprintf("%s.optionalDependencies[%d]", prefix, j), err.Error(), d)
			}
		}
		if mode, err := container.ParseMode(s.Mode); err != nil {
			errs.Add(prefix+".mode", err.Error(), s.Mode)
		} else if mode == container.ModeRemove {
			errs.Add(prefix+".mode", "must be ACTIVE or NEVER", s.Mode)
		}
		if s.FailStarts < 0 {
			errs.Add(prefix+".failStarts", "must not be negative", s.FailStarts)
		}
		if s.StartDelay < 0 {
			errs.Add(prefix+".startDelay", "must not be negative", s.StartDelay)
		}
	}
}

// ServiceName parses the declared primary name.
func (s ServiceConfig) ServiceName() (service.Name, error) {
	return service.ParseName(s.Name)
}

// InitialMode parses the declared mode.
func (s ServiceConfig) InitialMode() (container.Mode, error) {
	return container.ParseMode(s.Mode)
}

// parseNames parses a list of canonical names.
func parseNames(raw []string) ([]service.Name, error) {
	names := make([]service.Name, 0, len(raw))
	for _, r := range raw {
		n, err := service.ParseName(r)
		if err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, nil
}

// AliasNames parses the declared aliases.
func (s ServiceConfig) AliasNames() ([]service.Name, error) {
	return parseNames(s.Aliases)
}

// DependencyNames parses the declared required dependencies.
func (s ServiceConfig) DependencyNames() ([]service.Name, error) {
	return parseNames(s.Dependencies)
}

// OptionalDependencyNames parses the declared optional dependencies.
func (s ServiceConfig) OptionalDependencyNames() ([]service.Name, error) {
	return parseNames(s.OptionalDependencies)
}
