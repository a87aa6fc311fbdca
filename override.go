// FILE: lixenwraith/monitor/override.go
package monitor

import (
	"fmt"
	"strings"
)

// ApplyOverride applies string key-value overrides to the configuration.
// Each override should be in the format "key=value". Values are converted by the
// setting schema, so list settings take comma separated strings.
// The configuration is modified only if every override is valid.
//
// Example:
//
//	cfg := monitor.DefaultConfig()
//	err := cfg.ApplyOverride(
//	    "directory=/var/log/host",
//	    "max_lines=1000",
//	    "jsonl_enabled=true",
//	)
func (c *Config) ApplyOverride(overrides ...string) error {
	next := c.Clone()

	var errors []error

	for _, override := range overrides {
		key, value, err := parseKeyValue(override)
		if err != nil {
			errors = append(errors, err)
			continue
		}

		if err := applyConfigField(next, key, value); err != nil {
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return combineConfigErrors(errors)
	}

	if err := next.Validate(); err != nil {
		return err
	}

	*c = *next
	return nil
}

// combineConfigErrors combines multiple configuration errors into a single error.
func combineConfigErrors(errors []error) error {
	if len(errors) == 0 {
		return nil
	}
	if len(errors) == 1 {
		return errors[0]
	}

	var sb strings.Builder
	sb.WriteString("monitor: multiple configuration errors:")
	for i, err := range errors {
		errMsg := strings.TrimPrefix(err.Error(), "monitor: ")
		sb.WriteString(fmt.Sprintf("\n  %d. %s", i+1, errMsg))
	}
	return fmt.Errorf("%s", sb.String())
}

// applyConfigField applies a single key-value override to a Config.
func applyConfigField(cfg *Config, key, value string) error {
	s, ok := lookupSetting(strings.ToLower(key))
	if !ok {
		return fmtErrorf("unknown config key: %s", key)
	}

	v, err := s.convert(value)
	if err != nil {
		return err
	}
	s.set(cfg, v)
	return nil
}
