package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// AddFlagValidation wraps a flag so invalid values are rejected while the
// command line is parsed.
func AddFlagValidation(flags *pflag.FlagSet, flagName string, validator func(string) error) {
	flag := flags.Lookup(flagName)
	if flag == nil {
		return
	}
	flag.Value = &validatingValue{Value: flag.Value, validator: validator}
}

type validatingValue struct {
	pflag.Value
	validator func(string) error
}

func (v *validatingValue) Set(val string) error {
	if err := v.validator(val); err != nil {
		return err
	}
	return v.Value.Set(val)
}

// validateFormat accepts one of allowed, case-insensitively, and suggests
// the closest match otherwise.
func validateFormat(format string, allowed []string) error {
	lower := strings.ToLower(format)
	for _, a := range allowed {
		if lower == a {
			return nil
		}
	}
	for _, a := range allowed {
		if lower != "" && (strings.HasPrefix(a, lower) || strings.HasPrefix(lower, a)) {
			return fmt.Errorf("unsupported format %q, did you mean %q? (supported: %s)", format, a, strings.Join(allowed, ", "))
		}
	}
	return fmt.Errorf("unsupported format %q (supported: %s)", format, strings.Join(allowed, ", "))
}

// ValidatePort checks a TCP port flag value.
func ValidatePort(portStr string) error {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port number: %s", portStr)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}
