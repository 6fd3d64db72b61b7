// env_config.go: Environment variable expansion in registry configuration
//
// Folder, URL and file settings of a RegistryConfig may reference the
// environment with ${VAR} or ${VAR:-default}, as in
// "${HOME}/.app/extensions". Expansion runs when a configuration file is
// loaded, before validation.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package goextensions

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// maxEnvValueLength bounds expanded environment values.
const maxEnvValueLength = 4096

var envVariablePattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// EnvConfigOptions configures environment variable expansion.
type EnvConfigOptions struct {
	// Prefix is tried before the bare variable name, as in
	// GO_EXTENSIONS_HOME before HOME.
	Prefix string `json:"prefix" yaml:"prefix"`

	// FailOnMissing rejects variables without value nor default.
	FailOnMissing bool `json:"fail_on_missing" yaml:"fail_on_missing"`

	// ValidateValues rejects values with NUL or control characters and
	// values longer than 4096 bytes.
	ValidateValues bool `json:"validate_values" yaml:"validate_values"`

	// Defaults apply to variables that are unset and have no inline default.
	Defaults map[string]string `json:"defaults,omitempty" yaml:"defaults,omitempty"`
}

// DefaultEnvConfigOptions returns the options used by LoadRegistryConfig.
func DefaultEnvConfigOptions() EnvConfigOptions {
	return EnvConfigOptions{
		Prefix:         "GO_EXTENSIONS_",
		ValidateValues: true,
		Defaults:       make(map[string]string),
	}
}

// ExpandEnvironmentVariables replaces ${VAR} and ${VAR:-default} placeholders
// of input. A variable resolves, in order, to the prefixed environment
// variable, the bare environment variable, the inline default, then
// options.Defaults; otherwise to "" or an error when FailOnMissing is set.
func ExpandEnvironmentVariables(input string, options EnvConfigOptions) (string, error) {
	if !strings.Contains(input, "${") {
		return input, nil
	}

	var firstErr error
	result := envVariablePattern.ReplaceAllStringFunc(input, func(match string) string {
		submatches := envVariablePattern.FindStringSubmatch(match)
		value, err := expandEnvironmentVariable(submatches[1], submatches[3], options)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return match
		}
		return value
	})
	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

func expandEnvironmentVariable(name, inlineDefault string, options EnvConfigOptions) (string, error) {
	if value := os.Getenv(options.Prefix + name); options.Prefix != "" && value != "" {
		return validateEnvValue(name, value, options)
	}
	if value := os.Getenv(name); value != "" {
		return validateEnvValue(name, value, options)
	}
	if inlineDefault != "" {
		return validateEnvValue(name, inlineDefault, options)
	}
	if value, ok := options.Defaults[name]; ok {
		return validateEnvValue(name, value, options)
	}
	if options.FailOnMissing {
		return "", NewConfigInvalidValueError("${"+name+"}", "")
	}
	return "", nil
}

func validateEnvValue(name, value string, options EnvConfigOptions) (string, error) {
	if !options.ValidateValues {
		return value, nil
	}
	if len(value) > maxEnvValueLength {
		return "", NewConfigInvalidValueError("${"+name+"}", fmt.Sprintf("%d bytes", len(value)))
	}
	for i, r := range value {
		if r < 32 && r != '\t' {
			return "", NewConfigInvalidValueError("${"+name+"}", fmt.Sprintf("control character at %d", i))
		}
	}
	return value, nil
}

// ExpandEnvironment expands the placeholders of the folder, URL, cache and
// audit file settings.
func (c *RegistryConfig) ExpandEnvironment(options EnvConfigOptions) error {
	expandAll := func(values []string) error {
		for i, value := range values {
			expanded, err := ExpandEnvironmentVariables(value, options)
			if err != nil {
				return err
			}
			values[i] = expanded
		}
		return nil
	}

	if err := expandAll(c.Folders); err != nil {
		return err
	}
	if err := expandAll(c.URLs); err != nil {
		return err
	}
	for _, field := range []*string{&c.CacheFolder, &c.CachePrefix, &c.Locale, &c.Audit.OutputFile} {
		expanded, err := ExpandEnvironmentVariables(*field, options)
		if err != nil {
			return err
		}
		*field = expanded
	}
	return nil
}
