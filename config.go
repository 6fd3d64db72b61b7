// config.go: Registry configuration with multi-format file loading
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package goextensions

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agilira/argus"
	"gopkg.in/yaml.v3"
)

// RegistryConfig configures an extension registry.
//
// Example YAML configuration:
//
//	folders:
//	  - /home/user/.app/extensions
//	  - /usr/share/app/extensions
//	cache_folder: /home/user/.app/cache
//	host_version: 6400
//	audit:
//	  enabled: true
//	  output_file: /var/log/app/extensions-audit.jsonl
type RegistryConfig struct {
	// Folders are scanned for bundles. The first one is the primary folder
	// where Install copies bundles; operations writing to it fail when no
	// folder is configured.
	Folders []string `json:"folders,omitempty" yaml:"folders,omitempty"`

	// URLs are scanned after the folders, in order.
	URLs []string `json:"urls,omitempty" yaml:"urls,omitempty"`

	CacheFolder string `json:"cache_folder,omitempty" yaml:"cache_folder,omitempty"`
	CachePrefix string `json:"cache_prefix,omitempty" yaml:"cache_prefix,omitempty"`

	// Locale selects localized manifest variants, as in "fr_FR".
	Locale string `json:"locale,omitempty" yaml:"locale,omitempty"`

	// HostVersion is major*1000 + minor*100, DefaultHostVersion when zero.
	HostVersion int `json:"host_version,omitempty" yaml:"host_version,omitempty"`

	// RuntimeVersion overrides the running Go version in compatibility checks.
	RuntimeVersion string `json:"runtime_version,omitempty" yaml:"runtime_version,omitempty"`

	Audit AuditConfig `json:"audit" yaml:"audit"`
}

// AuditConfig enables the audit trail of install and uninstall operations.
type AuditConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	OutputFile string `json:"output_file,omitempty" yaml:"output_file,omitempty"`
	BufferSize int    `json:"buffer_size,omitempty" yaml:"buffer_size,omitempty"`
}

// PrimaryFolder returns the folder receiving installed bundles, "" when none.
func (c RegistryConfig) PrimaryFolder() string {
	if len(c.Folders) == 0 {
		return ""
	}
	return c.Folders[0]
}

// Compatibility returns the compatibility checked against manifests.
func (c RegistryConfig) Compatibility() Compatibility {
	return Compatibility{HostVersion: c.HostVersion, RuntimeVersion: c.RuntimeVersion}.withDefaults()
}

// Validate checks the configuration values.
func (c *RegistryConfig) Validate() error {
	for _, folder := range c.Folders {
		if strings.TrimSpace(folder) == "" {
			return NewConfigInvalidValueError("folders", folder)
		}
	}
	for _, location := range c.URLs {
		if _, err := parseSource(location); err != nil {
			return NewConfigInvalidValueError("urls", location)
		}
	}
	if c.HostVersion < 0 {
		return NewConfigInvalidValueError("host_version", c.HostVersion)
	}
	if c.Audit.Enabled && c.Audit.OutputFile == "" {
		return NewConfigInvalidValueError("audit.output_file", c.Audit.OutputFile)
	}
	if c.Audit.BufferSize < 0 {
		return NewConfigInvalidValueError("audit.buffer_size", c.Audit.BufferSize)
	}
	return nil
}

// ApplyDefaults fills unset values.
func (c *RegistryConfig) ApplyDefaults() {
	if c.HostVersion == 0 {
		c.HostVersion = DefaultHostVersion
	}
	if c.RuntimeVersion == "" {
		c.RuntimeVersion = RunningRuntimeVersion()
	}
	if c.Audit.BufferSize == 0 {
		c.Audit.BufferSize = 1000
	}
}

// LoadRegistryConfig reads a registry configuration file in JSON, YAML, TOML,
// HCL, INI or properties format, detected from its extension. ${VAR}
// placeholders are expanded with DefaultEnvConfigOptions before validation.
func LoadRegistryConfig(path string) (RegistryConfig, error) {
	var config RegistryConfig

	data, err := os.ReadFile(path) // #nosec G304 -- path is provided by the host application
	if err != nil {
		if os.IsNotExist(err) {
			return config, NewConfigNotFoundError(path)
		}
		return config, NewConfigParseError(path, err)
	}

	format := argus.DetectFormat(path)
	if err := parseRegistryConfig(data, format, &config); err != nil {
		return config, NewConfigParseError(path, err)
	}
	if err := config.ExpandEnvironment(DefaultEnvConfigOptions()); err != nil {
		return config, err
	}
	if err := config.Validate(); err != nil {
		return config, err
	}
	config.ApplyDefaults()
	return config, nil
}

// parseRegistryConfig parses YAML with gopkg.in/yaml.v3 and every other
// format with argus.
func parseRegistryConfig(data []byte, format argus.ConfigFormat, config *RegistryConfig) error {
	if format == argus.FormatYAML {
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse YAML config: %w", err)
		}
		return nil
	}

	configMap, err := argus.ParseConfig(data, format)
	if err != nil {
		return err
	}
	return bindRegistryConfig(configMap, config)
}

// bindRegistryConfig binds a parsed map through its JSON form.
func bindRegistryConfig(configMap map[string]interface{}, config *RegistryConfig) error {
	if configMap == nil {
		return fmt.Errorf("configuration map is nil")
	}
	jsonBytes, err := json.Marshal(configMap)
	if err != nil {
		return fmt.Errorf("failed to marshal config map to JSON: %w", err)
	}
	if err := json.Unmarshal(jsonBytes, config); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return nil
}

// openAuditLogger creates the argus audit logger of the configuration, nil
// when auditing is disabled.
func openAuditLogger(config AuditConfig) (*argus.AuditLogger, error) {
	if !config.Enabled {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(config.OutputFile), 0o750); err != nil {
		return nil, NewConfigInvalidValueError("audit.output_file", config.OutputFile)
	}
	bufferSize := config.BufferSize
	if bufferSize == 0 {
		bufferSize = 1000
	}
	return argus.NewAuditLogger(argus.AuditConfig{
		Enabled:       true,
		OutputFile:    config.OutputFile,
		MinLevel:      argus.AuditInfo,
		BufferSize:    bufferSize,
		FlushInterval: 5 * time.Second,
		IncludeStack:  false,
	})
}
