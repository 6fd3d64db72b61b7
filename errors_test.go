// errors_test.go: coverage for structured error definitions
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package goextensions

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/agilira/go-errors"
)

// TestErrorConstructors checks code, severity, user message and context of
// every constructor
func TestErrorConstructors(t *testing.T) {
	cause := fmt.Errorf("underlying failure")

	tests := []struct {
		name        string
		err         *errors.Error
		code        string
		severity    string
		userMessage string
		context     map[string]interface{}
		retryable   bool
	}{
		{
			name:        "NoExtensionFolder",
			err:         NewNoExtensionFolderError("install"),
			code:        ErrCodeNoExtensionFolder,
			severity:    "error",
			userMessage: "No extensions folder is configured",
			context:     map[string]interface{}{"operation": "install"},
		},
		{
			name:        "ConfigNotFound",
			err:         NewConfigNotFoundError("/etc/app/extensions.yaml"),
			code:        ErrCodeConfigNotFound,
			severity:    "error",
			userMessage: "The configuration file could not be found",
			context:     map[string]interface{}{"config_path": "/etc/app/extensions.yaml"},
		},
		{
			name:        "ConfigInvalidValue",
			err:         NewConfigInvalidValueError("host_version", -1),
			code:        ErrCodeConfigInvalidValue,
			severity:    "error",
			userMessage: "A configuration value has an unexpected type",
			context:     map[string]interface{}{"field": "host_version", "value": -1},
		},
		{
			name:        "ManifestMissingField",
			err:         NewManifestMissingFieldError("hello.zip!/ApplicationExtension.properties", "class"),
			code:        ErrCodeManifestMissingField,
			severity:    "warning",
			userMessage: "The extension manifest is incomplete",
			context:     map[string]interface{}{"key": "class", "location": "hello.zip!/ApplicationExtension.properties"},
		},
		{
			name:        "IncompatibleRuntime",
			err:         NewIncompatibleRuntimeError("1.30", "1.24.5"),
			code:        ErrCodeIncompatibleRuntime,
			severity:    "warning",
			userMessage: "The extension requires a newer runtime",
			context:     map[string]interface{}{"required_version": "1.30", "running_version": "1.24.5"},
		},
		{
			name:        "IncompatibleApplication",
			err:         NewIncompatibleApplicationError("7.0", 6400),
			code:        ErrCodeIncompatibleApplication,
			severity:    "warning",
			userMessage: "The extension requires a newer application",
			context:     map[string]interface{}{"required_version": "7.0", "running_version": 6400},
		},
		{
			name:        "TypeNotFound",
			err:         NewTypeNotFoundError("com.example.Missing", nil),
			code:        ErrCodeTypeNotFound,
			severity:    "warning",
			userMessage: "The extension type could not be found",
			context:     map[string]interface{}{"type": "com.example.Missing"},
		},
		{
			name:        "TypeAbstract",
			err:         NewTypeAbstractError("com.example.Base"),
			code:        ErrCodeTypeAbstract,
			severity:    "warning",
			userMessage: "The extension type cannot be instantiated",
			context:     map[string]interface{}{"type": "com.example.Base"},
		},
		{
			name:        "TypeCompile",
			err:         NewTypeCompileError("com.example.Broken", "b.zip!/com/example/Broken.lua", cause),
			code:        ErrCodeTypeCompileError,
			severity:    "warning",
			userMessage: "The extension code is malformed",
			context:     map[string]interface{}{"type": "com.example.Broken", "origin": "b.zip!/com/example/Broken.lua"},
		},
		{
			name:        "SourceFetch",
			err:         NewSourceFetchError("https://example.com/hello.zip", cause),
			code:        ErrCodeSourceFetchError,
			severity:    "warning",
			userMessage: "The extension source could not be retrieved",
			context:     map[string]interface{}{"location": "https://example.com/hello.zip"},
			retryable:   true,
		},
		{
			name:        "LibraryNotFound",
			err:         NewLibraryNotFoundError("sqlite"),
			code:        ErrCodeLibraryNotFound,
			severity:    "error",
			userMessage: "The native library could not be found",
			context:     map[string]interface{}{"library": "sqlite"},
		},
		{
			name:        "Install",
			err:         NewInstallError("/ext/hello.zip", cause),
			code:        ErrCodeInstallFailed,
			severity:    "error",
			userMessage: "The extension could not be imported",
			context:     map[string]interface{}{"path": "/ext/hello.zip"},
		},
		{
			name:        "InvariantViolation",
			err:         NewInvariantViolationError("instantiation failed", cause),
			code:        ErrCodeInvariantViolation,
			severity:    "critical",
			userMessage: "Internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.ErrorCode() != errors.ErrorCode(tt.code) {
				t.Errorf("Expected error code %s, got %s", tt.code, tt.err.ErrorCode())
			}
			if tt.err.Severity != tt.severity {
				t.Errorf("Expected severity %q, got %q", tt.severity, tt.err.Severity)
			}
			if tt.err.UserMessage() != tt.userMessage {
				t.Errorf("Expected user message %q, got %q", tt.userMessage, tt.err.UserMessage())
			}
			for key, want := range tt.context {
				if tt.err.Context[key] != want {
					t.Errorf("Expected context %s to be %v, got %v", key, want, tt.err.Context[key])
				}
			}
			if tt.err.IsRetryable() != tt.retryable {
				t.Errorf("Expected retryable %v, got %v", tt.retryable, tt.err.IsRetryable())
			}
		})
	}
}

// TestErrorWrapping checks that wrapped causes stay reachable
func TestErrorWrapping(t *testing.T) {
	cause := fmt.Errorf("disk full")

	wrapped := []error{
		NewConfigParseError("config.json", cause),
		NewManifestParseError("hello.zip", cause),
		NewArchiveError("hello.zip", cause),
		NewCacheFolderError("/cache", cause),
		NewUninstallError("/ext/hello.zip", cause),
		NewScriptError("com.example.Hello", cause),
	}
	for _, err := range wrapped {
		if !stderrors.Is(err, cause) {
			t.Errorf("Expected %v to wrap the cause", err)
		}
	}
}

// TestErrorCodePrefixes checks that codes are grouped by subsystem
func TestErrorCodePrefixes(t *testing.T) {
	groups := map[string][]string{
		"EXTENSION_": {ErrCodeNoExtensionFolder, ErrCodeConfigNotFound, ErrCodeConfigParseError, ErrCodeConfigInvalidValue},
		"MANIFEST_":  {ErrCodeManifestMissingField, ErrCodeManifestParseError, ErrCodeIncompatibleRuntime, ErrCodeIncompatibleApplication},
		"TYPE_":      {ErrCodeTypeNotFound, ErrCodeTypeNotExtension, ErrCodeTypeAbstract, ErrCodeTypeNoConstructor, ErrCodeTypeCompileError},
		"LOADER_":    {ErrCodeArchiveError, ErrCodeSourceFetchError, ErrCodeResourceNotFound, ErrCodeLibraryNotFound, ErrCodeLoaderClosed, ErrCodeUnsupportedSource, ErrCodeCacheFolderFailure},
		"REGISTRY_":  {ErrCodeInstallFailed, ErrCodeUninstallFailed, ErrCodeRegistryClosed},
		"INTERNAL_":  {ErrCodeInvariantViolation, ErrCodeScriptError},
	}

	seen := make(map[string]bool)
	for prefix, codes := range groups {
		for _, code := range codes {
			if len(code) <= len(prefix) || code[:len(prefix)] != prefix {
				t.Errorf("Expected code %s to start with %s", code, prefix)
			}
			if seen[code] {
				t.Errorf("Duplicate error code %s", code)
			}
			seen[code] = true
		}
	}
}
