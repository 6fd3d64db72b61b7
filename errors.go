// errors.go: structured error definitions for the go-extensions system
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package goextensions

import (
	"github.com/agilira/go-errors"
)

// Error codes for the go-extensions system
const (
	// Configuration errors (1000-1099)
	ErrCodeNoExtensionFolder  = "EXTENSION_1001"
	ErrCodeConfigNotFound     = "EXTENSION_1002"
	ErrCodeConfigParseError   = "EXTENSION_1003"
	ErrCodeConfigInvalidValue = "EXTENSION_1004"

	// Manifest and compatibility errors (1100-1199)
	ErrCodeManifestMissingField    = "MANIFEST_1101"
	ErrCodeManifestParseError      = "MANIFEST_1102"
	ErrCodeIncompatibleRuntime     = "MANIFEST_1103"
	ErrCodeIncompatibleApplication = "MANIFEST_1104"

	// Type validation errors (1200-1299)
	ErrCodeTypeNotFound      = "TYPE_1201"
	ErrCodeTypeNotExtension  = "TYPE_1202"
	ErrCodeTypeAbstract      = "TYPE_1203"
	ErrCodeTypeNoConstructor = "TYPE_1204"
	ErrCodeTypeCompileError  = "TYPE_1205"

	// Loader errors (1300-1399)
	ErrCodeArchiveError       = "LOADER_1301"
	ErrCodeSourceFetchError   = "LOADER_1302"
	ErrCodeResourceNotFound   = "LOADER_1303"
	ErrCodeLibraryNotFound    = "LOADER_1304"
	ErrCodeLoaderClosed       = "LOADER_1305"
	ErrCodeUnsupportedSource  = "LOADER_1306"
	ErrCodeCacheFolderFailure = "LOADER_1307"

	// Registry I/O errors (1400-1499)
	ErrCodeInstallFailed   = "REGISTRY_1401"
	ErrCodeUninstallFailed = "REGISTRY_1402"
	ErrCodeRegistryClosed  = "REGISTRY_1403"

	// Internal errors (1900-1999)
	ErrCodeInvariantViolation = "INTERNAL_1901"
	ErrCodeScriptError        = "INTERNAL_1902"
)

// Configuration error constructors

// NewNoExtensionFolderError reports an operation that needs the primary
// extension folder on a registry built without one.
func NewNoExtensionFolderError(operation string) *errors.Error {
	return errors.New(ErrCodeNoExtensionFolder, "Can't access to extensions folder").
		WithUserMessage("No extensions folder is configured").
		WithContext("operation", operation).
		WithSeverity("error")
}

func NewConfigNotFoundError(path string) *errors.Error {
	return errors.New(ErrCodeConfigNotFound, "Configuration file not found").
		WithUserMessage("The configuration file could not be found").
		WithContext("config_path", path).
		WithSeverity("error")
}

func NewConfigParseError(path string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeConfigParseError, "Configuration parse error").
		WithUserMessage("Failed to parse configuration file").
		WithContext("config_path", path).
		WithSeverity("error")
}

func NewConfigInvalidValueError(field string, value interface{}) *errors.Error {
	return errors.New(ErrCodeConfigInvalidValue, "Invalid configuration value").
		WithUserMessage("A configuration value has an unexpected type").
		WithContext("field", field).
		WithContext("value", value).
		WithSeverity("error")
}

// Manifest error constructors

func NewManifestMissingFieldError(location, key string) *errors.Error {
	return errors.New(ErrCodeManifestMissingField, "Missing manifest key "+key).
		WithUserMessage("The extension manifest is incomplete").
		WithContext("location", location).
		WithContext("key", key).
		WithSeverity("warning")
}

func NewManifestParseError(location string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeManifestParseError, "Manifest parse error").
		WithUserMessage("The extension manifest could not be read").
		WithContext("location", location).
		WithSeverity("warning")
}

func NewIncompatibleRuntimeError(required, running string) *errors.Error {
	return errors.New(ErrCodeIncompatibleRuntime, "Not compatible runtime version "+running).
		WithUserMessage("The extension requires a newer runtime").
		WithContext("required_version", required).
		WithContext("running_version", running).
		WithSeverity("warning")
}

func NewIncompatibleApplicationError(required string, running int) *errors.Error {
	return errors.New(ErrCodeIncompatibleApplication, "Not compatible application version").
		WithUserMessage("The extension requires a newer application").
		WithContext("required_version", required).
		WithContext("running_version", running).
		WithSeverity("warning")
}

// Type validation error constructors

func NewTypeNotFoundError(typeName string, cause error) *errors.Error {
	var err *errors.Error
	if cause == nil {
		err = errors.New(ErrCodeTypeNotFound, "Type "+typeName+" not found")
	} else {
		err = errors.Wrap(cause, ErrCodeTypeNotFound, "Type "+typeName+" not found")
	}
	return err.WithUserMessage("The extension type could not be found").
		WithContext("type", typeName).
		WithSeverity("warning")
}

func NewTypeNotExtensionError(typeName string) *errors.Error {
	return errors.New(ErrCodeTypeNotExtension, typeName+" does not implement the Extension contract").
		WithUserMessage("The extension type is not a valid extension").
		WithContext("type", typeName).
		WithSeverity("warning")
}

func NewTypeAbstractError(typeName string) *errors.Error {
	return errors.New(ErrCodeTypeAbstract, typeName+" is abstract").
		WithUserMessage("The extension type cannot be instantiated").
		WithContext("type", typeName).
		WithSeverity("warning")
}

func NewTypeNoConstructorError(typeName string) *errors.Error {
	return errors.New(ErrCodeTypeNoConstructor, typeName+" constructor not accessible").
		WithUserMessage("The extension type has no public constructor").
		WithContext("type", typeName).
		WithSeverity("warning")
}

func NewTypeCompileError(typeName, origin string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeTypeCompileError, "Type "+typeName+" failed to compile").
		WithUserMessage("The extension code is malformed").
		WithContext("type", typeName).
		WithContext("origin", origin).
		WithSeverity("warning")
}

// Loader error constructors

func NewArchiveError(location string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeArchiveError, "Archive error").
		WithUserMessage("The extension archive could not be read").
		WithContext("location", location).
		WithSeverity("warning")
}

func NewSourceFetchError(location string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeSourceFetchError, "Source fetch error").
		WithUserMessage("The extension source could not be retrieved").
		WithContext("location", location).
		WithSeverity("warning").
		AsRetryable()
}

func NewResourceNotFoundError(name string) *errors.Error {
	return errors.New(ErrCodeResourceNotFound, "Resource "+name+" not found").
		WithUserMessage("The requested resource does not exist").
		WithContext("resource", name).
		WithSeverity("warning")
}

func NewLibraryNotFoundError(name string) *errors.Error {
	return errors.New(ErrCodeLibraryNotFound, "no "+name+" in extension libraries").
		WithUserMessage("The native library could not be found").
		WithContext("library", name).
		WithSeverity("error")
}

func NewLoaderClosedError() *errors.Error {
	return errors.New(ErrCodeLoaderClosed, "Loader closed").
		WithUserMessage("The extension loader has been closed").
		WithSeverity("error")
}

func NewUnsupportedSourceError(location string) *errors.Error {
	return errors.New(ErrCodeUnsupportedSource, "Unsupported source").
		WithUserMessage("Only local files and file, http and https URLs are supported").
		WithContext("location", location).
		WithSeverity("error")
}

func NewCacheFolderError(folder string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeCacheFolderFailure, "Cache folder unavailable").
		WithUserMessage("The extension cache folder could not be used").
		WithContext("cache_folder", folder).
		WithSeverity("warning")
}

// Registry error constructors

func NewInstallError(path string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeInstallFailed, "Can't write "+path+" in extensions folder").
		WithUserMessage("The extension could not be imported").
		WithContext("path", path).
		WithSeverity("error")
}

func NewUninstallError(path string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeUninstallFailed, "Can't delete "+path).
		WithUserMessage("The extension could not be removed").
		WithContext("path", path).
		WithSeverity("error")
}

func NewRegistryClosedError() *errors.Error {
	return errors.New(ErrCodeRegistryClosed, "Registry closed").
		WithUserMessage("The extension registry has been shut down").
		WithSeverity("error")
}

// Internal error constructors

// NewInvariantViolationError describes a failure that validation was supposed
// to rule out. It is used as a panic value, never returned.
func NewInvariantViolationError(message string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeInvariantViolation, "Invariant violation: "+message).
		WithUserMessage("Internal error").
		WithSeverity("critical")
}

func NewScriptError(typeName string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeScriptError, "Script error in "+typeName).
		WithUserMessage("The extension failed while running").
		WithContext("type", typeName).
		WithSeverity("error")
}
