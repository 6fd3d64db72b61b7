// manifest.go: Bundle manifest parsing and compatibility checks
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package goextensions

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/magiconair/properties"
)

const (
	// ManifestFamily is the base name of the manifest resource of a bundle.
	ManifestFamily = "ApplicationExtension"

	// ManifestFileName is the entry name identifying a bundle manifest. It may
	// be nested under a path prefix, as in "com/example/ApplicationExtension.properties".
	ManifestFileName = ManifestFamily + ".properties"

	// DefaultHostVersion is the host version used when none is configured,
	// encoded as major*1000 + minor*100 (+ patch).
	DefaultHostVersion = 1000
)

// Manifest keys.
const (
	ManifestKeyName                      = "name"
	ManifestKeyID                        = "id"
	ManifestKeyClass                     = "class"
	ManifestKeyDescription               = "description"
	ManifestKeyVersion                   = "version"
	ManifestKeyLicense                   = "license"
	ManifestKeyProvider                  = "provider"
	ManifestKeyApplicationMinimumVersion = "applicationMinimumVersion"
	ManifestKeyRuntimeMinimumVersion     = "runtimeMinimumVersion"
	ManifestKeyJavaMinimumVersion        = "javaMinimumVersion"
)

// Manifest describes a bundle: its unique name, the type implementing its
// extension and its compatibility bounds. Manifests are values and are never
// mutated once read.
type Manifest struct {
	Name                      string `json:"name" yaml:"name"`
	ID                        string `json:"id,omitempty" yaml:"id,omitempty"`
	ClassName                 string `json:"class" yaml:"class"`
	Description               string `json:"description" yaml:"description"`
	Version                   string `json:"version" yaml:"version"`
	License                   string `json:"license" yaml:"license"`
	Provider                  string `json:"provider" yaml:"provider"`
	ApplicationMinimumVersion string `json:"applicationMinimumVersion" yaml:"applicationMinimumVersion"`
	RuntimeMinimumVersion     string `json:"runtimeMinimumVersion" yaml:"runtimeMinimumVersion"`
}

// Compatibility describes the running host checked against manifests.
type Compatibility struct {
	// HostVersion is the host application version, major*1000 + minor*100.
	HostVersion int `json:"host_version" yaml:"host_version"`

	// RuntimeVersion is the running runtime version, such as "1.24.5".
	RuntimeVersion string `json:"runtime_version" yaml:"runtime_version"`
}

// RunningRuntimeVersion returns the version of the Go runtime without its
// "go" prefix.
func RunningRuntimeVersion() string {
	return strings.TrimPrefix(runtime.Version(), "go")
}

// DefaultCompatibility returns DefaultHostVersion and the running runtime version.
func DefaultCompatibility() Compatibility {
	return Compatibility{
		HostVersion:    DefaultHostVersion,
		RuntimeVersion: RunningRuntimeVersion(),
	}
}

// withDefaults fills zero fields from DefaultCompatibility.
func (c Compatibility) withDefaults() Compatibility {
	if c.HostVersion == 0 {
		c.HostVersion = DefaultHostVersion
	}
	if c.RuntimeVersion == "" {
		c.RuntimeVersion = RunningRuntimeVersion()
	}
	return c
}

// Check verifies the manifest minimum runtime version first, then its
// minimum host version. The returned error carries ErrCodeIncompatibleRuntime
// or ErrCodeIncompatibleApplication.
func (c Compatibility) Check(m Manifest) error {
	c = c.withDefaults()
	if !c.runtimeSatisfies(m.RuntimeMinimumVersion) {
		return NewIncompatibleRuntimeError(m.RuntimeMinimumVersion, c.RuntimeVersion)
	}
	if !c.hostSatisfies(m.ApplicationMinimumVersion) {
		return NewIncompatibleApplicationError(m.ApplicationMinimumVersion, c.HostVersion)
	}
	return nil
}

// runtimeSatisfies compares the major.minor groups of both versions.
func (c Compatibility) runtimeSatisfies(required string) bool {
	return CompareVersions(majorMinor(c.RuntimeVersion), majorMinor(required)) >= 0
}

// hostSatisfies accepts a greater host major, or an equal major with a
// minimum minor the host reaches. Unparsable requirements are rejected.
func (c Compatibility) hostSatisfies(required string) bool {
	parts := strings.FieldsFunc(required, func(r rune) bool {
		return r == '.' || r == '_' || r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f'
	})
	if len(parts) == 0 {
		return false
	}
	requiredMajor, err := strconv.Atoi(parts[0])
	if err != nil {
		return false
	}

	hostMajor := c.HostVersion / 1000
	hostMinor := (c.HostVersion / 100) % 10
	switch {
	case hostMajor > requiredMajor:
		return true
	case hostMajor == requiredMajor && len(parts) >= 2:
		requiredMinor, err := strconv.Atoi(parts[1])
		return err == nil && hostMinor >= requiredMinor
	default:
		return false
	}
}

// majorMinor keeps the first two groups of a version split on '.' or '_'.
func majorMinor(version string) string {
	parts := strings.FieldsFunc(version, func(r rune) bool { return r == '.' || r == '_' })
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return strings.Join(parts, ".")
}

// resourceReader reads a resource by entry path.
type resourceReader interface {
	Resource(name string) ([]byte, error)
}

// readManifest reads the manifest of the family rooted at familyPrefix, such
// as "com/example/", applying the variants of locale over the base keys.
// location identifies the bundle in errors.
func readManifest(resources resourceReader, familyPrefix, locale, location string) (Manifest, error) {
	values, err := readLocalizedProperties(resources, familyPrefix+ManifestFamily, locale)
	if err != nil {
		return Manifest{}, NewManifestParseError(location, err)
	}
	return manifestFromValues(values, location)
}

// readLocalizedProperties reads base+".properties" then overrides its keys
// with the variants of locale, from the least to the most specific one.
func readLocalizedProperties(resources resourceReader, base, locale string) (map[string]string, error) {
	name := base + ".properties"
	data, err := resources.Resource(name)
	if err != nil {
		return nil, err
	}
	values, err := parseManifestProperties(name, data)
	if err != nil {
		return nil, err
	}

	for _, suffix := range localeSuffixes(locale) {
		variant := base + suffix + ".properties"
		data, err := resources.Resource(variant)
		if err != nil {
			continue
		}
		localized, err := parseManifestProperties(variant, data)
		if err != nil {
			return nil, err
		}
		for k, v := range localized {
			values[k] = v
		}
	}
	return values, nil
}

// manifestFromValues builds a Manifest, requiring every key but the id.
func manifestFromValues(values map[string]string, location string) (Manifest, error) {
	if _, ok := values[ManifestKeyRuntimeMinimumVersion]; !ok {
		if legacy, ok := values[ManifestKeyJavaMinimumVersion]; ok {
			values[ManifestKeyRuntimeMinimumVersion] = legacy
		}
	}

	var missing string
	required := func(key string) string {
		v, ok := values[key]
		if !ok && missing == "" {
			missing = key
		}
		return v
	}

	m := Manifest{
		Name:                      required(ManifestKeyName),
		ClassName:                 required(ManifestKeyClass),
		Description:               required(ManifestKeyDescription),
		Version:                   required(ManifestKeyVersion),
		License:                   required(ManifestKeyLicense),
		Provider:                  required(ManifestKeyProvider),
		ApplicationMinimumVersion: required(ManifestKeyApplicationMinimumVersion),
		RuntimeMinimumVersion:     required(ManifestKeyRuntimeMinimumVersion),
		ID:                        values[ManifestKeyID],
	}
	if missing != "" {
		return Manifest{}, NewManifestMissingFieldError(location, missing)
	}
	return m, nil
}

// parseManifestProperties parses properties text, keeping every value as
// written. Escapes, continuations and the "=", ":" and blank separators are
// honoured; ${...} references are left unexpanded.
func parseManifestProperties(name string, data []byte) (map[string]string, error) {
	loader := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	parsed, err := loader.LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return parsed.Map(), nil
}

// localeSuffixes returns the resource suffixes of a locale from the least to
// the most specific: "fr_FR" gives "_fr" then "_fr_FR".
func localeSuffixes(locale string) []string {
	if i := strings.IndexAny(locale, ".@"); i >= 0 {
		locale = locale[:i]
	}
	locale = strings.ReplaceAll(locale, "-", "_")
	if locale == "" || locale == "C" || locale == "POSIX" {
		return nil
	}

	parts := strings.Split(locale, "_")
	suffixes := make([]string, 0, len(parts))
	suffix := ""
	for i, part := range parts {
		if part == "" {
			break
		}
		if i == 0 {
			part = strings.ToLower(part)
		} else if i == 1 {
			part = strings.ToUpper(part)
		}
		suffix += "_" + part
		suffixes = append(suffixes, suffix)
	}
	return suffixes
}
