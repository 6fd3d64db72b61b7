// testing_helpers_test.go: Bundle archive builders and test extensions
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package goextensions

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
)

// helloScript is a valid script extension counting its executions and
// destructions in its instance table.
const helloScript = `
local Hello = {}

function Hello.new()
  return { greetings = 0, destroyed = 0 }
end

function Hello.actions(self)
  return {
    {
      name = "Say hello",
      short_description = "Greets " .. self.name,
      menu = "Tools",
      mnemonic = "H",
      tool_bar = true,
      enabled = true,
      icon = "com/example/hello.png",
      execute = function(s) s.greetings = s.greetings + 1 end,
    },
    { name = "Disabled" },
  }
end

function Hello.destroy(self)
  self.destroyed = self.destroyed + 1
end

return Hello
`

// manifestValues returns complete manifest values for a bundle named name.
func manifestValues(name, class, version string) map[string]string {
	return map[string]string{
		ManifestKeyName:                      name,
		ManifestKeyClass:                     class,
		ManifestKeyDescription:               "Test bundle " + name,
		ManifestKeyVersion:                   version,
		ManifestKeyLicense:                   "MPL-2.0",
		ManifestKeyProvider:                  "AGILira",
		ManifestKeyApplicationMinimumVersion: "1.0",
		ManifestKeyRuntimeMinimumVersion:     "1.0",
	}
}

// propertiesText renders values as properties text with sorted keys.
func propertiesText(values map[string]string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, values[k])
	}
	return b.String()
}

// writeBundle writes a zip archive at path holding files.
func writeBundle(t *testing.T, path string, files map[string]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	out, err := os.Create(path)
	require.NoError(t, err)
	defer out.Close()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	w := zip.NewWriter(out)
	for _, name := range names {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}

// writeScriptBundle writes a bundle with a manifest under com/example/ and
// the hello script as its class.
func writeScriptBundle(t *testing.T, path, name, version string) {
	t.Helper()
	writeBundle(t, path, map[string]string{
		"com/example/" + ManifestFileName: propertiesText(manifestValues(name, "com.example.Hello", version)),
		"com/example/Hello.lua":           helloScript,
		"com/example/hello.png":           "PNG",
	})
}

// writeHostBundle writes a bundle whose class is a host type.
func writeHostBundle(t *testing.T, path, name, version, class string) {
	t.Helper()
	writeBundle(t, path, map[string]string{
		ManifestFileName: propertiesText(manifestValues(name, class, version)),
	})
}

// recordingExtension is a host extension counting Destroy calls.
type recordingExtension struct {
	BaseExtension
	destroyed atomic.Int32
}

func (e *recordingExtension) Actions() []*Action {
	return []*Action{NewAction(nil)}
}

func (e *recordingExtension) Destroy() {
	e.destroyed.Add(1)
}

// newTestHost returns a host loader with "host.Recording" registered.
func newTestHost() *HostLoader {
	host := NewHostLoader(nil)
	host.RegisterType("host.Recording", func() Extension { return &recordingExtension{} })
	return host
}

// mapPreferences is an in-memory Preferences.
type mapPreferences map[string]string

func (p mapPreferences) Get(key string) (string, bool) {
	v, ok := p[key]
	return v, ok
}

// recordingUndo collects posted edits.
type recordingUndo struct {
	mu    sync.Mutex
	edits []UndoableEdit
}

func (u *recordingUndo) PostEdit(edit UndoableEdit) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.edits = append(u.edits, edit)
}

// scriptInstanceNumber reads a numeric field of a script extension instance.
func scriptInstanceNumber(t *testing.T, ext Extension, field string) float64 {
	t.Helper()
	script, ok := ext.(*scriptExtension)
	require.True(t, ok, "expected a script extension, got %T", ext)
	script.mu.Lock()
	defer script.mu.Unlock()
	value, ok := script.self.RawGetString(field).(lua.LNumber)
	require.True(t, ok, "field %s is not a number", field)
	return float64(value)
}
