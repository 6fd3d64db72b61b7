// native_library.go: Platform naming of native libraries shipped by bundles
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package goextensions

import "strings"

// nativeLibrarySuffix returns the file suffix of native libraries on goos.
func nativeLibrarySuffix(goos string) string {
	switch goos {
	case "windows":
		return ".dll"
	case "darwin", "ios":
		return ".dylib"
	default:
		return ".so"
	}
}

// nativeLibraryName returns the short name of a native library file, such as
// "sqlite" for "libsqlite.so" on Linux or "sqlite.dll" on Windows, and false
// when the file is not a native library of goos.
func nativeLibraryName(fileName, goos string) (string, bool) {
	suffix := nativeLibrarySuffix(goos)
	if !strings.HasSuffix(strings.ToLower(fileName), suffix) {
		return "", false
	}
	name := fileName[:len(fileName)-len(suffix)]
	if goos != "windows" {
		name = strings.TrimPrefix(name, "lib")
	}
	if name == "" {
		return "", false
	}
	return name, true
}
