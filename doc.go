// Package goextensions provides an extension system for desktop-style Go
// applications: third-party bundles are discovered in folders or at URLs,
// checked against the running host, loaded in isolation and bound to the
// documents the user opens.
//
// Key Features:
//   - Folder discovery where the highest bundle version wins
//   - Manifest validation of host and runtime minimum versions
//   - Isolated loaders giving bundle scripts, resources and native
//     libraries priority over the host
//   - Local cache of remote and local bundles
//   - Extensions instantiated once per document and destroyed when it closes
//   - Observable actions for the host user interface
//   - Structured errors, pluggable logging and audit of installs
//
// A bundle is a zip archive containing an ApplicationExtension.properties
// manifest, optionally under a namespace path:
//
//	name=Hello
//	class=com.example.Hello
//	description=Says hello
//	version=1.2
//	license=MPL-2.0
//	provider=Example
//	applicationMinimumVersion=1.0
//	runtimeMinimumVersion=1.21
//
// The class is either a Lua script of the archive (com/example/Hello.lua) or
// a Go type registered on the HostLoader.
//
// Basic Usage:
//
//	documents := goextensions.NewDocumentSet()
//
//	host := goextensions.NewHostLoader(nil)
//	host.RegisterType("com.example.Builtin", func() goextensions.Extension {
//		return &builtinExtension{}
//	})
//
//	registry, err := goextensions.NewRegistry(goextensions.RegistryConfig{
//		Folders:     []string{extensionsFolder},
//		HostVersion: 6400,
//	}, documents, goextensions.WithHostLoader(host))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer registry.Close()
//
//	doc := goextensions.NewMemoryDocument("plan")
//	documents.Add(doc)
//	extensions, err := registry.ExtensionsFor(doc, prefs, nil, undo)
//
// Copyright (c) 2025 AGILira - A. Giordano
// SPDX-License-Identifier: MPL-2.0
package goextensions
