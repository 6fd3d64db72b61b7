// extension.go: Extension contract and host-injected metadata
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package goextensions

import (
	"sync"
)

// Extension is the capability a bundle adds to the host for one document.
//
// Implementations embed BaseExtension, which carries the values the registry
// injects once after construction, and implement Actions. Destroy is called
// exactly once when the bound document is closed.
//
//	type exportExtension struct {
//	    goextensions.BaseExtension
//	}
//
//	func (e *exportExtension) Actions() []*goextensions.Action {
//	    return []*goextensions.Action{goextensions.NewAction(e.export)}
//	}
type Extension interface {
	// Actions returns the actions the extension offers to the user.
	Actions() []*Action

	// Destroy releases the extension when its document is closed.
	Destroy()

	Name() string
	Description() string
	Version() string
	License() string
	Provider() string
	Loader() *IsolatedLoader
	Preferences() Preferences
	Document() Document
	Controller() DocumentController
	UndoSink() UndoSink

	inject(binding Binding)
}

// Binding groups the values injected into an extension after construction.
type Binding struct {
	Loader      *IsolatedLoader
	Manifest    Manifest
	Preferences Preferences
	Document    Document
	Controller  DocumentController
	Undo        UndoSink
}

// BaseExtension implements the injected accessors of Extension and a no-op
// Destroy. Values are set once by the registry; later injections are ignored.
type BaseExtension struct {
	once    sync.Once
	binding Binding
}

func (b *BaseExtension) inject(binding Binding) {
	b.once.Do(func() {
		b.binding = binding
	})
}

// Destroy does nothing. Extensions holding resources override it.
func (b *BaseExtension) Destroy() {}

// Name returns the bundle name.
func (b *BaseExtension) Name() string { return b.binding.Manifest.Name }

// Description returns the bundle description.
func (b *BaseExtension) Description() string { return b.binding.Manifest.Description }

// Version returns the bundle version.
func (b *BaseExtension) Version() string { return b.binding.Manifest.Version }

// License returns the bundle license.
func (b *BaseExtension) License() string { return b.binding.Manifest.License }

// Provider returns the bundle provider.
func (b *BaseExtension) Provider() string { return b.binding.Manifest.Provider }

// Loader returns the loader of the bundle, giving access to its resources and
// native libraries.
func (b *BaseExtension) Loader() *IsolatedLoader { return b.binding.Loader }

// Preferences returns the user preferences.
func (b *BaseExtension) Preferences() Preferences { return b.binding.Preferences }

// Document returns the document the extension is bound to.
func (b *BaseExtension) Document() Document { return b.binding.Document }

// Controller returns the document controller, nil when the host has none.
func (b *BaseExtension) Controller() DocumentController { return b.binding.Controller }

// UndoSink returns the sink receiving the edits of the extension.
func (b *BaseExtension) UndoSink() UndoSink { return b.binding.Undo }
