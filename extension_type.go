// extension_type.go: Resolved extension types and their validated factories
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package goextensions

import (
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// ScriptExtension is the file extension of script types in bundle archives.
const ScriptExtension = ".lua"

// Factory creates a new, not yet injected, extension instance. Factories are
// only obtained for types that passed validation; a factory that fails
// afterwards panics with an ErrCodeInvariantViolation error.
type Factory func() Extension

// Type is a type resolved by a loader: either a Go type registered on the
// HostLoader or a script compiled from a bundle archive.
type Type struct {
	// Name is the dotted type name, such as "com.example.Hello".
	Name string

	// Origin tells where the type comes from: "host" or the archive entry
	// location of its script.
	Origin string

	host   any
	script *lua.FunctionProto
	loader *IsolatedLoader
}

// IsScript reports whether the type was compiled from a bundle script.
func (t *Type) IsScript() bool {
	return t.script != nil
}

// Loader returns the loader that materialized a script type, nil for host types.
func (t *Type) Loader() *IsolatedLoader {
	return t.loader
}

// typeEntryName maps "com.example.Hello" to "com/example/Hello.lua".
func typeEntryName(typeName string) string {
	return strings.ReplaceAll(typeName, ".", "/") + ScriptExtension
}

// typePackage returns the package part of a dotted type name, with its
// trailing dot: "com.example." for "com.example.Hello".
func typePackage(typeName string) string {
	if i := strings.LastIndex(typeName, "."); i >= 0 {
		return typeName[:i+1]
	}
	return ""
}

// newFactory checks that t can build extensions and returns its factory. The
// error tells why the type is not a usable extension: not an extension,
// abstract or without constructor.
func newFactory(t *Type, logger Logger) (Factory, error) {
	if t.IsScript() {
		if err := validateScriptType(t); err != nil {
			return nil, err
		}
		return guardedFactory(t.Name, func() (Extension, error) {
			return newScriptExtension(t, logger)
		}), nil
	}

	var constructor func() Extension
	switch v := t.host.(type) {
	case nil:
		return nil, NewTypeAbstractError(t.Name)
	case Factory:
		constructor = v
	case func() Extension:
		constructor = v
	default:
		return nil, NewTypeNotExtensionError(t.Name)
	}
	if constructor == nil {
		return nil, NewTypeNoConstructorError(t.Name)
	}
	return guardedFactory(t.Name, func() (Extension, error) {
		ext := constructor()
		if ext == nil {
			return nil, fmt.Errorf("constructor returned nil")
		}
		return ext, nil
	}), nil
}

// guardedFactory turns construction failures into invariant violation panics.
func guardedFactory(typeName string, build func() (Extension, error)) Factory {
	return func() Extension {
		ext, err := recoverBuild(build)
		if err != nil {
			panic(NewInvariantViolationError("instantiation of validated type "+typeName+" failed", err))
		}
		return ext
	}
}

func recoverBuild(build func() (Extension, error)) (ext Extension, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("constructor panicked: %v", r)
		}
	}()
	return build()
}
