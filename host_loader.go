// host_loader.go: Host types and resources served to every isolated loader
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package goextensions

import (
	"io/fs"
	"path"
	"sync"
)

// ParentLoader resolves what an IsolatedLoader does not own or does not find
// in its archives.
type ParentLoader interface {
	LoadType(name string) (*Type, error)
	Resource(name string) ([]byte, error)
}

// HostLoader is the host side of type and resource resolution. The host
// registers the Go extension types it ships with, and optionally exposes its
// own resources through an fs.FS.
type HostLoader struct {
	mu        sync.RWMutex
	types     map[string]*Type
	resources fs.FS
}

var _ ParentLoader = (*HostLoader)(nil)

// NewHostLoader creates a host loader serving resources from resources, which
// may be nil.
func NewHostLoader(resources fs.FS) *HostLoader {
	return &HostLoader{
		types:     make(map[string]*Type),
		resources: resources,
	}
}

// RegisterType makes a host type resolvable by name. A constructor of type
// func() Extension (or Factory) is a valid extension type; nil registers an
// abstract type; any other value is a type that is not an extension.
// Registering a name again replaces the previous type.
func (h *HostLoader) RegisterType(name string, value any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.types[name] = &Type{Name: name, Origin: "host", host: value}
}

// LoadType implements ParentLoader.
func (h *HostLoader) LoadType(name string) (*Type, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if t, ok := h.types[name]; ok {
		return t, nil
	}
	return nil, NewTypeNotFoundError(name, nil)
}

// Resource implements ParentLoader.
func (h *HostLoader) Resource(name string) ([]byte, error) {
	if h.resources == nil {
		return nil, NewResourceNotFoundError(name)
	}
	data, err := fs.ReadFile(h.resources, path.Clean(name))
	if err != nil {
		return nil, NewResourceNotFoundError(name)
	}
	return data, nil
}
