// isolated_loader.go: Archive-first resolution of types, resources and native libraries
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package goextensions

import (
	"io"
	"net/http"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/klauspost/compress/zip"
	"go.uber.org/multierr"
)

// LoaderConfig configures an IsolatedLoader.
type LoaderConfig struct {
	// Sources are archives or native libraries: local paths or file, http
	// and https URLs.
	Sources []string

	// OwnedPrefixes are the type name prefixes searched in the archives
	// before the parent. An empty prefix owns every type name.
	OwnedPrefixes []string

	// CacheFolder keeps copies of the sources across runs. When empty,
	// sources are copied to temporary files removed by Close.
	CacheFolder string

	// CachePrefix is prepended to the file names of copied sources.
	CachePrefix string

	// Locale selects localized variants of properties resources.
	Locale string

	// HTTPClient fetches remote sources, http.DefaultClient when nil.
	HTTPClient *http.Client

	// Logger receives loader diagnostics, NoOpLogger when nil.
	Logger Logger
}

// bundleArchive is an opened archive source.
type bundleArchive struct {
	location string
	reader   *zip.ReadCloser
	entries  map[string]*zip.File
	names    []string
}

func openArchive(src resolvedSource) (*bundleArchive, error) {
	reader, err := zip.OpenReader(src.path)
	if err != nil {
		return nil, NewArchiveError(src.location, err)
	}
	archive := &bundleArchive{
		location: src.location,
		reader:   reader,
		entries:  make(map[string]*zip.File, len(reader.File)),
		names:    make([]string, 0, len(reader.File)),
	}
	for _, f := range reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if _, dup := archive.entries[f.Name]; dup {
			continue
		}
		archive.entries[f.Name] = f
		archive.names = append(archive.names, f.Name)
	}
	return archive, nil
}

func (a *bundleArchive) read(name string) ([]byte, bool, error) {
	f, ok := a.entries[name]
	if !ok {
		return nil, false, nil
	}
	rc, err := f.Open()
	if err != nil {
		return nil, true, NewArchiveError(a.location, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, true, NewArchiveError(a.location, err)
	}
	return data, true, nil
}

// typeResolver is one link of the type resolution chain. found is false when
// the link does not know the type and the next link must be asked.
type typeResolver func(name string) (t *Type, found bool, err error)

// IsolatedLoader resolves the types, resources and native libraries of one or
// more bundle archives, with priority over its parent for the type names it
// owns. Materialized types are memoized for the life of the loader.
type IsolatedLoader struct {
	parent    ParentLoader
	owned     []string
	locale    string
	logger    Logger
	archives  []*bundleArchive
	libraries map[string]string
	tempFiles []string

	mu     sync.RWMutex
	types  map[string]*Type
	closed bool
}

// NewIsolatedLoader copies and opens the sources of cfg. Sources whose name
// is a native library of the running OS are indexed by short name; the others
// must be zip archives. On failure every source opened so far is released.
func NewIsolatedLoader(cfg LoaderConfig, parent ParentLoader) (*IsolatedLoader, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = DefaultLogger()
	}
	if parent == nil {
		parent = NewHostLoader(nil)
	}

	l := &IsolatedLoader{
		parent:    parent,
		owned:     append([]string(nil), cfg.OwnedPrefixes...),
		locale:    cfg.Locale,
		logger:    logger,
		libraries: make(map[string]string),
		types:     make(map[string]*Type),
	}

	resolver := &sourceResolver{
		cacheFolder: cfg.CacheFolder,
		cachePrefix: cfg.CachePrefix,
		client:      cfg.HTTPClient,
		logger:      logger,
	}
	for _, location := range cfg.Sources {
		src, err := resolver.resolve(location)
		if err != nil {
			return nil, multierr.Append(err, l.Close())
		}
		if src.temporary {
			l.tempFiles = append(l.tempFiles, src.path)
		}

		baseName := strings.TrimPrefix(src.fileName, cfg.CachePrefix)
		if name, ok := nativeLibraryName(baseName, runtime.GOOS); ok {
			if _, exists := l.libraries[name]; !exists {
				l.libraries[name] = src.path
			}
			continue
		}

		archive, err := openArchive(src)
		if err != nil {
			return nil, multierr.Append(err, l.Close())
		}
		l.archives = append(l.archives, archive)
	}
	return l, nil
}

// owns reports whether name starts with one of the owned prefixes.
func (l *IsolatedLoader) owns(name string) bool {
	for _, prefix := range l.owned {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// typeChain returns the resolvers consulted for name, in order.
func (l *IsolatedLoader) typeChain(name string) []typeResolver {
	if !l.owns(name) {
		return []typeResolver{l.typeFromParent}
	}
	return []typeResolver{l.typeFromArchives, l.typeFromParent}
}

// LoadType returns the type called name. Owned names are searched in the
// archives first, the first archive containing the type wins; other names
// and owned names missing from the archives are resolved by the parent.
func (l *IsolatedLoader) LoadType(name string) (*Type, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, NewLoaderClosedError()
	}
	if t, ok := l.types[name]; ok {
		return t, nil
	}

	for _, resolve := range l.typeChain(name) {
		t, found, err := resolve(name)
		if err != nil {
			return nil, err
		}
		if found {
			l.types[name] = t
			return t, nil
		}
	}
	return nil, NewTypeNotFoundError(name, nil)
}

func (l *IsolatedLoader) typeFromArchives(name string) (*Type, bool, error) {
	entry := typeEntryName(name)
	for _, archive := range l.archives {
		source, found, err := archive.read(entry)
		if err != nil {
			return nil, false, err
		}
		if !found {
			continue
		}
		origin := archive.location + "!/" + entry
		proto, err := compileScript(name, origin, source)
		if err != nil {
			return nil, false, err
		}
		return &Type{Name: name, Origin: origin, script: proto, loader: l}, true, nil
	}
	return nil, false, nil
}

func (l *IsolatedLoader) typeFromParent(name string) (*Type, bool, error) {
	t, err := l.parent.LoadType(name)
	if err != nil {
		return nil, false, nil
	}
	return t, true, nil
}

// Resource returns the content of the entry called name, searching the
// archives first and the parent then.
func (l *IsolatedLoader) Resource(name string) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return nil, NewLoaderClosedError()
	}
	for _, archive := range l.archives {
		data, found, err := archive.read(name)
		if err != nil {
			return nil, err
		}
		if found {
			return data, nil
		}
	}
	return l.parent.Resource(name)
}

// Properties reads the properties resource base+".properties", such as
// "com/example/Actions", with its locale variants applied.
func (l *IsolatedLoader) Properties(base string) (map[string]string, error) {
	return readLocalizedProperties(l, base, l.locale)
}

// Entries lists the file entries of the archives, in archive order.
func (l *IsolatedLoader) Entries() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, archive := range l.archives {
		for _, name := range archive.names {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return names
}

// Libraries lists the short names of the native libraries, sorted.
func (l *IsolatedLoader) Libraries() []string {
	names := make([]string, 0, len(l.libraries))
	for name := range l.libraries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FindLibrary returns the local path of the native library called name, as
// in "sqlite" for libsqlite.so.
func (l *IsolatedLoader) FindLibrary(name string) (string, error) {
	if path, ok := l.libraries[name]; ok {
		return path, nil
	}
	return "", NewLibraryNotFoundError(name)
}

// Close closes the archives and removes the temporary copies of the sources.
// Types already materialized stay usable.
func (l *IsolatedLoader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true

	var err error
	for _, archive := range l.archives {
		err = multierr.Append(err, archive.reader.Close())
	}
	for _, path := range l.tempFiles {
		if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
			err = multierr.Append(err, removeErr)
		}
	}
	return err
}
