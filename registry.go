// registry.go: Extension registry binding bundle extensions to open documents
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package goextensions

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/agilira/argus"
	"github.com/agilira/go-timecache"
	"go.uber.org/multierr"
)

// RegistryOption customizes a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the registry logger. Accepts a Logger or a *zap.Logger.
func WithLogger(logger any) RegistryOption {
	return func(r *Registry) {
		r.logger = NewLogger(logger)
	}
}

// WithHostLoader sets the loader resolving host types and resources.
func WithHostLoader(host *HostLoader) RegistryOption {
	return func(r *Registry) {
		r.host = host
	}
}

// WithHTTPClient sets the client fetching remote bundles.
func WithHTTPClient(client *http.Client) RegistryOption {
	return func(r *Registry) {
		r.httpClient = client
	}
}

// documentExtensions are the extensions of one open document.
type documentExtensions struct {
	extensions  []Extension
	loaders     map[*IsolatedLoader]struct{}
	unsubscribe func()
}

type documentTable map[Document]*documentExtensions

// Registry holds the bundles found at construction and the extensions
// instantiated for each open document. Mutations are serialized by a single
// mutex; cached extension lists are read from an immutable snapshot.
type Registry struct {
	config     RegistryConfig
	documents  DocumentCollection
	host       *HostLoader
	logger     Logger
	httpClient *http.Client
	audit      *argus.AuditLogger
	report     ScanReport

	mu        sync.Mutex
	bundles   map[string]*BundleRecord
	instances atomic.Pointer[documentTable]
	// retired holds loaders of uninstalled bundles still bound to open documents.
	retired map[*IsolatedLoader]struct{}
	closed  bool
}

// NewRegistry scans the folders and URLs of config and returns the registry
// of the bundles found. Bundle failures are logged, never returned; errors
// only come from an invalid configuration or audit logger.
func NewRegistry(config RegistryConfig, documents DocumentCollection, opts ...RegistryOption) (*Registry, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.ApplyDefaults()

	r := &Registry{
		config:    config,
		documents: documents,
		logger:    DefaultLogger(),
		bundles:   make(map[string]*BundleRecord),
		retired:   make(map[*IsolatedLoader]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.host == nil {
		r.host = NewHostLoader(nil)
	}
	empty := documentTable{}
	r.instances.Store(&empty)

	audit, err := openAuditLogger(config.Audit)
	if err != nil {
		return nil, err
	}
	r.audit = audit

	scanner := NewBundleScanner(ScannerConfig{
		Folders:       config.Folders,
		URLs:          config.URLs,
		CacheFolder:   config.CacheFolder,
		CachePrefix:   config.CachePrefix,
		Locale:        config.Locale,
		Compatibility: config.Compatibility(),
		HTTPClient:    r.httpClient,
	}, r.host, r.logger)
	records, report := scanner.Scan()
	for _, record := range records {
		r.bundles[record.Manifest.Name] = record
	}
	r.report = report
	return r, nil
}

// ScanReport returns the counts of the construction scan.
func (r *Registry) ScanReport() ScanReport {
	return r.report
}

// sortedBundles returns the records ordered by bundle name. Callers hold r.mu.
func (r *Registry) sortedBundles() []*BundleRecord {
	records := make([]*BundleRecord, 0, len(r.bundles))
	for _, record := range r.bundles {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Manifest.Name < records[j].Manifest.Name
	})
	return records
}

// Bundles returns the registered bundles ordered by name.
func (r *Registry) Bundles() []*BundleRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortedBundles()
}

// ListBundles returns the manifests of the registered bundles ordered by name.
func (r *Registry) ListBundles() []Manifest {
	records := r.Bundles()
	manifests := make([]Manifest, len(records))
	for i, record := range records {
		manifests[i] = record.Manifest
	}
	return manifests
}

// Bundle returns the bundle called name.
func (r *Registry) Bundle(name string) (*BundleRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.bundles[name]
	return record, ok
}

// BundleExists reports whether the primary folder contains a file called
// fileName.
func (r *Registry) BundleExists(fileName string) (bool, error) {
	folder := r.config.PrimaryFolder()
	if folder == "" {
		return false, NewNoExtensionFolderError("bundle_exists")
	}
	_, err := os.Stat(filepath.Join(folder, fileName))
	return err == nil, nil
}

// Install copies the bundle at sourcePath into the primary folder, creating
// the folder when needed. The bundle is registered by the next scan.
func (r *Registry) Install(sourcePath string) error {
	folder := r.config.PrimaryFolder()
	if folder == "" {
		return NewNoExtensionFolderError("install")
	}
	target := filepath.Join(folder, filepath.Base(sourcePath))
	if sameFile(sourcePath, target) {
		r.logger.Debug("Extension already installed", "source", sourcePath, "target", target)
		return nil
	}

	if err := copyFile(sourcePath, target); err != nil {
		r.logger.Error("Extension install failed", "source", sourcePath, "target", target, "error", err)
		return NewInstallError(target, err)
	}

	r.logger.Info("Extension installed", "source", sourcePath, "target", target)
	r.auditEvent("extension_installed", "Extension bundle installed", map[string]interface{}{
		"source": sourcePath,
		"target": target,
	})
	return nil
}

// sameFile reports whether both paths exist and name the same file.
func sameFile(a, b string) bool {
	aInfo, err := os.Stat(a)
	if err != nil {
		return false
	}
	bInfo, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(aInfo, bInfo)
}

func copyFile(sourcePath, target string) (err error) {
	source, err := os.Open(sourcePath) // #nosec G304 -- path is chosen by the user importing a bundle
	if err != nil {
		return err
	}
	defer source.Close()

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	out, err := os.Create(target) // #nosec G304 -- target is inside the primary folder
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, out.Close())
		if err != nil {
			os.Remove(target)
		}
	}()

	_, err = io.Copy(out, source)
	return err
}

// Uninstall unregisters the given bundles and deletes their files when they
// still exist. Deletion failures are aggregated in the returned error.
// Extensions already instantiated for open documents are kept until their
// documents are closed, and so are the loaders they were built from.
func (r *Registry) Uninstall(records ...*BundleRecord) error {
	if r.config.PrimaryFolder() == "" {
		return NewNoExtensionFolderError("uninstall")
	}

	r.mu.Lock()
	var unused []*IsolatedLoader
	for _, record := range records {
		if current, ok := r.bundles[record.Manifest.Name]; ok && current == record {
			delete(r.bundles, record.Manifest.Name)
		}
	}
	for _, record := range records {
		if record.Loader == nil {
			continue
		}
		if r.loaderInUse(record.Loader) {
			r.retired[record.Loader] = struct{}{}
		} else {
			delete(r.retired, record.Loader)
			unused = append(unused, record.Loader)
		}
	}
	r.mu.Unlock()

	var err error
	for _, record := range records {
		if record.Path == "" {
			continue
		}
		if _, statErr := os.Stat(record.Path); statErr != nil {
			continue
		}
		if removeErr := os.Remove(record.Path); removeErr != nil {
			r.logger.Error("Extension uninstall failed", "name", record.Manifest.Name, "path", record.Path, "error", removeErr)
			err = multierr.Append(err, NewUninstallError(record.Path, removeErr))
			continue
		}
		r.logger.Info("Extension uninstalled", "name", record.Manifest.Name, "path", record.Path)
		r.auditEvent("extension_uninstalled", "Extension bundle uninstalled", map[string]interface{}{
			"name": record.Manifest.Name,
			"path": record.Path,
		})
	}

	r.closeLoaders(unused)
	return err
}

// closeLoaders closes each distinct loader once, logging failures.
func (r *Registry) closeLoaders(loaders []*IsolatedLoader) {
	closed := make(map[*IsolatedLoader]struct{})
	for _, loader := range loaders {
		if _, done := closed[loader]; done {
			continue
		}
		closed[loader] = struct{}{}
		if closeErr := loader.Close(); closeErr != nil {
			r.logger.Debug("Extension loader close failed", "error", closeErr)
		}
	}
}

// loaderInUse reports whether a registered bundle or an extension of an open
// document uses loader. Callers hold r.mu.
func (r *Registry) loaderInUse(loader *IsolatedLoader) bool {
	for _, record := range r.bundles {
		if record.Loader == loader {
			return true
		}
	}
	for _, entry := range *r.instances.Load() {
		if _, ok := entry.loaders[loader]; ok {
			return true
		}
	}
	return false
}

// ExtensionsFor returns the extensions of doc, one per registered bundle in
// bundle name order. The first call for an open document instantiates them;
// later calls return the same slice, which callers must not modify. When the
// document is closed, each extension is destroyed once and the document is
// forgotten. An unknown document has no extensions.
//
// A bundle type failing to instantiate after passing validation panics with
// an ErrCodeInvariantViolation error.
func (r *Registry) ExtensionsFor(doc Document, prefs Preferences, controller DocumentController, undo UndoSink) ([]Extension, error) {
	if doc == nil || !r.documents.Contains(doc) {
		return []Extension{}, nil
	}
	if entry, ok := (*r.instances.Load())[doc]; ok {
		return entry.extensions, nil
	}

	entry, created, err := r.bind(doc, prefs, controller, undo)
	if err != nil {
		return nil, err
	}
	if !created {
		return entry.extensions, nil
	}
	r.logger.Debug("Extensions instantiated", "document", doc.DocumentName(), "count", len(entry.extensions))

	// The document may have been closed before the listener was registered.
	if !r.documents.Contains(doc) {
		r.release(doc, entry)
		return []Extension{}, nil
	}
	return entry.extensions, nil
}

// bind returns the extensions of doc, instantiating them and subscribing
// their release when the document has none yet.
func (r *Registry) bind(doc Document, prefs Preferences, controller DocumentController, undo UndoSink) (*documentExtensions, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, false, NewRegistryClosedError()
	}
	current := *r.instances.Load()
	if entry, ok := current[doc]; ok {
		return entry, false, nil
	}

	records := r.sortedBundles()
	extensions := make([]Extension, 0, len(records))
	loaders := make(map[*IsolatedLoader]struct{}, len(records))
	for _, record := range records {
		if record.Loader != nil {
			loaders[record.Loader] = struct{}{}
		}
		ext := record.factory()
		ext.inject(Binding{
			Loader:      record.Loader,
			Manifest:    record.Manifest,
			Preferences: prefs,
			Document:    doc,
			Controller:  controller,
			Undo:        undo,
		})
		extensions = append(extensions, ext)
	}

	entry := &documentExtensions{extensions: extensions, loaders: loaders}
	entry.unsubscribe = r.documents.Subscribe(func(event CollectionEvent) {
		if event.Type == DocumentRemoved && event.Document == doc {
			r.release(doc, entry)
		}
	})
	next := make(documentTable, len(current)+1)
	for d, e := range current {
		next[d] = e
	}
	next[doc] = entry
	r.instances.Store(&next)
	return entry, true, nil
}

// release forgets the extensions of a closed document, unsubscribes its
// listener and destroys each extension once.
func (r *Registry) release(doc Document, entry *documentExtensions) {
	r.mu.Lock()
	current := *r.instances.Load()
	if current[doc] != entry {
		r.mu.Unlock()
		return
	}
	next := make(documentTable, len(current))
	for d, e := range current {
		if d != doc {
			next[d] = e
		}
	}
	r.instances.Store(&next)
	var unused []*IsolatedLoader
	for loader := range entry.loaders {
		if _, ok := r.retired[loader]; ok && !r.loaderInUse(loader) {
			delete(r.retired, loader)
			unused = append(unused, loader)
		}
	}
	r.mu.Unlock()

	entry.unsubscribe()
	for _, ext := range entry.extensions {
		r.destroy(ext)
	}
	r.logger.Debug("Extensions destroyed", "document", doc.DocumentName(), "count", len(entry.extensions))
	r.closeLoaders(unused)
}

func (r *Registry) destroy(ext Extension) {
	defer withStackRecover(r.logger, "extension", ext.Name())()
	ext.Destroy()
}

// Close unsubscribes the document listeners, closes the bundle loaders and
// flushes the audit logger. Extensions still bound to open documents are not
// destroyed. Closing twice does nothing.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	current := *r.instances.Load()
	empty := documentTable{}
	r.instances.Store(&empty)
	loaders := make(map[*IsolatedLoader]struct{})
	for _, record := range r.bundles {
		if record.Loader != nil {
			loaders[record.Loader] = struct{}{}
		}
	}
	for loader := range r.retired {
		loaders[loader] = struct{}{}
	}
	r.retired = make(map[*IsolatedLoader]struct{})
	r.mu.Unlock()

	for _, entry := range current {
		entry.unsubscribe()
	}

	var err error
	for loader := range loaders {
		err = multierr.Append(err, loader.Close())
	}
	if r.audit != nil {
		err = multierr.Append(err, r.audit.Close())
	}
	return err
}

func (r *Registry) auditEvent(event, description string, context map[string]interface{}) {
	if r.audit == nil {
		return
	}
	context["timestamp"] = timecache.CachedTime()
	r.audit.LogSecurityEvent(event, description, context)
}
