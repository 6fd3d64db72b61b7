// scanner.go: Bundle discovery in folders and at explicit URLs
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package goextensions

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agilira/go-timecache"
)

// ScannerConfig lists where bundles are searched and how they are checked.
type ScannerConfig struct {
	// Folders are scanned non-recursively for regular files, each folder
	// from the highest to the lowest version found in its file names.
	Folders []string

	// URLs are scanned in the given order.
	URLs []string

	CacheFolder string
	CachePrefix string
	Locale      string

	// Compatibility is the running host and runtime checked against
	// manifests. Zero fields take DefaultCompatibility values.
	Compatibility Compatibility

	HTTPClient *http.Client
}

// BundleRecord is a bundle registered by a scan: its manifest, its loader and
// the validated factory of its extension type.
type BundleRecord struct {
	Manifest Manifest

	// Location is the source the bundle was read from and ManifestLocation
	// the manifest entry inside it.
	Location         string
	ManifestLocation string

	// Path is the local file backing the bundle, empty for remote bundles.
	Path string

	Type         *Type
	Loader       *IsolatedLoader
	DiscoveredAt time.Time

	factory Factory
}

// ScanReport counts the outcome of a scan.
type ScanReport struct {
	Candidates int `json:"candidates"`
	Registered int `json:"registered"`
	Rejected   int `json:"rejected"`
	Duplicates int `json:"duplicates"`
}

// BundleScanner finds bundles, validates their manifests and types, and
// builds their records. Invalid candidates are logged at Warn level and
// skipped; a scan always completes.
type BundleScanner struct {
	config ScannerConfig
	host   ParentLoader
	logger Logger
}

// NewBundleScanner creates a scanner resolving host types through host.
func NewBundleScanner(config ScannerConfig, host ParentLoader, logger Logger) *BundleScanner {
	if logger == nil {
		logger = DefaultLogger()
	}
	if host == nil {
		host = NewHostLoader(nil)
	}
	config.Compatibility = config.Compatibility.withDefaults()
	return &BundleScanner{config: config, host: host, logger: logger}
}

// scanCandidate is a source to scan and its local path when it has one.
type scanCandidate struct {
	location string
	path     string
}

// Scan reads every candidate and returns the records in registration order.
// For a bundle name, the first record wins.
func (s *BundleScanner) Scan() ([]*BundleRecord, ScanReport) {
	var (
		records []*BundleRecord
		report  ScanReport
		names   = make(map[string]struct{})
	)

	for _, candidate := range s.candidates() {
		report.Candidates++
		records = s.scanCandidate(candidate, names, records, &report)
	}
	report.Registered = len(records)

	s.logger.Info("Extension scan completed",
		"candidates", report.Candidates,
		"registered", report.Registered,
		"rejected", report.Rejected,
		"duplicates", report.Duplicates)
	return records, report
}

// candidates lists the folder files, highest version first within each
// folder, then the URLs in their given order.
func (s *BundleScanner) candidates() []scanCandidate {
	var candidates []scanCandidate
	for _, folder := range s.config.Folders {
		entries, err := os.ReadDir(folder)
		if err != nil {
			s.logger.Debug("Extension folder not readable", "folder", folder, "error", err)
			continue
		}
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			if entry.Type().IsRegular() {
				names = append(names, entry.Name())
			}
		}
		SortVersionsDescending(names)
		for _, name := range names {
			path := filepath.Join(folder, name)
			candidates = append(candidates, scanCandidate{location: path, path: path})
		}
	}

	for _, location := range s.config.URLs {
		candidate := scanCandidate{location: location}
		if origin, err := parseSource(location); err == nil && origin.remote == nil {
			candidate.path = origin.local
		}
		candidates = append(candidates, candidate)
	}
	return candidates
}

func (s *BundleScanner) scanCandidate(candidate scanCandidate, names map[string]struct{}, records []*BundleRecord, report *ScanReport) []*BundleRecord {
	loader, err := NewIsolatedLoader(LoaderConfig{
		Sources:       []string{candidate.location},
		OwnedPrefixes: []string{""},
		CacheFolder:   s.config.CacheFolder,
		CachePrefix:   s.config.CachePrefix,
		Locale:        s.config.Locale,
		HTTPClient:    s.config.HTTPClient,
		Logger:        s.logger,
	}, s.host)
	if err != nil {
		report.Rejected++
		s.logger.Warn("Invalid extension bundle", "location", candidate.location, "error", err)
		return records
	}

	kept := false
	for _, entry := range loader.Entries() {
		if !isManifestEntry(entry) {
			continue
		}
		manifestLocation := candidate.location + "!/" + entry
		record, err := s.readRecord(loader, strings.TrimSuffix(entry, ManifestFileName), manifestLocation)
		if err != nil {
			report.Rejected++
			s.logger.Warn("Invalid extension bundle", "location", manifestLocation, "error", err)
			continue
		}
		if _, exists := names[record.Manifest.Name]; exists {
			report.Duplicates++
			s.logger.Debug("Extension bundle already registered", "name", record.Manifest.Name, "location", manifestLocation)
			continue
		}

		record.Location = candidate.location
		record.Path = candidate.path
		names[record.Manifest.Name] = struct{}{}
		records = append(records, record)
		kept = true
	}

	if !kept {
		if err := loader.Close(); err != nil {
			s.logger.Debug("Extension loader close failed", "location", candidate.location, "error", err)
		}
	}
	return records
}

// readRecord reads and checks the manifest of a family then validates its
// extension type.
func (s *BundleScanner) readRecord(loader *IsolatedLoader, familyPrefix, manifestLocation string) (*BundleRecord, error) {
	manifest, err := readManifest(loader, familyPrefix, s.config.Locale, manifestLocation)
	if err != nil {
		return nil, err
	}
	if err := s.config.Compatibility.Check(manifest); err != nil {
		return nil, err
	}

	extensionType, err := loader.LoadType(manifest.ClassName)
	if err != nil {
		return nil, err
	}
	factory, err := newFactory(extensionType, s.logger)
	if err != nil {
		return nil, err
	}

	return &BundleRecord{
		Manifest:         manifest,
		ManifestLocation: manifestLocation,
		Type:             extensionType,
		Loader:           loader,
		DiscoveredAt:     timecache.CachedTime(),
		factory:          factory,
	}, nil
}

// isManifestEntry reports whether an archive entry is a manifest: its name
// is the manifest file name, alone or after a '/'.
func isManifestEntry(entry string) bool {
	if !strings.HasSuffix(entry, ManifestFileName) {
		return false
	}
	prefix := entry[:len(entry)-len(ManifestFileName)]
	return prefix == "" || strings.HasSuffix(prefix, "/")
}
