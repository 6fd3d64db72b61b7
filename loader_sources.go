// loader_sources.go: Local, cached and temporary copies of loader sources
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package goextensions

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/singleflight"
)

const (
	fetchMaxRetries   = 3
	fetchInitialDelay = 100 * time.Millisecond
	fetchMaxDelay     = 2 * time.Second
)

// cacheWrites collapses concurrent copies to the same cache file.
var cacheWrites singleflight.Group

// resolvedSource is a loader source available as a local file.
type resolvedSource struct {
	location  string
	fileName  string
	path      string
	temporary bool
}

// sourceResolver copies sources into the cache folder, or into temporary
// files when there is none.
type sourceResolver struct {
	cacheFolder string
	cachePrefix string
	client      *http.Client
	logger      Logger
}

// sourceOrigin is where the bytes of a source come from.
type sourceOrigin struct {
	location string
	local    string
	remote   *url.URL
}

// parseSource accepts local paths and file, http and https URLs.
func parseSource(location string) (sourceOrigin, error) {
	if !strings.Contains(location, "://") {
		return sourceOrigin{location: location, local: location}, nil
	}
	u, err := url.Parse(location)
	if err != nil {
		return sourceOrigin{}, NewUnsupportedSourceError(location)
	}
	switch u.Scheme {
	case "file":
		return sourceOrigin{location: location, local: filepath.FromSlash(u.Path)}, nil
	case "http", "https":
		return sourceOrigin{location: location, remote: u}, nil
	default:
		return sourceOrigin{}, NewUnsupportedSourceError(location)
	}
}

// stableFileName is the cache prefix followed by the base name of the
// source. URLs without a usable base name are named after the hash of the
// whole URL.
func (r *sourceResolver) stableFileName(origin sourceOrigin) string {
	var base string
	if origin.remote != nil {
		base = path.Base(origin.remote.Path)
		if base == "." || base == "/" || base == "" {
			base = fmt.Sprintf("%016x", xxh3.HashString(origin.location))
		}
	} else {
		base = filepath.Base(origin.local)
	}
	return r.cachePrefix + base
}

// resolve makes a source available as a local file.
func (r *sourceResolver) resolve(location string) (resolvedSource, error) {
	origin, err := parseSource(location)
	if err != nil {
		return resolvedSource{}, err
	}
	fileName := r.stableFileName(origin)

	if r.cacheFolder == "" {
		tempPath, err := r.copyToTemp(origin, fileName)
		if err != nil {
			return resolvedSource{}, err
		}
		return resolvedSource{location: location, fileName: fileName, path: tempPath, temporary: true}, nil
	}

	if err := os.MkdirAll(r.cacheFolder, 0o755); err != nil {
		return resolvedSource{}, NewCacheFolderError(r.cacheFolder, err)
	}
	target := filepath.Join(r.cacheFolder, fileName)
	_, err, _ = cacheWrites.Do(target, func() (interface{}, error) {
		return nil, r.refreshCache(origin, target)
	})
	if err != nil {
		return resolvedSource{}, err
	}
	return resolvedSource{location: location, fileName: fileName, path: target}, nil
}

// refreshCache copies the source to target unless target exists and is not
// older than the source.
func (r *sourceResolver) refreshCache(origin sourceOrigin, target string) error {
	var cachedAt time.Time
	cached := false
	if info, err := os.Stat(target); err == nil && info.Mode().IsRegular() {
		cachedAt = info.ModTime()
		cached = true
	}

	body, modTime, err := r.open(origin, cachedAt, cached)
	if err != nil {
		return err
	}
	if body == nil {
		r.logger.Debug("Using cached extension source", "location", origin.location, "path", target)
		return nil
	}
	defer body.Close()

	if cached && !cachedAt.Before(modTime) {
		r.logger.Debug("Using cached extension source", "location", origin.location, "path", target)
		return nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".partial-*")
	if err != nil {
		return NewCacheFolderError(r.cacheFolder, err)
	}
	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return NewSourceFetchError(origin.location, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return NewCacheFolderError(r.cacheFolder, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return NewCacheFolderError(r.cacheFolder, err)
	}
	r.logger.Debug("Cached extension source", "location", origin.location, "path", target)
	return nil
}

// copyToTemp copies the source into a new temporary file removed when the
// owning loader is closed.
func (r *sourceResolver) copyToTemp(origin sourceOrigin, fileName string) (string, error) {
	body, _, err := r.open(origin, time.Time{}, false)
	if err != nil {
		return "", err
	}
	defer body.Close()

	tmp, err := os.CreateTemp("", "extension-*-"+fileName)
	if err != nil {
		return "", NewSourceFetchError(origin.location, err)
	}
	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", NewSourceFetchError(origin.location, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", NewSourceFetchError(origin.location, err)
	}
	return tmp.Name(), nil
}

// open returns the content of the source and its modification time. For
// remote sources with a cached copy, a nil body means the server reported the
// copy as up to date.
func (r *sourceResolver) open(origin sourceOrigin, cachedAt time.Time, cached bool) (io.ReadCloser, time.Time, error) {
	if origin.remote == nil {
		file, err := os.Open(origin.local)
		if err != nil {
			return nil, time.Time{}, NewSourceFetchError(origin.location, err)
		}
		info, err := file.Stat()
		if err != nil {
			file.Close()
			return nil, time.Time{}, NewSourceFetchError(origin.location, err)
		}
		if !info.Mode().IsRegular() {
			file.Close()
			return nil, time.Time{}, NewSourceFetchError(origin.location, fmt.Errorf("not a regular file"))
		}
		return file, info.ModTime(), nil
	}
	return r.fetch(origin, cachedAt, cached)
}

// fetch GETs a remote source, retrying transport failures and 5xx answers.
func (r *sourceResolver) fetch(origin sourceOrigin, cachedAt time.Time, cached bool) (io.ReadCloser, time.Time, error) {
	client := r.client
	if client == nil {
		client = http.DefaultClient
	}

	var (
		response *http.Response
		terminal error
	)
	retrier := retry.NewRetrier(fetchMaxRetries, fetchInitialDelay, fetchMaxDelay)
	err := retrier.Run(func() error {
		request, err := http.NewRequest(http.MethodGet, origin.location, nil)
		if err != nil {
			terminal = err
			return nil
		}
		if cached {
			request.Header.Set("If-Modified-Since", cachedAt.UTC().Format(http.TimeFormat))
		}
		resp, err := client.Do(request)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			return fmt.Errorf("unexpected status %s", resp.Status)
		}
		response = resp
		return nil
	})
	if err != nil {
		return nil, time.Time{}, NewSourceFetchError(origin.location, err)
	}
	if terminal != nil {
		return nil, time.Time{}, NewSourceFetchError(origin.location, terminal)
	}

	switch {
	case response.StatusCode == http.StatusNotModified && cached:
		response.Body.Close()
		return nil, time.Time{}, nil
	case response.StatusCode != http.StatusOK:
		response.Body.Close()
		return nil, time.Time{}, NewSourceFetchError(origin.location, fmt.Errorf("unexpected status %s", response.Status))
	}

	var modTime time.Time
	if header := response.Header.Get("Last-Modified"); header != "" {
		if parsed, err := http.ParseTime(header); err == nil {
			modTime = parsed
		}
	}
	return response.Body, modTime, nil
}
