// Package pathutil implements the canonical-path rules from the resource
// meta data model: slash-delimited, percent-decoded, never carrying the
// backend's origin or URL path prefix.
package pathutil

import "strings"

// Canonicalize strips the backend base URL (and, failing that, the backend
// URL's path component) from a raw, percent-decoded backend href, producing
// the canonical path used as every cache key and provider input.
func Canonicalize(decodedHref, backendBaseURL, backendBasePath string) string {
	p := decodedHref
	switch {
	case strings.HasPrefix(p, backendBaseURL):
		p = strings.TrimPrefix(p, backendBaseURL)
	case backendBasePath != "/" && strings.HasPrefix(p, backendBasePath):
		p = strings.TrimPrefix(p, backendBasePath)
	}
	if p == "" {
		p = "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// Parent returns the canonical path of the directory containing path. The
// parent of a collection is its own containing directory (trailing slash
// stripped before locating the last segment), never the collection itself.
func Parent(path string) string {
	trimmed := strings.TrimSuffix(path, "/")
	if trimmed == "" {
		return "/"
	}
	idx := strings.LastIndex(trimmed, "/")
	if idx <= 0 {
		return "/"
	}
	return trimmed[:idx+1]
}

// IsCollectionPath reports whether a canonical path names a directory (i.e.
// ends with a trailing slash), per the data model in spec §3.
func IsCollectionPath(path string) bool {
	return strings.HasSuffix(path, "/")
}

// Base returns the last path segment (file or directory name) of a canonical
// path, with any trailing slash removed first.
func Base(path string) string {
	trimmed := strings.TrimSuffix(path, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return trimmed
	}
	return trimmed[idx+1:]
}

// Join appends a child name to a canonical directory path.
func Join(dir, name string) string {
	if !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	return dir + strings.TrimPrefix(name, "/")
}

// HasPrefix reports whether key is exactly path or is nested under it,
// matching the "string prefix" rule used by cache invalidation.
func HasPrefix(key, prefix string) bool {
	return strings.HasPrefix(key, prefix)
}
