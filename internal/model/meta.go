// Package model holds the types shared between the PROPFIND parser, the
// split-file resolver, the metadata cache, and the provider facade.
package model

import "time"

// Meta is the unit of information the cache stores per canonical path, and
// the unit the PROPFIND parser produces for every entry of a directory
// listing.
type Meta struct {
	IsCollection  bool
	ContentLength int64
	ContentType   string
	DisplayName   string
	ETag          string
	CreationDate  time.Time
	LastModified  time.Time

	// SplitInfo is non-nil only for a logical split-file head: a file whose
	// physical backend representation is a head object plus .partNNN
	// siblings plus a .splitinfo manifest.
	SplitInfo *Manifest
}

// PartInfo names one physical part of a split file and its size in bytes.
type PartInfo struct {
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
}

// ManifestMeta is the "meta" object inside a .splitinfo sidecar document.
type ManifestMeta struct {
	ContentLength int64 `json:"content_length"`
}

// Manifest is the JSON document stored at "<file>.splitinfo". SplitFileList[0]
// always names the head file itself.
type Manifest struct {
	Meta          ManifestMeta `json:"meta"`
	SplitFileList []PartInfo   `json:"splitFileList"`
}

// TotalSize sums the declared size of every part in the manifest.
func (m *Manifest) TotalSize() int64 {
	var total int64
	for _, p := range m.SplitFileList {
		total += p.FileSize
	}
	return total
}

// ContentTypeOrDefault returns ContentType, defaulting to the generic binary
// MIME type when the backend never reported one.
func (m Meta) ContentTypeOrDefault() string {
	if m.ContentType == "" {
		return "application/octet-stream"
	}
	return m.ContentType
}
