// Package propfind parses WebDAV multistatus XML Depth-1 listings from the
// backend into canonical meta records keyed by decoded path (spec §4.2).
package propfind

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/IYouKnow/davproxy/internal/model"
	"github.com/IYouKnow/davproxy/internal/pathutil"
)

// multistatus and friends mirror the shape of a WebDAV DAV: multistatus
// response. Tag names are left namespace-agnostic (no "DAV:" prefix on the
// struct tags) so responses using any namespace prefix (d:, D:, or a
// default namespace) unmarshal the same way.
type multistatus struct {
	XMLName   xml.Name   `xml:"multistatus"`
	Responses []response `xml:"response"`
}

type response struct {
	Href     string   `xml:"href"`
	Propstat propstat `xml:"propstat"`
}

type propstat struct {
	Prop   prop   `xml:"prop"`
	Status string `xml:"status"`
}

type prop struct {
	ResourceType  *resourceType `xml:"resourcetype"`
	DisplayName   string        `xml:"displayname"`
	ContentLength string        `xml:"getcontentlength"`
	ContentType   string        `xml:"getcontenttype"`
	ETag          string        `xml:"getetag"`
	CreationDate  string        `xml:"creationdate"`
	LastModified  string        `xml:"getlastmodified"`
}

type resourceType struct {
	Collection *struct{} `xml:"collection"`
}

// Parse parses a 207 multistatus body into canonical path -> meta. An entry
// missing the resourcetype property (so "is_collection" cannot be
// determined) is fatal for the whole parse, per spec §4.2 — the caller
// treats a parse error as a metadata miss (spec §7 kind 4).
func Parse(raw []byte, backendBaseURL, backendBasePath string) (map[string]*model.Meta, error) {
	var ms multistatus
	if err := xml.Unmarshal(raw, &ms); err != nil {
		return nil, fmt.Errorf("parse multistatus: %w", err)
	}

	result := make(map[string]*model.Meta, len(ms.Responses))
	for _, r := range ms.Responses {
		if !strings.Contains(r.Propstat.Status, "200") {
			continue
		}

		decodedHref, err := url.PathUnescape(r.Href)
		if err != nil {
			return nil, fmt.Errorf("decode href %q: %w", r.Href, err)
		}

		if r.Propstat.Prop.ResourceType == nil {
			return nil, fmt.Errorf("entry %q is missing is_collection", decodedHref)
		}

		meta := &model.Meta{
			IsCollection: r.Propstat.Prop.ResourceType.Collection != nil,
			DisplayName:  r.Propstat.Prop.DisplayName,
			ContentType:  r.Propstat.Prop.ContentType,
			ETag:         strings.Trim(r.Propstat.Prop.ETag, `"`),
		}

		if r.Propstat.Prop.ContentLength != "" {
			if n, err := strconv.ParseInt(r.Propstat.Prop.ContentLength, 10, 64); err == nil {
				meta.ContentLength = n
			}
		}
		if r.Propstat.Prop.CreationDate != "" {
			if t, err := parseISO8601(r.Propstat.Prop.CreationDate); err == nil {
				meta.CreationDate = t
			}
		}
		if r.Propstat.Prop.LastModified != "" {
			if t, err := http.ParseTime(r.Propstat.Prop.LastModified); err == nil {
				meta.LastModified = t
			}
		}

		canonical := pathutil.Canonicalize(decodedHref, backendBaseURL, backendBasePath)
		if meta.IsCollection {
			if !strings.HasSuffix(canonical, "/") {
				canonical += "/"
			}
		} else {
			canonical = strings.TrimSuffix(canonical, "/")
		}

		result[canonical] = meta
	}

	return result, nil
}

func parseISO8601(s string) (time.Time, error) {
	formats := []string{time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05Z"}
	var lastErr error
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, lastErr
}
