package propfind

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMultistatus = `<?xml version="1.0" encoding="utf-8"?>
<D:multistatus xmlns:D="DAV:">
  <D:response>
    <D:href>/remote.php/dav/files/bob/a/</D:href>
    <D:propstat>
      <D:prop>
        <D:resourcetype><D:collection/></D:resourcetype>
        <D:displayname>a</D:displayname>
        <D:getlastmodified>Mon, 12 Jan 2024 10:00:00 GMT</D:getlastmodified>
      </D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
  </D:response>
  <D:response>
    <D:href>/remote.php/dav/files/bob/a/file.bin</D:href>
    <D:propstat>
      <D:prop>
        <D:resourcetype/>
        <D:getcontentlength>42</D:getcontentlength>
        <D:getcontenttype>text/plain</D:getcontenttype>
        <D:getetag>"abc123"</D:getetag>
        <D:creationdate>2024-01-01T00:00:00Z</D:creationdate>
      </D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
  </D:response>
</D:multistatus>`

func TestParse_BasicListing(t *testing.T) {
	result, err := Parse([]byte(sampleMultistatus), "https://host/remote.php/dav/files/bob", "/remote.php/dav/files/bob")
	require.NoError(t, err)

	dir, ok := result["/a/"]
	require.True(t, ok)
	assert.True(t, dir.IsCollection)
	assert.Equal(t, "a", dir.DisplayName)

	file, ok := result["/a/file.bin"]
	require.True(t, ok)
	assert.False(t, file.IsCollection)
	assert.EqualValues(t, 42, file.ContentLength)
	assert.Equal(t, "text/plain", file.ContentType)
	assert.Equal(t, "abc123", file.ETag)
	assert.Equal(t, 2024, file.CreationDate.Year())
}

func TestParse_MissingResourceTypeIsFatal(t *testing.T) {
	const body = `<?xml version="1.0"?>
<D:multistatus xmlns:D="DAV:">
  <D:response>
    <D:href>/remote.php/dav/files/bob/x</D:href>
    <D:propstat>
      <D:prop>
        <D:displayname>x</D:displayname>
      </D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
  </D:response>
</D:multistatus>`

	_, err := Parse([]byte(body), "https://host/remote.php/dav/files/bob", "/remote.php/dav/files/bob")
	assert.Error(t, err)
}

func TestParse_SkipsNon200Propstat(t *testing.T) {
	const body = `<?xml version="1.0"?>
<D:multistatus xmlns:D="DAV:">
  <D:response>
    <D:href>/remote.php/dav/files/bob/missing-prop</D:href>
    <D:propstat>
      <D:prop><D:quota-used-bytes/></D:prop>
      <D:status>HTTP/1.1 404 Not Found</D:status>
    </D:propstat>
  </D:response>
</D:multistatus>`

	result, err := Parse([]byte(body), "https://host/remote.php/dav/files/bob", "/remote.php/dav/files/bob")
	require.NoError(t, err)
	assert.Empty(t, result)
}
