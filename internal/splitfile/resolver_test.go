package splitfile

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IYouKnow/davproxy/internal/model"
)

type fakeFetcher struct {
	manifests map[string]string
}

func (f *fakeFetcher) Get(ctx context.Context, canonicalPath, rangeHeader string) (io.ReadCloser, error) {
	body, ok := f.manifests[canonicalPath]
	if !ok {
		return nil, assert.AnError
	}
	return io.NopCloser(bytes.NewBufferString(body)), nil
}

func TestResolve_MergesSplitFileAndRemovesPhysicalParts(t *testing.T) {
	listing := map[string]*model.Meta{
		"/a/":                    {IsCollection: true},
		"/a/file.bin":            {ContentLength: 10},
		"/a/big.dat":             {ContentLength: 100},
		"/a/big.dat.part001":     {ContentLength: 100},
		"/a/big.dat.part002":     {ContentLength: 100},
		"/a/big.dat.splitinfo":   {ContentLength: 55},
	}

	fetcher := &fakeFetcher{manifests: map[string]string{
		"/a/big.dat.splitinfo": `{"meta":{"content_length":300},"splitFileList":[
			{"fileName":"big.dat","fileSize":100},
			{"fileName":"big.dat.part001","fileSize":100},
			{"fileName":"big.dat.part002","fileSize":100}
		]}`,
	}}

	Resolve(context.Background(), fetcher, "/a/", listing)

	assert.Len(t, listing, 3)
	assert.Contains(t, listing, "/a/")
	assert.Contains(t, listing, "/a/file.bin")
	require.Contains(t, listing, "/a/big.dat")

	head := listing["/a/big.dat"]
	require.NotNil(t, head.SplitInfo)
	assert.EqualValues(t, 300, head.ContentLength)
	assert.Equal(t, "big.dat", head.SplitInfo.SplitFileList[0].FileName)
}

func TestResolve_UnreachableManifestLeavesHeadWithoutSplitInfo(t *testing.T) {
	listing := map[string]*model.Meta{
		"/a/big.dat":           {ContentLength: 100},
		"/a/big.dat.splitinfo": {ContentLength: 10},
	}
	fetcher := &fakeFetcher{manifests: map[string]string{}}

	Resolve(context.Background(), fetcher, "/a/", listing)

	require.Contains(t, listing, "/a/big.dat")
	assert.Nil(t, listing["/a/big.dat"].SplitInfo)
	assert.NotContains(t, listing, "/a/big.dat.splitinfo")
}

func TestIsPartSegment(t *testing.T) {
	assert.True(t, isPartSegment("big.dat.part001"))
	assert.True(t, isPartSegment("big.dat.part123"))
	assert.False(t, isPartSegment("big.dat"))
	assert.False(t, isPartSegment("big.dat.partial"))
}
