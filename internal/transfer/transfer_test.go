package transfer

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IYouKnow/davproxy/internal/backend"
	"github.com/IYouKnow/davproxy/internal/model"
	"github.com/IYouKnow/davproxy/internal/testutil"
)

func newTestClient(t *testing.T, be *testutil.Backend) *backend.Client {
	t.Helper()
	c, err := backend.New(be.URL(), "user", "pass")
	require.NoError(t, err)
	return c
}

func TestDownload_PlainFileReadAndSeek(t *testing.T) {
	be, err := testutil.New()
	require.NoError(t, err)
	defer be.Close()
	require.NoError(t, be.Put("/file.bin", []byte("0123456789")))

	client := newTestClient(t, be)
	dl := NewDownload(context.Background(), client, "/file.bin", &model.Meta{ContentLength: 10})
	defer dl.Close()

	buf := make([]byte, 4)
	n, err := dl.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(buf[:n]))

	pos, err := dl.Seek(7, io.SeekStart)
	require.NoError(t, err)
	assert.EqualValues(t, 7, pos)

	rest, err := io.ReadAll(dl)
	require.NoError(t, err)
	assert.Equal(t, "789", string(rest))
}

func TestDownload_SplitFileStitchesParts(t *testing.T) {
	be, err := testutil.New()
	require.NoError(t, err)
	defer be.Close()
	require.NoError(t, be.Put("/big.dat", []byte("AAAAA")))
	require.NoError(t, be.Put("/big.dat.part001", []byte("BBBBB")))
	require.NoError(t, be.Put("/big.dat.part002", []byte("CC")))

	client := newTestClient(t, be)
	meta := &model.Meta{
		ContentLength: 12,
		SplitInfo: &model.Manifest{
			Meta: model.ManifestMeta{ContentLength: 12},
			SplitFileList: []model.PartInfo{
				{FileName: "big.dat", FileSize: 5},
				{FileName: "big.dat.part001", FileSize: 5},
				{FileName: "big.dat.part002", FileSize: 2},
			},
		},
	}
	dl := NewDownload(context.Background(), client, "/big.dat", meta)
	defer dl.Close()

	all, err := io.ReadAll(dl)
	require.NoError(t, err)
	assert.Equal(t, "AAAAABBBBBCC", string(all))
}

func TestUpload_SingleShardNoManifest(t *testing.T) {
	be, err := testutil.New()
	require.NoError(t, err)
	defer be.Close()

	client := newTestClient(t, be)
	up := NewUpload(context.Background(), client, "/small.txt", "text/plain", 1<<20)
	_, err = up.Write([]byte("hello world"))
	require.NoError(t, err)
	require.NoError(t, up.Close())

	data, err := be.Get("/small.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
	assert.False(t, be.Exists("/small.txt.splitinfo"))
}

func TestUpload_ShardsPastMaxPartSizeAndEmitsManifest(t *testing.T) {
	be, err := testutil.New()
	require.NoError(t, err)
	defer be.Close()

	client := newTestClient(t, be)
	up := NewUpload(context.Background(), client, "/big.dat", "application/octet-stream", 5)
	_, err = up.Write([]byte("AAAAABBBBBCC"))
	require.NoError(t, err)
	require.NoError(t, up.Close())

	data, err := be.Get("/big.dat")
	require.NoError(t, err)
	assert.Equal(t, "AAAAA", string(data))

	data, err = be.Get("/big.dat.part001")
	require.NoError(t, err)
	assert.Equal(t, "BBBBB", string(data))

	data, err = be.Get("/big.dat.part002")
	require.NoError(t, err)
	assert.Equal(t, "CC", string(data))

	manifestRaw, err := be.Get("/big.dat.splitinfo")
	require.NoError(t, err)

	var manifest model.Manifest
	require.NoError(t, json.Unmarshal(manifestRaw, &manifest))
	assert.EqualValues(t, 12, manifest.Meta.ContentLength)
	require.Len(t, manifest.SplitFileList, 3)
	assert.Equal(t, "big.dat", manifest.SplitFileList[0].FileName)
	assert.Equal(t, "big.dat.part002", manifest.SplitFileList[2].FileName)
}
