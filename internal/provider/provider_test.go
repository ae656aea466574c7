package provider

import (
	"context"
	"io"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IYouKnow/davproxy/internal/backend"
	"github.com/IYouKnow/davproxy/internal/metacache"
	"github.com/IYouKnow/davproxy/internal/testutil"
)

func newTestFS(t *testing.T) (*FileSystem, *testutil.Backend) {
	t.Helper()
	be, err := testutil.New()
	require.NoError(t, err)
	t.Cleanup(be.Close)

	client, err := backend.New(be.URL(), "user", "pass")
	require.NoError(t, err)

	cache := metacache.New(100, time.Minute, NewLoader(client))
	return NewFileSystem(client, cache, 0), be
}

func TestFileSystem_WriteThenReadRoundTrip(t *testing.T) {
	fs, _ := newTestFS(t)
	ctx := context.Background()

	wh, err := fs.OpenFile(ctx, "/hello.txt", os.O_WRONLY|os.O_CREATE, 0644)
	require.NoError(t, err)
	_, err = wh.Write([]byte("hello provider"))
	require.NoError(t, err)
	require.NoError(t, wh.Close())

	rh, err := fs.OpenFile(ctx, "/hello.txt", os.O_RDONLY, 0)
	require.NoError(t, err)
	defer rh.Close()

	data, err := io.ReadAll(rh)
	require.NoError(t, err)
	assert.Equal(t, "hello provider", string(data))
}

func TestFileSystem_MkdirAndReaddir(t *testing.T) {
	fs, _ := newTestFS(t)
	ctx := context.Background()

	require.NoError(t, fs.Mkdir(ctx, "/docs", 0755))

	wh, err := fs.OpenFile(ctx, "/docs/a.txt", os.O_WRONLY|os.O_CREATE, 0644)
	require.NoError(t, err)
	_, err = wh.Write([]byte("a"))
	require.NoError(t, err)
	require.NoError(t, wh.Close())

	dh, err := fs.OpenFile(ctx, "/docs", os.O_RDONLY, 0)
	require.NoError(t, err)
	defer dh.Close()

	infos, err := dh.Readdir(-1)
	require.NoError(t, err)

	var names []string
	for _, fi := range infos {
		names = append(names, fi.Name())
	}
	sort.Strings(names)
	assert.Equal(t, []string{"a.txt"}, names)
}

func TestFileSystem_RemoveAllDeletesFile(t *testing.T) {
	fs, be := newTestFS(t)
	ctx := context.Background()

	wh, err := fs.OpenFile(ctx, "/gone.txt", os.O_WRONLY|os.O_CREATE, 0644)
	require.NoError(t, err)
	_, _ = wh.Write([]byte("x"))
	require.NoError(t, wh.Close())

	require.NoError(t, fs.RemoveAll(ctx, "/gone.txt"))

	assert.False(t, be.Exists("/gone.txt"))

	_, err = fs.Stat(ctx, "/gone.txt")
	assert.Error(t, err)
}

func TestFileSystem_StatMissingReturnsNotExist(t *testing.T) {
	fs, _ := newTestFS(t)
	_, err := fs.Stat(context.Background(), "/nope.txt")
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}
