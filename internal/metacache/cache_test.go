package metacache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IYouKnow/davproxy/internal/model"
)

func TestCache_MissTriggersFolderLoadOnce(t *testing.T) {
	var calls int32
	loader := func(ctx context.Context, folder string) (map[string]*model.Meta, error) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/a/", folder)
		return map[string]*model.Meta{
			"/a/":        {IsCollection: true},
			"/a/x":       {ContentLength: 1},
			"/a/big.dat": {ContentLength: 2},
		}, nil
	}

	c := New(100, time.Minute, loader)

	meta := c.Get(context.Background(), "/a/x")
	require.NotNil(t, meta)
	assert.EqualValues(t, 1, meta.ContentLength)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	// Second lookup on a sibling populated by the same folder fetch must not
	// re-trigger the loader.
	meta2 := c.Get(context.Background(), "/a/big.dat")
	require.NotNil(t, meta2)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestCache_TTLExpiry(t *testing.T) {
	var calls int32
	loader := func(ctx context.Context, folder string) (map[string]*model.Meta, error) {
		atomic.AddInt32(&calls, 1)
		return map[string]*model.Meta{"/x": {ContentLength: 1}}, nil
	}

	c := New(100, 50*time.Millisecond, loader)

	c.Get(context.Background(), "/x")
	c.Get(context.Background(), "/x")
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	time.Sleep(120 * time.Millisecond)

	c.Get(context.Background(), "/x")
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestCache_LoaderErrorIsTreatedAsMiss(t *testing.T) {
	loader := func(ctx context.Context, folder string) (map[string]*model.Meta, error) {
		return nil, errors.New("backend unreachable")
	}
	c := New(100, time.Minute, loader)
	assert.Nil(t, c.Get(context.Background(), "/missing"))
}

func TestCache_InvalidateExactFile(t *testing.T) {
	c := New(100, time.Minute, nil)
	c.SetBulk(map[string]*model.Meta{"/a/b": {}, "/a/c": {}})
	c.Invalidate("/a/b")
	assert.Equal(t, 1, c.Len())
}

func TestCache_InvalidatePrefixDirectory(t *testing.T) {
	c := New(100, time.Minute, nil)
	c.SetBulk(map[string]*model.Meta{
		"/a/":     {IsCollection: true},
		"/a/b":    {},
		"/a/c/":   {IsCollection: true},
		"/a/c/d":  {},
		"/other":  {},
	})
	c.Invalidate("/a/")
	assert.Equal(t, 1, c.Len())
}
