package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/IYouKnow/davproxy/internal/backend"
	"github.com/IYouKnow/davproxy/internal/model"
	"github.com/IYouKnow/davproxy/internal/pathutil"
	"github.com/IYouKnow/davproxy/internal/splitfile"
)

// Upload is a blocking io.WriteCloser that streams bytes written to it
// straight through to one or more backend PUTs, without ever buffering the
// whole body in memory. The first shard is written to headPath itself; if
// the caller writes past maxPartSize, later shards spill onto
// "<headPath>.partNNN" and a ".splitinfo" manifest is emitted on Close once
// more than one shard was produced (spec §4.9). maxPartSize <= 0 disables
// sharding: the whole body streams to headPath as one PUT.
//
// Each shard is backed by an io.Pipe: Write copies into the pipe, a single
// background goroutine drains the read side into client.Put. This mirrors
// fileObjectProxy.py's queue-fed generator, replacing its thread+queue pair
// with Go's pipe, which already blocks the writer until the reader (here,
// the in-flight HTTP request body reader) keeps up.
type Upload struct {
	ctx         context.Context
	client      *backend.Client
	headPath    string
	contentType string
	maxPartSize int64

	mu           sync.Mutex
	pw           *io.PipeWriter
	shardDone    chan error
	shardIndex   int
	shardWritten int64
	totalWritten int64
	parts        []model.PartInfo
	closed       bool
}

// NewUpload starts streaming a new logical resource at headPath.
func NewUpload(ctx context.Context, client *backend.Client, headPath, contentType string, maxPartSize int64) *Upload {
	u := &Upload{
		ctx:         ctx,
		client:      client,
		headPath:    headPath,
		contentType: contentType,
		maxPartSize: maxPartSize,
	}
	u.startShard()
	return u
}

func (u *Upload) shardPath(index int) string {
	if index == 0 {
		return u.headPath
	}
	return splitfile.PartName(u.headPath, index)
}

func (u *Upload) startShard() {
	pr, pw := io.Pipe()
	u.pw = pw
	u.shardDone = make(chan error, 1)
	u.shardWritten = 0

	path := u.shardPath(u.shardIndex)
	contentType := ""
	if u.shardIndex == 0 {
		contentType = u.contentType
	}

	go func() {
		u.shardDone <- u.client.Put(u.ctx, path, pr, contentType)
	}()
}

// Write implements io.Writer, sharding across the maxPartSize boundary when
// configured.
func (u *Upload) Write(p []byte) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return 0, fmt.Errorf("transfer: write to closed upload %s", u.headPath)
	}

	written := 0
	for len(p) > 0 {
		room := int64(len(p))
		if u.maxPartSize > 0 {
			remaining := u.maxPartSize - u.shardWritten
			if remaining < room {
				room = remaining
			}
		}
		if room <= 0 {
			if err := u.finishShardLocked(); err != nil {
				return written, err
			}
			u.shardIndex++
			u.startShard()
			continue
		}

		n, err := u.pw.Write(p[:room])
		written += n
		u.shardWritten += int64(n)
		u.totalWritten += int64(n)
		p = p[n:]
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// finishShardLocked closes the current shard's pipe, waits for its PUT to
// complete, and records its size. Caller must hold u.mu.
func (u *Upload) finishShardLocked() error {
	u.pw.Close()
	err := <-u.shardDone
	if err != nil {
		return err
	}
	u.parts = append(u.parts, model.PartInfo{
		FileName: pathutil.Base(u.shardPath(u.shardIndex)),
		FileSize: u.shardWritten,
	})
	return nil
}

// Close finishes the final shard and, if the upload split across more than
// one shard, writes the ".splitinfo" manifest sidecar.
func (u *Upload) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return nil
	}
	u.closed = true

	if err := u.finishShardLocked(); err != nil {
		return err
	}

	if len(u.parts) <= 1 {
		return nil
	}

	manifest := model.Manifest{
		Meta:          model.ManifestMeta{ContentLength: u.totalWritten},
		SplitFileList: u.parts,
	}
	data, err := json.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("transfer: encode manifest for %s: %w", u.headPath, err)
	}

	return u.client.Put(u.ctx, u.headPath+".splitinfo", bytes.NewReader(data), "application/json")
}
