package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// DefaultChunkSize is the number of bytes a RangeReader fetches per range request
const DefaultChunkSize = 1024 * 1024

// RangeReader is an io.ReaderAt over a remote file of known size.
//
// Reads are served from the last fetched chunk when possible, so archive readers
// issuing many small reads close to each other cost one range request per chunk.
// A RangeReader is not safe for concurrent use.
type RangeReader struct {
	ctx       context.Context
	client    Client
	url       string
	size      int64
	chunkSize int64

	chunk    []byte
	chunkOff int64
}

var _ io.ReaderAt = (*RangeReader)(nil)

// NewRangeReader returns a reader over the size bytes of url. Range requests are sent with ctx.
func NewRangeReader(ctx context.Context, client Client, url string, size int64) *RangeReader {
	return &RangeReader{
		ctx:       ctx,
		client:    client,
		url:       url,
		size:      size,
		chunkSize: DefaultChunkSize,
	}
}

// WithChunkSize sets the number of bytes fetched per range request
func (r *RangeReader) WithChunkSize(n int64) *RangeReader {
	if n > 0 {
		r.chunkSize = n
	}
	return r
}

// Size returns the size of the remote file
func (r *RangeReader) Size() int64 {
	return r.size
}

// ReadAt implements io.ReaderAt
func (r *RangeReader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("negative offset")
	}

	n := 0
	for n < len(p) && off < r.size {
		if r.chunk == nil || off < r.chunkOff || off >= r.chunkOff+int64(len(r.chunk)) {
			if err := r.fill(off); err != nil {
				return n, err
			}
		}
		c := copy(p[n:], r.chunk[off-r.chunkOff:])
		n += c
		off += int64(c)
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (r *RangeReader) fill(off int64) error {
	length := min(r.chunkSize, r.size-off)
	data, err := r.client.GetRange(r.ctx, r.url, off, length)
	if err != nil {
		return err
	}
	if int64(len(data)) != length {
		return fmt.Errorf("short range read of %s at %d: got %d of %d bytes", r.url, off, len(data), length)
	}
	r.chunk, r.chunkOff = data, off
	return nil
}
