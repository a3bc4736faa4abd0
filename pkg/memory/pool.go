// Package memory provides pooled buffers and size-capped reads for spec
// documents and API response bodies.
package memory

import (
	"bytes"
	"sync"
)

// BufferPool manages a pool of reusable bytes.Buffer instances
type BufferPool struct {
	pool    sync.Pool
	maxKeep int
}

// NewBufferPool creates a new buffer pool. Buffers that grew beyond maxKeep
// bytes are dropped instead of pooled.
func NewBufferPool(maxKeep int) *BufferPool {
	if maxKeep <= 0 {
		maxKeep = 64 * 1024
	}
	return &BufferPool{
		maxKeep: maxKeep,
		pool: sync.Pool{
			New: func() interface{} {
				return &bytes.Buffer{}
			},
		},
	}
}

// Get retrieves an empty buffer from the pool
func (bp *BufferPool) Get() *bytes.Buffer {
	buf := bp.pool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// Put returns a buffer to the pool for reuse
func (bp *BufferPool) Put(buf *bytes.Buffer) {
	if buf.Cap() <= bp.maxKeep {
		bp.pool.Put(buf)
	}
}

var defaultPool = NewBufferPool(0)
