// Package memory provides pooled buffers for the allocation-heavy
// event encoding path: every tick potentially serializes a snapshot
// or delta event per subscriber, and without pooling each one
// allocates a fresh byte buffer.
package memory

import (
	"bytes"
	"sync"
)

// bufferPool holds reusable byte buffers sized for typical event
// payloads. Oversized buffers are dropped rather than pooled so one
// large snapshot doesn't pin megabytes of capacity indefinitely.
var bufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 4096))
	},
}

const maxPooledBufferCap = 64 * 1024

// GetBuffer retrieves a reset, ready-to-use buffer from the pool.
// Callers must return it via PutBuffer when done.
func GetBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer returns a buffer to the pool for reuse.
func PutBuffer(buf *bytes.Buffer) {
	if buf.Cap() > maxPooledBufferCap {
		return
	}
	bufferPool.Put(buf)
}
