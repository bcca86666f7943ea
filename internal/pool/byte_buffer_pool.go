// Package pool provides pooled byte buffers shared by the framer and the
// serializer. Buffers are recycled through sync.Pool; oversized buffers are
// dropped on Put so a single huge log does not pin memory forever.
package pool

import (
	"io"
	"sync"
)

const (
	// FrameBufferDefaultSize matches the framer's read block size.
	FrameBufferDefaultSize = 4096
	// FrameBufferMaxThreshold is the largest frame buffer returned to the pool.
	FrameBufferMaxThreshold = 1024 * 128
	// LineBufferDefaultSize is the default size for serializer line buffers.
	LineBufferDefaultSize = 1024
	// LineBufferMaxThreshold is the largest line buffer returned to the pool.
	LineBufferMaxThreshold = 1024 * 64
)

// ByteBuffer is a growable byte slice wrapper with a stable identity, so it
// can round-trip through a sync.Pool without extra allocations.
type ByteBuffer struct {
	// B is the underlying byte slice.
	B []byte
}

// NewByteBuffer creates a new ByteBuffer with the specified default capacity.
func NewByteBuffer(defaultSize int) *ByteBuffer {
	return &ByteBuffer{
		B: make([]byte, 0, defaultSize),
	}
}

// Bytes returns the underlying byte slice.
func (bb *ByteBuffer) Bytes() []byte {
	return bb.B
}

// Reset resets the buffer to be empty, retaining the allocated memory.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// Len returns the length of the buffer.
func (bb *ByteBuffer) Len() int {
	return len(bb.B)
}

// Write appends the contents of data to the buffer, growing it as needed.
func (bb *ByteBuffer) Write(data []byte) (int, error) {
	bb.B = append(bb.B, data...)
	return len(data), nil
}

// WriteByte appends a single byte to the buffer.
func (bb *ByteBuffer) WriteByte(c byte) error {
	bb.B = append(bb.B, c)
	return nil
}

// WriteString appends the contents of s to the buffer.
func (bb *ByteBuffer) WriteString(s string) (int, error) {
	bb.B = append(bb.B, s...)
	return len(s), nil
}

// WriteTo writes the contents of the buffer to w.
func (bb *ByteBuffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(bb.B)
	return int64(n), err
}

// ByteBufferPool is a pool of ByteBuffers bounded by a size threshold.
type ByteBufferPool struct {
	pool         sync.Pool
	maxThreshold int
}

// NewByteBufferPool creates a pool producing buffers of defaultSize capacity
// and discarding returned buffers larger than maxThreshold.
func NewByteBufferPool(defaultSize, maxThreshold int) *ByteBufferPool {
	return &ByteBufferPool{
		pool: sync.Pool{
			New: func() any {
				return NewByteBuffer(defaultSize)
			},
		},
		maxThreshold: maxThreshold,
	}
}

// Get returns an empty buffer from the pool.
func (p *ByteBufferPool) Get() *ByteBuffer {
	bb, _ := p.pool.Get().(*ByteBuffer)
	bb.Reset()

	return bb
}

// Put returns a buffer to the pool unless it grew past the threshold.
func (p *ByteBufferPool) Put(bb *ByteBuffer) {
	if cap(bb.B) > p.maxThreshold {
		return
	}
	p.pool.Put(bb)
}

var (
	frameBufferPool = NewByteBufferPool(FrameBufferDefaultSize, FrameBufferMaxThreshold)
	lineBufferPool  = NewByteBufferPool(LineBufferDefaultSize, LineBufferMaxThreshold)
)

// GetFrameBuffer returns a pooled buffer sized for framing blocks.
func GetFrameBuffer() *ByteBuffer {
	return frameBufferPool.Get()
}

// PutFrameBuffer returns a framing buffer to its pool.
func PutFrameBuffer(bb *ByteBuffer) {
	frameBufferPool.Put(bb)
}

// GetLineBuffer returns a pooled buffer sized for serializer lines.
func GetLineBuffer() *ByteBuffer {
	return lineBufferPool.Get()
}

// PutLineBuffer returns a line buffer to its pool.
func PutLineBuffer(bb *ByteBuffer) {
	lineBufferPool.Put(bb)
}
