// Package framer splits a binary log stream into frames on the two-byte
// sync marker 0xA3 0x95.
//
// The marker is a delimiter, not part of any frame: each emitted frame is
// the bytes between two markers, and the trailing run after the final
// marker is emitted as the last frame. A marker can legitimately appear
// inside a record's payload, so frames are not records; reassembly is the
// record decoder's job.
//
// The framer reads its input in fixed 4 KiB blocks and buffers across
// block boundaries, so a marker straddling a block edge is still found.
package framer

import (
	"bytes"
	"io"

	"github.com/HoverflyHampton/DFLogTool/format"
	"github.com/HoverflyHampton/DFLogTool/internal/pool"
)

// BlockSize is the read granularity of the framer.
const BlockSize = 4096

// Framer yields successive frames from a byte stream.
//
// Note: The Framer is NOT reusable. After Next returns io.EOF, a new framer
// must be created for further framing.
type Framer struct {
	r      io.Reader
	marker []byte
	block  []byte
	buf    *pool.ByteBuffer // bytes read but not yet emitted
	eof    bool             // underlying reader exhausted
	done   bool             // trailing frame emitted
}

// New creates a Framer over r.
func New(r io.Reader) *Framer {
	return &Framer{
		r:      r,
		marker: format.SyncMarker(),
		block:  make([]byte, BlockSize),
		buf:    pool.GetFrameBuffer(),
	}
}

// Next returns the next frame, or io.EOF after the trailing frame has been
// emitted. Frames may be empty (adjacent markers); consumers skip those.
//
// The returned slice is a copy and remains valid across subsequent calls.
func (f *Framer) Next() ([]byte, error) {
	if f.done {
		return nil, io.EOF
	}

	for {
		if pos := bytes.Index(f.buf.Bytes(), f.marker); pos >= 0 {
			frame := append([]byte(nil), f.buf.Bytes()[:pos]...)
			rest := f.buf.Bytes()[pos+len(f.marker):]
			copy(f.buf.B, rest)
			f.buf.B = f.buf.B[:len(rest)]

			return frame, nil
		}

		if f.eof {
			// Trailing run after the final marker.
			frame := append([]byte(nil), f.buf.Bytes()...)
			f.done = true
			pool.PutFrameBuffer(f.buf)
			f.buf = nil

			return frame, nil
		}

		n, err := f.r.Read(f.block)
		if n > 0 {
			f.buf.B = append(f.buf.B, f.block[:n]...)
		}
		if err == io.EOF {
			f.eof = true
		} else if err != nil {
			f.done = true
			pool.PutFrameBuffer(f.buf)
			f.buf = nil

			return nil, err
		}
	}
}

// Split reads r to exhaustion and returns every frame, empty frames
// included.
func Split(r io.Reader) ([][]byte, error) {
	f := New(r)

	var frames [][]byte
	for {
		frame, err := f.Next()
		if err == io.EOF {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
		frames = append(frames, frame)
	}
}
