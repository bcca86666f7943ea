// Package compress provides whole-file compression codecs for log input
// and output.
//
// Logs captured in the field are often stored compressed; the parser
// accepts ".zst", ".s2" and ".lz4" suffixed files and decompresses them in
// memory before framing. The codec for a path is chosen from its filename
// extension, and the extension is stripped before the binary-vs-text
// detection runs on the inner name ("flight.bin.zst" parses as binary).
package compress

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/HoverflyHampton/DFLogTool/errs"
)

// Type identifies a file compression codec.
type Type uint8

const (
	TypeNone Type = iota // plain file
	TypeZstd             // Zstandard (.zst)
	TypeS2               // S2 (.s2)
	TypeLZ4              // LZ4 block (.lz4)
)

func (t Type) String() string {
	switch t {
	case TypeNone:
		return "None"
	case TypeZstd:
		return "Zstd"
	case TypeS2:
		return "S2"
	case TypeLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

// Codec compresses and decompresses whole file payloads.
//
// Implementations are stateless values; internal buffers may be pooled.
// Returned slices are newly allocated and owned by the caller (the no-op
// codec, which aliases its input, is the documented exception).
type Codec interface {
	// Compress compresses data and returns the compressed result.
	Compress(data []byte) ([]byte, error)

	// Decompress decompresses data previously compressed with the same
	// codec. Returns an error when the input is corrupted or was produced
	// by a different codec.
	Decompress(data []byte) ([]byte, error)
}

// ForType returns the codec for a compression type.
func ForType(t Type) (Codec, error) {
	switch t {
	case TypeNone:
		return NewNoOpCodec(), nil
	case TypeZstd:
		return NewZstdCodec(), nil
	case TypeS2:
		return NewS2Codec(), nil
	case TypeLZ4:
		return NewLZ4Codec(), nil
	default:
		return nil, fmt.Errorf("%w: %s", errs.ErrInvalidCodec, t)
	}
}

// DetectPath returns the codec type implied by the path's extension and the
// path with that extension stripped. Paths without a codec extension return
// TypeNone and the path unchanged.
func DetectPath(path string) (Type, string) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".zstd":
		return TypeZstd, strings.TrimSuffix(path, filepath.Ext(path))
	case ".s2":
		return TypeS2, strings.TrimSuffix(path, filepath.Ext(path))
	case ".lz4":
		return TypeLZ4, strings.TrimSuffix(path, filepath.Ext(path))
	default:
		return TypeNone, path
	}
}
