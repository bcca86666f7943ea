package compress

// ZstdCodec compresses files with Zstandard. The best default for archived
// logs: high ratio at decompression speeds well above disk bandwidth.
//
// Two implementations exist: a pure-Go one (klauspost/compress/zstd) built
// by default, and a cgo one (valyala/gozstd) kept behind the nobuild tag
// for environments that prefer the C library.
type ZstdCodec struct{}

var _ Codec = (*ZstdCodec)(nil)

// NewZstdCodec creates a new Zstd codec.
func NewZstdCodec() ZstdCodec {
	return ZstdCodec{}
}
