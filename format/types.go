// Package format defines the on-disk constants of the DataFlash log format:
// the record sync marker, the FMT self-description layout, and the fixed
// field-code alphabet with its per-code widths and decoded kinds.
package format

// Sync marker and record header. Every binary record is preceded by the
// two-byte marker; the marker plus the one-byte type-ID form the 3-byte
// header counted by a descriptor's record length.
const (
	SyncByte0 = 0xA3
	SyncByte1 = 0x95
	SyncLen   = 2
	HeaderLen = 3

	MaxTypeID  = 255
	TypeIDBits = 256
)

// SyncMarker returns the two-byte record delimiter.
func SyncMarker() []byte {
	return []byte{SyncByte0, SyncByte1}
}

// FMT self-description. The FMT message always has type-ID 128 and a fixed
// payload: type, record length, 4-byte name, 16-byte field codes, 64-byte
// comma-separated column list (strings NUL-padded). FMTPayloadLen counts
// that payload only, excluding the record's own leading type byte: a
// complete FMT frame is 1+FMTPayloadLen bytes, a complete on-disk record
// FMTRecordLen (sync marker and type byte included).
const (
	FMTType        = 128
	FMTNameLen     = 4
	FMTCodesLen    = 16
	FMTColumnsLen  = 64
	FMTPayloadLen  = 1 + 1 + FMTNameLen + FMTCodesLen + FMTColumnsLen
	FMTRecordLen   = HeaderLen + FMTPayloadLen
	FMTMessageName = "FMT"
)

// Kind identifies how a field code decodes.
type Kind uint8

const (
	KindInvalid    Kind = iota
	KindInt             // signed integer (b, h, i, c, e, L, q)
	KindUint            // unsigned integer (B, H, I, C, E, M, Q)
	KindFloat32         // IEEE-754 single (f)
	KindFloat64         // IEEE-754 double (d)
	KindString          // NUL-padded ASCII (n, N, Z)
	KindInt16Array      // 32 x int16 (a)
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "Int"
	case KindUint:
		return "Uint"
	case KindFloat32:
		return "Float32"
	case KindFloat64:
		return "Float64"
	case KindString:
		return "String"
	case KindInt16Array:
		return "Int16Array"
	default:
		return "Invalid"
	}
}

// fieldSpec describes one field-code character.
type fieldSpec struct {
	width int
	kind  Kind
}

// fieldSpecs is the fixed DataFlash field-code alphabet. Widths are on-disk
// byte sizes, little-endian, no alignment.
var fieldSpecs = map[byte]fieldSpec{
	'a': {64, KindInt16Array}, // int16_t[32]
	'b': {1, KindInt},         // int8_t
	'B': {1, KindUint},        // uint8_t
	'h': {2, KindInt},         // int16_t
	'H': {2, KindUint},        // uint16_t
	'i': {4, KindInt},         // int32_t
	'I': {4, KindUint},        // uint32_t
	'f': {4, KindFloat32},     // float
	'd': {8, KindFloat64},     // double
	'n': {4, KindString},      // char[4]
	'N': {16, KindString},     // char[16]
	'Z': {64, KindString},     // char[64]
	'c': {2, KindInt},         // int16_t * 100
	'C': {2, KindUint},        // uint16_t * 100
	'e': {4, KindInt},         // int32_t * 100
	'E': {4, KindUint},        // uint32_t * 100
	'L': {4, KindInt},         // int32_t latitude/longitude
	'M': {1, KindUint},        // uint8_t flight mode
	'q': {8, KindInt},         // int64_t
	'Q': {8, KindUint},        // uint64_t
}

// ValidCode reports whether c is part of the field-code alphabet.
func ValidCode(c byte) bool {
	_, ok := fieldSpecs[c]
	return ok
}

// CodeWidth returns the on-disk byte width of field code c, or 0 when the
// code is not part of the alphabet.
func CodeWidth(c byte) int {
	return fieldSpecs[c].width
}

// CodeKind returns the decoded kind of field code c.
func CodeKind(c byte) Kind {
	return fieldSpecs[c].kind
}

// DataSize returns the total on-disk byte size implied by a field-code
// string, not counting the record header.
func DataSize(codes string) int {
	size := 0
	for i := 0; i < len(codes); i++ {
		size += fieldSpecs[codes[i]].width
	}

	return size
}
