// Package record turns framed bytes and text lines into typed, named rows.
//
// The binary path reassembles records from framer output (the sync marker
// may legitimately occur inside a record's payload, splitting it across
// frames), then unpacks fixed-width little-endian fields against the
// registered message descriptors. FMT frames are special-cased: they both
// register a descriptor and decode as ordinary rows.
//
// The text path stages comma-separated lines and converts them into tables
// once the FMT declarations have been collected.
package record

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/HoverflyHampton/DFLogTool/endian"
	"github.com/HoverflyHampton/DFLogTool/errs"
	"github.com/HoverflyHampton/DFLogTool/format"
	"github.com/HoverflyHampton/DFLogTool/table"
)

// Decoder decodes binary records against a format registry it builds from
// FMT frames.
//
// Note: The Decoder is NOT thread-safe. Each decoder instance should be
// used by a single goroutine at a time.
type Decoder struct {
	engine  endian.EndianEngine
	formats map[int]*format.MessageFormat
	logger  *slog.Logger
}

// NewDecoder creates a Decoder with an empty format registry. Records are
// little-endian on disk, so the little-endian engine is fixed here.
func NewDecoder(logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}

	return &Decoder{
		engine:  endian.GetLittleEndianEngine(),
		formats: make(map[int]*format.MessageFormat),
		logger:  logger,
	}
}

// Formats returns the registry built so far, keyed by type-ID.
func (d *Decoder) Formats() map[int]*format.MessageFormat {
	return d.formats
}

// Format returns the descriptor registered for a type-ID.
func (d *Decoder) Format(typeID int) (*format.MessageFormat, bool) {
	f, ok := d.formats[typeID]
	return f, ok
}

// DecodeFMT unpacks a FMT frame's payload and registers the descriptor it
// declares. The payload layout after the 1-byte type is
// (type, length, 4s name, 16s codes, 64s columns), strings NUL-padded, so
// a frame must carry the leading type byte plus the 86-byte payload.
func (d *Decoder) DecodeFMT(frame []byte) (*format.MessageFormat, error) {
	if len(frame) < format.FMTRecordLen-format.SyncLen {
		return nil, fmt.Errorf("%w: FMT frame is %d bytes, need %d",
			errs.ErrInvalidFormatRecord, len(frame), format.FMTRecordLen-format.SyncLen)
	}

	typeID := int(frame[1])
	length := int(frame[2])
	name := trimNul(frame[3 : 3+format.FMTNameLen])
	codes := trimNul(frame[7 : 7+format.FMTCodesLen])
	columns := splitColumns(trimNul(frame[23 : 23+format.FMTColumnsLen]))

	mf, err := format.NewMessageFormat(name, typeID, length, codes, columns)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrInvalidFormatRecord, err)
	}
	d.formats[typeID] = mf

	return mf, nil
}

// complete reports whether the accumulated bytes hold at least one full
// record: a known type-ID followed by its descriptor's payload.
func (d *Decoder) complete(rec []byte) bool {
	if len(rec) == 0 {
		return false
	}
	f, ok := d.formats[int(rec[0])]
	if !ok {
		return false
	}

	return len(rec) >= f.Length-format.SyncLen
}

// Assemble reconstitutes records from raw frames. A frame starting with a
// known type-ID only terminates the accumulated record when that record is
// already complete; otherwise the sync marker was part of the payload and
// the frame is stitched back on. The final accumulator is emitted when
// complete and silently discarded otherwise.
func (d *Decoder) Assemble(frames [][]byte) [][]byte {
	if len(frames) == 0 {
		return nil
	}

	records := make([][]byte, 0, len(frames))
	current := frames[0]
	for _, next := range frames[1:] {
		if len(next) == 0 {
			continue
		}
		_, known := d.formats[int(next[0])]
		if known && d.complete(current) {
			records = append(records, current)
			current = next
			continue
		}
		current = append(current, format.SyncByte0, format.SyncByte1)
		current = append(current, next...)
	}
	if d.complete(current) {
		records = append(records, current)
	} else if len(current) > 0 {
		d.logger.Debug("discarding incomplete trailing record", "bytes", len(current))
	}

	return records
}

// DecodeRecord unpacks one assembled record into its message name and row.
// The first byte is the type-ID; the following Length-3 bytes are the
// fields. Bytes beyond the descriptor's record length are ignored.
func (d *Decoder) DecodeRecord(rec []byte) (string, table.Row, error) {
	if len(rec) == 0 {
		return "", nil, errs.ErrTruncatedRecord
	}
	f, ok := d.formats[int(rec[0])]
	if !ok {
		return "", nil, fmt.Errorf("%w: %d", errs.ErrUnknownMessageType, rec[0])
	}
	if len(rec) < f.Length-format.SyncLen {
		return "", nil, fmt.Errorf("%w: %s record is %d bytes, need %d",
			errs.ErrTruncatedRecord, f.Name, len(rec), f.Length-format.SyncLen)
	}
	if f.DataSize() != f.Length-format.HeaderLen {
		return "", nil, fmt.Errorf("%w: %s declares %d data bytes but codes imply %d",
			errs.ErrColumnMismatch, f.Name, f.Length-format.HeaderLen, f.DataSize())
	}

	row := make(table.Row, 0, len(f.Columns)+1)
	row = append(row, table.StringValue(f.Name))

	off := 1 // past the type byte
	for i := 0; i < len(f.Codes); i++ {
		code := f.Codes[i]
		width := format.CodeWidth(code)
		row = append(row, d.decodeField(code, rec[off:off+width]))
		off += width
	}

	return f.Name, row, nil
}

// decodeField unpacks a single field. b is exactly the field's width.
func (d *Decoder) decodeField(code byte, b []byte) table.Value {
	switch format.CodeKind(code) {
	case format.KindInt:
		switch len(b) {
		case 1:
			return table.Int64Value(int64(int8(b[0])))
		case 2:
			return table.Int64Value(int64(int16(d.engine.Uint16(b))))
		case 4:
			return table.Int64Value(int64(int32(d.engine.Uint32(b))))
		default:
			return table.Int64Value(int64(d.engine.Uint64(b)))
		}
	case format.KindUint:
		switch len(b) {
		case 1:
			return table.Uint64Value(uint64(b[0]))
		case 2:
			return table.Uint64Value(uint64(d.engine.Uint16(b)))
		case 4:
			return table.Uint64Value(uint64(d.engine.Uint32(b)))
		default:
			return table.Uint64Value(d.engine.Uint64(b))
		}
	case format.KindFloat32:
		return table.Float64Value(float64(math.Float32frombits(d.engine.Uint32(b))))
	case format.KindFloat64:
		return table.Float64Value(math.Float64frombits(d.engine.Uint64(b)))
	case format.KindString:
		return table.StringValue(trimNul(b))
	case format.KindInt16Array:
		arr := make([]int16, len(b)/2)
		for i := range arr {
			arr[i] = int16(d.engine.Uint16(b[2*i:]))
		}
		return table.Int16ArrayValue(arr)
	default:
		return table.StringValue("")
	}
}

// trimNul strips the NUL padding of a fixed-width ASCII field.
func trimNul(b []byte) string {
	return strings.Trim(string(b), "\x00")
}

// splitColumns splits a descriptor's comma-separated column list. An empty
// list yields no columns rather than one empty name.
func splitColumns(s string) []string {
	if s == "" {
		return nil
	}

	return strings.Split(s, ",")
}
