package format

import (
	"fmt"
	"strings"

	"github.com/HoverflyHampton/DFLogTool/errs"
)

// MessageFormat describes one message type of a log: its per-log type-ID,
// its 1-4 character name, the total on-disk record length (header
// included), and the ordered field codes with their column names.
//
// Descriptors are created when a FMT record is decoded and are never
// mutated afterwards, except for type-ID renumbering during a merge.
type MessageFormat struct {
	Name    string
	Type    int
	Length  int // record length in bytes, 3-byte header included
	Codes   string
	Columns []string
}

// NewMessageFormat builds and validates a descriptor.
//
// Returns an error when a field code is outside the alphabet or when the
// column list does not match the field codes. The byte size implied by the
// codes is not checked against the declared record length here; the binary
// record decoder rejects records whose descriptor sizes disagree.
func NewMessageFormat(name string, typeID, length int, codes string, columns []string) (*MessageFormat, error) {
	for i := 0; i < len(codes); i++ {
		if !ValidCode(codes[i]) {
			return nil, fmt.Errorf("%w: %q in message %s", errs.ErrInvalidFieldCode, string(codes[i]), name)
		}
	}
	if len(columns) != len(codes) {
		return nil, fmt.Errorf("%w: message %s has %d codes but %d columns",
			errs.ErrColumnMismatch, name, len(codes), len(columns))
	}

	return &MessageFormat{
		Name:    name,
		Type:    typeID,
		Length:  length,
		Codes:   codes,
		Columns: columns,
	}, nil
}

// DataSize returns the byte size implied by the field codes, excluding the
// 3-byte record header.
func (f *MessageFormat) DataSize() int {
	return DataSize(f.Codes)
}

// ColumnIndex returns the position of the named column, or -1.
func (f *MessageFormat) ColumnIndex(name string) int {
	for i, col := range f.Columns {
		if col == name {
			return i
		}
	}

	return -1
}

func (f *MessageFormat) String() string {
	return fmt.Sprintf("%s, %d, %d, %s, %s", f.Name, f.Type, f.Length, f.Codes, strings.Join(f.Columns, ","))
}
