package dflog

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HoverflyHampton/DFLogTool/compress"
	"github.com/HoverflyHampton/DFLogTool/format"
	"github.com/HoverflyHampton/DFLogTool/table"
)

// compressForTest returns the codec used by the compressed-input test.
func compressForTest() (compress.Codec, error) {
	return compress.ForType(compress.TypeS2)
}

// ==============================================================================
// Helper Functions
// ==============================================================================

// fmtFrame builds a FMT record frame (type byte first, no sync marker).
func fmtFrame(t *testing.T, typeID, length byte, name, codes, columns string) []byte {
	t.Helper()
	require.LessOrEqual(t, len(name), format.FMTNameLen)
	require.LessOrEqual(t, len(codes), format.FMTCodesLen)
	require.LessOrEqual(t, len(columns), format.FMTColumnsLen)

	frame := make([]byte, 1+format.FMTPayloadLen)
	frame[0] = format.FMTType
	frame[1] = typeID
	frame[2] = length
	copy(frame[3:], name)
	copy(frame[7:], codes)
	copy(frame[23:], columns)

	return frame
}

// testFrame builds a TEST record frame: type 130, uint64 TimeUS, float32 V.
func testFrame(ts uint64, v float32) []byte {
	frame := make([]byte, 0, 13)
	frame = append(frame, 130)
	frame = binary.LittleEndian.AppendUint64(frame, ts)
	frame = binary.LittleEndian.AppendUint32(frame, math.Float32bits(v))

	return frame
}

// writeBinaryLog writes records to a temp .bin file, each preceded by the
// sync marker.
func writeBinaryLog(t *testing.T, records ...[]byte) string {
	t.Helper()

	var buf bytes.Buffer
	for _, rec := range records {
		buf.Write(format.SyncMarker())
		buf.Write(rec)
	}

	path := filepath.Join(t.TempDir(), "test.bin")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	return path
}

// writeTextLog writes lines to a temp .log file.
func writeTextLog(t *testing.T, lines ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.log")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))

	return path
}

// emptyTestLog creates a Log with an empty FMT table ready for descriptors.
func emptyTestLog() *Log {
	l := newLog()
	ft := table.New("FMT", []string{table.ColMsgName, "Type", "Length", "Name", "Format", "Columns"})
	l.tables["FMT"] = ft
	l.order = append(l.order, "FMT")

	return l
}

// addDescriptor appends a FMT row and registry entry.
func addDescriptor(t *testing.T, l *Log, id int, name, codes, columns string) {
	t.Helper()

	length := format.HeaderLen + format.DataSize(codes)
	ft := l.tables["FMT"]
	ft.Append(table.Row{
		table.StringValue("FMT"),
		table.Int64Value(int64(id)),
		table.Int64Value(int64(length)),
		table.StringValue(name),
		table.StringValue(codes),
		table.StringValue(columns),
	})

	mf, err := format.NewMessageFormat(name, id, length, codes, strings.Split(columns, ","))
	require.NoError(t, err)
	l.formats[id] = mf
}

// addDataTable creates a data table with the given rows.
func addDataTable(l *Log, name string, columns []string, rows ...table.Row) *table.Table {
	tbl := table.New(name, append([]string{table.ColMsgName}, columns...))
	for _, row := range rows {
		tbl.Append(row)
	}
	l.tables[name] = tbl
	l.order = append(l.order, name)

	return tbl
}

// dataRow builds a row: name, timestamp, then extra values.
func dataRow(name string, ts uint64, extra ...table.Value) table.Row {
	row := table.Row{table.StringValue(name), table.Uint64Value(ts)}

	return append(row, extra...)
}

// ==============================================================================
// Parse Tests
// ==============================================================================

func TestParseBinarySimple(t *testing.T) {
	path := writeBinaryLog(t,
		fmtFrame(t, format.FMTType, format.FMTRecordLen, "FMT", "BBnNZ", "Type,Length,Name,Format,Columns"),
		fmtFrame(t, 130, 15, "TEST", "Qf", "TimeUS,V"),
		testFrame(1000, 1.0),
		testFrame(2000, 2.0),
		testFrame(3000, 3.0),
	)

	l, err := Parse(path)
	require.NoError(t, err)

	test, ok := l.Table("TEST")
	require.True(t, ok)
	require.Equal(t, 3, test.Len())

	wantTS := []uint64{1000, 2000, 3000}
	wantV := []float64{1.0, 2.0, 3.0}
	for i, row := range test.Rows {
		assert.Equal(t, "TEST", row[0].Str())
		ts, ok := row[1].AsUint64()
		require.True(t, ok)
		assert.Equal(t, wantTS[i], ts)
		v, ok := row[2].AsFloat64()
		require.True(t, ok)
		assert.InDelta(t, wantV[i], v, 1e-6)
	}

	// Both descriptors were observed, so both FMT rows survive.
	fmtTable, ok := l.Table("FMT")
	require.True(t, ok)
	assert.Equal(t, 2, fmtTable.Len())
}

func TestParseBinaryEmbeddedMarker(t *testing.T) {
	// The second record's timestamp contains the sync marker in bytes 2-3,
	// so the framer splits the record and the decoder must stitch it.
	const markedTS = 2000 | 0xA3<<16 | 0x95<<24
	path := writeBinaryLog(t,
		fmtFrame(t, format.FMTType, format.FMTRecordLen, "FMT", "BBnNZ", "Type,Length,Name,Format,Columns"),
		fmtFrame(t, 130, 15, "TEST", "Qf", "TimeUS,V"),
		testFrame(1000, 1.0),
		testFrame(markedTS, 2.0),
		testFrame(3000, 3.0),
	)

	l, err := Parse(path)
	require.NoError(t, err)

	test, ok := l.Table("TEST")
	require.True(t, ok)
	require.Equal(t, 3, test.Len())

	ts, ok := test.Rows[1][1].AsUint64()
	require.True(t, ok)
	assert.Equal(t, uint64(markedTS), ts)
	v, ok := test.Rows[1][2].AsFloat64()
	require.True(t, ok)
	assert.InDelta(t, 2.0, v, 1e-6)
}

func TestParseBinaryEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	l, err := Parse(path)
	require.NoError(t, err)
	assert.Empty(t, l.TableNames())
}

func TestParseBinaryDropsUnobservedDescriptors(t *testing.T) {
	// GHST is declared but no GHST record follows.
	path := writeBinaryLog(t,
		fmtFrame(t, format.FMTType, format.FMTRecordLen, "FMT", "BBnNZ", "Type,Length,Name,Format,Columns"),
		fmtFrame(t, 130, 15, "TEST", "Qf", "TimeUS,V"),
		fmtFrame(t, 131, 15, "GHST", "Qf", "TimeUS,V"),
		testFrame(1000, 1.0),
	)

	l, err := Parse(path)
	require.NoError(t, err)

	fmtTable, ok := l.Table("FMT")
	require.True(t, ok)
	nameIdx := fmtTable.ColumnIndex("Name")
	for _, row := range fmtTable.Rows {
		assert.NotEqual(t, "GHST", row[nameIdx].Str())
	}
	assert.NotContains(t, l.Formats(), 131)
}

func TestParseMissingFile(t *testing.T) {
	_, err := Parse(filepath.Join(t.TempDir(), "nope.bin"))
	require.Error(t, err)
}

func TestParseTextLog(t *testing.T) {
	path := writeTextLog(t,
		"FMT, 128, 89, FMT, BBnNZ, Type,Length,Name,Format,Columns",
		"FMT, 130, 15, TEST, Qf, TimeUS,V",
		"TEST, 2000, 2.5",
		"TEST, 1000, 1.5",
	)

	l, err := Parse(path)
	require.NoError(t, err)

	test, ok := l.Table("TEST")
	require.True(t, ok)
	require.Equal(t, 2, test.Len())
	// Arrival order, not time order, within a table.
	assert.Equal(t, "2000", test.Rows[0][1].Str())
}

func TestParseComputesGPSZeroTime(t *testing.T) {
	path := writeTextLog(t,
		"FMT, 128, 89, FMT, BBnNZ, Type,Length,Name,Format,Columns",
		"FMT, 129, 25, GPS, QIH, TimeUS,GMS,GWk",
		"GPS, 5000000, 259218000, 2299",
	)

	l, err := Parse(path)
	require.NoError(t, err)

	zero, ok := l.GPSZeroTime()
	require.True(t, ok)
	// gps2utc(2299, 259218) = 2024-01-31T00:00:00Z; minus 5 s of TimeUS.
	want := time.Date(2024, time.January, 30, 23, 59, 55, 0, time.UTC)
	assert.True(t, zero.Equal(want), "got %v", zero)
}

func TestParseDroppableTablesCrossChecked(t *testing.T) {
	logPath := writeTextLog(t,
		"FMT, 128, 89, FMT, BBnNZ, Type,Length,Name,Format,Columns",
		"FMT, 130, 15, TEST, Qf, TimeUS,V",
		"TEST, 1000, 1.5",
	)
	dropPath := filepath.Join(t.TempDir(), "droppable.txt")
	require.NoError(t, os.WriteFile(dropPath, []byte("TEST\nNOPE\n"), 0o644))

	l, err := Parse(logPath, WithDroppableTablesFile(dropPath))
	require.NoError(t, err)
	assert.Equal(t, []string{"TEST"}, l.DroppableTables())
}

func TestParseCompressedInput(t *testing.T) {
	// Build a plain binary log, compress it with s2, and parse the
	// .bin.s2 twin.
	plain := writeBinaryLog(t,
		fmtFrame(t, format.FMTType, format.FMTRecordLen, "FMT", "BBnNZ", "Type,Length,Name,Format,Columns"),
		fmtFrame(t, 130, 15, "TEST", "Qf", "TimeUS,V"),
		testFrame(1000, 1.0),
	)
	raw, err := os.ReadFile(plain)
	require.NoError(t, err)

	codec, err := compressForTest()
	require.NoError(t, err)
	packed, err := codec.Compress(raw)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "test.bin.s2")
	require.NoError(t, os.WriteFile(path, packed, 0o644))

	l, err := Parse(path)
	require.NoError(t, err)
	test, ok := l.Table("TEST")
	require.True(t, ok)
	assert.Equal(t, 1, test.Len())
}
