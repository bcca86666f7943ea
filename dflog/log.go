// Package dflog holds the in-memory representation of a DataFlash log and
// the operations over it: parsing (binary and text), merging two logs into
// one timeline, time-offset autodetection, and sorted text serialization.
package dflog

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/HoverflyHampton/DFLogTool/compress"
	"github.com/HoverflyHampton/DFLogTool/errs"
	"github.com/HoverflyHampton/DFLogTool/format"
	"github.com/HoverflyHampton/DFLogTool/framer"
	"github.com/HoverflyHampton/DFLogTool/gpstime"
	"github.com/HoverflyHampton/DFLogTool/record"
	"github.com/HoverflyHampton/DFLogTool/table"
)

// Column names of the descriptor tables.
const (
	colType    = "Type"
	colName    = "Name"
	colGPSWeek = "GWk"
	colGPSMs   = "GMS"
)

// descriptorTables maps each descriptor table to the column its rows
// deduplicate on during a merge.
var descriptorTables = map[string]string{
	"FMT":  colName,
	"UNIT": "Id",
	"MULT": "Id",
	"FMTU": "FmtType",
}

// Log is one parsed DataFlash log: tables keyed by message name, the
// format registry keyed by type-ID, the droppable-table list, and the UTC
// instant corresponding to TimeUS zero when a GPS table was present.
//
// A Log is owned by exactly one caller. Merge mutates the receiver and
// consumes the donor; Write* take the log read-only. No internal locking.
type Log struct {
	tables  map[string]*table.Table
	order   []string // table creation order
	formats map[int]*format.MessageFormat

	droppable     []string
	droppablePath string
	gpsZero       time.Time
	hasGPSZero    bool

	logger *slog.Logger
}

// Option configures parsing.
type Option func(*Log)

// WithLogger routes the log-and-continue diagnostics to the given logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Log) {
		l.logger = logger
	}
}

// WithDroppableTablesFile names a file listing one table name per line;
// names that exist in the parsed log become candidates for eviction when
// the merge runs out of type-IDs. The file is read after parsing so the
// names can be cross-checked against the tables that actually exist.
func WithDroppableTablesFile(path string) Option {
	return func(l *Log) {
		l.droppablePath = path
	}
}

// newLog creates an empty Log.
func newLog(opts ...Option) *Log {
	l := &Log{
		tables:  make(map[string]*table.Table),
		formats: make(map[int]*format.MessageFormat),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Parse reads a log file into memory.
//
// Files suffixed ".zst", ".s2" or ".lz4" are decompressed first; the
// remaining extension selects the binary (".bin") or text path. Parsing is
// best-effort: malformed records are logged and skipped, and an input with
// no decodable content yields an empty Log rather than an error. I/O
// failures are returned.
func Parse(path string, opts ...Option) (*Log, error) {
	l := newLog(opts...)

	data, inner, err := readFile(path)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(inner), ".bin") {
		err = l.parseBinary(data, path)
	} else {
		err = l.parseText(data, path)
	}
	if err != nil {
		return nil, err
	}

	l.postProcess()

	if l.droppablePath != "" {
		l.readDroppableTables(l.droppablePath)
	}

	return l, nil
}

// readFile loads and, when the extension calls for it, decompresses a log
// file. Returns the raw bytes and the path with any codec extension
// stripped.
func readFile(path string) ([]byte, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", path, err)
	}

	codecType, inner := compress.DetectPath(path)
	codec, err := compress.ForType(codecType)
	if err != nil {
		return nil, "", err
	}
	data, err = codec.Decompress(data)
	if err != nil {
		return nil, "", fmt.Errorf("decompressing %s: %w", path, err)
	}

	return data, inner, nil
}

// parseBinary frames the input, registers FMT descriptors, reassembles
// records and decodes them into tables.
func (l *Log) parseBinary(data []byte, path string) error {
	dec := record.NewDecoder(l.logger)

	fr := framer.New(bytes.NewReader(data))
	var frames [][]byte
	for {
		frame, err := fr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if len(frame) == 0 {
			continue
		}
		// Short fragments stay in the stream: they may be the tail of a
		// record whose payload contained the sync marker. Fragments that
		// never stitch into a complete record fall out during assembly.
		if frame[0] == format.FMTType {
			if _, err := dec.DecodeFMT(frame); err != nil {
				l.logger.Error("invalid format line", "error", err)
			}
		}
		frames = append(frames, frame)
	}

	if len(frames) == 0 {
		l.logger.Error("no valid lines in file", "file", path)
		return nil
	}

	for _, rec := range dec.Assemble(frames) {
		name, row, err := dec.DecodeRecord(rec)
		if err != nil {
			l.logger.Debug("skipping undecodable record", "error", err)
			continue
		}
		l.appendRow(name, row, dec)
	}
	l.formats = dec.Formats()

	return nil
}

// appendRow adds a decoded row, creating its table on first sight.
func (l *Log) appendRow(name string, row table.Row, dec *record.Decoder) {
	t, ok := l.tables[name]
	if !ok {
		var columns []string
		for _, mf := range dec.Formats() {
			if mf.Name == name {
				columns = append([]string{table.ColMsgName}, mf.Columns...)
				break
			}
		}
		t = table.New(name, columns)
		l.tables[name] = t
		l.order = append(l.order, name)
	}
	t.Append(row)
}

// parseText stages every line, then builds the registry and tables.
func (l *Log) parseText(data []byte, path string) error {
	tp := record.NewTextParser(l.logger)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		tp.AddLine(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	formats, tables, order, err := tp.Finish()
	if err != nil {
		if errors.Is(err, errs.ErrNoValidLines) {
			l.logger.Error("no valid lines in file", "file", path)
			return nil
		}
		return err
	}
	l.formats = formats
	l.tables = tables
	l.order = order

	return nil
}

// postProcess normalizes the FMT table's Type column to integers, drops
// descriptors of messages never observed in the stream, and computes the
// GPS zero time when a GPS table is present.
func (l *Log) postProcess() {
	fmtTable, ok := l.tables[format.FMTMessageName]
	if !ok {
		if len(l.order) > 0 {
			l.logger.Error("log carries no FMT table, descriptors unavailable")
		}
		return
	}

	typeIdx := fmtTable.ColumnIndex(colType)
	nameIdx := fmtTable.ColumnIndex(colName)
	if typeIdx < 0 || nameIdx < 0 {
		l.logger.Error("FMT table lacks Type/Name columns, skipping post-processing")
		return
	}

	kept := fmtTable.Rows[:0]
	for _, row := range fmtTable.Rows {
		typeID, ok := row[typeIdx].AsUint64()
		if !ok {
			l.logger.Error("dropping FMT row with non-numeric type", "type", row[typeIdx].Format())
			continue
		}
		row[typeIdx] = table.Int64Value(int64(typeID))

		name := row[nameIdx].Str()
		if _, seen := l.tables[name]; !seen {
			delete(l.formats, int(typeID))
			continue
		}
		kept = append(kept, row)
	}
	fmtTable.Rows = kept

	if _, ok := l.tables["GPS"]; ok {
		l.findGPSZero()
	}
}

// findGPSZero derives the UTC instant of TimeUS zero from the first GPS
// row: gps2utc(week, ms-of-week/1000) minus TimeUS as milliseconds.
func (l *Log) findGPSZero() {
	gps := l.tables["GPS"]
	if gps.Len() == 0 {
		return
	}
	wkIdx := gps.ColumnIndex(colGPSWeek)
	msIdx := gps.ColumnIndex(colGPSMs)
	tsIdx := gps.ColumnIndex(table.ColTimeUS)
	if wkIdx < 0 || msIdx < 0 || tsIdx < 0 {
		return
	}

	first := gps.Rows[0]
	week, ok1 := first[wkIdx].AsUint64()
	ms, ok2 := first[msIdx].AsFloat64()
	timeUS, ok3 := first[tsIdx].AsUint64()
	if !ok1 || !ok2 || !ok3 {
		l.logger.Error("GPS table has unreadable first row, no zero time")
		return
	}

	utc := gpstime.ToUTC(int(week), ms/1000.0)
	l.gpsZero = utc.Add(-time.Duration(timeUS/1000) * time.Millisecond)
	l.hasGPSZero = true
}

// readDroppableTables loads the eviction candidates, keeping only names
// that actually exist in the parsed log.
func (l *Log) readDroppableTables(path string) {
	f, err := os.Open(path)
	if err != nil {
		l.logger.Error("cannot read droppable tables file", "file", path, "error", err)
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		if _, ok := l.tables[name]; ok {
			l.droppable = append(l.droppable, name)
		}
	}
}

// Table returns the named table.
func (l *Log) Table(name string) (*table.Table, bool) {
	t, ok := l.tables[name]
	return t, ok
}

// TableNames returns the table names in creation order.
func (l *Log) TableNames() []string {
	return append([]string(nil), l.order...)
}

// Formats returns the format registry keyed by type-ID.
func (l *Log) Formats() map[int]*format.MessageFormat {
	return l.formats
}

// DroppableTables returns the remaining eviction candidates.
func (l *Log) DroppableTables() []string {
	return append([]string(nil), l.droppable...)
}

// GPSZeroTime returns the UTC instant of TimeUS zero, if known.
func (l *Log) GPSZeroTime() (time.Time, bool) {
	return l.gpsZero, l.hasGPSZero
}

// SetGPSZeroTime overrides the GPS zero time. Mainly for tests and for
// callers aligning logs from devices without GPS.
func (l *Log) SetGPSZeroTime(t time.Time) {
	l.gpsZero = t
	l.hasGPSZero = true
}

// fmtTable returns the FMT table, which may be absent on an empty log.
func (l *Log) fmtTable() (*table.Table, bool) {
	t, ok := l.tables[format.FMTMessageName]
	return t, ok
}

// removeTable deletes a table and its creation-order entry.
func (l *Log) removeTable(name string) {
	delete(l.tables, name)
	for i, n := range l.order {
		if n == name {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

// isDescriptorTable reports whether the name is one of FMT/FMTU/UNIT/MULT.
func isDescriptorTable(name string) bool {
	_, ok := descriptorTables[name]
	return ok
}
