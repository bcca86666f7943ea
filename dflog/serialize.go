package dflog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/HoverflyHampton/DFLogTool/compress"
	"github.com/HoverflyHampton/DFLogTool/format"
	"github.com/HoverflyHampton/DFLogTool/internal/pool"
	"github.com/HoverflyHampton/DFLogTool/table"
)

// fieldSep joins values on an output line.
const fieldSep = ", "

// sortEntry carries one pre-formatted data row with its sort key exposed
// as a typed integer. Keeping the key numeric avoids the lexicographic
// mis-ordering that decimal strings of different lengths would cause.
type sortEntry struct {
	name   string
	timeUS uint64
	rest   string
}

// WriteFile serializes the log to path, truncating any existing file.
// A ".zst", ".s2" or ".lz4" suffix compresses the output with the matching
// codec. Serialization errors are fatal to the operation and returned.
func (l *Log) WriteFile(path string) error {
	codecType, _ := compress.DetectPath(path)
	if codecType != compress.TypeNone {
		return l.writeCompressed(path, codecType)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	w := bufio.NewWriter(f)
	if err := l.WriteTo(w); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return f.Close()
}

// writeCompressed serializes in memory, compresses, and writes the result.
func (l *Log) writeCompressed(path string, codecType compress.Type) error {
	codec, err := compress.ForType(codecType)
	if err != nil {
		return err
	}

	buf := pool.NewByteBuffer(pool.FrameBufferDefaultSize)
	if err := l.WriteTo(buf); err != nil {
		return err
	}
	compressed, err := codec.Compress(buf.Bytes())
	if err != nil {
		return fmt.Errorf("compressing %s: %w", path, err)
	}

	if err := os.WriteFile(path, compressed, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return nil
}

// WriteTo emits the canonical text form: FMT descriptor rows first, then
// every row of every TimeUS-bearing table, stable-sorted by the numeric
// timestamp. The log is read-only to this method.
func (l *Log) WriteTo(w io.Writer) error {
	if fmtTable, ok := l.fmtTable(); ok {
		for _, row := range fmtTable.Rows {
			if err := writeRow(w, row); err != nil {
				return err
			}
		}
	}

	var entries []sortEntry
	for _, name := range l.order {
		if name == format.FMTMessageName {
			continue
		}
		t := l.tables[name]
		timeIdx := t.ColumnIndex(table.ColTimeUS)
		if timeIdx < 0 {
			continue
		}
		for _, row := range t.Rows {
			ts, ok := row[timeIdx].AsUint64()
			if !ok {
				l.logger.Debug("row with unreadable timestamp sorts at zero", "table", name)
			}
			entries = append(entries, sortEntry{
				name:   name,
				timeUS: ts,
				rest:   joinRest(row, timeIdx),
			})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].timeUS < entries[j].timeUS
	})

	line := pool.GetLineBuffer()
	defer pool.PutLineBuffer(line)
	for _, e := range entries {
		line.Reset()
		line.WriteString(e.name)
		line.WriteString(fieldSep)
		line.B = strconv.AppendUint(line.B, e.timeUS, 10)
		line.WriteString(fieldSep)
		line.WriteString(e.rest)
		line.WriteByte('\n')
		if _, err := w.Write(line.Bytes()); err != nil {
			return err
		}
	}

	return nil
}

// writeRow emits one descriptor row verbatim.
func writeRow(w io.Writer, row table.Row) error {
	line := pool.GetLineBuffer()
	defer pool.PutLineBuffer(line)

	for i, v := range row {
		if i > 0 {
			line.WriteString(fieldSep)
		}
		line.WriteString(v.Format())
	}
	line.WriteByte('\n')

	_, err := w.Write(line.Bytes())

	return err
}

// joinRest formats every column except MSGNAME and the timestamp.
func joinRest(row table.Row, timeIdx int) string {
	buf := pool.GetLineBuffer()
	defer pool.PutLineBuffer(buf)

	first := true
	for i, v := range row {
		if i == 0 || i == timeIdx {
			continue
		}
		if !first {
			buf.WriteString(fieldSep)
		}
		first = false
		buf.WriteString(v.Format())
	}

	return string(buf.Bytes())
}
