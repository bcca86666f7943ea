package record

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/HoverflyHampton/DFLogTool/errs"
	"github.com/HoverflyHampton/DFLogTool/format"
	"github.com/HoverflyHampton/DFLogTool/table"
)

// TextParser stages comma-separated log lines and converts them into
// tables once the whole file has been read.
//
// Lines are split on commas with surrounding whitespace trimmed. FMT lines
// need one adjustment during staging: the column list at the tail is itself
// comma-separated, so everything past the fourth payload field is rejoined
// into a single logical field. For every other message the rejoin happens
// at conversion time, once the descriptor's column count is known.
type TextParser struct {
	staged map[string][][]string
	order  []string
	logger *slog.Logger
}

// NewTextParser creates an empty text parser.
func NewTextParser(logger *slog.Logger) *TextParser {
	if logger == nil {
		logger = slog.Default()
	}

	return &TextParser{
		staged: make(map[string][][]string),
		logger: logger,
	}
}

// AddLine stages one log line. Blank lines are ignored.
func (p *TextParser) AddLine(line string) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return
	}

	fields := strings.Split(line, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	name := fields[0]
	payload := fields[1:]
	if name == format.FMTMessageName && len(payload) > 5 {
		payload = append(payload[:4:4], strings.Join(payload[4:], ","))
	}

	if _, ok := p.staged[name]; !ok {
		p.order = append(p.order, name)
	}
	row := append([]string{name}, payload...)
	p.staged[name] = append(p.staged[name], row)
}

// Finish builds the format registry from the staged FMT rows and converts
// every staged message into a table. Messages without a descriptor and
// descriptors that fail validation are logged and skipped.
//
// Returns the registry keyed by type-ID, the tables keyed by message name,
// and the message arrival order.
func (p *TextParser) Finish() (map[int]*format.MessageFormat, map[string]*table.Table, []string, error) {
	fmtRows, ok := p.staged[format.FMTMessageName]
	if !ok {
		return nil, nil, nil, errs.ErrNoValidLines
	}

	byName := make(map[string]*format.MessageFormat, len(fmtRows))
	formats := make(map[int]*format.MessageFormat, len(fmtRows))
	for _, row := range fmtRows {
		mf, err := parseFMTRow(row)
		if err != nil {
			p.logger.Error("invalid format line", "error", err, "line", strings.Join(row, ", "))
			continue
		}
		byName[mf.Name] = mf
		formats[mf.Type] = mf
	}

	tables := make(map[string]*table.Table, len(p.staged))
	var order []string
	for _, name := range p.order {
		mf, ok := byName[name]
		if !ok {
			p.logger.Error("no format declared for message, skipping", "message", name)
			continue
		}
		tables[name] = p.convert(name, mf)
		order = append(order, name)
	}

	return formats, tables, order, nil
}

// convert finalizes one staged message into a table of string-valued rows.
// Fields beyond the descriptor's column count collapse into the last
// column; FMTU rows get their timestamp forced to zero so unit metadata
// serializes at the head of the output.
func (p *TextParser) convert(name string, mf *format.MessageFormat) *table.Table {
	t := table.New(name, append([]string{table.ColMsgName}, mf.Columns...))
	colNum := len(mf.Columns) // row fields before the joined tail, NAME included

	for _, staged := range p.staged[name] {
		fields := make([]string, colNum, colNum+1)
		copy(fields, staged)
		if len(staged) >= colNum {
			fields = append(fields, strings.Join(staged[colNum:], ", "))
		} else {
			fields = append(fields, "")
		}
		if name == "FMTU" && len(fields) > 1 {
			fields[1] = "0"
		}

		row := make(table.Row, len(fields))
		for i, f := range fields {
			row[i] = table.StringValue(f)
		}
		t.Append(row)
	}

	return t
}

// parseFMTRow builds a descriptor from a staged FMT row:
// (MSGNAME, Type, Length, Name, Format, Columns).
func parseFMTRow(row []string) (*format.MessageFormat, error) {
	if len(row) < 6 {
		return nil, fmt.Errorf("%w: %d fields", errs.ErrInvalidFormatRecord, len(row))
	}

	typeID, err := strconv.Atoi(row[1])
	if err != nil {
		return nil, fmt.Errorf("%w: type %q", errs.ErrInvalidFormatRecord, row[1])
	}
	length, err := strconv.Atoi(row[2])
	if err != nil {
		return nil, fmt.Errorf("%w: length %q", errs.ErrInvalidFormatRecord, row[2])
	}

	return format.NewMessageFormat(row[3], typeID, length, row[4], splitColumns(row[5]))
}
