// Package csvexport provides thin CSV projections over a parsed log's
// tables. It carries no parsing logic of its own.
package csvexport

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/HoverflyHampton/DFLogTool/dflog"
	"github.com/HoverflyHampton/DFLogTool/errs"
	"github.com/HoverflyHampton/DFLogTool/table"
)

var trackHeader = []string{"TimeUS", "Lat", "Lng", "Alt", "Roll", "Pitch", "Yaw"}

// WriteTrack emits a flight-track CSV: one row per GPS fix with the
// attitude sampled at that instant. The GPSB table is preferred over GPS
// when present. Time is rebased to the first fix and scaled to seconds;
// positions and attitude are scaled out of their integer log encodings
// (lat/lng 1e-7 deg, alt 1e-2 m, roll/pitch/yaw 1e-3 deg).
func WriteTrack(l *dflog.Log, w io.Writer) error {
	gps, ok := l.Table("GPSB")
	if !ok {
		gps, ok = l.Table("GPS")
	}
	if !ok {
		return fmt.Errorf("%w: GPS", errs.ErrMissingTable)
	}
	att, ok := l.Table("ATT")
	if !ok {
		return fmt.Errorf("%w: ATT", errs.ErrMissingTable)
	}

	cols, err := trackColumns(gps, att)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(trackHeader); err != nil {
		return err
	}

	var t0 uint64
	attIdx := 0
	for i, row := range gps.Rows {
		ts, ok := row[cols.gpsTime].AsUint64()
		if !ok {
			continue
		}
		if i == 0 {
			t0 = ts
		}

		// Advance to the first attitude sample at or past this fix,
		// clamping to the last one.
		for attIdx < att.Len()-1 {
			attTS, ok := att.Rows[attIdx][cols.attTime].AsUint64()
			if ok && ts <= attTS {
				break
			}
			attIdx++
		}
		attRow := att.Rows[attIdx]

		rec := []string{
			formatFloat(float64(ts-t0) / 1e6),
			formatFloat(scaled(row[cols.lat], 1e7)),
			formatFloat(scaled(row[cols.lng], 1e7)),
			formatFloat(scaled(row[cols.alt], 1e2)),
			formatFloat(scaled(attRow[cols.roll], 1e3)),
			formatFloat(scaled(attRow[cols.pitch], 1e3)),
			formatFloat(scaled(attRow[cols.yaw], 1e3)),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}

// WriteTrackFile writes the track CSV to path, truncating any existing
// file.
func WriteTrackFile(l *dflog.Log, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteTrack(l, f); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

// trackCols holds the resolved column positions.
type trackCols struct {
	gpsTime, lat, lng, alt    int
	attTime, roll, pitch, yaw int
}

func trackColumns(gps, att *table.Table) (trackCols, error) {
	c := trackCols{
		gpsTime: gps.ColumnIndex(table.ColTimeUS),
		lat:     gps.ColumnIndex("Lat"),
		lng:     gps.ColumnIndex("Lng"),
		alt:     gps.ColumnIndex("Alt"),
		attTime: att.ColumnIndex(table.ColTimeUS),
		roll:    att.ColumnIndex("Roll"),
		pitch:   att.ColumnIndex("Pitch"),
		yaw:     att.ColumnIndex("Yaw"),
	}
	for _, idx := range []int{c.gpsTime, c.lat, c.lng, c.alt, c.attTime, c.roll, c.pitch, c.yaw} {
		if idx < 0 {
			return c, fmt.Errorf("%w: track export needs TimeUS/Lat/Lng/Alt and Roll/Pitch/Yaw", errs.ErrMissingColumn)
		}
	}

	return c, nil
}

// scaled reads a numeric cell and divides by the log encoding's scale.
func scaled(v table.Value, scale float64) float64 {
	f, _ := v.AsFloat64()
	return f / scale
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
