package csvexport

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HoverflyHampton/DFLogTool/dflog"
	"github.com/HoverflyHampton/DFLogTool/errs"
)

func parseTestLog(t *testing.T, lines ...string) *dflog.Log {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.log")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))

	l, err := dflog.Parse(path)
	require.NoError(t, err)

	return l
}

func trackTestLog(t *testing.T) *dflog.Log {
	t.Helper()
	return parseTestLog(t,
		"FMT, 128, 89, FMT, BBnNZ, Type,Length,Name,Format,Columns",
		"FMT, 129, 30, GPS, QLLe, TimeUS,Lat,Lng,Alt",
		"FMT, 130, 30, ATT, Qccc, TimeUS,Roll,Pitch,Yaw",
		"ATT, 500000, 1000, 2000, 3000",
		"ATT, 1500000, 1100, 2100, 3100",
		"GPS, 1000000, 473977420, 85455950, 45800",
		"GPS, 2000000, 473977430, 85455960, 45900",
	)
}

func TestWriteTrack(t *testing.T) {
	l := trackTestLog(t)

	var buf bytes.Buffer
	require.NoError(t, WriteTrack(l, &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, trackHeader, records[0])

	// First fix: time rebased to zero, positions scaled out of their
	// integer encodings.
	first := records[1]
	assert.Equal(t, "0", first[0])
	assert.Equal(t, "47.397742", first[1])
	assert.Equal(t, "8.545595", first[2])
	assert.Equal(t, "458", first[3])
	// Attitude sampled at the first ATT row at or past the fix.
	assert.Equal(t, "1.1", first[4])

	second := records[2]
	assert.Equal(t, "1", second[0])
	assert.Equal(t, "1.1", second[4], "attitude clamps to the last sample")
}

func TestWriteTrackPrefersGPSB(t *testing.T) {
	l := parseTestLog(t,
		"FMT, 128, 89, FMT, BBnNZ, Type,Length,Name,Format,Columns",
		"FMT, 129, 30, GPSB, QLLe, TimeUS,Lat,Lng,Alt",
		"FMT, 130, 30, ATT, Qccc, TimeUS,Roll,Pitch,Yaw",
		"ATT, 0, 0, 0, 0",
		"GPSB, 1000000, 473977420, 85455950, 45800",
	)

	var buf bytes.Buffer
	require.NoError(t, WriteTrack(l, &buf))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestWriteTrackMissingTables(t *testing.T) {
	l := parseTestLog(t,
		"FMT, 128, 89, FMT, BBnNZ, Type,Length,Name,Format,Columns",
		"FMT, 130, 30, ATT, Qccc, TimeUS,Roll,Pitch,Yaw",
		"ATT, 0, 0, 0, 0",
	)

	err := WriteTrack(l, &bytes.Buffer{})
	require.ErrorIs(t, err, errs.ErrMissingTable)
}

func TestWriteTrackFile(t *testing.T) {
	l := trackTestLog(t)
	path := filepath.Join(t.TempDir(), "track.csv")
	require.NoError(t, WriteTrackFile(l, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "TimeUS,Lat,Lng,Alt,Roll,Pitch,Yaw"))
}
