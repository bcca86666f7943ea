package dflogtool

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HoverflyHampton/DFLogTool/dflog"
)

func TestParseMergeWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()

	basePath := filepath.Join(dir, "base.log")
	require.NoError(t, os.WriteFile(basePath, []byte(
		"FMT, 128, 89, FMT, BBnNZ, Type,Length,Name,Format,Columns\n"+
			"FMT, 130, 15, BAT, Qf, TimeUS,Curr\n"+
			"BAT, 1000, 3.5\n"), 0o644))

	donorPath := filepath.Join(dir, "donor.log")
	require.NoError(t, os.WriteFile(donorPath, []byte(
		"FMT, 128, 89, FMT, BBnNZ, Type,Length,Name,Format,Columns\n"+
			"FMT, 130, 15, IMU, Qf, TimeUS,AccX\n"+
			"IMU, 500, 9.8\n"), 0o644))

	base, err := ParseLog(basePath)
	require.NoError(t, err)
	donor, err := ParseLog(donorPath)
	require.NoError(t, err)

	base.Merge(donor, dflog.MergeOptions{TimeShift: 1.0})

	outPath := filepath.Join(dir, "merged.log")
	require.NoError(t, WriteLog(base, outPath))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	out := string(data)

	assert.True(t, strings.HasPrefix(out, "FMT, "))
	assert.Contains(t, out, "BAT, 1000, 3.5")
	// Donor row shifted forward by one second.
	assert.Contains(t, out, "IMU, 1000500, 9.8")
}
