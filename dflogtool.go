// Package dflogtool parses, merges and re-serializes ArduPilot DataFlash
// flight logs.
//
// A DataFlash log is self-describing: FMT records near the head of the
// stream declare every message type's layout, and the remaining records
// decode against those declarations. This package reads binary (".bin")
// and text logs into an in-memory table-per-message representation, merges
// logs recorded on independent devices into one coherent timeline —
// renumbering colliding type-IDs and aligning time bases manually or via
// GPS epochs — and emits the canonical comma-separated text form sorted by
// timestamp.
//
// # Basic Usage
//
// Merging a ground-unit log into a flight log:
//
//	base, _ := dflogtool.ParseLog("flight.bin")
//	donor, _ := dflogtool.ParseLog("ground.bin")
//
//	shift := base.FindOffset(donor, dflog.DefaultOffsetThresholds())
//	base.Merge(donor, dflog.MergeOptions{TimeShift: shift})
//
//	_ = dflogtool.WriteLog(base, "merged.log")
//
// # Package Structure
//
// This package provides thin wrappers around the dflog package, which
// holds the Log type and its operations. The framer, record, table and
// format packages implement the layers underneath; use them directly for
// fine-grained control over the decode pipeline.
package dflogtool

import (
	"github.com/HoverflyHampton/DFLogTool/dflog"
)

// ParseLog reads a log file into memory. Files suffixed ".zst", ".s2" or
// ".lz4" are decompressed first; the remaining extension selects the
// binary (".bin") or text parser.
//
// Parsing is best-effort: malformed content is logged and skipped, and an
// input with no decodable records yields an empty Log. I/O errors are
// returned.
func ParseLog(path string, opts ...dflog.Option) (*dflog.Log, error) {
	return dflog.Parse(path, opts...)
}

// WriteLog serializes a log to path in the canonical text form:
// descriptors first, then all data rows sorted by timestamp. The file is
// truncated first.
func WriteLog(l *dflog.Log, path string) error {
	return l.WriteFile(path)
}
