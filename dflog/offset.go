package dflog

import "github.com/HoverflyHampton/DFLogTool/table"

// OffsetThresholds parameterizes spike detection for offset autodetection.
type OffsetThresholds struct {
	// BGUCurrent is the minimum BGU1.CurrAll reading that marks the
	// donor-side launch event.
	BGUCurrent float64
	// CraftCurrent is the minimum BAT.Curr reading that marks the
	// receiver-side launch event.
	CraftCurrent float64
	// RCOUChannel is the RCOU.C1 value above which the older receiver
	// variant registers the event.
	RCOUChannel float64
	// IPSCurrent is the IPS.mA value above which the older donor variant
	// registers the event.
	IPSCurrent float64
}

// DefaultOffsetThresholds returns the detection thresholds matched to the
// stock sensor configuration.
func DefaultOffsetThresholds() OffsetThresholds {
	return OffsetThresholds{
		BGUCurrent:   18,
		CraftCurrent: 18,
		RCOUChannel:  1500,
		IPSCurrent:   600,
	}
}

// FindOffset computes the donor time shift in seconds from matching
// current-draw spikes: the receiver's first battery spike (BAT.Curr, or
// RCOU.C1 on older logs) against the donor's first ground-unit spike
// (BGU1.CurrAll, or IPS.mA). The returned value is the amount the donor's
// clock lags the receiver's at the shared physical event.
//
// When either signal is missing — table, column or qualifying row — the
// offset cannot be detected; FindOffset logs a warning and returns 0 so a
// manual shift can still be applied downstream.
func (l *Log) FindOffset(donor *Log, th OffsetThresholds) float64 {
	donorTime, ok := donor.firstSpike("BGU1", "CurrAll", th.BGUCurrent, false)
	if !ok {
		donorTime, ok = donor.firstSpike("IPS", "mA", th.IPSCurrent, true)
	}
	if !ok {
		l.logger.Warn("could not autodetect offset, try again with manual offset")
		return 0
	}

	craftTime, ok := l.firstSpike("BAT", "Curr", th.CraftCurrent, false)
	if !ok {
		craftTime, ok = l.firstSpike("RCOU", "C1", th.RCOUChannel, true)
	}
	if !ok {
		l.logger.Warn("could not autodetect offset, try again with manual offset")
		return 0
	}

	offset := (float64(craftTime) - float64(donorTime)) / 1e6
	l.logger.Info("autodetected time shift", "seconds", offset)

	return offset
}

// firstSpike returns the TimeUS of the first row whose channel crosses the
// threshold. Strict selects > rather than >=.
func (l *Log) firstSpike(tableName, column string, threshold float64, strict bool) (uint64, bool) {
	t, ok := l.tables[tableName]
	if !ok {
		return 0, false
	}
	colIdx := t.ColumnIndex(column)
	timeIdx := t.ColumnIndex(table.ColTimeUS)
	if colIdx < 0 || timeIdx < 0 {
		return 0, false
	}

	row, ok := t.FirstWhere(func(row table.Row) bool {
		v, ok := row[colIdx].AsFloat64()
		if !ok {
			return false
		}
		if strict {
			return v > threshold
		}

		return v >= threshold
	})
	if !ok {
		return 0, false
	}

	return row[timeIdx].AsUint64()
}
