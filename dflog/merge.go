package dflog

import (
	"math/bits"

	"github.com/HoverflyHampton/DFLogTool/errs"
	"github.com/HoverflyHampton/DFLogTool/format"
	"github.com/HoverflyHampton/DFLogTool/internal/hash"
	"github.com/HoverflyHampton/DFLogTool/table"
)

// MergeOptions controls how a donor log folds into the receiver.
type MergeOptions struct {
	// DropTables lists message names excluded from the merge. Matching
	// tables are removed from the receiver and ignored on the donor, so
	// the names do not appear in the merged output at all.
	DropTables []string

	// TimeShift is the manual donor time shift in seconds. Positive
	// values advance the donor's timestamps; negative values advance the
	// receiver's instead.
	TimeShift float64

	// GPSTimeShift derives the shift from the two logs' GPS zero epochs.
	// A positive TimeShift then acts as a correction on top of the GPS
	// difference; zero or negative means the GPS difference alone.
	GPSTimeShift bool
}

// Merge folds donor into the receiver: donor descriptors are renumbered
// around the receiver's used type-IDs, descriptor tables are concatenated
// and deduplicated, timestamps are aligned, and donor data tables move
// into the receiver.
//
// Merge consumes the donor — its tables are moved out and its descriptors
// renumbered in place. The donor must not be used afterwards. Failures are
// logged: on type-ID exhaustion the affected descriptor is skipped, and a
// missing GPS epoch leaves the GPS difference at zero. Merge itself does
// not fail.
func (l *Log) Merge(donor *Log, opts MergeOptions) {
	dropSet := make(map[uint64]struct{}, len(opts.DropTables))
	for _, name := range opts.DropTables {
		dropSet[hash.ID(name)] = struct{}{}
	}

	// Dropped names must not leak into the merged output: remove them
	// from the receiver outright, and skip them on the donor below.
	for _, name := range opts.DropTables {
		if _, ok := l.tables[name]; ok {
			l.logger.Info("dropping table", "table", name)
			l.dropNamedTable(name)
		}
	}

	l.renumberDonorFormats(donor, dropSet)
	l.mergeDescriptorTables(donor, dropSet)

	shift := l.effectiveShift(donor, opts)
	mergeNames := l.transferableNames(donor, dropSet)
	l.applyShift(donor, mergeNames, shift)
	l.transferTables(donor, mergeNames)
}

// effectiveShift resolves the donor time shift in seconds. Without GPS
// alignment the manual shift applies verbatim and the receiver inherits
// the donor's GPS zero time, so a later GPS-aligned merge measures
// against the donor's time base.
func (l *Log) effectiveShift(donor *Log, opts MergeOptions) float64 {
	if !opts.GPSTimeShift {
		l.gpsZero, l.hasGPSZero = donor.gpsZero, donor.hasGPSZero
		l.logger.Info("merge time shift", "seconds", opts.TimeShift)

		return opts.TimeShift
	}

	var delta float64
	if l.hasGPSZero && donor.hasGPSZero {
		delta = l.gpsZero.Sub(donor.gpsZero).Seconds()
		l.logger.Info("gps zero difference",
			"receiver", l.gpsZero, "donor", donor.gpsZero, "seconds", delta)
	} else {
		l.logger.Warn("gps time shift requested but a gps zero time is missing")
	}

	shift := delta
	if opts.TimeShift > 0 {
		shift = opts.TimeShift - delta
	}
	l.logger.Info("calculated time shift", "seconds", shift)

	return shift
}

// transferableNames lists the donor data tables that will move over:
// everything except dropped names, descriptor tables, and names the
// receiver already has (receiver wins; the donor copy is discarded).
func (l *Log) transferableNames(donor *Log, dropSet map[uint64]struct{}) []string {
	var names []string
	for _, name := range donor.order {
		if _, dropped := dropSet[hash.ID(name)]; dropped {
			continue
		}
		if isDescriptorTable(name) {
			continue
		}
		if _, collides := l.tables[name]; collides {
			l.logger.Debug("donor table collides with receiver, keeping receiver's", "table", name)
			continue
		}
		names = append(names, name)
	}

	return names
}

// applyShift adds the effective shift to TimeUS columns: a positive shift
// advances the donor's transferable tables, a negative one advances every
// receiver data table instead. Arithmetic is unsigned 64-bit; shifts are
// tiny relative to the value range.
func (l *Log) applyShift(donor *Log, mergeNames []string, shift float64) {
	switch {
	case shift > 0:
		delta := uint64(int64(shift * 1e6))
		for _, name := range mergeNames {
			t := donor.tables[name]
			if idx := t.ColumnIndex(table.ColTimeUS); idx >= 0 {
				t.ShiftUint64Column(idx, delta)
			}
		}
	case shift < 0:
		delta := uint64(int64(-shift * 1e6))
		for _, name := range l.order {
			if isDescriptorTable(name) {
				continue
			}
			t := l.tables[name]
			if idx := t.ColumnIndex(table.ColTimeUS); idx >= 0 {
				t.ShiftUint64Column(idx, delta)
			}
		}
	}
}

// transferTables moves the donor's data tables into the receiver and
// absorbs the matching registry entries.
func (l *Log) transferTables(donor *Log, mergeNames []string) {
	byName := make(map[string]*format.MessageFormat, len(donor.formats))
	for _, mf := range donor.formats {
		byName[mf.Name] = mf
	}

	for _, name := range mergeNames {
		l.tables[name] = donor.tables[name]
		l.order = append(l.order, name)
		if mf, ok := byName[name]; ok {
			l.formats[mf.Type] = mf
		}
	}
}

// renumberDonorFormats walks the donor's FMT rows and moves any type-ID
// already used by the receiver onto a free one. When the 8-bit space is
// exhausted the receiver evicts its next droppable table to free an ID;
// failing that, the donor descriptor is dropped and the merge moves on.
func (l *Log) renumberDonorFormats(donor *Log, dropSet map[uint64]struct{}) {
	dfmt, ok := donor.fmtTable()
	if !ok {
		return
	}
	dTypeIdx := dfmt.ColumnIndex(colType)
	dNameIdx := dfmt.ColumnIndex(colName)
	if dTypeIdx < 0 || dNameIdx < 0 {
		return
	}

	var avail idSet
	avail.fill()
	if rfmt, ok := l.fmtTable(); ok {
		if idx := rfmt.ColumnIndex(colType); idx >= 0 {
			for _, row := range rfmt.Rows {
				if id, ok := row[idx].AsUint64(); ok && id <= format.MaxTypeID {
					avail.remove(int(id))
				}
			}
		}
	}

	rows := append([]table.Row(nil), dfmt.Rows...)
	for _, row := range rows {
		name := row[dNameIdx].Str()
		if _, dropped := dropSet[hash.ID(name)]; dropped {
			continue
		}
		if isDescriptorTable(name) {
			continue
		}
		typeNum, ok := row[dTypeIdx].AsUint64()
		if !ok || typeNum > format.MaxTypeID {
			continue
		}

		if avail.contains(int(typeNum)) {
			avail.remove(int(typeNum))
			continue
		}

		if rname, ok := l.nameForType(int(typeNum)); ok {
			l.logger.Info("type collision", "type", typeNum, "receiver", rname, "donor", name)
		} else {
			l.logger.Info("type conflict", "type", typeNum)
		}

		newNum, ok := avail.popLowest()
		if !ok {
			newNum, ok = l.dropNextDroppable()
		}
		if !ok {
			l.logger.Error("unable to add table",
				"table", name, "type", typeNum, "error", errs.ErrTypeSpaceExhausted)
			donor.dropNamedTable(name)
			continue
		}
		donor.renumberFormat(int(typeNum), newNum)
	}
}

// mergeDescriptorTables concatenates each descriptor table (FMT, UNIT,
// MULT, FMTU) with the donor's and drops duplicates on the key field,
// first occurrence winning, so the receiver's entries take precedence.
// Donor FMT rows for dropped names are excluded.
func (l *Log) mergeDescriptorTables(donor *Log, dropSet map[uint64]struct{}) {
	// Fixed order so log output and row order are deterministic.
	for _, name := range []string{"FMT", "UNIT", "MULT", "FMTU"} {
		keyField := descriptorTables[name]

		dt, donorHas := donor.tables[name]
		rt, recvHas := l.tables[name]
		switch {
		case !recvHas && !donorHas:
			continue
		case !recvHas:
			l.tables[name] = dt
			l.order = append(l.order, name)
			rt = dt
		case donorHas:
			nameIdx := dt.ColumnIndex(colName)
			for _, row := range dt.Rows {
				if name == format.FMTMessageName && nameIdx >= 0 {
					if _, dropped := dropSet[hash.ID(row[nameIdx].Str())]; dropped {
						continue
					}
				}
				rt.Rows = append(rt.Rows, row)
			}
		}

		keyIdx := rt.ColumnIndex(keyField)
		if keyIdx < 0 {
			continue
		}
		seen := make(map[uint64]struct{}, len(rt.Rows))
		kept := rt.Rows[:0]
		for _, row := range rt.Rows {
			key := hash.ID(row[keyIdx].Format())
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			kept = append(kept, row)
		}
		rt.Rows = kept
	}
}

// dropNamedTable removes a table, its FMT row and its registry entry.
func (l *Log) dropNamedTable(name string) {
	l.removeTable(name)

	fmtTable, ok := l.fmtTable()
	if !ok {
		return
	}
	typeIdx := fmtTable.ColumnIndex(colType)
	nameIdx := fmtTable.ColumnIndex(colName)
	if typeIdx < 0 || nameIdx < 0 {
		return
	}
	for i, row := range fmtTable.Rows {
		if row[nameIdx].Str() != name {
			continue
		}
		if id, ok := row[typeIdx].AsUint64(); ok {
			delete(l.formats, int(id))
		}
		fmtTable.Rows = append(fmtTable.Rows[:i], fmtTable.Rows[i+1:]...)

		return
	}
}

// dropNextDroppable evicts the receiver's next droppable table and returns
// its freed type-ID.
func (l *Log) dropNextDroppable() (int, bool) {
	for len(l.droppable) > 0 {
		name := l.droppable[0]
		l.droppable = l.droppable[1:]

		typeID, ok := l.typeForName(name)
		if !ok {
			continue
		}
		l.logger.Info("dropping table to free a type id", "table", name, "type", typeID)
		l.dropNamedTable(name)

		return typeID, true
	}

	return 0, false
}

// renumberFormat moves a descriptor from one type-ID to another, updating
// the FMT row and the registry.
func (l *Log) renumberFormat(oldID, newID int) {
	fmtTable, ok := l.fmtTable()
	if !ok {
		return
	}
	typeIdx := fmtTable.ColumnIndex(colType)
	nameIdx := fmtTable.ColumnIndex(colName)
	if typeIdx < 0 {
		return
	}
	for _, row := range fmtTable.Rows {
		id, ok := row[typeIdx].AsUint64()
		if !ok || int(id) != oldID {
			continue
		}
		row[typeIdx] = table.Int64Value(int64(newID))
		name := ""
		if nameIdx >= 0 {
			name = row[nameIdx].Str()
		}
		l.logger.Info("renumbered message", "name", name, "from", oldID, "to", newID)
		break
	}

	if mf, ok := l.formats[oldID]; ok {
		delete(l.formats, oldID)
		mf.Type = newID
		l.formats[newID] = mf
	}
}

// nameForType returns the message name registered at a type-ID, from the
// FMT table.
func (l *Log) nameForType(typeID int) (string, bool) {
	fmtTable, ok := l.fmtTable()
	if !ok {
		return "", false
	}
	typeIdx := fmtTable.ColumnIndex(colType)
	nameIdx := fmtTable.ColumnIndex(colName)
	if typeIdx < 0 || nameIdx < 0 {
		return "", false
	}
	for _, row := range fmtTable.Rows {
		if id, ok := row[typeIdx].AsUint64(); ok && int(id) == typeID {
			return row[nameIdx].Str(), true
		}
	}

	return "", false
}

// typeForName returns the type-ID of the named message, from the FMT table.
func (l *Log) typeForName(name string) (int, bool) {
	fmtTable, ok := l.fmtTable()
	if !ok {
		return 0, false
	}
	typeIdx := fmtTable.ColumnIndex(colType)
	nameIdx := fmtTable.ColumnIndex(colName)
	if typeIdx < 0 || nameIdx < 0 {
		return 0, false
	}
	for _, row := range fmtTable.Rows {
		if row[nameIdx].Str() != name {
			continue
		}
		if id, ok := row[typeIdx].AsUint64(); ok {
			return int(id), true
		}
	}

	return 0, false
}

// idSet is a bitset over the 8-bit type-ID space.
type idSet [4]uint64

// fill marks every ID 0..255 free.
func (s *idSet) fill() {
	for i := range s {
		s[i] = ^uint64(0)
	}
}

func (s *idSet) contains(id int) bool {
	return s[id>>6]&(1<<(uint(id)&63)) != 0
}

func (s *idSet) remove(id int) {
	s[id>>6] &^= 1 << (uint(id) & 63)
}

// popLowest removes and returns the lowest free ID.
func (s *idSet) popLowest() (int, bool) {
	for i, word := range s {
		if word != 0 {
			bit := bits.TrailingZeros64(word)
			id := i*64 + bit
			s.remove(id)

			return id, true
		}
	}

	return 0, false
}
