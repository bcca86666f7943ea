package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueFormat(t *testing.T) {
	assert.Equal(t, "-42", Int64Value(-42).Format())
	assert.Equal(t, "18446744073709551615", Uint64Value(^uint64(0)).Format())
	assert.Equal(t, "2.5", Float64Value(2.5).Format())
	assert.Equal(t, "hello", StringValue("hello").Format())
	assert.Equal(t, "1 -2 3", Int16ArrayValue([]int16{1, -2, 3}).Format())
}

func TestValueAsUint64(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want uint64
		ok   bool
	}{
		{"uint", Uint64Value(1000), 1000, true},
		{"int", Int64Value(2000), 2000, true},
		{"negative int", Int64Value(-1), 0, false},
		{"float", Float64Value(3000.7), 3000, true},
		{"string", StringValue("4000"), 4000, true},
		{"string float", StringValue("5000.0"), 5000, true},
		{"string junk", StringValue("abc"), 0, false},
		{"array", Int16ArrayValue([]int16{1}), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.v.AsUint64()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValueAsFloat64(t *testing.T) {
	got, ok := StringValue(" 2.5 ").AsFloat64()
	require.True(t, ok)
	assert.InDelta(t, 2.5, got, 1e-12)

	_, ok = StringValue("x").AsFloat64()
	assert.False(t, ok)
}

func TestTableShiftUint64Column(t *testing.T) {
	tbl := New("TEST", []string{ColMsgName, ColTimeUS, "V"})
	tbl.Append(Row{StringValue("TEST"), Uint64Value(1000), Float64Value(1)})
	tbl.Append(Row{StringValue("TEST"), StringValue("2000"), Float64Value(2)})

	idx := tbl.ColumnIndex(ColTimeUS)
	require.Equal(t, 1, idx)
	tbl.ShiftUint64Column(idx, 3_000_000)

	v0, ok := tbl.Rows[0][idx].AsUint64()
	require.True(t, ok)
	assert.Equal(t, uint64(3_001_000), v0)

	// String-valued timestamps (text logs) shift too, and become typed.
	assert.Equal(t, KindUint64, tbl.Rows[1][idx].Kind())
	v1, _ := tbl.Rows[1][idx].AsUint64()
	assert.Equal(t, uint64(3_002_000), v1)
}

func TestTableFirstWhere(t *testing.T) {
	tbl := New("BAT", []string{ColMsgName, ColTimeUS, "Curr"})
	tbl.Append(Row{StringValue("BAT"), Uint64Value(1), Float64Value(5)})
	tbl.Append(Row{StringValue("BAT"), Uint64Value(2), Float64Value(20)})

	row, ok := tbl.FirstWhere(func(r Row) bool {
		v, _ := r[2].AsFloat64()
		return v >= 18
	})
	require.True(t, ok)
	ts, _ := row[1].AsUint64()
	assert.Equal(t, uint64(2), ts)

	_, ok = tbl.FirstWhere(func(r Row) bool { return false })
	assert.False(t, ok)
}
