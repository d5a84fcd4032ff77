package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestUpdate_DerivesKeyAndAssignments(t *testing.T) {
	// Arrange
	rec := Record{
		Key: Key{PK: "AGG#LIVERIDERSDATA#RaceID=21081201#", SK: "UCIID=10036401620#EventTimeStamp=2021-08-11 09:52:42.000#"},
		Attrs: map[string]Attr{
			"RaceID":            S("21081201"),
			"UCIID":             S("10036401620"),
			"EventTimeStamp":    S("2021-08-11 09:52:42.000"),
			"MaxRaceRiderPower": N("455"),
		},
	}

	// Act
	spec, ok := LatestUpdate(rec)

	// Assert
	require.True(t, ok)
	assert.Equal(t, LatestAggregatePK, spec.Key.PK)
	assert.Equal(t, "RACE#RaceID=21081201#UCIID=10036401620#", spec.Key.SK)
	require.Len(t, spec.Assignments, 4)
	assert.Equal(t, "EventTimeStamp", spec.Assignments[0].Name)
	// Remaining assignments follow in name order.
	assert.Equal(t, "MaxRaceRiderPower", spec.Assignments[1].Name)
	assert.Equal(t, "RaceID", spec.Assignments[2].Name)
	assert.Equal(t, "UCIID", spec.Assignments[3].Name)
}

func TestLatestUpdate_MissingIdentity(t *testing.T) {
	cases := []struct {
		name  string
		attrs map[string]Attr
	}{
		{"no race", map[string]Attr{"UCIID": S("10036401620")}},
		{"no rider", map[string]Attr{"RaceID": S("21081201")}},
		{"empty rider", map[string]Attr{"RaceID": S("21081201"), "UCIID": S("")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := LatestUpdate(Record{Attrs: tc.attrs})
			assert.False(t, ok)
		})
	}
}

func TestUpdateSpecMerge_LaterAssignmentsWin(t *testing.T) {
	// Arrange
	key := Key{PK: LatestAggregatePK, SK: LatestAggregateSK("21081201", "10036401620")}
	first := UpdateSpec{Key: key, Assignments: []Assignment{
		{Name: "RiderPower", Value: N("410")},
		{Name: "RiderCadency", Value: N("95")},
	}}
	second := UpdateSpec{Key: key, Assignments: []Assignment{
		{Name: "RiderPower", Value: N("455")},
		{Name: "RiderSpeed", Value: N("61.3")},
	}}

	// Act
	merged := first.Merge(second)

	// Assert
	assert.Equal(t, key, merged.Key)
	require.Len(t, merged.Assignments, 3)
	byName := make(map[string]Attr)
	for _, a := range merged.Assignments {
		byName[a.Name] = a.Value
	}
	assert.Equal(t, N("455"), byName["RiderPower"])
	assert.Equal(t, N("95"), byName["RiderCadency"])
	assert.Equal(t, N("61.3"), byName["RiderSpeed"])
}
