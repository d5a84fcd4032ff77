package telemetry

import (
	"fmt"
	"sort"
)

// LatestAggregatePK is the partition of the per-(race, rider) latest-state
// projection in the live table.
const LatestAggregatePK = "AGG#JOINEDLIVEDATA#LATEST#"

// LatestAggregateSK builds the sort key of a rider's latest-state record.
func LatestAggregateSK(raceID, uciID string) string {
	return fmt.Sprintf("RACE#RaceID=%s#UCIID=%s#", raceID, uciID)
}

// LatestUpdate derives the latest-aggregate update for a mapped aggregate
// record: a SET of every attribute the record carries, addressed at the
// rider's single latest-state row. The projection is merged, not replaced,
// so fields only one aggregate kind produces survive updates from the
// other. Returns false when the record lacks the identifying fields.
func LatestUpdate(rec Record) (UpdateSpec, bool) {
	raceID, okRace := rec.Attrs["RaceID"]
	uciID, okRider := rec.Attrs["UCIID"]
	if !okRace || !okRider || raceID.Value == "" || uciID.Value == "" {
		return UpdateSpec{}, false
	}

	spec := UpdateSpec{
		Key: Key{
			PK: LatestAggregatePK,
			SK: LatestAggregateSK(raceID.Value, uciID.Value),
		},
	}

	if ts, ok := rec.Attrs["EventTimeStamp"]; ok {
		spec.Assignments = append(spec.Assignments, Assignment{Name: "EventTimeStamp", Value: ts})
	}

	names := make([]string, 0, len(rec.Attrs))
	for name := range rec.Attrs {
		if name == "EventTimeStamp" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		spec.Assignments = append(spec.Assignments, Assignment{Name: name, Value: rec.Attrs[name]})
	}
	return spec, true
}
