package telemetry

// Kind identifies one of the message types produced by the timing and
// telemetry providers during a live race. The set is closed: anything the
// ingress has not been taught to emit maps to KindUnknown and is skipped.
type Kind string

const (
	KindUnknown Kind = ""

	// Raw per-rider samples.
	KindLiveRidersTracking Kind = "LiveRidersTracking"
	KindLiveRidersData     Kind = "LiveRidersData"

	// Race control messages.
	KindStartTime       Kind = "StartTime"
	KindRaceStartLive   Kind = "RaceStartLive"
	KindFinishTime      Kind = "FinishTime"
	KindLapCounter      Kind = "LapCounter"
	KindRiderEliminated Kind = "RiderEliminated"

	// Pre-aggregated samples from the stream-analytics application.
	KindAggRidersData     Kind = "AggRidersData"
	KindAggRidersTracking Kind = "AggRidersTracking"
	KindAggPersonalBest   Kind = "AggPersonalBest"
)

// ParseKind maps a wire-level InputMessage value to a Kind.
func ParseKind(s string) Kind {
	switch Kind(s) {
	case KindLiveRidersTracking, KindLiveRidersData,
		KindStartTime, KindRaceStartLive, KindFinishTime,
		KindLapCounter, KindRiderEliminated,
		KindAggRidersData, KindAggRidersTracking, KindAggPersonalBest:
		return Kind(s)
	default:
		return KindUnknown
	}
}

// IsAggregate reports whether records of this kind feed the per-(race, rider)
// latest-aggregate projection.
func (k Kind) IsAggregate() bool {
	return k == KindAggRidersData || k == KindAggRidersTracking
}

func (k Kind) String() string {
	if k == KindUnknown {
		return "Unknown"
	}
	return string(k)
}
