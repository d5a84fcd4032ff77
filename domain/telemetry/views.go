package telemetry

// RaceStatus is the monotonic lifecycle state of one race. The record is
// created as SCHEDULED by the race directory before the stream ever runs;
// this pipeline only moves it forward.
type RaceStatus string

const (
	StatusScheduled RaceStatus = "SCHEDULED"
	StatusLive      RaceStatus = "LIVE"
	StatusFinished  RaceStatus = "FINISHED"
)

// RaceInfo is the static race record owned by the ingress collaborators.
type RaceInfo struct {
	EventID  string
	RaceID   string
	RaceName string
	Status   RaceStatus
}

// RiderAggregate is the latest-state projection of one rider in one race,
// read back when the race finishes. Metrics a rider never reported are nil.
type RiderAggregate struct {
	UCIID        string
	MaxHeartrate *float64
	MaxCadency   *float64
	MaxPower     *float64
	MaxSpeed     *float64
}

// MetricMax is one race-level maximum and the rider that produced it.
type MetricMax struct {
	UCIID string
	Value float64
}

// RaceAggregate is the single per-race reduction of all rider latest-state
// records. Metrics absent from every input stay nil and are omitted from
// storage rather than written as a sentinel.
type RaceAggregate struct {
	RaceID       string
	MaxPower     *MetricMax
	MaxHeartrate *MetricMax
	MaxSpeed     *MetricMax
	MaxCadency   *MetricMax
}

// PersonalBestMetrics lists, in report order, the metric names tracked by
// the personal-best comparison: heart-rate, instantaneous power and the
// eight power-duration windows.
var PersonalBestMetrics = []string{
	"RiderHeartrate",
	"RiderPower",
	"Power5s",
	"Power15s",
	"Power30s",
	"Power60s",
	"Power120s",
	"Power180s",
	"Power300s",
	"Power600s",
}

// MetricReading is one metric observation within a personal-best sample,
// flagged by the stream-analytics application when it exceeded the rider's
// registered baseline.
type MetricReading struct {
	Value    float64
	Exceeded bool
}

// PersonalBestSample is one continuously written personal-best record,
// read back in bulk when the race finishes.
type PersonalBestSample struct {
	UCIID          string
	EventTimeStamp string
	Readings       map[string]MetricReading
}

// RiderBaseline carries the rider's pre-season threshold per tracked
// metric, keyed by the same names as PersonalBestMetrics. Populated from
// the questionnaire records this pipeline treats as read-only.
type RiderBaseline struct {
	UCIID      string
	Thresholds map[string]float64
}
