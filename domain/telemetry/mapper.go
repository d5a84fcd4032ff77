package telemetry

import (
	"encoding/json"
	"fmt"
	"time"
)

// fieldSpec names one attribute copied from the envelope into the mapped
// record, tagged with the storage type it must take.
type fieldSpec struct {
	name string
	typ  AttrType
}

func str(name string) fieldSpec { return fieldSpec{name: name, typ: AttrString} }
func num(name string) fieldSpec { return fieldSpec{name: name, typ: AttrNumber} }

// template is the fixed storage schema of one message kind: how its
// partition and sort keys are derived and which fields are copied. This is
// the contract every new message kind must satisfy.
type template struct {
	pk     func(e *Envelope) string
	sk     func(e *Envelope) string
	fields []fieldSpec
}

// riderSortKey orders per-rider samples by rider then event time.
func riderSortKey(e *Envelope) string {
	return fmt.Sprintf("UCIID=%s#EventTimeStamp=%s#", e.StringField("UCIID"), e.StringField("EventTimeStamp"))
}

// raceSortKey orders race control messages by race then server time.
func raceSortKey(e *Envelope) string {
	return fmt.Sprintf("RaceID=%s#EventTimeStamp=%s#", e.StringField("RaceID"), e.StringField("ServerTimeStamp"))
}

func racePartitionKey(prefix string) func(e *Envelope) string {
	return func(e *Envelope) string {
		return fmt.Sprintf("%sRaceID=%s#", prefix, e.StringField("RaceID"))
	}
}

func fixedPartitionKey(pk string) func(e *Envelope) string {
	return func(*Envelope) string { return pk }
}

// ingestHeader is carried by every record kind.
var ingestHeader = []fieldSpec{
	str("ApiIngestTime"),
	str("KinesisAnalyticsIngestTime"),
}

// controlFields are shared by all race control messages.
var controlFields = []fieldSpec{
	str("ServerTimeStamp"),
	str("SeasonID"),
	str("EventID"),
	str("RaceID"),
}

func concat(groups ...[]fieldSpec) []fieldSpec {
	var out []fieldSpec
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

var templates = map[Kind]template{
	KindLiveRidersTracking: {
		pk: racePartitionKey("LIVERIDERSTRACKING#"),
		sk: riderSortKey,
		fields: concat(ingestHeader, []fieldSpec{
			str("ServerTimeStamp"), str("EventTimeStamp"),
			str("SeasonID"), str("EventID"), str("RaceID"), str("Bib"), str("UCIID"),
			num("RiderRank"), str("State"),
			num("Distance"), num("DistanceProj"),
			num("Speed"), num("SpeedMax"), num("SpeedAvg"),
			num("DistanceFirst"), num("DistanceNext"),
			num("Acc"), num("Lat"), num("Lng"),
		}),
	},
	KindLiveRidersData: {
		pk: racePartitionKey("LIVERIDERSDATA#"),
		sk: riderSortKey,
		fields: concat(ingestHeader, []fieldSpec{
			str("ServerTimeStamp"), str("EventTimeStamp"),
			str("SeasonID"), str("EventID"), str("RaceID"), str("Bib"), str("UCIID"),
			num("RiderHeartrate"), num("RiderCadency"), num("RiderPower"),
		}),
	},
	KindStartTime: {
		pk:     fixedPartitionKey("STARTTIME#"),
		sk:     raceSortKey,
		fields: concat(ingestHeader, controlFields),
	},
	KindRaceStartLive: {
		pk:     fixedPartitionKey("RACESTARTLIVE#"),
		sk:     raceSortKey,
		fields: concat(ingestHeader, controlFields),
	},
	KindFinishTime: {
		pk: fixedPartitionKey("FINISHTIME#"),
		sk: raceSortKey,
		fields: concat(ingestHeader, controlFields, []fieldSpec{
			str("RaceTime"), str("RaceSpeed"),
		}),
	},
	KindLapCounter: {
		pk: fixedPartitionKey("LAPCOUNTER#"),
		sk: raceSortKey,
		fields: concat(ingestHeader, controlFields, []fieldSpec{
			str("LapsToGo"), str("DistanceToGo"),
		}),
	},
	KindRiderEliminated: {
		pk: fixedPartitionKey("RIDERELIMINATED#"),
		sk: raceSortKey,
		fields: concat(ingestHeader, controlFields, []fieldSpec{
			str("EliminatedRaceName"), str("Bib"), str("UCIID"),
			str("FirstName"), str("LastName"), str("ShortTVName"),
			str("Team"), str("NOC"),
		}),
	},
	KindAggRidersData: {
		pk: racePartitionKey("AGG#LIVERIDERSDATA#"),
		sk: riderSortKey,
		fields: concat(ingestHeader, []fieldSpec{
			str("EventTimeStamp"), str("SeasonID"), str("EventID"), str("RaceID"),
			str("Bib"), str("LeagueCat"), str("UCIID"),
			num("RiderHeartrate"), num("AvgRaceRiderHeartrate"),
			num("MaxRaceRiderHeartrate"), num("MaxRaceHeartrate"),
			num("RiderCadency"), num("AvgRaceRiderCadency"),
			num("MaxRaceRiderCadency"), num("MaxRaceCadency"),
			num("RiderPower"), num("AvgRaceRiderPower"),
			num("MaxRaceRiderPower"), num("MaxRacePower"),
			num("IsInHeartrateRedZone"), num("TimeSpentInRedZone"),
			num("IsInHeartrateOrangeZone"), num("TimeSpentInOrangeZone"),
			num("IsInHeartrateGreenZone"), num("TimeSpentInGreenZone"),
		}),
	},
	KindAggRidersTracking: {
		pk: racePartitionKey("AGG#LIVERIDERSTRACKING#"),
		sk: riderSortKey,
		fields: concat(ingestHeader, []fieldSpec{
			str("EventTimeStamp"), str("SeasonID"), str("EventID"), str("RaceID"), str("UCIID"),
			num("RiderSpeed"), num("AvgRaceRiderSpeed"),
			num("MaxRaceRiderSpeed"), num("MaxRaceSpeed"),
			num("RiderRank"),
		}),
	},
	KindAggPersonalBest: {
		pk: racePartitionKey("AGG#PERSONALBEST#"),
		sk: riderSortKey,
		fields: concat(ingestHeader, []fieldSpec{
			str("EventTimeStamp"), str("SeasonID"), str("EventID"), str("RaceID"),
			str("Bib"), str("LeagueCat"), str("UCIID"),
			num("RiderHeartrate"), num("RiderHeartrateExceeded"),
			num("RiderPower"), num("RiderPowerExceeded"),
			num("Power5s"), num("Power5sExceeded"),
			num("Power15s"), num("Power15sExceeded"),
			num("Power30s"), num("Power30sExceeded"),
			num("Power60s"), num("Power60sExceeded"),
			num("Power120s"), num("Power120sExceeded"),
			num("Power180s"), num("Power180sExceeded"),
			num("Power300s"), num("Power300sExceeded"),
			num("Power600s"), num("Power600sExceeded"),
		}),
	},
}

// MapRecord maps a decoded envelope to its storage record. The mapping is
// deterministic: the same envelope always yields the same key and attribute
// set, which is what makes redelivered events idempotent. Numeric fields
// whose source value is missing or does not parse as a number are omitted
// from the record, never written as zero or null. Returns false for kinds
// the pipeline does not recognize.
func MapRecord(e *Envelope, ingestTime time.Time) (Record, bool) {
	tpl, ok := templates[e.Kind]
	if !ok {
		return Record{}, false
	}

	rec := Record{
		Key:   Key{PK: tpl.pk(e), SK: tpl.sk(e)},
		Attrs: make(map[string]Attr, len(tpl.fields)+2),
	}
	rec.Attrs["Message"] = S(e.RawKind)
	rec.Attrs["DynamoIngestTime"] = S(FormatTimestamp(ingestTime))

	for _, f := range tpl.fields {
		switch f.typ {
		case AttrString:
			rec.Attrs[f.name] = S(e.StringField(f.name))
		case AttrNumber:
			if v, ok := numericField(e, f.name); ok {
				rec.Attrs[f.name] = N(v)
			}
		}
	}
	return rec, true
}

// numericField extracts a field destined for a number attribute. JSON
// numbers keep their exact literal; strings are accepted when they parse
// as a decimal number.
func numericField(e *Envelope, name string) (string, bool) {
	switch v := e.Fields[name].(type) {
	case json.Number:
		return v.String(), true
	case string:
		if isNumeric(v) {
			return v, true
		}
	}
	return "", false
}
