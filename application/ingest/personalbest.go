package ingest

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"velostream-backend/application/ports"
	"velostream-backend/domain/telemetry"
)

// PersonalBestNotifier composes and sends the post-race personal-best
// notification: one email per race, aggregating every rider whose in-race
// peaks exceeded their pre-season baselines.
type PersonalBestNotifier struct {
	repo      ports.TelemetryRepository
	directory ports.RaceDirectory
	mail      ports.MailSink
	env       string
	logger    *zap.Logger
}

// NewPersonalBestNotifier creates a PersonalBestNotifier. env tags the
// email subject so staging traffic is distinguishable.
func NewPersonalBestNotifier(
	repo ports.TelemetryRepository,
	directory ports.RaceDirectory,
	mail ports.MailSink,
	env string,
	logger *zap.Logger,
) *PersonalBestNotifier {
	return &PersonalBestNotifier{
		repo:      repo,
		directory: directory,
		mail:      mail,
		env:       env,
		logger:    logger,
	}
}

// peak is the maximum observed value of one metric and its timestamp.
type peak struct {
	value     float64
	timestamp string
}

// Notify builds and dispatches the notification for a finished race.
func (n *PersonalBestNotifier) Notify(ctx context.Context, d telemetry.Details) error {
	eventID := d.EventID
	if eventID == "" && len(d.RaceID) >= 6 {
		// Race identifiers embed the event identifier as their prefix.
		eventID = d.RaceID[:6]
	}

	race, err := n.directory.Race(ctx, eventID, d.RaceID)
	if err != nil {
		return fmt.Errorf("failed to read race record: %w", err)
	}

	samples, err := n.repo.PersonalBests(ctx, d.RaceID)
	if err != nil {
		return fmt.Errorf("failed to query personal bests: %w", err)
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Race ID: %s\r\n\r\n", d.RaceID)

	riders, byRider := groupByRider(samples)
	for _, uciID := range riders {
		fmt.Fprintf(&body, "UCIID: %s\r\n", uciID)

		baseline, err := n.directory.RiderBaseline(ctx, uciID)
		if err != nil {
			n.logger.Error("failed to read rider baseline, skipping rider",
				zap.String("uciID", uciID),
				zap.String("raceID", d.RaceID),
				zap.Error(err),
			)
			continue
		}

		peaks := exceededPeaks(byRider[uciID])
		writeRiderReport(&body, peaks, baseline)
	}

	subject := fmt.Sprintf("%s- Personal Best Notification Race: %s", n.env, race.RaceName)
	if err := n.mail.Send(ctx, subject, body.String()); err != nil {
		return fmt.Errorf("failed to send personal best notification: %w", err)
	}

	n.logger.Info("personal best notification sent",
		zap.String("raceID", d.RaceID),
		zap.Int("riders", len(riders)),
	)
	return nil
}

// groupByRider splits samples per rider, keeping first-seen rider order.
func groupByRider(samples []telemetry.PersonalBestSample) ([]string, map[string][]telemetry.PersonalBestSample) {
	var riders []string
	byRider := make(map[string][]telemetry.PersonalBestSample)
	for _, s := range samples {
		if _, ok := byRider[s.UCIID]; !ok {
			riders = append(riders, s.UCIID)
		}
		byRider[s.UCIID] = append(byRider[s.UCIID], s)
	}
	return riders, byRider
}

// exceededPeaks tracks, per metric, the maximum value among the samples
// flagged as exceeding the baseline, with the timestamp it occurred at.
func exceededPeaks(samples []telemetry.PersonalBestSample) map[string]peak {
	peaks := make(map[string]peak)
	for _, s := range samples {
		for _, metric := range telemetry.PersonalBestMetrics {
			reading, ok := s.Readings[metric]
			if !ok || !reading.Exceeded {
				continue
			}
			if existing, ok := peaks[metric]; !ok || reading.Value > existing.value {
				peaks[metric] = peak{value: reading.Value, timestamp: s.EventTimeStamp}
			}
		}
	}
	return peaks
}

// writeRiderReport appends one block per metric whose peak exceeds the
// stored baseline: timestamp, previous baseline, new peak and the delta
// percentage.
func writeRiderReport(body *strings.Builder, peaks map[string]peak, baseline telemetry.RiderBaseline) {
	for _, metric := range telemetry.PersonalBestMetrics {
		p, ok := peaks[metric]
		if !ok {
			continue
		}
		// A zero baseline is an unanswered questionnaire field, not a
		// record to beat.
		threshold, ok := baseline.Thresholds[metric]
		if !ok || threshold <= 0 || p.value <= threshold {
			continue
		}
		label := metricLabel(metric)
		fmt.Fprintf(body, "Event Timestamp: %s\r\n", p.timestamp)
		fmt.Fprintf(body, "Previous %s: %s\r\n", label, formatValue(threshold))
		fmt.Fprintf(body, "New %s: %s\r\n", label, formatValue(p.value))
		fmt.Fprintf(body, "Delta percentage: %s%%\r\n\r\n", DeltaPercent(threshold, p.value))
	}
}

func metricLabel(metric string) string {
	switch metric {
	case "RiderHeartrate":
		return "maximum rider heartrate"
	case "RiderPower":
		return "peak rider power"
	default:
		return fmt.Sprintf("peak rider %sW", metric)
	}
}

// DeltaPercent renders 100 × (current − previous) / previous rounded to
// three decimals.
func DeltaPercent(previous, current float64) string {
	pct := math.Round(100*(current-previous)/previous*1000) / 1000
	return strconv.FormatFloat(pct, 'f', -1, 64)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
