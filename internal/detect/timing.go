package detect

import (
	"fmt"
	"math"

	"github.com/solcloak/solcloak/internal/scan"
)

// Timing pattern thresholds.
const (
	burstWindowSeconds = 300 // 5 minutes
	burstMinCount      = 5
	burstMediumCount   = 10

	intervalMinSamples = 5
	intervalMaxCV      = 0.1 // coefficient of variation below this is "regular"
	intervalMinMean    = 30  // seconds; sub-30s deltas are just block cadence

	hourHistogramMinTxs = 20
	hourActiveWindow    = 8   // active hours spanning at most this many buckets
	hourConcentration   = 0.9 // share of txs inside the active window
)

const timingMitigation = "Randomize transaction timing; avoid fixed schedules and tight bursts from automation."

// TimingPatterns covers three temporal fingerprints: activity bursts,
// low-variance inter-transaction intervals, and an hour-of-day histogram
// concentrated enough to leak a timezone.
type TimingPatterns struct{}

func (d *TimingPatterns) ID() string   { return "timing_patterns" }
func (d *TimingPatterns) Name() string { return "Timing Patterns" }

func (d *TimingPatterns) Evaluate(sc *scan.Context) []scan.RiskSignal {
	times := blockTimes(sc)
	var signals []scan.RiskSignal
	if s := d.burst(times); s != nil {
		signals = append(signals, *s)
	}
	if s := d.regularInterval(times); s != nil {
		signals = append(signals, *s)
	}
	if s := d.hourOfDay(times); s != nil {
		signals = append(signals, *s)
	}
	return signals
}

func (d *TimingPatterns) burst(times []int64) *scan.RiskSignal {
	if len(times) < burstMinCount {
		return nil
	}

	// Largest sliding window within burstWindowSeconds.
	best, bestStart := 0, 0
	lo := 0
	for hi := range times {
		for times[hi]-times[lo] > burstWindowSeconds {
			lo++
		}
		if n := hi - lo + 1; n > best {
			best, bestStart = n, lo
		}
	}
	if best < burstMinCount {
		return nil
	}

	severity := scan.SeverityLow
	if best >= burstMediumCount {
		severity = scan.SeverityMedium
	}

	return &scan.RiskSignal{
		ID:       d.ID() + ":burst",
		Name:     d.Name(),
		Severity: severity,
		Category: categoryBehavior,
		Reason: fmt.Sprintf("%d transactions within a %d-second window", best, burstWindowSeconds),
		Impact:   "Tight activity bursts correlate the involved transactions as one session of one actor.",
		Evidence: []scan.Evidence{{
			Description: fmt.Sprintf("burst of %d transactions starting at unix time %d", best, times[bestStart]),
			Type:        "timing",
		}},
		Mitigation: timingMitigation,
		Confidence: clamp01(0.4 + 0.05*float64(best)),
	}
}

func (d *TimingPatterns) regularInterval(times []int64) *scan.RiskSignal {
	if len(times) < intervalMinSamples+1 {
		return nil
	}

	deltas := make([]float64, 0, len(times)-1)
	for i := 1; i < len(times); i++ {
		deltas = append(deltas, float64(times[i]-times[i-1]))
	}

	mean := 0.0
	for _, v := range deltas {
		mean += v
	}
	mean /= float64(len(deltas))
	if mean < intervalMinMean {
		return nil
	}

	variance := 0.0
	for _, v := range deltas {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(deltas))
	cv := math.Sqrt(variance) / mean
	if cv > intervalMaxCV {
		return nil
	}

	return &scan.RiskSignal{
		ID:       d.ID() + ":regular_interval",
		Name:     d.Name(),
		Severity: scan.SeverityMedium,
		Category: categoryBehavior,
		Reason: fmt.Sprintf("%d inter-transaction intervals average %.0fs with variation coefficient %.3f",
			len(deltas), mean, cv),
		Impact:   "Clock-regular transactions are the signature of a scheduled bot tied to one operator.",
		Evidence: []scan.Evidence{{
			Description: fmt.Sprintf("mean interval %.0fs, stddev %.1fs", mean, math.Sqrt(variance)),
			Type:        "timing",
		}},
		Mitigation: timingMitigation,
		Confidence: clamp01(1 - cv*5),
	}
}

func (d *TimingPatterns) hourOfDay(times []int64) *scan.RiskSignal {
	if len(times) < hourHistogramMinTxs {
		return nil
	}

	var histogram [24]int
	for _, t := range times {
		histogram[(t/3600)%24]++
	}

	// Best contiguous window of hourActiveWindow hours (wrapping midnight).
	best, bestStart := 0, 0
	for start := 0; start < 24; start++ {
		sum := 0
		for i := 0; i < hourActiveWindow; i++ {
			sum += histogram[(start+i)%24]
		}
		if sum > best {
			best, bestStart = sum, start
		}
	}

	share := float64(best) / float64(len(times))
	if share < hourConcentration {
		return nil
	}

	return &scan.RiskSignal{
		ID:       d.ID() + ":hour_of_day",
		Name:     d.Name(),
		Severity: scan.SeverityMedium,
		Category: categoryMetadata,
		Reason: fmt.Sprintf("%.0f%% of %d transactions fall in the %d-hour UTC window starting at %02d:00",
			share*100, len(times), hourActiveWindow, bestStart),
		Impact:   "A concentrated active window leaks the operator's waking hours and likely timezone.",
		Evidence: []scan.Evidence{{
			Description: fmt.Sprintf("active window %02d:00-%02d:00 UTC holds %d of %d transactions",
				bestStart, (bestStart+hourActiveWindow)%24, best, len(times)),
			Type: "timing",
		}},
		Mitigation: timingMitigation,
		Confidence: clamp01(share),
	}
}
