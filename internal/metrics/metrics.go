package metrics

import "time"

// TimingRecord is the timing of one worker's share of a run.
type TimingRecord struct {
	BuildSeconds float64 `json:"build_s" yaml:"build_s"`
	SieveSeconds float64 `json:"sieve_s" yaml:"sieve_s"`
}

// Timing is the aggregated timing of a run.
type Timing struct {
	BuildSeconds float64 `json:"build_s" yaml:"build_s"`
	SieveSeconds float64 `json:"sieve_s" yaml:"sieve_s"`
	TotalSeconds float64 `json:"total_s" yaml:"total_s"`
}

// Aggregate combines the one-off build time with the per-worker sieve times.
// Workers run concurrently, so the slowest one bounds the run:
// total = build + max(sieve).
func Aggregate(build float64, sieve ...float64) Timing {
	slowest := Max(sieve...)
	return Timing{
		BuildSeconds: build,
		SieveSeconds: slowest,
		TotalSeconds: build + slowest,
	}
}

// AggregateRecords is Aggregate over full records. The build time is the
// same on every record, so the first one is used.
func AggregateRecords(records []TimingRecord) Timing {
	if len(records) == 0 {
		return Timing{}
	}

	sieve := make([]float64, len(records))
	for i, r := range records {
		sieve[i] = r.SieveSeconds
	}
	return Aggregate(records[0].BuildSeconds, sieve...)
}

// Max returns the largest value, or 0 for none.
func Max(values ...float64) float64 {
	var m float64
	for i, v := range values {
		if i == 0 || v > m {
			m = v
		}
	}
	return m
}

// Records builds one record per worker from the shared build time and each
// worker's sieve time.
func Records(build float64, sieve []time.Duration) []TimingRecord {
	out := make([]TimingRecord, len(sieve))
	for i, d := range sieve {
		out[i] = TimingRecord{BuildSeconds: build, SieveSeconds: d.Seconds()}
	}
	return out
}
