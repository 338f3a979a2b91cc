package stats

import (
	"time"

	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"
)

// WorkerResult is the private tally of one worker, returned by value once the
// worker has stopped. Fields a worker kind does not touch stay zero.
type WorkerResult struct {
	Worker       string        `json:"worker"`
	Generated    uint64        `json:"generated"`
	Produced     uint64        `json:"produced"`
	SendFailed   uint64        `json:"sendFailed"`
	Consumed     uint64        `json:"consumed"`
	DecodeFailed uint64        `json:"decodeFailed"`
	Valid        uint64        `json:"valid"`
	Invalid      uint64        `json:"invalid"`
	Written      uint64        `json:"written"`
	SinkFailed   uint64        `json:"sinkFailed"`
	Elapsed      time.Duration `json:"elapsed"`
}

// Add folds o into r. Elapsed keeps the slower of the two.
func (r WorkerResult) Add(o WorkerResult) WorkerResult {
	r.Generated += o.Generated
	r.Produced += o.Produced
	r.SendFailed += o.SendFailed
	r.Consumed += o.Consumed
	r.DecodeFailed += o.DecodeFailed
	r.Valid += o.Valid
	r.Invalid += o.Invalid
	r.Written += o.Written
	r.SinkFailed += o.SinkFailed
	if o.Elapsed > r.Elapsed {
		r.Elapsed = o.Elapsed
	}
	return r
}

func Fold(results []WorkerResult) WorkerResult {
	total := WorkerResult{}
	for _, r := range results {
		total = total.Add(r)
	}
	return total
}

// Throughput is count per elapsed second; zero when nothing elapsed.
func Throughput[N constraints.Integer](count N, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(count) / elapsed.Seconds()
}

// POf returns the percent-th element of a sorted slice.
func POf[E constraints.Ordered](t []E, percent float64) E {
	idx := int(float64(len(t))*percent+0.5) - 1
	if idx < 0 {
		idx = 0
	}
	return t[idx]
}

// ElapsedSpread is the median and the slowest worker run time of a pool.
func ElapsedSpread(results []WorkerResult) (p50 time.Duration, max time.Duration) {
	if len(results) == 0 {
		return 0, 0
	}
	durs := make([]time.Duration, 0, len(results))
	for _, r := range results {
		durs = append(durs, r.Elapsed)
	}
	slices.Sort(durs)
	return POf(durs, 0.5), durs[len(durs)-1]
}
