package stats

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
)

type Phase string

const (
	PhaseGeneration  Phase = "generation"
	PhaseProduction  Phase = "production"
	PhaseConsumption Phase = "consumption"
	PhaseWriting     Phase = "writing"
)

// PhaseReport is one line of the end-of-run report.
type PhaseReport struct {
	Phase      Phase         `json:"phase"`
	Total      uint64        `json:"total"`
	Elapsed    time.Duration `json:"elapsed"`
	Throughput float64       `json:"throughput"`
	WorkerP50  time.Duration `json:"workerP50"`
	WorkerMax  time.Duration `json:"workerMax"`
}

type Summary struct {
	RunID        string         `json:"runId"`
	MessageCount uint64         `json:"messageCount"`
	Producers    []WorkerResult `json:"producers"`
	Consumers    []WorkerResult `json:"consumers"`
	Writers      []WorkerResult `json:"writers"`
	PillsSent    int            `json:"pillsSent"`
	Phases       []PhaseReport  `json:"phases"`
	Total        WorkerResult   `json:"total"`
	Elapsed      time.Duration  `json:"elapsed"`
}

type PhaseTimes struct {
	Production  time.Duration
	Consumption time.Duration
	Writing     time.Duration
}

// NewSummary folds the per-worker results and derives the phase reports.
// Generation and production share the producer wall clock; the first counts
// every generated record, the second only successful sends.
func NewSummary(runID string, messageCount uint64, producers, consumers, writers []WorkerResult,
	pillsSent int, times PhaseTimes,
) Summary {
	prod := Fold(producers)
	cons := Fold(consumers)
	wr := Fold(writers)
	pP50, pMax := ElapsedSpread(producers)
	cP50, cMax := ElapsedSpread(consumers)
	wP50, wMax := ElapsedSpread(writers)
	s := Summary{
		RunID:        runID,
		MessageCount: messageCount,
		Producers:    producers,
		Consumers:    consumers,
		Writers:      writers,
		PillsSent:    pillsSent,
		Total:        prod.Add(cons).Add(wr),
		Elapsed:      sinceStart(times),
		Phases: []PhaseReport{
			{Phase: PhaseGeneration, Total: prod.Generated, Elapsed: times.Production,
				Throughput: Throughput(prod.Generated, times.Production), WorkerP50: pP50, WorkerMax: pMax},
			{Phase: PhaseProduction, Total: prod.Produced, Elapsed: times.Production,
				Throughput: Throughput(prod.Produced, times.Production), WorkerP50: pP50, WorkerMax: pMax},
			{Phase: PhaseConsumption, Total: cons.Consumed, Elapsed: times.Production + times.Consumption,
				Throughput: Throughput(cons.Consumed, times.Production+times.Consumption), WorkerP50: cP50, WorkerMax: cMax},
			{Phase: PhaseWriting, Total: wr.Written, Elapsed: sinceStart(times),
				Throughput: Throughput(wr.Written, sinceStart(times)), WorkerP50: wP50, WorkerMax: wMax},
		},
	}
	s.Total.Elapsed = s.Elapsed
	return s
}

// consumers and writers run from pipeline start, so their phases span every
// earlier phase too
func sinceStart(t PhaseTimes) time.Duration {
	return t.Production + t.Consumption + t.Writing
}

func (s *Summary) Phase(p Phase) (PhaseReport, bool) {
	for _, r := range s.Phases {
		if r.Phase == p {
			return r, true
		}
	}
	return PhaseReport{}, false
}

func (s *Summary) Report() {
	for _, p := range s.Phases {
		log.Info().Str("phase", string(p.Phase)).Uint64("total", p.Total).
			Dur("elapsed", p.Elapsed).Dur("workerP50", p.WorkerP50).Dur("workerMax", p.WorkerMax).
			Msgf("%s: %v msgs in %v, %.2f msg/s", p.Phase, p.Total, p.Elapsed, p.Throughput)
	}
	log.Info().Uint64("requested", s.MessageCount).Uint64("valid", s.Total.Valid).
		Uint64("invalid", s.Total.Invalid).Uint64("decodeFailed", s.Total.DecodeFailed).
		Uint64("sendFailed", s.Total.SendFailed).Uint64("sinkFailed", s.Total.SinkFailed).
		Int("pills", s.PillsSent).Msg("run summary")
}

func (s *Summary) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}
