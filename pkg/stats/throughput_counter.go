package stats

import (
	"time"

	"mq-pipeline-bench/pkg/utils/syncutils"

	"github.com/rs/zerolog/log"
)

const DEFAULT_PROGRESS_INTERVAL = time.Duration(5) * time.Second

// ConcurrentThroughputCounter is shared by the workers of one pool and logs
// the running rate every report interval at debug level.
type ConcurrentThroughputCounter struct {
	mu         syncutils.Mutex
	tag        string
	count      uint64
	last_count uint64
	last_rate  float64
	window     progressWindow
}

func NewConcurrentThroughputCounter(tag string, duration time.Duration) *ConcurrentThroughputCounter {
	return newThroughputCounterWithClock(tag, duration, time.Now)
}

func newThroughputCounterWithClock(tag string, duration time.Duration, now func() time.Time) *ConcurrentThroughputCounter {
	return &ConcurrentThroughputCounter{
		tag:    tag,
		window: newProgressWindow(duration, now),
	}
}

func (c *ConcurrentThroughputCounter) Tick(count uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count += count
	if c.count == c.last_count {
		return
	}
	duration, due := c.window.roll()
	if !due || duration <= 0 {
		return
	}
	c.last_rate = float64(c.count-c.last_count) / duration.Seconds()
	c.last_count = c.count
	log.Debug().Str("counter", c.tag).Dur("dur", duration).
		Uint64("value", c.count).Float64("rate", c.last_rate).Msg("progress")
}

// LastRate is the rate of the last closed window, 0 before the first one.
func (c *ConcurrentThroughputCounter) LastRate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last_rate
}

func (c *ConcurrentThroughputCounter) GetCount() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}
