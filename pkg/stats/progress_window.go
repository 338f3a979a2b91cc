package stats

import "time"

// progressWindow measures one reporting interval at a time. The first
// window opens when it is created.
type progressWindow struct {
	start    time.Time
	interval time.Duration
	now      func() time.Time
}

func newProgressWindow(interval time.Duration, now func() time.Time) progressWindow {
	if now == nil {
		now = time.Now
	}
	return progressWindow{start: now(), interval: interval, now: now}
}

// roll closes the current window once interval has passed and returns its
// length. Before that it returns false and leaves the window open.
func (w *progressWindow) roll() (time.Duration, bool) {
	t := w.now()
	elapsed := t.Sub(w.start)
	if elapsed < w.interval {
		return 0, false
	}
	w.start = t
	return elapsed, true
}
