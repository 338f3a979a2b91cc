package stats

// Counter is owned by a single goroutine.
type Counter struct {
	tag   string
	count uint64
}

func NewCounter(tag string) Counter {
	return Counter{
		tag:   tag,
		count: 0,
	}
}

func (c *Counter) Tick(count uint32) {
	c.count += uint64(count)
}

func (c *Counter) GetCount() uint64 {
	return c.count
}

func (c *Counter) Tag() string {
	return c.tag
}
