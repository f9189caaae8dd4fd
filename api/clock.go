package api

import (
	"sync/atomic"
	"time"
)

// eventClock hands out strictly increasing millisecond timestamps so
// consumers of the change feed can order events from one instance.
type eventClock struct {
	last atomic.Int64
	now  func() time.Time
}

func (c *eventClock) next() int64 {
	for {
		now := time.Now().UnixMilli()
		if c.now != nil {
			now = c.now().UnixMilli()
		}
		last := c.last.Load()
		if now <= last {
			now = last + 1
		}
		if c.last.CompareAndSwap(last, now) {
			return now
		}
	}
}
