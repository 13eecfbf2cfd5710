package infra

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// CallCounter counts upstream requests made during one run.
type CallCounter struct {
	name string
	n    atomic.Int64
	log  zerolog.Logger
}

// NewCallCounter returns a counter that logs each increment at debug level.
func NewCallCounter(name string, log zerolog.Logger) *CallCounter {
	return &CallCounter{name: name, log: log}
}

// Inc records one call and returns the running total.
func (c *CallCounter) Inc() int64 {
	if c == nil {
		return 0
	}
	n := c.n.Add(1)
	c.log.Debug().Int64("count", n).Msgf("%s fetch count: %d", c.name, n)
	return n
}

// Count returns the running total.
func (c *CallCounter) Count() int64 {
	if c == nil {
		return 0
	}
	return c.n.Load()
}

// Reset sets the total back to zero.
func (c *CallCounter) Reset() {
	if c != nil {
		c.n.Store(0)
	}
}
