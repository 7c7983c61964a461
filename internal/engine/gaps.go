package engine

import (
	"sync"

	"github.com/goran-ethernal/PoolSync/pkg/syncer"
)

// GapCollector buffers gaps reported by a syncer until the engine persists them.
// Pass Handle to the syncer with WithGapHandler and the collector to the engine.
type GapCollector struct {
	mu   sync.Mutex
	gaps []syncer.Gap
}

// NewGapCollector returns an empty collector.
func NewGapCollector() *GapCollector {
	return &GapCollector{}
}

// Handle records a gap. It satisfies syncer.GapHandler.
func (c *GapCollector) Handle(g syncer.Gap) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gaps = append(c.gaps, g)
}

// Len returns the number of buffered gaps.
func (c *GapCollector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.gaps)
}

// Drain returns and clears the buffered gaps.
func (c *GapCollector) Drain() []syncer.Gap {
	c.mu.Lock()
	defer c.mu.Unlock()

	gaps := c.gaps
	c.gaps = nil
	return gaps
}
