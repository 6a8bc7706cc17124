package engine

import "fmt"

// PoolStats reports allocation counts for the class pools, the Go
// analogue of the original tool's `PrintCoreStats` debug dump (which
// walked hand-maintained ElementClassAllocated/NodeClassAllocated
// counters); here the counts come straight off the generic pool
// wrapper's atomic totals instead of manual bookkeeping.
type PoolStats struct {
	ElementClassesLive, ElementClassesTotal int64
	NodeClassesLive, NodeClassesTotal       int64
}

// PoolStats reads the live/allocated counts from both class pools.
func (e *Engine) PoolStats() PoolStats {
	ecLive, ecTotal := e.elementClassPool.Stats()
	ncLive, ncTotal := e.nodeClassPool.Stats()
	return PoolStats{
		ElementClassesLive:  ecLive,
		ElementClassesTotal: ecTotal,
		NodeClassesLive:     ncLive,
		NodeClassesTotal:    ncTotal,
	}
}

// String renders PoolStats as plain text, one line per pool.
func (s PoolStats) String() string {
	return fmt.Sprintf(
		"ElementClass records: %d live / %d allocated\nNodeClass records: %d live / %d allocated",
		s.ElementClassesLive, s.ElementClassesTotal,
		s.NodeClassesLive, s.NodeClassesTotal,
	)
}
