package tbroadcast

import (
	"fmt"
	"time"
)

// DefaultMinInterval is the floor for every policy.
// A zero or negative delay would spin the broadcast loop.
const DefaultMinInterval = 500 * time.Millisecond

// DefaultPerNode is the default [AdaptiveInterval.PerNode].
const DefaultPerNode = time.Second

// IntervalPolicy returns the delay before the next periodic broadcast,
// given the number of peers currently in the adjacency table.
type IntervalPolicy interface {
	Interval(numNodes int) time.Duration
}

// AdaptiveInterval waits longer as the network grows,
// so the aggregate broadcast rate stays roughly constant.
type AdaptiveInterval struct {
	// Delay added per known peer.
	PerNode time.Duration

	// Lower bound. Zero means DefaultMinInterval.
	Min time.Duration

	// Upper bound. Zero means unbounded.
	Max time.Duration
}

// DefaultAdaptiveInterval returns one second per node
// with the default minimum and no maximum.
func DefaultAdaptiveInterval() AdaptiveInterval {
	return AdaptiveInterval{PerNode: DefaultPerNode}
}

func (p AdaptiveInterval) Interval(numNodes int) time.Duration {
	floor := p.Min
	if floor <= 0 {
		floor = DefaultMinInterval
	}

	d := time.Duration(max(numNodes, 0)) * p.PerNode
	if d < floor {
		d = floor
	}
	if p.Max > 0 && d > p.Max {
		d = max(p.Max, floor)
	}
	return d
}

func (p AdaptiveInterval) String() string {
	return fmt.Sprintf("adaptive(per_node=%s min=%s max=%s)", p.PerNode, p.Min, p.Max)
}

// FixedInterval ignores the network size.
// Non-positive values are replaced by DefaultMinInterval.
type FixedInterval time.Duration

func (p FixedInterval) Interval(int) time.Duration {
	if p <= 0 {
		return DefaultMinInterval
	}
	return time.Duration(p)
}

func (p FixedInterval) String() string {
	return fmt.Sprintf("fixed(%s)", time.Duration(p))
}
