// Package engine implements the partition-refinement ("colour
// refinement") graph-isomorphism algorithm over the bipartite
// Element/Node graph built by internal/bipartite (spec §4.6). One
// Engine owns exactly one comparison's worth of state: the bipartite
// graph, the current element and node classes, and the pools those
// classes are allocated from.
package engine

import (
	"context"
	"math/rand"

	"github.com/opentracelab/netcmp/internal/bipartite"
	"github.com/opentracelab/netcmp/internal/diag"
)

// Engine holds one comparison's worth of partition-refinement state
// (spec §5: "There is one engine state ... all operations mutate it
// in place").
type Engine struct {
	Graph *bipartite.Bipartite

	ElementClasses []*bipartite.ElementClass
	NodeClasses    []*bipartite.NodeClass

	// Exhaustive, when set, forces even balanced size-2 classes to be
	// split on every Iterate, surfacing property-only mismatches that
	// would otherwise hide behind a stable automorphism (spec §4.6).
	Exhaustive bool

	// BadMatch is set the first time Iterate creates an illegal
	// bucket and never cleared; VerifyMatching (internal/resolve)
	// reads it.
	BadMatch bool

	rng *rand.Rand

	elementClassPool *pool[bipartite.ElementClass]
	nodeClassPool    *pool[bipartite.NodeClass]

	illegalElements *bipartite.ElementClass
	illegalNodes    *bipartite.NodeClass

	Stats Stats

	// interruptArmed/interruptPending back EnableInterrupt/
	// DisableInterrupt/RequestInterrupt (spec §5's cooperative
	// cancellation, the original's dual-mode interrupt handler):
	// while armed, a requested interrupt is honored at the top of the
	// next Iterate step instead of letting the signal terminate the
	// process outright.
	interruptArmed   bool
	interruptPending bool
}

// EnableInterrupt arms cooperative interrupt handling: a subsequent
// RequestInterrupt call is honored at the next Iterate step boundary.
func (e *Engine) EnableInterrupt() { e.interruptArmed = true }

// DisableInterrupt disarms cooperative interrupt handling and clears
// any pending request, restoring Iterate to running to completion.
func (e *Engine) DisableInterrupt() {
	e.interruptArmed = false
	e.interruptPending = false
}

// RequestInterrupt records an interrupt if armed; a no-op otherwise.
func (e *Engine) RequestInterrupt() {
	if e.interruptArmed {
		e.interruptPending = true
	}
}

// Stats are the core counters the `summary`/`print` CLI commands and
// the SUPPLEMENTED core-stats report surface after each Iterate.
type Stats struct {
	Iterations     int
	ElementClasses int
	NodeClasses    int
	IllegalBuckets int
}

// New returns an Engine over g, seeded with rng for class magics.
// g's InitialElementClass/InitialNodeClass
// become the engine's sole starting classes.
func New(g *bipartite.Bipartite, rng *rand.Rand, exhaustive bool) *Engine {
	e := &Engine{
		Graph:            g,
		ElementClasses:   []*bipartite.ElementClass{g.InitialElementClass},
		NodeClasses:      []*bipartite.NodeClass{g.InitialNodeClass},
		Exhaustive:       exhaustive,
		rng:              rng,
		elementClassPool: newPool[bipartite.ElementClass](),
		nodeClassPool:    newPool[bipartite.NodeClass](),
	}
	for _, el := range g.Elements {
		el.Class = g.InitialElementClass
	}
	for _, n := range g.Nodes {
		n.Class = g.InitialNodeClass
	}
	e.refreshStats()
	return e
}

// Run repeats Iterate until a pass produces no new fractures or ctx is
// cancelled, matching spec §5's cooperative-cancellation contract:
// the current Iterate step always finishes, leaving already-split
// classes split.
func (e *Engine) Run(ctx context.Context) error {
	for {
		fractured, err := e.Iterate(ctx)
		if err != nil {
			return err
		}
		if !fractured {
			return nil
		}
	}
}

// Iterate runs one refinement step (spec §4.6 steps 1-7): fresh magics,
// rehash every Element then every Node from last step's classes, split
// each side's classes on hash, coalesce every unbalanced bucket
// produced this step into one illegal class, and report whether any
// split happened.
func (e *Engine) Iterate(ctx context.Context) (fractured bool, err error) {
	if err := ctxErr(ctx); err != nil {
		return false, err
	}
	if e.interruptPending {
		e.interruptPending = false
		return false, diag.New(diag.KindResource, "Iterate: interrupted")
	}

	// Step 1: fresh magic for every class, elements and nodes alike.
	for _, c := range e.ElementClasses {
		c.Magic = e.rng.Uint64()
	}
	for _, c := range e.NodeClasses {
		c.Magic = e.rng.Uint64()
	}

	// Step 2: recompute every Element's hash before any class is split
	// (spec §5's ordering guarantee — a neighbour class's magic must
	// not change mid-step).
	for _, el := range e.Graph.Elements {
		el.Hash = el.OldHash ^ pinSum(el.Pins)
	}

	// Step 3-4: split element classes, then fold illegal buckets. The
	// illegal sink (once it exists) is a frozen terminal class: it only
	// ever gains members, never splits further.
	var proposed []*bipartite.ElementClass
	elementSplit := false
	for _, c := range e.ElementClasses {
		if c == e.illegalElements {
			continue
		}
		children, split := e.splitElementClass(c)
		proposed = append(proposed, children...)
		elementSplit = elementSplit || split
	}
	e.ElementClasses = e.foldIllegalElements(proposed)

	if err := ctxErr(ctx); err != nil {
		return false, err
	}

	// Step 5: symmetric pass over Nodes.
	for _, n := range e.Graph.Nodes {
		n.Hash = n.OldHash ^ fanoutSum(n.Fanout)
	}
	var proposedNodes []*bipartite.NodeClass
	nodeSplit := false
	for _, c := range e.NodeClasses {
		if c == e.illegalNodes {
			continue
		}
		children, split := e.splitNodeClass(c)
		proposedNodes = append(proposedNodes, children...)
		nodeSplit = nodeSplit || split
	}
	e.NodeClasses = e.foldIllegalNodes(proposedNodes)

	for _, el := range e.Graph.Elements {
		el.OldHash = el.Hash
	}
	for _, n := range e.Graph.Nodes {
		n.OldHash = n.Hash
	}

	e.Stats.Iterations++
	e.refreshStats()
	return elementSplit || nodeSplit, nil
}

func ctxErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return diag.Wrap(diag.KindResource, ctx.Err(), "Iterate: cancelled")
	default:
		return nil
	}
}

// pinSum sums a device's pin contributions, each contribution itself
// an XOR of pin_magic with the magic of the class its wire currently
// belongs to (0 for a disconnected pin, which owns no Node). Summing
// rather than XOR-folding the per-pin terms matters: two pins landing
// on classes whose combined term happens to match would cancel to 0
// under XOR but not under addition, so addition keeps the refinement
// able to tell otherwise-symmetric fan-in patterns apart.
func pinSum(pins []*bipartite.NodeListEntry) uint64 {
	var sum uint64
	for _, p := range pins {
		var classMagic uint64
		if p.Node != nil {
			classMagic = p.Node.Class.Magic
		}
		sum += p.PinMagic ^ classMagic
	}
	return sum
}

// fanoutSum is the Node-side mirror of pinSum (spec §4.6 step 5).
func fanoutSum(fanout []*bipartite.ElementListEntry) uint64 {
	var sum uint64
	for _, f := range fanout {
		sum += f.Pin.PinMagic ^ f.Pin.Element.Hash ^ f.Pin.Element.Class.Magic
	}
	return sum
}

// refreshStats recomputes the cheap counters Stats exposes.
func (e *Engine) refreshStats() {
	e.Stats.ElementClasses = len(e.ElementClasses)
	e.Stats.NodeClasses = len(e.NodeClasses)
	illegal := 0
	for _, c := range e.ElementClasses {
		if !c.Legal {
			illegal++
		}
	}
	for _, c := range e.NodeClasses {
		if !c.Legal {
			illegal++
		}
	}
	e.Stats.IllegalBuckets = illegal
}

// Reset tears down the engine's classes, returning them to the class
// pools (Elements and Nodes are not pooled), and clears the Graph's
// back-pointers (spec §5 Reset).
func (e *Engine) Reset() {
	for _, c := range e.ElementClasses {
		e.elementClassPool.Put(c)
	}
	for _, c := range e.NodeClasses {
		e.nodeClassPool.Put(c)
	}
	e.ElementClasses = nil
	e.NodeClasses = nil
	for _, el := range e.Graph.Elements {
		el.Class = nil
	}
	for _, n := range e.Graph.Nodes {
		n.Class = nil
	}
	e.Graph = nil
}
