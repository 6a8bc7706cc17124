// Package resolve implements the verification, property-check and
// symmetry-breaking passes that run after the partition-refinement
// engine (internal/engine) reaches a fixed point (spec §4.7).
package resolve

import (
	"context"
	"math/rand"

	"github.com/opentracelab/netcmp/internal/bipartite"
	"github.com/opentracelab/netcmp/internal/engine"
)

// MatchState summarizes what VerifyMatching found.
type MatchState int

const (
	// StateIllegal means at least one class is illegal: the graphs are
	// not isomorphic.
	StateIllegal MatchState = iota - 1
	// StateUnique means every class has exactly one member per graph.
	StateUnique
	// StateAmbiguous means the match is topologically sound but at
	// least one balanced class still has more than one member per
	// graph (an unresolved automorphism).
	StateAmbiguous
)

// VerifyMatching classifies the engine's current class list (spec
// §4.7). The returned int is the automorphism count when the state is
// StateAmbiguous, 0 otherwise.
func VerifyMatching(e *engine.Engine) (MatchState, int) {
	if e.BadMatch {
		return StateIllegal, 0
	}
	unresolved := 0
	for _, c := range e.ElementClasses {
		if len(c.Members) > 2 {
			unresolved++
		}
	}
	for _, c := range e.NodeClasses {
		if len(c.Members) > 2 {
			unresolved++
		}
	}
	if unresolved == 0 {
		return StateUnique, 0
	}
	return StateAmbiguous, unresolved
}

// ResolveAutomorphisms repeatedly picks a balanced, size>2 element (or
// node) class, forces one member from each graph to a shared fresh
// hash, and re-runs Iterate to convergence — breaking the symmetry one
// class at a time until the match is unique or an illegal class
// appears (spec §4.7).
func ResolveAutomorphisms(ctx context.Context, e *engine.Engine, rng *rand.Rand) (MatchState, error) {
	for {
		state, _ := VerifyMatching(e)
		if state != StateAmbiguous {
			return state, nil
		}

		broke := false
		if c := firstUnresolvedElementClass(e); c != nil {
			breakElementClassSymmetry(c, rng)
			broke = true
		} else if c := firstUnresolvedNodeClass(e); c != nil {
			breakNodeClassSymmetry(c, rng)
			broke = true
		}
		if !broke {
			return state, nil
		}

		if err := e.Run(ctx); err != nil {
			return state, err
		}
	}
}

func firstUnresolvedElementClass(e *engine.Engine) *bipartite.ElementClass {
	for _, c := range e.ElementClasses {
		if c.Legal && len(c.Members) > 2 {
			return c
		}
	}
	return nil
}

func firstUnresolvedNodeClass(e *engine.Engine) *bipartite.NodeClass {
	for _, c := range e.NodeClasses {
		if c.Legal && len(c.Members) > 2 {
			return c
		}
	}
	return nil
}

// breakElementClassSymmetry picks the first member from each graph in
// c and forces their OldHash (the value the next Iterate's XOR fold
// starts from) to a shared fresh random value, pulling them apart
// from their former classmates on the next split.
func breakElementClassSymmetry(c *bipartite.ElementClass, rng *rand.Rand) {
	a := firstElementOfGraph(c, bipartite.GraphA)
	b := firstElementOfGraph(c, bipartite.GraphB)
	if a == nil || b == nil {
		return
	}
	forced := rng.Uint64()
	a.OldHash, b.OldHash = forced, forced
}

func breakNodeClassSymmetry(c *bipartite.NodeClass, rng *rand.Rand) {
	a := firstNodeOfGraph(c, bipartite.GraphA)
	b := firstNodeOfGraph(c, bipartite.GraphB)
	if a == nil || b == nil {
		return
	}
	forced := rng.Uint64()
	a.OldHash, b.OldHash = forced, forced
}

func firstElementOfGraph(c *bipartite.ElementClass, g bipartite.Graph) *bipartite.Element {
	for _, el := range c.Members {
		if el.Graph == g {
			return el
		}
	}
	return nil
}

func firstNodeOfGraph(c *bipartite.NodeClass, g bipartite.Graph) *bipartite.Node {
	for _, n := range c.Members {
		if n.Graph == g {
			return n
		}
	}
	return nil
}

// IllegalMembers reports the objects behind every member of the
// engine's illegal element and node sinks, for the CLI's `diff`-style
// reporting of *why* a comparison failed.
func IllegalMembers(e *engine.Engine) (elements []*bipartite.Element, nodes []*bipartite.Node) {
	for _, c := range e.ElementClasses {
		if !c.Legal {
			elements = append(elements, c.Members...)
		}
	}
	for _, c := range e.NodeClasses {
		if !c.Legal {
			nodes = append(nodes, c.Members...)
		}
	}
	return elements, nodes
}
