package bipartite

import (
	"math/rand"

	"github.com/opentracelab/netcmp/internal/store"
)

// PinMagicTable assigns each (device-class, pin-position) pair a
// stable magic value the first time it is seen, and hands out that
// same value for every later instance of that model — in either
// compared graph. This is the detail spec §4.5's "fresh random" pin
// magic glosses over: if every pin got an independently-drawn random
// value on every instantiation, two topologically identical devices
// in the two graphs would almost never hash equal. Magics must be
// keyed off the model and pin position (spec §9: "compute magics from
// class+pin-group, not from pin-index directly"), assigned once, and
// reused — only then does refinement actually converge on isomorphic
// input.
//
// Slots are keyed by the model's ClassHash rather than its *store.Cell
// identity, and minted from a generator reseeded from that classhash
// (original_source/base/netcmp.c's `MagicSeed(tp->classhash)` before
// drawing each pin's magic). That means two distinct models that share
// a classhash — including two models an `equate classes` call has just
// forced to collide (internal/resolve.EquivalenceClasses) — always get
// the same magic sequence, so EquivalenceClasses's "initially collide"
// contract survives into Iterate's pin/fanout sums instead of
// diverging again on the first hash recompute.
//
// A table outlives any single comparison: PermuteSetup (internal/
// resolve) mutates it to force two port positions of a class to share
// a magic, and that permutation then applies to every future
// CreateTwoLists call that references the same table.
type PinMagicTable struct {
	rng    *rand.Rand
	byHash map[uint64][]uint64
	gens   map[uint64]*rand.Rand
}

// NewPinMagicTable returns an empty table. rng backs Forget's
// re-minting; per-classhash magic sequences are drawn from their own
// generator, seeded from the classhash itself (see genFor).
func NewPinMagicTable(rng *rand.Rand) *PinMagicTable {
	return &PinMagicTable{rng: rng, byHash: map[uint64][]uint64{}, gens: map[uint64]*rand.Rand{}}
}

// genFor returns the generator seeded from classHash, creating it on
// first use so every slot ever minted for that classhash comes from
// the same reproducible sequence.
func (t *PinMagicTable) genFor(classHash uint64) *rand.Rand {
	g, ok := t.gens[classHash]
	if !ok {
		g = rand.New(rand.NewSource(int64(classHash)))
		t.gens[classHash] = g
	}
	return g
}

// magic returns the magic for position i of model, minting (and
// padding) the slot on first use.
func (t *PinMagicTable) magic(model *store.Cell, i int) uint64 {
	h := model.ClassHash
	slots := t.byHash[h]
	for len(slots) <= i {
		slots = append(slots, t.genFor(h).Uint64())
	}
	t.byHash[h] = slots
	return slots[i]
}

// SetPermutation declares that pin positions i and j of model carry
// the same magic from now on (spec §4.7 PermuteSetup): devices whose
// only difference is which of those two pins connects where (source/
// drain, resistor endpoints, capacitor plates) stop being
// distinguished by refinement.
func (t *PinMagicTable) SetPermutation(model *store.Cell, i, j int) {
	m := t.magic(model, i)
	_ = t.magic(model, j) // ensure the slot exists before overwriting it
	slots := t.byHash[model.ClassHash]
	slots[j] = m
}

// Forget undoes every permutation previously declared for model,
// re-minting fresh distinct magics for each of its pin positions
// (spec §6 `permute forget`).
func (t *PinMagicTable) Forget(model *store.Cell) {
	n := len(t.byHash[model.ClassHash])
	fresh := make([]uint64, n)
	for i := range fresh {
		fresh[i] = t.rng.Uint64()
	}
	t.byHash[model.ClassHash] = fresh
}
