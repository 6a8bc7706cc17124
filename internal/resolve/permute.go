package resolve

import (
	"github.com/opentracelab/netcmp/internal/bipartite"
	"github.com/opentracelab/netcmp/internal/diag"
	"github.com/opentracelab/netcmp/internal/store"
)

// PermuteSetup records that pinA and pinB of model carry the same
// pin_magic from now on (spec §4.7): applied before the first
// Iterate, it keeps refinement from ever distinguishing devices whose
// only difference is which of the two pins connects where (source
// versus drain, the two ends of a resistor, the two plates of a
// capacitor).
func PermuteSetup(magics *bipartite.PinMagicTable, model *store.Cell, pinA, pinB string) error {
	i, err := portIndex(model, pinA)
	if err != nil {
		return err
	}
	j, err := portIndex(model, pinB)
	if err != nil {
		return err
	}
	magics.SetPermutation(model, i, j)
	return nil
}

// PermuteForget undoes every permutation declared for model (spec §6
// `permute forget`).
func PermuteForget(magics *bipartite.PinMagicTable, model *store.Cell) {
	magics.Forget(model)
}

func portIndex(model *store.Cell, name string) (int, error) {
	for i, p := range model.Ports() {
		if p.Name == name {
			return i, nil
		}
	}
	return 0, diag.New(diag.KindLookup, "PermuteSetup: %s has no pin %q", model.Name, name)
}
