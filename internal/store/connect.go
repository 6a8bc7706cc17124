package store

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/opentracelab/netcmp/internal/diag"
)

// Instance places model inside s.Current(), appending one pin object
// per port of model (spec §4.1 Instance). GLOBAL pins of model get a
// same-named global created (if missing) in the current cell and
// unioned onto the new pin; UNIQUEGLOBAL pins get a locally-unique
// name synthesized from instanceName. Returns the new instance id.
func (s *Store) Instance(model *Cell, instanceName string) (int, error) {
	cur := s.current
	if cur == nil {
		return 0, diag.New(diag.KindFatal, "Instance: no current cell")
	}
	inst := cur.NewInstanceID()
	ports := model.Ports()
	if len(ports) == 0 {
		return 0, diag.New(diag.KindInput, "Instance: model %s has no ports", model.Name)
	}

	newPins := make([]*Object, 0, len(ports))
	for i, port := range ports {
		pinName := instanceName + "/" + port.Name
		ob := cur.AddObject(FirstPin+ObjType(i), pinName, inst, model.Name, NodeDisconnected)
		newPins = append(newPins, ob)
	}

	for _, g := range model.Globals() {
		pinName := instanceName + "/" + g.Name
		pin, ok := cur.LookupObject(pinName)
		if !ok {
			continue // malformed model; Instance never fabricates pins for non-ports
		}
		localGlobal, ok := cur.LookupObject(g.Name)
		if !ok {
			localGlobal = cur.DefineGlobal(g.Name)
		}
		s.unionInCell(cur, pin, localGlobal)
	}

	// UNIQUEGLOBAL: synthesize instanceName-qualified global names so
	// each instantiation gets its own net, but the net is still
	// globally reachable by that synthesized name.
	for _, ob := range model.Objects {
		if ob.Type != TypeUniqueGlobal {
			continue
		}
		uniqueName := instanceName + "." + ob.Name
		pinName := instanceName + "/" + ob.Name
		pin, ok := cur.LookupObject(pinName)
		if !ok {
			continue
		}
		g, ok := cur.LookupObject(uniqueName)
		if !ok {
			g = cur.DefineUniqueGlobal(uniqueName)
		}
		s.unionInCell(cur, pin, g)
	}

	// If the model's own objects record that two of its ports alias
	// the same internal node (a pass-through), connect the
	// corresponding new pins for this instance too.
	aliasGroups := portAliasGroups(model, ports)
	for _, group := range aliasGroups {
		for i := 1; i < len(group); i++ {
			s.unionInCell(cur, newPins[group[0]], newPins[group[i]])
		}
	}

	return inst, nil
}

// portAliasGroups groups port indices of model that share the same
// internal node number, so Instance can replicate the alias on every
// instantiation (spec §4.1, Instance's final clause).
func portAliasGroups(model *Cell, ports []*Object) [][]int {
	byNode := map[int][]int{}
	for i, p := range ports {
		if p.Node > 0 {
			byNode[p.Node] = append(byNode[p.Node], i)
		}
	}
	var groups [][]int
	for _, g := range byNode {
		if len(g) > 1 {
			groups = append(groups, g)
		}
	}
	return groups
}

// unionInCell is Connect's join rule applied to exactly two objects
// already known to live in cell c: if both are unconnected, allocate
// a fresh node; otherwise the smaller existing node number wins and
// every object carrying the larger is renumbered to it.
func (s *Store) unionInCell(c *Cell, a, b *Object) {
	if a.Node <= NodeDisconnected && b.Node <= NodeDisconnected {
		n := c.NewNodeID()
		a.Node = n
		b.Node = n
		return
	}
	if a.Node <= NodeDisconnected {
		a.Node = b.Node
		return
	}
	if b.Node <= NodeDisconnected {
		b.Node = a.Node
		return
	}
	if a.Node == b.Node {
		return
	}
	lo, hi := a.Node, b.Node
	if hi < lo {
		lo, hi = hi, lo
	}
	renumberNode(c, hi, lo)
}

// renumberNode rewrites every object in c carrying node `from` to
// carry `to` instead (spec §4.1 Connect's union rule, I3).
func renumberNode(c *Cell, from, to int) {
	if from == to {
		return
	}
	for _, ob := range c.Objects {
		if ob.Node == from {
			ob.Node = to
		}
	}
}

// Connect unions the node numbers of two expanded pin-name lists
// pairwise. 1-to-N and N-to-1 are allowed; unequal N-to-M with both
// N,M > 1 is an error (spec §4.1 Connect).
func (s *Store) Connect(a, b []*Object) error {
	cur := s.current
	if cur == nil {
		return diag.New(diag.KindFatal, "Connect: no current cell")
	}
	if len(a) == 0 || len(b) == 0 {
		return diag.New(diag.KindInput, "Connect: empty pattern expansion")
	}
	switch {
	case len(a) == 1:
		for _, ob := range b {
			s.unionInCell(cur, a[0], ob)
		}
	case len(b) == 1:
		for _, ob := range a {
			s.unionInCell(cur, ob, b[0])
		}
	case len(a) == len(b):
		s.connectPairsBatch(cur, a, b)
	default:
		return diag.New(diag.KindInput, "Connect: unequal N-to-M connection (%d vs %d)", len(a), len(b))
	}
	return nil
}

// connectPairsBatch unions many pin pairs at once (an N-to-N Connect,
// e.g. a whole bus): every disconnected endpoint gets a fresh node
// number up front, every pair is unioned in a node-number union-find
// (spec §9's recommended substitute for the C source's pointer-chasing
// union rule, adapted from pkg/reveng.Netlist's union-by-rank
// structure), and then the cell's object list is walked exactly once
// to commit each object's Node to its component's representative —
// rather than the O(objects) rewrite unionInCell performs per pair.
func (s *Store) connectPairsBatch(c *Cell, a, b []*Object) {
	uf := newNodeUnion()
	for i := range a {
		if a[i].Node <= NodeDisconnected {
			a[i].Node = c.NewNodeID()
		}
		if b[i].Node <= NodeDisconnected {
			b[i].Node = c.NewNodeID()
		}
		uf.union(a[i].Node, b[i].Node)
	}
	for _, ob := range c.Objects {
		if ob.Node > 0 {
			ob.Node = uf.find(ob.Node)
		}
	}
}

// LinkProperties attaches a PROPERTY object to the device instance
// just emitted (the pin run tagged instance), aligning
// kvpairs against model's declared key list (spec §4.1 LinkProperties).
// Unrecognized keys are kept verbatim in the raw sidecar but are never
// compared. A declared key missing from kvpairs gets a zero/empty
// value and a warning through warn.
func (s *Store) LinkProperties(model *Cell, instance int, kvpairs map[string]string, warn func(string)) error {
	cur := s.current
	if cur == nil {
		return diag.New(diag.KindFatal, "LinkProperties: no current cell")
	}

	used := make(map[string]bool, len(kvpairs))
	values := make([]PropValue, len(model.Keys))
	for i, key := range model.Keys {
		raw, ok := lookupKeyFold(kvpairs, key.Key)
		if !ok {
			if warn != nil {
				warn(fmt.Sprintf("LinkProperties: %s missing key %q, using zero value", model.Name, key.Key))
			}
			values[i] = zeroValue(key.Type)
			continue
		}
		used[strings.ToLower(key.Key)] = true
		v, err := parsePropValue(key.Type, raw)
		if err != nil {
			return diag.Wrap(diag.KindInput, err, "LinkProperties: key %s", key.Key)
		}
		values[i] = v
	}

	var raw []RawPair
	for k, v := range kvpairs {
		if !used[strings.ToLower(k)] {
			raw = append(raw, RawPair{Key: k, Value: v})
		}
	}

	ob := cur.AddObject(TypeProperty, fmt.Sprintf("%s/@property", instanceNameOf(cur, instance)), instance, model.Name, NodeProperty)
	ob.Raw = raw
	ob.Values = values
	return nil
}

func instanceNameOf(c *Cell, instance int) string {
	idxs := c.instanceIndex[instance]
	if len(idxs) == 0 {
		return fmt.Sprintf("inst%d", instance)
	}
	first := c.Objects[idxs[0]]
	if slash := strings.IndexByte(first.Name, '/'); slash >= 0 {
		return first.Name[:slash]
	}
	return first.Name
}

func lookupKeyFold(kv map[string]string, key string) (string, bool) {
	if v, ok := kv[key]; ok {
		return v, true
	}
	lower := strings.ToLower(key)
	for k, v := range kv {
		if strings.ToLower(k) == lower {
			return v, true
		}
	}
	return "", false
}

func zeroValue(t PropType) PropValue {
	switch t {
	case PropInt:
		return PropValue{Type: PropInt}
	case PropString:
		return PropValue{Type: PropString}
	default:
		return PropValue{Type: PropDouble}
	}
}

func parsePropValue(t PropType, raw string) (PropValue, error) {
	raw = strings.TrimSpace(raw)
	switch t {
	case PropInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return PropValue{}, fmt.Errorf("parse integer %q: %w", raw, err)
		}
		return PropValue{Type: PropInt, I: n}, nil
	case PropString:
		return PropValue{Type: PropString, S: raw}, nil
	default:
		d, err := ParseSIFloat(raw)
		if err != nil {
			return PropValue{}, err
		}
		return PropValue{Type: PropDouble, D: d}, nil
	}
}

// siSuffixes maps a SPICE numeric suffix to its multiplier. "m" is
// milli, "meg" is mega; the longer suffix must be tried first so
// "1meg" does not get misread as "1m" followed by stray "eg" (spec
// §8 boundary: 1meg=1e6, 1m=1e-3, 10u=1e-5, 2.5p=2.5e-12).
var siSuffixes = []struct {
	suffix string
	scale  float64
}{
	{"meg", 1e6},
	{"g", 1e9},
	{"k", 1e3},
	{"m", 1e-3},
	{"u", 1e-6},
	{"n", 1e-9},
	{"p", 1e-12},
	{"f", 1e-15},
	{"a", 1e-18},
}

// ParseSIFloat parses a SPICE-style numeric literal with an optional
// case-insensitive SI suffix. An unrecognized trailing suffix is
// ignored and only the mantissa is used (spec §4.1/§8).
func ParseSIFloat(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("empty numeric value")
	}
	lower := strings.ToLower(s)
	for _, e := range siSuffixes {
		if strings.HasSuffix(lower, e.suffix) {
			mantissa := s[:len(s)-len(e.suffix)]
			f, err := strconv.ParseFloat(mantissa, 64)
			if err != nil {
				break // fall through to bare-mantissa attempts below
			}
			// Parse mantissa and exponent as one literal so "10u" is
			// exactly 1e-5; f*e.scale can be off in the last bit.
			exp := int(math.Round(math.Log10(e.scale)))
			if v, err := strconv.ParseFloat(mantissa+"e"+strconv.Itoa(exp), 64); err == nil {
				return v, nil
			}
			return f * e.scale, nil
		}
	}
	// No recognized suffix (or suffix parse failed): accept the
	// longest numeric prefix and ignore any trailing unit text.
	end := len(s)
	for end > 0 {
		if _, err := strconv.ParseFloat(s[:end], 64); err == nil {
			break
		}
		end--
	}
	if end == 0 {
		return 0, fmt.Errorf("cannot parse numeric value %q", raw)
	}
	return strconv.ParseFloat(s[:end], 64)
}
