package spice

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/opentracelab/netcmp/internal/store"
)

// refdesLetter maps a device class back to the reference-designator
// letter a freshly written instance card should start with; the
// inverse of reader.go's classOf/primitives/modeledPrefixes tables.
func refdesLetter(c store.DeviceClass) byte {
	switch c {
	case store.ClassResistor:
		return 'R'
	case store.ClassCapacitor, store.ClassECap:
		return 'C'
	case store.ClassInductor:
		return 'L'
	case store.ClassDiode:
		return 'D'
	case store.ClassNPN, store.ClassPNP, store.ClassBJT:
		return 'Q'
	case store.ClassNMOS, store.ClassPMOS, store.ClassFET:
		return 'M'
	default:
		return 'X'
	}
}

// Writer serializes store cells back to SPICE-dialect text.
type Writer struct {
	s *store.Store
}

// NewWriter returns a Writer over s.
func NewWriter(s *store.Store) *Writer {
	return &Writer{s: s}
}

// WriteCell renders one cell as a `.SUBCKT ... .ENDS` block: its
// ports, then one device card per instance, recognizable by the same
// reference-designator convention the reader accepts back (spec §1:
// round-tripping is best-effort, not byte-exact, per the Non-goal).
func (w *Writer) WriteCell(out io.Writer, cell *store.Cell) error {
	fmt.Fprintf(out, ".SUBCKT %s", cell.Name)
	for _, p := range cell.Ports() {
		fmt.Fprintf(out, " %s", p.Name)
	}
	fmt.Fprintln(out)

	for _, g := range cell.Globals() {
		fmt.Fprintf(out, ".GLOBAL %s\n", g.Name)
	}

	for _, first := range cell.FirstPinObjects() {
		if err := w.writeInstance(out, cell, first); err != nil {
			return err
		}
	}

	fmt.Fprintf(out, ".ENDS %s\n", cell.Name)
	return nil
}

func (w *Writer) writeInstance(out io.Writer, cell *store.Cell, first *store.Object) error {
	model, ok := w.s.Lookup(first.Model, cell.File)
	if !ok {
		model, ok = w.s.Lookup(first.Model, -1)
	}
	name := instancePrefix(first.Name)

	var nodes []string
	for _, pin := range cell.Instances(first.Instance) {
		if pin.Type == store.TypeProperty {
			continue
		}
		nodes = append(nodes, w.nodeName(cell, pin))
	}

	prop := cell.PropertyOf(first.Instance)

	letter := refdesLetter(modelClass(ok, model))
	switch letter {
	case 'R', 'C', 'L', 'D':
		if ok && len(model.Keys) == 1 && model.Keys[0].Key == "value" && prop != nil {
			fmt.Fprintf(out, "%s %s %s\n", name, strings.Join(nodes, " "), formatValue(prop.Values[0]))
			return nil
		}
		fallthrough
	default:
		fmt.Fprintf(out, "%s %s %s%s\n", name, strings.Join(nodes, " "), modelNameOf(first, ok, model), formatKVSuffix(model, prop))
	}
	return nil
}

func modelClass(ok bool, model *store.Cell) store.DeviceClass {
	if !ok {
		return store.ClassUndefined
	}
	return model.Class
}

func modelNameOf(first *store.Object, ok bool, model *store.Cell) string {
	if ok {
		return model.Name
	}
	return first.Model
}

func formatKVSuffix(model *store.Cell, prop *store.Object) string {
	if model == nil || prop == nil {
		return ""
	}
	var b strings.Builder
	for i, key := range model.Keys {
		if i >= len(prop.Values) {
			break
		}
		fmt.Fprintf(&b, " %s=%s", key.Key, formatValue(prop.Values[i]))
	}
	return b.String()
}

func formatValue(v store.PropValue) string {
	switch v.Type {
	case store.PropInt:
		return strconv.FormatInt(v.I, 10)
	case store.PropString:
		return v.S
	default:
		return strconv.FormatFloat(v.D, 'g', -1, 64)
	}
}

func instancePrefix(pinName string) string {
	if slash := strings.IndexByte(pinName, '/'); slash >= 0 {
		return pinName[:slash]
	}
	return pinName
}

func (w *Writer) nodeName(cell *store.Cell, pin *store.Object) string {
	if pin.Node <= store.NodeDisconnected {
		return "$nc"
	}
	for _, ob := range cell.Objects {
		if ob.Node == pin.Node && (ob.Type == store.TypePort || ob.Type == store.TypeNode || ob.Type == store.TypeGlobal) {
			return ob.Name
		}
	}
	return fmt.Sprintf("n%d", pin.Node)
}
