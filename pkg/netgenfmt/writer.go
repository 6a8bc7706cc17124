package netgenfmt

import (
	"io"

	"github.com/opentracelab/netcmp/internal/diag"
	"github.com/opentracelab/netcmp/internal/store"
)

// Writer serializes store cells to the native binary format.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter returns a Writer that writes the file header immediately.
func NewWriter(w io.Writer) (*Writer, error) {
	nw := &Writer{w: w}
	nw.putUint32(magicSentinel)
	nw.putUint32(wordSize)
	if nw.err != nil {
		return nil, diag.Wrap(diag.KindResource, nw.err, "netgenfmt: write header")
	}
	return nw, nil
}

func (nw *Writer) putUint32(v uint32) {
	if nw.err != nil {
		return
	}
	var buf [4]byte
	byteOrder.PutUint32(buf[:], v)
	_, nw.err = nw.w.Write(buf[:])
}

func (nw *Writer) putInt32(v int) { nw.putUint32(uint32(int32(v))) }

func (nw *Writer) putString(s string) {
	nw.putUint32(uint32(len(s)))
	if nw.err != nil {
		return
	}
	_, nw.err = io.WriteString(nw.w, s)
}

// WriteCell appends cell as one `<len><name> objects... 0x0fff` block.
// Bottom-up emission (sub-cells before parents) is the caller's
// responsibility, matching §6's "walk the object list bottom-up".
func (nw *Writer) WriteCell(cell *store.Cell) error {
	if nw.err != nil {
		return nw.err
	}
	nw.putString(cell.Name)
	for _, ob := range cell.Objects {
		if ob.Type == store.TypeProperty {
			continue // the native format carries no property payload
		}
		nw.putString(ob.Name)
		nw.putInt32(ob.Node)
		nw.putInt32(int(ob.Type))
		if ob.Type.IsPin() {
			nw.putString(ob.Model)
			nw.putInt32(ob.Instance)
		}
	}
	nw.putUint32(endOfCell)
	if nw.err != nil {
		return diag.Wrap(diag.KindResource, nw.err, "netgenfmt: write cell %s", cell.Name)
	}
	return nil
}
