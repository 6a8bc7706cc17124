package netgenfmt

import (
	"io"

	"github.com/opentracelab/netcmp/internal/diag"
	"github.com/opentracelab/netcmp/internal/store"
)

// Reader parses the native binary format into a store.Store.
type Reader struct {
	r    io.Reader
	s    *store.Store
	file int
}

// NewReader validates the file header and returns a Reader that
// populates s's cells tagged with file.
func NewReader(r io.Reader, s *store.Store, file int) (*Reader, error) {
	nr := &Reader{r: r, s: s, file: file}
	magic, err := nr.getUint32()
	if err != nil {
		return nil, diag.Wrap(diag.KindInput, err, "netgenfmt: read header")
	}
	if magic != magicSentinel {
		if swapEndian32(magic) == magicSentinel {
			return nil, diag.New(diag.KindInput, "netgenfmt: file was written on a different-endian host")
		}
		return nil, diag.New(diag.KindInput, "netgenfmt: not a netgen native binary file")
	}
	word, err := nr.getUint32()
	if err != nil {
		return nil, diag.Wrap(diag.KindInput, err, "netgenfmt: read header")
	}
	if word != wordSize {
		return nil, diag.New(diag.KindInput, "netgenfmt: file word size %d does not match this reader's %d", word, wordSize)
	}
	return nr, nil
}

func (nr *Reader) getUint32() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(nr.r, buf[:]); err != nil {
		return 0, err
	}
	return byteOrder.Uint32(buf[:]), nil
}

func (nr *Reader) getInt32() (int, error) {
	v, err := nr.getUint32()
	return int(int32(v)), err
}

func (nr *Reader) getString(length uint32) (string, error) {
	buf := make([]byte, length)
	if _, err := io.ReadFull(nr.r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// ReadAll reads every cell block until EOF, returning the cells
// defined (in file order).
func (nr *Reader) ReadAll() ([]*store.Cell, error) {
	var cells []*store.Cell
	for {
		cell, err := nr.readCell()
		if err == io.EOF {
			return cells, nil
		}
		if err != nil {
			return cells, err
		}
		cells = append(cells, cell)
	}
}

func (nr *Reader) readCell() (*store.Cell, error) {
	nameLen, err := nr.getUint32()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, diag.Wrap(diag.KindInput, err, "netgenfmt: read cell name length")
	}
	name, err := nr.getString(nameLen)
	if err != nil {
		return nil, diag.Wrap(diag.KindInput, err, "netgenfmt: read cell name")
	}
	cell := nr.s.DefineCell(name, nr.file, false)

	for {
		tag, err := nr.getUint32()
		if err != nil {
			return nil, diag.Wrap(diag.KindInput, err, "netgenfmt: cell %s: read object tag", name)
		}
		if tag == endOfCell {
			return cell, nil
		}
		obName, err := nr.getString(tag)
		if err != nil {
			return nil, diag.Wrap(diag.KindInput, err, "netgenfmt: cell %s: read object name", name)
		}
		node, err := nr.getInt32()
		if err != nil {
			return nil, diag.Wrap(diag.KindInput, err, "netgenfmt: cell %s: read object %s node", name, obName)
		}
		rawType, err := nr.getInt32()
		if err != nil {
			return nil, diag.Wrap(diag.KindInput, err, "netgenfmt: cell %s: read object %s type", name, obName)
		}
		typ := store.ObjType(rawType)

		var model string
		var instance int
		if typ.IsPin() {
			modelLen, err := nr.getUint32()
			if err != nil {
				return nil, diag.Wrap(diag.KindInput, err, "netgenfmt: cell %s: read pin %s model length", name, obName)
			}
			model, err = nr.getString(modelLen)
			if err != nil {
				return nil, diag.Wrap(diag.KindInput, err, "netgenfmt: cell %s: read pin %s model", name, obName)
			}
			instance, err = nr.getInt32()
			if err != nil {
				return nil, diag.Wrap(diag.KindInput, err, "netgenfmt: cell %s: read pin %s instance", name, obName)
			}
		}
		cell.AddObject(typ, obName, instance, model, node)
	}
}

func swapEndian32(v uint32) uint32 {
	return (v>>24)&0xff | (v>>8)&0xff00 | (v<<8)&0xff0000 | (v<<24)&0xff000000
}
