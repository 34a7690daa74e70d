package tagfile

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

type decoder struct {
	data      []byte
	order     binary.ByteOrder
	types     *TypeTable
	items     *ItemTable
	expanding map[int]bool
}

func (d *decoder) readRoot() (*Object, error) {
	objs, err := d.expand(1)
	if err != nil {
		return nil, err
	}
	if len(objs) == 0 {
		return nil, ErrNoRoot
	}
	return objs[0], nil
}

func (d *decoder) bytesAt(off, n int) ([]byte, error) {
	if off < 0 || off+n > len(d.data) {
		return nil, errors.Wrapf(ErrTruncated, "%d bytes at 0x%x", n, off)
	}
	return d.data[off : off+n], nil
}

func (d *decoder) uint(off, width int) (uint64, error) {
	b, err := d.bytesAt(off, width)
	if err != nil {
		return 0, err
	}
	switch width {
	case 1:
		return uint64(b[0]), nil
	case 2:
		return uint64(d.order.Uint16(b)), nil
	case 4:
		return uint64(d.order.Uint32(b)), nil
	case 8:
		return d.order.Uint64(b), nil
	}
	return 0, errors.Wrapf(ErrBadSubType, "integer width %d", width)
}

// readObject decodes the value of type t stored at off.
func (d *decoder) readObject(off int, t *TagType, name string) (*Object, error) {
	st := d.types.SuperType(t)
	if st == nil {
		return nil, errors.Wrapf(ErrNoSubType, "%s (field %q)", t, name)
	}

	obj := &Object{Type: t, Kind: st.SubType(), Name: name}

	switch obj.Kind {
	case SubTypeVoid:
		return obj, nil

	case SubTypeBool:
		width := st.IntWidth()
		if width == 0 {
			width = 1
		}
		v, err := d.uint(off, width)
		if err != nil {
			return nil, err
		}
		obj.Value = v != 0

	case SubTypeInt:
		width := st.IntWidth()
		if width == 0 {
			width = st.ByteSize
		}
		v, err := d.uint(off, width)
		if err != nil {
			return nil, errors.Wrapf(err, "field %q", name)
		}
		if st.IsSigned() {
			obj.Value = signExtend(v, width)
		} else {
			obj.Value = v
		}

	case SubTypeFloat:
		v, err := d.uint(off, 4)
		if err != nil {
			return nil, err
		}
		obj.Value = math.Float32frombits(uint32(v))

	case SubTypeString:
		return nil, errors.Wrapf(ErrStringUnsupported, "field %q of type %s", name, t)

	case SubTypePointer:
		objs, err := d.resolve(off)
		if err != nil {
			return nil, err
		}
		if len(objs) > 0 {
			obj.Children = objs[:1]
		}

	case SubTypeArray:
		objs, err := d.resolve(off)
		if err != nil {
			return nil, err
		}
		obj.Children = objs

	case SubTypeClass:
		for _, m := range d.types.AllMembers(t) {
			mt := d.types.Get(m.Type)
			if mt == nil {
				return nil, errors.Wrapf(ErrBadTypeRef, "member %s.%s", t, m.Name)
			}
			child, err := d.readObject(off+m.ByteOffset, mt, m.Name)
			if err != nil {
				return nil, errors.Wrapf(err, "in %s", t)
			}
			obj.Children = append(obj.Children, child)
		}

	case SubTypeTuple:
		elem := d.types.Pointee(st)
		if elem == nil {
			return nil, errors.Wrapf(ErrBadTypeRef, "tuple %s has no element type", t)
		}
		n := d.types.TupleSize(t)
		stride := d.types.ByteSize(elem)
		obj.Children = make([]*Object, 0, n)
		for i := 0; i < n; i++ {
			child, err := d.readObject(off+i*stride, elem, "")
			if err != nil {
				return nil, err
			}
			obj.Children = append(obj.Children, child)
		}

	default:
		return nil, errors.Wrapf(ErrBadSubType, "%s on type %s", obj.Kind, t)
	}

	return obj, nil
}

// resolve reads the item index stored at off and returns the item's objects.
// Index 0 and out-of-range indices resolve to no objects.
func (d *decoder) resolve(off int) ([]*Object, error) {
	v, err := d.uint(off, 4)
	if err != nil {
		return nil, err
	}
	if d.items.Get(int(v)) == nil {
		return nil, nil
	}
	return d.expand(int(v))
}

// expand decodes every element of an item once and memoizes the result.
func (d *decoder) expand(idx int) ([]*Object, error) {
	if objs, ok := d.items.objects[idx]; ok {
		return objs, nil
	}
	item := d.items.Get(idx)
	if item == nil || item.Type == nil || item.Count == 0 {
		return nil, nil
	}
	if d.expanding[idx] {
		return nil, errors.Wrapf(ErrItemCycle, "item %d", idx)
	}
	d.expanding[idx] = true
	defer delete(d.expanding, idx)

	stride := d.types.ByteSize(item.Type)
	if stride <= 0 {
		return nil, errors.Wrapf(ErrBadSubType, "item %d: %d elements of zero-size type %s", idx, item.Count, item.Type)
	}
	if item.Count < 0 || item.Offset+item.Count*stride > len(d.data) {
		return nil, errors.Wrapf(ErrTruncated, "item %d: %d x %d bytes at 0x%x", idx, item.Count, stride, item.Offset)
	}

	objs := make([]*Object, 0, item.Count)
	for i := 0; i < item.Count; i++ {
		obj, err := d.readObject(item.Offset+i*stride, item.Type, "")
		if err != nil {
			return nil, errors.Wrapf(err, "item %d element %d", idx, i)
		}
		objs = append(objs, obj)
	}

	d.items.objects[idx] = objs
	return objs, nil
}

func signExtend(v uint64, width int) int64 {
	shift := uint(64 - 8*width)
	return int64(v<<shift) >> shift
}
