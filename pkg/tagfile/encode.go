package tagfile

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/pkg/errors"
)

type encItem struct {
	typ     *TagType
	pointer bool
	objects []*Object
	offset  int // Relative to the DATA payload
}

type encoder struct {
	order   binary.ByteOrder
	types   *TypeTable
	items   []*encItem
	index   map[*Object]int // Pointer or array node to its item
	targets map[*Object]int // First element of an item to the item
	buf     []byte
}

func newEncoder(tt *TypeTable, order binary.ByteOrder) *encoder {
	if order == nil {
		order = binary.BigEndian
	}
	return &encoder{
		order:   order,
		types:   tt,
		items:   []*encItem{{}},
		index:   make(map[*Object]int),
		targets: make(map[*Object]int),
	}
}

// rebuildItems assigns fresh item indices by walking the tree depth-first.
// The root always lands in item 1. Nodes that reference the same objects
// share one item, and each item's objects are walked once.
func (e *encoder) rebuildItems(root *Object) error {
	e.items = append(e.items, &encItem{typ: root.Type, pointer: true, objects: []*Object{root}})
	e.targets[root] = 1
	return e.collect(root)
}

func (e *encoder) collect(o *Object) error {
	switch o.Kind {
	case SubTypePointer, SubTypeArray:
		if len(o.Children) == 0 {
			return nil
		}
		if o.Kind == SubTypePointer && len(o.Children) != 1 {
			return errors.Wrapf(ErrPointerChildren, "field %q has %d", o.Name, len(o.Children))
		}
		return e.reference(o)
	}
	return e.collectAll(o.Children)
}

func (e *encoder) collectAll(objs []*Object) error {
	for _, c := range objs {
		if err := e.collect(c); err != nil {
			return err
		}
	}
	return nil
}

// reference binds a pointer or array node to an item. An existing item is
// reused when its objects and the node's children agree on their common
// prefix; a longer run of children extends it.
func (e *encoder) reference(o *Object) error {
	if idx, ok := e.targets[o.Children[0]]; ok {
		item := e.items[idx]
		n := len(item.objects)
		if len(o.Children) < n {
			n = len(o.Children)
		}
		if sameObjects(item.objects[:n], o.Children[:n]) {
			e.index[o] = idx
			if len(o.Children) <= len(item.objects) {
				return nil
			}
			extra := o.Children[len(item.objects):]
			item.objects = o.Children
			return e.collectAll(extra)
		}
	}

	idx := len(e.items)
	e.index[o] = idx
	if _, ok := e.targets[o.Children[0]]; !ok {
		e.targets[o.Children[0]] = idx
	}
	e.items = append(e.items, &encItem{
		typ:     o.Children[0].Type,
		pointer: o.Kind == SubTypePointer,
		objects: o.Children,
	})
	return e.collectAll(o.Children)
}

func sameObjects(a, b []*Object) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// writeData lays out every item in index order and returns the DATA payload.
func (e *encoder) writeData() ([]byte, error) {
	for i, item := range e.items[1:] {
		if align := e.alignment(item.typ); align > 1 {
			e.padTo(alignUp(len(e.buf), align))
		}
		item.offset = len(e.buf)

		stride := e.types.ByteSize(item.typ)
		for k, obj := range item.objects {
			e.padTo(item.offset + k*stride)
			if err := e.writeObject(obj); err != nil {
				return nil, errors.Wrapf(err, "item %d element %d", i+1, k)
			}
		}
	}
	return e.buf, nil
}

func (e *encoder) alignment(t *TagType) int {
	if st := e.types.SuperType(t); st != nil {
		return st.Alignment
	}
	return 1
}

func (e *encoder) padTo(pos int) {
	for len(e.buf) < pos {
		e.buf = append(e.buf, 0)
	}
}

func (e *encoder) putUint(v uint64, width int) error {
	switch width {
	case 1:
		e.buf = append(e.buf, byte(v))
	case 2:
		var b [2]byte
		e.order.PutUint16(b[:], uint16(v))
		e.buf = append(e.buf, b[:]...)
	case 4:
		e.buf = appendUint32(e.order, e.buf, uint32(v))
	case 8:
		var b [8]byte
		e.order.PutUint64(b[:], v)
		e.buf = append(e.buf, b[:]...)
	default:
		return errors.Wrapf(ErrBadSubType, "integer width %d", width)
	}
	return nil
}

func (e *encoder) writeObject(o *Object) error {
	start := len(e.buf)
	st := e.types.SuperType(o.Type)
	if st == nil {
		return errors.Wrapf(ErrNoSubType, "%s (field %q)", o.Type, o.Name)
	}

	switch st.SubType() {
	case SubTypeVoid:
		return nil

	case SubTypeBool, SubTypeInt:
		width := st.IntWidth()
		if width == 0 {
			width = st.ByteSize
			if st.SubType() == SubTypeBool && width == 0 {
				width = 1
			}
		}
		bits, ok := scalarBits(o.Value)
		if !ok {
			return errors.Wrapf(ErrBadValue, "field %q holds %T", o.Name, o.Value)
		}
		return e.putUint(bits, width)

	case SubTypeFloat:
		switch o.Value.(type) {
		case float32, int64, uint64, nil:
		default:
			return errors.Wrapf(ErrBadValue, "field %q holds %T", o.Name, o.Value)
		}
		return e.putUint(uint64(math.Float32bits(o.Float())), 4)

	case SubTypeString:
		return errors.Wrapf(ErrStringUnsupported, "field %q", o.Name)

	case SubTypePointer, SubTypeArray:
		return e.putUint(uint64(e.index[o]), 4)

	case SubTypeClass:
		members := e.types.AllMembers(o.Type)
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].ByteOffset < members[j].ByteOffset
		})
		for _, m := range members {
			child := o.Member(m.Name)
			if child == nil {
				return errors.Wrapf(ErrMissingMember, "%s.%s", o.Type, m.Name)
			}
			e.padTo(start + m.ByteOffset)
			if err := e.writeObject(child); err != nil {
				return errors.Wrapf(err, "in %s", o.Type)
			}
		}
		e.padTo(start + st.ByteSize)

	case SubTypeTuple:
		n := e.types.TupleSize(o.Type)
		if len(o.Children) != n {
			return errors.Wrapf(ErrTupleCount, "%s has %d elements, want %d", o.Type, len(o.Children), n)
		}
		stride := e.types.ByteSize(e.types.Pointee(st))
		for i, c := range o.Children {
			e.padTo(start + i*stride)
			if err := e.writeObject(c); err != nil {
				return err
			}
		}

	default:
		return errors.Wrapf(ErrBadSubType, "%s on type %s", st.SubType(), o.Type)
	}

	return nil
}

// itemRecords serializes the rebuilt item table into an ITEM payload.
func (e *encoder) itemRecords() []byte {
	out := make([]byte, 0, len(e.items)*itemRecordSize)
	for _, item := range e.items {
		var word uint32
		if item.typ != nil {
			word = uint32(item.typ.ID) & itemTypeMask
		}
		if item.pointer {
			word |= itemFlagPointer
		}
		out = appendUint32(e.order, out, word)
		out = appendUint32(e.order, out, uint32(item.offset))
		out = appendUint32(e.order, out, uint32(len(item.objects)))
	}
	return out
}

// itemTable converts the rebuilt items into an ItemTable anchored at dataBase.
func (e *encoder) itemTable(dataBase int) *ItemTable {
	it := newItemTable()
	for i, item := range e.items {
		it.Items = append(it.Items, &Item{
			Type:      item.typ,
			IsPointer: item.pointer,
			Offset:    dataBase + item.offset,
			Count:     len(item.objects),
		})
		if i > 0 {
			it.objects[i] = item.objects
		}
	}
	return it
}

func alignUp(n, align int) int {
	return (n + align - 1) / align * align
}

func appendUint32(order binary.ByteOrder, dst []byte, v uint32) []byte {
	var b [4]byte
	order.PutUint32(b[:], v)
	return append(dst, b[:]...)
}
