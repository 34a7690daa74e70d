package tagfile

import (
	"bytes"

	"github.com/pkg/errors"
)

// byteReader walks a part payload decoding packed integers.
type byteReader struct {
	data []byte
	off  int
	err  error
}

func (r *byteReader) packed() int {
	if r.err != nil {
		return 0
	}
	v, next, err := ReadPacked(r.data, r.off)
	if err != nil {
		r.err = errors.Wrapf(err, "packed integer at payload offset 0x%x", r.off)
		return 0
	}
	r.off = next
	return int(v)
}

func (r *byteReader) more() bool {
	return r.err == nil && r.off < len(r.data)
}

// readStrings splits a TSTR or FSTR payload into its NUL-terminated entries.
func readStrings(payload []byte) []string {
	parts := bytes.Split(payload, []byte{0})
	// The piece after the final terminator is padding, not an entry.
	if len(parts) > 0 {
		parts = parts[:len(parts)-1]
	}
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = string(p)
	}
	return out
}

func lookupString(table []string, idx int, what string) (string, error) {
	if idx < 0 || idx >= len(table) {
		return "", errors.Wrapf(ErrBadStringRef, "%s string %d of %d", what, idx, len(table))
	}
	return table[idx], nil
}

// readTypeNames performs the TNAM pass: one type per declared index, each
// with its name and template parameters.
func readTypeNames(payload []byte, typeStrings []string) (*TypeTable, error) {
	r := &byteReader{data: payload}

	count := r.packed()
	if r.err != nil {
		return nil, r.err
	}
	// Every declared type takes at least one byte of the payload.
	if count > len(payload) {
		return nil, errors.Wrapf(ErrTruncated, "%d types declared in %d bytes", count, len(payload))
	}
	tt := NewTypeTable(count)

	for i := 1; i < count; i++ {
		t := tt.types[i]

		name, err := lookupString(typeStrings, r.packed(), "type name")
		if r.err != nil {
			return nil, r.err
		}
		if err != nil {
			return nil, errors.Wrapf(err, "type %d", i)
		}
		t.Name = name

		templates := r.packed()
		for j := 0; j < templates && r.err == nil; j++ {
			tname, err := lookupString(typeStrings, r.packed(), "template name")
			if err != nil {
				return nil, errors.Wrapf(err, "type %d (%s)", i, t.Name)
			}
			t.Templates = append(t.Templates, Template{Name: tname, Value: r.packed()})
		}
		if r.err != nil {
			return nil, r.err
		}
	}

	return tt, nil
}

// readTypeBodies performs the TBOD pass, filling in the types allocated by
// readTypeNames.
func readTypeBodies(tt *TypeTable, payload []byte, fieldStrings []string) error {
	r := &byteReader{data: payload}

	for r.more() {
		id := TypeID(r.packed())
		if id == NoType {
			continue
		}
		t := tt.Get(id)
		if t == nil {
			return errors.Wrapf(ErrBadTypeRef, "body for type %d of %d", id, tt.Len())
		}

		t.Parent = TypeID(r.packed())
		t.Flags = uint32(r.packed())
		if t.Flags&^typeKnownFlags != 0 {
			return errors.Wrapf(ErrUnknownTypeFlags, "type %d (%s) flags 0x%x", id, t.Name, t.Flags)
		}

		if t.Flags&TypeHasSubType != 0 {
			t.SubTypeFlags = uint32(r.packed())
			if t.SubTypeFlags&0xF >= uint32(SubTypePointer) {
				t.Pointee = TypeID(r.packed())
			}
		}
		if t.Flags&TypeHasVersion != 0 {
			t.Version = r.packed()
		}
		if t.Flags&TypeHasSize != 0 {
			t.ByteSize = r.packed()
			t.Alignment = r.packed()
		}
		if t.Flags&TypeHasAbstract != 0 {
			t.AbstractValue = r.packed()
		}
		if t.Flags&TypeHasMembers != 0 {
			n := r.packed()
			t.Members = make([]Member, 0, n)
			for i := 0; i < n && r.err == nil; i++ {
				name, err := lookupString(fieldStrings, r.packed(), "member name")
				if err != nil {
					return errors.Wrapf(err, "type %d (%s)", id, t.Name)
				}
				t.Members = append(t.Members, Member{
					Name:       name,
					Flags:      r.packed(),
					ByteOffset: r.packed(),
					Type:       TypeID(r.packed()),
				})
			}
		}
		if t.Flags&TypeHasInterfaces != 0 {
			n := r.packed()
			for i := 0; i < n && r.err == nil; i++ {
				t.Interfaces = append(t.Interfaces, Interface{
					Type:  TypeID(r.packed()),
					Value: r.packed(),
				})
			}
		}

		if r.err != nil {
			return errors.Wrapf(r.err, "type %d (%s)", id, t.Name)
		}
	}

	return r.err
}

// stringTable collects strings in first-use order.
type stringTable struct {
	index map[string]int
	list  []string
}

func newStringTable() *stringTable {
	return &stringTable{index: make(map[string]int)}
}

func (s *stringTable) add(v string) int {
	if i, ok := s.index[v]; ok {
		return i
	}
	i := len(s.list)
	s.index[v] = i
	s.list = append(s.list, v)
	return i
}

func (s *stringTable) bytes() []byte {
	var out []byte
	for _, v := range s.list {
		out = append(out, v...)
		out = append(out, 0)
	}
	return out
}

// typeSections holds the regenerated payloads of the TYPE container.
type typeSections struct {
	typeStrings  []byte
	typeNames    []byte
	fieldStrings []byte
	typeBodies   []byte
}

// encodeTypes serializes the type table into TSTR, TNAM, FSTR and TBOD payloads.
func encodeTypes(tt *TypeTable) typeSections {
	tstr := newStringTable()
	fstr := newStringTable()

	var names []byte
	names = AppendPacked(names, uint32(tt.Len()))
	for _, t := range tt.Types() {
		names = AppendPacked(names, uint32(tstr.add(t.Name)))
		names = AppendPacked(names, uint32(len(t.Templates)))
		for _, tp := range t.Templates {
			names = AppendPacked(names, uint32(tstr.add(tp.Name)))
			names = AppendPacked(names, uint32(tp.Value))
		}
	}

	var bodies []byte
	for _, t := range tt.Types() {
		if t.Flags == 0 && t.Parent == NoType {
			continue
		}
		bodies = AppendPacked(bodies, uint32(t.ID))
		bodies = AppendPacked(bodies, uint32(t.Parent))
		bodies = AppendPacked(bodies, t.Flags)

		if t.Flags&TypeHasSubType != 0 {
			bodies = AppendPacked(bodies, t.SubTypeFlags)
			if t.SubTypeFlags&0xF >= uint32(SubTypePointer) {
				bodies = AppendPacked(bodies, uint32(t.Pointee))
			}
		}
		if t.Flags&TypeHasVersion != 0 {
			bodies = AppendPacked(bodies, uint32(t.Version))
		}
		if t.Flags&TypeHasSize != 0 {
			bodies = AppendPacked(bodies, uint32(t.ByteSize))
			bodies = AppendPacked(bodies, uint32(t.Alignment))
		}
		if t.Flags&TypeHasAbstract != 0 {
			bodies = AppendPacked(bodies, uint32(t.AbstractValue))
		}
		if t.Flags&TypeHasMembers != 0 {
			bodies = AppendPacked(bodies, uint32(len(t.Members)))
			for _, m := range t.Members {
				bodies = AppendPacked(bodies, uint32(fstr.add(m.Name)))
				bodies = AppendPacked(bodies, uint32(m.Flags))
				bodies = AppendPacked(bodies, uint32(m.ByteOffset))
				bodies = AppendPacked(bodies, uint32(m.Type))
			}
		}
		if t.Flags&TypeHasInterfaces != 0 {
			bodies = AppendPacked(bodies, uint32(len(t.Interfaces)))
			for _, it := range t.Interfaces {
				bodies = AppendPacked(bodies, uint32(it.Type))
				bodies = AppendPacked(bodies, uint32(it.Value))
			}
		}
	}

	return typeSections{
		typeStrings:  tstr.bytes(),
		typeNames:    names,
		fieldStrings: fstr.bytes(),
		typeBodies:   bodies,
	}
}
