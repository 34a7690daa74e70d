package tagfile

import (
	"fmt"

	"github.com/pkg/errors"
)

// TypeID indexes a TypeTable. Zero is the reserved "none" sentinel.
type TypeID int

// NoType is the sentinel type ID.
const NoType TypeID = 0

// SubType is the primitive kind of a type.
type SubType uint32

const (
	SubTypeVoid    SubType = 0x0
	SubTypeInvalid SubType = 0x1
	SubTypeBool    SubType = 0x2
	SubTypeString  SubType = 0x3
	SubTypeInt     SubType = 0x4
	SubTypeFloat   SubType = 0x5
	SubTypePointer SubType = 0x6
	SubTypeClass   SubType = 0x7
	SubTypeArray   SubType = 0x8
	SubTypeTuple   SubType = 0x28
)

// Subtype flag bits.
const (
	subTypeMask = 0x2F // low nibble plus the tuple bit

	SubTypeSigned = 0x200
	SubTypeInt8   = 0x2000
	SubTypeInt16  = 0x4000
	SubTypeInt32  = 0x8000
	SubTypeInt64  = 0x10000
)

// String returns the kind name.
func (s SubType) String() string {
	switch s {
	case SubTypeVoid:
		return "Void"
	case SubTypeInvalid:
		return "Invalid"
	case SubTypeBool:
		return "Bool"
	case SubTypeString:
		return "String"
	case SubTypeInt:
		return "Int"
	case SubTypeFloat:
		return "Float"
	case SubTypePointer:
		return "Pointer"
	case SubTypeClass:
		return "Class"
	case SubTypeArray:
		return "Array"
	case SubTypeTuple:
		return "Tuple"
	default:
		return fmt.Sprintf("Unknown(0x%x)", uint32(s))
	}
}

// Optional-field bits of a type body.
const (
	TypeHasSubType    = 0x01
	TypeHasVersion    = 0x02
	TypeHasSize       = 0x04
	TypeHasAbstract   = 0x08
	TypeHasMembers    = 0x10
	TypeHasInterfaces = 0x20

	typeKnownFlags = 0x3F
)

// Template is a named template parameter of a type. Type templates carry
// the referenced type ID in Value.
type Template struct {
	Name  string
	Value int
}

// IsType reports whether the template parameter names a type.
func (t Template) IsType() bool {
	return len(t.Name) > 0 && t.Name[0] == 't'
}

// Member is one field of a class type.
type Member struct {
	Name       string
	Flags      int
	ByteOffset int
	Type       TypeID
}

// Interface is an interface binding of a type.
type Interface struct {
	Type  TypeID
	Value int
}

// TagType is one entry of the runtime type system.
type TagType struct {
	ID            TypeID
	Name          string
	Version       int
	Flags         uint32 // Optional fields present in the body
	SubTypeFlags  uint32
	ByteSize      int
	Alignment     int
	AbstractValue int
	Parent        TypeID
	Pointee       TypeID
	Templates     []Template
	Members       []Member
	Interfaces    []Interface
}

// SubType returns the kind stored in the type's own subtype flags.
func (t *TagType) SubType() SubType {
	return SubType(t.SubTypeFlags & subTypeMask)
}

// IsSigned reports whether an integer type is signed.
func (t *TagType) IsSigned() bool {
	return t.SubTypeFlags&SubTypeSigned != 0
}

// IntWidth returns the byte width selected by the integer width bits.
func (t *TagType) IntWidth() int {
	switch {
	case t.SubTypeFlags&SubTypeInt8 != 0:
		return 1
	case t.SubTypeFlags&SubTypeInt16 != 0:
		return 2
	case t.SubTypeFlags&SubTypeInt32 != 0:
		return 4
	case t.SubTypeFlags&SubTypeInt64 != 0:
		return 8
	default:
		return 0
	}
}

// HasMember reports whether the type declares a member with the given name.
func (t *TagType) HasMember(name string) bool {
	for _, m := range t.Members {
		if m.Name == name {
			return true
		}
	}
	return false
}

// String returns the type name, or "<none>" for the sentinel.
func (t *TagType) String() string {
	if t == nil || t.ID == NoType {
		return "<none>"
	}
	return t.Name
}

// TypeTable is the arena holding every type of a file. Parent and pointee
// references are resolved through it by ID.
type TypeTable struct {
	types []*TagType
}

// NewTypeTable creates a table with n slots, slot 0 being the sentinel.
func NewTypeTable(n int) *TypeTable {
	if n < 1 {
		n = 1
	}
	tt := &TypeTable{types: make([]*TagType, n)}
	for i := range tt.types {
		tt.types[i] = &TagType{ID: TypeID(i)}
	}
	return tt
}

// Len returns the number of slots including the sentinel.
func (tt *TypeTable) Len() int {
	return len(tt.types)
}

// Get returns the type with the given ID, or nil for the sentinel and
// out-of-range IDs.
func (tt *TypeTable) Get(id TypeID) *TagType {
	if id <= NoType || int(id) >= len(tt.types) {
		return nil
	}
	return tt.types[id]
}

// Types returns all real types in ID order.
func (tt *TypeTable) Types() []*TagType {
	return tt.types[1:]
}

// ByName returns the first type with the given name.
func (tt *TypeTable) ByName(name string) *TagType {
	for _, t := range tt.Types() {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Parent returns the parent type of t, or nil.
func (tt *TypeTable) Parent(t *TagType) *TagType {
	return tt.Get(t.Parent)
}

// Pointee returns the pointee or element type of t, or nil.
func (tt *TypeTable) Pointee(t *TagType) *TagType {
	return tt.Get(t.Pointee)
}

// SuperType returns the nearest type in the inheritance chain of t,
// starting with t itself, that carries subtype flags.
func (tt *TypeTable) SuperType(t *TagType) *TagType {
	for steps := 0; t != nil && steps < len(tt.types); steps++ {
		if t.Flags&TypeHasSubType != 0 {
			return t
		}
		t = tt.Parent(t)
	}
	return nil
}

// SubType returns the kind of t's super type.
func (tt *TypeTable) SubType(t *TagType) SubType {
	st := tt.SuperType(t)
	if st == nil {
		return SubTypeVoid
	}
	return st.SubType()
}

// TupleSize returns the element count of a tuple type.
func (tt *TypeTable) TupleSize(t *TagType) int {
	st := tt.SuperType(t)
	if st == nil {
		return 0
	}
	return int(st.SubTypeFlags >> 8)
}

// ByteSize returns the byte size declared by t's super type.
func (tt *TypeTable) ByteSize(t *TagType) int {
	st := tt.SuperType(t)
	if st == nil {
		return 0
	}
	return st.ByteSize
}

// AllMembers returns the inherited members followed by t's own members.
func (tt *TypeTable) AllMembers(t *TagType) []Member {
	var chain []*TagType
	for steps := 0; t != nil && steps < len(tt.types); steps++ {
		chain = append(chain, t)
		t = tt.Parent(t)
	}

	var members []Member
	for i := len(chain) - 1; i >= 0; i-- {
		members = append(members, chain[i].Members...)
	}
	return members
}

// IsA reports whether t is named name or inherits from a type named name.
func (tt *TypeTable) IsA(t *TagType, name string) bool {
	for steps := 0; t != nil && steps < len(tt.types); steps++ {
		if t.Name == name {
			return true
		}
		t = tt.Parent(t)
	}
	return false
}

// Validate checks that every reference points into the table, that the
// parent and pointee relations are acyclic and that no type contains itself
// by value.
func (tt *TypeTable) Validate() error {
	inRange := func(id TypeID) bool {
		return id >= NoType && int(id) < len(tt.types)
	}

	for _, t := range tt.Types() {
		if !inRange(t.Parent) || !inRange(t.Pointee) {
			return errors.Wrapf(ErrBadTypeRef, "type %d (%s)", t.ID, t.Name)
		}
		for _, m := range t.Members {
			if !inRange(m.Type) {
				return errors.Wrapf(ErrBadTypeRef, "member %s.%s", t.Name, m.Name)
			}
		}
		for _, tp := range t.Templates {
			if tp.IsType() && !inRange(TypeID(tp.Value)) {
				return errors.Wrapf(ErrBadTypeRef, "template %s of type %d (%s)", tp.Name, t.ID, t.Name)
			}
		}
	}

	if err := tt.checkAcyclic("parent/pointee", func(t *TagType) []TypeID {
		return []TypeID{t.Parent, t.Pointee}
	}); err != nil {
		return err
	}

	// Parent and pointee chains are known to terminate from here on, so
	// SuperType is safe to call.
	return tt.checkAcyclic("by-value member", tt.containedTypes)
}

// containedTypes returns the types whose storage is laid out inside t:
// its parent, members held by value and the element of a tuple.
func (tt *TypeTable) containedTypes(t *TagType) []TypeID {
	byValue := func(id TypeID) bool {
		switch tt.SubType(tt.Get(id)) {
		case SubTypeClass, SubTypeTuple:
			return true
		}
		return false
	}

	out := []TypeID{t.Parent}
	for _, m := range t.Members {
		if byValue(m.Type) {
			out = append(out, m.Type)
		}
	}
	if t.Flags&TypeHasSubType != 0 && t.SubType() == SubTypeTuple && byValue(t.Pointee) {
		out = append(out, t.Pointee)
	}
	return out
}

// checkAcyclic runs a depth-first search over the edges returned by next.
func (tt *TypeTable) checkAcyclic(what string, next func(*TagType) []TypeID) error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make([]int, len(tt.types))

	var visit func(id TypeID) error
	visit = func(id TypeID) error {
		if id == NoType {
			return nil
		}
		switch state[id] {
		case visiting:
			return errors.Wrapf(ErrTypeCycle, "%s cycle through type %d (%s)", what, id, tt.types[id].Name)
		case done:
			return nil
		}
		state[id] = visiting
		for _, n := range next(tt.types[id]) {
			if err := visit(n); err != nil {
				return err
			}
		}
		state[id] = done
		return nil
	}

	for id := range tt.types {
		if err := visit(TypeID(id)); err != nil {
			return err
		}
	}
	return nil
}

// NewObject creates an empty object of type t with its kind resolved.
func (tt *TypeTable) NewObject(t *TagType, name string) *Object {
	return &Object{Type: t, Kind: tt.SubType(t), Name: name}
}
