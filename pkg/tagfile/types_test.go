package tagfile

import (
	"errors"
	"math/rand"
	"testing"
)

func TestTypeTable_Queries(t *testing.T) {
	tt := makeFixtureTypes()

	derived := tt.Get(tDerived)
	if st := tt.SuperType(derived); st != derived {
		t.Errorf("SuperType(Derived) = %s, want Derived", st)
	}

	members := tt.AllMembers(derived)
	var names []string
	for _, m := range members {
		names = append(names, m.Name)
	}
	want := []string{"id", "flag", "pos", "child", "values"}
	if len(names) != len(want) {
		t.Fatalf("AllMembers = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("AllMembers[%d] = %s, want %s", i, names[i], want[i])
		}
	}

	if got := tt.TupleSize(tt.Get(tVector4)); got != 4 {
		t.Errorf("TupleSize(hkVector4) = %d, want 4", got)
	}
	if got := tt.SubType(tt.Get(tReal)); got != SubTypeFloat {
		t.Errorf("SubType(hkReal) = %s, want Float", got)
	}
	if got := tt.SubType(tt.Get(tVector4)); got != SubTypeTuple {
		t.Errorf("SubType(hkVector4) = %s, want Tuple", got)
	}
	if !tt.IsA(derived, "Base") {
		t.Error("Derived should inherit from Base")
	}
	if tt.Get(NoType) != nil || tt.Get(TypeID(tt.Len())) != nil {
		t.Error("Get should return nil for sentinel and out-of-range IDs")
	}
}

func TestTypeTable_SuperTypeSkipsTypedefs(t *testing.T) {
	tt := NewTypeTable(3)
	base := tt.Get(1)
	base.Name = "hkInt32"
	base.Flags = TypeHasSubType | TypeHasSize
	base.SubTypeFlags = uint32(SubTypeInt) | SubTypeInt32 | SubTypeSigned
	base.ByteSize = 4

	alias := tt.Get(2)
	alias.Name = "hkpShapeKey"
	alias.Parent = 1

	if st := tt.SuperType(alias); st != base {
		t.Fatalf("SuperType(alias) = %s, want hkInt32", st)
	}
	if tt.ByteSize(alias) != 4 {
		t.Errorf("ByteSize(alias) = %d, want 4", tt.ByteSize(alias))
	}
}

func TestTypeTable_ValidateRejectsCycles(t *testing.T) {
	tests := []struct {
		name  string
		build func(tt *TypeTable)
	}{
		{"self parent", func(tt *TypeTable) { tt.Get(1).Parent = 1 }},
		{"parent loop", func(tt *TypeTable) {
			tt.Get(1).Parent = 2
			tt.Get(2).Parent = 3
			tt.Get(3).Parent = 1
		}},
		{"pointee loop", func(tt *TypeTable) {
			tt.Get(1).Pointee = 2
			tt.Get(2).Parent = 1
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tt := NewTypeTable(4)
			tc.build(tt)
			if err := tt.Validate(); !errors.Is(err, ErrTypeCycle) {
				t.Errorf("expected ErrTypeCycle, got %v", err)
			}
		})
	}
}

func TestTypeTable_ValidateRejectsSelfContainment(t *testing.T) {
	class := func(tt *TypeTable, id TypeID, name string, members ...Member) {
		c := tt.Get(id)
		c.Name, c.Flags, c.SubTypeFlags, c.ByteSize, c.Alignment =
			name, TypeHasSubType|TypeHasSize|TypeHasMembers, uint32(SubTypeClass), 16, 4
		c.Members = members
	}

	tests := []struct {
		name    string
		build   func(tt *TypeTable)
		wantErr error
	}{
		{"member of own type", func(tt *TypeTable) {
			class(tt, 1, "Node", Member{Name: "self", Type: 1})
		}, ErrTypeCycle},
		{"mutual containment", func(tt *TypeTable) {
			class(tt, 1, "A", Member{Name: "b", Type: 2})
			class(tt, 2, "B", Member{Name: "a", Type: 1})
		}, ErrTypeCycle},
		{"through tuple element", func(tt *TypeTable) {
			class(tt, 1, "Cell", Member{Name: "ring", Type: 2})
			ring := tt.Get(2)
			ring.Name, ring.Flags, ring.SubTypeFlags, ring.Pointee =
				"Cell[2]", TypeHasSubType|TypeHasSize, 2<<8|uint32(SubTypeTuple), 1
		}, ErrTypeCycle},
		{"through typedef", func(tt *TypeTable) {
			class(tt, 1, "Node", Member{Name: "alias", Type: 2})
			tt.Get(2).Name, tt.Get(2).Parent = "NodeAlias", 1
		}, ErrTypeCycle},
		{"self pointer is fine", func(tt *TypeTable) {
			class(tt, 1, "Node", Member{Name: "next", Type: 2})
			ptr := tt.Get(2)
			ptr.Name, ptr.Flags, ptr.SubTypeFlags, ptr.Pointee =
				"Node*", TypeHasSubType|TypeHasSize, uint32(SubTypePointer), 1
		}, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tt := NewTypeTable(4)
			tc.build(tt)
			err := tt.Validate()
			if tc.wantErr == nil && err != nil {
				t.Fatalf("Validate() = %v, want nil", err)
			}
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestTypeTable_ValidateRejectsBadTemplateType(t *testing.T) {
	tt := NewTypeTable(3)
	tt.Get(1).Templates = []Template{{Name: "tT", Value: 99}, {Name: "vSize", Value: 99}}
	if err := tt.Validate(); !errors.Is(err, ErrBadTypeRef) {
		t.Errorf("expected ErrBadTypeRef, got %v", err)
	}

	// Value templates are plain integers and are not range-checked.
	tt.Get(1).Templates = []Template{{Name: "vSize", Value: 99}}
	if err := tt.Validate(); err != nil {
		t.Errorf("Validate() with value template = %v", err)
	}
}

func TestTypeTable_ValidateRejectsBadRefs(t *testing.T) {
	tt := NewTypeTable(3)
	tt.Get(2).Members = []Member{{Name: "x", Type: 42}}
	if err := tt.Validate(); !errors.Is(err, ErrBadTypeRef) {
		t.Errorf("expected ErrBadTypeRef, got %v", err)
	}
}

// TestTypeTable_AcyclicQueriesTerminate builds random acyclic graphs (every
// reference points at a lower ID) and checks the chain walks stay bounded.
func TestTypeTable_AcyclicQueriesTerminate(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 50; round++ {
		n := 2 + rng.Intn(64)
		tt := NewTypeTable(n)
		for id := 1; id < n; id++ {
			typ := tt.Get(TypeID(id))
			if id > 1 && rng.Intn(3) > 0 {
				typ.Parent = TypeID(1 + rng.Intn(id-1))
			}
			if id > 1 && rng.Intn(4) == 0 {
				typ.Pointee = TypeID(1 + rng.Intn(id-1))
			}
			if rng.Intn(3) == 0 {
				typ.Flags = TypeHasSubType
				typ.SubTypeFlags = uint32(SubTypeClass)
			}
			typ.Members = []Member{{Name: "m", Type: TypeID(rng.Intn(id))}}
		}

		if err := tt.Validate(); err != nil {
			t.Fatalf("round %d: acyclic graph rejected: %v", round, err)
		}

		for _, typ := range tt.Types() {
			depth := 0
			for p := typ; p != nil; p = tt.Parent(p) {
				depth++
				if depth > n {
					t.Fatalf("round %d: parent chain of %d exceeds %d", round, typ.ID, n)
				}
			}
			if got := len(tt.AllMembers(typ)); got != depth {
				t.Errorf("round %d: AllMembers(%d) = %d members, want %d", round, typ.ID, got, depth)
			}
			if st := tt.SuperType(typ); st != nil && st.Flags&TypeHasSubType == 0 {
				t.Errorf("round %d: SuperType(%d) has no subtype", round, typ.ID)
			}
		}
	}
}

func TestEncodeTypes_RoundTrip(t *testing.T) {
	tt := makeFixtureTypes()
	s := encodeTypes(tt)

	got, err := readTypeNames(s.typeNames, readStrings(s.typeStrings))
	if err != nil {
		t.Fatalf("readTypeNames failed: %v", err)
	}
	if err := readTypeBodies(got, s.typeBodies, readStrings(s.fieldStrings)); err != nil {
		t.Fatalf("readTypeBodies failed: %v", err)
	}

	if got.Len() != tt.Len() {
		t.Fatalf("decoded %d types, want %d", got.Len(), tt.Len())
	}
	for _, want := range tt.Types() {
		g := got.Get(want.ID)
		if g.Name != want.Name || g.Flags != want.Flags || g.SubTypeFlags != want.SubTypeFlags ||
			g.Parent != want.Parent || g.Pointee != want.Pointee || g.ByteSize != want.ByteSize ||
			g.Alignment != want.Alignment || g.Version != want.Version {
			t.Errorf("type %d: got %+v, want %+v", want.ID, g, want)
		}
		if len(g.Members) != len(want.Members) || len(g.Templates) != len(want.Templates) {
			t.Errorf("type %d: member/template count mismatch", want.ID)
			continue
		}
		for i := range want.Members {
			if g.Members[i] != want.Members[i] {
				t.Errorf("type %d member %d: got %+v, want %+v", want.ID, i, g.Members[i], want.Members[i])
			}
		}
		for i := range want.Templates {
			if g.Templates[i] != want.Templates[i] {
				t.Errorf("type %d template %d: got %+v, want %+v", want.ID, i, g.Templates[i], want.Templates[i])
			}
		}
	}

	ptr := got.Get(tDerivedPtr)
	if !ptr.Templates[0].IsType() || got.Get(TypeID(ptr.Templates[0].Value)).Name != "Derived" {
		t.Error("type template should resolve to Derived")
	}
	if got.Get(tInt16Array).Templates[1].IsType() {
		t.Error("value template reported as type template")
	}
}

func TestReadTypeBodies_UnknownFlag(t *testing.T) {
	tt := NewTypeTable(2)
	body := WritePacked(1)
	body = AppendPacked(body, 0)
	body = AppendPacked(body, 0x40)

	err := readTypeBodies(tt, body, nil)
	if !errors.Is(err, ErrUnknownTypeFlags) {
		t.Errorf("expected ErrUnknownTypeFlags, got %v", err)
	}
}

func TestReadTypeNames_BadStringRef(t *testing.T) {
	names := WritePacked(2)
	names = AppendPacked(names, 5)
	names = AppendPacked(names, 0)

	_, err := readTypeNames(names, []string{"only"})
	if !errors.Is(err, ErrBadStringRef) {
		t.Errorf("expected ErrBadStringRef, got %v", err)
	}
}

func TestReadTypeNames_CountExceedsPayload(t *testing.T) {
	names := WritePacked(0x1FFFFFFF)
	names = AppendPacked(names, 0)

	_, err := readTypeNames(names, []string{"only"})
	if !errors.Is(err, ErrTruncated) {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
}
