package tagfile

// Type IDs of the synthetic fixture.
const (
	tUint32 TypeID = iota + 1
	tReal
	tVector4
	tBool
	tInt16
	tBase
	tDerived
	tDerivedPtr
	tInt16Array
	fixtureTypeCount = iota + 1
)

// makeFixtureTypes builds a small type table covering every supported kind:
//
//	Base    { id uint32 @0, flag bool @4 }                         size 8
//	Derived : Base { pos vector4 @16, child Derived* @8, values int16[] @32 } size 48
func makeFixtureTypes() *TypeTable {
	tt := NewTypeTable(int(fixtureTypeCount))

	set := func(id TypeID, name string, sub uint32, size, align int) *TagType {
		t := tt.Get(id)
		t.Name = name
		t.Flags = TypeHasSubType | TypeHasSize
		t.SubTypeFlags = sub
		t.ByteSize = size
		t.Alignment = align
		return t
	}

	set(tUint32, "hkUint32", uint32(SubTypeInt)|SubTypeInt32, 4, 4)
	set(tReal, "hkReal", uint32(SubTypeFloat)|0x1740, 4, 4)
	set(tVector4, "hkVector4", 4<<8|uint32(SubTypeTuple), 16, 16).Pointee = tReal
	set(tBool, "hkBool", uint32(SubTypeBool)|SubTypeInt8, 1, 1)
	set(tInt16, "hkInt16", uint32(SubTypeInt)|SubTypeInt16|SubTypeSigned, 2, 2)

	base := set(tBase, "Base", uint32(SubTypeClass), 8, 4)
	base.Flags |= TypeHasMembers | TypeHasVersion
	base.Version = 1
	base.Members = []Member{
		{Name: "id", ByteOffset: 0, Type: tUint32},
		{Name: "flag", ByteOffset: 4, Type: tBool},
	}

	derived := set(tDerived, "Derived", uint32(SubTypeClass), 48, 16)
	derived.Flags |= TypeHasMembers
	derived.Parent = tBase
	derived.Members = []Member{
		{Name: "pos", ByteOffset: 16, Type: tVector4},
		{Name: "child", ByteOffset: 8, Type: tDerivedPtr},
		{Name: "values", ByteOffset: 32, Type: tInt16Array},
	}

	ptr := set(tDerivedPtr, "T*", uint32(SubTypePointer), 8, 8)
	ptr.Pointee = tDerived
	ptr.Templates = []Template{{Name: "tT", Value: int(tDerived)}}

	arr := set(tInt16Array, "hkArray", uint32(SubTypeArray), 16, 8)
	arr.Pointee = tInt16
	arr.Templates = []Template{{Name: "tT", Value: int(tInt16)}, {Name: "vAllocator", Value: 0}}

	return tt
}

func leaf(tt *TypeTable, id TypeID, name string, v any) *Object {
	o := tt.NewObject(tt.Get(id), name)
	o.Value = v
	return o
}

func vector(tt *TypeTable, name string, x, y, z, w float32) *Object {
	o := tt.NewObject(tt.Get(tVector4), name)
	for _, f := range []float32{x, y, z, w} {
		o.Children = append(o.Children, leaf(tt, tReal, "", f))
	}
	return o
}

func derived(tt *TypeTable, id uint64, flag bool, child *Object, values ...int64) *Object {
	o := tt.NewObject(tt.Get(tDerived), "")
	ptr := tt.NewObject(tt.Get(tDerivedPtr), "child")
	if child != nil {
		ptr.Children = []*Object{child}
	}
	arr := tt.NewObject(tt.Get(tInt16Array), "values")
	for _, v := range values {
		arr.Children = append(arr.Children, leaf(tt, tInt16, "", v))
	}
	o.Children = []*Object{
		leaf(tt, tUint32, "id", id),
		leaf(tt, tBool, "flag", flag),
		vector(tt, "pos", 1, 2, 3, 4),
		ptr,
		arr,
	}
	return o
}

// makeFixtureFile returns a root Derived pointing at a second Derived.
func makeFixtureFile() *File {
	tt := makeFixtureTypes()
	child := derived(tt, 8, false, nil)
	root := derived(tt, 7, true, child, -1, 2, 300)
	return New(tt, root, DefaultOptions())
}
