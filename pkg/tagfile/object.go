package tagfile

import "fmt"

// Object is one node of a decoded object tree. Class objects hold their
// members as named children, arrays and tuples hold their elements, and a
// non-null pointer holds its single target. Primitive leaves carry Value:
// bool, int64 (signed), uint64 (unsigned) or float32.
type Object struct {
	Type     *TagType
	Kind     SubType
	Name     string
	Children []*Object
	Value    any
}

// Member returns the named child of a class object.
func (o *Object) Member(name string) *Object {
	if o == nil {
		return nil
	}
	for _, c := range o.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Deref follows a pointer object to its target. Other objects are returned
// unchanged, a null pointer yields nil.
func (o *Object) Deref() *Object {
	if o == nil || o.Kind != SubTypePointer {
		return o
	}
	if len(o.Children) == 0 {
		return nil
	}
	return o.Children[0]
}

// Path follows member names from o, dereferencing pointers along the way.
func (o *Object) Path(names ...string) *Object {
	cur := o.Deref()
	for _, n := range names {
		cur = cur.Member(n).Deref()
		if cur == nil {
			return nil
		}
	}
	return cur
}

// TypeName returns the name of the object's type.
func (o *Object) TypeName() string {
	if o == nil {
		return ""
	}
	return o.Type.String()
}

// Clone returns a deep copy of o.
func (o *Object) Clone() *Object {
	if o == nil {
		return nil
	}
	c := &Object{Type: o.Type, Kind: o.Kind, Name: o.Name, Value: o.Value}
	if o.Children != nil {
		c.Children = make([]*Object, len(o.Children))
		for i, child := range o.Children {
			c.Children[i] = child.Clone()
		}
	}
	return c
}

// Walk visits o and its descendants depth-first until fn returns false.
func (o *Object) Walk(fn func(*Object) bool) bool {
	if o == nil {
		return true
	}
	if !fn(o) {
		return false
	}
	for _, c := range o.Children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// Float returns a numeric leaf as float32.
func (o *Object) Float() float32 {
	switch v := o.Value.(type) {
	case float32:
		return v
	case int64:
		return float32(v)
	case uint64:
		return float32(v)
	}
	return 0
}

// Int returns a numeric or boolean leaf as int64.
func (o *Object) Int() int64 {
	switch v := o.Value.(type) {
	case int64:
		return v
	case uint64:
		return int64(v)
	case float32:
		return int64(v)
	case bool:
		if v {
			return 1
		}
	}
	return 0
}

// SetFloat stores f in a float leaf.
func (o *Object) SetFloat(f float32) {
	o.Value = f
}

// SetInt stores v in an integer leaf, keeping the leaf's signedness.
func (o *Object) SetInt(v int64) {
	switch o.Value.(type) {
	case uint64:
		o.Value = uint64(v)
	case bool:
		o.Value = v != 0
	default:
		o.Value = v
	}
}

// String implements fmt.Stringer for debugging.
func (o *Object) String() string {
	if o == nil {
		return "<nil>"
	}
	if o.Value != nil {
		return fmt.Sprintf("%s %s = %v", o.Type, o.Name, o.Value)
	}
	return fmt.Sprintf("%s %s [%d]", o.Type, o.Name, len(o.Children))
}

// scalarBits converts a leaf value to the raw bits written for it.
func scalarBits(v any) (uint64, bool) {
	switch x := v.(type) {
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case int64:
		return uint64(x), true
	case uint64:
		return x, true
	case int:
		return uint64(x), true
	case int32:
		return uint64(x), true
	case uint32:
		return uint64(x), true
	case nil:
		return 0, true
	}
	return 0, false
}
