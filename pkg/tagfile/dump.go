package tagfile

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

type memberDump struct {
	Name   string `yaml:"name"`
	Offset int    `yaml:"offset"`
	Type   string `yaml:"type"`
}

type typeDump struct {
	ID        int          `yaml:"id"`
	Name      string       `yaml:"name"`
	Parent    string       `yaml:"parent,omitempty"`
	Kind      string       `yaml:"kind,omitempty"`
	Pointee   string       `yaml:"pointee,omitempty"`
	Version   int          `yaml:"version,omitempty"`
	Size      int          `yaml:"size,omitempty"`
	Align     int          `yaml:"align,omitempty"`
	Templates []string     `yaml:"templates,omitempty"`
	Members   []memberDump `yaml:"members,omitempty"`
}

// DumpTypes renders the type table as YAML.
func (f *File) DumpTypes() ([]byte, error) {
	tt := f.Types
	out := make([]typeDump, 0, tt.Len())
	for _, t := range tt.Types() {
		d := typeDump{
			ID:      int(t.ID),
			Name:    t.Name,
			Version: t.Version,
			Size:    t.ByteSize,
			Align:   t.Alignment,
		}
		if p := tt.Parent(t); p != nil {
			d.Parent = p.Name
		}
		if t.Flags&TypeHasSubType != 0 {
			d.Kind = t.SubType().String()
		}
		if p := tt.Pointee(t); p != nil {
			d.Pointee = p.Name
		}
		for _, tp := range t.Templates {
			if tp.IsType() {
				d.Templates = append(d.Templates, fmt.Sprintf("%s=%s", tp.Name, tt.Get(TypeID(tp.Value))))
			} else {
				d.Templates = append(d.Templates, fmt.Sprintf("%s=%d", tp.Name, tp.Value))
			}
		}
		for _, m := range t.Members {
			d.Members = append(d.Members, memberDump{Name: m.Name, Offset: m.ByteOffset, Type: tt.Get(m.Type).String()})
		}
		out = append(out, d)
	}
	return yaml.Marshal(out)
}

// DumpObjects renders the object tree as YAML. Class objects become
// mappings headed by their type name, arrays and tuples become sequences.
func (f *File) DumpObjects() ([]byte, error) {
	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{objectNode(f.Root)}}
	return yaml.Marshal(doc)
}

func objectNode(o *Object) *yaml.Node {
	if o == nil {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}

	switch o.Kind {
	case SubTypeClass:
		n := &yaml.Node{Kind: yaml.MappingNode}
		n.Content = append(n.Content, scalar("_type"), scalar(o.TypeName()))
		for _, c := range o.Children {
			n.Content = append(n.Content, scalar(c.Name), objectNode(c))
		}
		return n

	case SubTypeArray, SubTypeTuple:
		n := &yaml.Node{Kind: yaml.SequenceNode}
		if o.Kind == SubTypeTuple {
			n.Style = yaml.FlowStyle
		}
		for _, c := range o.Children {
			n.Content = append(n.Content, objectNode(c))
		}
		return n

	case SubTypePointer:
		return objectNode(o.Deref())
	}

	switch v := o.Value.(type) {
	case float32:
		return scalar(strconv.FormatFloat(float64(v), 'g', -1, 32))
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	default:
		return scalar(fmt.Sprint(v))
	}
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: v}
}
