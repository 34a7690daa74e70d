// Package tagfile reads and writes the physics engine's self-describing
// binary tag files (TAG0). A file carries its own type table; objects are
// decoded by walking that table rather than a compiled-in schema.
package tagfile

import (
	"encoding/binary"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// SupportedSDK is the only SDK version the codec accepts.
const SupportedSDK = "2015.01.00"

// Tag file errors.
var (
	ErrTruncated         = errors.New("truncated tag file data")
	ErrUnknownSignature  = errors.New("unknown part signature")
	ErrMissingPart       = errors.New("required part missing")
	ErrUnsupportedSDK    = errors.New("unsupported SDK version")
	ErrUnknownTypeFlags  = errors.New("unknown type body flags")
	ErrBadTypeRef        = errors.New("type reference out of range")
	ErrBadStringRef      = errors.New("string reference out of range")
	ErrTypeCycle         = errors.New("cycle in type parent/pointee chain")
	ErrItemCycle         = errors.New("item references itself")
	ErrNoRoot            = errors.New("root item missing")
	ErrNoSubType         = errors.New("type has no concrete subtype")
	ErrBadSubType        = errors.New("unsupported subtype")
	ErrStringUnsupported = errors.New("string fields are not supported")
	ErrMissingMember     = errors.New("class member missing")
	ErrTupleCount        = errors.New("tuple element count mismatch")
	ErrPointerChildren   = errors.New("pointer must have exactly one target")
	ErrBadValue          = errors.New("value does not match field type")
)

// Options control byte-level details the part headers do not describe.
type Options struct {
	// ByteOrder of DATA payload values and ITEM records. Part headers and
	// packed integers are always big-endian whatever this says.
	ByteOrder binary.ByteOrder
}

// DefaultOptions reads and writes the whole file big-endian.
func DefaultOptions() Options {
	return Options{ByteOrder: binary.BigEndian}
}

// File is a decoded tag file.
type File struct {
	SDKVersion string // Raw SDKV payload, NUL padding removed
	Types      *TypeTable
	Items      *ItemTable
	Root       *Object

	TypePadding     []byte // TPAD payload, written back verbatim
	hasTypePointers bool
	opts            Options
}

// New creates a file around an existing type table and root object.
func New(types *TypeTable, root *Object, opts Options) *File {
	if opts.ByteOrder == nil {
		opts.ByteOrder = binary.BigEndian
	}
	return &File{
		SDKVersion: "20150100",
		Types:      types,
		Items:      newItemTable(),
		Root:       root,
		opts:       opts,
	}
}

// Load reads and decodes a tag file from disk.
func Load(path string) (*File, error) {
	return LoadWithOptions(path, DefaultOptions())
}

// LoadWithOptions reads and decodes a tag file from disk.
func LoadWithOptions(path string, opts Options) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading tag file")
	}
	f, err := ParseWithOptions(data, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	return f, nil
}

// Parse decodes a tag file held in memory.
func Parse(data []byte) (*File, error) {
	return ParseWithOptions(data, DefaultOptions())
}

// ParseWithOptions decodes a tag file held in memory.
func ParseWithOptions(data []byte, opts Options) (*File, error) {
	if opts.ByteOrder == nil {
		opts.ByteOrder = binary.BigEndian
	}

	root, err := ReadPart(data, 0)
	if err != nil {
		return nil, err
	}
	if root.Signature != SigTag0 {
		return nil, errors.Wrapf(ErrMissingPart, "expected %s at file start, got %s", SigTag0, root.Signature)
	}

	sdkv, err := requirePart(root, SigSDKV)
	if err != nil {
		return nil, err
	}
	f := &File{
		SDKVersion: strings.TrimRight(string(sdkv.Payload(data)), "\x00"),
		opts:       opts,
	}
	if v := f.Version(); v != SupportedSDK {
		return nil, errors.Wrapf(ErrUnsupportedSDK, "%q", v)
	}

	dataPart, err := requirePart(root, SigData)
	if err != nil {
		return nil, err
	}

	if err := f.readTypes(data, root); err != nil {
		return nil, errors.Wrap(err, "reading types")
	}

	indx, err := requirePart(root, SigIndx)
	if err != nil {
		return nil, err
	}
	itemPart, err := requirePart(indx, SigItem)
	if err != nil {
		return nil, err
	}
	f.Items, err = readItems(itemPart.Payload(data), opts.ByteOrder, dataPart.DataOffset(), f.Types)
	if err != nil {
		return nil, errors.Wrap(err, "reading items")
	}

	d := &decoder{
		data:      data[:dataPart.Offset+dataPart.Size],
		order:     opts.ByteOrder,
		types:     f.Types,
		items:     f.Items,
		expanding: make(map[int]bool),
	}
	f.Root, err = d.readRoot()
	if err != nil {
		return nil, errors.Wrap(err, "reading objects")
	}

	return f, nil
}

func (f *File) readTypes(data []byte, root *Part) error {
	typ, err := requirePart(root, SigType)
	if err != nil {
		return err
	}

	var parts [4]*Part
	for i, sig := range []string{SigTStr, SigTNam, SigFStr, SigTBod} {
		if parts[i], err = requirePart(typ, sig); err != nil {
			return err
		}
	}

	f.Types, err = readTypeNames(parts[1].Payload(data), readStrings(parts[0].Payload(data)))
	if err != nil {
		return err
	}
	if err := readTypeBodies(f.Types, parts[3].Payload(data), readStrings(parts[2].Payload(data))); err != nil {
		return err
	}

	if pad := typ.Child(SigTPad); pad != nil {
		f.TypePadding = append([]byte(nil), pad.Payload(data)...)
	}
	f.hasTypePointers = typ.Child(SigTPtr) != nil

	return f.Types.Validate()
}

func requirePart(parent *Part, sig string) (*Part, error) {
	p := parent.Child(sig)
	if p == nil {
		return nil, errors.Wrapf(ErrMissingPart, "%s in %s", sig, parent.Signature)
	}
	return p, nil
}

// Version returns the SDK version in dotted form, e.g. "2015.01.00".
func (f *File) Version() string {
	v := f.SDKVersion
	if len(v) == 8 && !strings.Contains(v, ".") {
		return v[:4] + "." + v[4:6] + "." + v[6:]
	}
	return v
}

// Bytes encodes the file. The item table is rebuilt from the object tree.
func (f *File) Bytes() ([]byte, error) {
	if f.Root == nil {
		return nil, ErrNoRoot
	}

	e := newEncoder(f.Types, f.opts.ByteOrder)
	if err := e.rebuildItems(f.Root); err != nil {
		return nil, err
	}
	payload, err := e.writeData()
	if err != nil {
		return nil, err
	}
	sections := encodeTypes(f.Types)

	b := &partBuilder{}
	b.begin(SigTag0)
	b.leaf(SigSDKV, []byte(f.SDKVersion))
	b.begin(SigData)
	dataBase := len(b.buf)
	b.buf = append(b.buf, payload...)
	b.end(true)

	b.begin(SigType)
	if f.hasTypePointers {
		b.leaf(SigTPtr, make([]byte, 8*f.Types.Len()))
	}
	b.leaf(SigTStr, sections.typeStrings)
	b.leaf(SigTNam, sections.typeNames)
	b.leaf(SigFStr, sections.fieldStrings)
	b.leaf(SigTBod, sections.typeBodies)
	b.leaf(SigTPad, f.TypePadding)
	b.end(false)

	b.begin(SigIndx)
	b.leaf(SigItem, e.itemRecords())
	b.end(false)

	b.end(false)

	f.Items = e.itemTable(dataBase)
	return b.bytes(), nil
}

// Save encodes the file and writes it to path. Nothing is written when
// encoding fails.
func (f *File) Save(path string) ([]byte, error) {
	data, err := f.Bytes()
	if err != nil {
		return nil, errors.Wrap(err, "encoding tag file")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, errors.Wrap(err, "writing tag file")
	}
	return data, nil
}
