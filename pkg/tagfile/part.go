package tagfile

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

const (
	partHeaderSize = 8
	partSizeMask   = 0x3FFFFFFF

	// partFlagLeaf is set in the top two bits of every leaf header we write.
	partFlagLeaf = 0x40000000
)

// Part signatures.
const (
	SigTag0 = "TAG0"
	SigSDKV = "SDKV"
	SigData = "DATA"
	SigType = "TYPE"
	SigTPtr = "TPTR"
	SigTPad = "TPAD"
	SigTStr = "TSTR"
	SigTNam = "TNAM"
	SigFStr = "FSTR"
	SigTBod = "TBOD"
	SigTBdy = "TBDY"
	SigTHsh = "THSH"
	SigIndx = "INDX"
	SigItem = "ITEM"
	SigPtch = "PTCH"
)

// knownSignatures maps every accepted signature to whether it is a container.
var knownSignatures = map[string]bool{
	SigTag0: true,
	SigType: true,
	SigIndx: true,
	SigSDKV: false,
	SigData: false,
	SigTPtr: false,
	SigTPad: false,
	SigTStr: false,
	SigTNam: false,
	SigFStr: false,
	SigTBod: false,
	SigTBdy: false,
	SigTHsh: false,
	SigItem: false,
	SigPtch: false,
}

// Part is one length-prefixed, signature-tagged section of a tag file.
type Part struct {
	Signature string
	Offset    int   // Offset of the header in the file
	Size      int   // Total size including header, children and padding
	Flag      uint8 // Top two bits of the size word
	Children  []*Part
}

// IsContainer reports whether the part's signature may hold child parts.
func (p *Part) IsContainer() bool {
	return knownSignatures[p.Signature]
}

// IsLeaf reports whether the leaf flag was set in the header.
func (p *Part) IsLeaf() bool {
	return p.Flag&0x1 != 0
}

// DataOffset returns the file offset of the first byte after the header.
func (p *Part) DataOffset() int {
	return p.Offset + partHeaderSize
}

// Payload returns the bytes following the header, padding included.
func (p *Part) Payload(data []byte) []byte {
	return data[p.DataOffset() : p.Offset+p.Size]
}

// Child returns the first direct child with the given signature.
func (p *Part) Child(sig string) *Part {
	for _, c := range p.Children {
		if c.Signature == sig {
			return c
		}
	}
	return nil
}

// ReadPart decodes the part header at off and, for containers, all nested parts.
func ReadPart(data []byte, off int) (*Part, error) {
	if off < 0 || off+partHeaderSize > len(data) {
		return nil, errors.Wrapf(ErrTruncated, "part header at 0x%x", off)
	}

	word := binary.BigEndian.Uint32(data[off:])
	p := &Part{
		Signature: string(data[off+4 : off+8]),
		Offset:    off,
		Size:      int(word & partSizeMask),
		Flag:      uint8(word >> 30),
	}

	container, ok := knownSignatures[p.Signature]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownSignature, "%q at 0x%x", p.Signature, off)
	}
	if p.Size < partHeaderSize || off+p.Size > len(data) {
		return nil, errors.Wrapf(ErrTruncated, "%s part at 0x%x declares %d bytes", p.Signature, off, p.Size)
	}

	if !container {
		return p, nil
	}

	end := off + p.Size
	for child := p.DataOffset(); child < end; {
		c, err := ReadPart(data[:end], child)
		if err != nil {
			return nil, errors.Wrapf(err, "inside %s", p.Signature)
		}
		p.Children = append(p.Children, c)
		child += c.Size
	}

	return p, nil
}

type patch struct {
	offset int
	value  uint32
}

// partBuilder writes a part tree into one append-only buffer. Header size
// words are reserved as zero placeholders and patched once the part closes.
type partBuilder struct {
	buf     []byte
	open    []int
	patches []patch
}

func (b *partBuilder) begin(sig string) {
	b.open = append(b.open, len(b.buf))
	b.buf = append(b.buf, 0, 0, 0, 0)
	b.buf = append(b.buf, sig[:4]...)
}

func (b *partBuilder) end(leaf bool) {
	start := b.open[len(b.open)-1]
	b.open = b.open[:len(b.open)-1]

	word := uint32(0)
	if leaf {
		payload := len(b.buf) - start - partHeaderSize
		b.pad(leafPadding(payload))
		word = partFlagLeaf
	}
	word |= uint32(len(b.buf)-start) & partSizeMask
	b.patches = append(b.patches, patch{offset: start, value: word})

	if len(b.open) == 0 {
		b.flush()
	}
}

// leaf writes a complete leaf part.
func (b *partBuilder) leaf(sig string, payload []byte) {
	b.begin(sig)
	b.buf = append(b.buf, payload...)
	b.end(true)
}

func (b *partBuilder) pad(n int) {
	for i := 0; i < n; i++ {
		b.buf = append(b.buf, 0)
	}
}

func (b *partBuilder) flush() {
	for _, p := range b.patches {
		binary.BigEndian.PutUint32(b.buf[p.offset:], p.value)
	}
	b.patches = b.patches[:0]
}

func (b *partBuilder) bytes() []byte {
	b.flush()
	return b.buf
}

// leafPadding returns the bytes needed to bring a payload to a 4-byte boundary.
func leafPadding(n int) int {
	return (4 - n%4) % 4
}
