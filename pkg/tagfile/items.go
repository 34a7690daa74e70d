package tagfile

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

const (
	itemRecordSize  = 12
	itemTypeMask    = 0x00FFFFFF
	itemFlagPointer = 0x10000000
)

// Item maps an item index to a run of objects in the DATA part.
type Item struct {
	Type      *TagType
	IsPointer bool
	Offset    int // Absolute file offset of the first element
	Count     int
}

// ItemTable is the decoded INDX/ITEM table. Index 0 is the sentinel and
// index 1 holds the root object.
type ItemTable struct {
	Items []*Item

	// objects memoizes the decoded objects of each expanded item, so every
	// pointer to the same item sees the same objects.
	objects map[int][]*Object
}

func newItemTable() *ItemTable {
	return &ItemTable{objects: make(map[int][]*Object)}
}

// Get returns the item at idx, or nil for the sentinel and out-of-range indices.
func (it *ItemTable) Get(idx int) *Item {
	if idx <= 0 || idx >= len(it.Items) {
		return nil
	}
	return it.Items[idx]
}

// Len returns the number of records including the sentinel.
func (it *ItemTable) Len() int {
	return len(it.Items)
}

// Objects returns the memoized objects of an expanded item.
func (it *ItemTable) Objects(idx int) ([]*Object, bool) {
	objs, ok := it.objects[idx]
	return objs, ok
}

func readItems(payload []byte, order binary.ByteOrder, dataBase int, tt *TypeTable) (*ItemTable, error) {
	it := newItemTable()

	n := len(payload) / itemRecordSize
	for i := 0; i < n; i++ {
		rec := payload[i*itemRecordSize:]
		word := order.Uint32(rec)
		item := &Item{
			IsPointer: word&itemFlagPointer != 0,
			Offset:    dataBase + int(order.Uint32(rec[4:])),
			Count:     int(order.Uint32(rec[8:])),
		}

		id := TypeID(word & itemTypeMask)
		if id != NoType {
			if item.Type = tt.Get(id); item.Type == nil {
				return nil, errors.Wrapf(ErrBadTypeRef, "item %d type %d", i, id)
			}
		}
		it.Items = append(it.Items, item)
	}

	if len(it.Items) == 0 {
		it.Items = append(it.Items, &Item{})
	}
	return it, nil
}
