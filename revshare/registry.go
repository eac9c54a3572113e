package revshare

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	tableHeaderSize = 12 // index(8) + num_entries(4)
	tableEntrySize  = 28 // address(20) + percentage(8)
)

// SerializeTable serializes a recipient table to binary format.
func SerializeTable(t *Table) ([]byte, error) {
	if len(t.Recipients) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d entries", ErrTooManyEntries, len(t.Recipients))
	}
	buf := make([]byte, tableHeaderSize+tableEntrySize*len(t.Recipients))
	offset := 0

	binary.BigEndian.PutUint64(buf[offset:offset+8], t.Index)
	offset += 8

	binary.BigEndian.PutUint32(buf[offset:offset+4], uint32(len(t.Recipients)))
	offset += 4

	for _, r := range t.Recipients {
		copy(buf[offset:offset+20], r.Address[:])
		offset += 20
		binary.BigEndian.PutUint64(buf[offset:offset+8], r.Percentage)
		offset += 8
	}
	return buf, nil
}

// DeserializeTable decodes binary data into a recipient table.
// It does not re-run BuildTable; callers restoring persisted state trust
// that the table was validated when it was written.
func DeserializeTable(data []byte) (*Table, error) {
	if len(data) < tableHeaderSize {
		return nil, fmt.Errorf("%w: too short (%d bytes)", ErrInvalidTableData, len(data))
	}
	offset := 0

	t := &Table{}
	t.Index = binary.BigEndian.Uint64(data[offset : offset+8])
	offset += 8

	numEntries := int(binary.BigEndian.Uint32(data[offset : offset+4]))
	offset += 4

	expectedSize := tableHeaderSize + tableEntrySize*numEntries
	if len(data) != expectedSize {
		return nil, fmt.Errorf("%w: expected %d bytes for %d entries, got %d",
			ErrInvalidTableData, expectedSize, numEntries, len(data))
	}

	t.Recipients = make([]Recipient, numEntries)
	for i := 0; i < numEntries; i++ {
		copy(t.Recipients[i].Address[:], data[offset:offset+20])
		offset += 20
		t.Recipients[i].Percentage = binary.BigEndian.Uint64(data[offset : offset+8])
		offset += 8
	}
	return t, nil
}
