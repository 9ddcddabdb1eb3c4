package msbt

import (
	"encoding/binary"
	"fmt"
)

// groupCounts is the LBL1 bucket-count growth table. DefaultGroupCount picks
// the first value that keeps the average bucket at two labels or fewer.
var groupCounts = []uint32{101, 211, 431, 863, 1733, 3469, 6949, 13901, 27803, 55609}

const maxLabelLen = 0xFF

// DefaultGroupCount returns the bucket count used for n labels when a
// document does not carry one.
func DefaultGroupCount(n int) uint32 {
	for _, g := range groupCounts {
		if uint64(n) <= 2*uint64(g) {
			return g
		}
	}
	return groupCounts[len(groupCounts)-1]
}

// LabelHash returns the bucket of label in a table of groups buckets. The
// hash runs over the label's bytes as stored in LBL1.
func LabelHash(label string, groups uint32) uint32 {
	var h uint32
	for i := 0; i < len(label); i++ {
		h = h*0x492 + uint32(label[i])
	}
	if groups == 0 {
		return h
	}
	return h % groups
}

type labelRecord struct {
	Label  string
	Index  uint32
	Bucket uint32
}

// decodeLabels parses an LBL1 payload. The result is ordered by entry index;
// bucket structure is kept only for inspection.
func decodeLabels(payload []byte, order binary.ByteOrder, limits Limits) ([]labelRecord, uint32, error) {
	c := newCursor(payload, order)
	groups, err := c.u32()
	if err != nil {
		return nil, 0, err
	}
	if uint64(groups)*8 > uint64(c.remaining()) {
		return nil, 0, fmt.Errorf("%w: %d buckets do not fit in %d bytes", ErrUnexpectedEOF, groups, len(payload))
	}

	var records []labelRecord
	seen := make(map[string]struct{})
	for g := uint32(0); g < groups; g++ {
		_ = c.seek(4 + int(g)*8)
		count, _ := c.u32()
		offset, _ := c.u32()
		if err := c.seek(int(offset)); err != nil {
			return nil, 0, fmt.Errorf("%w: bucket %d offset %d", ErrMalformedLabelTable, g, offset)
		}
		for ri := uint32(0); ri < count; ri++ {
			n, err := c.u8()
			if err != nil {
				return nil, 0, err
			}
			b, err := c.bytes(int(n))
			if err != nil {
				return nil, 0, err
			}
			idx, err := c.u32()
			if err != nil {
				return nil, 0, err
			}
			label := string(b)
			if _, ok := seen[label]; ok {
				return nil, 0, fmt.Errorf("%w: %q", ErrDuplicateLabel, label)
			}
			seen[label] = struct{}{}
			records = append(records, labelRecord{Label: label, Index: idx, Bucket: g})
			if len(records) > limits.MaxEntries {
				return nil, 0, fmt.Errorf("%w: more than %d labels", ErrLimitExceeded, limits.MaxEntries)
			}
		}
	}

	ordered := make([]labelRecord, len(records))
	filled := make([]bool, len(records))
	for _, r := range records {
		if int64(r.Index) >= int64(len(records)) || filled[r.Index] {
			return nil, 0, fmt.Errorf("%w: index %d of %q is not dense in 0..%d", ErrMalformedLabelTable, r.Index, r.Label, len(records))
		}
		ordered[r.Index] = r
		filled[r.Index] = true
	}
	return ordered, groups, nil
}

// encodeLabels builds an LBL1 payload for labels, where a label's position is
// its entry index. Within a bucket labels keep the order of the slice.
func encodeLabels(labels []string, groups uint32, order binary.ByteOrder) ([]byte, error) {
	if groups == 0 {
		groups = DefaultGroupCount(len(labels))
	}
	buckets := make([][]int, groups)
	seen := make(map[string]struct{}, len(labels))
	for i, label := range labels {
		if label == "" {
			return nil, fmt.Errorf("%w: entry %d", ErrEmptyLabel, i)
		}
		if len(label) > maxLabelLen {
			return nil, fmt.Errorf("%w: %q is %d bytes", ErrLabelTooLong, label, len(label))
		}
		if _, ok := seen[label]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateLabel, label)
		}
		seen[label] = struct{}{}
		b := LabelHash(label, groups)
		buckets[b] = append(buckets[b], i)
	}

	w := newWriter(order)
	w.u32(groups)
	offset := 4 + int(groups)*8
	for _, bucket := range buckets {
		w.u32(uint32(len(bucket)))
		w.u32(uint32(offset))
		for _, i := range bucket {
			offset += 1 + len(labels[i]) + 4
		}
	}
	for _, bucket := range buckets {
		for _, i := range bucket {
			w.u8(uint8(len(labels[i])))
			w.raw([]byte(labels[i]))
			w.u32(uint32(i))
		}
	}
	return w.bytes(), nil
}
