package msbt

import "fmt"

// SectionInfo describes one framed section as stored in a file.
type SectionInfo struct {
	Magic  string
	Offset int // offset of the section header
	Length uint32
}

// Info is the raw layout of an MSBT file, including the redundant fields
// Decode ignores.
type Info struct {
	Header       Header
	SectionCount uint16 // as stored
	FileSize     uint32 // as stored
	Sections     []SectionInfo
	GroupCount   uint32
	// Buckets maps each label to the LBL1 bucket it was stored in.
	Buckets map[string]uint32
}

// Inspect reads the layout of buf without decoding entry text.
func Inspect(buf []byte, opts ...ReadOption) (*Info, error) {
	cfg := readConfig{limits: defaultLimits()}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.limits = cfg.limits.withDefaults()

	fh, order, err := readFixedHeader(buf)
	if err != nil {
		return nil, err
	}
	info := &Info{
		Header:       Header{ByteOrder: order, Encoding: Encoding(fh.Encoding), Version: fh.Version},
		SectionCount: fh.SectionCount,
		FileSize:     fh.FileSize,
	}
	c := newCursor(buf, order.binary())
	_ = c.seek(headerSize)
	for c.remaining() > 0 {
		off := c.off
		s, err := readSection(c, cfg.limits)
		if err != nil {
			return nil, err
		}
		info.Sections = append(info.Sections, SectionInfo{Magic: s.name(), Offset: off, Length: uint32(len(s.Payload))})
		if s.Magic != MagicLBL1 {
			continue
		}
		labels, groups, err := decodeLabels(s.Payload, order.binary(), cfg.limits)
		if err != nil {
			return nil, fmt.Errorf("LBL1: %w", err)
		}
		info.GroupCount = groups
		info.Buckets = make(map[string]uint32, len(labels))
		for _, l := range labels {
			info.Buckets[l.Label] = l.Bucket
		}
	}
	return info, nil
}
