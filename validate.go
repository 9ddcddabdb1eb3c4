package msbt

import (
	"fmt"
)

var reservedSections = map[[4]byte]struct{}{
	MagicLBL1: {},
	MagicATR1: {},
	MagicNLI1: {},
	MagicTXT2: {},
}

func validateDocument(doc *Document, limits Limits) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrValidation)
	}
	switch doc.Header.Encoding {
	case UTF16, UTF8:
	default:
		return fmt.Errorf("%w: %d", ErrUnsupportedEncoding, doc.Header.Encoding)
	}
	switch doc.Header.ByteOrder {
	case LittleEndian, BigEndian:
	default:
		return fmt.Errorf("%w: %d", ErrBadByteOrder, doc.Header.ByteOrder)
	}
	if len(doc.Entries) > limits.MaxEntries {
		return fmt.Errorf("%w: too many entries", ErrLimitExceeded)
	}
	seen := make(map[string]struct{}, len(doc.Entries))
	for i := range doc.Entries {
		e := &doc.Entries[i]
		if e.Label == "" {
			return fmt.Errorf("%w: entry %d", ErrEmptyLabel, i)
		}
		if len(e.Label) > maxLabelLen {
			return fmt.Errorf("%w: %q is %d bytes", ErrLabelTooLong, e.Label, len(e.Label))
		}
		if _, ok := seen[e.Label]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateLabel, e.Label)
		}
		seen[e.Label] = struct{}{}
		if err := validateRuns(e.Contents); err != nil {
			return fmt.Errorf("entry %q: %w", e.Label, err)
		}
	}
	for _, s := range doc.Sections {
		if _, ok := reservedSections[s.Magic]; ok {
			return fmt.Errorf("%w: raw section %q shadows a known section", ErrValidation, s.Magic[:])
		}
		for _, b := range s.Magic {
			if b < 0x20 || b > 0x7E {
				return fmt.Errorf("%w: raw section magic % x is not printable", ErrValidation, s.Magic[:])
			}
		}
	}
	return nil
}

// validateRuns rejects text runs that would not survive a decode: an empty
// run vanishes and adjacent runs merge into one.
func validateRuns(runs []Run) error {
	for i, r := range runs {
		if r.Kind != RunText {
			continue
		}
		if r.Text == "" {
			return fmt.Errorf("%w: run %d is empty text", ErrValidation, i)
		}
		if i > 0 && runs[i-1].Kind == RunText {
			return fmt.Errorf("%w: runs %d and %d are adjacent text", ErrValidation, i-1, i)
		}
	}
	return nil
}

// attributeWidth resolves the ATR1 width. A zero width on a document whose
// entries carry attributes is taken from the first entry.
func attributeWidth(doc *Document) uint32 {
	if doc.AttributeWidth == 0 && len(doc.Entries) > 0 {
		return uint32(len(doc.Entries[0].Attributes))
	}
	return doc.AttributeWidth
}
