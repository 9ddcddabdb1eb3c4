// Package msbt implements the MSBT binary message table format.
//
// MSBT files store per-label strings for game engines. Each string is a
// sequence of plain text and embedded control tags (formatting, pauses, icons)
// whose parameters this package keeps as opaque bytes.
//
// # File Format Overview
//
// An MSBT file consists of:
//   - A 32-byte header with magic bytes, byte-order mark, encoding and version
//   - A list of sections, each with a 16-byte header and padded to 16 bytes:
//   - LBL1: a hash table from labels to entry indices
//   - ATR1: fixed-width attribute bytes per entry
//   - NLI1: optional style id per entry
//   - TXT2: an offset table and the UTF-16 or UTF-8 entry strings
//
// Every multi-byte integer follows the byte order selected by the header:
// big endian for Wii U files, little endian for Switch files. Sections this
// package does not know are carried through unchanged as [RawSection].
//
// # Basic Usage
//
// To read an MSBT file:
//
//	f, _ := os.Open("ArmorHead.msbt")
//	defer f.Close()
//	doc, err := msbt.Decode(f)
//
// To write one:
//
//	doc := &msbt.Document{
//		Entries: []msbt.Entry{
//			{Label: "Armor_001_Head", Contents: []msbt.Run{msbt.TextRun("Hylian Hood")}},
//		},
//	}
//	err := msbt.Encode(f, doc, msbt.WithByteOrder(msbt.BigEndian))
//
// Decoding and re-encoding an unmodified file reproduces it byte for byte as
// long as it uses the canonical layout: labels of each hash bucket in index
// order, section order LBL1, NLI1, ATR1, others, TXT2, zero padding and a NUL
// terminator on every string.
//
// The MSYT tree form of a document lives in package msyt.
package msbt
