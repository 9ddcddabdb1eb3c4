package batch

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"

	"github.com/logicossoftware/go-msbt"
)

// ErrCorruptInput reports a compressed input that could not be expanded.
var ErrCorruptInput = errors.New("batch: corrupt compressed input")

// Compression selects the wrapper applied to an output file. The value is the
// file name suffix without the dot.
type Compression string

const (
	CompressionNone   Compression = ""
	CompressionZstd   Compression = "zs"
	CompressionLZ4    Compression = "lz4"
	CompressionBrotli Compression = "br"
	CompressionXZ     Compression = "xz"
)

var compressions = []Compression{CompressionZstd, CompressionLZ4, CompressionBrotli, CompressionXZ}

// ParseCompression accepts a suffix ("zs", ".lz4") or an empty string.
func ParseCompression(s string) (Compression, error) {
	s = strings.TrimPrefix(strings.ToLower(s), ".")
	if s == "" || s == "none" {
		return CompressionNone, nil
	}
	for _, c := range compressions {
		if string(c) == s {
			return c, nil
		}
	}
	return CompressionNone, fmt.Errorf("%w: unknown compression %q", msbt.ErrValidation, s)
}

func (c Compression) suffix() string {
	if c == CompressionNone {
		return ""
	}
	return "." + string(c)
}

// splitCompression returns the compression implied by the file name and the
// name without its compression suffix.
func splitCompression(path string) (Compression, string) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, c := range compressions {
		if ext == c.suffix() {
			return c, path[:len(path)-len(ext)]
		}
	}
	return CompressionNone, path
}

// Function variables for testing injection.
var (
	newZstdWriter = func() (*zstd.Encoder, error) { return zstd.NewWriter(nil) }
	newZstdReader = func() (*zstd.Decoder, error) { return zstd.NewReader(nil) }
	xzNewWriter   = xz.NewWriter
	xzNewReader   = xz.NewReader
	readAll       = io.ReadAll
	lz4Close      = func(w *lz4.Writer) error { return w.Close() }
	brotliClose   = func(w *brotli.Writer) error { return w.Close() }
	brotliWrite   = func(w *brotli.Writer, p []byte) (int, error) { return w.Write(p) }
)

func compress(c Compression, in []byte) ([]byte, error) {
	switch c {
	case CompressionNone:
		return in, nil
	case CompressionZstd:
		return zstdCompress(in)
	case CompressionLZ4:
		return lz4Compress(in)
	case CompressionBrotli:
		return brotliCompress(in)
	case CompressionXZ:
		return xzCompress(in)
	}
	return nil, fmt.Errorf("%w: unknown compression %q", msbt.ErrValidation, string(c))
}

// decompress expands in and rejects output larger than max bytes.
func decompress(c Compression, in []byte, max uint64) ([]byte, error) {
	var r io.Reader
	switch c {
	case CompressionNone:
		if uint64(len(in)) > max {
			return nil, fmt.Errorf("%w: file is %d bytes, limit %d", msbt.ErrLimitExceeded, len(in), max)
		}
		return in, nil
	case CompressionZstd:
		dec, err := newZstdReader()
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		if err := dec.Reset(bytes.NewReader(in)); err != nil {
			return nil, fmt.Errorf("%w: zstd: %w", ErrCorruptInput, err)
		}
		r = dec
	case CompressionLZ4:
		r = lz4.NewReader(bytes.NewReader(in))
	case CompressionBrotli:
		r = brotli.NewReader(bytes.NewReader(in))
	case CompressionXZ:
		xr, err := xzNewReader(bytes.NewReader(in))
		if err != nil {
			return nil, fmt.Errorf("%w: xz: %w", ErrCorruptInput, err)
		}
		r = xr
	default:
		return nil, fmt.Errorf("%w: unknown compression %q", msbt.ErrValidation, string(c))
	}
	b, err := readAll(io.LimitReader(r, int64(max)+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptInput, c, err)
	}
	if uint64(len(b)) > max {
		return nil, fmt.Errorf("%w: %s expanded beyond %d bytes", msbt.ErrLimitExceeded, c, max)
	}
	return b, nil
}

func zstdCompress(in []byte) ([]byte, error) {
	enc, err := newZstdWriter()
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(in, nil), nil
}

func lz4Compress(in []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(in); err != nil {
		_ = lz4Close(zw)
		return nil, err
	}
	if err := lz4Close(zw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func brotliCompress(in []byte) ([]byte, error) {
	var buf bytes.Buffer
	bw := brotli.NewWriter(&buf)
	if _, err := brotliWrite(bw, in); err != nil {
		_ = brotliClose(bw)
		return nil, err
	}
	if err := brotliClose(bw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func xzCompress(in []byte) ([]byte, error) {
	var buf bytes.Buffer
	xw, err := xzNewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := xw.Write(in); err != nil {
		_ = xw.Close()
		return nil, err
	}
	if err := xw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
