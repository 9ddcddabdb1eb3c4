// Package batch converts single MSBT/MSYT files or whole directory trees,
// fanning the work out over a fixed-size worker pool.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/logicossoftware/go-msbt"
	"github.com/logicossoftware/go-msbt/msyt"
)

// Op names a conversion direction.
type Op string

const (
	OpExport Op = "export" // MSBT → MSYT
	OpCreate Op = "create" // MSYT → MSBT
)

const (
	extMSBT = ".msbt"
	extMSYT = ".msyt"
)

func (op Op) exts() (src, dst string) {
	if op == OpExport {
		return extMSBT, extMSYT
	}
	return extMSYT, extMSBT
}

// Options configures a batch run. The zero value exports YAML, creates
// little-endian files in the tree's encoding and uses one worker per CPU.
type Options struct {
	BigEndian   bool           // create: write Wii U (big endian) files
	Encoding    *msbt.Encoding // create: override the tree's encoding
	JSON        bool           // export: write JSON instead of YAML
	Workers     int
	Compression Compression // applied to every output file
	Limits      msbt.Limits
	Logger      *zap.Logger
	Metrics     *Metrics
}

// FileError is the failure of a single file in a batch.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string { return e.Path + ": " + e.Err.Error() }
func (e *FileError) Unwrap() error { return e.Err }

// Conversion records one written output.
type Conversion struct {
	Input  string
	Output string
}

// Result lists what a batch did, both sorted by input path.
type Result struct {
	Converted []Conversion
	Failed    []*FileError
}

// Export converts MSBT files to MSYT. in is a file or a directory searched
// recursively. An empty out writes next to the inputs.
func Export(ctx context.Context, in, out string, opts Options) (*Result, error) {
	return run(ctx, OpExport, in, out, opts)
}

// Create converts MSYT files to MSBT. in is a file or a directory searched
// recursively. An empty out writes next to the inputs.
func Create(ctx context.Context, in, out string, opts Options) (*Result, error) {
	return run(ctx, OpCreate, in, out, opts)
}

type job struct {
	input  string
	output string
}

type jobResult struct {
	job job
	err error
}

func run(ctx context.Context, op Op, in, out string, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("op", string(op)))

	jobs, err := plan(op, in, out, opts.Compression)
	if err != nil {
		return nil, err
	}
	log.Debug("batch planned", zap.String("input", in), zap.Int("files", len(jobs)))

	c := &converter{op: op, opts: opts}
	p := newWorkerPool[job, jobResult](opts.Workers, len(jobs))
	p.start(func(j job) jobResult {
		start := time.Now()
		err := c.convert(j)
		opts.Metrics.observe(op, err, time.Since(start))
		return jobResult{job: j, err: err}
	})

	var dispatchErr error
	for _, j := range jobs {
		if dispatchErr = p.submit(ctx, j); dispatchErr != nil {
			log.Warn("batch canceled, waiting for in-flight files", zap.Error(dispatchErr))
			break
		}
	}
	p.close()

	res := &Result{}
	for r := range p.resultsChan() {
		if r.err != nil {
			log.Error("conversion failed", zap.String("path", r.job.input), zap.Error(r.err))
			res.Failed = append(res.Failed, &FileError{Path: r.job.input, Err: r.err})
			continue
		}
		log.Debug("converted", zap.String("path", r.job.input), zap.String("output", r.job.output))
		res.Converted = append(res.Converted, Conversion{Input: r.job.input, Output: r.job.output})
	}
	sort.Slice(res.Converted, func(i, j int) bool { return res.Converted[i].Input < res.Converted[j].Input })
	sort.Slice(res.Failed, func(i, j int) bool { return res.Failed[i].Path < res.Failed[j].Path })

	log.Info("batch finished",
		zap.Int("converted", len(res.Converted)),
		zap.Int("failed", len(res.Failed)),
	)

	if len(res.Failed) > 0 {
		return res, res.Failed[0]
	}
	return res, dispatchErr
}

// plan resolves the input path into the list of files to convert.
func plan(op Op, in, out string, comp Compression) ([]job, error) {
	info, err := os.Stat(in)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", msbt.ErrInvalidInputPath, in, err)
	}
	switch {
	case info.Mode().IsRegular():
		if out == "" {
			out = outputPath(op, in, comp)
		}
		return []job{{input: in, output: out}}, nil
	case info.IsDir():
		if out == "" {
			out = in
		}
		return walk(op, in, out, comp)
	}
	return nil, fmt.Errorf("%w: %s", msbt.ErrInvalidInputPath, in)
}

func walk(op Op, root, outRoot string, comp Compression) ([]job, error) {
	src, _ := op.exts()
	var jobs []job
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		_, base := splitCompression(path)
		if !strings.EqualFold(filepath.Ext(base), src) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		jobs = append(jobs, job{input: path, output: filepath.Join(outRoot, outputPath(op, rel, comp))})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walk %s: %w", msbt.ErrIO, root, err)
	}
	return jobs, nil
}

// outputPath swaps the format extension and the compression suffix:
// "a/b.msbt.zs" exported with xz becomes "a/b.msyt.xz".
func outputPath(op Op, path string, comp Compression) string {
	_, dst := op.exts()
	_, base := splitCompression(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + dst + comp.suffix()
}

type converter struct {
	op   Op
	opts Options
}

func (c *converter) limits() msbt.Limits {
	l := c.opts.Limits
	if l.MaxFileSize == 0 {
		l.MaxFileSize = msbt.DefaultLimits().MaxFileSize
	}
	return l
}

func (c *converter) convert(j job) error {
	in, err := ReadInput(j.input, c.limits().MaxFileSize)
	if err != nil {
		return err
	}

	var out []byte
	switch c.op {
	case OpExport:
		out, err = c.export(in)
	case OpCreate:
		out, err = c.create(in)
	default:
		err = fmt.Errorf("%w: unknown operation %q", msbt.ErrValidation, string(c.op))
	}
	if err != nil {
		return err
	}

	if out, err = compress(c.opts.Compression, out); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(j.output), 0o755); err != nil {
		return fmt.Errorf("%w: %w", msbt.ErrIO, err)
	}
	if err := os.WriteFile(j.output, out, 0o644); err != nil {
		return fmt.Errorf("%w: %w", msbt.ErrIO, err)
	}
	return nil
}

func (c *converter) export(in []byte) ([]byte, error) {
	f, err := msyt.FromMSBT(in, msbt.WithReadLimits(c.opts.Limits))
	if err != nil {
		return nil, err
	}
	if c.opts.JSON {
		return msyt.MarshalJSON(f)
	}
	return msyt.MarshalYAML(f)
}

func (c *converter) create(in []byte) ([]byte, error) {
	f, err := msyt.Unmarshal(in)
	if err != nil {
		return nil, err
	}
	order := msbt.LittleEndian
	if c.opts.BigEndian {
		order = msbt.BigEndian
	}
	wopts := []msbt.WriteOption{msbt.WithWriteLimits(c.opts.Limits)}
	if c.opts.Encoding != nil {
		wopts = append(wopts, msbt.WithEncoding(*c.opts.Encoding))
	}
	return f.MSBT(order, wopts...)
}

// ReadInput reads path, expanding it when its name carries a compression
// suffix. Both the stored and the expanded size are capped at max.
func ReadInput(path string, max uint64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", msbt.ErrIO, err)
	}
	defer f.Close()

	b, err := io.ReadAll(io.LimitReader(f, int64(max)+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", msbt.ErrIO, err)
	}
	if uint64(len(b)) > max {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", msbt.ErrLimitExceeded, max)
	}
	comp, _ := splitCompression(path)
	return decompress(comp, b, max)
}

// IsFileError reports whether err carries a per-file failure and returns it.
func IsFileError(err error) (*FileError, bool) {
	var fe *FileError
	ok := errors.As(err, &fe)
	return fe, ok
}
