package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	"github.com/logicossoftware/go-msbt"
	"github.com/logicossoftware/go-msbt/batch"
)

// ExportCmd converts MSBT to MSYT.
type ExportCmd struct {
	Input    string `arg:"" help:"MSBT file or directory" type:"path"`
	Output   string `short:"o" help:"Output file or directory (default: next to the input)" type:"path"`
	JSON     bool   `name:"json" help:"Write JSON instead of YAML"`
	Workers  int    `help:"Parallel workers (default: config, then one per CPU)" default:"-1"`
	Compress string `help:"Compress outputs: zs, lz4, br or xz"`
}

func (c *ExportCmd) Run(a *app) error {
	opts, err := a.batchOptions(c.Workers, c.Compress)
	if err != nil {
		return err
	}
	opts.JSON = c.JSON || a.cfg.Export.JSON
	res, err := batch.Export(a.ctx, c.Input, c.Output, opts)
	report(a, res)
	return err
}

// CreateCmd converts MSYT to MSBT.
type CreateCmd struct {
	Input     string `arg:"" help:"MSYT file or directory" type:"path"`
	Output    string `short:"o" help:"Output file or directory (default: next to the input)" type:"path"`
	Platform  string `help:"Target platform: wiiu (big endian) or switch (little endian)"`
	BigEndian bool   `name:"big-endian" help:"Shorthand for --platform=wiiu"`
	Encoding  string `help:"Text encoding: utf16 or utf8 (default: config, then keep the file's)"`
	Workers   int    `help:"Parallel workers (default: config, then one per CPU)" default:"-1"`
	Compress  string `help:"Compress outputs: zs, lz4, br or xz"`
}

func (c *CreateCmd) Run(a *app) error {
	opts, err := a.batchOptions(c.Workers, c.Compress)
	if err != nil {
		return err
	}
	platform := a.cfg.Create.Platform
	switch c.Platform {
	case "":
	case "wiiu", "switch":
		platform = c.Platform
	default:
		return fmt.Errorf("%w: unknown platform %q", msbt.ErrValidation, c.Platform)
	}
	opts.BigEndian = c.BigEndian || platform == "wiiu"
	encoding := a.cfg.Create.Encoding
	if c.Encoding != "" {
		encoding = c.Encoding
	}
	if encoding != "" {
		enc, err := msbt.ParseEncoding(encoding)
		if err != nil {
			return err
		}
		opts.Encoding = &enc
	}
	res, err := batch.Create(a.ctx, c.Input, c.Output, opts)
	report(a, res)
	return err
}

func (a *app) batchOptions(workers int, compress string) (batch.Options, error) {
	if workers < 0 {
		workers = a.cfg.Batch.Workers
	}
	if compress == "" {
		compress = a.cfg.Batch.Compression
	}
	comp, err := batch.ParseCompression(compress)
	if err != nil {
		return batch.Options{}, err
	}
	return batch.Options{
		Workers:     workers,
		Compression: comp,
		Limits:      a.limits(),
		Logger:      a.log,
		Metrics:     a.metrics,
	}, nil
}

func report(a *app, res *batch.Result) {
	if res == nil {
		return
	}
	for _, fe := range res.Failed {
		fmt.Fprintf(a.out, "FAIL %s: %v\n", fe.Path, fe.Err)
	}
	fmt.Fprintf(a.out, "%d converted, %d failed\n", len(res.Converted), len(res.Failed))
}

// InspectCmd prints the layout of an MSBT file.
type InspectCmd struct {
	File string `arg:"" help:"MSBT file (optionally .zs, .lz4, .br or .xz)" type:"existingfile"`
	JSON bool   `name:"json" help:"Print JSON"`
}

type inspectReport struct {
	File       string             `json:"file"`
	Size       int                `json:"size"`
	BLAKE3     string             `json:"blake3"`
	ByteOrder  string             `json:"byte_order"`
	Encoding   string             `json:"encoding"`
	Version    uint16             `json:"version"`
	GroupCount uint32             `json:"group_count"`
	Entries    int                `json:"entries"`
	Labels     []string           `json:"labels,omitempty"`
	Sections   []msbt.SectionInfo `json:"sections"`
	RoundTrip  bool               `json:"round_trip"`
}

func (c *InspectCmd) Run(a *app) error {
	data, err := batch.ReadInput(c.File, a.limits().MaxFileSize)
	if err != nil {
		return fmt.Errorf("%s: %w", c.File, err)
	}
	info, err := msbt.Inspect(data, msbt.WithReadLimits(a.limits()))
	if err != nil {
		return fmt.Errorf("%s: %w", c.File, err)
	}
	doc, err := msbt.DecodeBytes(data, msbt.WithReadLimits(a.limits()))
	if err != nil {
		return fmt.Errorf("%s: %w", c.File, err)
	}

	sum := blake3.Sum256(data)
	r := inspectReport{
		File:       c.File,
		Size:       len(data),
		BLAKE3:     hex.EncodeToString(sum[:]),
		ByteOrder:  info.Header.ByteOrder.String(),
		Encoding:   info.Header.Encoding.String(),
		Version:    info.Header.Version,
		GroupCount: info.GroupCount,
		Entries:    len(doc.Entries),
		Sections:   info.Sections,
	}
	for _, e := range doc.Entries {
		r.Labels = append(r.Labels, e.Label)
	}
	sort.Strings(r.Labels)

	re, err := msbt.EncodeBytes(doc)
	if err != nil {
		a.log.Warn("re-encode failed", zap.String("path", c.File), zap.Error(err))
	}
	r.RoundTrip = err == nil && bytes.Equal(re, data)

	if c.JSON {
		b, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, string(b))
		return nil
	}

	fmt.Fprintf(a.out, "file:        %s (%d bytes)\n", r.File, r.Size)
	fmt.Fprintf(a.out, "blake3:      %s\n", r.BLAKE3)
	fmt.Fprintf(a.out, "header:      %s endian, %s, version %d\n", r.ByteOrder, r.Encoding, r.Version)
	fmt.Fprintf(a.out, "entries:     %d in %d label groups\n", r.Entries, r.GroupCount)
	fmt.Fprintf(a.out, "round trip:  %v\n", r.RoundTrip)
	fmt.Fprintln(a.out, "sections:")
	for _, s := range r.Sections {
		fmt.Fprintf(a.out, "  %s  offset 0x%06x  length %d\n", s.Magic, s.Offset, s.Length)
	}
	return nil
}
