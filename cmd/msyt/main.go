// Command msyt converts between binary MSBT message tables and their editable
// MSYT (YAML or JSON) form.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/logicossoftware/go-msbt"
	"github.com/logicossoftware/go-msbt/batch"
	"github.com/logicossoftware/go-msbt/internal/config"
	"github.com/logicossoftware/go-msbt/internal/logger"
)

// Globals are the flags shared by every command.
type Globals struct {
	Config      string `name:"config" help:"YAML file with default settings" type:"existingfile"`
	LogLevel    string `name:"log-level" help:"Log level (debug, info, warn, error)"`
	LogEnv      string `name:"log-env" help:"Log format: local, dev or prod (JSON)"`
	MetricsFile string `name:"metrics-file" help:"Write Prometheus metrics to this file on exit" type:"path"`
}

// CLI defines the command-line interface for msyt.
type CLI struct {
	Globals

	Export  ExportCmd  `cmd:"" help:"Convert MSBT files to MSYT"`
	Create  CreateCmd  `cmd:"" help:"Convert MSYT files to MSBT"`
	Inspect InspectCmd `cmd:"" help:"Show the layout of an MSBT file"`
}

// app carries what the commands need once flags and config are resolved.
type app struct {
	ctx     context.Context
	cfg     config.Config
	log     *zap.Logger
	reg     *prometheus.Registry
	metrics *batch.Metrics
	out     io.Writer
}

func newApp(ctx context.Context, g Globals, out io.Writer) (*app, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if g.LogEnv != "" {
		cfg.Logging.Env = g.LogEnv
	}
	if g.LogLevel != "" {
		cfg.Logging.Level = g.LogLevel
	}
	if g.MetricsFile != "" {
		cfg.Batch.MetricsFile = g.MetricsFile
	}

	log, err := logger.NewLogger(cfg.Logging.Env, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	return &app{
		ctx:     logger.ContextWithLogger(ctx, log),
		cfg:     cfg,
		log:     log,
		reg:     reg,
		metrics: batch.NewMetrics(reg),
		out:     out,
	}, nil
}

func (a *app) limits() msbt.Limits {
	return msbt.Limits{MaxFileSize: uint64(a.cfg.Limits.MaxFileSizeMB) << 20}
}

// close flushes the logger and writes the metrics file, if any.
func (a *app) close() error {
	defer func() { _ = a.log.Sync() }()
	if a.cfg.Batch.MetricsFile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(a.cfg.Batch.MetricsFile, a.reg); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("msyt"),
		kong.Description("Convert MSBT message tables to and from MSYT"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cli.Globals, stdout)
	if err != nil {
		return err
	}
	err = kctx.Run(a)
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "msyt:", err)
		os.Exit(1)
	}
}
