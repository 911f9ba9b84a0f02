// Command counterstrike serves and drives the product provenance ledger.
//
//	counterstrike serve [-addr :8080] [-traces]
//	counterstrike invoke [-init] <function> [args...]
//	counterstrike export
//	counterstrike commands
//
// Backends and logging are configured through COUNTERSTRIKE_* environment variables.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"counterstrike/internal/archive"
	"counterstrike/internal/blob"
	"counterstrike/internal/config"
	"counterstrike/internal/core"
	"counterstrike/internal/httpapi"
	"counterstrike/internal/obs"
	"counterstrike/pkg/domain"
)

var (
	exitFunc  = os.Exit
	loadEnv   = config.Load
	notifyCtx = func(parent context.Context) (context.Context, context.CancelFunc) {
		return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	}
)

func main() {
	exitFunc(cli(os.Args[1:], os.Stdout, os.Stderr))
}

func usage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: counterstrike <serve|invoke|export|commands> [flags] [args...]")
}

func cli(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	switch args[0] {
	case "serve":
		return cmdServe(args[1:], stdout, stderr)
	case "invoke":
		return cmdInvoke(args[1:], stdout, stderr)
	case "export":
		return cmdExport(args[1:], stdout, stderr)
	case "commands":
		for _, c := range core.Commands() {
			_, _ = fmt.Fprintln(stdout, c)
		}
		return 0
	case "-h", "--help", "help":
		usage(stdout)
		return 0
	default:
		red(stderr, "unknown subcommand %q\n", args[0])
		usage(stderr)
		return 2
	}
}

// app bundles everything a subcommand needs; close releases it.
type app struct {
	cfg        config.Config
	logger     *obs.Logger
	ledger     domain.LedgerStore
	service    *core.Service
	dispatcher *core.Dispatcher
	exporter   *archive.Exporter
	registry   *prometheus.Registry
	tracer     *core.JSONTraceTracer
}

type buildOptions struct {
	traces io.Writer
}

func build(ctx context.Context, cfg config.Config, bo buildOptions) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	policy, err := core.ParseSalePolicy(cfg.SalePolicy)
	if err != nil {
		return nil, err
	}
	logger, err := obs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	ledger, err := core.OpenLedgerStore(ctx, cfg.Ledger)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom, err := core.NewPrometheusMetricsRecorder(registry)
	if err != nil {
		_ = core.CloseLedgerStore(ctx, ledger)
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, ledger: ledger, registry: registry}
	opts := []core.Option{
		core.WithLogger(logger.Named("lifecycle")),
		core.WithSalePolicy(policy),
		core.WithMetricsRecorder(core.MultiMetricsRecorder{prom, core.NewExpvarMetricsRecorder("")}),
		core.WithAuditRecorder(auditLog{logger.Named("audit")}),
	}
	if bo.traces != nil {
		a.tracer = core.NewJSONTracer(bo.traces)
		opts = append(opts, core.WithTracer(a.tracer))
	}
	a.service = core.NewService(ledger, opts...)
	a.dispatcher = core.NewDispatcher(a.service)

	store, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		_ = a.close(ctx)
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	a.exporter = archive.NewExporter(a.service, store,
		archive.WithPrefix(cfg.ArchivePrefix),
		archive.WithLogger(logger.Named("archive")),
	)
	return a, nil
}

func (a *app) close(ctx context.Context) error {
	err := core.CloseLedgerStore(ctx, a.ledger)
	_ = a.logger.Sync()
	return err
}

type auditLog struct{ l *obs.Logger }

func (a auditLog) Record(_ context.Context, e core.AuditEntry) {
	a.l.Debug("audit",
		"operation", e.Operation,
		"product_id", e.ProductID,
		"status", string(e.Status),
		"code", string(e.Code),
		"duration_ms", float64(e.Duration.Microseconds())/1000.0,
		"ts", e.Timestamp,
	)
}

func cmdServe(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg := loadEnv()
	fs.StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "listen address")
	fs.StringVar(&cfg.Ledger.Driver, "ledger", cfg.Ledger.Driver, "ledger driver (memory|sqlite|postgres|mongo)")
	traces := fs.Bool("traces", false, "write operation spans to stderr as JSON lines")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	ctx, stop := notifyCtx(context.Background())
	defer stop()
	var bo buildOptions
	if *traces {
		bo.traces = stderr
	}
	a, err := build(ctx, cfg, bo)
	if err != nil {
		red(stderr, "serve: %v\n", err)
		return 1
	}
	defer func() { _ = a.close(context.Background()) }()

	ln, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		red(stderr, "serve: %v\n", err)
		return 1
	}
	if err := serve(ctx, a, ln, stdout); err != nil {
		red(stderr, "serve: %v\n", err)
		return 1
	}
	return 0
}

// serve runs the HTTP server on ln until ctx is cancelled, then drains.
func serve(ctx context.Context, a *app, ln net.Listener, stdout io.Writer) error {
	if resp := a.dispatcher.Init(ctx); !resp.OK() {
		_ = ln.Close()
		return errors.New(resp.Message)
	}
	handler := httpapi.NewRouter(&httpapi.App{
		Dispatcher: a.dispatcher,
		Exporter:   a.exporter,
		Logger:     a.logger.Named("http"),
	}, promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: a.cfg.ShutdownTimeout}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	green(stdout, "counterstrike listening on %s (ledger=%s, policy=%s)\n", ln.Addr(), a.cfg.Ledger.Driver, a.service.SalePolicy())
	a.logger.Info("http_server_started", "addr", ln.Addr().String(), "ledger", a.cfg.Ledger.Driver)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	a.logger.Info("http_server_stopping")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	yellow(stdout, "counterstrike stopped\n")
	return nil
}

func cmdInvoke(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("invoke", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg := loadEnv()
	fs.StringVar(&cfg.Ledger.Driver, "ledger", cfg.Ledger.Driver, "ledger driver (memory|sqlite|postgres|mongo)")
	initFirst := fs.Bool("init", false, "run initLedger before the invocation")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		red(stderr, "invoke: function name required\n")
		return 2
	}
	ctx := context.Background()
	a, err := build(ctx, cfg, buildOptions{})
	if err != nil {
		red(stderr, "invoke: %v\n", err)
		return 1
	}
	defer func() { _ = a.close(ctx) }()

	if *initFirst {
		if resp := a.dispatcher.Invoke(ctx, string(core.CommandInitLedger), nil); !resp.OK() {
			red(stderr, "initLedger: %s\n", resp.Message)
			return 1
		}
	}
	resp := a.dispatcher.Invoke(ctx, fs.Arg(0), fs.Args()[1:])
	if !resp.OK() {
		red(stderr, "%d %s\n", resp.Status, resp.Message)
		return 1
	}
	green(stderr, "%d OK\n", resp.Status)
	writePayload(stdout, resp.Payload)
	return 0
}

func cmdExport(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg := loadEnv()
	fs.StringVar(&cfg.Ledger.Driver, "ledger", cfg.Ledger.Driver, "ledger driver (memory|sqlite|postgres|mongo)")
	fs.StringVar(&cfg.ArchivePrefix, "prefix", cfg.ArchivePrefix, "snapshot key prefix")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	ctx := context.Background()
	a, err := build(ctx, cfg, buildOptions{})
	if err != nil {
		red(stderr, "export: %v\n", err)
		return 1
	}
	defer func() { _ = a.close(ctx) }()
	artifact, err := a.exporter.Export(ctx)
	if err != nil {
		red(stderr, "export: %v\n", err)
		return 1
	}
	green(stderr, "exported %d products\n", artifact.ProductCount)
	b, _ := json.MarshalIndent(artifact, "", "  ")
	_, _ = fmt.Fprintln(stdout, string(b))
	return 0
}

func writePayload(w io.Writer, payload []byte) {
	if len(payload) == 0 {
		return
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, payload, "", "  "); err != nil {
		_, _ = fmt.Fprintln(w, string(payload))
		return
	}
	_, _ = fmt.Fprintln(w, buf.String())
}

var (
	greenText  = color.New(color.FgGreen)
	yellowText = color.New(color.FgYellow)
	redText    = color.New(color.FgRed)
)

func green(w io.Writer, format string, a ...any)  { _, _ = greenText.Fprintf(w, format, a...) }
func yellow(w io.Writer, format string, a ...any) { _, _ = yellowText.Fprintf(w, format, a...) }
func red(w io.Writer, format string, a ...any)    { _, _ = redText.Fprintf(w, format, a...) }
