package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/hupe1980/docquery"
	"github.com/hupe1980/docquery/internal/config"
	"github.com/hupe1980/docquery/observability"
)

// app is the state shared by all subcommands of one invocation.
type app struct {
	cfgFile string
	cfg     *config.Config
	logger  *docquery.Logger
	metrics docquery.MetricsCollector
	server  *http.Server
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:          "docquery",
		Short:        "Query JSON document dumps with secondary indexes",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.shutdown(cmd.Context())
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (yaml, json or toml)")
	pf.String("source", "", "document dump: local path, s3://bucket/key or minio://bucket/key; a trailing / loads every dump below it")
	pf.StringArray("index", nil, "index declaration kind:field1,field2[:option], repeatable")
	pf.String("log-level", "warn", "log level: debug, info, warn or error")
	pf.String("log-format", "text", "log format: text or json")
	pf.String("metrics-addr", "", "serve Prometheus metrics on this address while the command runs")

	rootCmd.AddCommand(
		newIndexesCmd(a),
		newExplainCmd(a),
		newExecuteCmd(a),
		newExampleCmd(a),
		newConditionCmd(a),
		newNearCmd(a),
		newWithinCmd(a),
		newFulltextCmd(a),
	)
	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg

	level, err := cfg.Level()
	if err != nil {
		return err
	}
	a.logger, err = newLogger(cmd.ErrOrStderr(), cfg.LogFormat, level)
	if err != nil {
		return err
	}

	a.metrics = docquery.NoopMetricsCollector{}
	if cfg.MetricsAddr != "" {
		return a.serveMetrics(cfg.MetricsAddr)
	}
	return nil
}

func newLogger(w io.Writer, format string, level slog.Level) (*docquery.Logger, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch format {
	case "", "text":
		return docquery.NewLogger(slog.NewTextHandler(w, opts)), nil
	case "json":
		return docquery.NewLogger(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// serveMetrics exposes /metrics on addr until shutdown.
func (a *app) serveMetrics(addr string) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	pc, err := observability.NewPrometheusCollector(reg)
	if err != nil {
		return err
	}
	a.metrics = pc

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	a.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.logger.Info("metrics server listening", "addr", ln.Addr().String())
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server error", "error", err)
		}
	}()
	return nil
}

func (a *app) shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	return a.server.Shutdown(ctx)
}
