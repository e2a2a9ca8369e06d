package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"swimeeter/internal/archive"
	"swimeeter/internal/blob"
	"swimeeter/internal/config"
	"swimeeter/internal/core"
	"swimeeter/pkg/domain"
)

// app holds what one command invocation opened. Storage and the archive
// are opened on first use.
type app struct {
	opts    *RootOptions
	cfg     config.Config
	logger  *slog.Logger
	stderr  io.Writer
	metrics *prometheus.Registry
	expvar  *core.ExpvarMetricsRecorder

	svc     *core.Service
	closer  io.Closer
	archive *archive.Archive
}

func openApp(cmd *cobra.Command, opts *RootOptions) (*app, error) {
	var files []string
	if opts.EnvFile != "" {
		files = append(files, opts.EnvFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load configuration", err)
	}
	return &app{
		opts:    opts,
		cfg:     cfg,
		logger:  cfg.Logger(cmd.ErrOrStderr()),
		stderr:  cmd.ErrOrStderr(),
		metrics: prometheus.NewRegistry(),
	}, nil
}

func (a *app) service(ctx context.Context) (*core.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	storage := a.cfg.Storage()
	store, closer, err := core.OpenPersistentStore(ctx, storage, nil)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open storage", err)
	}
	recorder, err := a.metricsRecorder()
	if err != nil {
		_ = closer.Close()
		return nil, WrapExitError(ExitCommandError, "register metrics", err)
	}
	options := []core.Option{
		core.WithLogger(core.NewSlogLogger(a.logger)),
		core.WithTxRetries(a.cfg.TxRetries),
		core.WithMetricsRecorder(recorder),
	}
	if a.opts.Trace {
		options = append(options, core.WithTracer(a.tracer()))
	}
	a.svc = core.NewService(store, options...)
	a.closer = closer
	a.logger.Debug("storage opened", "driver", string(storage.Driver))
	return a.svc, nil
}

// metricsRecorder returns the exporter named by SWIMEETER_METRICS.
func (a *app) metricsRecorder() (core.MetricsRecorder, error) {
	if a.cfg.Metrics == config.MetricsExpvar {
		a.expvar = core.NewExpvarMetricsRecorder("")
		return a.expvar, nil
	}
	recorder, err := core.NewPrometheusMetricsRecorder(a.metrics)
	if err != nil {
		return nil, err
	}
	return recorder, nil
}

// tracer returns the span exporter named by SWIMEETER_TRACER. The otel
// tracer reports to the globally registered provider.
func (a *app) tracer() core.Tracer {
	if a.cfg.Tracer == config.TracerOtel {
		return core.NewOtelTracer(otel.Tracer("swimeeter"))
	}
	return core.NewJSONTracer(a.stderr)
}

func (a *app) archives(ctx context.Context) (*archive.Archive, error) {
	if a.archive != nil {
		return a.archive, nil
	}
	store, err := blob.Open(ctx, a.cfg.Blob())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open archive store", err)
	}
	a.archive = archive.New(store)
	a.logger.Debug("archive store opened", "driver", string(store.Driver()))
	return a.archive, nil
}

// request builds the service request from the --host and
// --duplicate-handling flags and the configured default policy.
func (a *app) request() (core.Request, error) {
	req := core.Request{
		Caller:      domain.Caller{HostID: a.opts.Host},
		Preferences: a.cfg.Preferences(),
	}
	policy, err := domain.ParseDuplicatePolicy(a.opts.Policy)
	if err != nil {
		return core.Request{}, WrapExitError(ExitCommandError, "--duplicate-handling", err)
	}
	req.Policy = policy
	return req, nil
}

func (a *app) close() error {
	if families, err := a.metrics.Gather(); err == nil {
		for _, mf := range families {
			a.logger.Debug("metric", "name", mf.GetName(), "series", len(mf.GetMetric()))
		}
	}
	if a.expvar != nil {
		snap := a.expvar.Snapshot()
		for op, counts := range snap.Results {
			a.logger.Debug("operation metrics", "operation", op, "success", counts["success"], "error", counts["error"], "duration_ms", snap.DurationsMS[op])
		}
	}
	if a.closer == nil {
		return nil
	}
	if err := a.closer.Close(); err != nil {
		return WrapExitError(ExitCommandError, "close storage", err)
	}
	return nil
}
