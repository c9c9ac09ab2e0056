package indexer

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/respp/astrade-world/internal/core/observability/log"
)

// Factory constructs the indexer client for the current execution
// context. Restricted contexts get the restricted client directly; full
// contexts get a native client, falling back to restricted when the
// native session cannot be established. The fallback is a deliberate
// degraded-mode policy so callers always obtain a working client.
type Factory struct {
	opts   Options
	logger log.Log
}

func NewFactory(opts Options, logger log.Log) *Factory {
	return &Factory{
		opts:   opts.withDefaults(),
		logger: logger.With(log.String("component", "indexer_factory")),
	}
}

// Build probes both endpoints and returns a client handle. An unreachable
// indexer is a hard failure in either mode; connection retry policy
// belongs to the caller.
func (f *Factory) Build(ctx context.Context, restricted bool) (Client, error) {
	if err := f.probeEndpoints(ctx); err != nil {
		f.logger.Warn("Endpoint probe failed", log.Error(err))
		return nil, err
	}

	if restricted {
		f.logger.Info("Restricted execution context, building restricted client")
		return NewRestricted(f.opts, f.logger), nil
	}

	native, err := NewNative(ctx, f.opts, f.logger)
	if err == nil {
		return native, nil
	}

	f.logger.Warn("Native client unavailable, falling back to restricted mode",
		log.Error(err))
	return NewRestricted(f.opts, f.logger), nil
}

// probeEndpoints checks the RPC and indexer endpoints concurrently.
func (f *Factory) probeEndpoints(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, f.opts.DialTimeout)
	defer cancel()

	hc := &http.Client{Timeout: f.opts.DialTimeout}
	start := time.Now()

	g, probeCtx := errgroup.WithContext(probeCtx)
	g.Go(func() error { return probe(probeCtx, hc, f.opts.IndexerURL) })
	g.Go(func() error { return probe(probeCtx, hc, f.opts.RPCURL) })

	if err := g.Wait(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	f.logger.Debug("Endpoints reachable", log.Duration("probe_time", time.Since(start)))
	return nil
}
