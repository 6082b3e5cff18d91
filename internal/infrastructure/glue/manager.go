// Package glue wires the facade, the configuration provider, and both cores
// into the one object a process embeds: Manager.
package glue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/vitaliisemenov/clustercore/internal/config"
	"github.com/vitaliisemenov/clustercore/internal/core/resilience"
	"github.com/vitaliisemenov/clustercore/internal/core/services"
	"github.com/vitaliisemenov/clustercore/internal/domain"
	"github.com/vitaliisemenov/clustercore/internal/facade"
	"github.com/vitaliisemenov/clustercore/internal/infrastructure/configprovider"
	"github.com/vitaliisemenov/clustercore/pkg/metrics"
)

// Manager owns the process-wide RefresherCore, ObserverCore, and
// Provider. Start builds the RetryPolicy used to establish the bootstrap
// connection.
type Manager struct {
	cfg      *config.Config
	facade   facade.ClusterFacade
	logger   *slog.Logger
	metrics  *metrics.ClusterMetrics
	Provider *configprovider.Provider
	Refresh  *services.RefresherCore
	Observe  *services.ObserverCore
}

// NewManager builds a Manager around f, without starting anything yet.
func NewManager(cfg *config.Config, f facade.ClusterFacade, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	var m *metrics.ClusterMetrics
	if cfg.Metrics.Enabled {
		m = metrics.NewClusterMetrics()
	}

	provider := configprovider.NewProvider(logger, m)
	refresher := services.NewRefresherCore(f, logger, m)
	refresher.Provider(provider)
	refresher.SetTickInterval(cfg.Refresh.TickInterval)
	if cfg.Refresh.RateLimitPerSec > 0 {
		refresher.SetRateLimiter(rate.NewLimiter(rate.Limit(cfg.Refresh.RateLimitPerSec), 1))
	}
	observer := services.NewObserverCore(f, logger, m)
	if cfg.Observe.RateLimitPerSec > 0 {
		observer.SetRateLimiter(rate.NewLimiter(rate.Limit(cfg.Observe.RateLimitPerSec), 1))
	}

	provider.OnAccepted(func(bc domain.BucketConfig) {
		refresher.MarkUntainted(bc.Name)
	})

	return &Manager{
		cfg:      cfg,
		facade:   f,
		logger:   logger,
		metrics:  m,
		Provider: provider,
		Refresh:  refresher,
		Observe:  observer,
	}
}

// Start connects to the cluster (retrying per config.Refresh.Bootstrap*),
// fetches the initial cluster config, registers every configured bucket,
// and marks each one tainted so RefresherCore starts polling it.
func (m *Manager) Start(ctx context.Context) error {
	policy := &resilience.RetryPolicy{
		MaxRetries:    m.cfg.Refresh.BootstrapMaxTry - 1,
		BaseDelay:     m.cfg.Refresh.BootstrapDelay,
		MaxDelay:      10 * time.Second,
		Multiplier:    2.0,
		Jitter:        true,
		ErrorChecker:  &resilience.TransportErrorChecker{},
		Logger:        m.logger,
		Metrics:       metrics.NewRetryMetrics(),
		OperationName: "bootstrap_connect",
	}

	clusterResp, err := resilience.WithRetryFunc(ctx, policy, func() (facade.GetClusterConfigResponse, error) {
		return m.facade.SendGetClusterConfig(ctx)
	})
	if err != nil {
		return fmt.Errorf("glue: bootstrap cluster config fetch failed: %w", err)
	}

	for _, bucketCfg := range m.cfg.Buckets {
		m.Refresh.RegisterBucket(bucketCfg.Name, bucketCfg.Password)
		topology, ok := clusterResp.Config[bucketCfg.Name]
		if !ok {
			m.logger.Warn("configured bucket absent from bootstrap cluster config", "bucket", bucketCfg.Name)
			continue
		}
		m.Refresh.MarkTainted(topology)
	}

	return nil
}

// Stop deregisters every configured bucket, cancelling its active poll.
func (m *Manager) Stop() {
	for _, bucketCfg := range m.cfg.Buckets {
		m.Refresh.DeregisterBucket(bucketCfg.Name)
	}
}

// ObserveWithDefaults calls ObserverCore.Observe using this Manager's
// configured Delay and transport-error retry strategy, for callers that
// don't need to customize pacing per call.
func (m *Manager) ObserveWithDefaults(ctx context.Context, bucket, id string, cas uint64, remove bool, persistTo domain.PersistTo, replicateTo domain.ReplicateTo) (bool, error) {
	delay := resilience.NewExponentialDelay(m.cfg.Observe.DelayBase, m.cfg.Observe.DelayMax, m.cfg.Observe.DelayMultiplier)
	var strategy resilience.RetryStrategy = resilience.AlwaysRetryObserve()
	if m.cfg.Observe.FailFastOnTransportError {
		strategy = resilience.NeverRetryObserve()
	}
	return m.Observe.Observe(ctx, bucket, id, cas, remove, persistTo, replicateTo, delay, strategy)
}
