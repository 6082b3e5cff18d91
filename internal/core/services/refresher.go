package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/vitaliisemenov/clustercore/internal/core/resilience"
	"github.com/vitaliisemenov/clustercore/internal/domain"
	"github.com/vitaliisemenov/clustercore/internal/facade"
	"github.com/vitaliisemenov/clustercore/internal/infrastructure/lock"
	"github.com/vitaliisemenov/clustercore/pkg/metrics"
)

// ConfigurationProvider accepts bucket config proposals fetched by
// RefresherCore. A real implementation decodes body and swaps the bucket's
// live topology in; see internal/infrastructure/configprovider for the one
// wired into the glue layer.
type ConfigurationProvider interface {
	ProposeBucketConfig(name, body string) error
}

// DefaultTickInterval is the periodic poll cadence once a bucket is
// tainted.
const DefaultTickInterval = 1000 * time.Millisecond

type taintEntry struct {
	cancel   context.CancelFunc
	stopCh   chan struct{}
	stopOnce sync.Once
}

func (e *taintEntry) stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
}

// RefresherCore keeps per-bucket topology maps fresh. It polls a bucket's
// KV-enabled nodes in order, through a ClusterFacade, and hands the first
// successful body to a ConfigurationProvider. At most one poll per bucket
// runs at a time, enforced by a PollGuard.
type RefresherCore struct {
	facade    facade.ClusterFacade
	logger    *slog.Logger
	metrics   *metrics.ClusterMetrics
	pollGuard *lock.PollGuard
	tickDelay resilience.Delay
	limiter   *rate.Limiter

	mu        sync.Mutex
	passwords map[string]string
	tainted   map[string]*taintEntry

	providerMu sync.RWMutex
	provider   ConfigurationProvider
}

// NewRefresherCore builds a RefresherCore against f, logging with logger and
// recording ClusterMetrics. A nil logger defaults to slog.Default(); a nil
// metrics disables instrumentation.
func NewRefresherCore(f facade.ClusterFacade, logger *slog.Logger, m *metrics.ClusterMetrics) *RefresherCore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RefresherCore{
		facade:    f,
		logger:    logger,
		metrics:   m,
		pollGuard: lock.NewPollGuard(),
		tickDelay: resilience.NewFixedDelay(DefaultTickInterval),
		passwords: make(map[string]string),
		tainted:   make(map[string]*taintEntry),
	}
}

// SetTickInterval replaces the periodic poll cadence for buckets that don't
// have an active poll loop yet. It has no effect on a bucket already
// tainted; MarkUntainted then MarkTainted again to pick up the new cadence.
func (r *RefresherCore) SetTickInterval(d time.Duration) {
	r.tickDelay = resilience.NewFixedDelay(d)
}

// RegisterBucket records a bucket for future refresh operations. Idempotent.
func (r *RefresherCore) RegisterBucket(name, password string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.passwords[name] = password
}

// DeregisterBucket removes a bucket's registration and cancels any active
// poll for it, aborting an in-flight facade call rather than waiting for it
// to finish.
func (r *RefresherCore) DeregisterBucket(name string) {
	r.mu.Lock()
	entry := r.tainted[name]
	delete(r.passwords, name)
	delete(r.tainted, name)
	r.mu.Unlock()

	if entry != nil {
		entry.cancel()
		entry.stop()
	}
}

// SetRateLimiter bounds how fast failover issues facade requests, shared
// across every bucket this RefresherCore polls. nil (the default) leaves
// node calls unlimited.
func (r *RefresherCore) SetRateLimiter(l *rate.Limiter) {
	r.limiter = l
}

// Provider installs the configuration acceptance sink.
func (r *RefresherCore) Provider(p ConfigurationProvider) {
	r.providerMu.Lock()
	defer r.providerMu.Unlock()
	r.provider = p
}

func (r *RefresherCore) currentProvider() ConfigurationProvider {
	r.providerMu.RLock()
	defer r.providerMu.RUnlock()
	return r.provider
}

// Refresh is a one-shot sweep: for each bucket in cfg, attempt to fetch a
// fresh config from its KV-enabled nodes and propose it. Each bucket's
// attempt runs independently and concurrently; Refresh does not block on
// their completion.
func (r *RefresherCore) Refresh(ctx context.Context, cfg domain.ClusterConfig) {
	for _, bucketCfg := range cfg {
		bucketCfg := bucketCfg
		go r.attemptPollOnce(ctx, bucketCfg)
	}
}

// MarkTainted starts a periodic poll for bucketCfg's bucket, roughly every
// tick interval (DefaultTickInterval unless SetTickInterval changed it),
// until MarkUntainted or DeregisterBucket stops it. A
// bucket already being polled ignores the call.
func (r *RefresherCore) MarkTainted(bucketCfg domain.BucketConfig) {
	r.mu.Lock()
	if _, exists := r.tainted[bucketCfg.Name]; exists {
		r.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	entry := &taintEntry{cancel: cancel, stopCh: make(chan struct{})}
	r.tainted[bucketCfg.Name] = entry
	r.mu.Unlock()

	go r.pollLoop(ctx, bucketCfg, entry)
}

// MarkUntainted stops the periodic poll for name. A tick already in
// progress is allowed to complete; no further tick is scheduled.
func (r *RefresherCore) MarkUntainted(name string) {
	r.mu.Lock()
	entry := r.tainted[name]
	delete(r.tainted, name)
	r.mu.Unlock()

	if entry != nil {
		entry.stop()
	}
}

func (r *RefresherCore) pollLoop(ctx context.Context, bucketCfg domain.BucketConfig, entry *taintEntry) {
	tickDelay := r.tickDelay
	r.attemptPollOnce(ctx, bucketCfg)

	attempt := 0
	for {
		attempt++
		timer := time.NewTimer(tickDelay.Next(attempt))
		select {
		case <-entry.stopCh:
			timer.Stop()
			return
		case <-timer.C:
			select {
			case <-entry.stopCh:
				return
			default:
			}
			r.attemptPollOnce(ctx, bucketCfg)
		}
	}
}

func (r *RefresherCore) attemptPollOnce(ctx context.Context, bucketCfg domain.BucketConfig) {
	_, _, _ = r.pollGuard.DoCtx(ctx, bucketCfg.Name, func() (interface{}, error) {
		r.failover(ctx, bucketCfg)
		return nil, nil
	})
}

// failover implements the per-refresh-attempt node iteration: try each
// KV-enabled node in order, stop at the first success.
func (r *RefresherCore) failover(ctx context.Context, bucketCfg domain.BucketConfig) {
	start := time.Now()
	logger := r.logger.With("op_id", uuid.NewString(), "bucket", bucketCfg.Name)

	for node := range SelectKVNodes(bucketCfg) {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				logger.Debug("bucket config poll aborted by rate limiter", "node", node.Hostname, "error", err)
				r.recordPollRound(bucketCfg.Name, "exhausted", start)
				return
			}
		}

		req := facade.GetBucketConfigRequest{BucketName: bucketCfg.Name, Hostname: node.Hostname}
		resp, err := r.facade.SendGetBucketConfig(ctx, req)
		if err != nil {
			logger.Debug("bucket config poll failed", "node", node.Hostname, "error", err)
			r.recordPollAttempt(bucketCfg.Name, "transport_error")
			continue
		}

		if resp.Status != facade.StatusSuccess || resp.Content == nil || len(resp.Content.Bytes()) == 0 {
			resp.Content.Release()
			r.checkBufferReleased(logger, resp.Content)
			logger.Debug("bucket config poll rejected", "node", node.Hostname, "status", resp.Status)
			r.recordPollAttempt(bucketCfg.Name, "rejected")
			continue
		}

		body := string(resp.Content.Bytes())
		resp.Content.Release()
		r.checkBufferReleased(logger, resp.Content)

		provider := r.currentProvider()
		if provider != nil {
			if err := provider.ProposeBucketConfig(bucketCfg.Name, body); err != nil {
				logger.Warn("provider rejected bucket config", "error", err)
			}
		}

		r.recordPollAttempt(bucketCfg.Name, "success")
		r.recordPollRound(bucketCfg.Name, "success", start)
		return
	}

	r.recordPollRound(bucketCfg.Name, "exhausted", start)
}

func (r *RefresherCore) recordPollAttempt(bucket, outcome string) {
	if r.metrics == nil {
		return
	}
	r.metrics.RecordPollAttempt(bucket, outcome, outcome)
}

func (r *RefresherCore) recordPollRound(bucket, outcome string, start time.Time) {
	if r.metrics == nil {
		return
	}
	r.metrics.RecordPollRound(bucket, outcome, time.Since(start).Seconds())
	r.mu.Lock()
	tainted := len(r.tainted)
	r.mu.Unlock()
	r.metrics.SetTaintedBuckets(tainted)
}

// checkBufferReleased records buf's release and, per the buffer discipline's
// canonical verification, flags the rare case where something else still
// holds a reference after the core's own Release call.
func (r *RefresherCore) checkBufferReleased(logger *slog.Logger, buf *facade.Buffer) {
	if r.metrics != nil {
		r.metrics.RecordBufferReleased()
	}
	if got := buf.RefCount(); got != 0 {
		logger.Warn("bucket config response buffer outlived its Release", "refcount", got)
		if r.metrics != nil {
			r.metrics.RecordBufferLeaked()
		}
	}
}
