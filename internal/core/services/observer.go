package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/vitaliisemenov/clustercore/internal/core/resilience"
	"github.com/vitaliisemenov/clustercore/internal/domain"
	"github.com/vitaliisemenov/clustercore/internal/facade"
	"github.com/vitaliisemenov/clustercore/pkg/metrics"
)

// ObserverCore polls a document's master and, when the requested durability
// criterion touches replicas, its replicas, until the criterion is met or
// the caller gives up. One round dispatches one ObserveRequest per node;
// rounds repeat, paced by a Delay, forever — Observe never exhausts on its
// own, only a satisfied criterion, a fatal per-request error, or ctx
// cancellation ends it. RetryStrategy decides, per failed request, whether
// that single request's transport error is swallowed (retried next round)
// or propagated as fatal.
type ObserverCore struct {
	facade  facade.ClusterFacade
	logger  *slog.Logger
	metrics *metrics.ClusterMetrics
	limiter *rate.Limiter
}

// NewObserverCore builds an ObserverCore against f.
func NewObserverCore(f facade.ClusterFacade, logger *slog.Logger, m *metrics.ClusterMetrics) *ObserverCore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ObserverCore{facade: f, logger: logger, metrics: m}
}

// SetRateLimiter bounds how fast a round's replica fan-out issues facade
// requests. nil (the default) leaves node calls unlimited.
func (o *ObserverCore) SetRateLimiter(l *rate.Limiter) {
	o.limiter = l
}

// Observe polls until the (persistTo, replicateTo) durability criterion is
// satisfied for document id at cas, or fails fatally with
// resilience.ErrDocumentConcurrentlyModified (the master's copy moved on)
// or resilience.ErrReplicaNotConfigured (the criterion asks for more
// replicas than the bucket has). remove selects the observe-status sentinel
// pair used for delete confirmations rather than mutation confirmations.
func (o *ObserverCore) Observe(
	ctx context.Context,
	bucketName, id string,
	cas uint64,
	remove bool,
	persistTo domain.PersistTo,
	replicateTo domain.ReplicateTo,
	delay resilience.Delay,
	retryStrategy resilience.RetryStrategy,
) (bool, error) {
	logger := o.logger.With("op_id", uuid.NewString(), "bucket", bucketName, "id", id)

	clusterResp, err := o.facade.SendGetClusterConfig(ctx)
	if err != nil {
		return false, err
	}
	bucketCfg, ok := clusterResp.Config[bucketName]
	if !ok {
		return false, fmt.Errorf("observe: bucket %q not found in cluster config", bucketName)
	}

	numReplicas := bucketCfg.NumberOfReplicas
	if replicateTo.TouchesReplica() && replicateTo.Value() > numReplicas {
		return false, resilience.ErrReplicaNotConfigured
	}
	if persistTo.TouchesReplica() && persistTo.Value()-1 > numReplicas {
		return false, resilience.ErrReplicaNotConfigured
	}

	attempt := 0
	for {
		start := time.Now()
		aggregate, satisfied, fatalErr := o.runRound(ctx, logger, bucketCfg, id, cas, remove, persistTo, replicateTo, retryStrategy)
		o.recordRound(bucketName, satisfied, fatalErr, start)

		if fatalErr != nil {
			return false, fatalErr
		}
		if satisfied {
			return true, nil
		}

		logger.Debug("observe round unsatisfied",
			"attempt", attempt,
			"replicated", aggregate.Replicated, "persisted", aggregate.Persisted, "persisted_master", aggregate.PersistedMaster)

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		default:
		}

		attempt++

		wait := delay.Next(attempt)
		o.recordBackoff(wait)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false, ctx.Err()
		case <-timer.C:
		}
	}
}

type observeResult struct {
	item domain.ObserveItem
	err  error
}

// runRound dispatches one ObserveRequest to the master, and when the
// criterion touches replicas one per replica, then scans the merged
// response stream with the ObserveItem monoid. It returns as soon as the
// running aggregate satisfies the criterion, without waiting for
// still-outstanding requests; err is non-nil for the fatal master
// CAS-divergence case and for a request's transport error that
// retryStrategy does not swallow.
func (o *ObserverCore) runRound(
	ctx context.Context,
	logger *slog.Logger,
	bucketCfg domain.BucketConfig,
	id string,
	cas uint64,
	remove bool,
	persistTo domain.PersistTo,
	replicateTo domain.ReplicateTo,
	retryStrategy resilience.RetryStrategy,
) (domain.ObserveItem, bool, error) {
	touchesReplica := persistTo.TouchesReplica() || replicateTo.TouchesReplica()
	numReplicas := bucketCfg.NumberOfReplicas

	total := 1
	if touchesReplica {
		total += numReplicas
	}

	results := make(chan observeResult, total)

	dispatch := func(req facade.ObserveRequest) {
		if o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				results <- observeResult{domain.EmptyObserveItem, nil}
				return
			}
		}

		resp, err := o.facade.SendObserve(ctx, req)
		if err != nil {
			if retryStrategy.ShouldRetryObserve() {
				logger.Debug("observe request failed, will retry next round", "master", req.Master, "replica_index", req.ReplicaIndex, "error", err)
				results <- observeResult{domain.EmptyObserveItem, nil}
				return
			}
			logger.Debug("observe request failed, propagating", "master", req.Master, "replica_index", req.ReplicaIndex, "error", err)
			results <- observeResult{domain.EmptyObserveItem, err}
			return
		}

		item, classErr := classifyObserveResponse(resp, cas, remove)
		resp.Content.Release()
		o.checkBufferReleased(logger, resp.Content)
		results <- observeResult{item, classErr}
	}

	go dispatch(facade.ObserveRequest{ID: id, Cas: cas, Master: true, ReplicaIndex: 0, BucketName: bucketCfg.Name})
	if touchesReplica {
		for i := 1; i <= numReplicas; i++ {
			go dispatch(facade.ObserveRequest{ID: id, Cas: cas, Master: false, ReplicaIndex: uint16(i), BucketName: bucketCfg.Name})
		}
	}

	aggregate := domain.EmptyObserveItem
	for i := 0; i < total; i++ {
		r := <-results
		if r.err != nil {
			return aggregate, false, r.err
		}
		aggregate = aggregate.Add(r.item)
		if domain.Check(aggregate, persistTo, replicateTo) {
			return aggregate, true, nil
		}
	}
	return aggregate, false, nil
}

// classifyObserveResponse maps one node's ObserveResponse to its ObserveItem
// contribution for the round, per the CAS and status rules in the durability
// observation design: a master whose cas no longer matches expectedCas
// fails the whole operation, except the delete-confirmation special case
// (cas == 0 and status already reports not-found-persisted). A replica with
// a stale cas simply contributes nothing this round.
func classifyObserveResponse(resp facade.ObserveResponse, expectedCas uint64, remove bool) (domain.ObserveItem, error) {
	persistIdentifier := facade.ObserveFoundPersisted
	replicaIdentifier := facade.ObserveFoundNotPersisted
	if remove {
		persistIdentifier = facade.ObserveNotFoundPersisted
		replicaIdentifier = facade.ObserveNotFoundNotPersisted
	}

	validCas := expectedCas == resp.Cas || (remove && resp.Cas == 0 && resp.Status == persistIdentifier)

	if resp.Master {
		if !validCas {
			return domain.EmptyObserveItem, resilience.ErrDocumentConcurrentlyModified
		}
		if resp.Status == persistIdentifier {
			return domain.ObserveItem{Persisted: 1, PersistedMaster: true}, nil
		}
		return domain.EmptyObserveItem, nil
	}

	if !validCas {
		return domain.EmptyObserveItem, nil
	}
	switch resp.Status {
	case persistIdentifier:
		return domain.ObserveItem{Replicated: 1, Persisted: 1}, nil
	case replicaIdentifier:
		return domain.ObserveItem{Replicated: 1}, nil
	default:
		return domain.EmptyObserveItem, nil
	}
}

func (o *ObserverCore) recordRound(bucket string, satisfied bool, fatalErr error, start time.Time) {
	if o.metrics == nil {
		return
	}
	outcome := "unsatisfied"
	switch {
	case fatalErr != nil:
		outcome = "fatal"
	case satisfied:
		outcome = "satisfied"
	}
	o.metrics.RecordObserveRound(bucket, outcome, time.Since(start).Seconds())
}

func (o *ObserverCore) recordBackoff(d time.Duration) {
	if o.metrics == nil {
		return
	}
	o.metrics.RecordObserveBackoff(d.Seconds())
}

// checkBufferReleased records buf's release and, per the buffer discipline's
// canonical verification, flags the rare case where something else still
// holds a reference after dispatch's own Release call.
func (o *ObserverCore) checkBufferReleased(logger *slog.Logger, buf *facade.Buffer) {
	if o.metrics != nil {
		o.metrics.RecordBufferReleased()
	}
	if got := buf.RefCount(); got != 0 {
		logger.Warn("observe response buffer outlived its Release", "refcount", got)
		if o.metrics != nil {
			o.metrics.RecordBufferLeaked()
		}
	}
}
