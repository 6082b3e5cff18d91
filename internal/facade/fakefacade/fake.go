// Package fakefacade is a scriptable facade.ClusterFacade double used by the
// refresher and observer core test suites. It records every call it
// receives and returns canned responses keyed by node hostname or replica
// index, the way this corpus's mock collaborators (e.g. mockAlertStorage)
// are built: a plain struct with a mutex, no mocking framework.
package fakefacade

import (
	"context"
	"fmt"
	"sync"

	"github.com/vitaliisemenov/clustercore/internal/facade"
)

// BucketConfigScript is the canned outcome for one node's
// GetBucketConfigRequest.
type BucketConfigScript struct {
	Response facade.GetBucketConfigResponse
	Err      error
}

// ObserveScript is the canned outcome for one observe target, keyed by
// master-ness and replica index.
type ObserveScript struct {
	Response facade.ObserveResponse
	Err      error
}

// Fake is a ClusterFacade test double.
type Fake struct {
	mu sync.Mutex

	// BucketConfigByHost scripts SendGetBucketConfig per hostname, consumed
	// in FIFO order so a host can be scripted to fail then succeed.
	BucketConfigByHost map[string][]BucketConfigScript

	// ObserveByKey scripts SendObserve per "master"/"replica-<n>" key,
	// consumed in FIFO order like BucketConfigByHost; the last scripted
	// entry for a key repeats once exhausted.
	ObserveByKey map[string][]ObserveScript

	ClusterConfig    facade.GetClusterConfigResponse
	ClusterConfigErr error

	BucketConfigCalls []facade.GetBucketConfigRequest
	ObserveCalls      []facade.ObserveRequest
}

// New returns an empty Fake ready for scripting.
func New() *Fake {
	return &Fake{
		BucketConfigByHost: make(map[string][]BucketConfigScript),
		ObserveByKey:       make(map[string][]ObserveScript),
	}
}

// ScriptBucketConfig appends one scripted outcome for hostname.
func (f *Fake) ScriptBucketConfig(hostname string, resp facade.GetBucketConfigResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.BucketConfigByHost[hostname] = append(f.BucketConfigByHost[hostname], BucketConfigScript{Response: resp, Err: err})
}

// ScriptObserveMaster appends one scripted outcome for the master. Calling
// it more than once queues successive per-call responses; the last one
// queued repeats once the queue is exhausted.
func (f *Fake) ScriptObserveMaster(resp facade.ObserveResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ObserveByKey["master"] = append(f.ObserveByKey["master"], ObserveScript{Response: resp, Err: err})
}

// ScriptObserveReplica appends one scripted outcome for replica index idx,
// with the same queue-then-repeat-last semantics as ScriptObserveMaster.
func (f *Fake) ScriptObserveReplica(idx uint16, resp facade.ObserveResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := replicaKey(idx)
	f.ObserveByKey[key] = append(f.ObserveByKey[key], ObserveScript{Response: resp, Err: err})
}

func replicaKey(idx uint16) string {
	return fmt.Sprintf("replica-%d", idx)
}

func (f *Fake) SendGetBucketConfig(_ context.Context, req facade.GetBucketConfigRequest) (facade.GetBucketConfigResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.BucketConfigCalls = append(f.BucketConfigCalls, req)

	scripts := f.BucketConfigByHost[req.Hostname]
	if len(scripts) == 0 {
		return facade.GetBucketConfigResponse{}, fmt.Errorf("fakefacade: no script for host %q", req.Hostname)
	}
	next := scripts[0]
	if len(scripts) > 1 {
		f.BucketConfigByHost[req.Hostname] = scripts[1:]
	}
	return next.Response, next.Err
}

func (f *Fake) SendObserve(_ context.Context, req facade.ObserveRequest) (facade.ObserveResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ObserveCalls = append(f.ObserveCalls, req)

	key := "master"
	if !req.Master {
		key = replicaKey(req.ReplicaIndex)
	}
	scripts := f.ObserveByKey[key]
	if len(scripts) == 0 {
		return facade.ObserveResponse{}, fmt.Errorf("fakefacade: no script for %s", key)
	}
	next := scripts[0]
	if len(scripts) > 1 {
		f.ObserveByKey[key] = scripts[1:]
	}
	return next.Response, next.Err
}

func (f *Fake) SendGetClusterConfig(_ context.Context) (facade.GetClusterConfigResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ClusterConfig, f.ClusterConfigErr
}

// CallCountBucketConfig reports how many GetBucketConfig calls were made,
// for assertions like "provider called exactly once, buffer refcount 0".
func (f *Fake) CallCountBucketConfig() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.BucketConfigCalls)
}
