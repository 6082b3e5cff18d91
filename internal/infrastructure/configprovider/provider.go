// Package configprovider implements the ConfigurationProvider that
// RefresherCore proposes bucket-config bodies to, and exposes the resulting
// topology to the rest of the process.
package configprovider

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/vitaliisemenov/clustercore/internal/domain"
	"github.com/vitaliisemenov/clustercore/pkg/metrics"
)

// wireNode mirrors one node entry in a proposed config body.
type wireNode struct {
	Hostname string         `json:"hostname"`
	Services map[string]int `json:"services"`
}

// wireBucketConfig mirrors the JSON body RefresherCore hands to
// ProposeBucketConfig.
type wireBucketConfig struct {
	Name             string     `json:"name"`
	Nodes            []wireNode `json:"nodes"`
	NumberOfReplicas int        `json:"numberOfReplicas"`
}

// OnAcceptedFunc is invoked, outside the acceptance path's lock, every time
// a proposed config is accepted for a bucket.
type OnAcceptedFunc func(domain.BucketConfig)

// Provider holds the process's current view of every registered bucket's
// topology behind an atomic.Value, so ObserverCore and RefresherCore can
// read it without blocking on whoever is mid-update. Accepted configs
// replace the previous snapshot wholesale; there is no partial update.
type Provider struct {
	current    atomic.Value // domain.ClusterConfig
	mu         sync.Mutex   // serializes copy-and-swap in ProposeBucketConfig
	logger     *slog.Logger
	metrics    *metrics.ClusterMetrics
	onAccepted OnAcceptedFunc
}

// NewProvider returns a Provider with an empty initial snapshot. A nil
// ClusterMetrics disables the config-changed counter.
func NewProvider(logger *slog.Logger, m *metrics.ClusterMetrics) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Provider{logger: logger, metrics: m}
	p.current.Store(domain.ClusterConfig{})
	return p
}

// OnAccepted installs a hook called after a config is accepted.
func (p *Provider) OnAccepted(fn OnAcceptedFunc) {
	p.onAccepted = fn
}

// ProposeBucketConfig implements services.ConfigurationProvider. body must
// decode to a non-empty node list; anything else is rejected without
// touching the stored snapshot.
func (p *Provider) ProposeBucketConfig(name, body string) error {
	var wire wireBucketConfig
	if err := json.Unmarshal([]byte(body), &wire); err != nil {
		return fmt.Errorf("configprovider: decode bucket %q body: %w", name, err)
	}
	if len(wire.Nodes) == 0 {
		return fmt.Errorf("configprovider: bucket %q proposal has no nodes", name)
	}

	bucketCfg := domain.BucketConfig{
		Name:             name,
		NumberOfReplicas: wire.NumberOfReplicas,
		Nodes:            make([]domain.NodeInfo, len(wire.Nodes)),
	}
	for i, n := range wire.Nodes {
		bucketCfg.Nodes[i] = domain.NodeInfo{Hostname: n.Hostname, Services: n.Services}
	}

	p.mu.Lock()
	next := p.cloneSnapshot()
	previous, hadPrevious := next[name]
	changed := !hadPrevious || !reflect.DeepEqual(previous.Nodes, bucketCfg.Nodes) || previous.NumberOfReplicas != bucketCfg.NumberOfReplicas
	next[name] = bucketCfg
	p.current.Store(next)
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.RecordConfigChanged(name, changed)
	}
	p.logger.Debug("bucket config accepted", "bucket", name, "nodes", len(bucketCfg.Nodes), "replicas", bucketCfg.NumberOfReplicas, "changed", changed)

	if p.onAccepted != nil {
		p.onAccepted(bucketCfg)
	}
	return nil
}

// Snapshot returns the current cluster-wide view. The returned map is a
// copy; mutating it has no effect on the Provider.
func (p *Provider) Snapshot() domain.ClusterConfig {
	return p.cloneSnapshot()
}

// Bucket returns the current topology for name, if known.
func (p *Provider) Bucket(name string) (domain.BucketConfig, bool) {
	snap := p.current.Load().(domain.ClusterConfig)
	bucketCfg, ok := snap[name]
	return bucketCfg, ok
}

func (p *Provider) cloneSnapshot() domain.ClusterConfig {
	snap := p.current.Load().(domain.ClusterConfig)
	clone := make(domain.ClusterConfig, len(snap))
	for k, v := range snap {
		clone[k] = v
	}
	return clone
}
