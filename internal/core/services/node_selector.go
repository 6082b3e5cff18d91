// Package services implements the cores that drive cluster-config refresh
// and mutation-durability observation: RefresherCore and ObserverCore.
package services

import (
	"iter"

	"github.com/vitaliisemenov/clustercore/internal/domain"
)

// SelectKVNodes returns a lazy, finite, non-restartable sequence over the
// KV-enabled nodes of cfg, in the order they appear in cfg.Nodes. Nodes
// without the "direct" service tag are skipped. Each call to SelectKVNodes
// produces a fresh sequence; ranging over a returned iter.Seq twice is not
// supported by iter.Seq itself, but calling SelectKVNodes again always
// starts over from the first node.
func SelectKVNodes(cfg domain.BucketConfig) iter.Seq[domain.NodeInfo] {
	return func(yield func(domain.NodeInfo) bool) {
		for _, node := range cfg.Nodes {
			if !node.KVEnabled() {
				continue
			}
			if !yield(node) {
				return
			}
		}
	}
}
