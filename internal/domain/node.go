// Package domain holds the cluster topology and durability types shared by
// the refresher and observer cores.
package domain

// kvServiceTag is the services-map key a node must carry to be considered
// usable by the binary key-value protocol.
const kvServiceTag = "direct"

// NodeInfo describes a single node in a bucket's topology: its hostname and
// the services it exposes, keyed by service tag (e.g. "direct", "mgmt").
type NodeInfo struct {
	Hostname string
	Services map[string]int
}

// KVEnabled reports whether this node exposes the binary key-value service.
// Nodes without it are never selected by RefresherCore or ObserverCore.
func (n NodeInfo) KVEnabled() bool {
	_, ok := n.Services[kvServiceTag]
	return ok
}
