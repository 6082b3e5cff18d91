// Package facade declares the binary protocol transport boundary the
// refresher and observer cores poll through. Wire encoding, TCP/TLS session
// management, and node discovery below this boundary are out of scope — a
// real implementation supplies a ClusterFacade; tests supply fakefacade.
package facade

import (
	"context"

	"github.com/vitaliisemenov/clustercore/internal/domain"
)

// ResponseStatus is the top-level outcome of a GetBucketConfigRequest.
type ResponseStatus int

const (
	StatusSuccess ResponseStatus = iota
	StatusFailure
)

func (s ResponseStatus) String() string {
	if s == StatusSuccess {
		return "SUCCESS"
	}
	return "FAILURE"
}

// ObserveStatus is the per-replica key-state reported by an observe
// request.
type ObserveStatus int

const (
	ObserveFoundPersisted ObserveStatus = iota
	ObserveFoundNotPersisted
	ObserveNotFoundPersisted
	ObserveNotFoundNotPersisted
	ObserveLogicallyDeleted
	ObserveOther
)

func (s ObserveStatus) String() string {
	switch s {
	case ObserveFoundPersisted:
		return "FOUND_PERSISTED"
	case ObserveFoundNotPersisted:
		return "FOUND_NOT_PERSISTED"
	case ObserveNotFoundPersisted:
		return "NOT_FOUND_PERSISTED"
	case ObserveNotFoundNotPersisted:
		return "NOT_FOUND_NOT_PERSISTED"
	case ObserveLogicallyDeleted:
		return "LOGICALLY_DELETED"
	default:
		return "OTHER"
	}
}

// GetBucketConfigRequest asks one specific node for its view of a bucket's
// topology.
type GetBucketConfigRequest struct {
	BucketName string
	Hostname   string
}

// GetBucketConfigResponse carries the raw config body as a reference-counted
// Buffer. Content is always non-nil when Status == StatusSuccess; callers
// must Release it exactly once regardless of Status.
type GetBucketConfigResponse struct {
	Status       ResponseStatus
	KVStatusCode int
	BucketName   string
	Content      *Buffer
	Origin       string
}

// ObserveRequest polls one node (master or a specific replica index) for the
// persistence/replication state of a single document.
type ObserveRequest struct {
	ID           string
	Cas          uint64
	Master       bool
	ReplicaIndex uint16
	BucketName   string
}

// ObserveResponse reports one node's observe outcome. Content is not
// consumed beyond status inspection but still must be released.
type ObserveResponse struct {
	Status  ObserveStatus
	Cas     uint64
	Master  bool
	Content *Buffer
}

// GetClusterConfigResponse carries the facade's current, read-only view of
// every bucket's topology.
type GetClusterConfigResponse struct {
	Config domain.ClusterConfig
}

// ClusterFacade is the sole transport collaborator both cores depend on.
// Each method corresponds to one request/response pair from the binary
// protocol; ctx governs per-call cancellation and timeout.
type ClusterFacade interface {
	SendGetBucketConfig(ctx context.Context, req GetBucketConfigRequest) (GetBucketConfigResponse, error)
	SendObserve(ctx context.Context, req ObserveRequest) (ObserveResponse, error)
	SendGetClusterConfig(ctx context.Context) (GetClusterConfigResponse, error)
}
