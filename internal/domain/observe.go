package domain

// ObserveItem is the immutable aggregate of per-replica observe outcomes
// accumulated across one polling round. It forms a commutative monoid:
// EmptyObserveItem is the identity, Add is associative and commutative.
type ObserveItem struct {
	Replicated      int
	Persisted       int
	PersistedMaster bool
}

// EmptyObserveItem is the monoid identity — the starting state of every scan.
var EmptyObserveItem = ObserveItem{}

// Add combines two ObserveItems: componentwise sum, boolean OR on
// PersistedMaster.
func (i ObserveItem) Add(other ObserveItem) ObserveItem {
	return ObserveItem{
		Replicated:      i.Replicated + other.Replicated,
		Persisted:       i.Persisted + other.Persisted,
		PersistedMaster: i.PersistedMaster || other.PersistedMaster,
	}
}

// PersistTo is the minimum persist-to-disk durability requirement for a
// mutation.
type PersistTo int

const (
	PersistNone PersistTo = iota
	PersistMaster
	PersistOne
	PersistTwo
	PersistThree
	PersistFour
)

// Value returns the numeric durability level: NONE=0, MASTER=1, ONE=1,
// TWO=2, THREE=3, FOUR=4.
func (p PersistTo) Value() int {
	switch p {
	case PersistNone:
		return 0
	case PersistMaster, PersistOne:
		return 1
	case PersistTwo:
		return 2
	case PersistThree:
		return 3
	case PersistFour:
		return 4
	default:
		return 0
	}
}

// TouchesReplica reports whether satisfying this level requires observing
// any replica at all (MASTER and ONE only touch the master).
func (p PersistTo) TouchesReplica() bool {
	return p.Value() >= 2
}

// Valid reports whether p is one of the defined PersistTo levels.
func (p PersistTo) Valid() bool {
	switch p {
	case PersistNone, PersistMaster, PersistOne, PersistTwo, PersistThree, PersistFour:
		return true
	default:
		return false
	}
}

// String returns the wire-style name of the level.
func (p PersistTo) String() string {
	switch p {
	case PersistNone:
		return "NONE"
	case PersistMaster:
		return "MASTER"
	case PersistOne:
		return "ONE"
	case PersistTwo:
		return "TWO"
	case PersistThree:
		return "THREE"
	case PersistFour:
		return "FOUR"
	default:
		return "UNKNOWN"
	}
}

// ReplicateTo is the minimum in-memory replication requirement for a
// mutation.
type ReplicateTo int

const (
	ReplicateNone ReplicateTo = iota
	ReplicateOne
	ReplicateTwo
	ReplicateThree
)

// Value returns the numeric durability level: NONE=0, ONE=1, TWO=2, THREE=3.
func (r ReplicateTo) Value() int {
	switch r {
	case ReplicateNone:
		return 0
	case ReplicateOne:
		return 1
	case ReplicateTwo:
		return 2
	case ReplicateThree:
		return 3
	default:
		return 0
	}
}

// TouchesReplica reports whether satisfying this level requires observing
// any replica at all.
func (r ReplicateTo) TouchesReplica() bool {
	return r.Value() >= 1
}

// Valid reports whether r is one of the defined ReplicateTo levels.
func (r ReplicateTo) Valid() bool {
	switch r {
	case ReplicateNone, ReplicateOne, ReplicateTwo, ReplicateThree:
		return true
	default:
		return false
	}
}

// String returns the wire-style name of the level.
func (r ReplicateTo) String() string {
	switch r {
	case ReplicateNone:
		return "NONE"
	case ReplicateOne:
		return "ONE"
	case ReplicateTwo:
		return "TWO"
	case ReplicateThree:
		return "THREE"
	default:
		return "UNKNOWN"
	}
}

// Check reports whether item satisfies the given persist/replicate
// criterion. persistTo == PersistNone and replicateTo == ReplicateNone is
// satisfied by the empty item — the criterion is vacuously true, not
// unreachable.
func Check(item ObserveItem, persistTo PersistTo, replicateTo ReplicateTo) bool {
	persistDone := item.Persisted >= persistTo.Value()
	if persistTo == PersistMaster {
		persistDone = item.PersistedMaster
	}
	replicateDone := item.Replicated >= replicateTo.Value()
	return persistDone && replicateDone
}
