// Package stat implements the per-peer and fleet-wide counters of spec §3
// (Stats entries) and §4.3.4/§4.3.3 (where they are updated). Counters are
// atomic so that a peer's Stats can be shared between the Engine goroutine
// and the independent put-task it spawns (spec §5, "Per-peer Stats are
// shared... via a reference-counted handle and mutate via atomic
// counters"), the same division of labor the teacher's
// decision.activePartner uses a mutex for (decision/peer_request_queue.go)
// but which this engine's simpler counters can do lock-free.
package stat

import "sync/atomic"

// Stats holds one peer's (or the fleet's aggregate) counters. The zero
// value is ready to use.
type Stats struct {
	incomingUnique    uint64
	incomingDuplicate uint64
	outgoing          uint64
}

// New returns a fresh, zeroed Stats.
func New() *Stats { return &Stats{} }

// UpdateIncomingUnique records bytes of a first-seen received block.
func (s *Stats) UpdateIncomingUnique(n uint64) {
	atomic.AddUint64(&s.incomingUnique, n)
}

// UpdateIncomingDuplicate records bytes of an already-stored received
// block.
func (s *Stats) UpdateIncomingDuplicate(n uint64) {
	atomic.AddUint64(&s.incomingDuplicate, n)
}

// UpdateOutgoing records the number of blocks in an outbound message.
func (s *Stats) UpdateOutgoing(n uint64) {
	atomic.AddUint64(&s.outgoing, n)
}

// Snapshot is an immutable, plain-value read of a Stats' counters at one
// instant. Returned by Engine's Stats control command (spec §4.3.2) and
// used to build the fleet-wide aggregate.
type Snapshot struct {
	IncomingUnique    uint64
	IncomingDuplicate uint64
	Outgoing          uint64
}

// Snapshot reads s's counters.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		IncomingUnique:    atomic.LoadUint64(&s.incomingUnique),
		IncomingDuplicate: atomic.LoadUint64(&s.incomingDuplicate),
		Outgoing:          atomic.LoadUint64(&s.outgoing),
	}
}

// Add returns the field-wise sum of two snapshots, used to fold per-peer
// Stats into the fleet-wide aggregate (spec §4.3.2's Stats command).
func (a Snapshot) Add(b Snapshot) Snapshot {
	return Snapshot{
		IncomingUnique:    a.IncomingUnique + b.IncomingUnique,
		IncomingDuplicate: a.IncomingDuplicate + b.IncomingDuplicate,
		Outgoing:          a.Outgoing + b.Outgoing,
	}
}
