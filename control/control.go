// Package control defines the engine's control surface (spec §4.3.2,
// §6.2): the five commands an application can issue against a running
// engine, each carrying its own one-shot reply channel. It replaces the
// teacher's ad hoc exported methods on Bitswap (GetBlock, GetBlocks,
// WantlistForPeer, ...) with the explicit command values the spec's
// single-event-loop design requires, the same shape as
// original_source/bitswap/src/bitswap.rs's `Control` struct of mpsc
// senders paired with oneshot replies.
package control

import (
	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/macrocan/go-bitswap/ledger"
	"github.com/macrocan/go-bitswap/stat"
	"github.com/macrocan/go-bitswap/wire"
)

// Command is the marker interface satisfied by every control command.
// The engine's control loop does a type switch over it (spec §4.3.2).
type Command interface {
	isCommand()
}

// WantBlock records c as wanted at the given priority and arranges for
// reply to receive the block once it is obtained, whether from a peer's
// response or the local BlockStore. Per spec §9 (Open Question 1), this
// does not itself solicit any already-connected peer; it only takes
// effect the next time a message is sent to a peer (e.g. on that peer's
// NewPeer bootstrap, or the next Send() flush).
type WantBlock struct {
	Cid      cid.Cid
	Priority wire.Priority
	Reply    chan<- blocks.Block
}

func (WantBlock) isCommand() {}

// CancelBlock withdraws interest in c: it is removed from wanted_blocks
// (pending waiters are dropped without delivery), and a cancel entry for
// c is queued in every connected peer's Ledger, which is then flushed.
type CancelBlock struct {
	Cid cid.Cid
}

func (CancelBlock) isCommand() {}

// WantList asks for a wantlist snapshot (spec §4.3.2). With Local set,
// it is the WantList(None, reply) case: the locally wanted set, every
// entry at priority 1. Otherwise it is peer Peer's ReceivedWantList,
// the CIDs that peer has told us it wants.
type WantList struct {
	Local bool
	Peer  peer.ID
	Reply chan<- []ledger.Entry
}

func (WantList) isCommand() {}

// Peers asks for the current set of connected peers.
type Peers struct {
	Reply chan<- []peer.ID
}

func (Peers) isCommand() {}

// Stats asks for a Stats snapshot. If Peer is the zero peer.ID, Reply
// receives the fleet-wide aggregate across all connected peers;
// otherwise it receives that one peer's snapshot (the zero Snapshot if
// the peer is not connected).
type Stats struct {
	Peer  peer.ID
	Reply chan<- stat.Snapshot
}

func (Stats) isCommand() {}
