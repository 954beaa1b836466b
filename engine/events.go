package engine

import (
	blocks "github.com/ipfs/go-block-format"
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/macrocan/go-bitswap/wire"
)

// PeerEventKind tags the variants of PeerEvent, mirroring
// original_source/bitswap/src/bitswap.rs's `enum ProtocolEvent`.
type PeerEventKind int

const (
	// NewPeer announces a freshly connected peer (spec §4.3 item 1).
	NewPeer PeerEventKind = iota
	// DeadPeer announces a disconnected peer.
	DeadPeer
	// BlocksReady is synthesized by the engine itself when a spawned
	// block-store lookup (spec §4.3.1 step 4) finds a block or a spawned
	// put of a received block completes, and by Bitswap.HasBlock for a
	// locally added block; it is posted
	// back onto the same channel that carries NewPeer/DeadPeer so that
	// all ledger mutation stays on the single event-loop goroutine
	// (spec §9, "re-entrant events").
	BlocksReady
)

// PeerEvent is the first of the engine's four multiplexed event sources
// (spec §4.3 item 1).
type PeerEvent struct {
	Kind  PeerEventKind
	Peer  peer.ID
	Blocks []blocks.Block // only set for BlocksReady
}

// IncomingMessage is the second event source: a decoded wire message
// attributed to the peer that sent it (spec §4.3 item 2).
type IncomingMessage struct {
	Source  peer.ID
	Message *wire.Message
}
