// Package swarm defines the Swarm capability (spec §6): the ability to
// open a write-then-close stream to a peer under a negotiated protocol,
// abstracted away from any particular transport. It generalizes the
// teacher's bsnet.BitSwapNetwork.SendMessage (exchange/bitswap/network/ipfs_impl.go)
// and the Rust original's `libp2p_rs::swarm::Control` (referenced, not
// defined, in original_source/bitswap/src/bitswap.rs).
package swarm

import (
	"context"
	"io"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
)

// Stream is the narrow read/write/close contract this engine needs from a
// transport stream: write the frame, signal end-of-write, read a response
// if any, and know who is on the other end. A real go-libp2p
// network.Stream satisfies it trivially (see HostControl in libp2p.go);
// tests satisfy it with an in-memory pipe (virtual.go).
type Stream interface {
	io.Reader
	io.Writer
	io.Closer
	// CloseWrite signals that no more data will be written, without
	// tearing down the read half (half-close), matching the
	// write-then-close usage of spec §4.3.4.
	CloseWrite() error
	RemotePeer() peer.ID
}

// Control is the capability the engine clones into every outbound-send
// task (spec §4.3.4, §5): open a new stream to a peer under a given
// protocol ID. Implementations must be cheap to clone/share across
// goroutines.
type Control interface {
	OpenStream(ctx context.Context, p peer.ID, proto protocol.ID) (Stream, error)
}

// ProtocolID is the bitswap wire protocol identifier negotiated on stream
// open (spec §6), following the teacher's ProtocolBitswap constant
// (exchange/bitswap/network, value not present in the copied subset) and
// the protocol family named in spec.md.
const ProtocolID = protocol.ID("/ipfs/bitswap/1.2.0")
