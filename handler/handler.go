// Package handler implements the per-peer stream adapter of spec §4.5: it
// turns raw Swarm streams into the engine's PeerEvent/IncomingMessage
// event stream. It generalizes the teacher's bsnet.impl.handleNewStream
// (exchange/bitswap/network/ipfs_impl.go), which read one bsmsg.FromNet
// message per inbound stream and forwarded it to the wired Receiver.
package handler

import (
	"bufio"

	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/macrocan/go-bitswap/engine"
	"github.com/macrocan/go-bitswap/swarm"
	"github.com/macrocan/go-bitswap/wire"
)

// Handler is bound to one remote peer for the lifetime of the connection
// to it. Its NewPeer/DeadPeer announcements are connection-scoped
// (Start/Stop), while HandleStream may be called once per inbound stream
// that peer opens; this reconciles spec §4.5's "one Handler instance per
// live stream" wording with spec §4.3.4's own write-then-close convention
// for outbound sends (see DESIGN.md, "Handler lifecycle").
type Handler struct {
	peer       peer.ID
	incoming   chan<- engine.IncomingMessage
	peerEvents chan<- engine.PeerEvent
}

// New returns a Handler for p that posts decoded messages and lifecycle
// events onto the given channels, normally the engine's own input
// channels (spec §4.3).
func New(p peer.ID, incoming chan<- engine.IncomingMessage, peerEvents chan<- engine.PeerEvent) *Handler {
	return &Handler{peer: p, incoming: incoming, peerEvents: peerEvents}
}

// Start announces p as newly connected (spec §4.3 item 1, NewPeer). Call
// once, when the underlying connection is established.
func (h *Handler) Start() {
	h.peerEvents <- engine.PeerEvent{Kind: engine.NewPeer, Peer: h.peer}
}

// Stop announces p as disconnected (DeadPeer). Call once, when the
// underlying connection tears down.
func (h *Handler) Stop() {
	h.peerEvents <- engine.PeerEvent{Kind: engine.DeadPeer, Peer: h.peer}
}

// HandleStream reads every length-delimited frame off s, decodes it, and
// posts it as an IncomingMessage attributed to h.peer, until s yields an
// error (EOF, reset, or a malformed frame), at which point HandleStream
// closes s and returns. It does not itself emit NewPeer/DeadPeer; callers
// wire it as the stream-accept callback for an already-Start()ed peer.
func (h *Handler) HandleStream(s swarm.Stream) {
	defer s.Close()
	br := bufio.NewReader(s)
	for {
		msg, err := wire.ReadFrom(br)
		if err != nil {
			return
		}
		h.incoming <- engine.IncomingMessage{Source: h.peer, Message: msg}
	}
}
