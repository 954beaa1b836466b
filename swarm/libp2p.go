package swarm

import (
	"context"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
)

// HostControl implements Control over a real go-libp2p host.Host, the
// direct generalization of the teacher's bsnet.impl.newStreamToPeer
// (exchange/bitswap/network/ipfs_impl.go), which likewise dialed the peer
// before opening a stream. Wiring a stream handler that feeds a Handler
// (package handler) is the caller's job, mirroring
// host.SetStreamHandler(n.protoID, ...) in
// other_examples/35ac7820_gosuda-boxo-starter-kit's network.go.
type HostControl struct {
	Host host.Host
}

// NewHostControl wraps h.
func NewHostControl(h host.Host) *HostControl {
	return &HostControl{Host: h}
}

func (c *HostControl) OpenStream(ctx context.Context, p peer.ID, proto protocol.ID) (Stream, error) {
	if err := c.Host.Connect(ctx, c.Host.Peerstore().PeerInfo(p)); err != nil {
		return nil, err
	}
	s, err := c.Host.NewStream(ctx, p, proto)
	if err != nil {
		return nil, err
	}
	return hostStream{s}, nil
}

// hostStream adapts a real network.Stream to the narrow Stream contract
// this engine needs.
type hostStream struct {
	network.Stream
}

func (s hostStream) CloseWrite() error {
	return s.Stream.CloseWrite()
}

func (s hostStream) RemotePeer() peer.ID {
	return s.Stream.Conn().RemotePeer()
}
