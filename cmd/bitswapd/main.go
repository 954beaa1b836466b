// Command bitswapd wires a libp2p host, an in-memory BlockStore, and the
// engine into a runnable node. It is the ambient-CLI counterpart of the
// teacher's own daemon wiring (cmd/ipfs's use of bitswap.New), simplified
// to this engine's own New/PeerConnected/PeerDisconnected surface, in the
// style other_examples/35ac7820_gosuda-boxo-starter-kit's network.New
// builds a host and registers a stream handler.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	logging "github.com/ipfs/go-log/v2"
	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"

	bitswap "github.com/macrocan/go-bitswap"
	"github.com/macrocan/go-bitswap/blockstore"
	"github.com/macrocan/go-bitswap/config"
	"github.com/macrocan/go-bitswap/swarm"
)

var log = logging.Logger("bitswapd")

func main() {
	listenAddr := flag.String("listen", "/ip4/0.0.0.0/tcp/0", "libp2p listen multiaddr")
	flag.Parse()

	h, err := libp2p.New(libp2p.ListenAddrStrings(*listenAddr))
	if err != nil {
		fmt.Fprintln(os.Stderr, "listen:", err)
		os.Exit(1)
	}
	defer h.Close()

	bs := blockstore.NewMemStore()
	ctl := swarm.NewHostControl(h)
	cfg := config.DefaultConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bsw := bitswap.New(ctx, h.ID(), bs, ctl, cfg)
	defer bsw.Close()

	h.SetStreamHandler(swarm.ProtocolID, func(s network.Stream) {
		hdlr := bsw.PeerConnected(s.Conn().RemotePeer())
		hdlr.HandleStream(streamAdapter{s})
	})
	h.Network().Notify(&connNotifiee{bsw: bsw})

	log.Infof("bitswapd listening as %s on %v", h.ID(), h.Addrs())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	<-sig
}

// connNotifiee bridges libp2p connection lifecycle into
// PeerConnected/PeerDisconnected, the connection-level half of the
// Handler lifecycle split documented in handler.Handler's doc comment.
// Mirrors the teacher's netNotifiee (exchange/bitswap/network/ipfs_impl.go).
type connNotifiee struct {
	bsw *bitswap.Bitswap
}

func (n *connNotifiee) Connected(_ network.Network, c network.Conn) {
	n.bsw.PeerConnected(c.RemotePeer())
}

func (n *connNotifiee) Disconnected(_ network.Network, c network.Conn) {
	n.bsw.PeerDisconnected(c.RemotePeer())
}

func (n *connNotifiee) Listen(network.Network, multiaddr.Multiaddr)      {}
func (n *connNotifiee) ListenClose(network.Network, multiaddr.Multiaddr) {}

// streamAdapter satisfies swarm.Stream over a real network.Stream, the
// same small adapter HostControl.OpenStream builds on the outbound side
// (swarm/libp2p.go's hostStream).
type streamAdapter struct {
	network.Stream
}

func (s streamAdapter) CloseWrite() error   { return s.Stream.CloseWrite() }
func (s streamAdapter) RemotePeer() peer.ID { return s.Stream.Conn().RemotePeer() }
