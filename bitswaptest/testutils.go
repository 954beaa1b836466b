// Package bitswaptest provides the test harness used by
// bitswap_test.go: an in-process swarm.Virtual network plus a
// generator of connected Bitswap instances. It is the direct
// generalization of the teacher's exchange/bitswap/testutils.go
// (SessionGenerator/session/Instance), swapping bsnet.Network +
// blockstore.WriteCached for swarm.Virtual + blockstore.MemStore.
package bitswaptest

import (
	"context"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/test"

	bitswap "github.com/macrocan/go-bitswap"
	"github.com/macrocan/go-bitswap/blockstore"
	"github.com/macrocan/go-bitswap/config"
	"github.com/macrocan/go-bitswap/swarm"
)

// SessionGenerator hands out Bitswap instances sharing one Virtual
// network, the same role the teacher's SessionGenerator played over a
// shared tn.Network.
type SessionGenerator struct {
	net    *swarm.Virtual
	cfg    config.Config
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSessionGenerator returns a generator backed by a fresh Virtual
// network with no simulated delay.
func NewSessionGenerator(opts ...config.Option) SessionGenerator {
	ctx, cancel := context.WithCancel(context.Background())
	return SessionGenerator{
		net:    swarm.NewVirtual(0),
		cfg:    config.DefaultConfig(opts...),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Close cancels the context shared by every instance this generator
// produced. It does not call Close on those instances, so their engines
// keep running.
func (g *SessionGenerator) Close() error {
	g.cancel()
	return nil
}

// Next returns a freshly minted, unconnected Instance.
func (g *SessionGenerator) Next() Instance {
	p, err := test.RandPeerID()
	if err != nil {
		panic(err)
	}
	return g.session(p)
}

// Instances returns n Instances, each pair already mutually connected
// (mirrors the teacher's Instances, which called PeerConnected both
// ways for every pair).
func (g *SessionGenerator) Instances(n int) []Instance {
	instances := make([]Instance, 0, n)
	for i := 0; i < n; i++ {
		instances = append(instances, g.Next())
	}
	for i, inst := range instances {
		for j, other := range instances {
			if i == j {
				continue
			}
			inst.Exchange.PeerConnected(other.Peer)
		}
	}
	return instances
}

// Instance bundles one Bitswap with the BlockStore backing it, so tests
// can seed or inspect its contents directly.
type Instance struct {
	Peer       peer.ID
	Exchange   *bitswap.Bitswap
	BlockStore *blockstore.MemStore
}

func (g *SessionGenerator) session(p peer.ID) Instance {
	bs := blockstore.NewMemStore()
	ctl := g.net.Client(p)
	bsw := bitswap.New(g.ctx, p, bs, ctl, g.cfg)

	g.net.Listen(p, func(from peer.ID, s swarm.Stream) {
		h := bsw.PeerConnected(from)
		h.HandleStream(s)
	})

	return Instance{Peer: p, Exchange: bsw, BlockStore: bs}
}
