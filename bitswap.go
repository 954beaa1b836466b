// Package bitswap wires the engine, handler, and swarm/blockstore
// capabilities into the small application-facing surface the teacher's
// exchange/bitswap/bitswap.go exposed as Bitswap (New, GetBlock,
// GetBlocks, HasBlock, Close), adapted to issue the new control.Command
// values against a running engine.Engine instead of mutating a
// wantlist.ThreadSafe and PeerManager directly.
package bitswap

import (
	"context"
	"sync"

	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"
	logging "github.com/ipfs/go-log/v2"
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/macrocan/go-bitswap/blockstore"
	"github.com/macrocan/go-bitswap/bserrors"
	"github.com/macrocan/go-bitswap/config"
	"github.com/macrocan/go-bitswap/control"
	"github.com/macrocan/go-bitswap/engine"
	"github.com/macrocan/go-bitswap/handler"
	"github.com/macrocan/go-bitswap/ledger"
	"github.com/macrocan/go-bitswap/stat"
	"github.com/macrocan/go-bitswap/swarm"
	"github.com/macrocan/go-bitswap/wire"
)

var log = logging.Logger("bitswap")

// Bitswap is the application-facing handle on a running engine.
type Bitswap struct {
	self  peer.ID
	bs    blockstore.BlockStore
	eng   *engine.Engine
	ctx   context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	handlers map[peer.ID]*handler.Handler
}

// New starts an Engine bound to bs and ctl and runs it until Close is
// called. Canceling parent does not stop the engine; it cancels the
// context handed to the engine's spawned blockstore and send tasks. self
// is this node's own peer ID, used only for logging.
func New(parent context.Context, self peer.ID, bs blockstore.BlockStore, ctl swarm.Control, cfg config.Config) *Bitswap {
	ctx, cancel := context.WithCancel(parent)
	eng := engine.New(bs, ctl, swarm.ProtocolID, cfg)

	b := &Bitswap{
		self:     self,
		bs:       bs,
		eng:      eng,
		ctx:      ctx,
		cancel:   cancel,
		handlers: make(map[peer.ID]*handler.Handler),
	}

	go func() {
		if err := eng.Run(ctx); err != nil {
			log.Debugf("engine stopped: %s", err)
		}
	}()
	return b
}

// PeerConnected starts tracking p: it announces NewPeer to the engine
// and returns a Handler ready to receive p's inbound streams (spec
// §4.5). Callers wire HandleStream onto whatever stream-accept
// mechanism their Swarm implementation offers (see swarm.Virtual.Listen
// or a libp2p host.SetStreamHandler callback).
func (b *Bitswap) PeerConnected(p peer.ID) *handler.Handler {
	b.mu.Lock()
	defer b.mu.Unlock()
	if h, ok := b.handlers[p]; ok {
		return h
	}
	h := handler.New(p, b.eng.Incoming(), b.eng.PeerEvents())
	b.handlers[p] = h
	h.Start()
	return h
}

// PeerDisconnected announces DeadPeer for p and forgets its Handler.
func (b *Bitswap) PeerDisconnected(p peer.ID) {
	b.mu.Lock()
	h, ok := b.handlers[p]
	delete(b.handlers, p)
	b.mu.Unlock()
	if !ok {
		return
	}
	h.Stop()
}

// GetBlock asks the engine to want c and blocks until it arrives, either
// because the engine's own background lookup finds it already in the
// BlockStore or because some connected peer sends it. It returns
// ctx.Err() if ctx is done before a block arrives, and bserrors.ErrClosed
// if b has been closed (or its parent context canceled).
func (b *Bitswap) GetBlock(ctx context.Context, c cid.Cid) (blocks.Block, error) {
	if b.ctx.Err() != nil {
		return nil, bserrors.ErrClosed
	}
	reply := make(chan blocks.Block, 1)
	cmd := control.WantBlock{Cid: c, Priority: wire.DefaultPriority, Reply: reply}
	select {
	case b.eng.Commands() <- cmd:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case blk, ok := <-reply:
		if !ok {
			return nil, bserrors.ErrClosed
		}
		return blk, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetBlocks behaves like GetBlock for each of cids, fanning results into
// a single channel in the order they arrive. The channel is closed once
// every block has been delivered or ctx is done.
func (b *Bitswap) GetBlocks(ctx context.Context, cids []cid.Cid) (<-chan blocks.Block, error) {
	out := make(chan blocks.Block, len(cids))
	var wg sync.WaitGroup
	for _, c := range cids {
		wg.Add(1)
		go func(c cid.Cid) {
			defer wg.Done()
			blk, err := b.GetBlock(ctx, c)
			if err != nil {
				return
			}
			out <- blk
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out, nil
}

// HasBlock stores blk locally and makes it available to any peer or
// local caller already waiting on it (spec §4.3.3's delivery path,
// entered here instead of from an incoming wire message).
func (b *Bitswap) HasBlock(ctx context.Context, blk blocks.Block) error {
	if _, _, err := b.bs.Put(ctx, blk); err != nil {
		return err
	}
	select {
	case b.eng.PeerEvents() <- (engine.PeerEvent{Kind: engine.BlocksReady, Blocks: []blocks.Block{blk}}):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CancelBlock withdraws interest in c (spec §4.3.2).
func (b *Bitswap) CancelBlock(ctx context.Context, c cid.Cid) error {
	select {
	case b.eng.Commands() <- control.CancelBlock{Cid: c}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WantlistForPeer returns the CIDs p has told us it wants.
func (b *Bitswap) WantlistForPeer(ctx context.Context, p peer.ID) ([]ledger.Entry, error) {
	return b.wantlist(ctx, control.WantList{Peer: p})
}

// Wantlist returns this node's own locally wanted CIDs, each reported
// at priority 1 (spec §4.3.2, WantList(None, reply)).
func (b *Bitswap) Wantlist(ctx context.Context) ([]ledger.Entry, error) {
	return b.wantlist(ctx, control.WantList{Local: true})
}

func (b *Bitswap) wantlist(ctx context.Context, cmd control.WantList) ([]ledger.Entry, error) {
	reply := make(chan []ledger.Entry, 1)
	cmd.Reply = reply
	select {
	case b.eng.Commands() <- cmd:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case entries := <-reply:
		return entries, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Peers returns the currently connected peer set.
func (b *Bitswap) Peers(ctx context.Context) ([]peer.ID, error) {
	reply := make(chan []peer.ID, 1)
	select {
	case b.eng.Commands() <- control.Peers{Reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case ps := <-reply:
		return ps, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stats returns the fleet-wide aggregate Stats snapshot.
func (b *Bitswap) Stats(ctx context.Context) (stat.Snapshot, error) {
	return b.statsFor(ctx, peer.ID(""))
}

// PeerStats returns p's own Stats snapshot.
func (b *Bitswap) PeerStats(ctx context.Context, p peer.ID) (stat.Snapshot, error) {
	return b.statsFor(ctx, p)
}

func (b *Bitswap) statsFor(ctx context.Context, p peer.ID) (stat.Snapshot, error) {
	reply := make(chan stat.Snapshot, 1)
	select {
	case b.eng.Commands() <- control.Stats{Peer: p, Reply: reply}:
	case <-ctx.Done():
		return stat.Snapshot{}, ctx.Err()
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return stat.Snapshot{}, ctx.Err()
	}
}

// Close shuts the engine down and waits for its spawned tasks to drain.
func (b *Bitswap) Close() error {
	b.cancel()
	b.eng.Close()
	return nil
}
