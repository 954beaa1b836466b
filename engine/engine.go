// Package engine implements the single cooperative event loop of spec
// §4.3: the Engine owns every peer's Ledger, the fleet-wide Stats, and
// the locally wanted-block set, and is the only goroutine that ever
// mutates them. It is grounded on original_source/bitswap/src/bitswap.rs's
// `Bitswap::next` select loop, generalized from Rust's tokio::select!
// over mpsc/oneshot channels onto Go channels and goroutines, in the
// structural shape of the teacher's exchange/bitswap/peermanager.go
// run() loop (a single goroutine draining several channels).
package engine

import (
	"context"
	"sync"

	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"
	logging "github.com/ipfs/go-log/v2"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	"golang.org/x/sync/semaphore"

	"github.com/macrocan/go-bitswap/blockstore"
	"github.com/macrocan/go-bitswap/bserrors"
	"github.com/macrocan/go-bitswap/config"
	"github.com/macrocan/go-bitswap/control"
	"github.com/macrocan/go-bitswap/ledger"
	"github.com/macrocan/go-bitswap/stat"
	"github.com/macrocan/go-bitswap/swarm"
	"github.com/macrocan/go-bitswap/wire"
)

var log = logging.Logger("bitswap/engine")

type wantRequest struct {
	priority wire.Priority
	replies  []chan<- blocks.Block
}

// Engine is the event loop described above. Construct with New, feed it
// via PeerEvents/Incoming/Commands, and run it with Run in its own
// goroutine.
type Engine struct {
	bs    blockstore.BlockStore
	ctl   swarm.Control
	proto protocol.ID
	cfg   config.Config

	peerEvents chan PeerEvent
	incoming   chan IncomingMessage
	commands   chan control.Command

	sem *semaphore.Weighted
	wg  sync.WaitGroup

	// Touched only from the Run goroutine.
	wanted map[cid.Cid]*wantRequest
	peers  map[peer.ID]*ledger.Ledger
	stats  map[peer.ID]*stat.Stats
}

// New builds an Engine. bs and ctl are the BlockStore and Swarm
// capabilities (spec §6); proto is the protocol ID used for outbound
// streams.
func New(bs blockstore.BlockStore, ctl swarm.Control, proto protocol.ID, cfg config.Config) *Engine {
	return &Engine{
		bs:         bs,
		ctl:        ctl,
		proto:      proto,
		cfg:        cfg,
		peerEvents: make(chan PeerEvent, cfg.ChannelBuffer),
		incoming:   make(chan IncomingMessage, cfg.ChannelBuffer),
		commands:   make(chan control.Command, cfg.ChannelBuffer),
		sem:        semaphore.NewWeighted(int64(cfg.TaskWorkers)),
		wanted:     make(map[cid.Cid]*wantRequest),
		peers:      make(map[peer.ID]*ledger.Ledger),
		stats:      make(map[peer.ID]*stat.Stats),
	}
}

// PeerEvents is the channel Handler instances (and the engine's own
// spawned tasks) post NewPeer/DeadPeer/BlocksReady events onto.
func (e *Engine) PeerEvents() chan<- PeerEvent { return e.peerEvents }

// Incoming is the channel Handler instances post decoded wire messages
// onto.
func (e *Engine) Incoming() chan<- IncomingMessage { return e.incoming }

// Commands is the control surface (package control) callers issue
// WantBlock/CancelBlock/WantList/Peers/Stats on.
func (e *Engine) Commands() chan<- control.Command { return e.commands }

// Close signals the event loop to terminate: spec §9 names the control
// channel's closure, not ctx cancellation, as the one thing that
// terminates the loop. Close waits for every spawned task to finish
// before returning.
func (e *Engine) Close() {
	close(e.commands)
	e.wg.Wait()
}

// Run drives the event loop until the control channel is closed, then
// returns bserrors.ErrClosing (spec §7: "Closing — control channel
// fully closed; terminates the event loop cleanly"). Run must be called
// from its own goroutine; it blocks until Close is called.
func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case ev, ok := <-e.peerEvents:
			if !ok {
				e.peerEvents = nil
				continue
			}
			e.handlePeerEvent(ctx, ev)
		case im, ok := <-e.incoming:
			if !ok {
				e.incoming = nil
				continue
			}
			e.handleIncoming(ctx, im)
		case cmd, ok := <-e.commands:
			if !ok {
				e.shutdown()
				return bserrors.ErrClosing
			}
			e.handleCommand(ctx, cmd)
		}
	}
}

// shutdown closes out every still-pending local want with no block, the
// signal a caller blocked on a WantBlock reply uses to notice the engine
// is gone (spec §7, ErrClosing).
func (e *Engine) shutdown() {
	for c, wr := range e.wanted {
		for _, r := range wr.replies {
			close(r)
		}
		delete(e.wanted, c)
	}
}

func (e *Engine) handlePeerEvent(ctx context.Context, ev PeerEvent) {
	switch ev.Kind {
	case NewPeer:
		e.onNewPeer(ctx, ev.Peer)
	case DeadPeer:
		delete(e.peers, ev.Peer)
		delete(e.stats, ev.Peer)
	case BlocksReady:
		for _, b := range ev.Blocks {
			e.deliverBlock(ctx, b)
		}
	}
}

// onNewPeer implements spec §4.4: a fresh Ledger is created, and if there
// is an existing locally wanted set, a wantlist snapshot is sent
// directly to the new peer. Per spec §9a (Open Question 2), this
// bootstrap message is built straight from e.wanted and handed to
// spawnSend without passing through the peer's Ledger.Send(), so it is
// never recorded into that peer's sentWantList bookkeeping.
func (e *Engine) onNewPeer(ctx context.Context, p peer.ID) {
	if _, ok := e.peers[p]; ok {
		return
	}
	e.peers[p] = ledger.New()
	e.stats[p] = stat.New()

	if len(e.wanted) == 0 {
		return
	}
	msg := wire.New()
	for c, wr := range e.wanted {
		msg.WantBlock(c, wr.priority)
	}
	e.spawnSend(ctx, p, msg)
}

func (e *Engine) handleIncoming(ctx context.Context, im IncomingMessage) {
	l, ok := e.peers[im.Source]
	if !ok {
		// A message arrived from a peer the engine hasn't seen a NewPeer
		// for yet; treat it as an implicit connect rather than drop it.
		l = ledger.New()
		e.peers[im.Source] = l
		e.stats[im.Source] = stat.New()
	}
	s := e.stats[im.Source]
	m := im.Message

	for c, p := range m.Want() {
		// spec §9a (Open Question 4 / TESTABLE scenario 5): a CID we
		// already want ourselves is never recorded as received from a
		// peer, and never triggers a blockstore lookup on its behalf.
		if _, localWant := e.wanted[c]; localWant {
			continue
		}
		l.ReceivedWantList[c] = p
		e.spawnLookup(ctx, c)
	}
	for c := range m.Cancel() {
		delete(l.ReceivedWantList, c)
	}
	// m.Have() and m.DontHave(): spec §9a (Open Question 3). Presence
	// entries are decoded but never acted on; read them only so a
	// future codec change that adds behavior here has an obvious spot.
	_ = m.Have()
	_ = m.DontHave()

	// §4.3.3 step 3: unique-vs-duplicate is decided by Put's own "did I
	// just insert this" result, not a pre-check, so every received block
	// (new or already-held) is handed off identically and still reaches
	// deliverBlock once stored (step 1: delivery to waiters is
	// unconditional; step 2: every peer gets the resulting cancel).
	for _, b := range m.Blocks() {
		e.spawnPut(ctx, b, s)
	}
}

func (e *Engine) handleCommand(ctx context.Context, cmd control.Command) {
	switch c := cmd.(type) {
	case control.WantBlock:
		wr, ok := e.wanted[c.Cid]
		if !ok {
			wr = &wantRequest{priority: c.Priority}
			e.wanted[c.Cid] = wr
		} else if c.Priority > wr.priority {
			wr.priority = c.Priority
		}
		if c.Reply != nil {
			wr.replies = append(wr.replies, c.Reply)
		}
		for _, l := range e.peers {
			l.WantBlock(c.Cid, c.Priority)
		}
		// spec §9a (Open Question 1): no flush is triggered here, on
		// purpose. The want sits queued in every peer's Ledger until
		// some other event flushes that Ledger (a later CancelBlock, a
		// block that satisfies a local want, or a block served to that
		// peer). A peer that disconnects loses its Ledger; on reconnect
		// it gets the want in its NewPeer bootstrap snapshot instead.
		e.spawnLookup(ctx, c.Cid)

	case control.CancelBlock:
		delete(e.wanted, c.Cid)
		for p, l := range e.peers {
			l.CancelBlock(c.Cid)
			if m := l.Send(); m != nil {
				e.spawnSend(ctx, p, m)
			}
		}

	case control.WantList:
		var entries []ledger.Entry
		if c.Local {
			// spec §4.3.2: WantList(None, reply) reports the locally
			// wanted set, every entry at priority 1, not a peer's
			// ReceivedWantList.
			for cd := range e.wanted {
				entries = append(entries, ledger.Entry{Cid: cd, Priority: wire.DefaultPriority})
			}
		} else if l, ok := e.peers[c.Peer]; ok {
			for cd, p := range l.ReceivedWantList {
				entries = append(entries, ledger.Entry{Cid: cd, Priority: p})
			}
		}
		c.Reply <- entries

	case control.Peers:
		ps := make([]peer.ID, 0, len(e.peers))
		for p := range e.peers {
			ps = append(ps, p)
		}
		c.Reply <- ps

	case control.Stats:
		if c.Peer == peer.ID("") {
			var agg stat.Snapshot
			for _, s := range e.stats {
				agg = agg.Add(s.Snapshot())
			}
			c.Reply <- agg
			return
		}
		if s, ok := e.stats[c.Peer]; ok {
			c.Reply <- s.Snapshot()
		} else {
			c.Reply <- stat.Snapshot{}
		}
	}
}

// deliverBlock implements spec §4.3.3: a block that is now known to be
// available, whether freshly received from a peer or freshly loaded from
// the BlockStore, is handed to whoever asked for it.
//
// Per spec §9a (Open Question 4), a CID present in e.wanted (we want it
// ourselves) is never also served to a requesting peer, even if one
// exists: the two checks are mutually exclusive below, reproducing the
// source's behavior rather than fixing it into "serve everyone who
// asked".
//
// When the block satisfies a local want, every connected peer's ledger
// is also told to cancel that CID and flushed (TESTABLE scenario 1:
// "every other connected peer's ledger contains cid in cancel"). Any want
// queued earlier by the WantBlock command (spec §9a, Open Question 1)
// piggy-backs on this flush; the CancelBlock command and the
// peer-serving branch below flush ledgers the same way.
func (e *Engine) deliverBlock(ctx context.Context, b blocks.Block) {
	c := b.Cid()
	if wr, ok := e.wanted[c]; ok {
		for _, r := range wr.replies {
			// Non-blocking: a dropped or unbuffered waiter must not
			// stall the event loop (§4.3.3 step 1, "failed sends are
			// ignored").
			select {
			case r <- b:
			default:
			}
			close(r)
		}
		delete(e.wanted, c)
		for p, l := range e.peers {
			l.CancelBlock(c)
			if m := l.Send(); m != nil {
				e.spawnSend(ctx, p, m)
			}
		}
		return
	}
	for p, l := range e.peers {
		if _, wants := l.ReceivedWantList[c]; !wants {
			continue
		}
		delete(l.ReceivedWantList, c)
		l.AddBlock(b)
		if m := l.Send(); m != nil {
			e.spawnSend(ctx, p, m)
		}
	}
}

// spawnLookup asks the BlockStore for c in the background and, if found,
// folds the result back into the event loop as a BlocksReady event
// (spec §9, "re-entrant events" keeping all mutation on one goroutine).
func (e *Engine) spawnLookup(ctx context.Context, c cid.Cid) {
	e.spawn(func() {
		b, err := e.bs.Get(ctx, c)
		if err != nil {
			log.Debugf("blockstore get(%s): %s", c, &bserrors.BlockStoreError{Op: "get", Err: err})
			return
		}
		if b == nil {
			return
		}
		e.peerEvents <- PeerEvent{Kind: BlocksReady, Blocks: []blocks.Block{b}}
	})
}

// spawnPut stores a freshly received block and then posts it back as a
// BlocksReady event so it can be delivered to local and remote wanters
// (spec §4.3.3 step 1); a failed Put is logged and the block is still
// posted, so delivery does not depend on storage. Put's own "did this insert a new block"
// result, not a prior Has check, decides unique vs. duplicate (step 3):
// s is the sending peer's Stats, safe to update directly from this
// goroutine since stat.Stats is built for exactly that (see stat.go).
func (e *Engine) spawnPut(ctx context.Context, b blocks.Block, s *stat.Stats) {
	e.spawn(func() {
		_, inserted, err := e.bs.Put(ctx, b)
		if err != nil {
			log.Warnf("blockstore put(%s): %s", b.Cid(), &bserrors.BlockStoreError{Op: "put", Err: err})
		} else {
			n := uint64(len(b.RawData()))
			if inserted {
				s.UpdateIncomingUnique(n)
			} else {
				s.UpdateIncomingDuplicate(n)
			}
		}
		e.peerEvents <- PeerEvent{Kind: BlocksReady, Blocks: []blocks.Block{b}}
	})
}

// spawnSend implements spec §4.3.4: open a new stream to p, write m,
// close for writing, and update outgoing Stats. A nil/empty message is
// never sent.
func (e *Engine) spawnSend(ctx context.Context, p peer.ID, m *wire.Message) {
	if m == nil || m.IsEmpty() {
		return
	}
	if s, ok := e.stats[p]; ok {
		s.UpdateOutgoing(uint64(m.NumBlocks()))
	}
	e.spawn(func() {
		sendCtx := ctx
		var cancel context.CancelFunc
		if e.cfg.SendTimeout > 0 {
			sendCtx, cancel = context.WithTimeout(ctx, e.cfg.SendTimeout)
			defer cancel()
		}
		stream, err := e.ctl.OpenStream(sendCtx, p, e.proto)
		if err != nil {
			log.Debugf("open stream to %s: %s", p, &bserrors.TransportError{Peer: p.String(), Err: err})
			return
		}
		defer stream.Close()
		if err := wire.WriteTo(stream, m); err != nil {
			log.Debugf("write message to %s: %s", p, &bserrors.TransportError{Peer: p.String(), Err: err})
			return
		}
		if err := stream.CloseWrite(); err != nil {
			log.Debugf("close-write to %s: %s", p, &bserrors.TransportError{Peer: p.String(), Err: err})
		}
	})
}

// spawn runs fn in its own goroutine, bounded by cfg.TaskWorkers via a
// weighted semaphore. The semaphore is acquired inside the goroutine,
// never on the Run goroutine's call stack, so a full worker pool blocks
// new tasks from starting without ever blocking the event loop itself.
func (e *Engine) spawn(fn func()) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.sem.Acquire(context.Background(), 1); err != nil {
			return
		}
		defer e.sem.Release(1)
		fn()
	}()
}
