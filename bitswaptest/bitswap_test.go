package bitswaptest

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"
)

func mkBlock(data string) blocks.Block {
	return blocks.NewBlock([]byte(data))
}

func cidsOf(blks []blocks.Block) []cid.Cid {
	out := make([]cid.Cid, 0, len(blks))
	for _, b := range blks {
		out = append(out, b.Cid())
	}
	return out
}

// TestBasicBitswap exercises the bootstrap path (spec §4.4, §9a Open
// Question 2): a want registered before a peer connects is sent to that
// peer as soon as it connects, bypassing the normal per-peer flush.
// A want registered *after* two peers are already connected is, per
// Open Question 1, not guaranteed to reach the wire on its own; this
// harness never relies on that path to get a positive result.
func TestBasicBitswap(t *testing.T) {
	g := NewSessionGenerator()
	defer g.Close()

	wants := g.Next()
	has := g.Next()
	blk := mkBlock("basic bitswap block")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	promise, err := wants.Exchange.GetBlocks(ctx, []cid.Cid{blk.Cid()})
	if err != nil {
		t.Fatal(err)
	}

	wants.Exchange.PeerConnected(has.Peer)
	has.Exchange.PeerConnected(wants.Peer)

	if err := has.Exchange.HasBlock(context.Background(), blk); err != nil {
		t.Fatal(err)
	}

	select {
	case got, ok := <-promise:
		if !ok {
			t.Fatal("promise channel closed without delivering a block")
		}
		if !bytes.Equal(got.RawData(), blk.RawData()) {
			t.Fatal("data doesn't match")
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for block")
	}
}

// TestGetBlockFromPeerAfterPeerAnnounces exercises the same bootstrap
// path as TestBasicBitswap, but with the block already stored before
// the want is ever issued, matching the case where a peer answers a
// brand-new connection's wantlist snapshot with a block it already had.
func TestGetBlockFromPeerAfterPeerAnnounces(t *testing.T) {
	g := NewSessionGenerator()
	defer g.Close()

	hasBlock := g.Next()
	wantsBlock := g.Next()
	blk := mkBlock("announced block")

	if err := hasBlock.Exchange.HasBlock(context.Background(), blk); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	promise, err := wantsBlock.Exchange.GetBlocks(ctx, []cid.Cid{blk.Cid()})
	if err != nil {
		t.Fatal(err)
	}

	wantsBlock.Exchange.PeerConnected(hasBlock.Peer)
	hasBlock.Exchange.PeerConnected(wantsBlock.Peer)

	select {
	case got, ok := <-promise:
		if !ok {
			t.Fatal("promise channel closed without delivering a block")
		}
		if !bytes.Equal(got.RawData(), blk.RawData()) {
			t.Fatal("data doesn't match")
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for block")
	}
}

// TestSendToWantingPeer exercises the NewPeer bootstrap path (spec
// §4.4): peerA registers a want before peerB ever connects; once peerB
// connects and announces the block, peerA's pending GetBlocks call
// should resolve.
func TestSendToWantingPeer(t *testing.T) {
	g := NewSessionGenerator()
	defer g.Close()

	peerA := g.Next()
	peerB := g.Next()
	blk := mkBlock("send to wanting peer")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	promise, err := peerA.Exchange.GetBlocks(ctx, []cid.Cid{blk.Cid()})
	if err != nil {
		t.Fatal(err)
	}

	peerA.Exchange.PeerConnected(peerB.Peer)
	peerB.Exchange.PeerConnected(peerA.Peer)

	if err := peerB.Exchange.HasBlock(context.Background(), blk); err != nil {
		t.Fatal(err)
	}

	select {
	case got, ok := <-promise:
		if !ok {
			t.Fatal("context timed out and broke promise channel")
		}
		if got.Cid() != blk.Cid() {
			t.Fatal("wrong block")
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for block")
	}
}

// TestWantAfterConnectNeedsFlushTrigger documents spec §9a Open Question
// 1: a want issued after a peer connection is already established is
// recorded in that peer's ledger but not flushed, so it does not reach
// the peer until some other event flushes that ledger. With no such
// event forthcoming, the want must time out rather than resolve.
func TestWantAfterConnectNeedsFlushTrigger(t *testing.T) {
	g := NewSessionGenerator()
	defer g.Close()

	instances := g.Instances(2)
	blk := mkBlock("unflushed want")

	if err := instances[0].Exchange.HasBlock(context.Background(), blk); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if _, err := instances[1].Exchange.GetBlock(ctx, blk.Cid()); err == nil {
		t.Fatal("expected the want to time out without a flush-triggering event")
	}
}

func TestDistribution(t *testing.T) {
	g := NewSessionGenerator()
	defer g.Close()

	const numInstances = 6
	const numBlocks = 5

	blks := make([]blocks.Block, 0, numBlocks)
	for i := 0; i < numBlocks; i++ {
		blks = append(blks, mkBlock(string(rune('a'+i))+" distribution block"))
	}
	cids := cidsOf(blks)

	first := g.Next()
	for _, b := range blks {
		if err := first.Exchange.HasBlock(context.Background(), b); err != nil {
			t.Fatal(err)
		}
	}

	wanters := make([]Instance, 0, numInstances-1)
	for i := 0; i < numInstances-1; i++ {
		wanters = append(wanters, g.Next())
	}

	var wg sync.WaitGroup
	promises := make([]<-chan blocks.Block, len(wanters))
	for i, inst := range wanters {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		out, err := inst.Exchange.GetBlocks(ctx, cids)
		if err != nil {
			t.Fatal(err)
		}
		promises[i] = out
	}

	// Wants are registered before any of these peers connect to first,
	// so first's NewPeer bootstrap snapshot (spec §9a Open Question 2)
	// is what carries each wanter's full wantlist across, with no
	// dependence on the after-connect flush gap (Open Question 1).
	for _, inst := range wanters {
		inst.Exchange.PeerConnected(first.Peer)
		first.Exchange.PeerConnected(inst.Peer)
	}

	for i, out := range promises {
		wg.Add(1)
		go func(i int, out <-chan blocks.Block) {
			defer wg.Done()
			for range out {
			}
			_ = i
		}(i, out)
	}
	wg.Wait()

	for _, inst := range wanters {
		for _, c := range cids {
			has, err := inst.BlockStore.Has(context.Background(), c)
			if err != nil {
				t.Fatal(err)
			}
			if !has {
				t.Fatalf("instance %s missing block %s", inst.Peer, c)
			}
		}
	}
}

func TestClose(t *testing.T) {
	g := NewSessionGenerator()
	defer g.Close()

	inst := g.Next()
	blk := mkBlock("close test block")

	if err := inst.Exchange.Close(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if _, err := inst.Exchange.GetBlock(ctx, blk.Cid()); err == nil {
		t.Fatal("expected an error after Close")
	}
}
