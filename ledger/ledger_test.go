package ledger

import (
	"testing"

	blocks "github.com/ipfs/go-block-format"
)

func TestSendEmptyReturnsNil(t *testing.T) {
	l := New()
	if m := l.Send(); m != nil {
		t.Fatal("expected nil from an empty ledger")
	}
}

func TestWantThenSendTracksSentWantList(t *testing.T) {
	l := New()
	blk := blocks.NewBlock([]byte("ledger want"))
	c := blk.Cid()

	l.WantBlock(c, 3)
	m := l.Send()
	if m == nil {
		t.Fatal("expected a non-nil message")
	}
	if p, ok := m.Want()[c]; !ok || p != 3 {
		t.Fatal("queued want missing from sent message")
	}
	if _, ok := l.sentWantList[c]; !ok {
		t.Fatal("sentWantList should record the CID after Send")
	}

	// The message queue is reset; a second Send before any new activity
	// is a no-op.
	if m := l.Send(); m != nil {
		t.Fatal("expected nil after the queue was drained")
	}
}

func TestCancelClearsSentWantList(t *testing.T) {
	l := New()
	blk := blocks.NewBlock([]byte("ledger cancel"))
	c := blk.Cid()

	l.WantBlock(c, 1)
	l.Send()
	l.CancelBlock(c)
	l.Send()

	if _, ok := l.sentWantList[c]; ok {
		t.Fatal("sentWantList should no longer contain a canceled CID")
	}
}

func TestAddBlockQueuesPayload(t *testing.T) {
	l := New()
	blk := blocks.NewBlock([]byte("ledger block"))
	l.AddBlock(blk)

	m := l.Send()
	if m == nil || m.NumBlocks() != 1 {
		t.Fatal("expected one queued block in the sent message")
	}
}

func TestReceivedWantListAndEntries(t *testing.T) {
	l := New()
	blk := blocks.NewBlock([]byte("received want"))
	c := blk.Cid()
	l.ReceivedWantList[c] = 5

	entries := l.WantList()
	if len(entries) != 1 || entries[0].Cid != c || entries[0].Priority != 5 {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}
