package blockstore

import (
	"context"
	"testing"

	blocks "github.com/ipfs/go-block-format"
)

func TestPutGetHas(t *testing.T) {
	ctx := context.Background()
	bs := NewMemStore()
	blk := blocks.NewBlock([]byte("blockstore round trip"))

	has, err := bs.Has(ctx, blk.Cid())
	if err != nil || has {
		t.Fatal("fresh store should not have the block")
	}

	c, inserted, err := bs.Put(ctx, blk)
	if err != nil {
		t.Fatal(err)
	}
	if !inserted || c != blk.Cid() {
		t.Fatal("first Put should report a fresh insertion")
	}

	_, inserted, err = bs.Put(ctx, blk)
	if err != nil {
		t.Fatal(err)
	}
	if inserted {
		t.Fatal("second Put of the same block should not report a fresh insertion")
	}

	got, err := bs.Get(ctx, blk.Cid())
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Cid() != blk.Cid() {
		t.Fatal("Get did not return the stored block")
	}

	has, err = bs.Has(ctx, blk.Cid())
	if err != nil || !has {
		t.Fatal("store should now have the block")
	}
}

func TestGetMissingReturnsNilNil(t *testing.T) {
	bs := NewMemStore()
	blk := blocks.NewBlock([]byte("never stored"))

	got, err := bs.Get(context.Background(), blk.Cid())
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatal("expected a nil block for a missing CID")
	}
}
