package wire

import (
	"bufio"
	"bytes"
	"testing"

	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"

	"github.com/macrocan/go-bitswap/bserrors"
	"github.com/macrocan/go-bitswap/wire/pb"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	blk := blocks.NewBlock([]byte("codec round trip"))
	c1 := blk.Cid()
	c2 := blocks.NewBlock([]byte("cancel target")).Cid()

	m := New()
	m.WantBlock(c1, 7)
	m.CancelBlock(c2)
	m.AddBlock(blk)
	m.SetFull(true)

	data, err := Encode(m)
	if err != nil {
		t.Fatal(err)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}

	if !got.Full() {
		t.Fatal("full flag not preserved")
	}
	if p, ok := got.Want()[c1]; !ok || p != 7 {
		t.Fatalf("want entry missing or wrong priority: %v %v", p, ok)
	}
	if _, ok := got.Cancel()[c2]; !ok {
		t.Fatal("cancel entry missing")
	}
	if len(got.Blocks()) != 1 || got.Blocks()[0].Cid() != c1 {
		t.Fatal("block payload not round-tripped")
	}
}

func TestEncodeOmitsEmptyWantlist(t *testing.T) {
	blk := blocks.NewBlock([]byte("blocks only"))
	m := New()
	m.AddBlock(blk)

	data, err := Encode(m)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Want()) != 0 || len(got.Cancel()) != 0 {
		t.Fatal("expected no wantlist entries")
	}
}

func TestWriteReadFrom(t *testing.T) {
	blk := blocks.NewBlock([]byte("framed message"))
	m := New()
	m.WantBlock(blk.Cid(), DefaultPriority)
	m.AddBlock(blk)

	var buf bytes.Buffer
	if err := WriteTo(&buf, m); err != nil {
		t.Fatal(err)
	}

	got, err := ReadFrom(bufio.NewReader(&buf))
	if err != nil {
		t.Fatal(err)
	}
	if got.NumBlocks() != 1 {
		t.Fatalf("expected one block, got %d", got.NumBlocks())
	}
}

func TestDecodeMalformedBytes(t *testing.T) {
	if _, err := Decode([]byte{0xff, 0xff, 0xff}); err != bserrors.ErrInvalidData {
		t.Fatalf("expected ErrInvalidData, got %v", err)
	}
}

func TestDecodeBadCidInWantlist(t *testing.T) {
	raw, err := (&pb.Message{
		Wantlist: &pb.Message_Wantlist{
			Entries: []*pb.Message_Wantlist_Entry{
				{Block: []byte("not a cid"), Priority: 1},
			},
		},
	}).Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(raw); err != bserrors.ErrInvalidData {
		t.Fatalf("expected ErrInvalidData, got %v", err)
	}
}

func TestDecodeUnrecognizedPresenceType(t *testing.T) {
	blk := blocks.NewBlock([]byte("presence type"))
	raw, err := (&pb.Message{
		BlockPresences: []*pb.Message_BlockPresence{
			{Cid: blk.Cid().Bytes(), Type: pb.BlockPresenceType(99)},
		},
	}).Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(raw); err != bserrors.ErrInvalidData {
		t.Fatalf("expected ErrInvalidData, got %v", err)
	}
}

func TestIsEmpty(t *testing.T) {
	m := New()
	if !m.IsEmpty() {
		t.Fatal("fresh message should be empty")
	}
	m.HaveBlock(blocks.NewBlock([]byte("have hint")).Cid())
	if !m.IsEmpty() {
		t.Fatal("have/dontHave must not affect emptiness")
	}
	m.WantBlock(cid.Undef, 1)
	if m.IsEmpty() {
		t.Fatal("a want entry makes a message non-empty")
	}
}
