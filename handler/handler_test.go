package handler

import (
	"io"
	"testing"
	"time"

	blocks "github.com/ipfs/go-block-format"
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/macrocan/go-bitswap/engine"
	"github.com/macrocan/go-bitswap/wire"
)

// pipeStream adapts an io.Pipe pair to swarm.Stream for this package's
// tests, the same shape swarm.Virtual provides over a real connection.
type pipeStream struct {
	*io.PipeReader
	*io.PipeWriter
}

func (s pipeStream) Close() error {
	s.PipeReader.Close()
	return s.PipeWriter.Close()
}
func (s pipeStream) CloseWrite() error   { return s.PipeWriter.Close() }
func (s pipeStream) RemotePeer() peer.ID { return "" }

func TestStartStopEmitEvents(t *testing.T) {
	peerEvents := make(chan engine.PeerEvent, 2)
	incoming := make(chan engine.IncomingMessage, 1)
	h := New(peer.ID("p1"), incoming, peerEvents)

	h.Start()
	h.Stop()

	ev1 := <-peerEvents
	if ev1.Kind != engine.NewPeer || ev1.Peer != peer.ID("p1") {
		t.Fatalf("unexpected first event: %+v", ev1)
	}
	ev2 := <-peerEvents
	if ev2.Kind != engine.DeadPeer || ev2.Peer != peer.ID("p1") {
		t.Fatalf("unexpected second event: %+v", ev2)
	}
}

func TestHandleStreamPostsDecodedMessages(t *testing.T) {
	peerEvents := make(chan engine.PeerEvent, 1)
	incoming := make(chan engine.IncomingMessage, 1)
	h := New(peer.ID("p2"), incoming, peerEvents)

	r, w := io.Pipe()
	discardR, discardW := io.Pipe()
	go io.Copy(io.Discard, discardR)
	s := pipeStream{PipeReader: r, PipeWriter: discardW}

	blk := blocks.NewBlock([]byte("handler stream block"))
	msg := wire.New()
	msg.AddBlock(blk)

	go func() {
		_ = wire.WriteTo(w, msg)
		w.Close()
	}()

	done := make(chan struct{})
	go func() {
		h.HandleStream(s)
		close(done)
	}()

	select {
	case im := <-incoming:
		if im.Source != peer.ID("p2") || im.Message.NumBlocks() != 1 {
			t.Fatalf("unexpected incoming message: %+v", im)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for incoming message")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("HandleStream did not return after the writer closed")
	}
}
