package swarm

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
)

// Virtual is an in-process Control, the no-socket counterpart to
// HostControl used by this engine's own tests, generalizing the teacher's
// exchange/bitswap/testnet/virtual.go (VirtualNetwork/network/networkClient)
// onto the Control/Stream pair instead of bsnet.BitSwapNetwork. There is no
// notion of dialing: a peer is reachable the moment something registers a
// listener for it.
type Virtual struct {
	mu       sync.Mutex
	delay    time.Duration
	listener map[peer.ID]Listener
}

// Listener is invoked once per opened stream, the virtual-network
// equivalent of a libp2p protocol stream handler. from is the peer that
// opened the stream; s is the remote-facing half, already oriented so that
// s.RemotePeer() reports from.
type Listener func(from peer.ID, s Stream)

// NewVirtual returns an empty virtual network. delay, if non-zero, is
// applied before each opened stream reaches its listener, the same role
// played by the teacher's testnet/virtual.go delay.D.
func NewVirtual(delay time.Duration) *Virtual {
	return &Virtual{delay: delay, listener: make(map[peer.ID]Listener)}
}

// Listen registers fn as p's stream listener, replacing any previous
// registration. Call Listen before any peer opens a stream to p.
func (v *Virtual) Listen(p peer.ID, fn Listener) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.listener[p] = fn
}

// Unlisten removes p's registration, simulating disconnection: subsequent
// OpenStream calls targeting p fail.
func (v *Virtual) Unlisten(p peer.ID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.listener, p)
}

// Client returns a Control bound to local, the identity that RemotePeer()
// will report to whichever peer local opens a stream to.
func (v *Virtual) Client(local peer.ID) Control {
	return &virtualClient{local: local, net: v}
}

var errNoSuchPeer = errors.New("bitswap: virtual: no listener for peer")

type virtualClient struct {
	local peer.ID
	net   *Virtual
}

func (c *virtualClient) OpenStream(ctx context.Context, to peer.ID, _ protocol.ID) (Stream, error) {
	c.net.mu.Lock()
	fn, ok := c.net.listener[to]
	delay := c.net.delay
	c.net.mu.Unlock()
	if !ok {
		return nil, errNoSuchPeer
	}

	pr, pw := io.Pipe()
	local := &virtualStream{w: pw, remote: to}
	remote := &virtualStream{r: pr, remote: c.local}

	go func() {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
		}
		fn(c.local, remote)
	}()

	return local, nil
}

// virtualStream implements Stream over one direction of an io.Pipe: the
// local side only writes (mirroring the write-then-close convention of
// spec §4.3.4), the remote side only reads.
type virtualStream struct {
	r      *io.PipeReader
	w      *io.PipeWriter
	remote peer.ID
}

func (s *virtualStream) Read(p []byte) (int, error) {
	if s.r == nil {
		return 0, io.EOF
	}
	return s.r.Read(p)
}

func (s *virtualStream) Write(p []byte) (int, error) {
	if s.w == nil {
		return 0, errors.New("bitswap: virtual: stream is read-only")
	}
	return s.w.Write(p)
}

func (s *virtualStream) CloseWrite() error {
	if s.w == nil {
		return nil
	}
	return s.w.Close()
}

func (s *virtualStream) Close() error {
	var err error
	if s.w != nil {
		err = s.w.Close()
	}
	if s.r != nil {
		if rerr := s.r.Close(); err == nil {
			err = rerr
		}
	}
	return err
}

func (s *virtualStream) RemotePeer() peer.ID { return s.remote }
