// Package bserrors defines the error taxonomy shared by every bitswap
// component: codec failures, block-store failures, transport failures, and
// the one error that actually terminates the engine's event loop.
package bserrors

import "errors"

// ErrClosing is returned by the engine's event loop when its control
// channel has been closed by every sender. It is the only error that
// terminates Engine.Run; every other error is logged and discarded.
var ErrClosing = errors.New("bitswap: control channel closed")

// ErrInvalidData marks a malformed wire frame: bad protobuf bytes, an
// unrecognized block-presence type, or a CID that cannot be reconstructed
// from its declared prefix.
var ErrInvalidData = errors.New("bitswap: invalid data")

// ErrClosed is returned by facade calls made after Close.
var ErrClosed = errors.New("bitswap: closed")

// BlockStoreError wraps any failure returned by the BlockStore capability.
// It is always logged and discarded by the engine; it never aborts the
// event loop or fails a waiter.
type BlockStoreError struct {
	Op  string
	Err error
}

func (e *BlockStoreError) Error() string {
	return "bitswap: blockstore " + e.Op + ": " + e.Err.Error()
}

func (e *BlockStoreError) Unwrap() error { return e.Err }

// TransportError wraps any failure returned by the Swarm capability while
// opening a stream or writing an outbound message. Logged and discarded;
// no retry.
type TransportError struct {
	Peer string
	Err  error
}

func (e *TransportError) Error() string {
	return "bitswap: transport to " + e.Peer + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }
