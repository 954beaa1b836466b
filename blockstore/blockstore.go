// Package blockstore defines the BlockStore capability (spec §6) and a
// simple in-memory reference implementation. It generalizes the teacher's
// blockstore.Blockstore interface (referenced throughout
// exchange/bitswap/*.go, e.g. bitswap.go's "blockstore
// blockstore.Blockstore" field) onto the async, clonable-capability
// contract described in original_source/bitswap/src/bitswap.rs's
// `BsBlockStore` bound and the spec's Get/Put signatures, matching the
// shape of the Blockstore interface in
// other_examples/6666b21e_dettanym-dhtpir-private-bitswap-client's
// server.go.
package blockstore

import (
	"context"
	"sync"

	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"
)

// BlockStore is the persistent block storage capability the engine
// consumes. Implementations must be safe for concurrent use and cheaply
// clonable in the sense that every caller may hold and use its own
// reference concurrently (spec §5's "cheaply clonable capabilities").
type BlockStore interface {
	// Get returns the block for c, or (nil, nil) if it is not present.
	Get(ctx context.Context, c cid.Cid) (blocks.Block, error)
	// Put stores b and reports whether it was newly inserted (true) or
	// already present (false), per spec §6.
	Put(ctx context.Context, b blocks.Block) (cid.Cid, bool, error)
	// Has reports whether c is already stored.
	Has(ctx context.Context, c cid.Cid) (bool, error)
}

// MemStore is an in-memory BlockStore, the reference implementation used
// by this engine's own tests (bitswaptest) in place of a real persistent
// store, the same role the teacher's blockstore.WriteCached +
// ds.NewMapDatastore play in testutils.go's session().
type MemStore struct {
	mu     sync.RWMutex
	blocks map[cid.Cid]blocks.Block
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{blocks: make(map[cid.Cid]blocks.Block)}
}

func (s *MemStore) Get(_ context.Context, c cid.Cid) (blocks.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.blocks[c], nil
}

func (s *MemStore) Put(_ context.Context, b blocks.Block) (cid.Cid, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := b.Cid()
	if _, ok := s.blocks[c]; ok {
		return c, false, nil
	}
	s.blocks[c] = b
	return c, true, nil
}

func (s *MemStore) Has(_ context.Context, c cid.Cid) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blocks[c]
	return ok, nil
}
