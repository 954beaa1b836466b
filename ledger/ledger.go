// Package ledger implements the per-peer bookkeeping described in spec
// §4.2: wants sent to a peer, wants received from a peer, and the
// queued outbound message being built for that peer. It is the direct
// Go translation of original_source/bitswap/src/ledger.rs's Ledger type,
// generalized from the teacher's per-peer msgQueue
// (exchange/bitswap/peermanager.go) which played the same "queue things
// up, hand them to the engine on send" role but over a Key/Block model
// instead of CID/wire.Message.
package ledger

import (
	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"

	"github.com/macrocan/go-bitswap/wire"
)

// Ledger is a pure data owner: it performs no I/O. The Engine is the only
// caller, and only ever touches it between suspension points (spec §5),
// so none of its methods take a lock.
type Ledger struct {
	// sentWantList is the set of CIDs we have told this peer we want and
	// have not since canceled.
	sentWantList map[cid.Cid]wire.Priority

	// ReceivedWantList is the set of CIDs this peer has told us it wants
	// and has not since canceled. Exported so the Engine, its only
	// writer, can read and update it directly (including for the
	// per-peer control.WantList case, spec §4.3.2).
	ReceivedWantList map[cid.Cid]wire.Priority

	// message is the outbound message under construction for this peer.
	message *wire.Message
}

// New returns an empty Ledger.
func New() *Ledger {
	return &Ledger{
		sentWantList:     make(map[cid.Cid]wire.Priority),
		ReceivedWantList: make(map[cid.Cid]wire.Priority),
		message:          wire.New(),
	}
}

// AddBlock queues a block for delivery to this peer.
func (l *Ledger) AddBlock(b blocks.Block) {
	l.message.AddBlock(b)
}

// WantBlock queues a want entry for this peer at the given priority.
func (l *Ledger) WantBlock(c cid.Cid, priority wire.Priority) {
	l.message.WantBlock(c, priority)
}

// CancelBlock queues a cancel entry for this peer.
func (l *Ledger) CancelBlock(c cid.Cid) {
	l.message.CancelBlock(c)
}

// WantList returns a snapshot of ReceivedWantList as (CID, Priority)
// pairs. Order is unspecified, matching spec §4.2.
func (l *Ledger) WantList() []Entry {
	out := make([]Entry, 0, len(l.ReceivedWantList))
	for c, p := range l.ReceivedWantList {
		out = append(out, Entry{Cid: c, Priority: p})
	}
	return out
}

// Entry is a single (CID, Priority) pair.
type Entry struct {
	Cid      cid.Cid
	Priority wire.Priority
}

// Send commits the queued message: if it is empty, Send returns nil and
// leaves the ledger untouched. Otherwise every canceled CID is removed
// from sentWantList, every wanted CID is recorded into sentWantList at
// its queued priority, and the queued message is moved out, leaving a
// fresh empty message behind (spec §4.2).
func (l *Ledger) Send() *wire.Message {
	if l.message.IsEmpty() {
		return nil
	}
	for c := range l.message.Cancel() {
		delete(l.sentWantList, c)
	}
	for c, p := range l.message.Want() {
		l.sentWantList[c] = p
	}
	sent := l.message
	l.message = wire.New()
	return sent
}
