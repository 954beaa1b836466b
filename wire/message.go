// Package wire implements the bitswap message model (spec §3 Message) and
// its length-delimited protobuf codec (spec §4.1). It is the direct
// generalization of the teacher's exchange/bitswap/message package
// (bsmsg.BitSwapMessage) onto the schema named in spec.md, translating the
// builder-style accessors of original_source/bitswap/src/ledger.rs's
// in-memory Message into Go idiom.
package wire

import (
	"fmt"
	"strings"

	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"
)

// Priority is a bitswap wantlist priority; higher is more urgent.
type Priority = int32

// DefaultPriority is the priority assigned to ordinary user wants.
const DefaultPriority Priority = 1

// Message is the in-memory holder/builder for a bitswap wire message
// (spec §3). Zero value is an empty message ready to be built up via the
// mutators below; it is not safe for concurrent use without external
// synchronization (the Ledger that owns it provides that).
type Message struct {
	want      map[cid.Cid]Priority
	cancel    map[cid.Cid]struct{}
	haves     map[cid.Cid]struct{}
	dontHaves map[cid.Cid]struct{}
	full      bool
	blocks    []blocks.Block
}

// New returns an empty Message.
func New() *Message {
	return &Message{}
}

// IsEmpty reports whether want, cancel, and blocks are all empty (spec
// §3's Message-empty invariant). haves/dontHaves never affect emptiness:
// this engine never emits them (spec §4.1).
func (m *Message) IsEmpty() bool {
	return len(m.want) == 0 && len(m.cancel) == 0 && len(m.blocks) == 0
}

// SetFull marks the wantlist as a full snapshot rather than a delta.
func (m *Message) SetFull(full bool) { m.full = full }

// Full reports whether this message carries a full wantlist snapshot.
func (m *Message) Full() bool { return m.full }

// WantBlock inserts or overwrites c in the want map at the given priority.
func (m *Message) WantBlock(c cid.Cid, priority Priority) {
	if m.want == nil {
		m.want = make(map[cid.Cid]Priority)
	}
	m.want[c] = priority
}

// CancelBlock marks c as canceled.
func (m *Message) CancelBlock(c cid.Cid) {
	if m.cancel == nil {
		m.cancel = make(map[cid.Cid]struct{})
	}
	m.cancel[c] = struct{}{}
}

// HaveBlock records a HAVE presence hint for c. Parsed on decode; this
// engine never calls it on an outbound message (spec §1, §9 Q3).
func (m *Message) HaveBlock(c cid.Cid) {
	if m.haves == nil {
		m.haves = make(map[cid.Cid]struct{})
	}
	m.haves[c] = struct{}{}
}

// DontHaveBlock records a DONT_HAVE presence hint for c.
func (m *Message) DontHaveBlock(c cid.Cid) {
	if m.dontHaves == nil {
		m.dontHaves = make(map[cid.Cid]struct{})
	}
	m.dontHaves[c] = struct{}{}
}

// AddBlock appends a block to the payload.
func (m *Message) AddBlock(b blocks.Block) {
	m.blocks = append(m.blocks, b)
}

// Want returns the want map. Callers must not mutate it.
func (m *Message) Want() map[cid.Cid]Priority { return m.want }

// Cancel returns the cancel set. Callers must not mutate it.
func (m *Message) Cancel() map[cid.Cid]struct{} { return m.cancel }

// Have returns the parsed HAVE presence set.
func (m *Message) Have() map[cid.Cid]struct{} { return m.haves }

// DontHave returns the parsed DONT_HAVE presence set.
func (m *Message) DontHave() map[cid.Cid]struct{} { return m.dontHaves }

// Blocks returns the payload blocks in the order they were added.
func (m *Message) Blocks() []blocks.Block { return m.blocks }

// NumBlocks returns len(Blocks()).
func (m *Message) NumBlocks() int { return len(m.blocks) }

// BytesOfBlocks returns the combined length of every block's raw data.
func (m *Message) BytesOfBlocks() int {
	n := 0
	for _, b := range m.blocks {
		n += len(b.RawData())
	}
	return n
}

// String renders the message the way the Rust original's Debug impl did:
// comma-joined "want:"/"cancel:"/"block:" entries, or "(empty message)".
func (m *Message) String() string {
	var parts []string
	for c, p := range m.want {
		parts = append(parts, fmt.Sprintf("want: %s %d", c, p))
	}
	for c := range m.cancel {
		parts = append(parts, fmt.Sprintf("cancel: %s", c))
	}
	for _, b := range m.blocks {
		parts = append(parts, fmt.Sprintf("block: %s", b.Cid()))
	}
	if len(parts) == 0 {
		return "(empty message)"
	}
	return strings.Join(parts, ", ")
}
