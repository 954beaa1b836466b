// Package pb holds the hand-maintained protobuf wire types for the bitswap
// message schema (spec §4.1). It is written in the same style a
// gogofaster-generated bitswap_pb.pb.go would be, but marshaled by hand
// against gogo/protobuf's low-level Buffer primitives rather than through
// protoc, since the schema is small and stable.
package pb

import (
	"errors"
	"io"

	"github.com/gogo/protobuf/proto"
)

// errBadWireType is returned when a skipped field carries a wire type this
// decoder does not understand (start/end-group, 32-bit fixed fields are
// never emitted by this schema).
var errBadWireType = errors.New("bitswap: pb: unsupported wire type")

// Wire field numbers. Field 2 on Message is intentionally left unused: the
// original bitswap wire format reserved it for a deprecated flat "blocks"
// field that predates block prefixes, and later revisions never reused it.
const (
	fieldMessageWantlist       = 1
	fieldMessagePayload        = 3
	fieldMessageBlockPresences = 4
	fieldMessagePendingBytes   = 5

	fieldWantlistEntries = 1
	fieldWantlistFull    = 2

	fieldEntryBlock        = 1
	fieldEntryPriority     = 2
	fieldEntryCancel       = 3
	fieldEntryWantType     = 4
	fieldEntrySendDontHave = 5

	fieldBlockPrefix = 1
	fieldBlockData   = 2

	fieldPresenceCid  = 1
	fieldPresenceType = 2
)

// WantType enumerates whether a wantlist entry asks for the full block or
// merely a HAVE/DONT_HAVE presence hint. Only Block is acted upon by the
// engine; Have is parsed and otherwise ignored (spec §1, §4.1).
type WantType int32

const (
	WantType_Block WantType = 0
	WantType_Have  WantType = 1
)

// BlockPresenceType enumerates the two kinds of out-of-band presence hint.
type BlockPresenceType int32

const (
	BlockPresenceType_Have     BlockPresenceType = 0
	BlockPresenceType_DontHave BlockPresenceType = 1
)

type Message struct {
	Wantlist       *Message_Wantlist
	Payload        []*Message_Block
	BlockPresences []*Message_BlockPresence
	PendingBytes   int32
}

type Message_Wantlist struct {
	Entries []*Message_Wantlist_Entry
	Full    bool
}

type Message_Wantlist_Entry struct {
	Block        []byte
	Priority     int32
	Cancel       bool
	WantType     WantType
	SendDontHave bool
}

type Message_Block struct {
	Prefix []byte
	Data   []byte
}

type Message_BlockPresence struct {
	Cid  []byte
	Type BlockPresenceType
}

func tag(field int, wireType uint64) uint64 { return uint64(field)<<3 | wireType }

const (
	wireVarint = 0
	wireBytes  = 2
)

// Marshal encodes m using standard protobuf wire rules. Sub-messages are
// encoded depth-first into their own buffers so their length prefix is
// known before the parent writes its length-delimited field.
func (m *Message) Marshal() ([]byte, error) {
	buf := proto.NewBuffer(nil)
	if m.Wantlist != nil {
		wl, err := m.Wantlist.Marshal()
		if err != nil {
			return nil, err
		}
		if err := buf.EncodeVarint(tag(fieldMessageWantlist, wireBytes)); err != nil {
			return nil, err
		}
		if err := buf.EncodeRawBytes(wl); err != nil {
			return nil, err
		}
	}
	for _, blk := range m.Payload {
		bb, err := blk.Marshal()
		if err != nil {
			return nil, err
		}
		if err := buf.EncodeVarint(tag(fieldMessagePayload, wireBytes)); err != nil {
			return nil, err
		}
		if err := buf.EncodeRawBytes(bb); err != nil {
			return nil, err
		}
	}
	for _, p := range m.BlockPresences {
		pb, err := p.Marshal()
		if err != nil {
			return nil, err
		}
		if err := buf.EncodeVarint(tag(fieldMessageBlockPresences, wireBytes)); err != nil {
			return nil, err
		}
		if err := buf.EncodeRawBytes(pb); err != nil {
			return nil, err
		}
	}
	if m.PendingBytes != 0 {
		if err := buf.EncodeVarint(tag(fieldMessagePendingBytes, wireVarint)); err != nil {
			return nil, err
		}
		if err := buf.EncodeVarint(uint64(m.PendingBytes)); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (w *Message_Wantlist) Marshal() ([]byte, error) {
	buf := proto.NewBuffer(nil)
	for _, e := range w.Entries {
		eb, err := e.Marshal()
		if err != nil {
			return nil, err
		}
		if err := buf.EncodeVarint(tag(fieldWantlistEntries, wireBytes)); err != nil {
			return nil, err
		}
		if err := buf.EncodeRawBytes(eb); err != nil {
			return nil, err
		}
	}
	if w.Full {
		if err := buf.EncodeVarint(tag(fieldWantlistFull, wireVarint)); err != nil {
			return nil, err
		}
		if err := buf.EncodeVarint(1); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (e *Message_Wantlist_Entry) Marshal() ([]byte, error) {
	buf := proto.NewBuffer(nil)
	if len(e.Block) > 0 {
		if err := buf.EncodeVarint(tag(fieldEntryBlock, wireBytes)); err != nil {
			return nil, err
		}
		if err := buf.EncodeRawBytes(e.Block); err != nil {
			return nil, err
		}
	}
	if e.Priority != 0 {
		if err := buf.EncodeVarint(tag(fieldEntryPriority, wireVarint)); err != nil {
			return nil, err
		}
		if err := buf.EncodeVarint(uint64(uint32(e.Priority))); err != nil {
			return nil, err
		}
	}
	if e.Cancel {
		if err := buf.EncodeVarint(tag(fieldEntryCancel, wireVarint)); err != nil {
			return nil, err
		}
		if err := buf.EncodeVarint(1); err != nil {
			return nil, err
		}
	}
	if e.WantType != WantType_Block {
		if err := buf.EncodeVarint(tag(fieldEntryWantType, wireVarint)); err != nil {
			return nil, err
		}
		if err := buf.EncodeVarint(uint64(e.WantType)); err != nil {
			return nil, err
		}
	}
	if e.SendDontHave {
		if err := buf.EncodeVarint(tag(fieldEntrySendDontHave, wireVarint)); err != nil {
			return nil, err
		}
		if err := buf.EncodeVarint(1); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (b *Message_Block) Marshal() ([]byte, error) {
	buf := proto.NewBuffer(nil)
	if err := buf.EncodeVarint(tag(fieldBlockPrefix, wireBytes)); err != nil {
		return nil, err
	}
	if err := buf.EncodeRawBytes(b.Prefix); err != nil {
		return nil, err
	}
	if err := buf.EncodeVarint(tag(fieldBlockData, wireBytes)); err != nil {
		return nil, err
	}
	if err := buf.EncodeRawBytes(b.Data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (p *Message_BlockPresence) Marshal() ([]byte, error) {
	buf := proto.NewBuffer(nil)
	if err := buf.EncodeVarint(tag(fieldPresenceCid, wireBytes)); err != nil {
		return nil, err
	}
	if err := buf.EncodeRawBytes(p.Cid); err != nil {
		return nil, err
	}
	if p.Type != BlockPresenceType_Have {
		if err := buf.EncodeVarint(tag(fieldPresenceType, wireVarint)); err != nil {
			return nil, err
		}
		if err := buf.EncodeVarint(uint64(p.Type)); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes data into m, field by field, ignoring unknown field
// numbers (forward-compatible with future wire additions per spec §4.1
// "pendingBytes: int32 (ignored)" style fields).
func (m *Message) Unmarshal(data []byte) error {
	buf := proto.NewBuffer(data)
	for {
		t, err := buf.DecodeVarint()
		if err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return err
		}
		field, wireType := int(t>>3), t&0x7
		switch {
		case field == fieldMessageWantlist && wireType == wireBytes:
			raw, err := buf.DecodeRawBytes(true)
			if err != nil {
				return err
			}
			wl := &Message_Wantlist{}
			if err := wl.Unmarshal(raw); err != nil {
				return err
			}
			m.Wantlist = wl
		case field == fieldMessagePayload && wireType == wireBytes:
			raw, err := buf.DecodeRawBytes(true)
			if err != nil {
				return err
			}
			blk := &Message_Block{}
			if err := blk.Unmarshal(raw); err != nil {
				return err
			}
			m.Payload = append(m.Payload, blk)
		case field == fieldMessageBlockPresences && wireType == wireBytes:
			raw, err := buf.DecodeRawBytes(true)
			if err != nil {
				return err
			}
			p := &Message_BlockPresence{}
			if err := p.Unmarshal(raw); err != nil {
				return err
			}
			m.BlockPresences = append(m.BlockPresences, p)
		case field == fieldMessagePendingBytes && wireType == wireVarint:
			v, err := buf.DecodeVarint()
			if err != nil {
				return err
			}
			m.PendingBytes = int32(v)
		default:
			if err := skipField(buf, wireType); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *Message_Wantlist) Unmarshal(data []byte) error {
	buf := proto.NewBuffer(data)
	for {
		t, err := buf.DecodeVarint()
		if err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return err
		}
		field, wireType := int(t>>3), t&0x7
		switch {
		case field == fieldWantlistEntries && wireType == wireBytes:
			raw, err := buf.DecodeRawBytes(true)
			if err != nil {
				return err
			}
			e := &Message_Wantlist_Entry{}
			if err := e.Unmarshal(raw); err != nil {
				return err
			}
			w.Entries = append(w.Entries, e)
		case field == fieldWantlistFull && wireType == wireVarint:
			v, err := buf.DecodeVarint()
			if err != nil {
				return err
			}
			w.Full = v != 0
		default:
			if err := skipField(buf, wireType); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Message_Wantlist_Entry) Unmarshal(data []byte) error {
	buf := proto.NewBuffer(data)
	for {
		t, err := buf.DecodeVarint()
		if err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return err
		}
		field, wireType := int(t>>3), t&0x7
		switch {
		case field == fieldEntryBlock && wireType == wireBytes:
			raw, err := buf.DecodeRawBytes(true)
			if err != nil {
				return err
			}
			e.Block = raw
		case field == fieldEntryPriority && wireType == wireVarint:
			v, err := buf.DecodeVarint()
			if err != nil {
				return err
			}
			e.Priority = int32(uint32(v))
		case field == fieldEntryCancel && wireType == wireVarint:
			v, err := buf.DecodeVarint()
			if err != nil {
				return err
			}
			e.Cancel = v != 0
		case field == fieldEntryWantType && wireType == wireVarint:
			v, err := buf.DecodeVarint()
			if err != nil {
				return err
			}
			e.WantType = WantType(v)
		case field == fieldEntrySendDontHave && wireType == wireVarint:
			v, err := buf.DecodeVarint()
			if err != nil {
				return err
			}
			e.SendDontHave = v != 0
		default:
			if err := skipField(buf, wireType); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *Message_Block) Unmarshal(data []byte) error {
	buf := proto.NewBuffer(data)
	for {
		t, err := buf.DecodeVarint()
		if err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return err
		}
		field, wireType := int(t>>3), t&0x7
		switch {
		case field == fieldBlockPrefix && wireType == wireBytes:
			raw, err := buf.DecodeRawBytes(true)
			if err != nil {
				return err
			}
			b.Prefix = raw
		case field == fieldBlockData && wireType == wireBytes:
			raw, err := buf.DecodeRawBytes(true)
			if err != nil {
				return err
			}
			b.Data = raw
		default:
			if err := skipField(buf, wireType); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Message_BlockPresence) Unmarshal(data []byte) error {
	buf := proto.NewBuffer(data)
	for {
		t, err := buf.DecodeVarint()
		if err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return err
		}
		field, wireType := int(t>>3), t&0x7
		switch {
		case field == fieldPresenceCid && wireType == wireBytes:
			raw, err := buf.DecodeRawBytes(true)
			if err != nil {
				return err
			}
			p.Cid = raw
		case field == fieldPresenceType && wireType == wireVarint:
			v, err := buf.DecodeVarint()
			if err != nil {
				return err
			}
			p.Type = BlockPresenceType(v)
		default:
			if err := skipField(buf, wireType); err != nil {
				return err
			}
		}
	}
	return nil
}

func skipField(buf *proto.Buffer, wireType uint64) error {
	switch wireType {
	case wireVarint:
		_, err := buf.DecodeVarint()
		return err
	case wireBytes:
		_, err := buf.DecodeRawBytes(false)
		return err
	default:
		return errBadWireType
	}
}
