package wire

import (
	"bufio"
	"io"

	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-varint"

	"github.com/macrocan/go-bitswap/bserrors"
	"github.com/macrocan/go-bitswap/wire/pb"
)

// MaxMessageSize bounds a single decoded frame, guarding the length-prefix
// read against a peer that lies about a multi-gigabyte message.
const MaxMessageSize = 32 << 20

// Encode renders m into the protobuf wire form of spec §4.1: a wantlist is
// emitted only when it has at least one entry; block presences are never
// emitted, since this engine only ever parses them on the way in (§9 Q3).
func Encode(m *Message) ([]byte, error) {
	proto := &pb.Message{}

	if len(m.want) > 0 || len(m.cancel) > 0 {
		wl := &pb.Message_Wantlist{Full: m.full}
		for c, p := range m.want {
			wl.Entries = append(wl.Entries, &pb.Message_Wantlist_Entry{
				Block:    c.Bytes(),
				Priority: p,
				Cancel:   false,
				WantType: pb.WantType_Block,
			})
		}
		for c := range m.cancel {
			wl.Entries = append(wl.Entries, &pb.Message_Wantlist_Entry{
				Block:  c.Bytes(),
				Cancel: true,
			})
		}
		proto.Wantlist = wl
	}

	for _, b := range m.blocks {
		proto.Payload = append(proto.Payload, &pb.Message_Block{
			Prefix: prefixBytes(b.Cid()),
			Data:   b.RawData(),
		})
	}

	return proto.Marshal()
}

// Decode parses the protobuf wire form into a Message, per spec §4.1's
// decoding rules: an absent wantlist decodes to empty, each entry is
// routed to want or cancel by its cancel flag (wantType/sendDontHave are
// ignored), each payload block is reconstructed from its declared prefix
// plus data, and each block-presence is routed to haves/dontHaves by its
// type (an unrecognized type is InvalidData).
func Decode(data []byte) (*Message, error) {
	var proto pb.Message
	if err := proto.Unmarshal(data); err != nil {
		return nil, bserrors.ErrInvalidData
	}

	m := New()
	m.SetFull(false)

	if proto.Wantlist != nil {
		m.SetFull(proto.Wantlist.Full)
		for _, e := range proto.Wantlist.Entries {
			c, err := cid.Cast(e.Block)
			if err != nil {
				return nil, bserrors.ErrInvalidData
			}
			if e.Cancel {
				m.CancelBlock(c)
			} else {
				m.WantBlock(c, e.Priority)
			}
		}
	}

	for _, p := range proto.BlockPresences {
		c, err := cid.Cast(p.Cid)
		if err != nil {
			return nil, bserrors.ErrInvalidData
		}
		switch p.Type {
		case pb.BlockPresenceType_Have:
			m.HaveBlock(c)
		case pb.BlockPresenceType_DontHave:
			m.DontHaveBlock(c)
		default:
			return nil, bserrors.ErrInvalidData
		}
	}

	for _, payload := range proto.Payload {
		c, err := cidFromPrefixAndData(payload.Prefix, payload.Data)
		if err != nil {
			return nil, bserrors.ErrInvalidData
		}
		blk, err := blocks.NewBlockWithCid(payload.Data, c)
		if err != nil {
			return nil, bserrors.ErrInvalidData
		}
		m.AddBlock(blk)
	}

	return m, nil
}

// WriteTo writes m to w as a single length-delimited frame: a varint byte
// length followed by the encoded protobuf bytes. Mirrors the framing the
// teacher's bsmsg.BitSwapMessage.ToNet uses over a fresh substream.
func WriteTo(w io.Writer, m *Message) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	if _, err := w.Write(varint.ToUvarint(uint64(len(data)))); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// ReadFrom reads a single length-delimited frame from r and decodes it.
// Mirrors bsmsg.FromNet.
func ReadFrom(r *bufio.Reader) (*Message, error) {
	length, err := varint.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return nil, bserrors.ErrInvalidData
	}
	if length > MaxMessageSize {
		return nil, bserrors.ErrInvalidData
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return Decode(buf)
}
