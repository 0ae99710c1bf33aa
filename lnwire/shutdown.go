package lnwire

import (
	"encoding/binary"
	"io"

	"github.com/btcsuite/btcd/btcutil"
)

// Shutdown begins the cooperative close handshake, proposing the
// scriptPubKey the sender wants its final balance paid to.
type Shutdown struct {
	ChannelID ChannelID
	Address   []byte
}

// NewShutdown returns a Shutdown addressed to cid, paying to addr.
func NewShutdown(cid ChannelID, addr []byte) *Shutdown {
	return &Shutdown{ChannelID: cid, Address: addr}
}

var _ Message = (*Shutdown)(nil)

func (s *Shutdown) Decode(r io.Reader, pver uint32) error {
	return readElements(r, &s.ChannelID, &s.Address)
}

func (s *Shutdown) Encode(w io.Writer, pver uint32) error {
	return writeElements(w, s.ChannelID, s.Address)
}

func (s *Shutdown) MsgType() MessageType {
	return MsgShutdown
}

func (s *Shutdown) MaxPayloadLength(uint32) uint32 {
	return MaxMessagePayload
}

// ClosingSigned proposes (or counter-proposes) a fee for the mutual close
// transaction, signing it at that fee so the peer can broadcast
// immediately if it agrees.
type ClosingSigned struct {
	ChannelID   ChannelID
	FeeSatoshis btcutil.Amount
	Signature   Sig

	// FeeRange is optional: when both ends set it, negotiation can
	// converge in a single extra round trip instead of stepping toward
	// agreement message by message.
	FeeRange *ClosingSignedFeeRange
}

// ClosingSignedFeeRange is the optional min/max fee a peer will accept,
// carried as an odd TLV record.
type ClosingSignedFeeRange struct {
	MinFeeSatoshis btcutil.Amount
	MaxFeeSatoshis btcutil.Amount
}

const tlvTypeClosingFeeRange TlvType = 1

var _ Message = (*ClosingSigned)(nil)

func (c *ClosingSigned) Decode(r io.Reader, pver uint32) error {
	if err := readElements(r, &c.ChannelID, &c.FeeSatoshis, &c.Signature); err != nil {
		return err
	}

	decoders := map[TlvType]TlvKnownTypeDecoder{
		tlvTypeClosingFeeRange: func(v []byte) (interface{}, error) {
			if len(v) != 16 {
				return nil, ErrTlvDataNotEntirelyConsumed
			}
			return ClosingSignedFeeRange{
				MinFeeSatoshis: btcutil.Amount(binary.BigEndian.Uint64(v[:8])),
				MaxFeeSatoshis: btcutil.Amount(binary.BigEndian.Uint64(v[8:])),
			}, nil
		},
	}

	stream, err := DecodeTlvStream(r, decoders)
	if err != nil {
		return err
	}
	if v, ok := stream.Known[tlvTypeClosingFeeRange]; ok {
		fr := v.(ClosingSignedFeeRange)
		c.FeeRange = &fr
	}

	return nil
}

func (c *ClosingSigned) Encode(w io.Writer, pver uint32) error {
	if err := writeElements(w, c.ChannelID, c.FeeSatoshis, c.Signature); err != nil {
		return err
	}

	stream := NewTlvStream()
	if c.FeeRange != nil {
		stream.Known[tlvTypeClosingFeeRange] = *c.FeeRange
	}

	encoders := map[TlvType]TlvKnownTypeEncoder{
		tlvTypeClosingFeeRange: func(v interface{}) ([]byte, error) {
			fr := v.(ClosingSignedFeeRange)
			buf := make([]byte, 16)
			binary.BigEndian.PutUint64(buf[:8], uint64(fr.MinFeeSatoshis))
			binary.BigEndian.PutUint64(buf[8:], uint64(fr.MaxFeeSatoshis))
			return buf, nil
		},
	}

	return EncodeTlvStream(w, stream, encoders)
}

func (c *ClosingSigned) MsgType() MessageType {
	return MsgClosingSigned
}

func (c *ClosingSigned) MaxPayloadLength(uint32) uint32 {
	return MaxMessagePayload
}
