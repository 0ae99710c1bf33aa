package lnwire

import (
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ChanUpdateFlag packs the direction bit and the disabled bit of a
// ChannelUpdate's channel flags field.
type ChanUpdateFlag uint16

const (
	ChanUpdateDirection ChanUpdateFlag = 1 << 0
	ChanUpdateDisabled  ChanUpdateFlag = 1 << 1
)

// ChannelUpdate announces one direction's current routing policy for a
// previously announced channel: its fees, its minimum CLTV expiry delta,
// and whether that direction is currently usable.
type ChannelUpdate struct {
	Signature       Sig
	ChainHash       chainhash.Hash
	ShortChannelID  ShortChannelID
	Timestamp       uint32
	MessageFlags    uint8
	ChannelFlags    ChanUpdateFlag
	TimeLockDelta   uint16
	HtlcMinimumMsat MilliSatoshi
	BaseFee         uint32
	FeeRate         uint32
	HtlcMaximumMsat MilliSatoshi
}

var _ Message = (*ChannelUpdate)(nil)

func (c *ChannelUpdate) Decode(r io.Reader, pver uint32) error {
	var channelFlags uint16
	if err := readElements(r,
		&c.Signature,
		&c.ChainHash,
		&c.ShortChannelID,
		&c.Timestamp,
		&c.MessageFlags,
		&channelFlags,
		&c.TimeLockDelta,
		&c.HtlcMinimumMsat,
		&c.BaseFee,
		&c.FeeRate,
		&c.HtlcMaximumMsat,
	); err != nil {
		return err
	}
	c.ChannelFlags = ChanUpdateFlag(channelFlags)
	return nil
}

func (c *ChannelUpdate) Encode(w io.Writer, pver uint32) error {
	return writeElements(w,
		c.Signature,
		c.ChainHash,
		c.ShortChannelID,
		c.Timestamp,
		c.MessageFlags,
		uint16(c.ChannelFlags),
		c.TimeLockDelta,
		c.HtlcMinimumMsat,
		c.BaseFee,
		c.FeeRate,
		c.HtlcMaximumMsat,
	)
}

func (c *ChannelUpdate) MsgType() MessageType {
	return MsgChannelUpdate
}

func (c *ChannelUpdate) MaxPayloadLength(uint32) uint32 {
	return MaxMessagePayload
}
