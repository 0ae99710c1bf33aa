package lnwire

import (
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
)

// FundingLocked announces that the sender considers the funding transaction
// sufficiently confirmed, handing over the per-commitment point the peer
// needs to build the second commitment.
type FundingLocked struct {
	ChanID                 ChannelID
	NextPerCommitmentPoint *btcec.PublicKey
}

// NewFundingLocked returns a FundingLocked for the given channel id and
// next per-commitment point.
func NewFundingLocked(cid ChannelID, point *btcec.PublicKey) *FundingLocked {
	return &FundingLocked{ChanID: cid, NextPerCommitmentPoint: point}
}

var _ Message = (*FundingLocked)(nil)

func (f *FundingLocked) Decode(r io.Reader, pver uint32) error {
	return readElements(r, &f.ChanID, &f.NextPerCommitmentPoint)
}

func (f *FundingLocked) Encode(w io.Writer, pver uint32) error {
	return writeElements(w, f.ChanID, f.NextPerCommitmentPoint)
}

func (f *FundingLocked) MsgType() MessageType {
	return MsgFundingLocked
}

func (f *FundingLocked) MaxPayloadLength(uint32) uint32 {
	return MaxMessagePayload
}
