package lnwire

import (
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// FundingCreated is sent by the channel opener once the funding transaction
// has been assembled (but not yet broadcast), carrying the opener's
// signature over the responder's version of the first commitment so the
// responder can safely sign and return its own.
type FundingCreated struct {
	PendingChannelID   TempChannelID
	FundingTxID        chainhash.Hash
	FundingOutputIndex uint16
	CommitSig          Sig
}

var _ Message = (*FundingCreated)(nil)

func (f *FundingCreated) Decode(r io.Reader, pver uint32) error {
	return readElements(r,
		&f.PendingChannelID,
		&f.FundingTxID,
		&f.FundingOutputIndex,
		&f.CommitSig,
	)
}

func (f *FundingCreated) Encode(w io.Writer, pver uint32) error {
	return writeElements(w,
		f.PendingChannelID,
		f.FundingTxID,
		f.FundingOutputIndex,
		f.CommitSig,
	)
}

func (f *FundingCreated) MsgType() MessageType {
	return MsgFundingCreated
}

func (f *FundingCreated) MaxPayloadLength(uint32) uint32 {
	return MaxMessagePayload
}

// FundingSigned completes the funding handshake: the responder returns its
// own signature over the opener's version of the first commitment, after
// which the channel id graduates from temporary to final.
type FundingSigned struct {
	ChanID    ChannelID
	CommitSig Sig
}

var _ Message = (*FundingSigned)(nil)

func (f *FundingSigned) Decode(r io.Reader, pver uint32) error {
	return readElements(r, &f.ChanID, &f.CommitSig)
}

func (f *FundingSigned) Encode(w io.Writer, pver uint32) error {
	return writeElements(w, f.ChanID, f.CommitSig)
}

func (f *FundingSigned) MsgType() MessageType {
	return MsgFundingSigned
}

func (f *FundingSigned) MaxPayloadLength(uint32) uint32 {
	return MaxMessagePayload
}
