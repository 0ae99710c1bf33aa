package lnwire

import (
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
)

// RevokeAndAck surrenders a now-obsolete commitment by revealing its
// per-commitment secret, and hands over the per-commitment point the peer
// needs to build the commitment after next.
type RevokeAndAck struct {
	ChanID                 ChannelID
	Revocation             [32]byte
	NextPerCommitmentPoint *btcec.PublicKey
}

var _ Message = (*RevokeAndAck)(nil)

func (r *RevokeAndAck) Decode(reader io.Reader, pver uint32) error {
	return readElements(reader, &r.ChanID, &r.Revocation, &r.NextPerCommitmentPoint)
}

func (r *RevokeAndAck) Encode(w io.Writer, pver uint32) error {
	return writeElements(w, r.ChanID, r.Revocation, r.NextPerCommitmentPoint)
}

func (r *RevokeAndAck) MsgType() MessageType {
	return MsgRevokeAndAck
}

func (r *RevokeAndAck) MaxPayloadLength(uint32) uint32 {
	return MaxMessagePayload
}

// UpdateFee renews the commitment feerate the channel opener pays,
// applicable once both sides revoke their prior commitment.
type UpdateFee struct {
	ChanID   ChannelID
	FeePerKw uint32
}

var _ Message = (*UpdateFee)(nil)

func (u *UpdateFee) Decode(r io.Reader, pver uint32) error {
	return readElements(r, &u.ChanID, &u.FeePerKw)
}

func (u *UpdateFee) Encode(w io.Writer, pver uint32) error {
	return writeElements(w, u.ChanID, u.FeePerKw)
}

func (u *UpdateFee) MsgType() MessageType {
	return MsgUpdateFee
}

func (u *UpdateFee) MaxPayloadLength(uint32) uint32 {
	return MaxMessagePayload
}
