package lnwire

import "io"

// UpdateFulfillHTLC resolves a previously added HTLC by revealing the
// preimage that hashes to its hashlock.
type UpdateFulfillHTLC struct {
	ChanID          ChannelID
	ID              uint64
	PaymentPreimage [32]byte
}

var _ Message = (*UpdateFulfillHTLC)(nil)

func (u *UpdateFulfillHTLC) Decode(r io.Reader, pver uint32) error {
	return readElements(r, &u.ChanID, &u.ID, &u.PaymentPreimage)
}

func (u *UpdateFulfillHTLC) Encode(w io.Writer, pver uint32) error {
	return writeElements(w, u.ChanID, u.ID, u.PaymentPreimage)
}

func (u *UpdateFulfillHTLC) MsgType() MessageType {
	return MsgUpdateFulfillHTLC
}

func (u *UpdateFulfillHTLC) MaxPayloadLength(uint32) uint32 {
	return MaxMessagePayload
}
