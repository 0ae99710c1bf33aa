package lnwire

import "io"

// OnionPacketSize is the fixed size of a Sphinx onion routing packet.
// Construction of the packet itself is out of scope for this codec; it is
// treated as an opaque, fixed-size payload.
const OnionPacketSize = 1366

// UpdateAddHTLC proposes a new HTLC to be added to the commitment,
// identified by an id the sender allocates from its own monotonic counter.
type UpdateAddHTLC struct {
	ChanID      ChannelID
	ID          uint64
	Amount      MilliSatoshi
	PaymentHash [32]byte
	Expiry      uint32
	OnionBlob   [OnionPacketSize]byte
}

var _ Message = (*UpdateAddHTLC)(nil)

func (u *UpdateAddHTLC) Decode(r io.Reader, pver uint32) error {
	if err := readElements(r,
		&u.ChanID,
		&u.ID,
		&u.Amount,
		&u.PaymentHash,
		&u.Expiry,
	); err != nil {
		return err
	}
	_, err := io.ReadFull(r, u.OnionBlob[:])
	return err
}

func (u *UpdateAddHTLC) Encode(w io.Writer, pver uint32) error {
	if err := writeElements(w,
		u.ChanID,
		u.ID,
		u.Amount,
		u.PaymentHash,
		u.Expiry,
	); err != nil {
		return err
	}
	_, err := w.Write(u.OnionBlob[:])
	return err
}

func (u *UpdateAddHTLC) MsgType() MessageType {
	return MsgUpdateAddHTLC
}

func (u *UpdateAddHTLC) MaxPayloadLength(uint32) uint32 {
	return MaxMessagePayload
}
