package lnwire

import "io"

// UpdateFailHTLC fails a previously added HTLC, carrying an onion-encrypted
// failure reason opaque to every hop but the one that originated it.
type UpdateFailHTLC struct {
	ChanID ChannelID
	ID     uint64
	Reason []byte
}

var _ Message = (*UpdateFailHTLC)(nil)

func (u *UpdateFailHTLC) Decode(r io.Reader, pver uint32) error {
	return readElements(r, &u.ChanID, &u.ID, &u.Reason)
}

func (u *UpdateFailHTLC) Encode(w io.Writer, pver uint32) error {
	return writeElements(w, u.ChanID, u.ID, u.Reason)
}

func (u *UpdateFailHTLC) MsgType() MessageType {
	return MsgUpdateFailHTLC
}

func (u *UpdateFailHTLC) MaxPayloadLength(uint32) uint32 {
	return MaxMessagePayload
}

// UpdateFailMalformedHTLC fails an HTLC whose onion blob itself could not
// be parsed, so no prior hop can produce an onion-wrapped failure message;
// the failing node instead reports the raw SHA-256 of the onion and a
// numeric failure code.
type UpdateFailMalformedHTLC struct {
	ChanID       ChannelID
	ID           uint64
	ShaOnionHash [32]byte
	FailureCode  uint16
}

var _ Message = (*UpdateFailMalformedHTLC)(nil)

func (u *UpdateFailMalformedHTLC) Decode(r io.Reader, pver uint32) error {
	return readElements(r, &u.ChanID, &u.ID, &u.ShaOnionHash, &u.FailureCode)
}

func (u *UpdateFailMalformedHTLC) Encode(w io.Writer, pver uint32) error {
	return writeElements(w, u.ChanID, u.ID, u.ShaOnionHash, u.FailureCode)
}

func (u *UpdateFailMalformedHTLC) MsgType() MessageType {
	return MsgUpdateFailMalformedHTLC
}

func (u *UpdateFailMalformedHTLC) MaxPayloadLength(uint32) uint32 {
	return MaxMessagePayload
}
