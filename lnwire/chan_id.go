package lnwire

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/btcsuite/btcd/wire"
)

// ChannelID is the unique identifier for a channel, derived once the
// funding transaction is known by XOR-ing the funding txid with the
// big-endian encoding of the funding output index into its last two bytes.
// Before a funding transaction exists, the all-zero ChannelID is reserved
// to mean "no channel assigned yet" and a random TempChannelID stands in
// its place.
type ChannelID [32]byte

// TempChannelID is a temporary, randomly generated identifier used to
// correlate the messages of a single channel-open negotiation before a
// funding transaction (and therefore a permanent ChannelID) exists.
type TempChannelID = ChannelID

// NewChanIDFromOutPoint derives the permanent channel id for the funding
// outpoint op: the funding txid with its final two bytes XOR'd against the
// big-endian encoding of the output index.
func NewChanIDFromOutPoint(op *wire.OutPoint) ChannelID {
	var cid ChannelID
	copy(cid[:], op.Hash[:])

	var idx [2]byte
	binary.BigEndian.PutUint16(idx[:], uint16(op.Index))

	cid[30] ^= idx[0]
	cid[31] ^= idx[1]

	return cid
}

// IsZero reports whether c is the all-zero wildcard channel id used before
// a channel has been assigned one.
func (c ChannelID) IsZero() bool {
	return c == ChannelID{}
}

// String returns the hex representation of the channel id in big-endian
// (display) byte order.
func (c ChannelID) String() string {
	return hex.EncodeToString(c[:])
}

// ActiveChannelID distinguishes whether a channel is still being negotiated
// (identified by a TempChannelID) or has a permanent ChannelID assigned.
type ActiveChannelID struct {
	temp      TempChannelID
	permanent *ChannelID
}

// NewActiveChannelIDFromTemp returns an ActiveChannelID still in the
// temporary-id stage of negotiation.
func NewActiveChannelIDFromTemp(temp TempChannelID) ActiveChannelID {
	return ActiveChannelID{temp: temp}
}

// ChanID returns the id that should currently be used on the wire: the
// permanent id if one has been assigned, otherwise the temporary id.
func (a *ActiveChannelID) ChanID() ChannelID {
	if a.permanent != nil {
		return *a.permanent
	}
	return a.temp
}

// TempChanID returns the temporary id this negotiation started with,
// regardless of whether a permanent id has since been assigned.
func (a *ActiveChannelID) TempChanID() TempChannelID {
	return a.temp
}

// HasPermanentID reports whether a permanent ChannelID has been assigned.
func (a *ActiveChannelID) HasPermanentID() bool {
	return a.permanent != nil
}

// AssignPermanentID records the permanent channel id derived from the
// funding transaction, after which ChanID returns it instead of the
// temporary id.
func (a *ActiveChannelID) AssignPermanentID(cid ChannelID) {
	a.permanent = &cid
}
