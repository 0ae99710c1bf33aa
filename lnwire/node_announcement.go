package lnwire

import (
	"io"
	"net"

	"github.com/btcsuite/btcd/btcec/v2"
)

// NodeAnnouncement advertises a node's identity, display attributes, and
// reachable addresses to the rest of the network.
type NodeAnnouncement struct {
	Signature Sig
	Features  *RawFeatureVector
	Timestamp uint32
	NodeID    *btcec.PublicKey
	RGBColor  RGB
	Alias     Alias
	Addresses []net.Addr
}

var _ Message = (*NodeAnnouncement)(nil)

func (n *NodeAnnouncement) Decode(r io.Reader, pver uint32) error {
	n.Features = &RawFeatureVector{}
	return readElements(r,
		&n.Signature,
		n.Features,
		&n.Timestamp,
		&n.NodeID,
		&n.RGBColor,
		&n.Alias,
		&n.Addresses,
	)
}

func (n *NodeAnnouncement) Encode(w io.Writer, pver uint32) error {
	return writeElements(w,
		n.Signature,
		n.Features,
		n.Timestamp,
		n.NodeID,
		n.RGBColor,
		n.Alias,
		n.Addresses,
	)
}

func (n *NodeAnnouncement) MsgType() MessageType {
	return MsgNodeAnnouncement
}

func (n *NodeAnnouncement) MaxPayloadLength(uint32) uint32 {
	return MaxMessagePayload
}
