package lnwire

import (
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ChannelAnnouncement proves, via four signatures over the same message
// body, that the signing pair of nodes jointly controls the named funding
// output and wishes to announce it for routing.
type ChannelAnnouncement struct {
	NodeSig1       Sig
	NodeSig2       Sig
	BitcoinSig1    Sig
	BitcoinSig2    Sig
	Features       *RawFeatureVector
	ChainHash      chainhash.Hash
	ShortChannelID ShortChannelID
	NodeID1        *btcec.PublicKey
	NodeID2        *btcec.PublicKey
	BitcoinKey1    *btcec.PublicKey
	BitcoinKey2    *btcec.PublicKey
}

var _ Message = (*ChannelAnnouncement)(nil)

func (c *ChannelAnnouncement) Decode(r io.Reader, pver uint32) error {
	c.Features = &RawFeatureVector{}
	return readElements(r,
		&c.NodeSig1,
		&c.NodeSig2,
		&c.BitcoinSig1,
		&c.BitcoinSig2,
		c.Features,
		&c.ChainHash,
		&c.ShortChannelID,
		&c.NodeID1,
		&c.NodeID2,
		&c.BitcoinKey1,
		&c.BitcoinKey2,
	)
}

func (c *ChannelAnnouncement) Encode(w io.Writer, pver uint32) error {
	return writeElements(w,
		c.NodeSig1,
		c.NodeSig2,
		c.BitcoinSig1,
		c.BitcoinSig2,
		c.Features,
		c.ChainHash,
		c.ShortChannelID,
		c.NodeID1,
		c.NodeID2,
		c.BitcoinKey1,
		c.BitcoinKey2,
	)
}

func (c *ChannelAnnouncement) MsgType() MessageType {
	return MsgChannelAnnouncement
}

func (c *ChannelAnnouncement) MaxPayloadLength(uint32) uint32 {
	return MaxMessagePayload
}

// AnnounceSignatures is exchanged between channel peers after FundingLocked
// so each side's node signature and bitcoin signature over the
// ChannelAnnouncement body can be combined before either broadcasts it.
type AnnounceSignatures struct {
	ChanID           ChannelID
	ShortChannelID   ShortChannelID
	NodeSignature    Sig
	BitcoinSignature Sig
}

var _ Message = (*AnnounceSignatures)(nil)

func (a *AnnounceSignatures) Decode(r io.Reader, pver uint32) error {
	return readElements(r,
		&a.ChanID,
		&a.ShortChannelID,
		&a.NodeSignature,
		&a.BitcoinSignature,
	)
}

func (a *AnnounceSignatures) Encode(w io.Writer, pver uint32) error {
	return writeElements(w,
		a.ChanID,
		a.ShortChannelID,
		a.NodeSignature,
		a.BitcoinSignature,
	)
}

func (a *AnnounceSignatures) MsgType() MessageType {
	return MsgAnnounceSignatures
}

func (a *AnnounceSignatures) MaxPayloadLength(uint32) uint32 {
	return MaxMessagePayload
}
