package lnwire

import (
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// QueryChannelRange asks a peer to enumerate every short channel id it
// knows of whose funding transaction confirmed within a block range.
type QueryChannelRange struct {
	ChainHash        chainhash.Hash
	FirstBlockHeight uint32
	NumBlocks        uint32
}

var _ Message = (*QueryChannelRange)(nil)

func (q *QueryChannelRange) Decode(r io.Reader, pver uint32) error {
	return readElements(r, &q.ChainHash, &q.FirstBlockHeight, &q.NumBlocks)
}

func (q *QueryChannelRange) Encode(w io.Writer, pver uint32) error {
	return writeElements(w, q.ChainHash, q.FirstBlockHeight, q.NumBlocks)
}

func (q *QueryChannelRange) MsgType() MessageType {
	return MsgQueryChannelRange
}

func (q *QueryChannelRange) MaxPayloadLength(uint32) uint32 {
	return MaxMessagePayload
}

// ReplyChannelRange answers a QueryChannelRange with the short channel ids
// found in the covered range, possibly split across several replies.
type ReplyChannelRange struct {
	ChainHash        chainhash.Hash
	FirstBlockHeight uint32
	NumBlocks        uint32
	Complete         bool
	ShortChanIDs     []ShortChannelID
}

var _ Message = (*ReplyChannelRange)(nil)

func (rp *ReplyChannelRange) Decode(r io.Reader, pver uint32) error {
	if err := readElements(r,
		&rp.ChainHash,
		&rp.FirstBlockHeight,
		&rp.NumBlocks,
		&rp.Complete,
	); err != nil {
		return err
	}
	ids, err := readShortChanIDs(r)
	if err != nil {
		return err
	}
	rp.ShortChanIDs = ids
	return nil
}

func (rp *ReplyChannelRange) Encode(w io.Writer, pver uint32) error {
	if err := writeElements(w,
		rp.ChainHash,
		rp.FirstBlockHeight,
		rp.NumBlocks,
		rp.Complete,
	); err != nil {
		return err
	}
	return writeShortChanIDs(w, rp.ShortChanIDs)
}

func (rp *ReplyChannelRange) MsgType() MessageType {
	return MsgReplyChannelRange
}

func (rp *ReplyChannelRange) MaxPayloadLength(uint32) uint32 {
	return MaxMessagePayload
}

// GossipTimestampFilter restricts the announcements a peer will forward to
// those whose timestamp falls within [FirstTimestamp, FirstTimestamp +
// TimestampRange).
type GossipTimestampFilter struct {
	ChainHash      chainhash.Hash
	FirstTimestamp uint32
	TimestampRange uint32
}

var _ Message = (*GossipTimestampFilter)(nil)

func (g *GossipTimestampFilter) Decode(r io.Reader, pver uint32) error {
	return readElements(r, &g.ChainHash, &g.FirstTimestamp, &g.TimestampRange)
}

func (g *GossipTimestampFilter) Encode(w io.Writer, pver uint32) error {
	return writeElements(w, g.ChainHash, g.FirstTimestamp, g.TimestampRange)
}

func (g *GossipTimestampFilter) MsgType() MessageType {
	return MsgGossipTimestampFilter
}

func (g *GossipTimestampFilter) MaxPayloadLength(uint32) uint32 {
	return MaxMessagePayload
}
