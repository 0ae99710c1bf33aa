package lnwire

import (
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// shortChanIDEncoding is the single byte preceding an encoded short channel
// id list, selecting how the list that follows is packed. Only the plain,
// uncompressed encoding is supported; a peer requesting zlib compression is
// rejected rather than silently misinterpreted.
type shortChanIDEncoding uint8

const shortChanIDEncodingPlain shortChanIDEncoding = 0

// ErrUnsupportedShortChanIDEncoding is returned when a query message uses an
// encoding byte other than the plain, uncompressed form.
type ErrUnsupportedShortChanIDEncoding struct {
	Encoding shortChanIDEncoding
}

func (e *ErrUnsupportedShortChanIDEncoding) Error() string {
	return fmt.Sprintf("unsupported short_channel_id list encoding %d", e.Encoding)
}

func writeShortChanIDs(w io.Writer, ids []ShortChannelID) error {
	if len(ids) > MaxSliceLength/8 {
		return &ErrTooLargeData{len(ids) * 8}
	}

	buf := make([]byte, 1+len(ids)*8)
	buf[0] = byte(shortChanIDEncodingPlain)
	for i, id := range ids {
		off := 1 + i*8
		buf[off] = byte(id.BlockHeight >> 16)
		buf[off+1] = byte(id.BlockHeight >> 8)
		buf[off+2] = byte(id.BlockHeight)
		buf[off+3] = byte(id.TxIndex >> 16)
		buf[off+4] = byte(id.TxIndex >> 8)
		buf[off+5] = byte(id.TxIndex)
		buf[off+6] = byte(id.TxPosition >> 8)
		buf[off+7] = byte(id.TxPosition)
	}

	return writeElement(w, buf)
}

func readShortChanIDs(r io.Reader) ([]ShortChannelID, error) {
	var buf []byte
	if err := readElement(r, &buf); err != nil {
		return nil, err
	}
	if len(buf) == 0 {
		return nil, nil
	}

	encoding := shortChanIDEncoding(buf[0])
	if encoding != shortChanIDEncodingPlain {
		return nil, &ErrUnsupportedShortChanIDEncoding{encoding}
	}

	body := buf[1:]
	if len(body)%8 != 0 {
		return nil, fmt.Errorf("short_channel_id list body length %d not a multiple of 8", len(body))
	}

	ids := make([]ShortChannelID, len(body)/8)
	for i := range ids {
		off := i * 8
		ids[i] = ShortChannelID{
			BlockHeight: uint32(body[off])<<16 | uint32(body[off+1])<<8 | uint32(body[off+2]),
			TxIndex:     uint32(body[off+3])<<16 | uint32(body[off+4])<<8 | uint32(body[off+5]),
			TxPosition:  uint16(body[off+6])<<8 | uint16(body[off+7]),
		}
	}

	return ids, nil
}

// QueryShortChanIDs asks a peer for the full gossip records (channel
// announcement, channel updates, node announcements) backing a specific
// set of short channel ids.
type QueryShortChanIDs struct {
	ChainHash    chainhash.Hash
	ShortChanIDs []ShortChannelID
}

var _ Message = (*QueryShortChanIDs)(nil)

func (q *QueryShortChanIDs) Decode(r io.Reader, pver uint32) error {
	if err := readElement(r, &q.ChainHash); err != nil {
		return err
	}
	ids, err := readShortChanIDs(r)
	if err != nil {
		return err
	}
	q.ShortChanIDs = ids
	return nil
}

func (q *QueryShortChanIDs) Encode(w io.Writer, pver uint32) error {
	if err := writeElement(w, q.ChainHash); err != nil {
		return err
	}
	return writeShortChanIDs(w, q.ShortChanIDs)
}

func (q *QueryShortChanIDs) MsgType() MessageType {
	return MsgQueryShortChanIDs
}

func (q *QueryShortChanIDs) MaxPayloadLength(uint32) uint32 {
	return MaxMessagePayload
}

// ReplyShortChanIDsEnd terminates the stream of gossip records a
// QueryShortChanIDs elicited.
type ReplyShortChanIDsEnd struct {
	ChainHash chainhash.Hash
	Complete  bool
}

var _ Message = (*ReplyShortChanIDsEnd)(nil)

func (rp *ReplyShortChanIDsEnd) Decode(r io.Reader, pver uint32) error {
	return readElements(r, &rp.ChainHash, &rp.Complete)
}

func (rp *ReplyShortChanIDsEnd) Encode(w io.Writer, pver uint32) error {
	return writeElements(w, rp.ChainHash, rp.Complete)
}

func (rp *ReplyShortChanIDsEnd) MsgType() MessageType {
	return MsgReplyShortChanIDsEnd
}

func (rp *ReplyShortChanIDsEnd) MaxPayloadLength(uint32) uint32 {
	return MaxMessagePayload
}
