package lnwire

import (
	"fmt"
	"io"

	"github.com/lightningnetwork/lnd/tlv"
)

// BigSize is a variable-length encoding for unsigned integers that is used
// within TLV streams. Unlike the plain u16 length prefixes used elsewhere in
// this codec, a BigSize self-describes its own width: the first byte either
// is the value itself (for small values) or a marker selecting a 2, 4, or
// 8-byte big-endian tail. The wire format and its canonical-minimal-length
// rule are those of the tlv package's varint; this file only maps its
// failures onto the codec's distinct error kinds.
type BigSize uint64

// ErrBigSizeNotCanonical is returned when a BigSize is decoded using more
// bytes than the shortest possible encoding of its value.
var ErrBigSizeNotCanonical = fmt.Errorf("decoded BigSize is not canonical")

// ErrBigSizeEOF is returned when the reader runs out of data while decoding
// the tail of a multi-byte BigSize.
var ErrBigSizeEOF = fmt.Errorf("unexpected EOF while decoding BigSize value")

// ErrBigSizeNoValue indicates the absence of a BigSize value entirely; used
// by TLV stream reading to distinguish "nothing left to read" from a
// truncated value.
var ErrBigSizeNoValue = fmt.Errorf("unexpected EOF while decoding BigSize value")

// WriteBigSize encodes v into w using the shortest of the four BigSize
// forms.
func WriteBigSize(w io.Writer, v uint64) error {
	var buf [8]byte
	return tlv.WriteVarInt(w, v, &buf)
}

// ReadBigSize decodes a BigSize from r, rejecting any non-canonical (longer
// than necessary) encoding.
func ReadBigSize(r io.Reader) (uint64, error) {
	var buf [8]byte
	v, err := tlv.ReadVarInt(r, &buf)
	switch err {
	case nil:
		return v, nil

	case io.EOF:
		// Nothing to read at all: no discriminant byte arrived.
		return 0, ErrBigSizeNoValue

	case io.ErrUnexpectedEOF:
		// The discriminant promised a tail the reader couldn't supply.
		return 0, ErrBigSizeEOF

	case tlv.ErrVarIntNotCanonical:
		return 0, ErrBigSizeNotCanonical

	default:
		return 0, err
	}
}

// Encode writes the canonical BigSize encoding of n.
func (n BigSize) Encode(w io.Writer) error {
	return WriteBigSize(w, uint64(n))
}

// Decode reads a canonical BigSize into n.
func (n *BigSize) Decode(r io.Reader) error {
	v, err := ReadBigSize(r)
	if err != nil {
		return err
	}
	*n = BigSize(v)
	return nil
}
