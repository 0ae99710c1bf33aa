package lnwire

import (
	"fmt"
	"io"
)

// TlvType is the BigSize-encoded type field of a TLV record.
type TlvType uint64

// IsEven reports whether t is a "must understand" record: an unknown even
// type halts the stream with an error, while an unknown odd type is
// carried forward untouched as a sidecar record.
func (t TlvType) IsEven() bool {
	return t%2 == 0
}

// TlvRecord is a single decoded (type, value) pair from a TLV stream. Known
// types are parsed into their own fields elsewhere; TlvRecord is primarily
// how unknown odd ("optional") records survive a decode/re-encode cycle
// unscathed.
type TlvRecord struct {
	Type  TlvType
	Value []byte
}

// ErrUnknownRequiredType is returned when an unrecognized even-typed TLV
// record is encountered: an even type the reader doesn't understand must
// fail the parse rather than be silently skipped.
type ErrUnknownRequiredType struct {
	Type TlvType
}

func (e *ErrUnknownRequiredType) Error() string {
	return fmt.Sprintf("unknown required (even) TLV type %d", e.Type)
}

// ErrTlvTypeNotAscending is returned when a TLV stream's types are not
// strictly increasing, or a type repeats.
type ErrTlvTypeNotAscending struct {
	Prev, Got TlvType
}

func (e *ErrTlvTypeNotAscending) Error() string {
	return fmt.Sprintf("TLV type %d does not strictly increase over previous type %d",
		e.Got, e.Prev)
}

// ErrTlvDataNotEntirelyConsumed is returned when a TLV record's declared
// length does not match the number of value bytes actually read, i.e. the
// stream declared a structured known record but left unread bytes.
var ErrTlvDataNotEntirelyConsumed = fmt.Errorf("TLV record value not entirely consumed")

// TlvKnownTypeDecoder parses the value of a known TLV type from its raw
// bytes. Implementations return ErrTlvDataNotEntirelyConsumed-compatible
// errors when len(value) disagrees with the structured type's expected
// shape.
type TlvKnownTypeDecoder func(value []byte) (interface{}, error)

// TlvStream is a decoded sequence of extra TLV data attached to a message,
// preserving unknown odd records as opaque sidecar payloads and known
// records (by type) as parsed values.
type TlvStream struct {
	// Known holds parsed values for recognized types, keyed by type.
	Known map[TlvType]interface{}

	// Unknown holds the raw bytes of unrecognized odd types, in stream
	// order, so they can be re-encoded unchanged.
	Unknown []TlvRecord
}

// NewTlvStream returns an empty stream.
func NewTlvStream() *TlvStream {
	return &TlvStream{Known: make(map[TlvType]interface{})}
}

// DecodeTlvStream reads a TLV stream from r until EOF, dispatching known
// types to their decoder and preserving unknown odd types verbatim. An
// unknown even type, a non-ascending type ordering, or a known even record
// whose decoder rejects its value aborts the parse; a known odd record
// whose decoder rejects its value is dropped and decoding continues.
func DecodeTlvStream(r io.Reader, decoders map[TlvType]TlvKnownTypeDecoder) (*TlvStream, error) {
	stream := NewTlvStream()

	var prev TlvType
	first := true

	for {
		typ, err := ReadBigSize(r)
		if err == ErrBigSizeNoValue {
			break
		}
		if err != nil {
			return nil, err
		}
		t := TlvType(typ)

		if !first && t <= prev {
			return nil, &ErrTlvTypeNotAscending{Prev: prev, Got: t}
		}
		first = false
		prev = t

		length, err := ReadBigSize(r)
		if err != nil {
			return nil, err
		}

		value := make([]byte, length)
		if _, err := io.ReadFull(r, value); err != nil {
			return nil, err
		}

		decode, known := decoders[t]
		switch {
		case known:
			parsed, err := decode(value)
			if err != nil {
				// A known odd record that fails to parse is
				// treated as absent; only even records carry a
				// must-understand obligation.
				if t.IsEven() {
					return nil, err
				}
				continue
			}
			stream.Known[t] = parsed

		case t.IsEven():
			return nil, &ErrUnknownRequiredType{Type: t}

		default:
			stream.Unknown = append(stream.Unknown, TlvRecord{Type: t, Value: value})
		}
	}

	return stream, nil
}

// TlvKnownTypeEncoder renders the value of a known TLV type to bytes.
type TlvKnownTypeEncoder func(v interface{}) ([]byte, error)

// EncodeTlvStream writes every known and unknown record in stream back out
// in ascending type order, BigSize-prefixing each type and length.
func EncodeTlvStream(w io.Writer, stream *TlvStream, encoders map[TlvType]TlvKnownTypeEncoder) error {
	type rec struct {
		typ   TlvType
		value []byte
	}

	recs := make([]rec, 0, len(stream.Known)+len(stream.Unknown))

	for t, v := range stream.Known {
		enc, ok := encoders[t]
		if !ok {
			return fmt.Errorf("no encoder registered for known TLV type %d", t)
		}
		value, err := enc(v)
		if err != nil {
			return err
		}
		recs = append(recs, rec{t, value})
	}
	for _, u := range stream.Unknown {
		recs = append(recs, rec{u.Type, u.Value})
	}

	// Sort by ascending type; the stream must be canonical regardless of
	// map iteration order.
	for i := 1; i < len(recs); i++ {
		for j := i; j > 0 && recs[j-1].typ > recs[j].typ; j-- {
			recs[j-1], recs[j] = recs[j], recs[j-1]
		}
	}

	for _, r := range recs {
		if err := WriteBigSize(w, uint64(r.typ)); err != nil {
			return err
		}
		if err := WriteBigSize(w, uint64(len(r.value))); err != nil {
			return err
		}
		if _, err := w.Write(r.value); err != nil {
			return err
		}
	}

	return nil
}

// tlvBytes is a small helper used by known-type encoders/decoders that
// simply pass raw bytes through (e.g. opaque upfront shutdown scripts).
func tlvBytes(v interface{}) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("expected []byte, got %T", v)
	}
	return b, nil
}
