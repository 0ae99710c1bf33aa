package lnwire

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"testing"
)

// passthroughDecoders recognizes types 2 and 4 as opaque byte records.
func passthroughDecoders() map[TlvType]TlvKnownTypeDecoder {
	passthrough := func(v []byte) (interface{}, error) { return v, nil }
	return map[TlvType]TlvKnownTypeDecoder{
		2: passthrough,
		4: passthrough,
	}
}

func passthroughEncoders() map[TlvType]TlvKnownTypeEncoder {
	return map[TlvType]TlvKnownTypeEncoder{
		2: tlvBytes,
		4: tlvBytes,
	}
}

// TestTlvStreamRoundTrip checks that known and unknown odd records survive
// a decode/encode cycle in canonical ascending order.
func TestTlvStreamRoundTrip(t *testing.T) {
	t.Parallel()

	// type 2 (known), type 3 (unknown odd), type 4 (known).
	raw, _ := hex.DecodeString("020161" + "030162" + "040163")

	stream, err := DecodeTlvStream(bytes.NewReader(raw), passthroughDecoders())
	if err != nil {
		t.Fatalf("unable to decode stream: %v", err)
	}

	if len(stream.Known) != 2 {
		t.Fatalf("decoded %d known records, want 2", len(stream.Known))
	}
	if len(stream.Unknown) != 1 || stream.Unknown[0].Type != 3 {
		t.Fatalf("unknown odd record not preserved: %v", stream.Unknown)
	}

	var b bytes.Buffer
	if err := EncodeTlvStream(&b, stream, passthroughEncoders()); err != nil {
		t.Fatalf("unable to re-encode stream: %v", err)
	}
	if !bytes.Equal(b.Bytes(), raw) {
		t.Fatalf("re-encoded stream %x differs from original %x",
			b.Bytes(), raw)
	}
}

// TestTlvKnownDecodeFailureParity checks that a known odd record whose
// decoder rejects its value is dropped while decoding continues, and that
// the same failure on a known even record aborts the stream.
func TestTlvKnownDecodeFailureParity(t *testing.T) {
	t.Parallel()

	reject := func(v []byte) (interface{}, error) {
		return nil, fmt.Errorf("value does not parse")
	}
	passthrough := func(v []byte) (interface{}, error) { return v, nil }

	// type 5 (odd) rejects, type 6 (even) still parses.
	raw, _ := hex.DecodeString("050161" + "060162")
	stream, err := DecodeTlvStream(bytes.NewReader(raw),
		map[TlvType]TlvKnownTypeDecoder{5: reject, 6: passthrough})
	if err != nil {
		t.Fatalf("failing odd record aborted the stream: %v", err)
	}
	if _, ok := stream.Known[5]; ok {
		t.Fatalf("failing odd record was not dropped")
	}
	if _, ok := stream.Known[6]; !ok {
		t.Fatalf("record after the dropped one was not decoded")
	}

	// The same failing decoder on an even type is fatal.
	raw, _ = hex.DecodeString("060162")
	_, err = DecodeTlvStream(bytes.NewReader(raw),
		map[TlvType]TlvKnownTypeDecoder{6: reject})
	if err == nil {
		t.Fatalf("failing even record did not abort the stream")
	}
}

// TestTlvUnknownEvenRejected checks that an unrecognized even type fails
// the parse.
func TestTlvUnknownEvenRejected(t *testing.T) {
	t.Parallel()

	raw, _ := hex.DecodeString("060100")
	_, err := DecodeTlvStream(bytes.NewReader(raw), passthroughDecoders())
	if _, ok := err.(*ErrUnknownRequiredType); !ok {
		t.Fatalf("unknown even type returned %v, want "+
			"ErrUnknownRequiredType", err)
	}
}

// TestTlvOrderingRejected checks that non-ascending and duplicate types
// fail the parse.
func TestTlvOrderingRejected(t *testing.T) {
	t.Parallel()

	// type 4 before type 2.
	outOfOrder, _ := hex.DecodeString("040163" + "020161")
	_, err := DecodeTlvStream(bytes.NewReader(outOfOrder), passthroughDecoders())
	if _, ok := err.(*ErrTlvTypeNotAscending); !ok {
		t.Fatalf("out-of-order stream returned %v, want "+
			"ErrTlvTypeNotAscending", err)
	}

	// type 2 twice.
	duplicate, _ := hex.DecodeString("020161" + "020162")
	_, err = DecodeTlvStream(bytes.NewReader(duplicate), passthroughDecoders())
	if _, ok := err.(*ErrTlvTypeNotAscending); !ok {
		t.Fatalf("duplicate-type stream returned %v, want "+
			"ErrTlvTypeNotAscending", err)
	}
}

// TestTlvEncodeCanonicalOrder checks that encoding emits ascending types
// regardless of insertion order.
func TestTlvEncodeCanonicalOrder(t *testing.T) {
	t.Parallel()

	stream := NewTlvStream()
	stream.Known[4] = []byte{0x63}
	stream.Known[2] = []byte{0x61}
	stream.Unknown = append(stream.Unknown, TlvRecord{Type: 3, Value: []byte{0x62}})

	var b bytes.Buffer
	if err := EncodeTlvStream(&b, stream, passthroughEncoders()); err != nil {
		t.Fatalf("unable to encode stream: %v", err)
	}

	want, _ := hex.DecodeString("020161" + "030162" + "040163")
	if !bytes.Equal(b.Bytes(), want) {
		t.Fatalf("stream encoded to %x, want canonical %x", b.Bytes(), want)
	}
}
