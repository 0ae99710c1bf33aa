package lnwire

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// Sig is a fixed 64-byte, big-endian (r || s) signature encoding as used
// throughout the wire protocol. It carries no DER framing, unlike the
// variable-length signatures bitcoin transactions use, so conversion to and
// from the DER form used by btcec happens at the wire boundary only.
type Sig [64]byte

// NewSigFromSignature converts a parsed ECDSA signature into its 64-byte
// wire encoding by unpacking the DER-encoded (r, s) integers into two
// fixed 32-byte big-endian halves.
func NewSigFromSignature(sig *ecdsa.Signature) (Sig, error) {
	if sig == nil {
		return Sig{}, fmt.Errorf("cannot encode nil signature")
	}

	rBytes, sBytes, err := derToRS(sig.Serialize())
	if err != nil {
		return Sig{}, err
	}

	var s Sig
	copy(s[:32], rBytes[:])
	copy(s[32:], sBytes[:])

	return s, nil
}

// ToSignature parses the 64-byte wire encoding back into an ECDSA signature
// usable for verification, by re-wrapping the two halves in DER framing.
func (s Sig) ToSignature() (*ecdsa.Signature, error) {
	der := rsToDER(s[:32], s[32:])
	return ecdsa.ParseDERSignature(der)
}

// derAsn1Int encodes b as a DER INTEGER, prepending a 0x00 pad byte if the
// high bit is set (DER integers are signed) and stripping any leading zero
// bytes beyond what's required.
func derAsn1Int(b []byte) []byte {
	i := 0
	for i < len(b)-1 && b[i] == 0x00 {
		i++
	}
	b = b[i:]

	if len(b) == 0 || b[0]&0x80 != 0 {
		b = append([]byte{0x00}, b...)
	}

	out := make([]byte, 0, len(b)+2)
	out = append(out, 0x02, byte(len(b)))
	out = append(out, b...)
	return out
}

// rsToDER wraps fixed-width r and s big-endian integers in a DER SEQUENCE,
// the encoding ecdsa.ParseDERSignature expects.
func rsToDER(r, s []byte) []byte {
	rEnc := derAsn1Int(r)
	sEnc := derAsn1Int(s)

	body := make([]byte, 0, len(rEnc)+len(sEnc))
	body = append(body, rEnc...)
	body = append(body, sEnc...)

	out := make([]byte, 0, len(body)+2)
	out = append(out, 0x30, byte(len(body)))
	out = append(out, body...)
	return out
}

// derToRS unpacks a DER-encoded ECDSA signature into two fixed 32-byte
// big-endian halves, left-padding short integers with zeros.
func derToRS(der []byte) (r, s [32]byte, err error) {
	if len(der) < 8 || der[0] != 0x30 {
		return r, s, fmt.Errorf("malformed DER signature")
	}

	buf := der[2:]

	readInt := func() ([]byte, error) {
		if len(buf) < 2 || buf[0] != 0x02 {
			return nil, fmt.Errorf("malformed DER integer")
		}
		l := int(buf[1])
		buf = buf[2:]
		if len(buf) < l {
			return nil, fmt.Errorf("truncated DER integer")
		}
		v := buf[:l]
		buf = buf[l:]
		// Strip the optional leading sign-padding byte.
		for len(v) > 0 && v[0] == 0x00 {
			v = v[1:]
		}
		return v, nil
	}

	rb, err := readInt()
	if err != nil {
		return r, s, err
	}
	sb, err := readInt()
	if err != nil {
		return r, s, err
	}
	if len(rb) > 32 || len(sb) > 32 {
		return r, s, fmt.Errorf("DER integer too large for fixed-width signature")
	}

	copy(r[32-len(rb):], rb)
	copy(s[32-len(sb):], sb)
	return r, s, nil
}
