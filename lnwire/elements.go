package lnwire

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"net"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// MaxSliceLength is the maximum size, in bytes, of any variable-length byte
// slice or string encoded with a u16 length prefix elsewhere in this codec.
// A length that would not fit in a uint16 is rejected as TooLargeData.
const MaxSliceLength = math.MaxUint16

// ErrTooLargeData is returned when a variable-length field is asked to
// encode more than MaxSliceLength bytes.
type ErrTooLargeData struct {
	Len int
}

func (e *ErrTooLargeData) Error() string {
	return fmt.Sprintf("data of length %d exceeds the %d byte limit for a "+
		"u16-length-prefixed field", e.Len, MaxSliceLength)
}

func writeElement(w io.Writer, element interface{}) error {
	switch e := element.(type) {
	case uint8:
		return binary.Write(w, binary.BigEndian, e)
	case uint16:
		return binary.Write(w, binary.BigEndian, e)
	case uint32:
		return binary.Write(w, binary.BigEndian, e)
	case uint64:
		return binary.Write(w, binary.BigEndian, e)
	case int64:
		return binary.Write(w, binary.BigEndian, e)
	case bool:
		var b [1]byte
		if e {
			b[0] = 1
		}
		_, err := w.Write(b[:])
		return err

	case MilliSatoshi:
		return binary.Write(w, binary.BigEndian, uint64(e))

	case btcutil.Amount:
		return binary.Write(w, binary.BigEndian, uint64(e))

	case BigSize:
		return e.Encode(w)

	case []byte:
		if len(e) > MaxSliceLength {
			return &ErrTooLargeData{len(e)}
		}
		if err := writeElement(w, uint16(len(e))); err != nil {
			return err
		}
		_, err := w.Write(e)
		return err

	case string:
		return writeElement(w, []byte(e))

	case [32]byte:
		_, err := w.Write(e[:])
		return err

	case [33]byte:
		_, err := w.Write(e[:])
		return err

	case [64]byte:
		_, err := w.Write(e[:])
		return err

	case ChannelID:
		_, err := w.Write(e[:])
		return err

	case ShortChannelID:
		return e.Encode(w)

	case chainhash.Hash:
		_, err := w.Write(e[:])
		return err

	case *btcec.PublicKey:
		if e == nil {
			var empty [33]byte
			_, err := w.Write(empty[:])
			return err
		}
		_, err := w.Write(e.SerializeCompressed())
		return err

	case Sig:
		_, err := w.Write(e[:])
		return err

	case *ecdsa.Signature:
		sig, err := NewSigFromSignature(e)
		if err != nil {
			return err
		}
		_, err = w.Write(sig[:])
		return err

	case wire.OutPoint:
		if _, err := w.Write(e.Hash[:]); err != nil {
			return err
		}
		return writeElement(w, uint16(e.Index))

	case RawFeatureVector:
		return e.Encode(w)

	case *RawFeatureVector:
		return e.Encode(w)

	case []net.Addr:
		return writeNetAddrs(w, e)

	case RGB:
		_, err := w.Write([]byte{e.Red, e.Green, e.Blue})
		return err

	case Alias:
		_, err := w.Write(e.data[:])
		return err

	case nil:
		return nil

	default:
		return fmt.Errorf("unsupported type for writeElement: %T", e)
	}
}

func writeElements(w io.Writer, elements ...interface{}) error {
	for _, e := range elements {
		if err := writeElement(w, e); err != nil {
			return err
		}
	}
	return nil
}

func readElement(r io.Reader, element interface{}) error {
	switch e := element.(type) {
	case *uint8:
		return binary.Read(r, binary.BigEndian, e)
	case *uint16:
		return binary.Read(r, binary.BigEndian, e)
	case *uint32:
		return binary.Read(r, binary.BigEndian, e)
	case *uint64:
		return binary.Read(r, binary.BigEndian, e)
	case *int64:
		return binary.Read(r, binary.BigEndian, e)
	case *bool:
		var b [1]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return err
		}
		*e = b[0] != 0
		return nil

	case *MilliSatoshi:
		var v uint64
		if err := binary.Read(r, binary.BigEndian, &v); err != nil {
			return err
		}
		*e = MilliSatoshi(v)
		return nil

	case *btcutil.Amount:
		var v uint64
		if err := binary.Read(r, binary.BigEndian, &v); err != nil {
			return err
		}
		*e = btcutil.Amount(v)
		return nil

	case *BigSize:
		return e.Decode(r)

	case *[]byte:
		var l uint16
		if err := readElement(r, &l); err != nil {
			return err
		}
		buf := make([]byte, l)
		if _, err := io.ReadFull(r, buf); err != nil {
			return err
		}
		*e = buf
		return nil

	case *string:
		var buf []byte
		if err := readElement(r, &buf); err != nil {
			return err
		}
		*e = string(buf)
		return nil

	case *[32]byte:
		_, err := io.ReadFull(r, e[:])
		return err

	case *[33]byte:
		_, err := io.ReadFull(r, e[:])
		return err

	case *[64]byte:
		_, err := io.ReadFull(r, e[:])
		return err

	case *ChannelID:
		_, err := io.ReadFull(r, e[:])
		return err

	case *ShortChannelID:
		return e.Decode(r)

	case *chainhash.Hash:
		_, err := io.ReadFull(r, e[:])
		return err

	case **btcec.PublicKey:
		var buf [33]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return err
		}
		pub, err := btcec.ParsePubKey(buf[:])
		if err != nil {
			return err
		}
		*e = pub
		return nil

	case *Sig:
		_, err := io.ReadFull(r, e[:])
		return err

	case **ecdsa.Signature:
		var raw Sig
		if _, err := io.ReadFull(r, raw[:]); err != nil {
			return err
		}
		sig, err := raw.ToSignature()
		if err != nil {
			return err
		}
		*e = sig
		return nil

	case *wire.OutPoint:
		if _, err := io.ReadFull(r, e.Hash[:]); err != nil {
			return err
		}
		var idx uint16
		if err := readElement(r, &idx); err != nil {
			return err
		}
		e.Index = uint32(idx)
		return nil

	case *RawFeatureVector:
		return e.Decode(r)

	case *[]net.Addr:
		addrs, err := readNetAddrs(r)
		if err != nil {
			return err
		}
		*e = addrs
		return nil

	case *RGB:
		var buf [3]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return err
		}
		e.Red, e.Green, e.Blue = buf[0], buf[1], buf[2]
		return nil

	case *Alias:
		var buf [32]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return err
		}
		e.data = buf
		return nil

	default:
		return fmt.Errorf("unsupported type for readElement: %T", e)
	}
}

func readElements(r io.Reader, elements ...interface{}) error {
	for _, e := range elements {
		if err := readElement(r, e); err != nil {
			return err
		}
	}
	return nil
}
