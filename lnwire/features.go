package lnwire

import (
	"fmt"
	"io"
	"math/big"
)

// FeatureBit is a feature bit position in a feature vector. Even bits are
// "it must be understood" (mandatory); the odd bit immediately above an
// even bit is its optional counterpart, per the even/odd convention used
// throughout the protocol for backward-compatible feature negotiation.
type FeatureBit uint16

const (
	DataLossProtectRequired FeatureBit = 0
	DataLossProtectOptional FeatureBit = 1

	InitialRoutingSync FeatureBit = 3

	UpfrontShutdownScriptRequired FeatureBit = 4
	UpfrontShutdownScriptOptional FeatureBit = 5

	GossipQueriesRequired FeatureBit = 6
	GossipQueriesOptional FeatureBit = 7

	VarOnionOptinRequired FeatureBit = 8
	VarOnionOptinOptional FeatureBit = 9

	GossipQueriesExRequired FeatureBit = 10
	GossipQueriesExOptional FeatureBit = 11

	StaticRemoteKeyRequired FeatureBit = 12
	StaticRemoteKeyOptional FeatureBit = 13

	PaymentAddrRequired FeatureBit = 14
	PaymentAddrOptional FeatureBit = 15

	MPPRequired FeatureBit = 16
	MPPOptional FeatureBit = 17

	AnchorsRequired FeatureBit = 20
	AnchorsOptional FeatureBit = 21

	AnchorsZeroFeeHtlcTxRequired FeatureBit = 22
	AnchorsZeroFeeHtlcTxOptional FeatureBit = 23
)

// featureNames gives a human-readable label for known bits, used in error
// messages only.
var featureNames = map[FeatureBit]string{
	DataLossProtectRequired:       "data-loss-protect",
	DataLossProtectOptional:       "data-loss-protect",
	InitialRoutingSync:            "initial-routing-sync",
	UpfrontShutdownScriptRequired: "upfront-shutdown-script",
	UpfrontShutdownScriptOptional: "upfront-shutdown-script",
	GossipQueriesRequired:         "gossip-queries",
	GossipQueriesOptional:         "gossip-queries",
	VarOnionOptinRequired:         "var-onion-optin",
	VarOnionOptinOptional:         "var-onion-optin",
	GossipQueriesExRequired:       "gossip-queries-ex",
	GossipQueriesExOptional:       "gossip-queries-ex",
	StaticRemoteKeyRequired:       "static-remote-key",
	StaticRemoteKeyOptional:       "static-remote-key",
	PaymentAddrRequired:           "payment-addr",
	PaymentAddrOptional:           "payment-addr",
	MPPRequired:                   "multi-path-payment",
	MPPOptional:                   "multi-path-payment",
	AnchorsRequired:               "anchor-outputs",
	AnchorsOptional:               "anchor-outputs",
	AnchorsZeroFeeHtlcTxRequired:  "anchors-zero-fee-htlc-tx",
	AnchorsZeroFeeHtlcTxOptional:  "anchors-zero-fee-htlc-tx",
}

// RawFeatureVector is a bitvector of FeatureBits, encoded on the wire as a
// big-endian byte string of minimal length (no forced padding beyond what's
// needed to hold the highest set bit).
type RawFeatureVector struct {
	features map[FeatureBit]struct{}
}

// NewRawFeatureVector creates a vector with the given bits set.
func NewRawFeatureVector(bits ...FeatureBit) *RawFeatureVector {
	fv := &RawFeatureVector{features: make(map[FeatureBit]struct{}, len(bits))}
	for _, b := range bits {
		fv.Set(b)
	}
	return fv
}

// Set marks bit as present in the vector.
func (fv *RawFeatureVector) Set(bit FeatureBit) {
	if fv.features == nil {
		fv.features = make(map[FeatureBit]struct{})
	}
	fv.features[bit] = struct{}{}
}

// Unset clears bit from the vector.
func (fv *RawFeatureVector) Unset(bit FeatureBit) {
	delete(fv.features, bit)
}

// IsSet reports whether exactly bit is present; the other bit of its
// required/optional pair is not consulted (HasFeature checks both).
func (fv *RawFeatureVector) IsSet(bit FeatureBit) bool {
	_, ok := fv.features[bit]
	return ok
}

// HasFeature reports whether either the required or optional form of a
// feature is set, given the required (even) bit of the pair.
func (fv *RawFeatureVector) HasFeature(required FeatureBit) bool {
	return fv.IsSet(required) || fv.IsSet(required+1)
}

// serializeSize returns the minimal byte length needed to hold every set
// bit.
func (fv *RawFeatureVector) serializeSize() int {
	max := -1
	for b := range fv.features {
		if int(b) > max {
			max = int(b)
		}
	}
	if max < 0 {
		return 0
	}
	return max/8 + 1
}

// rawBytes renders the minimally-sized, big-endian bitvector encoding of fv
// with no length prefix at all, the form a TLV record's own length field
// already delimits.
func (fv *RawFeatureVector) rawBytes() []byte {
	size := fv.serializeSize()
	buf := make([]byte, size)
	for b := range fv.features {
		buf[size-1-int(b)/8] |= 1 << (uint(b) % 8)
	}
	return buf
}

// setFromRawBytes populates fv from an unprefixed big-endian bitvector.
func (fv *RawFeatureVector) setFromRawBytes(buf []byte) {
	fv.features = make(map[FeatureBit]struct{})
	for i, b := range buf {
		if b == 0 {
			continue
		}
		bytePos := len(buf) - i - 1
		for bit := 0; bit < 8; bit++ {
			if b&(1<<uint(bit)) != 0 {
				fv.Set(FeatureBit(bytePos*8 + bit))
			}
		}
	}
}

// Encode writes the big-endian, minimally-sized bitvector encoding of fv,
// u16-length-prefixed as every variable-length wire field outside a TLV
// record is.
func (fv *RawFeatureVector) Encode(w io.Writer) error {
	return writeElement(w, fv.rawBytes())
}

// Decode reads a u16-length-prefixed, big-endian bitvector into fv.
func (fv *RawFeatureVector) Decode(r io.Reader) error {
	var buf []byte
	if err := readElement(r, &buf); err != nil {
		return err
	}
	fv.setFromRawBytes(buf)
	return nil
}

// EncodeTlvValue renders fv as a bare bitvector with no length prefix, for
// use as the value of a TLV record (whose own length field delimits it).
func (fv *RawFeatureVector) EncodeTlvValue() []byte {
	return fv.rawBytes()
}

// DecodeTlvValue parses a bare bitvector (no length prefix) into fv.
func (fv *RawFeatureVector) DecodeTlvValue(buf []byte) {
	fv.setFromRawBytes(buf)
}

// Clone returns an independent copy of fv.
func (fv *RawFeatureVector) Clone() *RawFeatureVector {
	c := &RawFeatureVector{features: make(map[FeatureBit]struct{}, len(fv.features))}
	for b := range fv.features {
		c.features[b] = struct{}{}
	}
	return c
}

// featureDependency names a (feature, dependency) pair checked by
// ValidateDependencies: if feature is set, dependency must also be set.
type featureDependency struct {
	feature, dependency FeatureBit
}

// featureDependencies enumerates the cross-bit consistency rules the
// protocol requires. Each is checked against both the required and
// optional forms of the features involved.
var featureDependencies = []featureDependency{
	{GossipQueriesExRequired, GossipQueriesRequired},
	{PaymentAddrRequired, VarOnionOptinRequired},
	{MPPRequired, PaymentAddrRequired},
	{AnchorsRequired, StaticRemoteKeyRequired},
	{AnchorsZeroFeeHtlcTxRequired, StaticRemoteKeyRequired},
}

// ErrFeatureDependencyMissing is returned when a set feature's prerequisite
// feature is absent.
type ErrFeatureDependencyMissing struct {
	Feature    FeatureBit
	Dependency FeatureBit
}

func (e *ErrFeatureDependencyMissing) Error() string {
	return fmt.Sprintf("feature %s set without its prerequisite %s",
		featureNames[e.Feature], featureNames[e.Dependency])
}

// ErrUnknownEvenFeature is returned when a vector carries a mandatory
// (even) bit this implementation does not recognize: the peer demands an
// understanding we cannot give.
type ErrUnknownEvenFeature struct {
	Bit FeatureBit
}

func (e *ErrUnknownEvenFeature) Error() string {
	return fmt.Sprintf("feature vector requires unknown even feature bit %d",
		e.Bit)
}

// ValidateKnown rejects any set even bit outside the recognized feature
// table. Unknown odd bits pass: odd means optional, and optional features
// may be ignored.
func (fv *RawFeatureVector) ValidateKnown() error {
	for bit := range fv.features {
		if bit%2 != 0 {
			continue
		}
		if _, known := featureNames[bit]; !known {
			return &ErrUnknownEvenFeature{Bit: bit}
		}
	}
	return nil
}

// ValidateDependencies checks every cross-bit consistency rule against fv,
// matching either form (required or optional) of a feature to either form
// of its dependency.
func (fv *RawFeatureVector) ValidateDependencies() error {
	for _, dep := range featureDependencies {
		if !fv.HasFeature(dep.feature) {
			continue
		}
		if !fv.HasFeature(dep.dependency) {
			return &ErrFeatureDependencyMissing{dep.feature, dep.dependency}
		}
	}
	return nil
}

// bigEndianBitLen is a convenience used by tests to sanity-check the
// minimal-length property of Encode against an independent computation.
func bigEndianBitLen(fv *RawFeatureVector) int {
	max := new(big.Int)
	for b := range fv.features {
		bit := new(big.Int).Lsh(big.NewInt(1), uint(b))
		max.Or(max, bit)
	}
	return (max.BitLen() + 7) / 8
}
