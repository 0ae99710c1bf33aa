package lnwire

import (
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// OpenChannel begins a channel-open negotiation, proposing the funding
// amount and every initial keyset basepoint the responder will need to
// derive the counterparty's side of the commitment transactions.
type OpenChannel struct {
	ChainHash            chainhash.Hash
	PendingChannelID     TempChannelID
	FundingAmount        btcutil.Amount
	PushAmount           MilliSatoshi
	DustLimit            btcutil.Amount
	MaxValueInFlight     MilliSatoshi
	ChannelReserve       btcutil.Amount
	HtlcMinimum          MilliSatoshi
	FeePerKiloWeight     uint32
	CSVDelay             uint16
	MaxAcceptedHTLCs     uint16
	FundingKey           *btcec.PublicKey
	RevocationPoint      *btcec.PublicKey
	PaymentPoint         *btcec.PublicKey
	DelayedPaymentPoint  *btcec.PublicKey
	HtlcPoint            *btcec.PublicKey
	FirstCommitmentPoint *btcec.PublicKey
	ChannelFlags         byte

	// UpfrontShutdownScript is optional; nil means none was given.
	UpfrontShutdownScript []byte

	// ChannelType is optional; nil means the peer did not propose an
	// explicit commitment format and the negotiated default applies.
	ChannelType *ChannelType
}

// AnnounceChannel reports whether the announce-channel flag bit is set.
func (o *OpenChannel) AnnounceChannel() bool {
	return o.ChannelFlags&0x01 != 0
}

var _ Message = (*OpenChannel)(nil)

func (o *OpenChannel) Decode(r io.Reader, pver uint32) error {
	if err := readElements(r,
		&o.ChainHash,
		&o.PendingChannelID,
		&o.FundingAmount,
		&o.PushAmount,
		&o.DustLimit,
		&o.MaxValueInFlight,
		&o.ChannelReserve,
		&o.HtlcMinimum,
		&o.FeePerKiloWeight,
		&o.CSVDelay,
		&o.MaxAcceptedHTLCs,
		&o.FundingKey,
		&o.RevocationPoint,
		&o.PaymentPoint,
		&o.DelayedPaymentPoint,
		&o.HtlcPoint,
		&o.FirstCommitmentPoint,
		&o.ChannelFlags,
	); err != nil {
		return err
	}

	return decodeOpenCloseTlv(r, &o.UpfrontShutdownScript, &o.ChannelType)
}

func (o *OpenChannel) Encode(w io.Writer, pver uint32) error {
	if err := writeElements(w,
		o.ChainHash,
		o.PendingChannelID,
		o.FundingAmount,
		o.PushAmount,
		o.DustLimit,
		o.MaxValueInFlight,
		o.ChannelReserve,
		o.HtlcMinimum,
		o.FeePerKiloWeight,
		o.CSVDelay,
		o.MaxAcceptedHTLCs,
		o.FundingKey,
		o.RevocationPoint,
		o.PaymentPoint,
		o.DelayedPaymentPoint,
		o.HtlcPoint,
		o.FirstCommitmentPoint,
		o.ChannelFlags,
	); err != nil {
		return err
	}

	return encodeOpenCloseTlv(w, o.UpfrontShutdownScript, o.ChannelType)
}

func (o *OpenChannel) MsgType() MessageType {
	return MsgOpenChannel
}

func (o *OpenChannel) MaxPayloadLength(uint32) uint32 {
	return MaxMessagePayload
}

const (
	tlvTypeUpfrontShutdownScript TlvType = 0
	tlvTypeChannelType           TlvType = 1
)

// decodeOpenCloseTlv reads the shared upfront_shutdown_script/channel_type
// trailing TLV stream used by open_channel and accept_channel. Absence of
// the stream (a clean io.EOF on the first BigSize read) is not an error:
// both fields are optional extensions.
func decodeOpenCloseTlv(r io.Reader, shutdown *[]byte, chanType **ChannelType) error {
	decoders := map[TlvType]TlvKnownTypeDecoder{
		tlvTypeUpfrontShutdownScript: func(v []byte) (interface{}, error) {
			return v, nil
		},
		tlvTypeChannelType: func(v []byte) (interface{}, error) {
			fv := &RawFeatureVector{}
			fv.DecodeTlvValue(v)
			return NewChannelType(fv)
		},
	}

	stream, err := DecodeTlvStream(r, decoders)
	if err != nil {
		return err
	}

	if v, ok := stream.Known[tlvTypeUpfrontShutdownScript]; ok {
		*shutdown = v.([]byte)
	}
	if v, ok := stream.Known[tlvTypeChannelType]; ok {
		ct := v.(ChannelType)
		*chanType = &ct
	}

	return nil
}

func encodeOpenCloseTlv(w io.Writer, shutdown []byte, chanType *ChannelType) error {
	stream := NewTlvStream()
	if shutdown != nil {
		stream.Known[tlvTypeUpfrontShutdownScript] = shutdown
	}
	if chanType != nil {
		stream.Known[tlvTypeChannelType] = *chanType
	}

	encoders := map[TlvType]TlvKnownTypeEncoder{
		tlvTypeUpfrontShutdownScript: tlvBytes,
		tlvTypeChannelType: func(v interface{}) ([]byte, error) {
			ct := v.(ChannelType)
			return ct.FeatureVector().EncodeTlvValue(), nil
		},
	}

	return EncodeTlvStream(w, stream, encoders)
}
