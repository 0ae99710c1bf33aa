package lnwire

import (
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
)

// AcceptChannel is the funder's counterparty response to OpenChannel,
// filling in the remaining keyset basepoints and the responder's own
// channel parameters.
type AcceptChannel struct {
	PendingChannelID     TempChannelID
	DustLimit            btcutil.Amount
	MaxValueInFlight     MilliSatoshi
	ChannelReserve       btcutil.Amount
	HtlcMinimum          MilliSatoshi
	MinAcceptDepth       uint32
	CSVDelay             uint16
	MaxAcceptedHTLCs     uint16
	FundingKey           *btcec.PublicKey
	RevocationPoint      *btcec.PublicKey
	PaymentPoint         *btcec.PublicKey
	DelayedPaymentPoint  *btcec.PublicKey
	HtlcPoint            *btcec.PublicKey
	FirstCommitmentPoint *btcec.PublicKey

	// UpfrontShutdownScript is optional; nil means none was given.
	UpfrontShutdownScript []byte

	// ChannelType is optional; nil means the responder did not echo an
	// explicit commitment format.
	ChannelType *ChannelType
}

var _ Message = (*AcceptChannel)(nil)

func (a *AcceptChannel) Decode(r io.Reader, pver uint32) error {
	if err := readElements(r,
		&a.PendingChannelID,
		&a.DustLimit,
		&a.MaxValueInFlight,
		&a.ChannelReserve,
		&a.HtlcMinimum,
		&a.MinAcceptDepth,
		&a.CSVDelay,
		&a.MaxAcceptedHTLCs,
		&a.FundingKey,
		&a.RevocationPoint,
		&a.PaymentPoint,
		&a.DelayedPaymentPoint,
		&a.HtlcPoint,
		&a.FirstCommitmentPoint,
	); err != nil {
		return err
	}

	return decodeOpenCloseTlv(r, &a.UpfrontShutdownScript, &a.ChannelType)
}

func (a *AcceptChannel) Encode(w io.Writer, pver uint32) error {
	if err := writeElements(w,
		a.PendingChannelID,
		a.DustLimit,
		a.MaxValueInFlight,
		a.ChannelReserve,
		a.HtlcMinimum,
		a.MinAcceptDepth,
		a.CSVDelay,
		a.MaxAcceptedHTLCs,
		a.FundingKey,
		a.RevocationPoint,
		a.PaymentPoint,
		a.DelayedPaymentPoint,
		a.HtlcPoint,
		a.FirstCommitmentPoint,
	); err != nil {
		return err
	}

	return encodeOpenCloseTlv(w, a.UpfrontShutdownScript, a.ChannelType)
}

func (a *AcceptChannel) MsgType() MessageType {
	return MsgAcceptChannel
}

func (a *AcceptChannel) MaxPayloadLength(uint32) uint32 {
	return MaxMessagePayload
}
