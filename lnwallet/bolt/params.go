package bolt

import (
	"github.com/btcsuite/btcd/btcutil"

	"github.com/lnp-go/lnpcore/lnwire"
)

// CommonParams are the channel parameters both peers share: they are fixed
// by the opener in open_channel and never differ between the two sides.
type CommonParams struct {
	// MinimumDepth is the number of confirmations required before the
	// channel is considered open.
	MinimumDepth uint32

	// FeeratePerKw is the commitment-transaction fee rate, in satoshis
	// per 1000 weight units.
	FeeratePerKw uint32

	// AnnounceChannel is set when the channel should be announced to the
	// network via the gossip layer.
	AnnounceChannel bool

	// ChannelType selects the commitment format for the channel's
	// lifetime.
	ChannelType lnwire.ChannelType
}

// DefaultCommonParams returns the parameters a node offers when the caller
// does not override them.
func DefaultCommonParams() CommonParams {
	return CommonParams{
		MinimumDepth: 3,
		FeeratePerKw: 253,
	}
}

// PeerParams are the channel parameters each side sets independently for
// the other to obey; a channel carries one set for each direction.
type PeerParams struct {
	// DustLimit is the threshold below which this side will not create
	// commitment outputs.
	DustLimit btcutil.Amount

	// MaxHtlcValueInFlight caps the total millisatoshi value of pending
	// HTLCs the counterparty may have offered at once.
	MaxHtlcValueInFlight lnwire.MilliSatoshi

	// ChannelReserve is the minimum balance this side requires the
	// counterparty to keep in the channel.
	ChannelReserve btcutil.Amount

	// HtlcMinimum is the smallest HTLC this side will accept.
	HtlcMinimum lnwire.MilliSatoshi

	// ToSelfDelay is the CSV delay imposed on the counterparty's
	// to-local output.
	ToSelfDelay uint16

	// MaxAcceptedHtlcs caps the number of pending HTLCs the counterparty
	// may have offered at once.
	MaxAcceptedHtlcs uint16
}

// DefaultPeerParams returns the parameter set a node requires of its peers
// when the caller does not override them.
func DefaultPeerParams() PeerParams {
	return PeerParams{
		DustLimit:            546,
		MaxHtlcValueInFlight: 1_000_000_000,
		ChannelReserve:       10_000,
		HtlcMinimum:          1,
		ToSelfDelay:          144,
		MaxAcceptedHtlcs:     483,
	}
}

// peerParamsFromOpenChannel extracts the opener's parameter set from its
// open_channel proposal.
func peerParamsFromOpenChannel(o *lnwire.OpenChannel) PeerParams {
	return PeerParams{
		DustLimit:            o.DustLimit,
		MaxHtlcValueInFlight: o.MaxValueInFlight,
		ChannelReserve:       o.ChannelReserve,
		HtlcMinimum:          o.HtlcMinimum,
		ToSelfDelay:          o.CSVDelay,
		MaxAcceptedHtlcs:     o.MaxAcceptedHTLCs,
	}
}

// peerParamsFromAcceptChannel extracts the accepter's parameter set from
// its accept_channel response.
func peerParamsFromAcceptChannel(a *lnwire.AcceptChannel) PeerParams {
	return PeerParams{
		DustLimit:            a.DustLimit,
		MaxHtlcValueInFlight: a.MaxValueInFlight,
		ChannelReserve:       a.ChannelReserve,
		HtlcMinimum:          a.HtlcMinimum,
		ToSelfDelay:          a.CSVDelay,
		MaxAcceptedHtlcs:     a.MaxAcceptedHTLCs,
	}
}
