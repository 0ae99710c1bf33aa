// Package policy validates a counterparty's proposed channel parameters
// against a local acceptance policy.
// Each rule returns a distinct, typed error so a caller (or a test) can
// assert exactly which one fired.
package policy

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"

	"github.com/lnp-go/lnpcore/lnwire"
)

// MaxAcceptedHtlcsHardLimit is the protocol-wide ceiling on max_accepted_htlcs,
// fixed regardless of policy.
const MaxAcceptedHtlcsHardLimit = 483

// MinDustLimitSatoshis is the protocol-wide floor on dust_limit_satoshis
// regardless of policy.
const MinDustLimitSatoshis = 354

// FeerateRange is an inclusive [Min, Max] feerate bound, in sat/kw.
type FeerateRange struct {
	Min uint32
	Max uint32
}

// Policy bounds what channel parameters the local node will accept from, or
// has offered to, a counterparty. A zero-value optional field (nil pointer)
// means that rule is not enforced.
type Policy struct {
	ToSelfDelayMax uint16

	HtlcMinimumMsatMax           *lnwire.MilliSatoshi
	MaxHtlcValueInFlightMsatMin  *lnwire.MilliSatoshi
	ChannelReserveSatoshisMaxAbs *btcutil.Amount
	MaxAcceptedHtlcsMin          *uint16
	DustLimitSatoshisMax         *btcutil.Amount

	// FeeratePerKwRange bounds an inbound open_channel's proposed
	// feerate (rule 10). Always enforced for inbound validation.
	FeeratePerKwRange FeerateRange

	FundingSatoshisMin *btcutil.Amount

	// ChannelReservePercent bounds channel_reserve_satoshis as a
	// percentage of funding_satoshis (rule 12).
	ChannelReservePercent *uint8

	// MaximumDepth bounds an accept_channel's minimum_depth (rule 13).
	MaximumDepth *uint32
}

// Default returns a permissive policy carrying only the protocol-mandatory
// bounds, suitable as a starting point for a more restrictive profile.
func Default() *Policy {
	return &Policy{
		ToSelfDelayMax:    2016,
		FeeratePerKwRange: FeerateRange{Min: 253, Max: 10_000_000},
	}
}

func amt(v uint64) btcutil.Amount       { return btcutil.Amount(v) }
func msat(v uint64) lnwire.MilliSatoshi { return lnwire.MilliSatoshi(v) }

// LNDProfile mirrors lnd's default channel-acceptance bounds.
func LNDProfile() *Policy {
	p := Default()
	reserveMax := amt(500_000)
	dustMax := amt(3_000)
	p.ChannelReserveSatoshisMaxAbs = &reserveMax
	p.DustLimitSatoshisMax = &dustMax
	return p
}

// CLightningProfile mirrors c-lightning's default channel-acceptance
// bounds: the default 2016-block to_self_delay tolerance, and at least
// one accepted HTLC.
func CLightningProfile() *Policy {
	p := Default()
	p.ToSelfDelayMax = 2016
	min := uint16(1)
	p.MaxAcceptedHtlcsMin = &min
	return p
}

// EclairProfile mirrors eclair's default channel-acceptance bounds.
func EclairProfile() *Policy {
	p := Default()
	p.ToSelfDelayMax = 720
	htlcMinMax := msat(1)
	p.HtlcMinimumMsatMax = &htlcMinMax
	return p
}

// ProposedParams is the subset of open_channel/accept_channel fields the
// fourteen rules consult, abstracted so both messages validate through the
// same function.
type ProposedParams struct {
	ToSelfDelay              uint16
	MaxAcceptedHtlcs         uint16
	DustLimitSatoshis        btcutil.Amount
	ChannelReserveSatoshis   btcutil.Amount
	HtlcMinimumMsat          lnwire.MilliSatoshi
	MaxHtlcValueInFlightMsat lnwire.MilliSatoshi

	// FeeratePerKw and FundingSatoshis are only set when validating an
	// open_channel (rules 10, 11, 12); zero otherwise.
	FeeratePerKw    uint32
	FundingSatoshis btcutil.Amount

	// MinimumDepth is only set when confirming an accept_channel
	// (rule 13); zero otherwise.
	MinimumDepth uint32
}

// FromOpenChannel extracts the parameters open_channel proposes.
func FromOpenChannel(o *lnwire.OpenChannel) ProposedParams {
	return ProposedParams{
		ToSelfDelay:              o.CSVDelay,
		MaxAcceptedHtlcs:         o.MaxAcceptedHTLCs,
		DustLimitSatoshis:        o.DustLimit,
		ChannelReserveSatoshis:   o.ChannelReserve,
		HtlcMinimumMsat:          o.HtlcMinimum,
		MaxHtlcValueInFlightMsat: o.MaxValueInFlight,
		FeeratePerKw:             o.FeePerKiloWeight,
		FundingSatoshis:          o.FundingAmount,
	}
}

// FromAcceptChannel extracts the parameters accept_channel proposes.
func FromAcceptChannel(a *lnwire.AcceptChannel) ProposedParams {
	return ProposedParams{
		ToSelfDelay:              a.CSVDelay,
		MaxAcceptedHtlcs:         a.MaxAcceptedHTLCs,
		DustLimitSatoshis:        a.DustLimit,
		ChannelReserveSatoshis:   a.ChannelReserve,
		HtlcMinimumMsat:          a.HtlcMinimum,
		MaxHtlcValueInFlightMsat: a.MaxValueInFlight,
		MinimumDepth:             a.MinAcceptDepth,
	}
}

// --- the fourteen distinct error variants -------------------------------

type ErrToSelfDelayExceedsMax struct{ Proposed, Max uint16 }

func (e *ErrToSelfDelayExceedsMax) Error() string {
	return fmt.Sprintf("to_self_delay %d exceeds policy max %d", e.Proposed, e.Max)
}

type ErrMaxAcceptedHtlcsTooLarge struct{ Proposed uint16 }

func (e *ErrMaxAcceptedHtlcsTooLarge) Error() string {
	return fmt.Sprintf("max_accepted_htlcs %d exceeds protocol limit %d", e.Proposed, MaxAcceptedHtlcsHardLimit)
}

type ErrDustLimitExceedsReserve struct{ DustLimit, Reserve btcutil.Amount }

func (e *ErrDustLimitExceedsReserve) Error() string {
	return fmt.Sprintf("dust_limit_satoshis %d exceeds channel_reserve_satoshis %d", e.DustLimit, e.Reserve)
}

type ErrDustLimitTooSmall struct{ Proposed btcutil.Amount }

func (e *ErrDustLimitTooSmall) Error() string {
	return fmt.Sprintf("dust_limit_satoshis %d below protocol floor %d", e.Proposed, MinDustLimitSatoshis)
}

type ErrHtlcMinimumExceedsMax struct {
	Proposed, Max lnwire.MilliSatoshi
}

func (e *ErrHtlcMinimumExceedsMax) Error() string {
	return fmt.Sprintf("htlc_minimum_msat %d exceeds policy max %d", e.Proposed, e.Max)
}

type ErrMaxHtlcValueInFlightBelowMin struct {
	Proposed, Min lnwire.MilliSatoshi
}

func (e *ErrMaxHtlcValueInFlightBelowMin) Error() string {
	return fmt.Sprintf("max_htlc_value_in_flight_msat %d below policy min %d", e.Proposed, e.Min)
}

type ErrChannelReserveExceedsMaxAbs struct{ Proposed, Max btcutil.Amount }

func (e *ErrChannelReserveExceedsMaxAbs) Error() string {
	return fmt.Sprintf("channel_reserve_satoshis %d exceeds policy max %d", e.Proposed, e.Max)
}

type ErrMaxAcceptedHtlcsBelowMin struct{ Proposed, Min uint16 }

func (e *ErrMaxAcceptedHtlcsBelowMin) Error() string {
	return fmt.Sprintf("max_accepted_htlcs %d below policy min %d", e.Proposed, e.Min)
}

type ErrDustLimitExceedsMax struct{ Proposed, Max btcutil.Amount }

func (e *ErrDustLimitExceedsMax) Error() string {
	return fmt.Sprintf("dust_limit_satoshis %d exceeds policy max %d", e.Proposed, e.Max)
}

type ErrFeerateOutOfRange struct {
	Proposed uint32
	Range    FeerateRange
}

func (e *ErrFeerateOutOfRange) Error() string {
	return fmt.Sprintf("feerate_per_kw %d outside policy range [%d, %d]", e.Proposed, e.Range.Min, e.Range.Max)
}

type ErrFundingBelowMin struct{ Proposed, Min btcutil.Amount }

func (e *ErrFundingBelowMin) Error() string {
	return fmt.Sprintf("funding_satoshis %d below policy min %d", e.Proposed, e.Min)
}

type ErrChannelReserveExceedsPercent struct {
	Proposed   btcutil.Amount
	Funding    btcutil.Amount
	PercentMax uint8
}

func (e *ErrChannelReserveExceedsPercent) Error() string {
	return fmt.Sprintf("channel_reserve_satoshis %d exceeds %d%% of funding_satoshis %d",
		e.Proposed, e.PercentMax, e.Funding)
}

type ErrMinimumDepthExceedsMax struct{ Proposed, Max uint32 }

func (e *ErrMinimumDepthExceedsMax) Error() string {
	return fmt.Sprintf("minimum_depth %d exceeds policy max %d", e.Proposed, e.Max)
}

type ErrReserveBelowCounterpartyDust struct {
	Side    string
	Reserve btcutil.Amount
	Dust    btcutil.Amount
}

func (e *ErrReserveBelowCounterpartyDust) Error() string {
	return fmt.Sprintf("%s channel_reserve_satoshis %d is below counterparty dust_limit_satoshis %d",
		e.Side, e.Reserve, e.Dust)
}

// commonRules runs the nine rules shared by every proposal, regardless of
// direction.
func commonRules(p ProposedParams, pol *Policy) error {
	if p.ToSelfDelay > pol.ToSelfDelayMax {
		return &ErrToSelfDelayExceedsMax{p.ToSelfDelay, pol.ToSelfDelayMax}
	}
	if p.MaxAcceptedHtlcs > MaxAcceptedHtlcsHardLimit {
		return &ErrMaxAcceptedHtlcsTooLarge{p.MaxAcceptedHtlcs}
	}
	if p.DustLimitSatoshis > p.ChannelReserveSatoshis {
		return &ErrDustLimitExceedsReserve{p.DustLimitSatoshis, p.ChannelReserveSatoshis}
	}
	if p.DustLimitSatoshis < MinDustLimitSatoshis {
		return &ErrDustLimitTooSmall{p.DustLimitSatoshis}
	}
	if pol.HtlcMinimumMsatMax != nil && p.HtlcMinimumMsat > *pol.HtlcMinimumMsatMax {
		return &ErrHtlcMinimumExceedsMax{p.HtlcMinimumMsat, *pol.HtlcMinimumMsatMax}
	}
	if pol.MaxHtlcValueInFlightMsatMin != nil && p.MaxHtlcValueInFlightMsat < *pol.MaxHtlcValueInFlightMsatMin {
		return &ErrMaxHtlcValueInFlightBelowMin{p.MaxHtlcValueInFlightMsat, *pol.MaxHtlcValueInFlightMsatMin}
	}
	if pol.ChannelReserveSatoshisMaxAbs != nil && p.ChannelReserveSatoshis > *pol.ChannelReserveSatoshisMaxAbs {
		return &ErrChannelReserveExceedsMaxAbs{p.ChannelReserveSatoshis, *pol.ChannelReserveSatoshisMaxAbs}
	}
	if pol.MaxAcceptedHtlcsMin != nil && p.MaxAcceptedHtlcs < *pol.MaxAcceptedHtlcsMin {
		return &ErrMaxAcceptedHtlcsBelowMin{p.MaxAcceptedHtlcs, *pol.MaxAcceptedHtlcsMin}
	}
	if pol.DustLimitSatoshisMax != nil && p.DustLimitSatoshis > *pol.DustLimitSatoshisMax {
		return &ErrDustLimitExceedsMax{p.DustLimitSatoshis, *pol.DustLimitSatoshisMax}
	}
	return nil
}

// ValidateInbound runs the common rules plus the three inbound-only rules
// against a peer's open_channel proposal.
func ValidateInbound(p ProposedParams, pol *Policy) error {
	if err := commonRules(p, pol); err != nil {
		return err
	}

	if p.FeeratePerKw < pol.FeeratePerKwRange.Min || p.FeeratePerKw > pol.FeeratePerKwRange.Max {
		return &ErrFeerateOutOfRange{p.FeeratePerKw, pol.FeeratePerKwRange}
	}
	if pol.FundingSatoshisMin != nil && p.FundingSatoshis < *pol.FundingSatoshisMin {
		return &ErrFundingBelowMin{p.FundingSatoshis, *pol.FundingSatoshisMin}
	}
	if pol.ChannelReservePercent != nil {
		max := p.FundingSatoshis * btcutil.Amount(*pol.ChannelReservePercent) / 100
		if p.ChannelReserveSatoshis > max {
			return &ErrChannelReserveExceedsPercent{p.ChannelReserveSatoshis, p.FundingSatoshis, *pol.ChannelReservePercent}
		}
	}

	return nil
}

// ConfirmOutbound runs the common rules plus the two outbound-confirm-only
// rules against a peer's accept_channel response to
// our own open_channel proposal.
func ConfirmOutbound(accepter ProposedParams, opener ProposedParams, pol *Policy) error {
	if err := commonRules(accepter, pol); err != nil {
		return err
	}

	if pol.MaximumDepth != nil && accepter.MinimumDepth > *pol.MaximumDepth {
		return &ErrMinimumDepthExceedsMax{accepter.MinimumDepth, *pol.MaximumDepth}
	}
	if accepter.ChannelReserveSatoshis < opener.DustLimitSatoshis {
		return &ErrReserveBelowCounterpartyDust{"accepter", accepter.ChannelReserveSatoshis, opener.DustLimitSatoshis}
	}
	if opener.ChannelReserveSatoshis < accepter.DustLimitSatoshis {
		return &ErrReserveBelowCounterpartyDust{"opener", opener.ChannelReserveSatoshis, accepter.DustLimitSatoshis}
	}

	return nil
}
