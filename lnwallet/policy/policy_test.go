package policy

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"

	"github.com/lnp-go/lnpcore/lnwire"
)

// validProposal passes every rule of the default test policy.
func validProposal() ProposedParams {
	return ProposedParams{
		ToSelfDelay:              144,
		MaxAcceptedHtlcs:         30,
		DustLimitSatoshis:        546,
		ChannelReserveSatoshis:   10_000,
		HtlcMinimumMsat:          1,
		MaxHtlcValueInFlightMsat: 100_000_000,
		FeeratePerKw:             2500,
		FundingSatoshis:          1_000_000,
		MinimumDepth:             3,
	}
}

// strictPolicy enables every optional rule so each can be violated in
// isolation.
func strictPolicy() *Policy {
	htlcMinMax := lnwire.MilliSatoshi(1000)
	inFlightMin := lnwire.MilliSatoshi(10_000_000)
	reserveMax := btcutil.Amount(50_000)
	htlcsMin := uint16(5)
	dustMax := btcutil.Amount(3_000)
	fundingMin := btcutil.Amount(100_000)
	reservePercent := uint8(5)
	depthMax := uint32(6)

	return &Policy{
		ToSelfDelayMax:               2016,
		HtlcMinimumMsatMax:           &htlcMinMax,
		MaxHtlcValueInFlightMsatMin:  &inFlightMin,
		ChannelReserveSatoshisMaxAbs: &reserveMax,
		MaxAcceptedHtlcsMin:          &htlcsMin,
		DustLimitSatoshisMax:         &dustMax,
		FeeratePerKwRange:            FeerateRange{Min: 253, Max: 100_000},
		FundingSatoshisMin:           &fundingMin,
		ChannelReservePercent:        &reservePercent,
		MaximumDepth:                 &depthMax,
	}
}

// TestValidateInboundTotal drives every rule to its distinct error and
// confirms a clean proposal passes.
func TestValidateInboundTotal(t *testing.T) {
	t.Parallel()

	pol := strictPolicy()

	if err := ValidateInbound(validProposal(), pol); err != nil {
		t.Fatalf("valid proposal rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*ProposedParams)
		want   func(error) bool
	}{
		{"to_self_delay above max",
			func(p *ProposedParams) { p.ToSelfDelay = 2017 },
			func(err error) bool {
				_, ok := err.(*ErrToSelfDelayExceedsMax)
				return ok
			}},
		{"max_accepted_htlcs above 483",
			func(p *ProposedParams) { p.MaxAcceptedHtlcs = 484 },
			func(err error) bool {
				_, ok := err.(*ErrMaxAcceptedHtlcsTooLarge)
				return ok
			}},
		{"dust above reserve",
			func(p *ProposedParams) {
				p.DustLimitSatoshis = 2_500
				p.ChannelReserveSatoshis = 2_000
			},
			func(err error) bool {
				_, ok := err.(*ErrDustLimitExceedsReserve)
				return ok
			}},
		{"dust below floor",
			func(p *ProposedParams) { p.DustLimitSatoshis = 353 },
			func(err error) bool {
				_, ok := err.(*ErrDustLimitTooSmall)
				return ok
			}},
		{"htlc minimum above policy max",
			func(p *ProposedParams) { p.HtlcMinimumMsat = 1001 },
			func(err error) bool {
				_, ok := err.(*ErrHtlcMinimumExceedsMax)
				return ok
			}},
		{"in-flight max below policy min",
			func(p *ProposedParams) { p.MaxHtlcValueInFlightMsat = 9_999_999 },
			func(err error) bool {
				_, ok := err.(*ErrMaxHtlcValueInFlightBelowMin)
				return ok
			}},
		{"reserve above absolute max",
			func(p *ProposedParams) { p.ChannelReserveSatoshis = 50_001 },
			func(err error) bool {
				_, ok := err.(*ErrChannelReserveExceedsMaxAbs)
				return ok
			}},
		{"max_accepted_htlcs below policy min",
			func(p *ProposedParams) { p.MaxAcceptedHtlcs = 4 },
			func(err error) bool {
				_, ok := err.(*ErrMaxAcceptedHtlcsBelowMin)
				return ok
			}},
		{"dust above policy max",
			func(p *ProposedParams) {
				p.DustLimitSatoshis = 3_001
				p.ChannelReserveSatoshis = 10_000
			},
			func(err error) bool {
				_, ok := err.(*ErrDustLimitExceedsMax)
				return ok
			}},
		{"feerate below range",
			func(p *ProposedParams) { p.FeeratePerKw = 252 },
			func(err error) bool {
				_, ok := err.(*ErrFeerateOutOfRange)
				return ok
			}},
		{"feerate above range",
			func(p *ProposedParams) { p.FeeratePerKw = 100_001 },
			func(err error) bool {
				_, ok := err.(*ErrFeerateOutOfRange)
				return ok
			}},
		{"funding below min",
			func(p *ProposedParams) { p.FundingSatoshis = 99_999 },
			func(err error) bool {
				_, ok := err.(*ErrFundingBelowMin)
				return ok
			}},
		{"reserve above funding percentage",
			func(p *ProposedParams) {
				// 5% of 1,000,000 is 50,000; stay under the absolute
				// max while exceeding the percentage with a smaller
				// funding amount.
				p.FundingSatoshis = 200_000
				p.ChannelReserveSatoshis = 10_001
			},
			func(err error) bool {
				_, ok := err.(*ErrChannelReserveExceedsPercent)
				return ok
			}},
	}

	for _, test := range tests {
		p := validProposal()
		test.mutate(&p)

		err := ValidateInbound(p, pol)
		if err == nil {
			t.Fatalf("%s: violation not detected", test.name)
		}
		if !test.want(err) {
			t.Fatalf("%s: got %T (%v), want the rule's distinct error",
				test.name, err, err)
		}
	}
}

// TestConfirmOutbound drives the two accept-time-only rules.
func TestConfirmOutbound(t *testing.T) {
	t.Parallel()

	pol := strictPolicy()
	opener := validProposal()

	accepter := validProposal()
	if err := ConfirmOutbound(accepter, opener, pol); err != nil {
		t.Fatalf("valid accept rejected: %v", err)
	}

	deep := validProposal()
	deep.MinimumDepth = 7
	err := ConfirmOutbound(deep, opener, pol)
	if _, ok := err.(*ErrMinimumDepthExceedsMax); !ok {
		t.Fatalf("excess minimum_depth returned %v, want "+
			"ErrMinimumDepthExceedsMax", err)
	}

	// Accepter's reserve below the opener's dust limit.
	lowReserve := validProposal()
	lowReserve.ChannelReserveSatoshis = 500
	lowReserve.DustLimitSatoshis = 400
	err = ConfirmOutbound(lowReserve, opener, pol)
	if _, ok := err.(*ErrReserveBelowCounterpartyDust); !ok {
		t.Fatalf("reserve below opener dust returned %v, want "+
			"ErrReserveBelowCounterpartyDust", err)
	}

	// Opener's reserve below the accepter's dust limit.
	bigDust := validProposal()
	bigDust.DustLimitSatoshis = 2_999
	smallOpener := opener
	smallOpener.ChannelReserveSatoshis = 2_000
	err = ConfirmOutbound(bigDust, smallOpener, pol)
	if _, ok := err.(*ErrReserveBelowCounterpartyDust); !ok {
		t.Fatalf("opener reserve below accepter dust returned %v, want "+
			"ErrReserveBelowCounterpartyDust", err)
	}
}

// TestMessageExtraction checks the open_channel/accept_channel parameter
// mapping.
func TestMessageExtraction(t *testing.T) {
	t.Parallel()

	open := &lnwire.OpenChannel{
		FundingAmount:    1_000_000,
		DustLimit:        546,
		MaxValueInFlight: 100_000_000,
		ChannelReserve:   10_000,
		HtlcMinimum:      1,
		FeePerKiloWeight: 2500,
		CSVDelay:         144,
		MaxAcceptedHTLCs: 30,
	}
	p := FromOpenChannel(open)
	if p.FundingSatoshis != 1_000_000 || p.FeeratePerKw != 2500 ||
		p.ToSelfDelay != 144 {

		t.Fatalf("open_channel parameters mis-extracted: %+v", p)
	}

	accept := &lnwire.AcceptChannel{
		DustLimit:        546,
		MaxValueInFlight: 100_000_000,
		ChannelReserve:   10_000,
		HtlcMinimum:      1,
		MinAcceptDepth:   3,
		CSVDelay:         144,
		MaxAcceptedHTLCs: 30,
	}
	a := FromAcceptChannel(accept)
	if a.MinimumDepth != 3 || a.FeeratePerKw != 0 {
		t.Fatalf("accept_channel parameters mis-extracted: %+v", a)
	}
}
