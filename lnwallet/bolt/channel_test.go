package bolt

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/davecgh/go-spew/spew"

	"github.com/lnp-go/lnpcore/lnwallet/extension"
	"github.com/lnp-go/lnpcore/lnwallet/funding"
	"github.com/lnp-go/lnpcore/lnwallet/keyset"
	"github.com/lnp-go/lnpcore/lnwallet/policy"
	"github.com/lnp-go/lnpcore/lnwallet/txgraph"
	"github.com/lnp-go/lnpcore/lnwire"
)

func pubKeyFromHex(t *testing.T, s string) *btcec.PublicKey {
	t.Helper()

	raw, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad pubkey hex: %v", err)
	}
	pk, err := btcec.ParsePubKey(raw)
	if err != nil {
		t.Fatalf("bad pubkey: %v", err)
	}
	return pk
}

func testPriv(fill byte) *btcec.PrivateKey {
	var raw [32]byte
	for i := range raw {
		raw[i] = fill
	}
	priv, _ := btcec.PrivKeyFromBytes(raw[:])
	return priv
}

func testLocalKeys(seed byte) *keyset.LocalKeySet {
	return &keyset.LocalKeySet{
		FundingKey:           testPriv(seed).PubKey(),
		RevocationBase:       testPriv(seed + 1).PubKey(),
		PaymentBase:          testPriv(seed + 2).PubKey(),
		DelayBase:            testPriv(seed + 3).PubKey(),
		HtlcBase:             testPriv(seed + 4).PubKey(),
		FirstCommitmentPoint: testPriv(seed + 5).PubKey(),
	}
}

var testTempID = lnwire.TempChannelID{0xaa, 0xbb}

// TestObscuringFactor pins the 48-bit obscuring factor to its reference
// value and checks it ignores channel direction.
func TestObscuringFactor(t *testing.T) {
	t.Parallel()

	opener := pubKeyFromHex(t, "034f355bdcb7cc0af728ef3cceb9615d90684bb5"+
		"b2ca5f859ab0f0b704075871aa")
	accepter := pubKeyFromHex(t, "032c0b7cf95324a07d05398b240174dc0c2be444"+
		"d96b159aa6c7f7b1e668680991")

	const factor = uint64(0x2bb038521914)

	outbound := New(testTempID, chainhash.Hash{})
	outbound.direction = Outbound
	outbound.localKeys.PaymentBase = opener
	outbound.remoteKeys.PaymentBase = accepter
	outbound.commitmentNumber = 42

	if got := outbound.ObscuredCommitmentNumber(); got != factor^42 {
		t.Fatalf("outbound obscured number %012x, want %012x", got,
			factor^42)
	}

	// The same channel seen from the accepter's side: opener's basepoint
	// is now the remote one, yet the factor must not change.
	inbound := New(testTempID, chainhash.Hash{})
	inbound.direction = Inbound
	inbound.localKeys.PaymentBase = accepter
	inbound.remoteKeys.PaymentBase = opener
	inbound.commitmentNumber = 42

	if got := inbound.ObscuredCommitmentNumber(); got != factor^42 {
		t.Fatalf("inbound obscured number %012x, want %012x", got,
			factor^42)
	}
}

// TestFundingWitnessScript pins the 2-of-2 funding script to its reference
// bytes, including the lexicographic key ordering.
func TestFundingWitnessScript(t *testing.T) {
	t.Parallel()

	local := pubKeyFromHex(t, "023da092f6980e58d2c037173180e9a465476026ee"+
		"50f96695963e8efe436f54eb")
	remote := pubKeyFromHex(t, "030e9f7b623d2ccc7c9bd44d66d5ce21ce504c0acf"+
		"6385a132cec6d3c39fa711c1")

	want := "5221023da092f6980e58d2c037173180e9a465476026ee50f96695963e8" +
		"efe436f54eb21030e9f7b623d2ccc7c9bd44d66d5ce21ce504c0acf6385a132" +
		"cec6d3c39fa711c152ae"

	script, err := FundingWitnessScript(local, remote)
	if err != nil {
		t.Fatalf("unable to build funding script: %v", err)
	}
	if hex.EncodeToString(script) != want {
		t.Fatalf("funding script %x, want %s", script, want)
	}

	// Key order must not depend on which side is local.
	swapped, err := FundingWitnessScript(remote, local)
	if err != nil {
		t.Fatalf("unable to build swapped funding script: %v", err)
	}
	if !bytes.Equal(script, swapped) {
		t.Fatalf("funding script depends on argument order")
	}
}

func validOpenChannel(keys *keyset.LocalKeySet) *lnwire.OpenChannel {
	return &lnwire.OpenChannel{
		PendingChannelID:     testTempID,
		FundingAmount:        10_000_000,
		PushAmount:           1_000_000,
		DustLimit:            546,
		MaxValueInFlight:     5_000_000_000,
		ChannelReserve:       100_000,
		HtlcMinimum:          1,
		FeePerKiloWeight:     2500,
		CSVDelay:             144,
		MaxAcceptedHTLCs:     30,
		FundingKey:           keys.FundingKey,
		RevocationPoint:      keys.RevocationBase,
		PaymentPoint:         keys.PaymentBase,
		DelayedPaymentPoint:  keys.DelayBase,
		HtlcPoint:            keys.HtlcBase,
		FirstCommitmentPoint: keys.FirstCommitmentPoint,
	}
}

func validAcceptChannel(keys *keyset.LocalKeySet) *lnwire.AcceptChannel {
	return &lnwire.AcceptChannel{
		PendingChannelID:     testTempID,
		DustLimit:            546,
		MaxValueInFlight:     5_000_000_000,
		ChannelReserve:       100_000,
		HtlcMinimum:          1,
		MinAcceptDepth:       3,
		CSVDelay:             144,
		MaxAcceptedHTLCs:     30,
		FundingKey:           keys.FundingKey,
		RevocationPoint:      keys.RevocationBase,
		PaymentPoint:         keys.PaymentBase,
		DelayedPaymentPoint:  keys.DelayBase,
		HtlcPoint:            keys.HtlcBase,
		FirstCommitmentPoint: keys.FirstCommitmentPoint,
	}
}

// TestLifecycleTrace drives the canonical funding trace and checks the
// exact stage sequence.
func TestLifecycleTrace(t *testing.T) {
	t.Parallel()

	c := New(testTempID, chainhash.Hash{})
	remoteKeys := testLocalKeys(0x40)

	if c.Stage() != LifecycleInitial {
		t.Fatalf("fresh channel in stage %v, want INIT", c.Stage())
	}

	steps := []struct {
		msg  lnwire.Message
		want Lifecycle
	}{
		{validOpenChannel(remoteKeys), LifecycleProposed},
		{validAcceptChannel(remoteKeys), LifecycleAccepted},
		{&lnwire.FundingCreated{
			PendingChannelID:   testTempID,
			FundingTxID:        chainhash.Hash{0x01},
			FundingOutputIndex: 0,
		}, LifecycleFunding},
		{nil, LifecycleFunded}, // funding_signed filled in below
		{nil, LifecycleLocked}, // funding_locked filled in below
	}

	for i, step := range steps {
		msg := step.msg
		switch step.want {
		case LifecycleFunded:
			msg = &lnwire.FundingSigned{ChanID: c.ChanID()}
		case LifecycleLocked:
			msg = &lnwire.FundingLocked{
				ChanID:                 c.ChanID(),
				NextPerCommitmentPoint: testPriv(0x77).PubKey(),
			}
		}

		if err := c.UpdateFromPeer(msg); err != nil {
			t.Fatalf("step %d rejected: %v", i, err)
		}
		if c.Stage() != step.want {
			t.Fatalf("step %d left stage %v, want %v", i, c.Stage(),
				step.want)
		}
	}

	if _, err := c.TryChanID(); err != nil {
		t.Fatalf("funded channel has no permanent id: %v", err)
	}

	// The push amount lands on the accepter's local side.
	if c.LocalAmount() != 1_000_000 {
		t.Fatalf("local balance %d, want the 1000000 msat push",
			c.LocalAmount())
	}
	if c.LocalAmount()+c.RemoteAmount() != 10_000_000*1000 {
		t.Fatalf("balances do not sum to the funded amount")
	}
}

// TestLifecycleMismatch checks out-of-order messages are rejected and
// leave the stage untouched.
func TestLifecycleMismatch(t *testing.T) {
	t.Parallel()

	c := New(testTempID, chainhash.Hash{})

	err := c.UpdateFromPeer(&lnwire.FundingSigned{})
	if _, ok := err.(*ErrLifecycleMismatch); !ok {
		t.Fatalf("early funding_signed returned %v, want "+
			"ErrLifecycleMismatch", err)
	}
	if c.Stage() != LifecycleInitial {
		t.Fatalf("failed transition moved the stage to %v", c.Stage())
	}

	// A second open_channel must not restart a live negotiation.
	remoteKeys := testLocalKeys(0x40)
	if err := c.UpdateFromPeer(validOpenChannel(remoteKeys)); err != nil {
		t.Fatalf("open_channel rejected: %v", err)
	}
	err = c.UpdateFromPeer(validOpenChannel(remoteKeys))
	if _, ok := err.(*ErrLifecycleMismatch); !ok {
		t.Fatalf("duplicate open_channel returned %v, want "+
			"ErrLifecycleMismatch", err)
	}
}

// TestPolicyRejectionLeavesState checks that a policy violation surfaces
// unchanged and aborts the transition.
func TestPolicyRejectionLeavesState(t *testing.T) {
	t.Parallel()

	c := New(testTempID, chainhash.Hash{})

	open := validOpenChannel(testLocalKeys(0x40))
	open.CSVDelay = 10_000

	err := c.UpdateFromPeer(open)
	if _, ok := err.(*policy.ErrToSelfDelayExceedsMax); !ok {
		t.Fatalf("excessive to_self_delay returned %v, want the policy "+
			"error unchanged", err)
	}
	if c.Stage() != LifecycleInitial {
		t.Fatalf("rejected open_channel moved the stage to %v", c.Stage())
	}
}

// TestComposeOpenChannel checks stage gating and message population.
func TestComposeOpenChannel(t *testing.T) {
	t.Parallel()

	c := New(testTempID, chainhash.Hash{0x43})
	localKeys := testLocalKeys(0x20)

	msg, err := c.ComposeOpenChannel(10_000_000, 0, policy.Default(),
		DefaultCommonParams(), DefaultPeerParams(), localKeys)
	if err != nil {
		t.Fatalf("unable to compose open_channel: %v", err)
	}

	if msg.PendingChannelID != testTempID {
		t.Fatalf("open_channel carries wrong temporary id")
	}
	if msg.FundingAmount != 10_000_000 {
		t.Fatalf("open_channel carries wrong funding amount")
	}
	if c.Direction() != Outbound {
		t.Fatalf("composing open_channel must mark the channel outbound")
	}
	if c.LocalAmount() != 10_000_000*1000 {
		t.Fatalf("opener's local balance %d, want the full funding",
			c.LocalAmount())
	}

	// Composing twice is a lifecycle violation.
	_, err = c.ComposeOpenChannel(10_000_000, 0, policy.Default(),
		DefaultCommonParams(), DefaultPeerParams(), localKeys)
	if _, ok := err.(*ErrLifecycleMismatch); !ok {
		t.Fatalf("second compose returned %v, want ErrLifecycleMismatch",
			err)
	}
}

// TestComposeReestablish checks the id preconditions.
func TestComposeReestablish(t *testing.T) {
	t.Parallel()

	c := New(testTempID, chainhash.Hash{})

	_, err := c.ComposeReestablishChannel(&lnwire.ChannelReestablish{})
	re, ok := err.(*ReestablishError)
	if !ok || !re.NoPermanentID {
		t.Fatalf("reestablish before funding returned %v, want "+
			"NoPermanentID", err)
	}

	cid := lnwire.ChannelID{0x05}
	c.activeChanID.AssignPermanentID(cid)

	_, err = c.ComposeReestablishChannel(&lnwire.ChannelReestablish{
		ChanID: lnwire.ChannelID{0x06},
	})
	re, ok = err.(*ReestablishError)
	if !ok || re.Mismatch == nil {
		t.Fatalf("mismatched reestablish returned %v, want "+
			"ChannelIdMismatch", err)
	}

	reply, err := c.ComposeReestablishChannel(&lnwire.ChannelReestablish{
		ChanID:                cid,
		NextLocalCommitHeight: 2,
	})
	if err != nil {
		t.Fatalf("valid reestablish rejected: %v", err)
	}
	if reply.ChanID != cid {
		t.Fatalf("reestablish reply names the wrong channel")
	}
	if c.Stage() != LifecycleReestablishing {
		t.Fatalf("reestablish left stage %v", c.Stage())
	}
}

// TestBuildGraphSkeleton checks the obscured locktime/sequence stamping,
// the fee charge, and the base output scripts.
func TestBuildGraphSkeleton(t *testing.T) {
	t.Parallel()

	c := New(testTempID, chainhash.Hash{})
	localKeys := testLocalKeys(0x20)

	_, err := c.ComposeOpenChannel(10_000_000, 3_000_000_000,
		policy.Default(), CommonParams{MinimumDepth: 3, FeeratePerKw: 15_000},
		DefaultPeerParams(), localKeys)
	if err != nil {
		t.Fatalf("unable to compose open_channel: %v", err)
	}
	if err := c.UpdateFromPeer(validAcceptChannel(testLocalKeys(0x40))); err != nil {
		t.Fatalf("accept_channel rejected: %v", err)
	}

	g := txgraph.New(funding.Preliminary(10_000_000))
	if err := c.BuildGraph(g, false); err != nil {
		t.Fatalf("unable to build graph: %v", err)
	}

	obscured := c.ObscuredCommitmentNumber()
	if g.LockTime != 0x20000000|uint32(obscured&0xFFFFFF) {
		t.Fatalf("locktime %08x does not embed the obscured number",
			g.LockTime)
	}
	if g.Sequence != 0x80000000|uint32(obscured>>24) {
		t.Fatalf("sequence %08x does not embed the obscured number",
			g.Sequence)
	}
	if g.Version != 2 {
		t.Fatalf("commitment version %d, want 2", g.Version)
	}

	if len(g.CmtOuts) != 2 {
		t.Fatalf("commitment has %d outputs, want to-local and to-remote",
			len(g.CmtOuts))
	}

	// The opener pays 724*15000/1000 = 10860 sat out of its 7,000,000 sat
	// side.
	if got := g.CmtOuts[0].TxOut.Value; got != 7_000_000-10_860 {
		t.Fatalf("to-local value %d, want fee-charged 6989140", got)
	}
	if got := g.CmtOuts[1].TxOut.Value; got != 3_000_000 {
		t.Fatalf("to-remote value %d, want untouched 3000000", got)
	}

	// to-local is P2WSH, legacy to-remote is P2WPKH.
	if len(g.CmtOuts[0].TxOut.PkScript) != 34 || g.CmtOuts[0].WitnessScript == nil {
		t.Fatalf("to-local output is not a P2WSH with witness metadata")
	}
	if len(g.CmtOuts[1].TxOut.PkScript) != 22 || g.CmtOuts[1].WitnessScript != nil {
		t.Fatalf("legacy to-remote output is not a bare P2WPKH")
	}
}

// TestStateRoundTrip checks that the canonical state slice restores an
// observationally equivalent constructor.
func TestStateRoundTrip(t *testing.T) {
	t.Parallel()

	c := New(testTempID, chainhash.Hash{0x11})
	localKeys := testLocalKeys(0x20)

	_, err := c.ComposeOpenChannel(10_000_000, 1_000, policy.Default(),
		DefaultCommonParams(), DefaultPeerParams(), localKeys)
	if err != nil {
		t.Fatalf("unable to compose open_channel: %v", err)
	}
	if err := c.UpdateFromPeer(validAcceptChannel(testLocalKeys(0x40))); err != nil {
		t.Fatalf("accept_channel rejected: %v", err)
	}
	c.commitmentNumber = 7

	state := make(extension.State)
	if err := c.StoreState(state); err != nil {
		t.Fatalf("unable to store state: %v", err)
	}

	restored := New(lnwire.TempChannelID{}, chainhash.Hash{})
	if err := restored.LoadState(state); err != nil {
		t.Fatalf("unable to load state: %v", err)
	}

	if restored.Stage() != c.Stage() ||
		restored.ChanID() != c.ChanID() ||
		restored.LocalAmount() != c.LocalAmount() ||
		restored.RemoteAmount() != c.RemoteAmount() ||
		restored.CommitmentNumber() != c.CommitmentNumber() ||
		restored.Direction() != c.Direction() {

		t.Fatalf("restored constructor differs from the original: %v vs %v",
			spew.Sdump(restored.CommonParams()), spew.Sdump(c.CommonParams()))
	}

	if restored.ObscuredCommitmentNumber() != c.ObscuredCommitmentNumber() {
		t.Fatalf("restored keys yield a different obscuring factor")
	}

	// Re-serializing must be byte identical.
	again := make(extension.State)
	if err := restored.StoreState(again); err != nil {
		t.Fatalf("unable to re-store state: %v", err)
	}
	if !bytes.Equal(state[extension.IdentityConstructor],
		again[extension.IdentityConstructor]) {

		t.Fatalf("state serialization is not stable")
	}
}
