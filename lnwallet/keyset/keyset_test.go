package keyset

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
)

func testPriv(fill byte) *btcec.PrivateKey {
	var raw [32]byte
	for i := range raw {
		raw[i] = fill
	}
	priv, _ := btcec.PrivKeyFromBytes(raw[:])
	return priv
}

// TestTweakConsistency checks that the public single-tweak agrees with its
// private-key counterpart for payment and delayed-payment keys.
func TestTweakConsistency(t *testing.T) {
	t.Parallel()

	basePriv := testPriv(0x10)
	commitSecret := testPriv(0x20)
	commitPoint := commitSecret.PubKey()

	tweakedPub := TweakPubKey(basePriv.PubKey(), commitPoint)
	tweakedPriv := TweakPrivKey(basePriv, commitPoint)

	if !tweakedPriv.PubKey().IsEqual(tweakedPub) {
		t.Fatalf("private tweak disagrees with public tweak")
	}

	// The tweak must actually move the key.
	if tweakedPub.IsEqual(basePriv.PubKey()) {
		t.Fatalf("tweak left the basepoint unchanged")
	}
}

// TestRevocationConsistency checks the double-tweak revocation derivation
// against its private counterpart, which is only computable once both
// secrets are known.
func TestRevocationConsistency(t *testing.T) {
	t.Parallel()

	revocationBasePriv := testPriv(0x30)
	commitSecret := testPriv(0x40)

	pub := DeriveRevocationPubkey(revocationBasePriv.PubKey(),
		commitSecret.PubKey())
	priv := DeriveRevocationPrivKey(revocationBasePriv, commitSecret)

	if !priv.PubKey().IsEqual(pub) {
		t.Fatalf("revocation private key disagrees with revocation pubkey")
	}
}

func testKeysets() (*LocalKeySet, *RemoteKeySet) {
	local := &LocalKeySet{
		FundingKey:           testPriv(0x01).PubKey(),
		RevocationBase:       testPriv(0x02).PubKey(),
		PaymentBase:          testPriv(0x03).PubKey(),
		DelayBase:            testPriv(0x04).PubKey(),
		HtlcBase:             testPriv(0x05).PubKey(),
		FirstCommitmentPoint: testPriv(0x06).PubKey(),
	}
	remote := &RemoteKeySet{
		FundingKey:                testPriv(0x11).PubKey(),
		RevocationBase:            testPriv(0x12).PubKey(),
		PaymentBase:               testPriv(0x13).PubKey(),
		DelayBase:                 testPriv(0x14).PubKey(),
		HtlcBase:                  testPriv(0x15).PubKey(),
		CurrentPerCommitmentPoint: testPriv(0x16).PubKey(),
	}
	return local, remote
}

// TestDeriveCommitmentKeysSwapsSides checks that as_remote_node swaps which
// side's basepoints are tweaked.
func TestDeriveCommitmentKeysSwapsSides(t *testing.T) {
	t.Parallel()

	local, remote := testKeysets()
	commitPoint := testPriv(0x66).PubKey()

	ours := DeriveCommitmentKeys(commitPoint, local, remote, false)
	theirs := DeriveCommitmentKeys(commitPoint, local, remote, true)

	if ours.ToLocalKey.IsEqual(theirs.ToLocalKey) {
		t.Fatalf("to-local key identical across sides")
	}
	if ours.RevocationKey.IsEqual(theirs.RevocationKey) {
		t.Fatalf("revocation key identical across sides")
	}

	// The owner's delayed key on our commitment must come from our delay
	// basepoint.
	if !ours.ToLocalKey.IsEqual(TweakPubKey(local.DelayBase, commitPoint)) {
		t.Fatalf("our to-local key not derived from the local delay " +
			"basepoint")
	}
	if !theirs.ToLocalKey.IsEqual(TweakPubKey(remote.DelayBase, commitPoint)) {
		t.Fatalf("their to-local key not derived from the remote delay " +
			"basepoint")
	}

	// HTLC keys: each side's own key on one commitment is the
	// counterparty key on the other.
	if !ours.HtlcKey.IsEqual(theirs.CounterpartyHtlcKey) {
		t.Fatalf("htlc keys do not mirror across sides")
	}
}

// TestStaticRemoteKey checks that the static_remotekey flag replaces the
// to-remote tweak with the bare payment basepoint.
func TestStaticRemoteKey(t *testing.T) {
	t.Parallel()

	local, remote := testKeysets()
	commitPoint := testPriv(0x66).PubKey()

	tweaked := DeriveCommitmentKeys(commitPoint, local, remote, false)
	if tweaked.ToRemoteKey.IsEqual(remote.PaymentBase) {
		t.Fatalf("without static_remotekey the to-remote key must be " +
			"tweaked")
	}

	local.StaticRemoteKey = true
	static := DeriveCommitmentKeys(commitPoint, local, remote, false)
	if !static.ToRemoteKey.IsEqual(remote.PaymentBase) {
		t.Fatalf("static_remotekey must pin the to-remote key to the " +
			"payment basepoint")
	}
}
