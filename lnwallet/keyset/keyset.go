// Package keyset derives the per-commitment keys used in a channel's
// commitment and HTLC scripts from a set of static basepoints and the
// current per-commitment point, following the tweaking scheme in BOLT 3.
package keyset

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcec/v2"
)

// DerivationPath names the hardened BIP-32 index a basepoint is derived
// from within a channel-scoped extended private key, per the fixed
// convention: funding, revocation, payment, delayed-payment, htlc
// basepoints occupy indices 0..3, and the first per-commitment point
// occupies index 4.
type DerivationPath uint32

const (
	FundingKeyPath      DerivationPath = 0
	RevocationBasePath  DerivationPath = 1
	PaymentBasePath     DerivationPath = 2
	DelayBasePath       DerivationPath = 3
	HtlcBasePath        DerivationPath = 4
	FirstCommitmentPath DerivationPath = 4
)

// LocalKeySet holds every basepoint the local side of a channel needs, plus
// the bookkeeping to roll the per-commitment point and (optionally) retain
// its secret.
type LocalKeySet struct {
	FundingKey     *btcec.PublicKey
	RevocationBase *btcec.PublicKey
	PaymentBase    *btcec.PublicKey
	DelayBase      *btcec.PublicKey
	HtlcBase       *btcec.PublicKey

	// FirstCommitmentPoint is the per-commitment point used for the very
	// first commitment (commitment number 0).
	FirstCommitmentPoint *btcec.PublicKey

	// CommitmentSecret is the local node's first per-commitment secret.
	// The core only stores an optional value and never inspects it
	// beyond passing it to an external signer.
	CommitmentSecret *btcec.PrivateKey

	// UpfrontShutdownScript is optional.
	UpfrontShutdownScript []byte

	// StaticRemoteKey mirrors the channel type's static_remotekey bit:
	// when set, the counterparty's to-remote output pays directly to
	// PaymentBase with no per-commitment tweak.
	StaticRemoteKey bool
}

// RemoteKeySet holds the basepoints received from the counterparty in
// open_channel/accept_channel. It carries no derivation sources or secrets,
// since the local node never needs to sign with these keys.
type RemoteKeySet struct {
	FundingKey     *btcec.PublicKey
	RevocationBase *btcec.PublicKey
	PaymentBase    *btcec.PublicKey
	DelayBase      *btcec.PublicKey
	HtlcBase       *btcec.PublicKey

	CurrentPerCommitmentPoint *btcec.PublicKey
}

// tweakHash computes SHA256(point || base), the scalar used to tweak a
// basepoint by a per-commitment point.
func tweakHash(point, base *btcec.PublicKey) *btcec.ModNScalar {
	h := sha256.New()
	h.Write(point.SerializeCompressed())
	h.Write(base.SerializeCompressed())
	sum := h.Sum(nil)

	var scalar btcec.ModNScalar
	scalar.SetByteSlice(sum)
	return &scalar
}

// TweakPubKey computes base + SHA256(point || base)*G, the single-tweak
// formula shared by the payment and delayed-payment keys.
func TweakPubKey(base, point *btcec.PublicKey) *btcec.PublicKey {
	scalar := tweakHash(point, base)

	var tweak, result btcec.JacobianPoint
	btcec.ScalarBaseMultNonConst(scalar, &tweak)

	var baseJ btcec.JacobianPoint
	base.AsJacobian(&baseJ)

	btcec.AddNonConst(&baseJ, &tweak, &result)
	result.ToAffine()

	return btcec.NewPublicKey(&result.X, &result.Y)
}

// TweakPrivKey computes priv + SHA256(point || base) mod N, the private-key
// counterpart of TweakPubKey, where base is priv's public key.
func TweakPrivKey(priv *btcec.PrivateKey, point *btcec.PublicKey) *btcec.PrivateKey {
	scalar := tweakHash(point, priv.PubKey())

	var result btcec.ModNScalar
	result.Set(&priv.Key)
	result.Add(scalar)

	return btcec.PrivKeyFromScalar(&result)
}

// DeriveRevocationPubkey computes the double-tweaked combination
// revocationBase*SHA256(revocationBase||point) + point*SHA256(point||revocationBase),
// the BOLT-3 revocation pubkey.
func DeriveRevocationPubkey(revocationBase, point *btcec.PublicKey) *btcec.PublicKey {
	baseScalar := revocationHash(revocationBase, point)
	pointScalar := revocationHash(point, revocationBase)

	var baseJ, pointJ, baseTerm, pointTerm, sum btcec.JacobianPoint
	revocationBase.AsJacobian(&baseJ)
	point.AsJacobian(&pointJ)

	btcec.ScalarMultNonConst(baseScalar, &baseJ, &baseTerm)
	btcec.ScalarMultNonConst(pointScalar, &pointJ, &pointTerm)
	btcec.AddNonConst(&baseTerm, &pointTerm, &sum)
	sum.ToAffine()

	return btcec.NewPublicKey(&sum.X, &sum.Y)
}

// DeriveRevocationPrivKey computes the private-key counterpart of
// DeriveRevocationPubkey, usable once both the revocation basepoint secret
// and the per-commitment secret are known (i.e. after the counterparty has
// revoked the commitment in question).
func DeriveRevocationPrivKey(revocationBasePriv *btcec.PrivateKey,
	commitmentSecret *btcec.PrivateKey) *btcec.PrivateKey {

	revocationBase := revocationBasePriv.PubKey()
	commitmentPoint := commitmentSecret.PubKey()

	baseScalar := revocationHash(revocationBase, commitmentPoint)
	pointScalar := revocationHash(commitmentPoint, revocationBase)

	var a, b btcec.ModNScalar
	a.Set(&revocationBasePriv.Key)
	a.Mul(baseScalar)

	b.Set(&commitmentSecret.Key)
	b.Mul(pointScalar)

	a.Add(&b)

	return btcec.PrivKeyFromScalar(&a)
}

// revocationHash computes SHA256(a || b) as a curve scalar, matching the
// ordering the double-tweak formula evaluates each term with.
func revocationHash(a, b *btcec.PublicKey) *btcec.ModNScalar {
	h := sha256.New()
	h.Write(a.SerializeCompressed())
	h.Write(b.SerializeCompressed())
	sum := h.Sum(nil)

	var scalar btcec.ModNScalar
	scalar.SetByteSlice(sum)
	return &scalar
}

// CommitmentKeys is the fully-derived set of per-commitment keys needed to
// build one side's version of a commitment transaction.
type CommitmentKeys struct {
	// ToLocalKey is the delayed-payment key guarding the to-local output,
	// revocable via RevocationKey.
	ToLocalKey *btcec.PublicKey

	// ToRemoteKey is the key paying the counterparty, either tweaked by
	// the per-commitment point or, under static_remotekey, the bare
	// payment basepoint.
	ToRemoteKey *btcec.PublicKey

	// RevocationKey is the key that lets the counterparty sweep this
	// commitment immediately if it is ever broadcast after revocation.
	RevocationKey *btcec.PublicKey

	// HtlcKey is the key used in HTLC scripts belonging to this side of
	// the commitment.
	HtlcKey *btcec.PublicKey

	// CounterpartyHtlcKey is the other side's HTLC key under the same
	// per-commitment point; HTLC scripts always reference both.
	CounterpartyHtlcKey *btcec.PublicKey
}

// DeriveCommitmentKeys tweaks local and remote basepoints by commitPoint to
// produce the keys needed to build one side's commitment. asRemoteNode
// mirrors build_graph's as_remote_node flag: when false, the local node's
// commitment is being constructed and the local basepoints take the owner
// role; when true, the counterparty's commitment is being constructed and
// the remote basepoints take the owner role.
func DeriveCommitmentKeys(commitPoint *btcec.PublicKey, local *LocalKeySet,
	remote *RemoteKeySet, asRemoteNode bool) *CommitmentKeys {

	// The "owner" of the commitment (the side whose to-local output this
	// is) tweaks its delayed-payment and revocation basepoints; the
	// other side's payment basepoint is tweaked for its to-remote
	// output, unless static_remotekey replaces that tweak with the bare
	// basepoint.
	ownerDelayBase := local.DelayBase
	ownerRevocationBase := local.RevocationBase
	counterpartyPaymentBase := remote.PaymentBase
	ownerHtlcBase := local.HtlcBase
	counterpartyHtlcBase := remote.HtlcBase

	if asRemoteNode {
		ownerDelayBase = remote.DelayBase
		ownerRevocationBase = remote.RevocationBase
		counterpartyPaymentBase = local.PaymentBase
		ownerHtlcBase = remote.HtlcBase
		counterpartyHtlcBase = local.HtlcBase
	}

	keys := &CommitmentKeys{
		ToLocalKey:          TweakPubKey(ownerDelayBase, commitPoint),
		RevocationKey:       DeriveRevocationPubkey(ownerRevocationBase, commitPoint),
		HtlcKey:             TweakPubKey(ownerHtlcBase, commitPoint),
		CounterpartyHtlcKey: TweakPubKey(counterpartyHtlcBase, commitPoint),
	}

	if local.StaticRemoteKey {
		keys.ToRemoteKey = counterpartyPaymentBase
	} else {
		keys.ToRemoteKey = TweakPubKey(counterpartyPaymentBase, commitPoint)
	}

	return keys
}
