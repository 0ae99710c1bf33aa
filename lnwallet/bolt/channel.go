// Package bolt implements the constructor extension at the heart of a
// BOLT-2 payment channel: the lifecycle state machine driven by the
// open_channel/accept_channel/funding/commitment message exchange, and the
// commitment-transaction skeleton it renders into the channel's
// transaction graph.
package bolt

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	sphinx "github.com/lightningnetwork/lightning-onion"

	"github.com/lnp-go/lnpcore/lnwallet/extension"
	"github.com/lnp-go/lnpcore/lnwallet/funding"
	"github.com/lnp-go/lnpcore/lnwallet/keyset"
	"github.com/lnp-go/lnpcore/lnwallet/policy"
	"github.com/lnp-go/lnpcore/lnwallet/txgraph"
	"github.com/lnp-go/lnpcore/lnwire"
)

// CommitWeight is the weight of a commitment transaction with both base
// outputs and no HTLCs; the commitment fee is CommitWeight*feerate/1000.
const CommitWeight = 724

// Hop is one edge of a payment route handed to ComposeAddUpdateHtlc; the
// Sphinx layer turns the ordered list of hops into the onion blob carried
// by update_add_htlc.
type Hop struct {
	// NodePub identifies the hop's node.
	NodePub *btcec.PublicKey

	// ChannelID names the outgoing channel the hop should forward over.
	ChannelID lnwire.ShortChannelID

	// AmountToForward is the amount the hop should forward downstream.
	AmountToForward lnwire.MilliSatoshi

	// OutgoingCltv is the expiry the hop should use on its outgoing HTLC.
	OutgoingCltv uint32
}

// PayBolt is the state-change request dispatched through the extension
// pipeline while an update_add_htlc message is being composed; the HTLC
// extension answers it by allocating the next offered id into the message.
type PayBolt struct {
	Route []Hop
}

// Channel is the BOLT channel constructor: the first extension of every
// channel pipeline, owning the negotiation state machine and the base
// commitment transaction.
type Channel struct {
	stage        Lifecycle
	closingRound int

	chainHash    chainhash.Hash
	activeChanID lnwire.ActiveChannelID

	localAmount  lnwire.MilliSatoshi
	remoteAmount lnwire.MilliSatoshi

	// commitmentNumber only grows; it obscures into the commitment
	// locktime and sequence.
	commitmentNumber uint64
	commitmentSigs   []lnwire.Sig

	policy       *policy.Policy
	commonParams CommonParams
	localParams  PeerParams
	remoteParams PeerParams

	localKeys  *keyset.LocalKeySet
	remoteKeys *keyset.RemoteKeySet

	localPerCommitPoint  *btcec.PublicKey
	remotePerCommitPoint *btcec.PublicKey

	direction Direction
}

// New returns a channel in the Initial stage, identified by tempID until a
// funding transaction exists.
func New(tempID lnwire.TempChannelID, chainHash chainhash.Hash) *Channel {
	return &Channel{
		stage:        LifecycleInitial,
		chainHash:    chainHash,
		activeChanID: lnwire.NewActiveChannelIDFromTemp(tempID),
		policy:       policy.Default(),
		commonParams: DefaultCommonParams(),
		localParams:  DefaultPeerParams(),
		remoteParams: DefaultPeerParams(),
		localKeys:    &keyset.LocalKeySet{},
		remoteKeys:   &keyset.RemoteKeySet{},
	}
}

var _ extension.Extension = (*Channel)(nil)
var _ extension.PeerUpdater = (*Channel)(nil)
var _ extension.StateChanger = (*Channel)(nil)
var _ extension.GraphBuilder = (*Channel)(nil)

// Identity implements extension.Extension: the constructor always
// dispatches first.
func (c *Channel) Identity() extension.Identity {
	return extension.IdentityConstructor
}

// Stage returns the channel's current lifecycle stage.
func (c *Channel) Stage() Lifecycle {
	return c.stage
}

// ClosingRound returns the closing_signed fee-negotiation round, valid
// while the stage is LifecycleClosing.
func (c *Channel) ClosingRound() int {
	return c.closingRound
}

// Direction reports which side opened the channel.
func (c *Channel) Direction() Direction {
	return c.direction
}

// ChainHash returns the hash of the chain the channel lives on.
func (c *Channel) ChainHash() chainhash.Hash {
	return c.chainHash
}

// ChanID returns the id currently used on the wire for this channel.
func (c *Channel) ChanID() lnwire.ChannelID {
	return c.activeChanID.ChanID()
}

// TryChanID returns the permanent channel id, or ErrNoChannelID before the
// funding transaction has defined one.
func (c *Channel) TryChanID() (lnwire.ChannelID, error) {
	if !c.activeChanID.HasPermanentID() {
		return lnwire.ChannelID{}, ErrNoChannelID
	}
	return c.activeChanID.ChanID(), nil
}

// LocalAmount returns the local side's balance in millisatoshis.
func (c *Channel) LocalAmount() lnwire.MilliSatoshi {
	return c.localAmount
}

// RemoteAmount returns the remote side's balance in millisatoshis.
func (c *Channel) RemoteAmount() lnwire.MilliSatoshi {
	return c.remoteAmount
}

// CommitmentNumber returns the current 48-bit commitment number.
func (c *Channel) CommitmentNumber() uint64 {
	return c.commitmentNumber
}

// CommonParams returns the parameters shared by both peers.
func (c *Channel) CommonParams() CommonParams {
	return c.commonParams
}

// LocalParams returns the parameters the local node requires of its peer.
func (c *Channel) LocalParams() PeerParams {
	return c.localParams
}

// RemoteParams returns the parameters the remote node requires of us.
func (c *Channel) RemoteParams() PeerParams {
	return c.remoteParams
}

// LocalKeys returns the locally derived channel keyset.
func (c *Channel) LocalKeys() *keyset.LocalKeySet {
	return c.localKeys
}

// RemoteKeys returns the keyset received from the counterparty.
func (c *Channel) RemoteKeys() *keyset.RemoteKeySet {
	return c.remoteKeys
}

// LocalFundingKey returns the local funding public key.
func (c *Channel) LocalFundingKey() *btcec.PublicKey {
	return c.localKeys.FundingKey
}

// RemoteFundingKey returns the counterparty's funding public key.
func (c *Channel) RemoteFundingKey() *btcec.PublicKey {
	return c.remoteKeys.FundingKey
}

// SetChainHash pins the channel to a chain before negotiation starts.
func (c *Channel) SetChainHash(h chainhash.Hash) {
	c.chainHash = h
}

// SetPolicy replaces the acceptance policy used to vet the counterparty's
// proposed parameters.
func (c *Channel) SetPolicy(p *policy.Policy) {
	c.policy = p
}

// CreditLocal adds amt to the local balance. Used by the HTLC extension
// when a pending HTLC settles back toward the local side.
func (c *Channel) CreditLocal(amt lnwire.MilliSatoshi) {
	c.localAmount += amt
}

// CreditRemote adds amt to the remote balance.
func (c *Channel) CreditRemote(amt lnwire.MilliSatoshi) {
	c.remoteAmount += amt
}

// requireStage returns ErrLifecycleMismatch unless the current stage is one
// of the listed ones.
func (c *Channel) requireStage(required ...Lifecycle) error {
	for _, s := range required {
		if c.stage == s {
			return nil
		}
	}
	return &ErrLifecycleMismatch{Current: c.stage, Required: required}
}

// ComposeOpenChannel assembles the open_channel proposal for an outbound
// channel, recording the policy, parameters, and keys it advertises.
func (c *Channel) ComposeOpenChannel(fundingSat btcutil.Amount,
	pushMsat lnwire.MilliSatoshi, pol *policy.Policy, common CommonParams,
	localParams PeerParams,
	localKeys *keyset.LocalKeySet) (*lnwire.OpenChannel, error) {

	if err := c.requireStage(LifecycleInitial, LifecycleReestablishing); err != nil {
		return nil, err
	}
	if c.activeChanID.HasPermanentID() {
		return nil, ErrNoTemporaryID
	}

	c.direction = Outbound
	c.policy = pol
	c.commonParams = common
	c.localParams = localParams
	c.localKeys = localKeys
	c.localAmount = lnwire.NewMSatFromSatoshis(fundingSat) - pushMsat
	c.remoteAmount = pushMsat
	c.localPerCommitPoint = localKeys.FirstCommitmentPoint
	c.localKeys.StaticRemoteKey = common.ChannelType.StaticRemoteKey
	c.stage = LifecycleProposed

	msg := &lnwire.OpenChannel{
		ChainHash:            c.chainHash,
		PendingChannelID:     c.activeChanID.TempChanID(),
		FundingAmount:        fundingSat,
		PushAmount:           pushMsat,
		DustLimit:            localParams.DustLimit,
		MaxValueInFlight:     localParams.MaxHtlcValueInFlight,
		ChannelReserve:       localParams.ChannelReserve,
		HtlcMinimum:          localParams.HtlcMinimum,
		FeePerKiloWeight:     common.FeeratePerKw,
		CSVDelay:             localParams.ToSelfDelay,
		MaxAcceptedHTLCs:     localParams.MaxAcceptedHtlcs,
		FundingKey:           localKeys.FundingKey,
		RevocationPoint:      localKeys.RevocationBase,
		PaymentPoint:         localKeys.PaymentBase,
		DelayedPaymentPoint:  localKeys.DelayBase,
		HtlcPoint:            localKeys.HtlcBase,
		FirstCommitmentPoint: localKeys.FirstCommitmentPoint,
	}
	if common.AnnounceChannel {
		msg.ChannelFlags = 1
	}
	if localKeys.UpfrontShutdownScript != nil {
		msg.UpfrontShutdownScript = localKeys.UpfrontShutdownScript
	}
	if common.ChannelType != (lnwire.ChannelType{}) {
		ct := common.ChannelType
		msg.ChannelType = &ct
	}

	return msg, nil
}

// ComposeAcceptChannel assembles the accept_channel response for an
// inbound channel from the given local parameters and keys, which it stores
// on the channel.
func (c *Channel) ComposeAcceptChannel(localParams PeerParams,
	localKeys *keyset.LocalKeySet) (*lnwire.AcceptChannel, error) {

	if err := c.requireStage(LifecycleProposed, LifecycleReestablishing); err != nil {
		return nil, err
	}

	c.localParams = localParams
	c.localKeys = localKeys
	c.localPerCommitPoint = localKeys.FirstCommitmentPoint
	c.localKeys.StaticRemoteKey = c.commonParams.ChannelType.StaticRemoteKey

	// Sending accept_channel commits this side: the opener's next message
	// is funding_created.
	c.stage = LifecycleAccepted

	msg := &lnwire.AcceptChannel{
		PendingChannelID:     c.activeChanID.TempChanID(),
		DustLimit:            localParams.DustLimit,
		MaxValueInFlight:     localParams.MaxHtlcValueInFlight,
		ChannelReserve:       localParams.ChannelReserve,
		HtlcMinimum:          localParams.HtlcMinimum,
		MinAcceptDepth:       c.commonParams.MinimumDepth,
		CSVDelay:             localParams.ToSelfDelay,
		MaxAcceptedHTLCs:     localParams.MaxAcceptedHtlcs,
		FundingKey:           localKeys.FundingKey,
		RevocationPoint:      localKeys.RevocationBase,
		PaymentPoint:         localKeys.PaymentBase,
		DelayedPaymentPoint:  localKeys.DelayBase,
		HtlcPoint:            localKeys.HtlcBase,
		FirstCommitmentPoint: localKeys.FirstCommitmentPoint,
	}
	if localKeys.UpfrontShutdownScript != nil {
		msg.UpfrontShutdownScript = localKeys.UpfrontShutdownScript
	}
	if c.commonParams.ChannelType != (lnwire.ChannelType{}) {
		ct := c.commonParams.ChannelType
		msg.ChannelType = &ct
	}

	return msg, nil
}

// ComposeFundingLocked assembles funding_locked once the channel has a
// permanent id, handing the peer the next per-commitment point.
func (c *Channel) ComposeFundingLocked() (*lnwire.FundingLocked, error) {
	cid, err := c.TryChanID()
	if err != nil {
		return nil, err
	}

	return lnwire.NewFundingLocked(cid, c.nextPerCommitmentPoint()), nil
}

// ComposeReestablishChannel answers a peer's channel_reestablish, failing
// if the channel has no permanent id yet or the remote names a different
// channel.
func (c *Channel) ComposeReestablishChannel(
	remote *lnwire.ChannelReestablish) (*lnwire.ChannelReestablish, error) {

	if !c.activeChanID.HasPermanentID() {
		return nil, &ReestablishError{NoPermanentID: true}
	}
	cid := c.activeChanID.ChanID()

	if remote.ChanID != cid {
		return nil, &ReestablishError{
			Mismatch: &ErrChanIDMismatch{Remote: remote.ChanID, Local: cid},
		}
	}

	c.stage = LifecycleReestablishing

	return &lnwire.ChannelReestablish{
		ChanID:                    cid,
		NextLocalCommitHeight:     remote.NextLocalCommitHeight,
		RemoteCommitTailHeight:    remote.RemoteCommitTailHeight,
		LocalUnrevokedCommitPoint: c.localPerCommitPoint,
	}, nil
}

// ComposeShutdown begins a cooperative close, committing to the script the
// local funds should be swept to.
func (c *Channel) ComposeShutdown(deliveryScript []byte) (*lnwire.Shutdown, error) {
	cid, err := c.TryChanID()
	if err != nil {
		return nil, err
	}
	if err := c.requireStage(LifecycleLocked, LifecycleActive,
		LifecycleReestablishing); err != nil {

		return nil, err
	}

	if deliveryScript == nil {
		deliveryScript = c.localKeys.UpfrontShutdownScript
	}

	c.stage = LifecycleShutdown

	return &lnwire.Shutdown{ChannelID: cid, Address: deliveryScript}, nil
}

// ComposeAddUpdateHtlc assembles update_add_htlc for a payment routed over
// route, wrapping the per-hop instructions into a Sphinx onion packet. The
// HTLC id in the returned message is zero; the channel pipeline allocates
// the real id by dispatching a PayBolt state change with the message.
func (c *Channel) ComposeAddUpdateHtlc(amount lnwire.MilliSatoshi,
	paymentHash [32]byte, cltvExpiry uint32,
	route []Hop) (*lnwire.UpdateAddHTLC, error) {

	cid, err := c.TryChanID()
	if err != nil {
		return nil, err
	}

	msg := &lnwire.UpdateAddHTLC{
		ChanID:      cid,
		Amount:      amount,
		PaymentHash: paymentHash,
		Expiry:      cltvExpiry,
	}

	if err := encodeOnion(&msg.OnionBlob, route, paymentHash[:]); err != nil {
		return nil, &ErrRoute{Err: err}
	}

	return msg, nil
}

// encodeOnion wraps the route's per-hop instructions into a Sphinx packet
// keyed by the payment hash, serializing it into blob.
func encodeOnion(blob *[lnwire.OnionPacketSize]byte, route []Hop,
	assocData []byte) error {

	sessionKey, err := btcec.NewPrivateKey()
	if err != nil {
		return err
	}

	var path sphinx.PaymentPath
	if len(route) > len(path) {
		return fmt.Errorf("route of %d hops exceeds the %d hop onion "+
			"capacity", len(route), len(path))
	}
	for i, hop := range route {
		var nextAddr [8]byte
		if i < len(route)-1 {
			binary.BigEndian.PutUint64(nextAddr[:],
				route[i+1].ChannelID.ToUint64())
		}

		payload, err := sphinx.NewLegacyHopPayload(&sphinx.HopData{
			NextAddress:   nextAddr,
			ForwardAmount: uint64(hop.AmountToForward),
			OutgoingCltv:  hop.OutgoingCltv,
		})
		if err != nil {
			return err
		}

		path[i] = sphinx.OnionHop{
			NodePub:    *hop.NodePub,
			HopPayload: payload,
		}
	}

	pkt, err := sphinx.NewOnionPacket(
		&path, sessionKey, assocData, sphinx.DeterministicPacketFiller,
	)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := pkt.Encode(&buf); err != nil {
		return err
	}
	copy(blob[:], buf.Bytes())

	return nil
}

// nextPerCommitmentPoint returns the per-commitment point to advertise for
// the next commitment.
func (c *Channel) nextPerCommitmentPoint() *btcec.PublicKey {
	return c.localPerCommitPoint
}

// UpdateFromPeer drives the state machine with an inbound peer message.
// Any returned error leaves the channel state untouched.
func (c *Channel) UpdateFromPeer(msg extension.Message) error {
	switch m := msg.(type) {
	case *lnwire.OpenChannel:
		return c.receiveOpenChannel(m)

	case *lnwire.AcceptChannel:
		return c.receiveAcceptChannel(m)

	case *lnwire.FundingCreated:
		if err := c.requireStage(LifecycleAccepted, LifecycleSigning); err != nil {
			return err
		}
		op := wire.OutPoint{
			Hash:  m.FundingTxID,
			Index: uint32(m.FundingOutputIndex),
		}
		c.activeChanID.AssignPermanentID(lnwire.NewChanIDFromOutPoint(&op))
		c.stage = LifecycleFunding

	case *lnwire.FundingSigned:
		if err := c.requireStage(LifecycleFunding, LifecycleSigned); err != nil {
			return err
		}
		c.activeChanID.AssignPermanentID(m.ChanID)
		c.commitmentSigs = append(c.commitmentSigs, m.CommitSig)
		c.stage = LifecycleFunded

	case *lnwire.FundingLocked:
		if err := c.requireStage(LifecycleFunded, LifecycleLocked); err != nil {
			return err
		}
		c.remotePerCommitPoint = m.NextPerCommitmentPoint
		c.stage = LifecycleLocked

	case *lnwire.ChannelReestablish:
		if !c.activeChanID.HasPermanentID() {
			return &ReestablishError{NoPermanentID: true}
		}
		if m.ChanID != c.activeChanID.ChanID() {
			return &ReestablishError{Mismatch: &ErrChanIDMismatch{
				Remote: m.ChanID,
				Local:  c.activeChanID.ChanID(),
			}}
		}
		c.stage = LifecycleReestablishing

	case *lnwire.CommitSig:
		if err := c.checkChanID(m.ChanID); err != nil {
			return err
		}
		c.commitmentSigs = append(c.commitmentSigs, m.CommitSig)

	case *lnwire.RevokeAndAck:
		if err := c.checkChanID(m.ChanID); err != nil {
			return err
		}
		c.remotePerCommitPoint = m.NextPerCommitmentPoint
		c.commitmentNumber++

	case *lnwire.UpdateFee:
		if err := c.checkChanID(m.ChanID); err != nil {
			return err
		}
		c.commonParams.FeeratePerKw = m.FeePerKw

	case *lnwire.UpdateAddHTLC:
		// Balance moves with the HTLC immediately; the HTLC extension
		// validates the message and records the secret afterwards in
		// pipeline order.
		if err := c.checkChanID(m.ChanID); err != nil {
			return err
		}
		if m.Amount > c.remoteAmount {
			return &ErrHtlc{Msg: "remote balance insufficient for HTLC"}
		}
		c.remoteAmount -= m.Amount

	case *lnwire.Shutdown:
		if err := c.checkChanID(m.ChannelID); err != nil {
			return err
		}
		if err := c.requireStage(LifecycleLocked, LifecycleActive,
			LifecycleReestablishing, LifecycleShutdown); err != nil {

			return err
		}
		c.stage = LifecycleShutdown

	case *lnwire.ClosingSigned:
		if err := c.checkChanID(m.ChannelID); err != nil {
			return err
		}
		if err := c.requireStage(LifecycleShutdown, LifecycleClosing); err != nil {
			return err
		}
		c.stage = LifecycleClosing
		c.closingRound++

	case *lnwire.Error:
		if m.ChanID.IsZero() || m.ChanID == c.activeChanID.ChanID() {
			c.stage = LifecycleAborting
		}
	}

	return nil
}

func (c *Channel) receiveOpenChannel(m *lnwire.OpenChannel) error {
	if err := c.requireStage(LifecycleInitial); err != nil {
		return err
	}

	if err := policy.ValidateInbound(policy.FromOpenChannel(m), c.policy); err != nil {
		return err
	}

	c.direction = Inbound
	c.activeChanID = lnwire.NewActiveChannelIDFromTemp(m.PendingChannelID)
	c.chainHash = m.ChainHash
	c.remoteAmount = lnwire.NewMSatFromSatoshis(m.FundingAmount) - m.PushAmount
	c.localAmount = m.PushAmount

	c.remoteParams = peerParamsFromOpenChannel(m)
	c.commonParams.FeeratePerKw = m.FeePerKiloWeight
	c.commonParams.AnnounceChannel = m.AnnounceChannel()
	if m.ChannelType != nil {
		c.commonParams.ChannelType = *m.ChannelType
		c.localKeys.StaticRemoteKey = m.ChannelType.StaticRemoteKey
	}

	c.remoteKeys.FundingKey = m.FundingKey
	c.remoteKeys.RevocationBase = m.RevocationPoint
	c.remoteKeys.PaymentBase = m.PaymentPoint
	c.remoteKeys.DelayBase = m.DelayedPaymentPoint
	c.remoteKeys.HtlcBase = m.HtlcPoint
	c.remoteKeys.CurrentPerCommitmentPoint = m.FirstCommitmentPoint
	c.remotePerCommitPoint = m.FirstCommitmentPoint

	c.stage = LifecycleProposed

	return nil
}

func (c *Channel) receiveAcceptChannel(m *lnwire.AcceptChannel) error {
	if err := c.requireStage(LifecycleProposed); err != nil {
		return err
	}

	opener := policy.ProposedParams{
		ToSelfDelay:              c.localParams.ToSelfDelay,
		MaxAcceptedHtlcs:         c.localParams.MaxAcceptedHtlcs,
		DustLimitSatoshis:        c.localParams.DustLimit,
		ChannelReserveSatoshis:   c.localParams.ChannelReserve,
		HtlcMinimumMsat:          c.localParams.HtlcMinimum,
		MaxHtlcValueInFlightMsat: c.localParams.MaxHtlcValueInFlight,
	}
	err := policy.ConfirmOutbound(policy.FromAcceptChannel(m), opener, c.policy)
	if err != nil {
		return err
	}

	c.remoteParams = peerParamsFromAcceptChannel(m)
	c.commonParams.MinimumDepth = m.MinAcceptDepth

	c.remoteKeys.FundingKey = m.FundingKey
	c.remoteKeys.RevocationBase = m.RevocationPoint
	c.remoteKeys.PaymentBase = m.PaymentPoint
	c.remoteKeys.DelayBase = m.DelayedPaymentPoint
	c.remoteKeys.HtlcBase = m.HtlcPoint
	c.remoteKeys.CurrentPerCommitmentPoint = m.FirstCommitmentPoint
	c.remotePerCommitPoint = m.FirstCommitmentPoint

	c.stage = LifecycleAccepted

	return nil
}

func (c *Channel) checkChanID(cid lnwire.ChannelID) error {
	if cid != c.activeChanID.ChanID() {
		return &ErrChanIDMismatch{Remote: cid, Local: c.activeChanID.ChanID()}
	}
	return nil
}

// StateChange lets the constructor participate in composing outbound
// messages: a PayBolt request moves the HTLC amount out of the local
// balance while the HTLC extension allocates the id.
func (c *Channel) StateChange(req extension.StateChangeRequest,
	outbound extension.Message) error {

	switch req.(type) {
	case PayBolt, *PayBolt:
		add, ok := outbound.(*lnwire.UpdateAddHTLC)
		if !ok {
			return &ErrHtlc{Msg: "PayBolt state change requires an " +
				"update_add_htlc message"}
		}
		if add.Amount > c.localAmount {
			return &ErrHtlc{Msg: "local balance insufficient for HTLC"}
		}
		c.localAmount -= add.Amount
	}

	return nil
}

// ErrHtlc is an HTLC bookkeeping violation detected while processing a
// peer update.
type ErrHtlc struct {
	Msg string
}

func (e *ErrHtlc) Error() string {
	return "htlc: " + e.Msg
}

// CommitmentFee returns the fee of a commitment with no HTLC outputs at the
// channel's current feerate, charged to the opener.
func (c *Channel) CommitmentFee() btcutil.Amount {
	return btcutil.Amount(CommitWeight * uint64(c.commonParams.FeeratePerKw) / 1000)
}

const lower48Bits = 0x0000FFFFFFFFFFFF

// ObscuredCommitmentNumber XORs the current commitment number with the
// obscuring factor: the low 48 bits of SHA256(opener_payment_basepoint ||
// accepter_payment_basepoint), opener first regardless of direction.
func (c *Channel) ObscuredCommitmentNumber() uint64 {
	h := sha256.New()
	if c.direction.IsInbound() {
		h.Write(c.remoteKeys.PaymentBase.SerializeCompressed())
		h.Write(c.localKeys.PaymentBase.SerializeCompressed())
	} else {
		h.Write(c.localKeys.PaymentBase.SerializeCompressed())
		h.Write(c.remoteKeys.PaymentBase.SerializeCompressed())
	}
	sum := h.Sum(nil)

	obscuringFactor := binary.BigEndian.Uint64(sum[24:]) & lower48Bits

	return (c.commitmentNumber & lower48Bits) ^ obscuringFactor
}

// Keys derives the full per-commitment key set for the commitment being
// built. asRemoteNode selects the counterparty's commitment, tweaked by its
// per-commitment point.
func (c *Channel) Keys(asRemoteNode bool) *keyset.CommitmentKeys {
	commitPoint := c.localPerCommitPoint
	if asRemoteNode {
		commitPoint = c.remotePerCommitPoint
	}
	return keyset.DeriveCommitmentKeys(commitPoint, c.localKeys,
		c.remoteKeys, asRemoteNode)
}

// ToSelfDelay returns the CSV delay binding the to-local output of the
// commitment being built.
func (c *Channel) ToSelfDelay(asRemoteNode bool) uint16 {
	if asRemoteNode {
		return c.remoteParams.ToSelfDelay
	}
	return c.localParams.ToSelfDelay
}

// BuildGraph implements extension.GraphBuilder: it stamps the commitment
// skeleton with the obscured commitment number and emits the two base
// balance outputs.
func (c *Channel) BuildGraph(g *txgraph.TxGraph, asRemoteNode bool) error {
	obscured := c.ObscuredCommitmentNumber()

	g.Version = 2
	g.LockTime = 0x20000000 | uint32(obscured&0x00FFFFFF)
	g.Sequence = 0x80000000 | uint32(obscured>>24)
	g.CmtOuts = g.CmtOuts[:0]

	fee := c.CommitmentFee()

	toLocalAmount := c.localAmount
	toRemoteAmount := c.remoteAmount
	if asRemoteNode {
		toLocalAmount, toRemoteAmount = toRemoteAmount, toLocalAmount
	}

	// The opener pays the commitment fee out of its own side.
	var toLocalFee, toRemoteFee btcutil.Amount
	openerIsOwner := (c.direction == Outbound) != asRemoteNode
	if openerIsOwner {
		toLocalFee = fee
	} else {
		toRemoteFee = fee
	}

	keys := c.Keys(asRemoteNode)

	if sat := toLocalAmount.ToSatoshis(); sat > toLocalFee {
		script, err := ToLocalScript(keys.RevocationKey, keys.ToLocalKey,
			c.ToSelfDelay(asRemoteNode))
		if err != nil {
			return err
		}
		pkScript, err := witnessScriptHash(script)
		if err != nil {
			return err
		}
		g.CmtOuts = append(g.CmtOuts, txgraph.CommitOutput{
			TxOut: &wire.TxOut{
				Value:    int64(sat - toLocalFee),
				PkScript: pkScript,
			},
			WitnessScript: script,
		})
	}

	if sat := toRemoteAmount.ToSatoshis(); sat > toRemoteFee {
		out, err := c.toRemoteOutput(keys.ToRemoteKey, sat-toRemoteFee)
		if err != nil {
			return err
		}
		g.CmtOuts = append(g.CmtOuts, out)
	}

	return nil
}

// toRemoteOutput renders the to-remote output in the format the channel
// type selects: plain P2WPKH before anchors, CSV-encumbered P2WSH after.
func (c *Channel) toRemoteOutput(remoteKey *btcec.PublicKey,
	amt btcutil.Amount) (txgraph.CommitOutput, error) {

	if c.commonParams.ChannelType.HasAnchors() {
		script, err := ToRemoteV2Script(remoteKey)
		if err != nil {
			return txgraph.CommitOutput{}, err
		}
		pkScript, err := witnessScriptHash(script)
		if err != nil {
			return txgraph.CommitOutput{}, err
		}
		return txgraph.CommitOutput{
			TxOut:         &wire.TxOut{Value: int64(amt), PkScript: pkScript},
			WitnessScript: script,
		}, nil
	}

	pkScript, err := ToRemoteV1Script(remoteKey)
	if err != nil {
		return txgraph.CommitOutput{}, err
	}
	return txgraph.CommitOutput{
		TxOut: &wire.TxOut{Value: int64(amt), PkScript: pkScript},
	}, nil
}

// EnrichFunding records the 2-of-2 witness script against the marked
// funding output of the PSBT, so that the commitment input can later spend
// it.
func (c *Channel) EnrichFunding(p *psbt.Packet, f *funding.Funding) error {
	witnessScript, pkScript, err := FundingScript(c.localKeys.FundingKey,
		c.remoteKeys.FundingKey)
	if err != nil {
		return err
	}

	vout := int(f.OutputIndex())
	if vout >= len(p.Outputs) {
		return funding.ErrNoFundingOutput
	}

	p.Outputs[vout].WitnessScript = witnessScript
	p.UnsignedTx.TxOut[vout].PkScript = pkScript

	return nil
}
