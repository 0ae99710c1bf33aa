// Package htlc implements the extender that books offered, received, and
// resolved HTLCs against a channel, renders their commitment outputs, and
// templates the HTLC-Success/HTLC-Timeout transactions that spend them.
package htlc

import (
	"crypto/sha256"
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/wire"

	"github.com/lnp-go/lnpcore/lnwallet/bolt"
	"github.com/lnp-go/lnpcore/lnwallet/extension"
	"github.com/lnp-go/lnpcore/lnwallet/keyset"
	"github.com/lnp-go/lnpcore/lnwallet/txgraph"
	"github.com/lnp-go/lnpcore/lnwire"
)

// MaxCltvExpiry is the largest cltv_expiry a peer may set before the value
// would be interpreted as a unix timestamp rather than a block height.
const MaxCltvExpiry = 500_000_000

// Secret is a pending HTLC whose preimage is not yet known to this side.
type Secret struct {
	Amount     lnwire.MilliSatoshi
	Hashlock   [32]byte
	ID         uint64
	CltvExpiry uint32
}

// Known is a settled HTLC together with the preimage that resolved it.
type Known struct {
	Amount     lnwire.MilliSatoshi
	Preimage   [32]byte
	ID         uint64
	CltvExpiry uint32
}

// Ledger is the view of the channel constructor the HTLC extension works
// against: channel identity, per-commitment keys, and the balance moves
// that accompany HTLC settlement.
type Ledger interface {
	ChanID() lnwire.ChannelID
	Keys(asRemoteNode bool) *keyset.CommitmentKeys
	ToSelfDelay(asRemoteNode bool) uint16
	CreditLocal(lnwire.MilliSatoshi)
	CreditRemote(lnwire.MilliSatoshi)
}

// Extension books the channel's HTLCs. It learns the limits that bound
// inbound HTLCs from the open_channel/accept_channel negotiation messages
// flowing through the pipeline.
type Extension struct {
	ledger Ledger

	// anchorsZeroFeeHtlcTx is set when the negotiated channel type calls
	// for zero-fee HTLC transactions anchored through a CPFP output.
	anchorsZeroFeeHtlcTx bool

	offered  map[uint64]*Secret
	received map[uint64]*Secret
	resolved map[uint64]*Known

	htlcMinimum          lnwire.MilliSatoshi
	maxHtlcValueInFlight lnwire.MilliSatoshi
	maxAcceptedHtlcs     uint16

	nextReceivedID uint64
	nextOfferedID  uint64
}

// New returns an empty HTLC extension bound to the given ledger.
func New(ledger Ledger) *Extension {
	return &Extension{
		ledger:   ledger,
		offered:  make(map[uint64]*Secret),
		received: make(map[uint64]*Secret),
		resolved: make(map[uint64]*Known),
	}
}

var _ extension.Extension = (*Extension)(nil)
var _ extension.PeerUpdater = (*Extension)(nil)
var _ extension.StateChanger = (*Extension)(nil)
var _ extension.GraphBuilder = (*Extension)(nil)
var _ extension.StateStore = (*Extension)(nil)

// Identity implements extension.Extension.
func (h *Extension) Identity() extension.Identity {
	return extension.IdentityHtlc
}

// Offered returns the pending HTLC offered under id, if any.
func (h *Extension) Offered(id uint64) (*Secret, bool) {
	s, ok := h.offered[id]
	return s, ok
}

// Received returns the pending HTLC received under id, if any.
func (h *Extension) Received(id uint64) (*Secret, bool) {
	s, ok := h.received[id]
	return s, ok
}

// Resolved returns the settled HTLC under id, if any.
func (h *Extension) Resolved(id uint64) (*Known, bool) {
	k, ok := h.resolved[id]
	return k, ok
}

// PendingTotal sums every unresolved HTLC, offered and received.
func (h *Extension) PendingTotal() lnwire.MilliSatoshi {
	var total lnwire.MilliSatoshi
	for _, s := range h.offered {
		total += s.Amount
	}
	for _, s := range h.received {
		total += s.Amount
	}
	return total
}

// receivedTotal sums the unresolved received HTLCs only.
func (h *Extension) receivedTotal() lnwire.MilliSatoshi {
	var total lnwire.MilliSatoshi
	for _, s := range h.received {
		total += s.Amount
	}
	return total
}

// offerHtlc books a locally offered HTLC under the next offered id.
func (h *Extension) offerHtlc(amount lnwire.MilliSatoshi, hashlock [32]byte,
	cltvExpiry uint32) uint64 {

	id := h.nextOfferedID
	h.nextOfferedID++
	h.offered[id] = &Secret{
		Amount:     amount,
		Hashlock:   hashlock,
		ID:         id,
		CltvExpiry: cltvExpiry,
	}
	return id
}

// StateChange implements extension.StateChanger: a PayBolt request books
// the offered HTLC and writes its freshly allocated id into the
// update_add_htlc message under construction.
func (h *Extension) StateChange(req extension.StateChangeRequest,
	outbound extension.Message) error {

	switch req.(type) {
	case bolt.PayBolt, *bolt.PayBolt:
		add, ok := outbound.(*lnwire.UpdateAddHTLC)
		if !ok {
			return &bolt.ErrHtlc{Msg: "PayBolt state change requires " +
				"an update_add_htlc message"}
		}
		add.ID = h.offerHtlc(add.Amount, add.PaymentHash, add.Expiry)
	}

	return nil
}

// UpdateFromPeer implements extension.PeerUpdater.
func (h *Extension) UpdateFromPeer(msg extension.Message) error {
	switch m := msg.(type) {
	case *lnwire.OpenChannel:
		if m.ChannelType != nil {
			h.anchorsZeroFeeHtlcTx = m.ChannelType.AnchorsZeroFeeHtlcTx
		}
		h.htlcMinimum = m.HtlcMinimum
		h.maxHtlcValueInFlight = m.MaxValueInFlight
		h.maxAcceptedHtlcs = m.MaxAcceptedHTLCs

	case *lnwire.AcceptChannel:
		if m.ChannelType != nil {
			h.anchorsZeroFeeHtlcTx = m.ChannelType.AnchorsZeroFeeHtlcTx
		}
		h.htlcMinimum = m.HtlcMinimum
		h.maxHtlcValueInFlight = m.MaxValueInFlight
		h.maxAcceptedHtlcs = m.MaxAcceptedHTLCs

	case *lnwire.UpdateAddHTLC:
		return h.receiveAdd(m)

	case *lnwire.UpdateFulfillHTLC:
		return h.receiveFulfill(m)

	case *lnwire.UpdateFailHTLC:
		return h.receiveFail(m.ChanID, m.ID)

	case *lnwire.UpdateFailMalformedHTLC:
		return h.receiveFail(m.ChanID, m.ID)
	}

	return nil
}

func (h *Extension) receiveAdd(m *lnwire.UpdateAddHTLC) error {
	if m.ChanID != h.ledger.ChanID() {
		return &bolt.ErrHtlc{Msg: "mismatched channel_id in update_add_htlc"}
	}

	switch {
	case m.Amount == 0:
		return &bolt.ErrHtlc{Msg: "amount_msat has to be greater than 0"}

	case m.Amount < h.htlcMinimum:
		return &bolt.ErrHtlc{Msg: fmt.Sprintf("amount_msat %d below "+
			"htlc_minimum_msat %d", m.Amount, h.htlcMinimum)}

	case len(h.received) >= int(h.maxAcceptedHtlcs):
		return &bolt.ErrHtlc{Msg: "max_accepted_htlcs limit exceeded"}

	case m.Expiry > MaxCltvExpiry:
		return &bolt.ErrHtlc{Msg: "cltv_expiry limit exceeded"}

	case uint64(m.Amount)>>32 != 0:
		return &bolt.ErrHtlc{Msg: "amount_msat does not fit a bitcoin " +
			"output value"}

	case h.receivedTotal()+m.Amount > h.maxHtlcValueInFlight:
		return &bolt.ErrHtlc{Msg: "max_htlc_value_in_flight_msat limit " +
			"exceeded"}

	case m.ID != h.nextReceivedID:
		return &bolt.ErrHtlc{Msg: fmt.Sprintf("htlc_id %d does not match "+
			"the expected counter %d", m.ID, h.nextReceivedID)}
	}

	h.received[m.ID] = &Secret{
		Amount:     m.Amount,
		Hashlock:   m.PaymentHash,
		ID:         m.ID,
		CltvExpiry: m.Expiry,
	}
	h.nextReceivedID++

	return nil
}

func (h *Extension) receiveFulfill(m *lnwire.UpdateFulfillHTLC) error {
	if m.ChanID != h.ledger.ChanID() {
		return &bolt.ErrHtlc{Msg: "mismatched channel_id in " +
			"update_fulfill_htlc"}
	}

	offered, ok := h.offered[m.ID]
	if !ok {
		return &bolt.ErrHtlc{Msg: fmt.Sprintf("update_fulfill_htlc "+
			"references unknown htlc_id %d", m.ID)}
	}

	if sha256.Sum256(m.PaymentPreimage[:]) != offered.Hashlock {
		return &bolt.ErrHtlc{Msg: fmt.Sprintf("preimage does not match "+
			"the hashlock of htlc %d", m.ID)}
	}

	delete(h.offered, m.ID)
	h.resolved[m.ID] = &Known{
		Amount:     offered.Amount,
		Preimage:   m.PaymentPreimage,
		ID:         m.ID,
		CltvExpiry: offered.CltvExpiry,
	}

	// The counterparty proved it routed the payment; the pending amount
	// settles on its side.
	h.ledger.CreditRemote(offered.Amount)

	return nil
}

func (h *Extension) receiveFail(cid lnwire.ChannelID, id uint64) error {
	if cid != h.ledger.ChanID() {
		return &bolt.ErrHtlc{Msg: "mismatched channel_id in " +
			"update_fail_htlc"}
	}

	offered, ok := h.offered[id]
	if !ok {
		return &bolt.ErrHtlc{Msg: fmt.Sprintf("update_fail_htlc "+
			"references unknown htlc_id %d", id)}
	}

	delete(h.offered, id)

	// The pending amount returns to the local side.
	h.ledger.CreditLocal(offered.Amount)

	return nil
}

// sortedIDs returns the map's keys in ascending order, the order HTLC
// outputs are appended to the commitment in.
func sortedIDs(m map[uint64]*Secret) []uint64 {
	ids := make([]uint64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// BuildGraph implements extension.GraphBuilder: every pending HTLC becomes
// a commitment output plus a child HTLC-Timeout (offered) or HTLC-Success
// (received) template, and the accumulated HTLC value is deducted from the
// to-local output the constructor emitted first.
func (h *Extension) BuildGraph(g *txgraph.TxGraph, asRemoteNode bool) error {
	keys := h.ledger.Keys(asRemoteNode)
	toSelfDelay := h.ledger.ToSelfDelay(asRemoteNode)

	var accumulated int64

	for _, id := range sortedIDs(h.offered) {
		offered := h.offered[id]

		script, err := OfferedHtlcScript(keys.RevocationKey, keys.HtlcKey,
			keys.CounterpartyHtlcKey, offered.Hashlock)
		if err != nil {
			return err
		}
		parent, err := h.addHtlcOutput(g, script, offered.Amount,
			txgraph.RoleHtlcTimeout, id)
		if err != nil {
			return err
		}

		child, err := h.childTx(keys, toSelfDelay, offered.Amount,
			offered.CltvExpiry, parent)
		if err != nil {
			return err
		}
		g.InsertTx(txgraph.RoleHtlcTimeout, id, child)

		accumulated += int64(offered.Amount.ToSatoshis())
	}

	for _, id := range sortedIDs(h.received) {
		received := h.received[id]

		script, err := ReceivedHtlcScript(keys.RevocationKey, keys.HtlcKey,
			keys.CounterpartyHtlcKey, received.Hashlock,
			received.CltvExpiry)
		if err != nil {
			return err
		}
		parent, err := h.addHtlcOutput(g, script, received.Amount,
			txgraph.RoleHtlcSuccess, id)
		if err != nil {
			return err
		}

		// HTLC-Success spends with the preimage; only HTLC-Timeout
		// carries the absolute locktime.
		child, err := h.childTx(keys, toSelfDelay, received.Amount, 0,
			parent)
		if err != nil {
			return err
		}
		g.InsertTx(txgraph.RoleHtlcSuccess, id, child)

		accumulated += int64(received.Amount.ToSatoshis())
	}

	if accumulated > 0 && len(g.CmtOuts) > 0 {
		g.CmtOuts[0].TxOut.Value -= accumulated
	}

	return nil
}

// addHtlcOutput appends a P2WSH commitment output for script, tagged with
// the (role, index) of the child template that will spend it, merging into
// an existing output when script and witness script both match. It returns
// the output's position among the commitment outputs.
func (h *Extension) addHtlcOutput(g *txgraph.TxGraph, script []byte,
	amount lnwire.MilliSatoshi, role txgraph.Role,
	index uint64) (uint32, error) {

	pkScript, err := witnessScriptHash(script)
	if err != nil {
		return 0, err
	}

	// Millisatoshi remainders are forfeited to miners.
	sat := int64(amount.ToSatoshis())

	for i := range g.CmtOuts {
		if string(g.CmtOuts[i].TxOut.PkScript) == string(pkScript) &&
			string(g.CmtOuts[i].WitnessScript) == string(script) {

			g.CmtOuts[i].TxOut.Value += sat
			return uint32(i), nil
		}
	}

	g.CmtOuts = append(g.CmtOuts, txgraph.CommitOutput{
		TxOut:         &wire.TxOut{Value: sat, PkScript: pkScript},
		WitnessScript: script,
		Role:          role,
		Index:         index,
	})

	return uint32(len(g.CmtOuts) - 1), nil
}

// childTx templates a second-stage HTLC transaction: a single input bound
// to the HTLC's commitment output at position parent (the commitment txid
// itself is filled in at render time, the same way the commitment binds to
// the funding outpoint), and a single output paying into the delayed
// second-stage script.
func (h *Extension) childTx(keys *keyset.CommitmentKeys, toSelfDelay uint16,
	amount lnwire.MilliSatoshi, lockTime uint32,
	parent uint32) (*psbt.Packet, error) {

	script, err := SecondStageScript(keys.RevocationKey, keys.ToLocalKey,
		toSelfDelay)
	if err != nil {
		return nil, err
	}
	pkScript, err := witnessScriptHash(script)
	if err != nil {
		return nil, err
	}

	tx := wire.NewMsgTx(2)
	tx.LockTime = lockTime

	sequence := uint32(0)
	if h.anchorsZeroFeeHtlcTx {
		sequence = 1
	}
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Index: parent},
		Sequence:         sequence,
	})

	tx.AddTxOut(&wire.TxOut{
		Value:    int64(amount.ToSatoshis()),
		PkScript: pkScript,
	})

	p, err := psbt.NewFromUnsignedTx(tx)
	if err != nil {
		return nil, err
	}
	p.Outputs[0].WitnessScript = script

	return p, nil
}
