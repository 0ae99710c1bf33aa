// Package txgraph models the partially-ordered set of bitcoin transactions
// derived from a channel's funding outpoint: a commitment-transaction
// skeleton plus a bag of dependent transactions (HTLC-Success,
// HTLC-Timeout, and future extensions) keyed by role and index.
package txgraph

import (
	"sort"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/wire"

	"github.com/lnp-go/lnpcore/lnwallet/funding"
)

// Role identifies the kind of dependent transaction within the graph (e.g.
// HTLC-Success, HTLC-Timeout). Extensions register their own role values.
type Role uint16

const (
	RoleHtlcSuccess Role = 1
	RoleHtlcTimeout Role = 2
)

// CommitOutput pairs a commitment output with the witness-script metadata
// needed to later identify and spend it.
type CommitOutput struct {
	TxOut         *wire.TxOut
	WitnessScript []byte

	// Role and Index, when non-zero/Role!=0, tag this output as the
	// parent of a dependent transaction in Graph, letting extensions
	// correlate a commitment output back to its child template.
	Role  Role
	Index uint64
}

// TxGraph is the mutable view of a channel's transaction set built fresh on
// every build_graph call: a commitment skeleton plus dependent transaction
// templates keyed by (role, index).
type TxGraph struct {
	Version  int32
	LockTime uint32

	// Sequence is the single commitment input's nSequence value, carrying
	// half of the obscured commitment number.
	Sequence uint32

	// CmtOuts lists the commitment's outputs in the order extensions
	// produced them; the BIP-69 modifier reorders this list in place as
	// the last step of the pipeline.
	CmtOuts []CommitOutput

	funding *funding.Funding
	graph   map[Role]map[uint64]*psbt.Packet
}

// New seeds a fresh TxGraph from f, ready for extensions to populate.
func New(f *funding.Funding) *TxGraph {
	return &TxGraph{
		Version: 2,
		funding: f,
		graph:   make(map[Role]map[uint64]*psbt.Packet),
	}
}

// Funding returns the Funding this graph was seeded from.
func (g *TxGraph) Funding() *funding.Funding {
	return g.funding
}

// InsertTx records a dependent transaction template under (role, index).
func (g *TxGraph) InsertTx(role Role, index uint64, p *psbt.Packet) {
	if g.graph[role] == nil {
		g.graph[role] = make(map[uint64]*psbt.Packet)
	}
	g.graph[role][index] = p
}

// Tx looks up a previously inserted dependent transaction template.
func (g *TxGraph) Tx(role Role, index uint64) (*psbt.Packet, bool) {
	m, ok := g.graph[role]
	if !ok {
		return nil, false
	}
	p, ok := m[index]
	return p, ok
}

// LastIndex returns the highest index inserted for role, and whether any
// were inserted at all.
func (g *TxGraph) LastIndex(role Role) (uint64, bool) {
	m, ok := g.graph[role]
	if !ok || len(m) == 0 {
		return 0, false
	}
	var max uint64
	first := true
	for idx := range m {
		if first || idx > max {
			max = idx
			first = false
		}
	}
	return max, true
}

// ForEachTx visits every dependent transaction template in ascending
// (role, index) order.
func (g *TxGraph) ForEachTx(visit func(role Role, index uint64, p *psbt.Packet)) {
	roles := make([]Role, 0, len(g.graph))
	for role := range g.graph {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })

	for _, role := range roles {
		indices := make([]uint64, 0, len(g.graph[role]))
		for idx := range g.graph[role] {
			indices = append(indices, idx)
		}
		sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

		for _, idx := range indices {
			visit(role, idx, g.graph[role][idx])
		}
	}
}

// RenderCmt assembles the commitment transaction as a PSBT: one input
// spending the funding outpoint (witness-utxo and witness-script taken from
// the Funding's marked output), and CmtOuts in their current order.
func (g *TxGraph) RenderCmt() (*psbt.Packet, error) {
	tx := wire.NewMsgTx(g.Version)
	tx.LockTime = g.LockTime
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: g.funding.OutPoint(),
		Sequence:         g.Sequence,
	})

	for _, out := range g.CmtOuts {
		tx.AddTxOut(out.TxOut)
	}

	p, err := psbt.NewFromUnsignedTx(tx)
	if err != nil {
		return nil, err
	}

	p.Inputs[0].WitnessUtxo = g.funding.Output()
	p.Inputs[0].WitnessScript = g.funding.WitnessScript()

	for i, out := range g.CmtOuts {
		p.Outputs[i].WitnessScript = out.WitnessScript
	}

	return p, nil
}

// Render assembles every transaction in the graph: the commitment first,
// then every dependent transaction in ascending (role, index) order. The
// commitment's txid only exists once the commitment is assembled, so this
// is also the point where every dependent input learns which transaction
// its output position refers to.
func (g *TxGraph) Render() ([]*psbt.Packet, error) {
	cmt, err := g.RenderCmt()
	if err != nil {
		return nil, err
	}

	cmtTxID := cmt.UnsignedTx.TxHash()
	g.ForEachTx(func(_ Role, _ uint64, p *psbt.Packet) {
		if len(p.UnsignedTx.TxIn) > 0 {
			p.UnsignedTx.TxIn[0].PreviousOutPoint.Hash = cmtTxID
		}
	})

	out := []*psbt.Packet{cmt}

	roles := make([]Role, 0, len(g.graph))
	for role := range g.graph {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })

	for _, role := range roles {
		indices := make([]uint64, 0, len(g.graph[role]))
		for idx := range g.graph[role] {
			indices = append(indices, idx)
		}
		sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

		for _, idx := range indices {
			out = append(out, g.graph[role][idx])
		}
	}

	return out, nil
}

// CoalesceCmtOuts merges CmtOuts whose script and witness-script are both
// identical, summing their amounts.
func (g *TxGraph) CoalesceCmtOuts() {
	var merged []CommitOutput

	for _, out := range g.CmtOuts {
		found := false
		for i := range merged {
			if sameScript(merged[i], out) {
				merged[i].TxOut.Value += out.TxOut.Value
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, out)
		}
	}

	g.CmtOuts = merged
}

func sameScript(a, b CommitOutput) bool {
	if string(a.TxOut.PkScript) != string(b.TxOut.PkScript) {
		return false
	}
	return string(a.WitnessScript) == string(b.WitnessScript)
}
