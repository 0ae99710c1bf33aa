// Package bip69 implements the modifier that canonically orders every
// transaction in a channel's graph: outputs ascending by (amount, script),
// inputs ascending by (previous txid, previous vout). Running last in the
// pipeline, it erases any information the construction order of outputs
// might otherwise leak.
package bip69

import (
	"bytes"
	"sort"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/lnp-go/lnpcore/lnwallet/extension"
	"github.com/lnp-go/lnpcore/lnwallet/txgraph"
)

// Extension is the BIP-69 ordering modifier. It is stateless and safe to
// apply any number of times: ordering is idempotent.
type Extension struct{}

// New returns the BIP-69 modifier.
func New() *Extension {
	return &Extension{}
}

var _ extension.Extension = (*Extension)(nil)
var _ extension.GraphBuilder = (*Extension)(nil)

// Identity implements extension.Extension; BIP-69 dispatches after every
// other modifier.
func (e *Extension) Identity() extension.Identity {
	return extension.IdentityBip69
}

// BuildGraph implements extension.GraphBuilder: it reorders the commitment
// outputs and every dependent transaction's inputs and outputs in place.
// Dependent inputs that spend a commitment output (recognizable by their
// still-zero previous txid) are re-pointed at their parent's new position
// so the parent/child links survive the reordering.
func (e *Extension) BuildGraph(g *txgraph.TxGraph, asRemoteNode bool) error {
	perm := sortCommitOutputs(g.CmtOuts)

	g.ForEachTx(func(role txgraph.Role, index uint64, p *psbt.Packet) {
		for _, in := range p.UnsignedTx.TxIn {
			if in.PreviousOutPoint.Hash != (chainhash.Hash{}) {
				continue
			}
			if old := int(in.PreviousOutPoint.Index); old < len(perm) {
				in.PreviousOutPoint.Index = uint32(perm[old])
			}
		}
		sortPacket(p)
	})

	return nil
}

// outputLess is the BIP-69 output order: amount ascending, then script
// lexicographically ascending.
func outputLess(a, b *wire.TxOut) bool {
	if a.Value != b.Value {
		return a.Value < b.Value
	}
	return bytes.Compare(a.PkScript, b.PkScript) < 0
}

// inputLess is the BIP-69 input order: previous txid ascending in
// big-endian (reversed display) byte order, then previous vout ascending.
func inputLess(a, b *wire.TxIn) bool {
	aHash := a.PreviousOutPoint.Hash
	bHash := b.PreviousOutPoint.Hash
	for i := len(aHash) - 1; i >= 0; i-- {
		if aHash[i] != bHash[i] {
			return aHash[i] < bHash[i]
		}
	}
	return a.PreviousOutPoint.Index < b.PreviousOutPoint.Index
}

// sortCommitOutputs orders outs in place and returns the permutation it
// applied, mapping each output's old position to its new one.
func sortCommitOutputs(outs []txgraph.CommitOutput) []int {
	order := make([]int, len(outs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return outputLess(outs[order[i]].TxOut, outs[order[j]].TxOut)
	})

	sorted := make([]txgraph.CommitOutput, len(outs))
	perm := make([]int, len(outs))
	for newPos, oldPos := range order {
		sorted[newPos] = outs[oldPos]
		perm[oldPos] = newPos
	}
	copy(outs, sorted)

	return perm
}

// sortPacket orders a PSBT's inputs and outputs, carrying the per-input and
// per-output PSBT metadata along with its transaction counterpart.
func sortPacket(p *psbt.Packet) {
	tx := p.UnsignedTx

	inOrder := make([]int, len(tx.TxIn))
	for i := range inOrder {
		inOrder[i] = i
	}
	sort.SliceStable(inOrder, func(i, j int) bool {
		return inputLess(tx.TxIn[inOrder[i]], tx.TxIn[inOrder[j]])
	})

	outOrder := make([]int, len(tx.TxOut))
	for i := range outOrder {
		outOrder[i] = i
	}
	sort.SliceStable(outOrder, func(i, j int) bool {
		return outputLess(tx.TxOut[outOrder[i]], tx.TxOut[outOrder[j]])
	})

	newTxIn := make([]*wire.TxIn, len(tx.TxIn))
	newPIn := make([]psbt.PInput, len(tx.TxIn))
	for to, from := range inOrder {
		newTxIn[to] = tx.TxIn[from]
		if from < len(p.Inputs) {
			newPIn[to] = p.Inputs[from]
		}
	}

	newTxOut := make([]*wire.TxOut, len(tx.TxOut))
	newPOut := make([]psbt.POutput, len(tx.TxOut))
	for to, from := range outOrder {
		newTxOut[to] = tx.TxOut[from]
		if from < len(p.Outputs) {
			newPOut[to] = p.Outputs[from]
		}
	}

	tx.TxIn = newTxIn
	tx.TxOut = newTxOut
	p.Inputs = newPIn
	p.Outputs = newPOut
}
