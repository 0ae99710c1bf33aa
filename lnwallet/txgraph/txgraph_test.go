package txgraph

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/wire"

	"github.com/lnp-go/lnpcore/lnwallet/funding"
)

func childPsbt(t *testing.T, value int64) *psbt.Packet {
	t.Helper()

	tx := wire.NewMsgTx(2)
	tx.AddTxIn(&wire.TxIn{})
	tx.AddTxOut(&wire.TxOut{Value: value, PkScript: []byte{0x51}})
	p, err := psbt.NewFromUnsignedTx(tx)
	if err != nil {
		t.Fatalf("unable to build child psbt: %v", err)
	}
	return p
}

// TestRenderOrder checks that Render emits the commitment first, then
// dependents in (role, index) order.
func TestRenderOrder(t *testing.T) {
	t.Parallel()

	g := New(funding.Preliminary(1_000_000))
	g.CmtOuts = append(g.CmtOuts, CommitOutput{
		TxOut: &wire.TxOut{Value: 900_000, PkScript: []byte{0x00, 0x20}},
	})

	g.InsertTx(RoleHtlcTimeout, 1, childPsbt(t, 2))
	g.InsertTx(RoleHtlcSuccess, 5, childPsbt(t, 1))
	g.InsertTx(RoleHtlcTimeout, 0, childPsbt(t, 3))

	rendered, err := g.Render()
	if err != nil {
		t.Fatalf("unable to render graph: %v", err)
	}

	if len(rendered) != 4 {
		t.Fatalf("rendered %d transactions, want 4", len(rendered))
	}

	// Commitment first: single input spending the funding outpoint.
	if rendered[0].UnsignedTx.TxIn[0].PreviousOutPoint != g.Funding().OutPoint() {
		t.Fatalf("first rendered transaction does not spend the funding")
	}

	// Then success#5, timeout#0, timeout#1, each bound to the
	// commitment's txid.
	cmtTxID := rendered[0].UnsignedTx.TxHash()
	wantValues := []int64{1, 3, 2}
	for i, want := range wantValues {
		if rendered[i+1].UnsignedTx.TxOut[0].Value != want {
			t.Fatalf("dependent %d rendered out of order", i)
		}
		if rendered[i+1].UnsignedTx.TxIn[0].PreviousOutPoint.Hash != cmtTxID {
			t.Fatalf("dependent %d does not spend the commitment", i)
		}
	}
}

// TestLastIndex checks the per-role index bookkeeping.
func TestLastIndex(t *testing.T) {
	t.Parallel()

	g := New(funding.Preliminary(1_000))

	if _, ok := g.LastIndex(RoleHtlcSuccess); ok {
		t.Fatalf("empty role reported an index")
	}

	g.InsertTx(RoleHtlcSuccess, 3, childPsbt(t, 1))
	g.InsertTx(RoleHtlcSuccess, 9, childPsbt(t, 1))
	g.InsertTx(RoleHtlcSuccess, 4, childPsbt(t, 1))

	last, ok := g.LastIndex(RoleHtlcSuccess)
	if !ok || last != 9 {
		t.Fatalf("last index %d, want 9", last)
	}

	if _, ok := g.Tx(RoleHtlcSuccess, 4); !ok {
		t.Fatalf("inserted template not retrievable")
	}
	if _, ok := g.Tx(RoleHtlcTimeout, 4); ok {
		t.Fatalf("template leaked across roles")
	}
}

// TestCoalesce checks that duplicate script/witness pairs merge by summing
// amounts.
func TestCoalesce(t *testing.T) {
	t.Parallel()

	g := New(funding.Preliminary(1_000))
	g.CmtOuts = []CommitOutput{
		{TxOut: &wire.TxOut{Value: 10, PkScript: []byte{0xaa}},
			WitnessScript: []byte{0x51}},
		{TxOut: &wire.TxOut{Value: 20, PkScript: []byte{0xbb}},
			WitnessScript: []byte{0x51}},
		{TxOut: &wire.TxOut{Value: 30, PkScript: []byte{0xaa}},
			WitnessScript: []byte{0x51}},
	}

	g.CoalesceCmtOuts()

	if len(g.CmtOuts) != 2 {
		t.Fatalf("coalesced to %d outputs, want 2", len(g.CmtOuts))
	}
	if g.CmtOuts[0].TxOut.Value != 40 {
		t.Fatalf("merged output value %d, want 40", g.CmtOuts[0].TxOut.Value)
	}
}
