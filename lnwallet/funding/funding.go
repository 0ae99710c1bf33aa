// Package funding wraps the partially-signed funding transaction that
// anchors a channel, locating the single output that carries the
// channel's proprietary funding marker.
package funding

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// MarkerKeyPrefix is the 3-byte proprietary-type prefix identifying the
// channel-funding output.
var MarkerKeyPrefix = [3]byte{'L', 'N', 'P'}

// MarkerSubtype is the proprietary subtype following the prefix.
const MarkerSubtype = 0x01

// ErrNoFundingOutput is returned when no output of a PSBT carries the
// funding marker.
var ErrNoFundingOutput = fmt.Errorf("psbt carries no channel-funding output marker")

// ErrWrongOutput is returned when a caller asks to mark an output index
// that does not exist in the PSBT.
type ErrWrongOutput struct {
	Vout int
}

func (e *ErrWrongOutput) Error() string {
	return fmt.Sprintf("psbt has no output at index %d", e.Vout)
}

// marker renders the PSBT proprietary key identifying the funding output:
// the raw "LNP" identifier bytes followed by subtype 1, with no length
// prefix, no further key payload, and an empty value.
func marker() *psbt.Unknown {
	return &psbt.Unknown{
		Key:   append(append([]byte{}, MarkerKeyPrefix[:]...), MarkerSubtype),
		Value: nil,
	}
}

func isMarker(u *psbt.Unknown) bool {
	return len(u.Key) == len(MarkerKeyPrefix)+1 &&
		bytes.Equal(u.Key[:len(MarkerKeyPrefix)], MarkerKeyPrefix[:]) &&
		u.Key[len(MarkerKeyPrefix)] == MarkerSubtype
}

// Funding wraps the partially-signed funding transaction anchoring a
// channel. Before the real funding is known it is an empty placeholder
// carrying only a planned amount.
type Funding struct {
	psbt   *psbt.Packet
	txid   chainhash.Hash
	index  uint32
	amount btcutil.Amount

	// NumSigners and Threshold describe the funding output's
	// multi-signature requirement, ordinarily 2-of-2.
	NumSigners int
	Threshold  int
}

// New returns an empty placeholder Funding: a dummy single-output
// transaction with the funding marker attached to output 0.
func New() *Funding {
	tx := wire.NewMsgTx(2)
	tx.AddTxOut(&wire.TxOut{Value: 0, PkScript: nil})

	p, err := psbt.NewFromUnsignedTx(tx)
	if err != nil {
		// A freshly built single-output transaction is always valid
		// PSBT input; this can only fail on a malformed wire.MsgTx.
		panic(err)
	}
	p.Outputs[0].Unknowns = append(p.Outputs[0].Unknowns, marker())

	return &Funding{psbt: p, NumSigners: 2, Threshold: 2}
}

// Preliminary is New with amount stashed for pre-funding commitment
// planning, before the real funding transaction is known.
func Preliminary(amount btcutil.Amount) *Funding {
	f := New()
	f.amount = amount
	return f
}

// With locates the unique marked output of p, caching its index and value.
// It replaces the channel's placeholder Funding once the real funding
// transaction exists.
func With(p *psbt.Packet) (*Funding, error) {
	idx, err := findMarkedOutput(p)
	if err != nil {
		return nil, err
	}

	f := &Funding{
		psbt:       p,
		index:      uint32(idx),
		amount:     btcutil.Amount(p.UnsignedTx.TxOut[idx].Value),
		NumSigners: 2,
		Threshold:  2,
	}
	f.txid = p.UnsignedTx.TxHash()

	return f, nil
}

func findMarkedOutput(p *psbt.Packet) (int, error) {
	found := -1
	for i, out := range p.Outputs {
		for _, u := range out.Unknowns {
			if isMarker(u) {
				if found != -1 {
					return -1, fmt.Errorf("psbt carries more than one funding marker")
				}
				found = i
			}
		}
	}
	if found == -1 {
		return -1, ErrNoFundingOutput
	}
	return found, nil
}

// SetChannelFundingOutput attaches the funding marker to output vout of p.
func SetChannelFundingOutput(p *psbt.Packet, vout int) error {
	if vout < 0 || vout >= len(p.Outputs) {
		return &ErrWrongOutput{Vout: vout}
	}
	p.Outputs[vout].Unknowns = append(p.Outputs[vout].Unknowns, marker())
	return nil
}

// Psbt returns the underlying partially-signed transaction. The channel
// that owns a Funding is the only legitimate holder of this pointer; it
// must not be aliased elsewhere.
func (f *Funding) Psbt() *psbt.Packet {
	return f.psbt
}

// TxID returns the funding transaction's txid.
func (f *Funding) TxID() chainhash.Hash {
	return f.txid
}

// OutputIndex returns the index of the marked funding output.
func (f *Funding) OutputIndex() uint32 {
	return f.index
}

// Amount returns the funded amount in satoshis.
func (f *Funding) Amount() btcutil.Amount {
	return f.amount
}

// OutPoint returns the funding outpoint (txid, output index).
func (f *Funding) OutPoint() wire.OutPoint {
	return wire.OutPoint{Hash: f.txid, Index: f.index}
}

// Output returns the marked funding TxOut, carrying the witness script
// metadata a commitment transaction's sole input spends.
func (f *Funding) Output() *wire.TxOut {
	return f.psbt.UnsignedTx.TxOut[f.index]
}

// WitnessScript returns the redeem script recorded against the funding
// output in the PSBT, i.e. the 2-of-2 multisig script.
func (f *Funding) WitnessScript() []byte {
	return f.psbt.Outputs[f.index].WitnessScript
}
