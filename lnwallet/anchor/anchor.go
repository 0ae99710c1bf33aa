// Package anchor implements the extender installed when the negotiated
// channel type carries option_anchor_outputs: it appends the two fixed
// 330-satoshi anchor outputs that let either side fee-bump a confirmed
// commitment through CPFP.
package anchor

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/lnp-go/lnpcore/lnwallet/extension"
	"github.com/lnp-go/lnpcore/lnwallet/txgraph"
)

// AnchorSize is the fixed value of each anchor output, in satoshis.
const AnchorSize = 330

// FundingKeys is the narrow view of the constructor the anchor extender
// needs: the two funding public keys each anchor pays to.
type FundingKeys interface {
	LocalFundingKey() *btcec.PublicKey
	RemoteFundingKey() *btcec.PublicKey
}

// Extension appends the two anchor outputs while the graph is built. It
// carries no negotiation state of its own beyond the funding keys it reads
// from the constructor.
type Extension struct {
	keys FundingKeys
}

// New returns the anchor extender reading its funding keys from keys.
func New(keys FundingKeys) *Extension {
	return &Extension{keys: keys}
}

var _ extension.Extension = (*Extension)(nil)
var _ extension.GraphBuilder = (*Extension)(nil)
var _ extension.StateStore = (*Extension)(nil)

// Identity implements extension.Extension.
func (a *Extension) Identity() extension.Identity {
	return extension.IdentityAnchor
}

// Script generates the anchor witness script for the given funding key:
// spendable by the key's owner at any time, or by anyone after 16 blocks,
// which keeps spent commitments from littering the utxo set.
//
//	<fundingKey> OP_CHECKSIG OP_IFDUP OP_NOTIF 16 OP_CHECKSEQUENCEVERIFY OP_ENDIF
func Script(fundingKey *btcec.PublicKey) ([]byte, error) {
	builder := txscript.NewScriptBuilder()

	builder.AddData(fundingKey.SerializeCompressed())
	builder.AddOp(txscript.OP_CHECKSIG)
	builder.AddOp(txscript.OP_IFDUP)
	builder.AddOp(txscript.OP_NOTIF)
	builder.AddOp(txscript.OP_16)
	builder.AddOp(txscript.OP_CHECKSEQUENCEVERIFY)
	builder.AddOp(txscript.OP_ENDIF)

	return builder.Script()
}

// BuildGraph implements extension.GraphBuilder: one anchor per funding key,
// appended after the balance and HTLC outputs.
func (a *Extension) BuildGraph(g *txgraph.TxGraph, asRemoteNode bool) error {
	local := a.keys.LocalFundingKey()
	remote := a.keys.RemoteFundingKey()
	if asRemoteNode {
		local, remote = remote, local
	}

	for _, key := range []*btcec.PublicKey{local, remote} {
		script, err := Script(key)
		if err != nil {
			return err
		}

		scriptHash := sha256.Sum256(script)
		builder := txscript.NewScriptBuilder()
		builder.AddOp(txscript.OP_0)
		builder.AddData(scriptHash[:])
		pkScript, err := builder.Script()
		if err != nil {
			return err
		}

		g.CmtOuts = append(g.CmtOuts, txgraph.CommitOutput{
			TxOut: &wire.TxOut{
				Value:    AnchorSize,
				PkScript: pkScript,
			},
			WitnessScript: script,
		})
	}

	return nil
}

// StoreState implements extension.StateStore. The anchor extender is fully
// derived from the constructor's keys, so its state slice is empty.
func (a *Extension) StoreState(state extension.State) error {
	state[extension.IdentityAnchor] = nil
	return nil
}

// LoadState implements extension.StateStore.
func (a *Extension) LoadState(state extension.State) error {
	return nil
}
