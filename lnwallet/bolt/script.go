package bolt

import (
	"bytes"
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
)

// witnessScriptHash generates a pay-to-witness-script-hash public key script
// paying to a version 0 witness program containing the sha256 of the passed
// witness script.
func witnessScriptHash(witnessScript []byte) ([]byte, error) {
	builder := txscript.NewScriptBuilder()

	builder.AddOp(txscript.OP_0)
	scriptHash := sha256.Sum256(witnessScript)
	builder.AddData(scriptHash[:])
	return builder.Script()
}

// FundingWitnessScript generates the witness script for the channel funding
// output: a 2-of-2 multisig with the two funding public keys sorted in
// lexicographic order of their compressed serialization.
func FundingWitnessScript(localKey, remoteKey *btcec.PublicKey) ([]byte, error) {
	localSer := localKey.SerializeCompressed()
	remoteSer := remoteKey.SerializeCompressed()

	first, second := localSer, remoteSer
	if bytes.Compare(localSer, remoteSer) > 0 {
		first, second = remoteSer, localSer
	}

	builder := txscript.NewScriptBuilder()
	builder.AddOp(txscript.OP_2)
	builder.AddData(first)
	builder.AddData(second)
	builder.AddOp(txscript.OP_2)
	builder.AddOp(txscript.OP_CHECKMULTISIG)

	return builder.Script()
}

// FundingScript returns both the funding witness script and the P2WSH
// public key script the funding output carries on chain.
func FundingScript(localKey, remoteKey *btcec.PublicKey) (witnessScript,
	pkScript []byte, err error) {

	witnessScript, err = FundingWitnessScript(localKey, remoteKey)
	if err != nil {
		return nil, nil, err
	}

	pkScript, err = witnessScriptHash(witnessScript)
	if err != nil {
		return nil, nil, err
	}

	return witnessScript, pkScript, nil
}

// ToLocalScript generates the witness script for the to-local commitment
// output: the owner may sweep it after csvDelay blocks with its delayed
// payment key, while the counterparty may sweep it immediately with the
// revocation key once the commitment has been revoked.
//
// Output script:
//
//	OP_IF
//	    <revocationKey>
//	OP_ELSE
//	    <csvDelay> OP_CHECKSEQUENCEVERIFY OP_DROP
//	    <delayKey>
//	OP_ENDIF
//	OP_CHECKSIG
func ToLocalScript(revocationKey, delayKey *btcec.PublicKey,
	csvDelay uint16) ([]byte, error) {

	builder := txscript.NewScriptBuilder()

	builder.AddOp(txscript.OP_IF)
	builder.AddData(revocationKey.SerializeCompressed())
	builder.AddOp(txscript.OP_ELSE)
	builder.AddInt64(int64(csvDelay))
	builder.AddOp(txscript.OP_CHECKSEQUENCEVERIFY)
	builder.AddOp(txscript.OP_DROP)
	builder.AddData(delayKey.SerializeCompressed())
	builder.AddOp(txscript.OP_ENDIF)
	builder.AddOp(txscript.OP_CHECKSIG)

	return builder.Script()
}

// ToRemoteV1Script generates the public key script for the legacy to-remote
// commitment output: a plain P2WPKH paying the (tweaked) remote payment
// key, with no witness script.
func ToRemoteV1Script(remoteKey *btcec.PublicKey) ([]byte, error) {
	keyHash := btcutil.Hash160(remoteKey.SerializeCompressed())

	builder := txscript.NewScriptBuilder()
	builder.AddOp(txscript.OP_0)
	builder.AddData(keyHash)
	return builder.Script()
}

// ToRemoteV2Script generates the witness script for the anchors-era
// to-remote commitment output, which is confirmation-delayed by one block
// to keep it distinguishable from an anchor:
//
//	<remoteKey> OP_CHECKSIGVERIFY 1 OP_CHECKSEQUENCEVERIFY
func ToRemoteV2Script(remoteKey *btcec.PublicKey) ([]byte, error) {
	builder := txscript.NewScriptBuilder()

	builder.AddData(remoteKey.SerializeCompressed())
	builder.AddOp(txscript.OP_CHECKSIGVERIFY)
	builder.AddOp(txscript.OP_1)
	builder.AddOp(txscript.OP_CHECKSEQUENCEVERIFY)

	return builder.Script()
}
