package lnwire

import (
	"bytes"
	"encoding/hex"
	"net"
	"reflect"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

var (
	testChainHash = chainhash.Hash{
		0x6f, 0xe2, 0x8c, 0x0a, 0xb6, 0xf1, 0xb3, 0x72,
		0xc1, 0xa6, 0xa2, 0x46, 0xae, 0x63, 0xf7, 0x4f,
		0x93, 0x1e, 0x83, 0x65, 0xe1, 0x5a, 0x08, 0x9c,
		0x68, 0xd6, 0x19, 0x00, 0x00, 0x00, 0x00, 0x00,
	}

	testChanID = ChannelID{
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
		0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10,
		0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18,
		0x19, 0x1a, 0x1b, 0x1c, 0x1d, 0x1e, 0x1f, 0x20,
	}

	testSig = Sig{
		0xaa, 0xbb, 0xcc, 0xdd, 0x01, 0x02, 0x03, 0x04,
	}
)

func testPubKey(t *testing.T, fill byte) *btcec.PublicKey {
	t.Helper()

	var raw [32]byte
	for i := range raw {
		raw[i] = fill
	}
	priv, _ := btcec.PrivKeyFromBytes(raw[:])
	return priv.PubKey()
}

// assertRoundTrip writes msg, reads it back, and requires the re-encoding
// to be byte-identical to the first.
func assertRoundTrip(t *testing.T, msg Message) {
	t.Helper()

	var first bytes.Buffer
	if _, err := WriteMessage(&first, msg, 0); err != nil {
		t.Fatalf("unable to write %v: %v", msg.MsgType(), err)
	}

	decoded, err := ReadMessage(bytes.NewReader(first.Bytes()), 0)
	if err != nil {
		t.Fatalf("unable to read %v back: %v", msg.MsgType(), err)
	}
	if decoded.MsgType() != msg.MsgType() {
		t.Fatalf("read back type %v, wrote %v", decoded.MsgType(),
			msg.MsgType())
	}

	var second bytes.Buffer
	if _, err := WriteMessage(&second, decoded, 0); err != nil {
		t.Fatalf("unable to re-encode %v: %v", msg.MsgType(), err)
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Fatalf("%v re-encoding differs:\n first: %x\nsecond: %x",
			msg.MsgType(), first.Bytes(), second.Bytes())
	}
}

// TestMessageRoundTrip exercises every recognized message type through a
// full write/read/re-write cycle.
func TestMessageRoundTrip(t *testing.T) {
	t.Parallel()

	pk1 := testPubKey(t, 0x11)
	pk2 := testPubKey(t, 0x22)
	pk3 := testPubKey(t, 0x33)
	pk4 := testPubKey(t, 0x44)
	pk5 := testPubKey(t, 0x55)
	pk6 := testPubKey(t, 0x66)

	var onion [OnionPacketSize]byte
	onion[0] = 0x02

	chanType := ChannelType{StaticRemoteKey: true}

	msgs := []Message{
		&Init{
			GlobalFeatures: NewRawFeatureVector(),
			Features: NewRawFeatureVector(DataLossProtectOptional,
				StaticRemoteKeyOptional),
		},
		&Error{ChanID: testChanID, Data: []byte("out of sync")},
		&Ping{NumPongBytes: 32, PaddingBytes: []byte{0x00, 0x01}},
		&Pong{PaddingBytes: make([]byte, 32)},
		&OpenChannel{
			ChainHash:            testChainHash,
			PendingChannelID:     testChanID,
			FundingAmount:        10_000_000,
			PushAmount:           1_000,
			DustLimit:            546,
			MaxValueInFlight:     5_000_000_000,
			ChannelReserve:       100_000,
			HtlcMinimum:          1,
			FeePerKiloWeight:     2500,
			CSVDelay:             144,
			MaxAcceptedHTLCs:     483,
			FundingKey:           pk1,
			RevocationPoint:      pk2,
			PaymentPoint:         pk3,
			DelayedPaymentPoint:  pk4,
			HtlcPoint:            pk5,
			FirstCommitmentPoint: pk6,
			ChannelFlags:         1,
			ChannelType:          &chanType,
		},
		&AcceptChannel{
			PendingChannelID:     testChanID,
			DustLimit:            546,
			MaxValueInFlight:     5_000_000_000,
			ChannelReserve:       100_000,
			HtlcMinimum:          1,
			MinAcceptDepth:       3,
			CSVDelay:             144,
			MaxAcceptedHTLCs:     483,
			FundingKey:           pk1,
			RevocationPoint:      pk2,
			PaymentPoint:         pk3,
			DelayedPaymentPoint:  pk4,
			HtlcPoint:            pk5,
			FirstCommitmentPoint: pk6,
		},
		&FundingCreated{
			PendingChannelID:   testChanID,
			FundingTxID:        testChainHash,
			FundingOutputIndex: 1,
			CommitSig:          testSig,
		},
		&FundingSigned{ChanID: testChanID, CommitSig: testSig},
		&FundingLocked{ChanID: testChanID, NextPerCommitmentPoint: pk1},
		&Shutdown{ChannelID: testChanID, Address: []byte{0x00, 0x14, 0xde,
			0xad, 0xbe, 0xef, 0xde, 0xad, 0xbe, 0xef, 0xde, 0xad, 0xbe,
			0xef, 0xde, 0xad, 0xbe, 0xef, 0xde, 0xad, 0xbe, 0xef}},
		&ClosingSigned{
			ChannelID:   testChanID,
			FeeSatoshis: 1500,
			Signature:   testSig,
		},
		&UpdateAddHTLC{
			ChanID:      testChanID,
			ID:          7,
			Amount:      100_000,
			PaymentHash: [32]byte{0x77},
			Expiry:      500_000,
			OnionBlob:   onion,
		},
		&UpdateFulfillHTLC{
			ChanID:          testChanID,
			ID:              7,
			PaymentPreimage: [32]byte{0x88},
		},
		&UpdateFailHTLC{ChanID: testChanID, ID: 7, Reason: []byte{0xde, 0xad}},
		&UpdateFailMalformedHTLC{
			ChanID:       testChanID,
			ID:           7,
			ShaOnionHash: [32]byte{0x99},
			FailureCode:  0x4001,
		},
		&CommitSig{
			ChanID:    testChanID,
			CommitSig: testSig,
			HtlcSigs:  []Sig{testSig, testSig},
		},
		&RevokeAndAck{
			ChanID:                 testChanID,
			Revocation:             [32]byte{0xab},
			NextPerCommitmentPoint: pk2,
		},
		&UpdateFee{ChanID: testChanID, FeePerKw: 5000},
		&ChannelReestablish{
			ChanID:                    testChanID,
			NextLocalCommitHeight:     4,
			RemoteCommitTailHeight:    3,
			LastRemoteCommitSecret:    [32]byte{0xcd},
			LocalUnrevokedCommitPoint: pk3,
		},
		&ChannelAnnouncement{
			NodeSig1:       testSig,
			NodeSig2:       testSig,
			BitcoinSig1:    testSig,
			BitcoinSig2:    testSig,
			Features:       NewRawFeatureVector(),
			ChainHash:      testChainHash,
			ShortChannelID: ShortChannelID{BlockHeight: 1, TxIndex: 2, TxPosition: 3},
			NodeID1:        pk1,
			NodeID2:        pk2,
			BitcoinKey1:    pk3,
			BitcoinKey2:    pk4,
		},
		&NodeAnnouncement{
			Signature: testSig,
			Features:  NewRawFeatureVector(DataLossProtectOptional),
			Timestamp: 1234567,
			NodeID:    pk1,
			RGBColor:  RGB{Red: 1, Green: 2, Blue: 3},
			Alias:     NewAlias("lnpcore-node"),
			Addresses: []net.Addr{
				&net.TCPAddr{IP: net.IP{0x7f, 0x00, 0x00, 0x01}, Port: 9735},
			},
		},
		&ChannelUpdate{
			Signature:       testSig,
			ChainHash:       testChainHash,
			ShortChannelID:  ShortChannelID{BlockHeight: 1, TxIndex: 2, TxPosition: 3},
			Timestamp:       1234567,
			MessageFlags:    1,
			ChannelFlags:    ChanUpdateDirection,
			TimeLockDelta:   40,
			HtlcMinimumMsat: 1000,
			BaseFee:         1,
			FeeRate:         100,
			HtlcMaximumMsat: 1_000_000_000,
		},
		&AnnounceSignatures{
			ChanID:           testChanID,
			ShortChannelID:   ShortChannelID{BlockHeight: 4, TxIndex: 5, TxPosition: 6},
			NodeSignature:    testSig,
			BitcoinSignature: testSig,
		},
		&QueryShortChanIDs{
			ChainHash: testChainHash,
			ShortChanIDs: []ShortChannelID{
				{BlockHeight: 1, TxIndex: 1, TxPosition: 0},
				{BlockHeight: 2, TxIndex: 1, TxPosition: 1},
			},
		},
		&ReplyShortChanIDsEnd{ChainHash: testChainHash, Complete: true},
		&QueryChannelRange{
			ChainHash:        testChainHash,
			FirstBlockHeight: 500_000,
			NumBlocks:        1000,
		},
		&ReplyChannelRange{
			ChainHash:        testChainHash,
			FirstBlockHeight: 500_000,
			NumBlocks:        1000,
			Complete:         true,
			ShortChanIDs: []ShortChannelID{
				{BlockHeight: 500_001, TxIndex: 12, TxPosition: 1},
			},
		},
		&GossipTimestampFilter{
			ChainHash:      testChainHash,
			FirstTimestamp: 1234567,
			TimestampRange: 3600,
		},
	}

	for _, msg := range msgs {
		assertRoundTrip(t, msg)
	}
}

// TestInitWireEncoding pins the framing of an Init with empty feature
// vectors: message type 16, then two zero-length u16-prefixed vectors.
func TestInitWireEncoding(t *testing.T) {
	t.Parallel()

	init := &Init{
		GlobalFeatures: NewRawFeatureVector(),
		Features:       NewRawFeatureVector(),
	}

	var b bytes.Buffer
	if _, err := WriteMessage(&b, init, 0); err != nil {
		t.Fatalf("unable to write init: %v", err)
	}

	want, _ := hex.DecodeString("001000000000")
	if !bytes.Equal(b.Bytes(), want) {
		t.Fatalf("init encoded to %x, want %x", b.Bytes(), want)
	}

	decoded, err := ReadMessage(bytes.NewReader(b.Bytes()), 0)
	if err != nil {
		t.Fatalf("unable to read init back: %v", err)
	}
	if !reflect.DeepEqual(decoded.(*Init).Features.rawBytes(),
		init.Features.rawBytes()) {

		t.Fatalf("init round trip altered the feature vector")
	}
}

// TestChannelIDDerivation checks the txid-XOR-index derivation and the
// all-zero wildcard.
func TestChannelIDDerivation(t *testing.T) {
	t.Parallel()

	op := &wire.OutPoint{Hash: testChainHash, Index: 0x0205}
	cid := NewChanIDFromOutPoint(op)

	var want ChannelID
	copy(want[:], testChainHash[:])
	want[30] ^= 0x02
	want[31] ^= 0x05
	if cid != want {
		t.Fatalf("channel id derived as %v, want %v", cid, want)
	}

	if !(ChannelID{}).IsZero() {
		t.Fatalf("all-zero channel id not recognized as wildcard")
	}
	if cid.IsZero() {
		t.Fatalf("non-zero channel id reported as wildcard")
	}
}

// TestShortChannelID checks the 8-byte round trip and the block-height
// bound.
func TestShortChannelID(t *testing.T) {
	t.Parallel()

	scid := ShortChannelID{BlockHeight: 0x000001, TxIndex: 0x000002, TxPosition: 0x0003}

	var b bytes.Buffer
	if err := scid.Encode(&b); err != nil {
		t.Fatalf("unable to encode short channel id: %v", err)
	}
	want, _ := hex.DecodeString("0000010000020003")
	if !bytes.Equal(b.Bytes(), want) {
		t.Fatalf("short channel id encoded to %x, want %x", b.Bytes(), want)
	}

	var decoded ShortChannelID
	if err := decoded.Decode(bytes.NewReader(b.Bytes())); err != nil {
		t.Fatalf("unable to decode short channel id: %v", err)
	}
	if decoded != scid {
		t.Fatalf("short channel id round trip yielded %v, want %v",
			decoded, scid)
	}

	overflow := ShortChannelID{BlockHeight: 1 << 24}
	var discard bytes.Buffer
	if err := overflow.Encode(&discard); err == nil {
		t.Fatalf("block height 2^24 should not encode")
	}
}

// TestUnknownMessageRejected checks that framing rejects unrecognized tags.
func TestUnknownMessageRejected(t *testing.T) {
	t.Parallel()

	raw, _ := hex.DecodeString("EEEE00")
	if _, err := ReadMessage(bytes.NewReader(raw), 0); err == nil {
		t.Fatalf("unknown message tag should fail the framing layer")
	}
}
