package bifrost

import (
	"bytes"
	"encoding/hex"
	"testing"
)

// TestMsgRoundTrip checks the app-tagged framing round trips and matches
// its fixed layout.
func TestMsgRoundTrip(t *testing.T) {
	t.Parallel()

	msg := &Msg{App: AppChannel, Payload: []byte{0xde, 0xad, 0xbe, 0xef}}

	var b bytes.Buffer
	if err := msg.Encode(&b); err != nil {
		t.Fatalf("unable to encode msg: %v", err)
	}

	want, _ := hex.DecodeString("0001" + "0004" + "deadbeef")
	if !bytes.Equal(b.Bytes(), want) {
		t.Fatalf("msg encoded to %x, want %x", b.Bytes(), want)
	}

	var decoded Msg
	if err := decoded.Decode(bytes.NewReader(b.Bytes())); err != nil {
		t.Fatalf("unable to decode msg: %v", err)
	}
	if decoded.App != msg.App || !bytes.Equal(decoded.Payload, msg.Payload) {
		t.Fatalf("msg round trip yielded %+v", decoded)
	}
}

// TestRoleAliases pins the commitment/refund role identity.
func TestRoleAliases(t *testing.T) {
	t.Parallel()

	if TxRoleCommitment != TxRoleRefund {
		t.Fatalf("the first commitment revision is the refund transaction")
	}
	if TxRoleFunding == TxRoleRefund {
		t.Fatalf("funding and refund roles collide")
	}
}
