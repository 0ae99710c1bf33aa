package addr

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
)

func testNodeKey() *btcec.PublicKey {
	var raw [32]byte
	raw[31] = 0x01
	priv, _ := btcec.PrivKeyFromBytes(raw[:])
	return priv.PubKey()
}

// TestParseRoundTrip checks the canonical form survives a parse/render
// cycle.
func TestParseRoundTrip(t *testing.T) {
	t.Parallel()

	orig := Bolt(testNodeKey(), "203.0.113.7", 9736)

	parsed, err := Parse(orig.String())
	if err != nil {
		t.Fatalf("unable to parse %q: %v", orig.String(), err)
	}

	if parsed.Protocol != ProtocolBolt || parsed.Port != 9736 ||
		parsed.Host != "203.0.113.7" ||
		!parsed.NodeID.IsEqual(orig.NodeID) {

		t.Fatalf("round trip of %q yielded %q", orig.String(),
			parsed.String())
	}
}

// TestDefaultPorts checks the per-protocol port defaulting when the
// address omits one.
func TestDefaultPorts(t *testing.T) {
	t.Parallel()

	nodeHex := "031b84c5567b126440995d3ed5aaba0565d71e1834604819ff9c17f5e9d5dd078f"

	bolt, err := Parse("bolt://" + nodeHex + "@lnd.example.org")
	if err != nil {
		t.Fatalf("unable to parse bolt address: %v", err)
	}
	if bolt.Port != 9735 {
		t.Fatalf("bolt default port %d, want 9735", bolt.Port)
	}

	bifrost, err := Parse("bifrost://" + nodeHex + "@lnp.example.org")
	if err != nil {
		t.Fatalf("unable to parse bifrost address: %v", err)
	}
	if bifrost.Port != 9999 {
		t.Fatalf("bifrost default port %d, want 9999", bifrost.Port)
	}
}

// TestParseRejections drives the malformed-address errors.
func TestParseRejections(t *testing.T) {
	t.Parallel()

	nodeHex := "031b84c5567b126440995d3ed5aaba0565d71e1834604819ff9c17f5e9d5dd078f"

	bad := []string{
		"example.org:9735",                   // no scheme
		"http://" + nodeHex + "@example.org", // unknown scheme
		"bolt://example.org:9735",            // no node id
		"bolt://zzzz@example.org",            // node id not hex
		"bolt://0303@example.org",            // node id not a point
		"bolt://" + nodeHex + "@",            // no host
	}

	for _, s := range bad {
		if _, err := Parse(s); err == nil {
			t.Fatalf("malformed address %q accepted", s)
		}
	}
}
