// Package addr parses and renders the canonical channel endpoint address a
// host uses to identify a peer: <protocol>://<node-id>@<host>[:<port>],
// with the port defaulting per protocol.
package addr

import (
	"encoding/hex"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/go-errors/errors"

	"github.com/lnp-go/lnpcore/bifrost"
)

// Protocol selects which peer protocol an address speaks.
type Protocol uint8

const (
	// ProtocolBolt is the legacy BOLT peer protocol.
	ProtocolBolt Protocol = iota

	// ProtocolBifrost is the generalized multi-peer protocol.
	ProtocolBifrost
)

// BoltPort is the default TCP port BOLT peers listen on.
const BoltPort = 9735

// String returns the protocol's URL scheme.
func (p Protocol) String() string {
	if p == ProtocolBifrost {
		return "bifrost"
	}
	return "bolt"
}

// DefaultPort returns the port assumed when an address omits one.
func (p Protocol) DefaultPort() uint16 {
	if p == ProtocolBifrost {
		return bifrost.Port
	}
	return BoltPort
}

// LnpAddr is a fully resolved channel endpoint.
type LnpAddr struct {
	Protocol Protocol
	NodeID   *btcec.PublicKey
	Host     string
	Port     uint16
}

// Bolt returns a BOLT endpoint address.
func Bolt(nodeID *btcec.PublicKey, host string, port uint16) LnpAddr {
	if port == 0 {
		port = BoltPort
	}
	return LnpAddr{Protocol: ProtocolBolt, NodeID: nodeID, Host: host, Port: port}
}

// Bifrost returns a Bifrost endpoint address.
func Bifrost(nodeID *btcec.PublicKey, host string, port uint16) LnpAddr {
	if port == 0 {
		port = bifrost.Port
	}
	return LnpAddr{Protocol: ProtocolBifrost, NodeID: nodeID, Host: host, Port: port}
}

// String renders the canonical form, always including the port.
func (a LnpAddr) String() string {
	return fmt.Sprintf("%v://%x@%s", a.Protocol,
		a.NodeID.SerializeCompressed(),
		net.JoinHostPort(a.Host, strconv.Itoa(int(a.Port))))
}

// Parse decodes a canonical channel address. The port is optional and
// defaults per protocol; the node id is a 33-byte compressed public key in
// hex.
func Parse(s string) (LnpAddr, error) {
	var addr LnpAddr

	scheme, rest, found := strings.Cut(s, "://")
	if !found {
		return addr, errors.Errorf("channel address %q lacks a "+
			"protocol scheme", s)
	}
	switch scheme {
	case "bolt":
		addr.Protocol = ProtocolBolt
	case "bifrost":
		addr.Protocol = ProtocolBifrost
	default:
		return addr, errors.Errorf("unknown channel address protocol %q",
			scheme)
	}

	nodePart, hostPart, found := strings.Cut(rest, "@")
	if !found {
		return addr, errors.Errorf("channel address %q lacks a node id", s)
	}

	nodeBytes, err := hex.DecodeString(nodePart)
	if err != nil {
		return addr, errors.Errorf("invalid node id in channel address: %v",
			err)
	}
	addr.NodeID, err = btcec.ParsePubKey(nodeBytes)
	if err != nil {
		return addr, errors.Errorf("invalid node id in channel address: %v",
			err)
	}

	host, portStr, err := net.SplitHostPort(hostPart)
	switch {
	case err == nil:
		port, err := strconv.ParseUint(portStr, 10, 16)
		if err != nil {
			return addr, errors.Errorf("invalid port in channel "+
				"address: %v", err)
		}
		addr.Host = host
		addr.Port = uint16(port)

	default:
		// No port: the whole remainder is the host and the protocol's
		// default applies.
		addr.Host = hostPart
		addr.Port = addr.Protocol.DefaultPort()
	}

	if addr.Host == "" {
		return addr, errors.Errorf("channel address %q lacks a host", s)
	}

	return addr, nil
}
