// Package bifrost defines the message shapes of the Bifrost generalized
// multi-peer channel protocol. Only the wire-visible types live here; the
// Bifrost negotiation state machine itself is hosted elsewhere and reuses
// the channel core's extension pipeline.
package bifrost

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Port is the default TCP port Bifrost peers listen on.
const Port = 9999

// TxRole tags a transaction's function within a generalized channel's
// transaction graph.
type TxRole = uint8

const (
	// TxRoleFunding is the on-chain transaction anchoring the channel.
	TxRoleFunding TxRole = 0x00

	// TxRoleRefund is the unilateral exit spending the funding output.
	TxRoleRefund TxRole = 0x02

	// TxRoleCommitment aliases TxRoleRefund: the first revision of a
	// commitment is the refund transaction.
	TxRoleCommitment TxRole = TxRoleRefund
)

// App identifies the Bifrost application layer a message belongs to.
type App uint16

const (
	// AppChannel is the generalized channel negotiation application.
	AppChannel App = 0x0001

	// AppStorage is the remote data storage application.
	AppStorage App = 0x0002
)

// Msg is an application-tagged opaque payload: the only framing Bifrost
// imposes between the peer transport and the application layer.
type Msg struct {
	// App names the application the payload belongs to.
	App App

	// Payload is the application-specific message body, opaque to the
	// framing layer.
	Payload []byte
}

// Encode writes the message as a big-endian app id followed by a 16-bit
// length-prefixed payload.
func (m *Msg) Encode(w io.Writer) error {
	if err := binary.Write(w, binary.BigEndian, uint16(m.App)); err != nil {
		return err
	}
	if len(m.Payload) > math.MaxUint16 {
		return fmt.Errorf("bifrost payload of %d bytes exceeds the "+
			"16-bit length prefix", len(m.Payload))
	}
	if err := binary.Write(w, binary.BigEndian,
		uint16(len(m.Payload))); err != nil {

		return err
	}
	_, err := w.Write(m.Payload)
	return err
}

// Decode reads a message previously written by Encode.
func (m *Msg) Decode(r io.Reader) error {
	var app uint16
	if err := binary.Read(r, binary.BigEndian, &app); err != nil {
		return err
	}
	m.App = App(app)

	var length uint16
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return err
	}
	m.Payload = make([]byte, length)
	_, err := io.ReadFull(r, m.Payload)
	return err
}
