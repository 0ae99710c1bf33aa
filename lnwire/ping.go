package lnwire

import "io"

// Ping is sent periodically to keep a connection alive and to elicit a
// sized Pong response, which doubles as a (low-quality) traffic-analysis
// countermeasure.
type Ping struct {
	NumPongBytes uint16
	PaddingBytes []byte
}

var _ Message = (*Ping)(nil)

func (p *Ping) Decode(r io.Reader, pver uint32) error {
	return readElements(r, &p.NumPongBytes, &p.PaddingBytes)
}

func (p *Ping) Encode(w io.Writer, pver uint32) error {
	return writeElements(w, p.NumPongBytes, p.PaddingBytes)
}

func (p *Ping) MsgType() MessageType {
	return MsgPing
}

func (p *Ping) MaxPayloadLength(uint32) uint32 {
	return MaxMessagePayload
}

// Pong answers a Ping with PaddingBytes of the length the Ping requested.
type Pong struct {
	PaddingBytes []byte
}

var _ Message = (*Pong)(nil)

func (p *Pong) Decode(r io.Reader, pver uint32) error {
	return readElements(r, &p.PaddingBytes)
}

func (p *Pong) Encode(w io.Writer, pver uint32) error {
	return writeElements(w, p.PaddingBytes)
}

func (p *Pong) MsgType() MessageType {
	return MsgPong
}

func (p *Pong) MaxPayloadLength(uint32) uint32 {
	return MaxMessagePayload
}
