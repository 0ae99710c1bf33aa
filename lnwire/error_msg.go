package lnwire

import "io"

// Error carries a textual failure reason scoped to a single channel, or to
// the whole connection when ChanID is the all-zero id.
type Error struct {
	ChanID ChannelID
	Data   []byte
}

// NewError returns an Error scoped to the whole connection.
func NewError() *Error {
	return &Error{}
}

var _ Message = (*Error)(nil)

func (e *Error) Decode(r io.Reader, pver uint32) error {
	return readElements(r, &e.ChanID, &e.Data)
}

func (e *Error) Encode(w io.Writer, pver uint32) error {
	return writeElements(w, e.ChanID, e.Data)
}

func (e *Error) MsgType() MessageType {
	return MsgError
}

func (e *Error) MaxPayloadLength(uint32) uint32 {
	return MaxMessagePayload
}

// Error implements the error interface, letting an Error message double as
// a Go error when surfaced up through a channel's state machine.
func (e *Error) Error() string {
	return string(e.Data)
}
