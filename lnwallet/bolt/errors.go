package bolt

import (
	"fmt"

	"github.com/lnp-go/lnpcore/lnwire"
)

// ErrLifecycleMismatch is returned when an operation is attempted from a
// stage it is not legal in. The channel state is left untouched.
type ErrLifecycleMismatch struct {
	Current  Lifecycle
	Required []Lifecycle
}

func (e *ErrLifecycleMismatch) Error() string {
	return fmt.Sprintf("channel is in state %v incompatible with the "+
		"requested operation (requires one of %v)", e.Current, e.Required)
}

// ErrNoChannelID is returned when an operation needs a final channel id but
// the channel still only has a temporary one.
var ErrNoChannelID = fmt.Errorf("channel has no permanent channel id yet")

// ErrNoTemporaryID is returned when an operation needs the negotiation-time
// temporary id but the channel has already graduated past it.
var ErrNoTemporaryID = fmt.Errorf("channel no longer has a temporary id")

// ErrChanIDMismatch is returned when a peer message addresses a channel id
// other than the one this channel carries.
type ErrChanIDMismatch struct {
	Remote lnwire.ChannelID
	Local  lnwire.ChannelID
}

func (e *ErrChanIDMismatch) Error() string {
	return fmt.Sprintf("peer message addresses channel %v, local channel "+
		"is %v", e.Remote, e.Local)
}

// ReestablishError is the reason compose_reestablish_channel failed.
type ReestablishError struct {
	// NoPermanentID is set when the channel has no final id to
	// reestablish against.
	NoPermanentID bool

	// Mismatch is set when the remote's channel_reestablish names a
	// different channel.
	Mismatch *ErrChanIDMismatch
}

func (e *ReestablishError) Error() string {
	if e.NoPermanentID {
		return "can't reestablish channel before the funding " +
			"transaction defines its permanent id"
	}
	if e.Mismatch != nil {
		return fmt.Sprintf("channel reestablish: %v", e.Mismatch)
	}
	return "channel reestablish failed"
}

// ErrRoute wraps a failure to encode the requested route into a Sphinx
// onion packet.
type ErrRoute struct {
	Err error
}

func (e *ErrRoute) Error() string {
	return fmt.Sprintf("provided route can't be encoded into an onion "+
		"packet: %v", e.Err)
}

func (e *ErrRoute) Unwrap() error {
	return e.Err
}
