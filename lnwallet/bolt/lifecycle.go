package bolt

import "fmt"

// Lifecycle tracks which stage of its life a channel currently occupies.
// Most inbound messages and compose operations are only legal from a
// specific subset of stages; handlers reject everything else with
// ErrLifecycleMismatch and leave the state untouched.
type Lifecycle uint8

const (
	// LifecycleInitial is a freshly created channel with only a temporary
	// id assigned.
	LifecycleInitial Lifecycle = iota

	// LifecycleProposed means open_channel has been sent (outbound) or
	// received (inbound).
	LifecycleProposed

	// LifecycleAccepted means accept_channel has been exchanged.
	LifecycleAccepted

	// LifecycleSigning means the initial commitment is being signed but
	// funding_created has not yet been exchanged.
	LifecycleSigning

	// LifecycleFunding means funding_created has been exchanged and the
	// funding transaction is being finalized.
	LifecycleFunding

	// LifecycleSigned means the initial commitment signatures are
	// complete on our side.
	LifecycleSigned

	// LifecycleFunded means funding_signed has been exchanged and the
	// channel id is final.
	LifecycleFunded

	// LifecycleLocked means funding_locked has been exchanged.
	LifecycleLocked

	// LifecycleActive is a fully operational channel.
	LifecycleActive

	// LifecycleReestablishing means the peers are resynchronizing state
	// after a reconnection.
	LifecycleReestablishing

	// LifecycleShutdown means shutdown has been exchanged and no new
	// HTLCs are accepted.
	LifecycleShutdown

	// LifecycleClosing means closing_signed fee negotiation is under way;
	// the round counter lives next to the stage on the channel.
	LifecycleClosing

	// LifecycleAborting means the channel failed negotiation and is being
	// torn down before any funds were committed.
	LifecycleAborting

	// LifecyclePenalize means a revoked commitment from the counterparty
	// was detected on chain and a penalty transaction is due.
	LifecyclePenalize

	// LifecycleClosed is the terminal stage.
	LifecycleClosed
)

// String returns the stage name as used in error messages.
func (l Lifecycle) String() string {
	switch l {
	case LifecycleInitial:
		return "INIT"
	case LifecycleProposed:
		return "PROPOSED"
	case LifecycleAccepted:
		return "ACCEPTED"
	case LifecycleSigning:
		return "SIGNING"
	case LifecycleFunding:
		return "FUNDING"
	case LifecycleSigned:
		return "SIGNED"
	case LifecycleFunded:
		return "FUNDED"
	case LifecycleLocked:
		return "LOCKED"
	case LifecycleActive:
		return "ACTIVE"
	case LifecycleReestablishing:
		return "REESTABLISHING"
	case LifecycleShutdown:
		return "SHUTDOWN"
	case LifecycleClosing:
		return "CLOSING"
	case LifecycleAborting:
		return "ABORTING"
	case LifecyclePenalize:
		return "PENALIZE"
	case LifecycleClosed:
		return "CLOSED"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(l))
	}
}

// Direction records which side initiated the channel. The opener pays the
// commitment fee and its payment basepoint comes first when computing the
// commitment-number obscuring factor.
type Direction uint8

const (
	// Outbound means the local node sent open_channel.
	Outbound Direction = iota

	// Inbound means the local node received open_channel.
	Inbound
)

// IsInbound reports whether the counterparty opened the channel.
func (d Direction) IsInbound() bool {
	return d == Inbound
}

// String returns "inbound" or "outbound".
func (d Direction) String() string {
	if d == Inbound {
		return "inbound"
	}
	return "outbound"
}
