// Package extension defines the composable pipeline model shared by the
// BOLT channel core and the router skeleton: a channel's transaction graph
// and state are produced by applying an ordered sequence of extensions
// (one Constructor, any number of Extenders, any number of Modifiers) to a
// shared funding object and state.
package extension

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/lnp-go/lnpcore/lnwallet/txgraph"
)

// Identity names an extension uniquely within a pipeline and gives the
// total order dispatch follows: Constructor first (identity 0, singular),
// then Extenders and Modifiers in ascending identity order.
type Identity uint16

const (
	// IdentityConstructor is reserved for the Channel's singular
	// Constructor slot.
	IdentityConstructor Identity = 0

	// Extender identities, in dispatch order.
	IdentityHtlc   Identity = 100
	IdentityAnchor Identity = 110

	// Modifier identities. BIP-69 always runs last among modifiers.
	IdentityBip69 Identity = 10000
)

// Extension is the capability set every pipeline member implements. Not
// every member needs every hook to do useful work; the ones it doesn't
// care about are no-ops.
type Extension interface {
	// Identity returns this extension's dispatch-order identity.
	Identity() Identity
}

// Message is the minimal peer-message interface an extension's
// UpdateFromPeer hook consumes; the BOLT core binds this to lnwire.Message.
type Message interface{}

// PeerUpdater handles an inbound peer message, mutating state in place.
// Returning an error leaves state untouched.
type PeerUpdater interface {
	UpdateFromPeer(msg Message) error
}

// LocalUpdate is a local intent to change channel state (propose an HTLC,
// request a fee update, begin a close); the BOLT core's concrete update
// types implement this as a marker.
type LocalUpdate interface{}

// LocalUpdater handles a local state-change request.
type LocalUpdater interface {
	UpdateFromLocal(update LocalUpdate) error
}

// StateChangeRequest is a request dispatched alongside an outbound message
// under construction, letting an extension mutate both its own state and
// the message (e.g. allocating an HTLC id while filling update_add_htlc).
type StateChangeRequest interface{}

// StateChanger lets an extension participate in composing an outbound
// message by mutating both its state and the message being built.
type StateChanger interface {
	StateChange(req StateChangeRequest, outbound Message) error
}

// GraphBuilder lets a channel extension contribute to the transaction
// graph. asRemoteNode selects whose keys are tweaked: true when producing
// the counterparty's commitment to be signed.
type GraphBuilder interface {
	BuildGraph(graph *txgraph.TxGraph, asRemoteNode bool) error
}

// State is the canonical serialized form of a channel: each extension's
// slice of the state, strict-encoded, keyed by the extension's identity.
// Two channel instances holding identical State values are observationally
// equivalent.
type State map[Identity][]byte

// Encode writes the state as a 16-bit record count followed by
// (identity, 16-bit length, blob) records in ascending identity order.
func (s State) Encode(w io.Writer) error {
	ids := make([]Identity, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if err := binary.Write(w, binary.BigEndian, uint16(len(ids))); err != nil {
		return err
	}
	for _, id := range ids {
		blob := s[id]
		if len(blob) > math.MaxUint16 {
			return fmt.Errorf("extension %d state of %d bytes exceeds "+
				"the 16-bit length prefix", id, len(blob))
		}
		if err := binary.Write(w, binary.BigEndian, uint16(id)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, uint16(len(blob))); err != nil {
			return err
		}
		if _, err := w.Write(blob); err != nil {
			return err
		}
	}
	return nil
}

// DecodeState reads a State previously written by Encode, rejecting
// records whose identities are not strictly ascending.
func DecodeState(r io.Reader) (State, error) {
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, err
	}

	s := make(State, count)
	var prev Identity
	for i := uint16(0); i < count; i++ {
		var id, length uint16
		if err := binary.Read(r, binary.BigEndian, &id); err != nil {
			return nil, err
		}
		if i > 0 && Identity(id) <= prev {
			return nil, fmt.Errorf("extension state identities not "+
				"strictly ascending at %d", id)
		}
		prev = Identity(id)

		if err := binary.Read(r, binary.BigEndian, &length); err != nil {
			return nil, err
		}
		blob := make([]byte, length)
		if _, err := io.ReadFull(r, blob); err != nil {
			return nil, err
		}
		s[Identity(id)] = blob
	}

	return s, nil
}

// StateStore lets an extension serialize/deserialize its slice of the
// channel's canonical state under its own identity.
type StateStore interface {
	LoadState(state State) error
	StoreState(state State) error
}

// Pipeline is the ordered set of extensions installed on a channel: a
// singular Constructor, plus Extenders and Modifiers keyed by identity so
// that at most one extension of a given identity is ever installed.
type Pipeline struct {
	Constructor Extension
	members     map[Identity]Extension
}

// NewPipeline returns an empty pipeline around the given Constructor.
func NewPipeline(constructor Extension) *Pipeline {
	return &Pipeline{
		Constructor: constructor,
		members:     make(map[Identity]Extension),
	}
}

// Add installs an extension, replacing any prior extension with the same
// identity. Extensions may be added dynamically in response to a peer
// message (e.g. installing the AnchorOutputs extender after seeing
// option_anchor_outputs in an incoming channel_type), but only before the
// first state mutation that depends on them.
func (p *Pipeline) Add(ext Extension) {
	p.members[ext.Identity()] = ext
}

// Get returns the extension installed under id, if any.
func (p *Pipeline) Get(id Identity) (Extension, bool) {
	e, ok := p.members[id]
	return e, ok
}

// Ordered returns every installed extension (Constructor excluded) in
// ascending identity order: the order update_from_peer, update_from_local,
// and build_graph all dispatch in.
func (p *Pipeline) Ordered() []Extension {
	ids := make([]Identity, 0, len(p.members))
	for id := range p.members {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]Extension, len(ids))
	for i, id := range ids {
		out[i] = p.members[id]
	}
	return out
}

// DispatchPeerMessage runs Constructor then every Extender/Modifier, in
// identity order, against an inbound peer message. The first error aborts
// the dispatch; state mutated by extensions that already ran is not rolled
// back; a host observing an error should treat the whole channel as
// needing reestablishment or closure, never partial progress as success.
func (p *Pipeline) DispatchPeerMessage(msg Message) error {
	if pu, ok := p.Constructor.(PeerUpdater); ok {
		if err := pu.UpdateFromPeer(msg); err != nil {
			return err
		}
	}
	for _, ext := range p.Ordered() {
		if pu, ok := ext.(PeerUpdater); ok {
			if err := pu.UpdateFromPeer(msg); err != nil {
				return err
			}
		}
	}
	return nil
}

// DispatchLocalUpdate runs Constructor then every Extender/Modifier, in
// identity order, against a local state-change request.
func (p *Pipeline) DispatchLocalUpdate(update LocalUpdate) error {
	if lu, ok := p.Constructor.(LocalUpdater); ok {
		if err := lu.UpdateFromLocal(update); err != nil {
			return err
		}
	}
	for _, ext := range p.Ordered() {
		if lu, ok := ext.(LocalUpdater); ok {
			if err := lu.UpdateFromLocal(update); err != nil {
				return err
			}
		}
	}
	return nil
}

// DispatchStateChange runs Constructor then every Extender/Modifier, in
// identity order, giving each a chance to mutate both its state and an
// outbound message under construction.
func (p *Pipeline) DispatchStateChange(req StateChangeRequest, outbound Message) error {
	if sc, ok := p.Constructor.(StateChanger); ok {
		if err := sc.StateChange(req, outbound); err != nil {
			return err
		}
	}
	for _, ext := range p.Ordered() {
		if sc, ok := ext.(StateChanger); ok {
			if err := sc.StateChange(req, outbound); err != nil {
				return err
			}
		}
	}
	return nil
}

// BuildGraph runs Constructor then every Extender/Modifier, in identity
// order, against a fresh TxGraph.
func (p *Pipeline) BuildGraph(graph *txgraph.TxGraph, asRemoteNode bool) error {
	if gb, ok := p.Constructor.(GraphBuilder); ok {
		if err := gb.BuildGraph(graph, asRemoteNode); err != nil {
			return err
		}
	}
	for _, ext := range p.Ordered() {
		if gb, ok := ext.(GraphBuilder); ok {
			if err := gb.BuildGraph(graph, asRemoteNode); err != nil {
				return err
			}
		}
	}
	return nil
}
