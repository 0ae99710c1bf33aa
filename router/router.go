// Package router carries a generic extension pipeline mirroring the
// channel pipeline, applied to path construction instead of transaction
// graphs: a constructor and ordered extenders cooperate to turn a payment
// request into a route of hops.
package router

import (
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/lnp-go/lnpcore/lnwallet/bolt"
	"github.com/lnp-go/lnpcore/lnwire"
)

// Identity names a router extension uniquely and orders dispatch, the same
// way channel extensions are ordered.
type Identity uint16

const (
	// IdentityConstructor is the singular route constructor slot.
	IdentityConstructor Identity = 0

	// IdentityGossip is the extender feeding channel announcements into
	// the router's view of the network.
	IdentityGossip Identity = 100
)

// PaymentRequest is the input to route computation.
type PaymentRequest struct {
	Amount      lnwire.MilliSatoshi
	PaymentHash [32]byte
	CltvExpiry  uint32
	Destination *btcec.PublicKey
}

// Extension is a member of the router pipeline.
type Extension interface {
	Identity() Identity
}

// PeerUpdater consumes gossip-layer messages that refine the router's view
// of the network.
type PeerUpdater interface {
	UpdateFromPeer(msg lnwire.Message) error
}

// RouteBuilder contributes hops to the route under construction; builders
// run in identity order, constructor first, so later extensions may refine
// what earlier ones produced.
type RouteBuilder interface {
	BuildRoute(req *PaymentRequest, route *[]bolt.Hop) error
}

// Router is the ordered pipeline of routing extensions.
type Router struct {
	constructor Extension
	members     map[Identity]Extension
}

// New returns a router around the given constructor.
func New(constructor Extension) *Router {
	return &Router{
		constructor: constructor,
		members:     make(map[Identity]Extension),
	}
}

// Add installs an extension, replacing any prior one of the same identity.
func (r *Router) Add(ext Extension) {
	r.members[ext.Identity()] = ext
}

// ordered returns the installed extensions (constructor excluded) in
// ascending identity order.
func (r *Router) ordered() []Extension {
	ids := make([]Identity, 0, len(r.members))
	for id := range r.members {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]Extension, len(ids))
	for i, id := range ids {
		out[i] = r.members[id]
	}
	return out
}

// UpdateFromPeer forwards a gossip message through the pipeline.
func (r *Router) UpdateFromPeer(msg lnwire.Message) error {
	if pu, ok := r.constructor.(PeerUpdater); ok {
		if err := pu.UpdateFromPeer(msg); err != nil {
			return err
		}
	}
	for _, ext := range r.ordered() {
		if pu, ok := ext.(PeerUpdater); ok {
			if err := pu.UpdateFromPeer(msg); err != nil {
				return err
			}
		}
	}
	return nil
}

// ComputeRoute runs every route builder over a fresh route.
func (r *Router) ComputeRoute(req *PaymentRequest) ([]bolt.Hop, error) {
	var route []bolt.Hop

	if rb, ok := r.constructor.(RouteBuilder); ok {
		if err := rb.BuildRoute(req, &route); err != nil {
			return nil, err
		}
	}
	for _, ext := range r.ordered() {
		if rb, ok := ext.(RouteBuilder); ok {
			if err := rb.BuildRoute(req, &route); err != nil {
				return nil, err
			}
		}
	}

	return route, nil
}

// ChannelInfo is the router's record of one usable local channel.
type ChannelInfo struct {
	ChannelID      lnwire.ChannelID
	ShortChannelID lnwire.ShortChannelID
	RemoteNode     *btcec.PublicKey
	Capacity       lnwire.MilliSatoshi
}

// Direct is the minimal route constructor: it answers requests whose
// destination is directly connected through a known local channel with a
// single-hop route.
type Direct struct {
	channels []ChannelInfo
}

// NewDirect returns a Direct constructor with no known channels.
func NewDirect() *Direct {
	return &Direct{}
}

var _ Extension = (*Direct)(nil)
var _ RouteBuilder = (*Direct)(nil)

// Identity implements Extension.
func (d *Direct) Identity() Identity {
	return IdentityConstructor
}

// AddChannel registers a local channel the constructor may route over.
func (d *Direct) AddChannel(info ChannelInfo) {
	d.channels = append(d.channels, info)
}

// BuildRoute implements RouteBuilder.
func (d *Direct) BuildRoute(req *PaymentRequest, route *[]bolt.Hop) error {
	for _, ch := range d.channels {
		if !ch.RemoteNode.IsEqual(req.Destination) {
			continue
		}
		if ch.Capacity < req.Amount {
			continue
		}

		*route = append(*route, bolt.Hop{
			NodePub:         ch.RemoteNode,
			ChannelID:       ch.ShortChannelID,
			AmountToForward: req.Amount,
			OutgoingCltv:    req.CltvExpiry,
		})
		return nil
	}

	return fmt.Errorf("no local channel reaches the destination node")
}
