// Package lnwallet assembles the pieces of a payment channel into one
// value: the funding transaction wrapper, the BOLT constructor, and the
// ordered extender/modifier pipeline that together turn peer messages into
// a concrete, renderable transaction graph.
package lnwallet

import (
	"io"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/lnp-go/lnpcore/lnwallet/anchor"
	"github.com/lnp-go/lnpcore/lnwallet/bip69"
	"github.com/lnp-go/lnpcore/lnwallet/bolt"
	"github.com/lnp-go/lnpcore/lnwallet/extension"
	"github.com/lnp-go/lnpcore/lnwallet/funding"
	"github.com/lnp-go/lnpcore/lnwallet/htlc"
	"github.com/lnp-go/lnpcore/lnwallet/txgraph"
	"github.com/lnp-go/lnpcore/lnwire"
)

// Channel owns one payment channel end to end: a Funding anchoring it on
// chain, the singular BOLT constructor, and the extension pipeline the
// constructor shares peer messages and graph building with. A Channel is
// owned by exactly one goroutine at a time; none of its methods are safe
// for concurrent use.
type Channel struct {
	funding     *funding.Funding
	constructor *bolt.Channel
	htlc        *htlc.Extension
	pipeline    *extension.Pipeline
}

// NewChannel returns a channel in its initial lifecycle stage, carrying a
// placeholder funding, the default extender set (HTLC), and the BIP-69
// modifier. Further extenders install themselves when negotiation messages
// call for them.
func NewChannel(tempID lnwire.TempChannelID, chainHash chainhash.Hash) *Channel {
	constructor := bolt.New(tempID, chainHash)

	c := &Channel{
		funding:     funding.New(),
		constructor: constructor,
		htlc:        htlc.New(constructor),
		pipeline:    extension.NewPipeline(constructor),
	}
	c.pipeline.Add(c.htlc)
	c.pipeline.Add(bip69.New())

	return c
}

// Funding returns the channel's funding wrapper.
func (c *Channel) Funding() *funding.Funding {
	return c.funding
}

// Constructor returns the BOLT state machine at the head of the pipeline.
func (c *Channel) Constructor() *bolt.Channel {
	return c.constructor
}

// Htlc returns the channel's HTLC extension.
func (c *Channel) Htlc() *htlc.Extension {
	return c.htlc
}

// Pipeline exposes the extension pipeline, letting a host install custom
// extenders before the first state mutation that depends on them.
func (c *Channel) Pipeline() *extension.Pipeline {
	return c.pipeline
}

// ChanID returns the id currently identifying the channel on the wire.
func (c *Channel) ChanID() lnwire.ChannelID {
	return c.constructor.ChanID()
}

// UpdateFromPeer drives the channel with an inbound peer message: first
// the nomenclature hook, which may install extenders the message calls
// for, then the constructor and every extender/modifier in identity order.
func (c *Channel) UpdateFromPeer(msg lnwire.Message) error {
	c.nomenclatureHook(msg)
	return c.pipeline.DispatchPeerMessage(msg)
}

// nomenclatureHook inspects negotiation messages before dispatch and
// attaches the extensions their channel_type demands.
func (c *Channel) nomenclatureHook(msg lnwire.Message) {
	var chanType *lnwire.ChannelType
	switch m := msg.(type) {
	case *lnwire.OpenChannel:
		chanType = m.ChannelType
	case *lnwire.AcceptChannel:
		chanType = m.ChannelType
	default:
		return
	}

	if chanType != nil && chanType.HasAnchors() {
		if _, ok := c.pipeline.Get(extension.IdentityAnchor); !ok {
			c.pipeline.Add(anchor.New(c.constructor))
		}
	}
}

// ComposeAddUpdateHtlc builds update_add_htlc for a payment over route:
// the constructor wraps the route into the onion, then a PayBolt state
// change runs through the pipeline so the HTLC extension allocates the
// offered id and the balances move.
func (c *Channel) ComposeAddUpdateHtlc(amount lnwire.MilliSatoshi,
	paymentHash [32]byte, cltvExpiry uint32,
	route []bolt.Hop) (*lnwire.UpdateAddHTLC, error) {

	msg, err := c.constructor.ComposeAddUpdateHtlc(amount, paymentHash,
		cltvExpiry, route)
	if err != nil {
		return nil, err
	}

	if err := c.pipeline.DispatchStateChange(bolt.PayBolt{Route: route},
		msg); err != nil {

		return nil, err
	}

	return msg, nil
}

// SetFunding replaces the placeholder funding with the real funding
// transaction once the outbound side has assembled it. The PSBT must carry
// the funding marker on exactly one output; that output's witness script is
// filled in from the negotiated funding keys.
func (c *Channel) SetFunding(p *psbt.Packet) error {
	f, err := funding.With(p)
	if err != nil {
		return err
	}

	if err := c.constructor.EnrichFunding(p, f); err != nil {
		return err
	}

	c.funding = f

	return nil
}

// BuildGraph runs the full pipeline over a fresh TxGraph seeded from the
// channel's funding. asRemoteNode selects the counterparty's commitment,
// the one the local node signs and hands over.
func (c *Channel) BuildGraph(asRemoteNode bool) (*txgraph.TxGraph, error) {
	g := txgraph.New(c.funding)
	if err := c.pipeline.BuildGraph(g, asRemoteNode); err != nil {
		return nil, err
	}
	return g, nil
}

// RefundTx renders the current commitment transaction alone, the
// unilateral exit path for the channel's present state.
func (c *Channel) RefundTx(asRemoteNode bool) (*psbt.Packet, error) {
	g, err := c.BuildGraph(asRemoteNode)
	if err != nil {
		return nil, err
	}
	return g.RenderCmt()
}

// RenderAll renders the commitment followed by every dependent transaction
// in (role, index) order.
func (c *Channel) RenderAll(asRemoteNode bool) ([]*psbt.Packet, error) {
	g, err := c.BuildGraph(asRemoteNode)
	if err != nil {
		return nil, err
	}
	return g.Render()
}

// StoreState collects every extension's state slice into the canonical
// identity-keyed form.
func (c *Channel) StoreState() (extension.State, error) {
	state := make(extension.State)

	if ss, ok := c.pipeline.Constructor.(extension.StateStore); ok {
		if err := ss.StoreState(state); err != nil {
			return nil, err
		}
	}
	for _, ext := range c.pipeline.Ordered() {
		if ss, ok := ext.(extension.StateStore); ok {
			if err := ss.StoreState(state); err != nil {
				return nil, err
			}
		}
	}

	return state, nil
}

// LoadState restores every extension from a canonical state previously
// produced by StoreState.
func (c *Channel) LoadState(state extension.State) error {
	if ss, ok := c.pipeline.Constructor.(extension.StateStore); ok {
		if err := ss.LoadState(state); err != nil {
			return err
		}
	}

	// Reinstall any extender the restored channel type calls for before
	// handing the remaining extensions their slices.
	if c.constructor.CommonParams().ChannelType.HasAnchors() {
		if _, ok := c.pipeline.Get(extension.IdentityAnchor); !ok {
			c.pipeline.Add(anchor.New(c.constructor))
		}
	}

	for _, ext := range c.pipeline.Ordered() {
		if ss, ok := ext.(extension.StateStore); ok {
			if err := ss.LoadState(state); err != nil {
				return err
			}
		}
	}
	return nil
}

// Serialize strict-encodes the channel's canonical state into w. Two
// channels restored from the same serialization are observationally
// equivalent.
func (c *Channel) Serialize(w io.Writer) error {
	state, err := c.StoreState()
	if err != nil {
		return err
	}
	return state.Encode(w)
}

// Deserialize restores the channel from a serialization produced by
// Serialize.
func (c *Channel) Deserialize(r io.Reader) error {
	state, err := extension.DecodeState(r)
	if err != nil {
		return err
	}
	return c.LoadState(state)
}
