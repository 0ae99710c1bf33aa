package lnwire

import (
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
)

// ChannelReestablish is sent immediately after reconnecting to a peer with
// whom a channel is open, letting both sides detect and recover from any
// state divergence (a missed revocation, a stale commitment) before
// resuming normal operation.
type ChannelReestablish struct {
	ChanID                 ChannelID
	NextLocalCommitHeight  uint64
	RemoteCommitTailHeight uint64

	// The following two fields implement the optional data_loss_protect
	// extension: if both are present, a peer that is behind can detect
	// it immediately from the secret its counterparty already has.
	LastRemoteCommitSecret    [32]byte
	LocalUnrevokedCommitPoint *btcec.PublicKey
}

var _ Message = (*ChannelReestablish)(nil)

func (c *ChannelReestablish) Decode(r io.Reader, pver uint32) error {
	err := readElements(r,
		&c.ChanID,
		&c.NextLocalCommitHeight,
		&c.RemoteCommitTailHeight,
	)
	if err != nil {
		return err
	}

	// The data-loss-protect fields are optional trailing fields rather
	// than a TLV stream in the legacy encoding: absence is signaled by
	// EOF, not a discriminator byte.
	err = readElements(r, &c.LastRemoteCommitSecret, &c.LocalUnrevokedCommitPoint)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		c.LastRemoteCommitSecret = [32]byte{}
		c.LocalUnrevokedCommitPoint = nil
		return nil
	}
	return err
}

func (c *ChannelReestablish) Encode(w io.Writer, pver uint32) error {
	if err := writeElements(w,
		c.ChanID,
		c.NextLocalCommitHeight,
		c.RemoteCommitTailHeight,
	); err != nil {
		return err
	}

	if c.LocalUnrevokedCommitPoint == nil {
		return nil
	}

	return writeElements(w, c.LastRemoteCommitSecret, c.LocalUnrevokedCommitPoint)
}

func (c *ChannelReestablish) MsgType() MessageType {
	return MsgChannelReestablish
}

func (c *ChannelReestablish) MaxPayloadLength(uint32) uint32 {
	return MaxMessagePayload
}
