package lnwire

import "io"

// CommitSig signs the counterparty's next commitment transaction along
// with one signature per HTLC output it carries, in the same order those
// outputs appear in the commitment's output list.
type CommitSig struct {
	ChanID    ChannelID
	CommitSig Sig
	HtlcSigs  []Sig
}

var _ Message = (*CommitSig)(nil)

func (c *CommitSig) Decode(r io.Reader, pver uint32) error {
	if err := readElements(r, &c.ChanID, &c.CommitSig); err != nil {
		return err
	}

	var numHtlcs uint16
	if err := readElement(r, &numHtlcs); err != nil {
		return err
	}
	c.HtlcSigs = make([]Sig, numHtlcs)
	for i := range c.HtlcSigs {
		if err := readElement(r, &c.HtlcSigs[i]); err != nil {
			return err
		}
	}

	return nil
}

func (c *CommitSig) Encode(w io.Writer, pver uint32) error {
	if err := writeElements(w, c.ChanID, c.CommitSig); err != nil {
		return err
	}

	if len(c.HtlcSigs) > MaxSliceLength {
		return &ErrTooLargeData{len(c.HtlcSigs)}
	}
	if err := writeElement(w, uint16(len(c.HtlcSigs))); err != nil {
		return err
	}
	for _, sig := range c.HtlcSigs {
		if err := writeElement(w, sig); err != nil {
			return err
		}
	}

	return nil
}

func (c *CommitSig) MsgType() MessageType {
	return MsgCommitSig
}

func (c *CommitSig) MaxPayloadLength(uint32) uint32 {
	return MaxMessagePayload
}
