package htlc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/lnp-go/lnpcore/lnwallet/extension"
	"github.com/lnp-go/lnpcore/lnwire"
)

// The HTLC state slice serializes its three collections as 16-bit counted
// lists of fixed-width records in ascending id order, followed by the two
// monotonic counters and the negotiated limits.

func writeSecrets(w io.Writer, m map[uint64]*Secret) error {
	if len(m) > math.MaxUint16 {
		return fmt.Errorf("too many HTLCs to serialize")
	}
	if err := binary.Write(w, binary.BigEndian, uint16(len(m))); err != nil {
		return err
	}
	for _, id := range sortedIDs(m) {
		s := m[id]
		if err := binary.Write(w, binary.BigEndian, s.ID); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, uint64(s.Amount)); err != nil {
			return err
		}
		if _, err := w.Write(s.Hashlock[:]); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, s.CltvExpiry); err != nil {
			return err
		}
	}
	return nil
}

func readSecrets(r io.Reader) (map[uint64]*Secret, error) {
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, err
	}
	m := make(map[uint64]*Secret, count)
	for i := uint16(0); i < count; i++ {
		s := &Secret{}
		var amount uint64
		if err := binary.Read(r, binary.BigEndian, &s.ID); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &amount); err != nil {
			return nil, err
		}
		if _, err := io.ReadFull(r, s.Hashlock[:]); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &s.CltvExpiry); err != nil {
			return nil, err
		}
		s.Amount = lnwire.MilliSatoshi(amount)
		m[s.ID] = s
	}
	return m, nil
}

// StoreState implements extension.StateStore.
func (h *Extension) StoreState(state extension.State) error {
	var b bytes.Buffer

	if h.anchorsZeroFeeHtlcTx {
		b.WriteByte(1)
	} else {
		b.WriteByte(0)
	}

	if err := writeSecrets(&b, h.offered); err != nil {
		return err
	}
	if err := writeSecrets(&b, h.received); err != nil {
		return err
	}

	if len(h.resolved) > math.MaxUint16 {
		return fmt.Errorf("too many resolved HTLCs to serialize")
	}
	if err := binary.Write(&b, binary.BigEndian,
		uint16(len(h.resolved))); err != nil {

		return err
	}
	resolvedIDs := make([]uint64, 0, len(h.resolved))
	for id := range h.resolved {
		resolvedIDs = append(resolvedIDs, id)
	}
	sort.Slice(resolvedIDs, func(i, j int) bool {
		return resolvedIDs[i] < resolvedIDs[j]
	})
	for _, id := range resolvedIDs {
		k := h.resolved[id]
		if err := binary.Write(&b, binary.BigEndian, k.ID); err != nil {
			return err
		}
		if err := binary.Write(&b, binary.BigEndian, uint64(k.Amount)); err != nil {
			return err
		}
		if _, err := b.Write(k.Preimage[:]); err != nil {
			return err
		}
		if err := binary.Write(&b, binary.BigEndian, k.CltvExpiry); err != nil {
			return err
		}
	}

	for _, v := range []uint64{
		h.nextOfferedID, h.nextReceivedID,
		uint64(h.htlcMinimum), uint64(h.maxHtlcValueInFlight),
	} {
		if err := binary.Write(&b, binary.BigEndian, v); err != nil {
			return err
		}
	}
	if err := binary.Write(&b, binary.BigEndian, h.maxAcceptedHtlcs); err != nil {
		return err
	}

	state[extension.IdentityHtlc] = b.Bytes()

	return nil
}

// LoadState implements extension.StateStore.
func (h *Extension) LoadState(state extension.State) error {
	blob, ok := state[extension.IdentityHtlc]
	if !ok {
		return fmt.Errorf("canonical state carries no HTLC record")
	}
	r := bytes.NewReader(blob)

	var flags [1]byte
	if _, err := io.ReadFull(r, flags[:]); err != nil {
		return err
	}
	h.anchorsZeroFeeHtlcTx = flags[0] == 1

	var err error
	if h.offered, err = readSecrets(r); err != nil {
		return err
	}
	if h.received, err = readSecrets(r); err != nil {
		return err
	}

	var resolvedCount uint16
	if err := binary.Read(r, binary.BigEndian, &resolvedCount); err != nil {
		return err
	}
	h.resolved = make(map[uint64]*Known, resolvedCount)
	for i := uint16(0); i < resolvedCount; i++ {
		k := &Known{}
		var amount uint64
		if err := binary.Read(r, binary.BigEndian, &k.ID); err != nil {
			return err
		}
		if err := binary.Read(r, binary.BigEndian, &amount); err != nil {
			return err
		}
		if _, err := io.ReadFull(r, k.Preimage[:]); err != nil {
			return err
		}
		if err := binary.Read(r, binary.BigEndian, &k.CltvExpiry); err != nil {
			return err
		}
		k.Amount = lnwire.MilliSatoshi(amount)
		h.resolved[k.ID] = k
	}

	var offeredID, receivedID, htlcMin, inFlight uint64
	for _, v := range []*uint64{&offeredID, &receivedID, &htlcMin, &inFlight} {
		if err := binary.Read(r, binary.BigEndian, v); err != nil {
			return err
		}
	}
	if err := binary.Read(r, binary.BigEndian, &h.maxAcceptedHtlcs); err != nil {
		return err
	}
	h.nextOfferedID = offeredID
	h.nextReceivedID = receivedID
	h.htlcMinimum = lnwire.MilliSatoshi(htlcMin)
	h.maxHtlcValueInFlight = lnwire.MilliSatoshi(inFlight)

	if r.Len() != 0 {
		return fmt.Errorf("HTLC state record carries %d trailing bytes",
			r.Len())
	}

	return nil
}
