package bolt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"

	"github.com/lnp-go/lnpcore/lnwallet/extension"
	"github.com/lnp-go/lnpcore/lnwire"
)

// The constructor's state slice is a fixed-order big-endian record; every
// field below is written and read in declaration order. Optional public
// keys serialize as 33 zero bytes when absent.

func writePoint(w io.Writer, pk *btcec.PublicKey) error {
	if pk == nil {
		var zero [33]byte
		_, err := w.Write(zero[:])
		return err
	}
	_, err := w.Write(pk.SerializeCompressed())
	return err
}

func readPoint(r io.Reader) (*btcec.PublicKey, error) {
	var buf [33]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, err
	}
	if buf == [33]byte{} {
		return nil, nil
	}
	return btcec.ParsePubKey(buf[:])
}

func writeBytes16(w io.Writer, b []byte) error {
	if len(b) > math.MaxUint16 {
		return fmt.Errorf("state field of %d bytes exceeds the 16-bit "+
			"length prefix", len(b))
	}
	if err := binary.Write(w, binary.BigEndian, uint16(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBytes16(r io.Reader) ([]byte, error) {
	var l uint16
	if err := binary.Read(r, binary.BigEndian, &l); err != nil {
		return nil, err
	}
	if l == 0 {
		return nil, nil
	}
	b := make([]byte, l)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func channelTypeByte(ct lnwire.ChannelType) byte {
	var b byte
	if ct.StaticRemoteKey {
		b |= 1
	}
	if ct.AnchorOutputs {
		b |= 2
	}
	if ct.AnchorsZeroFeeHtlcTx {
		b |= 4
	}
	return b
}

func channelTypeFromByte(b byte) lnwire.ChannelType {
	return lnwire.ChannelType{
		StaticRemoteKey:      b&1 != 0,
		AnchorOutputs:        b&2 != 0,
		AnchorsZeroFeeHtlcTx: b&4 != 0,
	}
}

func writePeerParams(w io.Writer, p PeerParams) error {
	for _, v := range []uint64{
		uint64(p.DustLimit), uint64(p.MaxHtlcValueInFlight),
		uint64(p.ChannelReserve), uint64(p.HtlcMinimum),
	} {
		if err := binary.Write(w, binary.BigEndian, v); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.BigEndian, p.ToSelfDelay); err != nil {
		return err
	}
	return binary.Write(w, binary.BigEndian, p.MaxAcceptedHtlcs)
}

func readPeerParams(r io.Reader) (PeerParams, error) {
	var p PeerParams
	var dust, inFlight, reserve, htlcMin uint64
	for _, v := range []*uint64{&dust, &inFlight, &reserve, &htlcMin} {
		if err := binary.Read(r, binary.BigEndian, v); err != nil {
			return p, err
		}
	}
	if err := binary.Read(r, binary.BigEndian, &p.ToSelfDelay); err != nil {
		return p, err
	}
	if err := binary.Read(r, binary.BigEndian, &p.MaxAcceptedHtlcs); err != nil {
		return p, err
	}
	p.DustLimit = btcutil.Amount(dust)
	p.MaxHtlcValueInFlight = lnwire.MilliSatoshi(inFlight)
	p.ChannelReserve = btcutil.Amount(reserve)
	p.HtlcMinimum = lnwire.MilliSatoshi(htlcMin)
	return p, nil
}

// StoreState implements extension.StateStore for the constructor.
func (c *Channel) StoreState(state extension.State) error {
	var b bytes.Buffer

	b.WriteByte(byte(c.stage))
	if err := binary.Write(&b, binary.BigEndian, uint16(c.closingRound)); err != nil {
		return err
	}
	b.Write(c.chainHash[:])

	temp := c.activeChanID.TempChanID()
	b.Write(temp[:])
	if c.activeChanID.HasPermanentID() {
		b.WriteByte(1)
		cid := c.activeChanID.ChanID()
		b.Write(cid[:])
	} else {
		b.WriteByte(0)
	}

	for _, v := range []uint64{
		uint64(c.localAmount), uint64(c.remoteAmount), c.commitmentNumber,
	} {
		if err := binary.Write(&b, binary.BigEndian, v); err != nil {
			return err
		}
	}

	if len(c.commitmentSigs) > math.MaxUint16 {
		return fmt.Errorf("too many commitment signatures to serialize")
	}
	if err := binary.Write(&b, binary.BigEndian,
		uint16(len(c.commitmentSigs))); err != nil {

		return err
	}
	for _, sig := range c.commitmentSigs {
		b.Write(sig[:])
	}

	b.WriteByte(byte(c.direction))

	if err := binary.Write(&b, binary.BigEndian, c.commonParams.MinimumDepth); err != nil {
		return err
	}
	if err := binary.Write(&b, binary.BigEndian, c.commonParams.FeeratePerKw); err != nil {
		return err
	}
	if c.commonParams.AnnounceChannel {
		b.WriteByte(1)
	} else {
		b.WriteByte(0)
	}
	b.WriteByte(channelTypeByte(c.commonParams.ChannelType))

	if err := writePeerParams(&b, c.localParams); err != nil {
		return err
	}
	if err := writePeerParams(&b, c.remoteParams); err != nil {
		return err
	}

	for _, pk := range []*btcec.PublicKey{
		c.localKeys.FundingKey, c.localKeys.RevocationBase,
		c.localKeys.PaymentBase, c.localKeys.DelayBase,
		c.localKeys.HtlcBase, c.localKeys.FirstCommitmentPoint,
	} {
		if err := writePoint(&b, pk); err != nil {
			return err
		}
	}
	if c.localKeys.CommitmentSecret != nil {
		b.WriteByte(1)
		b.Write(c.localKeys.CommitmentSecret.Serialize())
	} else {
		b.WriteByte(0)
	}
	if c.localKeys.StaticRemoteKey {
		b.WriteByte(1)
	} else {
		b.WriteByte(0)
	}
	if err := writeBytes16(&b, c.localKeys.UpfrontShutdownScript); err != nil {
		return err
	}

	for _, pk := range []*btcec.PublicKey{
		c.remoteKeys.FundingKey, c.remoteKeys.RevocationBase,
		c.remoteKeys.PaymentBase, c.remoteKeys.DelayBase,
		c.remoteKeys.HtlcBase, c.remoteKeys.CurrentPerCommitmentPoint,
	} {
		if err := writePoint(&b, pk); err != nil {
			return err
		}
	}

	if err := writePoint(&b, c.localPerCommitPoint); err != nil {
		return err
	}
	if err := writePoint(&b, c.remotePerCommitPoint); err != nil {
		return err
	}

	state[extension.IdentityConstructor] = b.Bytes()

	return nil
}

// LoadState implements extension.StateStore for the constructor.
func (c *Channel) LoadState(state extension.State) error {
	blob, ok := state[extension.IdentityConstructor]
	if !ok {
		return fmt.Errorf("canonical state carries no constructor record")
	}
	r := bytes.NewReader(blob)

	var stage [1]byte
	if _, err := io.ReadFull(r, stage[:]); err != nil {
		return err
	}
	c.stage = Lifecycle(stage[0])

	var round uint16
	if err := binary.Read(r, binary.BigEndian, &round); err != nil {
		return err
	}
	c.closingRound = int(round)

	if _, err := io.ReadFull(r, c.chainHash[:]); err != nil {
		return err
	}

	var temp lnwire.TempChannelID
	if _, err := io.ReadFull(r, temp[:]); err != nil {
		return err
	}
	c.activeChanID = lnwire.NewActiveChannelIDFromTemp(temp)
	var hasPermanent [1]byte
	if _, err := io.ReadFull(r, hasPermanent[:]); err != nil {
		return err
	}
	if hasPermanent[0] == 1 {
		var cid lnwire.ChannelID
		if _, err := io.ReadFull(r, cid[:]); err != nil {
			return err
		}
		c.activeChanID.AssignPermanentID(cid)
	}

	var local, remote uint64
	if err := binary.Read(r, binary.BigEndian, &local); err != nil {
		return err
	}
	if err := binary.Read(r, binary.BigEndian, &remote); err != nil {
		return err
	}
	if err := binary.Read(r, binary.BigEndian, &c.commitmentNumber); err != nil {
		return err
	}
	c.localAmount = lnwire.MilliSatoshi(local)
	c.remoteAmount = lnwire.MilliSatoshi(remote)

	var sigCount uint16
	if err := binary.Read(r, binary.BigEndian, &sigCount); err != nil {
		return err
	}
	c.commitmentSigs = make([]lnwire.Sig, sigCount)
	for i := range c.commitmentSigs {
		if _, err := io.ReadFull(r, c.commitmentSigs[i][:]); err != nil {
			return err
		}
	}

	var direction [1]byte
	if _, err := io.ReadFull(r, direction[:]); err != nil {
		return err
	}
	c.direction = Direction(direction[0])

	if err := binary.Read(r, binary.BigEndian, &c.commonParams.MinimumDepth); err != nil {
		return err
	}
	if err := binary.Read(r, binary.BigEndian, &c.commonParams.FeeratePerKw); err != nil {
		return err
	}
	var flags [2]byte
	if _, err := io.ReadFull(r, flags[:]); err != nil {
		return err
	}
	c.commonParams.AnnounceChannel = flags[0] == 1
	c.commonParams.ChannelType = channelTypeFromByte(flags[1])

	var err error
	if c.localParams, err = readPeerParams(r); err != nil {
		return err
	}
	if c.remoteParams, err = readPeerParams(r); err != nil {
		return err
	}

	localPoints := make([]*btcec.PublicKey, 6)
	for i := range localPoints {
		if localPoints[i], err = readPoint(r); err != nil {
			return err
		}
	}
	c.localKeys.FundingKey = localPoints[0]
	c.localKeys.RevocationBase = localPoints[1]
	c.localKeys.PaymentBase = localPoints[2]
	c.localKeys.DelayBase = localPoints[3]
	c.localKeys.HtlcBase = localPoints[4]
	c.localKeys.FirstCommitmentPoint = localPoints[5]

	var hasSecret [1]byte
	if _, err := io.ReadFull(r, hasSecret[:]); err != nil {
		return err
	}
	if hasSecret[0] == 1 {
		var secret [32]byte
		if _, err := io.ReadFull(r, secret[:]); err != nil {
			return err
		}
		priv, _ := btcec.PrivKeyFromBytes(secret[:])
		c.localKeys.CommitmentSecret = priv
	} else {
		c.localKeys.CommitmentSecret = nil
	}

	var staticRemote [1]byte
	if _, err := io.ReadFull(r, staticRemote[:]); err != nil {
		return err
	}
	c.localKeys.StaticRemoteKey = staticRemote[0] == 1

	if c.localKeys.UpfrontShutdownScript, err = readBytes16(r); err != nil {
		return err
	}

	remotePoints := make([]*btcec.PublicKey, 6)
	for i := range remotePoints {
		if remotePoints[i], err = readPoint(r); err != nil {
			return err
		}
	}
	c.remoteKeys.FundingKey = remotePoints[0]
	c.remoteKeys.RevocationBase = remotePoints[1]
	c.remoteKeys.PaymentBase = remotePoints[2]
	c.remoteKeys.DelayBase = remotePoints[3]
	c.remoteKeys.HtlcBase = remotePoints[4]
	c.remoteKeys.CurrentPerCommitmentPoint = remotePoints[5]

	if c.localPerCommitPoint, err = readPoint(r); err != nil {
		return err
	}
	if c.remotePerCommitPoint, err = readPoint(r); err != nil {
		return err
	}

	if r.Len() != 0 {
		return fmt.Errorf("constructor state record carries %d trailing "+
			"bytes", r.Len())
	}

	return nil
}
