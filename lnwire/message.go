package lnwire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// MaxMessagePayload caps the encoded body of any single message; the
// transport's own framing cannot carry more than this in one record.
const MaxMessagePayload = 65535

// MessageType is the 2-byte big-endian tag leading every peer message. The
// tag is the entire header: length and integrity are the transport
// encryption layer's concern, so the frame is simply tag-then-body.
type MessageType uint16

// The currently defined message types within this current version of the
// protocol.
const (
	MsgInit                    MessageType = 16
	MsgError                   MessageType = 17
	MsgPing                    MessageType = 18
	MsgPong                    MessageType = 19
	MsgOpenChannel             MessageType = 32
	MsgAcceptChannel           MessageType = 33
	MsgFundingCreated          MessageType = 34
	MsgFundingSigned           MessageType = 35
	MsgFundingLocked           MessageType = 36
	MsgShutdown                MessageType = 38
	MsgClosingSigned           MessageType = 39
	MsgUpdateAddHTLC           MessageType = 128
	MsgUpdateFulfillHTLC       MessageType = 130
	MsgUpdateFailHTLC          MessageType = 131
	MsgCommitSig               MessageType = 132
	MsgRevokeAndAck            MessageType = 133
	MsgUpdateFee               MessageType = 134
	MsgUpdateFailMalformedHTLC MessageType = 135
	MsgChannelReestablish      MessageType = 136
	MsgChannelAnnouncement     MessageType = 256
	MsgNodeAnnouncement        MessageType = 257
	MsgChannelUpdate           MessageType = 258
	MsgAnnounceSignatures      MessageType = 259
	MsgQueryShortChanIDs       MessageType = 261
	MsgReplyShortChanIDsEnd    MessageType = 262
	MsgQueryChannelRange       MessageType = 263
	MsgReplyChannelRange       MessageType = 264
	MsgGossipTimestampFilter   MessageType = 265
)

var messageTypeNames = map[MessageType]string{
	MsgInit:                    "init",
	MsgError:                   "error",
	MsgPing:                    "ping",
	MsgPong:                    "pong",
	MsgOpenChannel:             "open_channel",
	MsgAcceptChannel:           "accept_channel",
	MsgFundingCreated:          "funding_created",
	MsgFundingSigned:           "funding_signed",
	MsgFundingLocked:           "funding_locked",
	MsgShutdown:                "shutdown",
	MsgClosingSigned:           "closing_signed",
	MsgUpdateAddHTLC:           "update_add_htlc",
	MsgUpdateFulfillHTLC:       "update_fulfill_htlc",
	MsgUpdateFailHTLC:          "update_fail_htlc",
	MsgCommitSig:               "commitment_signed",
	MsgRevokeAndAck:            "revoke_and_ack",
	MsgUpdateFee:               "update_fee",
	MsgUpdateFailMalformedHTLC: "update_fail_malformed_htlc",
	MsgChannelReestablish:      "channel_reestablish",
	MsgChannelAnnouncement:     "channel_announcement",
	MsgNodeAnnouncement:        "node_announcement",
	MsgChannelUpdate:           "channel_update",
	MsgAnnounceSignatures:      "announcement_signatures",
	MsgQueryShortChanIDs:       "query_short_channel_ids",
	MsgReplyShortChanIDsEnd:    "reply_short_channel_ids_end",
	MsgQueryChannelRange:       "query_channel_range",
	MsgReplyChannelRange:       "reply_channel_range",
	MsgGossipTimestampFilter:   "gossip_timestamp_filter",
}

// String returns the human-readable name of a message type, or its numeric
// value if unrecognized.
func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint16(t))
}

// UnknownMessage rejects a frame whose tag is outside the recognized
// message set. Because nothing but the tag delimits a message, an
// unrecognized tag cannot be skipped over; the framing layer must refuse
// it unless it is acting as a relay.
type UnknownMessage struct {
	messageType MessageType
}

func (u *UnknownMessage) Error() string {
	return fmt.Sprintf("unable to parse message of unknown type: %v",
		u.messageType)
}

// Message is one typed peer-protocol message. Each implementation owns its
// body encoding completely; the framing layer contributes only the tag and
// the size limits.
type Message interface {
	Decode(io.Reader, uint32) error
	Encode(io.Writer, uint32) error
	MsgType() MessageType
	MaxPayloadLength(uint32) uint32
}

// makeEmptyMessage maps a tag to a zero value of its concrete message
// type, ready to decode into.
func makeEmptyMessage(msgType MessageType) (Message, error) {
	var msg Message

	switch msgType {
	case MsgInit:
		msg = &Init{}
	case MsgError:
		msg = &Error{}
	case MsgPing:
		msg = &Ping{}
	case MsgPong:
		msg = &Pong{}
	case MsgOpenChannel:
		msg = &OpenChannel{}
	case MsgAcceptChannel:
		msg = &AcceptChannel{}
	case MsgFundingCreated:
		msg = &FundingCreated{}
	case MsgFundingSigned:
		msg = &FundingSigned{}
	case MsgFundingLocked:
		msg = &FundingLocked{}
	case MsgShutdown:
		msg = &Shutdown{}
	case MsgClosingSigned:
		msg = &ClosingSigned{}
	case MsgUpdateAddHTLC:
		msg = &UpdateAddHTLC{}
	case MsgUpdateFulfillHTLC:
		msg = &UpdateFulfillHTLC{}
	case MsgUpdateFailHTLC:
		msg = &UpdateFailHTLC{}
	case MsgUpdateFailMalformedHTLC:
		msg = &UpdateFailMalformedHTLC{}
	case MsgCommitSig:
		msg = &CommitSig{}
	case MsgRevokeAndAck:
		msg = &RevokeAndAck{}
	case MsgUpdateFee:
		msg = &UpdateFee{}
	case MsgChannelReestablish:
		msg = &ChannelReestablish{}
	case MsgChannelAnnouncement:
		msg = &ChannelAnnouncement{}
	case MsgChannelUpdate:
		msg = &ChannelUpdate{}
	case MsgNodeAnnouncement:
		msg = &NodeAnnouncement{}
	case MsgAnnounceSignatures:
		msg = &AnnounceSignatures{}
	case MsgQueryShortChanIDs:
		msg = &QueryShortChanIDs{}
	case MsgReplyShortChanIDsEnd:
		msg = &ReplyShortChanIDsEnd{}
	case MsgQueryChannelRange:
		msg = &QueryChannelRange{}
	case MsgReplyChannelRange:
		msg = &ReplyChannelRange{}
	case MsgGossipTimestampFilter:
		msg = &GossipTimestampFilter{}
	default:
		return nil, &UnknownMessage{msgType}
	}

	return msg, nil
}

// WriteMessage frames msg as tag-then-body into w, returning the number of
// bytes written. The body is encoded up front so both size limits can be
// checked before a single frame byte reaches the writer.
func WriteMessage(w io.Writer, msg Message, pver uint32) (int, error) {
	var body bytes.Buffer
	if err := msg.Encode(&body, pver); err != nil {
		return 0, err
	}

	if body.Len() > MaxMessagePayload {
		return 0, fmt.Errorf("%v payload of %d bytes exceeds the %d "+
			"byte protocol limit", msg.MsgType(), body.Len(),
			MaxMessagePayload)
	}
	if max := msg.MaxPayloadLength(pver); uint32(body.Len()) > max {
		return 0, fmt.Errorf("%v payload of %d bytes exceeds its own "+
			"%d byte limit", msg.MsgType(), body.Len(), max)
	}

	frame := make([]byte, 2, 2+body.Len())
	binary.BigEndian.PutUint16(frame, uint16(msg.MsgType()))
	frame = append(frame, body.Bytes()...)

	return w.Write(frame)
}

// ReadMessage consumes the next message from r: the tag selects the
// concrete type, which then decodes its own body.
func ReadMessage(r io.Reader, pver uint32) (Message, error) {
	var tag [2]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return nil, err
	}

	msg, err := makeEmptyMessage(MessageType(binary.BigEndian.Uint16(tag[:])))
	if err != nil {
		return nil, err
	}

	if err := msg.Decode(r, pver); err != nil {
		return nil, err
	}

	return msg, nil
}
