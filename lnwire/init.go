package lnwire

import "io"

// Init is the first message sent on a connection, advertising the feature
// bits each side supports before any channel-specific negotiation begins.
type Init struct {
	// GlobalFeatures is retained only for legacy decoding of peers that
	// still split features into two vectors; modern nodes put everything
	// in Features.
	GlobalFeatures *RawFeatureVector

	// Features is the full feature vector for this connection.
	Features *RawFeatureVector
}

// NewInitMessage creates a new Init from the given feature vector.
func NewInitMessage(features *RawFeatureVector) *Init {
	return &Init{
		GlobalFeatures: NewRawFeatureVector(),
		Features:       features,
	}
}

var _ Message = (*Init)(nil)

func (i *Init) Decode(r io.Reader, pver uint32) error {
	i.GlobalFeatures = &RawFeatureVector{}
	i.Features = &RawFeatureVector{}
	return readElements(r,
		i.GlobalFeatures,
		i.Features,
	)
}

func (i *Init) Encode(w io.Writer, pver uint32) error {
	return writeElements(w,
		i.GlobalFeatures,
		i.Features,
	)
}

func (i *Init) MsgType() MessageType {
	return MsgInit
}

func (i *Init) MaxPayloadLength(uint32) uint32 {
	return MaxMessagePayload
}
