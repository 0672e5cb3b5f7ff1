package relay

import (
	"testing"

	"github.com/golang/protobuf/proto"
	structpb "github.com/golang/protobuf/ptypes/struct"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/telechain/pkg/chain"
)

func TestEncodeDecode(t *testing.T) {
	r := Record{
		Device:  "dev-1",
		Reading: chain.Reading{Timestamp: 1700000000, Temperature: -2.25, Humidity: 48.3},
		Digests: []chain.Digest{chain.Seed, chain.Sum("x")},
		InRange: false,
	}
	data, err := Encode(r)
	require.NoError(t, err)
	decoded, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, r, decoded)
}

func TestDecodeInvalid(t *testing.T) {
	_, err := Decode([]byte("not a protobuf"))
	require.Error(t, err)

	data, err := proto.Marshal(&structpb.Struct{Fields: map[string]*structpb.Value{
		FieldDigests: {Kind: &structpb.Value_ListValue{ListValue: &structpb.ListValue{Values: []*structpb.Value{
			{Kind: &structpb.Value_StringValue{StringValue: "abc"}},
		}}}},
	}})
	require.NoError(t, err)
	_, err = Decode(data)
	require.ErrorIs(t, err, chain.ErrInvalidDigest)
}
