// Package relay forwards accepted chain records upstream.
package relay

import (
	"context"
	"fmt"

	"github.com/golang/protobuf/proto"
	structpb "github.com/golang/protobuf/ptypes/struct"

	"github.com/robotalks/telechain/pkg/chain"
)

// Record is a reading the peer acknowledged, with the chain it was sent with.
type Record struct {
	Device  string
	Reading chain.Reading
	Digests []chain.Digest
	InRange bool
}

// Publisher forwards records.
type Publisher interface {
	Publish(context.Context, Record) error
}

// PublishFunc is func type of Publisher.
type PublishFunc func(context.Context, Record) error

// Publish implements Publisher.
func (f PublishFunc) Publish(ctx context.Context, r Record) error {
	return f(ctx, r)
}

// Discard drops every record.
var Discard Publisher = PublishFunc(func(context.Context, Record) error { return nil })

// Record field names.
const (
	FieldDevice      = "device"
	FieldUTC         = "utc"
	FieldTemperature = "temperature"
	FieldHumidity    = "humidity"
	FieldInRange     = "in_range"
	FieldDigests     = "digests"
)

// Encode serializes r as a protobuf Struct.
func Encode(r Record) ([]byte, error) {
	digests := make([]*structpb.Value, len(r.Digests))
	for n, d := range r.Digests {
		digests[n] = &structpb.Value{Kind: &structpb.Value_StringValue{StringValue: d.String()}}
	}
	s := &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldDevice:      {Kind: &structpb.Value_StringValue{StringValue: r.Device}},
		FieldUTC:         {Kind: &structpb.Value_NumberValue{NumberValue: float64(r.Reading.Timestamp)}},
		FieldTemperature: {Kind: &structpb.Value_NumberValue{NumberValue: r.Reading.Temperature}},
		FieldHumidity:    {Kind: &structpb.Value_NumberValue{NumberValue: r.Reading.Humidity}},
		FieldInRange:     {Kind: &structpb.Value_BoolValue{BoolValue: r.InRange}},
		FieldDigests:     {Kind: &structpb.Value_ListValue{ListValue: &structpb.ListValue{Values: digests}}},
	}}
	return proto.Marshal(s)
}

// Decode parses a record serialized by Encode.
func Decode(data []byte) (r Record, err error) {
	var s structpb.Struct
	if err = proto.Unmarshal(data, &s); err != nil {
		return
	}
	f := s.GetFields()
	r.Device = f[FieldDevice].GetStringValue()
	r.Reading.Timestamp = int64(f[FieldUTC].GetNumberValue())
	r.Reading.Temperature = f[FieldTemperature].GetNumberValue()
	r.Reading.Humidity = f[FieldHumidity].GetNumberValue()
	r.InRange = f[FieldInRange].GetBoolValue()
	for n, v := range f[FieldDigests].GetListValue().GetValues() {
		d, err := chain.ParseDigest(v.GetStringValue())
		if err != nil {
			return r, fmt.Errorf("digest %d: %w", n, err)
		}
		r.Digests = append(r.Digests, d)
	}
	return
}
