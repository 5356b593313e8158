package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Encoder serialises message values.
type Encoder interface {
	Name() string
	ContentType() string
	Marshal(v any) ([]byte, error)
	Unmarshal(b []byte, v any) error
}

type jsonEncoder struct{}

func (jsonEncoder) Name() string                    { return "json" }
func (jsonEncoder) ContentType() string             { return "application/json" }
func (jsonEncoder) Marshal(v any) ([]byte, error)   { return json.Marshal(v) }
func (jsonEncoder) Unmarshal(b []byte, v any) error { return json.Unmarshal(b, v) }

// msgpack keeps NaN values that JSON cannot carry.
type msgpackEncoder struct{}

func (msgpackEncoder) Name() string                    { return "msgpack" }
func (msgpackEncoder) ContentType() string             { return "application/msgpack" }
func (msgpackEncoder) Marshal(v any) ([]byte, error)   { return msgpack.Marshal(v) }
func (msgpackEncoder) Unmarshal(b []byte, v any) error { return msgpack.Unmarshal(b, v) }

var (
	JSON    Encoder = jsonEncoder{}
	Msgpack Encoder = msgpackEncoder{}
)

// EncoderFor resolves a configured encoding name.
func EncoderFor(name string) (Encoder, error) {
	switch name {
	case "", "json":
		return JSON, nil
	case "msgpack":
		return Msgpack, nil
	}
	return nil, fmt.Errorf("unknown kafka encoding %q", name)
}

func encodeValue(enc Encoder, value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	}
	b, err := enc.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return b, nil
}
