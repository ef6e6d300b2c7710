package transport

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// JSONCodecName is the gRPC content subtype carried by TxPoolService calls.
const JSONCodecName = "json"

func init() {
	encoding.RegisterCodec(JSONCodec{})
}

// JSONCodec lets plain Go structs travel over gRPC next to the proto services.
type JSONCodec struct{}

// Name returns the content subtype the codec is registered under.
func (JSONCodec) Name() string {
	return JSONCodecName
}

// Marshal serializes the message to JSON.
func (JSONCodec) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("json marshal: %w", err)
	}
	return data, nil
}

// Unmarshal deserializes the message from JSON.
func (JSONCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("json unmarshal: %w", err)
	}
	return nil
}
