// Package api defines the Fund Flow RPC surface: message types, procedure
// names, and connect handler and client constructors.
//
// Messages are plain Go structs carried by a JSON codec registered under
// the name "json", so any connect client speaking the Connect protocol with
// JSON bodies can call the services.
package api

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// CodecName is the content subtype used on the wire.
const CodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Name() string { return CodecName }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// Codec returns the option that installs the JSON codec on a handler or
// client.
func Codec() connect.Option {
	return connect.WithCodec(jsonCodec{})
}
