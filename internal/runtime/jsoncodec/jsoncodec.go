// Package jsoncodec centralises JSON encoding for the runtime so event
// payloads, response bodies, and error documents all go through the same
// sonic configuration.
package jsoncodec

import (
	"io"

	"github.com/bytedance/sonic"
)

// ConfigStd matches encoding/json semantics (HTML escaping, sorted map keys),
// which is what the Runtime API and the proxy event shapes expect.
var defaultConfig = sonic.ConfigStd

func Marshal(v any) ([]byte, error) {
	return defaultConfig.Marshal(v)
}

func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return defaultConfig.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v any) error {
	return defaultConfig.Unmarshal(data, v)
}

func Encode(w io.Writer, v any) error {
	enc := defaultConfig.NewEncoder(w)
	return enc.Encode(v)
}

func Decode(r io.Reader, v any) error {
	dec := defaultConfig.NewDecoder(r)
	return dec.Decode(v)
}

// Valid reports whether data is a syntactically valid JSON document.
func Valid(data []byte) bool {
	return defaultConfig.Valid(data)
}
