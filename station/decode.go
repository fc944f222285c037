package station

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DecodeSnapshot parses a station_data response body.
func DecodeSnapshot(body []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("station: decode snapshot: %w", err)
	}
	return &snap, nil
}

// DecodeTransmission parses a single transmission body.
func DecodeTransmission(body []byte) (*Transmission, error) {
	var t Transmission
	if err := json.Unmarshal(body, &t); err != nil {
		return nil, fmt.Errorf("station: decode transmission: %w", err)
	}
	return &t, nil
}

// Marshal encodes v with the package codec.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// WriteIndented writes v as two-space indented JSON followed by a newline.
func WriteIndented(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
