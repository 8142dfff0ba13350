package history

import (
	"bytes"
	"encoding/gob"
	"errors"

	"github.com/jlammi/stride/pkg/api"
)

// encodeValue serializes an arbitrary Go value using encoding/gob.
// Callers must ensure that values are gob-encodable; concrete types inside
// interface values need gob.Register, just like with any gob stream.
func encodeValue(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	// Encode as interface{} so the payload can be decoded back into
	// interface{} without knowing the concrete type up front.
	iv := v
	if err := enc.Encode(&iv); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeValue is the inverse of encodeValue. Empty input decodes to nil.
func decodeValue(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var iv any
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&iv); err != nil {
		return nil, err
	}
	return iv, nil
}

// resultPayload is the storable form of api.Result. Errors survive only as
// their message; a decoded Result carries errors.New of the original text.
type resultPayload struct {
	Value    []byte
	Error    string
	Attempts int
}

func encodeResults(results []api.Result) ([]byte, error) {
	if results == nil {
		return nil, nil
	}
	payload := make([]resultPayload, len(results))
	for i, r := range results {
		val, err := encodeValue(r.Value)
		if err != nil {
			return nil, err
		}
		payload[i] = resultPayload{
			Value:    val,
			Attempts: r.Attempts,
		}
		if r.Err != nil {
			payload[i].Error = r.Err.Error()
		}
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeResults(data []byte) ([]api.Result, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var payload []resultPayload
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&payload); err != nil {
		return nil, err
	}

	results := make([]api.Result, len(payload))
	for i, p := range payload {
		val, err := decodeValue(p.Value)
		if err != nil {
			return nil, err
		}
		results[i] = api.Result{
			Value:    val,
			Attempts: p.Attempts,
		}
		if p.Error != "" {
			results[i].Err = errors.New(p.Error)
		}
	}
	return results, nil
}
