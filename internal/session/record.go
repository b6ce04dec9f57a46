package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// Record holds the values stored for one session id. Values are JSON values:
// nil, bool, json.Number, string, []any or map[string]any once read back.
// Numbers stay json.Number so rewriting a record never changes them.
type Record map[string]any

// Lookup returns the value stored under key and whether the key is present.
// Present values that are zero, false, empty or null are reported as present.
func (r Record) Lookup(key string) (any, bool) {
	v, ok := r[key]
	return v, ok
}

// Clone returns a shallow copy of the record
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// decodeRecord parses stored bytes. A JSON null decodes to an empty record.
func decodeRecord(data []byte) (Record, error) {
	var rec Record
	if err := decodeJSON(data, &rec); err != nil {
		return nil, err
	}
	if rec == nil {
		rec = Record{}
	}
	return rec, nil
}

// encodeRecord serializes the full record. Keys are written in sorted order,
// so equal records always encode to equal bytes.
func encodeRecord(rec Record) ([]byte, error) {
	if rec == nil {
		rec = Record{}
	}
	return json.Marshal(rec)
}

// decodeJSON decodes exactly one JSON value from data into v, keeping numbers
// as json.Number
func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}
