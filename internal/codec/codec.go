// Package codec implements the portable JSON snapshot envelope used by
// every persisted snapshot the spec calls portable (index, journal
// range, probabilistic-extension stores): UTF-8 JSON, typed floats as
// plain number arrays, vector clocks as plain {nodeId: counter} objects,
// byte buffers wrapped as {__binary:true,data} with base64 data, and
// dates wrapped as {__date:true,data} with an ISO-8601 string. This is
// deliberately separate from internal/kvstore's msgpack-based internal
// durability format, which never needs to be portable off this engine.
package codec

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// Bytes wraps a byte slice so it marshals as {__binary:true,data}.
type Bytes []byte

type binaryEnvelope struct {
	Binary bool   `json:"__binary"`
	Data   string `json:"data"`
}

// MarshalJSON implements json.Marshaler.
func (b Bytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(binaryEnvelope{Binary: true, Data: base64.StdEncoding.EncodeToString(b)})
}

// UnmarshalJSON implements json.Unmarshaler. It accepts either the
// {__binary:true,data} envelope or a bare base64 string, for leniency
// reading snapshots written by a future minor-version bump.
func (b *Bytes) UnmarshalJSON(data []byte) error {
	var env binaryEnvelope
	if err := json.Unmarshal(data, &env); err == nil && env.Binary {
		decoded, err := base64.StdEncoding.DecodeString(env.Data)
		if err != nil {
			return fmt.Errorf("codec: decode __binary payload: %w", err)
		}
		*b = decoded
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("codec: decode bytes field: %w", err)
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return fmt.Errorf("codec: decode base64 payload: %w", err)
	}
	*b = decoded
	return nil
}

// Time wraps a time.Time so it marshals as {__date:true,data:ISO8601}.
type Time time.Time

type dateEnvelope struct {
	Date bool   `json:"__date"`
	Data string `json:"data"`
}

// MarshalJSON implements json.Marshaler.
func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(dateEnvelope{Date: true, Data: time.Time(t).UTC().Format(time.RFC3339Nano)})
}

// UnmarshalJSON implements json.Unmarshaler, with the same bare-string
// leniency as Bytes.
func (t *Time) UnmarshalJSON(data []byte) error {
	var env dateEnvelope
	if err := json.Unmarshal(data, &env); err == nil && env.Date {
		parsed, err := time.Parse(time.RFC3339Nano, env.Data)
		if err != nil {
			return fmt.Errorf("codec: parse __date payload: %w", err)
		}
		*t = Time(parsed)
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("codec: decode date field: %w", err)
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return fmt.Errorf("codec: parse date string: %w", err)
	}
	*t = Time(parsed)
	return nil
}

// Std returns t as a standard library time.Time.
func (t Time) Std() time.Time { return time.Time(t) }

// Marshal encodes v as portable-format JSON.
func Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes portable-format JSON into v.
func Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
