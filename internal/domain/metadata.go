package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Well-known metadata keys.
const (
	// MetaStorageLocation is the object-storage location of the video. Every
	// persisted VideoRecord carries it; it is also the dedup content key.
	MetaStorageLocation = "s3Url"
	// MetaLegacyVideoURL is the content key written by older ingestion paths.
	MetaLegacyVideoURL = "videoUrl"

	MetaOriginalFileName = "originalFileName"
	MetaContentType      = "contentType"
	MetaSizeBytes        = "sizeBytes"
	MetaDescription      = "description"
)

type ValueKind uint8

const (
	KindInvalid ValueKind = iota
	KindString
	KindNumber
	KindBool
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "invalid"
	}
}

// Value is a metadata scalar: a string, a finite number or a boolean.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
}

func String(s string) Value { return Value{kind: KindString, str: s} }

// Number returns an invalid Value for NaN or infinities; index backends reject them.
func Number(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{kind: KindNumber, num: f}
}

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) Valid() bool     { return v.kind != KindInvalid }

func (v Value) AsString() (string, bool)  { return v.str, v.kind == KindString }
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }
func (v Value) AsBool() (bool, bool)      { return v.b, v.kind == KindBool }

// Any returns the plain Go value (string, float64, bool) or nil when invalid.
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// ValueOf converts a decoded JSON (or driver) scalar into a Value.
// Non-scalar inputs report ok=false.
func ValueOf(x any) (Value, bool) {
	switch t := x.(type) {
	case Value:
		return t, t.Valid()
	case string:
		return String(t), true
	case bool:
		return Bool(t), true
	case float64:
		v := Number(t)
		return v, v.Valid()
	case float32:
		v := Number(float64(t))
		return v, v.Valid()
	case int:
		return Number(float64(t)), true
	case int32:
		return Number(float64(t)), true
	case int64:
		return Number(float64(t)), true
	case uint32:
		return Number(float64(t)), true
	case uint64:
		return Number(float64(t)), true
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, false
		}
		v := Number(f)
		return v, v.Valid()
	default:
		return Value{}, false
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(v.Any())
}

func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*v = Value{}
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, ok := ValueOf(raw)
	if !ok {
		return fmt.Errorf("metadata value must be a string, number or boolean, got %s", string(b))
	}
	*v = parsed
	return nil
}

// Metadata is the annotation map attached to a vector record.
type Metadata map[string]Value

// MetadataFromMap keeps the scalar entries of m and drops everything else.
func MetadataFromMap(m map[string]any) Metadata {
	out := make(Metadata, len(m))
	for k, raw := range m {
		if k == "" {
			continue
		}
		if v, ok := ValueOf(raw); ok {
			out[k] = v
		}
	}
	return out
}

func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Merge returns a copy of m with overlay applied on top. Neither input is mutated.
func (m Metadata) Merge(overlay Metadata) Metadata {
	out := m.Clone()
	for k, v := range overlay {
		if !v.Valid() {
			continue
		}
		out[k] = v
	}
	return out
}

func (m Metadata) GetString(key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	return v.AsString()
}

// StorageLocation returns the object-storage location, or "" when absent.
func (m Metadata) StorageLocation() string {
	s, _ := m.GetString(MetaStorageLocation)
	return s
}

// ContentKey is the stable identity used to detect the same video stored
// under several index entries. It falls back to fallbackID.
func (m Metadata) ContentKey(fallbackID string) string {
	if s, ok := m.GetString(MetaStorageLocation); ok && s != "" {
		return s
	}
	if s, ok := m.GetString(MetaLegacyVideoURL); ok && s != "" {
		return s
	}
	return fallbackID
}

// ToMap renders m as plain Go values for wire encoding.
func (m Metadata) ToMap() map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if v.Valid() {
			out[k] = v.Any()
		}
	}
	return out
}

func (m Metadata) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
