package sgml

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ValueKind identifies which member of a Value is populated.
type ValueKind int

const (
	// ValueText is a single data-bearing tag.
	ValueText ValueKind = iota
	// ValueList is a data-bearing array tag.
	ValueList
	// ValueFlag is a bare flag tag.
	ValueFlag
	// ValueRecord is a single hierarchical tag.
	ValueRecord
	// ValueRecords is a hierarchical array tag.
	ValueRecords
)

// Value is the tagged variant stored under each record key.
type Value struct {
	Kind    ValueKind
	Text    string
	List    []string
	Flag    bool
	Record  *Record
	Records []*Record
}

// Text builds a scalar value.
func Text(s string) Value { return Value{Kind: ValueText, Text: s} }

// List builds a string list value.
func List(items ...string) Value { return Value{Kind: ValueList, List: items} }

// Flag builds a flag value.
func Flag(set bool) Value { return Value{Kind: ValueFlag, Flag: set} }

// Nested builds a single nested record value.
func Nested(r *Record) Value { return Value{Kind: ValueRecord, Record: r} }

// NestedList builds a list of nested records.
func NestedList(rs ...*Record) Value { return Value{Kind: ValueRecords, Records: rs} }

// Field is one key/value pair of a record.
type Field struct {
	Key   string
	Value Value
}

// inlineKey holds the inline data of a hierarchical root tag in JSON form.
const inlineKey = "_value"

// Record is an ordered map from record keys to values.
type Record struct {
	// Inline is the data a hierarchical root tag carried on its opening line.
	Inline string

	fields []Field
	index  map[string]int
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{index: make(map[string]int)}
}

// Len returns the number of fields.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.fields)
}

// Fields returns the fields in order. The slice must not be modified.
func (r *Record) Fields() []Field {
	if r == nil {
		return nil
	}
	return r.fields
}

// Keys returns the field keys in order.
func (r *Record) Keys() []string {
	keys := make([]string, 0, r.Len())
	for _, f := range r.Fields() {
		keys = append(keys, f.Key)
	}
	return keys
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (Value, bool) {
	if r == nil {
		return Value{}, false
	}
	idx, ok := r.index[key]
	if !ok {
		return Value{}, false
	}
	return r.fields[idx].Value, true
}

// Has reports whether key is present.
func (r *Record) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Set stores value under key, keeping the original position when the key
// already exists.
func (r *Record) Set(key string, value Value) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if idx, ok := r.index[key]; ok {
		r.fields[idx].Value = value
		return
	}
	r.index[key] = len(r.fields)
	r.fields = append(r.fields, Field{Key: key, Value: value})
}

// SetText stores a scalar.
func (r *Record) SetText(key, value string) { r.Set(key, Text(value)) }

// Delete removes key.
func (r *Record) Delete(key string) {
	idx, ok := r.index[key]
	if !ok {
		return
	}
	r.fields = append(r.fields[:idx], r.fields[idx+1:]...)
	delete(r.index, key)
	for i := idx; i < len(r.fields); i++ {
		r.index[r.fields[i].Key] = i
	}
}

// String returns the scalar stored under key, or "" when absent or not a
// scalar.
func (r *Record) String(key string) string {
	v, ok := r.Get(key)
	if !ok || v.Kind != ValueText {
		return ""
	}
	return v.Text
}

// Strings returns the list stored under key. A scalar is returned as a
// one-element list.
func (r *Record) Strings(key string) []string {
	v, ok := r.Get(key)
	if !ok {
		return nil
	}
	switch v.Kind {
	case ValueList:
		return v.List
	case ValueText:
		return []string{v.Text}
	}
	return nil
}

// Bool returns the flag stored under key.
func (r *Record) Bool(key string) bool {
	v, ok := r.Get(key)
	return ok && v.Kind == ValueFlag && v.Flag
}

// Child returns the nested record stored under key. For a record list the
// first element is returned.
func (r *Record) Child(key string) *Record {
	v, ok := r.Get(key)
	if !ok {
		return nil
	}
	switch v.Kind {
	case ValueRecord:
		return v.Record
	case ValueRecords:
		if len(v.Records) > 0 {
			return v.Records[0]
		}
	}
	return nil
}

// Children returns the nested records stored under key.
func (r *Record) Children(key string) []*Record {
	v, ok := r.Get(key)
	if !ok {
		return nil
	}
	switch v.Kind {
	case ValueRecords:
		return v.Records
	case ValueRecord:
		return []*Record{v.Record}
	}
	return nil
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := NewRecord()
	out.Inline = r.Inline
	for _, f := range r.fields {
		out.Set(f.Key, f.Value.clone())
	}
	return out
}

func (v Value) clone() Value {
	out := v
	if v.List != nil {
		out.List = append([]string(nil), v.List...)
	}
	if v.Record != nil {
		out.Record = v.Record.Clone()
	}
	if v.Records != nil {
		out.Records = make([]*Record, len(v.Records))
		for i, r := range v.Records {
			out.Records[i] = r.Clone()
		}
	}
	return out
}

// MarshalJSON renders the record as a JSON object preserving field order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	writeKey := func(key string) error {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		encoded, err := json.Marshal(key)
		if err != nil {
			return err
		}
		buf.Write(encoded)
		buf.WriteByte(':')
		return nil
	}
	if r != nil && r.Inline != "" {
		if err := writeKey(inlineKey); err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(r.Inline)
		if err != nil {
			return nil, err
		}
		buf.Write(encoded)
	}
	for _, f := range r.Fields() {
		if err := writeKey(f.Key); err != nil {
			return nil, err
		}
		encoded, err := f.Value.marshal()
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", f.Key, err)
		}
		buf.Write(encoded)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (v Value) marshal() ([]byte, error) {
	switch v.Kind {
	case ValueText:
		return json.Marshal(v.Text)
	case ValueList:
		if v.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.List)
	case ValueFlag:
		return json.Marshal(v.Flag)
	case ValueRecord:
		return v.Record.MarshalJSON()
	case ValueRecords:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, child := range v.Records {
			if i > 0 {
				buf.WriteByte(',')
			}
			encoded, err := child.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(encoded)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unknown value kind %d", v.Kind)
}

// UnmarshalJSON reads a record produced by MarshalJSON, preserving key order.
// Arrays of strings become lists and arrays of objects become record lists.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("record must be a JSON object")
	}
	parsed, err := readObject(dec)
	if err != nil {
		return err
	}
	*r = *parsed
	return nil
}

func readObject(dec *json.Decoder) (*Record, error) {
	out := NewRecord()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}
		value, err := readValue(dec)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if key == inlineKey && value.Kind == ValueText {
			out.Inline = value.Text
			continue
		}
		out.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

func readValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	switch t := tok.(type) {
	case string:
		return Text(t), nil
	case json.Number:
		return Text(t.String()), nil
	case bool:
		return Flag(t), nil
	case nil:
		return Text(""), nil
	case json.Delim:
		switch t {
		case '{':
			child, err := readObject(dec)
			if err != nil {
				return Value{}, err
			}
			return Nested(child), nil
		case '[':
			return readArray(dec)
		}
	}
	return Value{}, fmt.Errorf("unexpected token %v", tok)
}

func readArray(dec *json.Decoder) (Value, error) {
	var (
		texts   []string
		records []*Record
	)
	for dec.More() {
		item, err := readValue(dec)
		if err != nil {
			return Value{}, err
		}
		switch item.Kind {
		case ValueText:
			texts = append(texts, item.Text)
		case ValueRecord:
			records = append(records, item.Record)
		default:
			return Value{}, errors.New("arrays must hold strings or objects")
		}
		if texts != nil && records != nil {
			return Value{}, errors.New("arrays must not mix strings and objects")
		}
	}
	if _, err := dec.Token(); err != nil {
		return Value{}, err
	}
	if records != nil {
		return NestedList(records...), nil
	}
	if texts == nil {
		texts = []string{}
	}
	return List(texts...), nil
}
