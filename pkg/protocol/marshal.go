package protocol

import (
	"bytes"
	"fmt"
	"reflect"
	"sync"
)

const tagName = "mc"

type taggedField struct {
	index int
	name  string
	tag   string
}

// layouts caches the tagged field list per struct type.
var layouts sync.Map // reflect.Type -> []taggedField

func layoutOf(t reflect.Type) []taggedField {
	if cached, ok := layouts.Load(t); ok {
		return cached.([]taggedField)
	}
	var fields []taggedField
	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get(tagName)
		if tag == "" || tag == "-" {
			continue
		}
		fields = append(fields, taggedField{index: i, name: f.Name, tag: tag})
	}
	layouts.Store(t, fields)
	return fields
}

// Marshal encodes the mc-tagged fields of p in declaration order.
func Marshal(p Packet) ([]byte, error) {
	return Encode(p)
}

// Unmarshal decodes data into the mc-tagged fields of the struct p points to.
func Unmarshal(data []byte, p Packet) error {
	return Decode(data, p)
}

// Encode is Marshal for any mc-tagged struct, such as a plugin channel
// payload that is not itself a packet.
func Encode(s any) ([]byte, error) {
	v := reflect.ValueOf(s)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("marshal: expected struct, got %s", v.Kind())
	}

	var buf bytes.Buffer
	for _, f := range layoutOf(v.Type()) {
		if err := WriteField(&buf, f.tag, v.Field(f.index).Interface()); err != nil {
			return nil, fmt.Errorf("marshal field %s: %w", f.name, err)
		}
	}
	return buf.Bytes(), nil
}

// Decode is Unmarshal for any pointer to an mc-tagged struct.
func Decode(data []byte, s any) error {
	v := reflect.ValueOf(s)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return fmt.Errorf("unmarshal: expected non-nil pointer, got %T", s)
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("unmarshal: expected pointer to struct, got pointer to %s", v.Kind())
	}

	r := bytes.NewReader(data)
	for _, f := range layoutOf(v.Type()) {
		val, err := ReadField(r, f.tag)
		if err != nil {
			return fmt.Errorf("unmarshal field %s: %w", f.name, err)
		}
		fv := v.Field(f.index)
		rv := reflect.ValueOf(val)
		if !rv.Type().AssignableTo(fv.Type()) {
			return fmt.Errorf("unmarshal field %s: cannot assign %s to %s", f.name, rv.Type(), fv.Type())
		}
		fv.Set(rv)
	}
	return nil
}
