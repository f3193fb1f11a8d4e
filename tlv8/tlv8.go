// Package tlv8 implements the type-length-value encoding used by HAP.
//
// Values are annotated with a `tlv8:"<type>"` struct tag. Items longer than
// 255 bytes are split into consecutive items of the same type and transparently
// reassembled when decoding. Slices of structs are encoded as sequences
// delimited by zero-length separator items.
package tlv8

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"io/ioutil"
	"reflect"
	"strconv"
)

const (
	// typeSeparator delimits elements of a sequence.
	typeSeparator = 0xff

	// maxLen is the maximum value length of a single item.
	maxLen = 0xff
)

// Marshal returns the tlv8 encoding of v.
//
// v must be a struct, a pointer to a struct, or a slice of structs.
// Struct fields are encoded in declaration order.
func Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer

	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	switch val.Kind() {
	case reflect.Struct:
		if err := marshalStruct(&buf, val); err != nil {
			return nil, err
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < val.Len(); i++ {
			if i > 0 {
				writeItem(&buf, typeSeparator, nil)
			}
			elem := val.Index(i)
			if elem.Kind() == reflect.Ptr {
				elem = elem.Elem()
			}
			if elem.Kind() != reflect.Struct {
				return nil, fmt.Errorf("tlv8: cannot marshal slice of %s", elem.Kind())
			}
			if err := marshalStruct(&buf, elem); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("tlv8: cannot marshal %s", val.Kind())
	}

	return buf.Bytes(), nil
}

func marshalStruct(buf *bytes.Buffer, val reflect.Value) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		t, ok, err := fieldType(field)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		f := val.Field(i)
		switch f.Kind() {
		case reflect.Uint8:
			writeItem(buf, t, []byte{byte(f.Uint())})
		case reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
			writeItem(buf, t, uintBytes(f.Uint()))
		case reflect.Bool:
			var b byte
			if f.Bool() {
				b = 1
			}
			writeItem(buf, t, []byte{b})
		case reflect.String:
			if f.Len() > 0 {
				writeItem(buf, t, []byte(f.String()))
			}
		case reflect.Slice:
			if f.Type().Elem().Kind() != reflect.Uint8 {
				return fmt.Errorf("tlv8: cannot marshal field %s of type %s", field.Name, f.Type())
			}
			if f.Len() > 0 {
				writeItem(buf, t, f.Bytes())
			}
		default:
			return fmt.Errorf("tlv8: cannot marshal field %s of type %s", field.Name, f.Type())
		}
	}

	return nil
}

// writeItem writes an item, fragmenting values longer than 255 bytes
// into consecutive items of the same type.
func writeItem(buf *bytes.Buffer, t byte, value []byte) {
	for {
		n := len(value)
		if n > maxLen {
			n = maxLen
		}
		buf.WriteByte(t)
		buf.WriteByte(byte(n))
		buf.Write(value[:n])
		value = value[n:]
		if len(value) == 0 {
			break
		}
	}
}

// uintBytes returns the little-endian encoding of v
// using the minimum number of bytes.
func uintBytes(v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	n := 1
	for i := 7; i > 0; i-- {
		if b[i] != 0 {
			n = i + 1
			break
		}
	}
	return b[:n]
}

// item is a decoded tlv8 item with fragments already reassembled.
type item struct {
	t     byte
	value []byte
}

// parse splits b into items. Consecutive items of the same type are merged
// when the preceding fragment is 255 bytes long. An item whose declared
// length overruns b is an error.
func parse(b []byte) ([]item, error) {
	var items []item
	for len(b) > 0 {
		if len(b) < 2 {
			return nil, fmt.Errorf("tlv8: truncated item header")
		}
		t := b[0]
		n := int(b[1])
		if n > len(b)-2 {
			return nil, fmt.Errorf("tlv8: item of type %d declares %d bytes, %d available", t, n, len(b)-2)
		}
		value := b[2 : 2+n]
		b = b[2+n:]

		if len(items) > 0 {
			if last := &items[len(items)-1]; last.t == t && len(last.value) > 0 && len(last.value)%maxLen == 0 {
				last.value = append(last.value, value...)
				continue
			}
		}
		items = append(items, item{t: t, value: append([]byte{}, value...)})
	}

	return items, nil
}

// Unmarshal parses the tlv8-encoded data and stores the result in the
// value pointed to by v, which must be a pointer to a struct or a pointer
// to a slice of structs.
func Unmarshal(data []byte, v interface{}) error {
	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("tlv8: cannot unmarshal into %T", v)
	}
	val = val.Elem()

	items, err := parse(data)
	if err != nil {
		return err
	}

	switch val.Kind() {
	case reflect.Struct:
		return unmarshalStruct(items, val)
	case reflect.Slice:
		elemTyp := val.Type().Elem()
		if elemTyp.Kind() != reflect.Struct {
			return fmt.Errorf("tlv8: cannot unmarshal into slice of %s", elemTyp.Kind())
		}
		for _, group := range split(items) {
			elem := reflect.New(elemTyp).Elem()
			if err := unmarshalStruct(group, elem); err != nil {
				return err
			}
			val.Set(reflect.Append(val, elem))
		}
		return nil
	}

	return fmt.Errorf("tlv8: cannot unmarshal into %s", val.Kind())
}

// UnmarshalReader reads all data from r and parses it like Unmarshal.
func UnmarshalReader(r io.Reader, v interface{}) error {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return err
	}

	return Unmarshal(b, v)
}

// split groups items delimited by separator items.
func split(items []item) [][]item {
	var groups [][]item
	var cur []item
	for _, it := range items {
		if it.t == typeSeparator {
			if len(cur) > 0 {
				groups = append(groups, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, it)
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}

	return groups
}

func unmarshalStruct(items []item, val reflect.Value) error {
	byType := make(map[byte][]byte, len(items))
	for _, it := range items {
		byType[it.t] = it.value
	}

	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		t, ok, err := fieldType(field)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		b, ok := byType[t]
		if !ok {
			continue
		}

		f := val.Field(i)
		switch f.Kind() {
		case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
			u, err := parseUint(b)
			if err != nil {
				return fmt.Errorf("tlv8: field %s: %v", field.Name, err)
			}
			if f.OverflowUint(u) {
				return fmt.Errorf("tlv8: field %s: value %d overflows %s", field.Name, u, f.Type())
			}
			f.SetUint(u)
		case reflect.Bool:
			f.SetBool(len(b) > 0 && b[0] != 0)
		case reflect.String:
			f.SetString(string(b))
		case reflect.Slice:
			if f.Type().Elem().Kind() != reflect.Uint8 {
				return fmt.Errorf("tlv8: cannot unmarshal field %s of type %s", field.Name, f.Type())
			}
			f.SetBytes(b)
		default:
			return fmt.Errorf("tlv8: cannot unmarshal field %s of type %s", field.Name, f.Type())
		}
	}

	return nil
}

func parseUint(b []byte) (uint64, error) {
	if len(b) > 8 {
		return 0, fmt.Errorf("integer longer than 8 bytes")
	}
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v, nil
}

// fieldType returns the item type of a struct field.
// Fields without a tlv8 tag or tagged with "-" are skipped.
func fieldType(field reflect.StructField) (byte, bool, error) {
	tag, ok := field.Tag.Lookup("tlv8")
	if !ok || tag == "-" {
		return 0, false, nil
	}
	n, err := strconv.ParseUint(tag, 10, 8)
	if err != nil {
		return 0, false, fmt.Errorf("tlv8: invalid tag %q on field %s", tag, field.Name)
	}
	return byte(n), true, nil
}
