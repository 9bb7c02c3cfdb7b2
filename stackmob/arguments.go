package stackmob

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/shopspring/decimal"
)

// Arguments is a string-keyed mapping that remembers insertion order.
// Order is preserved in query strings and JSON bodies. Setting an existing
// key replaces its value in place. A nil *Arguments and the zero value both
// read as empty; the zero value is ready to use.
type Arguments struct {
	m *linkedhashmap.Map
}

// NewArguments returns an empty mapping.
func NewArguments() *Arguments {
	return &Arguments{m: linkedhashmap.New()}
}

// ArgumentsOf builds a mapping from alternating keys and values.
//
// Panics if kv has odd length or a key is not a string.
func ArgumentsOf(kv ...any) *Arguments {
	if len(kv)%2 != 0 {
		panic("ArgumentsOf: odd number of key/value elements")
	}
	a := NewArguments()
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("ArgumentsOf: key at position %d is %T, not string", i, kv[i]))
		}
		a.Set(k, kv[i+1])
	}
	return a
}

// ArgumentsFromMap copies m. Go maps are unordered, so keys are inserted in
// sorted order to keep requests deterministic.
func ArgumentsFromMap(m map[string]any) *Arguments {
	if m == nil {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	a := NewArguments()
	for _, k := range keys {
		a.Set(k, m[k])
	}
	return a
}

func (a *Arguments) empty() bool {
	return a == nil || a.m == nil
}

// Set stores v under k and returns the receiver.
//
// Panics on a nil receiver.
func (a *Arguments) Set(k string, v any) *Arguments {
	if a.m == nil {
		a.m = linkedhashmap.New()
	}
	a.m.Put(k, v)
	return a
}

// Get returns the value stored under k.
func (a *Arguments) Get(k string) (any, bool) {
	if a.empty() {
		return nil, false
	}
	return a.m.Get(k)
}

// Remove deletes k.
func (a *Arguments) Remove(k string) {
	if !a.empty() {
		a.m.Remove(k)
	}
}

// Len returns the number of entries.
func (a *Arguments) Len() int {
	if a.empty() {
		return 0
	}
	return a.m.Size()
}

// Keys returns the keys in insertion order.
func (a *Arguments) Keys() []string {
	if a.empty() {
		return nil
	}
	keys := make([]string, 0, a.m.Size())
	for _, k := range a.m.Keys() {
		keys = append(keys, k.(string))
	}
	return keys
}

// Each calls f for every entry in insertion order.
func (a *Arguments) Each(f func(k string, v any)) {
	if a.empty() {
		return
	}
	it := a.m.Iterator()
	for it.Next() {
		f(it.Key().(string), it.Value())
	}
}

// Clone returns a shallow copy.
func (a *Arguments) Clone() *Arguments {
	if a == nil {
		return nil
	}
	c := NewArguments()
	a.Each(func(k string, v any) { c.Set(k, v) })
	return c
}

// Merge copies every entry of other into a, overwriting existing keys, and
// returns a. On a nil receiver it returns a copy of other instead.
func (a *Arguments) Merge(other *Arguments) *Arguments {
	if a == nil {
		return other.Clone()
	}
	other.Each(func(k string, v any) { a.Set(k, v) })
	return a
}

// ToMap returns an unordered copy.
func (a *Arguments) ToMap() map[string]any {
	out := make(map[string]any, a.Len())
	a.Each(func(k string, v any) { out[k] = v })
	return out
}

// MarshalJSON encodes the mapping as a JSON object in insertion order.
func (a *Arguments) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	i := 0
	var err error
	a.Each(func(k string, v any) {
		if err != nil {
			return
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		i++

		var kb, vb []byte
		if kb, err = json.Marshal(k); err != nil {
			return
		}
		if vb, err = json.Marshal(v); err != nil {
			err = fmt.Errorf("argument %q: %w", k, err)
			return
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	})
	if err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Encode renders the mapping as a URL query string in insertion order.
func (a *Arguments) Encode() (string, error) {
	var parts []string
	var err error
	a.Each(func(k string, v any) {
		if err != nil {
			return
		}
		var s string
		if s, err = queryValue(v); err != nil {
			err = fmt.Errorf("argument %q: %w", k, err)
			return
		}
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(s))
	})
	if err != nil {
		return "", err
	}
	return strings.Join(parts, "&"), nil
}

// queryValue formats one argument value for a query string. Lists become
// comma separated, as the [in] operator expects; objects become JSON.
func queryValue(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case uint:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "", fmt.Errorf("unsupported float value %v", x)
		}
		return decimal.NewFromFloat(x).String(), nil
	case float32:
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return "", fmt.Errorf("unsupported float value %v", x)
		}
		return decimal.NewFromFloat32(x).String(), nil
	case decimal.Decimal:
		return x.String(), nil
	case json.Number:
		return x.String(), nil
	case *Arguments, map[string]any:
		b, err := json.Marshal(x)
		if err != nil {
			return "", err
		}
		return string(b), nil
	case fmt.Stringer:
		return x.String(), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			s, err := queryValue(rv.Index(i).Interface())
			if err != nil {
				return "", err
			}
			items = append(items, s)
		}
		return strings.Join(items, ","), nil
	case reflect.Int8, reflect.Int16:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Map, reflect.Struct:
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	case reflect.Func, reflect.Chan, reflect.Complex64, reflect.Complex128, reflect.UnsafePointer:
		return "", fmt.Errorf("unsupported query value type %T", v)
	default:
		return fmt.Sprint(v), nil
	}
}
