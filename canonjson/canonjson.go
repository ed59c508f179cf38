/*
 * Copyright (c) 2026 Chaintrust Authors. All rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package canonjson produces the deterministic JSON form used as signing
// bytes throughout the trust chain. Two structurally equal values encode
// to byte-identical output regardless of construction order: object keys
// are sorted by byte value, no insignificant whitespace is emitted,
// strings carry only the escapes JSON requires, and every integer has
// exactly one decimal form. Values outside the canonical domain
// (fractional, exponent-form or non-finite numbers, invalid UTF-8) fail
// with ErrNonCanonicalValue.
package canonjson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"unicode/utf8"
)

var (
	ErrNonCanonicalValue = errors.New("value has no canonical encoding")
	ErrDuplicateKey      = errors.New("duplicate object key")
)

// Marshal encodes v into its canonical byte form. Maps, slices, strings,
// booleans, nil and integers encode directly; any other Go value is first
// flattened through encoding/json and then encoded canonically, so typed
// documents and plain value trees produce the same bytes.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, v, "$"); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a JSON document into the canonical value domain: nil,
// bool, string, json.Number, []any and map[string]any. Duplicate object
// keys and trailing data are rejected.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after JSON document")
	}
	return v, nil
}

func encode(buf *bytes.Buffer, v any, path string) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		return encodeString(buf, t, path)
	case json.Number:
		return encodeNumber(buf, t, path)
	case int:
		buf.WriteString(strconv.FormatInt(int64(t), 10))
	case int8:
		buf.WriteString(strconv.FormatInt(int64(t), 10))
	case int16:
		buf.WriteString(strconv.FormatInt(int64(t), 10))
	case int32:
		buf.WriteString(strconv.FormatInt(int64(t), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(t, 10))
	case uint:
		buf.WriteString(strconv.FormatUint(uint64(t), 10))
	case uint8:
		buf.WriteString(strconv.FormatUint(uint64(t), 10))
	case uint16:
		buf.WriteString(strconv.FormatUint(uint64(t), 10))
	case uint32:
		buf.WriteString(strconv.FormatUint(uint64(t), 10))
	case uint64:
		buf.WriteString(strconv.FormatUint(t, 10))
	case float32, float64:
		return fmt.Errorf("%w: floating point number at %s", ErrNonCanonicalValue, path)
	case []any:
		buf.WriteByte('[')
		for i, elem := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, elem, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		// byte-order sort; never the map's iteration order
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeString(buf, k, path); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := encode(buf, t[k], path+"."+k); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return encodeForeign(buf, v, path)
	}
	return nil
}

// encodeForeign flattens a typed value (struct, typed map or slice)
// through encoding/json and re-encodes the resulting value tree, so
// numeric fidelity and the canonical rules still apply.
func encodeForeign(buf *bytes.Buffer, v any, path string) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNonCanonicalValue, path, err)
	}
	flat, err := Decode(raw)
	if err != nil {
		return err
	}
	return encode(buf, flat, path)
}

// encodeNumber accepts only the fixed decimal integer form: optional
// minus, no leading zeros, no fraction, no exponent, no negative zero.
// Exponent forms are rejected even when integral, because 1e3 and 1000
// would otherwise be two encodings of one value.
func encodeNumber(buf *bytes.Buffer, n json.Number, path string) error {
	s := string(n)
	if !integralForm(s) {
		return fmt.Errorf("%w: number %q at %s", ErrNonCanonicalValue, s, path)
	}
	buf.WriteString(s)
	return nil
}

func integralForm(s string) bool {
	body := s
	if len(body) > 0 && body[0] == '-' {
		body = body[1:]
	}
	if len(body) == 0 {
		return false
	}
	for i := 0; i < len(body); i++ {
		if body[i] < '0' || body[i] > '9' {
			return false
		}
	}
	if len(body) > 1 && body[0] == '0' {
		return false
	}
	if body == "0" && s[0] == '-' {
		return false
	}
	return true
}

const hexDigits = "0123456789abcdef"

// encodeString writes s as UTF-8 with minimal escaping: only the quote,
// the backslash and control characters are escaped, everything else
// passes through unchanged.
func encodeString(buf *bytes.Buffer, s string, path string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: invalid UTF-8 string at %s", ErrNonCanonicalValue, path)
	}
	buf.WriteByte('"')
	for i := 0; i < len(s); i++ {
		b := s[i]
		switch {
		case b == '"':
			buf.WriteString(`\"`)
		case b == '\\':
			buf.WriteString(`\\`)
		case b >= 0x20:
			buf.WriteByte(b)
		case b == '\b':
			buf.WriteString(`\b`)
		case b == '\f':
			buf.WriteString(`\f`)
		case b == '\n':
			buf.WriteString(`\n`)
		case b == '\r':
			buf.WriteString(`\r`)
		case b == '\t':
			buf.WriteString(`\t`)
		default:
			buf.WriteString(`\u00`)
			buf.WriteByte(hexDigits[b>>4])
			buf.WriteByte(hexDigits[b&0xf])
		}
	}
	buf.WriteByte('"')
	return nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := make(map[string]any)
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key %v is not a string", keyTok)
				}
				if _, dup := obj[key]; dup {
					return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, key)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				obj[key] = val
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := []any{}
			for dec.More() {
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %q", t.String())
	default:
		return t, nil
	}
}
