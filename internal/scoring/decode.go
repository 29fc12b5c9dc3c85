package scoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedResponse is returned when a model response holds no usable JSON
// or does not match the expected schema.
var ErrMalformedResponse = errors.New("malformed model response")

// flexString accepts strings, numbers, booleans, null and arrays of strings.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}

	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
	case '[':
		var items []flexString
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		parts := make([]string, 0, len(items))
		for _, item := range items {
			if item != "" {
				parts = append(parts, string(item))
			}
		}
		*f = flexString(strings.Join(parts, "; "))
	case '{':
		return fmt.Errorf("expected string, got object")
	default:
		*f = flexString(string(b))
	}
	return nil
}

// orEmptyNull maps the literal "null" some models emit inside strings to "".
func (f flexString) orEmptyNull() string {
	if strings.EqualFold(string(f), "null") {
		return ""
	}
	return string(f)
}

// flexStrings accepts a list of strings or a single comma separated string.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = []string{}
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		out := []string{}
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*f = out
		return nil
	}

	var items []flexString
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item != "" {
			out = append(out, string(item))
		}
	}
	*f = out
	return nil
}

// flexFloat accepts numbers, numeric strings (optionally with a % suffix) and null.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("expected number, got %q", s)
		}
		*f = flexFloat(v)
		return nil
	}

	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("expected number, got %s", b)
	}
	*f = flexFloat(v)
	return nil
}

// flexInt is a flexFloat truncated toward zero.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	var v flexFloat
	if err := v.UnmarshalJSON(b); err != nil {
		return err
	}
	*f = flexInt(int(v))
	return nil
}

// flexBool accepts booleans, "true"/"yes"/"1" style strings, numbers and null.
type flexBool bool

func (f *flexBool) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = false
		return nil
	}

	switch b[0] {
	case 't', 'f':
		var v bool
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*f = flexBool(v)
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "yes", "y", "1":
			*f = true
		case "false", "no", "n", "0", "":
			*f = false
		default:
			return fmt.Errorf("expected boolean, got %q", s)
		}
	default:
		var v float64
		if err := json.Unmarshal(b, &v); err != nil {
			return fmt.Errorf("expected boolean, got %s", b)
		}
		*f = v != 0
	}
	return nil
}

// decodeObject unmarshals a model response into out after checking that it
// is a JSON object carrying at least one of keys.
func decodeObject(jsonText string, out any, keys ...string) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(jsonText), &fields); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if !hasAnyKey(fields, keys) {
		return fmt.Errorf("%w: none of the expected fields are present", ErrMalformedResponse)
	}

	if err := json.Unmarshal([]byte(jsonText), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// hasAnyKey matches case-insensitively, like encoding/json does for struct fields.
func hasAnyKey(fields map[string]json.RawMessage, keys []string) bool {
	for name := range fields {
		for _, key := range keys {
			if strings.EqualFold(name, key) {
				return true
			}
		}
	}
	return false
}
