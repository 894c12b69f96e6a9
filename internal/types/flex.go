package types

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
)

var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// FlexInt decodes from a JSON number (rounded) or any string carrying a
// number, such as "85", "85/100" or "Q3". Values with no number in them
// decode to 0. Models are not consistent about quoting scores or labelling
// question numbers.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*f = 0

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexInt(math.Round(n))
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	if m := numberPattern.FindString(s); m != "" {
		if n, err := strconv.ParseFloat(m, 64); err == nil {
			*f = FlexInt(math.Round(n))
		}
	}
	return nil
}

// FlexString decodes from any JSON value. Strings land as-is, other scalars
// as their literal text (a CGPA of 8.7 or an unquoted phone number) and
// objects or arrays as compact JSON.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	*f = FlexString(flexText(data))
	return nil
}

// FlexStrings decodes from a JSON list or a single value. A bare string
// becomes a one-element list, so "tech_stack": "Go, Redis" and
// "tech_stack": ["Go, Redis"] decode alike. Non-string elements follow
// FlexString.
type FlexStrings []string

func (f *FlexStrings) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = nil
		return nil
	}

	if data[0] != '[' {
		if s := flexText(data); s != "" {
			*f = FlexStrings{s}
		} else {
			*f = nil
		}
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	out := make(FlexStrings, 0, len(items))
	for _, item := range items {
		if s := flexText(item); s != "" {
			out = append(out, s)
		}
	}
	*f = out
	return nil
}

func flexText(data []byte) string {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return ""
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			return s
		}
	}
	if data[0] == '{' || data[0] == '[' {
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err == nil {
			return buf.String()
		}
	}
	return string(data)
}
