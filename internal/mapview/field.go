package mapview

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Field is a loosely typed value from a push payload. Numbers, booleans and
// numeric strings read as numbers; anything else reads as NaN. A null or
// missing value is unset.
type Field struct {
	num  float64
	text string
	raw  json.RawMessage
	set  bool
}

// Num returns a numeric field.
func Num(f float64) Field {
	text := formatNumber(f)
	raw := json.RawMessage(text)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		raw, _ = json.Marshal(text)
	}
	return Field{num: f, text: text, raw: raw, set: true}
}

// Bool returns a flag field: true reads as 1, false as 0.
func Bool(b bool) Field {
	if b {
		return Field{num: 1, text: "true", raw: json.RawMessage("true"), set: true}
	}
	return Field{num: 0, text: "false", raw: json.RawMessage("false"), set: true}
}

// Text returns a string field. Its numeric value is the parsed string or NaN.
func Text(s string) Field {
	raw, _ := json.Marshal(s)
	return Field{num: parseNumber(s), text: s, raw: raw, set: true}
}

func (f *Field) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || string(b) == "null":
		*f = Field{}
	case string(b) == "true":
		*f = Bool(true)
	case string(b) == "false":
		*f = Bool(false)
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = Text(s)
	default:
		*f = Field{num: parseNumber(string(b)), text: string(b), set: true}
		f.raw = append(json.RawMessage(nil), b...)
	}
	return nil
}

func (f Field) MarshalJSON() ([]byte, error) {
	if !f.set {
		return []byte("null"), nil
	}
	return f.raw, nil
}

// IsSet reports whether the payload carried a non-null value.
func (f Field) IsSet() bool { return f.set }

// Float returns the numeric value; unset fields are NaN.
func (f Field) Float() float64 {
	if !f.set {
		return math.NaN()
	}
	return f.num
}

// Truthy reports a set, non-zero, non-NaN number.
func (f Field) Truthy() bool {
	return f.set && f.num != 0 && !math.IsNaN(f.num)
}

// String is the display text used in popups. Unset fields render empty.
func (f Field) String() string { return f.text }

// Label is a key or display string. Numbers and booleans keep their literal
// text and null reads as empty, so a loosely typed id or name never fails a
// whole event.
type Label string

func (l *Label) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || string(b) == "null":
		*l = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = Label(s)
	default:
		*l = Label(b)
	}
	return nil
}

func parseNumber(s string) float64 {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return n
}

// formatNumber prints f the way it appears inside SVG transforms.
func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
