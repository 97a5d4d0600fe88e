package tenant

import (
	"encoding/json"
	"fmt"
)

// SettingKind declares how a setting value is typed.
type SettingKind string

const (
	KindText   SettingKind = "text"
	KindNumber SettingKind = "number"
	KindBool   SettingKind = "bool"
	KindJSON   SettingKind = "json"
)

// SettingValue is a tagged union over the supported setting kinds.
// Values are constructed through the typed constructors and read back through
// the typed accessors; reading with the wrong accessor fails instead of
// silently coercing.
type SettingValue struct {
	kind SettingKind
	text string
	num  float64
	b    bool
	raw  json.RawMessage
}

// Setting is one grouped key/value pair attached to a tenant.
type Setting struct {
	Group string       `json:"group"`
	Key   string       `json:"key"`
	Value SettingValue `json:"value"`
}

// Text creates a text-kind setting value.
func Text(s string) SettingValue { return SettingValue{kind: KindText, text: s} }

// Number creates a number-kind setting value.
func Number(n float64) SettingValue { return SettingValue{kind: KindNumber, num: n} }

// Bool creates a bool-kind setting value.
func Bool(b bool) SettingValue { return SettingValue{kind: KindBool, b: b} }

// JSON creates a structured setting value from raw JSON.
func JSON(raw json.RawMessage) SettingValue { return SettingValue{kind: KindJSON, raw: raw} }

// Kind returns the declared kind of the value.
func (v SettingValue) Kind() SettingKind { return v.kind }

// AsText returns the text payload or ErrInvalidSettingKind.
func (v SettingValue) AsText() (string, error) {
	if v.kind != KindText {
		return "", fmt.Errorf("%w: have %s, want %s", ErrInvalidSettingKind, v.kind, KindText)
	}
	return v.text, nil
}

// AsNumber returns the numeric payload or ErrInvalidSettingKind.
func (v SettingValue) AsNumber() (float64, error) {
	if v.kind != KindNumber {
		return 0, fmt.Errorf("%w: have %s, want %s", ErrInvalidSettingKind, v.kind, KindNumber)
	}
	return v.num, nil
}

// AsBool returns the boolean payload or ErrInvalidSettingKind.
func (v SettingValue) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, fmt.Errorf("%w: have %s, want %s", ErrInvalidSettingKind, v.kind, KindBool)
	}
	return v.b, nil
}

// AsJSON returns the structured payload or ErrInvalidSettingKind.
func (v SettingValue) AsJSON() (json.RawMessage, error) {
	if v.kind != KindJSON {
		return nil, fmt.Errorf("%w: have %s, want %s", ErrInvalidSettingKind, v.kind, KindJSON)
	}
	return v.raw, nil
}

type settingValueJSON struct {
	Kind   SettingKind     `json:"kind"`
	Text   string          `json:"text,omitempty"`
	Number float64         `json:"number,omitempty"`
	Bool   bool            `json:"bool,omitempty"`
	JSON   json.RawMessage `json:"json,omitempty"`
}

// MarshalJSON encodes the value with an explicit kind tag.
func (v SettingValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(settingValueJSON{
		Kind:   v.kind,
		Text:   v.text,
		Number: v.num,
		Bool:   v.b,
		JSON:   v.raw,
	})
}

// UnmarshalJSON decodes a kind-tagged value.
func (v *SettingValue) UnmarshalJSON(data []byte) error {
	var raw settingValueJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Kind {
	case KindText, KindNumber, KindBool, KindJSON:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidSettingKind, raw.Kind)
	}
	*v = SettingValue{kind: raw.Kind, text: raw.Text, num: raw.Number, b: raw.Bool, raw: raw.JSON}
	return nil
}
