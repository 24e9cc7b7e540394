package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// PhoneNumber is the structured phone form.
type PhoneNumber struct {
	CountryCode string `json:"countryCode"`
	DialCode    string `json:"dialCode"`
	Number      string `json:"number"`
	Flag        string `json:"flag"`
}

// Phone holds either a legacy free-form string or a structured number.
// Exactly one of Text or Number is set on a valid Phone.
type Phone struct {
	Text   *string
	Number *PhoneNumber
}

var ErrInvalidPhone = errors.New("phone must be a string or an object with countryCode, dialCode, number and flag")

func TextPhone(s string) *Phone { return &Phone{Text: &s} }

func StructuredPhone(n PhoneNumber) *Phone { return &Phone{Number: &n} }

func (p Phone) MarshalJSON() ([]byte, error) {
	switch {
	case p.Number != nil:
		return json.Marshal(p.Number)
	case p.Text != nil:
		return json.Marshal(*p.Text)
	default:
		return []byte("null"), nil
	}
}

func (p *Phone) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*p = Phone{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return ErrInvalidPhone
		}
		p.Text = &s
		return nil
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(data, &fields); err != nil {
			return ErrInvalidPhone
		}
		var n PhoneNumber
		for key, dst := range map[string]*string{
			"countryCode": &n.CountryCode,
			"dialCode":    &n.DialCode,
			"number":      &n.Number,
			"flag":        &n.Flag,
		} {
			raw, ok := fields[key]
			if !ok {
				return ErrInvalidPhone
			}
			if err := json.Unmarshal(raw, dst); err != nil {
				return ErrInvalidPhone
			}
		}
		if strings.TrimSpace(n.Number) == "" {
			return ErrInvalidPhone
		}
		p.Number = &n
		return nil
	default:
		return ErrInvalidPhone
	}
}

// IsZero reports whether neither form is set.
func (p Phone) IsZero() bool { return p.Text == nil && p.Number == nil }
