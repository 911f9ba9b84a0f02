package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Consumer describes the end customer a product was sold to. The descriptor is
// caller-defined: the typed fields cover the common keys and Extra keeps every
// other key verbatim, so a stored consumer survives any number of rewrites.
type Consumer struct {
	Name     string
	Email    string
	Phone    string
	Address  string
	Location *Location
	// Extra holds keys not mapped above, and known keys whose value did not
	// fit the typed field, as raw JSON.
	Extra map[string]json.RawMessage
}

// Clone returns an independent copy.
func (c Consumer) Clone() Consumer {
	cp := c
	if c.Location != nil {
		l := c.Location.Clone()
		cp.Location = &l
	}
	if c.Extra != nil {
		cp.Extra = make(map[string]json.RawMessage, len(c.Extra))
		for k, v := range c.Extra {
			cp.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return cp
}

// MarshalJSON implements json.Marshaler.
func (c Consumer) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(c.Extra)+5)
	for k, v := range c.Extra {
		out[k] = v
	}
	for key, value := range map[string]string{"name": c.Name, "email": c.Email, "phone": c.Phone, "address": c.Address} {
		if value == "" {
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		out[key] = raw
	}
	if c.Location != nil {
		raw, err := json.Marshal(c.Location)
		if err != nil {
			return nil, err
		}
		out["location"] = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler. Only JSON objects are accepted.
func (c *Consumer) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("consumer: %w", err)
	}
	if fields == nil {
		return fmt.Errorf("consumer: expected a JSON object")
	}
	*c = Consumer{}
	for key, raw := range fields {
		if !c.setKnown(key, raw) {
			if c.Extra == nil {
				c.Extra = make(map[string]json.RawMessage)
			}
			c.Extra[key] = append(json.RawMessage(nil), raw...)
		}
	}
	return nil
}

// setKnown stores raw in the typed field for key. It reports false when key is
// not typed or its value would not re-encode identically.
func (c *Consumer) setKnown(key string, raw json.RawMessage) bool {
	var dst *string
	switch key {
	case "name":
		dst = &c.Name
	case "email":
		dst = &c.Email
	case "phone":
		dst = &c.Phone
	case "address":
		dst = &c.Address
	case "location":
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 || (trimmed[0] != '"' && trimmed[0] != '[') {
			return false
		}
		var loc Location
		if err := json.Unmarshal(trimmed, &loc); err != nil {
			return false
		}
		c.Location = &loc
		return true
	default:
		return false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return false
	}
	*dst = s
	return true
}

// ParseConsumerArg decodes a consumer descriptor argument. The boolean result is
// false when no descriptor was supplied (empty input or JSON null).
func ParseConsumerArg(arg string) (Consumer, bool, error) {
	trimmed := bytes.TrimSpace([]byte(arg))
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Consumer{}, false, nil
	}
	if trimmed[0] != '{' {
		return Consumer{}, false, NewError(CodeMalformedPayload, "Invalid consumer: expected a JSON object")
	}
	var c Consumer
	if err := json.Unmarshal(trimmed, &c); err != nil {
		return Consumer{}, false, NewError(CodeMalformedPayload, fmt.Sprintf("Invalid consumer: %v", err))
	}
	return c, true, nil
}

// ParseCustodyEventArg decodes the target custody descriptor of a transfer.
// The target must name a location.
func ParseCustodyEventArg(arg string) (CustodyEvent, error) {
	trimmed := bytes.TrimSpace([]byte(arg))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return CustodyEvent{}, NewError(CodeMalformedPayload, "Invalid target: expected a JSON object")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return CustodyEvent{}, NewError(CodeMalformedPayload, fmt.Sprintf("Invalid target: %v", err))
	}
	if loc, ok := fields["location"]; !ok || bytes.Equal(bytes.TrimSpace(loc), []byte("null")) {
		return CustodyEvent{}, NewError(CodeMalformedPayload, "Invalid target: location is required")
	}
	var ev CustodyEvent
	if err := json.Unmarshal(trimmed, &ev); err != nil {
		return CustodyEvent{}, NewError(CodeMalformedPayload, fmt.Sprintf("Invalid target: %v", err))
	}
	return ev, nil
}
