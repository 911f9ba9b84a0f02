package domain

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestParseConsumerArg(t *testing.T) {
	c, ok, err := ParseConsumerArg(`{"name":"Ann","email":"a@x.io","location":["1","2"],"loyalty":"gold"}`)
	if err != nil || !ok {
		t.Fatalf("parse: %v %v", ok, err)
	}
	if c.Name != "Ann" || c.Email != "a@x.io" || c.Location == nil {
		t.Fatalf("unexpected consumer %+v", c)
	}
	for _, raw := range []string{"", "  ", "null"} {
		if _, ok, err := ParseConsumerArg(raw); ok || err != nil {
			t.Errorf("%q: expected not supplied, got %v %v", raw, ok, err)
		}
	}
	for _, raw := range []string{`"Ann"`, `[1]`, `{"name":`, `42`} {
		if _, _, err := ParseConsumerArg(raw); !errors.Is(err, ErrMalformedPayload) {
			t.Errorf("%q: expected malformed payload, got %v", raw, err)
		}
	}
}

func TestParseCustodyEventArg(t *testing.T) {
	ev, err := ParseCustodyEventArg(`{"name":"Retailer","location":"Shop 3","isGenuine":false,"reason":"x"}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.Name != "Retailer" || ev.Location.String() != "Shop 3" {
		t.Fatalf("unexpected event %+v", ev)
	}
	for _, raw := range []string{"", "Retailer", `["a"]`, `{"location":5}`} {
		if _, err := ParseCustodyEventArg(raw); !errors.Is(err, ErrMalformedPayload) {
			t.Errorf("%q: expected malformed payload, got %v", raw, err)
		}
	}
}

func TestConsumerCloneIndependent(t *testing.T) {
	loc := AtCoordinates("1", "2")
	c := Consumer{Name: "a", Location: &loc}
	cp := c.Clone()
	if cp.Location == c.Location {
		t.Fatalf("location pointer shared")
	}
}

func TestConsumerKeepsUnknownFields(t *testing.T) {
	raw := `{"firstName":"Jane","lastName":"Doe","id":"C-1","loyalty":42,"name":7,"location":{"city":"Oslo"},"email":"j@x.io"}`
	c, ok, err := ParseConsumerArg(raw)
	if err != nil || !ok {
		t.Fatalf("parse: %v %v", ok, err)
	}
	if c.Email != "j@x.io" || c.Name != "" || c.Location != nil {
		t.Fatalf("unexpected typed fields %+v", c)
	}
	out, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	assertSameJSON(t, raw, string(out))
}

func TestConsumerEmptyObject(t *testing.T) {
	c, ok, err := ParseConsumerArg(`{}`)
	if err != nil || !ok {
		t.Fatalf("empty object must count as supplied: %v %v", ok, err)
	}
	out, _ := json.Marshal(c)
	if string(out) != "{}" {
		t.Fatalf("unexpected encoding %s", out)
	}
}

func TestConsumerCloneCopiesExtra(t *testing.T) {
	c, _, _ := ParseConsumerArg(`{"tier":"gold"}`)
	cp := c.Clone()
	cp.Extra["tier"][1] = 'X'
	if string(c.Extra["tier"]) != `"gold"` {
		t.Fatalf("extra aliased: %s", c.Extra["tier"])
	}
}

func TestParseCustodyEventArgRequiresLocation(t *testing.T) {
	for _, raw := range []string{`{"name":"Distributor X"}`, `{"name":"Distributor X","location":null}`} {
		if _, err := ParseCustodyEventArg(raw); !errors.Is(err, ErrMalformedPayload) {
			t.Errorf("%s: expected malformed payload, got %v", raw, err)
		}
	}
	ev, err := ParseCustodyEventArg(`{"name":"Depot","location":""}`)
	if err != nil {
		t.Fatalf("explicit empty token: %v", err)
	}
	if tok, ok := ev.Location.Token(); !ok || tok != "" {
		t.Fatalf("unexpected location %v", ev.Location)
	}
}

func assertSameJSON(t *testing.T, want, got string) {
	t.Helper()
	var w, g any
	if err := json.Unmarshal([]byte(want), &w); err != nil {
		t.Fatalf("want: %v", err)
	}
	if err := json.Unmarshal([]byte(got), &g); err != nil {
		t.Fatalf("got: %v", err)
	}
	if !reflect.DeepEqual(w, g) {
		t.Fatalf("json mismatch:\nwant %s\ngot  %s", want, got)
	}
}
