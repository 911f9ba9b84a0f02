package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestLocationJSON(t *testing.T) {
	b, err := json.Marshal(AtCoordinates("1.5", "-2"))
	if err != nil || string(b) != `["1.5","-2"]` {
		t.Fatalf("coords marshal: %s %v", b, err)
	}
	b, err = json.Marshal(AtToken("Cape Town"))
	if err != nil || string(b) != `"Cape Town"` {
		t.Fatalf("token marshal: %s %v", b, err)
	}

	var loc Location
	if err := json.Unmarshal([]byte(`["3","4"]`), &loc); err != nil {
		t.Fatalf("unmarshal coords: %v", err)
	}
	if c, ok := loc.Coordinates(); !ok || c.Latitude != "3" || c.Longitude != "4" {
		t.Fatalf("unexpected coords %+v %v", c, ok)
	}
	if _, ok := loc.Token(); ok {
		t.Fatalf("coords location must not report a token")
	}
	if err := json.Unmarshal([]byte(`"depot"`), &loc); err != nil {
		t.Fatalf("unmarshal token: %v", err)
	}
	if tok, ok := loc.Token(); !ok || tok != "depot" {
		t.Fatalf("unexpected token %q %v", tok, ok)
	}
	if loc.String() != "depot" {
		t.Fatalf("string: %s", loc.String())
	}
}

func TestLocationUnmarshalRejects(t *testing.T) {
	for _, raw := range []string{`42`, `{"a":1}`, `["1"]`, `["1","2","3"]`, `[1,2]`, `true`} {
		var loc Location
		if err := json.Unmarshal([]byte(raw), &loc); err == nil {
			t.Errorf("%s: expected error", raw)
		}
	}
}

func TestLocationUnmarshalNull(t *testing.T) {
	loc := AtToken("keep")
	if err := json.Unmarshal([]byte(`null`), &loc); err != nil {
		t.Fatalf("null: %v", err)
	}
	if tok, _ := loc.Token(); tok != "keep" {
		t.Fatalf("null must leave value untouched, got %q", tok)
	}
}

func TestParseLocationArg(t *testing.T) {
	loc, err := ParseLocationArg(`["-29.5","24.5"]`)
	if err != nil {
		t.Fatalf("array: %v", err)
	}
	if c, ok := loc.Coordinates(); !ok || c.Latitude != "-29.5" {
		t.Fatalf("unexpected %+v", c)
	}
	loc, err = ParseLocationArg(`"Durban"`)
	if err != nil {
		t.Fatalf("string: %v", err)
	}
	if tok, _ := loc.Token(); tok != "Durban" {
		t.Fatalf("unexpected token %q", tok)
	}
	loc, err = ParseLocationArg("Warehouse 7")
	if err != nil {
		t.Fatalf("raw: %v", err)
	}
	if tok, _ := loc.Token(); tok != "Warehouse 7" {
		t.Fatalf("raw token %q", tok)
	}
	if _, err := ParseLocationArg(`["1",`); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected malformed payload, got %v", err)
	}
}

func TestLocationCloneIndependent(t *testing.T) {
	a := AtCoordinates("1", "2")
	b := a.Clone()
	b.coords.Latitude = "9"
	if c, _ := a.Coordinates(); c.Latitude != "1" {
		t.Fatalf("clone aliased coordinates")
	}
}
