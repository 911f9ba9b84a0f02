package domain

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func newTestProduct() Product {
	return NewProduct("p-1", "Aspirin", "Smith Pharma Inc.", AtCoordinates("-29.52974", "24.52815"))
}

func TestNewProductDefaults(t *testing.T) {
	p := newTestProduct()
	if p.DocType != DocTypeProduct || p.IsSold || !p.IsGenuine || p.Consumer != nil {
		t.Fatalf("unexpected defaults: %+v", p)
	}
	if len(p.History) != 1 {
		t.Fatalf("expected single origin event, got %d", len(p.History))
	}
	origin := p.History[0]
	if origin.Name != OriginEventName || !origin.IsGenuine || origin.Reason != nil {
		t.Fatalf("unexpected origin event: %+v", origin)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestDowngradeAuthenticity(t *testing.T) {
	p := newTestProduct()
	p.AppendCustody(CustodyEvent{Location: AtToken("warehouse"), Name: "Distributor"})
	if err := p.DowngradeAuthenticity("fake seal"); err != nil {
		t.Fatalf("downgrade: %v", err)
	}
	if p.IsGenuine {
		t.Fatalf("expected aggregate not genuine")
	}
	if !p.History[0].IsGenuine {
		t.Fatalf("older event must be untouched")
	}
	last := p.History[1]
	if last.IsGenuine || last.Reason == nil || *last.Reason != "fake seal" {
		t.Fatalf("unexpected last event: %+v", last)
	}
	if err := p.DowngradeAuthenticity("second"); err != nil {
		t.Fatalf("second downgrade: %v", err)
	}
	if *p.History[1].Reason != "second" || len(p.History) != 2 {
		t.Fatalf("expected reason overwrite without new event: %+v", p.History)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestDowngradeAuthenticityEmptyHistory(t *testing.T) {
	p := Product{ID: "x"}
	err := p.DowngradeAuthenticity("r")
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}

func TestAppendCustodyInheritsAggregate(t *testing.T) {
	p := newTestProduct()
	reason := "caller lie"
	p.AppendCustody(CustodyEvent{Name: "A", IsGenuine: false, Reason: &reason})
	if ev := p.History[1]; !ev.IsGenuine || ev.Reason != nil {
		t.Fatalf("genuine product must stamp genuine, got %+v", ev)
	}
	_ = p.DowngradeAuthenticity("bad")
	p.AppendCustody(CustodyEvent{Name: "B", IsGenuine: true})
	if ev := p.History[2]; ev.IsGenuine {
		t.Fatalf("flagged product must stamp non-genuine, got %+v", ev)
	}
	if p.Authentic() {
		t.Fatalf("authentic should be false once any event is flagged")
	}
}

func TestSell(t *testing.T) {
	p := newTestProduct()
	loc := AtToken("home")
	c := Consumer{Name: "Ann", Location: &loc}
	if err := p.Sell(c); err != nil {
		t.Fatalf("sell: %v", err)
	}
	if !p.IsSold || p.Consumer == nil || p.Consumer.Name != "Ann" {
		t.Fatalf("unexpected sold state: %+v", p)
	}
	if p.Consumer.Location == c.Location {
		t.Fatalf("consumer must be copied")
	}
	err := p.Sell(Consumer{Name: "Bob"})
	if !errors.Is(err, ErrInvalidState) || !strings.Contains(err.Error(), "already sold to an end consumer") {
		t.Fatalf("expected already sold, got %v", err)
	}
	if p.Consumer.Name != "Ann" {
		t.Fatalf("consumer overwritten")
	}
}

func TestValidateRejectsInconsistentRecords(t *testing.T) {
	cases := map[string]Product{
		"missing id":      {History: []CustodyEvent{{Name: "Factory", IsGenuine: true}}, IsGenuine: true},
		"empty history":   {ID: "a", IsGenuine: true},
		"aggregate drift": {ID: "a", IsGenuine: true, History: []CustodyEvent{{IsGenuine: false}}},
	}
	for name, p := range cases {
		if err := p.Validate(); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := newTestProduct()
	p.AppendCustody(CustodyEvent{Location: AtToken("port"), Name: "Shipper"})
	_ = p.DowngradeAuthenticity("tampered")
	loc := AtCoordinates("1", "2")
	_ = p.Sell(Consumer{Name: "Ann", Email: "ann@example.com", Location: &loc})
	raw, err := p.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeProduct(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, p) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, p)
	}
}

func TestEncodeWireShape(t *testing.T) {
	raw, err := newTestProduct().Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	s := string(raw)
	for _, want := range []string{
		`"docType":"product"`,
		`"isSold":false`,
		`"isGenuine":true`,
		`"location":["-29.52974","24.52815"]`,
		`"name":"Factory"`,
		`"consumer":null`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("encoded record missing %s: %s", want, s)
		}
	}
	if strings.Contains(s, `"reason"`) {
		t.Errorf("genuine event must omit reason: %s", s)
	}
}

func TestEncodeFillsDocType(t *testing.T) {
	raw, err := Product{ID: "a"}.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(raw), `"docType":"product"`) {
		t.Fatalf("docType not filled: %s", raw)
	}
}

func TestDecodeProductRejects(t *testing.T) {
	for name, raw := range map[string]string{
		"empty":       "",
		"not json":    "garbage",
		"array":       `[1,2]`,
		"wrong type":  `{"docType":"order","id":"a"}`,
		"missing id":  `{"docType":"product"}`,
		"bad history": `{"docType":"product","id":"a","history":[{"location":42}]}`,
	} {
		if _, err := DecodeProduct([]byte(raw)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	p := newTestProduct()
	_ = p.DowngradeAuthenticity("r")
	loc := AtToken("t")
	_ = p.Sell(Consumer{Name: "Ann", Location: &loc})
	cp := p.Clone()
	*cp.History[0].Reason = "changed"
	cp.Consumer.Name = "Bob"
	cp.History = append(cp.History, CustodyEvent{Name: "extra"})
	if *p.History[0].Reason != "r" || p.Consumer.Name != "Ann" || len(p.History) != 1 {
		t.Fatalf("clone aliased original: %+v", p)
	}
}

func TestEncodeKeepsLegacyConsumerFields(t *testing.T) {
	raw := `{"docType":"product","id":"a","name":"n","manufacturer":"m","isSold":true,"isGenuine":false,` +
		`"history":[{"location":"x","name":"Factory","isGenuine":false,"reason":"fake"}],` +
		`"consumer":{"firstName":"Jane","loyalty":42}}`
	p, err := DecodeProduct([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	out, err := p.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	assertSameJSON(t, raw, string(out))
}
