// Package domain defines the product provenance record, its custody history,
// and the contracts the lifecycle code depends on (ledger store, identity).
package domain

import (
	"encoding/json"
	"fmt"
)

// DocTypeProduct tags every stored product record.
const DocTypeProduct = "product"

// OriginEventName labels the mandatory first custody event.
const OriginEventName = "Factory"

// Product is the ledger record tracking provenance and authenticity of one item.
type Product struct {
	DocType      string         `json:"docType"`
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Manufacturer string         `json:"manufacturer"`
	IsSold       bool           `json:"isSold"`
	IsGenuine    bool           `json:"isGenuine"`
	History      []CustodyEvent `json:"history"`
	Consumer     *Consumer      `json:"consumer"`
}

// CustodyEvent is one step in a product's chain of custody.
type CustodyEvent struct {
	Location  Location `json:"location"`
	Name      string   `json:"name"`
	IsGenuine bool     `json:"isGenuine"`
	// Reason is set only when IsGenuine is false.
	Reason *string `json:"reason,omitempty"`
}

// NewProduct builds a genuine, unsold product with a single factory origin event.
func NewProduct(id, name, manufacturer string, origin Location) Product {
	return Product{
		DocType:      DocTypeProduct,
		ID:           id,
		Name:         name,
		Manufacturer: manufacturer,
		IsSold:       false,
		IsGenuine:    true,
		History: []CustodyEvent{{
			Location:  origin,
			Name:      OriginEventName,
			IsGenuine: true,
		}},
	}
}

// DowngradeAuthenticity flags the most recent custody event as non-genuine with
// the supplied reason and marks the product as a whole non-genuine.
// Reporting an already flagged product overwrites the latest reason.
func (p *Product) DowngradeAuthenticity(reason string) error {
	if len(p.History) == 0 {
		return NewError(CodeInvalidState, fmt.Sprintf("Product %s has no custody history", p.ID))
	}
	last := &p.History[len(p.History)-1]
	last.IsGenuine = false
	r := reason
	last.Reason = &r
	p.IsGenuine = false
	return nil
}

// AppendCustody records a transfer. The event inherits the product's current
// aggregate authenticity; any caller-supplied assertion or reason is discarded.
func (p *Product) AppendCustody(ev CustodyEvent) {
	ev.IsGenuine = p.IsGenuine
	ev.Reason = nil
	p.History = append(p.History, ev)
}

// Sell finalizes the sale to consumer. Callers enforce eligibility first.
func (p *Product) Sell(consumer Consumer) error {
	if p.IsSold {
		return NewError(CodeInvalidState, fmt.Sprintf("Product %s is already sold to an end consumer", p.ID))
	}
	c := consumer.Clone()
	p.Consumer = &c
	p.IsSold = true
	return nil
}

// Authentic reports whether every custody event asserts authenticity.
func (p Product) Authentic() bool {
	for _, ev := range p.History {
		if !ev.IsGenuine {
			return false
		}
	}
	return true
}

// Validate checks the invariants that must hold for any stored product.
func (p Product) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("product id required")
	}
	if len(p.History) == 0 {
		return fmt.Errorf("product %s: history must contain the origin event", p.ID)
	}
	if p.IsGenuine != p.Authentic() {
		return fmt.Errorf("product %s: aggregate isGenuine does not match history", p.ID)
	}
	return nil
}

// Clone returns a deep copy of the product.
func (p Product) Clone() Product {
	cp := p
	if p.History != nil {
		cp.History = make([]CustodyEvent, len(p.History))
		for i, ev := range p.History {
			cp.History[i] = ev.clone()
		}
	}
	if p.Consumer != nil {
		c := p.Consumer.Clone()
		cp.Consumer = &c
	}
	return cp
}

func (e CustodyEvent) clone() CustodyEvent {
	cp := e
	cp.Location = e.Location.Clone()
	if e.Reason != nil {
		r := *e.Reason
		cp.Reason = &r
	}
	return cp
}

// Encode serializes the product to its ledger representation.
func (p Product) Encode() ([]byte, error) {
	if p.DocType == "" {
		p.DocType = DocTypeProduct
	}
	return json.Marshal(p)
}

// DecodeProduct parses a stored ledger value. Values that are empty, are not
// JSON objects, or do not carry the product docType and an id are rejected.
func DecodeProduct(raw []byte) (Product, error) {
	if len(raw) == 0 {
		return Product{}, fmt.Errorf("empty product record")
	}
	var p Product
	if err := json.Unmarshal(raw, &p); err != nil {
		return Product{}, fmt.Errorf("decode product: %w", err)
	}
	if p.DocType != DocTypeProduct {
		return Product{}, fmt.Errorf("decode product: unexpected docType %q", p.DocType)
	}
	if p.ID == "" {
		return Product{}, fmt.Errorf("decode product: missing id")
	}
	return p, nil
}
