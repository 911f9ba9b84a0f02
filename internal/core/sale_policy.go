package core

import (
	"fmt"

	"counterstrike/pkg/domain"
)

// SalePolicy decides whether a product may be sold.
type SalePolicy string

const (
	// SalePolicyConsumerPayload rejects a sale when the product is already sold
	// or when the call carries no consumer descriptor.
	SalePolicyConsumerPayload SalePolicy = "consumer-payload"
	// SalePolicyLegacyConsumerGate additionally rejects products that have no
	// consumer recorded yet. Since a consumer is only recorded by a sale, every
	// first sale is refused under this rule.
	SalePolicyLegacyConsumerGate SalePolicy = "legacy-consumer-gate"
)

// ParseSalePolicy validates a configured policy name; empty selects the default.
func ParseSalePolicy(name string) (SalePolicy, error) {
	switch SalePolicy(name) {
	case "":
		return SalePolicyConsumerPayload, nil
	case SalePolicyConsumerPayload, SalePolicyLegacyConsumerGate:
		return SalePolicy(name), nil
	default:
		return "", fmt.Errorf("unknown sale policy %q", name)
	}
}

func (p SalePolicy) check(product domain.Product, consumer *domain.Consumer) error {
	alreadySold := domain.NewError(domain.CodeInvalidState, fmt.Sprintf("Product %s is already sold to an end consumer", product.ID))
	if product.IsSold {
		return alreadySold
	}
	if p == SalePolicyLegacyConsumerGate && product.Consumer == nil {
		return alreadySold
	}
	if consumer == nil {
		return domain.NewError(domain.CodeInvalidState, fmt.Sprintf("Product %s cannot be sold without a consumer", product.ID))
	}
	return nil
}
