// Package model defines data structures for the assistant core.
package model

// Domain identifies one of the queryable business data domains. The set is
// closed: the translator refuses anything outside it and the gateway only
// knows how to build queries for these four.
type Domain string

const (
	DomainSales     Domain = "sales"
	DomainInventory Domain = "inventory"
	DomainProducts  Domain = "products"
	DomainExpenses  Domain = "expenses"
)

// AllDomains lists every queryable domain.
func AllDomains() []Domain {
	return []Domain{DomainSales, DomainInventory, DomainProducts, DomainExpenses}
}

// Valid reports whether d is one of the known domains.
func (d Domain) Valid() bool {
	switch d {
	case DomainSales, DomainInventory, DomainProducts, DomainExpenses:
		return true
	}
	return false
}

// BusinessScope is the resolved, immutable identity of one tenant for the
// lifetime of a session. It is shared by reference and never mutated after
// resolution; every downstream component compares against it rather than
// carrying its own copy of the tenant identity.
type BusinessScope struct {
	ID       string   `json:"id"`
	Domains  []Domain `json:"domains"`
	ReadOnly bool     `json:"read_only"`
}

// NewBusinessScope builds a scope for one business. ReadOnly is always true
// in this system; it exists as an explicit field so the gateway can refuse
// anything that claims otherwise.
func NewBusinessScope(id string, domains []Domain) *BusinessScope {
	if len(domains) == 0 {
		domains = AllDomains()
	}
	ds := make([]Domain, len(domains))
	copy(ds, domains)
	return &BusinessScope{
		ID:       id,
		Domains:  ds,
		ReadOnly: true,
	}
}

// Allows reports whether the scope permits reading the given domain.
func (s *BusinessScope) Allows(d Domain) bool {
	if s == nil {
		return false
	}
	for _, sd := range s.Domains {
		if sd == d {
			return true
		}
	}
	return false
}

// Equal reports whether two scopes identify the same tenant. Comparison is by
// identifier: scopes are never copied-and-mutated, so ID equality is the
// isolation boundary.
func (s *BusinessScope) Equal(other *BusinessScope) bool {
	if s == nil || other == nil {
		return false
	}
	return s.ID == other.ID
}
