// Package resource implements the conserved material quantity that moves
// between facilities during settlement. A Resource's composition is treated
// as opaque here — a mapping from species identifier to a non-negative
// scalar — since isotopic semantics are a concern of the facility models
// that create resources, not of the transfer arithmetic itself.
package resource

import (
	"fmt"
	"math"

	"github.com/hodger/cyclus/internal/simerr"
)

// Epsilon is the relative tolerance applied to conservation checks across
// Absorb/Extract pairs, per the 10^-9 relative budget specified for the
// core's arithmetic.
const Epsilon = 1e-9

// Basis distinguishes how a Resource's quantity is measured.
type Basis uint8

const (
	AtomBased Basis = iota
	MassBased
)

func (b Basis) String() string {
	if b == MassBased {
		return "mass-based"
	}
	return "atom-based"
}

// Resource is a mutable, owned quantity of conserved material. A species'
// name in Composition has no meaning to this package beyond bookkeeping:
// Absorb sums entries, Extract partitions them proportionally to quantity.
type Resource struct {
	Unit        string
	Basis       Basis
	Composition map[string]float64
}

// New creates a Resource holding a copy of composition, leaving out any
// species whose quantity is not positive. A nil composition gives an empty
// Resource of quantity 0.
func New(unit string, basis Basis, composition map[string]float64) *Resource {
	comp := make(map[string]float64, len(composition))
	for k, v := range composition {
		if v > 0 {
			comp[k] = v
		}
	}
	return &Resource{Unit: unit, Basis: basis, Composition: comp}
}

// TotalQuantity sums all non-negative species quantities. Always >= 0.
func (r *Resource) TotalQuantity() float64 {
	if r == nil {
		return 0
	}
	var total float64
	for _, q := range r.Composition {
		total += q
	}
	return total
}

// Absorb consumes other entirely, adding its quantity and composition into
// r. After Absorb returns, other holds quantity 0 — its composition map is
// emptied, not merely zeroed, so a caller that keeps a reference cannot
// observe stale species entries.
func (r *Resource) Absorb(other *Resource) {
	if other == nil || r == other {
		return
	}
	before := r.TotalQuantity() + other.TotalQuantity()

	for species, qty := range other.Composition {
		r.Composition[species] += qty
	}
	other.Composition = make(map[string]float64)

	after := r.TotalQuantity()
	checkConserved(before, after)
}

// Extract splits off a fresh Resource of exactly amount and decrements r by
// the same, distributing the extracted quantity across r's species in
// proportion to their current share. It fails if amount is negative or
// exceeds r's total quantity.
func (r *Resource) Extract(amount float64) (*Resource, error) {
	if amount < 0 {
		return nil, fmt.Errorf("resource: cannot extract negative amount %g", amount)
	}
	total := r.TotalQuantity()
	if amount > total+Epsilon*math.Max(1, total) {
		return nil, fmt.Errorf("resource: cannot extract %g from resource holding %g", amount, total)
	}

	extracted := &Resource{Unit: r.Unit, Basis: r.Basis, Composition: make(map[string]float64)}
	if total == 0 || amount == 0 {
		return extracted, nil
	}

	before := total
	remaining := amount
	species := make([]string, 0, len(r.Composition))
	for s := range r.Composition {
		species = append(species, s)
	}
	for i, s := range species {
		qty := r.Composition[s]
		var take float64
		if i == len(species)-1 {
			// Last species absorbs any rounding remainder so the sum is exact.
			take = math.Min(remaining, qty)
		} else {
			share := qty / total
			take = amount * share
			if take > qty {
				take = qty
			}
		}
		if take <= 0 {
			continue
		}
		r.Composition[s] -= take
		if r.Composition[s] <= 0 {
			delete(r.Composition, s)
		}
		extracted.Composition[s] += take
		remaining -= take
	}

	after := r.TotalQuantity() + extracted.TotalQuantity()
	checkConserved(before, after)

	return extracted, nil
}

// Clone deep-copies quantity and composition without sharing ownership with
// the original.
func (r *Resource) Clone() *Resource {
	comp := make(map[string]float64, len(r.Composition))
	for k, v := range r.Composition {
		comp[k] = v
	}
	return &Resource{Unit: r.Unit, Basis: r.Basis, Composition: comp}
}

func checkConserved(before, after float64) {
	tol := Epsilon * math.Max(1, math.Max(math.Abs(before), math.Abs(after)))
	if math.Abs(before-after) > tol {
		panic(fmt.Errorf("%w: before=%g after=%g", simerr.ErrConservation, before, after))
	}
}
