// Package transaction implements the value record a Message carries through
// the routing overlay: the commodity, signed amount, price, and the two
// agent endpoints a market clearing fills in.
package transaction

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/hodger/cyclus/internal/resource"
)

// AgentRef is the narrow view a Transaction needs of an agent: just enough
// identity to name a supplier or requester without importing the agent or
// messaging packages (which themselves depend on Transaction).
type AgentRef interface {
	ID() int
	Name() string
}

// Transaction describes an intended or settled exchange of a commodity.
// Amount is signed: negative means requesting, positive means offering.
// MinAmount is the smallest acceptable absolute magnitude of Amount.
type Transaction struct {
	Commodity string
	Amount    float64
	MinAmount float64
	UnitPrice float64

	// Resource is present only on the down-leg, once settlement has
	// physically transferred a payload alongside the cleared transaction.
	Resource *resource.Resource

	Supplier  AgentRef
	Requester AgentRef

	// TraceID correlates this transaction with trace-recorder rows. It has
	// no bearing on routing or clearing semantics.
	TraceID uuid.UUID
}

// New builds a Transaction and validates the |amount| >= min_amount >= 0
// invariant at construction, per the spec's boundary rule that an offer or
// request with a magnitude smaller than its own minimum is a construction
// error.
func New(commodity string, amount, minAmount, unitPrice float64) (Transaction, error) {
	if minAmount < 0 {
		return Transaction{}, fmt.Errorf("transaction: min_amount %g is negative", minAmount)
	}
	mag := amount
	if mag < 0 {
		mag = -mag
	}
	if mag < minAmount {
		return Transaction{}, fmt.Errorf("transaction: |amount|=%g is less than min_amount=%g", mag, minAmount)
	}
	return Transaction{
		Commodity: commodity,
		Amount:    amount,
		MinAmount: minAmount,
		UnitPrice: unitPrice,
		TraceID:   uuid.New(),
	}, nil
}

// IsRequest reports whether this transaction represents a request (negative
// amount) rather than an offer.
func (t Transaction) IsRequest() bool { return t.Amount < 0 }

// Magnitude returns |Amount|.
func (t Transaction) Magnitude() float64 {
	if t.Amount < 0 {
		return -t.Amount
	}
	return t.Amount
}

// Clone deep-copies the transaction, including its optional Resource
// payload, and stamps the copy with a fresh TraceID. Supplier/Requester references are copied, not duplicated — they
// name existing agents and are never owned by the transaction.
func (t Transaction) Clone() Transaction {
	c := t
	c.TraceID = uuid.New()
	if t.Resource != nil {
		c.Resource = t.Resource.Clone()
	}
	return c
}

// WithZeroAmount returns a copy of t with Amount and Resource cleared,
// used to build the Unfilled notice a market sends back for a residual
// that didn't clear min_amount.
func (t Transaction) WithZeroAmount() Transaction {
	c := t.Clone()
	c.Amount = 0
	c.Resource = nil
	return c
}
