// Package market implements the clearing engine: a Market is an Agent that
// receives UP messages naming offers and requests for the commodities it
// clears, and matches them at the end of a tick.
package market

import (
	"fmt"
	"sort"

	"github.com/hodger/cyclus/internal/agent"
	"github.com/hodger/cyclus/internal/messaging"
	"github.com/hodger/cyclus/internal/resource"
	"github.com/hodger/cyclus/internal/transaction"
)

// matchEpsilon bounds the "fully cleared" check for a book entry's
// remaining magnitude, mirroring the relative tolerance resource.Epsilon
// uses for mass conservation.
const matchEpsilon = 1e-9

// bookEntry pairs an in-flight UP message with how much of its transaction
// remains unmatched. remaining keeps the transaction's signed convention:
// negative for a request, positive for an offer.
type bookEntry struct {
	msg       *messaging.Message
	remaining float64
}

// Market clears bids for one or more commodities. It sits outside the
// Region/Institution/Facility tree and is reached by commodity lookup.
type Market struct {
	*agent.Base

	Commodities []string

	offers   map[string][]*bookEntry
	requests map[string][]*bookEntry
}

// New constructs a Market clearing the given commodities.
func New(id int, name string, commodities ...string) *Market {
	return &Market{
		Base:        agent.NewBase(id, name),
		Commodities: commodities,
		offers:      make(map[string][]*bookEntry),
		requests:    make(map[string][]*bookEntry),
	}
}

// Receive books an UP message's transaction into the offers or requests
// list for its commodity. A zero-amount transaction is silently dropped —
// there's nothing to match.
func (mk *Market) Receive(m *messaging.Message) error {
	if m.Direction != messaging.Up {
		return fmt.Errorf("market %d received a message not heading up", mk.ID())
	}
	tx := m.Transaction
	if tx.Amount == 0 {
		return nil
	}

	entry := &bookEntry{msg: m, remaining: tx.Amount}
	if tx.IsRequest() {
		mk.requests[tx.Commodity] = append(mk.requests[tx.Commodity], entry)
	} else {
		mk.offers[tx.Commodity] = append(mk.offers[tx.Commodity], entry)
	}
	return nil
}

// HandleTick, HandleTock, ReceiveMaterial, and SendMaterial are no-ops: a
// Market never holds inventory and is driven by explicit Resolve calls from
// the Timekeeper, not by tick/tock recursion through the agent tree.
func (mk *Market) HandleTick(t int) {}
func (mk *Market) HandleTock(t int) {}
func (mk *Market) ReceiveMaterial(tx transaction.Transaction, manifest []*resource.Resource) error {
	return nil
}
func (mk *Market) SendMaterial(tx transaction.Transaction, requester agent.Agent) error {
	return nil
}

// Resolve clears one commodity's book: offers sorted by ascending price,
// requests by descending price, ties broken by agent id ascending. Matched
// pairs are settled with an immediate DOWN reply retracing each message's
// path; residual demand/supply either rolls into next period's book
// (remaining magnitude >= min_amount) or is dropped with a zero-amount
// Unfilled notice sent DOWN.
func (mk *Market) Resolve(commodity string) error {
	offers := sortedOffers(mk.offers[commodity])
	requests := sortedRequests(mk.requests[commodity])

	oi, ri := 0, 0
	for oi < len(offers) && ri < len(requests) {
		offer := offers[oi]
		req := requests[ri]

		if offer.remaining <= matchEpsilon {
			oi++
			continue
		}
		reqMagnitude := -req.remaining
		if reqMagnitude <= matchEpsilon {
			ri++
			continue
		}

		offerPrice := offer.msg.Transaction.UnitPrice
		reqPrice := req.msg.Transaction.UnitPrice
		if reqPrice < offerPrice {
			break // top pair does not cross; stop matching this commodity
		}

		matched := offer.remaining
		if reqMagnitude < matched {
			matched = reqMagnitude
		}

		supplierRef, err := asAgentRef(offer.msg.Originator)
		if err != nil {
			return err
		}
		requesterRef, err := asAgentRef(req.msg.Originator)
		if err != nil {
			return err
		}

		if err := settle(req.msg, supplierRef, requesterRef, -matched, offerPrice); err != nil {
			return err
		}
		if err := settle(offer.msg, supplierRef, requesterRef, matched, offerPrice); err != nil {
			return err
		}

		offer.remaining -= matched
		req.remaining += matched
	}

	mk.offers[commodity] = finalizeBook(offers)
	mk.requests[commodity] = finalizeBook(requests)
	return nil
}

func sortedOffers(entries []*bookEntry) []*bookEntry {
	out := make([]*bookEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].msg.Transaction.UnitPrice, out[j].msg.Transaction.UnitPrice
		if pi != pj {
			return pi < pj
		}
		return out[i].msg.Originator.ID() < out[j].msg.Originator.ID()
	})
	return out
}

func sortedRequests(entries []*bookEntry) []*bookEntry {
	out := make([]*bookEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].msg.Transaction.UnitPrice, out[j].msg.Transaction.UnitPrice
		if pi != pj {
			return pi > pj
		}
		return out[i].msg.Originator.ID() < out[j].msg.Originator.ID()
	})
	return out
}

// settle clones orig, stamps the matched transaction fields, and sends it
// DOWN — retracing orig's accumulated path stack back to its originator.
func settle(orig *messaging.Message, supplier, requester transaction.AgentRef, amount, price float64) error {
	clone := orig.Clone()
	clone.Transaction.Supplier = supplier
	clone.Transaction.Requester = requester
	clone.Transaction.Amount = amount
	clone.Transaction.UnitPrice = price
	clone.ReverseDirection()
	return clone.SendOn()
}

// finalizeBook decides, for every entry in a resolved book, whether its
// leftover carries forward into the next period or is dropped with an
// Unfilled notice. A leftover only gets an Unfilled notice when its
// magnitude falls below the transaction's own MinAmount; an order with
// MinAmount 0 (the common case) always carries its residual forward
// instead, however small, and never sees a notice.
func finalizeBook(entries []*bookEntry) []*bookEntry {
	var carried []*bookEntry
	for _, e := range entries {
		magnitude := e.remaining
		if magnitude < 0 {
			magnitude = -magnitude
		}
		if magnitude <= matchEpsilon {
			continue // fully cleared this period
		}
		if magnitude >= e.msg.Transaction.MinAmount {
			carried = append(carried, e)
			continue
		}
		notice := e.msg.Clone()
		notice.Transaction = notice.Transaction.WithZeroAmount()
		notice.ReverseDirection()
		_ = notice.SendOn()
	}
	return carried
}

func asAgentRef(a messaging.Agent) (transaction.AgentRef, error) {
	ref, ok := a.(transaction.AgentRef)
	if !ok {
		return nil, fmt.Errorf("market: agent %d does not implement transaction.AgentRef", a.ID())
	}
	return ref, nil
}
