// Package facility implements the Facility agent: a leaf in the
// Region/Institution/Facility tree that holds inventory, trades a single
// commodity pair, and delegates its tick/tock behavior to a pluggable
// Behavior registered into a compile-time constructor table.
package facility

import (
	"fmt"

	"github.com/hodger/cyclus/internal/agent"
	"github.com/hodger/cyclus/internal/messaging"
	"github.com/hodger/cyclus/internal/resource"
	"github.com/hodger/cyclus/internal/simerr"
	"github.com/hodger/cyclus/internal/transaction"
)

// Params carries the scenario-supplied configuration a FacilityBehavior
// needs to initialize itself. It is a loosely typed bag rather than a fixed
// struct because each kind of facility reads a different subset of fields —
// the scenario loader decodes each facility's YAML block into one of these
// before calling Behavior.Init.
type Params map[string]any

// Behavior is the plugin contract every facility kind implements: an
// initialization step plus the two scheduled callbacks. Construction and
// teardown are left to Go's own lifecycle — values are built by a
// constructor function and collected by the runtime once unreferenced, so
// only Init, HandleTick, and HandleTock are model-defined.
type Behavior interface {
	Init(p Params) error
	HandleTick(t int, f *Facility)
	HandleTock(t int, f *Facility)
}

// Constructors is the compile-time plugin table: a facility kind name maps
// to a function producing a fresh, uninitialized Behavior. The scenario
// loader looks a kind up here when it builds a facility. Built-in kinds
// register themselves in their own files' init().
var Constructors = map[string]func() Behavior{}

// Register adds a facility kind to the compile-time plugin table. Kinds
// call this from their own package-level init().
func Register(kind string, ctor func() Behavior) {
	Constructors[kind] = ctor
}

// Facility is a leaf agent: it buys in_commod, transforms or stores it, and
// sells out_commod, with its own logic supplied by Behavior.
type Facility struct {
	*agent.Base

	InCommodity  string
	OutCommodity string

	// Stocks holds material received but not yet processed; Inventory holds
	// material processed and ready to ship. Both accumulate in arrival
	// order and are drained front-first, like a FIFO queue.
	Stocks    []*resource.Resource
	Inventory []*resource.Resource

	// OrdersWaiting queues DOWN-leg settlement messages naming this
	// facility as supplier, to be fulfilled on the next Tock.
	OrdersWaiting []*messaging.Message

	Behavior Behavior
}

// New constructs a Facility for the given commodity pair, delegating
// tick/tock behavior to b.
func New(id int, name, inCommod, outCommod string, b Behavior) *Facility {
	return &Facility{
		Base:         agent.NewBase(id, name),
		InCommodity:  inCommod,
		OutCommodity: outCommod,
		Behavior:     b,
	}
}

// HandleTick delegates to Behavior, which typically issues a request for
// in_commod and an offer of out_commod via SendRequest/SendOffer.
func (f *Facility) HandleTick(t int) {
	if f.Behavior != nil {
		f.Behavior.HandleTick(t, f)
	}
}

// HandleTock delegates to Behavior, then drains OrdersWaiting so every
// settlement booked this period ships before the period ends.
func (f *Facility) HandleTock(t int) {
	if f.Behavior != nil {
		f.Behavior.HandleTock(t, f)
	}
	f.drainOrders()
}

// Receive handles an inbound settlement message. A DOWN message naming this
// facility as supplier is queued for fulfillment on the next Tock; one
// naming it as requester is a no-op (the payload, if any, arrives through
// a later ReceiveMaterial call instead); any other message is a routing
// error.
func (f *Facility) Receive(m *messaging.Message) error {
	tx := m.Transaction
	switch {
	case tx.Supplier != nil && tx.Supplier.ID() == f.ID():
		f.OrdersWaiting = append(f.OrdersWaiting, m)
		return nil
	case tx.Requester != nil && tx.Requester.ID() == f.ID():
		return nil
	default:
		return fmt.Errorf("%w: facility %d is neither supplier nor requester of this transaction", simerr.ErrNotSupplier, f.ID())
	}
}

// ReceiveMaterial appends an inbound manifest to Stocks, in delivery order.
func (f *Facility) ReceiveMaterial(tx transaction.Transaction, manifest []*resource.Resource) error {
	f.Stocks = append(f.Stocks, manifest...)
	return nil
}

// SendMaterial ships up to tx.Magnitude() of out_commod to requester,
// pulled from the front of Inventory, splitting the final partial unit with
// Resource.Extract so the shipment does not exceed that amount. If Inventory
// holds less, everything in it is shipped and no error is returned.
func (f *Facility) SendMaterial(tx transaction.Transaction, requester agent.Agent) error {
	if tx.Commodity != f.OutCommodity {
		return fmt.Errorf("%w: facility %d only ships %s", simerr.ErrCommodityMismatch, f.ID(), f.OutCommodity)
	}

	manifest, err := f.drainInventory(tx.Magnitude())
	if err != nil {
		return err
	}
	return requester.ReceiveMaterial(tx, manifest)
}

// drainInventory pulls resources off the front of Inventory until amount is
// satisfied or Inventory is empty, splitting the final entry with Extract so
// the shipment does not exceed amount and the remainder stays in Inventory.
func (f *Facility) drainInventory(amount float64) ([]*resource.Resource, error) {
	var manifest []*resource.Resource
	remaining := amount

	for remaining > resource.Epsilon && len(f.Inventory) > 0 {
		head := f.Inventory[0]
		total := head.TotalQuantity()

		if total <= remaining {
			manifest = append(manifest, head)
			f.Inventory = f.Inventory[1:]
			remaining -= total
			continue
		}

		split, err := head.Extract(remaining)
		if err != nil {
			return nil, err
		}
		manifest = append(manifest, split)
		remaining = 0
	}

	return manifest, nil
}

// drainOrders fulfills every order booked since the last drain, in
// first-booked order, then empties the queue.
func (f *Facility) drainOrders() {
	for _, order := range f.OrdersWaiting {
		tx := order.Transaction
		if tx.Requester == nil {
			continue
		}
		requesterAgent, ok := tx.Requester.(agent.Agent)
		if !ok {
			continue
		}
		_ = f.SendMaterial(tx, requesterAgent)
	}
	f.OrdersWaiting = nil
}

// TotalStocks sums the quantity held across all Stocks entries.
func (f *Facility) TotalStocks() float64 {
	var total float64
	for _, r := range f.Stocks {
		total += r.TotalQuantity()
	}
	return total
}

// TotalInventory sums the quantity held across all Inventory entries.
func (f *Facility) TotalInventory() float64 {
	var total float64
	for _, r := range f.Inventory {
		total += r.TotalQuantity()
	}
	return total
}

// SendRequest builds and routes a negative-amount Message for in_commod, UP
// toward this facility's parent institution — the first hop of the two-leg
// path that eventually reaches the market clearing in_commod.
func (f *Facility) SendRequest(amount, minAmount, unitPrice float64) error {
	return f.sendBid(f.InCommodity, -amount, minAmount, unitPrice)
}

// SendOffer builds and routes a positive-amount Message for out_commod, UP
// toward this facility's parent institution.
func (f *Facility) SendOffer(amount, minAmount, unitPrice float64) error {
	return f.sendBid(f.OutCommodity, amount, minAmount, unitPrice)
}

func (f *Facility) sendBid(commodity string, amount, minAmount, unitPrice float64) error {
	if amount == 0 {
		return nil
	}
	tx, err := transaction.New(commodity, amount, minAmount, unitPrice)
	if err != nil {
		return err
	}
	m := messaging.New(f, tx)
	if err := m.SetNextDest(f.Parent()); err != nil {
		return err
	}
	return m.SendOn()
}
