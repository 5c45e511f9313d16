// Package agent provides the common capability set shared by every
// simulation participant — Region, Institution, Facility, and Market — and
// the hierarchy bookkeeping (parent/children, id, name) that Region and
// Institution use directly and Facility/Market embed.
package agent

import (
	"fmt"
	"sort"

	"github.com/hodger/cyclus/internal/messaging"
	"github.com/hodger/cyclus/internal/resource"
	"github.com/hodger/cyclus/internal/transaction"
)

// Agent is the full capability set every participant in the hierarchy
// exposes. It embeds messaging.Agent so any Agent satisfies the routing
// layer's narrower requirement without an adapter.
type Agent interface {
	messaging.Agent
	Name() string
	Parent() Agent
	Children() []Agent

	HandleTick(t int)
	HandleTock(t int)

	ReceiveMaterial(tx transaction.Transaction, manifest []*resource.Resource) error
	SendMaterial(tx transaction.Transaction, requester Agent) error
}

// Base implements the identity and hierarchy bookkeeping common to Region
// and Institution. Facility and Market embed it too, even though their
// HandleTick/HandleTock don't simply recurse, so that id/name/parent/child
// plumbing is never duplicated.
type Base struct {
	id       int
	name     string
	parent   Agent
	children []Agent
}

// NewBase constructs hierarchy bookkeeping for an agent with the given
// stable id and display name.
func NewBase(id int, name string) *Base {
	return &Base{id: id, name: name}
}

func (b *Base) ID() int       { return b.id }
func (b *Base) Name() string  { return b.name }
func (b *Base) Parent() Agent { return b.parent }

func (b *Base) Children() []Agent {
	out := make([]Agent, len(b.children))
	copy(out, b.children)
	return out
}

// SetParent records the owning parent. Called by AddFacility/NewInstitution
// on the parent side; not part of the public Agent contract. Children are
// owned by their parent: destroying a parent is expected to destroy its
// subtree, which Go's GC handles once no other reference survives.
func (b *Base) SetParent(p Agent) { b.parent = p }

// Region is the root of the agent hierarchy forest. It has no parent and
// forwards commodity requests/offers from its institutions up to the
// market named by its MarketLookup — regions themselves never originate
// transactions.
type Region struct {
	*Base

	// MarketLookup resolves a commodity name to the Market that clears it.
	// The scenario builder wires this to the registry once every market has
	// been registered; it is the one point where the agent hierarchy
	// reaches outside the Region/Institution/Facility tree — markets sit
	// outside the tree and are found by commodity lookup, not by parentage.
	MarketLookup func(commodity string) (Agent, error)
}

// NewRegion constructs a Region with the given id and name.
func NewRegion(id int, name string) *Region {
	return &Region{Base: NewBase(id, name)}
}

// Receive dispatches an inbound message. A Region is never itself a named
// supplier or requester, so it always forwards: an UP message gets its next
// destination set to the market naming its transaction's commodity before
// being sent on; a DOWN message is already retracing the path stack and is
// passed along unchanged.
func (r *Region) Receive(m *messaging.Message) error {
	if m.Direction == messaging.Up {
		if r.MarketLookup == nil {
			return fmt.Errorf("region %d has no market lookup wired", r.ID())
		}
		market, err := r.MarketLookup(m.Transaction.Commodity)
		if err != nil {
			return err
		}
		if err := m.SetNextDest(market); err != nil {
			return err
		}
	}
	return m.SendOn()
}

// HandleTick recurses into every institution in registration order.
func (r *Region) HandleTick(t int) {
	for _, c := range r.Children() {
		c.HandleTick(t)
	}
}

// HandleTock recurses into every institution in registration order.
func (r *Region) HandleTock(t int) {
	for _, c := range r.Children() {
		c.HandleTock(t)
	}
}

// ReceiveMaterial is a no-op for Region: regions never hold inventory.
func (r *Region) ReceiveMaterial(tx transaction.Transaction, manifest []*resource.Resource) error {
	return nil
}

// SendMaterial is a no-op for Region: regions never ship material.
func (r *Region) SendMaterial(tx transaction.Transaction, requester Agent) error {
	return nil
}

// Institution sits between Region and Facility in the hierarchy. Like
// Region, it has no inventory of its own — it exists purely to route.
type Institution struct {
	*Base
}

// NewInstitution constructs an Institution with the given id and name,
// parented under region.
func NewInstitution(id int, name string, region *Region) *Institution {
	inst := &Institution{Base: NewBase(id, name)}
	inst.SetParent(region)
	region.children = append(region.children, inst)
	return inst
}

// Receive forwards toward the root: an UP message gets its next
// destination set to this institution's parent region before being sent
// on; a DOWN message is passed along unchanged, already retracing its
// recorded path.
func (i *Institution) Receive(m *messaging.Message) error {
	if m.Direction == messaging.Up {
		if err := m.SetNextDest(i.Parent()); err != nil {
			return err
		}
	}
	return m.SendOn()
}

func (i *Institution) HandleTick(t int) {
	for _, c := range i.Children() {
		c.HandleTick(t)
	}
}

func (i *Institution) HandleTock(t int) {
	for _, c := range i.Children() {
		c.HandleTock(t)
	}
}

func (i *Institution) ReceiveMaterial(tx transaction.Transaction, manifest []*resource.Resource) error {
	return nil
}

func (i *Institution) SendMaterial(tx transaction.Transaction, requester Agent) error {
	return nil
}

// AddFacility registers a facility under this institution in registration
// order, as NewInstitution does for regions.
func (i *Institution) AddFacility(f Agent) {
	i.children = append(i.children, f)
	if setter, ok := f.(interface{ SetParent(Agent) }); ok {
		setter.SetParent(i)
	}
}

// SortByID returns a copy of agents ordered by id ascending, used to
// break ties deterministically across agents that otherwise compare equal
// (e.g. equal bid price in market clearing).
func SortByID(agents []Agent) []Agent {
	out := make([]Agent, len(agents))
	copy(out, agents)
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
