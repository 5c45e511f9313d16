package facility

import (
	"fmt"
	"math"

	"github.com/hodger/cyclus/internal/resource"
)

func init() {
	Register("RecipeReactor", func() Behavior { return &RecipeReactor{} })
}

// RecipeReactor converts in_commod into out_commod at a fixed monthly
// capacity, bounded by an inventory cap. Tick requests up to capacity worth
// of feed and offers everything it could plausibly hold by month's end;
// Tock converts stocks into inventory at the capacity rate and ships every
// order booked this period.
//
// The construction/license-window fields below (Lifetime through CF) are
// pure bookkeeping here: nothing in HandleTick/HandleTock reads them to
// gate behavior. They exist so a trace or a scenario report can describe a
// reactor's operating window.
type RecipeReactor struct {
	InventorySize float64
	Capacity      float64

	Lifetime      int
	StartConstrYr int
	StartConstrMo int
	StartOpYr     int
	StartOpMo     int
	LicExpYr      int
	LicExpMo      int
	State         string
	TypeReac      string
	CF            float64
}

// Init reads the scenario parameter block. inventory_size and capacity are
// required; the license-window fields are optional and default to zero or
// the empty string when the scenario omits them.
func (r *RecipeReactor) Init(p Params) error {
	inv, ok := floatParam(p, "inventory_size")
	if !ok {
		return fmt.Errorf("RecipeReactor: missing required param inventory_size")
	}
	cap_, ok := floatParam(p, "capacity")
	if !ok {
		return fmt.Errorf("RecipeReactor: missing required param capacity")
	}
	r.InventorySize = inv
	r.Capacity = cap_

	r.Lifetime, _ = intParam(p, "lifetime")
	r.StartConstrYr, _ = intParam(p, "start_constr_yr")
	r.StartConstrMo, _ = intParam(p, "start_constr_mo")
	r.StartOpYr, _ = intParam(p, "start_op_yr")
	r.StartOpMo, _ = intParam(p, "start_op_mo")
	r.LicExpYr, _ = intParam(p, "lic_exp_yr")
	r.LicExpMo, _ = intParam(p, "lic_exp_mo")
	r.CF, _ = floatParam(p, "cf")
	if s, ok := p["state"].(string); ok {
		r.State = s
	}
	if s, ok := p["type_reac"].(string); ok {
		r.TypeReac = s
	}
	return nil
}

// HandleTick requests free inventory space for in_commod (capped at the
// monthly capacity still unclaimed by existing stocks) and always offers as
// much out_commod as it could hold by month's end.
func (r *RecipeReactor) HandleTick(t int, f *Facility) {
	stocks := f.TotalStocks()
	inv := f.TotalInventory()
	freeSpace := r.InventorySize - inv - stocks

	if freeSpace > 0 {
		requestAmt := math.Min(freeSpace, r.Capacity-stocks)
		if requestAmt > 0 {
			_ = f.SendRequest(requestAmt, 0, 0)
		}
	}

	offerAmt := math.Min(inv+r.Capacity, r.InventorySize)
	if offerAmt > 0 {
		_ = f.SendOffer(offerAmt, 0, 0)
	}
}

// HandleTock converts stocks into inventory at the capacity rate, front of
// the queue first, splitting the final partial unit. Shipping queued orders
// is handled by Facility.HandleTock after this returns.
func (r *RecipeReactor) HandleTock(t int, f *Facility) {
	remainingCap := r.Capacity
	var stillStocked []*resource.Resource

	for _, m := range f.Stocks {
		if remainingCap <= 0 {
			stillStocked = append(stillStocked, m)
			continue
		}
		qty := m.TotalQuantity()
		if qty <= remainingCap {
			f.Inventory = append(f.Inventory, m)
			remainingCap -= qty
			continue
		}
		split, err := m.Extract(remainingCap)
		if err == nil {
			f.Inventory = append(f.Inventory, split)
		}
		remainingCap = 0
		stillStocked = append(stillStocked, m)
	}

	newStocks := make([]*resource.Resource, len(stillStocked))
	copy(newStocks, stillStocked)
	f.Stocks = newStocks
}

func floatParam(p Params, key string) (float64, bool) {
	v, ok := p[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func intParam(p Params, key string) (int, bool) {
	v, ok := p[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
